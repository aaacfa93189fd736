package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BaSui01/jsoninference/config"
	"github.com/BaSui01/jsoninference/llm"
	"github.com/BaSui01/jsoninference/llm/factory"
	"github.com/BaSui01/jsoninference/llm/providers"
)

// rootOptions 是所有子命令共享的全局参数
type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "jsoninfer",
		Short: "Structured JSON output from heterogeneous LLM backends",
		Long: `jsoninfer obtains JSON documents that satisfy a JSON Schema from a set of
LLM inference backends, using native structured output where the backend
supports it and forced tool calls with bounded retries elsewhere.

Examples:
  jsoninfer backends
  jsoninfer generate -b claude -s person.json "Describe Ada Lovelace"
  jsoninfer serve --config /etc/jsoninfer/config.yaml`,
		SilenceUsage:               true,
		SilenceErrors:              true,
		SuggestionsMinimumDistance: 1,
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to config file (YAML)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override log level (debug, info, warn, error)")

	root.AddCommand(
		newServeCmd(opts),
		newGenerateCmd(opts),
		newBackendsCmd(opts),
		newHealthCmd(),
		newVersionCmd(),
	)
	return root
}

// loadConfig 加载并校验配置；--log-level 覆盖配置文件中的级别
func (o *rootOptions) loadConfig() (*config.Config, *config.Loader, error) {
	loader := config.NewLoader()
	if o.configPath != "" {
		loader = loader.WithConfigPath(o.configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, loader, nil
}

// buildRegistry 注册全部内置后端；middlewares 按顺序包装每个实例（第一个在最外层）
func buildRegistry(cfg *config.Config, logger *zap.Logger, middlewares []llm.ProviderMiddleware, opts ...providers.Option) (*llm.Registry, error) {
	cfgs, err := cfg.ProviderConfigs()
	if err != nil {
		return nil, err
	}
	reg := llm.NewRegistry(llm.WithLogger(logger), llm.WithMiddleware(middlewares...))
	factory.RegisterBuiltins(reg, cfgs, opts...)
	return reg, nil
}
