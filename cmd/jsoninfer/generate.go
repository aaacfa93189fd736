package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/BaSui01/jsoninference/llm"
	"github.com/BaSui01/jsoninference/llm/factory"
	"github.com/BaSui01/jsoninference/llm/schema"
)

// keyEnv 在未传 --key 时提供凭据（逗号分隔多个）
const keyEnv = "JSONINFER_KEY"

type generateOptions struct {
	backend    string
	model      string
	schemaPath string
	system     string
	keys       []string
	timeout    time.Duration
	quiet      bool
}

func newGenerateCmd(root *rootOptions) *cobra.Command {
	opts := &generateOptions{}

	cmd := &cobra.Command{
		Use:   "generate [prompt]",
		Short: "Obtain one schema-conforming JSON document from a backend",
		Long: `Send a prompt to one backend and print the structured JSON result.

The schema file holds either a bare JSON Schema object or a response format
envelope ({"type":"json_schema","json_schema":{"name":...,"schema":...}}).
Use "-" to read the schema from stdin.

Examples:
  jsoninfer generate -b claude -s person.json "Describe Ada Lovelace"
  jsoninfer generate -b ollama -m qwen3:8b -s greeting.json "Say hello"
  cat schema.json | jsoninfer generate -b gpt5 -s - --key sk-... "Summarize"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, root, opts, strings.Join(args, " "))
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.backend, "backend", "b", "", "Backend identifier or alias (see 'jsoninfer backends')")
	f.StringVarP(&opts.model, "model", "m", "", "Model override (backend default when empty)")
	f.StringVarP(&opts.schemaPath, "schema", "s", "", "Path to the JSON Schema file, or - for stdin")
	f.StringVar(&opts.system, "system", "", "Optional system message")
	f.StringSliceVarP(&opts.keys, "key", "k", nil, "Backend API key; repeat to rotate keys across attempts (default $"+keyEnv+")")
	f.DurationVar(&opts.timeout, "timeout", 5*time.Minute, "Overall deadline for the call")
	f.BoolVarP(&opts.quiet, "quiet", "q", false, "Print only the JSON result")
	_ = cmd.MarkFlagRequired("backend")
	_ = cmd.MarkFlagRequired("schema")

	return cmd
}

func runGenerate(cmd *cobra.Command, root *rootOptions, opts *generateOptions, prompt string) error {
	name, err := factory.ParseName(opts.backend)
	if err != nil {
		return err
	}
	format, err := readSchema(opts.schemaPath, cmd.InOrStdin())
	if err != nil {
		return err
	}

	cfg, _, err := root.loadConfig()
	if err != nil {
		return err
	}
	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	reg, err := buildRegistry(cfg, logger, nil)
	if err != nil {
		return err
	}

	messages := make([]llm.Message, 0, 2)
	if opts.system != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: opts.system})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: prompt})

	keys := opts.keys
	if len(keys) == 0 {
		keys = splitKeys(os.Getenv(keyEnv))
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	stderr := cmd.ErrOrStderr()
	var sp *statusSpinner
	if !opts.quiet {
		sp = newSpinner(stderr, fmt.Sprintf("Asking %s...", name))
		sp.Start()
	}

	start := time.Now()
	res, err := reg.Dispatch(ctx, name, llm.OutlineParams{Format: format, Messages: messages}, opts.model, keys...)
	if err != nil {
		if sp != nil {
			sp.Fail(fmt.Sprintf("%s failed after %s", name, time.Since(start).Round(time.Millisecond)))
		}
		return err
	}
	if sp != nil {
		sp.Success(fmt.Sprintf("%s answered in %s", name, time.Since(start).Round(time.Millisecond)))
	}

	return printJSON(cmd.OutOrStdout(), res.Content, !opts.quiet)
}

// readSchema 读取 schema 文件（"-" 表示 stdin）并解码为 schema.Source
func readSchema(path string, stdin io.Reader) (schema.Source, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	src, err := schema.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode schema %s: %w", path, err)
	}
	return src, nil
}

func splitKeys(s string) []string {
	var out []string
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// printJSON 缩进输出结果；pretty 为 true 时按 color 的终端检测着色
func printJSON(w io.Writer, content string, pretty bool) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(content), "", "  "); err != nil {
		// 结果总是合法 JSON；兜底原样输出
		_, werr := fmt.Fprintln(w, content)
		return werr
	}
	if pretty {
		_, err := color.New(color.FgHiWhite).Fprintln(w, buf.String())
		return err
	}
	_, err := fmt.Fprintln(w, buf.String())
	return err
}
