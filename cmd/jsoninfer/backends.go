package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BaSui01/jsoninference/llm"
	"github.com/BaSui01/jsoninference/llm/factory"
)

// backendRow 是 backends 命令的一行输出
type backendRow struct {
	Name        string   `json:"name"`
	Strategy    string   `json:"strategy"`
	MaxAttempts int      `json:"max_attempts,omitempty"`
	Aliases     []string `json:"aliases,omitempty"`
}

func newBackendsCmd(root *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "backends",
		Short: "List inference backends, their acquisition strategy and aliases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := root.loadConfig()
			if err != nil {
				return err
			}
			reg, err := buildRegistry(cfg, zap.NewNop(), nil)
			if err != nil {
				return err
			}
			rows, err := describeBackends(reg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			bold := color.New(color.Bold)
			bold.Fprintln(tw, "BACKEND\tSTRATEGY\tALIASES")
			for _, r := range rows {
				strategy := color.CyanString(r.Strategy)
				if r.MaxAttempts > 0 {
					strategy = color.YellowString("%s (%d attempts)", r.Strategy, r.MaxAttempts)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Name, strategy, strings.Join(r.Aliases, ", "))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

// describeBackends 构造每个已注册后端并读取其策略；构造不发起网络请求
func describeBackends(reg *llm.Registry) ([]backendRow, error) {
	aliases := make(map[llm.InferenceName][]string)
	for alias, name := range factory.Aliases() {
		if alias != name.String() {
			aliases[name] = append(aliases[name], alias)
		}
	}

	names := reg.Names()
	rows := make([]backendRow, 0, len(names))
	for _, name := range names {
		p, err := reg.Resolve(name)
		if err != nil {
			return nil, err
		}
		row := backendRow{Name: name.String(), Strategy: "native-format"}
		if tf, ok := p.(interface{ MaxAttempts() int }); ok {
			row.Strategy = "tool-forcing"
			row.MaxAttempts = tf.MaxAttempts()
		}
		row.Aliases = aliases[name]
		sort.Strings(row.Aliases)
		rows = append(rows, row)
	}
	return rows, nil
}
