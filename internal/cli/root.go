// Package cli implements thoughtctl, a command line front end to the
// reasoning pipeline.
package cli

import (
	"context"
	"encoding/json"
	"io"

	"github.com/Harshitk-cp/thoughtgraph/internal/config"
	"github.com/Harshitk-cp/thoughtgraph/internal/stack"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type rootOptions struct {
	verbose    bool
	memory     bool
	aliasTable string
}

// NewRootCmd builds the thoughtctl command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "thoughtctl",
		Short: "Reason over knowledge-graph statements from the command line",
		Long: `thoughtctl normalizes labelled statements and runs them through the
reasoning pipeline, printing one thought bundle per statement.

By default it uses the same environment as the server. Pass --memory to
ignore DATABASE_URL and work against in-memory stores.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.Load()
		},
	}

	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log pipeline activity to stderr")
	root.PersistentFlags().BoolVar(&opts.memory, "memory", false, "use in-memory stores even when DATABASE_URL is set")
	root.PersistentFlags().StringVar(&opts.aliasTable, "aliases", "", "alias table YAML (overrides ALIAS_TABLE_PATH)")

	root.AddCommand(newReasonCmd(opts))
	root.AddCommand(newNormalizeCmd(opts))
	root.AddCommand(newVersionCmd())
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func (o *rootOptions) logger() *zap.Logger {
	if !o.verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func (o *rootOptions) buildStack(ctx context.Context) (*stack.Stack, error) {
	so := stack.OptionsFromConfig()
	if o.memory {
		so.DatabaseURL = ""
	}
	if o.aliasTable != "" {
		so.AliasTablePath = o.aliasTable
	}
	// The CLI is short-lived; bundles are printed, not published.
	so.NATSURL = ""
	return stack.Build(ctx, so, o.logger())
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
