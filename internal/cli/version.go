package cli

import (
	"fmt"

	"github.com/Harshitk-cp/thoughtgraph/internal/buildconfig"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "thoughtctl %s (%s)\n", buildconfig.Version(), buildconfig.Commit())
		},
	}
}
