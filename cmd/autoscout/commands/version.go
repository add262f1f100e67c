package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wueestry/autoscout/pkg/version"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the autoscout version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "autoscout", version.String())
		},
	}
}
