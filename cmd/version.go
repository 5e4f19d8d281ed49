package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/luma/ibzmq/internal/meta"
)

var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build information",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), meta.GetInfo().String())
		return nil
	},
}
