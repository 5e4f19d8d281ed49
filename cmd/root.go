package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/luma/ibzmq/cmd/gen"
)

var (
	// Path to an optional YAML config file
	configPath string
)

var RootCmd = &cobra.Command{
	Use:   "ibzmq",
	Short: "Proxy between the IB trader workstation API and a message bus",
	Long: `ibzmq holds a session with the IB trader workstation (or gateway),
decodes every message it sends and publishes them on NATS. Requests are
accepted on a NATS command subject and written to the gateway verbatim.`,
	SilenceUsage: true,
}

func init() {
	flags := RootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "YAML config file, values override the environment")

	RootCmd.AddCommand(StartCmd)
	RootCmd.AddCommand(MsglogCmd)
	RootCmd.AddCommand(SendCmd)
	RootCmd.AddCommand(VersionCmd)
	RootCmd.AddCommand(gen.RootCmd)
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
