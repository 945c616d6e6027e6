// Package cmd provides the command-line interface of stackroute.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// newRootCmd creates the base command with every subcommand attached.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "stackroute",
		Short: "stackroute simulates routing over heterogeneous protocol stacks.",
		Long: `stackroute builds a network of routers that convert, ` +
			`encapsulate and decapsulate protocols, lets them discover routes ` +
			`until nothing changes anymore, and then sends data traffic.`,
		SilenceUsage: true,
	}

	addConfigFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newValidateCmd())

	return rootCmd
}

// Execute runs the command line and exits. Functions registered with atexit,
// such as recorder flushes, run before the process ends.
func Execute() {
	err := newRootCmd().Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
