// Package cli implements the voxd command line interface.
package cli

import (
	"github.com/spf13/cobra"
)

// Shared CLI flags
var (
	cfgFile string
	verbose bool
)

// SetupRootCmd configures the root command with all subcommands and flags.
func SetupRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "voxd",
		Short: "voxd - voice call agent server",
		Long: `Voxd answers phone-style voice calls over WebSocket: it detects speech,
transcribes finished utterances, generates a reply, and speaks it back.

Just type 'voxd' to start the server with the default configuration.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: voxd.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(ServeCmd())
	rootCmd.AddCommand(VersionCmd())

	return rootCmd
}
