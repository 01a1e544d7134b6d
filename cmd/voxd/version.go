package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/voxloop/voxd/internal/server"
)

// VersionCmd prints the build version.
func VersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the voxd version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("voxd %s\n", server.Version)
		},
	}
}
