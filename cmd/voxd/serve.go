package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/voxloop/voxd/internal/config"
	"github.com/voxloop/voxd/internal/logging"
	"github.com/voxloop/voxd/internal/server"
)

// ServeCmd starts the HTTP and WebSocket server.
func ServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the voice call agent server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	path := cfgFile
	if path == "" {
		path = "voxd.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Infof("received signal %v, shutting down", sig)
		cancel()
	}()

	return server.Run(ctx, cfg)
}
