package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/trendscout/internal/api"
	"github.com/IshaanNene/trendscout/internal/snapshot"
	"github.com/IshaanNene/trendscout/internal/storage"
)

// serveCmd runs the HTTP API until interrupted.
func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve trend listings, snapshots and refresh control over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := setupLogger(cfg)
			ctx := cmd.Context()

			backends, err := storage.Open(ctx, cfg, logger)
			if err != nil {
				return fmt.Errorf("open storage: %w", err)
			}
			defer backends.Close()

			orch, cleanup, err := buildOrchestrator(cfg, backends, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			var ix *snapshot.Index
			if backends.Snapshots != nil {
				ix = snapshot.New(backends.Snapshots, logger)
			}
			return api.NewServer(port, orch, backends.Products, ix, logger).ListenAndServe(ctx)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "API listen port")
	return cmd
}
