package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/trendscout/internal/config"
	"github.com/IshaanNene/trendscout/internal/extract"
	"github.com/IshaanNene/trendscout/internal/fetcher"
	"github.com/IshaanNene/trendscout/internal/observability"
	"github.com/IshaanNene/trendscout/internal/orchestrator"
	"github.com/IshaanNene/trendscout/internal/snapshot"
	"github.com/IshaanNene/trendscout/internal/sources"
	"github.com/IshaanNene/trendscout/internal/storage"
)

// refreshCmd creates the "refresh" subcommand.
func refreshCmd() *cobra.Command {
	var (
		sourceIDs   string
		dryRun      bool
		jsonOut     bool
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Scrape sources and rebuild their product records",
		Long: `Refresh clears the records of every retailer covered by the selected
sources, extracts each source, scores the candidates and stores them. When the
snapshot index is enabled the run is rolled into this week's market snapshot.

With the default storage.type=memory the records live only as long as this
process; use mongodb or postgres so "top" and "serve" can read them later.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(func(c *config.Config) {
				if concurrency > 0 {
					c.Refresh.Concurrency = concurrency
				}
			})
			if err != nil {
				return err
			}
			logger := setupLogger(cfg)
			if cfg.Storage.Type == "memory" && !dryRun {
				logger.Warn("records are kept in memory and discarded when this process exits; set storage.type to mongodb or postgres to keep them")
			}
			ctx := cmd.Context()

			backends, err := storage.Open(ctx, cfg, logger)
			if err != nil {
				return fmt.Errorf("open storage: %w", err)
			}
			defer backends.Close()

			orch, cleanup, err := buildOrchestrator(cfg, backends, logger, orchestrator.WithDryRun(dryRun))
			if err != nil {
				return err
			}
			defer cleanup()

			report, err := orch.Refresh(ctx, splitIDs(sourceIDs))
			if report != nil {
				if jsonOut {
					enc := json.NewEncoder(os.Stdout)
					enc.SetIndent("", "  ")
					if encErr := enc.Encode(report); encErr != nil {
						return encErr
					}
				} else {
					printReport(report)
				}
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&sourceIDs, "sources", "s", "", "comma-separated source ids (default: all active sources)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "extract and score without writing records or snapshots")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the run report as JSON")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "n", 0, "browser sessions run in parallel (default from config)")
	return cmd
}

// buildOrchestrator wires the browser, detail fetcher, extractor and
// metrics around backends. cleanup closes what it opened.
func buildOrchestrator(cfg *config.Config, backends *storage.Backends, logger *slog.Logger, extra ...orchestrator.Option) (*orchestrator.Orchestrator, func(), error) {
	reg, err := sources.Load(cfg.Refresh.SourcesFile)
	if err != nil {
		return nil, nil, err
	}

	throttle := fetcher.NewThrottle(cfg.Fetcher.PolitenessDelay)
	details, err := fetcher.NewHTTPFetcher(cfg.Fetcher, throttle, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("create fetcher: %w", err)
	}
	renderer := fetcher.NewBrowserRenderer(cfg.Browser, throttle, logger)
	closers := []func(){
		func() { _ = renderer.Close() },
		func() { _ = details.Close() },
	}

	extractor := extract.NewExtractor(extract.NewEngine(renderer, logger), details, logger)

	opts := []orchestrator.Option{orchestrator.WithLocker(backends.Locker)}
	if backends.Snapshots != nil {
		opts = append(opts, orchestrator.WithSnapshots(snapshot.New(backends.Snapshots, logger)))
	}
	if cfg.Metrics.Enabled {
		metrics := observability.NewMetrics(logger)
		srv := metrics.StartServer(cfg.Metrics.Port, cfg.Metrics.Path)
		closers = append(closers, func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		})
		opts = append(opts, orchestrator.WithMetrics(metrics))
	}

	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	orch := orchestrator.New(cfg.Refresh, reg, extractor, backends.Products, logger, append(opts, extra...)...)
	return orch, cleanup, nil
}

func splitIDs(s string) []string {
	var ids []string
	for _, id := range strings.Split(s, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func printReport(r *orchestrator.Report) {
	mode := ""
	if r.DryRun {
		mode = " (dry run)"
	}
	fmt.Printf("\n✅ Refresh %s%s in %s\n", r.Status(), mode, r.Duration.Round(time.Millisecond))
	fmt.Printf("   Run:       %s\n", r.RunID)
	fmt.Printf("   Sources:   %d processed\n", r.SourcesProcessed)
	fmt.Printf("   Items:     %d seen, %d saved, %d deleted\n", r.TotalItemsSeen, r.SavedCount, r.DeletedCount)
	if len(r.Dropped) > 0 {
		fmt.Printf("   Dropped:  ")
		for stage, n := range r.Dropped {
			fmt.Printf(" %s=%d", stage, n)
		}
		fmt.Println()
	}
	if len(r.Snapshots) > 0 {
		fmt.Printf("   Snapshot:  %d rows for week %s\n", len(r.Snapshots), r.Snapshots[0].WeekStart)
	}
	if len(r.Errors) > 0 {
		fmt.Printf("\n⚠️  %d errors:\n", len(r.Errors))
		for _, e := range r.Errors {
			fmt.Printf("   - %s\n", e)
		}
	}
}
