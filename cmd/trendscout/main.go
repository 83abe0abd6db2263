package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/trendscout/internal/config"
	"github.com/IshaanNene/trendscout/internal/sources"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "trendscout",
		Short: "TrendScout: fashion trend discovery and scoring",
		Long: `TrendScout scrapes retailer trend listings, scores every product for
trend strength and market saturability, and keeps a weekly market index.

Features:
  • Headless browser extraction with per-retailer strategies
  • Brand and title normalization, non-apparel exclusion
  • Trend score and saturability with growth estimation
  • Weekly market snapshots with BUY / HOLD / SELL / EMERGING signals
  • MongoDB, PostgreSQL or in-memory product storage
  • Prometheus metrics endpoint`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(refreshCmd())
	rootCmd.AddCommand(snapshotCmd())
	rootCmd.AddCommand(sourcesCmd())
	rootCmd.AddCommand(topCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// loadConfig loads configuration, applies flag overrides and validates
// the result.
func loadConfig(overrides ...func(*config.Config)) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	for _, fn := range overrides {
		fn(cfg)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// setupLogger creates a structured logger from the logging section.
func setupLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("TrendScout %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			fmt.Printf("Browser:\n")
			fmt.Printf("  Headless:          %v\n", cfg.Browser.Headless)
			fmt.Printf("  Stealth:           %v\n", cfg.Browser.Stealth)
			fmt.Printf("  Control URL:       %s\n", orNone(cfg.Browser.ControlURL))
			fmt.Printf("  Nav Timeout:       %s\n", cfg.Browser.NavigationTimeout)
			fmt.Printf("\nFetcher:\n")
			fmt.Printf("  Timeout:           %s\n", cfg.Fetcher.Timeout)
			fmt.Printf("  Politeness Delay:  %s\n", cfg.Fetcher.PolitenessDelay)
			fmt.Printf("  Max Body Size:     %d bytes\n", cfg.Fetcher.MaxBodySize)
			fmt.Printf("  User Agents:       %d configured\n", len(cfg.Fetcher.UserAgents))
			fmt.Printf("\nRefresh:\n")
			fmt.Printf("  Concurrency:       %d\n", cfg.Refresh.Concurrency)
			fmt.Printf("  Run Timeout:       %s\n", cfg.Refresh.RunTimeout)
			fmt.Printf("  Source Timeout:    %s\n", cfg.Refresh.SourceTimeout)
			fmt.Printf("  Sources File:      %s\n", orNone(cfg.Refresh.SourcesFile))
			fmt.Printf("  Lock:              %s\n", cfg.Refresh.Lock)
			fmt.Printf("\nStorage:\n")
			fmt.Printf("  Type:              %s\n", cfg.Storage.Type)
			fmt.Printf("\nSnapshot:\n")
			fmt.Printf("  Enabled:           %v\n", cfg.Snapshot.Enabled)
			fmt.Printf("  Backend:           %s\n", cfg.Snapshot.Backend)
			fmt.Printf("  Path:              %s\n", cfg.Snapshot.Path)
			fmt.Printf("\nMetrics:\n")
			fmt.Printf("  Enabled:           %v\n", cfg.Metrics.Enabled)
			fmt.Printf("  Port:              %d\n", cfg.Metrics.Port)
			return nil
		},
	}
	return cmd
}

// sourcesCmd lists the source registry.
func sourcesCmd() *cobra.Command {
	var activeOnly bool
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List scrape sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			reg, err := sources.Load(cfg.Refresh.SourcesFile)
			if err != nil {
				return err
			}
			descs := reg.All()
			if activeOnly {
				if descs, err = reg.Active(nil); err != nil {
					return err
				}
			}
			for _, d := range descs {
				state := ""
				if !d.Active() {
					state = " (disabled)"
				}
				fmt.Printf("%-28s %-10s %-4s %-6s %-26s %s%s\n",
					d.ID, d.RetailerBrand, d.MarketZone, d.Segment, d.Strategy, d.URL(), state)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&activeOnly, "active", false, "only list sources taking part in full refreshes")
	return cmd
}

// requirePersistentStorage rejects the in-memory product store for
// commands that read records written by an earlier process.
func requirePersistentStorage(cfg *config.Config) error {
	if cfg.Storage.Type == "memory" {
		return fmt.Errorf("storage.type is memory, so records from earlier refreshes are gone; set storage.type to mongodb or postgres")
	}
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
