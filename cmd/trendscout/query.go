package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/trendscout/internal/ranking"
	"github.com/IshaanNene/trendscout/internal/snapshot"
	"github.com/IshaanNene/trendscout/internal/storage"
	"github.com/IshaanNene/trendscout/internal/types"
)

// snapshotCmd groups read access to the weekly market index.
func snapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Inspect the weekly market snapshot index",
	}
	cmd.AddCommand(snapshotShowCmd())
	return cmd
}

func snapshotShowCmd() *cobra.Command {
	var (
		week     string
		category string
		segment  string
		zone     string
		weeks    int
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show one week of snapshots, or the history of one key",
		Long: `Without --category, show every row of a week (default: this week).
With --category, --segment and --zone, show that key's last --weeks weeks.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cfg.Snapshot.Enabled {
				return fmt.Errorf("snapshot index is disabled (snapshot.enabled=false)")
			}
			logger := setupLogger(cfg)
			ctx := cmd.Context()

			backends, err := storage.Open(ctx, cfg, logger)
			if err != nil {
				return fmt.Errorf("open storage: %w", err)
			}
			defer backends.Close()
			ix := snapshot.New(backends.Snapshots, logger)

			var rows []types.MarketSnapshot
			if category != "" {
				seg, err := types.ParseSegment(segment)
				if err != nil {
					return err
				}
				z, err := types.ParseMarketZone(zone)
				if err != nil {
					return err
				}
				rows, err = ix.History(ctx, category, seg, z, weeks)
				if err != nil {
					return err
				}
			} else {
				t := time.Now()
				if week != "" {
					if t, err = time.Parse(snapshot.DateLayout, week); err != nil {
						return fmt.Errorf("invalid --week %q: %w", week, err)
					}
				}
				if rows, err = ix.Week(ctx, t); err != nil {
					return err
				}
			}

			if len(rows) == 0 {
				fmt.Println("No snapshot rows.")
				return nil
			}
			fmt.Printf("%-10s  %-14s %-6s %-4s %6s %8s %7s %7s  %s\n",
				"WEEK", "CATEGORY", "SEG", "ZONE", "COUNT", "GROWTH", "TREND", "SAT", "SIGNAL")
			for _, r := range rows {
				sim := ""
				if r.IsSimulated {
					sim = " *"
				}
				fmt.Printf("%-10s  %-14s %-6s %-4s %6d %7.1f%% %7.2f %7.2f  %s%s\n",
					r.WeekStart, r.Category, r.Segment, r.MarketZone, r.ArticleCount,
					r.GrowthPercent, r.AvgTrendScore, r.AvgSaturability, r.Signal, sim)
			}
			fmt.Println("\n* growth seeded, no prior week to compare against")
			return nil
		},
	}

	cmd.Flags().StringVar(&week, "week", "", "any day of the week to show (YYYY-MM-DD)")
	cmd.Flags().StringVar(&category, "category", "", "category for history mode")
	cmd.Flags().StringVar(&segment, "segment", "women", "segment for history mode")
	cmd.Flags().StringVar(&zone, "zone", "FR", "market zone for history mode")
	cmd.Flags().IntVar(&weeks, "weeks", 8, "weeks of history")
	return cmd
}

// topCmd prints the brand-interleaved top trends for a zone and segment.
func topCmd() *cobra.Command {
	var (
		zone      string
		segment   string
		age       string
		limit     int
		unbranded bool
	)

	cmd := &cobra.Command{
		Use:   "top",
		Short: "List top trending products",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := requirePersistentStorage(cfg); err != nil {
				return err
			}
			logger := setupLogger(cfg)
			ctx := cmd.Context()

			opts := ranking.Options{Limit: limit, IncludeUnbranded: unbranded, AgeBracket: age}
			filter := storage.Filter{}
			if zone != "" {
				if opts.Zone, err = types.ParseMarketZone(zone); err != nil {
					return err
				}
				filter.MarketZone = opts.Zone
			}
			if segment != "" {
				if opts.Segment, err = types.ParseSegment(segment); err != nil {
					return err
				}
				filter.Segment = opts.Segment
			}
			if age != "" && age != "adult" && age != "kids" {
				return fmt.Errorf("--age must be adult or kids, got %q", age)
			}

			backends, err := storage.Open(ctx, cfg, logger)
			if err != nil {
				return fmt.Errorf("open storage: %w", err)
			}
			defer backends.Close()

			recs, err := backends.Products.FindMany(ctx, filter, storage.OrderBy{Field: storage.OrderTrendScore, Desc: true}, 0)
			if err != nil {
				return err
			}

			top := ranking.Top(recs, opts)
			if len(top) == 0 {
				fmt.Println("No products.")
				return nil
			}
			for i, r := range top {
				brand := r.BrandOrEmpty()
				if brand == "" {
					brand = "-"
				}
				fmt.Printf("%3d. %5.1f  sat %5.1f  %-16s %-40s %s %s/%s\n",
					i+1, r.TrendScore, r.Saturability, brand, r.Name, r.Category, r.MarketZone, r.Segment)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&zone, "zone", "", "market zone (FR, EU, US, ASIA)")
	cmd.Flags().StringVar(&segment, "segment", "", "segment (men, women, boys, girls)")
	cmd.Flags().StringVar(&age, "age", "", "age bracket (adult, kids)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum products to list")
	cmd.Flags().BoolVar(&unbranded, "include-unbranded", false, "append products without a known brand")
	return cmd
}
