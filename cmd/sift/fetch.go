package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/silolabs/sift/internal/config"
	"github.com/silolabs/sift/internal/pipeline"
)

var fetchFlags struct {
	pages     int
	ticketIDs string
	refresh   bool
	catalog   string
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Populate the conversation cache without classifying",
	Long: `Download ticket conversations into the local cache. No classification
runs and the catalog is never modified, so this is safe to run ahead of a
processing session or to pre-warm the cache on a fresh checkout.

After fetching, lists cached tickets not yet linked to any catalog issue.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("pages") && fetchFlags.ticketIDs != "" {
			return fmt.Errorf("--pages and --ticket-ids are mutually exclusive")
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		cache, err := newCache(cfg)
		if err != nil {
			return err
		}
		catalogPath := fetchFlags.catalog
		if catalogPath == "" {
			catalogPath = cfg.CatalogPath
		}
		cat, err := loadCatalog(catalogPath)
		if err != nil {
			return err
		}
		source, err := newSource(cfg)
		if err != nil {
			return err
		}

		ctx := context.Background()

		var ticketIDs []int
		if fetchFlags.ticketIDs != "" {
			ticketIDs, err = parseTicketIDs(fetchFlags.ticketIDs)
			if err != nil {
				return err
			}
		} else {
			pages := fetchFlags.pages
			if pages <= 0 {
				pages = cfg.Pages
			}
			fmt.Println("Fetching ticket IDs...")
			ticketIDs, err = source.FetchResolvedTicketIDs(ctx, pages)
			if err != nil {
				return err
			}
		}

		proc := pipeline.New(cache, cat, source, nil, pipeline.Options{
			Refresh:    fetchFlags.refresh,
			FetchBatch: cfg.BatchSize,
		})
		report, err := proc.FetchOnly(ctx, ticketIDs)
		if err != nil {
			return err
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("Fetched: %s  Already cached: %d  Errors: %d\n",
			green(fmt.Sprintf("%d", report.Fetched)), report.Cached, report.Errors)
		if len(report.Unlinked) > 0 {
			fmt.Printf("%d cached tickets not yet linked to an issue:\n", len(report.Unlinked))
			for _, id := range report.Unlinked {
				fmt.Printf("  %d\n", id)
			}
		}
		return nil
	},
}

func init() {
	fetchCmd.Flags().IntVar(&fetchFlags.pages, "pages", 0, "Pages of resolved tickets to fetch (30 tickets each)")
	fetchCmd.Flags().StringVar(&fetchFlags.ticketIDs, "ticket-ids", "", "Comma-separated ticket IDs to fetch")
	fetchCmd.Flags().BoolVar(&fetchFlags.refresh, "refresh", false, "Re-fetch conversations even if cached")
	fetchCmd.Flags().StringVar(&fetchFlags.catalog, "catalog", "", "Catalog consulted for the unlinked report (default from config)")
	rootCmd.AddCommand(fetchCmd)
}
