package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/silolabs/sift/internal/classify"
	"github.com/silolabs/sift/internal/config"
	"github.com/silolabs/sift/internal/pipeline"
)

var processFlags struct {
	pages          int
	ticketIDs      string
	output         string
	safeOutput     bool
	reprocess      bool
	refresh        bool
	promptDebug    bool
	model          string
	nonInteractive bool
}

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Process tickets and update the issue catalog",
	Long: `Fetch ticket conversations, classify each against the current issue
catalog, and merge the results. The catalog is saved after every ticket so
an interrupted run loses at most the ticket in flight.

With no ticket selection flags, an interactive wizard walks through the
run setup (disable with --non-interactive).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("pages") && processFlags.ticketIDs != "" {
			return fmt.Errorf("--pages and --ticket-ids are mutually exclusive")
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		var ticketIDs []int
		if processFlags.ticketIDs != "" {
			ticketIDs, err = parseTicketIDs(processFlags.ticketIDs)
			if err != nil {
				return err
			}
		}

		pages := processFlags.pages
		model := processFlags.model
		reprocess := processFlags.reprocess
		refresh := processFlags.refresh

		outPath := processFlags.output
		if outPath == "" {
			outPath = cfg.CatalogPath
		}

		if !processFlags.nonInteractive && !cmd.Flags().Changed("pages") && processFlags.ticketIDs == "" {
			choices, err := runWizard(cfg, outPath)
			if err != nil {
				return err
			}
			if !choices.confirmed {
				fmt.Println("Aborted.")
				return nil
			}
			pages = choices.pages
			ticketIDs = choices.ticketIDs
			reprocess = choices.reprocess
			refresh = choices.refresh
			model = choices.model
		}
		if pages <= 0 {
			pages = cfg.Pages
		}
		if model == "" {
			model = cfg.Model
		}

		output, err := resolveOutput(outPath, processFlags.safeOutput)
		if err != nil {
			return err
		}

		cache, err := newCache(cfg)
		if err != nil {
			return err
		}
		cat, err := loadCatalog(output)
		if err != nil {
			return err
		}
		source, err := newSource(cfg)
		if err != nil {
			return err
		}
		classifier, err := classify.NewClient(classify.ClientConfig{
			APIKey: cfg.AnthropicAPIKey,
			Model:  model,
		})
		if err != nil {
			return err
		}

		ctx := context.Background()

		if ticketIDs == nil {
			fmt.Println("Fetching ticket IDs...")
			ticketIDs, err = source.FetchResolvedTicketIDs(ctx, pages)
			if err != nil {
				return err
			}
		}
		fmt.Printf("%d tickets to process\n", len(ticketIDs))

		proc := pipeline.New(cache, cat, source, classifier, pipeline.Options{
			Reprocess:   reprocess,
			Refresh:     refresh,
			PromptDebug: processFlags.promptDebug,
		})
		proc.Model = classifier.Model()
		if hist := openHistory(cfg); hist != nil {
			proc.History = hist
			defer func() { _ = hist.Close() }()
		}

		summary, err := proc.ProcessTickets(ctx, ticketIDs)
		printSummary(summary)
		if err != nil {
			return err
		}

		if processFlags.promptDebug {
			fmt.Println("Prompt debug mode: catalog not written")
			return nil
		}
		// A run where every ticket was skipped never saves; make sure the
		// advertised output exists so downstream tooling can open it.
		if summary.Processed == 0 {
			if err := cat.SaveTo(output); err != nil {
				return err
			}
		}
		fmt.Printf("Catalog written to %s\n", output)
		return nil
	},
}

func printSummary(s *pipeline.Summary) {
	green := color.New(color.FgGreen).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	fmt.Printf("\nProcessed: %s  Skipped (ignored): %s  Skipped (linked): %s",
		green(fmt.Sprintf("%d", s.Processed)),
		gray(fmt.Sprintf("%d", s.SkippedIgnored)),
		gray(fmt.Sprintf("%d", s.SkippedLinked)))
	if s.FetchErrors > 0 {
		fmt.Printf("  Fetch errors: %s", yellow(fmt.Sprintf("%d", s.FetchErrors)))
	}
	fmt.Println()
}

func init() {
	processCmd.Flags().IntVar(&processFlags.pages, "pages", 0, "Pages of resolved tickets to fetch (30 tickets each)")
	processCmd.Flags().StringVar(&processFlags.ticketIDs, "ticket-ids", "", "Comma-separated ticket IDs to process")
	processCmd.Flags().StringVar(&processFlags.output, "output", "", "Issue catalog output path (default from config)")
	processCmd.Flags().BoolVar(&processFlags.safeOutput, "safe-output", false, "Write to a timestamped copy when the catalog already exists")
	processCmd.Flags().BoolVar(&processFlags.reprocess, "reprocess", false, "Re-run classification on tickets already in the catalog")
	processCmd.Flags().BoolVar(&processFlags.refresh, "refresh", false, "Re-fetch conversations from Freshdesk even if cached")
	processCmd.Flags().BoolVar(&processFlags.promptDebug, "prompt-debug", false, "Print prompts and model output without writing the catalog")
	processCmd.Flags().StringVar(&processFlags.model, "model", "", "Model identifier (overrides configured model)")
	processCmd.Flags().BoolVar(&processFlags.nonInteractive, "non-interactive", false, "Skip the interactive wizard")
	rootCmd.AddCommand(processCmd)
}
