package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/silolabs/sift/internal/config"
	"github.com/silolabs/sift/internal/history"
)

var activityFlags struct {
	limit  int
	ticket int
}

var activityCmd = &cobra.Command{
	Use:   "activity",
	Short: "Show recent merge history",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		store, err := history.Open(cfg.HistoryPath)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		ctx := context.Background()

		var records []*history.Record
		if cmd.Flags().Changed("ticket") {
			records, err = store.TicketHistory(ctx, activityFlags.ticket)
		} else {
			records, err = store.Recent(ctx, activityFlags.limit)
		}
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("No merge history yet.")
			return nil
		}

		issueColor := color.New(color.FgCyan).SprintFunc()
		actionColor := color.New(color.FgGreen).SprintFunc()
		for _, rec := range records {
			fmt.Printf("%s  ticket %-6d  %-20s %-16s conf %.2f  %s\n",
				rec.CreatedAt.Local().Format("2006-01-02 15:04"),
				rec.TicketID,
				issueColor(rec.IssueID),
				actionColor(rec.Action),
				rec.Confidence,
				rec.Model)
		}
		return nil
	},
}

func init() {
	activityCmd.Flags().IntVar(&activityFlags.limit, "limit", 50, "Maximum records to show")
	activityCmd.Flags().IntVar(&activityFlags.ticket, "ticket", 0, "Show the full history for one ticket")
	rootCmd.AddCommand(activityCmd)
}
