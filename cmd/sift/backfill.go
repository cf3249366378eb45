package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/silolabs/sift/internal/config"
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Upgrade cached conversations in place",
	Long: `Run maintenance passes over the conversation cache: add the ignore
flag to records written before it existed, then re-evaluate auto-ignore
detection against the current phrase list. Tickets already marked ignored
stay ignored.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		cache, err := newCache(cfg)
		if err != nil {
			return err
		}

		checked, flagged, err := cache.BackfillIgnoreFlags()
		if err != nil {
			return err
		}
		fmt.Printf("Ignore flag pass: %d checked, %d upgraded\n", checked, flagged)

		checked, ignored, err := cache.BackfillAutoIgnore()
		if err != nil {
			return err
		}
		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("Auto-ignore pass:  %d checked, %s newly ignored\n",
			checked, green(fmt.Sprintf("%d", ignored)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(backfillCmd)
}
