package main

import (
	"fmt"
	"slices"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/silolabs/sift/internal/classify"
	"github.com/silolabs/sift/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and update settings",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		key := color.New(color.FgCyan).SprintFunc()
		fmt.Printf("%s %s\n", key("freshdesk.domain:   "), valueOrUnset(cfg.FreshdeskDomain))
		fmt.Printf("%s %s\n", key("freshdesk.api_key:  "), valueOrUnset(config.MaskSecret(cfg.FreshdeskAPIKey)))
		fmt.Printf("%s %s\n", key("anthropic.api_key:  "), valueOrUnset(config.MaskSecret(cfg.AnthropicAPIKey)))
		fmt.Printf("%s %s\n", key("model:              "), valueOrUnset(cfg.Model))
		fmt.Printf("%s %d\n", key("pages:              "), cfg.Pages)
		fmt.Printf("%s %d\n", key("batch_size:         "), cfg.BatchSize)
		fmt.Printf("%s %s\n", key("catalog:            "), cfg.CatalogPath)
		fmt.Printf("%s %s\n", key("cache_dir:          "), cfg.CacheDir)
		fmt.Printf("%s %s\n", key("history:            "), cfg.HistoryPath)
		fmt.Printf("%s %s\n", key("autoignore_file:    "), valueOrUnset(cfg.AutoIgnoreFile))
		return nil
	},
}

var configSetFlags struct {
	model     string
	batchSize int
}

var configSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Persist settings to the local config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		updates := map[string]any{}

		if cmd.Flags().Changed("model") {
			if !slices.Contains(classify.AvailableModels, configSetFlags.model) {
				return fmt.Errorf("unknown model %q (available: %v)", configSetFlags.model, classify.AvailableModels)
			}
			updates["model"] = configSetFlags.model
		}
		if cmd.Flags().Changed("batch-size") {
			if configSetFlags.batchSize < 1 {
				return fmt.Errorf("batch size must be at least 1")
			}
			updates["batch_size"] = configSetFlags.batchSize
		}
		if len(updates) == 0 {
			return fmt.Errorf("nothing to set (see --help)")
		}

		if err := config.Set(updates); err != nil {
			return err
		}
		fmt.Printf("Updated %s\n", config.File)
		return nil
	},
}

func valueOrUnset(v string) string {
	if v == "" {
		return color.New(color.FgHiBlack).Sprint("(unset)")
	}
	return v
}

func init() {
	configSetCmd.Flags().StringVar(&configSetFlags.model, "model", "", "Default model identifier")
	configSetCmd.Flags().IntVar(&configSetFlags.batchSize, "batch-size", 0, "Tickets fetched per classification batch")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}
