package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/silolabs/sift/internal/catalog"
	"github.com/silolabs/sift/internal/config"
	"github.com/silolabs/sift/internal/conversation"
	"github.com/silolabs/sift/internal/freshdesk"
	"github.com/silolabs/sift/internal/history"
)

// parseTicketIDs splits a comma-separated flag value into ticket numbers.
func parseTicketIDs(raw string) ([]int, error) {
	var ids []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid ticket ID %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// newDetector builds the auto-ignore detector from the configured phrase
// file, or the defaults.
func newDetector(cfg *config.Config) (*conversation.Detector, error) {
	phrases, err := conversation.LoadPhrases(cfg.AutoIgnoreFile)
	if err != nil {
		return nil, err
	}
	return conversation.NewDetector(phrases), nil
}

// newCache opens the conversation cache with the configured detector.
func newCache(cfg *config.Config) (*conversation.Cache, error) {
	detector, err := newDetector(cfg)
	if err != nil {
		return nil, err
	}
	return conversation.NewCache(cfg.CacheDir, detector)
}

// newSource builds the Freshdesk client, failing fast when credentials are
// missing.
func newSource(cfg *config.Config) (*freshdesk.Client, error) {
	if err := cfg.ValidateFreshdesk(); err != nil {
		return nil, err
	}
	return freshdesk.New(freshdesk.Config{
		Domain: cfg.FreshdeskDomain,
		APIKey: cfg.FreshdeskAPIKey,
	})
}

// openHistory opens the merge history store. History is best-effort: a
// failure logs a warning and returns nil rather than blocking the run.
func openHistory(cfg *config.Config) *history.Store {
	store, err := history.Open(cfg.HistoryPath)
	if err != nil {
		slog.Warn("merge history unavailable for this run", "path", cfg.HistoryPath, "error", err)
		return nil
	}
	return store
}

// resolveOutput applies --safe-output: when the target catalog already
// exists, processing writes to a timestamped copy seeded from it instead
// of overwriting.
func resolveOutput(output string, safeOutput bool) (string, error) {
	if !safeOutput {
		return output, nil
	}
	if _, err := os.Stat(output); os.IsNotExist(err) {
		return output, nil
	}

	ext := filepath.Ext(output)
	stamped := strings.TrimSuffix(output, ext) + "_" + time.Now().Format("20060102_150405") + ext
	data, err := os.ReadFile(output)
	if err != nil {
		return "", fmt.Errorf("reading existing catalog for safe-output copy: %w", err)
	}
	if err := os.WriteFile(stamped, data, 0644); err != nil {
		return "", fmt.Errorf("seeding safe-output copy: %w", err)
	}
	fmt.Printf("Existing catalog preserved; writing to %s\n", stamped)
	return stamped, nil
}

// loadCatalog opens the catalog at path, refusing to continue on a corrupt
// file.
func loadCatalog(path string) (*catalog.Catalog, error) {
	cat, err := catalog.Load(path)
	if err != nil {
		return nil, err
	}
	slog.Debug("loaded issue catalog", "path", path, "issues", cat.Len())
	return cat, nil
}
