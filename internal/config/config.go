// Package config loads sift settings from a .sift.yaml file and SIFT_*
// environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// File is the config file name searched for in the working directory and
// the user's home directory.
const File = ".sift.yaml"

// Defaults.
const (
	DefaultCatalogPath = "output/silo_issues_db.json"
	DefaultCacheDir    = "conversations"
	DefaultHistoryPath = "output/sift_history.db"
	DefaultPages       = 5
	DefaultBatchSize   = 3
)

// Config holds the effective settings for a run.
type Config struct {
	FreshdeskDomain string // Freshdesk subdomain
	FreshdeskAPIKey string
	AnthropicAPIKey string // empty falls back to ANTHROPIC_API_KEY at client construction
	Model           string // model identifier; empty uses the classify default
	Pages           int    // default pages of search results to fetch
	BatchSize       int    // conversation fetch batch size
	CatalogPath     string // issue catalog JSON path
	CacheDir        string // conversation cache directory
	HistoryPath     string // merge history sqlite path
	AutoIgnoreFile  string // optional YAML phrase override file
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName(strings.TrimSuffix(File, ".yaml"))
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
	}

	v.SetEnvPrefix("SIFT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("freshdesk.domain", "")
	v.SetDefault("freshdesk.api_key", "")
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("model", "")
	v.SetDefault("pages", DefaultPages)
	v.SetDefault("batch_size", DefaultBatchSize)
	v.SetDefault("catalog", DefaultCatalogPath)
	v.SetDefault("cache_dir", DefaultCacheDir)
	v.SetDefault("history", DefaultHistoryPath)
	v.SetDefault("autoignore_file", "")
	return v
}

// Load reads the config file (if present) and environment overrides.
// A missing file is fine; a malformed one is not.
func Load() (*Config, error) {
	v := newViper()
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errorsAs(err, &notFound) {
			return nil, fmt.Errorf("reading %s: %w", File, err)
		}
	}

	return &Config{
		FreshdeskDomain: v.GetString("freshdesk.domain"),
		FreshdeskAPIKey: v.GetString("freshdesk.api_key"),
		AnthropicAPIKey: v.GetString("anthropic.api_key"),
		Model:           v.GetString("model"),
		Pages:           v.GetInt("pages"),
		BatchSize:       v.GetInt("batch_size"),
		CatalogPath:     v.GetString("catalog"),
		CacheDir:        v.GetString("cache_dir"),
		HistoryPath:     v.GetString("history"),
		AutoIgnoreFile:  v.GetString("autoignore_file"),
	}, nil
}

// errorsAs is a tiny wrapper so the viper-specific error type stays local.
func errorsAs(err error, target *viper.ConfigFileNotFoundError) bool {
	if e, ok := err.(viper.ConfigFileNotFoundError); ok {
		*target = e
		return true
	}
	return false
}

// ValidateFreshdesk checks the credentials needed to reach the ticket
// source. Called before any ticket is touched so a misconfigured run fails
// fast.
func (c *Config) ValidateFreshdesk() error {
	if c.FreshdeskDomain == "" {
		return fmt.Errorf("freshdesk.domain is not configured (set it in %s or SIFT_FRESHDESK_DOMAIN)", File)
	}
	if c.FreshdeskAPIKey == "" {
		return fmt.Errorf("freshdesk.api_key is not configured (set it in %s or SIFT_FRESHDESK_API_KEY)", File)
	}
	return nil
}

// Set updates keys in the working-directory config file, creating it if
// needed. Existing keys not named in updates are preserved.
func Set(updates map[string]any) error {
	v := newViper()
	// Only merge the local file; home-directory config stays untouched.
	v.SetConfigFile(File)
	if err := v.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		if _, statErr := os.Stat(File); statErr == nil {
			return fmt.Errorf("reading %s: %w", File, err)
		}
	}
	for key, value := range updates {
		v.Set(key, value)
	}
	path, err := filepath.Abs(File)
	if err != nil {
		return err
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing %s: %w", File, err)
	}
	return nil
}

// MaskSecret renders a credential for display, keeping only the last four
// characters.
func MaskSecret(value string) string {
	if value == "" {
		return "<missing>"
	}
	if len(value) <= 4 {
		return "***"
	}
	return "***" + value[len(value)-4:]
}
