// Package conversation owns the normalized conversation records: building
// them from raw helpdesk payloads, caching them on disk, and deciding which
// ones are automated noise that must never reach the classifier.
package conversation

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/silolabs/sift/internal/types"
)

// Cache is an on-disk store of one conversation record per ticket, laid out
// as <dir>/<ticket_id>.json. The cache is the sole mutator of conversation
// records; a single process is assumed to own the directory for a run.
type Cache struct {
	dir      string
	detector *Detector
}

// NewCache opens (creating if needed) a conversation cache rooted at dir.
// A nil detector selects the default auto-ignore phrase list.
func NewCache(dir string, detector *Detector) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating conversation cache dir: %w", err)
	}
	if detector == nil {
		detector = NewDetector(nil)
	}
	return &Cache{dir: dir, detector: detector}, nil
}

// Dir returns the cache root directory.
func (c *Cache) Dir() string {
	return c.dir
}

// Detector returns the auto-ignore detector the cache was opened with.
func (c *Cache) Detector() *Detector {
	return c.detector
}

func (c *Cache) path(ticketID int) string {
	return filepath.Join(c.dir, fmt.Sprintf("%d.json", ticketID))
}

// Load reads the cached conversation for a ticket. Returns (nil, nil) when
// no record exists.
func (c *Cache) Load(ticketID int) (*types.Conversation, error) {
	data, err := os.ReadFile(c.path(ticketID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading conversation %d: %w", ticketID, err)
	}
	var conv types.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("parsing conversation %d: %w", ticketID, err)
	}
	return &conv, nil
}

// Save writes the conversation record for its ticket, replacing any prior
// copy. The write goes through a temp file and rename so a crash mid-write
// never leaves a truncated file as the only copy.
func (c *Cache) Save(conv *types.Conversation) error {
	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing conversation %d: %w", conv.TicketID, err)
	}

	path := c.path(conv.TicketID)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("writing conversation %d: %w", conv.TicketID, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("committing conversation %d: %w", conv.TicketID, err)
	}
	return nil
}

// IsIgnored reports whether a ticket's cached conversation is flagged
// ignore. Absent records are not ignored.
func (c *Cache) IsIgnored(ticketID int) bool {
	conv, err := c.Load(ticketID)
	if err != nil || conv == nil {
		return false
	}
	return conv.Ignore
}

// TicketIDs lists every ticket with a cached conversation, ascending.
func (c *Cache) TicketIDs() ([]int, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, fmt.Errorf("listing conversation cache: %w", err)
	}
	var ids []int
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSuffix(name, ".json"))
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}

// probeRecord mirrors the conversation file shape with a pointer ignore
// flag, so a file written before the flag existed can be told apart from
// one where it is explicitly false.
type probeRecord struct {
	TicketID int             `json:"ticket_id"`
	Messages []types.Message `json:"conversation"`
	Ignore   *bool           `json:"ignore"`
}

// BackfillIgnoreFlags scans every cached record and rewrites those missing
// the ignore flag with ignore=false. Idempotent: a second pass updates
// nothing. Malformed files are skipped with a warning rather than aborting
// the scan.
func (c *Cache) BackfillIgnoreFlags() (checked, updated int, err error) {
	ids, err := c.TicketIDs()
	if err != nil {
		return 0, 0, err
	}
	for _, id := range ids {
		data, err := os.ReadFile(c.path(id))
		if err != nil {
			slog.Warn("skipping unreadable conversation during backfill", "ticket", id, "error", err)
			continue
		}
		var probe probeRecord
		if err := json.Unmarshal(data, &probe); err != nil {
			slog.Warn("skipping malformed conversation during backfill", "ticket", id, "error", err)
			continue
		}
		checked++
		if probe.Ignore != nil {
			continue
		}
		conv := &types.Conversation{TicketID: probe.TicketID, Messages: probe.Messages, Ignore: false}
		if err := c.Save(conv); err != nil {
			return checked, updated, err
		}
		updated++
	}
	return checked, updated, nil
}

// BackfillAutoIgnore re-evaluates the auto-ignore predicate over every
// cached record that is not already ignored, flagging matches. It never
// flips ignore back to false: manual and prior automatic ignores are
// sticky. Idempotent.
func (c *Cache) BackfillAutoIgnore() (checked, autoIgnored int, err error) {
	ids, err := c.TicketIDs()
	if err != nil {
		return 0, 0, err
	}
	for _, id := range ids {
		conv, err := c.Load(id)
		if err != nil {
			slog.Warn("skipping malformed conversation during auto-ignore backfill", "ticket", id, "error", err)
			continue
		}
		checked++
		if conv.Ignore {
			continue
		}
		if c.detector.ShouldAutoIgnore(conv.Messages) {
			conv.Ignore = true
			if err := c.Save(conv); err != nil {
				return checked, autoIgnored, err
			}
			autoIgnored++
		}
	}
	return checked, autoIgnored, nil
}
