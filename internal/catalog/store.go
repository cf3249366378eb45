// Package catalog maintains the ordered issue catalog and the merge engine
// that folds classification results into it.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/silolabs/sift/internal/types"
)

// Catalog is the ordered sequence of issue records backed by a single JSON
// array on disk. Order is significant: branches sit immediately after their
// family, not at the end of the file. The merge engine is the sole mutator
// of the sequence; a single process is assumed to own the file for a run.
type Catalog struct {
	path   string
	issues []types.Issue
}

// New returns an empty catalog that will persist to path.
func New(path string) *Catalog {
	return &Catalog{path: path}
}

// Load reads the catalog from path. A missing file yields an empty catalog;
// a corrupt file is a hard error so a possibly-recoverable catalog is never
// clobbered with an empty one.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Catalog{path: path}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading issue catalog: %w", err)
	}
	var issues []types.Issue
	if err := json.Unmarshal(data, &issues); err != nil {
		return nil, fmt.Errorf("issue catalog %s is corrupt, refusing to proceed: %w", path, err)
	}
	return &Catalog{path: path, issues: issues}, nil
}

// Path returns the catalog's default save target.
func (c *Catalog) Path() string {
	return c.path
}

// Len returns the number of issues in the catalog.
func (c *Catalog) Len() int {
	return len(c.issues)
}

// Issues exposes the ordered issue sequence. Callers must treat it as
// read-only; all mutation goes through Merge.
func (c *Catalog) Issues() []types.Issue {
	return c.issues
}

// Save persists the catalog to its default path.
func (c *Catalog) Save() error {
	return c.SaveTo(c.path)
}

// SaveTo serializes the ordered issue list verbatim to path, preserving
// insertion order including branch positioning. The write goes through a
// temp file and rename so an interrupted run never truncates the catalog.
func (c *Catalog) SaveTo(path string) error {
	issues := c.issues
	if issues == nil {
		issues = []types.Issue{}
	}
	data, err := json.MarshalIndent(issues, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing issue catalog: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating catalog dir: %w", err)
		}
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("writing issue catalog: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("committing issue catalog: %w", err)
	}
	return nil
}

// HasTicket reports whether any issue in the catalog links ticketID.
func (c *Catalog) HasTicket(ticketID int) bool {
	return c.findByTicket(ticketID) != nil
}

// findByID returns the issue with the exact identifier, or nil.
func (c *Catalog) findByID(id string) *types.Issue {
	for i := range c.issues {
		if c.issues[i].IssueID == id {
			return &c.issues[i]
		}
	}
	return nil
}

// findByTicket returns the issue linking ticketID, or nil. Ticket ownership
// is exclusive, so the first hit is the only hit.
func (c *Catalog) findByTicket(ticketID int) *types.Issue {
	for i := range c.issues {
		if c.issues[i].HasTicket(ticketID) {
			return &c.issues[i]
		}
	}
	return nil
}

// insertAt places issue at index i, shifting later entries right.
func (c *Catalog) insertAt(i int, issue types.Issue) {
	c.issues = append(c.issues, types.Issue{})
	copy(c.issues[i+1:], c.issues[i:])
	c.issues[i] = issue
}
