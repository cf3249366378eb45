package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silolabs/sift/internal/types"
)

func TestLoadMissingFileYieldsEmptyCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")

	c, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, path, c.Path())
}

func TestLoadCorruptFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := Load(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "refusing to proceed")
}

func TestSaveLoadRoundTripPreservesOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	c := New(path)
	c.Merge(classification("", 0.5), 1)
	c.Merge(classification("", 0.5), 2)
	c.Merge(classification("ISSUE-0001", 0.5), 3)
	require.NoError(t, c.Save())

	loaded, err := Load(path)
	require.NoError(t, err)

	ids := make([]string, 0, loaded.Len())
	for _, issue := range loaded.Issues() {
		ids = append(ids, issue.IssueID)
	}
	assert.Equal(t, []string{"ISSUE-0001", "ISSUE-0001-1", "ISSUE-0002"}, ids)
}

func TestSaveEmptyCatalogWritesArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	c := New(path)

	require.NoError(t, c.Save())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestSaveCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out", "catalog.json")
	c := New(path)
	c.Merge(classification("", 0.5), 1)

	require.NoError(t, c.Save())

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestHasTicket(t *testing.T) {
	c := New("unused.json")
	c.issues = []types.Issue{{IssueID: "ISSUE-0001", Tickets: []int{7, 8}}}

	assert.True(t, c.HasTicket(7))
	assert.False(t, c.HasTicket(9))
}

func TestInsertAtShiftsEntries(t *testing.T) {
	c := seedCatalog("ISSUE-0001", "ISSUE-0002", "ISSUE-0003")

	c.insertAt(1, types.Issue{IssueID: "ISSUE-0001-1"})

	ids := make([]string, 0, c.Len())
	for _, issue := range c.Issues() {
		ids = append(ids, issue.IssueID)
	}
	assert.Equal(t, []string{"ISSUE-0001", "ISSUE-0001-1", "ISSUE-0002", "ISSUE-0003"}, ids)
}
