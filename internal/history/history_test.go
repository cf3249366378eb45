package history

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func record(runID string, ticketID int, issueID string) *Record {
	return &Record{
		RunID:      runID,
		TicketID:   ticketID,
		IssueID:    issueID,
		Action:     "created_root",
		Confidence: 0.5,
		Model:      "test-model",
	}
}

func TestRecordMergeAndRecent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		rec := record("run-1", i, "ISSUE-0001")
		require.NoError(t, store.RecordMerge(ctx, rec))
		assert.NotZero(t, rec.ID)
		assert.False(t, rec.CreatedAt.IsZero())
	}

	records, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	// Newest first.
	assert.Equal(t, 3, records[0].TicketID)
	assert.Equal(t, 2, records[1].TicketID)
}

func TestRecentDefaultLimit(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.RecordMerge(context.Background(), record("run-1", 1, "ISSUE-0001")))

	records, err := store.Recent(context.Background(), 0)

	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestTicketHistory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.RecordMerge(ctx, record("run-1", 7, "ISSUE-0001")))
	require.NoError(t, store.RecordMerge(ctx, record("run-2", 7, "ISSUE-0001-1")))
	require.NoError(t, store.RecordMerge(ctx, record("run-2", 8, "ISSUE-0002")))

	records, err := store.TicketHistory(ctx, 7)

	require.NoError(t, err)
	require.Len(t, records, 2)
	// Oldest first.
	assert.Equal(t, "ISSUE-0001", records[0].IssueID)
	assert.Equal(t, "ISSUE-0001-1", records[1].IssueID)
}

func TestOpenCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")

	store, err := Open(path)

	require.NoError(t, err)
	require.NoError(t, store.Close())
}
