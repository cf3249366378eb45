package conversation

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silolabs/sift/internal/types"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	cache, err := NewCache(t.TempDir(), nil)
	require.NoError(t, err)
	return cache
}

func TestCacheRoundTrip(t *testing.T) {
	cache := newTestCache(t)
	conv := &types.Conversation{
		TicketID: 42,
		Messages: []types.Message{
			userMsg("orders stopped syncing"),
			agentMsg("please reconnect the channel"),
		},
	}

	require.NoError(t, cache.Save(conv))

	loaded, err := cache.Load(42)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, conv, loaded)
}

func TestCacheLoadAbsent(t *testing.T) {
	cache := newTestCache(t)

	conv, err := cache.Load(999)

	require.NoError(t, err)
	assert.Nil(t, conv)
}

func TestCacheFileLayout(t *testing.T) {
	cache := newTestCache(t)
	conv := &types.Conversation{
		TicketID: 42,
		Messages: []types.Message{userMsg("hello")},
	}
	require.NoError(t, cache.Save(conv))

	data, err := os.ReadFile(filepath.Join(cache.Dir(), "42.json"))
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "ticket_id")
	assert.Contains(t, raw, "conversation")
	assert.Contains(t, raw, "ignore")
}

func TestCacheIsIgnored(t *testing.T) {
	cache := newTestCache(t)
	require.NoError(t, cache.Save(&types.Conversation{TicketID: 1, Ignore: true}))
	require.NoError(t, cache.Save(&types.Conversation{TicketID: 2, Ignore: false}))

	assert.True(t, cache.IsIgnored(1))
	assert.False(t, cache.IsIgnored(2))
	assert.False(t, cache.IsIgnored(3))
}

func TestCacheTicketIDs(t *testing.T) {
	cache := newTestCache(t)
	for _, id := range []int{30, 10, 20} {
		require.NoError(t, cache.Save(&types.Conversation{TicketID: id}))
	}
	// Stray files are not ticket records.
	require.NoError(t, os.WriteFile(filepath.Join(cache.Dir(), "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(cache.Dir(), "abc.json"), []byte("{}"), 0644))

	ids, err := cache.TicketIDs()

	require.NoError(t, err)
	assert.Equal(t, []int{10, 20, 30}, ids)
}

func TestBackfillIgnoreFlags(t *testing.T) {
	cache := newTestCache(t)

	// Legacy record with no ignore field.
	legacy := `{"ticket_id": 1, "conversation": [{"speaker": "user", "text": "help"}]}`
	require.NoError(t, os.WriteFile(filepath.Join(cache.Dir(), "1.json"), []byte(legacy), 0644))
	// Current record, flag already present.
	require.NoError(t, cache.Save(&types.Conversation{TicketID: 2, Ignore: true}))
	// Malformed record is skipped, not fatal.
	require.NoError(t, os.WriteFile(filepath.Join(cache.Dir(), "3.json"), []byte("{broken"), 0644))

	checked, updated, err := cache.BackfillIgnoreFlags()
	require.NoError(t, err)
	assert.Equal(t, 2, checked)
	assert.Equal(t, 1, updated)

	conv, err := cache.Load(1)
	require.NoError(t, err)
	require.NotNil(t, conv)
	assert.False(t, conv.Ignore)
	assert.Equal(t, "help", conv.Messages[0].Text)

	// Second pass changes nothing.
	checked, updated, err = cache.BackfillIgnoreFlags()
	require.NoError(t, err)
	assert.Equal(t, 2, checked)
	assert.Equal(t, 0, updated)
}

func TestBackfillAutoIgnore(t *testing.T) {
	cache := newTestCache(t)

	require.NoError(t, cache.Save(&types.Conversation{
		TicketID: 1,
		Messages: []types.Message{
			userMsg("orders stopped syncing"),
			agentMsg("We wanted to check in since we haven’t heard back from you."),
		},
	}))
	require.NoError(t, cache.Save(&types.Conversation{
		TicketID: 2,
		Messages: []types.Message{agentMsg("Please reconnect the channel.")},
	}))
	// Already ignored stays ignored even though no phrase matches.
	require.NoError(t, cache.Save(&types.Conversation{
		TicketID: 3,
		Messages: []types.Message{userMsg("hello")},
		Ignore:   true,
	}))

	checked, ignored, err := cache.BackfillAutoIgnore()
	require.NoError(t, err)
	assert.Equal(t, 3, checked)
	assert.Equal(t, 1, ignored)

	assert.True(t, cache.IsIgnored(1))
	assert.False(t, cache.IsIgnored(2))
	assert.True(t, cache.IsIgnored(3))

	// Second pass finds nothing new.
	_, ignored, err = cache.BackfillAutoIgnore()
	require.NoError(t, err)
	assert.Equal(t, 0, ignored)
}
