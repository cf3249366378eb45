package conversation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silolabs/sift/internal/types"
)

func agentMsg(text string) types.Message {
	return types.Message{Speaker: types.SpeakerAgent, Text: text}
}

func userMsg(text string) types.Message {
	return types.Message{Speaker: types.SpeakerUser, Text: text}
}

func TestNormalizeApostrophes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"right single quote", "haven’t", "haven't"},
		{"left single quote", "haven‘t", "haven't"},
		{"modifier letter apostrophe", "havenʼt", "haven't"},
		{"prime", "haven′t", "haven't"},
		{"already straight", "haven't", "haven't"},
		{"mixed variants", "we’ve ‘quoted’ it", "we've 'quoted' it"},
		{"no apostrophes", "plain text", "plain text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeApostrophes(tt.input))
		})
	}
}

func TestShouldAutoIgnore(t *testing.T) {
	tests := []struct {
		name     string
		messages []types.Message
		want     bool
	}{
		{
			name:     "empty conversation",
			messages: nil,
			want:     false,
		},
		{
			name: "checkin closing from agent",
			messages: []types.Message{
				userMsg("my orders stopped syncing"),
				agentMsg("We wanted to check in since we haven't heard back from you."),
			},
			want: true,
		},
		{
			name: "checkin closing with curly apostrophe",
			messages: []types.Message{
				userMsg("my orders stopped syncing"),
				agentMsg("We wanted to check in since we haven’t heard back from you."),
			},
			want: true,
		},
		{
			name: "merged closing",
			messages: []types.Message{
				agentMsg("This ticket is closed and merged into another ticket."),
			},
			want: true,
		},
		{
			name: "phrase embedded in longer message",
			messages: []types.Message{
				agentMsg("Hi! We wanted to check in since we haven't heard back from you. Let us know."),
			},
			want: true,
		},
		{
			name: "phrase in earlier message only",
			messages: []types.Message{
				agentMsg("We wanted to check in since we haven't heard back from you."),
				userMsg("sorry, still broken"),
			},
			want: false,
		},
		{
			name: "last message from user matches phrase",
			messages: []types.Message{
				userMsg("This ticket is closed and merged"),
			},
			want: false,
		},
		{
			name: "case differs",
			messages: []types.Message{
				agentMsg("we wanted to check in since we haven't heard back from you"),
			},
			want: false,
		},
		{
			name: "substantive agent reply",
			messages: []types.Message{
				userMsg("my orders stopped syncing"),
				agentMsg("Please reconnect the sales channel under Settings."),
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldAutoIgnore(tt.messages))
		})
	}
}

func TestDetectorCustomPhrases(t *testing.T) {
	d := NewDetector([]string{"Out of office"})

	assert.True(t, d.ShouldAutoIgnore([]types.Message{agentMsg("Out of office until Monday")}))
	assert.False(t, d.ShouldAutoIgnore([]types.Message{agentMsg("This ticket is closed and merged")}))
}

func TestLoadPhrases(t *testing.T) {
	t.Run("empty path returns defaults", func(t *testing.T) {
		phrases, err := LoadPhrases("")
		require.NoError(t, err)
		assert.Equal(t, defaultAutoIgnorePhrases, phrases)
	})

	t.Run("valid file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "phrases.yaml")
		require.NoError(t, os.WriteFile(path, []byte("phrases:\n  - Out of office\n  - Auto-reply\n"), 0644))

		phrases, err := LoadPhrases(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"Out of office", "Auto-reply"}, phrases)
	})

	t.Run("file with no phrases", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "phrases.yaml")
		require.NoError(t, os.WriteFile(path, []byte("phrases: []\n"), 0644))

		_, err := LoadPhrases(path)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadPhrases(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})
}
