package conversation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silolabs/sift/internal/freshdesk"
	"github.com/silolabs/sift/internal/types"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "hello", "hello"},
		{"html tags", "<div>hello <b>world</b></div>", "hello world"},
		{"carriage returns", "line one\r\nline two", "line one\nline two"},
		{"vertical tab and form feed", "a\x0bb\x0cc", "abc"},
		{"surrounding whitespace", "  spaced out \n", "spaced out"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanText(tt.input))
		})
	}
}

func TestBuildOrdersEntriesByCreationTime(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ticket := &freshdesk.Ticket{
		ID:              42,
		DescriptionText: "Orders stopped syncing to the marketplace.",
		Conversations: []freshdesk.ConversationEntry{
			{BodyText: "That fixed it, thanks!", Incoming: true, CreatedAt: base.Add(2 * time.Hour)},
			{BodyText: "Please reconnect the channel.", Incoming: false, CreatedAt: base.Add(time.Hour)},
			{BodyText: "Still broken this morning.", Incoming: true, CreatedAt: base},
		},
	}

	conv := Build(ticket)

	require.Equal(t, 42, conv.TicketID)
	require.Len(t, conv.Messages, 4)
	assert.Equal(t, types.SpeakerUser, conv.Messages[0].Speaker)
	assert.Equal(t, "Orders stopped syncing to the marketplace.", conv.Messages[0].Text)
	assert.Equal(t, "Still broken this morning.", conv.Messages[1].Text)
	assert.Equal(t, "Please reconnect the channel.", conv.Messages[2].Text)
	assert.Equal(t, types.SpeakerAgent, conv.Messages[2].Speaker)
	assert.Equal(t, "That fixed it, thanks!", conv.Messages[3].Text)
	assert.False(t, conv.Ignore)
}

func TestBuildStripsHTMLFromEntries(t *testing.T) {
	ticket := &freshdesk.Ticket{
		ID: 7,
		Conversations: []freshdesk.ConversationEntry{
			{BodyText: "<p>Please <b>reconnect</b> the channel.</p>", Incoming: false},
		},
	}

	conv := Build(ticket)

	require.Len(t, conv.Messages, 1)
	assert.Equal(t, "Please reconnect the channel.", conv.Messages[0].Text)
}

func TestBuildSkipsEmptyDescription(t *testing.T) {
	ticket := &freshdesk.Ticket{
		ID: 7,
		Conversations: []freshdesk.ConversationEntry{
			{BodyText: "hello", Incoming: true},
		},
	}

	conv := Build(ticket)

	require.Len(t, conv.Messages, 1)
	assert.Equal(t, types.SpeakerUser, conv.Messages[0].Speaker)
}

func TestBuildPreservesPrivateFlag(t *testing.T) {
	ticket := &freshdesk.Ticket{
		ID: 7,
		Conversations: []freshdesk.ConversationEntry{
			{BodyText: "internal note", Incoming: false, Private: true},
		},
	}

	conv := Build(ticket)

	require.Len(t, conv.Messages, 1)
	assert.True(t, conv.Messages[0].Private)
}

func TestBuildFlagsAutomatedClosing(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ticket := &freshdesk.Ticket{
		ID:              7,
		DescriptionText: "Orders stopped syncing.",
		Conversations: []freshdesk.ConversationEntry{
			{BodyText: "We wanted to check in since we haven’t heard back from you.", Incoming: false, CreatedAt: base},
		},
	}

	conv := Build(ticket)

	assert.True(t, conv.Ignore)
}
