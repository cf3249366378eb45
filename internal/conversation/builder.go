package conversation

import (
	"regexp"
	"sort"
	"strings"

	"github.com/silolabs/sift/internal/freshdesk"
	"github.com/silolabs/sift/internal/types"
)

var (
	htmlTagRegex  = regexp.MustCompile(`<[^>]+>`)
	ctrlCharRegex = regexp.MustCompile(`[\r\x0b\x0c]`)
)

// cleanText strips HTML markup and control characters and trims whitespace.
// Helpdesk body_text fields frequently leak markup from the rich-text editor.
func cleanText(text string) string {
	text = htmlTagRegex.ReplaceAllString(text, "")
	text = ctrlCharRegex.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// Build converts a raw helpdesk ticket payload into the normalized
// conversation record: the ticket description first (as the user), then the
// thread entries ordered by creation time. The auto-ignore detector runs
// once at build time so automated closings are flagged before they can be
// classified.
func (d *Detector) Build(ticket *freshdesk.Ticket) *types.Conversation {
	var messages []types.Message

	if ticket.DescriptionText != "" {
		messages = append(messages, types.Message{
			Speaker: types.SpeakerUser,
			Text:    cleanText(ticket.DescriptionText),
		})
	}

	entries := make([]freshdesk.ConversationEntry, len(ticket.Conversations))
	copy(entries, ticket.Conversations)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})

	for _, entry := range entries {
		speaker := types.SpeakerAgent
		if entry.Incoming {
			speaker = types.SpeakerUser
		}
		messages = append(messages, types.Message{
			Speaker: speaker,
			Text:    cleanText(entry.BodyText),
			Private: entry.Private,
		})
	}

	return &types.Conversation{
		TicketID: ticket.ID,
		Messages: messages,
		Ignore:   d.ShouldAutoIgnore(messages),
	}
}

// Build converts a raw ticket payload using the default detector.
func Build(ticket *freshdesk.Ticket) *types.Conversation {
	return NewDetector(nil).Build(ticket)
}
