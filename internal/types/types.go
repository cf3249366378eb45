// Package types defines the shared data model for the sift clustering tool.
package types

import (
	"fmt"
	"regexp"
	"strings"
)

// Speaker identifies which side of a support conversation wrote a message.
const (
	SpeakerUser  = "user"
	SpeakerAgent = "agent"
)

// Message is a single utterance in a support conversation, chronological
// within Conversation.Messages.
type Message struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
	Private bool   `json:"private,omitempty"`
}

// Conversation is the normalized form of one helpdesk ticket. The on-disk
// JSON key for Messages is "conversation" to match the cache file layout
// consumed by the viewer tooling.
type Conversation struct {
	TicketID int       `json:"ticket_id"`
	Messages []Message `json:"conversation"`
	Ignore   bool      `json:"ignore"`
}

// LastMessage returns the final message of the conversation, or nil if empty.
func (c *Conversation) LastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return &c.Messages[len(c.Messages)-1]
}

// Issue is one deduplicated problem record in the catalog. A root issue
// carries an ID of the form ISSUE-0001; branches append 1-based counters
// scoped to their immediate parent (ISSUE-0001-2, ISSUE-0001-2-1, ...).
type Issue struct {
	IssueID          string   `json:"issue_id"`
	Category         string   `json:"category"`
	ShortDescription string   `json:"short_description"`
	Keywords         []string `json:"keywords"`
	RootCause        string   `json:"root_cause"`
	ResolutionSteps  []string `json:"resolution_steps"`
	Confidence       float64  `json:"confidence"`
	Notes            string   `json:"notes"`
	Tickets          []int    `json:"tickets"`
}

// rootIDRegex matches only root-form identifiers. Branch identifiers carry
// at least one extra dash-separated segment and must never feed the root
// counter scan.
var rootIDRegex = regexp.MustCompile(`^ISSUE-(\d+)$`)

// RootIDNumber parses the numeric suffix of a root-form issue ID.
// Returns (0, false) for branch IDs and anything else non-conforming.
func RootIDNumber(id string) (int, bool) {
	m := rootIDRegex.FindStringSubmatch(id)
	if m == nil {
		return 0, false
	}
	var n int
	if _, err := fmt.Sscanf(m[1], "%d", &n); err != nil {
		return 0, false
	}
	return n, true
}

// FormatRootID renders a root issue identifier from its sequence number.
func FormatRootID(n int) string {
	return fmt.Sprintf("ISSUE-%04d", n)
}

// IsBranchOf reports whether id names a branch in parent's family
// (a direct branch or a deeper descendant).
func IsBranchOf(id, parent string) bool {
	return strings.HasPrefix(id, parent+"-")
}

// HasTicket reports whether the issue already links ticketID.
func (i *Issue) HasTicket(ticketID int) bool {
	for _, t := range i.Tickets {
		if t == ticketID {
			return true
		}
	}
	return false
}

// LinkTicket appends ticketID to the issue's ticket list if not already
// present. The list is append-only and duplicate-free.
func (i *Issue) LinkTicket(ticketID int) {
	if !i.HasTicket(ticketID) {
		i.Tickets = append(i.Tickets, ticketID)
	}
}

// Classification is the structured result of one model call for one
// conversation. IssueID is empty when the model returned null (new issue).
type Classification struct {
	IssueID          string   `json:"issue_id"`
	Category         string   `json:"category"`
	ShortDescription string   `json:"short_description"`
	Keywords         []string `json:"keywords"`
	RootCause        string   `json:"root_cause"`
	ResolutionSteps  []string `json:"resolution_steps"`
	Confidence       float64  `json:"confidence"`
	Notes            string   `json:"notes"`
}

// Validate checks that the classification has sane field values.
func (c *Classification) Validate() error {
	if c.Confidence < 0.0 || c.Confidence > 1.0 {
		return fmt.Errorf("confidence must be between 0.0 and 1.0 (got %.2f)", c.Confidence)
	}
	return nil
}
