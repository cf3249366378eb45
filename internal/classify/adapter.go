package classify

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/silolabs/sift/internal/types"
)

// Digest renders the catalog as one summary line per issue for the model:
// "id: category / short_description / root_cause | keywords | tickets".
// An empty catalog renders as the literal placeholder "<none>".
func Digest(issues []types.Issue) string {
	if len(issues) == 0 {
		return "<none>"
	}
	lines := make([]string, 0, len(issues))
	for i := range issues {
		issue := &issues[i]
		tickets := make([]string, len(issue.Tickets))
		for j, t := range issue.Tickets {
			tickets[j] = strconv.Itoa(t)
		}
		lines = append(lines, fmt.Sprintf("%s: %s / %s / %s | %s | %s",
			issue.IssueID,
			issue.Category,
			issue.ShortDescription,
			issue.RootCause,
			strings.Join(issue.Keywords, ", "),
			strings.Join(tickets, ", ")))
	}
	return strings.Join(lines, "\n")
}

// BuildPrompts assembles the system and user prompts for classifying a
// conversation against the current catalog.
func BuildPrompts(issues []types.Issue, conv *types.Conversation) (systemPrompt, userPrompt string, err error) {
	convJSON, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("serializing conversation %d for prompt: %w", conv.TicketID, err)
	}
	return SystemPrompt, fmt.Sprintf(userPromptTemplate, Digest(issues), convJSON), nil
}

// ParseClassification decodes raw model output into a classification
// record. It never fails: unparseable output degrades to a synthetic
// low-confidence record carrying the raw text in notes, so the merge
// engine always receives well-formed input.
func ParseClassification(raw string) *types.Classification {
	result := Parse[types.Classification](raw, "classification response")
	if !result.Success {
		slog.Warn("classification output was not valid JSON, using low-confidence fallback",
			"error", result.Error)
		return &types.Classification{
			IssueID:         "",
			Category:        "unknown",
			Keywords:        []string{},
			RootCause:       "",
			ResolutionSteps: []string{},
			Confidence:      0.0,
			Notes:           raw,
		}
	}

	cl := result.Data
	if err := cl.Validate(); err != nil {
		slog.Warn("classification output failed validation, using low-confidence fallback",
			"error", err)
		return &types.Classification{
			IssueID:         "",
			Category:        "unknown",
			Keywords:        []string{},
			RootCause:       "",
			ResolutionSteps: []string{},
			Confidence:      0.0,
			Notes:           raw,
		}
	}
	return &cl
}
