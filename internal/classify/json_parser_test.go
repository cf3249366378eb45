package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type testPayload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestParseCleanJSON(t *testing.T) {
	result := Parse[testPayload](`{"name": "sync", "count": 3}`, "test")

	assert.True(t, result.Success)
	assert.Equal(t, "sync", result.Data.Name)
	assert.Equal(t, 3, result.Data.Count)
}

func TestParseWithCodeFences(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"json fence", "```json\n{\"name\": \"sync\", \"count\": 3}\n```"},
		{"plain fence", "```\n{\"name\": \"sync\", \"count\": 3}\n```"},
		{"fence with surrounding prose", "Here is the result:\n```json\n{\"name\": \"sync\", \"count\": 3}\n```\nLet me know!"},
		{"single backticks", "`{\"name\": \"sync\", \"count\": 3}`"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Parse[testPayload](tt.input, "test")
			assert.True(t, result.Success, "error: %s", result.Error)
			assert.Equal(t, "sync", result.Data.Name)
		})
	}
}

func TestParseWithTrailingCommas(t *testing.T) {
	result := Parse[testPayload]("{\"name\": \"sync\", \"count\": 3,}", "test")

	assert.True(t, result.Success, "error: %s", result.Error)
	assert.Equal(t, 3, result.Data.Count)
}

func TestParseExtractsObjectFromProse(t *testing.T) {
	input := `Based on the conversation, my answer is {"name": "sync", "count": 3} as discussed.`

	result := Parse[testPayload](input, "test")

	assert.True(t, result.Success, "error: %s", result.Error)
	assert.Equal(t, "sync", result.Data.Name)
}

func TestParseFailure(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"whitespace only", "   \n  "},
		{"prose without json", "I could not classify this conversation."},
		{"unclosed object", `{"name": "sync"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Parse[testPayload](tt.input, "test")
			assert.False(t, result.Success)
			assert.NotEmpty(t, result.Error)
			assert.Equal(t, tt.input, result.OriginalText)
		})
	}
}

func TestParseErrorCarriesContext(t *testing.T) {
	result := Parse[testPayload]("not json", "classification response")

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "classification response")
}
