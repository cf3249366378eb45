package conversation

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/silolabs/sift/internal/types"
)

// defaultAutoIgnorePhrases are boilerplate closing messages the helpdesk
// appends automatically. A conversation ending on one of these carries no
// diagnostic signal and must never reach the classifier.
var defaultAutoIgnorePhrases = []string{
	"We wanted to check in since we haven't heard back from you",
	"This ticket is closed and merged",
}

// apostropheReplacer collapses typographic apostrophe variants to the
// straight form so phrase matching is stable across helpdesk encodings:
// right single quote, left single quote, modifier letter apostrophe, prime.
var apostropheReplacer = strings.NewReplacer(
	"’", "'",
	"‘", "'",
	"ʼ", "'",
	"′", "'",
)

// NormalizeApostrophes rewrites curly apostrophe variants to straight quotes.
func NormalizeApostrophes(text string) string {
	return apostropheReplacer.Replace(text)
}

// Detector decides whether a conversation is an automated, non-substantive
// exchange that should be suppressed before classification.
type Detector struct {
	phrases []string
}

// NewDetector builds a detector over the given phrase list. A nil or empty
// list falls back to the built-in defaults.
func NewDetector(phrases []string) *Detector {
	if len(phrases) == 0 {
		phrases = defaultAutoIgnorePhrases
	}
	return &Detector{phrases: phrases}
}

// ShouldAutoIgnore reports whether the conversation ends with an automated
// agent message. Matching is an exact, case-sensitive substring check after
// apostrophe normalization; no fuzzy matching.
func (d *Detector) ShouldAutoIgnore(messages []types.Message) bool {
	if len(messages) == 0 {
		return false
	}
	last := messages[len(messages)-1]
	if last.Speaker != types.SpeakerAgent {
		return false
	}
	text := NormalizeApostrophes(last.Text)
	for _, phrase := range d.phrases {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}

// ShouldAutoIgnore applies the default detector.
func ShouldAutoIgnore(messages []types.Message) bool {
	return NewDetector(nil).ShouldAutoIgnore(messages)
}

// phraseFile is the YAML shape of an auto-ignore phrase override file.
type phraseFile struct {
	Phrases []string `yaml:"phrases"`
}

// LoadPhrases reads an auto-ignore phrase list from a YAML file.
// An empty path returns the built-in defaults.
func LoadPhrases(path string) ([]string, error) {
	if path == "" {
		return defaultAutoIgnorePhrases, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading auto-ignore phrase file: %w", err)
	}
	var pf phraseFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parsing auto-ignore phrase file %s: %w", path, err)
	}
	if len(pf.Phrases) == 0 {
		return nil, fmt.Errorf("auto-ignore phrase file %s contains no phrases", path)
	}
	return pf.Phrases, nil
}
