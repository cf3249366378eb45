// Package classify builds classification requests from the issue catalog
// and a conversation, calls the language model, and parses the structured
// result, falling back to a synthetic low-confidence record when the model
// returns something unparseable.
package classify

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/sync/semaphore"
)

// Model tiers. Sonnet is the default: classification against a growing
// catalog needs the reasoning headroom. Haiku is available for cheap runs
// over already-clustered backlogs.
const (
	ModelSonnet = "claude-sonnet-4-5-20250929"
	ModelHaiku  = "claude-3-5-haiku-20241022"
)

// DefaultModel is the model used when none is configured.
const DefaultModel = ModelSonnet

// AvailableModels lists the model identifiers the CLI offers.
var AvailableModels = []string{ModelSonnet, ModelHaiku}

// defaultMaxTokens bounds the classification response. The schema is a
// single flat JSON object; 2048 tokens is generous.
const defaultMaxTokens = 2048

// Classifier is the classification collaborator interface: opaque prompts
// in, raw model text out.
type Classifier interface {
	Classify(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ClientConfig holds model client configuration.
type ClientConfig struct {
	APIKey    string // Anthropic API key; falls back to ANTHROPIC_API_KEY
	Model     string // Model identifier (default DefaultModel)
	MaxTokens int    // Response token cap (default 2048)
	Retry     RetryConfig
}

// Client calls the Anthropic API with bounded retry.
type Client struct {
	client    *anthropic.Client
	model     string
	maxTokens int
	retry     RetryConfig
	sem       *semaphore.Weighted
}

// NewClient creates a model client. The API key must be present in config
// or the environment; missing credentials fail here, before any ticket is
// touched.
func NewClient(cfg ClientConfig) (*Client, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
		}
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	retry := cfg.Retry
	if retry.MaxRetries == 0 {
		retry = DefaultRetryConfig()
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	var sem *semaphore.Weighted
	if retry.MaxConcurrentCalls > 0 {
		sem = semaphore.NewWeighted(int64(retry.MaxConcurrentCalls))
	}

	return &Client{
		client:    &client,
		model:     model,
		maxTokens: maxTokens,
		retry:     retry,
		sem:       sem,
	}, nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// Classify sends the system and user prompts to the model and returns the
// raw response text.
func (c *Client) Classify(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	startTime := time.Now()

	var response *anthropic.Message
	err := c.retryWithBackoff(ctx, "classification", func(attemptCtx context.Context) error {
		resp, apiErr := c.client.Messages.New(attemptCtx, anthropic.MessageNewParams{
			Model:     anthropic.Model(c.model),
			MaxTokens: int64(c.maxTokens),
			System: []anthropic.TextBlockParam{
				{Text: systemPrompt},
			},
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
			},
		})
		if apiErr != nil {
			return apiErr
		}
		response = resp
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API call failed: %w", err)
	}

	var responseText string
	for _, block := range response.Content {
		if block.Type == "text" {
			responseText += block.Text
		}
	}

	slog.Debug("classification call complete",
		"model", c.model,
		"input_tokens", response.Usage.InputTokens,
		"output_tokens", response.Usage.OutputTokens,
		"duration", time.Since(startTime))

	return responseText, nil
}
