// Package freshdesk is the ticket-source collaborator: a rate-limited,
// retrying client for the Freshdesk v2 ticket API.
package freshdesk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// MinInterval is the minimum spacing between API calls. Freshdesk allows
// 20 requests per minute on the search endpoints; 3.2s leaves a cushion.
const MinInterval = 3200 * time.Millisecond

// defaultSearchQuery selects resolved (status 4) and closed (status 5)
// problem tickets.
const defaultSearchQuery = "type:'Problem' AND (status:4 OR status:5)"

// Ticket is the raw helpdesk payload for one ticket, including its
// conversation thread when fetched with include=conversations.
type Ticket struct {
	ID              int                 `json:"id"`
	DescriptionText string              `json:"description_text"`
	Conversations   []ConversationEntry `json:"conversations"`
}

// ConversationEntry is one reply or note in a ticket's thread.
type ConversationEntry struct {
	BodyText  string    `json:"body_text"`
	Incoming  bool      `json:"incoming"`
	Private   bool      `json:"private"`
	CreatedAt time.Time `json:"created_at"`
}

type searchResponse struct {
	Total   int            `json:"total"`
	Results []searchResult `json:"results"`
}

type searchResult struct {
	ID        int    `json:"id"`
	UpdatedAt string `json:"updated_at"`
}

// Config holds Freshdesk client configuration.
type Config struct {
	Domain string // Freshdesk subdomain, e.g. "acme" for acme.freshdesk.com
	APIKey string // API key; sent as basic-auth username with password "X"

	// BaseURL overrides the https://<domain>.freshdesk.com/api/v2 base.
	// Used by tests; leave empty in production.
	BaseURL string

	// SearchQuery overrides the resolved-problem-ticket search query.
	SearchQuery string

	MaxRetries     int           // Attempts per request (default 5)
	InitialBackoff time.Duration // First retry delay (default 1s)
	MaxBackoff     time.Duration // Backoff cap (default 30s)
	MinInterval    time.Duration // Inter-call spacing (default MinInterval)

	HTTPClient *http.Client
}

// Client talks to the Freshdesk API. All calls share one rate limiter so
// the inter-call spacing holds across endpoints.
type Client struct {
	baseURL     string
	apiKey      string
	searchQuery string

	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration

	limiter *rate.Limiter
	http    *http.Client
}

// New creates a Freshdesk client. Domain and APIKey are required unless a
// BaseURL override is provided.
func New(cfg Config) (*Client, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		if cfg.Domain == "" {
			return nil, fmt.Errorf("freshdesk domain is required")
		}
		baseURL = fmt.Sprintf("https://%s.freshdesk.com/api/v2", cfg.Domain)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("freshdesk API key is required")
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 5
	}
	initialBackoff := cfg.InitialBackoff
	if initialBackoff <= 0 {
		initialBackoff = 1 * time.Second
	}
	maxBackoff := cfg.MaxBackoff
	if maxBackoff <= 0 {
		maxBackoff = 30 * time.Second
	}
	minInterval := cfg.MinInterval
	if minInterval <= 0 {
		minInterval = MinInterval
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	searchQuery := cfg.SearchQuery
	if searchQuery == "" {
		searchQuery = defaultSearchQuery
	}

	return &Client{
		baseURL:        baseURL,
		apiKey:         cfg.APIKey,
		searchQuery:    searchQuery,
		maxRetries:     maxRetries,
		initialBackoff: initialBackoff,
		maxBackoff:     maxBackoff,
		limiter:        rate.NewLimiter(rate.Every(minInterval), 1),
		http:           httpClient,
	}, nil
}

// getJSON fetches a URL and decodes the JSON response, retrying transient
// failures with exponential backoff. A 429 response sleeps for the
// server-specified Retry-After duration before the next attempt instead of
// the backoff delay.
func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	var lastErr error
	backoff := c.initialBackoff

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			slog.Debug("retrying freshdesk request", "url", rawURL, "attempt", attempt+1, "backoff", backoff)
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("waiting for rate limiter: %w", err)
		}

		status, retryHdr, body, err := c.doRequest(ctx, rawURL)
		if err == nil {
			switch {
			case status == http.StatusOK:
				if err := json.Unmarshal(body, out); err != nil {
					return fmt.Errorf("parsing freshdesk response: %w", err)
				}
				return nil

			case status == http.StatusTooManyRequests:
				// Server-specified wait, distinct from the backoff path.
				wait := retryAfter(retryHdr)
				slog.Warn("freshdesk rate limit hit", "retry_after", wait)
				if err := sleepCtx(ctx, wait); err != nil {
					return err
				}
				lastErr = fmt.Errorf("freshdesk rate limited (429)")
				continue

			case status >= 500:
				lastErr = fmt.Errorf("freshdesk server error: status %d", status)

			default:
				return fmt.Errorf("freshdesk request failed: status %d: %s", status, truncate(string(body), 200))
			}
		} else {
			lastErr = err
		}

		if attempt == c.maxRetries-1 {
			break
		}
		if err := sleepCtx(ctx, backoff); err != nil {
			return err
		}
		backoff *= 2
		if backoff > c.maxBackoff {
			backoff = c.maxBackoff
		}
	}

	return fmt.Errorf("freshdesk request failed after %d attempts: %w", c.maxRetries, lastErr)
}

func (c *Client) doRequest(ctx context.Context, rawURL string) (status int, retryAfterHdr string, body []byte, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, "", nil, fmt.Errorf("building freshdesk request: %w", err)
	}
	// Freshdesk basic auth: API key as username, "X" as password.
	req.SetBasicAuth(c.apiKey, "X")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, "", nil, fmt.Errorf("freshdesk request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, "", nil, fmt.Errorf("reading freshdesk response: %w", err)
	}
	return resp.StatusCode, resp.Header.Get("Retry-After"), body, nil
}

// retryAfter parses a Retry-After header in seconds, defaulting to 60.
func retryAfter(header string) time.Duration {
	if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 60 * time.Second
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("canceled during wait: %w", ctx.Err())
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func (c *Client) searchURL(page int) string {
	return fmt.Sprintf("%s/search/tickets?query=%%22%s%%22&page=%d",
		c.baseURL, url.QueryEscape(c.searchQuery), page)
}

// FetchResolvedTicketIDs returns resolved/closed problem ticket IDs from up
// to maxPages of search results, sorted ascending by last update so older
// tickets seed the catalog first. Pagination stops at the first empty page.
func (c *Client) FetchResolvedTicketIDs(ctx context.Context, maxPages int) ([]int, error) {
	type stamped struct {
		updatedAt time.Time
		id        int
	}
	var tickets []stamped

	for page := 1; page <= maxPages; page++ {
		var resp searchResponse
		if err := c.getJSON(ctx, c.searchURL(page), &resp); err != nil {
			return nil, fmt.Errorf("searching tickets (page %d): %w", page, err)
		}
		if len(resp.Results) == 0 {
			break
		}
		for _, r := range resp.Results {
			ts, err := time.Parse("2006-01-02T15:04:05Z", r.UpdatedAt)
			if err != nil {
				ts = time.Time{}
			}
			tickets = append(tickets, stamped{updatedAt: ts, id: r.ID})
		}
	}

	sort.SliceStable(tickets, func(i, j int) bool {
		return tickets[i].updatedAt.Before(tickets[j].updatedAt)
	})

	ids := make([]int, len(tickets))
	for i, t := range tickets {
		ids[i] = t.id
	}
	return ids, nil
}

// FetchTicket retrieves a full ticket with its conversation thread.
func (c *Client) FetchTicket(ctx context.Context, ticketID int) (*Ticket, error) {
	u := fmt.Sprintf("%s/tickets/%d?include=conversations", c.baseURL, ticketID)
	var ticket Ticket
	if err := c.getJSON(ctx, u, &ticket); err != nil {
		return nil, fmt.Errorf("fetching ticket %d: %w", ticketID, err)
	}
	return &ticket, nil
}
