// Package pipeline drives the per-ticket processing loop: cache lookup,
// auto-ignore skip, classification, catalog merge, persist.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/silolabs/sift/internal/catalog"
	"github.com/silolabs/sift/internal/classify"
	"github.com/silolabs/sift/internal/conversation"
	"github.com/silolabs/sift/internal/freshdesk"
	"github.com/silolabs/sift/internal/history"
	"github.com/silolabs/sift/internal/types"
)

// TicketSource is the consumed ticket-source collaborator interface.
type TicketSource interface {
	FetchResolvedTicketIDs(ctx context.Context, maxPages int) ([]int, error)
	FetchTicket(ctx context.Context, ticketID int) (*freshdesk.Ticket, error)
}

// Options toggles per-run processing behavior.
type Options struct {
	Reprocess   bool // re-run classification on tickets already in the catalog
	Refresh     bool // re-fetch conversations even when cached
	PromptDebug bool // print prompts and raw output, persist nothing
	FetchBatch  int  // concurrent conversation fetches in FetchOnly (default 1)
}

// Summary reports what a processing run did.
type Summary struct {
	Processed      int
	SkippedIgnored int
	SkippedLinked  int
	FetchErrors    int
}

// Processor wires the collaborators together for a run. Processing is
// strictly sequential: one ticket at a time, catalog persisted after each
// successfully merged ticket so an interruption loses at most the ticket
// in flight.
type Processor struct {
	Cache      *conversation.Cache
	Catalog    *catalog.Catalog
	Source     TicketSource
	Classifier classify.Classifier
	History    *history.Store // optional
	Model      string         // recorded in history rows
	RunID      string
	Opts       Options
}

// New creates a processor with a fresh run identifier.
func New(cache *conversation.Cache, cat *catalog.Catalog, source TicketSource, classifier classify.Classifier, opts Options) *Processor {
	return &Processor{
		Cache:      cache,
		Catalog:    cat,
		Source:     source,
		Classifier: classifier,
		RunID:      uuid.NewString(),
		Opts:       opts,
	}
}

// loadOrFetch returns the conversation for a ticket, fetching and caching
// it when absent or when a refresh was requested.
func (p *Processor) loadOrFetch(ctx context.Context, ticketID int) (*types.Conversation, error) {
	if !p.Opts.Refresh {
		conv, err := p.Cache.Load(ticketID)
		if err != nil {
			return nil, err
		}
		if conv != nil {
			return conv, nil
		}
	}

	raw, err := p.Source.FetchTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	conv := p.Cache.Detector().Build(raw)
	if err := p.Cache.Save(conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// ProcessTickets runs the full intake loop over ticketIDs in the given
// order. Per-ticket fetch errors are logged and skipped; classification
// failures abort the run (the catalog was saved after the last good
// ticket, so nothing is lost).
func (p *Processor) ProcessTickets(ctx context.Context, ticketIDs []int) (*Summary, error) {
	summary := &Summary{}
	slog.Info("processing tickets", "run_id", p.RunID, "count", len(ticketIDs))

	for _, ticketID := range ticketIDs {
		if p.Cache.IsIgnored(ticketID) {
			slog.Debug("ticket is marked as ignored, skipping", "ticket", ticketID)
			summary.SkippedIgnored++
			continue
		}
		if p.Catalog.HasTicket(ticketID) && !p.Opts.Reprocess {
			slog.Debug("ticket already in catalog, skipping", "ticket", ticketID)
			summary.SkippedLinked++
			continue
		}

		conv, err := p.loadOrFetch(ctx, ticketID)
		if err != nil {
			slog.Warn("failed to fetch conversation, skipping ticket", "ticket", ticketID, "error", err)
			summary.FetchErrors++
			continue
		}
		if conv.Ignore {
			slog.Debug("conversation auto-ignored at build time, skipping", "ticket", ticketID)
			summary.SkippedIgnored++
			continue
		}

		if err := p.processConversation(ctx, conv); err != nil {
			return summary, err
		}
		summary.Processed++

		if !p.Opts.PromptDebug {
			if err := p.Catalog.Save(); err != nil {
				return summary, fmt.Errorf("persisting catalog after ticket %d: %w", conv.TicketID, err)
			}
		}
	}

	return summary, nil
}

// processConversation classifies one conversation and folds the result
// into the catalog.
func (p *Processor) processConversation(ctx context.Context, conv *types.Conversation) error {
	systemPrompt, userPrompt, err := classify.BuildPrompts(p.Catalog.Issues(), conv)
	if err != nil {
		return err
	}

	if p.Opts.PromptDebug {
		fmt.Printf("\n--- SYSTEM PROMPT ---\n%s\n", systemPrompt)
		fmt.Printf("\n--- USER PROMPT ---\n%s\n", userPrompt)
	}

	raw, err := p.Classifier.Classify(ctx, systemPrompt, userPrompt)
	if err != nil {
		return fmt.Errorf("classifying ticket %d: %w", conv.TicketID, err)
	}

	if p.Opts.PromptDebug {
		fmt.Printf("\n--- RAW MODEL RESPONSE ---\n%s\n", raw)
	}

	cl := classify.ParseClassification(raw)
	result := p.Catalog.Merge(cl, conv.TicketID)
	slog.Info("merged ticket",
		"ticket", conv.TicketID,
		"issue", result.IssueID,
		"action", result.Action,
		"confidence", cl.Confidence)

	if p.History != nil && !p.Opts.PromptDebug {
		rec := &history.Record{
			RunID:      p.RunID,
			TicketID:   conv.TicketID,
			IssueID:    result.IssueID,
			Action:     string(result.Action),
			Confidence: cl.Confidence,
			Model:      p.Model,
		}
		if err := p.History.RecordMerge(ctx, rec); err != nil {
			slog.Warn("failed to record merge history", "ticket", conv.TicketID, "error", err)
		}
	}
	return nil
}

// FetchReport summarizes a fetch-only run.
type FetchReport struct {
	Fetched  int
	Cached   int
	Errors   int
	Unlinked []int // cached, not ignored, not linked to any catalog issue
}

// FetchOnly populates the conversation cache without classifying, then
// reports which cached conversations are not yet linked to any issue.
// Fetches overlap up to Opts.FetchBatch at a time; the source's own rate
// limiting still spaces the actual API calls.
func (p *Processor) FetchOnly(ctx context.Context, ticketIDs []int) (*FetchReport, error) {
	report := &FetchReport{}
	var mu sync.Mutex

	batch := p.Opts.FetchBatch
	if batch < 1 {
		batch = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batch)

	for _, ticketID := range ticketIDs {
		if !p.Opts.Refresh {
			conv, err := p.Cache.Load(ticketID)
			if err == nil && conv != nil {
				report.Cached++
				continue
			}
		}
		g.Go(func() error {
			if _, err := p.loadOrFetch(gctx, ticketID); err != nil {
				slog.Warn("failed to fetch conversation", "ticket", ticketID, "error", err)
				mu.Lock()
				report.Errors++
				mu.Unlock()
				return nil
			}
			mu.Lock()
			report.Fetched++
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}

	cached, err := p.Cache.TicketIDs()
	if err != nil {
		return report, err
	}
	for _, id := range cached {
		if p.Cache.IsIgnored(id) || p.Catalog.HasTicket(id) {
			continue
		}
		report.Unlinked = append(report.Unlinked, id)
	}
	return report, nil
}
