// Package poller watches a document until its processing finishes.
package poller

import (
	"context"
	"log/slog"
	"time"

	"github.com/dharsanguruparan/loandrop/internal/cache"
	"github.com/dharsanguruparan/loandrop/internal/facade"
	"github.com/dharsanguruparan/loandrop/internal/model"
)

// DefaultInterval is the delay between fetches while a document is processing.
const DefaultInterval = 2000 * time.Millisecond

// Update is one poll result. Exactly one of Document and Err is set.
type Update struct {
	Document *model.Document
	Err      error
}

type Invalidator interface {
	Invalidate(ctx context.Context, keys ...cache.Key) error
}

type Poller struct {
	docs     facade.DocumentService
	cache    Invalidator
	interval time.Duration
	logger   *slog.Logger
}

func New(docs facade.DocumentService, inv Invalidator, interval time.Duration, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{docs: docs, cache: inv, interval: interval, logger: logger}
}

// Subscribe fetches the document now and again every interval for as long as
// the last observed state is processing. The channel is closed once a
// non-processing state is observed or ctx is done. A failed fetch is sent as
// an Update with Err and retried on the next tick; it does not change the
// last observed state.
//
// Each subscription keeps its own state. When one sees processing turn into
// completed it invalidates the parent application exactly once.
func (p *Poller) Subscribe(ctx context.Context, documentID string) <-chan Update {
	out := make(chan Update, 1)
	go p.run(ctx, documentID, out)
	return out
}

func (p *Poller) run(ctx context.Context, documentID string, out chan<- Update) {
	defer close(out)
	log := p.logger.With("document_id", documentID)

	var last model.ProcessingState
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		doc, err := p.docs.GetDocument(ctx, documentID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn("status poll failed", "error", err)
			if !send(ctx, out, Update{Err: err}) {
				return
			}
			timer.Reset(p.interval)
			continue
		}

		if last == model.StateProcessing && doc.State != model.StateProcessing {
			p.transitioned(ctx, doc)
		}
		last = doc.State
		if !send(ctx, out, Update{Document: doc}) {
			return
		}
		if last != model.StateProcessing {
			return
		}
		timer.Reset(p.interval)
	}
}

func (p *Poller) transitioned(ctx context.Context, doc *model.Document) {
	if p.cache == nil {
		return
	}
	keys := []cache.Key{cache.DocumentKey(doc.ID), cache.DocumentListKey(doc.ApplicationID)}
	if doc.State == model.StateCompleted {
		keys = append(keys, cache.ApplicationKey(doc.ApplicationID))
	}
	if err := p.cache.Invalidate(ctx, keys...); err != nil {
		p.logger.Warn("cache invalidation failed", "document_id", doc.ID, "error", err)
		return
	}
	p.logger.Info("document processing finished", "document_id", doc.ID, "application_id", doc.ApplicationID, "state", doc.State)
}

func send(ctx context.Context, out chan<- Update, u Update) bool {
	select {
	case out <- u:
		return true
	case <-ctx.Done():
		return false
	}
}
