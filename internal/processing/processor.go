// Package processing runs document processing in-process on a small pool of
// goroutines, for stacks without the asynq worker.
package processing

import (
	"context"
	"errors"
	"log/slog"
)

// ErrQueueFull is returned by Dispatch when every slot in the buffer is taken.
var ErrQueueFull = errors.New("processing queue full")

// Handler processes one document.
type Handler func(ctx context.Context, documentID string) error

// Job represents background processing work.
type Job struct {
	DocumentID string
}

// Pool consumes Jobs with a fixed number of workers.
type Pool struct {
	handle  Handler
	queue   chan Job
	workers int
	logger  *slog.Logger
}

// New builds a Pool with queue capacity tied to worker count.
func New(handle Handler, workers int, logger *slog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		handle:  handle,
		queue:   make(chan Job, workers*4),
		workers: workers,
		logger:  logger,
	}
}

// Start launches worker goroutines that exit when ctx is cancelled.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		go p.worker(ctx)
	}
}

// Dispatch queues a document without blocking.
func (p *Pool) Dispatch(ctx context.Context, documentID string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case p.queue <- Job{DocumentID: documentID}:
		return nil
	default:
		p.logger.Warn("processing queue full, rejecting job", "document_id", documentID)
		return ErrQueueFull
	}
}

func (p *Pool) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-p.queue:
			if err := p.handle(ctx, job.DocumentID); err != nil {
				p.logger.Error("process document", "document_id", job.DocumentID, "error", err)
			}
		}
	}
}
