package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/loandrop/internal/model"
	pdfutil "github.com/dharsanguruparan/loandrop/internal/pdf"
	"github.com/dharsanguruparan/loandrop/internal/queue"
)

// Store is the slice of metadata persistence the worker needs.
type Store interface {
	GetDocument(ctx context.Context, id string) (*model.Document, error)
	MarkCompleted(ctx context.Context, id string, metadata json.RawMessage) error
	MarkFailed(ctx context.Context, id string, reason string) error
}

// Downloader fetches stored document bytes.
type Downloader interface {
	Download(ctx context.Context, key string) ([]byte, error)
}

// Metadata is stored as the document's raw metadata once processing succeeds.
type Metadata struct {
	SizeBytes int              `json:"sizeBytes"`
	MimeType  string           `json:"mimeType"`
	PDF       *pdfutil.Summary `json:"pdf,omitempty"`
}

// Processor is plugged into the asynq worker loop or the local pool.
type Processor struct {
	store  Store
	blobs  Downloader
	logger *slog.Logger
}

// NewProcessor constructs a worker processor.
func NewProcessor(store Store, blobs Downloader, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{store: store, blobs: blobs, logger: logger}
}

// Handler registers the process job handler.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.ProcessDocumentTask, p.handleProcess)
	return mux
}

func (p *Processor) handleProcess(ctx context.Context, task *asynq.Task) error {
	payload, err := queue.ParseProcessPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}
	if err := p.Process(ctx, payload.DocumentID); err != nil {
		// The document is already marked failed; retrying would not change it.
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}
	return nil
}

// Process analyses one document that the API already moved to processing.
// Documents in any other state are skipped. Any failure after the document is
// loaded is recorded on it as a failed state.
func (p *Processor) Process(ctx context.Context, documentID string) error {
	doc, err := p.store.GetDocument(ctx, documentID)
	if err != nil {
		return fmt.Errorf("load document %s: %w", documentID, err)
	}
	if doc.State != model.StateProcessing {
		p.logger.Info("skipping document not in processing", "document_id", documentID, "state", doc.State)
		return nil
	}
	failure := func(err error) error {
		p.logger.Error("processing failed", "document_id", documentID, "error", err)
		if markErr := p.store.MarkFailed(ctx, documentID, err.Error()); markErr != nil {
			p.logger.Error("mark failed", "document_id", documentID, "error", markErr)
		}
		return err
	}
	data, err := p.blobs.Download(ctx, doc.StorageKey)
	if err != nil {
		return failure(fmt.Errorf("download: %w", err))
	}
	meta, err := analyse(doc, data)
	if err != nil {
		return failure(err)
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return failure(fmt.Errorf("encode metadata: %w", err))
	}
	if err := p.store.MarkCompleted(ctx, documentID, raw); err != nil {
		return failure(err)
	}
	p.logger.Info("document processed",
		"document_id", documentID,
		"application_id", doc.ApplicationID,
		"bytes", len(data))
	return nil
}

func analyse(doc *model.Document, data []byte) (Metadata, error) {
	if len(data) == 0 {
		return Metadata{}, fmt.Errorf("empty object %s", doc.StorageKey)
	}
	meta := Metadata{SizeBytes: len(data), MimeType: doc.MimeType}
	mediaType, _, _ := mime.ParseMediaType(doc.MimeType)
	if mediaType == "application/pdf" {
		summary, err := pdfutil.Summarize(data)
		if err != nil {
			return Metadata{}, fmt.Errorf("read pdf: %w", err)
		}
		meta.PDF = &summary
	}
	return meta, nil
}
