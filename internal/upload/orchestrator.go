// Package upload runs the multi-step document upload: create the record if
// needed, presign, transfer the bytes, register them and trigger processing.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/dharsanguruparan/loandrop/internal/cache"
	"github.com/dharsanguruparan/loandrop/internal/facade"
	"github.com/dharsanguruparan/loandrop/internal/identity"
	"github.com/dharsanguruparan/loandrop/internal/model"
)

// Step names, in execution order.
const (
	StepCreate   = "create"
	StepPresign  = "presign"
	StepTransfer = "transfer"
	StepRegister = "register"
	StepProcess  = "process"
)

var (
	ErrInvalidRequest = errors.New("upload: application id and filename are required")
	// ErrTransferRejected is only returned in strict mode, when storage answers
	// the PUT with a non-2xx status.
	ErrTransferRejected = errors.New("upload: storage rejected the transfer")
)

// StepError reports which step failed. Steps before it have taken effect and
// are not rolled back.
type StepError struct {
	Step       string
	DocumentID string
	Err        error
}

func (e *StepError) Error() string {
	if e.DocumentID == "" {
		return fmt.Sprintf("upload %s: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("upload %s (document %s): %v", e.Step, e.DocumentID, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Request is one file to upload. An empty DocumentID creates a new custom
// document; otherwise the bytes are attached to the existing one.
type Request struct {
	File          io.Reader
	Size          int64
	Filename      string
	MimeType      string
	ApplicationID string
	DocumentID    string
}

type Result struct {
	DocumentID string `json:"documentId"`
	StorageKey string `json:"storageKey"`
	PutURL     string `json:"putUrl"`
}

// Invalidator drops cached reads after a mutation.
type Invalidator interface {
	Invalidate(ctx context.Context, keys ...cache.Key) error
}

type Orchestrator struct {
	docs     facade.DocumentService
	transfer Transferer
	cache    Invalidator
	strict   bool
	logger   *slog.Logger
}

type Option func(*Orchestrator)

// WithStrictTransfer makes a non-2xx PUT response abort the upload.
func WithStrictTransfer(strict bool) Option {
	return func(o *Orchestrator) { o.strict = strict }
}

func WithTransferer(t Transferer) Option {
	return func(o *Orchestrator) { o.transfer = t }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

func NewOrchestrator(docs facade.DocumentService, inv Invalidator, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		docs:     docs,
		transfer: NewHTTPTransferer(nil),
		cache:    inv,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Upload runs every step in order and stops at the first failure. It never
// retries and never rolls back: a document created before a later failure
// stays pending without a file.
func (o *Orchestrator) Upload(ctx context.Context, id identity.Identity, req Request) (Result, error) {
	if err := id.Validate(); err != nil {
		return Result{}, err
	}
	if req.ApplicationID == "" || req.Filename == "" {
		return Result{}, ErrInvalidRequest
	}
	log := o.logger.With("application_id", req.ApplicationID, "filename", req.Filename)

	docID := req.DocumentID
	if docID == "" {
		created, err := o.docs.CreateDocument(ctx, facade.CreateDocumentRequest{
			Kind:          model.KindCustom,
			ApplicationID: req.ApplicationID,
			OwnerUserID:   id.UserID,
			OrgName:       id.OrgSlug,
			Description:   "Uploaded document: " + req.Filename,
		})
		if err != nil {
			return Result{}, &StepError{Step: StepCreate, Err: err}
		}
		docID = created
		log.Info("document created", "document_id", docID)
	}
	log = log.With("document_id", docID)

	presigned, err := o.docs.GeneratePresignedUploadURL(ctx, facade.PresignRequest{
		ApplicationID: req.ApplicationID,
		OrgName:       id.OrgSlug,
		Filename:      req.Filename,
		MimeType:      req.MimeType,
	})
	if err != nil {
		return Result{}, &StepError{Step: StepPresign, DocumentID: docID, Err: err}
	}

	status, err := o.transfer.Put(ctx, presigned.PutURL, req.File, req.Size, req.MimeType)
	if err != nil {
		return Result{}, &StepError{Step: StepTransfer, DocumentID: docID, Err: err}
	}
	if status < 200 || status > 299 {
		if o.strict {
			return Result{}, &StepError{Step: StepTransfer, DocumentID: docID, Err: fmt.Errorf("%w: status %d", ErrTransferRejected, status)}
		}
		log.Warn("storage answered transfer with non-success status", "status", status)
	}

	err = o.docs.RegisterUpload(ctx, docID, facade.RegisterUploadRequest{
		Filename:      req.Filename,
		MimeType:      req.MimeType,
		ApplicationID: req.ApplicationID,
		OwnerUserID:   id.UserID,
		OrgName:       id.OrgSlug,
		StorageKey:    presigned.StorageKey,
	})
	if err != nil {
		return Result{}, &StepError{Step: StepRegister, DocumentID: docID, Err: err}
	}

	if err := o.docs.Process(ctx, docID); err != nil {
		return Result{}, &StepError{Step: StepProcess, DocumentID: docID, Err: err}
	}
	log.Info("upload complete, processing requested", "storage_key", presigned.StorageKey)

	if o.cache != nil {
		if err := o.cache.Invalidate(ctx,
			cache.DocumentKey(docID),
			cache.DownloadURLKey(docID),
			cache.ApplicationKey(req.ApplicationID),
			cache.DocumentListKey(req.ApplicationID),
		); err != nil {
			log.Warn("cache invalidation failed", "error", err)
		}
	}

	return Result{DocumentID: docID, StorageKey: presigned.StorageKey, PutURL: presigned.PutURL}, nil
}
