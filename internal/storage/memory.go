// Package storage holds document and application metadata for the reference
// backend. MemoryStore keeps everything in maps; the repository package
// provides the Postgres implementation of the same Store interface.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/dharsanguruparan/loandrop/internal/model"
)

var (
	// ErrNotFound is returned for unknown document or application ids.
	ErrNotFound = errors.New("storage: not found")
	// ErrConflict is returned when a write targets an id that already exists.
	ErrConflict = errors.New("storage: already exists")
)

// Upload describes registered bytes for a document.
type Upload struct {
	Filename   string
	MimeType   string
	StorageKey string
}

// Store is the metadata persistence used by the API and the worker.
type Store interface {
	CreateApplication(ctx context.Context, app *model.Application) error
	GetApplication(ctx context.Context, id string) (*model.Application, error)

	CreateDocument(ctx context.Context, doc *model.Document) error
	GetDocument(ctx context.Context, id string) (*model.Document, error)
	// ListByApplication returns documents in creation order.
	ListByApplication(ctx context.Context, applicationID string, limit, offset int) ([]model.Document, error)
	RegisterUpload(ctx context.Context, id string, up Upload) error
	MarkProcessing(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id string, metadata json.RawMessage) error
	MarkFailed(ctx context.Context, id string, reason string) error
}

// MemoryStore is a Store guarded by a RWMutex. Reads return copies.
type MemoryStore struct {
	mu           sync.RWMutex
	documents    map[string]*model.Document
	applications map[string]*model.Application
	now          func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore constructs a MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		documents:    make(map[string]*model.Document),
		applications: make(map[string]*model.Application),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryStore) CreateApplication(_ context.Context, app *model.Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.applications[app.ID]; ok {
		return ErrConflict
	}
	now := m.now()
	if app.Status == "" {
		app.Status = model.ApplicationInProgress
	}
	app.CreatedAt = now
	app.UpdatedAt = now
	rec := *app
	rec.Documents = nil
	m.applications[app.ID] = &rec
	return nil
}

// GetApplication returns the application with its document refs attached.
func (m *MemoryStore) GetApplication(_ context.Context, id string) (*model.Application, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.applications[id]
	if !ok {
		return nil, ErrNotFound
	}
	app := *rec
	app.Documents = []model.DocumentRef{}
	for _, doc := range m.sortedLocked(id) {
		app.Documents = append(app.Documents, model.DocumentRef{
			DocumentID: doc.ID,
			Kind:       doc.Kind,
			State:      doc.State,
		})
	}
	return &app, nil
}

func (m *MemoryStore) CreateDocument(_ context.Context, doc *model.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.documents[doc.ID]; ok {
		return ErrConflict
	}
	now := m.now()
	doc.State = model.StatePending
	doc.CreatedAt = now
	doc.UpdatedAt = now
	rec := *doc
	m.documents[doc.ID] = &rec
	return nil
}

func (m *MemoryStore) GetDocument(_ context.Context, id string) (*model.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.documents[id]
	if !ok {
		return nil, ErrNotFound
	}
	doc := *rec
	return &doc, nil
}

func (m *MemoryStore) ListByApplication(_ context.Context, applicationID string, limit, offset int) ([]model.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := m.sortedLocked(applicationID)
	if offset >= len(all) {
		return []model.Document{}, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	out := make([]model.Document, len(all))
	for i, doc := range all {
		out[i] = *doc
	}
	return out, nil
}

// RegisterUpload records the file; the document stays pending until processed.
func (m *MemoryStore) RegisterUpload(_ context.Context, id string, up Upload) error {
	return m.update(id, func(doc *model.Document) {
		doc.OriginalFilename = up.Filename
		doc.MimeType = up.MimeType
		doc.StorageKey = up.StorageKey
		doc.State = model.StatePending
		doc.RawMetadata = nil
		doc.FailureReason = ""
	})
}

func (m *MemoryStore) MarkProcessing(_ context.Context, id string) error {
	return m.update(id, func(doc *model.Document) {
		doc.State = model.StateProcessing
		doc.FailureReason = ""
	})
}

func (m *MemoryStore) MarkCompleted(_ context.Context, id string, metadata json.RawMessage) error {
	return m.update(id, func(doc *model.Document) {
		doc.State = model.StateCompleted
		doc.RawMetadata = append(json.RawMessage(nil), metadata...)
	})
}

func (m *MemoryStore) MarkFailed(_ context.Context, id string, reason string) error {
	return m.update(id, func(doc *model.Document) {
		doc.State = model.StateFailed
		doc.FailureReason = reason
	})
}

func (m *MemoryStore) update(id string, fn func(*model.Document)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.documents[id]
	if !ok {
		return ErrNotFound
	}
	fn(rec)
	rec.UpdatedAt = m.now()
	return nil
}

func (m *MemoryStore) sortedLocked(applicationID string) []*model.Document {
	var out []*model.Document
	for _, doc := range m.documents {
		if doc.ApplicationID == applicationID {
			out = append(out, doc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
