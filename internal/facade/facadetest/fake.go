// Package facadetest provides an in-memory DocumentService and
// ApplicationService that records every call, for tests.
package facadetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/dharsanguruparan/loandrop/internal/facade"
	"github.com/dharsanguruparan/loandrop/internal/model"
)

type Fake struct {
	mu    sync.Mutex
	calls []string
	seq   int
	order []string

	Documents    map[string]*model.Document
	Applications map[string]*model.Application
	// PutURL is returned by GeneratePresignedUploadURL.
	PutURL string
	// Fail makes the named operation return the error.
	Fail map[string]error
	// GetDocumentFunc, when set, replaces the stored lookup.
	GetDocumentFunc func(ctx context.Context, id string) (*model.Document, error)

	LastPage facade.Page
}

func New() *Fake {
	return &Fake{
		Documents:    make(map[string]*model.Document),
		Applications: make(map[string]*model.Application),
		PutURL:       "http://storage.invalid/put",
		Fail:         make(map[string]error),
	}
}

var (
	_ facade.DocumentService    = (*Fake)(nil)
	_ facade.ApplicationService = (*Fake)(nil)
)

// Calls returns the operation names in call order.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Count returns how many times op was called.
func (f *Fake) Count(op string) int {
	n := 0
	for _, c := range f.Calls() {
		if c == op {
			n++
		}
	}
	return n
}

// AddDocument stores a copy of doc.
func (f *Fake) AddDocument(doc model.Document) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.put(&doc)
}

func (f *Fake) put(doc *model.Document) {
	if _, ok := f.Documents[doc.ID]; !ok {
		f.order = append(f.order, doc.ID)
	}
	f.Documents[doc.ID] = doc
}

// Record appends an operation performed outside the fake, so tests can assert
// ordering across collaborators.
func (f *Fake) Record(op string) {
	f.record(op)
}

func (f *Fake) record(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
	return f.Fail[op]
}

func (f *Fake) CreateDocument(_ context.Context, req facade.CreateDocumentRequest) (string, error) {
	if err := f.record("create"); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	id := fmt.Sprintf("doc-%d", f.seq)
	f.put(&model.Document{
		ID:            id,
		ApplicationID: req.ApplicationID,
		OwnerUserID:   req.OwnerUserID,
		OrgName:       req.OrgName,
		Kind:          req.Kind,
		Description:   req.Description,
		State:         model.StatePending,
	})
	return id, nil
}

func (f *Fake) GeneratePresignedUploadURL(_ context.Context, req facade.PresignRequest) (facade.PresignedUpload, error) {
	if err := f.record("presign"); err != nil {
		return facade.PresignedUpload{}, err
	}
	return facade.PresignedUpload{
		PutURL:     f.PutURL,
		StorageKey: req.OrgName + "/" + req.ApplicationID + "/" + req.Filename,
	}, nil
}

func (f *Fake) RegisterUpload(_ context.Context, documentID string, req facade.RegisterUploadRequest) error {
	if err := f.record("register"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.Documents[documentID]
	if !ok {
		return &facade.StatusError{Op: "register upload", StatusCode: 404}
	}
	doc.OriginalFilename = req.Filename
	doc.MimeType = req.MimeType
	doc.StorageKey = req.StorageKey
	return nil
}

func (f *Fake) Process(_ context.Context, documentID string) error {
	if err := f.record("process"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if doc, ok := f.Documents[documentID]; ok {
		doc.State = model.StateProcessing
	}
	return nil
}

func (f *Fake) GetDocument(ctx context.Context, documentID string) (*model.Document, error) {
	if err := f.record("get"); err != nil {
		return nil, err
	}
	if f.GetDocumentFunc != nil {
		return f.GetDocumentFunc(ctx, documentID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.Documents[documentID]
	if !ok {
		return nil, &facade.StatusError{Op: "get document", StatusCode: 404}
	}
	cp := *doc
	return &cp, nil
}

func (f *Fake) GenerateDownloadURL(_ context.Context, documentID string) (string, error) {
	if err := f.record("download-url"); err != nil {
		return "", err
	}
	return "http://storage.invalid/get/" + documentID, nil
}

func (f *Fake) ListDocumentsByParent(_ context.Context, parentID string, page facade.Page) ([]model.Document, error) {
	if err := f.record("list"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LastPage = page
	var out []model.Document
	for _, id := range f.order {
		if doc := f.Documents[id]; doc != nil && doc.ApplicationID == parentID {
			out = append(out, *doc)
		}
	}
	return out, nil
}

func (f *Fake) GetApplication(_ context.Context, applicationID string) (*model.Application, error) {
	if err := f.record("application"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	app, ok := f.Applications[applicationID]
	if !ok {
		return nil, &facade.StatusError{Op: "get application", StatusCode: 404}
	}
	cp := *app
	return &cp, nil
}
