package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/loandrop/internal/model"
)

func newTestStore() *MemoryStore {
	s := NewMemoryStore()
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return s
}

func TestDocumentLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	require.NoError(t, s.CreateApplication(ctx, &model.Application{ID: "app-1", OrgName: "acme"}))

	doc := &model.Document{ID: "doc-1", ApplicationID: "app-1", OrgName: "acme", Kind: model.KindCustom}
	require.NoError(t, s.CreateDocument(ctx, doc))
	require.Equal(t, model.StatePending, doc.State)

	require.NoError(t, s.RegisterUpload(ctx, "doc-1", Upload{
		Filename:   "tax.pdf",
		MimeType:   "application/pdf",
		StorageKey: "acme/app-1/x-tax.pdf",
	}))
	got, err := s.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	require.Equal(t, model.StatePending, got.State)
	require.True(t, got.HasFile())

	require.NoError(t, s.MarkProcessing(ctx, "doc-1"))
	require.NoError(t, s.MarkCompleted(ctx, "doc-1", json.RawMessage(`{"pages":2}`)))
	got, err = s.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	require.Equal(t, model.StateCompleted, got.State)
	require.True(t, got.HasExtractedData())
	require.True(t, got.UpdatedAt.After(got.CreatedAt))

	app, err := s.GetApplication(ctx, "app-1")
	require.NoError(t, err)
	require.Equal(t, model.ApplicationInProgress, app.Status)
	require.Equal(t, []model.DocumentRef{{DocumentID: "doc-1", Kind: model.KindCustom, State: model.StateCompleted}}, app.Documents)
}

func TestReadsReturnCopies(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	require.NoError(t, s.CreateDocument(ctx, &model.Document{ID: "doc-1", ApplicationID: "app-1"}))

	got, err := s.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	got.State = model.StateFailed

	again, err := s.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	require.Equal(t, model.StatePending, again.State)
}

func TestNotFoundAndConflict(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	_, err := s.GetDocument(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetApplication(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, s.MarkFailed(ctx, "missing", "boom"), ErrNotFound)

	require.NoError(t, s.CreateDocument(ctx, &model.Document{ID: "doc-1"}))
	require.ErrorIs(t, s.CreateDocument(ctx, &model.Document{ID: "doc-1"}), ErrConflict)
}

func TestListByApplicationPages(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	for i := 0; i < 5; i++ {
		require.NoError(t, s.CreateDocument(ctx, &model.Document{ID: fmt.Sprintf("doc-%d", i), ApplicationID: "app-1"}))
	}
	require.NoError(t, s.CreateDocument(ctx, &model.Document{ID: "other", ApplicationID: "app-2"}))

	all, err := s.ListByApplication(ctx, "app-1", 100, 0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	require.Equal(t, "doc-0", all[0].ID)
	require.Equal(t, "doc-4", all[4].ID)

	page, err := s.ListByApplication(ctx, "app-1", 2, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"doc-2", "doc-3"}, []string{page[0].ID, page[1].ID})

	empty, err := s.ListByApplication(ctx, "app-1", 2, 10)
	require.NoError(t, err)
	require.NotNil(t, empty)
	require.Empty(t, empty)
}

func TestMarkFailedKeepsReason(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	require.NoError(t, s.CreateDocument(ctx, &model.Document{ID: "doc-1"}))
	require.NoError(t, s.MarkProcessing(ctx, "doc-1"))
	require.NoError(t, s.MarkFailed(ctx, "doc-1", "download: object missing"))

	got, err := s.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	require.Equal(t, model.StateFailed, got.State)
	require.Equal(t, "download: object missing", got.FailureReason)

	require.NoError(t, s.MarkProcessing(ctx, "doc-1"))
	got, err = s.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	require.Empty(t, got.FailureReason)
}
