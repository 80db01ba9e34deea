package upload

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/loandrop/internal/cache"
	"github.com/dharsanguruparan/loandrop/internal/facade"
	"github.com/dharsanguruparan/loandrop/internal/facade/facadetest"
	"github.com/dharsanguruparan/loandrop/internal/identity"
	"github.com/dharsanguruparan/loandrop/internal/model"
)

var borrower = identity.Identity{UserID: "user-1", OrgID: "org-1", OrgSlug: "acme"}

type recordingTransferer struct {
	svc    *facadetest.Fake
	status int
	err    error
	body   string
	ctype  string
}

func (r *recordingTransferer) Put(_ context.Context, _ string, body io.Reader, _ int64, contentType string) (int, error) {
	r.svc.Record("put")
	if r.err != nil {
		return 0, r.err
	}
	b, _ := io.ReadAll(body)
	r.body, r.ctype = string(b), contentType
	return r.status, nil
}

type recordingInvalidator struct {
	mu   sync.Mutex
	keys []cache.Key
}

func (r *recordingInvalidator) Invalidate(_ context.Context, keys ...cache.Key) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, keys...)
	return nil
}

func newRequest(docID string) Request {
	return Request{
		File:          strings.NewReader("%PDF-1.4 test"),
		Size:          13,
		Filename:      "bank.pdf",
		MimeType:      "application/pdf",
		ApplicationID: "app-1",
		DocumentID:    docID,
	}
}

func TestUploadNewDocumentRunsEveryStepInOrder(t *testing.T) {
	svc := facadetest.New()
	tr := &recordingTransferer{svc: svc, status: http.StatusOK}
	inv := &recordingInvalidator{}
	o := NewOrchestrator(svc, inv, WithTransferer(tr))

	res, err := o.Upload(context.Background(), borrower, newRequest(""))
	require.NoError(t, err)
	require.Equal(t, []string{"create", "presign", "put", "register", "process"}, svc.Calls())
	require.Equal(t, "doc-1", res.DocumentID)
	require.Equal(t, "acme/app-1/bank.pdf", res.StorageKey)
	require.Equal(t, "%PDF-1.4 test", tr.body)
	require.Equal(t, "application/pdf", tr.ctype)

	doc := svc.Documents["doc-1"]
	require.Equal(t, model.KindCustom, doc.Kind)
	require.Equal(t, "user-1", doc.OwnerUserID)
	require.Equal(t, "acme", doc.OrgName)
	require.Equal(t, "Uploaded document: bank.pdf", doc.Description)
	require.Equal(t, "bank.pdf", doc.OriginalFilename)
	require.Equal(t, model.StateProcessing, doc.State)

	require.Equal(t, []cache.Key{
		cache.DocumentKey("doc-1"),
		cache.DownloadURLKey("doc-1"),
		cache.ApplicationKey("app-1"),
		cache.DocumentListKey("app-1"),
	}, inv.keys)
}

func TestUploadExistingDocumentNeverCreates(t *testing.T) {
	svc := facadetest.New()
	svc.AddDocument(model.Document{ID: "existing", ApplicationID: "app-1", Kind: model.KindOwnerPassport, State: model.StatePending})
	o := NewOrchestrator(svc, nil, WithTransferer(&recordingTransferer{svc: svc, status: http.StatusOK}))

	res, err := o.Upload(context.Background(), borrower, newRequest("existing"))
	require.NoError(t, err)
	require.Equal(t, "existing", res.DocumentID)
	require.Zero(t, svc.Count("create"))
	require.Equal(t, []string{"presign", "put", "register", "process"}, svc.Calls())
	require.Equal(t, model.KindOwnerPassport, svc.Documents["existing"].Kind)
}

func TestUploadRequiresIdentity(t *testing.T) {
	svc := facadetest.New()
	o := NewOrchestrator(svc, nil, WithTransferer(&recordingTransferer{svc: svc, status: http.StatusOK}))

	_, err := o.Upload(context.Background(), identity.Identity{UserID: "user-1"}, newRequest(""))
	require.ErrorIs(t, err, identity.ErrForbidden)
	require.Empty(t, svc.Calls())

	_, err = o.Upload(context.Background(), borrower, Request{Filename: "x.pdf"})
	require.ErrorIs(t, err, ErrInvalidRequest)
	require.Empty(t, svc.Calls())
}

func TestUploadStopsAtFailedStepWithoutRollback(t *testing.T) {
	svc := facadetest.New()
	svc.Fail["register"] = facade.ErrUnavailable
	inv := &recordingInvalidator{}
	o := NewOrchestrator(svc, inv, WithTransferer(&recordingTransferer{svc: svc, status: http.StatusOK}))

	_, err := o.Upload(context.Background(), borrower, newRequest(""))
	var stepErr *StepError
	require.True(t, errors.As(err, &stepErr))
	require.Equal(t, StepRegister, stepErr.Step)
	require.Equal(t, "doc-1", stepErr.DocumentID)
	require.ErrorIs(t, err, facade.ErrUnavailable)

	require.Equal(t, []string{"create", "presign", "put", "register"}, svc.Calls())
	require.Equal(t, model.StatePending, svc.Documents["doc-1"].State)
	require.Empty(t, svc.Documents["doc-1"].OriginalFilename)
	require.Empty(t, inv.keys)
}

func TestUploadTransferStatusIsIgnoredUnlessStrict(t *testing.T) {
	svc := facadetest.New()
	o := NewOrchestrator(svc, nil, WithTransferer(&recordingTransferer{svc: svc, status: http.StatusForbidden}))
	_, err := o.Upload(context.Background(), borrower, newRequest(""))
	require.NoError(t, err)
	require.Equal(t, 1, svc.Count("process"))

	strictSvc := facadetest.New()
	strict := NewOrchestrator(strictSvc, nil,
		WithTransferer(&recordingTransferer{svc: strictSvc, status: http.StatusForbidden}),
		WithStrictTransfer(true))
	_, err = strict.Upload(context.Background(), borrower, newRequest(""))
	require.ErrorIs(t, err, ErrTransferRejected)
	require.Zero(t, strictSvc.Count("register"))
}

func TestUploadTransportErrorAborts(t *testing.T) {
	svc := facadetest.New()
	o := NewOrchestrator(svc, nil, WithTransferer(&recordingTransferer{svc: svc, err: errors.New("connection reset")}))
	_, err := o.Upload(context.Background(), borrower, newRequest(""))
	var stepErr *StepError
	require.True(t, errors.As(err, &stepErr))
	require.Equal(t, StepTransfer, stepErr.Step)
	require.Zero(t, svc.Count("register"))
}

func TestHTTPTransfererSendsRawBytes(t *testing.T) {
	var gotMethod, gotType, gotBody string
	var gotLength int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotMethod, gotType, gotBody, gotLength = r.Method, r.Header.Get("Content-Type"), string(b), r.ContentLength
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	status, err := NewHTTPTransferer(srv.Client()).Put(context.Background(), srv.URL, strings.NewReader("hello"), 5, "text/plain")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, http.MethodPut, gotMethod)
	require.Equal(t, "text/plain", gotType)
	require.Equal(t, "hello", gotBody)
	require.EqualValues(t, 5, gotLength)
}
