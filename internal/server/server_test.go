package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/loandrop/internal/cache"
	"github.com/dharsanguruparan/loandrop/internal/config"
	"github.com/dharsanguruparan/loandrop/internal/facade"
	"github.com/dharsanguruparan/loandrop/internal/facade/facadetest"
	"github.com/dharsanguruparan/loandrop/internal/identity"
	"github.com/dharsanguruparan/loandrop/internal/model"
)

var (
	testSecret = []byte("portal-test-secret")
	borrower   = identity.Identity{UserID: "user-1", OrgID: "org-1", OrgSlug: "acme"}
)

type stubTransferer struct{ svc *facadetest.Fake }

func (s stubTransferer) Put(_ context.Context, _ string, body io.Reader, _ int64, _ string) (int, error) {
	s.svc.Record("put")
	io.Copy(io.Discard, body)
	return http.StatusOK, nil
}

type harness struct {
	svc   *facadetest.Fake
	cache *cache.Cache
	srv   *httptest.Server
	token string
}

func newHarness(t *testing.T, checks ...Check) *harness {
	t.Helper()
	cfg := &config.Config{
		Portal: config.PortalConfig{
			JWTSecret:    testSecret,
			MaxFileSize:  1 << 20,
			AllowedTypes: []string{"application/pdf", "image/png"},
			PollInterval: 5 * time.Millisecond,
		},
		Cache: config.CacheConfig{TTL: time.Minute, DownloadTTL: time.Minute},
	}
	svc := facadetest.New()
	c := cache.New(cache.NewMemoryStore(), cache.NewMemoryBus(nil), nil)
	s, err := New(cfg, Deps{
		Documents:    svc,
		Applications: svc,
		Cache:        c,
		Transferer:   stubTransferer{svc: svc},
		Checks:       checks,
	})
	require.NoError(t, err)
	srv := httptest.NewServer(s.Routes())
	t.Cleanup(srv.Close)

	token, err := identity.Mint(testSecret, borrower, time.Hour)
	require.NoError(t, err)
	return &harness{svc: svc, cache: c, srv: srv, token: token}
}

func (h *harness) do(t *testing.T, method, path string, body io.Reader, contentType string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, h.srv.URL+path, body)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+h.token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := h.srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func multipartBody(t *testing.T, documentID, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	if documentID != "" {
		require.NoError(t, mw.WriteField("documentId", documentID))
	}
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func TestAPIRequiresAuthentication(t *testing.T) {
	h := newHarness(t)
	resp, err := http.Get(h.srv.URL + "/api/applications/app-1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = http.Get(h.srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUploadThenChecklist(t *testing.T) {
	h := newHarness(t)
	events, stop := h.cache.Bus().Subscribe()
	defer stop()

	body, ctype := multipartBody(t, "", "statement.pdf", "application/pdf", []byte("%PDF-1.4 body"))
	resp := h.do(t, http.MethodPost, "/api/applications/app-1/documents", body, ctype)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var result struct {
		DocumentID string `json:"documentId"`
		StorageKey string `json:"storageKey"`
	}
	decode(t, resp, &result)
	require.Equal(t, "doc-1", result.DocumentID)
	require.Equal(t, []string{"create", "presign", "put", "register", "process"}, h.svc.Calls())
	require.Equal(t, cache.DocumentKey("doc-1"), <-events)

	resp = h.do(t, http.MethodGet, "/api/applications/app-1/checklist", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sections struct {
		Owner checklistSection `json:"owner"`
		Other checklistSection `json:"other"`
	}
	decode(t, resp, &sections)
	require.Len(t, sections.Other.Rows, 1)
	row := sections.Other.Rows[0]
	require.Equal(t, "Document 1", row.DisplayName)
	require.Equal(t, "statement.pdf", row.Filename)
	require.EqualValues(t, "Processing", row.Status)
	require.Equal(t, 0, sections.Other.Summary.Completed)
	require.True(t, sections.Owner.Summary.Complete)
}

func TestUploadRejectsDisallowedType(t *testing.T) {
	h := newHarness(t)
	body, ctype := multipartBody(t, "", "notes.txt", "text/plain", []byte("hello"))
	resp := h.do(t, http.MethodPost, "/api/applications/app-1/documents", body, ctype)
	require.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
	require.Empty(t, h.svc.Calls())
}

func TestUploadToExistingDocument(t *testing.T) {
	h := newHarness(t)
	h.svc.AddDocument(model.Document{ID: "slot-1", ApplicationID: "app-1", OrgName: "acme", Kind: model.KindOwnerPassport, State: model.StatePending})

	body, ctype := multipartBody(t, "slot-1", "passport.png", "image/png", []byte("\x89PNG\r\n\x1a\nxx"))
	resp := h.do(t, http.MethodPost, "/api/applications/app-1/documents", body, ctype)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.Zero(t, h.svc.Count("create"))
}

func TestDownloadURLConflictWhilePending(t *testing.T) {
	h := newHarness(t)
	h.svc.AddDocument(model.Document{ID: "d1", ApplicationID: "app-1", OrgName: "acme", State: model.StatePending})
	h.svc.AddDocument(model.Document{ID: "d2", ApplicationID: "app-1", OrgName: "acme", OriginalFilename: "a.pdf", State: model.StateCompleted})

	resp := h.do(t, http.MethodGet, "/api/documents/d1/download-url", nil, "")
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = h.do(t, http.MethodGet, "/api/documents/d2/download-url", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out map[string]string
	decode(t, resp, &out)
	require.Equal(t, "http://storage.invalid/get/d2", out["url"])

	h.do(t, http.MethodGet, "/api/documents/d2/download-url", nil, "")
	require.Equal(t, 1, h.svc.Count("download-url"))
}

func TestDocumentFromAnotherOrganizationIsHidden(t *testing.T) {
	h := newHarness(t)
	h.svc.AddDocument(model.Document{ID: "d1", OrgName: "globex", State: model.StateCompleted})
	resp := h.do(t, http.MethodGet, "/api/documents/d1", nil, "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestApplicationFromAnotherOrganizationIsHidden(t *testing.T) {
	h := newHarness(t)
	h.svc.Applications["globex-app"] = &model.Application{ID: "globex-app", OrgName: "globex", Status: model.ApplicationInProgress}
	h.svc.AddDocument(model.Document{
		ID:               "g1",
		ApplicationID:    "globex-app",
		OrgName:          "globex",
		Kind:             model.KindOwnerPassport,
		OriginalFilename: "ceo-passport.pdf",
		StorageKey:       "globex/globex-app/ceo-passport.pdf",
		State:            model.StateCompleted,
	})

	resp := h.do(t, http.MethodGet, "/api/applications/globex-app", nil, "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = h.do(t, http.MethodGet, "/api/applications/globex-app/checklist", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sections struct {
		Owner    checklistSection `json:"owner"`
		Business checklistSection `json:"business"`
		Other    checklistSection `json:"other"`
	}
	decode(t, resp, &sections)
	require.Empty(t, sections.Owner.Rows)
	require.Empty(t, sections.Business.Rows)
	require.Empty(t, sections.Other.Rows)
}

func TestApplicationErrors(t *testing.T) {
	h := newHarness(t)
	resp := h.do(t, http.MethodGet, "/api/applications/missing", nil, "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	h.svc.Fail["application"] = facade.ErrUnavailable
	resp = h.do(t, http.MethodGet, "/api/applications/app-2", nil, "")
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestApplicationIsCachedUntilInvalidated(t *testing.T) {
	h := newHarness(t)
	h.svc.Applications["app-1"] = &model.Application{ID: "app-1", OrgName: "acme", Status: model.ApplicationInProgress}

	h.do(t, http.MethodGet, "/api/applications/app-1", nil, "")
	h.do(t, http.MethodGet, "/api/applications/app-1", nil, "")
	require.Equal(t, 1, h.svc.Count("application"))

	require.NoError(t, h.cache.Invalidate(context.Background(), cache.ApplicationKey("app-1")))
	h.do(t, http.MethodGet, "/api/applications/app-1", nil, "")
	require.Equal(t, 2, h.svc.Count("application"))
}

func TestDocumentEventsStreamUntilDone(t *testing.T) {
	h := newHarness(t)
	reads := 0
	h.svc.GetDocumentFunc = func(_ context.Context, id string) (*model.Document, error) {
		reads++
		state := model.StateProcessing
		if reads >= 3 {
			state = model.StateCompleted
		}
		return &model.Document{ID: id, ApplicationID: "app-1", OrgName: "acme", OriginalFilename: "a.pdf", State: state}, nil
	}

	resp := h.do(t, http.MethodGet, "/api/documents/d1/events", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	stream := string(raw)
	require.Equal(t, 2, strings.Count(stream, "event: status"), stream)
	require.Contains(t, stream, `"state":"completed"`)
	require.True(t, strings.HasSuffix(strings.TrimSpace(stream), `data: {"documentId":"d1"}`), stream)
}

func TestFinancialStatementTotals(t *testing.T) {
	h := newHarness(t)
	payload := `{"assets":["$1,000","$2,500"],"liabilities":["$500","","","","","","","","","",""],"statementType":"joint"}`
	resp := h.do(t, http.MethodPost, "/api/review/financial-statement", strings.NewReader(payload), "application/json")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out financialStatementResponse
	decode(t, resp, &out)
	require.Equal(t, 3000.0, out.Totals.NetWorth)
	require.Len(t, out.Liabilities, 13)
	require.Equal(t, "$3,000", out.Liabilities[11])
	require.Equal(t, "$3,500", out.Formatted["totalAssets"])
}

func TestReviewValidationErrors(t *testing.T) {
	h := newHarness(t)
	resp := h.do(t, http.MethodPost, "/api/review/personal-info", strings.NewReader(`{"firstName":"Dana"}`), "application/json")
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	var out struct {
		Errors map[string]string `json:"errors"`
	}
	decode(t, resp, &out)
	require.Equal(t, "is required", out.Errors["lastName"])
	require.Equal(t, "is required", out.Errors["contact"])

	resp = h.do(t, http.MethodPost, "/api/review/business-info", strings.NewReader(`not json`), "application/json")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReadyz(t *testing.T) {
	h := newHarness(t,
		Check{Name: "documents", Ping: func(context.Context) error { return nil }},
		Check{Name: "redis", Ping: func(context.Context) error { return errors.New("connection refused") }},
	)
	resp, err := http.Get(h.srv.URL + "/readyz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var out struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	decode(t, resp, &out)
	require.Equal(t, "unhealthy", out.Status)
	require.Equal(t, "ok", out.Checks["documents"])
}
