package facade

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dharsanguruparan/loandrop/internal/model"
)

// Client implements DocumentService and ApplicationService over HTTP/JSON.
type Client struct {
	documentsURL    string
	applicationsURL string
	httpClient      *http.Client
}

func NewClient(documentsURL, applicationsURL string, timeout time.Duration) *Client {
	return &Client{
		documentsURL:    strings.TrimRight(documentsURL, "/"),
		applicationsURL: strings.TrimRight(applicationsURL, "/"),
		httpClient:      &http.Client{Timeout: timeout},
	}
}

var (
	_ DocumentService    = (*Client)(nil)
	_ ApplicationService = (*Client)(nil)
)

func (c *Client) CreateDocument(ctx context.Context, req CreateDocumentRequest) (string, error) {
	var resp struct {
		DocumentID string `json:"documentId"`
	}
	if err := c.do(ctx, "create document", http.MethodPost, c.documentsURL+"/v1/documents", req, &resp); err != nil {
		return "", err
	}
	if resp.DocumentID == "" {
		return "", fmt.Errorf("create document: empty document id in response")
	}
	return resp.DocumentID, nil
}

func (c *Client) GeneratePresignedUploadURL(ctx context.Context, req PresignRequest) (PresignedUpload, error) {
	var resp PresignedUpload
	if err := c.do(ctx, "presign upload", http.MethodPost, c.documentsURL+"/v1/uploads/presign", req, &resp); err != nil {
		return PresignedUpload{}, err
	}
	return resp, nil
}

func (c *Client) RegisterUpload(ctx context.Context, documentID string, req RegisterUploadRequest) error {
	endpoint := c.documentsURL + "/v1/documents/" + url.PathEscape(documentID) + "/upload"
	return c.do(ctx, "register upload", http.MethodPost, endpoint, req, nil)
}

func (c *Client) Process(ctx context.Context, documentID string) error {
	endpoint := c.documentsURL + "/v1/documents/" + url.PathEscape(documentID) + "/process"
	return c.do(ctx, "process document", http.MethodPost, endpoint, nil, nil)
}

func (c *Client) GetDocument(ctx context.Context, documentID string) (*model.Document, error) {
	var doc model.Document
	endpoint := c.documentsURL + "/v1/documents/" + url.PathEscape(documentID)
	if err := c.do(ctx, "get document", http.MethodGet, endpoint, nil, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (c *Client) GenerateDownloadURL(ctx context.Context, documentID string) (string, error) {
	var resp struct {
		URL string `json:"url"`
	}
	endpoint := c.documentsURL + "/v1/documents/" + url.PathEscape(documentID) + "/download-url"
	if err := c.do(ctx, "download url", http.MethodGet, endpoint, nil, &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}

func (c *Client) ListDocumentsByParent(ctx context.Context, parentID string, page Page) ([]model.Document, error) {
	q := url.Values{}
	q.Set("pageSize", strconv.Itoa(page.Size))
	q.Set("pageNum", strconv.Itoa(page.Num))
	endpoint := c.documentsURL + "/v1/applications/" + url.PathEscape(parentID) + "/documents?" + q.Encode()

	var resp struct {
		Documents []model.Document `json:"documents"`
	}
	if err := c.do(ctx, "list documents", http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Documents, nil
}

func (c *Client) GetApplication(ctx context.Context, applicationID string) (*model.Application, error) {
	var app model.Application
	endpoint := c.applicationsURL + "/v1/applications/" + url.PathEscape(applicationID)
	if err := c.do(ctx, "get application", http.MethodGet, endpoint, nil, &app); err != nil {
		return nil, err
	}
	return &app, nil
}

// CreateApplication is only served by the reference backend; the CLI uses it
// to seed a local stack.
func (c *Client) CreateApplication(ctx context.Context, orgName string) (*model.Application, error) {
	var app model.Application
	body := map[string]string{"orgName": orgName}
	if err := c.do(ctx, "create application", http.MethodPost, c.applicationsURL+"/v1/applications", body, &app); err != nil {
		return nil, err
	}
	return &app, nil
}

// Ping checks that the document service answers at all. Any HTTP response
// counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.documentsURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("create ping request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ping: %w: %w", ErrUnavailable, err)
	}
	resp.Body.Close()
	return nil
}

func (c *Client) do(ctx context.Context, op, method, endpoint string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", op, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var payload struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
			msg = payload.Error
		}
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Message: msg}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}
