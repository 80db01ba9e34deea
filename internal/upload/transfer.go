package upload

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Transferer writes raw bytes to a presigned URL and reports the HTTP status.
type Transferer interface {
	Put(ctx context.Context, url string, body io.Reader, size int64, contentType string) (int, error)
}

type HTTPTransferer struct {
	httpClient *http.Client
}

// NewHTTPTransferer uses client, or a client with a two minute timeout when
// client is nil.
func NewHTTPTransferer(client *http.Client) *HTTPTransferer {
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	return &HTTPTransferer{httpClient: client}
}

func (t *HTTPTransferer) Put(ctx context.Context, url string, body io.Reader, size int64, contentType string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, body)
	if err != nil {
		return 0, fmt.Errorf("create transfer request: %w", err)
	}
	if size > 0 {
		req.ContentLength = size
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("transfer file: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}
