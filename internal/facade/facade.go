// Package facade is the portal's only view of the document and application
// services. Everything above it talks to the interfaces here.
package facade

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dharsanguruparan/loandrop/internal/model"
)

var (
	// ErrNotFound matches any StatusError carrying a 404.
	ErrNotFound = errors.New("facade: not found")
	// ErrUnavailable wraps transport failures: the remote never answered.
	ErrUnavailable = errors.New("facade: service unavailable")
)

// DefaultPageSize is the page size the checklist asks for in one call.
const DefaultPageSize = 100

type CreateDocumentRequest struct {
	Kind          model.Kind `json:"kind"`
	ApplicationID string     `json:"applicationId"`
	OwnerUserID   string     `json:"ownerUserId"`
	OrgName       string     `json:"orgName"`
	Description   string     `json:"description"`
}

type PresignRequest struct {
	ApplicationID string `json:"applicationId"`
	OrgName       string `json:"orgName"`
	Filename      string `json:"filename"`
	MimeType      string `json:"mimeType"`
}

// PresignedUpload is a single-use write URL and the key the bytes will live
// under.
type PresignedUpload struct {
	PutURL     string `json:"putUrl"`
	StorageKey string `json:"storageKey"`
}

type RegisterUploadRequest struct {
	Filename      string `json:"filename"`
	MimeType      string `json:"mimeType"`
	ApplicationID string `json:"applicationId"`
	OwnerUserID   string `json:"ownerUserId"`
	OrgName       string `json:"orgName"`
	StorageKey    string `json:"storageKey"`
}

type Page struct {
	Size int
	Num  int
}

// DocumentService is the remote document store and processing trigger.
type DocumentService interface {
	CreateDocument(ctx context.Context, req CreateDocumentRequest) (string, error)
	GeneratePresignedUploadURL(ctx context.Context, req PresignRequest) (PresignedUpload, error)
	RegisterUpload(ctx context.Context, documentID string, req RegisterUploadRequest) error
	// Process asks the backend to start analysis. It returns once the command
	// is acknowledged, not when processing finishes.
	Process(ctx context.Context, documentID string) error
	GetDocument(ctx context.Context, documentID string) (*model.Document, error)
	GenerateDownloadURL(ctx context.Context, documentID string) (string, error)
	ListDocumentsByParent(ctx context.Context, parentID string, page Page) ([]model.Document, error)
}

// ApplicationService reads loan applications.
type ApplicationService interface {
	GetApplication(ctx context.Context, applicationID string) (*model.Application, error)
}

// StatusError is a non-2xx answer from a remote service.
type StatusError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %d %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%s: %d %s", e.Op, e.StatusCode, e.Message)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// StatusCode extracts the remote status from err, or 0 if err is not a
// StatusError.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}
