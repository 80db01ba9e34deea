package server

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dharsanguruparan/loandrop/internal/identity"
	"github.com/dharsanguruparan/loandrop/internal/upload"
)

const maxFieldSize = 256

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	id, _ := identity.FromContext(r.Context())
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Portal.MaxFileSize+1024)
	mr, err := r.MultipartReader()
	if err != nil {
		respondError(w, http.StatusBadRequest, "expecting multipart form")
		return
	}

	var (
		tmp        *tempUpload
		documentID string
	)
	defer func() {
		if tmp != nil {
			tmp.f.Close()
			os.Remove(tmp.path)
		}
	}()
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			respondError(w, http.StatusBadRequest, "failed to read upload")
			return
		}
		switch part.FormName() {
		case "documentId":
			documentID, err = readField(part)
		case "file":
			if tmp == nil {
				tmp, err = s.persistTemp(part)
			}
		}
		part.Close()
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if tmp == nil {
		respondError(w, http.StatusBadRequest, "missing file part")
		return
	}
	if !s.allowedType(tmp.contentType) {
		respondError(w, http.StatusUnsupportedMediaType, "file type not allowed")
		return
	}

	result, err := s.uploader.Upload(r.Context(), id, upload.Request{
		File:          tmp.f,
		Size:          tmp.size,
		Filename:      tmp.filename,
		MimeType:      tmp.contentType,
		ApplicationID: chi.URLParam(r, "applicationId"),
		DocumentID:    documentID,
	})
	if err != nil {
		s.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusAccepted, result)
}

type tempUpload struct {
	f           *os.File
	path        string
	size        int64
	contentType string
	filename    string
}

// persistTemp streams a file part to disk so the PUT to storage can send a
// known Content-Length. The declared content type wins unless it is missing
// or generic, in which case the first 512 bytes are sniffed.
func (s *Server) persistTemp(part *multipart.Part) (*tempUpload, error) {
	tmpFile, err := os.CreateTemp(s.uploadDir, "upload-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	fail := func(err error) (*tempUpload, error) {
		tmpFile.Close()
		os.Remove(tmpFile.Name())
		return nil, err
	}

	var sniff []byte
	buf := make([]byte, 32*1024)
	var written int64
	for {
		n, readErr := part.Read(buf)
		if n > 0 {
			written += int64(n)
			if written > s.cfg.Portal.MaxFileSize {
				return fail(fmt.Errorf("file exceeds limit (%d bytes)", s.cfg.Portal.MaxFileSize))
			}
			if len(sniff) < 512 {
				chunk := n
				if remain := 512 - len(sniff); chunk > remain {
					chunk = remain
				}
				sniff = append(sniff, buf[:chunk]...)
			}
			if _, err := tmpFile.Write(buf[:n]); err != nil {
				return fail(fmt.Errorf("write temp file: %w", err))
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			return fail(fmt.Errorf("read file: %w", readErr))
		}
	}
	if written == 0 {
		return fail(errors.New("empty file"))
	}
	if _, err := tmpFile.Seek(0, io.SeekStart); err != nil {
		return fail(fmt.Errorf("rewind temp file: %w", err))
	}

	contentType := mediaType(part.Header.Get("Content-Type"))
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mediaType(http.DetectContentType(sniff))
	}
	filename := filepath.Base(part.FileName())
	if filename == "." || filename == string(filepath.Separator) {
		filename = ""
	}
	if filename == "" {
		filename = "upload"
	}
	return &tempUpload{
		f:           tmpFile,
		path:        tmpFile.Name(),
		size:        written,
		contentType: contentType,
		filename:    filename,
	}, nil
}

func (s *Server) allowedType(contentType string) bool {
	for _, allowed := range s.cfg.Portal.AllowedTypes {
		if allowed == contentType {
			return true
		}
	}
	return false
}

func mediaType(v string) string {
	mt, _, err := mime.ParseMediaType(v)
	if err != nil {
		return strings.TrimSpace(v)
	}
	return mt
}

func readField(part *multipart.Part) (string, error) {
	b, err := io.ReadAll(io.LimitReader(part, maxFieldSize+1))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", part.FormName(), err)
	}
	if len(b) > maxFieldSize {
		return "", fmt.Errorf("%s too long", part.FormName())
	}
	return strings.TrimSpace(string(b)), nil
}
