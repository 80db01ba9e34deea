// Package localblob is a filesystem object store that hands out HMAC-signed
// PUT and GET URLs, standing in for S3 when the stack runs on one host.
package localblob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dharsanguruparan/loandrop/internal/signing"
)

// RoutePrefix is where Routes mounts the blob endpoints.
const RoutePrefix = "/blobs"

var (
	ErrNotFound   = errors.New("localblob: object not found")
	ErrInvalidKey = errors.New("localblob: invalid key")
)

type Store struct {
	dir     string
	baseURL string
	signer  *signing.Signer
	maxSize int64
	logger  *slog.Logger
}

// New creates the root directory if needed. baseURL is the externally
// reachable address of the server that mounts Routes.
func New(dir, baseURL string, signer *signing.Signer, maxSize int64, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
		signer:  signer,
		maxSize: maxSize,
		logger:  logger,
	}, nil
}

func (s *Store) PresignPut(_ context.Context, key string, ttl time.Duration) (string, error) {
	return s.signedURL(http.MethodPut, key, ttl)
}

func (s *Store) PresignGet(_ context.Context, key string, ttl time.Duration) (string, error) {
	return s.signedURL(http.MethodGet, key, ttl)
}

// Download reads the stored object.
func (s *Store) Download(_ context.Context, key string) ([]byte, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("read blob %s: %w", key, err)
	}
	return data, nil
}

// Routes mounts the signed PUT/GET handlers.
func (s *Store) Routes(r chi.Router) {
	r.Put(RoutePrefix+"/*", s.handlePut)
	r.Get(RoutePrefix+"/*", s.handleGet)
}

func (s *Store) signedURL(method, key string, ttl time.Duration) (string, error) {
	if err := checkKey(key); err != nil {
		return "", err
	}
	q := s.signer.Query(method, key, ttl)
	return s.baseURL + RoutePrefix + "/" + escapeKey(key) + "?" + q.Encode(), nil
}

func (s *Store) handlePut(w http.ResponseWriter, r *http.Request) {
	key, ok := s.authorize(w, r)
	if !ok {
		return
	}
	p, err := s.path(key)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		s.logger.Error("create blob parent", "key", key, "error", err)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		s.logger.Error("create blob temp", "key", key, "error", err)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	defer os.Remove(tmp.Name())

	body := http.MaxBytesReader(w, r.Body, s.maxSize)
	n, err := io.Copy(tmp, body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "object too large", http.StatusRequestEntityTooLarge)
			return
		}
		s.logger.Error("write blob", "key", key, "error", err)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		s.logger.Error("commit blob", "key", key, "error", err)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	s.logger.Info("blob stored", "key", key, "bytes", n)
	w.WriteHeader(http.StatusOK)
}

func (s *Store) handleGet(w http.ResponseWriter, r *http.Request) {
	key, ok := s.authorize(w, r)
	if !ok {
		return
	}
	p, err := s.path(key)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f, err := os.Open(p)
	if err != nil {
		http.Error(w, "object not found", http.StatusNotFound)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", path.Base(key)))
	http.ServeContent(w, r, path.Base(key), info.ModTime(), f)
}

// authorize checks the URL signature; failures answer 403 like S3 does.
func (s *Store) authorize(w http.ResponseWriter, r *http.Request) (string, bool) {
	key, err := url.PathUnescape(chi.URLParam(r, "*"))
	if err != nil || checkKey(key) != nil {
		http.Error(w, "invalid key", http.StatusBadRequest)
		return "", false
	}
	q := r.URL.Query()
	if !s.signer.Validate(r.Method, key, q.Get(signing.ParamExpires), q.Get(signing.ParamSignature)) {
		http.Error(w, "signature mismatch or expired", http.StatusForbidden)
		return "", false
	}
	return key, true
}

func (s *Store) path(key string) (string, error) {
	if err := checkKey(key); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, filepath.FromSlash(key)), nil
}

func checkKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, `\`) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}

func escapeKey(key string) string {
	segs := strings.Split(key, "/")
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	return strings.Join(segs, "/")
}
