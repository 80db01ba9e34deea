package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

const heartbeatInterval = 15 * time.Second

type sseWriter struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

func startSSE(w http.ResponseWriter) *sseWriter {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	s := &sseWriter{w: w, rc: http.NewResponseController(w)}
	s.rc.Flush()
	return s
}

func (s *sseWriter) event(name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return err
	}
	return s.rc.Flush()
}

func (s *sseWriter) ping() error {
	if _, err := fmt.Fprint(s.w, ": ping\n\n"); err != nil {
		return err
	}
	return s.rc.Flush()
}

// handleDocumentEvents streams poll results for one document until it leaves
// the processing state or the client goes away.
func (s *Server) handleDocumentEvents(w http.ResponseWriter, r *http.Request) {
	doc, visible, err := s.document(r)
	if err != nil {
		s.respondFailure(w, r, err)
		return
	}
	if !visible {
		respondError(w, http.StatusNotFound, "not found")
		return
	}

	stream := startSSE(w)
	for u := range s.poller.Subscribe(r.Context(), doc.ID) {
		if u.Err != nil {
			err = stream.event("error", map[string]string{"error": "status check failed, retrying"})
		} else {
			err = stream.event("status", u.Document)
		}
		if err != nil {
			return
		}
	}
	stream.event("done", map[string]string{"documentId": chi.URLParam(r, "documentId")})
}

// handleInvalidations streams cache keys as they go stale so open pages can
// refetch.
func (s *Server) handleInvalidations(w http.ResponseWriter, r *http.Request) {
	if s.cache == nil {
		respondError(w, http.StatusNotImplemented, "invalidation stream unavailable")
		return
	}
	keys, cancel := s.cache.Bus().Subscribe()
	defer cancel()

	stream := startSSE(w)
	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if stream.ping() != nil {
				return
			}
		case key, ok := <-keys:
			if !ok {
				return
			}
			if stream.event("invalidate", key) != nil {
				return
			}
		}
	}
}
