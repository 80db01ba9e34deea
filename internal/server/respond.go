package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/dharsanguruparan/loandrop/internal/facade"
	"github.com/dharsanguruparan/loandrop/internal/identity"
	"github.com/dharsanguruparan/loandrop/internal/reviewform"
	"github.com/dharsanguruparan/loandrop/internal/upload"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("encode response failed", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// respondFailure maps pipeline errors onto HTTP. The message is what the
// borrower sees inline; callers may retry any of these.
func (s *Server) respondFailure(w http.ResponseWriter, r *http.Request, err error) {
	var fields reviewform.FieldErrors
	switch {
	case errors.As(err, &fields):
		respondJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": fields})
		return
	case errors.Is(err, identity.ErrForbidden):
		respondError(w, http.StatusForbidden, "user and organization required")
		return
	case errors.Is(err, upload.ErrInvalidRequest):
		respondError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, facade.ErrNotFound):
		respondError(w, http.StatusNotFound, "not found")
		return
	}

	status := http.StatusInternalServerError
	if code := facade.StatusCode(err); code >= 400 && code < 500 {
		status = code
	} else if code >= 500 || errors.Is(err, facade.ErrUnavailable) || errors.Is(err, upload.ErrTransferRejected) {
		status = http.StatusBadGateway
	}
	s.logger.Error("request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
		"request_id", chimiddleware.GetReqID(r.Context()),
		"error", err,
	)
	respondError(w, status, userMessage(status))
}

func userMessage(status int) string {
	switch status {
	case http.StatusBadGateway:
		return "a backend service is unavailable, please retry"
	case http.StatusConflict:
		return "the document is not ready for this action"
	case http.StatusInternalServerError:
		return "internal error"
	}
	return http.StatusText(status)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", chimiddleware.GetReqID(r.Context()),
		)
	})
}
