package api

import (
	"fmt"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dharsanguruparan/loandrop/internal/facade"
	"github.com/dharsanguruparan/loandrop/internal/model"
	"github.com/dharsanguruparan/loandrop/internal/storage"
)

const maxPageSize = 500

func newID() string { return uuid.NewString() }

func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	var req facade.CreateDocumentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.ApplicationID == "" || req.OrgName == "" || req.OwnerUserID == "" {
		respondError(w, http.StatusBadRequest, "applicationId, orgName and ownerUserId are required")
		return
	}
	if req.Kind < model.KindUnspecified {
		respondError(w, http.StatusBadRequest, "invalid kind")
		return
	}
	ctx := r.Context()
	app, err := s.store.GetApplication(ctx, req.ApplicationID)
	if err != nil {
		s.respondStoreError(w, r, "application", err)
		return
	}
	if app.OrgName != req.OrgName {
		respondError(w, http.StatusForbidden, "application belongs to another organization")
		return
	}
	doc := &model.Document{
		ID:            s.newID(),
		ApplicationID: req.ApplicationID,
		OwnerUserID:   req.OwnerUserID,
		OrgName:       req.OrgName,
		Kind:          req.Kind,
		Description:   req.Description,
	}
	if err := s.store.CreateDocument(ctx, doc); err != nil {
		s.respondStoreError(w, r, "document", err)
		return
	}
	s.logger.Info("document created", "document_id", doc.ID, "application_id", doc.ApplicationID, "kind", int(doc.Kind))
	respondJSON(w, http.StatusCreated, map[string]string{"documentId": doc.ID})
}

func (s *Server) handlePresign(w http.ResponseWriter, r *http.Request) {
	var req facade.PresignRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	name := cleanFilename(req.Filename)
	if req.ApplicationID == "" || req.OrgName == "" || name == "" {
		respondError(w, http.StatusBadRequest, "applicationId, orgName and filename are required")
		return
	}
	if strings.Contains(req.ApplicationID, "/") || strings.Contains(req.OrgName, "/") {
		respondError(w, http.StatusBadRequest, "invalid applicationId or orgName")
		return
	}
	key := fmt.Sprintf("%s/%s/%s-%s", req.OrgName, req.ApplicationID, s.newID(), name)
	putURL, err := s.blobs.PresignPut(r.Context(), key, s.cfg.SignedURLTTL)
	if err != nil {
		s.logger.Error("presign put", "key", key, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to presign upload")
		return
	}
	respondJSON(w, http.StatusOK, facade.PresignedUpload{PutURL: putURL, StorageKey: key})
}

func (s *Server) handleRegisterUpload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "documentID")
	var req facade.RegisterUploadRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.Filename == "" || req.StorageKey == "" {
		respondError(w, http.StatusBadRequest, "filename and storageKey are required")
		return
	}
	ctx := r.Context()
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		s.respondStoreError(w, r, "document", err)
		return
	}
	// Keys are issued per org and application; refuse one minted for another.
	if !strings.HasPrefix(req.StorageKey, doc.OrgName+"/"+doc.ApplicationID+"/") {
		respondError(w, http.StatusBadRequest, "storageKey does not belong to this document's application")
		return
	}
	if doc.State == model.StateProcessing {
		respondError(w, http.StatusConflict, "document is processing")
		return
	}
	err = s.store.RegisterUpload(ctx, id, storage.Upload{
		Filename:   req.Filename,
		MimeType:   req.MimeType,
		StorageKey: req.StorageKey,
	})
	if err != nil {
		s.respondStoreError(w, r, "document", err)
		return
	}
	s.logger.Info("upload registered", "document_id", id, "storage_key", req.StorageKey)
	w.WriteHeader(http.StatusNoContent)
}

// handleProcess moves the document to processing before acknowledging, so a
// status read right after the 202 already reports processing.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "documentID")
	ctx := r.Context()
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		s.respondStoreError(w, r, "document", err)
		return
	}
	if doc.StorageKey == "" {
		respondError(w, http.StatusConflict, "document has no registered upload")
		return
	}
	if doc.State != model.StateProcessing {
		if err := s.store.MarkProcessing(ctx, id); err != nil {
			s.respondStoreError(w, r, "document", err)
			return
		}
	}
	if err := s.dispatcher.Dispatch(ctx, id); err != nil {
		s.logger.Error("dispatch processing", "document_id", id, "error", err)
		if markErr := s.store.MarkFailed(ctx, id, "dispatch: "+err.Error()); markErr != nil {
			s.logger.Error("mark failed", "document_id", id, "error", markErr)
		}
		respondError(w, http.StatusServiceUnavailable, "processing unavailable")
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{
		"documentId": id,
		"state":      string(model.StateProcessing),
	})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.store.GetDocument(r.Context(), chi.URLParam(r, "documentID"))
	if err != nil {
		s.respondStoreError(w, r, "document", err)
		return
	}
	respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDownloadURL(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	doc, err := s.store.GetDocument(ctx, chi.URLParam(r, "documentID"))
	if err != nil {
		s.respondStoreError(w, r, "document", err)
		return
	}
	if doc.StorageKey == "" {
		respondError(w, http.StatusConflict, "document has no file")
		return
	}
	u, err := s.blobs.PresignGet(ctx, doc.StorageKey, s.cfg.SignedURLTTL)
	if err != nil {
		s.logger.Error("presign get", "document_id", doc.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to generate url")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"url": u})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	appID := chi.URLParam(r, "applicationID")
	size, err := queryInt(r, "pageSize", facade.DefaultPageSize)
	if err != nil || size <= 0 || size > maxPageSize {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("pageSize must be between 1 and %d", maxPageSize))
		return
	}
	num, err := queryInt(r, "pageNum", 0)
	if err != nil || num < 0 {
		respondError(w, http.StatusBadRequest, "pageNum must be zero or positive")
		return
	}
	ctx := r.Context()
	if _, err := s.store.GetApplication(ctx, appID); err != nil {
		s.respondStoreError(w, r, "application", err)
		return
	}
	docs, err := s.store.ListByApplication(ctx, appID, size, num*size)
	if err != nil {
		s.respondStoreError(w, r, "documents", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string][]model.Document{"documents": docs})
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

// cleanFilename keeps the base name and drops characters that would split
// a storage key.
func cleanFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return strings.TrimSpace(name)
}
