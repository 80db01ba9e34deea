package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dharsanguruparan/loandrop/internal/model"
)

func (s *Server) handleCreateApplication(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrgName string `json:"orgName"`
	}
	if err := decodeJSON(w, r, &req); err != nil || req.OrgName == "" {
		respondError(w, http.StatusBadRequest, "orgName is required")
		return
	}
	app := &model.Application{ID: s.newID(), OrgName: req.OrgName}
	if err := s.store.CreateApplication(r.Context(), app); err != nil {
		s.respondStoreError(w, r, "application", err)
		return
	}
	app.Documents = []model.DocumentRef{}
	s.logger.Info("application created", "application_id", app.ID, "org", app.OrgName)
	respondJSON(w, http.StatusCreated, app)
}

func (s *Server) handleGetApplication(w http.ResponseWriter, r *http.Request) {
	app, err := s.store.GetApplication(r.Context(), chi.URLParam(r, "applicationID"))
	if err != nil {
		s.respondStoreError(w, r, "application", err)
		return
	}
	respondJSON(w, http.StatusOK, app)
}
