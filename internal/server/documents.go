package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dharsanguruparan/loandrop/internal/checklist"
	"github.com/dharsanguruparan/loandrop/internal/facade"
	"github.com/dharsanguruparan/loandrop/internal/identity"
	"github.com/dharsanguruparan/loandrop/internal/model"
)

func (s *Server) handleApplication(w http.ResponseWriter, r *http.Request) {
	app, err := s.application(r.Context(), chi.URLParam(r, "applicationId"))
	if err != nil {
		s.respondFailure(w, r, err)
		return
	}
	if !sameOrg(r, app.OrgName) {
		respondError(w, http.StatusNotFound, "not found")
		return
	}
	respondJSON(w, http.StatusOK, app)
}

type checklistSection struct {
	Rows    []checklist.Row   `json:"rows"`
	Summary checklist.Summary `json:"summary"`
}

func (s *Server) handleChecklist(w http.ResponseWriter, r *http.Request) {
	applicationID := chi.URLParam(r, "applicationId")
	id, _ := identity.FromContext(r.Context())
	sections, err := checklist.ListAndCategorize(r.Context(), orgDocuments{s.docs, id.OrgSlug}, applicationID)
	if err != nil {
		s.respondFailure(w, r, err)
		return
	}

	column := checklist.SortColumn(r.URL.Query().Get("sort"))
	desc := r.URL.Query().Get("dir") == "desc"
	section := func(rows []checklist.Row) checklistSection {
		return checklistSection{Rows: checklist.Sort(rows, column, desc), Summary: checklist.Summarize(rows)}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"applicationId": applicationID,
		"owner":         section(sections.Owner),
		"business":      section(sections.Business),
		"other":         section(sections.Other),
	})
}

// document loads a document and hides it from borrowers of other
// organizations.
func (s *Server) document(r *http.Request) (*model.Document, bool, error) {
	doc, err := s.docs.GetDocument(r.Context(), chi.URLParam(r, "documentId"))
	if err != nil {
		return nil, false, err
	}
	if !sameOrg(r, doc.OrgName) {
		return nil, false, nil
	}
	return doc, true, nil
}

// sameOrg reports whether a record owned by org is visible to the caller.
// Records without an owning organization are visible to everyone.
func sameOrg(r *http.Request, org string) bool {
	id, _ := identity.FromContext(r.Context())
	return org == "" || org == id.OrgSlug
}

// orgDocuments drops other organizations' documents from listings.
type orgDocuments struct {
	facade.DocumentService
	org string
}

func (d orgDocuments) ListDocumentsByParent(ctx context.Context, parentID string, page facade.Page) ([]model.Document, error) {
	list, err := d.DocumentService.ListDocumentsByParent(ctx, parentID, page)
	if err != nil {
		return nil, err
	}
	out := make([]model.Document, 0, len(list))
	for _, doc := range list {
		if doc.OrgName == "" || doc.OrgName == d.org {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	doc, visible, err := s.document(r)
	if err != nil {
		s.respondFailure(w, r, err)
		return
	}
	if !visible {
		respondError(w, http.StatusNotFound, "not found")
		return
	}
	respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDownloadURL(w http.ResponseWriter, r *http.Request) {
	doc, visible, err := s.document(r)
	if err != nil {
		s.respondFailure(w, r, err)
		return
	}
	if !visible {
		respondError(w, http.StatusNotFound, "not found")
		return
	}
	if !doc.HasFile() || doc.State == model.StatePending {
		respondError(w, http.StatusConflict, "document has no uploaded file yet")
		return
	}
	url, err := s.docs.GenerateDownloadURL(r.Context(), doc.ID)
	if err != nil {
		s.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"url": url})
}
