package server

import (
	"encoding/json"
	"net/http"

	"github.com/dharsanguruparan/loandrop/internal/finstmt"
	"github.com/dharsanguruparan/loandrop/internal/reviewform"
)

const maxFormBytes = 1 << 20

func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, form any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFormBytes))
	if err := dec.Decode(form); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := s.validator.Validate(form); err != nil {
		s.respondFailure(w, r, err)
		return false
	}
	return true
}

type financialStatementResponse struct {
	Totals      finstmt.Totals    `json:"totals"`
	Liabilities []string          `json:"liabilities"`
	Formatted   map[string]string `json:"formatted"`
}

func (s *Server) handleFinancialStatement(w http.ResponseWriter, r *http.Request) {
	var form reviewform.FinancialStatement
	if !s.decodeAndValidate(w, r, &form) {
		return
	}
	stmt := form.Statement()
	totals := finstmt.Recompute(stmt)
	respondJSON(w, http.StatusOK, financialStatementResponse{
		Totals:      totals,
		Liabilities: stmt.Liabilities,
		Formatted: map[string]string{
			"totalIncome":            finstmt.FormatWholeCurrency(totals.TotalIncome),
			"totalExpense":           finstmt.FormatWholeCurrency(totals.TotalExpense),
			"totalAssets":            finstmt.FormatWholeCurrency(totals.TotalAssets),
			"totalLiabilities":       finstmt.FormatWholeCurrency(totals.TotalLiabilities),
			"netWorth":               finstmt.FormatWholeCurrency(totals.NetWorth),
			"liabilitiesAndNetWorth": finstmt.FormatWholeCurrency(totals.LiabilitiesAndNetWorth),
		},
	})
}

func (s *Server) handleBusinessInfo(w http.ResponseWriter, r *http.Request) {
	var form reviewform.BusinessInfo
	if !s.decodeAndValidate(w, r, &form) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePersonalInfo(w http.ResponseWriter, r *http.Request) {
	var form reviewform.PersonalInfo
	if !s.decodeAndValidate(w, r, &form) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
