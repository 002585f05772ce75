package internal

import (
	"net/http"
	"strings"

	"arka-asset-api/internal/auth"
	"arka-asset-api/internal/models"

	"github.com/go-chi/chi/v5"
)

func (s *Server) listLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := s.Workflows.ListLoans(r.Context())
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	status := strings.TrimSpace(r.URL.Query().Get("status"))
	if status == "" {
		writeJSON(w, http.StatusOK, loans)
		return
	}
	out := make([]models.LoanRequest, 0, len(loans))
	for _, l := range loans {
		if string(l.Status) == status {
			out = append(out, l)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getLoan(w http.ResponseWriter, r *http.Request) {
	loan, err := s.Workflows.GetLoan(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

func (s *Server) createLoan(w http.ResponseWriter, r *http.Request) {
	var in models.CreateLoanInput
	if err := decodeJSON(r, &in); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	loan, err := s.Workflows.CreateLoan(r.Context(), auth.ActorFromContext(r.Context()), in)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, loan)
}

// approveLoan either assigns concrete ledger units to every item or rejects
// the whole request. Assignment is all or nothing.
func (s *Server) approveLoan(w http.ResponseWriter, r *http.Request) {
	var in struct {
		AssignedAssetIDs map[string][]string          `json:"assigned_asset_ids"`
		ItemStatuses     map[string]models.ItemStatus `json:"item_statuses"`
	}
	if err := decodeJSON(r, &in); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	loan, err := s.Workflows.ApproveLoan(r.Context(), auth.ActorFromContext(r.Context()), chi.URLParam(r, "id"), in.AssignedAssetIDs, in.ItemStatuses)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

func (s *Server) markOnLoan(w http.ResponseWriter, r *http.Request) {
	loan, err := s.Workflows.MarkOnLoan(r.Context(), auth.ActorFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

func (s *Server) initiateReturn(w http.ResponseWriter, r *http.Request) {
	var in struct {
		AssetIDs []string `json:"asset_ids,omitempty"`
	}
	if err := decodeJSON(r, &in); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	docs, err := s.Workflows.InitiateReturn(r.Context(), auth.ActorFromContext(r.Context()), chi.URLParam(r, "id"), in.AssetIDs)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, docs)
}

func (s *Server) listReturns(w http.ResponseWriter, r *http.Request) {
	docs, err := s.Workflows.ListReturns(r.Context())
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	loanID := strings.TrimSpace(r.URL.Query().Get("loan_id"))
	if loanID == "" {
		writeJSON(w, http.StatusOK, docs)
		return
	}
	out := make([]models.AssetReturn, 0, len(docs))
	for _, d := range docs {
		if d.LoanID == loanID {
			out = append(out, d)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) confirmReturn(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Condition string `json:"condition"`
	}
	if err := decodeJSON(r, &in); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	doc, err := s.Workflows.ConfirmReturn(r.Context(), auth.ActorFromContext(r.Context()), chi.URLParam(r, "id"), in.Condition)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) rejectReturn(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Reason string `json:"reason"`
	}
	if err := decodeJSON(r, &in); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	doc, err := s.Workflows.RejectReturn(r.Context(), auth.ActorFromContext(r.Context()), chi.URLParam(r, "id"), in.Reason)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}
