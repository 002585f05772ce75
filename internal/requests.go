package internal

import (
	"net/http"
	"strings"

	"arka-asset-api/internal/auth"
	"arka-asset-api/internal/models"

	"github.com/go-chi/chi/v5"
)

// listRequests handles procurement request listing with an optional status filter
func (s *Server) listRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := s.Workflows.ListRequests(r.Context())
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	status := strings.TrimSpace(r.URL.Query().Get("status"))
	division := strings.TrimSpace(r.URL.Query().Get("division"))

	out := make([]models.Request, 0, len(requests))
	for _, req := range requests {
		if status != "" && string(req.Status) != status {
			continue
		}
		if division != "" && req.Division != division {
			continue
		}
		out = append(out, req)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getRequest(w http.ResponseWriter, r *http.Request) {
	req, err := s.Workflows.GetRequest(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (s *Server) createRequest(w http.ResponseWriter, r *http.Request) {
	var in models.CreateRequestInput
	if err := decodeJSON(r, &in); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	req, err := s.Workflows.CreateRequest(r.Context(), auth.ActorFromContext(r.Context()), in)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

func (s *Server) logisticApproval(w http.ResponseWriter, r *http.Request) {
	req, err := s.Workflows.SubmitLogisticApproval(r.Context(), auth.ActorFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (s *Server) reviseRequest(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Decisions []models.ItemDecision `json:"decisions"`
		Reason    string                `json:"reason,omitempty"`
	}
	if err := decodeJSON(r, &in); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	req, err := s.Workflows.ReviseOrReject(r.Context(), auth.ActorFromContext(r.Context()), chi.URLParam(r, "id"), in.Decisions, in.Reason)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (s *Server) submitForFinalApproval(w http.ResponseWriter, r *http.Request) {
	var in struct {
		PurchaseDetails map[string]models.PurchaseDetail `json:"purchase_details"`
	}
	if err := decodeJSON(r, &in); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	req, err := s.Workflows.SubmitForFinalApproval(r.Context(), auth.ActorFromContext(r.Context()), chi.URLParam(r, "id"), in.PurchaseDetails)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (s *Server) finalApprove(w http.ResponseWriter, r *http.Request) {
	req, err := s.Workflows.FinalApprove(r.Context(), auth.ActorFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (s *Server) startProcurement(w http.ResponseWriter, r *http.Request) {
	req, err := s.Workflows.StartProcurement(r.Context(), auth.ActorFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (s *Server) advanceDelivery(w http.ResponseWriter, r *http.Request) {
	req, err := s.Workflows.AdvanceDelivery(r.Context(), auth.ActorFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (s *Server) markArrived(w http.ResponseWriter, r *http.Request) {
	req, err := s.Workflows.MarkArrived(r.Context(), auth.ActorFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (s *Server) registerArrivedAssets(w http.ResponseWriter, r *http.Request) {
	var in struct {
		UnitsByItem map[string][]models.CreateAssetRequest `json:"units_by_item"`
	}
	if err := decodeJSON(r, &in); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	req, err := s.Workflows.RegisterArrivedAssets(r.Context(), auth.ActorFromContext(r.Context()), chi.URLParam(r, "id"), in.UnitsByItem)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (s *Server) cancelRequest(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Reason string `json:"reason"`
	}
	if err := decodeJSON(r, &in); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	req, err := s.Workflows.CancelRequest(r.Context(), auth.ActorFromContext(r.Context()), chi.URLParam(r, "id"), in.Reason)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// listComments returns the request discussion as a materialized thread
func (s *Server) listComments(w http.ResponseWriter, r *http.Request) {
	nodes, err := s.Workflows.RequestActivity(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nodes)
}

func (s *Server) addComment(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Message  string  `json:"message"`
		ParentID *string `json:"parent_id,omitempty"`
	}
	if err := decodeJSON(r, &in); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	entry, err := s.Workflows.AddComment(r.Context(), auth.ActorFromContext(r.Context()), chi.URLParam(r, "id"), in.Message, in.ParentID)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) editComment(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Message string `json:"message"`
	}
	if err := decodeJSON(r, &in); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	entry, err := s.Workflows.EditComment(r.Context(), auth.ActorFromContext(r.Context()), chi.URLParam(r, "id"), chi.URLParam(r, "entryID"), in.Message)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) deleteComment(w http.ResponseWriter, r *http.Request) {
	err := s.Workflows.DeleteComment(r.Context(), auth.ActorFromContext(r.Context()), chi.URLParam(r, "id"), chi.URLParam(r, "entryID"))
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
