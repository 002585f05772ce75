package internal

import (
	"net/http"

	"arka-asset-api/internal/auth"
	"arka-asset-api/internal/models"

	"github.com/go-chi/chi/v5"
)

func (s *Server) listHandovers(w http.ResponseWriter, r *http.Request) {
	docs, err := s.Workflows.ListHandovers(r.Context())
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) createHandover(w http.ResponseWriter, r *http.Request) {
	var in struct {
		RequestID   string `json:"request_id"`
		RecipientID string `json:"recipient_id"`
	}
	if err := decodeJSON(r, &in); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	doc, err := s.Workflows.CreateHandover(r.Context(), auth.ActorFromContext(r.Context()), in.RequestID, in.RecipientID)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (s *Server) signHandover(w http.ResponseWriter, r *http.Request) {
	var in struct {
		AsRecipient bool `json:"as_recipient"`
	}
	if err := decodeJSON(r, &in); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	doc, err := s.Workflows.SignHandover(r.Context(), auth.ActorFromContext(r.Context()), chi.URLParam(r, "id"), in.AsRecipient)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) listDismantles(w http.ResponseWriter, r *http.Request) {
	docs, err := s.Workflows.ListDismantles(r.Context())
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

type siteJobRequest struct {
	CustomerID   string   `json:"customer_id"`
	CustomerName string   `json:"customer_name"`
	SiteLocation string   `json:"site_location"`
	AssetIDs     []string `json:"asset_ids"`
}

func (s *Server) createDismantle(w http.ResponseWriter, r *http.Request) {
	var in siteJobRequest
	if err := decodeJSON(r, &in); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	doc, err := s.Workflows.CreateDismantle(r.Context(), auth.ActorFromContext(r.Context()), in.CustomerID, in.CustomerName, in.SiteLocation, in.AssetIDs)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (s *Server) completeDismantle(w http.ResponseWriter, r *http.Request) {
	doc, err := s.Workflows.CompleteDismantle(r.Context(), auth.ActorFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) listInstallations(w http.ResponseWriter, r *http.Request) {
	docs, err := s.Workflows.ListInstallations(r.Context())
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) createInstallation(w http.ResponseWriter, r *http.Request) {
	var in siteJobRequest
	if err := decodeJSON(r, &in); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	doc, err := s.Workflows.CreateInstallation(r.Context(), auth.ActorFromContext(r.Context()), in.CustomerID, in.CustomerName, in.SiteLocation, in.AssetIDs)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (s *Server) completeInstallation(w http.ResponseWriter, r *http.Request) {
	doc, err := s.Workflows.CompleteInstallation(r.Context(), auth.ActorFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) listMaintenance(w http.ResponseWriter, r *http.Request) {
	docs, err := s.Workflows.ListMaintenance(r.Context())
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) reportRepair(w http.ResponseWriter, r *http.Request) {
	var in struct {
		AssetID string                 `json:"asset_id"`
		Kind    models.MaintenanceKind `json:"kind"`
		Problem string                 `json:"problem"`
	}
	if err := decodeJSON(r, &in); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	doc, err := s.Workflows.ReportRepair(r.Context(), auth.ActorFromContext(r.Context()), in.AssetID, in.Kind, in.Problem)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (s *Server) completeRepair(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Resolution string `json:"resolution"`
		Condition  string `json:"condition"`
		WriteOff   bool   `json:"write_off"`
	}
	if err := decodeJSON(r, &in); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	doc, err := s.Workflows.CompleteRepair(r.Context(), auth.ActorFromContext(r.Context()), chi.URLParam(r, "id"), in.Resolution, in.Condition, in.WriteOff)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}
