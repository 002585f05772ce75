package internal

import (
	"net/http"
	"strings"

	"arka-asset-api/internal/auth"
	"arka-asset-api/internal/models"

	"github.com/go-chi/chi/v5"
)

// listAssets handles asset listing with optional status/category filters
func (s *Server) listAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := s.Workflows.ListAssets(r.Context())
	if err != nil {
		writeWorkflowError(w, err)
		return
	}

	status := strings.TrimSpace(r.URL.Query().Get("status"))
	category := strings.TrimSpace(r.URL.Query().Get("category"))
	q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))

	out := make([]models.Asset, 0, len(assets))
	for _, a := range assets {
		if status != "" && string(a.Status) != status {
			continue
		}
		if category != "" && a.Category != category {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(a.Type), q) &&
			!strings.Contains(strings.ToLower(a.ID), q) {
			continue
		}
		out = append(out, a)
	}
	writeJSON(w, http.StatusOK, out)
}

// getAsset handles getting a single asset by ID
func (s *Server) getAsset(w http.ResponseWriter, r *http.Request) {
	asset, err := s.Workflows.GetAsset(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, asset)
}

// getAssetActivity returns the asset's activity log
func (s *Server) getAssetActivity(w http.ResponseWriter, r *http.Request) {
	asset, err := s.Workflows.GetAsset(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, asset.ActivityLog)
}

// createAsset registers a single asset directly into storage
func (s *Server) createAsset(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAssetRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	asset, err := s.Workflows.RegisterAsset(r.Context(), auth.ActorFromContext(r.Context()), req)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, asset)
}

// updateAsset edits asset master data
func (s *Server) updateAsset(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateAssetRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	asset, err := s.Workflows.UpdateAsset(r.Context(), auth.ActorFromContext(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, asset)
}

// decommissionAsset retires an asset
func (s *Server) decommissionAsset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	asset, err := s.Workflows.DecommissionAsset(r.Context(), auth.ActorFromContext(r.Context()), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, asset)
}
