package internal

import (
	"encoding/json"
	"errors"
	"net/http"

	"arka-asset-api/internal/workflow"
)

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// writeWorkflowError maps the core error taxonomy onto HTTP statuses. The
// conflict payload carries the conflicting entity ids so the client can act
// on them.
func writeWorkflowError(w http.ResponseWriter, err error) {
	var ve *workflow.ValidationError
	var ce *workflow.ConflictError
	var ne *workflow.NotFoundError
	var fe *workflow.ForbiddenError
	var ie *workflow.InvariantError

	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error": ve.Error(),
			"code":  "VALIDATION_FAILED",
		})
	case errors.As(err, &ce):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":        ce.Error(),
			"code":         "CONFLICT",
			"conflict_ids": ce.EntityIDs,
		})
	case errors.As(err, &ne):
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error": ne.Error(),
			"code":  "NOT_FOUND",
		})
	case errors.As(err, &fe):
		writeJSON(w, http.StatusForbidden, map[string]any{
			"error": fe.Error(),
			"code":  "INSUFFICIENT_PERMISSIONS",
		})
	case errors.As(err, &ie):
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error": ie.Error(),
			"code":  "INVARIANT_VIOLATION",
		})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error": err.Error(),
			"code":  "INTERNAL",
		})
	}
}

// decodeJSON reads the request body into v.
func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
