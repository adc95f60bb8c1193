package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Harshitk-cp/thoughtgraph/internal/domain"
	"github.com/Harshitk-cp/thoughtgraph/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type ambiguityResponse struct {
	Error      string              `json:"error"`
	Label      string              `json:"label"`
	Kind       domain.EntityKind   `json:"kind"`
	Candidates []domain.Identifier `json:"candidates"`
}

// writeServiceError maps the error taxonomy onto status codes. Unknown errors
// become 500 with the fallback message.
func writeServiceError(w http.ResponseWriter, err error, fallback string) {
	var ambiguous *domain.AmbiguousLabelError
	switch {
	case errors.As(err, &ambiguous):
		writeJSON(w, http.StatusConflict, ambiguityResponse{
			Error:      err.Error(),
			Label:      ambiguous.Label,
			Kind:       ambiguous.Kind,
			Candidates: ambiguous.Candidates,
		})
	case errors.Is(err, service.ErrInvalidStatement),
		errors.Is(err, service.ErrLabelEmpty),
		errors.Is(err, service.ErrInvalidKind),
		errors.Is(err, service.ErrInvalidTieBreak):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrStoreIntegrity):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "graph store unavailable")
	default:
		writeError(w, http.StatusInternalServerError, fallback)
	}
}
