package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/Harshitk-cp/thoughtgraph/internal/domain"
	"github.com/Harshitk-cp/thoughtgraph/internal/service"
)

type ThoughtHandler struct {
	labels   *service.LabelService
	thoughts *service.ThoughtService
}

func NewThoughtHandler(labels *service.LabelService, thoughts *service.ThoughtService) *ThoughtHandler {
	return &ThoughtHandler{labels: labels, thoughts: thoughts}
}

type reasonRequest struct {
	domain.RawStatement
	// Commit inserts the statement after reasoning. The bundle always
	// reflects the graph before the insert.
	Commit bool `json:"commit,omitempty"`
}

type reasonResponse struct {
	Bundle    *domain.Bundle            `json:"bundle"`
	Stats     domain.BundleStats        `json:"stats"`
	Committed *domain.ExistingStatement `json:"committed,omitempty"`
}

func (h *ThoughtHandler) Reason(w http.ResponseWriter, r *http.Request) {
	var req reasonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	candidate, err := h.labels.NormalizeStatement(r.Context(), req.RawStatement)
	if err != nil {
		writeServiceError(w, err, "failed to normalize statement")
		return
	}

	bundle, err := h.thoughts.Reason(r.Context(), candidate)
	if err != nil {
		writeServiceError(w, err, "failed to reason over statement")
		return
	}

	resp := reasonResponse{Bundle: bundle, Stats: bundle.Stats()}
	if req.Commit {
		committed, err := h.thoughts.Commit(r.Context(), candidate)
		if err != nil {
			writeServiceError(w, err, "failed to commit statement")
			return
		}
		resp.Committed = committed
	}

	writeJSON(w, http.StatusOK, resp)
}
