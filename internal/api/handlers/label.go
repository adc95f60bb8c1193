package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/Harshitk-cp/thoughtgraph/internal/domain"
	"github.com/Harshitk-cp/thoughtgraph/internal/service"
)

type LabelHandler struct {
	labels *service.LabelService
}

func NewLabelHandler(labels *service.LabelService) *LabelHandler {
	return &LabelHandler{labels: labels}
}

type normalizeRequest struct {
	Label    string `json:"label"`
	Kind     string `json:"kind,omitempty"`
	TieBreak string `json:"tie_break,omitempty"`
}

type normalizeResponse struct {
	Label     string            `json:"label"`
	Canonical string            `json:"canonical"`
	Kind      domain.EntityKind `json:"kind"`
	ID        domain.Identifier `json:"id"`
}

func (h *LabelHandler) Normalize(w http.ResponseWriter, r *http.Request) {
	var req normalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	kind := domain.KindEntity
	if req.Kind != "" {
		if !domain.ValidEntityKind(req.Kind) {
			writeError(w, http.StatusBadRequest, service.ErrInvalidKind.Error())
			return
		}
		kind = domain.EntityKind(req.Kind)
	}
	rule := h.labels.Normalizer().Rule()
	if req.TieBreak != "" {
		if !service.ValidTieBreak(req.TieBreak) {
			writeError(w, http.StatusBadRequest, service.ErrInvalidTieBreak.Error())
			return
		}
		rule = service.TieBreak(req.TieBreak)
	}

	id, err := h.labels.NormalizeWith(r.Context(), req.Label, kind, rule)
	if err != nil {
		writeServiceError(w, err, "failed to normalize label")
		return
	}

	writeJSON(w, http.StatusOK, normalizeResponse{
		Label:     req.Label,
		Canonical: service.Canonicalize(req.Label),
		Kind:      kind,
		ID:        id,
	})
}

type listLabelsResponse struct {
	Labels []domain.LabelEntry `json:"labels"`
	Count  int                 `json:"count"`
}

func (h *LabelHandler) List(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	if kind != "" && !domain.ValidEntityKind(kind) {
		writeError(w, http.StatusBadRequest, service.ErrInvalidKind.Error())
		return
	}

	entries := h.labels.Entries(domain.EntityKind(kind))
	if entries == nil {
		entries = []domain.LabelEntry{}
	}
	writeJSON(w, http.StatusOK, listLabelsResponse{Labels: entries, Count: len(entries)})
}
