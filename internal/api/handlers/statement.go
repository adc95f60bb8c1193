package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/Harshitk-cp/thoughtgraph/internal/domain"
	"github.com/Harshitk-cp/thoughtgraph/internal/service"
	"github.com/go-chi/chi/v5"
)

const maxStatementLimit = 1000

type StatementHandler struct {
	labels     *service.LabelService
	thoughts   *service.ThoughtService
	graphStore domain.GraphStore
}

func NewStatementHandler(labels *service.LabelService, thoughts *service.ThoughtService, gs domain.GraphStore) *StatementHandler {
	return &StatementHandler{labels: labels, thoughts: thoughts, graphStore: gs}
}

func (h *StatementHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.RawStatement
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	candidate, err := h.labels.NormalizeStatement(r.Context(), req)
	if err != nil {
		writeServiceError(w, err, "failed to normalize statement")
		return
	}

	stmt, err := h.thoughts.Commit(r.Context(), candidate)
	if err != nil {
		writeServiceError(w, err, "failed to commit statement")
		return
	}

	writeJSON(w, http.StatusCreated, stmt)
}

type listStatementsResponse struct {
	Statements []domain.ExistingStatement `json:"statements"`
	Count      int                        `json:"count"`
}

// List passes subject, predicate and object identifiers straight to the
// graph store.
func (h *StatementHandler) List(w http.ResponseWriter, r *http.Request) {
	q := domain.StatementQuery{
		Subject:   domain.Identifier(r.URL.Query().Get("subject")),
		Predicate: domain.Identifier(r.URL.Query().Get("predicate")),
		Object:    domain.Identifier(r.URL.Query().Get("object")),
		Limit:     100,
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		q.Limit = min(n, maxStatementLimit)
	}

	stmts, err := h.graphStore.FindStatements(r.Context(), q)
	if err != nil {
		writeServiceError(w, err, "failed to list statements")
		return
	}
	if stmts == nil {
		stmts = []domain.ExistingStatement{}
	}

	writeJSON(w, http.StatusOK, listStatementsResponse{Statements: stmts, Count: len(stmts)})
}

type entityTypesResponse struct {
	Entity domain.Identifier   `json:"entity"`
	Types  []domain.Identifier `json:"types"`
}

func (h *StatementHandler) Types(w http.ResponseWriter, r *http.Request) {
	entity := domain.Identifier(chi.URLParam(r, "id"))
	if entity == "" {
		writeError(w, http.StatusBadRequest, "invalid entity id")
		return
	}

	types, err := h.graphStore.FindTypes(r.Context(), entity)
	if err != nil {
		writeServiceError(w, err, "failed to find types")
		return
	}
	if types == nil {
		types = []domain.Identifier{}
	}

	writeJSON(w, http.StatusOK, entityTypesResponse{Entity: entity, Types: types})
}
