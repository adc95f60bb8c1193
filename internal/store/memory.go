package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Harshitk-cp/thoughtgraph/internal/domain"
	"github.com/Harshitk-cp/thoughtgraph/internal/embedding"
	"github.com/google/uuid"
)

var now = time.Now

// MemoryGraphStore is an in-process GraphStore. Statements live in one map
// keyed by ID; the indexes hold IDs only, never pointers into each other.
type MemoryGraphStore struct {
	mu          sync.RWMutex
	schema      domain.Schema
	statements  map[uuid.UUID]*domain.ExistingStatement
	byTriple    map[domain.Triple]uuid.UUID
	bySubject   map[domain.Identifier][]uuid.UUID
	byPredicate map[domain.Identifier][]uuid.UUID
	byObject    map[domain.Identifier][]uuid.UUID
	types       map[domain.Identifier]map[domain.Identifier]bool
}

func NewMemoryGraphStore(schema domain.Schema) *MemoryGraphStore {
	if schema.TypePredicate == "" {
		schema.TypePredicate = domain.DefaultTypePredicate
	}
	return &MemoryGraphStore{
		schema:      schema,
		statements:  make(map[uuid.UUID]*domain.ExistingStatement),
		byTriple:    make(map[domain.Triple]uuid.UUID),
		bySubject:   make(map[domain.Identifier][]uuid.UUID),
		byPredicate: make(map[domain.Identifier][]uuid.UUID),
		byObject:    make(map[domain.Identifier][]uuid.UUID),
		types:       make(map[domain.Identifier]map[domain.Identifier]bool),
	}
}

func (s *MemoryGraphStore) FindStatements(ctx context.Context, q domain.StatementQuery) ([]domain.ExistingStatement, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.Unavailable("find statements", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.ExistingStatement
	for _, id := range s.candidates(q) {
		st := s.statements[id]
		if !q.Matches(st.Triple) {
			continue
		}
		out = append(out, cloneStatement(st))
	}
	domain.SortStatements(out)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// candidates picks the narrowest index for q. Must be called with mu held.
func (s *MemoryGraphStore) candidates(q domain.StatementQuery) []uuid.UUID {
	if q.Subject != "" && q.Predicate != "" && q.Object != "" {
		if id, ok := s.byTriple[domain.Triple{Subject: q.Subject, Predicate: q.Predicate, Object: q.Object}]; ok {
			return []uuid.UUID{id}
		}
		return nil
	}

	var best []uuid.UUID
	picked := false
	consider := func(field domain.Identifier, index map[domain.Identifier][]uuid.UUID) {
		if field == "" {
			return
		}
		ids := index[field]
		if !picked || len(ids) < len(best) {
			best, picked = ids, true
		}
	}
	consider(q.Subject, s.bySubject)
	consider(q.Predicate, s.byPredicate)
	consider(q.Object, s.byObject)
	if picked {
		return best
	}

	all := make([]uuid.UUID, 0, len(s.statements))
	for id := range s.statements {
		all = append(all, id)
	}
	return all
}

func (s *MemoryGraphStore) FindTypes(ctx context.Context, entity domain.Identifier) ([]domain.Identifier, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.Unavailable("find types", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return sortedIDs(s.types[entity]), nil
}

func (s *MemoryGraphStore) Insert(ctx context.Context, c domain.CandidateStatement) (*domain.ExistingStatement, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.Unavailable("insert", err)
	}
	if err := c.Validate(); err != nil {
		return nil, domain.Integrity("insert", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.schema.Check(c.Triple, sortedIDs(s.types[c.Triple.Subject]), sortedIDs(s.types[c.Triple.Object])); err != nil {
		return nil, domain.Integrity("insert", err)
	}

	id, ok := s.byTriple[c.Triple]
	if !ok {
		id = uuid.New()
		s.statements[id] = &domain.ExistingStatement{ID: id, Triple: c.Triple, CreatedAt: now().UTC()}
		s.byTriple[c.Triple] = id
		s.bySubject[c.Triple.Subject] = append(s.bySubject[c.Triple.Subject], id)
		s.byPredicate[c.Triple.Predicate] = append(s.byPredicate[c.Triple.Predicate], id)
		s.byObject[c.Triple.Object] = append(s.byObject[c.Triple.Object], id)
	}
	st := s.statements[id]

	dup := false
	for _, a := range st.Assertions {
		if a.ID == c.ID {
			dup = true
			break
		}
	}
	if !dup {
		st.Assertions = append(st.Assertions, domain.Assertion{
			ID:          c.ID,
			Perspective: c.Perspective,
			Provenance:  c.Provenance,
		})
	}

	if s.schema.IsTypeAssertion(c) {
		if s.types[c.Triple.Subject] == nil {
			s.types[c.Triple.Subject] = make(map[domain.Identifier]bool)
		}
		s.types[c.Triple.Subject][c.Triple.Object] = true
	}

	out := cloneStatement(st)
	return &out, nil
}

// Len is the number of distinct triples held.
func (s *MemoryGraphStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.statements)
}

func cloneStatement(st *domain.ExistingStatement) domain.ExistingStatement {
	out := *st
	out.Assertions = append([]domain.Assertion(nil), st.Assertions...)
	return out
}

func sortedIDs(set map[domain.Identifier]bool) []domain.Identifier {
	if len(set) == 0 {
		return nil
	}
	out := make([]domain.Identifier, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

type labelRowKey struct {
	kind      domain.EntityKind
	canonical string
	id        domain.Identifier
}

// MemoryLabelStore keeps alias table rows in process and answers fuzzy
// lookups by brute-force cosine similarity.
type MemoryLabelStore struct {
	mu   sync.RWMutex
	rows map[labelRowKey]domain.LabelEntry
}

func NewMemoryLabelStore() *MemoryLabelStore {
	return &MemoryLabelStore{rows: make(map[labelRowKey]domain.LabelEntry)}
}

func (s *MemoryLabelStore) Upsert(ctx context.Context, e *domain.LabelEntry) error {
	if err := ctx.Err(); err != nil {
		return domain.Unavailable("upsert label", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := labelRowKey{kind: e.Kind, canonical: e.Canonical, id: e.ID}
	row := *e
	if prev, ok := s.rows[key]; ok {
		if len(row.Embedding) == 0 {
			row.Embedding = prev.Embedding
		}
		if prev.FirstSeen < row.FirstSeen {
			row.FirstSeen = prev.FirstSeen
		}
		if prev.Frequency > row.Frequency {
			row.Frequency = prev.Frequency
		}
		if prev.LastUsed > row.LastUsed {
			row.LastUsed = prev.LastUsed
		}
	}
	s.rows[key] = row
	return nil
}

func (s *MemoryLabelStore) List(ctx context.Context, kind domain.EntityKind) ([]domain.LabelEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.Unavailable("list labels", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.LabelEntry
	for k, row := range s.rows {
		if kind != "" && k.kind != kind {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FirstSeen != out[j].FirstSeen {
			return out[i].FirstSeen < out[j].FirstSeen
		}
		if out[i].Canonical != out[j].Canonical {
			return out[i].Canonical < out[j].Canonical
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryLabelStore) FindSimilar(ctx context.Context, kind domain.EntityKind, emb []float32, threshold float32, limit int) ([]domain.LabelMatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.Unavailable("find similar labels", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	best := make(map[domain.Identifier]domain.LabelMatch)
	for k, row := range s.rows {
		if k.kind != kind || len(row.Embedding) == 0 {
			continue
		}
		score := embedding.Cosine(emb, row.Embedding)
		if score < threshold {
			continue
		}
		if cur, ok := best[row.ID]; ok && (cur.Score > score || (cur.Score == score && cur.Canonical <= row.Canonical)) {
			continue
		}
		best[row.ID] = domain.LabelMatch{LabelEntry: row, Score: score}
	}

	out := make([]domain.LabelMatch, 0, len(best))
	for _, m := range best {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
