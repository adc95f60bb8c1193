package store

import (
	"context"
	"sync"
	"time"

	"github.com/Harshitk-cp/thoughtgraph/internal/domain"
	gocache "github.com/patrickmn/go-cache"
)

const (
	DefaultTypeCacheTTL      = 5 * time.Minute
	typeCacheCleanupInterval = 10 * time.Minute
)

// CachedGraphStore caches FindTypes results in front of another GraphStore.
// A type assertion committed through it evicts the subject's entry, and a
// read that overlapped the eviction does not refill it.
type CachedGraphStore struct {
	next   domain.GraphStore
	schema domain.Schema
	types  *gocache.Cache

	mu          sync.Mutex
	generations map[domain.Identifier]uint64
}

func NewCachedGraphStore(next domain.GraphStore, schema domain.Schema, ttl time.Duration) *CachedGraphStore {
	if ttl <= 0 {
		ttl = DefaultTypeCacheTTL
	}
	if schema.TypePredicate == "" {
		schema.TypePredicate = domain.DefaultTypePredicate
	}
	return &CachedGraphStore{
		next:   next,
		schema: schema,
		types:  gocache.New(ttl, typeCacheCleanupInterval),

		generations: make(map[domain.Identifier]uint64),
	}
}

func (s *CachedGraphStore) FindStatements(ctx context.Context, q domain.StatementQuery) ([]domain.ExistingStatement, error) {
	return s.next.FindStatements(ctx, q)
}

func (s *CachedGraphStore) FindTypes(ctx context.Context, entity domain.Identifier) ([]domain.Identifier, error) {
	if v, found := s.types.Get(string(entity)); found {
		return append([]domain.Identifier(nil), v.([]domain.Identifier)...), nil
	}
	gen := s.generation(entity)
	types, err := s.next.FindTypes(ctx, entity)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.generations[entity] == gen {
		s.types.SetDefault(string(entity), append([]domain.Identifier(nil), types...))
	}
	s.mu.Unlock()
	return types, nil
}

func (s *CachedGraphStore) Insert(ctx context.Context, c domain.CandidateStatement) (*domain.ExistingStatement, error) {
	st, err := s.next.Insert(ctx, c)
	if err != nil {
		return nil, err
	}
	if s.schema.IsTypeAssertion(c) {
		s.mu.Lock()
		s.generations[c.Triple.Subject]++
		s.types.Delete(string(c.Triple.Subject))
		s.mu.Unlock()
	}
	return st, nil
}

func (s *CachedGraphStore) generation(entity domain.Identifier) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[entity]
}

// CachedEntities is the number of entities with a cached type set.
func (s *CachedGraphStore) CachedEntities() int {
	return s.types.ItemCount()
}
