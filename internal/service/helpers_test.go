package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Harshitk-cp/thoughtgraph/internal/domain"
	"github.com/Harshitk-cp/thoughtgraph/internal/store"
	"github.com/google/uuid"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// fakeGraphStore is an in-memory graph store with failure injection.
type fakeGraphStore struct {
	*store.MemoryGraphStore
	findErr    error
	typesErr   error
	insertErr  error
	typesPanic bool
	finds      atomic.Int64
}

func newFakeGraphStore() *fakeGraphStore {
	return &fakeGraphStore{MemoryGraphStore: store.NewMemoryGraphStore(domain.DefaultSchema())}
}

func (f *fakeGraphStore) FindStatements(ctx context.Context, q domain.StatementQuery) ([]domain.ExistingStatement, error) {
	f.finds.Add(1)
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.MemoryGraphStore.FindStatements(ctx, q)
}

func (f *fakeGraphStore) FindTypes(ctx context.Context, entity domain.Identifier) ([]domain.Identifier, error) {
	if f.typesPanic {
		panic("types exploded")
	}
	if f.typesErr != nil {
		return nil, f.typesErr
	}
	return f.MemoryGraphStore.FindTypes(ctx, entity)
}

func (f *fakeGraphStore) Insert(ctx context.Context, c domain.CandidateStatement) (*domain.ExistingStatement, error) {
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	return f.MemoryGraphStore.Insert(ctx, c)
}

func candidate(s, p, o, source string, at time.Time) domain.CandidateStatement {
	c, err := domain.NewCandidateStatement(uuid.Nil,
		domain.Triple{Subject: domain.Identifier(s), Predicate: domain.Identifier(p), Object: domain.Identifier(o)},
		domain.DefaultPerspective(),
		domain.Provenance{Source: domain.Identifier(source), Timestamp: at},
	)
	if err != nil {
		panic(err)
	}
	return c
}

func negated(c domain.CandidateStatement) domain.CandidateStatement {
	c.Perspective.Polarity = domain.PolarityNegated
	return c
}

func withPrior(c domain.CandidateStatement, prior float64) domain.CandidateStatement {
	c.Provenance.TrustPrior = &prior
	return c
}

func insertAll(t *testing.T, gs domain.GraphStore, cs ...domain.CandidateStatement) []*domain.ExistingStatement {
	t.Helper()
	out := make([]*domain.ExistingStatement, 0, len(cs))
	for _, c := range cs {
		st, err := gs.Insert(context.Background(), c)
		if err != nil {
			t.Fatalf("insert %s: %v", c.Triple, err)
		}
		out = append(out, st)
	}
	return out
}

func existing(s, p, o string, assertions ...domain.Assertion) domain.ExistingStatement {
	return domain.ExistingStatement{
		ID:         uuid.New(),
		Triple:     domain.Triple{Subject: domain.Identifier(s), Predicate: domain.Identifier(p), Object: domain.Identifier(o)},
		Assertions: assertions,
		CreatedAt:  t0,
	}
}

func assertion(source string, at time.Time, polarity domain.Polarity) domain.Assertion {
	p := domain.DefaultPerspective()
	p.Polarity = polarity
	return domain.Assertion{
		ID:          uuid.New(),
		Perspective: p,
		Provenance:  domain.Provenance{Source: domain.Identifier(source), Timestamp: at},
	}
}

func kinds(thoughts []domain.Thought) []domain.ThoughtKind {
	out := make([]domain.ThoughtKind, len(thoughts))
	for i, th := range thoughts {
		out[i] = th.Kind
	}
	return out
}
