package domain

import (
	"context"
)

// GraphStore is the boundary to the external graph store. It performs no
// reasoning. Every method may fail with ErrStoreUnavailable; Insert may also
// fail with ErrStoreIntegrity.
type GraphStore interface {
	FindStatements(ctx context.Context, q StatementQuery) ([]ExistingStatement, error)
	FindTypes(ctx context.Context, entity Identifier) ([]Identifier, error)
	Insert(ctx context.Context, c CandidateStatement) (*ExistingStatement, error)
}

// LabelEntry is one row of the alias table.
type LabelEntry struct {
	ID        Identifier `json:"id"`
	Kind      EntityKind `json:"kind"`
	Label     string     `json:"label"`
	Canonical string     `json:"canonical"`
	Frequency int        `json:"frequency"`
	FirstSeen int64      `json:"first_seen"`
	LastUsed  int64      `json:"last_used"`
	Embedding []float32  `json:"-"`
}

type LabelMatch struct {
	LabelEntry
	Score float32 `json:"score"`
}

// LabelStore persists normalizer entries and answers fuzzy lookups.
type LabelStore interface {
	Upsert(ctx context.Context, e *LabelEntry) error
	List(ctx context.Context, kind EntityKind) ([]LabelEntry, error)
	FindSimilar(ctx context.Context, kind EntityKind, embedding []float32, threshold float32, limit int) ([]LabelMatch, error)
}

type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// BundlePublisher ships finished bundles to telemetry.
type BundlePublisher interface {
	Publish(ctx context.Context, b *Bundle) error
}
