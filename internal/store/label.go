package store

import (
	"context"

	"github.com/Harshitk-cp/thoughtgraph/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
)

// LabelStore persists the alias table in Postgres with a pgvector embedding
// per row for fuzzy lookups.
type LabelStore struct {
	db *pgxpool.Pool
}

func NewLabelStore(db *pgxpool.Pool) *LabelStore {
	return &LabelStore{db: db}
}

func (s *LabelStore) Upsert(ctx context.Context, e *domain.LabelEntry) error {
	var emb *pgvector.Vector
	if len(e.Embedding) > 0 {
		v := pgvector.NewVector(e.Embedding)
		emb = &v
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO labels (kind, canonical, id, label, frequency, first_seen, last_used, embedding)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (kind, canonical, id) DO UPDATE
		 SET frequency = GREATEST(labels.frequency, EXCLUDED.frequency),
		     first_seen = LEAST(labels.first_seen, EXCLUDED.first_seen),
		     last_used = GREATEST(labels.last_used, EXCLUDED.last_used),
		     embedding = COALESCE(EXCLUDED.embedding, labels.embedding),
		     updated_at = NOW()`,
		string(e.Kind), e.Canonical, string(e.ID), e.Label, e.Frequency, e.FirstSeen, e.LastUsed, emb,
	)
	return classify("upsert label", err)
}

func (s *LabelStore) List(ctx context.Context, kind domain.EntityKind) ([]domain.LabelEntry, error) {
	rows, err := s.db.Query(ctx,
		`SELECT kind, canonical, id, label, frequency, first_seen, last_used
		 FROM labels
		 WHERE $1 = '' OR kind = $1
		 ORDER BY first_seen, canonical, id`,
		string(kind),
	)
	if err != nil {
		return nil, classify("list labels", err)
	}
	defer rows.Close()

	var entries []domain.LabelEntry
	for rows.Next() {
		var e domain.LabelEntry
		var k, id string
		if err := rows.Scan(&k, &e.Canonical, &id, &e.Label, &e.Frequency, &e.FirstSeen, &e.LastUsed); err != nil {
			return nil, classify("list labels", err)
		}
		e.Kind = domain.EntityKind(k)
		e.ID = domain.Identifier(id)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list labels", err)
	}
	return entries, nil
}

// FindSimilar returns the best row per identifier whose cosine similarity to
// embedding is at least threshold.
func (s *LabelStore) FindSimilar(ctx context.Context, kind domain.EntityKind, embedding []float32, threshold float32, limit int) ([]domain.LabelMatch, error) {
	if limit <= 0 {
		limit = 10
	}
	vec := pgvector.NewVector(embedding)

	rows, err := s.db.Query(ctx,
		`SELECT kind, canonical, id, label, frequency, first_seen, last_used, score
		 FROM (
		     SELECT DISTINCT ON (id) kind, canonical, id, label, frequency, first_seen, last_used,
		            1 - (embedding <=> $1) AS score
		     FROM labels
		     WHERE kind = $2 AND embedding IS NOT NULL AND 1 - (embedding <=> $1) >= $3
		     ORDER BY id, score DESC, canonical
		 ) best
		 ORDER BY score DESC, id
		 LIMIT $4`,
		vec, string(kind), threshold, limit,
	)
	if err != nil {
		return nil, classify("find similar labels", err)
	}
	defer rows.Close()

	var matches []domain.LabelMatch
	for rows.Next() {
		var m domain.LabelMatch
		var k, id string
		var score float64
		if err := rows.Scan(&k, &m.Canonical, &id, &m.Label, &m.Frequency, &m.FirstSeen, &m.LastUsed, &score); err != nil {
			return nil, classify("find similar labels", err)
		}
		m.Kind = domain.EntityKind(k)
		m.ID = domain.Identifier(id)
		m.Score = float32(score)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("find similar labels", err)
	}
	return matches, nil
}
