package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Harshitk-cp/thoughtgraph/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StatementStore is the Postgres GraphStore. A triple is one row in
// statements; every assertion of it is a row in statement_assertions.
type StatementStore struct {
	db     *pgxpool.Pool
	schema domain.Schema
}

func NewStatementStore(db *pgxpool.Pool, schema domain.Schema) *StatementStore {
	if schema.TypePredicate == "" {
		schema.TypePredicate = domain.DefaultTypePredicate
	}
	return &StatementStore{db: db, schema: schema}
}

func (s *StatementStore) FindStatements(ctx context.Context, q domain.StatementQuery) ([]domain.ExistingStatement, error) {
	var conditions []string
	var args []any

	if q.Subject != "" {
		args = append(args, string(q.Subject))
		conditions = append(conditions, fmt.Sprintf("subject = $%d", len(args)))
	}
	if q.Predicate != "" {
		args = append(args, string(q.Predicate))
		conditions = append(conditions, fmt.Sprintf("predicate = $%d", len(args)))
	}
	if q.Object != "" {
		args = append(args, string(q.Object))
		conditions = append(conditions, fmt.Sprintf("object = $%d", len(args)))
	}

	query := `SELECT id, subject, predicate, object, created_at FROM statements`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY subject, predicate, object, id"
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, classify("find statements", err)
	}
	defer rows.Close()

	var stmts []domain.ExistingStatement
	for rows.Next() {
		var st domain.ExistingStatement
		var subject, predicate, object string
		if err := rows.Scan(&st.ID, &subject, &predicate, &object, &st.CreatedAt); err != nil {
			return nil, classify("find statements", err)
		}
		st.Triple = domain.Triple{
			Subject:   domain.Identifier(subject),
			Predicate: domain.Identifier(predicate),
			Object:    domain.Identifier(object),
		}
		stmts = append(stmts, st)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("find statements", err)
	}
	if len(stmts) == 0 {
		return nil, nil
	}

	if err := s.attachAssertions(ctx, s.db, stmts); err != nil {
		return nil, classify("find statements", err)
	}
	return stmts, nil
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (s *StatementStore) attachAssertions(ctx context.Context, db queryer, stmts []domain.ExistingStatement) error {
	ids := make([]string, len(stmts))
	index := make(map[uuid.UUID]int, len(stmts))
	for i, st := range stmts {
		ids[i] = st.ID.String()
		index[st.ID] = i
	}

	rows, err := db.Query(ctx,
		`SELECT id, statement_id, confidence, sentiment, polarity, certainty, source, asserted_at, trust_prior
		 FROM statement_assertions
		 WHERE statement_id = ANY($1::uuid[])
		 ORDER BY seq`,
		ids,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var a domain.Assertion
		var statementID uuid.UUID
		var polarity, certainty, source string
		var assertedAt *time.Time
		if err := rows.Scan(&a.ID, &statementID, &a.Perspective.Confidence, &a.Perspective.Sentiment,
			&polarity, &certainty, &source, &assertedAt, &a.Provenance.TrustPrior); err != nil {
			return err
		}
		a.Perspective.Polarity = domain.Polarity(polarity)
		a.Perspective.Certainty = domain.Certainty(certainty)
		a.Provenance.Source = domain.Identifier(source)
		if assertedAt != nil {
			a.Provenance.Timestamp = assertedAt.UTC()
		}
		if i, ok := index[statementID]; ok {
			stmts[i].Assertions = append(stmts[i].Assertions, a)
		}
	}
	return rows.Err()
}

func (s *StatementStore) FindTypes(ctx context.Context, entity domain.Identifier) ([]domain.Identifier, error) {
	types, err := s.findTypes(ctx, s.db, entity)
	if err != nil {
		return nil, classify("find types", err)
	}
	return types, nil
}

func (s *StatementStore) findTypes(ctx context.Context, db queryer, entity domain.Identifier) ([]domain.Identifier, error) {
	rows, err := db.Query(ctx,
		`SELECT type FROM entity_types WHERE entity = $1 ORDER BY type`,
		string(entity),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var types []domain.Identifier
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		types = append(types, domain.Identifier(t))
	}
	return types, rows.Err()
}

// Insert upserts the triple and appends the candidate as an assertion in one
// transaction. Re-inserting the same candidate ID adds nothing.
func (s *StatementStore) Insert(ctx context.Context, c domain.CandidateStatement) (*domain.ExistingStatement, error) {
	if err := c.Validate(); err != nil {
		return nil, domain.Integrity("insert", err)
	}

	var st domain.ExistingStatement
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		subjectTypes, err := s.findTypes(ctx, tx, c.Triple.Subject)
		if err != nil {
			return err
		}
		objectTypes, err := s.findTypes(ctx, tx, c.Triple.Object)
		if err != nil {
			return err
		}
		if err := s.schema.Check(c.Triple, subjectTypes, objectTypes); err != nil {
			return domain.Integrity("insert", err)
		}

		err = tx.QueryRow(ctx,
			`INSERT INTO statements (subject, predicate, object)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (subject, predicate, object) DO UPDATE
			 SET subject = EXCLUDED.subject
			 RETURNING id, created_at`,
			string(c.Triple.Subject), string(c.Triple.Predicate), string(c.Triple.Object),
		).Scan(&st.ID, &st.CreatedAt)
		if err != nil {
			return err
		}
		st.Triple = c.Triple

		var assertedAt *time.Time
		if !c.Provenance.Timestamp.IsZero() {
			ts := c.Provenance.Timestamp.UTC()
			assertedAt = &ts
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO statement_assertions (id, statement_id, confidence, sentiment, polarity, certainty, source, asserted_at, trust_prior)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 ON CONFLICT (id) DO NOTHING`,
			c.ID, st.ID, c.Perspective.Confidence, c.Perspective.Sentiment,
			string(c.Perspective.Polarity), string(c.Perspective.Certainty),
			string(c.Provenance.Source), assertedAt, c.Provenance.TrustPrior,
		)
		if err != nil {
			return err
		}

		if s.schema.IsTypeAssertion(c) {
			_, err = tx.Exec(ctx,
				`INSERT INTO entity_types (entity, type)
				 VALUES ($1, $2)
				 ON CONFLICT (entity, type) DO NOTHING`,
				string(c.Triple.Subject), string(c.Triple.Object),
			)
			if err != nil {
				return err
			}
		}

		stmts := []domain.ExistingStatement{st}
		if err := s.attachAssertions(ctx, tx, stmts); err != nil {
			return err
		}
		st = stmts[0]
		return nil
	})
	if err != nil {
		return nil, classify("insert", err)
	}
	return &st, nil
}
