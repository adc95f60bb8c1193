package service

import (
	"context"

	"github.com/Harshitk-cp/thoughtgraph/internal/domain"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ConflictCandidate is a conflict the matching engine found but did not
// resolve. Involved holds every statement whose assertions compete.
type ConflictCandidate struct {
	Kind        domain.ConflictKind
	Conflicting []domain.ExistingStatement
	Involved    []domain.ExistingStatement
}

// MatchResult is the matching engine's classification of one candidate.
type MatchResult struct {
	Identity   *domain.ExistingStatement
	Thoughts   []domain.Thought
	Conflicts  []ConflictCandidate
	SubjectNew bool
	ObjectNew  bool
}

// neighborhood is everything the engine reads from the store for one
// candidate.
type neighborhood struct {
	subjectPredicate []domain.ExistingStatement
	predicateObject  []domain.ExistingStatement
	subjectKnown     bool
	objectKnown      bool
}

// MatchingEngine classifies a candidate against the statements sharing its
// subject and predicate, or its predicate and object.
type MatchingEngine struct {
	graphStore  domain.GraphStore
	multiValued map[domain.Identifier]bool
}

func NewMatchingEngine(gs domain.GraphStore) *MatchingEngine {
	return &MatchingEngine{
		graphStore:  gs,
		multiValued: make(map[domain.Identifier]bool),
	}
}

// SetMultiValued lists predicates that may hold several objects per subject.
// They never raise cardinality conflicts.
func (e *MatchingEngine) SetMultiValued(predicates []domain.Identifier) {
	m := make(map[domain.Identifier]bool, len(predicates))
	for _, p := range predicates {
		m[p] = true
	}
	e.multiValued = m
}

func (e *MatchingEngine) IsMultiValued(p domain.Identifier) bool {
	return e.multiValued[p]
}

func (e *MatchingEngine) Match(ctx context.Context, c domain.CandidateStatement) (*MatchResult, error) {
	nb, err := e.fetch(ctx, c.Triple)
	if err != nil {
		return nil, err
	}
	return e.classify(c, nb), nil
}

// fetch issues the neighborhood reads concurrently. Store errors are
// returned as they are.
func (e *MatchingEngine) fetch(ctx context.Context, t domain.Triple) (*neighborhood, error) {
	var nb neighborhood
	var subjAsObj, objAsSubj, objAsObj bool

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stmts, err := e.graphStore.FindStatements(gctx, domain.StatementQuery{Subject: t.Subject, Predicate: t.Predicate})
		nb.subjectPredicate = stmts
		return err
	})
	g.Go(func() error {
		stmts, err := e.graphStore.FindStatements(gctx, domain.StatementQuery{Predicate: t.Predicate, Object: t.Object})
		nb.predicateObject = stmts
		return err
	})
	g.Go(func() error {
		ok, err := e.exists(gctx, domain.StatementQuery{Subject: t.Subject})
		nb.subjectKnown = ok
		return err
	})
	g.Go(func() error {
		ok, err := e.exists(gctx, domain.StatementQuery{Object: t.Subject})
		subjAsObj = ok
		return err
	})
	g.Go(func() error {
		ok, err := e.exists(gctx, domain.StatementQuery{Subject: t.Object})
		objAsSubj = ok
		return err
	})
	g.Go(func() error {
		ok, err := e.exists(gctx, domain.StatementQuery{Object: t.Object})
		objAsObj = ok
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	nb.subjectKnown = nb.subjectKnown || subjAsObj
	nb.objectKnown = objAsSubj || objAsObj
	return &nb, nil
}

func (e *MatchingEngine) exists(ctx context.Context, q domain.StatementQuery) (bool, error) {
	q.Limit = 1
	stmts, err := e.graphStore.FindStatements(ctx, q)
	if err != nil {
		return false, err
	}
	return len(stmts) > 0, nil
}

func (e *MatchingEngine) classify(c domain.CandidateStatement, nb *neighborhood) *MatchResult {
	res := &MatchResult{
		SubjectNew: !nb.subjectKnown,
		ObjectNew:  !nb.objectKnown,
	}
	polarity := c.Perspective.Polarity
	trace := func(stmts ...domain.ExistingStatement) domain.Trace {
		return domain.Trace{Candidate: c.ID, Statements: statementIDs(stmts)}
	}

	var exact *domain.ExistingStatement
	var others []domain.ExistingStatement
	for i := range nb.subjectPredicate {
		s := nb.subjectPredicate[i]
		if s.Triple == c.Triple {
			exact = &nb.subjectPredicate[i]
			continue
		}
		others = append(others, s)
	}

	// Identity wins over everything else.
	if exact != nil && exact.CountPolarity(polarity) > 0 {
		res.Identity = exact
		res.Thoughts = append(res.Thoughts, domain.Thought{
			Kind:  domain.ThoughtOverlap,
			Trace: trace(*exact),
			Overlap: &domain.Overlap{
				Kind:         domain.OverlapIdentity,
				SharedEntity: c.Triple.Subject,
				Matching:     []uuid.UUID{exact.ID},
				Multiplicity: exact.CountPolarity(polarity),
			},
		})
	} else {
		if exact != nil && len(exact.Assertions) > 0 {
			res.Conflicts = append(res.Conflicts, ConflictCandidate{
				Kind:        domain.ConflictNegation,
				Conflicting: []domain.ExistingStatement{*exact},
				Involved:    []domain.ExistingStatement{*exact},
			})
		}

		if polarity == domain.PolarityAffirmative && !e.multiValued[c.Triple.Predicate] {
			var rivals []domain.ExistingStatement
			for _, s := range others {
				if s.CountPolarity(domain.PolarityAffirmative) > 0 {
					rivals = append(rivals, s)
				}
			}
			if len(rivals) > 0 {
				involved := rivals
				if exact != nil {
					involved = append(append([]domain.ExistingStatement{}, rivals...), *exact)
					domain.SortStatements(involved)
				}
				// Cardinality goes first so the conflict order does not depend
				// on which kind was found first.
				res.Conflicts = append([]ConflictCandidate{{
					Kind:        domain.ConflictCardinality,
					Conflicting: rivals,
					Involved:    involved,
				}}, res.Conflicts...)
			}
		}

		if res.SubjectNew || res.ObjectNew || len(res.Conflicts) == 0 {
			res.Thoughts = append(res.Thoughts, domain.Thought{
				Kind:    domain.ThoughtNovelty,
				Trace:   trace(),
				Novelty: &domain.Novelty{SubjectNew: res.SubjectNew, ObjectNew: res.ObjectNew},
			})
		}
	}

	if e.multiValued[c.Triple.Predicate] {
		var same []domain.ExistingStatement
		for _, s := range others {
			if s.CountPolarity(polarity) > 0 {
				same = append(same, s)
			}
		}
		if len(same) > 0 {
			res.Thoughts = append(res.Thoughts, domain.Thought{
				Kind:  domain.ThoughtOverlap,
				Trace: trace(same...),
				Overlap: &domain.Overlap{
					Kind:         domain.OverlapSubject,
					SharedEntity: c.Triple.Subject,
					Matching:     statementIDs(same),
				},
			})
		}
	}

	var sharedObject []domain.ExistingStatement
	for _, s := range nb.predicateObject {
		if s.Triple.Subject != c.Triple.Subject && s.CountPolarity(polarity) > 0 {
			sharedObject = append(sharedObject, s)
		}
	}
	if len(sharedObject) > 0 {
		res.Thoughts = append(res.Thoughts, domain.Thought{
			Kind:  domain.ThoughtOverlap,
			Trace: trace(sharedObject...),
			Overlap: &domain.Overlap{
				Kind:         domain.OverlapObject,
				SharedEntity: c.Triple.Object,
				Matching:     statementIDs(sharedObject),
			},
		})
	}

	return res
}

func statementIDs(stmts []domain.ExistingStatement) []uuid.UUID {
	if len(stmts) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(stmts))
	for i, s := range stmts {
		ids[i] = s.ID
	}
	return ids
}
