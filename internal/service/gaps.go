package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/Harshitk-cp/thoughtgraph/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultGapThreshold    = 0.3
	DefaultGapMinSupport   = 1
	DefaultGapMaxPerEntity = 5
)

// GapDetector reports predicates that most entities of a type carry but the
// candidate's subject or object does not. It is best effort: failures are
// logged and produce no gaps.
type GapDetector struct {
	graphStore    domain.GraphStore
	frequency     *FrequencyTable
	typePredicate domain.Identifier
	threshold     float64
	minSupport    int64
	maxPerEntity  int
	logger        *zap.Logger
}

func NewGapDetector(gs domain.GraphStore, ft *FrequencyTable, logger *zap.Logger) *GapDetector {
	return &GapDetector{
		graphStore:    gs,
		frequency:     ft,
		typePredicate: domain.DefaultTypePredicate,
		threshold:     DefaultGapThreshold,
		minSupport:    DefaultGapMinSupport,
		maxPerEntity:  DefaultGapMaxPerEntity,
		logger:        logger,
	}
}

func (d *GapDetector) SetThreshold(t float64) {
	if t > 0 && t <= 1 {
		d.threshold = t
	}
}

func (d *GapDetector) SetMinSupport(n int) {
	if n > 0 {
		d.minSupport = int64(n)
	}
}

func (d *GapDetector) SetMaxPerEntity(n int) {
	if n > 0 {
		d.maxPerEntity = n
	}
}

func (d *GapDetector) SetTypePredicate(p domain.Identifier) {
	if p != "" {
		d.typePredicate = p
	}
}

// Detect never returns an error. A panic inside is recovered and logged.
func (d *GapDetector) Detect(ctx context.Context, c domain.CandidateStatement) (thoughts []domain.Thought) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("gap detector panic",
				zap.String("candidate", c.ID.String()),
				zap.Any("panic", r))
			thoughts = nil
		}
	}()

	sub, err := d.detectFor(ctx, c, c.Triple.Subject, domain.GapSubject)
	if err != nil {
		d.logger.Warn("gap detection failed", zap.String("entity", string(c.Triple.Subject)), zap.Error(err))
		return nil
	}
	thoughts = append(thoughts, sub...)

	if c.Triple.Object != c.Triple.Subject {
		obj, err := d.detectFor(ctx, c, c.Triple.Object, domain.GapObject)
		if err != nil {
			d.logger.Warn("gap detection failed", zap.String("entity", string(c.Triple.Object)), zap.Error(err))
			return thoughts
		}
		thoughts = append(thoughts, obj...)
	}
	return thoughts
}

type gapCandidate struct {
	gap      domain.Gap
	evidence []uuid.UUID
}

func (d *GapDetector) detectFor(ctx context.Context, c domain.CandidateStatement, entity domain.Identifier, role domain.GapRole) ([]domain.Thought, error) {
	types, err := d.graphStore.FindTypes(ctx, entity)
	if err != nil {
		return nil, fmt.Errorf("find types: %w", err)
	}
	if len(types) == 0 {
		return nil, nil
	}

	stmts, err := d.graphStore.FindStatements(ctx, domain.StatementQuery{Subject: entity})
	if err != nil {
		return nil, fmt.Errorf("find statements: %w", err)
	}
	present := map[domain.Identifier]bool{d.typePredicate: true}
	typeEvidence := make(map[domain.Identifier][]uuid.UUID)
	for _, s := range stmts {
		present[s.Triple.Predicate] = true
		if s.Triple.Predicate == d.typePredicate {
			typeEvidence[s.Triple.Object] = append(typeEvidence[s.Triple.Object], s.ID)
		}
	}
	if role == domain.GapSubject {
		present[c.Triple.Predicate] = true
	}

	best := make(map[domain.Identifier]*gapCandidate)
	for _, t := range types {
		support := d.frequency.Support(t)
		if support < d.minSupport || support == 0 {
			continue
		}
		for _, pf := range d.frequency.Predicates(t) {
			if present[pf.Predicate] {
				continue
			}
			ratio := capRatio(float64(pf.Entities) / float64(support))
			if ratio < d.threshold {
				continue
			}
			g := domain.Gap{
				Entity:          entity,
				Role:            role,
				MissingRelation: pf.Predicate,
				ExpectedFrom:    t,
				Frequency:       ratio,
				Support:         int(support),
			}
			if cur, ok := best[pf.Predicate]; !ok || betterGap(g, cur.gap) {
				best[pf.Predicate] = &gapCandidate{gap: g, evidence: typeEvidence[t]}
			}
		}
	}

	ranked := make([]*gapCandidate, 0, len(best))
	for _, g := range best {
		ranked = append(ranked, g)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].gap.Frequency != ranked[j].gap.Frequency {
			return ranked[i].gap.Frequency > ranked[j].gap.Frequency
		}
		return ranked[i].gap.MissingRelation < ranked[j].gap.MissingRelation
	})
	if len(ranked) > d.maxPerEntity {
		ranked = ranked[:d.maxPerEntity]
	}

	out := make([]domain.Thought, 0, len(ranked))
	for _, g := range ranked {
		gap := g.gap
		out = append(out, domain.Thought{
			Kind:  domain.ThoughtGap,
			Trace: domain.Trace{Candidate: c.ID, Statements: g.evidence},
			Gap:   &gap,
		})
	}
	return out, nil
}

func betterGap(a, b domain.Gap) bool {
	if a.Frequency != b.Frequency {
		return a.Frequency > b.Frequency
	}
	if a.Support != b.Support {
		return a.Support > b.Support
	}
	return a.ExpectedFrom < b.ExpectedFrom
}
