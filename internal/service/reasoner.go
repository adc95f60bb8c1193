package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Harshitk-cp/thoughtgraph/internal/domain"
	"go.uber.org/zap"
)

// ReasonMetrics receives one observation per reasoning or commit call.
type ReasonMetrics interface {
	ObserveReason(b *domain.Bundle, d time.Duration, err error)
	ObserveCommit(d time.Duration, err error)
}

// ReasonerConfig carries the tunables of the reasoning pipeline.
type ReasonerConfig struct {
	TypePredicate   domain.Identifier
	MultiValued     []domain.Identifier
	TrustHalfLife   time.Duration
	ConflictMargin  float64
	SourceTrust     map[domain.Identifier]float64
	GapThreshold    float64
	GapMinSupport   int
	GapMaxPerEntity int
}

func DefaultReasonerConfig() ReasonerConfig {
	return ReasonerConfig{
		TypePredicate:   domain.DefaultTypePredicate,
		GapThreshold:    DefaultGapThreshold,
		GapMinSupport:   DefaultGapMinSupport,
		GapMaxPerEntity: DefaultGapMaxPerEntity,
	}
}

// ThoughtService runs the reasoning pipeline for one candidate at a time and
// commits candidates on request. The frequency table is the only state it
// shares between calls.
type ThoughtService struct {
	cfg           ReasonerConfig
	graphStore    domain.GraphStore
	matcher       *MatchingEngine
	resolver      *TrustResolver
	gaps          *GapDetector
	frequency     *FrequencyTable
	typePredicate domain.Identifier
	publisher     domain.BundlePublisher
	metrics       ReasonMetrics
	logger        *zap.Logger
}

func NewThoughtService(gs domain.GraphStore, cfg ReasonerConfig, logger *zap.Logger) *ThoughtService {
	if cfg.TypePredicate == "" {
		cfg.TypePredicate = domain.DefaultTypePredicate
	}

	matcher := NewMatchingEngine(gs)
	matcher.SetMultiValued(cfg.MultiValued)

	resolver := NewTrustResolver()
	resolver.SetHalfLife(cfg.TrustHalfLife)
	resolver.SetMargin(cfg.ConflictMargin)
	resolver.SetSourceTrust(cfg.SourceTrust)

	ft := NewFrequencyTable()
	gaps := NewGapDetector(gs, ft, logger)
	gaps.SetTypePredicate(cfg.TypePredicate)
	gaps.SetThreshold(cfg.GapThreshold)
	gaps.SetMinSupport(cfg.GapMinSupport)
	gaps.SetMaxPerEntity(cfg.GapMaxPerEntity)

	return &ThoughtService{
		cfg:           cfg,
		graphStore:    gs,
		matcher:       matcher,
		resolver:      resolver,
		gaps:          gaps,
		frequency:     ft,
		typePredicate: cfg.TypePredicate,
		logger:        logger,
	}
}

func (s *ThoughtService) SetPublisher(p domain.BundlePublisher) {
	s.publisher = p
}

func (s *ThoughtService) SetMetrics(m ReasonMetrics) {
	s.metrics = m
}

// Config returns the settings the service was built with.
func (s *ThoughtService) Config() ReasonerConfig {
	return s.cfg
}

func (s *ThoughtService) Frequency() *FrequencyTable {
	return s.frequency
}

// Reason classifies c against the graph and returns its thought bundle. It
// does not write to the store. Store errors from the matching engine are
// returned unchanged.
func (s *ThoughtService) Reason(ctx context.Context, c domain.CandidateStatement) (*domain.Bundle, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidStatement, err)
	}
	start := timeNow()

	match, err := s.matcher.Match(ctx, c)
	if err != nil {
		s.logger.Warn("matching failed",
			zap.String("candidate", c.ID.String()),
			zap.String("triple", c.Triple.String()),
			zap.Error(err))
		if s.metrics != nil {
			s.metrics.ObserveReason(nil, timeNow().Sub(start), err)
		}
		return nil, err
	}

	thoughts := append([]domain.Thought{}, match.Thoughts...)
	for _, cc := range match.Conflicts {
		conflict, trusts, traces := s.resolver.Resolve(c, cc)
		thoughts = append(thoughts, domain.Thought{
			Kind:     domain.ThoughtConflict,
			Trace:    domain.Trace{Candidate: c.ID, Statements: conflict.Conflicting},
			Conflict: &conflict,
		})
		for i := range trusts {
			thoughts = append(thoughts, domain.Thought{
				Kind:  domain.ThoughtTrust,
				Trace: domain.Trace{Candidate: c.ID, Statements: traces[i]},
				Trust: &trusts[i],
			})
		}
	}
	thoughts = append(thoughts, s.gaps.Detect(ctx, c)...)

	bundle := Aggregate(c, thoughts...)
	elapsed := timeNow().Sub(start)

	stats := bundle.Stats()
	s.logger.Debug("reasoned over candidate",
		zap.String("candidate", c.ID.String()),
		zap.String("triple", c.Triple.String()),
		zap.Int("thoughts", len(bundle.Thoughts)),
		zap.Bool("subject_new", stats.SubjectNew),
		zap.Bool("object_new", stats.ObjectNew),
		zap.Int("identity_overlaps", stats.IdentityOverlaps),
		zap.Int("cardinality_conflicts", stats.CardinalityConflicts),
		zap.Int("negation_conflicts", stats.NegationConflicts),
		zap.Int("gaps", stats.SubjectGaps+stats.ObjectGaps),
		zap.Duration("elapsed", elapsed))

	if s.metrics != nil {
		s.metrics.ObserveReason(bundle, elapsed, nil)
	}
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, bundle); err != nil {
			s.logger.Warn("failed to publish bundle", zap.String("candidate", c.ID.String()), zap.Error(err))
		}
	}
	return bundle, nil
}

// Commit inserts c through the graph store and feeds the frequency table.
// It is independent of Reason: nothing ties a commit to an earlier bundle.
func (s *ThoughtService) Commit(ctx context.Context, c domain.CandidateStatement) (*domain.ExistingStatement, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidStatement, err)
	}
	start := timeNow()

	stmt, err := s.graphStore.Insert(ctx, c)
	if s.metrics != nil {
		s.metrics.ObserveCommit(timeNow().Sub(start), err)
	}
	if err != nil {
		s.logger.Warn("commit failed",
			zap.String("candidate", c.ID.String()),
			zap.String("triple", c.Triple.String()),
			zap.Error(err))
		return nil, err
	}

	if c.Perspective.Polarity == domain.PolarityAffirmative {
		s.observe(c.Triple)
	}
	s.logger.Debug("committed statement",
		zap.String("statement", stmt.ID.String()),
		zap.String("triple", stmt.Triple.String()),
		zap.Int("assertions", len(stmt.Assertions)))
	return stmt, nil
}

// WarmStatistics rebuilds the frequency table from one scan of the store.
// Call it once at startup, before serving.
func (s *ThoughtService) WarmStatistics(ctx context.Context) error {
	stmts, err := s.graphStore.FindStatements(ctx, domain.StatementQuery{})
	if err != nil {
		return fmt.Errorf("scan statements: %w", err)
	}
	n := 0
	for _, st := range stmts {
		if st.CountPolarity(domain.PolarityAffirmative) == 0 {
			continue
		}
		s.observe(st.Triple)
		n++
	}
	s.logger.Info("frequency table warmed",
		zap.Int("statements", n),
		zap.Int("types", len(s.frequency.Snapshot())))
	return nil
}

func (s *ThoughtService) observe(t domain.Triple) {
	if t.Predicate == s.typePredicate {
		s.frequency.ObserveType(t.Subject, t.Object)
		return
	}
	s.frequency.ObservePredicate(t.Subject, t.Predicate)
}
