package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Harshitk-cp/thoughtgraph/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrInvalidStatement = errors.New("invalid statement")

const (
	// DefaultLabelSimilarityThreshold is the minimum embedding similarity for
	// a fuzzy label match.
	DefaultLabelSimilarityThreshold float32 = 0.75
	// minFuzzyLabelLength keeps short labels out of fuzzy matching. Short
	// names that differ by one letter (Louis, Louise) are usually different
	// names, not typos.
	minFuzzyLabelLength = 8
	// fuzzyCandidates is how many similar rows are checked against the edit
	// budget.
	fuzzyCandidates = 5
)

var timeNow = time.Now

// SourceIdentifier turns a provenance label into a source identifier.
// Sources are not aliased: the same canonical label is always the same source.
func SourceIdentifier(label string) domain.Identifier {
	c := Canonicalize(label)
	if c == "" {
		return ""
	}
	return domain.Identifier("source:" + c)
}

// LabelService resolves labels through the alias table, falling back to a
// fuzzy lookup in the label store before minting a new identifier.
type LabelService struct {
	normalizer      *Normalizer
	labelStore      domain.LabelStore
	embeddingClient domain.EmbeddingClient
	threshold       float32
	typePredicate   domain.Identifier
	logger          *zap.Logger
}

func NewLabelService(n *Normalizer, logger *zap.Logger) *LabelService {
	return &LabelService{
		normalizer:    n,
		threshold:     DefaultLabelSimilarityThreshold,
		typePredicate: domain.DefaultTypePredicate,
		logger:        logger,
	}
}

func (s *LabelService) SetLabelStore(ls domain.LabelStore) {
	s.labelStore = ls
}

func (s *LabelService) SetEmbeddingClient(ec domain.EmbeddingClient) {
	s.embeddingClient = ec
}

func (s *LabelService) SetSimilarityThreshold(t float32) {
	if t > 0 && t <= 1 {
		s.threshold = t
	}
}

func (s *LabelService) SetTypePredicate(p domain.Identifier) {
	if p != "" {
		s.typePredicate = p
	}
}

func (s *LabelService) Normalizer() *Normalizer {
	return s.normalizer
}

// Warm restores the alias table from the label store.
func (s *LabelService) Warm(ctx context.Context) error {
	if s.labelStore == nil {
		return nil
	}
	entries, err := s.labelStore.List(ctx, "")
	if err != nil {
		return fmt.Errorf("list labels: %w", err)
	}
	s.normalizer.Restore(entries)
	s.logger.Info("alias table restored", zap.Int("entries", len(entries)))
	return nil
}

// Seed applies an alias table and persists the resulting rows.
func (s *LabelService) Seed(ctx context.Context, t *AliasTable) error {
	if err := s.normalizer.Apply(t); err != nil {
		return err
	}
	if t == nil {
		return nil
	}
	for _, p := range t.pairs() {
		s.persist(ctx, p.label, p.kind, p.id, true)
	}
	return nil
}

func (s *LabelService) Normalize(ctx context.Context, label string, kind domain.EntityKind) (domain.Identifier, error) {
	return s.NormalizeWith(ctx, label, kind, s.normalizer.Rule())
}

// NormalizeWith resolves label using rule for ambiguous labels. Resolution
// order is alias table, fuzzy match, then mint.
func (s *LabelService) NormalizeWith(ctx context.Context, label string, kind domain.EntityKind, rule TieBreak) (domain.Identifier, error) {
	id, ok, err := s.normalizer.Lookup(label, kind, rule)
	if err != nil {
		return "", err
	}
	if ok {
		s.persist(ctx, label, kind, id, false)
		return id, nil
	}

	if match, ok := s.fuzzy(ctx, label, kind); ok {
		if _, err := s.normalizer.Alias(label, kind, match.ID); err != nil {
			return "", err
		}
		id, _, err := s.normalizer.Lookup(label, kind, rule)
		if err != nil {
			return "", err
		}
		s.logger.Debug("fuzzy label match",
			zap.String("label", label),
			zap.String("matched", match.Label),
			zap.String("id", string(id)),
			zap.Float32("score", match.Score))
		s.persist(ctx, label, kind, id, true)
		return id, nil
	}

	id, created, err := s.normalizer.Mint(label, kind)
	if err != nil {
		return "", err
	}
	s.persist(ctx, label, kind, id, created)
	return id, nil
}

// fuzzy is best-effort: failures are logged and treated as no match.
func (s *LabelService) fuzzy(ctx context.Context, label string, kind domain.EntityKind) (domain.LabelMatch, bool) {
	if s.labelStore == nil || s.embeddingClient == nil {
		return domain.LabelMatch{}, false
	}
	canonical := Canonicalize(label)
	if len([]rune(canonical)) < minFuzzyLabelLength {
		return domain.LabelMatch{}, false
	}

	emb, err := s.embeddingClient.Embed(ctx, canonical)
	if err != nil {
		s.logger.Warn("failed to embed label", zap.String("label", label), zap.Error(err))
		return domain.LabelMatch{}, false
	}
	matches, err := s.labelStore.FindSimilar(ctx, kind, emb, s.threshold, fuzzyCandidates)
	if err != nil {
		s.logger.Warn("fuzzy label lookup failed", zap.String("label", label), zap.Error(err))
		return domain.LabelMatch{}, false
	}
	for _, m := range matches {
		if withinEditBudget(canonical, m.Canonical) {
			return m, true
		}
	}
	return domain.LabelMatch{}, false
}

// withinEditBudget accepts one edit for labels shorter than 16 runes and two
// beyond, measured on the shorter label.
func withinEditBudget(a, b string) bool {
	n := min(len([]rune(a)), len([]rune(b)))
	if n < minFuzzyLabelLength {
		return false
	}
	budget := 1
	if n >= 16 {
		budget = 2
	}
	return editDistance(a, b) <= budget
}

// editDistance is the Levenshtein distance over runes.
func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}

// persist writes the current table row for label to the label store. An
// embedding is only computed for rows the store has not seen.
func (s *LabelService) persist(ctx context.Context, label string, kind domain.EntityKind, id domain.Identifier, withEmbedding bool) {
	if s.labelStore == nil {
		return
	}
	entry, ok := s.normalizer.Entry(label, kind, id)
	if !ok {
		return
	}
	if withEmbedding && s.embeddingClient != nil {
		emb, err := s.embeddingClient.Embed(ctx, entry.Canonical)
		if err != nil {
			s.logger.Warn("failed to embed label", zap.String("label", label), zap.Error(err))
		} else {
			entry.Embedding = emb
		}
	}
	if err := s.labelStore.Upsert(ctx, &entry); err != nil {
		s.logger.Warn("failed to persist label",
			zap.String("label", label),
			zap.String("id", string(id)),
			zap.Error(err))
	}
}

// Entries lists the alias table for kind, or every kind when kind is empty.
func (s *LabelService) Entries(kind domain.EntityKind) []domain.LabelEntry {
	return s.normalizer.Entries(kind)
}

// NormalizeStatement converts a labelled statement into a candidate. The
// object of a type statement is normalized as a type, everything else as an
// entity. A missing perspective becomes DefaultPerspective and a missing
// timestamp becomes now.
func (s *LabelService) NormalizeStatement(ctx context.Context, raw domain.RawStatement) (domain.CandidateStatement, error) {
	if Canonicalize(raw.Subject) == "" || Canonicalize(raw.Predicate) == "" || Canonicalize(raw.Object) == "" {
		return domain.CandidateStatement{}, fmt.Errorf("%w: %w", ErrInvalidStatement, domain.ErrEmptyTriple)
	}
	source := SourceIdentifier(raw.Source)
	if source == "" {
		return domain.CandidateStatement{}, fmt.Errorf("%w: %w", ErrInvalidStatement, domain.ErrSourceMissing)
	}

	subject, err := s.Normalize(ctx, raw.Subject, domain.KindEntity)
	if err != nil {
		return domain.CandidateStatement{}, err
	}
	predicate, err := s.Normalize(ctx, raw.Predicate, domain.KindPredicate)
	if err != nil {
		return domain.CandidateStatement{}, err
	}
	objectKind := domain.KindEntity
	if predicate == s.typePredicate {
		objectKind = domain.KindType
	}
	object, err := s.Normalize(ctx, raw.Object, objectKind)
	if err != nil {
		return domain.CandidateStatement{}, err
	}

	perspective := domain.DefaultPerspective()
	if raw.Perspective != nil {
		perspective = *raw.Perspective
	}
	ts := raw.Timestamp
	if ts.IsZero() {
		ts = timeNow().UTC()
	}

	c, err := domain.NewCandidateStatement(uuid.Nil,
		domain.Triple{Subject: subject, Predicate: predicate, Object: object},
		perspective,
		domain.Provenance{Source: source, Timestamp: ts, TrustPrior: raw.TrustPrior},
	)
	if err != nil {
		return domain.CandidateStatement{}, fmt.Errorf("%w: %w", ErrInvalidStatement, err)
	}
	return c, nil
}
