package domain

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Identifier is a stable key for an entity, predicate or type. Identifiers are
// produced by the normalizer and never change once minted.
type Identifier string

func (id Identifier) String() string {
	return string(id)
}

type EntityKind string

const (
	KindEntity    EntityKind = "entity"
	KindPredicate EntityKind = "predicate"
	KindType      EntityKind = "type"
)

func ValidEntityKind(k string) bool {
	switch EntityKind(k) {
	case KindEntity, KindPredicate, KindType:
		return true
	}
	return false
}

type Polarity string

const (
	PolarityAffirmative Polarity = "affirmative"
	PolarityNegated     Polarity = "negated"
)

func ValidPolarity(p string) bool {
	switch Polarity(p) {
	case PolarityAffirmative, PolarityNegated:
		return true
	}
	return false
}

// Opposite returns the other polarity.
func (p Polarity) Opposite() Polarity {
	if p == PolarityNegated {
		return PolarityAffirmative
	}
	return PolarityNegated
}

type Certainty string

const (
	CertaintyCertain   Certainty = "certain"
	CertaintyUncertain Certainty = "uncertain"
)

func ValidCertainty(c string) bool {
	switch Certainty(c) {
	case CertaintyCertain, CertaintyUncertain:
		return true
	}
	return false
}

var (
	ErrConfidenceRange  = errors.New("confidence must be within [0, 1]")
	ErrSentimentRange   = errors.New("sentiment must be within [-1, 1]")
	ErrInvalidPolarity  = errors.New("invalid polarity")
	ErrInvalidCertainty = errors.New("invalid certainty")
	ErrEmptyTriple      = errors.New("subject, predicate and object are required")
	ErrSourceMissing    = errors.New("provenance source is required")
	ErrNegativeTrust    = errors.New("trust prior must not be negative")
)

// Perspective is how an assertion was made. It always travels with the
// statement; nothing downstream fills it in.
type Perspective struct {
	Confidence float64   `json:"confidence" yaml:"confidence"`
	Sentiment  float64   `json:"sentiment" yaml:"sentiment"`
	Polarity   Polarity  `json:"polarity" yaml:"polarity"`
	Certainty  Certainty `json:"certainty" yaml:"certainty"`
}

// DefaultPerspective is used by input boundaries when a caller omits the
// perspective block entirely.
func DefaultPerspective() Perspective {
	return Perspective{
		Confidence: 1.0,
		Sentiment:  0,
		Polarity:   PolarityAffirmative,
		Certainty:  CertaintyCertain,
	}
}

func (p Perspective) Validate() error {
	if p.Confidence < 0 || p.Confidence > 1 {
		return ErrConfidenceRange
	}
	if p.Sentiment < -1 || p.Sentiment > 1 {
		return ErrSentimentRange
	}
	if !ValidPolarity(string(p.Polarity)) {
		return ErrInvalidPolarity
	}
	if !ValidCertainty(string(p.Certainty)) {
		return ErrInvalidCertainty
	}
	return nil
}

// Provenance records who asserted a statement and when.
type Provenance struct {
	Source     Identifier `json:"source" yaml:"source"`
	Timestamp  time.Time  `json:"timestamp" yaml:"timestamp"`
	TrustPrior *float64   `json:"trust_prior,omitempty" yaml:"trust_prior,omitempty"`
}

func (p Provenance) Validate() error {
	if p.Source == "" {
		return ErrSourceMissing
	}
	if p.TrustPrior != nil && *p.TrustPrior < 0 {
		return ErrNegativeTrust
	}
	return nil
}

type Triple struct {
	Subject   Identifier `json:"subject"`
	Predicate Identifier `json:"predicate"`
	Object    Identifier `json:"object"`
}

func (t Triple) Validate() error {
	if t.Subject == "" || t.Predicate == "" || t.Object == "" {
		return ErrEmptyTriple
	}
	return nil
}

func (t Triple) String() string {
	return fmt.Sprintf("(%s, %s, %s)", t.Subject, t.Predicate, t.Object)
}

// Less orders triples by subject, predicate, then object.
func (t Triple) Less(o Triple) bool {
	if t.Subject != o.Subject {
		return t.Subject < o.Subject
	}
	if t.Predicate != o.Predicate {
		return t.Predicate < o.Predicate
	}
	return t.Object < o.Object
}

// CandidateStatement is one incoming fact. It is request scoped and passed by
// value; use NewCandidateStatement to build a valid one.
type CandidateStatement struct {
	ID          uuid.UUID   `json:"id"`
	Triple      Triple      `json:"triple"`
	Perspective Perspective `json:"perspective"`
	Provenance  Provenance  `json:"provenance"`
}

func NewCandidateStatement(id uuid.UUID, t Triple, p Perspective, prov Provenance) (CandidateStatement, error) {
	c := CandidateStatement{ID: id, Triple: t, Perspective: p, Provenance: prov}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if err := c.Validate(); err != nil {
		return CandidateStatement{}, err
	}
	return c, nil
}

func (c CandidateStatement) Validate() error {
	if err := c.Triple.Validate(); err != nil {
		return err
	}
	if err := c.Perspective.Validate(); err != nil {
		return err
	}
	return c.Provenance.Validate()
}

// Assertion is a single provenance record attached to a stored triple.
type Assertion struct {
	ID          uuid.UUID   `json:"id"`
	Perspective Perspective `json:"perspective"`
	Provenance  Provenance  `json:"provenance"`
}

// ExistingStatement is a triple committed to the graph store together with
// every assertion made about it. The store owns it; the core only reads it.
type ExistingStatement struct {
	ID         uuid.UUID   `json:"id"`
	Triple     Triple      `json:"triple"`
	Assertions []Assertion `json:"assertions"`
	CreatedAt  time.Time   `json:"created_at"`
}

// CountPolarity returns how many assertions carry the given polarity.
func (s ExistingStatement) CountPolarity(p Polarity) int {
	n := 0
	for _, a := range s.Assertions {
		if a.Perspective.Polarity == p {
			n++
		}
	}
	return n
}

// Sources returns the distinct asserting sources in sorted order.
func (s ExistingStatement) Sources() []Identifier {
	seen := make(map[Identifier]bool, len(s.Assertions))
	var out []Identifier
	for _, a := range s.Assertions {
		if seen[a.Provenance.Source] {
			continue
		}
		seen[a.Provenance.Source] = true
		out = append(out, a.Provenance.Source)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SortStatements orders statements by triple, then ID.
func SortStatements(stmts []ExistingStatement) {
	sort.SliceStable(stmts, func(i, j int) bool {
		if stmts[i].Triple != stmts[j].Triple {
			return stmts[i].Triple.Less(stmts[j].Triple)
		}
		return stmts[i].ID.String() < stmts[j].ID.String()
	})
}

// StatementQuery selects statements by any combination of subject, predicate
// and object. Empty fields match everything. Limit <= 0 means no limit.
type StatementQuery struct {
	Subject   Identifier
	Predicate Identifier
	Object    Identifier
	Limit     int
}

func (q StatementQuery) Matches(t Triple) bool {
	if q.Subject != "" && q.Subject != t.Subject {
		return false
	}
	if q.Predicate != "" && q.Predicate != t.Predicate {
		return false
	}
	if q.Object != "" && q.Object != t.Object {
		return false
	}
	return true
}

// RawStatement is a labelled statement as produced by the extraction front
// end, before normalization.
type RawStatement struct {
	Subject     string       `json:"subject" yaml:"subject"`
	Predicate   string       `json:"predicate" yaml:"predicate"`
	Object      string       `json:"object" yaml:"object"`
	Perspective *Perspective `json:"perspective,omitempty" yaml:"perspective,omitempty"`
	Source      string       `json:"source" yaml:"source"`
	Timestamp   time.Time    `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
	TrustPrior  *float64     `json:"trust_prior,omitempty" yaml:"trust_prior,omitempty"`
}
