package domain

import (
	"github.com/google/uuid"
)

type ThoughtKind string

const (
	ThoughtNovelty  ThoughtKind = "novelty"
	ThoughtOverlap  ThoughtKind = "overlap"
	ThoughtConflict ThoughtKind = "conflict"
	ThoughtTrust    ThoughtKind = "trust"
	ThoughtGap      ThoughtKind = "gap"
)

// ThoughtOrder is the fixed order of thought kinds inside a bundle.
// Consumers may rely on it.
var ThoughtOrder = map[ThoughtKind]int{
	ThoughtNovelty:  0,
	ThoughtOverlap:  1,
	ThoughtConflict: 2,
	ThoughtTrust:    3,
	ThoughtGap:      4,
}

// Trace links a thought back to what it was derived from.
type Trace struct {
	Candidate  uuid.UUID   `json:"candidate"`
	Statements []uuid.UUID `json:"statements,omitempty"`
}

// Thought is a tagged union: Kind selects which of the variant fields is set.
type Thought struct {
	Kind     ThoughtKind `json:"kind"`
	Trace    Trace       `json:"trace"`
	Novelty  *Novelty    `json:"novelty,omitempty"`
	Overlap  *Overlap    `json:"overlap,omitempty"`
	Conflict *Conflict   `json:"conflict,omitempty"`
	Trust    *Trust      `json:"trust,omitempty"`
	Gap      *Gap        `json:"gap,omitempty"`
}

type Novelty struct {
	SubjectNew bool `json:"is_subject_new"`
	ObjectNew  bool `json:"is_object_new"`
}

type OverlapKind string

const (
	// OverlapIdentity: the exact triple was asserted before.
	OverlapIdentity OverlapKind = "identity"
	// OverlapSubject: same subject and predicate, other objects.
	OverlapSubject OverlapKind = "subject"
	// OverlapObject: same predicate and object, other subjects.
	OverlapObject OverlapKind = "object"
)

type Overlap struct {
	Kind         OverlapKind `json:"kind"`
	SharedEntity Identifier  `json:"shared_entity"`
	Matching     []uuid.UUID `json:"matching_statements"`
	// Multiplicity is the number of prior assertions for identity overlaps.
	Multiplicity int `json:"multiplicity,omitempty"`
}

type ConflictKind string

const (
	ConflictCardinality ConflictKind = "cardinality"
	ConflictNegation    ConflictKind = "negation"
)

type ResolutionStatus string

const (
	ResolutionAccepted  ResolutionStatus = "accepted"
	ResolutionRejected  ResolutionStatus = "rejected"
	ResolutionUndecided ResolutionStatus = "undecided"
)

// Claim is one competing value in a conflict.
type Claim struct {
	Object   Identifier `json:"object"`
	Polarity Polarity   `json:"polarity"`
}

func (c Claim) Key() string {
	return string(c.Object) + "|" + string(c.Polarity)
}

type ClaimScore struct {
	Claim      Claim        `json:"claim"`
	Score      float64      `json:"score"`
	Sources    []Identifier `json:"sources"`
	Statements []uuid.UUID  `json:"statements,omitempty"`
	Candidate  bool         `json:"candidate"`
}

type Resolution struct {
	Status    ResolutionStatus `json:"status"`
	Winner    *Claim           `json:"winner,omitempty"`
	Competing []ClaimScore     `json:"competing"`
}

type Conflict struct {
	Kind        ConflictKind `json:"kind"`
	Conflicting []uuid.UUID  `json:"conflicting_statements"`
	Resolution  Resolution   `json:"resolution"`
}

type Trust struct {
	Claim     Claim     `json:"claim"`
	Score     float64   `json:"score"`
	Share     float64   `json:"share"`
	Tier      TrustTier `json:"tier"`
	Sources   int       `json:"sources"`
	Rationale string    `json:"rationale"`
}

type GapRole string

const (
	GapSubject GapRole = "subject"
	GapObject  GapRole = "object"
)

type Gap struct {
	Entity          Identifier `json:"entity"`
	Role            GapRole    `json:"role"`
	MissingRelation Identifier `json:"missing_relation"`
	ExpectedFrom    Identifier `json:"expected_from"`
	Frequency       float64    `json:"frequency"`
	Support         int        `json:"support"`
}

// Bundle is every thought produced for one candidate statement.
type Bundle struct {
	Candidate CandidateStatement `json:"candidate"`
	Thoughts  []Thought          `json:"thoughts"`
}

func (b *Bundle) ofKind(k ThoughtKind) []Thought {
	var out []Thought
	for _, t := range b.Thoughts {
		if t.Kind == k {
			out = append(out, t)
		}
	}
	return out
}

func (b *Bundle) Novelty() *Novelty {
	for _, t := range b.Thoughts {
		if t.Kind == ThoughtNovelty {
			return t.Novelty
		}
	}
	return nil
}

func (b *Bundle) Overlaps() []Overlap {
	var out []Overlap
	for _, t := range b.ofKind(ThoughtOverlap) {
		out = append(out, *t.Overlap)
	}
	return out
}

func (b *Bundle) Conflicts() []Conflict {
	var out []Conflict
	for _, t := range b.ofKind(ThoughtConflict) {
		out = append(out, *t.Conflict)
	}
	return out
}

func (b *Bundle) Trusts() []Trust {
	var out []Trust
	for _, t := range b.ofKind(ThoughtTrust) {
		out = append(out, *t.Trust)
	}
	return out
}

func (b *Bundle) Gaps() []Gap {
	var out []Gap
	for _, t := range b.ofKind(ThoughtGap) {
		out = append(out, *t.Gap)
	}
	return out
}

// BundleStats are per-bundle counts used for logging and metrics.
type BundleStats struct {
	SubjectNew           bool `json:"subject_novelty"`
	ObjectNew            bool `json:"object_novelty"`
	StatementNovelty     int  `json:"statement_novelty"`
	IdentityOverlaps     int  `json:"identity_overlaps"`
	SubjectOverlaps      int  `json:"subject_overlaps"`
	ObjectOverlaps       int  `json:"object_overlaps"`
	CardinalityConflicts int  `json:"cardinality_conflicts"`
	NegationConflicts    int  `json:"negation_conflicts"`
	TrustSignals         int  `json:"trust_signals"`
	SubjectGaps          int  `json:"subject_gaps"`
	ObjectGaps           int  `json:"object_gaps"`
}

func (b *Bundle) Stats() BundleStats {
	var s BundleStats
	for _, t := range b.Thoughts {
		switch t.Kind {
		case ThoughtNovelty:
			s.SubjectNew = t.Novelty.SubjectNew
			s.ObjectNew = t.Novelty.ObjectNew
			s.StatementNovelty++
		case ThoughtOverlap:
			switch t.Overlap.Kind {
			case OverlapIdentity:
				s.IdentityOverlaps++
			case OverlapSubject:
				s.SubjectOverlaps++
			case OverlapObject:
				s.ObjectOverlaps++
			}
		case ThoughtConflict:
			if t.Conflict.Kind == ConflictNegation {
				s.NegationConflicts++
			} else {
				s.CardinalityConflicts++
			}
		case ThoughtTrust:
			s.TrustSignals++
		case ThoughtGap:
			if t.Gap.Role == GapObject {
				s.ObjectGaps++
			} else {
				s.SubjectGaps++
			}
		}
	}
	return s
}
