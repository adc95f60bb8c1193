package service

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/Harshitk-cp/thoughtgraph/internal/domain"
	"github.com/google/uuid"
)

const defaultSourceWeight = 1.0

// TrustResolver scores competing claims in a conflict by weighted source
// corroboration and decides whether one of them wins.
type TrustResolver struct {
	sourceTrust map[domain.Identifier]float64
	halfLife    time.Duration
	margin      float64
}

func NewTrustResolver() *TrustResolver {
	return &TrustResolver{sourceTrust: make(map[domain.Identifier]float64)}
}

// SetHalfLife enables recency decay. Zero disables it.
func (r *TrustResolver) SetHalfLife(d time.Duration) {
	if d < 0 {
		d = 0
	}
	r.halfLife = d
}

// SetMargin is how far the top score must exceed every other score to win.
func (r *TrustResolver) SetMargin(m float64) {
	if m < 0 {
		m = 0
	}
	r.margin = m
}

// SetSourceTrust sets the configured weights used when an assertion carries
// no trust prior of its own.
func (r *TrustResolver) SetSourceTrust(weights map[domain.Identifier]float64) {
	m := make(map[domain.Identifier]float64, len(weights))
	for k, v := range weights {
		m[k] = v
	}
	r.sourceTrust = m
}

// vote is one source's latest assertion for a claim.
type vote struct {
	source    domain.Identifier
	timestamp time.Time
	prior     *float64
	statement uuid.UUID
}

type claimVotes struct {
	claim     domain.Claim
	bySource  map[domain.Identifier]vote
	candidate bool
}

// Resolve scores the claims of cc, including the candidate's own, and returns
// the conflict with its resolution and one trust signal per claim.
func (r *TrustResolver) Resolve(c domain.CandidateStatement, cc ConflictCandidate) (domain.Conflict, []domain.Trust, [][]uuid.UUID) {
	claims := make(map[string]*claimVotes)
	add := func(cl domain.Claim, v vote, candidate bool) {
		cv, ok := claims[cl.Key()]
		if !ok {
			cv = &claimVotes{claim: cl, bySource: make(map[domain.Identifier]vote)}
			claims[cl.Key()] = cv
		}
		if candidate {
			cv.candidate = true
		}
		prev, ok := cv.bySource[v.source]
		if !ok || v.timestamp.After(prev.timestamp) {
			cv.bySource[v.source] = v
		}
	}

	for _, s := range cc.Involved {
		if s.Triple.Subject != c.Triple.Subject || s.Triple.Predicate != c.Triple.Predicate {
			continue
		}
		for _, a := range s.Assertions {
			if cc.Kind == domain.ConflictCardinality && a.Perspective.Polarity != domain.PolarityAffirmative {
				continue
			}
			if cc.Kind == domain.ConflictNegation && s.Triple.Object != c.Triple.Object {
				continue
			}
			add(domain.Claim{Object: s.Triple.Object, Polarity: a.Perspective.Polarity}, vote{
				source:    a.Provenance.Source,
				timestamp: a.Provenance.Timestamp,
				prior:     a.Provenance.TrustPrior,
				statement: s.ID,
			}, false)
		}
	}
	add(domain.Claim{Object: c.Triple.Object, Polarity: c.Perspective.Polarity}, vote{
		source:    c.Provenance.Source,
		timestamp: c.Provenance.Timestamp,
		prior:     c.Provenance.TrustPrior,
	}, true)

	competing := make([]domain.ClaimScore, 0, len(claims))
	for _, cv := range claims {
		competing = append(competing, r.score(cv, c.Provenance.Timestamp))
	}
	sort.Slice(competing, func(i, j int) bool {
		if competing[i].Score != competing[j].Score {
			return competing[i].Score > competing[j].Score
		}
		return competing[i].Claim.Key() < competing[j].Claim.Key()
	})

	conflict := domain.Conflict{
		Kind:        cc.Kind,
		Conflicting: statementIDs(cc.Conflicting),
		Resolution:  r.decide(competing),
	}

	var total float64
	for _, cs := range competing {
		total += cs.Score
	}
	trusts := make([]domain.Trust, len(competing))
	traces := make([][]uuid.UUID, len(competing))
	for i, cs := range competing {
		share := 0.0
		if total > 0 {
			share = cs.Score / total
		}
		trusts[i] = domain.Trust{
			Claim:     cs.Claim,
			Score:     cs.Score,
			Share:     share,
			Tier:      domain.ComputeTier(share),
			Sources:   len(cs.Sources),
			Rationale: rationale(cs, share),
		}
		traces[i] = cs.Statements
	}
	return conflict, trusts, traces
}

// scoreEpsilon absorbs float noise so a lead equal to the margin is not
// counted as exceeding it.
const scoreEpsilon = 1e-9

// decide applies the margin rule. Anything short of a clear winner is
// undecided, and every claim is surfaced either way.
func (r *TrustResolver) decide(competing []domain.ClaimScore) domain.Resolution {
	res := domain.Resolution{Status: domain.ResolutionUndecided, Competing: competing}
	if len(competing) == 0 {
		return res
	}
	top := competing[0]
	for _, other := range competing[1:] {
		if top.Score-other.Score-r.margin <= scoreEpsilon {
			return res
		}
	}
	winner := top.Claim
	res.Winner = &winner
	if top.Candidate {
		res.Status = domain.ResolutionAccepted
	} else {
		res.Status = domain.ResolutionRejected
	}
	return res
}

// score sums weight x decay over distinct sources in source order, so the
// float result does not depend on map iteration.
func (r *TrustResolver) score(cv *claimVotes, ref time.Time) domain.ClaimScore {
	sources := make([]domain.Identifier, 0, len(cv.bySource))
	for s := range cv.bySource {
		sources = append(sources, s)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i] < sources[j] })

	cs := domain.ClaimScore{Claim: cv.claim, Sources: sources, Candidate: cv.candidate}
	seen := make(map[uuid.UUID]bool)
	for _, s := range sources {
		v := cv.bySource[s]
		cs.Score += r.weight(v) * r.decay(v.timestamp, ref)
		if v.statement != uuid.Nil && !seen[v.statement] {
			seen[v.statement] = true
			cs.Statements = append(cs.Statements, v.statement)
		}
	}
	sort.Slice(cs.Statements, func(i, j int) bool { return cs.Statements[i].String() < cs.Statements[j].String() })
	return cs
}

func (r *TrustResolver) weight(v vote) float64 {
	w := defaultSourceWeight
	if v.prior != nil {
		w = *v.prior
	} else if configured, ok := r.sourceTrust[v.source]; ok {
		w = configured
	}
	if w < 0 || math.IsNaN(w) {
		return 0
	}
	return w
}

func (r *TrustResolver) decay(ts, ref time.Time) float64 {
	if r.halfLife <= 0 || ts.IsZero() || ref.IsZero() {
		return 1
	}
	age := ref.Sub(ts)
	if age <= 0 {
		return 1
	}
	return math.Pow(0.5, float64(age)/float64(r.halfLife))
}

func rationale(cs domain.ClaimScore, share float64) string {
	side := "existing"
	if cs.Candidate {
		side = "candidate"
	}
	return fmt.Sprintf("%s claim %s (%s): %d source(s), score %.3f, share %.2f (%s)",
		side, cs.Claim.Object, cs.Claim.Polarity, len(cs.Sources), cs.Score, share, domain.TierReason(share))
}
