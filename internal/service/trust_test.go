package service

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/Harshitk-cp/thoughtgraph/internal/domain"
)

func cardinality(stmts ...domain.ExistingStatement) ConflictCandidate {
	return ConflictCandidate{Kind: domain.ConflictCardinality, Conflicting: stmts, Involved: stmts}
}

func scoreOf(t *testing.T, c domain.Conflict, object domain.Identifier, polarity domain.Polarity) float64 {
	t.Helper()
	for _, cs := range c.Resolution.Competing {
		if cs.Claim.Object == object && cs.Claim.Polarity == polarity {
			return cs.Score
		}
	}
	t.Fatalf("no claim for %s (%s)", object, polarity)
	return 0
}

func TestResolve_EqualSingleSourceIsUndecided(t *testing.T) {
	r := NewTrustResolver()
	paris := existing("alice", "livesIn", "paris", assertion("census", t0, domain.PolarityAffirmative))
	c := candidate("alice", "livesIn", "berlin", "blog", t0)

	conflict, trusts, traces := r.Resolve(c, cardinality(paris))

	if conflict.Resolution.Status != domain.ResolutionUndecided {
		t.Errorf("expected undecided, got %s", conflict.Resolution.Status)
	}
	if conflict.Resolution.Winner != nil {
		t.Error("expected no winner on a tie")
	}
	if len(conflict.Resolution.Competing) != 2 {
		t.Fatalf("expected two competing claims, got %d", len(conflict.Resolution.Competing))
	}
	objects := map[domain.Identifier]bool{}
	for _, cs := range conflict.Resolution.Competing {
		objects[cs.Claim.Object] = true
	}
	if !objects["paris"] || !objects["berlin"] {
		t.Errorf("expected paris and berlin to compete, got %v", objects)
	}
	if len(conflict.Conflicting) != 1 || conflict.Conflicting[0] != paris.ID {
		t.Errorf("expected conflicting [%s], got %v", paris.ID, conflict.Conflicting)
	}

	if len(trusts) != 2 || len(traces) != 2 {
		t.Fatalf("expected a trust signal per claim, got %d", len(trusts))
	}
	for _, tr := range trusts {
		if tr.Share != 0.5 {
			t.Errorf("expected share 0.5, got %f", tr.Share)
		}
		if tr.Rationale == "" {
			t.Error("expected a rationale")
		}
	}
}

func TestResolve_CorroborationRejectsCandidate(t *testing.T) {
	r := NewTrustResolver()
	paris := existing("alice", "livesIn", "paris",
		assertion("census", t0, domain.PolarityAffirmative),
		assertion("registry", t0, domain.PolarityAffirmative),
	)
	c := candidate("alice", "livesIn", "berlin", "blog", t0)

	conflict, trusts, traces := r.Resolve(c, cardinality(paris))

	if conflict.Resolution.Status != domain.ResolutionRejected {
		t.Fatalf("expected rejected, got %s", conflict.Resolution.Status)
	}
	if conflict.Resolution.Winner == nil || conflict.Resolution.Winner.Object != "paris" {
		t.Errorf("expected paris to win, got %+v", conflict.Resolution.Winner)
	}
	if trusts[0].Claim.Object != "paris" || trusts[0].Sources != 2 {
		t.Errorf("expected paris first with 2 sources, got %+v", trusts[0])
	}
	if len(traces[0]) != 1 || traces[0][0] != paris.ID {
		t.Errorf("expected paris trust to trace to %s, got %v", paris.ID, traces[0])
	}
	if len(traces[1]) != 0 {
		t.Errorf("expected candidate claim to have no statement trace, got %v", traces[1])
	}
}

func TestResolve_TrustPriorAcceptsCandidate(t *testing.T) {
	r := NewTrustResolver()
	paris := existing("alice", "livesIn", "paris",
		assertion("census", t0, domain.PolarityAffirmative),
		assertion("registry", t0, domain.PolarityAffirmative),
	)
	c := withPrior(candidate("alice", "livesIn", "berlin", "passport office", t0), 3)

	conflict, _, _ := r.Resolve(c, cardinality(paris))
	if conflict.Resolution.Status != domain.ResolutionAccepted {
		t.Fatalf("expected accepted, got %s", conflict.Resolution.Status)
	}
	if got := scoreOf(t, conflict, "berlin", domain.PolarityAffirmative); got != 3 {
		t.Errorf("expected berlin score 3, got %f", got)
	}
}

func TestResolve_ConfiguredSourceTrust(t *testing.T) {
	r := NewTrustResolver()
	r.SetSourceTrust(map[domain.Identifier]float64{"census": 5, "blog": -2})
	paris := existing("alice", "livesIn", "paris", assertion("census", t0, domain.PolarityAffirmative))
	c := candidate("alice", "livesIn", "berlin", "blog", t0)

	conflict, _, _ := r.Resolve(c, cardinality(paris))
	if got := scoreOf(t, conflict, "paris", domain.PolarityAffirmative); got != 5 {
		t.Errorf("expected census weight 5, got %f", got)
	}
	if got := scoreOf(t, conflict, "berlin", domain.PolarityAffirmative); got != 0 {
		t.Errorf("expected negative weight clamped to 0, got %f", got)
	}
	if conflict.Resolution.Status != domain.ResolutionRejected {
		t.Errorf("expected rejected, got %s", conflict.Resolution.Status)
	}
}

func TestResolve_Margin(t *testing.T) {
	paris := existing("alice", "livesIn", "paris",
		assertion("census", t0, domain.PolarityAffirmative),
		assertion("registry", t0, domain.PolarityAffirmative),
	)
	c := candidate("alice", "livesIn", "berlin", "blog", t0)

	r := NewTrustResolver()
	r.SetMargin(1.5)
	conflict, _, _ := r.Resolve(c, cardinality(paris))
	if conflict.Resolution.Status != domain.ResolutionUndecided {
		t.Errorf("expected undecided within margin, got %s", conflict.Resolution.Status)
	}

	// The lead must exceed the margin strictly.
	r.SetMargin(1)
	conflict, _, _ = r.Resolve(c, cardinality(paris))
	if conflict.Resolution.Status != domain.ResolutionUndecided {
		t.Errorf("expected undecided at exactly the margin, got %s", conflict.Resolution.Status)
	}

	r.SetMargin(0.5)
	conflict, _, _ = r.Resolve(c, cardinality(paris))
	if conflict.Resolution.Status != domain.ResolutionRejected {
		t.Errorf("expected rejected beyond the margin, got %s", conflict.Resolution.Status)
	}
}

func TestResolve_MarginBoundaryIsNotALead(t *testing.T) {
	paris := existing("alice", "livesIn", "paris", assertion("census", t0, domain.PolarityAffirmative))
	// 1.1 - 1.0 is a hair above 0.1 in float64.
	c := withPrior(candidate("alice", "livesIn", "berlin", "blog", t0), 1.1)

	r := NewTrustResolver()
	r.SetMargin(0.1)
	conflict, _, _ := r.Resolve(c, cardinality(paris))
	if conflict.Resolution.Status != domain.ResolutionUndecided {
		t.Errorf("expected undecided when the lead equals the margin, got %s", conflict.Resolution.Status)
	}

	r.SetMargin(0.05)
	conflict, _, _ = r.Resolve(c, cardinality(paris))
	if conflict.Resolution.Status != domain.ResolutionAccepted {
		t.Errorf("expected accepted beyond the margin, got %s", conflict.Resolution.Status)
	}
}

func TestResolve_Decay(t *testing.T) {
	r := NewTrustResolver()
	r.SetHalfLife(24 * time.Hour)
	paris := existing("alice", "livesIn", "paris", assertion("census", t0, domain.PolarityAffirmative))
	c := candidate("alice", "livesIn", "berlin", "blog", t0.Add(48*time.Hour))

	conflict, _, _ := r.Resolve(c, cardinality(paris))
	if got := scoreOf(t, conflict, "paris", domain.PolarityAffirmative); math.Abs(got-0.25) > 1e-9 {
		t.Errorf("expected two half-lives to leave 0.25, got %f", got)
	}
	if conflict.Resolution.Status != domain.ResolutionAccepted {
		t.Errorf("expected the fresher claim to be accepted, got %s", conflict.Resolution.Status)
	}

	r.SetHalfLife(0)
	conflict, _, _ = r.Resolve(c, cardinality(paris))
	if conflict.Resolution.Status != domain.ResolutionUndecided {
		t.Errorf("expected undecided without decay, got %s", conflict.Resolution.Status)
	}
}

func TestResolve_LatestAssertionPerSource(t *testing.T) {
	r := NewTrustResolver()
	r.SetHalfLife(24 * time.Hour)
	paris := existing("alice", "livesIn", "paris",
		assertion("census", t0, domain.PolarityAffirmative),
		assertion("census", t0.Add(24*time.Hour), domain.PolarityAffirmative),
	)
	c := candidate("alice", "livesIn", "berlin", "blog", t0.Add(24*time.Hour))

	conflict, trusts, _ := r.Resolve(c, cardinality(paris))
	if got := scoreOf(t, conflict, "paris", domain.PolarityAffirmative); got != 1 {
		t.Errorf("expected one undecayed vote for census, got %f", got)
	}
	for _, tr := range trusts {
		if tr.Sources != 1 {
			t.Errorf("expected one source per claim, got %d", tr.Sources)
		}
	}
}

func TestResolve_NegationClaimsArePolarities(t *testing.T) {
	r := NewTrustResolver()
	paris := existing("alice", "livesIn", "paris",
		assertion("census", t0, domain.PolarityAffirmative),
		assertion("rumor", t0, domain.PolarityNegated),
	)
	c := negated(candidate("alice", "livesIn", "paris", "blog", t0))
	cc := ConflictCandidate{Kind: domain.ConflictNegation, Conflicting: []domain.ExistingStatement{paris}, Involved: []domain.ExistingStatement{paris}}

	conflict, _, _ := r.Resolve(c, cc)
	if conflict.Kind != domain.ConflictNegation {
		t.Errorf("expected negation kind, got %s", conflict.Kind)
	}
	if got := scoreOf(t, conflict, "paris", domain.PolarityNegated); got != 2 {
		t.Errorf("expected negated claim score 2, got %f", got)
	}
	if conflict.Resolution.Status != domain.ResolutionAccepted {
		t.Errorf("expected accepted, got %s", conflict.Resolution.Status)
	}
}

func TestResolve_Deterministic(t *testing.T) {
	r := NewTrustResolver()
	r.SetHalfLife(time.Hour)
	stmts := []domain.ExistingStatement{
		existing("alice", "livesIn", "paris", assertion("census", t0, domain.PolarityAffirmative), assertion("registry", t0.Add(time.Minute), domain.PolarityAffirmative)),
		existing("alice", "livesIn", "rome", assertion("blog", t0, domain.PolarityAffirmative)),
		existing("alice", "livesIn", "oslo", assertion("wiki", t0.Add(time.Hour), domain.PolarityAffirmative)),
	}
	c := candidate("alice", "livesIn", "berlin", "forum", t0.Add(2*time.Hour))

	c1, t1, tr1 := r.Resolve(c, cardinality(stmts...))
	for i := 0; i < 10; i++ {
		c2, t2, tr2 := r.Resolve(c, cardinality(stmts...))
		if !reflect.DeepEqual(c1, c2) || !reflect.DeepEqual(t1, t2) || !reflect.DeepEqual(tr1, tr2) {
			t.Fatal("expected identical results across runs")
		}
	}
}

func TestResolve_ScoreMonotonicInCorroboration(t *testing.T) {
	r := NewTrustResolver()
	c := candidate("alice", "livesIn", "berlin", "blog", t0)
	sources := []string{"census", "registry", "wiki", "news", "tax office"}

	prev := -1.0
	var asserted []domain.Assertion
	for _, s := range sources {
		asserted = append(asserted, assertion(s, t0, domain.PolarityAffirmative))
		paris := existing("alice", "livesIn", "paris", asserted...)
		conflict, _, _ := r.Resolve(c, cardinality(paris))
		score := scoreOf(t, conflict, "paris", domain.PolarityAffirmative)
		if score < prev {
			t.Fatalf("score decreased from %f to %f after adding %s", prev, score, s)
		}
		prev = score
	}
}
