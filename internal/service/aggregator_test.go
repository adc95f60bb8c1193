package service

import (
	"reflect"
	"testing"

	"github.com/Harshitk-cp/thoughtgraph/internal/domain"
	"github.com/google/uuid"
)

func TestAggregate_OrdersByKindStably(t *testing.T) {
	c := candidate("alice", "livesIn", "paris", "census", t0)
	tr := domain.Trace{Candidate: c.ID}

	gapA := domain.Thought{Kind: domain.ThoughtGap, Trace: tr, Gap: &domain.Gap{MissingRelation: "a"}}
	gapB := domain.Thought{Kind: domain.ThoughtGap, Trace: tr, Gap: &domain.Gap{MissingRelation: "b"}}
	trust := domain.Thought{Kind: domain.ThoughtTrust, Trace: tr, Trust: &domain.Trust{}}
	conflict := domain.Thought{Kind: domain.ThoughtConflict, Trace: tr, Conflict: &domain.Conflict{}}
	overlap := domain.Thought{Kind: domain.ThoughtOverlap, Trace: tr, Overlap: &domain.Overlap{}}
	novelty := domain.Thought{Kind: domain.ThoughtNovelty, Trace: tr, Novelty: &domain.Novelty{}}

	b := Aggregate(c, gapA, trust, conflict, gapB, overlap, novelty)

	want := []domain.ThoughtKind{
		domain.ThoughtNovelty, domain.ThoughtOverlap, domain.ThoughtConflict,
		domain.ThoughtTrust, domain.ThoughtGap, domain.ThoughtGap,
	}
	if got := kinds(b.Thoughts); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if b.Thoughts[4].Gap.MissingRelation != "a" || b.Thoughts[5].Gap.MissingRelation != "b" {
		t.Error("expected gaps to keep their relative order")
	}
	if b.Candidate.ID != c.ID {
		t.Error("expected bundle to carry the candidate")
	}
}

func TestAggregate_DropsUntraceableAndMalformed(t *testing.T) {
	c := candidate("alice", "livesIn", "paris", "census", t0)

	b := Aggregate(c,
		domain.Thought{Kind: domain.ThoughtNovelty, Trace: domain.Trace{Candidate: c.ID}, Novelty: &domain.Novelty{}},
		domain.Thought{Kind: domain.ThoughtNovelty, Trace: domain.Trace{Candidate: uuid.New()}, Novelty: &domain.Novelty{}},
		domain.Thought{Kind: domain.ThoughtOverlap, Novelty: &domain.Novelty{}},
		domain.Thought{Kind: domain.ThoughtGap, Trace: domain.Trace{Candidate: c.ID}},
		domain.Thought{Kind: domain.ThoughtKind("mood"), Trace: domain.Trace{Candidate: c.ID}},
	)
	if len(b.Thoughts) != 1 {
		t.Fatalf("expected one surviving thought, got %v", kinds(b.Thoughts))
	}
}

func TestAggregate_Empty(t *testing.T) {
	c := candidate("alice", "livesIn", "paris", "census", t0)
	b := Aggregate(c)
	if b == nil || len(b.Thoughts) != 0 {
		t.Fatalf("expected an empty bundle, got %+v", b)
	}
}
