package service

import (
	"sort"

	"github.com/Harshitk-cp/thoughtgraph/internal/domain"
	"github.com/google/uuid"
)

// Aggregate assembles thoughts into a bundle for c. Thoughts are ordered by
// kind and keep their relative order within a kind. Thoughts that do not
// trace back to c, or whose payload is missing, are dropped.
func Aggregate(c domain.CandidateStatement, thoughts ...domain.Thought) *domain.Bundle {
	kept := make([]domain.Thought, 0, len(thoughts))
	for _, t := range thoughts {
		if !traceable(c, t) || !wellFormed(t) {
			continue
		}
		kept = append(kept, t)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return domain.ThoughtOrder[kept[i].Kind] < domain.ThoughtOrder[kept[j].Kind]
	})
	return &domain.Bundle{Candidate: c, Thoughts: kept}
}

func traceable(c domain.CandidateStatement, t domain.Thought) bool {
	return t.Trace.Candidate != uuid.Nil && t.Trace.Candidate == c.ID
}

func wellFormed(t domain.Thought) bool {
	switch t.Kind {
	case domain.ThoughtNovelty:
		return t.Novelty != nil
	case domain.ThoughtOverlap:
		return t.Overlap != nil
	case domain.ThoughtConflict:
		return t.Conflict != nil
	case domain.ThoughtTrust:
		return t.Trust != nil
	case domain.ThoughtGap:
		return t.Gap != nil
	}
	return false
}
