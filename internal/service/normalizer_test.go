package service

import (
	"errors"
	"strings"
	"testing"

	"github.com/Harshitk-cp/thoughtgraph/internal/domain"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Paris", "paris"},
		{"  New   York  ", "new york"},
		{"livesIn", "lives in"},
		{"lives_in", "lives in"},
		{" Lives in. ", "lives in"},
		{"hasAge", "has age"},
		{"rdf:type", "rdf:type"},
		{"...", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Canonicalize(tt.in); got != tt.want {
			t.Errorf("Canonicalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMintIdentifier_Deterministic(t *testing.T) {
	a := MintIdentifier(domain.KindEntity, "alice")
	b := MintIdentifier(domain.KindEntity, "alice")
	if a != b {
		t.Fatalf("expected same identifier, got %s and %s", a, b)
	}
	if !strings.HasPrefix(string(a), "entity:") {
		t.Errorf("expected entity prefix, got %s", a)
	}
	if MintIdentifier(domain.KindType, "alice") == a {
		t.Error("expected kinds to mint distinct identifiers")
	}
}

func TestNormalizer_CaseInsensitiveAndStable(t *testing.T) {
	n := NewNormalizer(TieMostFrequent)

	first, err := n.Normalize("Alice", domain.KindEntity)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := n.Normalize("ALICE ", domain.KindEntity)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Errorf("expected %s, got %s", first, second)
	}

	// A second normalizer mints the same identifier for the same label.
	other, _ := NewNormalizer(TieMostFrequent).Normalize("alice", domain.KindEntity)
	if other != first {
		t.Errorf("expected identifiers to match across normalizers, got %s and %s", other, first)
	}

	_, created, err := n.Mint("Alice", domain.KindEntity)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created {
		t.Error("expected existing label not to be re-minted")
	}
}

func TestNormalizer_Errors(t *testing.T) {
	n := NewNormalizer(TieMostFrequent)

	if _, err := n.Normalize("  ", domain.KindEntity); !errors.Is(err, ErrLabelEmpty) {
		t.Errorf("expected ErrLabelEmpty, got %v", err)
	}
	if _, err := n.Normalize("Alice", domain.EntityKind("thing")); !errors.Is(err, ErrInvalidKind) {
		t.Errorf("expected ErrInvalidKind, got %v", err)
	}
	if _, err := n.NormalizeWith("Alice", domain.KindEntity, TieBreak("coin_flip")); !errors.Is(err, ErrInvalidTieBreak) {
		t.Errorf("expected ErrInvalidTieBreak, got %v", err)
	}
	if NewNormalizer(TieBreak("bogus")).Rule() != TieMostFrequent {
		t.Error("expected invalid rule to fall back to most_frequent")
	}
}

func TestNormalizer_TieBreaks(t *testing.T) {
	n := NewNormalizer(TieMostFrequent)
	il := domain.Identifier("entity:springfield-il")
	ma := domain.Identifier("entity:springfield-ma")

	mustAlias := func(label string, id domain.Identifier) {
		t.Helper()
		if _, err := n.Alias(label, domain.KindEntity, id); err != nil {
			t.Fatalf("alias %q: %v", label, err)
		}
	}
	mustAlias("Springfield", il)
	mustAlias("Springfield", ma)
	mustAlias("Springfield Mass", ma)

	resolve := func(rule TieBreak) domain.Identifier {
		t.Helper()
		id, err := n.NormalizeWith("springfield", domain.KindEntity, rule)
		if err != nil {
			t.Fatalf("resolve with %s: %v", rule, err)
		}
		return id
	}

	_, err := n.NormalizeWith("Springfield", domain.KindEntity, TieStrict)
	var amb *domain.AmbiguousLabelError
	if !errors.As(err, &amb) {
		t.Fatalf("expected AmbiguousLabelError, got %v", err)
	}
	if !errors.Is(err, domain.ErrAmbiguousLabel) {
		t.Error("expected error to match ErrAmbiguousLabel")
	}
	if len(amb.Candidates) != 2 || amb.Candidates[0] != il || amb.Candidates[1] != ma {
		t.Errorf("unexpected candidates %v", amb.Candidates)
	}

	// earliest_seen ignores usage entirely.
	if got := resolve(TieEarliestSeen); got != il {
		t.Errorf("earliest_seen: expected %s, got %s", il, got)
	}

	// Resolve the unambiguous alias twice so ma becomes the most frequent.
	for i := 0; i < 2; i++ {
		if _, err := n.Normalize("Springfield Mass", domain.KindEntity); err != nil {
			t.Fatal(err)
		}
	}
	if got := resolve(TieMostFrequent); got != ma {
		t.Errorf("most_frequent: expected %s, got %s", ma, got)
	}
	if got := resolve(TieEarliestSeen); got != il {
		t.Errorf("earliest_seen: expected %s, got %s", il, got)
	}
	// il was resolved last.
	if got := resolve(TieMostRecent); got != il {
		t.Errorf("most_recent: expected %s, got %s", il, got)
	}
}

func TestNormalizer_FrequencyTieFallsBackToEarliestSeen(t *testing.T) {
	n := NewNormalizer(TieMostFrequent)
	_, _ = n.Alias("Mercury", domain.KindEntity, "entity:planet")
	_, _ = n.Alias("Mercury", domain.KindEntity, "entity:element")

	id, err := n.Normalize("mercury", domain.KindEntity)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "entity:planet" {
		t.Errorf("expected earliest-seen identifier, got %s", id)
	}
}

func TestNormalizer_CandidatesAndEntries(t *testing.T) {
	n := NewNormalizer(TieMostFrequent)
	_, _ = n.Normalize("Alice", domain.KindEntity)
	_, _ = n.Normalize("Person", domain.KindType)

	if got := n.Candidates("alice", domain.KindEntity); len(got) != 1 {
		t.Errorf("expected one candidate, got %v", got)
	}
	if got := n.Candidates("nobody", domain.KindEntity); len(got) != 0 {
		t.Errorf("expected no candidates, got %v", got)
	}

	all := n.Entries("")
	if len(all) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(all))
	}
	if all[0].Canonical != "alice" || all[1].Canonical != "person" {
		t.Errorf("expected first-seen order, got %v", all)
	}
	types := n.Entries(domain.KindType)
	if len(types) != 1 || types[0].Kind != domain.KindType {
		t.Errorf("expected only the type entry, got %v", types)
	}
}

func TestNormalizer_Restore(t *testing.T) {
	src := NewNormalizer(TieMostFrequent)
	_, _ = src.Alias("Springfield", domain.KindEntity, "entity:springfield-il")
	_, _ = src.Alias("Springfield", domain.KindEntity, "entity:springfield-ma")
	_, _ = src.Alias("Springfield Mass", domain.KindEntity, "entity:springfield-ma")
	_, _ = src.Normalize("Springfield Mass", domain.KindEntity)
	_, _ = src.Normalize("Alice", domain.KindEntity)

	dst := NewNormalizer(TieMostFrequent)
	dst.Restore(src.Entries(""))

	want, _ := src.Normalize("Springfield", domain.KindEntity)
	got, err := dst.Normalize("Springfield", domain.KindEntity)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Errorf("expected restored table to resolve %s, got %s", want, got)
	}

	// New identifiers are ordered after everything restored.
	before := dst.Entries("")
	_, _ = dst.Normalize("Bob", domain.KindEntity)
	entry, ok := dst.Entry("Bob", domain.KindEntity, MintIdentifier(domain.KindEntity, "bob"))
	if !ok {
		t.Fatal("expected entry for Bob")
	}
	for _, e := range before {
		if entry.FirstSeen <= e.FirstSeen {
			t.Errorf("expected Bob first seen after %s (%d), got %d", e.Label, e.FirstSeen, entry.FirstSeen)
		}
	}
}
