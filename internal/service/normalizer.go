package service

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/Harshitk-cp/thoughtgraph/internal/domain"
	"github.com/google/uuid"
)

var (
	ErrLabelEmpty      = errors.New("label is required")
	ErrInvalidKind     = errors.New("invalid entity kind")
	ErrInvalidTieBreak = errors.New("invalid tie-break rule")
)

// TieBreak picks one identifier when a label maps to several.
type TieBreak string

const (
	// TieMostFrequent picks the most resolved identifier, earliest-seen on ties.
	TieMostFrequent TieBreak = "most_frequent"
	TieMostRecent   TieBreak = "most_recent"
	TieEarliestSeen TieBreak = "earliest_seen"
	// TieStrict refuses to choose and returns an AmbiguousLabelError.
	TieStrict TieBreak = "strict"
)

func ValidTieBreak(t string) bool {
	switch TieBreak(t) {
	case TieMostFrequent, TieMostRecent, TieEarliestSeen, TieStrict:
		return true
	}
	return false
}

// mintNamespace seeds the UUIDv5 identifiers minted for unknown labels.
var mintNamespace = uuid.MustParse("6f1c3e2a-8d4b-5a7e-9c1f-2b3d4e5f6a7b")

// Canonicalize reduces a surface label to the form used for matching.
// camelCase and snake_case are split into words, edge punctuation is
// stripped, whitespace collapsed and the result lower-cased, so "livesIn",
// "lives_in" and " Lives in. " all give "lives in".
func Canonicalize(label string) string {
	label = splitCamel(strings.ReplaceAll(label, "_", " "))
	label = strings.TrimFunc(label, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
	return strings.ToLower(strings.Join(strings.Fields(label), " "))
}

func splitCamel(s string) string {
	var b strings.Builder
	var prev rune
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) && (unicode.IsLower(prev) || unicode.IsDigit(prev)) {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
		prev = r
	}
	return b.String()
}

// MintIdentifier derives the identifier for a label nobody has seen. The
// same kind and canonical label always give the same identifier.
func MintIdentifier(kind domain.EntityKind, canonical string) domain.Identifier {
	id := uuid.NewSHA1(mintNamespace, []byte(string(kind)+"\x00"+canonical))
	return domain.Identifier(string(kind) + ":" + id.String())
}

type labelKey struct {
	kind      domain.EntityKind
	canonical string
}

type idState struct {
	kind      domain.EntityKind
	frequency int
	firstSeen int64
	lastUsed  int64
}

type labelRow struct {
	id    domain.Identifier
	label string
}

// Normalizer maps surface labels to stable identifiers through an explicit
// alias table. It is safe for concurrent use.
type Normalizer struct {
	mu      sync.RWMutex
	rule    TieBreak
	clock   int64
	byLabel map[labelKey][]labelRow
	ids     map[domain.Identifier]*idState
}

func NewNormalizer(rule TieBreak) *Normalizer {
	if !ValidTieBreak(string(rule)) {
		rule = TieMostFrequent
	}
	return &Normalizer{
		rule:    rule,
		byLabel: make(map[labelKey][]labelRow),
		ids:     make(map[domain.Identifier]*idState),
	}
}

func (n *Normalizer) Rule() TieBreak {
	return n.rule
}

// Normalize resolves label with the configured tie-break, minting a new
// identifier when the label is unknown.
func (n *Normalizer) Normalize(label string, kind domain.EntityKind) (domain.Identifier, error) {
	return n.NormalizeWith(label, kind, n.rule)
}

func (n *Normalizer) NormalizeWith(label string, kind domain.EntityKind, rule TieBreak) (domain.Identifier, error) {
	id, ok, err := n.Lookup(label, kind, rule)
	if err != nil || ok {
		return id, err
	}
	id, _, err = n.Mint(label, kind)
	return id, err
}

// Lookup resolves label against the table without minting. A successful
// lookup counts as a use of the returned identifier.
func (n *Normalizer) Lookup(label string, kind domain.EntityKind, rule TieBreak) (domain.Identifier, bool, error) {
	key, err := n.key(label, kind)
	if err != nil {
		return "", false, err
	}
	if !ValidTieBreak(string(rule)) {
		return "", false, ErrInvalidTieBreak
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	rows := n.byLabel[key]
	if len(rows) == 0 {
		return "", false, nil
	}

	id, err := n.choose(label, kind, rows, rule)
	if err != nil {
		return "", false, err
	}
	n.touch(id)
	return id, true, nil
}

// Mint registers label under a freshly derived identifier. If the label is
// already known the existing resolution wins and created is false.
func (n *Normalizer) Mint(label string, kind domain.EntityKind) (domain.Identifier, bool, error) {
	key, err := n.key(label, kind)
	if err != nil {
		return "", false, err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if rows := n.byLabel[key]; len(rows) > 0 {
		id, err := n.choose(label, kind, rows, n.rule)
		if err != nil {
			return "", false, err
		}
		n.touch(id)
		return id, false, nil
	}

	id := MintIdentifier(kind, key.canonical)
	n.register(key, label, id)
	n.touch(id)
	return id, true, nil
}

// Alias adds label as a name of id. Adding a second identifier to an
// existing label is how ambiguity enters the table.
func (n *Normalizer) Alias(label string, kind domain.EntityKind, id domain.Identifier) (bool, error) {
	key, err := n.key(label, kind)
	if err != nil {
		return false, err
	}
	if id == "" {
		return false, ErrLabelEmpty
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	for _, r := range n.byLabel[key] {
		if r.id == id {
			return false, nil
		}
	}
	n.register(key, label, id)
	return true, nil
}

// Candidates lists every identifier the label maps to, in first-seen order.
func (n *Normalizer) Candidates(label string, kind domain.EntityKind) []domain.Identifier {
	key, err := n.key(label, kind)
	if err != nil {
		return nil
	}

	n.mu.RLock()
	defer n.mu.RUnlock()

	rows := n.byLabel[key]
	out := make([]domain.Identifier, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.id)
	}
	return out
}

// Entries snapshots the alias table for one kind (all kinds when empty),
// ordered by first sighting of the identifier, then label.
func (n *Normalizer) Entries(kind domain.EntityKind) []domain.LabelEntry {
	n.mu.RLock()
	defer n.mu.RUnlock()

	var out []domain.LabelEntry
	for key, rows := range n.byLabel {
		if kind != "" && key.kind != kind {
			continue
		}
		for _, r := range rows {
			st := n.ids[r.id]
			out = append(out, domain.LabelEntry{
				ID:        r.id,
				Kind:      key.kind,
				Label:     r.label,
				Canonical: key.canonical,
				Frequency: st.frequency,
				FirstSeen: st.firstSeen,
				LastUsed:  st.lastUsed,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FirstSeen != out[j].FirstSeen {
			return out[i].FirstSeen < out[j].FirstSeen
		}
		if out[i].Canonical != out[j].Canonical {
			return out[i].Canonical < out[j].Canonical
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Restore loads previously persisted entries. Existing rows are kept; the
// logical clock moves past every restored timestamp.
func (n *Normalizer) Restore(entries []domain.LabelEntry) {
	sorted := make([]domain.LabelEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].FirstSeen < sorted[j].FirstSeen })

	n.mu.Lock()
	defer n.mu.Unlock()

	for _, e := range sorted {
		if !domain.ValidEntityKind(string(e.Kind)) || e.ID == "" {
			continue
		}
		canonical := e.Canonical
		if canonical == "" {
			canonical = Canonicalize(e.Label)
		}
		if canonical == "" {
			continue
		}
		key := labelKey{kind: e.Kind, canonical: canonical}
		dup := false
		for _, r := range n.byLabel[key] {
			if r.id == e.ID {
				dup = true
				break
			}
		}
		if !dup {
			n.byLabel[key] = append(n.byLabel[key], labelRow{id: e.ID, label: e.Label})
		}

		st, ok := n.ids[e.ID]
		if !ok {
			st = &idState{kind: e.Kind, firstSeen: e.FirstSeen, lastUsed: e.LastUsed}
			n.ids[e.ID] = st
		}
		if e.Frequency > st.frequency {
			st.frequency = e.Frequency
		}
		if e.LastUsed > st.lastUsed {
			st.lastUsed = e.LastUsed
		}
		if e.FirstSeen < st.firstSeen {
			st.firstSeen = e.FirstSeen
		}
		if e.FirstSeen > n.clock {
			n.clock = e.FirstSeen
		}
		if e.LastUsed > n.clock {
			n.clock = e.LastUsed
		}
	}
}

// Entry returns the current table state for one label/identifier pair.
func (n *Normalizer) Entry(label string, kind domain.EntityKind, id domain.Identifier) (domain.LabelEntry, bool) {
	key, err := n.key(label, kind)
	if err != nil {
		return domain.LabelEntry{}, false
	}

	n.mu.RLock()
	defer n.mu.RUnlock()

	for _, r := range n.byLabel[key] {
		if r.id != id {
			continue
		}
		st := n.ids[id]
		return domain.LabelEntry{
			ID:        id,
			Kind:      kind,
			Label:     r.label,
			Canonical: key.canonical,
			Frequency: st.frequency,
			FirstSeen: st.firstSeen,
			LastUsed:  st.lastUsed,
		}, true
	}
	return domain.LabelEntry{}, false
}

func (n *Normalizer) key(label string, kind domain.EntityKind) (labelKey, error) {
	if !domain.ValidEntityKind(string(kind)) {
		return labelKey{}, ErrInvalidKind
	}
	canonical := Canonicalize(label)
	if canonical == "" {
		return labelKey{}, ErrLabelEmpty
	}
	return labelKey{kind: kind, canonical: canonical}, nil
}

// register must be called with mu held.
func (n *Normalizer) register(key labelKey, label string, id domain.Identifier) {
	n.byLabel[key] = append(n.byLabel[key], labelRow{id: id, label: label})
	if _, ok := n.ids[id]; !ok {
		n.clock++
		n.ids[id] = &idState{kind: key.kind, firstSeen: n.clock, lastUsed: n.clock}
	}
}

// touch must be called with mu held.
func (n *Normalizer) touch(id domain.Identifier) {
	st := n.ids[id]
	n.clock++
	st.frequency++
	st.lastUsed = n.clock
}

// choose must be called with mu held.
func (n *Normalizer) choose(label string, kind domain.EntityKind, rows []labelRow, rule TieBreak) (domain.Identifier, error) {
	if len(rows) == 1 {
		return rows[0].id, nil
	}

	if rule == TieStrict {
		ids := make([]domain.Identifier, len(rows))
		for i, r := range rows {
			ids[i] = r.id
		}
		return "", &domain.AmbiguousLabelError{Label: label, Kind: kind, Candidates: ids}
	}

	best := rows[0].id
	for _, r := range rows[1:] {
		if n.better(r.id, best, rule) {
			best = r.id
		}
	}
	return best, nil
}

func (n *Normalizer) better(a, b domain.Identifier, rule TieBreak) bool {
	sa, sb := n.ids[a], n.ids[b]
	switch rule {
	case TieMostFrequent:
		if sa.frequency != sb.frequency {
			return sa.frequency > sb.frequency
		}
	case TieMostRecent:
		if sa.lastUsed != sb.lastUsed {
			return sa.lastUsed > sb.lastUsed
		}
	}
	if sa.firstSeen != sb.firstSeen {
		return sa.firstSeen < sb.firstSeen
	}
	return a < b
}
