package service

import (
	"fmt"
	"os"

	"github.com/Harshitk-cp/thoughtgraph/internal/domain"
	"gopkg.in/yaml.v3"
)

// AliasGroup names one identifier and the labels that resolve to it. An
// empty ID is minted from the first label.
type AliasGroup struct {
	ID     domain.Identifier `yaml:"id"`
	Labels []string          `yaml:"labels"`
}

// AliasTable is the on-disk alias configuration.
type AliasTable struct {
	TieBreak   TieBreak     `yaml:"tie_break,omitempty"`
	Entities   []AliasGroup `yaml:"entities,omitempty"`
	Predicates []AliasGroup `yaml:"predicates,omitempty"`
	Types      []AliasGroup `yaml:"types,omitempty"`
}

// DefaultAliasTable seeds the labels that commonly denote the type predicate.
func DefaultAliasTable(typePredicate domain.Identifier) *AliasTable {
	return &AliasTable{
		Predicates: []AliasGroup{{
			ID:     typePredicate,
			Labels: []string{string(typePredicate), "type", "is a", "isa", "instance of"},
		}},
	}
}

func LoadAliasTable(path string) (*AliasTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read alias table: %w", err)
	}
	return ParseAliasTable(data)
}

func ParseAliasTable(data []byte) (*AliasTable, error) {
	var t AliasTable
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse alias table: %w", err)
	}
	if t.TieBreak != "" && !ValidTieBreak(string(t.TieBreak)) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTieBreak, t.TieBreak)
	}
	return &t, nil
}

// Merge appends the groups of other to t.
func (t *AliasTable) Merge(other *AliasTable) {
	if other == nil {
		return
	}
	if other.TieBreak != "" {
		t.TieBreak = other.TieBreak
	}
	t.Entities = append(t.Entities, other.Entities...)
	t.Predicates = append(t.Predicates, other.Predicates...)
	t.Types = append(t.Types, other.Types...)
}

// aliasPair is one label to identifier mapping produced by expanding a table.
type aliasPair struct {
	kind  domain.EntityKind
	label string
	id    domain.Identifier
}

func (t *AliasTable) pairs() []aliasPair {
	var out []aliasPair
	expand := func(kind domain.EntityKind, groups []AliasGroup) {
		for _, g := range groups {
			if len(g.Labels) == 0 {
				continue
			}
			id := g.ID
			if id == "" {
				canonical := Canonicalize(g.Labels[0])
				if canonical == "" {
					continue
				}
				id = MintIdentifier(kind, canonical)
			}
			for _, l := range g.Labels {
				if Canonicalize(l) == "" {
					continue
				}
				out = append(out, aliasPair{kind: kind, label: l, id: id})
			}
		}
	}
	expand(domain.KindEntity, t.Entities)
	expand(domain.KindPredicate, t.Predicates)
	expand(domain.KindType, t.Types)
	return out
}

// Apply registers every alias of t in the normalizer, in file order.
func (n *Normalizer) Apply(t *AliasTable) error {
	if t == nil {
		return nil
	}
	for _, p := range t.pairs() {
		if _, err := n.Alias(p.label, p.kind, p.id); err != nil {
			return fmt.Errorf("alias %q: %w", p.label, err)
		}
	}
	return nil
}
