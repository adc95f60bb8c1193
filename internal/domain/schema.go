package domain

import (
	"fmt"
)

// Schema holds predicate constraints the stores enforce on insert.
// Domain maps a predicate to the type its subject must carry, Range to the
// type its object must carry. Entities with no known types pass.
type Schema struct {
	TypePredicate Identifier                `json:"type_predicate" yaml:"type_predicate"`
	Domain        map[Identifier]Identifier `json:"domain,omitempty" yaml:"domain,omitempty"`
	Range         map[Identifier]Identifier `json:"range,omitempty" yaml:"range,omitempty"`
}

// DefaultTypePredicate links an entity to one of its types.
const DefaultTypePredicate Identifier = "rdf:type"

func DefaultSchema() Schema {
	return Schema{
		TypePredicate: DefaultTypePredicate,
		Domain:        map[Identifier]Identifier{},
		Range:         map[Identifier]Identifier{},
	}
}

// IsTypeAssertion reports whether c declares a type for its subject.
func (s Schema) IsTypeAssertion(c CandidateStatement) bool {
	return s.TypePredicate != "" &&
		c.Triple.Predicate == s.TypePredicate &&
		c.Perspective.Polarity == PolarityAffirmative
}

// Check validates a triple against the constraints given the known types of
// its subject and object.
func (s Schema) Check(t Triple, subjectTypes, objectTypes []Identifier) error {
	if want, ok := s.Domain[t.Predicate]; ok && len(subjectTypes) > 0 && !containsID(subjectTypes, want) {
		return fmt.Errorf("subject %s of %s must be typed %s", t.Subject, t.Predicate, want)
	}
	if want, ok := s.Range[t.Predicate]; ok && len(objectTypes) > 0 && !containsID(objectTypes, want) {
		return fmt.Errorf("object %s of %s must be typed %s", t.Object, t.Predicate, want)
	}
	return nil
}

func containsID(ids []Identifier, id Identifier) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
