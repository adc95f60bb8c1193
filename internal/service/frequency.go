package service

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/Harshitk-cp/thoughtgraph/internal/domain"
)

// FrequencyTable counts, per type, how many entities carry the type and how
// many of those use each predicate. It only ever grows: keys are written
// once and counters only go up. Readers may see slightly stale counts.
type FrequencyTable struct {
	entities sync.Map // domain.Identifier -> *entityFacts
	types    sync.Map // domain.Identifier -> *typeStats
	seen     sync.Map // usageKey -> struct{}
}

type entityFacts struct {
	types      sync.Map // domain.Identifier -> struct{}
	predicates sync.Map // domain.Identifier -> struct{}
}

type typeStats struct {
	entities   atomic.Int64
	predicates sync.Map // domain.Identifier -> *atomic.Int64
}

type usageKey struct {
	typ, predicate, entity domain.Identifier
}

// PredicateFrequency is one predicate's usage within a type.
type PredicateFrequency struct {
	Predicate domain.Identifier `json:"predicate"`
	Entities  int64             `json:"entities"`
}

// TypeSnapshot is a point-in-time copy of one type's counters.
type TypeSnapshot struct {
	Type       domain.Identifier    `json:"type"`
	Entities   int64                `json:"entities"`
	Predicates []PredicateFrequency `json:"predicates"`
}

func NewFrequencyTable() *FrequencyTable {
	return &FrequencyTable{}
}

// Observe records that entity carries types and uses predicate. Either may
// be empty.
func (f *FrequencyTable) Observe(entity domain.Identifier, types []domain.Identifier, predicate domain.Identifier) {
	for _, t := range types {
		f.ObserveType(entity, t)
	}
	if predicate != "" {
		f.ObservePredicate(entity, predicate)
	}
}

func (f *FrequencyTable) ObserveType(entity, typ domain.Identifier) {
	if entity == "" || typ == "" {
		return
	}
	facts := f.facts(entity)
	if _, loaded := facts.types.LoadOrStore(typ, struct{}{}); loaded {
		return
	}
	f.stats(typ).entities.Add(1)
	facts.predicates.Range(func(k, _ any) bool {
		f.bump(typ, k.(domain.Identifier), entity)
		return true
	})
}

func (f *FrequencyTable) ObservePredicate(entity, predicate domain.Identifier) {
	if entity == "" || predicate == "" {
		return
	}
	facts := f.facts(entity)
	if _, loaded := facts.predicates.LoadOrStore(predicate, struct{}{}); loaded {
		return
	}
	facts.types.Range(func(k, _ any) bool {
		f.bump(k.(domain.Identifier), predicate, entity)
		return true
	})
}

// bump counts entity once for (typ, predicate) no matter how many paths
// reach it.
func (f *FrequencyTable) bump(typ, predicate, entity domain.Identifier) {
	if _, loaded := f.seen.LoadOrStore(usageKey{typ: typ, predicate: predicate, entity: entity}, struct{}{}); loaded {
		return
	}
	st := f.stats(typ)
	v, _ := st.predicates.LoadOrStore(predicate, new(atomic.Int64))
	v.(*atomic.Int64).Add(1)
}

func (f *FrequencyTable) facts(entity domain.Identifier) *entityFacts {
	v, _ := f.entities.LoadOrStore(entity, &entityFacts{})
	return v.(*entityFacts)
}

func (f *FrequencyTable) stats(typ domain.Identifier) *typeStats {
	v, _ := f.types.LoadOrStore(typ, &typeStats{})
	return v.(*typeStats)
}

// Support is the number of entities known to carry typ.
func (f *FrequencyTable) Support(typ domain.Identifier) int64 {
	v, ok := f.types.Load(typ)
	if !ok {
		return 0
	}
	return v.(*typeStats).entities.Load()
}

// Ratio is the share of typ's entities that use predicate, capped at 1.
func (f *FrequencyTable) Ratio(typ, predicate domain.Identifier) float64 {
	v, ok := f.types.Load(typ)
	if !ok {
		return 0
	}
	st := v.(*typeStats)
	support := st.entities.Load()
	if support == 0 {
		return 0
	}
	c, ok := st.predicates.Load(predicate)
	if !ok {
		return 0
	}
	return capRatio(float64(c.(*atomic.Int64).Load()) / float64(support))
}

// Predicates lists the predicates used by entities of typ, sorted by
// predicate.
func (f *FrequencyTable) Predicates(typ domain.Identifier) []PredicateFrequency {
	v, ok := f.types.Load(typ)
	if !ok {
		return nil
	}
	return predicateList(v.(*typeStats))
}

func (f *FrequencyTable) Snapshot() []TypeSnapshot {
	var out []TypeSnapshot
	f.types.Range(func(k, v any) bool {
		st := v.(*typeStats)
		out = append(out, TypeSnapshot{
			Type:       k.(domain.Identifier),
			Entities:   st.entities.Load(),
			Predicates: predicateList(st),
		})
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

func predicateList(st *typeStats) []PredicateFrequency {
	var out []PredicateFrequency
	st.predicates.Range(func(k, v any) bool {
		out = append(out, PredicateFrequency{
			Predicate: k.(domain.Identifier),
			Entities:  v.(*atomic.Int64).Load(),
		})
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Predicate < out[j].Predicate })
	return out
}

func capRatio(r float64) float64 {
	if r > 1 {
		return 1
	}
	return r
}
