package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrStoreUnavailable marks transient store failures. Callers decide
	// whether to retry; nothing in the core retries.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrStoreIntegrity marks writes the store rejected for schema reasons.
	ErrStoreIntegrity = errors.New("store integrity violation")
	ErrAmbiguousLabel = errors.New("ambiguous label")
)

// StoreError wraps a failure at the graph store boundary. Kind is one of
// ErrStoreUnavailable or ErrStoreIntegrity.
type StoreError struct {
	Op   string
	Kind error
	Err  error
}

func (e *StoreError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *StoreError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func Unavailable(op string, err error) error {
	return &StoreError{Op: op, Kind: ErrStoreUnavailable, Err: err}
}

func Integrity(op string, err error) error {
	return &StoreError{Op: op, Kind: ErrStoreIntegrity, Err: err}
}

// AmbiguousLabelError is returned when a label resolves to several
// identifiers and no tie-break is in effect.
type AmbiguousLabelError struct {
	Label      string
	Kind       EntityKind
	Candidates []Identifier
}

func (e *AmbiguousLabelError) Error() string {
	ids := make([]string, len(e.Candidates))
	for i, c := range e.Candidates {
		ids[i] = string(c)
	}
	return fmt.Sprintf("ambiguous %s label %q: candidates [%s]", e.Kind, e.Label, strings.Join(ids, ", "))
}

func (e *AmbiguousLabelError) Is(target error) bool {
	return target == ErrAmbiguousLabel
}
