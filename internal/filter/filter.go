// Package filter implements the fused inline filter evaluator of §4.4: an
// ordered list of byte-range comparison predicates combined as logical AND.
package filter

import (
	"bytes"

	"github.com/fwftable/fwftable/internal/common"
)

// Bound selects which side of the comparison a predicate checks.
type Bound int

const (
	// Lower: record >= value (or > if !Inclusive).
	Lower Bound = iota
	// Upper: record <= value (or < if !Inclusive).
	Upper
)

// Predicate is one byte-range comparison: record[Start:Start+len(Value)] vs
// Value, using lexicographic unsigned byte order.
type Predicate struct {
	Start     int
	Value     []byte
	Bound     Bound
	Inclusive bool
}

// newPredicate validates that a predicate's compared range fits inside a
// record's data width, per §4.11 ("FilterSet misconfiguration ... is fatal
// at setup").
func newPredicate(start int, value []byte, bound Bound, inclusive bool, dataWidth int) (Predicate, error) {
	if start < 0 || start+len(value) > dataWidth {
		return Predicate{}, common.New(common.KindFilter,
			"predicate extends past record end")
	}
	return Predicate{Start: start, Value: value, Bound: bound, Inclusive: inclusive}, nil
}

// eval applies the predicate to one record, implementing the sentinel rule
// and bound/inclusive matrix of §4.4.
func (p Predicate) eval(record []byte) bool {
	if len(p.Value) == 0 {
		return true // no-op predicate
	}

	// Sentinel: if the last byte of the compared field is ASCII space, the
	// field is "unbounded" and the predicate trivially passes.
	lastByte := record[p.Start+len(p.Value)-1]
	if lastByte == ' ' {
		return true
	}

	cmp := bytes.Compare(record[p.Start:p.Start+len(p.Value)], p.Value)

	switch {
	case p.Bound == Lower && p.Inclusive:
		return cmp >= 0
	case p.Bound == Lower && !p.Inclusive:
		return cmp > 0
	case p.Bound == Upper && p.Inclusive:
		return cmp <= 0
	default: // Upper, !Inclusive
		return cmp < 0
	}
}

// FilterSet holds an ordered list of predicates; Eval returns true iff every
// predicate passes. There is no OR at this layer — disjunctions are
// expressed by running two scans and unioning results in a higher layer.
type FilterSet struct {
	predicates []Predicate
}

// NewFilterSet constructs an empty FilterSet. The record's data width (W-N)
// is passed to each Add call, which validates the predicate against it.
func NewFilterSet() *FilterSet {
	return &FilterSet{}
}

// Add appends a predicate, cheapest-first ordering is the caller's
// responsibility (it does not affect correctness, only speed — §4.4).
func (fs *FilterSet) Add(start int, value []byte, bound Bound, inclusive bool, dataWidth int) error {
	p, err := newPredicate(start, value, bound, inclusive, dataWidth)
	if err != nil {
		return err
	}
	fs.predicates = append(fs.predicates, p)
	return nil
}

// Len reports the number of predicates currently held.
func (fs *FilterSet) Len() int { return len(fs.predicates) }

// Eval returns true iff every predicate in the set passes against record.
func (fs *FilterSet) Eval(record []byte) bool {
	for _, p := range fs.predicates {
		if !p.eval(record) {
			return false
		}
	}
	return true
}
