// Package examples implements the bounded cache of universal
// counterexamples: partial assignments over universal variables,
// derived from past conflicts, that are propagated alongside the Skolem
// domain to catch inconsistencies early. Each entry is a
// partial.Assignment; the domain keeps at most Capacity of them, evicting
// the oldest on overflow.
package examples

import (
	"github.com/rhartert/detqbf/internal/conflict"
	"github.com/rhartert/detqbf/internal/partial"
	"github.com/rhartert/detqbf/internal/qcnf"
)

// DefaultCapacity is the default bound N on the number of cached examples.
const DefaultCapacity = 16

// entry wraps one cached counterexample's partial assignment.
type entry struct {
	assignment *partial.Assignment
}

// Domain is the Examples domain.
type Domain struct {
	q        *qcnf.QCNF
	capacity int

	entries []*entry
	active  int // index of the entry currently extended by Decision, -1 if none

	depth int // current push depth, mirrored onto every entry

	conflicted    bool
	conflictEntry int
	conflictVar   int
	conflictIdx   int // clause index
}

// New returns an empty Examples domain bounded to capacity entries.
func New(q *qcnf.QCNF, capacity int) *Domain {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Domain{q: q, capacity: capacity, active: -1, conflictEntry: -1}
}

// Push opens a new decision scope across every cached example, mirroring
// the engine's decision level (invariant 1).
func (d *Domain) Push() {
	d.depth++
	for _, e := range d.entries {
		e.assignment.Tracker().Push()
	}
}

// Pop closes the most recent scope across every cached example.
func (d *Domain) Pop() {
	d.depth--
	for _, e := range d.entries {
		e.assignment.Tracker().Pop()
	}
	d.conflicted = false
	d.conflictEntry = -1
}

// AddExample adds a fresh counterexample asserting universalValues, evicting
// the oldest entry first if the domain is already at capacity. The new
// entry is brought up to the domain's current push depth before being
// propagated.
func (d *Domain) AddExample(universalValues []qcnf.Literal) {
	if len(d.entries) >= d.capacity {
		d.entries = d.entries[1:]
		if d.active == 0 {
			d.active = -1
		} else if d.active > 0 {
			d.active--
		}
	}

	a := partial.NewAssignment(d.q)
	for i := 0; i < d.depth; i++ {
		a.Tracker().Push()
	}
	for _, lit := range universalValues {
		a.Tracker().Assign(lit, -1)
	}
	d.entries = append(d.entries, &entry{assignment: a})
}

// Propagate advances every cached example under the current information,
// stopping at the first one that conflicts.
func (d *Domain) Propagate() bool {
	for i, e := range d.entries {
		if !e.assignment.Tracker().Propagate() {
			d.conflicted = true
			d.conflictEntry = i
			d.conflictIdx = e.assignment.Tracker().ConflictClause()
			d.conflictVar = e.assignment.Tracker().ConflictVar()
			return false
		}
	}
	return true
}

// Decision extends a consistent example with lit: first the active entry,
// if it remains consistent, otherwise the first cached entry for which lit
// is not already falsified becomes the new active entry.
func (d *Domain) Decision(lit qcnf.Literal) {
	if d.active >= 0 && d.active < len(d.entries) {
		v := d.entries[d.active].assignment.Tracker().Value(lit.Var())
		if v == qcnf.ValueUnknown || qcnf.ValueOf(v, lit) == qcnf.ValueTrue {
			d.entries[d.active].assignment.Tracker().Assign(lit, -1)
			return
		}
	}
	for i, e := range d.entries {
		v := e.assignment.Tracker().Value(lit.Var())
		if v == qcnf.ValueUnknown || qcnf.ValueOf(v, lit) == qcnf.ValueTrue {
			e.assignment.Tracker().Assign(lit, -1)
			d.active = i
			return
		}
	}
}

// NewClause notifies every cached example of a freshly learnt clause.
func (d *Domain) NewClause(clauseIdx int) {
	for i, e := range d.entries {
		e.assignment.Tracker().NewClause(clauseIdx)
		if e.assignment.Tracker().IsConflicted() {
			d.conflicted = true
			d.conflictEntry = i
			d.conflictIdx = e.assignment.Tracker().ConflictClause()
			d.conflictVar = e.assignment.Tracker().ConflictVar()
		}
	}
}

// IsConflicted reports whether the last Propagate/NewClause call found a
// conflicting example.
func (d *Domain) IsConflicted() bool { return d.conflicted }

// Conflict returns the conflicting clause index, variable, and entry index
// of the most recently detected conflict.
func (d *Domain) Conflict() (clauseIdx, v, entryIdx int) {
	return d.conflictIdx, d.conflictVar, d.conflictEntry
}

// Capability returns the conflict analyzer callbacks for the currently
// conflicted entry. It must only be called while IsConflicted is true.
func (d *Domain) Capability() conflict.Capability {
	return d.entries[d.conflictEntry].assignment.Capability()
}

// Len reports how many examples are currently cached.
func (d *Domain) Len() int { return len(d.entries) }
