package examples

import (
	"testing"

	"github.com/rhartert/detqbf/internal/qcnf"
)

func TestPropagateDetectsConflict(t *testing.T) {
	q := qcnf.New()
	u := q.AddVariable(true, 0)
	e := q.AddVariable(false, 1)

	q.AddClause([]qcnf.Literal{qcnf.Literal(-u), qcnf.Literal(e)}, true)  // u -> e
	q.AddClause([]qcnf.Literal{qcnf.Literal(-u), qcnf.Literal(-e)}, true) // u -> !e

	d := New(q, 4)
	d.AddExample([]qcnf.Literal{qcnf.Literal(u)})

	if d.Propagate() {
		t.Fatalf("expected a conflict: u forces both e and !e")
	}
	if !d.IsConflicted() {
		t.Fatalf("IsConflicted() = false, want true")
	}
}

func TestCapacityEvictsOldest(t *testing.T) {
	q := qcnf.New()
	u := q.AddVariable(true, 0)

	d := New(q, 2)
	d.AddExample([]qcnf.Literal{qcnf.Literal(u)})
	d.AddExample([]qcnf.Literal{qcnf.Literal(-u)})
	d.AddExample([]qcnf.Literal{qcnf.Literal(u)})

	if got := d.Len(); got != 2 {
		t.Fatalf("Len() = %d, want 2 after exceeding capacity", got)
	}
	// The first example (u true) was the oldest, so the surviving oldest
	// entry is the second one, with u false.
	if got := d.entries[0].assignment.Tracker().Value(u); got != qcnf.ValueFalse {
		t.Fatalf("oldest surviving entry has u = %v, want false (first example evicted)", got)
	}
}

func TestPushPopRoundtrip(t *testing.T) {
	q := qcnf.New()
	u := q.AddVariable(true, 0)
	e := q.AddVariable(false, 1)
	q.AddClause([]qcnf.Literal{qcnf.Literal(-u), qcnf.Literal(e)}, true)

	d := New(q, 4)
	d.AddExample([]qcnf.Literal{qcnf.Literal(u)})

	d.Push()
	d.Decision(qcnf.Literal(u))
	if !d.Propagate() {
		t.Fatalf("unexpected conflict")
	}
	d.Pop()

	// After popping, no entry should still believe e is assigned (the
	// AddExample call predates the push, but the decision happened inside
	// the pushed scope and must have been undone).
	if got := d.entries[0].assignment.Tracker().Value(e); got == qcnf.ValueTrue {
		t.Fatalf("Pop() should have undone the propagated assignment to e")
	}
}
