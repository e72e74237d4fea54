package engine

import (
	"testing"

	"github.com/rhartert/detqbf/internal/qcnf"
)

// trivialSAT builds forall u. exists e. (u -> e): always satisfiable, since
// e can simply copy u.
func trivialSAT() *qcnf.QCNF {
	q := qcnf.New()
	u := q.AddVariable(true, 0)
	e := q.AddVariable(false, 1)
	q.AddClause([]qcnf.Literal{qcnf.Literal(-u), qcnf.Literal(e)}, true)
	return q
}

// trivialUNSAT builds forall u. exists e. (u -> e) AND (u -> NOT e): UNSAT,
// since no fixed e can satisfy both branches when u is true.
func trivialUNSAT() *qcnf.QCNF {
	q := qcnf.New()
	u := q.AddVariable(true, 0)
	e := q.AddVariable(false, 1)
	q.AddClause([]qcnf.Literal{qcnf.Literal(-u), qcnf.Literal(e)}, true)
	q.AddClause([]qcnf.Literal{qcnf.Literal(-u), qcnf.Literal(-e)}, true)
	return q
}

func TestSolveSAT(t *testing.T) {
	q := trivialSAT()
	e := New(q, DefaultOptions)

	state, err := e.Solve()
	if err != nil {
		t.Fatalf("Solve() error = %v", err)
	}
	if state != SAT {
		t.Fatalf("Solve() = %v, want SAT", state)
	}
}

func TestSolveUNSAT(t *testing.T) {
	q := trivialUNSAT()
	e := New(q, DefaultOptions)

	state, err := e.Solve()
	if err != nil {
		t.Fatalf("Solve() error = %v", err)
	}
	if state != UNSAT {
		t.Fatalf("Solve() = %v, want UNSAT", state)
	}

	// The only universal value that refutes (u -> e) AND (u -> NOT e) is
	// u = true: u = false satisfies both clauses vacuously.
	refutation := e.RefutingAssignment()
	if len(refutation) != 1 || refutation[0] != 1 {
		t.Fatalf("RefutingAssignment() = %v, want [1] (u=true)", refutation)
	}
}

func TestSolveRejectsDeeperPrefix(t *testing.T) {
	q := qcnf.New()
	u1 := q.AddVariable(true, 0)
	e1 := q.AddVariable(false, 1)
	u2 := q.AddVariable(true, 2)
	e2 := q.AddVariable(false, 3)
	q.AddClause([]qcnf.Literal{qcnf.Literal(-u1), qcnf.Literal(e1)}, true)
	q.AddClause([]qcnf.Literal{qcnf.Literal(-u2), qcnf.Literal(e2)}, true)

	e := New(q, DefaultOptions)
	state, err := e.Solve()
	if err == nil {
		t.Fatalf("expected an error for a prefix deeper than forall-exists")
	}
	if state != AbortExternal {
		t.Fatalf("state = %v, want AbortExternal", state)
	}
}

func TestSolveAcceptsPurelyPropositional(t *testing.T) {
	q := qcnf.New()
	a := q.AddVariable(false, 0)
	b := q.AddVariable(false, 0)
	q.AddClause([]qcnf.Literal{qcnf.Literal(a), qcnf.Literal(b)}, true)
	q.AddClause([]qcnf.Literal{qcnf.Literal(-a), qcnf.Literal(b)}, true)

	e := New(q, DefaultOptions)
	state, err := e.Solve()
	if err != nil {
		t.Fatalf("Solve() error = %v", err)
	}
	if state != SAT {
		t.Fatalf("Solve() = %v, want SAT", state)
	}
}

func TestAbortStopsTheSearch(t *testing.T) {
	q := trivialSAT()
	e := New(q, DefaultOptions)
	e.Abort()

	state, err := e.Solve()
	if err != nil {
		t.Fatalf("Solve() error = %v", err)
	}
	if state != AbortExternal {
		t.Fatalf("state = %v, want AbortExternal", state)
	}
}
