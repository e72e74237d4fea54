package cegar

import (
	"testing"

	"github.com/rhartert/detqbf/internal/qcnf"
)

// buildFixture encodes forall u. exists e. (u -> e): SAT for every
// universal assignment, since e can always follow u.
func buildFixture() *qcnf.QCNF {
	q := qcnf.New()
	u := q.AddVariable(true, 0)
	e := q.AddVariable(false, 1)
	q.AddClause([]qcnf.Literal{qcnf.Literal(-u), qcnf.Literal(e)}, true)
	return q
}

func TestRefineWitnessesSatisfiableInstantiation(t *testing.T) {
	q := buildFixture()
	loop := New(q, DefaultOptions)

	outcome, clause := loop.Refine()
	if outcome != Witnessed {
		t.Fatalf("outcome = %v, want Witnessed", outcome)
	}
	if len(clause) != 1 {
		t.Fatalf("len(clause) = %d, want 1", len(clause))
	}
}

func TestRefineBlocksGenuineCounterexample(t *testing.T) {
	q := qcnf.New()
	u := q.AddVariable(true, 0)
	e := q.AddVariable(false, 1)
	// forall u. exists e. (u -> e) AND (u -> NOT e) is unsatisfiable whenever
	// u is true, regardless of e; queryAssignment defaults an unconstrained
	// universal to true, so the very first round should hit this.
	q.AddClause([]qcnf.Literal{qcnf.Literal(-u), qcnf.Literal(e)}, true)
	q.AddClause([]qcnf.Literal{qcnf.Literal(-u), qcnf.Literal(-e)}, true)

	loop := New(q, DefaultOptions)
	outcome, clause := loop.Refine()
	if outcome != BlockedCounterexample {
		t.Fatalf("outcome = %v, want BlockedCounterexample", outcome)
	}
	if clause == nil {
		t.Fatalf("expected a learnt clause")
	}

	blocked := loop.LastBlockedAssignment()
	if len(blocked) != 1 || blocked[0] != qcnf.Literal(u) {
		t.Fatalf("LastBlockedAssignment() = %v, want [%d] (u=true)", blocked, u)
	}
}

func TestRefineStopsOnIterationCap(t *testing.T) {
	q := buildFixture()
	loop := New(q, Options{MaxCubeSize: 32, MaxIterations: 0})

	outcome, clause := loop.Refine()
	if outcome != Stopped {
		t.Fatalf("outcome = %v, want Stopped", outcome)
	}
	if clause != nil {
		t.Fatalf("expected no clause when stopped immediately")
	}
}
