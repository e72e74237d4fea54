package casesplit

import (
	"testing"

	"github.com/rhartert/detqbf/internal/adapter"
	"github.com/rhartert/detqbf/internal/qcnf"
	"github.com/rhartert/detqbf/internal/skolem"
)

// buildFixture returns a QCNF/Skolem/adapter triple with one universal and
// two existentials, where e2 is not forced by propagation alone but the
// adapter's own clause set pins it through a separate propositional clause
// — making it an interface literal candidate for the case-split driver.
func buildFixture(t *testing.T) (*qcnf.QCNF, *skolem.Domain, *adapter.Adapter) {
	t.Helper()

	q := qcnf.New()
	u := q.AddVariable(true, 0)
	e1 := q.AddVariable(false, 1)
	e2 := q.AddVariable(false, 1)
	q.AddClause([]qcnf.Literal{qcnf.Literal(-u), qcnf.Literal(e1)}, true)

	sat := adapter.New()
	d := skolem.New(q, sat)

	// Pin e2 in the adapter directly, bypassing the Skolem domain, so it
	// looks like an interface literal: the SAT engine has an opinion on it
	// that the first-order tracker does not yet share.
	sat.AddClause([]int{e2})

	return q, d, sat
}

func TestCandidateFindsNotoriousInterfaceLiteral(t *testing.T) {
	q, d, sat := buildFixture(t)

	driver := New(q, Options{NotoriousnessThresholdFactor: 0, DepthPenalty: 0.1})
	driver.Refresh(d)

	lit, ok := driver.Candidate(d, sat)
	if !ok {
		t.Fatalf("expected a candidate interface literal")
	}
	if lit.Var() != 3 {
		t.Fatalf("lit.Var() = %d, want 3 (e2)", lit.Var())
	}
}

func TestCandidateNoneBelowThreshold(t *testing.T) {
	q, d, sat := buildFixture(t)
	q.Bump(2, 1) // e1
	q.Bump(3, 1) // e2

	driver := New(q, Options{NotoriousnessThresholdFactor: 1e9, DepthPenalty: 0.1})
	driver.Refresh(d)

	if _, ok := driver.Candidate(d, sat); ok {
		t.Fatalf("did not expect a candidate when every score is below threshold")
	}
}

func TestOpenAndCloseRestoreRestartBaseLevel(t *testing.T) {
	q, d, sat := buildFixture(t)

	driver := New(q, Options{NotoriousnessThresholdFactor: 0, DepthPenalty: 0.1})
	driver.Refresh(d)

	lit, ok := driver.Candidate(d, sat)
	if !ok {
		t.Fatalf("expected a candidate interface literal")
	}

	d.Push()
	d.Decision(lit)
	driver.Open(lit, d.DecisionLevel(lit.Var()))

	if driver.Depth() != 1 {
		t.Fatalf("Depth() = %d, want 1", driver.Depth())
	}
	if driver.RestartBaseLevel() != 1 {
		t.Fatalf("RestartBaseLevel() = %d, want 1", driver.RestartBaseLevel())
	}

	cc := driver.Close(d)
	d.Pop()

	if driver.Depth() != 0 {
		t.Fatalf("Depth() = %d, want 0 after closing the only open case", driver.Depth())
	}
	if driver.RestartBaseLevel() != 0 {
		t.Fatalf("RestartBaseLevel() = %d, want 0 after closing the outermost case", driver.RestartBaseLevel())
	}
	if len(cc.Cube) != 1 {
		t.Fatalf("len(Cube) = %d, want 1", len(cc.Cube))
	}
	if len(driver.ClosedCases()) != 1 {
		t.Fatalf("len(ClosedCases()) = %d, want 1", len(driver.ClosedCases()))
	}
}
