package conflict

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rhartert/detqbf/internal/qcnf"
)

// buildChain encodes x1 -> x2 -> x3 -> !x3 (a simple implication chain
// ending in a conflict on x3) and returns the QCNF plus a capability backed
// by plain in-memory maps.
func buildChain(t *testing.T) (*qcnf.QCNF, Capability, int) {
	t.Helper()
	q := qcnf.New()
	x1 := q.AddVariable(false, 1)
	x2 := q.AddVariable(false, 1)
	x3 := q.AddVariable(false, 1)

	level := map[int]int{x1: 1, x2: 1, x3: 1}
	reason := map[int]int{x1: -1}

	c1 := q.AddClause([]qcnf.Literal{qcnf.Literal(-x1), qcnf.Literal(x2)}, true) // x1 -> x2
	reason[x2] = c1.Index
	c2 := q.AddClause([]qcnf.Literal{qcnf.Literal(-x2), qcnf.Literal(x3)}, true) // x2 -> x3
	reason[x3] = c2.Index
	c3 := q.AddClause([]qcnf.Literal{qcnf.Literal(-x3)}, true) // forces x3 false: conflict

	value := map[int]qcnf.Value{x1: qcnf.ValueTrue, x2: qcnf.ValueTrue, x3: qcnf.ValueTrue}

	cap := Capability{
		ValueOf: func(l qcnf.Literal) qcnf.Value { return qcnf.ValueOf(value[l.Var()], l) },
		IsRelevantClause: func(int) bool { return true },
		IsLegalDependence: func(int, int) bool { return true },
		DecisionLevelOf: func(v int) int { return level[v] },
		ReasonOf: func(v int) int {
			if r, ok := reason[v]; ok {
				return r
			}
			return -1
		},
	}

	return q, cap, c3.Index
}

func TestAnalyzeStopsAtFirstUIP(t *testing.T) {
	q, cap, conflictIdx := buildChain(t)

	learnt, backtrack := Analyze(q, conflictIdx, 0, cap)

	// The conflict clause {!x3} already has exactly one literal at the
	// conflict level (1), so it is its own first UIP: Analyze stops there
	// instead of resolving back through x2 to the decision x1.
	want := []qcnf.Literal{qcnf.Literal(-3)}
	if diff := cmp.Diff(want, learnt); diff != "" {
		t.Fatalf("Analyze() learnt mismatch (-want +got):\n%s", diff)
	}
	if backtrack != 0 {
		t.Fatalf("backtrack level = %d, want 0", backtrack)
	}
}

func TestBacktrackLevelClampsToFloor(t *testing.T) {
	if got := BacktrackLevel(2, 5); got != 5 {
		t.Fatalf("BacktrackLevel(2, 5) = %d, want 5", got)
	}
	if got := BacktrackLevel(7, 5); got != 7 {
		t.Fatalf("BacktrackLevel(7, 5) = %d, want 7", got)
	}
}

func TestDecisionsInvolved(t *testing.T) {
	levelOf := func(v int) int { return v }
	learnt := []qcnf.Literal{qcnf.Literal(1), qcnf.Literal(-3)}

	if !DecisionsInvolved(learnt, 2, levelOf) {
		t.Fatalf("expected decisions involved (var 3 has level 3 > floor 2)")
	}
	if DecisionsInvolved(learnt, 3, levelOf) {
		t.Fatalf("expected no decisions involved above floor 3")
	}
}
