package satsolver

import "testing"

func newVars(s *Solver, n int) []int {
	ids := make([]int, n)
	for i := range ids {
		ids[i] = s.AddVariable()
	}
	return ids
}

func TestSolveAssuming_SAT(t *testing.T) {
	s := NewDefaultSolver()
	v := newVars(s, 2)

	// (x0 v x1) & (!x0 v x1) & (x0 v !x1)
	s.AddClause([]Literal{s.PositiveLiteral(v[0]), s.PositiveLiteral(v[1])})
	s.AddClause([]Literal{s.NegativeLiteral(v[0]), s.PositiveLiteral(v[1])})
	s.AddClause([]Literal{s.PositiveLiteral(v[0]), s.NegativeLiteral(v[1])})

	if got := s.SolveAssuming(-1); got != True {
		t.Fatalf("SolveAssuming() = %s, want true", got)
	}
	if s.VarValue(v[0]) != True || s.VarValue(v[1]) != True {
		t.Fatalf("expected both variables true, got %s %s", s.VarValue(v[0]), s.VarValue(v[1]))
	}
}

func TestSolveAssuming_UNSAT(t *testing.T) {
	s := NewDefaultSolver()
	v := newVars(s, 2)

	s.AddClause([]Literal{s.PositiveLiteral(v[0]), s.PositiveLiteral(v[1])})
	s.AddClause([]Literal{s.PositiveLiteral(v[0]), s.NegativeLiteral(v[1])})
	s.AddClause([]Literal{s.NegativeLiteral(v[0]), s.PositiveLiteral(v[1])})
	s.AddClause([]Literal{s.NegativeLiteral(v[0]), s.NegativeLiteral(v[1])})

	if got := s.SolveAssuming(-1); got != False {
		t.Fatalf("SolveAssuming() = %s, want false", got)
	}
}

func TestAssumeAndBacktrack(t *testing.T) {
	s := NewDefaultSolver()
	v := newVars(s, 3)

	s.AddClause([]Literal{s.NegativeLiteral(v[0]), s.PositiveLiteral(v[1])}) // x0 -> x1
	s.AddClause([]Literal{s.NegativeLiteral(v[1]), s.PositiveLiteral(v[2])}) // x1 -> x2

	if !s.Assume(s.PositiveLiteral(v[0])) {
		t.Fatalf("Assume(x0) should succeed")
	}
	if conflict := s.Propagate(); conflict != nil {
		t.Fatalf("unexpected conflict: %s", conflict)
	}
	if s.VarValue(v[2]) != True {
		t.Fatalf("expected x2 to be forced true, got %s", s.VarValue(v[2]))
	}

	s.Backtrack(0)
	if s.VarValue(v[0]) != Unknown || s.VarValue(v[2]) != Unknown {
		t.Fatalf("backtrack to 0 should undo all assignments")
	}
}

func TestIncrementalCallsShareLearntClauses(t *testing.T) {
	s := NewDefaultSolver()
	v := newVars(s, 4)

	s.AddClause([]Literal{s.PositiveLiteral(v[0]), s.PositiveLiteral(v[1])})
	s.AddClause([]Literal{s.PositiveLiteral(v[2]), s.PositiveLiteral(v[3])})

	if got := s.SolveAssuming(-1); got != True {
		t.Fatalf("first SolveAssuming() = %s, want true", got)
	}
	s.Backtrack(0)

	before := s.NumLearnts()
	if got := s.SolveAssuming(-1); got != True {
		t.Fatalf("second SolveAssuming() = %s, want true", got)
	}
	if s.NumLearnts() < before {
		t.Fatalf("learnt clauses should not shrink across incremental calls")
	}
}
