// Package cegar implements the counterexample-guided abstraction refinement
// loop: a side SAT solver ranging only over universal variables
// proposes a candidate universal assignment; the main formula is
// instantiated under it and checked for existential satisfiability. An
// instantiation that turns out unsatisfiable is a genuine counterexample,
// blocked in the side solver so it is never proposed again; one that turns
// out satisfiable witnesses that direction was fine, and both outcomes are
// converted into a learnt clause fed back to the main engine.
package cegar

import (
	"github.com/rhartert/detqbf/internal/adapter"
	"github.com/rhartert/detqbf/internal/qcnf"
	"github.com/rhartert/detqbf/internal/satsolver"
)

// Options configures a Loop.
type Options struct {
	// MaxCubeSize stops refinement once a learnt blocking cube would exceed
	// this many literals: past that point CEGAR is spending more effort
	// pinning down one universal assumption than the main search would.
	MaxCubeSize int
	// MaxIterations caps the number of rounds a single Refine call will run.
	MaxIterations int
}

// DefaultOptions mirrors CADET's default CEGAR tuning.
var DefaultOptions = Options{MaxCubeSize: 32, MaxIterations: 8}

// Outcome reports what a Refine round discovered.
type Outcome int

const (
	// NoProgress means the side solver's own clause set is unsatisfiable:
	// every universal assignment has already been blocked, so the 2QBF
	// formula is UNSAT.
	NoProgress Outcome = iota
	// BlockedCounterexample means the instantiated formula was
	// unsatisfiable under the queried universal assignment — a genuine
	// counterexample, now blocked in the side solver.
	BlockedCounterexample
	// Witnessed means the instantiated formula was satisfiable: the queried
	// universal assignment has a winning existential response.
	Witnessed
	// Stopped means the iteration or cube-size cap was reached before
	// either resolving.
	Stopped
)

func (o Outcome) String() string {
	switch o {
	case NoProgress:
		return "NO_PROGRESS"
	case BlockedCounterexample:
		return "BLOCKED_COUNTEREXAMPLE"
	case Witnessed:
		return "WITNESSED"
	default:
		return "STOPPED"
	}
}

// Loop is the CEGAR loop: a side solver over q's universal variables,
// independent of the main engine's adapter.
type Loop struct {
	q   *qcnf.QCNF
	opt Options

	side *adapter.Adapter // one variable per q variable; existential slots go unused

	// lastBlocked is the most recent universal assignment this loop found
	// unsatisfiable under instantiation: a genuine counterexample, and
	// still one even once NoProgress later reports every assignment as
	// blocked, which is why the engine reads it off as the formula's
	// refuting universal assignment (§6 "Output on UNSAT").
	lastBlocked []qcnf.Literal
}

// New returns a Loop over q with a fresh, unconstrained side solver.
func New(q *qcnf.QCNF, opt Options) *Loop {
	l := &Loop{q: q, opt: opt, side: adapter.New()}
	for l.side.NumVariables() < q.NumVariables() {
		l.side.AddVariable()
	}
	return l
}

// Refine runs up to Options.MaxIterations rounds. It returns the outcome of
// the round that resolved (or Stopped if none did within the cap) along
// with the learnt clause to feed back to the main engine, if any.
func (l *Loop) Refine() (Outcome, []qcnf.Literal) {
	for i := 0; i < l.opt.MaxIterations; i++ {
		if l.side.Solve(-1) == adapter.UNSAT {
			return NoProgress, nil
		}

		assignment := l.queryAssignment()
		// Back to the side solver's root, so that the blocking clause below
		// is added with no scope pushed, as AddClause requires.
		l.side.PopScope(0)
		reduced, existentials := l.instantiate(assignment)

		if satisfiable(reduced, existentials) {
			return Witnessed, witnessClause(assignment)
		}

		cube := blockingCube(assignment)
		if len(cube) > l.opt.MaxCubeSize {
			return Stopped, nil
		}
		l.lastBlocked = cube
		l.side.AddClause(negateToInts(cube))
		return BlockedCounterexample, witnessClause(assignment)
	}
	return Stopped, nil
}

// LastBlockedAssignment returns the most recent universal assignment this
// loop found unsatisfiable under instantiation, one signed literal per
// universal variable, or nil if none has been blocked yet.
func (l *Loop) LastBlockedAssignment() []qcnf.Literal {
	return l.lastBlocked
}

// queryAssignment reads the side solver's current value for every universal
// variable, defaulting an unconstrained one to true.
func (l *Loop) queryAssignment() map[int]qcnf.Value {
	a := make(map[int]qcnf.Value)
	for v := 1; v <= l.q.NumVariables(); v++ {
		if !l.q.Variable(v).Universal {
			continue
		}
		switch l.side.Value(v) {
		case adapter.UNSAT:
			a[v] = qcnf.ValueFalse
		default:
			a[v] = qcnf.ValueTrue
		}
	}
	return a
}

// instantiate reduces q's clauses under assignment, dropping satisfied
// clauses and the (now-fixed) universal literals from the rest. A clause
// left with zero existential literals in the result is unsatisfiable under
// assignment.
func (l *Loop) instantiate(assignment map[int]qcnf.Value) (reduced [][]qcnf.Literal, existentials map[int]bool) {
	existentials = make(map[int]bool)
	for _, c := range l.q.Clauses() {
		satisfied := false
		var rem []qcnf.Literal
		for _, lit := range c.Literals {
			v := lit.Var()
			if l.q.Variable(v).Universal {
				if qcnf.ValueOf(assignment[v], lit) == qcnf.ValueTrue {
					satisfied = true
					break
				}
				continue
			}
			rem = append(rem, lit)
			existentials[v] = true
		}
		if satisfied {
			continue
		}
		reduced = append(reduced, rem)
	}
	return reduced, existentials
}

// satisfiable checks the existential-only reduction produced by instantiate
// with a throwaway one-shot satsolver.Solver.
func satisfiable(reduced [][]qcnf.Literal, existentials map[int]bool) bool {
	s := satsolver.NewDefaultSolver()
	ids := make(map[int]int, len(existentials))
	for v := range existentials {
		ids[v] = s.AddVariable()
	}

	for _, rc := range reduced {
		if len(rc) == 0 {
			return false
		}
		lits := make([]satsolver.Literal, 0, len(rc))
		for _, lit := range rc {
			id := ids[lit.Var()]
			if lit.Positive() {
				lits = append(lits, s.PositiveLiteral(id))
			} else {
				lits = append(lits, s.NegativeLiteral(id))
			}
		}
		s.AddClause(lits)
		if s.IsUnsat() {
			return false
		}
	}
	return s.Solve() == satsolver.True
}

// blockingCube returns the cube matching assignment, one literal per
// universal variable.
func blockingCube(assignment map[int]qcnf.Value) []qcnf.Literal {
	cube := make([]qcnf.Literal, 0, len(assignment))
	for v, val := range assignment {
		if val == qcnf.ValueTrue {
			cube = append(cube, qcnf.Literal(v))
		} else {
			cube = append(cube, qcnf.Literal(-v))
		}
	}
	return cube
}

// witnessClause negates assignment into a clause: the main engine and the
// side solver alike should never again need to explore this exact
// universal combination once it has been resolved one way or the other.
func witnessClause(assignment map[int]qcnf.Value) []qcnf.Literal {
	lits := make([]qcnf.Literal, 0, len(assignment))
	for v, val := range assignment {
		if val == qcnf.ValueTrue {
			lits = append(lits, qcnf.Literal(-v))
		} else {
			lits = append(lits, qcnf.Literal(v))
		}
	}
	return lits
}

func negateToInts(cube []qcnf.Literal) []int {
	lits := make([]int, len(cube))
	for i, l := range cube {
		lits[i] = -int(l)
	}
	return lits
}
