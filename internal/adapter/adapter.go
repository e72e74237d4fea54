// Package adapter wraps the internal/satsolver black-box CDCL engine behind
// the narrow incremental interface the determinization core needs: add a
// literal at a time and close the clause with a 0 terminator, assume,
// solve, deref, and push/pop a scope. Variable ids and literals follow the
// QBF core's convention (a positive integer id, a nonzero signed int
// literal) rather than the solver's own zero-indexed doubled encoding; the
// adapter is the only place that translates between the two.
package adapter

import "github.com/rhartert/detqbf/internal/satsolver"

// Status mirrors the solver's lifted boolean but with names matching the
// core's vocabulary.
type Status int

const (
	Unknown Status = iota
	SAT
	UNSAT
)

func (s Status) String() string {
	switch s {
	case SAT:
		return "SAT"
	case UNSAT:
		return "UNSAT"
	default:
		return "UNKNOWN"
	}
}

// Adapter is an incremental propositional solver adapter built around
// add-literal, finish-clause, assume, solve, deref, and push/pop scope
// operations.
type Adapter struct {
	solver *satsolver.Solver

	// pending accumulates literals between AddLiteral calls until
	// FinishClause (lit == 0) closes the clause.
	pending []satsolver.Literal

	// nextVar is the next id AddVariable will hand out, 1-indexed to match
	// the core's "positive integer id" convention for variables.
	nextVar int
}

// New returns an empty adapter over a fresh satsolver.Solver.
func New() *Adapter {
	return &Adapter{
		solver:  satsolver.NewDefaultSolver(),
		nextVar: 1,
	}
}

// AddVariable grows the underlying solver by one variable and returns its
// (1-indexed, positive) id.
func (a *Adapter) AddVariable() int {
	a.solver.AddVariable()
	id := a.nextVar
	a.nextVar++
	return id
}

func (a *Adapter) toLiteral(lit int) satsolver.Literal {
	v := lit
	if v < 0 {
		v = -v
	}
	if lit < 0 {
		return a.solver.NegativeLiteral(v - 1)
	}
	return a.solver.PositiveLiteral(v - 1)
}

func (a *Adapter) fromLiteral(l satsolver.Literal) int {
	id := l.VarID() + 1
	if l.IsPositive() {
		return id
	}
	return -id
}

// AddLiteral buffers a literal for the clause under construction. lit must
// be nonzero; call FinishClause to close it.
func (a *Adapter) AddLiteral(lit int) {
	if lit == 0 {
		panic("adapter: AddLiteral called with 0, use FinishClause")
	}
	a.pending = append(a.pending, a.toLiteral(lit))
}

// FinishClause closes the clause accumulated by AddLiteral and adds it to
// the solver at the root level. It reports whether the clause set remains
// satisfiable at the root level.
func (a *Adapter) FinishClause() bool {
	clause := a.pending
	a.pending = nil
	a.solver.AddClause(clause)
	return !a.solver.IsUnsat()
}

// AddClause is a convenience wrapper equivalent to calling AddLiteral for
// every literal in lits followed by FinishClause.
func (a *Adapter) AddClause(lits []int) bool {
	for _, l := range lits {
		a.AddLiteral(l)
	}
	return a.FinishClause()
}

// Assume pushes a new scope and enqueues lit in it. It returns false if lit
// is already falsified by the current assignment; PopScope still must be
// called to undo the pushed scope.
func (a *Adapter) Assume(lit int) bool {
	return a.solver.Assume(a.toLiteral(lit))
}

// PushScope opens a new, empty scope. Unlike Assume it does not assign
// anything, which is what lets the Skolem domain keep the adapter's scope
// depth in lockstep with the engine's decision level while still encoding
// each newly-determinized variable in the same scope via AssignNow.
func (a *Adapter) PushScope() { a.solver.PushScope() }

// AssignNow records lit as forced in the current scope (no new scope is
// opened), used to push a determinized existential's Skolem-function value
// into the adapter as propagation discovers it. It returns false if lit
// was already falsified.
func (a *Adapter) AssignNow(lit int) bool {
	return a.solver.AssignNow(a.toLiteral(lit))
}

// Solve runs search under the currently assumed scopes and returns its
// status. maxConflicts bounds the number of conflicts spent (negative for
// unbounded).
func (a *Adapter) Solve(maxConflicts int64) Status {
	switch a.solver.SolveAssuming(maxConflicts) {
	case satsolver.True:
		return SAT
	case satsolver.False:
		return UNSAT
	default:
		return Unknown
	}
}

// Value derefs lit under the current (possibly partial) assignment.
func (a *Adapter) Value(lit int) Status {
	switch a.solver.LitValue(a.toLiteral(lit)) {
	case satsolver.True:
		return SAT
	case satsolver.False:
		return UNSAT
	default:
		return Unknown
	}
}

// Scope returns the number of scopes currently pushed.
func (a *Adapter) Scope() int { return a.solver.DecisionLevel() }

// PopScope backtracks to (and including) popping down to level, undoing
// every Assume pushed since.
func (a *Adapter) PopScope(level int) { a.solver.Backtrack(level) }

// Propagate drains the propagation queue and reports whether it saturated
// without conflict. Conflicting literals, if any, can be inspected through
// the returned conflict clause's failure explanation.
func (a *Adapter) Propagate() (conflict []int, ok bool) {
	c := a.solver.Propagate()
	if c == nil {
		return nil, true
	}
	lits := make([]int, 0, len(c.Literals()))
	for _, l := range c.Literals() {
		lits = append(lits, a.fromLiteral(l))
	}
	return lits, false
}

// NumVariables returns the number of variables declared so far.
func (a *Adapter) NumVariables() int { return a.solver.NumVariables() }
