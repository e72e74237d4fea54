// Package satsolver implements a small incremental CDCL SAT solver in the
// MiniSat tradition: two-watched-literal propagation, VSIDS-style activity
// decisions and first-UIP clause learning; it never restarts. It knows
// nothing about quantifiers; callers needing an incremental, assumption-
// based interface should go through package adapter.
package satsolver

import "time"

// Solver is a single incremental SAT search state. Unlike a one-shot solver,
// Solver can be grown with AddVariable/AddClause and queried repeatedly with
// SolveAssuming without losing learnt clauses or variable activities between
// calls.
type Solver struct {
	constraints []*Clause
	learnts     []*Clause
	clauseInc   float64
	clauseDecay float64

	order *VarOrder

	watchers  [][]watcher
	propQueue *Queue[Literal]

	assigns []LBool

	trail    []Literal
	trailLim []int
	reason   []*Clause
	level    []int

	// unsat is sticky: once true the solver never becomes satisfiable again.
	unsat bool

	TotalConflicts int64
	TotalRestarts  int64
	startTime      time.Time

	seenVar *ResetSet

	tmpWatchers []watcher
	tmpLearnts  []Literal
	tmpReason   []Literal
}

type watcher struct {
	clause *Clause
	guard  Literal
}

// Options configures a new Solver.
type Options struct {
	ClauseDecay   float64
	VariableDecay float64
	PhaseSaving   bool
}

var DefaultOptions = Options{
	ClauseDecay:   0.999,
	VariableDecay: 0.95,
	PhaseSaving:   true,
}

func NewDefaultSolver() *Solver {
	return NewSolver(DefaultOptions)
}

func NewSolver(ops Options) *Solver {
	return &Solver{
		clauseDecay: ops.ClauseDecay,
		clauseInc:   1,
		order:       NewVarOrder(ops.VariableDecay, ops.PhaseSaving),
		propQueue:   NewQueue[Literal](128),
		seenVar:     &ResetSet{},
	}
}

func (s *Solver) PositiveLiteral(varID int) Literal { return Literal(varID * 2) }
func (s *Solver) NegativeLiteral(varID int) Literal { return s.PositiveLiteral(varID).Opposite() }

func (s *Solver) NumVariables() int   { return len(s.assigns) / 2 }
func (s *Solver) NumAssigns() int     { return len(s.trail) }
func (s *Solver) NumConstraints() int { return len(s.constraints) }
func (s *Solver) NumLearnts() int     { return len(s.learnts) }
func (s *Solver) IsUnsat() bool       { return s.unsat }

func (s *Solver) VarValue(x int) LBool   { return s.assigns[s.PositiveLiteral(x)] }
func (s *Solver) LitValue(l Literal) LBool { return s.assigns[l] }

// DecisionLevel returns the number of assumption/decision scopes currently
// pushed on the trail.
func (s *Solver) DecisionLevel() int { return len(s.trailLim) }

// VarLevel returns the decision level at which variable v was assigned, or
// -1 if it is currently unassigned.
func (s *Solver) VarLevel(v int) int { return s.level[v] }

// Reason returns the clause that forced variable v's value, or nil if v is
// unassigned or was a decision/assumption.
func (s *Solver) Reason(v int) *Clause { return s.reason[v] }

// AddVariable grows the solver by one fresh variable and returns its id.
func (s *Solver) AddVariable() int {
	index := s.NumVariables()
	s.watchers = append(s.watchers, nil, nil)
	s.reason = append(s.reason, nil)
	s.seenVar.Expand()

	s.assigns = append(s.assigns, Unknown, Unknown)
	s.level = append(s.level, -1)
	s.order.AddVar(0, true)
	return index
}

func (s *Solver) Watch(c *Clause, watch Literal, guard Literal) {
	s.watchers[watch] = append(s.watchers[watch], watcher{clause: c, guard: guard})
}

func (s *Solver) Unwatch(c *Clause, watch Literal) {
	j := 0
	for i := 0; i < len(s.watchers[watch]); i++ {
		if s.watchers[watch][i].clause != c {
			s.watchers[watch][j] = s.watchers[watch][i]
			j++
		}
	}
	s.watchers[watch] = s.watchers[watch][:j]
}

// AddClause adds clause at the root level. It must not be called while any
// assumption/decision scope is pushed.
func (s *Solver) AddClause(clause []Literal) error {
	c, ok := NewClause(s, clause, false)
	if c != nil {
		s.constraints = append(s.constraints, c)
	}
	if !ok {
		s.unsat = true
	}
	return nil
}

func (s *Solver) BumpClaActivity(c *Clause) {
	c.activity += s.clauseInc
	if c.activity > 1e100 {
		s.clauseInc *= 1e-100
		for _, l := range s.learnts {
			l.activity *= 1e-100
		}
	}
}

func (s *Solver) DecayClaActivity() { s.clauseInc *= s.clauseDecay }

// Propagate drains the propagation queue, returning the first clause found
// conflicting, or nil if propagation saturates without conflict.
func (s *Solver) Propagate() *Clause {
	for s.propQueue.Size() > 0 {
		l := s.propQueue.Pop()

		s.tmpWatchers = s.tmpWatchers[:0]
		s.tmpWatchers = append(s.tmpWatchers, s.watchers[l]...)
		s.watchers[l] = s.watchers[l][:0]

		for i, w := range s.tmpWatchers {
			if s.LitValue(w.guard) == True {
				s.watchers[l] = append(s.watchers[l], w)
				continue
			}
			if w.clause.Propagate(s, l) {
				continue
			}
			s.watchers[l] = append(s.watchers[l], s.tmpWatchers[i+1:]...)
			s.propQueue.Clear()
			return s.tmpWatchers[i].clause
		}
	}
	return nil
}

func (s *Solver) enqueue(l Literal, from *Clause) bool {
	switch s.LitValue(l) {
	case False:
		return false
	case True:
		return true
	default:
		varID := l.VarID()
		s.assigns[l] = True
		s.assigns[l.Opposite()] = False
		s.level[varID] = s.DecisionLevel()
		s.reason[varID] = from
		s.trail = append(s.trail, l)
		s.propQueue.Push(l)
		return true
	}
}

func (s *Solver) explain(c *Clause, l Literal) []Literal {
	if l == -1 {
		return c.ExplainFailure(s)
	}
	return c.ExplainAssign(s, l)
}

// analyze performs first-UIP conflict analysis, returning the learnt clause
// (FUIP literal first) and the backtrack level.
func (s *Solver) analyze(confl *Clause) ([]Literal, int) {
	nImplicationPoints := 0

	s.tmpLearnts = s.tmpLearnts[:0]
	s.tmpLearnts = append(s.tmpLearnts, -1)

	nextLiteral := len(s.trail) - 1
	l := Literal(-1)
	s.seenVar.Clear()
	backtrackLevel := 0

	for {
		for _, q := range s.explain(confl, l) {
			v := q.VarID()
			if s.seenVar.Contains(v) {
				continue
			}
			s.seenVar.Add(v)
			s.order.BumpScore(v)
			if s.level[v] == s.DecisionLevel() {
				nImplicationPoints++
				continue
			}
			s.tmpLearnts = append(s.tmpLearnts, q.Opposite())
			if level := s.level[v]; level > backtrackLevel {
				backtrackLevel = level
			}
		}

		for {
			l = s.trail[nextLiteral]
			nextLiteral--
			v := l.VarID()
			confl = s.reason[v]
			if s.seenVar.Contains(v) {
				break
			}
		}

		nImplicationPoints--
		if nImplicationPoints <= 0 {
			break
		}
	}

	s.tmpLearnts[0] = l.Opposite()
	return s.tmpLearnts, backtrackLevel
}

func (s *Solver) record(clause []Literal) {
	c, _ := NewClause(s, clause, true)
	s.enqueue(clause[0], c)
	if c != nil {
		s.learnts = append(s.learnts, c)
	}
}

// Assume pushes a new decision scope and enqueues l in it. It returns false
// if l is already false, meaning the assumption set is inconsistent with
// the current propagation state; the caller is still responsible for
// popping the scope.
func (s *Solver) Assume(l Literal) bool {
	s.trailLim = append(s.trailLim, len(s.trail))
	return s.enqueue(l, nil)
}

// PushScope opens a new decision scope without assigning anything in it.
// Combined with Assume, it lets callers separate "open a scope" from
// "assume a literal in the current scope".
func (s *Solver) PushScope() {
	s.trailLim = append(s.trailLim, len(s.trail))
}

// AssignNow enqueues l within the current scope (it does not open a new
// one), used to record facts derived by propagation rather than fresh
// assumptions.
func (s *Solver) AssignNow(l Literal) bool {
	return s.enqueue(l, nil)
}

func (s *Solver) undoOne() {
	l := s.trail[len(s.trail)-1]
	v := l.VarID()

	val := s.assigns[l]
	s.order.Reinsert(v, val)
	s.assigns[l] = Unknown
	s.assigns[l.Opposite()] = Unknown
	s.reason[v] = nil
	s.level[v] = -1

	s.trail = s.trail[:len(s.trail)-1]
}

// Backtrack undoes assignments down to (and including) decision scope level.
func (s *Solver) Backtrack(level int) {
	for s.DecisionLevel() > level {
		c := len(s.trail) - s.trailLim[len(s.trailLim)-1]
		for ; c != 0; c-- {
			s.undoOne()
		}
		s.trailLim = s.trailLim[:len(s.trailLim)-1]
	}
	s.propQueue.Clear()
}

// SolveAssuming runs CDCL search from the current trail (which may already
// contain pushed assumptions) until the formula is found satisfiable,
// unsatisfiable given those assumptions, or maxConflicts conflicts have been
// spent (maxConflicts < 0 means unbounded). It never backtracks below the
// decision level it was called at.
func (s *Solver) SolveAssuming(maxConflicts int64) LBool {
	if s.unsat {
		return False
	}
	base := s.DecisionLevel()
	conflicts := int64(0)

	for {
		conflict := s.Propagate()
		if conflict != nil {
			s.TotalConflicts++
			conflicts++

			if s.DecisionLevel() == base {
				if base == 0 {
					s.unsat = true
				}
				return False
			}

			learntClause, backtrackLevel := s.analyze(conflict)
			if backtrackLevel < base {
				backtrackLevel = base
			}
			s.Backtrack(backtrackLevel)
			s.record(learntClause)

			s.DecayClaActivity()
			s.order.DecayScores()

			if maxConflicts >= 0 && conflicts > maxConflicts {
				return Unknown
			}
			continue
		}

		if s.NumAssigns() == s.NumVariables() {
			return True
		}

		l := s.order.NextDecision(s)
		s.Assume(l)
	}
}

// Solve is a convenience wrapper for one-shot (non-incremental) callers: it
// solves from the root level with unbounded conflicts, mirroring the
// original command-line driver's behaviour.
func (s *Solver) Solve() LBool {
	s.TotalRestarts++
	status := s.SolveAssuming(-1)
	s.Backtrack(0)
	return status
}
