// Package engine implements the main CDCL-style outer loop tying
// together the Skolem and Examples domains, the shared conflict analyzer,
// the case-split driver and the CEGAR loop. It owns every push and pop in
// the search: the Skolem and Examples domains are always kept at the same
// push depth, whether that depth was reached by an ordinary decision or by
// a case split.
package engine

import (
	"fmt"
	"math"

	"github.com/rhartert/detqbf/internal/adapter"
	"github.com/rhartert/detqbf/internal/casesplit"
	"github.com/rhartert/detqbf/internal/cegar"
	"github.com/rhartert/detqbf/internal/conflict"
	"github.com/rhartert/detqbf/internal/examples"
	"github.com/rhartert/detqbf/internal/qcnf"
	"github.com/rhartert/detqbf/internal/skolem"
)

// State is the engine's outer state machine.
type State int

const (
	Ready State = iota
	SkolemConflict
	ExamplesConflict
	CloseCaseState
	SAT
	UNSAT
	AbortExternal
)

func (s State) String() string {
	switch s {
	case SkolemConflict:
		return "SKOLEM_CONFLICT"
	case ExamplesConflict:
		return "EXAMPLES_CONFLICT"
	case CloseCaseState:
		return "CLOSE_CASE"
	case SAT:
		return "SAT"
	case UNSAT:
		return "UNSAT"
	case AbortExternal:
		return "ABORT_EXTERNAL"
	default:
		return "READY"
	}
}

// Options enumerates the engine's entry points.
type Options struct {
	MinimizeConflicts     bool
	CEGAR                 bool
	CEGAROnly             bool
	CaseSplits            bool
	Miniscoping           bool
	ReinforcementLearning bool
	EasyDebugging         bool
	FunctionalSynthesis   bool

	// DecisionActivityScale multiplies a variable's activity immediately
	// after it is picked as a decision, discouraging the same variable from
	// being reselected next (qcnf.Scale's decision_var_activity_modifier).
	// DecisionActivityScale defaults to 0.8, CADET's decision_var_activity_modifier.
	DecisionActivityScale float64
	// ExamplesCapacity bounds the Examples domain cache (0 uses
	// examples.DefaultCapacity).
	ExamplesCapacity int
	CaseSplitOptions casesplit.Options
	CEGAROptions     cegar.Options
}

// DefaultOptions enables the full four-way engine with CADET's published
// defaults. CEGAROnly, Miniscoping, ReinforcementLearning, EasyDebugging and
// FunctionalSynthesis are accepted but never read by this core; setting them
// has no effect.
var DefaultOptions = Options{
	MinimizeConflicts:     true,
	CEGAR:                 true,
	CaseSplits:            true,
	DecisionActivityScale: 0.8,
	CaseSplitOptions:      casesplit.DefaultOptions,
	CEGAROptions:          cegar.DefaultOptions,
}

// restart schedule constants.
const (
	initialNextRestart   = 6
	restartGrowthFactor  = 1.2
	majorRestartInterval = 15
	replenishInterval    = 100
)

// Engine is one 2QBF search over a fixed QCNF.
type Engine struct {
	q    *qcnf.QCNF
	sat  *adapter.Adapter
	sk   *skolem.Domain
	ex   *examples.Domain
	cs   *casesplit.Driver
	ceg  *cegar.Loop
	opts Options

	level int // push depth shared by sk and ex

	nextRestart            float64
	restartCount           int64
	keepingClausesThr      int
	nextMajorRestart       int64
	totalConflicts         int64
	skolemSuccessEMA       ema
	decisionsSinceConflict int64
	cegarFoundUnsat        bool
	aborted                bool

	// refutation is the refuting universal assignment (§6 "Output on
	// UNSAT"): a signed literal for every original universal variable,
	// snapshotted at the moment the search proves UNSAT, before any
	// backtrack can erase the assignment that caused it.
	refutation []qcnf.Literal
}

// skolemSuccessDecay is skolem_success_recent_average's smoothing factor
// (skolem_success_horizon).
const skolemSuccessDecay = 0.9

// New returns an Engine ready to search q.
func New(q *qcnf.QCNF, opts Options) *Engine {
	sat := adapter.New()
	capacity := opts.ExamplesCapacity
	if capacity <= 0 {
		capacity = examples.DefaultCapacity
	}
	return &Engine{
		q:                q,
		sat:              sat,
		sk:               skolem.New(q, sat),
		ex:               examples.New(q, capacity),
		cs:               casesplit.New(q, opts.CaseSplitOptions),
		ceg:              cegar.New(q, opts.CEGAROptions),
		opts:             opts,
		nextRestart:      initialNextRestart,
		nextMajorRestart: majorRestartInterval,
		skolemSuccessEMA: newEMA(skolemSuccessDecay),
	}
}

// Abort requests that the current or next Solve call return ABORT_EXTERNAL
// at its next checkpoint.
func (e *Engine) Abort() { e.aborted = true }

// TotalConflicts returns the number of first-order conflicts resolved so
// far.
func (e *Engine) TotalConflicts() int64 { return e.totalConflicts }

// TotalRestarts returns the number of restarts performed so far.
func (e *Engine) TotalRestarts() int64 { return e.restartCount }

// SkolemSuccessAverage returns skolem_success_recent_average: its influence
// on search decisions is heuristic and not load-bearing anywhere in this
// engine, exposed read-only for callers that want to tune around it.
func (e *Engine) SkolemSuccessAverage() float64 { return e.skolemSuccessEMA.val() }

// Solve runs the search to completion. It rejects any formula using more
// than a single forall/exists alternation (purely propositional formulas,
// with no universal variables at all, are always accepted).
func (e *Engine) Solve() (State, error) {
	if err := validatePrefix(e.q); err != nil {
		return AbortExternal, err
	}

	for _, lit := range e.q.UniversalConstraints() {
		e.sk.MakeUniversalAssumption(lit)
	}
	e.ex.Propagate()
	if !e.sk.Propagate() {
		e.refutation = e.snapshotUniversalAssignment()
		return UNSAT, nil
	}

	for {
		if e.aborted {
			return AbortExternal, nil
		}

		state := e.run(int64(e.nextRestart))
		switch state {
		case SAT, UNSAT, AbortExternal:
			return state, nil
		}
		e.restart()
	}
}

// run performs engine iterations until the formula resolves or maxConflicts
// conflicts have been spent since entry.
func (e *Engine) run(maxConflicts int64) State {
	var conflicts int64
	for {
		if e.aborted {
			return AbortExternal
		}

		if !e.ex.Propagate() {
			clauseIdx, v, _ := e.ex.Conflict()
			if !e.handleConflict(e.ex.Capability(), clauseIdx, v) {
				return UNSAT
			}
			if e.cegarFoundUnsat {
				return UNSAT
			}
			conflicts++
			if conflicts >= maxConflicts {
				return Ready
			}
			continue
		}

		if !e.sk.Propagate() {
			if !e.handleConflict(e.sk.Capability(), e.sk.ConflictClause(), e.sk.ConflictVar()) {
				return UNSAT
			}
			if e.cegarFoundUnsat {
				return UNSAT
			}
			conflicts++
			if conflicts >= maxConflicts {
				return Ready
			}
			continue
		}

		if e.sk.HasEmptyDomain() {
			if e.cs.Depth() > 0 {
				e.closeCase()
				continue
			}
			return SAT
		}

		if e.opts.CaseSplits {
			e.cs.Refresh(e.sk)
			if lit, ok := e.cs.Candidate(e.sk, e.sat); ok {
				e.openCase(lit)
				continue
			}
		}

		e.decide()
	}
}

func (e *Engine) openCase(lit qcnf.Literal) {
	e.level++
	e.sk.Push()
	e.sk.Decision(lit)
	e.ex.Push()
	e.ex.Decision(lit)
	e.cs.Open(lit, e.level)
}

func (e *Engine) closeCase() {
	e.cs.Close(e.sk)
	e.sk.Pop()
	e.ex.Pop()
	e.level--
}

// decide picks the highest-activity nondeterministic existential as the
// next decision, phased by Jeroslow-Wang weight after three restarts.
func (e *Engine) decide() {
	best := -1
	var bestScore float64
	for v := 1; v <= e.q.NumVariables(); v++ {
		if e.q.Variable(v).Universal || e.sk.IsDeterministic(v) {
			continue
		}
		if score := e.q.Get(v); best == -1 || score > bestScore {
			best, bestScore = v, score
		}
	}
	if best == -1 {
		return
	}

	phase := true
	if e.restartCount >= 3 {
		phase = jeroslowWangPhase(e.q, best)
	}
	lit := qcnf.Literal(best)
	if !phase {
		lit = qcnf.Literal(-best)
	}

	e.q.Scale(best, e.opts.DecisionActivityScale)
	e.decisionsSinceConflict++

	e.level++
	e.sk.Push()
	e.sk.Decision(lit)
	e.ex.Push()
	e.ex.Decision(lit)
}

// jeroslowWangWeight returns a variable polarity's Jeroslow-Wang log-weight:
// the sum, over every clause the polarity occurs in, of 2^-|c| with |c|
// capped at 10, plus 0.05 per occurrence — the capped term keeps one huge
// clause from swamping the score, the linear term still rewards sheer
// occurrence count the way plain Jeroslow-Wang does on its own.
func jeroslowWangWeight(q *qcnf.QCNF, occ []int) float64 {
	var w float64
	for _, ci := range occ {
		size := len(q.Clause(ci).Literals)
		if size > 10 {
			size = 10
		}
		w += math.Pow(2, -float64(size))
	}
	return w + 0.05*float64(len(occ))
}

// jeroslowWangPhase reports whether v's positive polarity has the larger
// Jeroslow-Wang weight.
func jeroslowWangPhase(q *qcnf.QCNF, v int) bool {
	pos := jeroslowWangWeight(q, q.Variable(v).PosOcc)
	neg := jeroslowWangWeight(q, q.Variable(v).NegOcc)
	return pos >= neg
}

// handleConflict runs one conflict-resolution step. It returns false when
// the conflict is terminal (an empty learnt clause): the whole formula is
// UNSAT.
func (e *Engine) handleConflict(domCap conflict.Capability, clauseIdx, conflictVar int) bool {
	learnt, backtrack := conflict.Analyze(e.q, clauseIdx, conflictVar, domCap)
	if e.opts.MinimizeConflicts {
		learnt = minimizeLearnt(learnt, domCap)
	}

	c := e.q.AddClause(learnt, false)
	e.totalConflicts++

	if len(learnt) == 0 {
		// The learnt clause resolved to empty while the propositional
		// abstraction is still SAT: global UNSAT. Snapshot the universal
		// assignment that produced this conflict before it is lost — no
		// pop happens on this return path.
		e.refutation = e.snapshotUniversalAssignment()
		return false
	}

	floor := e.cs.RestartBaseLevel()
	involved := conflict.DecisionsInvolved(learnt, floor, domCap.DecisionLevelOf)
	e.updateSkolemSuccessEMA(len(learnt))
	e.decisionsSinceConflict = 0

	if involved && e.opts.CEGAR {
		e.ex.AddExample(universalLiteralsOf(e.q, learnt))
		e.runCEGARRound()
	}

	target := conflict.BacktrackLevel(backtrack, floor)
	for e.level > target {
		e.sk.Pop()
		e.ex.Pop()
		e.level--
	}

	e.ex.NewClause(c.Index)
	e.sk.NewClause(c.Index)
	e.q.Decay()
	return true
}

// minimizeLearnt drops literals already forced at decision level 0: the
// clause remains logically implied without them, since a root-level fact
// can never again distinguish a backjump target.
func minimizeLearnt(learnt []qcnf.Literal, domCap conflict.Capability) []qcnf.Literal {
	out := learnt[:0]
	for _, l := range learnt {
		if domCap.DecisionLevelOf(l.Var()) == 0 {
			continue
		}
		out = append(out, l)
	}
	if len(out) == 0 {
		return learnt[:1:1]
	}
	return out
}

// universalLiteralsOf extracts the negation of every universal literal in
// learnt, seeding a fresh Examples entry worth tracking from this conflict.
func universalLiteralsOf(q *qcnf.QCNF, learnt []qcnf.Literal) []qcnf.Literal {
	var out []qcnf.Literal
	for _, lit := range learnt {
		if q.Variable(lit.Var()).Universal {
			out = append(out, lit.Negate())
		}
	}
	return out
}

// updateSkolemSuccessEMA folds in one sample of 1/(clauseSize ·
// decisionsSinceConflict + 1): a learnt clause reached quickly, after few
// decisions, scores close to 1; a long, hard-won one scores close to 0.
func (e *Engine) updateSkolemSuccessEMA(clauseSize int) {
	sample := 1.0 / (float64(clauseSize)*float64(e.decisionsSinceConflict) + 1)
	e.skolemSuccessEMA.add(sample)
}

func (e *Engine) runCEGARRound() {
	outcome, clause := e.ceg.Refine()
	switch outcome {
	case cegar.NoProgress:
		e.cegarFoundUnsat = true
		// Every universal assignment the side solver could propose has
		// already been shown to be a genuine counterexample; the most
		// recent one it blocked still witnesses the refutation.
		e.refutation = e.ceg.LastBlockedAssignment()
		if len(e.refutation) == 0 {
			e.refutation = e.snapshotUniversalAssignment()
		}
	case cegar.Witnessed, cegar.BlockedCounterexample:
		if len(clause) > 0 {
			c := e.q.AddClause(clause, false)
			e.ex.NewClause(c.Index)
			e.sk.NewClause(c.Index)
		}
	}
}

// restart bumps the restart counters and schedule, occasionally
// performing a major restart (zeroing all activities) or a replenish
// (rebuilding the SAT adapter).
func (e *Engine) restart() {
	e.restartCount++
	e.nextRestart = math.Floor(e.nextRestart * restartGrowthFactor)

	if e.restartCount%e.nextMajorRestart == 0 {
		e.q.ResetActivities()
		e.nextRestart = initialNextRestart
		e.keepingClausesThr++
		e.nextMajorRestart = int64(math.Floor(float64(e.nextMajorRestart) * restartGrowthFactor))
	}

	if e.restartCount%replenishInterval == 0 {
		e.replenish()
	}
}

// replenish rebuilds the underlying SAT adapter from scratch at the root
// level, discarding any learnt propositional clauses the adapter has
// accumulated; it is a no-op while any scope is pushed (a replenish is only
// ever scheduled between runs, at the root).
func (e *Engine) replenish() {
	if e.level != 0 {
		return
	}
	e.sat = adapter.New()
	for e.sat.NumVariables() < e.q.NumVariables() {
		e.sat.AddVariable()
	}
	e.sk = skolem.New(e.q, e.sat)

	for _, lit := range e.q.UniversalConstraints() {
		e.sk.MakeUniversalAssumption(lit)
	}
	for _, c := range e.q.Clauses() {
		e.sk.NewClause(c.Index)
	}
	e.sk.Propagate()
}

// validatePrefix rejects any quantifier prefix beyond a single
// forall/exists alternation. Purely propositional inputs (no universal
// variables at all) are always accepted.
func validatePrefix(q *qcnf.QCNF) error {
	hasUniversal := false
	for v := 1; v <= q.NumVariables(); v++ {
		vr := q.Variable(v)
		if vr.Universal {
			hasUniversal = true
			if vr.Scope != 0 {
				return fmt.Errorf("engine: universal variable %d has scope %d, only a single universal block is supported", v, vr.Scope)
			}
		}
	}
	if !hasUniversal {
		return nil
	}
	for v := 1; v <= q.NumVariables(); v++ {
		vr := q.Variable(v)
		if !vr.Universal && vr.Scope != 1 {
			return fmt.Errorf("engine: existential variable %d has scope %d, only a forall-exists (2QBF) prefix is supported", v, vr.Scope)
		}
	}
	return nil
}

// Skolem exposes the underlying Skolem domain, used by internal/aiger to
// read off each existential's forced value once Solve returns SAT.
func (e *Engine) Skolem() *skolem.Domain { return e.sk }

// QCNF exposes the formula under search.
func (e *Engine) QCNF() *qcnf.QCNF { return e.q }

// CaseSplits exposes the case-split driver, including the cases it has
// closed. The engine does not combine closed cases into a single witness.
func (e *Engine) CaseSplits() *casesplit.Driver { return e.cs }

// RefutingAssignment returns, for every original universal variable, the
// signed literal giving its value in the refutation that proved the
// formula UNSAT (§6 "Output on UNSAT"). It is only meaningful once Solve
// has returned UNSAT; it is nil otherwise.
func (e *Engine) RefutingAssignment() []qcnf.Literal { return e.refutation }

// snapshotUniversalAssignment reads off the Skolem domain's current value
// for every universal variable, defaulting an unconstrained one to true
// (the same arbitrary default internal/cegar's side solver uses for an
// assumption it has no opinion on yet).
func (e *Engine) snapshotUniversalAssignment() []qcnf.Literal {
	var out []qcnf.Literal
	for v := 1; v <= e.q.NumVariables(); v++ {
		if !e.q.Variable(v).Universal {
			continue
		}
		if e.sk.Value(v) == qcnf.ValueFalse {
			out = append(out, qcnf.Literal(-v))
		} else {
			out = append(out, qcnf.Literal(v))
		}
	}
	return out
}
