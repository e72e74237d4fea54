// Package casesplit implements the case-split driver: when
// propagation saturates without forcing further progress, it looks for an
// interface literal — an existential the underlying propositional solver
// already assigns a value even though the Skolem domain has not yet
// determinized it — notorious enough to assume. Doing so divides the
// search into cases; closing one records the cube of assumed literals
// alongside the Skolem-function values that held throughout it (nothing
// combines the closed cases into a single witness). The driver only
// decides and bookkeeps; pushing and popping the Skolem (and any domain
// kept in lockstep with it) scope is the caller's job, the way
// internal/engine already owns every other push/pop in the search.
package casesplit

import (
	"github.com/rhartert/detqbf/internal/adapter"
	"github.com/rhartert/detqbf/internal/qcnf"
	"github.com/rhartert/detqbf/internal/skolem"
)

// ClosedCase is a finished branch of the case-split tree.
type ClosedCase struct {
	// Cube is the conjunction of interface literals assumed to reach this
	// case, outermost first.
	Cube []qcnf.Literal
	// Values is the Skolem-function value every existential held when the
	// case closed.
	Values map[int]qcnf.Value
}

// Options configures a Driver.
type Options struct {
	// NotoriousnessThresholdFactor scales the current average existential
	// activity to produce the score an interface literal must cross before
	// Candidate will offer it.
	NotoriousnessThresholdFactor float64
	// DepthPenalty discounts a candidate's score by this fraction per
	// already-open split, discouraging runaway nesting.
	DepthPenalty float64
}

// DefaultOptions mirrors CADET's default case-split tuning.
var DefaultOptions = Options{
	NotoriousnessThresholdFactor: 2.0,
	DepthPenalty:                 0.1,
}

type openSplit struct {
	varID int
	// baseLvl is restart_base_decision_lvl as it stood before this split was
	// opened, restored when the split's case closes.
	baseLvl int
}

// Driver holds the case-split state: which interface literals are currently
// assumed (raising restart_base_decision_lvl), and the cube-to-Skolem
// mapping of every case closed so far.
type Driver struct {
	q   *qcnf.QCNF
	opt Options
	ord *notoriousnessOrder

	restartBaseLvl int
	open           []openSplit
	closed         []ClosedCase
}

// New returns a Driver with no open splits over q.
func New(q *qcnf.QCNF, opt Options) *Driver {
	return &Driver{
		q:   q,
		opt: opt,
		ord: newNotoriousnessOrder(q.NumVariables()),
	}
}

// RestartBaseLevel is restart_base_decision_lvl: the floor below which the
// conflict analyzer's backtrack level and decisions-involved test must not
// reach, since it would otherwise undo an interface literal the case-split
// driver is relying on to keep the current case open.
func (d *Driver) RestartBaseLevel() int { return d.restartBaseLvl }

// Depth reports how many interface literals are currently assumed.
func (d *Driver) Depth() int { return len(d.open) }

// Refresh recomputes every undetermined existential's notoriousness score
// from its current qcnf activity, penalized by the current split depth.
// Call it once propagation saturates, before Candidate.
func (d *Driver) Refresh(sk *skolem.Domain) {
	penalty := 1 - d.opt.DepthPenalty*float64(d.Depth())
	if penalty < 0 {
		penalty = 0
	}
	for v := 1; v <= d.q.NumVariables(); v++ {
		if d.q.Variable(v).Universal || sk.IsDeterministic(v) {
			continue
		}
		d.ord.Update(v, d.q.Get(v)*penalty)
	}
}

func (d *Driver) averageExistentialActivity() float64 {
	var sum float64
	n := 0
	for v := 1; v <= d.q.NumVariables(); v++ {
		if d.q.Variable(v).Universal {
			continue
		}
		sum += d.q.Get(v)
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Candidate returns the most notorious interface literal still offered
// since the last Refresh, if its score crosses the notoriousness threshold.
// An interface literal is an existential the propositional adapter already
// has an opinion on (sat.Value != Unknown) that the Skolem domain has not
// yet determinized — the adapter's own learnt clauses routinely outrun the
// first-order tracker's simpler occurrence-list propagation, and that gap
// is exactly what a case split can exploit.
func (d *Driver) Candidate(sk *skolem.Domain, sat *adapter.Adapter) (qcnf.Literal, bool) {
	threshold := d.opt.NotoriousnessThresholdFactor * d.averageExistentialActivity()

	for {
		v, score, ok := d.ord.PopBest()
		if !ok || score < threshold {
			return 0, false
		}
		if sk.IsDeterministic(v) {
			continue
		}
		status := sat.Value(v)
		if status == adapter.Unknown {
			continue
		}
		if status == adapter.UNSAT {
			return qcnf.Literal(-v), true
		}
		return qcnf.Literal(v), true
	}
}

// Open records that lit was just assumed as a new interface split reaching
// level (the caller's push depth after assuming it), raising
// restart_base_decision_lvl to level.
func (d *Driver) Open(lit qcnf.Literal, level int) {
	d.open = append(d.open, openSplit{varID: lit.Var(), baseLvl: d.restartBaseLvl})
	d.restartBaseLvl = level
}

// Close snapshots the current branch — its cube of assumed interface
// literals and the Skolem value every existential holds — and lowers
// restart_base_decision_lvl back down to what it was before the innermost
// split was opened. The caller is still responsible for popping that split's
// scope afterwards. Close is a no-op (returning the zero ClosedCase) when no
// split is open.
func (d *Driver) Close(sk *skolem.Domain) ClosedCase {
	if len(d.open) == 0 {
		return ClosedCase{}
	}

	cube := make([]qcnf.Literal, 0, len(d.open))
	for _, s := range d.open {
		lit := qcnf.Literal(s.varID)
		if sk.Value(s.varID) == qcnf.ValueFalse {
			lit = qcnf.Literal(-s.varID)
		}
		cube = append(cube, lit)
	}

	values := make(map[int]qcnf.Value)
	for v := 1; v <= d.q.NumVariables(); v++ {
		if d.q.Variable(v).Universal {
			continue
		}
		values[v] = sk.Value(v)
	}

	cc := ClosedCase{Cube: cube, Values: values}
	d.closed = append(d.closed, cc)

	last := d.open[len(d.open)-1]
	d.open = d.open[:len(d.open)-1]
	d.restartBaseLvl = last.baseLvl
	return cc
}

// ClosedCases returns every case closed so far, outermost call order.
func (d *Driver) ClosedCases() []ClosedCase { return d.closed }
