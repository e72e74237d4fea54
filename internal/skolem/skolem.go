// Package skolem implements the Skolem domain: which existentials
// have been determinized, their Skolem-function encoding in the
// propositional adapter, the decision level at which determinism was
// reached, and first-order conflicts. Propagation itself is delegated to a
// partial.Tracker (the same unit-propagation engine the Examples domain
// uses); this package layers on top of it the dependency-legality rule,
// constant-decision-level bookkeeping, and the Skolem-function encoding
// pushed into the propositional adapter.
package skolem

import (
	"github.com/rhartert/detqbf/internal/adapter"
	"github.com/rhartert/detqbf/internal/conflict"
	"github.com/rhartert/detqbf/internal/partial"
	"github.com/rhartert/detqbf/internal/qcnf"
)

// State is one of the Skolem domain's three substates.
type State int

const (
	Ready State = iota
	SkolemConflict
	ConstantsConflict
)

func (s State) String() string {
	switch s {
	case SkolemConflict:
		return "SKOLEM_CONFLICT"
	case ConstantsConflict:
		return "CONSTANTS_CONFLICT"
	default:
		return "READY"
	}
}

// Domain is the Skolem domain.
type Domain struct {
	q   *qcnf.QCNF
	sat *adapter.Adapter
	t   *partial.Tracker

	state State

	// encoded tracks, per variable, whether its forced value has already
	// been pushed into sat as part of its Skolem-function encoding.
	encoded []bool
}

// New returns an empty Skolem domain over q, using sat to accumulate the
// Skolem-function encoding as existentials are determinized.
func New(q *qcnf.QCNF, sat *adapter.Adapter) *Domain {
	// The adapter hands out sequential, 1-indexed variable ids exactly like
	// QCNF does, so declaring one adapter variable per QCNF variable here
	// keeps the two id spaces identical and lets encode/AssignNow reuse
	// QCNF literals directly.
	for sat.NumVariables() < q.NumVariables() {
		sat.AddVariable()
	}
	return &Domain{
		q:       q,
		sat:     sat,
		t:       partial.New(q),
		encoded: make([]bool, q.NumVariables()+1),
	}
}

// Push opens a new decision scope in both the tracker and the adapter.
func (d *Domain) Push() {
	d.t.Push()
	d.sat.PushScope()
}

// Pop closes the most recent scope in both the tracker and the adapter.
func (d *Domain) Pop() {
	d.t.Pop()
	d.sat.PopScope(d.sat.Scope() - 1)
	d.state = Ready
}

// Decision assigns lit within the scope most recently opened by Push,
// encoding it into the adapter as the (possibly partial) Skolem function of
// its variable.
func (d *Domain) Decision(lit qcnf.Literal) bool {
	ok := d.t.Assign(lit, -1)
	d.encode(lit)
	return ok
}

// MakeUniversalAssumption records a unit clause over a universal variable
// as an assumption rather than an ordinary learnt fact, used by the
// engine's initial propagation step.
func (d *Domain) MakeUniversalAssumption(lit qcnf.Literal) bool {
	ok := d.t.Assign(lit, -1)
	d.sat.AssignNow(int(lit))
	return ok
}

// Propagate advances the tracker to saturation, encoding every newly
// forced existential into the adapter. A conflict found while no decision
// has ever been taken (decision level 0) is a CONSTANTS_CONFLICT, proving
// UNSAT immediately; any other conflict is an ordinary SKOLEM_CONFLICT.
func (d *Domain) Propagate() bool {
	before := d.t.TrailLen()
	ok := d.t.Propagate()

	for _, lit := range d.t.TrailSince(before) {
		d.encode(lit)
	}

	if !ok {
		if d.t.Level() == 0 {
			d.state = ConstantsConflict
		} else {
			d.state = SkolemConflict
		}
		return false
	}
	d.state = Ready
	return true
}

// encode pushes lit into the adapter as part of its variable's Skolem
// function, skipping universal variables (which have no Skolem function to
// encode) and variables already encoded at this value.
func (d *Domain) encode(lit qcnf.Literal) {
	v := lit.Var()
	if d.q.Variable(v).Universal {
		return
	}
	if d.encoded[v] && d.sat.Value(int(lit)) == adapter.SAT {
		return
	}
	d.encoded[v] = true
	d.sat.AssignNow(int(lit))
}

// NewClause notifies the domain of a freshly learnt clause.
func (d *Domain) NewClause(clauseIdx int) {
	d.t.NewClause(clauseIdx)
	if d.t.IsConflicted() {
		if d.t.Level() == 0 {
			d.state = ConstantsConflict
		} else {
			d.state = SkolemConflict
		}
	}
}

// IsConflicted reports whether the domain is in SKOLEM_CONFLICT or
// CONSTANTS_CONFLICT.
func (d *Domain) IsConflicted() bool { return d.state != Ready }

// State returns the domain's current substate.
func (d *Domain) State() State { return d.state }

// ConflictClause and ConflictVar expose the conflicting clause/variable
// while the domain is conflicted.
func (d *Domain) ConflictClause() int { return d.t.ConflictClause() }
func (d *Domain) ConflictVar() int    { return d.t.ConflictVar() }

// DecisionLevel returns the decision level at which v was determinized, or
// -1 if it is still nondeterministic.
func (d *Domain) DecisionLevel(v int) int { return d.t.DecisionLevel(v) }

// Reason returns the index of the clause that forced v's value, or -1 if v
// is nondeterministic or was assigned directly by a decision or a case-split
// assumption.
func (d *Domain) Reason(v int) int { return d.t.Reason(v) }

// ConstantDecisionLevel returns the decision level of the deepest member of
// v's transitive support set, which may be lower than DecisionLevel(v) when
// v's value turns out not to actually depend on the decisions taken since
// some earlier level.
func (d *Domain) ConstantDecisionLevel(v int) int {
	return d.constantLevelOf(v, make(map[int]bool))
}

func (d *Domain) constantLevelOf(v int, visiting map[int]bool) int {
	lvl := d.t.DecisionLevel(v)
	if lvl < 0 || visiting[v] {
		return lvl
	}
	r := d.t.Reason(v)
	if r < 0 {
		return lvl
	}
	visiting[v] = true
	defer delete(visiting, v)

	maxAnte := 0
	for _, lit := range d.q.Clause(r).Literals {
		if lit.Var() == v {
			continue
		}
		if al := d.constantLevelOf(lit.Var(), visiting); al > maxAnte {
			maxAnte = al
		}
	}
	if maxAnte < lvl {
		return maxAnte
	}
	return lvl
}

// IsDeterministic reports whether existential variable v currently has a
// value forced by the current partial Skolem function.
func (d *Domain) IsDeterministic(v int) bool { return d.t.DecisionLevel(v) >= 0 }

// HasEmptyDomain reports whether every existential variable is
// determinized, meaning the current case is fully decided.
func (d *Domain) HasEmptyDomain() bool {
	for v := 1; v <= d.q.NumVariables(); v++ {
		if d.q.Variable(v).Universal {
			continue
		}
		if !d.IsDeterministic(v) {
			return false
		}
	}
	return true
}

// Value returns variable v's current value, if any.
func (d *Domain) Value(v int) qcnf.Value { return d.t.Value(v) }

// Capability returns the conflict analyzer callbacks for this domain,
// enforcing the dependency legality rule: an existential may only depend on
// universal variables or on existentials determinized no later than it was
// (the only ordering possible with a single existential scope).
func (d *Domain) Capability() conflict.Capability {
	return conflict.Capability{
		ValueOf:          func(l qcnf.Literal) qcnf.Value { return qcnf.ValueOf(d.t.Value(l.Var()), l) },
		IsRelevantClause: func(int) bool { return true },
		IsLegalDependence: func(v1, v2 int) bool {
			if d.q.Variable(v2).Universal {
				return true
			}
			if v1 == v2 {
				return false
			}
			return d.t.DecisionLevel(v2) <= d.t.DecisionLevel(v1)
		},
		DecisionLevelOf: func(v int) int { return d.t.DecisionLevel(v) },
		ReasonOf:        func(v int) int { return d.t.Reason(v) },
	}
}
