// Package partial implements a reusable occurrence-list unit-propagation
// tracker over a qcnf.QCNF, shared by the Examples domain (directly, as
// PartialAssignment) and the Skolem domain (by composition, layered with
// dependency legality and Skolem-function encoding). Keeping the
// propagation loop in one place is what lets the conflict analyzer treat
// both domains through the same four-callback capability record.
package partial

import "github.com/rhartert/detqbf/internal/qcnf"

// Tracker propagates unit clauses over a QCNF, maintaining one decision
// level per pushed scope the way internal/satsolver's trail does, but
// using plain occurrence lists instead of watched literals since the
// first-order domains propagate far less often than the black-box solver.
type Tracker struct {
	q *qcnf.QCNF

	value []qcnf.Value // per variable id, ValueUnknown until assigned
	level []int        // decision level at which the variable was assigned, -1 if unassigned
	// reason[v] is the index (into q.Clauses()) of the clause that forced
	// v's value, or -1 if v was assigned directly (decision/assumption).
	reason []int

	trail    []qcnf.Literal
	trailLim []int

	// conflict, once set, names the clause and variable whose values the
	// clause and the trail jointly contradict. conflictClause is -1 when
	// there is no conflict.
	conflictClause int
	conflictVar    int
}

// New returns a Tracker over q with every variable unassigned.
func New(q *qcnf.QCNF) *Tracker {
	n := q.NumVariables()
	t := &Tracker{
		q:              q,
		value:          make([]qcnf.Value, n+1),
		level:          make([]int, n+1),
		reason:         make([]int, n+1),
		conflictClause: -1,
		conflictVar:    -1,
	}
	for i := range t.level {
		t.level[i] = -1
		t.reason[i] = -1
	}
	return t
}

// Grow extends the tracker to cover variables added to q after New was
// called.
func (t *Tracker) Grow() {
	n := t.q.NumVariables()
	for len(t.value) <= n {
		t.value = append(t.value, qcnf.ValueUnknown)
		t.level = append(t.level, -1)
		t.reason = append(t.reason, -1)
	}
}

// Level returns the current decision level (number of pushed scopes).
func (t *Tracker) Level() int { return len(t.trailLim) }

// Push opens a new decision scope.
func (t *Tracker) Push() { t.trailLim = append(t.trailLim, len(t.trail)) }

// Pop undoes every assignment made since the matching Push, including any
// recorded conflict.
func (t *Tracker) Pop() {
	lim := t.trailLim[len(t.trailLim)-1]
	t.trailLim = t.trailLim[:len(t.trailLim)-1]
	for len(t.trail) > lim {
		l := t.trail[len(t.trail)-1]
		t.trail = t.trail[:len(t.trail)-1]
		v := l.Var()
		t.value[v] = qcnf.ValueUnknown
		t.level[v] = -1
		t.reason[v] = -1
	}
	t.conflictClause = -1
	t.conflictVar = -1
}

// TrailLen returns the number of literals currently assigned.
func (t *Tracker) TrailLen() int { return len(t.trail) }

// TrailSince returns the literals assigned after position from (as
// returned by a prior TrailLen call), in assignment order.
func (t *Tracker) TrailSince(from int) []qcnf.Literal {
	if from >= len(t.trail) {
		return nil
	}
	return t.trail[from:]
}

// Value returns the current value of variable v.
func (t *Tracker) Value(v int) qcnf.Value { return t.value[v] }

// DecisionLevel returns the level at which v was assigned, or -1 if
// unassigned.
func (t *Tracker) DecisionLevel(v int) int { return t.level[v] }

// Reason returns the clause index that forced v's value, or -1 if v is
// unassigned or was assigned directly.
func (t *Tracker) Reason(v int) int { return t.reason[v] }

// IsConflicted reports whether a conflict has been recorded by Propagate or
// NewClause and not yet cleared by Pop.
func (t *Tracker) IsConflicted() bool { return t.conflictClause >= 0 }

// ConflictClause returns the conflicting clause's index, or -1 if none.
func (t *Tracker) ConflictClause() int { return t.conflictClause }

// ConflictVar returns the conflicting variable's id, or -1 if none.
func (t *Tracker) ConflictVar() int { return t.conflictVar }

// Assign forces l's variable to the value that makes l true, recording
// clauseIdx (or -1) as the reason. It reports whether the assignment is
// consistent with any prior value for the variable.
func (t *Tracker) Assign(l qcnf.Literal, clauseIdx int) bool {
	v := l.Var()
	want := qcnf.ValueTrue
	if !l.Positive() {
		want = qcnf.ValueFalse
	}

	if cur := t.value[v]; cur != qcnf.ValueUnknown {
		return cur == want
	}

	t.value[v] = want
	t.level[v] = t.Level()
	t.reason[v] = clauseIdx
	t.trail = append(t.trail, l)
	return true
}

// Propagate repeatedly scans clauses touching newly assigned variables,
// forcing any clause left with exactly one non-false literal, until
// saturation or a conflict. It returns false (and sets the conflict) the
// first time some clause has every literal false.
func (t *Tracker) Propagate() bool {
	for head := 0; head < len(t.trail); head++ {
		l := t.trail[head]
		// Any clause containing the opposite literal may now be forced or
		// falsified.
		opp := l.Negate()
		v := opp.Var()
		occ := t.q.Variable(v).PosOcc
		if !opp.Positive() {
			occ = t.q.Variable(v).NegOcc
		}

		for _, ci := range occ {
			if !t.propagateClause(ci) {
				t.conflictClause = ci
				return false
			}
		}
	}
	return true
}

// propagateClause evaluates clause ci under the current assignment. It
// returns false if every literal is false (a conflict); otherwise, if
// exactly one literal is unknown and the rest are false, it forces that
// literal true.
func (t *Tracker) propagateClause(ci int) bool {
	c := t.q.Clause(ci)

	unknownCount := 0
	var unit qcnf.Literal
	for _, lit := range c.Literals {
		switch qcnf.ValueOf(t.value[lit.Var()], lit) {
		case qcnf.ValueTrue:
			return true // clause already satisfied
		case qcnf.ValueUnknown:
			unknownCount++
			unit = lit
		}
	}

	switch unknownCount {
	case 0:
		t.conflictVar = c.Literals[0].Var()
		return false
	case 1:
		if !t.Assign(unit, ci) {
			t.conflictVar = unit.Var()
			return false
		}
	}
	return true
}

// NewClause notifies the tracker of a freshly learnt clause so that it can
// be propagated immediately if it happens to already be unit or falsified
// under the current trail.
func (t *Tracker) NewClause(ci int) {
	if !t.propagateClause(ci) {
		t.conflictClause = ci
	}
}
