package partial

import (
	"github.com/rhartert/detqbf/internal/conflict"
	"github.com/rhartert/detqbf/internal/qcnf"
)

// Assignment is a PartialAssignment domain: a Tracker plus the glue needed
// to expose it to the conflict analyzer as a Capability. It has no notion
// of Skolem-function legality, so IsLegalDependence always holds; only the
// Skolem domain restricts dependence.
type Assignment struct {
	q *qcnf.QCNF
	t *Tracker
}

// NewAssignment returns an empty partial assignment over q.
func NewAssignment(q *qcnf.QCNF) *Assignment {
	return &Assignment{q: q, t: New(q)}
}

// Tracker exposes the underlying propagation tracker for direct use (push,
// pop, assign) by callers such as the Examples domain.
func (a *Assignment) Tracker() *Tracker { return a.t }

// Capability returns the four-callback record the conflict analyzer needs
// to walk this assignment's reasons.
func (a *Assignment) Capability() conflict.Capability {
	return conflict.Capability{
		ValueOf:           func(l qcnf.Literal) qcnf.Value { return qcnf.ValueOf(a.t.Value(l.Var()), l) },
		IsRelevantClause:  func(int) bool { return true },
		IsLegalDependence: func(int, int) bool { return true },
		DecisionLevelOf:   func(v int) int { return a.t.DecisionLevel(v) },
		ReasonOf:          func(v int) int { return a.t.Reason(v) },
	}
}
