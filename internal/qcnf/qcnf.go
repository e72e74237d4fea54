// Package qcnf holds the 2QBF input formula: variables (with their
// universal/existential flag and quantifier scope), clauses, literal
// occurrence lists and the lazily-decayed activity scores used by the main
// engine's decision heuristic. Variables and clauses are referenced by
// dense integer index rather than pointer, which is how the package avoids
// the variable/clause reference cycle described by the component design:
// QCNF is the single owner of both arrays.
package qcnf

// Literal is a nonzero signed integer; |lit| is the variable id and the
// sign is polarity, matching the external QDIMACS convention used
// throughout the core (as opposed to internal/satsolver's own doubled,
// zero-indexed encoding).
type Literal int

// Var returns the id of the literal's variable.
func (l Literal) Var() int {
	if l < 0 {
		return int(-l)
	}
	return int(l)
}

// Positive reports whether the literal is unnegated.
func (l Literal) Positive() bool { return l > 0 }

// Negate returns the complementary literal.
func (l Literal) Negate() Literal { return -l }

// Variable carries everything the engine needs to know about one QCNF
// variable: whether it is universally or existentially quantified, its
// scope id (0 for the outermost, unused for purely propositional inputs),
// its clause occurrence lists, and its activity score.
type Variable struct {
	ID        int
	Universal bool
	Scope     int

	PosOcc []int // indices into QCNF.clauses
	NegOcc []int

	activityStored float64
}

// Clause is an ordered sequence of literals with a stable index and an
// Original flag distinguishing input clauses from learnt ones.
type Clause struct {
	Index    int
	Literals []Literal
	Original bool
}

// QCNF is the central store of variables and clauses. Activity values are
// stored scaled by a shared activityFactor (see Decay) so that decaying
// every variable's activity after a conflict is O(1) rather than O(n).
type QCNF struct {
	vars    []Variable // index 0 unused; variable ids are 1-indexed
	clauses []*Clause

	// universalConstraints are unit clauses over universals only; the
	// engine treats these as universal assumptions rather than ordinary
	// learnt facts.
	universalConstraints []Literal

	activityFactor float64
	decayRate      float64
}

// New returns an empty QCNF with the default decay rate (0.99).
func New() *QCNF {
	return &QCNF{
		vars:           make([]Variable, 1),
		activityFactor: 1,
		decayRate:      0.99,
	}
}

// SetDecayRate overrides the default activity decay rate.
func (q *QCNF) SetDecayRate(r float64) { q.decayRate = r }

// AddVariable declares a new variable in the given scope and returns its id.
func (q *QCNF) AddVariable(universal bool, scope int) int {
	id := len(q.vars)
	q.vars = append(q.vars, Variable{ID: id, Universal: universal, Scope: scope})
	return id
}

// NumVariables returns the number of declared variables.
func (q *QCNF) NumVariables() int { return len(q.vars) - 1 }

// Variable returns a pointer to variable v's record for in-place mutation.
func (q *QCNF) Variable(v int) *Variable { return &q.vars[v] }

// AddClause appends a new clause (input or learnt) and indexes its literals
// into the relevant variables' occurrence lists. A unit clause over a
// single universal variable is additionally recorded as a universal
// constraint.
func (q *QCNF) AddClause(lits []Literal, original bool) *Clause {
	idx := len(q.clauses)
	c := &Clause{
		Index:    idx,
		Literals: append([]Literal(nil), lits...),
		Original: original,
	}
	q.clauses = append(q.clauses, c)

	for _, l := range lits {
		v := &q.vars[l.Var()]
		if l.Positive() {
			v.PosOcc = append(v.PosOcc, idx)
		} else {
			v.NegOcc = append(v.NegOcc, idx)
		}
	}

	if len(lits) == 1 && q.vars[lits[0].Var()].Universal {
		q.universalConstraints = append(q.universalConstraints, lits[0])
	}

	return c
}

// Clause returns the clause at index i.
func (q *QCNF) Clause(i int) *Clause { return q.clauses[i] }

// Clauses returns every clause, input and learnt, in append order.
func (q *QCNF) Clauses() []*Clause { return q.clauses }

// NumClauses returns the number of clauses added so far.
func (q *QCNF) NumClauses() int { return len(q.clauses) }

// UniversalConstraints returns the unit clauses recorded over universal
// variables only.
func (q *QCNF) UniversalConstraints() []Literal { return q.universalConstraints }
