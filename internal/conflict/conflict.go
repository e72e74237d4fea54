// Package conflict implements the first-order conflict analyzer shared by
// the Skolem and Examples domains. The analyzer is handed a
// capability record of four callbacks instead of an interface so that the
// same resolution algorithm can generalize over the two concrete domains
// (internal/skolem.Capability and internal/partial.Capability) without
// either domain implementing a shared interface it only half needs.
package conflict

import (
	"sort"

	"github.com/rhartert/detqbf/internal/qcnf"
)

// Capability bundles the four domain operations the analyzer needs:
// the current value of a literal, whether a clause is still eligible to
// resolve against, whether resolving on one variable through another is
// legal given scope/quantifier restrictions, and a variable's decision
// level. ReasonOf returns the clause index that forced a variable's value,
// or -1 if it was assigned directly (a decision, assumption, or universal
// choice).
type Capability struct {
	ValueOf           func(l qcnf.Literal) qcnf.Value
	IsRelevantClause  func(clauseIdx int) bool
	IsLegalDependence func(v1, v2 int) bool
	DecisionLevelOf   func(v int) int
	ReasonOf          func(v int) int
}

// Analyze derives a learnt clause from a conflict at clauseIdx involving
// conflictVar, performing first-order resolution walking back through
// reasons, picking at each step the pivot with the largest decision level
// among the clause-under-construction's literals (ties broken by variable
// id), until only literals at or below the conflict level remain and at
// most one sits at the conflict level itself (a first-UIP analogue). It
// returns the learnt clause (FUIP literal first) and the backtracking
// level: the second-largest distinct decision level among the clause's
// literals, or 0 if only one distinct level appears.
func Analyze(q *qcnf.QCNF, clauseIdx int, conflictVar int, cap Capability) ([]qcnf.Literal, int) {
	conflictClause := q.Clause(clauseIdx)

	conflictLevel := 0
	for _, lit := range conflictClause.Literals {
		if lvl := cap.DecisionLevelOf(lit.Var()); lvl > conflictLevel {
			conflictLevel = lvl
		}
	}

	learnt := map[int]qcnf.Literal{}
	for _, lit := range conflictClause.Literals {
		learnt[lit.Var()] = lit
	}

	maxSteps := q.NumClauses() + q.NumVariables() + 16
	for step := 0; step < maxSteps; step++ {
		var atConflictLevel []int
		for v := range learnt {
			if cap.DecisionLevelOf(v) == conflictLevel {
				atConflictLevel = append(atConflictLevel, v)
			}
		}
		if len(atConflictLevel) <= 1 {
			break
		}
		sort.Ints(atConflictLevel)
		pivot := atConflictLevel[0]

		reasonIdx := cap.ReasonOf(pivot)
		if reasonIdx < 0 || !cap.IsRelevantClause(reasonIdx) {
			break
		}

		reason := q.Clause(reasonIdx)
		legal := true
		for _, lit := range reason.Literals {
			if lit.Var() == pivot {
				continue
			}
			if !cap.IsLegalDependence(pivot, lit.Var()) {
				legal = false
				break
			}
		}
		if !legal {
			break
		}

		delete(learnt, pivot)
		for _, lit := range reason.Literals {
			if lit.Var() == pivot {
				continue
			}
			if _, ok := learnt[lit.Var()]; !ok {
				learnt[lit.Var()] = lit
			}
		}
	}

	return finalize(learnt, cap.DecisionLevelOf)
}

// finalize orders the learnt literals with the (at most one) conflict-level
// literal first and computes the backtracking level.
func finalize(learnt map[int]qcnf.Literal, levelOf func(int) int) ([]qcnf.Literal, int) {
	type entry struct {
		lit   qcnf.Literal
		level int
	}
	entries := make([]entry, 0, len(learnt))
	for v, lit := range learnt {
		entries = append(entries, entry{lit: lit, level: levelOf(v)})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].level != entries[j].level {
			return entries[i].level > entries[j].level
		}
		return entries[i].lit.Var() < entries[j].lit.Var()
	})

	out := make([]qcnf.Literal, len(entries))
	for i, e := range entries {
		out[i] = e.lit
	}

	backtrack := 0
	if len(entries) > 1 {
		backtrack = entries[1].level
	}
	return out, backtrack
}

// BacktrackLevel clamps lvl upward to floor, matching the engine's
// restart_base_decision_lvl clamp.
func BacktrackLevel(lvl, floor int) int {
	if lvl < floor {
		return floor
	}
	return lvl
}

// DecisionsInvolved reports whether any literal of the learnt clause has a
// decision level strictly greater than floor (restart_base_decision_lvl).
func DecisionsInvolved(learnt []qcnf.Literal, floor int, levelOf func(int) int) bool {
	for _, lit := range learnt {
		if levelOf(lit.Var()) > floor {
			return true
		}
	}
	return false
}
