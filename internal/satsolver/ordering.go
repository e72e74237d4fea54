package satsolver

import (
	"log"

	"github.com/rhartert/yagh"
)

// VarOrder maintains the order in which unassigned variables are offered as
// decisions. A binary heap keyed by negated score gives O(log n) access to
// the current highest-activity variable; ties are broken by the heap's
// insertion order, which corresponds to variable declaration order.
type VarOrder struct {
	order *yagh.IntMap[float64]

	scores     []float64 // in [0, 1e100)
	scoreInc   float64   // in (0, 1e100)
	scoreDecay float64   // in (0, 1]

	phases      []LBool
	phaseSaving bool
}

// NewVarOrder returns an empty VarOrder with the given activity decay.
func NewVarOrder(decay float64, phaseSaving bool) *VarOrder {
	return &VarOrder{
		order:       yagh.New[float64](0),
		scoreInc:    1,
		scoreDecay:  decay,
		phases:      make([]LBool, 0),
		phaseSaving: phaseSaving,
	}
}

// AddVar registers a new variable with the given initial score and phase.
func (vo *VarOrder) AddVar(initScore float64, initPhase bool) {
	varID := len(vo.phases)

	vo.scores = append(vo.scores, initScore)
	vo.phases = append(vo.phases, Lift(initPhase))

	vo.order.GrowBy(1)
	vo.order.Put(varID, -initScore)
}

// Reinsert makes variable v a candidate for selection again after it has
// been unassigned by a backtrack, optionally saving its last phase.
func (vo *VarOrder) Reinsert(v int, val LBool) {
	if vo.phaseSaving {
		vo.phases[v] = val
	}
	vo.order.Put(v, -vo.scores[v])
}

// DecayScores lazily decays every variable's score by bumping the shared
// increment instead of touching every score.
func (vo *VarOrder) DecayScores() {
	vo.scoreInc /= vo.scoreDecay
	if vo.scoreInc > 1e100 {
		vo.rescale()
	}
}

// BumpScore increases v's score, possibly triggering a rescale to keep
// values bounded.
func (vo *VarOrder) BumpScore(v int) {
	newScore := vo.scores[v] + vo.scoreInc
	vo.scores[v] = newScore
	if vo.order.Contains(v) {
		vo.order.Put(v, -newScore)
	}
	if newScore > 1e100 {
		vo.rescale()
	}
}

// NextDecision pops and returns the unassigned variable with the highest
// score as a literal carrying its saved (or default) phase.
func (vo *VarOrder) NextDecision(s *Solver) Literal {
	for {
		next, ok := vo.order.Pop()
		if !ok {
			log.Fatalln("satsolver: decision requested on an empty heap")
		}
		if s.VarValue(next.Elem) != Unknown {
			continue
		}
		if vo.phases[next.Elem] == False {
			return NegativeLiteral(next.Elem)
		}
		return PositiveLiteral(next.Elem)
	}
}

func (vo *VarOrder) rescale() {
	vo.scoreInc *= 1e-100
	for v, sc := range vo.scores {
		newScore := sc * 1e-100
		vo.scores[v] = newScore
		if vo.order.Contains(v) {
			vo.order.Put(v, -newScore)
		}
	}
}
