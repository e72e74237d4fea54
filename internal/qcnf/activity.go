package qcnf

import "math"

// rescaleThreshold is the bound on activityFactor past which Decay
// rescales every stored value back down, matching the source solver's
// magic constant rather than MiniSat's (which rescales stored values
// directly on bump instead of lazily on decay).
const rescaleThreshold = 1000.0

// Set stores activity a for variable v, scaled by the current factor.
func (q *QCNF) Set(v int, a float64) {
	q.vars[v].activityStored = a * q.activityFactor
}

// Get returns variable v's effective (unscaled) activity.
func (q *QCNF) Get(v int) float64 {
	return q.vars[v].activityStored / q.activityFactor
}

// Bump adds delta (in effective units) to variable v's stored activity.
func (q *QCNF) Bump(v int, delta float64) {
	q.vars[v].activityStored += delta * q.activityFactor
}

// Scale multiplies variable v's stored activity by s directly, leaving the
// factor untouched. Used by the main engine's decision_var_activity_modifier
// step, which scales a single variable rather than the whole population.
func (q *QCNF) Scale(v int, s float64) {
	q.vars[v].activityStored *= s
}

// Decay divides the shared activityFactor by decayRate, lazily decaying
// every variable's effective activity at once. If the factor would exceed
// rescaleThreshold or stop being finite, every stored value is first
// rescaled back to factor 1 and the division is retried.
func (q *QCNF) Decay() {
	next := q.activityFactor / q.decayRate
	if !isFinite(next) || next > rescaleThreshold {
		q.rescale()
		next = q.activityFactor / q.decayRate
	}
	q.activityFactor = next
}

// Factor returns the current activity scaling factor (always >= 1 and
// finite).
func (q *QCNF) Factor() float64 { return q.activityFactor }

// rescale resets activityFactor to 1, multiplying every stored activity by
// 1/oldFactor so effective activities (Get) are unchanged by the rescale.
func (q *QCNF) rescale() {
	old := q.activityFactor
	q.activityFactor = 1
	inv := 1 / old
	for i := 1; i < len(q.vars); i++ {
		q.vars[i].activityStored *= inv
	}
}

// ResetActivities zeroes every variable's activity and resets the factor to
// 1, as performed by a major restart.
func (q *QCNF) ResetActivities() {
	q.activityFactor = 1
	for i := 1; i < len(q.vars); i++ {
		q.vars[i].activityStored = 0
	}
}

func isFinite(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}
