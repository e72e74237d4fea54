package casesplit

import "github.com/rhartert/yagh"

// notoriousnessOrder ranks candidate interface literals by a depth-
// penalized notoriousness score, using the same binary-heap structure
// internal/satsolver/ordering.go uses for variable activity: a min-heap
// keyed by negated score gives O(log n) access to the most notorious
// remaining candidate.
type notoriousnessOrder struct {
	order  *yagh.IntMap[float64]
	scores []float64
}

func newNotoriousnessOrder(n int) *notoriousnessOrder {
	o := &notoriousnessOrder{
		order:  yagh.New[float64](0),
		scores: make([]float64, n+1),
	}
	o.order.GrowBy(n + 1)
	return o
}

// Update records v's current notoriousness score, (re)offering it as a
// candidate.
func (o *notoriousnessOrder) Update(v int, score float64) {
	o.scores[v] = score
	o.order.Put(v, -score)
}

// PopBest extracts and returns the remaining candidate with the highest
// score. A popped candidate is not offered again until the next Update.
func (o *notoriousnessOrder) PopBest() (v int, score float64, ok bool) {
	next, ok := o.order.Pop()
	if !ok {
		return 0, 0, false
	}
	return next.Elem, o.scores[next.Elem], true
}
