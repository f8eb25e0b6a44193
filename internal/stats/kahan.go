package stats

// kahanSum is a compensated accumulator. Grids can reach tens of millions of
// cells, where naive sequential float summation drifts enough to show up in
// the reported totals.
type kahanSum struct {
	sum float64
	c   float64
}

func (k *kahanSum) Add(v float64) {
	y := v - k.c
	t := k.sum + y
	k.c = (t - k.sum) - y
	k.sum = t
}

// Merge folds another partial sum in. Partial sums are merged in a fixed
// block order so repeated runs produce identical totals.
func (k *kahanSum) Merge(o kahanSum) {
	k.Add(o.sum)
	k.Add(-o.c)
}

func (k kahanSum) Value() float64 {
	return k.sum
}
