package stock

import "github.com/terralytics/carbon-cli/internal/lulc"

// TransitionLookup is the dense emission-factor table over ordered pairs of
// accountable classes, indexed by class ordinal. Factors are signed t/ha,
// positive for emissions. The table is immutable after construction and may
// be shared across workers without locking.
type TransitionLookup struct {
	source  Source
	factors [lulc.NumAccountable][lulc.NumAccountable]float64
}

// BuildLookup derives the full transition lookup from a stock table:
// factor(a, b) = stock(a) − stock(b). The diagonal is assigned an exact
// zero rather than computed, to keep no-change factors free of float drift.
func BuildLookup(t Table) (TransitionLookup, error) {
	if err := t.validate(); err != nil {
		return TransitionLookup{}, err
	}

	var l TransitionLookup
	l.source = t.Source
	for _, a := range lulc.AccountableClasses() {
		for _, b := range lulc.AccountableClasses() {
			if a == b {
				l.factors[a.Ordinal()][b.Ordinal()] = 0
				continue
			}
			l.factors[a.Ordinal()][b.Ordinal()] = t.Stock(a) - t.Stock(b)
		}
	}
	return l, nil
}

// Source returns the stock source the lookup was built from.
func (l TransitionLookup) Source() Source {
	return l.source
}

// Factor returns the emission factor in t/ha for a change type. The second
// return is false for unknown changes, which have no numeric factor.
func (l TransitionLookup) Factor(ct lulc.ChangeType) (float64, bool) {
	switch {
	case ct == lulc.ChangeNone:
		return 0, true
	case ct.Realized():
		from, to, _ := ct.Pair()
		return l.factors[from.Ordinal()][to.Ordinal()], true
	default:
		return 0, false
	}
}
