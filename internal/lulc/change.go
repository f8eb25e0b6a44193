package lulc

import "fmt"

// ChangeType encodes the observed class transition at one cell. Realized
// transitions between distinct accountable classes get a dense positive code
// so the change raster can be written out with a compact legend.
type ChangeType int16

const (
	// ChangeUnknown marks cells where either snapshot is unusable: low
	// confidence, or a class outside emission accounting.
	ChangeUnknown ChangeType = -1

	// ChangeNone collapses all same-class transitions.
	ChangeNone ChangeType = 0
)

// MakeChange builds the change code for an ordered pair of accountable
// classes. Equal classes collapse to ChangeNone.
func MakeChange(from, to Class) ChangeType {
	if !from.Accountable() || !to.Accountable() {
		return ChangeUnknown
	}
	if from == to {
		return ChangeNone
	}
	return ChangeType(from.Ordinal()*NumAccountable + to.Ordinal() + 1)
}

// Realized reports whether the change is a concrete transition between two
// distinct accountable classes.
func (ct ChangeType) Realized() bool {
	return ct > 0
}

// Pair decodes a realized change back into its (from, to) classes.
// The second return is false for ChangeNone and ChangeUnknown.
func (ct ChangeType) Pair() (from, to Class, ok bool) {
	if !ct.Realized() {
		return ClassUnknown, ClassUnknown, false
	}
	v := int(ct) - 1
	return Class(v/NumAccountable + 1), Class(v%NumAccountable + 1), true
}

func (ct ChangeType) String() string {
	switch {
	case ct == ChangeNone:
		return "no change"
	case ct.Realized():
		from, to, _ := ct.Pair()
		return fmt.Sprintf("%s to %s", from, to)
	default:
		return "unknown"
	}
}

// RealizedChanges lists every possible realized change code in legend order.
func RealizedChanges() []ChangeType {
	out := make([]ChangeType, 0, NumAccountable*(NumAccountable-1))
	for _, from := range AccountableClasses() {
		for _, to := range AccountableClasses() {
			if from != to {
				out = append(out, MakeChange(from, to))
			}
		}
	}
	return out
}
