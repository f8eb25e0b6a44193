// Package lulc defines the land-use/land-cover class and change-type codes
// used throughout the pipeline. The codes are stable raster values: they are
// what the classification service emits and what the output rasters carry.
package lulc

// Class is a LULC class code as found in a classified raster.
type Class uint8

const (
	// ClassUnknown marks cells the classifier could not label, or labels
	// below the confidence threshold.
	ClassUnknown Class = 0

	ClassForest     Class = 1
	ClassMeadow     Class = 2
	ClassFarmland   Class = 3
	ClassSettlement Class = 4

	// Water and permanent crops are valid classifications but carry no
	// carbon stock values, so they are excluded from emission accounting.
	ClassWater          Class = 5
	ClassPermanentCrops Class = 6
)

// NumAccountable is the number of classes that participate in emission
// accounting. Their codes are 1..NumAccountable.
const NumAccountable = 4

var classNames = map[Class]string{
	ClassUnknown:        "unknown",
	ClassForest:         "forest",
	ClassMeadow:         "meadow",
	ClassFarmland:       "farmland",
	ClassSettlement:     "settlement",
	ClassWater:          "water",
	ClassPermanentCrops: "permanent crops",
}

func (c Class) String() string {
	if name, ok := classNames[c]; ok {
		return name
	}
	return "unknown"
}

// Accountable reports whether the class participates in emission accounting.
func (c Class) Accountable() bool {
	return c >= ClassForest && c <= ClassSettlement
}

// Ordinal returns the zero-based index of an accountable class, suitable for
// dense table indexing. Callers must check Accountable first.
func (c Class) Ordinal() int {
	return int(c) - 1
}

// AccountableClasses lists the emission-relevant classes in code order.
func AccountableClasses() [NumAccountable]Class {
	return [NumAccountable]Class{ClassForest, ClassMeadow, ClassFarmland, ClassSettlement}
}
