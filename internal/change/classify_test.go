package change

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"

	"github.com/terralytics/carbon-cli/internal/lulc"
	"github.com/terralytics/carbon-cli/internal/raster"
	"github.com/terralytics/carbon-cli/internal/stock"
)

func grids(t *testing.T, classesBefore, classesAfter []lulc.Class, confBefore, confAfter []float64, width int) (*raster.ClassGrid, *raster.ClassGrid, *raster.ConfGrid, *raster.ConfGrid) {
	t.Helper()
	height := len(classesBefore) / width
	meta := raster.Meta{ResolutionM: 100}
	before := &raster.ClassGrid{Width: width, Height: height, Meta: meta, Cells: classesBefore}
	after := &raster.ClassGrid{Width: width, Height: height, Meta: meta, Cells: classesAfter}
	cb := &raster.ConfGrid{Width: width, Height: height, Values: confBefore}
	ca := &raster.ConfGrid{Width: width, Height: height, Values: confAfter}
	return before, after, cb, ca
}

func TestClassifyRules(t *testing.T) {
	before, after, cb, ca := grids(t,
		[]lulc.Class{lulc.ClassForest, lulc.ClassFarmland, lulc.ClassForest, lulc.ClassMeadow},
		[]lulc.Class{lulc.ClassSettlement, lulc.ClassFarmland, lulc.ClassForest, lulc.ClassForest},
		[]float64{0.9, 0.9, 0.5, 0.9},
		[]float64{0.9, 0.9, 0.9, 0.9},
		2,
	)

	out, err := Classifier{Threshold: 0.75}.Classify(context.Background(), before, after, cb, ca)
	if err != nil {
		t.Fatal(err)
	}

	want := []lulc.ChangeType{
		lulc.MakeChange(lulc.ClassForest, lulc.ClassSettlement),
		lulc.ChangeNone,
		lulc.ChangeUnknown,
		lulc.MakeChange(lulc.ClassMeadow, lulc.ClassForest),
	}
	for i, w := range want {
		if out.Codes[i] != w {
			t.Errorf("cell %d: got %v, want %v", i, out.Codes[i], w)
		}
	}
}

func TestClassifyOutOfScopeClasses(t *testing.T) {
	before, after, cb, ca := grids(t,
		[]lulc.Class{lulc.ClassWater, lulc.ClassForest, lulc.ClassPermanentCrops, lulc.ClassUnknown},
		[]lulc.Class{lulc.ClassForest, lulc.ClassWater, lulc.ClassForest, lulc.ClassForest},
		[]float64{1, 1, 1, 1},
		[]float64{1, 1, 1, 1},
		2,
	)

	out, err := Classifier{Threshold: 0.75}.Classify(context.Background(), before, after, cb, ca)
	if err != nil {
		t.Fatal(err)
	}
	for i, code := range out.Codes {
		if code != lulc.ChangeUnknown {
			t.Errorf("cell %d: got %v, want unknown", i, code)
		}
	}
}

func TestClassifyShapeMismatch(t *testing.T) {
	meta := raster.Meta{ResolutionM: 100}
	before := raster.NewClassGrid(2, 2, meta)
	after := raster.NewClassGrid(3, 2, meta)
	cb := &raster.ConfGrid{Width: 2, Height: 2, Values: make([]float64, 4)}
	ca := &raster.ConfGrid{Width: 3, Height: 2, Values: make([]float64, 6)}

	_, err := Classifier{Threshold: 0.75}.Classify(context.Background(), before, after, cb, ca)
	if !eris.Is(err, raster.ErrShapeMismatch) {
		t.Errorf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestClassifyMetaMismatch(t *testing.T) {
	before := raster.NewClassGrid(2, 2, raster.Meta{ResolutionM: 100})
	after := raster.NewClassGrid(2, 2, raster.Meta{ResolutionM: 20})
	cb := &raster.ConfGrid{Width: 2, Height: 2, Values: make([]float64, 4)}
	ca := &raster.ConfGrid{Width: 2, Height: 2, Values: make([]float64, 4)}

	_, err := Classifier{Threshold: 0.75}.Classify(context.Background(), before, after, cb, ca)
	if !eris.Is(err, raster.ErrShapeMismatch) {
		t.Errorf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestClassifyBadThreshold(t *testing.T) {
	before, after, cb, ca := grids(t,
		[]lulc.Class{lulc.ClassForest},
		[]lulc.Class{lulc.ClassForest},
		[]float64{1}, []float64{1}, 1,
	)
	for _, tau := range []float64{-0.1, 1.1} {
		_, err := Classifier{Threshold: tau}.Classify(context.Background(), before, after, cb, ca)
		if !eris.Is(err, stock.ErrConfiguration) {
			t.Errorf("threshold %v: expected ErrConfiguration, got %v", tau, err)
		}
	}
}

func TestThresholdMonotonicity(t *testing.T) {
	// Raising τ can only move cells toward unknown, never the reverse.
	n := 64
	classesBefore := make([]lulc.Class, n)
	classesAfter := make([]lulc.Class, n)
	confBefore := make([]float64, n)
	confAfter := make([]float64, n)
	for i := 0; i < n; i++ {
		classesBefore[i] = lulc.ClassForest
		classesAfter[i] = lulc.ClassSettlement
		confBefore[i] = float64(i) / float64(n)
		confAfter[i] = float64(n-i) / float64(n)
	}
	before, after, cb, ca := grids(t, classesBefore, classesAfter, confBefore, confAfter, 8)

	prev := -1
	for _, tau := range []float64{0.0, 0.25, 0.5, 0.75, 1.0} {
		out, err := Classifier{Threshold: tau}.Classify(context.Background(), before, after, cb, ca)
		if err != nil {
			t.Fatal(err)
		}
		realized := 0
		for _, code := range out.Codes {
			if code.Realized() {
				realized++
			}
		}
		if prev >= 0 && realized > prev {
			t.Errorf("τ=%v: realized count %d increased from %d", tau, realized, prev)
		}
		prev = realized
	}
}

func TestClassifySerialParallelEquivalence(t *testing.T) {
	n := 33 * 7
	classesBefore := make([]lulc.Class, n)
	classesAfter := make([]lulc.Class, n)
	confBefore := make([]float64, n)
	confAfter := make([]float64, n)
	for i := 0; i < n; i++ {
		classesBefore[i] = lulc.Class(i%6 + 1)
		classesAfter[i] = lulc.Class((i+3)%6 + 1)
		confBefore[i] = float64(i%10) / 9
		confAfter[i] = float64((i+5)%10) / 9
	}
	before, after, cb, ca := grids(t, classesBefore, classesAfter, confBefore, confAfter, 7)

	serial, err := Classifier{Threshold: 0.6, Workers: 1}.Classify(context.Background(), before, after, cb, ca)
	if err != nil {
		t.Fatal(err)
	}
	parallel, err := Classifier{Threshold: 0.6, Workers: 8}.Classify(context.Background(), before, after, cb, ca)
	if err != nil {
		t.Fatal(err)
	}
	for i := range serial.Codes {
		if serial.Codes[i] != parallel.Codes[i] {
			t.Fatalf("cell %d differs between serial and parallel classification", i)
		}
	}
}
