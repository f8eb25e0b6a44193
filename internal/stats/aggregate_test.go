package stats

import (
	"context"
	"encoding/json"
	"math"
	"testing"

	"github.com/terralytics/carbon-cli/internal/lulc"
	"github.com/terralytics/carbon-cli/internal/raster"
)

func scenarioGrids(t *testing.T) (*raster.ChangeGrid, *raster.ValueGrid) {
	t.Helper()
	meta := raster.Meta{ResolutionM: 100} // 1 ha cells
	changes := &raster.ChangeGrid{
		Width: 2, Height: 2, Meta: meta,
		Codes: []lulc.ChangeType{
			lulc.MakeChange(lulc.ClassForest, lulc.ClassSettlement),
			lulc.ChangeNone,
			lulc.ChangeUnknown,
			lulc.MakeChange(lulc.ClassMeadow, lulc.ClassForest),
		},
	}
	abs := raster.NewValueGrid(2, 2, meta)
	abs.Values[0], abs.Valid[0] = 156.0, true
	abs.Values[1], abs.Valid[1] = 0, true
	abs.Values[3], abs.Valid[3] = -119.5, true
	return changes, abs
}

func TestAggregateScenario(t *testing.T) {
	changes, abs := scenarioGrids(t)

	s, err := Aggregate(context.Background(), changes, abs, 4.0, 1)
	if err != nil {
		t.Fatal(err)
	}

	if s.ChangeAreaHa != 2.0 {
		t.Errorf("change area = %v, want 2", s.ChangeAreaHa)
	}
	if s.GrossEmissionsT != 156.0 {
		t.Errorf("gross = %v, want 156", s.GrossEmissionsT)
	}
	if s.CarbonSinkT != 119.5 {
		t.Errorf("sink = %v, want 119.5", s.CarbonSinkT)
	}
	if s.NetEmissionsT != 36.5 {
		t.Errorf("net = %v, want 36.5", s.NetEmissionsT)
	}
	if s.UnknownAreaHa != 1.0 {
		t.Errorf("unknown area = %v, want 1", s.UnknownAreaHa)
	}
	if !s.UnknownShare.Valid || s.UnknownShare.Value != 0.25 {
		t.Errorf("unknown share = %+v, want 0.25", s.UnknownShare)
	}
	if !s.ChangeShare.Valid || s.ChangeShare.Value != 0.5 {
		t.Errorf("change share = %+v, want 0.5", s.ChangeShare)
	}
	if len(s.ByChange) != 2 {
		t.Fatalf("by-change rows = %d, want 2", len(s.ByChange))
	}
	// Sorted by emissions ascending: sink row first.
	if s.ByChange[0].EmissionsT != -119.5 || s.ByChange[1].EmissionsT != 156.0 {
		t.Errorf("by-change sorted wrong: %+v", s.ByChange)
	}
}

func TestAreaAdditivity(t *testing.T) {
	changes, abs := scenarioGrids(t)
	s, err := Aggregate(context.Background(), changes, abs, 4.0, 2)
	if err != nil {
		t.Fatal(err)
	}
	sum := s.ChangeAreaHa + s.NoChangeAreaHa + s.UnknownAreaHa
	want := float64(s.TotalCells) * s.CellAreaHa
	if sum != want {
		t.Errorf("area sum = %v, want exactly %v", sum, want)
	}
}

func TestNetDecomposition(t *testing.T) {
	changes, abs := scenarioGrids(t)
	s, err := Aggregate(context.Background(), changes, abs, 4.0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if s.NetEmissionsT != s.GrossEmissionsT-s.CarbonSinkT {
		t.Errorf("net %v != gross %v - sink %v", s.NetEmissionsT, s.GrossEmissionsT, s.CarbonSinkT)
	}
}

func TestZeroAreaGuards(t *testing.T) {
	meta := raster.Meta{ResolutionM: 100}
	changes := &raster.ChangeGrid{
		Width: 1, Height: 1, Meta: meta,
		Codes: []lulc.ChangeType{lulc.ChangeNone},
	}
	abs := raster.NewValueGrid(1, 1, meta)
	abs.Valid[0] = true

	s, err := Aggregate(context.Background(), changes, abs, 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if s.ChangeShare.Valid {
		t.Error("change share must be undefined for zero AOI area")
	}
	if s.EmittingAreaShare.Valid || s.SinkAreaShare.Valid {
		t.Error("area shares must be undefined when nothing changed")
	}
}

func TestIdempotence(t *testing.T) {
	changes, abs := scenarioGrids(t)
	first, err := Aggregate(context.Background(), changes, abs, 4.0, 3)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		again, err := Aggregate(context.Background(), changes, abs, 4.0, 3)
		if err != nil {
			t.Fatal(err)
		}
		a, _ := json.Marshal(first)
		b, _ := json.Marshal(again)
		if string(a) != string(b) {
			t.Fatalf("run %d produced different statistics", i)
		}
	}
}

func TestParallelSerialEquivalence(t *testing.T) {
	// Large-ish grid with a mix of codes; serial and parallel reductions
	// must agree exactly because partials merge in block order.
	w, h := 101, 97
	meta := raster.Meta{ResolutionM: 10}
	changes := &raster.ChangeGrid{Width: w, Height: h, Meta: meta, Codes: make([]lulc.ChangeType, w*h)}
	abs := raster.NewValueGrid(w, h, meta)
	realized := lulc.RealizedChanges()
	for i := range changes.Codes {
		switch i % 5 {
		case 0:
			changes.Codes[i] = lulc.ChangeUnknown
		case 1:
			changes.Codes[i] = lulc.ChangeNone
			abs.Valid[i] = true
		default:
			code := realized[i%len(realized)]
			changes.Codes[i] = code
			abs.Values[i] = float64(i%13)*0.37 - 2.0
			abs.Valid[i] = true
		}
	}

	serial, err := Aggregate(context.Background(), changes, abs, 1000, 1)
	if err != nil {
		t.Fatal(err)
	}
	parallel, err := Aggregate(context.Background(), changes, abs, 1000, 8)
	if err != nil {
		t.Fatal(err)
	}

	a, _ := json.Marshal(serial)
	b, _ := json.Marshal(parallel)
	if string(a) != string(b) {
		t.Fatal("serial and parallel aggregation disagree")
	}
}

func TestKahanSum(t *testing.T) {
	// 10 million small increments; the compensated sum should stay exact
	// to within one ulp of the analytic result.
	var k kahanSum
	const n = 10_000_000
	for i := 0; i < n; i++ {
		k.Add(0.1)
	}
	want := float64(n) * 0.1
	if diff := math.Abs(k.Value() - want); diff > 1e-6 {
		t.Errorf("kahan sum off by %v", diff)
	}
}

func TestKahanMerge(t *testing.T) {
	var whole, left, right kahanSum
	for i := 0; i < 1000; i++ {
		v := float64(i) * 0.001
		whole.Add(v)
		if i < 500 {
			left.Add(v)
		} else {
			right.Add(v)
		}
	}
	left.Merge(right)
	if math.Abs(left.Value()-whole.Value()) > 1e-12 {
		t.Errorf("merged = %v, whole = %v", left.Value(), whole.Value())
	}
}

func TestRatioJSON(t *testing.T) {
	b, err := json.Marshal(Ratio{})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "null" {
		t.Errorf("undefined ratio = %s, want null", b)
	}

	b, err = json.Marshal(Ratio{Value: 0.25, Valid: true})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "0.25" {
		t.Errorf("ratio = %s, want 0.25", b)
	}

	var r Ratio
	if err := json.Unmarshal([]byte("null"), &r); err != nil {
		t.Fatal(err)
	}
	if r.Valid {
		t.Error("null should unmarshal to undefined")
	}

	var bad Ratio
	if err := json.Unmarshal([]byte(`"not a number"`), &bad); err == nil {
		t.Fatal("want error for malformed ratio")
	}
	if bad.Valid {
		t.Error("failed decode must not mark the ratio valid")
	}
}
