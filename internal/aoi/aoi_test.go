package aoi

import (
	"math"
	"testing"
)

const featureJSON = `{
	"type": "Feature",
	"properties": {"name": "gruenheide"},
	"geometry": {
		"type": "MultiPolygon",
		"coordinates": [[[
			[8.59, 49.36], [8.78, 49.36], [8.78, 49.44], [8.59, 49.44], [8.59, 49.36]
		]]]
	}
}`

const polygonJSON = `{
	"type": "Polygon",
	"coordinates": [[
		[8.59, 49.36], [8.78, 49.36], [8.78, 49.44], [8.59, 49.44], [8.59, 49.36]
	]]
}`

func TestParseFeature(t *testing.T) {
	a, err := Parse([]byte(featureJSON))
	if err != nil {
		t.Fatal(err)
	}
	if a.Name != "gruenheide" {
		t.Errorf("name = %q", a.Name)
	}
	minLon, minLat, maxLon, maxLat := a.Bounds()
	if minLon != 8.59 || minLat != 49.36 || maxLon != 8.78 || maxLat != 49.44 {
		t.Errorf("bounds = %v %v %v %v", minLon, minLat, maxLon, maxLat)
	}
}

func TestParseBareGeometry(t *testing.T) {
	a, err := Parse([]byte(polygonJSON))
	if err != nil {
		t.Fatal(err)
	}
	if a.Geometry.NumPolygons() != 1 {
		t.Errorf("polygons = %d, want 1", a.Geometry.NumPolygons())
	}
}

func TestParseRejectsPoints(t *testing.T) {
	if _, err := Parse([]byte(`{"type":"Point","coordinates":[8.6,49.4]}`)); err == nil {
		t.Fatal("expected error for point geometry")
	}
}

func TestAreaHa(t *testing.T) {
	a, err := Parse([]byte(featureJSON))
	if err != nil {
		t.Fatal(err)
	}
	// ~0.19° × 0.08° box at 49.4°N: roughly 13.7 km × 8.9 km ≈ 12200 ha.
	got := a.AreaHa()
	if got < 11000 || got > 13500 {
		t.Errorf("area = %v ha, expected roughly 12200", got)
	}
}

func TestValidate(t *testing.T) {
	a, err := Parse([]byte(featureJSON))
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}

func TestValidateOutsideRegion(t *testing.T) {
	outside := `{
		"type": "Polygon",
		"coordinates": [[
			[-100.0, 40.0], [-99.9, 40.0], [-99.9, 40.1], [-100.0, 40.1], [-100.0, 40.0]
		]]
	}`
	a, err := Parse([]byte(outside))
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Validate(); err == nil {
		t.Error("expected region validation error")
	}
}

func TestValidateTooLarge(t *testing.T) {
	big := `{
		"type": "Polygon",
		"coordinates": [[
			[8.0, 49.0], [10.0, 49.0], [10.0, 51.0], [8.0, 51.0], [8.0, 49.0]
		]]
	}`
	a, err := Parse([]byte(big))
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Validate(); err == nil {
		t.Error("expected size validation error")
	}
}

func TestSphericalRingAreaSign(t *testing.T) {
	a, _ := Parse([]byte(featureJSON))
	if a.AreaHa() <= 0 || math.IsNaN(a.AreaHa()) {
		t.Errorf("area must be positive, got %v", a.AreaHa())
	}
}
