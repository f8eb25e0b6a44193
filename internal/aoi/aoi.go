// Package aoi loads and validates the area of interest. The AOI arrives as a
// GeoJSON Feature or bare geometry in WGS84 lon/lat, the same shape the
// original request surface accepts.
package aoi

import (
	"encoding/json"
	"math"
	"os"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// Supported region bounding box (lon/lat). The classification model is
// trained on imagery from this region only.
var (
	RegionMinLon = 5.8
	RegionMinLat = 47.2
	RegionMaxLon = 15.1
	RegionMaxLat = 55.1
)

// MaxAreaKm2 caps the analyzable AOI size.
const MaxAreaKm2 = 1000.0

const earthRadiusM = 6371008.8

// AOI is a validated area of interest.
type AOI struct {
	Name     string
	Geometry *geom.MultiPolygon
}

// Load reads an AOI from a GeoJSON file.
func Load(path string) (*AOI, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "aoi: read %s", path)
	}
	a, err := Parse(raw)
	if err != nil {
		return nil, eris.Wrapf(err, "aoi: parse %s", path)
	}
	return a, nil
}

// Parse accepts a GeoJSON Feature or bare geometry holding a Polygon or
// MultiPolygon.
func Parse(raw []byte) (*AOI, error) {
	name := ""
	var g geom.T

	var feature geojson.Feature
	if err := json.Unmarshal(raw, &feature); err == nil && feature.Geometry != nil {
		g = feature.Geometry
		if v, ok := feature.Properties["name"].(string); ok {
			name = v
		}
	} else if err := geojson.Unmarshal(raw, &g); err != nil {
		return nil, eris.Wrap(err, "aoi: decode geojson")
	}

	mp, err := asMultiPolygon(g)
	if err != nil {
		return nil, err
	}
	return &AOI{Name: name, Geometry: mp}, nil
}

func asMultiPolygon(g geom.T) (*geom.MultiPolygon, error) {
	switch t := g.(type) {
	case *geom.MultiPolygon:
		return t, nil
	case *geom.Polygon:
		mp := geom.NewMultiPolygon(t.Layout())
		if err := mp.Push(t); err != nil {
			return nil, eris.Wrap(err, "aoi: convert polygon")
		}
		return mp, nil
	default:
		return nil, eris.Errorf("aoi: unsupported geometry type %T", g)
	}
}

// Bounds returns the lon/lat bounding box (minLon, minLat, maxLon, maxLat).
func (a *AOI) Bounds() (float64, float64, float64, float64) {
	b := a.Geometry.Bounds()
	return b.Min(0), b.Min(1), b.Max(0), b.Max(1)
}

// AreaHa returns the geodesic area of the AOI in hectares, computed per ring
// on the sphere. Holes subtract.
func (a *AOI) AreaHa() float64 {
	total := 0.0
	for i := 0; i < a.Geometry.NumPolygons(); i++ {
		p := a.Geometry.Polygon(i)
		for r := 0; r < p.NumLinearRings(); r++ {
			ringArea := sphericalRingArea(p.LinearRing(r).Coords())
			if r == 0 {
				total += math.Abs(ringArea)
			} else {
				total -= math.Abs(ringArea)
			}
		}
	}
	return total / 10000.0
}

// sphericalRingArea returns the signed area of a lon/lat ring in m².
func sphericalRingArea(coords []geom.Coord) float64 {
	if len(coords) < 3 {
		return 0
	}
	sum := 0.0
	for i := 0; i < len(coords)-1; i++ {
		lon1 := coords[i][0] * math.Pi / 180
		lat1 := coords[i][1] * math.Pi / 180
		lon2 := coords[i+1][0] * math.Pi / 180
		lat2 := coords[i+1][1] * math.Pi / 180
		sum += (lon2 - lon1) * (2 + math.Sin(lat1) + math.Sin(lat2))
	}
	return sum * earthRadiusM * earthRadiusM / 2
}

// Validate checks the AOI against the supported region and the size cap.
func (a *AOI) Validate() error {
	minLon, minLat, maxLon, maxLat := a.Bounds()
	if maxLon < RegionMinLon || minLon > RegionMaxLon || maxLat < RegionMinLat || minLat > RegionMaxLat {
		return eris.New("aoi: area is outside the supported region")
	}
	if km2 := a.AreaHa() / 100.0; km2 > MaxAreaKm2 {
		return eris.Errorf("aoi: area too large: %.1f km² exceeds the %.0f km² limit", km2, MaxAreaKm2)
	}
	return nil
}
