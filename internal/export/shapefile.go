package export

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/terralytics/carbon-cli/internal/vectorize"
)

// WriteShapefile writes the vectorized change regions as a polygon shapefile
// with CHANGE, AREA_HA and EMIS_T attributes.
func (w Writer) WriteShapefile(regions []vectorize.Region) error {
	path := filepath.Join(w.Dir, "changes.shp")
	sw, err := shp.Create(path, shp.POLYGON)
	if err != nil {
		return eris.Wrapf(err, "export: create shapefile %s", path)
	}

	err = writeRegions(sw, regions)
	sw.Close()
	if err != nil {
		return err
	}

	// go-shp trims the ".shp" suffix and writes the attribute table to
	// path+"dbf"; move it to the conventional name.
	base := strings.TrimSuffix(path, ".shp")
	if _, statErr := os.Stat(base + "dbf"); statErr == nil {
		if err := os.Rename(base+"dbf", base+".dbf"); err != nil {
			return eris.Wrap(err, "export: rename shapefile attribute table")
		}
	}

	zap.L().Debug("wrote change region shapefile",
		zap.String("component", "export"),
		zap.String("path", path),
		zap.Int("regions", len(regions)),
	)
	return nil
}

func writeRegions(sw *shp.Writer, regions []vectorize.Region) error {
	if err := sw.SetFields([]shp.Field{
		shp.StringField("CHANGE", 32),
		shp.FloatField("AREA_HA", 16, 3),
		shp.FloatField("EMIS_T", 16, 3),
	}); err != nil {
		return eris.Wrap(err, "export: set shapefile fields")
	}

	for i, region := range regions {
		sw.Write(toShpPolygon(region))
		if err := sw.WriteAttribute(i, 0, region.Change.String()); err != nil {
			return eris.Wrap(err, "export: write shapefile attribute")
		}
		if err := sw.WriteAttribute(i, 1, region.AreaHa); err != nil {
			return eris.Wrap(err, "export: write shapefile attribute")
		}
		if err := sw.WriteAttribute(i, 2, region.EmissionsT); err != nil {
			return eris.Wrap(err, "export: write shapefile attribute")
		}
	}
	return nil
}

func toShpPolygon(region vectorize.Region) *shp.Polygon {
	parts := make([][]shp.Point, 0, region.Geometry.NumLinearRings())
	for _, ring := range region.Geometry.Coords() {
		points := make([]shp.Point, len(ring))
		for j, coord := range ring {
			points[j] = shp.Point{X: coord.X(), Y: coord.Y()}
		}
		parts = append(parts, points)
	}
	return (*shp.Polygon)(shp.NewPolyLine(parts))
}
