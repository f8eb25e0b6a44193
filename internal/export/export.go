// Package export writes the run artifacts: ASCII-grid rasters, CSV and XLSX
// tables, a polygon shapefile of vectorized change regions and an HTML chart
// report. All writers put their files under a single output directory.
package export

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/terralytics/carbon-cli/internal/raster"
	"github.com/terralytics/carbon-cli/internal/stats"
	"github.com/terralytics/carbon-cli/internal/stock"
	"github.com/terralytics/carbon-cli/internal/vectorize"
)

// Writer writes run artifacts into Dir.
type Writer struct {
	Dir string
}

// NewWriter creates the output directory if needed and returns a Writer.
func NewWriter(dir string) (Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Writer{}, eris.Wrapf(err, "export: create output dir %s", dir)
	}
	return Writer{Dir: dir}, nil
}

// Artifacts bundles everything one run produces for export.
type Artifacts struct {
	Summary *stats.Summary
	Changes *raster.ChangeGrid
	PerHa   *raster.ValueGrid
	Regions []vectorize.Region
	Stocks  stock.Table
}

// WriteAll writes every artifact of a run. It stops at the first failure.
func (w Writer) WriteAll(a Artifacts) error {
	if err := w.WriteSummaryJSON(a.Summary); err != nil {
		return err
	}
	if err := w.WriteSummaryCSV(a.Summary); err != nil {
		return err
	}
	if err := w.WriteWorkbook(a.Summary, a.Stocks); err != nil {
		return err
	}
	if err := w.WriteChangeRaster(a.Changes); err != nil {
		return err
	}
	if err := w.WriteEmissionRaster(a.PerHa); err != nil {
		return err
	}
	if err := w.WriteShapefile(a.Regions); err != nil {
		return err
	}
	if err := w.WriteChartReport(a.Summary); err != nil {
		return err
	}

	zap.L().Info("wrote run artifacts",
		zap.String("component", "export"),
		zap.String("dir", w.Dir),
	)
	return nil
}

// WriteSummaryJSON writes the aggregate statistics as pretty-printed JSON.
func (w Writer) WriteSummaryJSON(summary *stats.Summary) error {
	path := filepath.Join(w.Dir, "summary.json")
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return eris.Wrap(err, "export: marshal summary")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "export: write %s", path)
	}
	return nil
}
