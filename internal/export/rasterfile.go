package export

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/terralytics/carbon-cli/internal/lulc"
	"github.com/terralytics/carbon-cli/internal/raster"
)

// nodataValue marks unknown cells in the emission raster output.
const nodataValue = -9999.0

// WriteChangeRaster writes the change-type raster as an ESRI ASCII grid with
// a legend sidecar mapping codes to change labels.
func (w Writer) WriteChangeRaster(changes *raster.ChangeGrid) error {
	path := filepath.Join(w.Dir, "changes.asc")
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer f.Close()

	buf := bufio.NewWriter(f)
	writeAsciiHeader(buf, changes.Width, changes.Height, changes.Meta, strconv.Itoa(int(lulc.ChangeUnknown)))
	for r := 0; r < changes.Height; r++ {
		for c := 0; c < changes.Width; c++ {
			if c > 0 {
				buf.WriteByte(' ')
			}
			buf.WriteString(strconv.Itoa(int(changes.At(r, c))))
		}
		buf.WriteByte('\n')
	}
	if err := buf.Flush(); err != nil {
		return eris.Wrapf(err, "export: write %s", path)
	}

	return w.writeChangeLegend()
}

func (w Writer) writeChangeLegend() error {
	path := filepath.Join(w.Dir, "changes_legend.txt")
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer f.Close()

	buf := bufio.NewWriter(f)
	fmt.Fprintf(buf, "%d\t%s\n", lulc.ChangeUnknown, lulc.ChangeUnknown)
	fmt.Fprintf(buf, "%d\t%s\n", lulc.ChangeNone, lulc.ChangeNone)
	for _, code := range lulc.RealizedChanges() {
		fmt.Fprintf(buf, "%d\t%s\n", code, code)
	}
	return eris.Wrapf(buf.Flush(), "export: write %s", path)
}

// WriteEmissionRaster writes the per-hectare emission raster as an ESRI
// ASCII grid. Invalid (unknown) cells become the NODATA value.
func (w Writer) WriteEmissionRaster(perHa *raster.ValueGrid) error {
	path := filepath.Join(w.Dir, "emissions_t_ha.asc")
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer f.Close()

	buf := bufio.NewWriter(f)
	writeAsciiHeader(buf, perHa.Width, perHa.Height, perHa.Meta, strconv.FormatFloat(nodataValue, 'f', 1, 64))
	for r := 0; r < perHa.Height; r++ {
		for c := 0; c < perHa.Width; c++ {
			if c > 0 {
				buf.WriteByte(' ')
			}
			i := r*perHa.Width + c
			if !perHa.Valid[i] {
				buf.WriteString(strconv.FormatFloat(nodataValue, 'f', 1, 64))
				continue
			}
			buf.WriteString(strconv.FormatFloat(perHa.Values[i], 'f', 3, 64))
		}
		buf.WriteByte('\n')
	}
	return eris.Wrapf(buf.Flush(), "export: write %s", path)
}

func writeAsciiHeader(buf *bufio.Writer, width, height int, meta raster.Meta, nodata string) {
	fmt.Fprintf(buf, "ncols %d\n", width)
	fmt.Fprintf(buf, "nrows %d\n", height)
	fmt.Fprintf(buf, "xllcorner %g\n", meta.OriginX)
	fmt.Fprintf(buf, "yllcorner %g\n", meta.OriginY-float64(height)*meta.ResolutionM)
	fmt.Fprintf(buf, "cellsize %g\n", meta.ResolutionM)
	fmt.Fprintf(buf, "NODATA_value %s\n", nodata)
}
