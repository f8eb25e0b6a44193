package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/terralytics/carbon-cli/internal/lulc"
	"github.com/terralytics/carbon-cli/internal/stats"
	"github.com/terralytics/carbon-cli/internal/stock"
)

// WriteSummaryCSV writes the per-change-type breakdown as a CSV table.
func (w Writer) WriteSummaryCSV(summary *stats.Summary) error {
	path := filepath.Join(w.Dir, "changes.csv")
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write([]string{"change", "cells", "area_ha", "emissions_t"}); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for _, row := range summary.ByChange {
		rec := []string{
			row.Label,
			strconv.Itoa(row.Cells),
			strconv.FormatFloat(row.AreaHa, 'f', 3, 64),
			strconv.FormatFloat(row.EmissionsT, 'f', 3, 64),
		}
		if err := cw.Write(rec); err != nil {
			return eris.Wrap(err, "export: write csv row")
		}
	}
	cw.Flush()
	return eris.Wrapf(cw.Error(), "export: write %s", path)
}

// WriteWorkbook writes the full run report as an XLSX workbook: one sheet for
// the run totals, one for the per-change-type breakdown and one for the
// carbon stock table the run used.
func (w Writer) WriteWorkbook(summary *stats.Summary, table stock.Table) error {
	f := xlsx.NewFile()

	if err := addTotalsSheet(f, summary); err != nil {
		return err
	}
	if err := addChangesSheet(f, summary); err != nil {
		return err
	}
	if err := addStocksSheet(f, table); err != nil {
		return err
	}

	path := filepath.Join(w.Dir, "report.xlsx")
	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}

func addTotalsSheet(f *xlsx.File, summary *stats.Summary) error {
	sheet, err := f.AddSheet("Totals")
	if err != nil {
		return eris.Wrap(err, "export: add totals sheet")
	}

	addKV(sheet, "AOI area (ha)", summary.AOIAreaHa)
	addKV(sheet, "Change area (ha)", summary.ChangeAreaHa)
	addKV(sheet, "No-change area (ha)", summary.NoChangeAreaHa)
	addKV(sheet, "Unknown area (ha)", summary.UnknownAreaHa)
	addKV(sheet, "Gross emissions (t C)", summary.GrossEmissionsT)
	addKV(sheet, "Carbon sink (t C)", summary.CarbonSinkT)
	addKV(sheet, "Net emissions (t C)", summary.NetEmissionsT)
	addRatio(sheet, "Change share", summary.ChangeShare)
	addRatio(sheet, "Unknown share", summary.UnknownShare)
	addRatio(sheet, "Emitting area share", summary.EmittingAreaShare)
	addRatio(sheet, "Sink area share", summary.SinkAreaShare)
	return nil
}

func addChangesSheet(f *xlsx.File, summary *stats.Summary) error {
	sheet, err := f.AddSheet("Changes")
	if err != nil {
		return eris.Wrap(err, "export: add changes sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{"Change", "Cells", "Area (ha)", "Emissions (t C)"} {
		header.AddCell().Value = h
	}
	for _, row := range summary.ByChange {
		r := sheet.AddRow()
		r.AddCell().Value = row.Label
		r.AddCell().SetInt(row.Cells)
		r.AddCell().SetFloat(row.AreaHa)
		r.AddCell().SetFloat(row.EmissionsT)
	}
	return nil
}

func addStocksSheet(f *xlsx.File, table stock.Table) error {
	sheet, err := f.AddSheet("Stocks")
	if err != nil {
		return eris.Wrap(err, "export: add stocks sheet")
	}

	header := sheet.AddRow()
	header.AddCell().Value = "Class"
	header.AddCell().Value = "Stock (t C/ha), source " + string(table.Source)
	for _, class := range lulc.AccountableClasses() {
		r := sheet.AddRow()
		r.AddCell().Value = class.String()
		r.AddCell().SetFloat(table.Stocks[class.Ordinal()])
	}
	return nil
}

func addKV(sheet *xlsx.Sheet, label string, value float64) {
	r := sheet.AddRow()
	r.AddCell().Value = label
	r.AddCell().SetFloat(value)
}

func addRatio(sheet *xlsx.Sheet, label string, ratio stats.Ratio) {
	r := sheet.AddRow()
	r.AddCell().Value = label
	if !ratio.Valid {
		r.AddCell().Value = "n/a"
		return
	}
	r.AddCell().SetFloat(ratio.Value)
}
