package export

import (
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/rotisserie/eris"

	"github.com/terralytics/carbon-cli/internal/stats"
)

// WriteChartReport renders the run statistics as a standalone HTML page with
// a change-area pie and a per-change emission bar chart.
func (w Writer) WriteChartReport(summary *stats.Summary) error {
	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Changed area by change type", Subtitle: "hectares"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	pieData := make([]opts.PieData, 0, len(summary.ByChange))
	for _, row := range summary.ByChange {
		pieData = append(pieData, opts.PieData{Name: row.Label, Value: row.AreaHa})
	}
	pie.AddSeries("area_ha", pieData)

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Emissions by change type", Subtitle: "tonnes of carbon, sinks negative"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	labels := make([]string, 0, len(summary.ByChange))
	barData := make([]opts.BarData, 0, len(summary.ByChange))
	for _, row := range summary.ByChange {
		labels = append(labels, row.Label)
		barData = append(barData, opts.BarData{Value: row.EmissionsT})
	}
	bar.SetXAxis(labels).AddSeries("emissions_t", barData)

	page := components.NewPage()
	page.PageTitle = "Land-use change carbon report"
	page.AddCharts(pie, bar)

	path := filepath.Join(w.Dir, "report.html")
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer f.Close()

	if err := page.Render(f); err != nil {
		return eris.Wrapf(err, "export: render %s", path)
	}
	return nil
}
