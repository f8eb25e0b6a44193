package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/terralytics/carbon-cli/internal/aoi"
	"github.com/terralytics/carbon-cli/internal/export"
	"github.com/terralytics/carbon-cli/internal/pipeline"
	"github.com/terralytics/carbon-cli/internal/stock"
	"github.com/terralytics/carbon-cli/internal/store"
)

var (
	runAOIPath   string
	runStartYear int
	runEndYear   int
	runThreshold float64
	runSource    string
	runStockFile string
	runOutDir    string
	runNoStore   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an emission analysis for one AOI",
	Long:  "Classifies the AOI for two years, derives land-use transitions, and writes emission statistics, rasters, vectors, and a chart report.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		area, err := aoi.Load(runAOIPath)
		if err != nil {
			return err
		}
		if area.Name == "" {
			area.Name = runAOIPath
		}

		table, err := resolveStocks()
		if err != nil {
			return err
		}

		threshold := cfg.Analysis.Threshold
		if cmd.Flags().Changed("threshold") {
			threshold = runThreshold
		}

		var p *pipeline.Pipeline
		if runNoStore {
			p = pipeline.New(initClient(), nil)
		} else {
			var st store.Store
			p, st, err = initPipeline(ctx)
			if err != nil {
				return err
			}
			defer st.Close()
		}

		result, err := p.Run(ctx, pipeline.Params{
			AOI:         area,
			StartYear:   runStartYear,
			EndYear:     runEndYear,
			Threshold:   threshold,
			Stocks:      table,
			ResolutionM: cfg.Analysis.ResolutionM,
			Workers:     cfg.Analysis.Workers,
		})
		if err != nil {
			return err
		}

		outDir := runOutDir
		if outDir == "" {
			outDir = cfg.Output.Dir
		}
		w, err := export.NewWriter(outDir)
		if err != nil {
			return err
		}
		err = w.WriteAll(export.Artifacts{
			Summary: result.Summary,
			Changes: result.Changes,
			PerHa:   result.PerHa,
			Regions: result.Regions,
			Stocks:  table,
		})
		if err != nil {
			return err
		}

		zap.L().Info("run artifacts written",
			zap.String("run_id", result.RunID),
			zap.String("dir", outDir),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result.Summary)
	},
}

func resolveStocks() (stock.Table, error) {
	if runStockFile != "" {
		return stock.LoadFile(runStockFile)
	}
	if runSource != "" {
		return stock.Lookup(stock.Source(runSource))
	}
	return cfg.StockTable()
}

func init() {
	runCmd.Flags().StringVar(&runAOIPath, "aoi", "", "path to the AOI GeoJSON file (required)")
	runCmd.Flags().IntVar(&runStartYear, "start-year", 0, "first classification year (required)")
	runCmd.Flags().IntVar(&runEndYear, "end-year", 0, "second classification year (required)")
	runCmd.Flags().Float64Var(&runThreshold, "threshold", 0, "confidence threshold override")
	runCmd.Flags().StringVar(&runSource, "stock-source", "", "carbon stock source override")
	runCmd.Flags().StringVar(&runStockFile, "stock-file", "", "custom carbon stock table (YAML)")
	runCmd.Flags().StringVar(&runOutDir, "out", "", "output directory override")
	runCmd.Flags().BoolVar(&runNoStore, "no-store", false, "skip run persistence")
	_ = runCmd.MarkFlagRequired("aoi")
	_ = runCmd.MarkFlagRequired("start-year")
	_ = runCmd.MarkFlagRequired("end-year")
	rootCmd.AddCommand(runCmd)
}
