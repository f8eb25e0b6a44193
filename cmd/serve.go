package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/terralytics/carbon-cli/internal/aoi"
	"github.com/terralytics/carbon-cli/internal/pipeline"
	"github.com/terralytics/carbon-cli/internal/stock"
)

var servePort int

// analyzeRequest is the wire shape of one analysis request.
type analyzeRequest struct {
	AOI         json.RawMessage `json:"aoi"`
	StartYear   int             `json:"start_year"`
	EndYear     int             `json:"end_year"`
	Threshold   *float64        `json:"threshold,omitempty"`
	StockSource string          `json:"stock_source,omitempty"`
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the analysis HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		p, st, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		mux := http.NewServeMux()

		mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
		})

		mux.HandleFunc("POST /v1/analyze", func(w http.ResponseWriter, r *http.Request) {
			params, err := buildParams(r)
			if err != nil {
				writeJSONError(w, http.StatusBadRequest, err)
				return
			}

			result, err := p.Run(r.Context(), params)
			if err != nil {
				zap.L().Error("analysis request failed",
					zap.String("aoi", params.AOI.Name),
					zap.Error(err),
				)
				writeJSONError(w, http.StatusUnprocessableEntity, err)
				return
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]any{
				"run_id":  result.RunID,
				"summary": result.Summary,
			})
		})

		mux.HandleFunc("GET /v1/sources", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]any{"sources": stock.Sources()})
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func buildParams(r *http.Request) (pipeline.Params, error) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return pipeline.Params{}, eris.Wrap(err, "decode request body")
	}
	if len(req.AOI) == 0 {
		return pipeline.Params{}, eris.New("aoi is required")
	}

	area, err := aoi.Parse(req.AOI)
	if err != nil {
		return pipeline.Params{}, err
	}

	threshold := cfg.Analysis.Threshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}

	var table stock.Table
	if req.StockSource != "" {
		table, err = stock.Lookup(stock.Source(req.StockSource))
	} else {
		table, err = cfg.StockTable()
	}
	if err != nil {
		return pipeline.Params{}, err
	}

	return pipeline.Params{
		AOI:         area,
		StartYear:   req.StartYear,
		EndYear:     req.EndYear,
		Threshold:   threshold,
		Stocks:      table,
		ResolutionM: cfg.Analysis.ResolutionM,
		Workers:     cfg.Analysis.Workers,
	}, nil
}

func writeJSONError(w http.ResponseWriter, code int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
