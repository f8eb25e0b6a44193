// Package pipeline runs one end-to-end analysis: fetch two classified
// snapshots, derive the change raster, resolve emissions, aggregate and
// vectorize. Persistence and artifact export stay outside; the pipeline
// returns everything the caller needs for both.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/terralytics/carbon-cli/internal/aoi"
	"github.com/terralytics/carbon-cli/internal/change"
	"github.com/terralytics/carbon-cli/internal/emission"
	"github.com/terralytics/carbon-cli/internal/raster"
	"github.com/terralytics/carbon-cli/internal/stats"
	"github.com/terralytics/carbon-cli/internal/stock"
	"github.com/terralytics/carbon-cli/internal/store"
	"github.com/terralytics/carbon-cli/internal/vectorize"
	"github.com/terralytics/carbon-cli/pkg/lulcsvc"
)

// MinYear is the first year the classification service has imagery for.
const MinYear = 2017

// Params are the inputs of one analysis run.
type Params struct {
	AOI         *aoi.AOI
	StartYear   int
	EndYear     int
	Threshold   float64
	Stocks      stock.Table
	ResolutionM float64
	Workers     int
}

// Result bundles everything one run produced.
type Result struct {
	RunID   string
	Params  Params
	Lookup  stock.TransitionLookup
	Changes *raster.ChangeGrid
	PerHa   *raster.ValueGrid
	Abs     *raster.ValueGrid
	Summary *stats.Summary
	Regions []vectorize.Region
	Took    time.Duration
}

// Pipeline wires the classification client and the optional run store.
type Pipeline struct {
	Client lulcsvc.Client
	Store  store.Store // nil disables persistence
}

// New builds a pipeline. The store may be nil.
func New(client lulcsvc.Client, st store.Store) *Pipeline {
	return &Pipeline{Client: client, Store: st}
}

func (p Params) validate() error {
	if p.AOI == nil {
		return eris.Wrap(stock.ErrConfiguration, "pipeline: no AOI")
	}
	if err := p.AOI.Validate(); err != nil {
		return err
	}
	if p.StartYear < MinYear {
		return eris.Wrapf(stock.ErrConfiguration, "pipeline: start year %d before %d", p.StartYear, MinYear)
	}
	if p.StartYear >= p.EndYear {
		return eris.Wrapf(stock.ErrConfiguration, "pipeline: start year %d not before end year %d", p.StartYear, p.EndYear)
	}
	if p.Threshold < 0 || p.Threshold > 1 {
		return eris.Wrapf(stock.ErrConfiguration, "pipeline: threshold %g outside [0,1]", p.Threshold)
	}
	if p.ResolutionM <= 0 {
		return eris.Wrapf(stock.ErrConfiguration, "pipeline: resolution %g must be positive", p.ResolutionM)
	}
	return nil
}

// Run executes one analysis. Upstream classification failures are returned
// unchanged and the run is marked failed; there are no internal retries.
func (p *Pipeline) Run(ctx context.Context, params Params) (*Result, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	lookup, err := stock.BuildLookup(params.Stocks)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	started := time.Now()
	log := zap.L().With(
		zap.String("component", "pipeline"),
		zap.String("run_id", runID),
		zap.String("aoi", params.AOI.Name),
	)
	log.Info("starting analysis run",
		zap.Int("start_year", params.StartYear),
		zap.Int("end_year", params.EndYear),
		zap.String("stock_source", string(params.Stocks.Source)),
		zap.Float64("threshold", params.Threshold),
	)

	if p.Store != nil {
		rec := &store.Run{
			ID:        runID,
			AOIName:   params.AOI.Name,
			StartYear: params.StartYear,
			EndYear:   params.EndYear,
			Source:    params.Stocks.Source,
			Threshold: params.Threshold,
		}
		if err := p.Store.CreateRun(ctx, rec); err != nil {
			return nil, err
		}
	}

	result, err := p.execute(ctx, runID, params, lookup)
	if err != nil {
		log.Error("analysis run failed", zap.Error(err))
		if p.Store != nil {
			if ferr := p.Store.FailRun(ctx, runID, err); ferr != nil {
				log.Warn("could not mark run failed", zap.Error(ferr))
			}
		}
		return nil, err
	}

	if p.Store != nil {
		if err := p.Store.CompleteRun(ctx, runID, result.Summary); err != nil {
			return nil, err
		}
	}

	result.Took = time.Since(started)
	log.Info("analysis run complete",
		zap.Duration("took", result.Took),
		zap.Float64("net_emissions_t", result.Summary.NetEmissionsT),
	)
	return result, nil
}

func (p *Pipeline) execute(ctx context.Context, runID string, params Params, lookup stock.TransitionLookup) (*Result, error) {
	before, after, err := p.fetchSnapshots(ctx, params)
	if err != nil {
		return nil, err
	}

	classifier := change.Classifier{Threshold: params.Threshold, Workers: params.Workers}
	changes, err := classifier.Classify(ctx, before.Classes, after.Classes, before.Confidence, after.Confidence)
	if err != nil {
		return nil, err
	}

	resolver := emission.Resolver{Lookup: lookup, Workers: params.Workers}
	perHa, abs, err := resolver.Resolve(ctx, changes)
	if err != nil {
		return nil, err
	}

	summary, err := stats.Aggregate(ctx, changes, abs, params.AOI.AreaHa(), params.Workers)
	if err != nil {
		return nil, err
	}

	regions, err := vectorize.Regions(changes, lookup)
	if err != nil {
		return nil, err
	}

	return &Result{
		RunID:   runID,
		Params:  params,
		Lookup:  lookup,
		Changes: changes,
		PerHa:   perHa,
		Abs:     abs,
		Summary: summary,
		Regions: regions,
	}, nil
}

// fetchSnapshots requests both yearly classifications concurrently. The two
// requests share the AOI bounding box so the service returns co-registered
// grids.
func (p *Pipeline) fetchSnapshots(ctx context.Context, params Params) (before, after *lulcsvc.Snapshot, err error) {
	minLon, minLat, maxLon, maxLat := params.AOI.Bounds()
	req := lulcsvc.ClassifyRequest{
		MinLon:      minLon,
		MinLat:      minLat,
		MaxLon:      maxLon,
		MaxLat:      maxLat,
		ResolutionM: params.ResolutionM,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r := req
		r.Year = params.StartYear
		var err error
		before, err = p.Client.Classify(ctx, r)
		return err
	})
	g.Go(func() error {
		r := req
		r.Year = params.EndYear
		var err error
		after, err = p.Client.Classify(ctx, r)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return before, after, nil
}
