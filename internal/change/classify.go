// Package change fuses two classified snapshots and their confidence masks
// into a single change-type raster.
package change

import (
	"context"
	"runtime"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/terralytics/carbon-cli/internal/lulc"
	"github.com/terralytics/carbon-cli/internal/raster"
	"github.com/terralytics/carbon-cli/internal/stock"
)

// Classifier derives the change-type raster from co-registered snapshots.
// Every cell is decided independently, so the grid is partitioned into row
// blocks and classified concurrently.
type Classifier struct {
	// Threshold is the minimum per-cell confidence τ in [0,1]. Cells where
	// either snapshot falls below it become unknown.
	Threshold float64

	// Workers bounds the number of concurrent row blocks. Zero means
	// runtime.NumCPU().
	Workers int
}

// Classify applies the per-cell decision rules:
//
//  1. confidence below τ in either snapshot → unknown
//  2. class outside emission accounting in either snapshot → unknown
//  3. same class in both → no change
//  4. otherwise → the ordered (before, after) pair
//
// Grids that are not co-registered fail before any per-cell work.
func (c Classifier) Classify(
	ctx context.Context,
	before, after *raster.ClassGrid,
	confBefore, confAfter *raster.ConfGrid,
) (*raster.ChangeGrid, error) {
	if c.Threshold < 0 || c.Threshold > 1 {
		return nil, eris.Wrapf(stock.ErrConfiguration, "confidence threshold %v outside [0,1]", c.Threshold)
	}
	if err := raster.CheckCoRegistered(before, after, confBefore, confAfter); err != nil {
		return nil, err
	}
	if !before.Meta.Equal(after.Meta) {
		return nil, eris.Wrap(raster.ErrShapeMismatch, "snapshot georeferencing differs")
	}

	out := &raster.ChangeGrid{
		Width:  before.Width,
		Height: before.Height,
		Meta:   before.Meta,
		Codes:  make([]lulc.ChangeType, before.Width*before.Height),
	}

	workers := c.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > before.Height {
		workers = before.Height
	}
	if workers < 1 {
		workers = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	block := (before.Height + workers - 1) / workers
	for start := 0; start < before.Height; start += block {
		end := start + block
		if end > before.Height {
			end = before.Height
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			c.classifyRows(before, after, confBefore, confAfter, out, start, end)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	zap.L().Debug("classified change raster",
		zap.String("component", "change"),
		zap.Int("width", out.Width),
		zap.Int("height", out.Height),
		zap.Float64("threshold", c.Threshold),
	)
	return out, nil
}

func (c Classifier) classifyRows(
	before, after *raster.ClassGrid,
	confBefore, confAfter *raster.ConfGrid,
	out *raster.ChangeGrid,
	rowStart, rowEnd int,
) {
	for i := rowStart * before.Width; i < rowEnd*before.Width; i++ {
		out.Codes[i] = c.classifyCell(
			before.Cells[i], after.Cells[i],
			confBefore.Values[i], confAfter.Values[i],
		)
	}
}

func (c Classifier) classifyCell(before, after lulc.Class, confBefore, confAfter float64) lulc.ChangeType {
	if confBefore < c.Threshold || confAfter < c.Threshold {
		return lulc.ChangeUnknown
	}
	if !before.Accountable() || !after.Accountable() {
		return lulc.ChangeUnknown
	}
	return lulc.MakeChange(before, after)
}
