// Package emission turns a change-type raster into per-hectare and absolute
// per-cell emission rasters via the transition lookup.
package emission

import (
	"context"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/terralytics/carbon-cli/internal/raster"
	"github.com/terralytics/carbon-cli/internal/stock"
)

// Resolver maps change types to emission values. The lookup is read-only and
// shared across workers.
type Resolver struct {
	Lookup stock.TransitionLookup

	// Workers bounds the number of concurrent row blocks. Zero means
	// runtime.NumCPU().
	Workers int
}

// Resolve produces the per-hectare emission raster and the absolute per-cell
// emission raster. Unknown cells stay invalid in both outputs: an unknown is
// missing data, not a zero emission, and must never enter a sum.
func (r Resolver) Resolve(ctx context.Context, changes *raster.ChangeGrid) (perHa, abs *raster.ValueGrid, err error) {
	perHa = raster.NewValueGrid(changes.Width, changes.Height, changes.Meta)
	abs = raster.NewValueGrid(changes.Width, changes.Height, changes.Meta)
	cellArea := changes.Meta.CellAreaHa()

	workers := r.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > changes.Height {
		workers = changes.Height
	}
	if workers < 1 {
		workers = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	block := (changes.Height + workers - 1) / workers
	for start := 0; start < changes.Height; start += block {
		end := start + block
		if end > changes.Height {
			end = changes.Height
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for i := start * changes.Width; i < end*changes.Width; i++ {
				factor, ok := r.Lookup.Factor(changes.Codes[i])
				if !ok {
					continue
				}
				perHa.Values[i] = factor
				perHa.Valid[i] = true
				abs.Values[i] = factor * cellArea
				abs.Valid[i] = true
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	zap.L().Debug("resolved emission rasters",
		zap.String("component", "emission"),
		zap.String("source", string(r.Lookup.Source())),
		zap.Float64("cell_area_ha", cellArea),
	)
	return perHa, abs, nil
}
