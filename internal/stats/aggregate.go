// Package stats reduces the per-cell rasters of one run into area and
// emission statistics, by change type and in total.
package stats

import (
	"context"
	"encoding/json"
	"runtime"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/terralytics/carbon-cli/internal/lulc"
	"github.com/terralytics/carbon-cli/internal/raster"
)

// Ratio is a share that may be undefined when its denominator is zero.
// Undefined ratios serialize as null rather than 0 or NaN.
type Ratio struct {
	Value float64
	Valid bool
}

func ratio(num, den float64) Ratio {
	if den == 0 {
		return Ratio{}
	}
	return Ratio{Value: num / den, Valid: true}
}

// MarshalJSON emits the value, or null when the ratio is undefined.
func (r Ratio) MarshalJSON() ([]byte, error) {
	if !r.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(r.Value)
}

// UnmarshalJSON accepts null for an undefined ratio.
func (r *Ratio) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = Ratio{}
		return nil
	}
	if err := json.Unmarshal(data, &r.Value); err != nil {
		return err
	}
	r.Valid = true
	return nil
}

// ChangeStat is one row of the per-change-type breakdown.
type ChangeStat struct {
	Change     lulc.ChangeType `json:"change_code"`
	Label      string          `json:"change"`
	Cells      int             `json:"cells"`
	AreaHa     float64         `json:"area_ha"`
	EmissionsT float64         `json:"emissions_t"`
}

// Summary is the full aggregate statistics of one run.
type Summary struct {
	AOIAreaHa  float64 `json:"aoi_area_ha"`
	CellAreaHa float64 `json:"cell_area_ha"`
	TotalCells int     `json:"total_cells"`

	ChangeAreaHa   float64 `json:"change_area_ha"`
	NoChangeAreaHa float64 `json:"no_change_area_ha"`
	UnknownAreaHa  float64 `json:"unknown_area_ha"`

	EmittingAreaHa float64 `json:"emitting_area_ha"`
	SinkAreaHa     float64 `json:"sink_area_ha"`

	GrossEmissionsT float64 `json:"gross_emissions_t"`
	CarbonSinkT     float64 `json:"carbon_sink_t"`
	NetEmissionsT   float64 `json:"net_emissions_t"`

	ChangeShare       Ratio `json:"change_share"`
	UnknownShare      Ratio `json:"unknown_share"`
	EmittingAreaShare Ratio `json:"emitting_area_share"`
	SinkAreaShare     Ratio `json:"sink_area_share"`

	ByChange []ChangeStat `json:"by_change"`
}

// maxChangeCode bounds the dense per-change accumulator arrays.
const maxChangeCode = lulc.NumAccountable*lulc.NumAccountable + 1

// partial is one row block's contribution. Its combine step is commutative
// and associative, so blocks may finish in any order.
type partial struct {
	unknown  int
	noChange int

	cellsByChange [maxChangeCode]int
	sumByChange   [maxChangeCode]kahanSum

	emitting int
	sinking  int
	gross    kahanSum
	negative kahanSum
}

func (p *partial) accumulate(code lulc.ChangeType, value float64, valid bool) {
	switch {
	case code == lulc.ChangeNone:
		p.noChange++
	case code.Realized():
		p.cellsByChange[code]++
		if !valid {
			return
		}
		p.sumByChange[code].Add(value)
		switch {
		case value > 0:
			p.emitting++
			p.gross.Add(value)
		case value < 0:
			p.sinking++
			p.negative.Add(value)
		}
	default:
		p.unknown++
	}
}

func (p *partial) merge(o *partial) {
	p.unknown += o.unknown
	p.noChange += o.noChange
	for i := 1; i < maxChangeCode; i++ {
		p.cellsByChange[i] += o.cellsByChange[i]
		p.sumByChange[i].Merge(o.sumByChange[i])
	}
	p.emitting += o.emitting
	p.sinking += o.sinking
	p.gross.Merge(o.gross)
	p.negative.Merge(o.negative)
}

// Aggregate reduces the change raster and the absolute emission raster into
// a Summary. The reduction runs over row blocks and merges partials in block
// order, so results are deterministic for identical inputs.
func Aggregate(ctx context.Context, changes *raster.ChangeGrid, abs *raster.ValueGrid, aoiAreaHa float64, workers int) (*Summary, error) {
	if err := raster.CheckCoRegistered(changes, abs); err != nil {
		return nil, err
	}

	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > changes.Height {
		workers = changes.Height
	}
	if workers < 1 {
		workers = 1
	}

	block := (changes.Height + workers - 1) / workers
	numBlocks := (changes.Height + block - 1) / block
	partials := make([]partial, numBlocks)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for b := 0; b < numBlocks; b++ {
		start := b * block
		end := start + block
		if end > changes.Height {
			end = changes.Height
		}
		p := &partials[b]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for i := start * changes.Width; i < end*changes.Width; i++ {
				p.accumulate(changes.Codes[i], abs.Values[i], abs.Valid[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := partial{}
	for b := range partials {
		total.merge(&partials[b])
	}

	return summarize(&total, changes, aoiAreaHa), nil
}

func summarize(total *partial, changes *raster.ChangeGrid, aoiAreaHa float64) *Summary {
	cellArea := changes.Meta.CellAreaHa()
	totalCells := changes.Width * changes.Height

	s := &Summary{
		AOIAreaHa:  aoiAreaHa,
		CellAreaHa: cellArea,
		TotalCells: totalCells,
	}

	changedCells := 0
	for _, code := range lulc.RealizedChanges() {
		n := total.cellsByChange[code]
		if n == 0 {
			continue
		}
		changedCells += n
		emissions := total.sumByChange[code].Value()
		s.ByChange = append(s.ByChange, ChangeStat{
			Change:     code,
			Label:      code.String(),
			Cells:      n,
			AreaHa:     float64(n) * cellArea,
			EmissionsT: emissions,
		})
	}
	sort.Slice(s.ByChange, func(i, j int) bool {
		return s.ByChange[i].EmissionsT < s.ByChange[j].EmissionsT
	})

	s.ChangeAreaHa = float64(changedCells) * cellArea
	s.NoChangeAreaHa = float64(total.noChange) * cellArea
	s.UnknownAreaHa = float64(total.unknown) * cellArea
	s.EmittingAreaHa = float64(total.emitting) * cellArea
	s.SinkAreaHa = float64(total.sinking) * cellArea

	s.GrossEmissionsT = total.gross.Value()
	s.CarbonSinkT = -total.negative.Value()
	s.NetEmissionsT = s.GrossEmissionsT - s.CarbonSinkT

	aoiCellsArea := float64(totalCells) * cellArea
	s.ChangeShare = ratio(s.ChangeAreaHa, aoiAreaHa)
	s.UnknownShare = ratio(s.UnknownAreaHa, aoiCellsArea)
	s.EmittingAreaShare = ratio(s.EmittingAreaHa, s.ChangeAreaHa)
	s.SinkAreaShare = ratio(s.SinkAreaHa, s.ChangeAreaHa)

	zap.L().Debug("aggregated run statistics",
		zap.String("component", "stats"),
		zap.Float64("change_area_ha", s.ChangeAreaHa),
		zap.Float64("gross_t", s.GrossEmissionsT),
		zap.Float64("sink_t", s.CarbonSinkT),
		zap.Float64("net_t", s.NetEmissionsT),
	)
	return s
}
