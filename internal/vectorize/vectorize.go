// Package vectorize extracts contiguous same-change-type regions from the
// change raster as polygons, carrying per-region area and emissions. The
// polygons feed the vector output sink.
package vectorize

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/terralytics/carbon-cli/internal/lulc"
	"github.com/terralytics/carbon-cli/internal/raster"
	"github.com/terralytics/carbon-cli/internal/stock"
)

// Region is one contiguous patch of a single realized change type.
type Region struct {
	Change     lulc.ChangeType
	Cells      int
	AreaHa     float64
	EmissionsT float64
	Geometry   *geom.Polygon
}

// Regions performs 4-connected component labelling over the realized cells
// of the change raster and traces each component's boundary into a polygon
// in the grid's world coordinates. No-change and unknown cells separate
// regions and produce none of their own.
func Regions(changes *raster.ChangeGrid, lookup stock.TransitionLookup) ([]Region, error) {
	w, h := changes.Width, changes.Height
	labels := make([]int, w*h)

	var regions []Region
	next := 0
	stack := make([]int, 0, 64)

	for start, code := range changes.Codes {
		if !code.Realized() || labels[start] != 0 {
			continue
		}
		next++
		labels[start] = next

		cells := []int{}
		stack = append(stack[:0], start)
		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			cells = append(cells, i)

			r := i / w
			for _, n := range [4]int{i - w, i + w, i - 1, i + 1} {
				if n < 0 || n >= w*h {
					continue
				}
				// Horizontal neighbors must stay in the same row.
				if (n == i-1 || n == i+1) && n/w != r {
					continue
				}
				if labels[n] == 0 && changes.Codes[n] == code {
					labels[n] = next
					stack = append(stack, n)
				}
			}
		}

		poly, err := traceBoundary(changes, cells)
		if err != nil {
			return nil, err
		}

		factor, _ := lookup.Factor(code)
		areaHa := float64(len(cells)) * changes.Meta.CellAreaHa()
		regions = append(regions, Region{
			Change:     code,
			Cells:      len(cells),
			AreaHa:     areaHa,
			EmissionsT: factor * areaHa,
			Geometry:   poly,
		})
	}

	zap.L().Debug("vectorized change regions",
		zap.String("component", "vectorize"),
		zap.Int("regions", len(regions)),
	)
	return regions, nil
}

// vertex is a grid corner (col, row).
type vertex struct{ x, y int }

// edge is a directed boundary segment between adjacent grid corners.
type edge struct{ from, to vertex }

// traceBoundary builds the region polygon by collecting the directed
// boundary edges of the cell set and stitching them into closed rings. The
// largest ring is the exterior; the rest are holes.
func traceBoundary(changes *raster.ChangeGrid, cells []int) (*geom.Polygon, error) {
	w := changes.Width
	inRegion := make(map[int]bool, len(cells))
	for _, i := range cells {
		inRegion[i] = true
	}

	var edges []edge
	for _, i := range cells {
		r, c := i/w, i%w
		if !inRegion[i-w] || r == 0 {
			edges = append(edges, edge{vertex{c + 1, r}, vertex{c, r}})
		}
		if !inRegion[i+w] || r == changes.Height-1 {
			edges = append(edges, edge{vertex{c, r + 1}, vertex{c + 1, r + 1}})
		}
		if c == 0 || !inRegion[i-1] {
			edges = append(edges, edge{vertex{c, r}, vertex{c, r + 1}})
		}
		if c == w-1 || !inRegion[i+1] {
			edges = append(edges, edge{vertex{c + 1, r + 1}, vertex{c + 1, r}})
		}
	}

	rings, err := stitchRings(edges)
	if err != nil {
		return nil, err
	}

	// The exterior is the ring with the largest absolute area.
	outer := 0
	best := 0.0
	areas := make([]float64, len(rings))
	for i, ring := range rings {
		areas[i] = math.Abs(ringArea(ring))
		if areas[i] > best {
			best = areas[i]
			outer = i
		}
	}

	poly := geom.NewPolygon(geom.XY)
	if err := poly.Push(ringCoords(changes.Meta, rings[outer])); err != nil {
		return nil, eris.Wrap(err, "vectorize: push exterior ring")
	}
	for i, ring := range rings {
		if i == outer {
			continue
		}
		if err := poly.Push(ringCoords(changes.Meta, ring)); err != nil {
			return nil, eris.Wrap(err, "vectorize: push hole ring")
		}
	}
	return poly, nil
}

// stitchRings chains directed edges into closed rings. Every edge is used
// exactly once. At saddle vertices with two outgoing edges, the sharper left
// turn relative to the incoming direction is preferred, which keeps rings
// from crossing.
func stitchRings(edges []edge) ([][]vertex, error) {
	outgoing := make(map[vertex][]int, len(edges))
	for i, e := range edges {
		outgoing[e.from] = append(outgoing[e.from], i)
	}
	used := make([]bool, len(edges))

	var rings [][]vertex
	for startIdx := range edges {
		if used[startIdx] {
			continue
		}

		ring := []vertex{edges[startIdx].from}
		cur := startIdx
		for {
			used[cur] = true
			ring = append(ring, edges[cur].to)

			if edges[cur].to == edges[startIdx].from {
				break
			}

			nextIdx := -1
			bestTurn := math.Inf(1)
			for _, cand := range outgoing[edges[cur].to] {
				if used[cand] {
					continue
				}
				turn := turnAngle(edges[cur], edges[cand])
				if turn < bestTurn {
					bestTurn = turn
					nextIdx = cand
				}
			}
			if nextIdx < 0 {
				return nil, eris.New("vectorize: open boundary ring")
			}
			cur = nextIdx
		}
		rings = append(rings, ring)
	}
	return rings, nil
}

// turnAngle ranks candidate edges by turn direction; smaller is a sharper
// left turn in grid space.
func turnAngle(in, out edge) float64 {
	dx1 := float64(in.to.x - in.from.x)
	dy1 := float64(in.to.y - in.from.y)
	dx2 := float64(out.to.x - out.from.x)
	dy2 := float64(out.to.y - out.from.y)
	return math.Atan2(dx1*dy2-dy1*dx2, dx1*dx2+dy1*dy2)
}

func ringArea(ring []vertex) float64 {
	sum := 0.0
	for i := 0; i < len(ring)-1; i++ {
		sum += float64(ring[i].x*ring[i+1].y - ring[i+1].x*ring[i].y)
	}
	return sum / 2
}

// ringCoords converts grid-corner vertices to world coordinates.
func ringCoords(meta raster.Meta, ring []vertex) *geom.LinearRing {
	coords := make([]geom.Coord, len(ring))
	for i, v := range ring {
		coords[i] = geom.Coord{
			meta.OriginX + float64(v.x)*meta.ResolutionM,
			meta.OriginY - float64(v.y)*meta.ResolutionM,
		}
	}
	lr := geom.NewLinearRing(geom.XY)
	return lr.MustSetCoords(coords)
}
