// Package raster holds the in-memory grid types the pipeline operates on.
// All grids of one run are co-registered: same width, height, origin and
// resolution. Grids are row-major and never mutated after construction.
package raster

import (
	"github.com/rotisserie/eris"

	"github.com/terralytics/carbon-cli/internal/lulc"
)

// ErrShapeMismatch is returned when input rasters are not co-registered.
// It is raised before any per-cell work begins.
var ErrShapeMismatch = eris.New("raster: grids are not co-registered")

// Meta describes the georeferencing of a grid: the upper-left corner in the
// grid's CRS and the edge length of a square cell in meters.
type Meta struct {
	OriginX     float64
	OriginY     float64
	ResolutionM float64
}

// CellAreaHa returns the ground area of one cell in hectares.
func (m Meta) CellAreaHa() float64 {
	return m.ResolutionM * m.ResolutionM / 10000.0
}

// Equal reports whether two grids share origin and resolution.
func (m Meta) Equal(o Meta) bool {
	return m.OriginX == o.OriginX && m.OriginY == o.OriginY && m.ResolutionM == o.ResolutionM
}

// ClassGrid is a grid of LULC class codes.
type ClassGrid struct {
	Width  int
	Height int
	Meta   Meta
	Cells  []lulc.Class
}

// NewClassGrid allocates a class grid filled with lulc.ClassUnknown.
func NewClassGrid(width, height int, meta Meta) *ClassGrid {
	return &ClassGrid{
		Width:  width,
		Height: height,
		Meta:   meta,
		Cells:  make([]lulc.Class, width*height),
	}
}

// At returns the class at (row, col).
func (g *ClassGrid) At(row, col int) lulc.Class {
	return g.Cells[row*g.Width+col]
}

// ConfGrid is a grid of per-cell classification confidence in [0,1].
type ConfGrid struct {
	Width  int
	Height int
	Values []float64
}

// ChangeGrid is a grid of change-type codes, derived once per run.
type ChangeGrid struct {
	Width  int
	Height int
	Meta   Meta
	Codes  []lulc.ChangeType
}

// At returns the change type at (row, col).
func (g *ChangeGrid) At(row, col int) lulc.ChangeType {
	return g.Codes[row*g.Width+col]
}

// ValueGrid is a grid of signed float values with a parallel validity mask.
// Cells with Valid[i] == false carry no data; their Values entry is
// meaningless and must never enter an aggregation.
type ValueGrid struct {
	Width  int
	Height int
	Meta   Meta
	Values []float64
	Valid  []bool
}

// NewValueGrid allocates an all-invalid value grid.
func NewValueGrid(width, height int, meta Meta) *ValueGrid {
	n := width * height
	return &ValueGrid{
		Width:  width,
		Height: height,
		Meta:   meta,
		Values: make([]float64, n),
		Valid:  make([]bool, n),
	}
}

// sized is anything with a raster shape.
type sized interface {
	shape() (w, h int)
}

func (g *ClassGrid) shape() (int, int)  { return g.Width, g.Height }
func (g *ConfGrid) shape() (int, int)   { return g.Width, g.Height }
func (g *ChangeGrid) shape() (int, int) { return g.Width, g.Height }
func (g *ValueGrid) shape() (int, int)  { return g.Width, g.Height }

// CheckCoRegistered verifies that all grids share the shape of the first.
func CheckCoRegistered(grids ...sized) error {
	if len(grids) < 2 {
		return nil
	}
	w0, h0 := grids[0].shape()
	for _, g := range grids[1:] {
		w, h := g.shape()
		if w != w0 || h != h0 {
			return eris.Wrapf(ErrShapeMismatch, "want %dx%d, got %dx%d", w0, h0, w, h)
		}
	}
	return nil
}
