package domain

import (
	"fmt"
	"math"
)

// Grid divides a region into Width×Height equal cells. Field values are
// stored row-major (index = y*Width + x) with y increasing northward.
type Grid struct {
	Region Region `json:"region"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Cells returns the total cell count.
func (g Grid) Cells() int { return g.Width * g.Height }

// GridForRegion divides a region into square-ish cells of roughly
// cellSizeDeg degrees per side. Every signal layer of a run is produced on
// this one grid so fields combine pointwise.
func GridForRegion(region Region, cellSizeDeg float64) Grid {
	width := int(math.Round((region.LonMax - region.LonMin) / cellSizeDeg))
	height := int(math.Round((region.LatMax - region.LatMin) / cellSizeDeg))
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	return Grid{Region: region, Width: width, Height: height}
}

// CellCenter returns the latitude and longitude of the center of cell i.
func (g Grid) CellCenter(i int) (lat, lon float64) {
	x := i % g.Width
	y := i / g.Width
	lon = g.Region.LonMin + (float64(x)+0.5)*(g.Region.LonMax-g.Region.LonMin)/float64(g.Width)
	lat = g.Region.LatMin + (float64(y)+0.5)*(g.Region.LatMax-g.Region.LatMin)/float64(g.Height)
	return lat, lon
}

// ScalarField is a named, region-clipped mapping from grid cell to value,
// plus the observed value range. NaN marks masked cells. Not mutated after
// creation.
type ScalarField struct {
	Name   string
	Grid   Grid
	Values []float64
	Min    float64 // observed over unmasked cells
	Max    float64
}

// NewScalarField builds a field over grid, computing the observed range.
// Fully-masked fields are permitted; Min and Max are then NaN and callers
// that require observations must check ValidCells.
func NewScalarField(name string, grid Grid, values []float64) (ScalarField, error) {
	if len(values) != grid.Cells() {
		return ScalarField{}, fmt.Errorf("field %s: %d values for %d-cell grid", name, len(values), grid.Cells())
	}
	minV, maxV := math.NaN(), math.NaN()
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(minV) || v < minV {
			minV = v
		}
		if math.IsNaN(maxV) || v > maxV {
			maxV = v
		}
	}
	return ScalarField{Name: name, Grid: grid, Values: values, Min: minV, Max: maxV}, nil
}

// ConstantField builds a field with the same value everywhere, used for the
// neutral equity fallback and for degenerate-range normalization.
func ConstantField(name string, grid Grid, value float64) ScalarField {
	values := make([]float64, grid.Cells())
	for i := range values {
		values[i] = value
	}
	return ScalarField{Name: name, Grid: grid, Values: values, Min: value, Max: value}
}

// ValidCells counts unmasked cells.
func (f ScalarField) ValidCells() int {
	n := 0
	for _, v := range f.Values {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

// Degenerate reports whether the field has zero dynamic range, including
// the fully-masked case.
func (f ScalarField) Degenerate() bool {
	return math.IsNaN(f.Min) || math.IsNaN(f.Max) || f.Min == f.Max
}

// NormalizedField is a ScalarField rescaled to [0,100], tagged with the
// signal source that produced it.
type NormalizedField struct {
	ScalarField
	Source string
}

// Weights holds the three layer weights of a composite score.
type Weights struct {
	LST  float64 `json:"weight_lst"`
	Grid float64 `json:"weight_grid"`
	SVI  float64 `json:"weight_svi"`
}

// CompositeField is the weighted sum of the normalized layers. It carries
// the weights used; values are never clamped after combination.
type CompositeField struct {
	ScalarField
	Weights Weights
}
