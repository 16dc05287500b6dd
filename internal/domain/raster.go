package domain

import (
	"context"
	"time"
)

// Scene is one satellite acquisition clipped to a region: the two optical
// bands needed for NDVI plus the thermal band, all as raw Collection 2
// digital numbers over the scene's grid.
type Scene struct {
	ID         string
	Acquired   time.Time
	CloudCover float64 // percent, 0-100
	Grid       Grid
	Red        []float64 // SR_B4
	NIR        []float64 // SR_B5
	Thermal    []float64 // ST_B10
}

// Raster is a single-band grid of values (population density).
type Raster struct {
	Grid   Grid
	Values []float64
}

// RasterCatalog is the contract with the remote earth-observation gateway.
// The gateway is an opaque data source: it filters, clips, and grids the
// underlying collections server-side.
type RasterCatalog interface {
	// Scenes returns all acquisitions intersecting the grid's region within
	// the inclusive ISO date window, already filtered to at most maxCloud
	// percent cloud cover and resampled onto the requested grid. An empty
	// slice is a valid response.
	Scenes(ctx context.Context, grid Grid, startDate, endDate string, maxCloud int) ([]Scene, error)

	// PopulationDensity returns the population-density raster resampled
	// onto the requested grid.
	PopulationDensity(ctx context.Context, grid Grid) (Raster, error)
}
