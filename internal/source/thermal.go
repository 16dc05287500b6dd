package source

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/ejayaguirre/geopulse/internal/domain"
)

// Landsat Collection 2 Level 2 scale factors and single-channel constants.
const (
	opticalScale  = 0.0000275
	opticalOffset = -0.2
	thermalScale  = 0.00341803
	thermalOffset = 149.0 // Kelvin

	bandWavelength = 10.895  // µm, Band 10 central wavelength
	planckRho      = 14388.0 // µm·K
	kelvinOffset   = 273.15
)

// ThermalSource derives a land surface temperature field from Landsat
// scenes supplied by the raster catalog. Zero usable scenes is fatal: a
// default must never silently stand in for missing thermal signal.
type ThermalSource struct {
	catalog domain.RasterCatalog
	logger  *slog.Logger
}

// NewThermalSource creates the LST signal source.
func NewThermalSource(catalog domain.RasterCatalog, logger *slog.Logger) *ThermalSource {
	return &ThermalSource{catalog: catalog, logger: logger}
}

func (s *ThermalSource) Name() string { return "thermal" }

// Fetch computes per-scene LST, median-composites across scenes, and masks
// cells outside the acceptable temperature band.
func (s *ThermalSource) Fetch(ctx context.Context, grid domain.Grid, params domain.ScoreParameters) (domain.ScalarField, error) {
	scenes, err := s.catalog.Scenes(ctx, grid, params.StartDate, params.EndDate, params.CloudCover)
	if err != nil {
		return domain.ScalarField{}, err
	}

	usable := scenes[:0]
	for _, scene := range scenes {
		if scene.Grid != grid {
			s.logger.Warn("skipping scene on mismatched grid", "scene_id", scene.ID)
			continue
		}
		usable = append(usable, scene)
	}
	if len(usable) == 0 {
		return domain.ScalarField{}, &domain.NoDataError{
			Source: s.Name(),
			Detail: fmt.Sprintf("no scenes for %s between %s and %s under %d%% cloud cover",
				grid.Region.Name, params.StartDate, params.EndDate, params.CloudCover),
		}
	}
	s.logger.Info("thermal scenes fetched", "count", len(usable), "region", grid.Region.Name)

	perScene := make([][]float64, len(usable))
	for i, scene := range usable {
		perScene[i] = sceneLST(scene)
	}

	values := make([]float64, grid.Cells())
	samples := make([]float64, 0, len(usable))
	for cell := range values {
		samples = samples[:0]
		for _, lst := range perScene {
			if v := lst[cell]; !math.IsNaN(v) {
				samples = append(samples, v)
			}
		}
		v := median(samples)
		if v < params.LSTMin || v > params.LSTMax {
			v = math.NaN() // non-physical: cloud shadow, water, sensor noise
		}
		values[cell] = v
	}

	return domain.NewScalarField(s.Name(), grid, values)
}

// sceneLST converts one scene's raw digital numbers to Celsius LST via
// NDVI, Sobrino emissivity, and the single-channel inversion.
func sceneLST(scene domain.Scene) []float64 {
	values := make([]float64, scene.Grid.Cells())
	for i := range values {
		red := scene.Red[i]*opticalScale + opticalOffset
		nir := scene.NIR[i]*opticalScale + opticalOffset
		tb := scene.Thermal[i]*thermalScale + thermalOffset

		if math.IsNaN(red) || math.IsNaN(nir) || math.IsNaN(tb) || nir+red == 0 {
			values[i] = math.NaN()
			continue
		}

		ndvi := (nir - red) / (nir + red)
		eps := emissivity(ndvi)
		values[i] = tb/(1+(bandWavelength*tb/planckRho)*math.Log(eps)) - kelvinOffset
	}
	return values
}

// emissivity estimates surface emissivity from NDVI with the three-branch
// Sobrino et al. (2004) rule: bare soil below 0.2, dense vegetation above
// 0.5, fractional-vegetation interpolation in between.
func emissivity(ndvi float64) float64 {
	switch {
	case ndvi < 0.2:
		return 0.979
	case ndvi > 0.5:
		return 0.986
	default:
		fv := (ndvi - 0.2) / 0.3
		return 0.977 + 0.119*fv*fv
	}
}

// median returns the middle of the samples, or NaN for an empty set.
// Mutates the slice order.
func median(samples []float64) float64 {
	if len(samples) == 0 {
		return math.NaN()
	}
	sort.Float64s(samples)
	mid := len(samples) / 2
	if len(samples)%2 == 1 {
		return samples[mid]
	}
	return (samples[mid-1] + samples[mid]) / 2
}
