package source

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/ejayaguirre/geopulse/internal/domain"
)

// GridProximitySource scores closeness to existing transmission
// infrastructure, proxied by population density: denser areas sit nearer
// the grid, so connection cost is lower. The raw density is
// log-transformed to keep a handful of urban cells from flattening the
// rest of the region.
type GridProximitySource struct {
	catalog domain.RasterCatalog
	logger  *slog.Logger
}

// NewGridProximitySource creates the grid-proximity signal source.
func NewGridProximitySource(catalog domain.RasterCatalog, logger *slog.Logger) *GridProximitySource {
	return &GridProximitySource{catalog: catalog, logger: logger}
}

func (s *GridProximitySource) Name() string { return "grid" }

// Fetch retrieves the population-density raster and applies ln(v+1).
func (s *GridProximitySource) Fetch(ctx context.Context, grid domain.Grid, _ domain.ScoreParameters) (domain.ScalarField, error) {
	raster, err := s.catalog.PopulationDensity(ctx, grid)
	if err != nil {
		return domain.ScalarField{}, err
	}
	if raster.Grid != grid {
		return domain.ScalarField{}, &domain.ExternalServiceError{
			Service: "population-density",
			Err:     fmt.Errorf("raster grid %dx%d does not match run grid %dx%d", raster.Grid.Width, raster.Grid.Height, grid.Width, grid.Height),
		}
	}

	values := make([]float64, grid.Cells())
	for i, v := range raster.Values {
		if math.IsNaN(v) || v < 0 {
			values[i] = math.NaN()
			continue
		}
		values[i] = math.Log1p(v)
	}

	s.logger.Info("grid proximity raster fetched", "region", grid.Region.Name)
	return domain.NewScalarField(s.Name(), grid, values)
}
