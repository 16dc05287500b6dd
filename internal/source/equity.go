package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/ejayaguirre/geopulse/internal/domain"
)

// sviProperty is the CDC SVI overall percentile ranking, 0-1 where higher
// means more vulnerable. Negative values are the CDC missing-data sentinel.
const sviProperty = "RPL_THEMES"

// EquitySource produces the social-vulnerability layer from a local CDC SVI
// census-tract GeoJSON file. The layer is optional: when the file is absent
// or unreadable the source degrades to a constant neutral field instead of
// failing the run.
type EquitySource struct {
	path      string
	logger    *slog.Logger
	fallbacks prometheus.Counter
}

// NewEquitySource creates the equity signal source reading tracts from path.
func NewEquitySource(path string, logger *slog.Logger, fallbacks prometheus.Counter) *EquitySource {
	return &EquitySource{path: path, logger: logger, fallbacks: fallbacks}
}

func (s *EquitySource) Name() string { return "equity" }

// tract is one census tract reduced to its bounding box and SVI score.
type tract struct {
	lonMin, latMin, lonMax, latMax float64
	score                          float64 // RPL_THEMES × 100
}

// Fetch rasterizes the tract layer onto the run grid. Each cell takes the
// score of the smallest tract box covering its center, falling back to the
// nearest tract when no box covers it (cells on the region fringe).
func (s *EquitySource) Fetch(_ context.Context, grid domain.Grid, _ domain.ScoreParameters) (domain.ScalarField, error) {
	tracts, err := s.loadTracts()
	if err != nil {
		s.logger.Warn("equity layer unavailable, using neutral field", "path", s.path, "error", err)
		s.fallbacks.Inc()
		return domain.ConstantField(s.Name(), grid, 50), nil
	}
	s.logger.Info("equity tracts loaded", "count", len(tracts), "path", s.path)

	values := make([]float64, grid.Cells())
	for i := range values {
		lat, lon := grid.CellCenter(i)
		values[i] = scoreAt(tracts, lat, lon)
	}
	return domain.NewScalarField(s.Name(), grid, values)
}

func (s *EquitySource) loadTracts() ([]tract, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}

	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse SVI geojson: %w", err)
	}

	tracts := make([]tract, 0, len(fc.Features))
	for _, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		rpl, ok := f.Properties[sviProperty].(float64)
		if !ok || rpl < 0 {
			continue
		}
		b := f.Geometry.Bounds()
		tracts = append(tracts, tract{
			lonMin: b.Min(0), latMin: b.Min(1),
			lonMax: b.Max(0), latMax: b.Max(1),
			score: rpl * 100,
		})
	}
	if len(tracts) == 0 {
		return nil, fmt.Errorf("no tracts with usable %s values", sviProperty)
	}
	return tracts, nil
}

func scoreAt(tracts []tract, lat, lon float64) float64 {
	bestScore := math.NaN()
	bestArea := math.Inf(1)
	for _, t := range tracts {
		if lon < t.lonMin || lon > t.lonMax || lat < t.latMin || lat > t.latMax {
			continue
		}
		if area := (t.lonMax - t.lonMin) * (t.latMax - t.latMin); area < bestArea {
			bestArea, bestScore = area, t.score
		}
	}
	if !math.IsNaN(bestScore) {
		return bestScore
	}

	// No covering tract: take the nearest box center.
	bestDist := math.Inf(1)
	for _, t := range tracts {
		cLat := (t.latMin + t.latMax) / 2
		cLon := (t.lonMin + t.lonMax) / 2
		if d := squaredDist(lat, lon, cLat, cLon); d < bestDist {
			bestDist, bestScore = d, t.score
		}
	}
	return bestScore
}

func squaredDist(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := lat1 - lat2
	dLon := lon1 - lon2
	return dLat*dLat + dLon*dLon
}
