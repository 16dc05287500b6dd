// Package source implements the three signal-source adapters that produce
// the scalar input layers for scoring: thermal (LST), grid proximity, and
// equity (SVI).
package source

import (
	"context"

	"github.com/ejayaguirre/geopulse/internal/domain"
)

// SignalSource produces one scalar signal layer over the run's grid,
// clipped to the grid's region.
type SignalSource interface {
	// Name identifies the layer ("thermal", "grid", "equity").
	Name() string

	// Fetch queries the underlying data source and grids the result.
	Fetch(ctx context.Context, grid domain.Grid, params domain.ScoreParameters) (domain.ScalarField, error)
}
