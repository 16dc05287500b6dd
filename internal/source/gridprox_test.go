package source

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ejayaguirre/geopulse/internal/domain"
)

func TestGridProximitySourceFetch(t *testing.T) {
	grid := sourceGrid(2, 2)
	params := sourceParams()

	t.Run("log-transforms population density", func(t *testing.T) {
		catalog := &stubCatalog{raster: domain.Raster{
			Grid:   grid,
			Values: []float64{0, 9, 99, 2500},
		}}
		src := NewGridProximitySource(catalog, testLogger())

		field, err := src.Fetch(context.Background(), grid, params)
		require.NoError(t, err)

		assert.Equal(t, "grid", field.Name)
		assert.InDelta(t, 0, field.Values[0], 1e-9)
		assert.InDelta(t, math.Log(10), field.Values[1], 1e-9)
		assert.InDelta(t, math.Log(100), field.Values[2], 1e-9)
		assert.InDelta(t, math.Log(2501), field.Values[3], 1e-9)
	})

	t.Run("negative and nodata values are masked", func(t *testing.T) {
		catalog := &stubCatalog{raster: domain.Raster{
			Grid:   grid,
			Values: []float64{-1, math.NaN(), 10, 20},
		}}
		src := NewGridProximitySource(catalog, testLogger())

		field, err := src.Fetch(context.Background(), grid, params)
		require.NoError(t, err)

		assert.True(t, math.IsNaN(field.Values[0]))
		assert.True(t, math.IsNaN(field.Values[1]))
		assert.False(t, math.IsNaN(field.Values[2]))
	})

	t.Run("raster on a mismatched grid is rejected", func(t *testing.T) {
		other := sourceGrid(3, 3)
		catalog := &stubCatalog{raster: domain.Raster{
			Grid:   other,
			Values: make([]float64, other.Cells()),
		}}
		src := NewGridProximitySource(catalog, testLogger())

		_, err := src.Fetch(context.Background(), grid, params)
		require.Error(t, err)

		var svcErr *domain.ExternalServiceError
		require.ErrorAs(t, err, &svcErr)
		assert.Equal(t, "population-density", svcErr.Service)
	})

	t.Run("catalog errors propagate", func(t *testing.T) {
		catalog := &stubCatalog{rasterErr: &domain.ExternalServiceError{Service: "imagery-gateway", Err: context.DeadlineExceeded}}
		src := NewGridProximitySource(catalog, testLogger())

		_, err := src.Fetch(context.Background(), grid, params)
		require.Error(t, err)
	})
}
