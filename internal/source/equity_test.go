package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ejayaguirre/geopulse/internal/domain"
)

func equityGrid() domain.Grid {
	return domain.Grid{
		Region: domain.Region{Name: "test", LonMin: -114, LatMin: 37, LonMax: -113, LatMax: 38},
		Width:  2,
		Height: 2,
	}
}

func TestEquitySourceFetch(t *testing.T) {
	params := sourceParams()

	t.Run("rasterizes tract scores onto the grid", func(t *testing.T) {
		fallbacks := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_equity_fallbacks"})
		src := NewEquitySource(filepath.Join("testdata", "svi_tracts.geojson"), testLogger(), fallbacks)

		field, err := src.Fetch(context.Background(), equityGrid(), params)
		require.NoError(t, err)

		assert.Equal(t, "equity", field.Name)
		require.Len(t, field.Values, 4)
		// SW and SE cells fall inside their small tracts, which win over the
		// region-wide tract by area. The northern cells only match the wide one.
		assert.Equal(t, 80.0, field.Values[0])
		assert.Equal(t, 20.0, field.Values[1])
		assert.Equal(t, 50.0, field.Values[2])
		assert.Equal(t, 50.0, field.Values[3])
		assert.Equal(t, 0.0, testutil.ToFloat64(fallbacks))
	})

	t.Run("cells outside all tracts take the nearest tract", func(t *testing.T) {
		fallbacks := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_equity_fallbacks"})
		src := NewEquitySource(filepath.Join("testdata", "svi_tracts.geojson"), testLogger(), fallbacks)

		north := domain.Grid{
			Region: domain.Region{Name: "test", LonMin: -114, LatMin: 38, LonMax: -113, LatMax: 39},
			Width:  1,
			Height: 1,
		}
		field, err := src.Fetch(context.Background(), north, params)
		require.NoError(t, err)

		// The single cell sits north of every tract; the region-wide tract
		// has the closest box center.
		require.Len(t, field.Values, 1)
		assert.Equal(t, 50.0, field.Values[0])
	})

	t.Run("missing file degrades to the neutral field", func(t *testing.T) {
		fallbacks := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_equity_fallbacks"})
		src := NewEquitySource(filepath.Join("testdata", "nope.geojson"), testLogger(), fallbacks)

		field, err := src.Fetch(context.Background(), equityGrid(), params)
		require.NoError(t, err)

		for _, v := range field.Values {
			assert.Equal(t, 50.0, v)
		}
		assert.Equal(t, 1.0, testutil.ToFloat64(fallbacks))
	})

	t.Run("malformed file degrades to the neutral field", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "broken.geojson")
		require.NoError(t, os.WriteFile(path, []byte("{not geojson"), 0o644))

		fallbacks := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_equity_fallbacks"})
		src := NewEquitySource(path, testLogger(), fallbacks)

		field, err := src.Fetch(context.Background(), equityGrid(), params)
		require.NoError(t, err)

		for _, v := range field.Values {
			assert.Equal(t, 50.0, v)
		}
		assert.Equal(t, 1.0, testutil.ToFloat64(fallbacks))
	})

	t.Run("file with only sentinel tracts degrades", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "sentinels.geojson")
		payload := `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{"RPL_THEMES":-999},"geometry":{"type":"Polygon","coordinates":[[[-114,37],[-113,37],[-113,38],[-114,38],[-114,37]]]}}]}`
		require.NoError(t, os.WriteFile(path, []byte(payload), 0o644))

		fallbacks := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_equity_fallbacks"})
		src := NewEquitySource(path, testLogger(), fallbacks)

		field, err := src.Fetch(context.Background(), equityGrid(), params)
		require.NoError(t, err)

		for _, v := range field.Values {
			assert.Equal(t, 50.0, v)
		}
		assert.Equal(t, 1.0, testutil.ToFloat64(fallbacks))
	})
}
