package store

import (
	"encoding/json"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ejayaguirre/geopulse/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, nil))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func testStore(t *testing.T) *OutputStore {
	t.Helper()
	s, err := New(t.TempDir(), testLogger())
	require.NoError(t, err)
	return s
}

func testSites() []domain.CandidateSite {
	return []domain.CandidateSite{
		{
			Rank: 1, Name: "Site R-1",
			Lat: 38.2755, Lon: -112.6412,
			GPS: 87.3, Tier: domain.TierExcellent,
			CountyEstimate: "Beaver County",
			Note:           "Composite-scored site. GPS: 87.3",
		},
		{
			Rank: 2, Name: "Site R-2",
			Lat: 38.9105, Lon: -113.0211,
			GPS: 72.8, Tier: domain.TierVeryGood,
			CountyEstimate: "Millard County",
			Note:           "Composite-scored site. GPS: 72.8",
		},
	}
}

func TestWriteAndLoadSites(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		s := testStore(t)
		require.NoError(t, s.WriteSites(testSites()))

		got, err := s.LoadSites()
		require.NoError(t, err)
		assert.Empty(t, cmp.Diff(testSites(), got))
	})

	t.Run("persisted file is valid geojson", func(t *testing.T) {
		dir := t.TempDir()
		s, err := New(dir, testLogger())
		require.NoError(t, err)
		require.NoError(t, s.WriteSites(testSites()))

		data, err := os.ReadFile(filepath.Join(dir, "scored_sites.geojson"))
		require.NoError(t, err)

		var doc map[string]any
		require.NoError(t, json.Unmarshal(data, &doc))
		assert.Equal(t, "FeatureCollection", doc["type"])
		features, ok := doc["features"].([]any)
		require.True(t, ok)
		assert.Len(t, features, 2)
	})

	t.Run("missing file yields empty list", func(t *testing.T) {
		s := testStore(t)
		got, err := s.LoadSites()
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("empty extraction persists an empty collection", func(t *testing.T) {
		s := testStore(t)
		require.NoError(t, s.WriteSites(nil))

		got, err := s.LoadSites()
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.True(t, s.OutputsReady())
	})

	t.Run("overwrite replaces prior sites", func(t *testing.T) {
		s := testStore(t)
		require.NoError(t, s.WriteSites(testSites()))
		require.NoError(t, s.WriteSites(testSites()[:1]))

		got, err := s.LoadSites()
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})
}

func TestOutputsReady(t *testing.T) {
	s := testStore(t)
	assert.False(t, s.OutputsReady())

	require.NoError(t, s.WriteSites(testSites()))
	assert.True(t, s.OutputsReady())
}

func TestSiteCount(t *testing.T) {
	s := testStore(t)
	assert.Equal(t, 0, s.SiteCount())

	require.NoError(t, s.WriteSites(testSites()))
	assert.Equal(t, 2, s.SiteCount())
}

func TestWriteComposite(t *testing.T) {
	grid := domain.Grid{
		Region: domain.Region{Name: "test", LonMin: -114, LatMin: 37, LonMax: -113, LatMax: 38},
		Width:  2,
		Height: 2,
	}

	readRows := func(t *testing.T, dir string) []compositeRow {
		t.Helper()
		f, err := os.Open(filepath.Join(dir, "composite_field.parquet"))
		require.NoError(t, err)
		defer f.Close()
		info, err := f.Stat()
		require.NoError(t, err)
		rows, err := parquet.Read[compositeRow](f, info.Size())
		require.NoError(t, err)
		return rows
	}

	t.Run("exports every cell with coordinates", func(t *testing.T) {
		dir := t.TempDir()
		s, err := New(dir, testLogger())
		require.NoError(t, err)

		field, err := domain.NewScalarField("GPS", grid, []float64{55.5, 62.0, 48.1, 90.4})
		require.NoError(t, err)
		require.NoError(t, s.WriteComposite(domain.CompositeField{ScalarField: field}))

		rows := readRows(t, dir)
		require.Len(t, rows, 4)
		assert.Equal(t, 55.5, rows[0].GPS)
		assert.InDelta(t, 37.25, rows[0].Lat, 1e-9)
		assert.InDelta(t, -113.75, rows[0].Lon, 1e-9)
		assert.Equal(t, 90.4, rows[3].GPS)
	})

	t.Run("masked cells are omitted", func(t *testing.T) {
		dir := t.TempDir()
		s, err := New(dir, testLogger())
		require.NoError(t, err)

		field, err := domain.NewScalarField("GPS", grid, []float64{55.5, math.NaN(), 48.1, math.NaN()})
		require.NoError(t, err)
		require.NoError(t, s.WriteComposite(domain.CompositeField{ScalarField: field}))

		rows := readRows(t, dir)
		require.Len(t, rows, 2)
		assert.Equal(t, 55.5, rows[0].GPS)
		assert.Equal(t, 48.1, rows[1].GPS)
	})
}

func TestWriteAndLoadLastRun(t *testing.T) {
	region, _ := domain.RegionByName("southern_utah")
	rec := LastRun{
		Parameters: domain.ScoreParameters{
			Region:     region,
			StartDate:  "2023-05-01",
			EndDate:    "2024-09-30",
			CloudCover: 20,
			WeightLST:  0.5,
			WeightGrid: 0.3,
			WeightSVI:  0.2,
			NumSites:   10,
			Percentile: 90,
			LSTMin:     -20,
			LSTMax:     60,
		},
		CompletedAt: time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC),
		SiteCount:   10,
	}

	t.Run("round trip", func(t *testing.T) {
		s := testStore(t)
		require.NoError(t, s.WriteLastRun(rec))

		got, err := s.LoadLastRun()
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Empty(t, cmp.Diff(rec, *got))
	})

	t.Run("missing file yields nil", func(t *testing.T) {
		s := testStore(t)
		got, err := s.LoadLastRun()
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("corrupt file is an error", func(t *testing.T) {
		dir := t.TempDir()
		s, err := New(dir, testLogger())
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "last_run.json"), []byte("{oops"), 0o644))

		_, err = s.LoadLastRun()
		require.Error(t, err)
	})
}

func TestAtomicWriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, testLogger())
	require.NoError(t, err)
	require.NoError(t, s.WriteSites(testSites()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "scored_sites.geojson", entries[0].Name())
}
