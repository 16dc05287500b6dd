// Package store persists and serves run outputs: the scored-sites GeoJSON,
// the composite-field parquet export, and the last-run parameter snapshot.
// All writes go through a temp file and rename so readers never observe a
// partial file, and a failed run never clobbers prior successful outputs.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/ejayaguirre/geopulse/internal/domain"
)

const (
	sitesFile     = "scored_sites.geojson"
	compositeFile = "composite_field.parquet"
	lastRunFile   = "last_run.json"
)

// LastRun is the durable record of the most recent successful run.
type LastRun struct {
	Parameters  domain.ScoreParameters `json:"parameters"`
	CompletedAt time.Time              `json:"completed_at"`
	SiteCount   int                    `json:"site_count"`
}

// OutputStore reads and writes run outputs under one directory.
type OutputStore struct {
	dir    string
	logger *slog.Logger
}

// New creates the output directory if needed and returns the store.
func New(dir string, logger *slog.Logger) (*OutputStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &OutputStore{dir: dir, logger: logger}, nil
}

// WriteSites persists the candidate list as a point FeatureCollection.
func (s *OutputStore) WriteSites(sites []domain.CandidateSite) error {
	fc := geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(sites))}
	for _, site := range sites {
		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry: geom.NewPointFlat(geom.XY, []float64{site.Lon, site.Lat}),
			Properties: map[string]any{
				"rank":            site.Rank,
				"name":            site.Name,
				"gps":             site.GPS,
				"tier":            string(site.Tier),
				"county_estimate": site.CountyEstimate,
				"note":            site.Note,
			},
		})
	}

	data, err := json.MarshalIndent(&fc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal sites geojson: %w", err)
	}
	return s.atomicWrite(sitesFile, data)
}

// LoadSites reads the persisted candidate list. A missing file yields an
// empty list: no run has produced outputs yet.
func (s *OutputStore) LoadSites() ([]domain.CandidateSite, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, sitesFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse sites geojson: %w", err)
	}

	sites := make([]domain.CandidateSite, 0, len(fc.Features))
	for _, f := range fc.Features {
		point, ok := f.Geometry.(*geom.Point)
		if !ok {
			continue
		}
		coords := point.Coords()
		sites = append(sites, domain.CandidateSite{
			Rank:           int(numberProp(f.Properties, "rank")),
			Name:           stringProp(f.Properties, "name"),
			Lon:            coords[0],
			Lat:            coords[1],
			GPS:            numberProp(f.Properties, "gps"),
			Tier:           domain.Tier(stringProp(f.Properties, "tier")),
			CountyEstimate: stringProp(f.Properties, "county_estimate"),
			Note:           stringProp(f.Properties, "note"),
		})
	}
	return sites, nil
}

// OutputsReady reports whether a prior run's site list is on disk.
func (s *OutputStore) OutputsReady() bool {
	_, err := os.Stat(filepath.Join(s.dir, sitesFile))
	return err == nil
}

// SiteCount returns the persisted site count, 0 when unavailable.
func (s *OutputStore) SiteCount() int {
	sites, err := s.LoadSites()
	if err != nil {
		s.logger.Warn("failed to load persisted sites", "error", err)
		return 0
	}
	return len(sites)
}

// compositeRow is the parquet schema of the composite-field export.
type compositeRow struct {
	Lat float64 `parquet:"lat"`
	Lon float64 `parquet:"lon"`
	GPS float64 `parquet:"gps"`
}

// WriteComposite exports every unmasked composite cell for offline analysis
// and mapping.
func (s *OutputStore) WriteComposite(composite domain.CompositeField) error {
	rows := make([]compositeRow, 0, len(composite.Values))
	for i, v := range composite.Values {
		if math.IsNaN(v) {
			continue
		}
		lat, lon := composite.Grid.CellCenter(i)
		rows = append(rows, compositeRow{Lat: lat, Lon: lon, GPS: v})
	}

	tmp, err := os.CreateTemp(s.dir, ".composite-*")
	if err != nil {
		return fmt.Errorf("create temp composite file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := parquet.NewGenericWriter[compositeRow](tmp)
	if _, err := w.Write(rows); err != nil {
		tmp.Close()
		return fmt.Errorf("write composite parquet: %w", err)
	}
	if err := w.Close(); err != nil {
		tmp.Close()
		return fmt.Errorf("close composite parquet: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(s.dir, compositeFile))
}

// WriteLastRun persists the parameter snapshot of a successful run.
// Overwritten atomically on success only.
func (s *OutputStore) WriteLastRun(rec LastRun) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal last run: %w", err)
	}
	return s.atomicWrite(lastRunFile, data)
}

// LoadLastRun reads the persisted snapshot, nil when no run has succeeded.
func (s *OutputStore) LoadLastRun() (*LastRun, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, lastRunFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec LastRun
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse last run: %w", err)
	}
	return &rec, nil
}

func (s *OutputStore) atomicWrite(name string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, "."+name+"-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(s.dir, name))
}

func numberProp(props map[string]any, key string) float64 {
	v, _ := props[key].(float64)
	return v
}

func stringProp(props map[string]any, key string) string {
	v, _ := props[key].(string)
	return v
}
