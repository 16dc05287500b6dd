package domain

import "fmt"

// Region is a rectangular geographic extent in WGS-84 degrees.
// Immutable once a run starts.
type Region struct {
	Name   string  `json:"name"`
	LonMin float64 `json:"lon_min"`
	LatMin float64 `json:"lat_min"`
	LonMax float64 `json:"lon_max"`
	LatMax float64 `json:"lat_max"`
}

// Validate checks that the extent is non-degenerate on both axes.
func (r Region) Validate() error {
	if r.LonMin >= r.LonMax {
		return &ConfigurationError{Field: "region", Reason: fmt.Sprintf("lon_min (%g) must be < lon_max (%g)", r.LonMin, r.LonMax)}
	}
	if r.LatMin >= r.LatMax {
		return &ConfigurationError{Field: "region", Reason: fmt.Sprintf("lat_min (%g) must be < lat_max (%g)", r.LatMin, r.LatMax)}
	}
	return nil
}

// BBox returns the extent as "lonMin,latMin,lonMax,latMax", the order used
// by the earth-observation gateway query API.
func (r Region) BBox() string {
	return fmt.Sprintf("%g,%g,%g,%g", r.LonMin, r.LatMin, r.LonMax, r.LatMax)
}

// regionCatalog holds the named study regions. Boxes cover the Utah
// geothermal belt and the wider Great Basin.
var regionCatalog = map[string]Region{
	"southern_utah": {Name: "southern_utah", LonMin: -114.0, LatMin: 37.0, LonMax: -111.5, LatMax: 39.0},
	"central_utah":  {Name: "central_utah", LonMin: -114.0, LatMin: 38.5, LonMax: -111.0, LatMax: 40.5},
	"northern_utah": {Name: "northern_utah", LonMin: -113.0, LatMin: 39.5, LonMax: -111.0, LatMax: 42.0},
	"all_utah":      {Name: "all_utah", LonMin: -114.1, LatMin: 36.9, LonMax: -109.0, LatMax: 42.1},
	"great_basin":   {Name: "great_basin", LonMin: -117.0, LatMin: 36.0, LonMax: -113.0, LatMax: 40.0},
}

// RegionByName looks up a named region from the fixed catalog.
func RegionByName(name string) (Region, bool) {
	r, ok := regionCatalog[name]
	return r, ok
}

// RegionNames lists the catalog keys, for error messages and validation.
func RegionNames() []string {
	names := make([]string, 0, len(regionCatalog))
	for name := range regionCatalog {
		names = append(names, name)
	}
	return names
}

// CustomRegion builds a caller-defined region from four bounds.
func CustomRegion(lonMin, latMin, lonMax, latMax float64) Region {
	return Region{Name: "custom", LonMin: lonMin, LatMin: latMin, LonMax: lonMax, LatMax: latMax}
}

// county is a study-county reference point used for coarse locality
// estimates on extracted sites.
type county struct {
	name string
	lat  float64
	lon  float64
}

var studyCounties = []county{
	{name: "Beaver County", lat: 38.276, lon: -112.641},
	{name: "Millard County", lat: 39.000, lon: -113.000},
	{name: "Salt Lake County", lat: 40.760, lon: -111.893},
}

// NearestCounty returns the study county closest to the given coordinate.
// Euclidean distance in degrees is adequate at this scale; the anchors are
// hundreds of kilometers apart.
func NearestCounty(lat, lon float64) string {
	best := studyCounties[0]
	bestDist := squaredDist(lat, lon, best.lat, best.lon)
	for _, c := range studyCounties[1:] {
		if d := squaredDist(lat, lon, c.lat, c.lon); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best.name
}

func squaredDist(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := lat1 - lat2
	dLon := lon1 - lon2
	return dLat*dLat + dLon*dLon
}
