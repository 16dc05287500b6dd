package domain

import (
	"fmt"
	"time"
)

// DateLayout is the ISO date format used by the run-parameters surface.
const DateLayout = "2006-01-02"

// ScoreParameters is the immutable parameter snapshot of one scoring run.
// The snapshot of the most recent successful run is persisted.
type ScoreParameters struct {
	Region     Region  `json:"region"`
	StartDate  string  `json:"start_date"` // ISO date, inclusive
	EndDate    string  `json:"end_date"`   // ISO date, inclusive
	CloudCover int     `json:"cloud_cover"`
	WeightLST  float64 `json:"weight_lst"`
	WeightGrid float64 `json:"weight_grid"`
	WeightSVI  float64 `json:"weight_svi"`
	NumSites   int     `json:"num_sites"`
	Percentile int     `json:"percentile"`
	LSTMin     float64 `json:"lst_min"` // °C, acceptable LST band
	LSTMax     float64 `json:"lst_max"`
}

// Weights returns the layer weight triple.
func (p ScoreParameters) Weights() Weights {
	return Weights{LST: p.WeightLST, Grid: p.WeightGrid, SVI: p.WeightSVI}
}

// Validate checks every field, returning a ConfigurationError on the first
// violation. Weights are recommended to sum to 1.0 but only non-negativity
// is enforced.
func (p ScoreParameters) Validate() error {
	if err := p.Region.Validate(); err != nil {
		return err
	}
	start, err := time.Parse(DateLayout, p.StartDate)
	if err != nil {
		return &ConfigurationError{Field: "start_date", Reason: fmt.Sprintf("%q is not an ISO date", p.StartDate)}
	}
	end, err := time.Parse(DateLayout, p.EndDate)
	if err != nil {
		return &ConfigurationError{Field: "end_date", Reason: fmt.Sprintf("%q is not an ISO date", p.EndDate)}
	}
	if end.Before(start) {
		return &ConfigurationError{Field: "end_date", Reason: "end_date is before start_date"}
	}
	if p.CloudCover < 0 || p.CloudCover > 100 {
		return &ConfigurationError{Field: "cloud_cover", Reason: fmt.Sprintf("%d is outside 0-100", p.CloudCover)}
	}
	for _, w := range []struct {
		name  string
		value float64
	}{
		{"weight_lst", p.WeightLST},
		{"weight_grid", p.WeightGrid},
		{"weight_svi", p.WeightSVI},
	} {
		if w.value < 0 {
			return &ConfigurationError{Field: w.name, Reason: fmt.Sprintf("%g is negative", w.value)}
		}
	}
	if p.NumSites < 1 {
		return &ConfigurationError{Field: "num_sites", Reason: fmt.Sprintf("%d must be at least 1", p.NumSites)}
	}
	if p.Percentile < 0 || p.Percentile > 100 {
		return &ConfigurationError{Field: "percentile", Reason: fmt.Sprintf("%d is outside 0-100", p.Percentile)}
	}
	if p.LSTMin > p.LSTMax {
		return &ConfigurationError{Field: "lst_min", Reason: fmt.Sprintf("%g exceeds lst_max %g", p.LSTMin, p.LSTMax)}
	}
	return nil
}

// ParameterOverrides is the optional partial payload accepted by the
// run-trigger surface. Nil fields keep the configured default. Untyped
// external JSON is converted here, at the boundary, into the typed model.
type ParameterOverrides struct {
	Region     *string  `json:"region,omitempty"`
	LonMin     *float64 `json:"lon_min,omitempty"`
	LatMin     *float64 `json:"lat_min,omitempty"`
	LonMax     *float64 `json:"lon_max,omitempty"`
	LatMax     *float64 `json:"lat_max,omitempty"`
	StartDate  *string  `json:"start_date,omitempty"`
	EndDate    *string  `json:"end_date,omitempty"`
	CloudCover *int     `json:"cloud_cover,omitempty"`
	WeightLST  *float64 `json:"weight_lst,omitempty"`
	WeightGrid *float64 `json:"weight_grid,omitempty"`
	WeightSVI  *float64 `json:"weight_svi,omitempty"`
	NumSites   *int     `json:"num_sites,omitempty"`
	Percentile *int     `json:"percentile,omitempty"`
	LSTMin     *float64 `json:"lst_min,omitempty"`
	LSTMax     *float64 `json:"lst_max,omitempty"`
}

// Apply overlays the overrides on base and validates the result. A region
// override of "custom" takes its bounds from the four bound overrides,
// falling back to the base region's bounds where unset.
func (o ParameterOverrides) Apply(base ScoreParameters) (ScoreParameters, error) {
	p := base

	if o.Region != nil {
		if *o.Region == "custom" {
			bounds := base.Region
			if o.LonMin != nil {
				bounds.LonMin = *o.LonMin
			}
			if o.LatMin != nil {
				bounds.LatMin = *o.LatMin
			}
			if o.LonMax != nil {
				bounds.LonMax = *o.LonMax
			}
			if o.LatMax != nil {
				bounds.LatMax = *o.LatMax
			}
			p.Region = CustomRegion(bounds.LonMin, bounds.LatMin, bounds.LonMax, bounds.LatMax)
		} else {
			r, ok := RegionByName(*o.Region)
			if !ok {
				return ScoreParameters{}, &ConfigurationError{Field: "region", Reason: fmt.Sprintf("unknown region %q", *o.Region)}
			}
			p.Region = r
		}
	}

	if o.StartDate != nil {
		p.StartDate = *o.StartDate
	}
	if o.EndDate != nil {
		p.EndDate = *o.EndDate
	}
	if o.CloudCover != nil {
		p.CloudCover = *o.CloudCover
	}
	if o.WeightLST != nil {
		p.WeightLST = *o.WeightLST
	}
	if o.WeightGrid != nil {
		p.WeightGrid = *o.WeightGrid
	}
	if o.WeightSVI != nil {
		p.WeightSVI = *o.WeightSVI
	}
	if o.NumSites != nil {
		p.NumSites = *o.NumSites
	}
	if o.Percentile != nil {
		p.Percentile = *o.Percentile
	}
	if o.LSTMin != nil {
		p.LSTMin = *o.LSTMin
	}
	if o.LSTMax != nil {
		p.LSTMax = *o.LSTMax
	}

	if err := p.Validate(); err != nil {
		return ScoreParameters{}, err
	}
	return p, nil
}
