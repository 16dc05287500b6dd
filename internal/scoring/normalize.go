// Package scoring implements the GeoPulse scoring engine: per-layer
// normalization, weighted composition, and percentile-based candidate site
// extraction.
package scoring

import (
	"math"

	"github.com/ejayaguirre/geopulse/internal/domain"
)

// neutralScore is the midpoint value substituted when a layer carries no
// usable signal (degenerate range or missing optional data).
const neutralScore = 50.0

// Normalize rescales a scalar field to [0,100]: the observed minimum maps
// to 0 and the maximum to 100. Masked cells stay masked. A degenerate
// field (zero dynamic range, including fully masked) normalizes to a
// constant neutral field rather than dividing by zero.
func Normalize(field domain.ScalarField) domain.NormalizedField {
	if field.Degenerate() {
		return domain.NormalizedField{
			ScalarField: domain.ConstantField(field.Name+"_score", field.Grid, neutralScore),
			Source:      field.Name,
		}
	}

	span := field.Max - field.Min
	values := make([]float64, len(field.Values))
	for i, v := range field.Values {
		if math.IsNaN(v) {
			values[i] = v
			continue
		}
		values[i] = (v - field.Min) / span * 100
	}

	return domain.NormalizedField{
		ScalarField: domain.ScalarField{
			Name:   field.Name + "_score",
			Grid:   field.Grid,
			Values: values,
			Min:    0,
			Max:    100,
		},
		Source: field.Name,
	}
}
