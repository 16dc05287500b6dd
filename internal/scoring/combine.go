package scoring

import (
	"fmt"
	"math"

	"github.com/ejayaguirre/geopulse/internal/domain"
)

// Combine computes the pointwise weighted sum of the thermal, grid, and
// equity layers into the composite GPS field. A cell masked in any input
// layer is masked in the output. There is no renormalization or clamping
// after combination: weights that do not sum to 1 legitimately produce
// composite values outside [0,100].
func Combine(lst, grid, svi domain.NormalizedField, weights domain.Weights) (domain.CompositeField, error) {
	if lst.Grid != grid.Grid || lst.Grid != svi.Grid {
		return domain.CompositeField{}, fmt.Errorf("combine: layer grids differ (%s, %s, %s)", lst.Source, grid.Source, svi.Source)
	}

	values := make([]float64, len(lst.Values))
	minV, maxV := math.NaN(), math.NaN()
	for i := range values {
		v := weights.LST*lst.Values[i] + weights.Grid*grid.Values[i] + weights.SVI*svi.Values[i]
		values[i] = v
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(minV) || v < minV {
			minV = v
		}
		if math.IsNaN(maxV) || v > maxV {
			maxV = v
		}
	}

	return domain.CompositeField{
		ScalarField: domain.ScalarField{
			Name:   "GPS",
			Grid:   lst.Grid,
			Values: values,
			Min:    minV,
			Max:    maxV,
		},
		Weights: weights,
	}, nil
}
