package scoring

import (
	"math"
	"math/rand"
	"sort"

	"github.com/ejayaguirre/geopulse/internal/domain"
)

// DefaultSeed makes extraction reproducible for identical inputs.
const DefaultSeed = 42

// oversampleFactor bounds how many cells are drawn before truncation, so a
// sparse masked region still yields enough candidates.
const oversampleFactor = 5

// Extract selects up to count candidate sites from the composite field:
// cells strictly above the percentile threshold are sampled reproducibly
// (seeded shuffle, 5x oversample, truncate to count), then sorted by score
// descending and assigned dense ranks starting at 1. An empty result is a
// valid low-confidence outcome, not an error.
func Extract(composite domain.CompositeField, percentile, count int, seed int64) []domain.CandidateSite {
	threshold, ok := percentileValue(composite.Values, percentile)
	if !ok {
		return nil
	}

	var masked []int
	for i, v := range composite.Values {
		if !math.IsNaN(v) && v > threshold {
			masked = append(masked, i)
		}
	}
	if len(masked) == 0 {
		return nil
	}

	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(masked), func(i, j int) {
		masked[i], masked[j] = masked[j], masked[i]
	})

	sampled := masked
	if limit := count * oversampleFactor; len(sampled) > limit {
		sampled = sampled[:limit]
	}
	if len(sampled) > count {
		sampled = sampled[:count]
	}

	sites := make([]domain.CandidateSite, 0, len(sampled))
	for _, cell := range sampled {
		lat, lon := composite.Grid.CellCenter(cell)
		gps := round1(composite.Values[cell])
		sites = append(sites, domain.CandidateSite{
			Lat:            round4(lat),
			Lon:            round4(lon),
			GPS:            gps,
			Tier:           domain.TierForScore(gps),
			CountyEstimate: domain.NearestCounty(lat, lon),
			Note:           domain.SiteNote(gps),
		})
	}

	sort.SliceStable(sites, func(i, j int) bool {
		return sites[i].GPS > sites[j].GPS
	})

	// Ranks are reassigned after sorting, never reused from sampling order.
	for i := range sites {
		sites[i].Rank = i + 1
		sites[i].Name = domain.SiteName(i + 1)
	}
	return sites
}

// percentileValue computes the p-th percentile of the unmasked values by
// linear interpolation between order statistics. Returns false when the
// field has no unmasked values.
func percentileValue(values []float64, p int) (float64, bool) {
	valid := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			valid = append(valid, v)
		}
	}
	if len(valid) == 0 {
		return 0, false
	}
	sort.Float64s(valid)

	if len(valid) == 1 {
		return valid[0], true
	}
	pos := float64(p) / 100 * float64(len(valid)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return valid[lo], true
	}
	frac := pos - float64(lo)
	return valid[lo]*(1-frac) + valid[hi]*frac, true
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
