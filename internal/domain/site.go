package domain

import "fmt"

// Tier is the qualitative bucket derived from a composite score.
type Tier string

const (
	TierExcellent Tier = "Excellent"
	TierVeryGood  Tier = "Very Good"
	TierGood      Tier = "Good"
	TierModerate  Tier = "Moderate"
)

// TierForScore maps a composite score to its tier via fixed cutoffs.
func TierForScore(score float64) Tier {
	switch {
	case score >= 85:
		return TierExcellent
	case score >= 70:
		return TierVeryGood
	case score >= 60:
		return TierGood
	default:
		return TierModerate
	}
}

// CandidateSite is one ranked candidate location. Created once per
// extraction; read-only thereafter. Coordinates carry four decimals and
// the score one decimal, matching the persisted output precision.
type CandidateSite struct {
	Rank           int     `json:"rank"`
	Name           string  `json:"name"`
	Lat            float64 `json:"lat"`
	Lon            float64 `json:"lon"`
	GPS            float64 `json:"gps"` // Geothermal Potential Score
	Tier           Tier    `json:"tier"`
	CountyEstimate string  `json:"county_estimate"`
	Note           string  `json:"note"`
}

// SiteName returns the canonical display name for a rank.
func SiteName(rank int) string {
	return fmt.Sprintf("Site R-%d", rank)
}

// SiteNote returns the canonical note string carrying the score.
func SiteNote(gps float64) string {
	return fmt.Sprintf("Composite-scored site. GPS: %.1f", gps)
}
