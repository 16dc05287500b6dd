// Package domain models the GeoPulse geothermal site-scoring data.
//
// # Signal layers
//
// Three signal layers feed the composite score, each produced as a
// [ScalarField] over a shared grid covering the study region:
//
//	thermal  — land surface temperature (LST) derived from Landsat
//	           Collection 2 Level 2 scenes fetched from the remote
//	           earth-observation gateway.
//	grid     — transmission-grid proximity proxied by population density
//	           (denser areas are closer to existing grid infrastructure),
//	           log-transformed to compress the urban/rural spread.
//	equity   — CDC Social Vulnerability Index (SVI) by census tract,
//	           read from a local GeoJSON layer. Optional: when absent the
//	           run degrades to a neutral constant field.
//
// # Landsat conventions
//
// Collection 2 Level 2 digital numbers are scaled before use:
//
//	optical bands (SR_B4, SR_B5): value*0.0000275 - 0.2
//	thermal band (ST_B10):        value*0.00341803 + 149.0  (Kelvin)
//
// NDVI = (NIR - Red) / (NIR + Red). Emissivity follows the Sobrino et al.
// (2004) NDVI-threshold method:
//
//	NDVI < 0.2          bare soil, ε = 0.979
//	NDVI > 0.5          vegetated, ε = 0.986
//	0.2 ≤ NDVI ≤ 0.5    ε = 0.977 + 0.119·Fv, Fv = ((NDVI-0.2)/0.3)²
//
// LST comes from the single-channel inversion
//
//	LST = TB / (1 + (λ·TB/ρ)·ln ε) − 273.15
//
// with λ = 10.895 µm (Band 10 central wavelength) and ρ = 14388 µm·K.
// Cells outside the configured acceptable LST band are masked as
// non-physical (cloud shadow, water, sensor noise).
//
// # Composite score
//
// The Geothermal Potential Score (GPS) is a weighted sum of the three
// normalized layers. Weights are recommended to sum to 1.0 but not forced
// to: composite values are deliberately never clamped or renormalized, so
// weight triples that do not sum to 1 can push scores outside [0,100].
// Downstream tier thresholds assume the recommended weighting.
//
// # Tiers
//
//	GPS ≥ 85   Excellent
//	GPS ≥ 70   Very Good
//	GPS ≥ 60   Good
//	otherwise  Moderate
//
// # Study regions
//
// Named regions map to fixed bounding boxes over Utah and the Great Basin;
// a "custom" region takes caller-supplied bounds. Each candidate site is
// tagged with the nearest study county (Beaver, Millard, Salt Lake) as a
// coarse locality estimate.
package domain
