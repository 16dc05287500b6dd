// Package config loads and validates service settings from environment
// variables. Every default a run falls back to is declared here, once, and
// validated before the state machine ever starts.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ejayaguirre/geopulse/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	OutputDir string
	SVIPath   string

	// Earth-observation gateway.
	GatewayBaseURL   string
	GatewayToken     string
	GatewayTimeout   time.Duration
	GatewayCacheSize int

	// Pipeline execution.
	RunTimeout     time.Duration
	GridCellDeg    float64
	ExtractionSeed int64

	// Run-event publishing (disabled when no brokers are configured).
	KafkaBrokers  []string
	KafkaRunTopic string
	KafkaEnabled  bool

	// Default score parameters, overridable per run request.
	Defaults domain.ScoreParameters
}

// Load reads configuration from environment variables, applying defaults
// where unset. Malformed values are rejected here, before any run starts.
func Load() (*Config, error) {
	shutdownTimeout, err := envDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	gatewayTimeout, err := envDuration("GATEWAY_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, err
	}
	runTimeout, err := envDuration("RUN_TIMEOUT", 10*time.Minute)
	if err != nil {
		return nil, err
	}
	cacheSize, err := envInt("GATEWAY_CACHE_SIZE", 100)
	if err != nil {
		return nil, err
	}
	cellDeg, err := envFloat("GRID_CELL_DEG", 0.01)
	if err != nil {
		return nil, err
	}
	if cellDeg <= 0 {
		return nil, &domain.ConfigurationError{Field: "GRID_CELL_DEG", Reason: "must be positive"}
	}
	seed, err := envInt("EXTRACTION_SEED", 42)
	if err != nil {
		return nil, err
	}

	defaults, err := loadDefaults()
	if err != nil {
		return nil, err
	}

	brokers := parseBrokers(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled, err := envBool("KAFKA_ENABLED", len(brokers) > 0)
	if err != nil {
		return nil, err
	}
	if kafkaEnabled && len(brokers) == 0 {
		return nil, &domain.ConfigurationError{Field: "KAFKA_BROKERS", Reason: "required when KAFKA_ENABLED is true"}
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		OutputDir: envOrDefault("OUTPUT_DIR", "outputs"),
		SVIPath:   envOrDefault("SVI_PATH", "data/svi_utah/tracts.geojson"),

		GatewayBaseURL:   envOrDefault("GATEWAY_URL", "http://localhost:8081"),
		GatewayToken:     os.Getenv("GATEWAY_TOKEN"),
		GatewayTimeout:   gatewayTimeout,
		GatewayCacheSize: cacheSize,

		RunTimeout:     runTimeout,
		GridCellDeg:    cellDeg,
		ExtractionSeed: int64(seed),

		KafkaBrokers:  brokers,
		KafkaRunTopic: envOrDefault("KAFKA_RUN_TOPIC", "geopulse-run-events"),
		KafkaEnabled:  kafkaEnabled,

		Defaults: defaults,
	}
	return cfg, nil
}

// loadDefaults builds the default ScoreParameters from the environment and
// validates them as a whole.
func loadDefaults() (domain.ScoreParameters, error) {
	region, err := loadRegion()
	if err != nil {
		return domain.ScoreParameters{}, err
	}

	cloudCover, err := envInt("CLOUD_COVER", 20)
	if err != nil {
		return domain.ScoreParameters{}, err
	}
	weightLST, err := envFloat("WEIGHT_LST", 0.5)
	if err != nil {
		return domain.ScoreParameters{}, err
	}
	weightGrid, err := envFloat("WEIGHT_GRID", 0.3)
	if err != nil {
		return domain.ScoreParameters{}, err
	}
	weightSVI, err := envFloat("WEIGHT_SVI", 0.2)
	if err != nil {
		return domain.ScoreParameters{}, err
	}
	numSites, err := envInt("NUM_SITES", 10)
	if err != nil {
		return domain.ScoreParameters{}, err
	}
	percentile, err := envInt("PERCENTILE", 90)
	if err != nil {
		return domain.ScoreParameters{}, err
	}
	lstMin, err := envFloat("LST_MIN", -20)
	if err != nil {
		return domain.ScoreParameters{}, err
	}
	lstMax, err := envFloat("LST_MAX", 60)
	if err != nil {
		return domain.ScoreParameters{}, err
	}

	params := domain.ScoreParameters{
		Region:     region,
		StartDate:  envOrDefault("START_DATE", "2023-05-01"),
		EndDate:    envOrDefault("END_DATE", "2024-09-30"),
		CloudCover: cloudCover,
		WeightLST:  weightLST,
		WeightGrid: weightGrid,
		WeightSVI:  weightSVI,
		NumSites:   numSites,
		Percentile: percentile,
		LSTMin:     lstMin,
		LSTMax:     lstMax,
	}
	if err := params.Validate(); err != nil {
		return domain.ScoreParameters{}, err
	}
	return params, nil
}

// loadRegion resolves REGION against the catalog, or builds a custom region
// from the four CUSTOM_* bounds.
func loadRegion() (domain.Region, error) {
	name := envOrDefault("REGION", "southern_utah")
	if name != "custom" {
		region, ok := domain.RegionByName(name)
		if !ok {
			return domain.Region{}, &domain.ConfigurationError{
				Field:  "REGION",
				Reason: fmt.Sprintf("unknown region %q, expected one of %s or custom", name, strings.Join(domain.RegionNames(), ", ")),
			}
		}
		return region, nil
	}

	lonMin, err := envFloat("CUSTOM_LON_MIN", -114.0)
	if err != nil {
		return domain.Region{}, err
	}
	latMin, err := envFloat("CUSTOM_LAT_MIN", 37.0)
	if err != nil {
		return domain.Region{}, err
	}
	lonMax, err := envFloat("CUSTOM_LON_MAX", -109.0)
	if err != nil {
		return domain.Region{}, err
	}
	latMax, err := envFloat("CUSTOM_LAT_MAX", 42.0)
	if err != nil {
		return domain.Region{}, err
	}
	return domain.CustomRegion(lonMin, latMin, lonMax, latMax), nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, &domain.ConfigurationError{Field: key, Reason: fmt.Sprintf("%q is not a positive duration", v)}
	}
	return d, nil
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &domain.ConfigurationError{Field: key, Reason: fmt.Sprintf("%q is not an integer", v)}
	}
	return n, nil
}

func envBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, &domain.ConfigurationError{Field: key, Reason: fmt.Sprintf("%q is not a boolean", v)}
	}
	return b, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, &domain.ConfigurationError{Field: key, Reason: fmt.Sprintf("%q is not a number", v)}
	}
	return f, nil
}

func parseBrokers(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}
