package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ejayaguirre/geopulse/internal/domain"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "outputs", cfg.OutputDir)
	assert.Equal(t, "data/svi_utah/tracts.geojson", cfg.SVIPath)
	assert.Equal(t, "http://localhost:8081", cfg.GatewayBaseURL)
	assert.Empty(t, cfg.GatewayToken)
	assert.Equal(t, 60*time.Second, cfg.GatewayTimeout)
	assert.Equal(t, 100, cfg.GatewayCacheSize)
	assert.Equal(t, 10*time.Minute, cfg.RunTimeout)
	assert.Equal(t, 0.01, cfg.GridCellDeg)
	assert.Equal(t, int64(42), cfg.ExtractionSeed)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, "geopulse-run-events", cfg.KafkaRunTopic)

	assert.Equal(t, "southern_utah", cfg.Defaults.Region.Name)
	assert.Equal(t, "2023-05-01", cfg.Defaults.StartDate)
	assert.Equal(t, "2024-09-30", cfg.Defaults.EndDate)
	assert.Equal(t, 20, cfg.Defaults.CloudCover)
	assert.Equal(t, 0.5, cfg.Defaults.WeightLST)
	assert.Equal(t, 0.3, cfg.Defaults.WeightGrid)
	assert.Equal(t, 0.2, cfg.Defaults.WeightSVI)
	assert.Equal(t, 10, cfg.Defaults.NumSites)
	assert.Equal(t, 90, cfg.Defaults.Percentile)
	assert.Equal(t, -20.0, cfg.Defaults.LSTMin)
	assert.Equal(t, 60.0, cfg.Defaults.LSTMax)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("OUTPUT_DIR", "/var/lib/geopulse")
	t.Setenv("GATEWAY_URL", "https://gateway.example.com")
	t.Setenv("GATEWAY_TOKEN", "secret")
	t.Setenv("GATEWAY_TIMEOUT", "2m")
	t.Setenv("GATEWAY_CACHE_SIZE", "25")
	t.Setenv("RUN_TIMEOUT", "20m")
	t.Setenv("GRID_CELL_DEG", "0.05")
	t.Setenv("EXTRACTION_SEED", "7")
	t.Setenv("REGION", "great_basin")
	t.Setenv("NUM_SITES", "5")
	t.Setenv("PERCENTILE", "70")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "/var/lib/geopulse", cfg.OutputDir)
	assert.Equal(t, "https://gateway.example.com", cfg.GatewayBaseURL)
	assert.Equal(t, "secret", cfg.GatewayToken)
	assert.Equal(t, 2*time.Minute, cfg.GatewayTimeout)
	assert.Equal(t, 25, cfg.GatewayCacheSize)
	assert.Equal(t, 20*time.Minute, cfg.RunTimeout)
	assert.Equal(t, 0.05, cfg.GridCellDeg)
	assert.Equal(t, int64(7), cfg.ExtractionSeed)
	assert.Equal(t, "great_basin", cfg.Defaults.Region.Name)
	assert.Equal(t, 5, cfg.Defaults.NumSites)
	assert.Equal(t, 70, cfg.Defaults.Percentile)
}

func TestLoadCustomRegion(t *testing.T) {
	t.Setenv("REGION", "custom")
	t.Setenv("CUSTOM_LON_MIN", "-113.5")
	t.Setenv("CUSTOM_LAT_MIN", "37.5")
	t.Setenv("CUSTOM_LON_MAX", "-112.0")
	t.Setenv("CUSTOM_LAT_MAX", "38.5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "custom", cfg.Defaults.Region.Name)
	assert.Equal(t, -113.5, cfg.Defaults.Region.LonMin)
	assert.Equal(t, 37.5, cfg.Defaults.Region.LatMin)
	assert.Equal(t, -112.0, cfg.Defaults.Region.LonMax)
	assert.Equal(t, 38.5, cfg.Defaults.Region.LatMax)
}

func TestLoadKafka(t *testing.T) {
	t.Run("brokers enable publishing", func(t *testing.T) {
		t.Setenv("KAFKA_BROKERS", "broker-1:9092, broker-2:9092")

		cfg, err := Load()
		require.NoError(t, err)

		assert.True(t, cfg.KafkaEnabled)
		assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.KafkaBrokers)
	})

	t.Run("explicit disable overrides brokers", func(t *testing.T) {
		t.Setenv("KAFKA_BROKERS", "broker-1:9092")
		t.Setenv("KAFKA_ENABLED", "false")

		cfg, err := Load()
		require.NoError(t, err)

		assert.False(t, cfg.KafkaEnabled)
	})

	t.Run("accepts ParseBool spellings", func(t *testing.T) {
		for _, v := range []string{"1", "TRUE", "True"} {
			t.Setenv("KAFKA_BROKERS", "broker-1:9092")
			t.Setenv("KAFKA_ENABLED", v)

			cfg, err := Load()
			require.NoError(t, err, "KAFKA_ENABLED=%s", v)
			assert.True(t, cfg.KafkaEnabled, "KAFKA_ENABLED=%s", v)
		}
		t.Setenv("KAFKA_ENABLED", "0")
		cfg, err := Load()
		require.NoError(t, err)
		assert.False(t, cfg.KafkaEnabled)
	})

	t.Run("enabled without brokers rejected", func(t *testing.T) {
		t.Setenv("KAFKA_ENABLED", "true")

		_, err := Load()
		require.Error(t, err)

		var cfgErr *domain.ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "KAFKA_BROKERS", cfgErr.Field)
	})
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad shutdown timeout", "SHUTDOWN_TIMEOUT", "soon"},
		{"negative shutdown timeout", "SHUTDOWN_TIMEOUT", "-5s"},
		{"bad gateway timeout", "GATEWAY_TIMEOUT", "sixty"},
		{"bad run timeout", "RUN_TIMEOUT", "10 minutes"},
		{"bad cache size", "GATEWAY_CACHE_SIZE", "many"},
		{"bad cell size", "GRID_CELL_DEG", "small"},
		{"zero cell size", "GRID_CELL_DEG", "0"},
		{"negative cell size", "GRID_CELL_DEG", "-0.01"},
		{"bad seed", "EXTRACTION_SEED", "lucky"},
		{"unknown region", "REGION", "narnia"},
		{"bad cloud cover", "CLOUD_COVER", "cloudy"},
		{"out-of-range cloud cover", "CLOUD_COVER", "150"},
		{"bad weight", "WEIGHT_LST", "half"},
		{"negative weight", "WEIGHT_SVI", "-0.2"},
		{"bad num sites", "NUM_SITES", "ten"},
		{"zero num sites", "NUM_SITES", "0"},
		{"bad percentile", "PERCENTILE", "ninety"},
		{"bad kafka toggle", "KAFKA_ENABLED", "yes"},
		{"bad start date", "START_DATE", "May 2023"},
		{"window inverted", "END_DATE", "2022-01-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)

			var cfgErr *domain.ConfigurationError
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}
