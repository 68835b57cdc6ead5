package config

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("IS_PROD", "false")

	cfg := LoadConfig()

	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, DriverMySQL, cfg.DBDriver)
	assert.Equal(t, "XOF", cfg.DefaultCurrency)
	assert.Equal(t, "0.175", cfg.FeeRate)
	assert.Equal(t, int64(math.MaxInt64), cfg.FeeMax)
	assert.Equal(t, int64(0), cfg.OverdraftLimit)
	assert.Equal(t, int64(100000), cfg.TestFundAmount)
	assert.Equal(t, 5*time.Second, cfg.OpTimeout)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.True(t, cfg.TestFundingEnabled)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigProductionDisablesTestFunding(t *testing.T) {
	t.Setenv("IS_PROD", "true")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg := LoadConfig()

	assert.True(t, cfg.IsProd)
	assert.False(t, cfg.TestFundingEnabled)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("IS_PROD", "true")
	t.Setenv("TEST_FUNDING_ENABLED", "true")
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("FEE_RATE", "0.05")
	t.Setenv("OP_TIMEOUT", "2s")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("DEFAULT_CURRENCY", "eur")
	t.Setenv("FEE_MAX", "0")

	cfg := LoadConfig()

	assert.True(t, cfg.TestFundingEnabled)
	assert.Equal(t, DriverPostgres, cfg.DBDriver)
	assert.Equal(t, "0.05", cfg.FeeRate)
	assert.Equal(t, 2*time.Second, cfg.OpTimeout)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "EUR", cfg.DefaultCurrency)
	assert.Equal(t, int64(0), cfg.FeeMax, "an explicit zero cap is kept")
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{DBDriver: DriverSQLite, FeeRate: "0.175"}
	}

	cfg := base()
	cfg.DBDriver = "oracle"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.FeeRate = "seventeen"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.FeeRate = "1.2"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.FeeMin = 10
	assert.Error(t, cfg.Validate(), "cap below the minimum fee")

	cfg = base()
	cfg.IsProd = true
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.KafkaEnabled = true
	assert.Error(t, cfg.Validate())

	assert.NoError(t, base().Validate())
}
