package app

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetEnv clears keys for the test and restores them afterwards.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	unsetEnv(t, "APP_ENV", "DEFAULT_VAT_RATE", "SUMMARY_CACHE_TTL", "RATE_LIMIT_PER_MINUTE", "INTEGRITY_CRON", "WORKER_CONCURRENCY")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, 5*time.Minute, cfg.SummaryCacheTTL)
	assert.Equal(t, 120, cfg.RateLimitPerMinute)
	assert.Equal(t, "0 3 * * *", cfg.IntegrityCron)
	assert.Equal(t, 2, cfg.WorkerConcurrency)
	assert.False(t, cfg.IsProduction())

	rate, err := cfg.VATRate()
	require.NoError(t, err)
	assert.Equal(t, "21", rate.String())
}

func TestLoadConfigRejectsBadVATRate(t *testing.T) {
	for _, value := range []string{"abc", "-1", "100"} {
		t.Run(value, func(t *testing.T) {
			t.Setenv("DEFAULT_VAT_RATE", value)
			_, err := LoadConfig()
			require.Error(t, err)
		})
	}
}

func TestLoadConfigRejectsNonPositiveRateLimit(t *testing.T) {
	t.Setenv("RATE_LIMIT_PER_MINUTE", "0")
	_, err := LoadConfig()
	require.Error(t, err)
}

func TestIsProduction(t *testing.T) {
	var nilCfg *Config
	assert.False(t, nilCfg.IsProduction())
	assert.True(t, (&Config{AppEnv: "production"}).IsProduction())
}
