package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")
	t.Setenv("DATA_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://localhost", cfg.BaseURL)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, time.Hour, cfg.SessionLifetime)
	assert.Equal(t, "https://papi.copy-trade.io", cfg.CopyTrade.APIURL)
	assert.Equal(t, "https://identity.copy-trade.io", cfg.CopyTrade.IdentityURL)
	assert.Equal(t, "api-client", cfg.CopyTrade.ClientID)
	assert.Equal(t, "pepperstone", cfg.CopyTrade.TenantID)
	assert.Equal(t, "pepperstone", cfg.CopyTrade.WhiteLabel)
	assert.Equal(t, 5*time.Second, cfg.CopyTrade.Timeout)
	assert.Equal(t, 60*time.Second, cfg.Positions.CacheTTL)
	assert.Equal(t, 8, cfg.Positions.MaxWorkers)
	assert.Equal(t, 2*time.Second, cfg.Positions.FetchTimeout)
	assert.False(t, cfg.Backup.Enabled())
	assert.True(t, cfg.SecureCookies())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("BASE_URL", "http://localhost:8080/")
	t.Setenv("PORT", "9090")
	t.Setenv("POSITIONS_CACHE_TTL", "30")
	t.Setenv("POSITIONS_FETCH_TIMEOUT", "500ms")
	t.Setenv("POSITIONS_MAX_WORKERS", "4")
	t.Setenv("COPYTRADE_RATE_LIMIT", "2.5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.BaseURL)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.Positions.CacheTTL)
	assert.Equal(t, 500*time.Millisecond, cfg.Positions.FetchTimeout)
	assert.Equal(t, 4, cfg.Positions.MaxWorkers)
	assert.Equal(t, 2.5, cfg.CopyTrade.RateLimit)
	assert.False(t, cfg.SecureCookies())
}

func TestLoad_RequiresSecretKey(t *testing.T) {
	t.Setenv("SECRET_KEY", "")
	t.Setenv("DATA_DIR", t.TempDir())

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SECRET_KEY")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			SecretKey:       "k",
			Port:            8080,
			SessionLifetime: time.Hour,
			CopyTrade:       CopyTradeConfig{Timeout: 5 * time.Second},
			Positions: PositionsConfig{
				CacheTTL:     time.Minute,
				MaxWorkers:   8,
				FetchTimeout: 2 * time.Second,
				CacheIdle:    30 * time.Minute,
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"bad port", func(c *Config) { c.Port = 70000 }, "PORT"},
		{"zero workers", func(c *Config) { c.Positions.MaxWorkers = 0 }, "POSITIONS_MAX_WORKERS"},
		{"zero ttl", func(c *Config) { c.Positions.CacheTTL = 0 }, "POSITIONS_CACHE_TTL"},
		{"zero fetch timeout", func(c *Config) { c.Positions.FetchTimeout = 0 }, "POSITIONS_FETCH_TIMEOUT"},
		{"idle shorter than ttl", func(c *Config) { c.Positions.CacheIdle = time.Second }, "POSITIONS_CACHE_IDLE"},
		{"negative rate limit", func(c *Config) { c.CopyTrade.RateLimit = -1 }, "COPYTRADE_RATE_LIMIT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestBackupConfig_Enabled(t *testing.T) {
	b := BackupConfig{R2AccountID: "a", R2AccessKeyID: "b", R2SecretAccessKey: "c"}
	assert.False(t, b.Enabled())

	b.R2Bucket = "d"
	assert.True(t, b.Enabled())
}
