package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("FIIS_DATA_DIR", t.TempDir())
	t.Setenv("PORT", "")
	t.Setenv("FUND_SITE_BASE_URL", "")
	t.Setenv("FETCH_TIMEOUT_SECONDS", "")
	t.Setenv("PAGE_CACHE_TTL_MINUTES", "")
	t.Setenv("BACKUP_BUCKET", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, DefaultFundSiteBaseURL, cfg.Fetch.BaseURL)
	assert.Equal(t, 20*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, "Mozilla/5.0", cfg.Fetch.UserAgent)
	assert.Equal(t, 10*time.Minute, cfg.Fetch.PageCacheTTL)
	assert.False(t, cfg.Backup.Enabled())
	assert.Contains(t, cfg.LedgerPath(), "ledger.db")
	assert.Contains(t, cfg.CachePath(), "cache.db")
}

func TestLoadTrimsBaseURLAndAllowsDisabledSchedule(t *testing.T) {
	t.Setenv("FIIS_DATA_DIR", t.TempDir())
	t.Setenv("FUND_SITE_BASE_URL", "http://localhost:9999/funds/")
	t.Setenv("FETCH_SCHEDULE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9999/funds", cfg.Fetch.BaseURL)
	assert.Empty(t, cfg.Fetch.Schedule)
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() *Config {
		return &Config{
			Port: 8000,
			Fetch: FetchConfig{
				BaseURL:  DefaultFundSiteBaseURL,
				Timeout:  time.Second,
				Schedule: "0 0 9 * * *",
			},
		}
	}

	require.NoError(t, base().Validate())

	cfg := base()
	cfg.Port = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Fetch.BaseURL = "not a url"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Fetch.Timeout = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Fetch.Schedule = "every day please"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Backup = BackupConfig{Bucket: "fiis", Schedule: "nope"}
	assert.Error(t, cfg.Validate())
}
