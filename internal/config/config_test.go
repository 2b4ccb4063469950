package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, cfg.Quota.MinDelay)
	assert.Equal(t, 100, cfg.Quota.DailyLimit)
	assert.Equal(t, 24*time.Hour, cfg.Quota.Window)
	assert.Equal(t, 15*time.Minute, cfg.Session.TTL)
	assert.Equal(t, 3, cfg.Browser.MaxBrowsers)
	assert.False(t, cfg.Browser.NoSandbox)
	assert.Contains(t, cfg.Portal.BaseURL, "projudi.tjpr.jus.br")
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("QUOTA_MIN_DELAY", "5")
	t.Setenv("SESSION_TTL", "10m")
	t.Setenv("BROWSER_MAX", "2")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("REDIS_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Quota.MinDelay)
	assert.Equal(t, 10*time.Minute, cfg.Session.TTL)
	assert.Equal(t, 2, cfg.Browser.MaxBrowsers)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Security.CORS.AllowedOrigins)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("QUOTA_DAILY_LIMIT", "lots")
	t.Setenv("SESSION_TTL", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Quota.DailyLimit)
	assert.Equal(t, 15*time.Minute, cfg.Session.TTL)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{"zero min delay", map[string]string{"QUOTA_MIN_DELAY": "0s"}},
		{"zero daily limit", map[string]string{"QUOTA_DAILY_LIMIT": "0"}},
		{"too many browsers", map[string]string{"BROWSER_MAX": "11"}},
		{"relative portal url", map[string]string{"PORTAL_BASE_URL": "/consulta"}},
		{"non http portal url", map[string]string{"PORTAL_BASE_URL": "ftp://projudi.tjpr.jus.br"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
