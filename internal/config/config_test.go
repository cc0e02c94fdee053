package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "HTTP_ADDR", "REDIS_ADDR", "MAX_CLICKS", "BUTTON_TIMEOUT", "BROWSER_DRIVER"} {
		t.Setenv(k, "")
	}

	cfg := Load()

	assert.Equal(t, ":10000", cfg.HTTPAddr)
	assert.Equal(t, 50, cfg.MaxClicks)
	assert.Equal(t, 3*time.Second, cfg.ButtonTimeout)
	assert.Equal(t, 15*time.Second, cfg.SpinnerTimeout)
	assert.Equal(t, DriverPlaywright, cfg.BrowserDriver)
	assert.False(t, cfg.UseRedis())
	require.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("MAX_CLICKS", "400")
	t.Setenv("BUTTON_TIMEOUT", "5s")
	t.Setenv("SPINNER_TIMEOUT", "20000")
	t.Setenv("PLAYWRIGHT_INSTALL", "true")
	t.Setenv("BROWSER_DRIVER", "chromedp")

	cfg := Load()

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.True(t, cfg.UseRedis())
	assert.Equal(t, 400, cfg.MaxClicks)
	assert.Equal(t, 5*time.Second, cfg.ButtonTimeout)
	assert.Equal(t, 20*time.Second, cfg.SpinnerTimeout)
	assert.True(t, cfg.PlaywrightInstall)
	assert.Equal(t, DriverChromeDP, cfg.BrowserDriver)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("MAX_CLICKS", "many")
	t.Setenv("SETTLE_DELAY", "soon")

	cfg := Load()

	assert.Equal(t, 50, cfg.MaxClicks)
	assert.Equal(t, 2*time.Second, cfg.SettleDelay)
}

func TestValidate(t *testing.T) {
	base := func(t *testing.T) Config {
		t.Setenv("BROWSER_DRIVER", "")
		t.Setenv("MAX_CLICKS", "")
		return Load()
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.BrowserDriver = "selenium" }},
		{"zero ceiling", func(c *Config) { c.MaxClicks = 0 }},
		{"negative retries", func(c *Config) { c.CallbackRetries = -1 }},
		{"zero button timeout", func(c *Config) { c.ButtonTimeout = 0 }},
		{"negative settle delay", func(c *Config) { c.SettleDelay = -time.Second }},
		{"missing suffix", func(c *Config) { c.CallbackCompleteSuffix = "" }},
		{"missing tracker url", func(c *Config) { c.TrackerBaseURL = "" }},
		{"missing instance id", func(c *Config) { c.InstanceID = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base(t)
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestWorkerQueueIsPerInstance(t *testing.T) {
	t.Setenv("TASK_QUEUE", "scrape")

	t.Setenv("INSTANCE_ID", "pod-a")
	a := Load()
	t.Setenv("INSTANCE_ID", "pod-b")
	b := Load()

	assert.Equal(t, "scrape:pod-a", a.WorkerQueue())
	assert.NotEqual(t, a.WorkerQueue(), b.WorkerQueue())
}

func TestInstanceIDDefaultsToHostname(t *testing.T) {
	t.Setenv("INSTANCE_ID", "")

	assert.Equal(t, hostname(), Load().InstanceID)
	assert.NotEmpty(t, Load().InstanceID)
}
