package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.NotNil(t, cfg)
	assert.Equal(t, []string{"Pelosi", "Crenshaw", "Tuberville"}, cfg.Bot.Representatives)
	assert.Equal(t, 3, cfg.Bot.TradesPerRequest)
	assert.Equal(t, "abort", cfg.Query.MalformedPolicy)
	assert.NoError(t, cfg.Validate())

	ttl, err := cfg.Data.TTL()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, ttl)

	timeout, err := cfg.Data.TimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, timeout)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:    "no representatives",
			mutate:  func(c *Config) { c.Bot.Representatives = nil },
			wantErr: true,
			errMsg:  "bot.representatives must not be empty",
		},
		{
			name:    "blank representative",
			mutate:  func(c *Config) { c.Bot.Representatives = []string{"Pelosi", " "} },
			wantErr: true,
			errMsg:  "blank names",
		},
		{
			name:    "zero trades per request",
			mutate:  func(c *Config) { c.Bot.TradesPerRequest = 0 },
			wantErr: true,
			errMsg:  "bot.trades_per_request must be at least 1",
		},
		{
			name:    "bad throttle",
			mutate:  func(c *Config) { c.Bot.ThrottleEvery = "often" },
			wantErr: true,
			errMsg:  "bot.throttle_every",
		},
		{
			name:    "bad webhook url",
			mutate:  func(c *Config) { c.Bot.WebhookURL = "ftp://example.com" },
			wantErr: true,
			errMsg:  "bot.webhook_url",
		},
		{
			name:    "missing data url host",
			mutate:  func(c *Config) { c.Data.URL = "https://" },
			wantErr: true,
			errMsg:  "data.url",
		},
		{
			name:    "zero cache ttl",
			mutate:  func(c *Config) { c.Data.CacheTTL = "0s" },
			wantErr: true,
			errMsg:  "data.cache_ttl must be a positive duration",
		},
		{
			name:    "unknown policy",
			mutate:  func(c *Config) { c.Query.MalformedPolicy = "ignore" },
			wantErr: true,
			errMsg:  "query.malformed_policy",
		},
		{
			name:    "skip policy",
			mutate:  func(c *Config) { c.Query.MalformedPolicy = "skip" },
			wantErr: false,
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Server.Port = "70000" },
			wantErr: true,
			errMsg:  "server.port",
		},
		{
			name:    "keep alive without public url",
			mutate:  func(c *Config) { c.Server.KeepAlive = "10m" },
			wantErr: true,
			errMsg:  "server.public_url required",
		},
		{
			name:    "unknown log format",
			mutate:  func(c *Config) { c.Log.Format = "xml" },
			wantErr: true,
			errMsg:  "log.format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name string
		ext  string
	}{
		{"json format", ".json"},
		{"yaml format", ".yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Bot.Token = "secret-token"
			cfg.Bot.Representatives = []string{"Pelosi", "Greene"}
			cfg.Query.MalformedPolicy = "skip"
			path := filepath.Join(tmpDir, "test"+tt.ext)

			require.NoError(t, cfg.SaveToFile(path))

			raw, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.NotContains(t, string(raw), "secret-token")

			loaded, err := LoadFromFile(path)
			require.NoError(t, err)

			assert.Equal(t, cfg.Bot.Representatives, loaded.Bot.Representatives)
			assert.Equal(t, cfg.Query.MalformedPolicy, loaded.Query.MalformedPolicy)
			assert.Equal(t, cfg.Data.URL, loaded.Data.URL)
			assert.Empty(t, loaded.Bot.Token)
		})
	}
}

func TestLoadFromFilePartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data:\n  cache_ttl: 1m\n"), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "1m", cfg.Data.CacheTTL)
	assert.Equal(t, "30s", cfg.Data.Timeout)
	assert.Equal(t, 3, cfg.Bot.TradesPerRequest)
}

func TestLoadInvalidFile(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path.yaml")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bot: [unclosed"), 0644))
	_, err = LoadFromFile(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvToken:           "123:abc",
		EnvWebhookURL:      "https://bot.example.com",
		EnvPort:            "8080",
		EnvLogLevel:        "debug",
		EnvCacheTTL:        "2m",
		EnvMalformedPolicy: "skip",
		EnvDataURL:         "",
	}
	cfg := Default()
	cfg.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})

	assert.Equal(t, "123:abc", cfg.Bot.Token)
	assert.Equal(t, "https://bot.example.com", cfg.Bot.WebhookURL)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "2m", cfg.Data.CacheTTL)
	assert.Equal(t, "skip", cfg.Query.MalformedPolicy)
	assert.Equal(t, Default().Data.URL, cfg.Data.URL, "empty values do not override")
}

func TestReadDotEnv(t *testing.T) {
	vals, err := ReadDotEnv(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Empty(t, vals)

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("TOKEN=from-file\nPORT=9000\n"), 0600))
	vals, err = ReadDotEnv(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", vals["TOKEN"])
	assert.Equal(t, "9000", vals["PORT"])
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "stockwatch.yaml")
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(cfgPath, []byte("server:\n  port: \"7000\"\nlog:\n  level: warn\n  format: console\n"), 0644))
	require.NoError(t, os.WriteFile(envPath, []byte("TOKEN=from-file\nPORT=9000\nLOG_LEVEL=error\n"), 0600))

	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvToken, "")
	t.Setenv(EnvPort, "")

	cfg, err := Load(cfgPath, envPath)
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Server.Port, ".env overrides the file")
	assert.Equal(t, "debug", cfg.Log.Level, "process env overrides .env")
	assert.Equal(t, "from-file", cfg.Bot.Token, "an empty process value falls through")
	assert.Equal(t, "console", cfg.Log.Format)
}
