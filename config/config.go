package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the complete bot configuration
type Config struct {
	Bot    BotConfig    `json:"bot" yaml:"bot"`
	Data   DataConfig   `json:"data" yaml:"data"`
	Query  QueryConfig  `json:"query" yaml:"query"`
	Server ServerConfig `json:"server" yaml:"server"`
	Log    LogConfig    `json:"log" yaml:"log"`
}

// BotConfig contains chat bot parameters. Token is only ever read from the
// environment.
type BotConfig struct {
	Token            string   `json:"-" yaml:"-"`
	WebhookURL       string   `json:"webhook_url,omitempty" yaml:"webhook_url,omitempty"`
	Representatives  []string `json:"representatives" yaml:"representatives"`
	TradesPerRequest int      `json:"trades_per_request" yaml:"trades_per_request"`
	PollTimeout      int      `json:"poll_timeout" yaml:"poll_timeout"` // seconds
	ThrottleEvery    string   `json:"throttle_every" yaml:"throttle_every"`
	ThrottleBurst    int      `json:"throttle_burst" yaml:"throttle_burst"`
}

// DataConfig contains feed parameters
type DataConfig struct {
	URL      string `json:"url" yaml:"url"`
	Timeout  string `json:"timeout" yaml:"timeout"`
	CacheTTL string `json:"cache_ttl" yaml:"cache_ttl"`
}

// QueryConfig contains query engine parameters
type QueryConfig struct {
	MalformedPolicy string `json:"malformed_policy" yaml:"malformed_policy"` // "abort" or "skip"
}

// ServerConfig contains the health server parameters
type ServerConfig struct {
	Port      string `json:"port" yaml:"port"`
	PublicURL string `json:"public_url,omitempty" yaml:"public_url,omitempty"`
	KeepAlive string `json:"keep_alive,omitempty" yaml:"keep_alive,omitempty"` // e.g. "10m", empty disables
}

// LogConfig contains logging parameters
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"` // "json" or "console"
}

// Environment variables read by ApplyEnv.
const (
	EnvToken           = "TOKEN"
	EnvWebhookURL      = "WEBHOOK_URL"
	EnvPort            = "PORT"
	EnvPublicURL       = "PUBLIC_URL"
	EnvLogLevel        = "LOG_LEVEL"
	EnvDataURL         = "DATA_URL"
	EnvCacheTTL        = "CACHE_TTL"
	EnvMalformedPolicy = "MALFORMED_POLICY"
)

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Bot: BotConfig{
			Representatives:  []string{"Pelosi", "Crenshaw", "Tuberville"},
			TradesPerRequest: 3,
			PollTimeout:      30,
			ThrottleEvery:    "2s",
			ThrottleBurst:    3,
		},
		Data: DataConfig{
			URL:      "https://house-stock-watcher-data.s3-us-west-2.amazonaws.com/data/all_transactions.json",
			Timeout:  "30s",
			CacheTTL: "5m",
		},
		Query: QueryConfig{
			MalformedPolicy: "abort",
		},
		Server: ServerConfig{
			Port: "10000",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the effective configuration: defaults, then the optional
// config file, then the environment (with values from envFile filling in
// variables the process does not set).
func Load(path, envFile string) (*Config, error) {
	cfg := Default()
	if path != "" {
		loaded, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	dotenv, err := ReadDotEnv(envFile)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	})

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ReadDotEnv parses a .env file without touching the process environment.
// A missing file yields an empty map.
func ReadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return map[string]string{}, nil
	}
	vals, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read env file: %w", err)
	}
	return vals, nil
}

// ApplyEnv overrides fields from environment variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set(EnvToken, &c.Bot.Token)
	set(EnvWebhookURL, &c.Bot.WebhookURL)
	set(EnvPort, &c.Server.Port)
	set(EnvPublicURL, &c.Server.PublicURL)
	set(EnvLogLevel, &c.Log.Level)
	set(EnvDataURL, &c.Data.URL)
	set(EnvCacheTTL, &c.Data.CacheTTL)
	set(EnvMalformedPolicy, &c.Query.MalformedPolicy)
}

// LoadFromFile loads configuration from a file (JSON or YAML based on extension)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		cfg = Default()
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension).
// The bot token is never written.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if len(c.Bot.Representatives) == 0 {
		return fmt.Errorf("bot.representatives must not be empty")
	}
	for _, r := range c.Bot.Representatives {
		if strings.TrimSpace(r) == "" {
			return fmt.Errorf("bot.representatives must not contain blank names")
		}
		if len("rep:"+r) > 64 {
			return fmt.Errorf("bot.representatives: %q is too long for a button", r)
		}
	}
	if c.Bot.TradesPerRequest < 1 {
		return fmt.Errorf("bot.trades_per_request must be at least 1")
	}
	if c.Bot.PollTimeout < 0 {
		return fmt.Errorf("bot.poll_timeout must not be negative")
	}
	if c.Bot.ThrottleBurst < 1 {
		return fmt.Errorf("bot.throttle_burst must be at least 1")
	}
	if _, err := c.Bot.Throttle(); err != nil {
		return fmt.Errorf("bot.throttle_every: %w", err)
	}
	if c.Bot.WebhookURL != "" {
		if err := checkURL(c.Bot.WebhookURL); err != nil {
			return fmt.Errorf("bot.webhook_url: %w", err)
		}
	}
	if err := checkURL(c.Data.URL); err != nil {
		return fmt.Errorf("data.url: %w", err)
	}
	if d, err := c.Data.TimeoutDuration(); err != nil || d <= 0 {
		return fmt.Errorf("data.timeout must be a positive duration")
	}
	if d, err := c.Data.TTL(); err != nil || d <= 0 {
		return fmt.Errorf("data.cache_ttl must be a positive duration")
	}
	if p := strings.ToLower(c.Query.MalformedPolicy); p != "abort" && p != "skip" {
		return fmt.Errorf("query.malformed_policy must be 'abort' or 'skip'")
	}
	if port, err := strconv.Atoi(c.Server.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("server.port must be a number between 1 and 65535")
	}
	if _, err := c.Server.KeepAliveInterval(); err != nil {
		return fmt.Errorf("server.keep_alive: %w", err)
	}
	if c.Server.KeepAlive != "" && c.Server.PublicURL == "" {
		return fmt.Errorf("server.public_url required when keep_alive is set")
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("log.format must be 'json' or 'console'")
	}
	return nil
}

// Throttle parses ThrottleEvery.
func (b BotConfig) Throttle() (time.Duration, error) {
	return time.ParseDuration(b.ThrottleEvery)
}

// TimeoutDuration parses Timeout.
func (d DataConfig) TimeoutDuration() (time.Duration, error) {
	return time.ParseDuration(d.Timeout)
}

// TTL parses CacheTTL.
func (d DataConfig) TTL() (time.Duration, error) {
	return time.ParseDuration(d.CacheTTL)
}

// KeepAliveInterval parses KeepAlive; empty means disabled.
func (s ServerConfig) KeepAliveInterval() (time.Duration, error) {
	if s.KeepAlive == "" {
		return 0, nil
	}
	return time.ParseDuration(s.KeepAlive)
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}
