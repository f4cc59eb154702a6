package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Postgres  PostgresConfig  `yaml:"postgres"`
	Logging   LoggingConfig   `yaml:"logging"`
	Collector CollectorConfig `yaml:"collector"`
	Providers ProvidersConfig `yaml:"providers"`
	Health    HealthConfig    `yaml:"health"`
	Telegram  TelegramConfig  `yaml:"telegram"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Duration is a time.Duration that unmarshals from YAML strings like
// "500ms" or "15m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// CollectorConfig tunes the shared enrich/prune/persist pipeline.
type CollectorConfig struct {
	EnabledProviders []string `yaml:"enabled_providers"`
	Interval         Duration `yaml:"interval"` // 0 = single run, otherwise poll loop
	Workers          int      `yaml:"workers"`
	FlushSize        int      `yaml:"flush_size"`
	Timeout          Duration `yaml:"timeout"`
	RetryAttempts    int      `yaml:"retry_attempts"`
	BackoffUnit      Duration `yaml:"backoff_unit"`
	LookaheadHours   float64  `yaml:"lookahead_hours"` // 0 disables the start-time window
	AllowPast        bool     `yaml:"allow_past"`
	ProgressEvery    int      `yaml:"progress_every"`
}

type ProvidersConfig struct {
	Sportingbet SportingbetConfig `yaml:"sportingbet"`
	Superbet    SuperbetConfig    `yaml:"superbet"`
	BetMGM      BetMGMConfig      `yaml:"betmgm"`
}

type SportingbetConfig struct {
	BaseURL   string            `yaml:"base_url"`
	MirrorURL string            `yaml:"mirror_url"` // optional mirror link to resolve the actual base URL
	AccessID  string            `yaml:"access_id"`
	SportID   int64             `yaml:"sport_id"`
	UserAgent string            `yaml:"user_agent"`
	Headers   map[string]string `yaml:"headers"`
}

type SuperbetConfig struct {
	BaseURL        string  `yaml:"base_url"`
	Days           int     `yaml:"days"`
	IncludeMarkets []int64 `yaml:"include_markets"` // empty = keep all markets
	UserAgent      string  `yaml:"user_agent"`
}

type BetMGMConfig struct {
	GraphQLURL  string `yaml:"graphql_url"`
	OfferingURL string `yaml:"offering_url"` // format string with one %s for the event id
	Days        int    `yaml:"days"`
	PageSize    int    `yaml:"page_size"`
	UserAgent   string `yaml:"user_agent"`
}

type HealthConfig struct {
	Port              int      `yaml:"port"`
	ReadHeaderTimeout Duration `yaml:"read_header_timeout"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
}

func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	config.applyDefaults()

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Collector.Workers <= 0 {
		c.Collector.Workers = 8
	}
	if c.Collector.FlushSize <= 0 {
		c.Collector.FlushSize = 200
	}
	if c.Collector.Timeout <= 0 {
		c.Collector.Timeout = Duration(20 * time.Second)
	}
	if c.Collector.RetryAttempts <= 0 {
		c.Collector.RetryAttempts = 3
	}
	if c.Collector.BackoffUnit <= 0 {
		c.Collector.BackoffUnit = Duration(500 * time.Millisecond)
	}
	if c.Collector.ProgressEvery <= 0 {
		c.Collector.ProgressEvery = 100
	}
	if c.Health.ReadHeaderTimeout <= 0 {
		c.Health.ReadHeaderTimeout = Duration(5 * time.Second)
	}
}
