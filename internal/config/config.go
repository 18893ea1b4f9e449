package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// EnvPath names the environment variable that points at the config file.
const EnvPath = "BANKRADAR_CONFIG"

// DefaultPath is used when neither a flag nor EnvPath is set.
const DefaultPath = "config.yaml"

// Config is the root configuration for bankradar.
type Config struct {
	RunTimeout     time.Duration
	Retention      time.Duration
	BackfillMaxAge time.Duration
	RecentWindows  RecentWindows
	HTTPTimeout    time.Duration
	Sources        []SourceConfig
	Fetch          FetchConfig
	Storage        StorageConfig
	Notification   NotificationConfig
	Server         ServerConfig
	Schedule       ScheduleConfig
}

// RecentWindows are the read-view windows, measured on effective age.
type RecentWindows struct {
	Last48h  time.Duration
	ThisWeek time.Duration
}

// SourceConfig toggles one registered source.
type SourceConfig struct {
	Key     string `yaml:"key"`
	Enabled bool   `yaml:"enabled"`
}

// FetchConfig controls upstream request pacing and retries.
type FetchConfig struct {
	PageDelay      time.Duration
	MaxPages       int
	Retries        int
	RetryBaseDelay time.Duration
}

// Storage drivers and freshness backends.
const (
	DriverSQLite    = "sqlite"
	DriverPostgres  = "postgres"
	FreshnessSQL    = "sql"
	FreshnessRedis  = "redis"
	defaultSQLite   = "bankradar.db"
	defaultRedisTTL = 10 * time.Minute
)

// StorageConfig selects the persistence backends.
type StorageConfig struct {
	Driver      string // sqlite or postgres
	SQLitePath  string
	PostgresURL string
	Freshness   string // sql or redis
	RedisURL    string // enables the run lease when set
	LeaseTTL    time.Duration
}

// NotificationConfig holds delivery credentials and policy.
type NotificationConfig struct {
	BrandName        string `yaml:"brand_name"`
	SiteURL          string `yaml:"site_url"`
	From             string `yaml:"from"`
	ResendAPIKey     string `yaml:"resend_api_key"`
	ResendBaseURL    string `yaml:"resend_base_url"`
	TwilioSID        string `yaml:"twilio_sid"`
	TwilioToken      string `yaml:"twilio_token"`
	TwilioFrom       string `yaml:"twilio_from"`
	TwilioBaseURL    string `yaml:"twilio_base_url"`
	NothingFoundHour int    `yaml:"-"` // UTC hour, -1 disables
	SlackWebhookURL  string `yaml:"slack_webhook_url"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr              string
	CronSecret        string
	LiveFetchInterval time.Duration // min gap between live fetches of one source
}

// ScheduleConfig holds cron specs for the local daemon.
type ScheduleConfig struct {
	Ingest   string
	Dispatch string
}

// rawConfig is used for YAML unmarshaling (snake_case fields and duration as string).
type rawConfig struct {
	RunTimeout     string           `yaml:"run_timeout"`
	Retention      string           `yaml:"retention"`
	BackfillMaxAge string           `yaml:"backfill_max_age"`
	RecentWindows  rawWindows       `yaml:"recent_windows"`
	HTTPTimeout    string           `yaml:"http_timeout"`
	Sources        []SourceConfig   `yaml:"sources"`
	Fetch          rawFetchConfig   `yaml:"fetch"`
	Storage        rawStorageConfig `yaml:"storage"`
	Notification   rawNotification  `yaml:"notification"`
	Server         rawServerConfig  `yaml:"server"`
	Schedule       ScheduleConfig   `yaml:"schedule"`
}

type rawWindows struct {
	Last48h  string `yaml:"last48h"`
	ThisWeek string `yaml:"this_week"`
}

type rawFetchConfig struct {
	PageDelay      string `yaml:"page_delay"`
	MaxPages       int    `yaml:"max_pages"`
	Retries        *int   `yaml:"retries"`
	RetryBaseDelay string `yaml:"retry_base_delay"`
}

type rawStorageConfig struct {
	Driver      string `yaml:"driver"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresURL string `yaml:"postgres_url"`
	Freshness   string `yaml:"freshness"`
	RedisURL    string `yaml:"redis_url"`
	LeaseTTL    string `yaml:"lease_ttl"`
}

type rawNotification struct {
	NotificationConfig `yaml:",inline"`
	NothingFoundHour   *int `yaml:"nothing_found_hour"`
}

type rawServerConfig struct {
	Addr              string `yaml:"addr"`
	CronSecret        string `yaml:"cron_secret"`
	LiveFetchInterval string `yaml:"live_fetch_interval"`
}

func parseDuration(field, raw string, def time.Duration) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", field, raw, err)
	}
	return d, nil
}

// ResolvePath picks the config path: flag, then $BANKRADAR_CONFIG, then
// ./config.yaml.
func ResolvePath(flag string) string {
	if flag != "" {
		return flag
	}
	if env := os.Getenv(EnvPath); env != "" {
		return env
	}
	return DefaultPath
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg, err := parse(rawConfig{})
	if err != nil {
		panic(fmt.Sprintf("default config invalid: %v", err))
	}
	return cfg
}

// Load reads and parses the YAML config file at path, validates it, and returns Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return parse(raw)
}

func parse(raw rawConfig) (*Config, error) {
	var errs []error
	dur := func(field, s string, def time.Duration) time.Duration {
		d, err := parseDuration(field, s, def)
		if err != nil {
			errs = append(errs, err)
		}
		return d
	}

	cfg := &Config{
		RunTimeout:     dur("run_timeout", raw.RunTimeout, 5*time.Minute),
		Retention:      dur("retention", raw.Retention, 30*24*time.Hour),
		BackfillMaxAge: dur("backfill_max_age", raw.BackfillMaxAge, 7*24*time.Hour),
		RecentWindows: RecentWindows{
			Last48h:  dur("recent_windows.last48h", raw.RecentWindows.Last48h, 48*time.Hour),
			ThisWeek: dur("recent_windows.this_week", raw.RecentWindows.ThisWeek, 7*24*time.Hour),
		},
		HTTPTimeout: dur("http_timeout", raw.HTTPTimeout, 30*time.Second),
		Sources:     raw.Sources,
		Fetch: FetchConfig{
			PageDelay:      dur("fetch.page_delay", raw.Fetch.PageDelay, time.Second),
			MaxPages:       raw.Fetch.MaxPages,
			Retries:        2,
			RetryBaseDelay: dur("fetch.retry_base_delay", raw.Fetch.RetryBaseDelay, 5*time.Second),
		},
		Storage: StorageConfig{
			Driver:      strings.ToLower(raw.Storage.Driver),
			SQLitePath:  raw.Storage.SQLitePath,
			PostgresURL: raw.Storage.PostgresURL,
			Freshness:   strings.ToLower(raw.Storage.Freshness),
			RedisURL:    raw.Storage.RedisURL,
			LeaseTTL:    dur("storage.lease_ttl", raw.Storage.LeaseTTL, defaultRedisTTL),
		},
		Notification: raw.Notification.NotificationConfig,
		Server: ServerConfig{
			Addr:              raw.Server.Addr,
			CronSecret:        raw.Server.CronSecret,
			LiveFetchInterval: dur("server.live_fetch_interval", raw.Server.LiveFetchInterval, 30*time.Second),
		},
		Schedule: raw.Schedule,
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	if raw.Fetch.Retries != nil {
		cfg.Fetch.Retries = *raw.Fetch.Retries
	}
	if cfg.Fetch.MaxPages == 0 {
		cfg.Fetch.MaxPages = 50
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = DriverSQLite
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = defaultSQLite
	}
	if cfg.Storage.Freshness == "" {
		cfg.Storage.Freshness = FreshnessSQL
	}
	cfg.Notification.NothingFoundHour = 21
	if raw.Notification.NothingFoundHour != nil {
		cfg.Notification.NothingFoundHour = *raw.Notification.NothingFoundHour
	}
	if cfg.Notification.BrandName == "" {
		cfg.Notification.BrandName = "Bank Radar"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Schedule.Ingest == "" {
		cfg.Schedule.Ingest = "@every 30m"
	}
	if cfg.Schedule.Dispatch == "" {
		cfg.Schedule.Dispatch = "0 14,21 * * *"
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// EnabledSourceKeys returns the keys switched on in the sources list, or
// nil (meaning every registered source) when the list is empty.
func (c *Config) EnabledSourceKeys() []string {
	if len(c.Sources) == 0 {
		return nil
	}
	keys := []string{}
	for _, s := range c.Sources {
		if s.Enabled {
			keys = append(keys, s.Key)
		}
	}
	return keys
}

func validate(cfg *Config) error {
	if cfg.RunTimeout <= 0 {
		return fmt.Errorf("run_timeout must be positive, got %v", cfg.RunTimeout)
	}
	if cfg.Retention <= 0 {
		return fmt.Errorf("retention must be positive, got %v", cfg.Retention)
	}
	if cfg.RecentWindows.Last48h <= 0 || cfg.RecentWindows.ThisWeek < cfg.RecentWindows.Last48h {
		return fmt.Errorf("recent_windows must be positive with this_week >= last48h")
	}
	if len(cfg.Sources) > 0 && len(cfg.EnabledSourceKeys()) == 0 {
		return fmt.Errorf("at least one source must be enabled")
	}
	if cfg.Fetch.MaxPages < 0 || cfg.Fetch.Retries < 0 {
		return fmt.Errorf("fetch.max_pages and fetch.retries must not be negative")
	}

	switch cfg.Storage.Driver {
	case DriverSQLite:
	case DriverPostgres:
		if cfg.Storage.PostgresURL == "" {
			return fmt.Errorf("storage.postgres_url is required when driver is %q", DriverPostgres)
		}
	default:
		return fmt.Errorf("storage.driver must be %q or %q, got %q", DriverSQLite, DriverPostgres, cfg.Storage.Driver)
	}
	switch cfg.Storage.Freshness {
	case FreshnessSQL:
	case FreshnessRedis:
		if cfg.Storage.RedisURL == "" {
			return fmt.Errorf("storage.redis_url is required when freshness is %q", FreshnessRedis)
		}
	default:
		return fmt.Errorf("storage.freshness must be %q or %q, got %q", FreshnessSQL, FreshnessRedis, cfg.Storage.Freshness)
	}

	if cfg.Storage.RedisURL != "" && cfg.Storage.LeaseTTL < cfg.RunTimeout {
		return fmt.Errorf("storage.lease_ttl (%v) must be at least run_timeout (%v)", cfg.Storage.LeaseTTL, cfg.RunTimeout)
	}

	if h := cfg.Notification.NothingFoundHour; h < -1 || h > 23 {
		return fmt.Errorf("notification.nothing_found_hour must be -1 or 0-23, got %d", h)
	}
	if u := cfg.Notification.SlackWebhookURL; u != "" && !strings.HasPrefix(u, "https://hooks.slack.com/") {
		return fmt.Errorf("notification.slack_webhook_url must start with https://hooks.slack.com/")
	}

	for field, spec := range map[string]string{"schedule.ingest": cfg.Schedule.Ingest, "schedule.dispatch": cfg.Schedule.Dispatch} {
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("parse %s %q: %w", field, spec, err)
		}
	}
	return nil
}
