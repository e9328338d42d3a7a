package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"NewsAggregator/internal/domain"
)

const (
	defaultTimezone   = "UTC"
	configPathEnv     = "NEWS_AGGREGATOR_CONFIG"
	databaseDSNEnv    = "DATABASE_DSN"
	databaseDriverEnv = "DATABASE_DRIVER"
	httpAddrEnv       = "HTTP_ADDR"
	logLevelEnv       = "LOG_LEVEL"
	logFormatEnv      = "LOG_FORMAT"
	productHuntEnv    = "PRODUCT_HUNT_TOKEN"
	githubTokenEnv    = "GITHUB_TOKEN"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Server        ServerConfig       `yaml:"server"`
	Database      DatabaseConfig     `yaml:"database"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Pipeline      PipelineConfig     `yaml:"pipeline"`
	Retry         RetryConfig        `yaml:"retry"`
	Breaker       BreakerConfig      `yaml:"breaker"`
	Sources       []SourceConfig     `yaml:"sources" validate:"unique=Name,dive"`
	Notifications NotificationConfig `yaml:"notifications"`
}

// LoggingConfig selects the slog level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn warning error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// ServerConfig describes the HTTP API listener.
type ServerConfig struct {
	Addr              string        `yaml:"addr" validate:"required"`
	AllowedOrigins    []string      `yaml:"allowedOrigins"`
	RateLimitRequests int           `yaml:"rateLimitRequests" validate:"gte=0"`
	RateLimitWindow   time.Duration `yaml:"rateLimitWindow" validate:"gte=0"`
	RequestTimeout    time.Duration `yaml:"requestTimeout" validate:"gte=0"`
	ShutdownTimeout   time.Duration `yaml:"shutdownTimeout" validate:"gte=0"`
}

// DatabaseConfig describes the snapshot store. An empty DSN disables
// persistence and the fallback read.
type DatabaseConfig struct {
	Driver         string `yaml:"driver" validate:"oneof=postgres sqlite3"`
	DSN            string `yaml:"dsn"`
	ExcludeExpired bool   `yaml:"excludeExpired"`
}

// SchedulerConfig defines how often the background refresh runs.
type SchedulerConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Interval time.Duration  `yaml:"interval" validate:"gte=0"`
	Timezone string         `yaml:"timezone"`
	location *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// PipelineConfig tunes selection and persistence.
type PipelineConfig struct {
	MinRelevanceScore float64       `yaml:"minRelevanceScore" validate:"gte=0,lte=1"`
	MaxPerSource      int           `yaml:"maxPerSource" validate:"gte=1"`
	FallbackLimit     int           `yaml:"fallbackLimit" validate:"gte=1"`
	RetentionHorizon  time.Duration `yaml:"retentionHorizon" validate:"gt=0"`
	RunTimeout        time.Duration `yaml:"runTimeout" validate:"gte=0"`
	PersistTimeout    time.Duration `yaml:"persistTimeout" validate:"gte=0"`
}

// RetryConfig bounds per-source retries.
type RetryConfig struct {
	MaxAttempts int           `yaml:"maxAttempts" validate:"gte=1,lte=10"`
	BaseDelay   time.Duration `yaml:"baseDelay" validate:"gte=0"`
}

// BreakerConfig configures per-source circuit breakers.
type BreakerConfig struct {
	Enabled          bool          `yaml:"enabled"`
	FailureThreshold uint32        `yaml:"failureThreshold" validate:"gte=1"`
	OpenTimeout      time.Duration `yaml:"openTimeout" validate:"gte=0"`
}

// SourceConfig describes one upstream provider and its token bucket.
type SourceConfig struct {
	Name     string        `yaml:"name" validate:"required,newssource"`
	Disabled bool          `yaml:"disabled"`
	Tokens   int           `yaml:"tokens" validate:"gte=1"`
	Interval time.Duration `yaml:"interval" validate:"gt=0"`
	Limit    int           `yaml:"limit" validate:"gte=1"`
	Endpoint string        `yaml:"endpoint" validate:"omitempty,url"`
	Token    string        `yaml:"token"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
	Endpoint string `yaml:"endpoint" validate:"omitempty,url"`
}

// Enabled reports whether both credentials are present.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// Source returns the configuration for name, if present.
func (c Config) Source(name domain.Source) (SourceConfig, bool) {
	for _, s := range c.Sources {
		if s.Name == string(name) {
			return s, true
		}
	}
	return SourceConfig{}, false
}

// Load reads .env, then the YAML file at path (or the path named by
// NEWS_AGGREGATOR_CONFIG) over the defaults, then environment overrides,
// and validates the result. A missing .env file is ignored.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.fillSourceDefaults()
	cfg.applyEnvOverrides()
	if err := cfg.bindTimezone(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints and source names.
func (c Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("newssource", func(fl validator.FieldLevel) bool {
		return domain.Source(fl.Field().String()).Valid()
	}); err != nil {
		return fmt.Errorf("register validation: %w", err)
	}
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// fillSourceDefaults completes file-provided sources with the default
// bucket and limit of the same source.
func (c *Config) fillSourceDefaults() {
	defaults := defaultConfig()
	for i := range c.Sources {
		src := &c.Sources[i]
		def, ok := defaults.Source(domain.Source(src.Name))
		if !ok {
			continue
		}
		if src.Tokens == 0 {
			src.Tokens = def.Tokens
		}
		if src.Interval == 0 {
			src.Interval = def.Interval
		}
		if src.Limit == 0 {
			src.Limit = def.Limit
		}
	}
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(databaseDriverEnv); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv(httpAddrEnv); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv(logFormatEnv); v != "" {
		c.Logging.Format = strings.ToLower(v)
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	c.setSourceToken(domain.SourceProductHunt, os.Getenv(productHuntEnv))
	c.setSourceToken(domain.SourceGitHub, os.Getenv(githubTokenEnv))
}

func (c *Config) setSourceToken(name domain.Source, token string) {
	if token == "" {
		return
	}
	for i := range c.Sources {
		if c.Sources[i].Name == string(name) {
			c.Sources[i].Token = token
		}
	}
}

func (c *Config) bindTimezone() error {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("scheduler timezone %q: %w", tz, err)
	}
	c.Scheduler.location = loc
	return nil
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Server: ServerConfig{
			Addr:              ":8080",
			RateLimitRequests: 60,
			RateLimitWindow:   time.Minute,
			RequestTimeout:    90 * time.Second,
			ShutdownTimeout:   10 * time.Second,
		},
		Database: DatabaseConfig{Driver: "sqlite3", DSN: "news.db"},
		Scheduler: SchedulerConfig{
			Enabled:  true,
			Interval: 30 * time.Minute,
			Timezone: defaultTimezone,
			location: tz,
		},
		Pipeline: PipelineConfig{
			MinRelevanceScore: 0.15,
			MaxPerSource:      3,
			FallbackLimit:     10,
			RetentionHorizon:  24 * time.Hour,
			RunTimeout:        45 * time.Second,
			PersistTimeout:    15 * time.Second,
		},
		Retry:   RetryConfig{MaxAttempts: 3, BaseDelay: time.Second},
		Breaker: BreakerConfig{Enabled: true, FailureThreshold: 5, OpenTimeout: 5 * time.Minute},
		Sources: []SourceConfig{
			{Name: string(domain.SourceHackerNews), Tokens: 10, Interval: time.Second, Limit: 10},
			{Name: string(domain.SourceTechCrunch), Tokens: 2, Interval: time.Second, Limit: 10},
			{Name: string(domain.SourceGitHub), Tokens: 5, Interval: time.Second, Limit: 10},
			{Name: string(domain.SourceDevTo), Tokens: 3, Interval: time.Second, Limit: 10},
			{Name: string(domain.SourceProductHunt), Tokens: 2, Interval: time.Second, Limit: 10},
			{Name: string(domain.SourceVerge), Tokens: 2, Interval: time.Second, Limit: 10},
			{Name: string(domain.SourceTechmeme), Tokens: 2, Interval: time.Second, Limit: 10},
		},
	}
}
