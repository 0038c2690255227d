package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token string `yaml:"token"`
	// SendTimeout bounds each individual sendMessage call. A chat whose send
	// exceeds it is marked failed without affecting siblings.
	SendTimeout time.Duration `yaml:"send_timeout"`
	PollTimeout time.Duration `yaml:"poll_timeout"`
	SendWorkers int           `yaml:"send_workers"`
}

type HTTPConfig struct {
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type AdminConfig struct {
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	JWTKey   string        `yaml:"jwt_key"`
	TokenTTL time.Duration `yaml:"token_ttl"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type RateLimitConfig struct {
	Enabled bool          `yaml:"enabled"`
	Limit   int           `yaml:"limit"`
	Window  time.Duration `yaml:"window"`
}

type DiscoveryConfig struct {
	// Interval for the background discovery worker; zero disables it.
	Interval time.Duration `yaml:"interval"`
}

type Config struct {
	Bot       BotConfig       `yaml:"bot"`
	HTTP      HTTPConfig      `yaml:"http"`
	Admin     AdminConfig     `yaml:"admin"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Discovery DiscoveryConfig `yaml:"discovery"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads and validates the YAML config at path.
func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// defaults
	if cfg.Bot.SendTimeout <= 0 {
		cfg.Bot.SendTimeout = 30 * time.Second
	}
	if cfg.Bot.PollTimeout <= 0 {
		cfg.Bot.PollTimeout = 10 * time.Second
	}
	if cfg.Bot.SendWorkers <= 0 {
		cfg.Bot.SendWorkers = 8
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.HTTP.RequestTimeout <= 0 {
		cfg.HTTP.RequestTimeout = 60 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Redis.TTL <= 0 {
		cfg.Redis.TTL = time.Hour
	}
	if cfg.RateLimit.Limit <= 0 {
		cfg.RateLimit.Limit = 30
	}
	if cfg.RateLimit.Window <= 0 {
		cfg.RateLimit.Window = time.Minute
	}
	if cfg.Admin.Username == "" {
		cfg.Admin.Username = "admin"
	}
	if cfg.Admin.TokenTTL <= 0 {
		cfg.Admin.TokenTTL = time.Hour
	}

	// Minimal validation
	if cfg.Bot.Token == "" && !dev {
		return nil, errors.New("bot.token is required")
	}
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Admin.JWTKey == "" && !dev {
		return nil, errors.New("admin.jwt_key is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
