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

type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type AdminConfig struct {
	Port          int           `yaml:"port"`
	PasswordHash  string        `yaml:"password_hash"`  // "salthex$keyhex" PBKDF2-HMAC-SHA256
	SessionSecret string        `yaml:"session_secret"` // HMAC key for session tokens
	SessionTTL    time.Duration `yaml:"session_ttl"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type LimitsConfig struct {
	GenerateMax       int `yaml:"generate_max"`        // max codes per generation request
	ActivatePerMinute int `yaml:"activate_per_minute"` // per-device activation attempts
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Admin    AdminConfig    `yaml:"admin"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Plans    map[string]int `yaml:"plans"` // plan type -> duration in days
	Limits   LimitsConfig   `yaml:"limits"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file, applies defaults and validates the
// minimum viable surface. The result is immutable for the process lifetime.
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
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5000
	}
	if cfg.Server.ReadTimeout <= 0 {
		cfg.Server.ReadTimeout = 10 * time.Second
	}
	if cfg.Server.WriteTimeout <= 0 {
		cfg.Server.WriteTimeout = 10 * time.Second
	}
	if cfg.Admin.Port == 0 {
		cfg.Admin.Port = 5001
	}
	if cfg.Admin.SessionTTL <= 0 {
		cfg.Admin.SessionTTL = 30 * time.Minute
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	if len(cfg.Plans) == 0 {
		cfg.Plans = map[string]int{
			"monthly":   30,
			"quarterly": 90,
			"yearly":    365,
			"trial":     7,
		}
	}
	if cfg.Limits.GenerateMax <= 0 {
		cfg.Limits.GenerateMax = 5000
	}
	if cfg.Limits.ActivatePerMinute <= 0 {
		cfg.Limits.ActivatePerMinute = 10
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Admin.SessionSecret == "" && !dev {
		return nil, errors.New("admin.session_secret is required")
	}
	for name, days := range cfg.Plans {
		if days <= 0 {
			return nil, fmt.Errorf("plans.%s: duration must be positive days", name)
		}
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
