// Package config loads runtime configuration from the environment, with an
// optional YAML file for deployment overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds everything the server needs to start.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
	Database  DatabaseConfig  `yaml:"database"`
	Processor ProcessorConfig `yaml:"processor"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Port            int           `env:"PORT,default=5000" yaml:"port"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT,default=15s" yaml:"read_timeout"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT,default=30s" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT,default=10s" yaml:"shutdown_timeout"`
	RateLimitRPS    int           `env:"RATE_LIMIT_RPS,default=50" yaml:"rate_limit_rps"`
	RateLimitBurst  int           `env:"RATE_LIMIT_BURST,default=100" yaml:"rate_limit_burst"`
}

type AuthConfig struct {
	JWTSecret string `env:"JWT_SECRET" yaml:"jwt_secret"`
	Issuer    string `env:"JWT_ISSUER,default=workforce" yaml:"issuer"`
}

type DatabaseConfig struct {
	// URL is a postgres connection string. Empty selects the in-memory
	// store, which is the default for development and tests.
	URL          string        `env:"DATABASE_URL" yaml:"url"`
	MaxOpenConns int           `env:"DATABASE_MAX_OPEN_CONNS,default=10" yaml:"max_open_conns"`
	PingTimeout  time.Duration `env:"DATABASE_PING_TIMEOUT,default=5s" yaml:"ping_timeout"`
}

type ProcessorConfig struct {
	// SecretKey enables the external payment processor. Empty disables
	// intent creation against the live API.
	SecretKey string `env:"PAYMENT_SECRET_KEY" yaml:"secret_key"`
	BaseURL   string `env:"PAYMENT_BASE_URL,default=https://api.stripe.com" yaml:"base_url"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL,default=info" yaml:"level"`
	Format string `env:"LOG_FORMAT,default=json" yaml:"format"`
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; variables already set in the
// environment win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromPath reads a YAML config file. Environment variables are not
// consulted; deployments that mix both should template the file instead.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills zero values left by a sparse YAML file. Load gets the
// same defaults from the env struct tags.
func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 5000
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Server.RateLimitRPS == 0 {
		c.Server.RateLimitRPS = 50
	}
	if c.Server.RateLimitBurst == 0 {
		c.Server.RateLimitBurst = 100
	}
	if c.Auth.Issuer == "" {
		c.Auth.Issuer = "workforce"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Database.PingTimeout == 0 {
		c.Database.PingTimeout = 5 * time.Second
	}
	if c.Processor.BaseURL == "" {
		c.Processor.BaseURL = "https://api.stripe.com"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

// Validate checks the fields the server cannot run without.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Server.RateLimitRPS <= 0 {
		return fmt.Errorf("rate limit must be positive")
	}
	return nil
}
