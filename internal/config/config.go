package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the sync agent.
// Values come from an optional YAML file and are then overridden by WAREHOUSE_* env vars.
type Config struct {
	Server struct {
		Addr            string        `yaml:"addr" validate:"required"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`
	} `yaml:"server"`

	Remote struct {
		BaseURL    string        `yaml:"base_url" validate:"required,url"`
		Token      string        `yaml:"token"`
		Timeout    time.Duration `yaml:"timeout" validate:"gt=0"`
		HealthPath string        `yaml:"health_path" validate:"required,startswith=/"`
	} `yaml:"remote"`

	Cache struct {
		Backend       string        `yaml:"backend" validate:"oneof=sqlite redis memory"`
		SQLitePath    string        `yaml:"sqlite_path"`
		MaxBytes      int           `yaml:"max_bytes" validate:"gt=0"`
		DefaultTTL    time.Duration `yaml:"default_ttl" validate:"gt=0"`
		SweepInterval time.Duration `yaml:"sweep_interval" validate:"gt=0"`
	} `yaml:"cache"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db" validate:"gte=0"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`

	Outbox struct {
		MaxAttempts    int           `yaml:"max_attempts" validate:"gte=1"`
		AttemptTimeout time.Duration `yaml:"attempt_timeout" validate:"gt=0"`
		SyncInterval   time.Duration `yaml:"sync_interval" validate:"gt=0"`
	} `yaml:"outbox"`

	Connectivity struct {
		InitialOnline bool          `yaml:"initial_online"`
		ProbeInterval time.Duration `yaml:"probe_interval" validate:"gte=0"`
		ProbeTimeout  time.Duration `yaml:"probe_timeout" validate:"gt=0"`
	} `yaml:"connectivity"`

	Invalidation struct {
		Prefixes []string `yaml:"prefixes" validate:"dive,startswith=/"`
	} `yaml:"invalidation"`

	Auth struct {
		JWTSecret            string        `yaml:"jwt_secret" validate:"required"`
		Issuer               string        `yaml:"issuer" validate:"required"`
		Audience             string        `yaml:"audience" validate:"required"`
		TokenTTL             time.Duration `yaml:"token_ttl" validate:"gt=0"`
		OperatorPasswordHash string        `yaml:"operator_password_hash"`
	} `yaml:"auth"`

	Log struct {
		Level  string `yaml:"level" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" validate:"oneof=text json"`
	} `yaml:"log"`
}

// Default returns a Config populated with the agent defaults
func Default() *Config {
	var c Config
	c.Server.Addr = ":8008"
	c.Server.ShutdownTimeout = 5 * time.Second

	c.Remote.BaseURL = "http://127.0.0.1:9000"
	c.Remote.Timeout = 15 * time.Second
	c.Remote.HealthPath = "/health"

	c.Cache.Backend = "sqlite"
	c.Cache.SQLitePath = "warehouse-cache.db"
	c.Cache.MaxBytes = 5 * 1024 * 1024
	c.Cache.DefaultTTL = 5 * time.Minute
	c.Cache.SweepInterval = time.Minute

	c.Redis.Addr = "127.0.0.1:6379"
	c.Redis.Prefix = "warehouse:cache:"

	c.Outbox.MaxAttempts = 3
	c.Outbox.AttemptTimeout = 15 * time.Second
	c.Outbox.SyncInterval = 2 * time.Minute

	c.Connectivity.InitialOnline = true
	c.Connectivity.ProbeInterval = 10 * time.Second
	c.Connectivity.ProbeTimeout = 3 * time.Second

	c.Invalidation.Prefixes = []string{"/inventory", "/positions", "/movements", "/stock"}

	c.Auth.JWTSecret = "development-insecure-secret-change-me"
	c.Auth.Issuer = "warehouse-sync-agent"
	c.Auth.Audience = "warehouse-terminals"
	c.Auth.TokenTTL = 12 * time.Hour

	c.Log.Level = "info"
	c.Log.Format = "text"
	return &c
}

// Load builds the configuration: defaults, then the YAML file at path (if it exists), then env.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			log.Printf("config file %s not found, using defaults and env", path)
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(raw, c); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	c.applyEnv()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the struct tags and the cross-field rules
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Cache.Backend == "sqlite" && strings.TrimSpace(c.Cache.SQLitePath) == "" {
		return errors.New("invalid config: cache.sqlite_path is required for the sqlite backend")
	}
	if c.Cache.Backend == "redis" && strings.TrimSpace(c.Redis.Addr) == "" {
		return errors.New("invalid config: redis.addr is required for the redis backend")
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Addr = getEnv("WAREHOUSE_ADDR", c.Server.Addr)
	c.Remote.BaseURL = getEnv("WAREHOUSE_REMOTE_URL", c.Remote.BaseURL)
	c.Remote.Token = getEnv("WAREHOUSE_REMOTE_TOKEN", c.Remote.Token)
	c.Remote.Timeout = durationEnv("WAREHOUSE_REMOTE_TIMEOUT", c.Remote.Timeout)
	c.Cache.Backend = getEnv("WAREHOUSE_CACHE_BACKEND", c.Cache.Backend)
	c.Cache.SQLitePath = getEnv("WAREHOUSE_CACHE_SQLITE_PATH", c.Cache.SQLitePath)
	c.Cache.MaxBytes = intEnv("WAREHOUSE_CACHE_MAX_BYTES", c.Cache.MaxBytes)
	c.Cache.DefaultTTL = durationEnv("WAREHOUSE_CACHE_TTL", c.Cache.DefaultTTL)
	c.Redis.Addr = getEnv("WAREHOUSE_REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("WAREHOUSE_REDIS_PASSWORD", c.Redis.Password)
	c.Outbox.SyncInterval = durationEnv("WAREHOUSE_SYNC_INTERVAL", c.Outbox.SyncInterval)
	c.Outbox.AttemptTimeout = durationEnv("WAREHOUSE_ATTEMPT_TIMEOUT", c.Outbox.AttemptTimeout)
	c.Connectivity.ProbeInterval = durationEnv("WAREHOUSE_PROBE_INTERVAL", c.Connectivity.ProbeInterval)
	if raw := getEnv("WAREHOUSE_INVALIDATION_PREFIXES", ""); raw != "" {
		c.Invalidation.Prefixes = splitList(raw)
	}
	c.Auth.JWTSecret = getEnv("JWT_SECRET", c.Auth.JWTSecret)
	c.Auth.Issuer = getEnv("JWT_ISSUER", c.Auth.Issuer)
	c.Auth.Audience = getEnv("JWT_AUDIENCE", c.Auth.Audience)
	c.Auth.OperatorPasswordHash = getEnv("WAREHOUSE_OPERATOR_PASSWORD_HASH", c.Auth.OperatorPasswordHash)
	c.Log.Level = strings.ToLower(getEnv("WAREHOUSE_LOG_LEVEL", c.Log.Level))
	c.Log.Format = strings.ToLower(getEnv("WAREHOUSE_LOG_FORMAT", c.Log.Format))
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("invalid %s=%q, using fallback %s", key, raw, fallback)
		return fallback
	}
	return value
}

func intEnv(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("invalid %s=%q, using fallback %d", key, raw, fallback)
		return fallback
	}
	return value
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
