// Package config loads application settings from an optional YAML file and
// environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	yaml "go.yaml.in/yaml/v3"
)

// EnvConfigPath names the environment variable holding the YAML config path.
const EnvConfigPath = "TASKMANAGER_CONFIG"

// Config is the full application configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	JWT       JWTConfig       `yaml:"jwt"`
	Redis     RedisConfig     `yaml:"redis"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Cycle     CycleConfig     `yaml:"cycle"`
	Activity  ActivityConfig  `yaml:"activity"`
	Log       LogConfig       `yaml:"log"`
}

type HTTPConfig struct {
	Port int `yaml:"port"`
}

type DatabaseConfig struct {
	Path  string `yaml:"path"`
	Debug bool   `yaml:"debug"`
}

// JWTConfig durations are Go duration strings ("15m", "168h").
type JWTConfig struct {
	SecretKey       string `yaml:"secret_key"`
	Issuer          string `yaml:"issuer"`
	AccessTokenTTL  string `yaml:"access_token_ttl"`
	RefreshTokenTTL string `yaml:"refresh_token_ttl"`
}

// RedisConfig enables the task cache when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
	TTL      string `yaml:"ttl"`
}

// RateLimitConfig applies per client IP on the public auth routes.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

type CycleConfig struct {
	// MaxCatchUpSteps bounds how many phase steps a single read may take.
	MaxCatchUpSteps int `yaml:"max_catch_up_steps"`
}

type ActivityConfig struct {
	Capacity int `yaml:"capacity"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		HTTP:     HTTPConfig{Port: 3000},
		Database: DatabaseConfig{Path: "taskcycle.db"},
		JWT: JWTConfig{
			SecretKey:       "your-secret-key-change-in-production",
			Issuer:          "taskcycle",
			AccessTokenTTL:  "15m",
			RefreshTokenTTL: "168h",
		},
		Redis: RedisConfig{
			Prefix: "task:",
			TTL:    "5m",
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 5,
			Burst:             10,
		},
		Cycle:    CycleConfig{MaxCatchUpSteps: 64},
		Activity: ActivityConfig{Capacity: 100},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the file named by TASKMANAGER_CONFIG, if any, then applies
// environment overrides and validates the result.
func Load() (Config, error) {
	return LoadFile(os.Getenv(EnvConfigPath))
}

// LoadFile is Load with an explicit file path. An empty path skips the file.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := decodeYAML(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// decodeYAML decodes onto the existing values so omitted keys keep defaults.
func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}

func (c *Config) applyEnv() error {
	var err error
	if c.HTTP.Port, err = getEnvInt("HTTP_PORT", c.HTTP.Port); err != nil {
		return err
	}
	c.Database.Path = getEnv("DB_PATH", c.Database.Path)
	if c.Database.Debug, err = getEnvBool("DB_DEBUG", c.Database.Debug); err != nil {
		return err
	}
	c.JWT.SecretKey = getEnv("JWT_SECRET_KEY", c.JWT.SecretKey)
	c.JWT.Issuer = getEnv("JWT_ISSUER", c.JWT.Issuer)
	c.JWT.AccessTokenTTL = getEnv("JWT_ACCESS_TOKEN_TTL", c.JWT.AccessTokenTTL)
	c.JWT.RefreshTokenTTL = getEnv("JWT_REFRESH_TOKEN_TTL", c.JWT.RefreshTokenTTL)
	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	if c.Cycle.MaxCatchUpSteps, err = getEnvInt("MAX_CATCHUP_STEPS", c.Cycle.MaxCatchUpSteps); err != nil {
		return err
	}
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	return nil
}

// Validate rejects settings the application cannot start with.
func (c Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port: must be in 1..65535, got %d", c.HTTP.Port)
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database.path: required")
	}
	if c.JWT.SecretKey == "" {
		return errors.New("jwt.secret_key: required")
	}
	if _, err := parseDuration("jwt.access_token_ttl", c.JWT.AccessTokenTTL); err != nil {
		return err
	}
	if _, err := parseDuration("jwt.refresh_token_ttl", c.JWT.RefreshTokenTTL); err != nil {
		return err
	}
	if _, err := parseDuration("redis.ttl", c.Redis.TTL); err != nil {
		return err
	}
	if c.RateLimit.RequestsPerSecond < 0 || c.RateLimit.Burst < 0 {
		return errors.New("rate_limit: values must be >= 0")
	}
	if c.Cycle.MaxCatchUpSteps < 1 {
		return fmt.Errorf("cycle.max_catch_up_steps: must be >= 1, got %d", c.Cycle.MaxCatchUpSteps)
	}
	if c.Activity.Capacity < 1 {
		return fmt.Errorf("activity.capacity: must be >= 1, got %d", c.Activity.Capacity)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level: unknown level %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format: unknown format %q", c.Log.Format)
	}
	return nil
}

func (c JWTConfig) AccessTokenDuration() time.Duration {
	return durationOr(c.AccessTokenTTL, 15*time.Minute)
}

func (c JWTConfig) RefreshTokenDuration() time.Duration {
	return durationOr(c.RefreshTokenTTL, 7*24*time.Hour)
}

// Enabled reports whether a Redis address is configured.
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

func (c RedisConfig) TTLDuration() time.Duration {
	return durationOr(c.TTL, 5*time.Minute)
}

func parseDuration(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

func durationOr(raw string, def time.Duration) time.Duration {
	d, err := parseDuration("", raw)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// getEnv returns environment variable value or default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, value)
	}
	return n, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q", key, value)
	}
	return b, nil
}
