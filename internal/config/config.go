// Package config holds the client configuration. Values are layered:
// defaults, then an optional YAML file, then a .env file, then
// ESTACIONAMENTO_* environment variables. Command-line flags are applied on
// top by the CLI before Validate is called.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable the client reads.
const EnvPrefix = "ESTACIONAMENTO_"

// Store backends.
const (
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// ClientConfig holds configuration for the estacionamento client.
type ClientConfig struct {
	Server    string `yaml:"server"`
	CSRFToken string `yaml:"csrf_token"`
	// RequestTimeout bounds each backend attempt. Zero means no timeout.
	RequestTimeout time.Duration  `yaml:"request_timeout"`
	StatusAddr     string         `yaml:"status_addr"`
	Store          StoreConfig    `yaml:"store"`
	Retry          RetryConfig    `yaml:"retry"`
	Notifier       NotifierConfig `yaml:"notifier"`
	Log            LogConfig      `yaml:"log"`
	Mock           MockConfig     `yaml:"mock_backend"`
}

// StoreConfig selects where the credential and badge slots persist.
type StoreConfig struct {
	Backend       string `yaml:"backend"` // sqlite, redis, memory
	Path          string `yaml:"path"`    // SQLite database path
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	RedisPrefix   string `yaml:"redis_prefix"`
}

// RetryConfig controls the resilient fetch loop.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
}

// NotifierConfig controls the exceeded-vehicle poller.
type NotifierConfig struct {
	ActiveInterval     time.Duration `yaml:"active_interval"`
	BackgroundInterval time.Duration `yaml:"background_interval"`
	Bell               bool          `yaml:"bell"`
}

// LogConfig selects the log level and encoding.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MockConfig configures the development backend.
type MockConfig struct {
	Addr               string        `yaml:"addr"`
	JWTSecret          string        `yaml:"jwt_secret"`
	SupervisorPassword string        `yaml:"supervisor_password"`
	TokenTTL           time.Duration `yaml:"token_ttl"`
	CSRFToken          string        `yaml:"csrf_token"`
	Badges             []string      `yaml:"badges"`
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Server: "http://localhost:5000",
		Store: StoreConfig{
			Backend:     StoreSQLite,
			Path:        defaultStorePath(),
			RedisAddr:   "127.0.0.1:6379",
			RedisPrefix: "estacionamento:",
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   time.Second,
		},
		Notifier: NotifierConfig{
			ActiveInterval:     15 * time.Second,
			BackgroundInterval: 60 * time.Second,
			Bell:               true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Mock: MockConfig{
			Addr:               ":5000",
			JWTSecret:          "dev-secret",
			SupervisorPassword: "admin123",
			TokenTTL:           60 * time.Minute,
			Badges:             []string{"1234", "5678"},
		},
	}
}

// defaultStorePath returns ~/.estacionamento/state.db, or a relative path when
// the home directory cannot be resolved.
func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "estacionamento.db"
	}
	return filepath.Join(home, ".estacionamento", "state.db")
}

// Load builds a configuration from defaults, the YAML file at path (skipped
// when path is empty), the given .env files and the environment. Missing .env
// files are ignored; a missing explicit config file is an error.
func Load(path string, envFiles ...string) (*ClientConfig, error) {
	cfg := DefaultClientConfig()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *ClientConfig) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *ClientConfig) applyEnv() error {
	c.Server = getEnv("SERVER", c.Server)
	c.CSRFToken = getEnv("CSRF_TOKEN", c.CSRFToken)
	c.StatusAddr = getEnv("STATUS_ADDR", c.StatusAddr)
	c.Store.Backend = getEnv("STORE", c.Store.Backend)
	c.Store.Path = getEnv("STORE_PATH", c.Store.Path)
	c.Store.RedisAddr = getEnv("REDIS_ADDR", c.Store.RedisAddr)
	c.Store.RedisPassword = getEnv("REDIS_PASSWORD", c.Store.RedisPassword)
	c.Store.RedisPrefix = getEnv("REDIS_PREFIX", c.Store.RedisPrefix)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
	c.Mock.Addr = getEnv("MOCK_ADDR", c.Mock.Addr)
	c.Mock.JWTSecret = getEnv("MOCK_JWT_SECRET", c.Mock.JWTSecret)
	c.Mock.SupervisorPassword = getEnv("MOCK_SUPERVISOR_PASSWORD", c.Mock.SupervisorPassword)
	c.Mock.CSRFToken = getEnv("MOCK_CSRF_TOKEN", c.Mock.CSRFToken)
	if v := getEnv("MOCK_BADGES", ""); v != "" {
		c.Mock.Badges = strings.Split(v, ",")
	}

	var err error
	if c.Store.RedisDB, err = getEnvAsInt("REDIS_DB", c.Store.RedisDB); err != nil {
		return err
	}
	if c.Retry.MaxAttempts, err = getEnvAsInt("RETRY_ATTEMPTS", c.Retry.MaxAttempts); err != nil {
		return err
	}
	if c.Notifier.Bell, err = getEnvAsBool("BELL", c.Notifier.Bell); err != nil {
		return err
	}
	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"REQUEST_TIMEOUT", &c.RequestTimeout},
		{"RETRY_BASE_DELAY", &c.Retry.BaseDelay},
		{"POLL_ACTIVE", &c.Notifier.ActiveInterval},
		{"POLL_BACKGROUND", &c.Notifier.BackgroundInterval},
		{"MOCK_TOKEN_TTL", &c.Mock.TokenTTL},
	}
	for _, d := range durations {
		if *d.dst, err = getEnvAsDuration(d.key, *d.dst); err != nil {
			return err
		}
	}
	return nil
}

// Validate rejects configurations the client cannot run with.
func (c *ClientConfig) Validate() error {
	u, err := url.Parse(c.Server)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid server URL %q", c.Server)
	}
	switch c.Store.Backend {
	case StoreSQLite:
		if c.Store.Path == "" {
			return errors.New("store.path is required for the sqlite backend")
		}
	case StoreRedis:
		if c.Store.RedisAddr == "" {
			return errors.New("store.redis_addr is required for the redis backend")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown store backend %q (want sqlite, redis or memory)", c.Store.Backend)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.BaseDelay < 0 {
		return fmt.Errorf("retry.base_delay must not be negative, got %s", c.Retry.BaseDelay)
	}
	if c.Notifier.ActiveInterval <= 0 || c.Notifier.BackgroundInterval <= 0 {
		return errors.New("notifier intervals must be positive")
	}
	return nil
}

// ServerURL returns the backend base URL without a trailing slash.
func (c *ClientConfig) ServerURL() string {
	return strings.TrimRight(c.Server, "/")
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) (int, error) {
	val := os.Getenv(EnvPrefix + key)
	if val == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback, fmt.Errorf("invalid %s%s: %w", EnvPrefix, key, err)
	}
	return parsed, nil
}

func getEnvAsBool(key string, fallback bool) (bool, error) {
	val := os.Getenv(EnvPrefix + key)
	if val == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback, fmt.Errorf("invalid %s%s: %w", EnvPrefix, key, err)
	}
	return parsed, nil
}

func getEnvAsDuration(key string, fallback time.Duration) (time.Duration, error) {
	val := os.Getenv(EnvPrefix + key)
	if val == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return fallback, fmt.Errorf("invalid %s%s: %w", EnvPrefix, key, err)
	}
	return parsed, nil
}
