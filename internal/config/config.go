package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const EnvPrefix = "TOKOKU"

const (
	SessionBackendFile   = "file"
	SessionBackendRedis  = "redis"
	SessionBackendMemory = "memory"
)

type Config struct {
	// APIBaseURL empty means demo mode against the in-process seeded backend.
	APIBaseURL     string        `envconfig:"API_BASE_URL"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"15s"`
	TerminalID     string        `envconfig:"TERMINAL_ID" default:"terminal-1"`

	SessionBackend string        `envconfig:"SESSION_BACKEND" default:"file"`
	SessionFile    string        `envconfig:"SESSION_FILE"`
	SessionKey     string        `envconfig:"SESSION_KEY"`
	SessionTTL     time.Duration `envconfig:"SESSION_TTL" default:"12h"`

	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"console"`

	MetricsAddr string `envconfig:"METRICS_ADDR"`

	SearchDebounce time.Duration `envconfig:"SEARCH_DEBOUNCE" default:"500ms"`
	ToastDuration  time.Duration `envconfig:"TOAST_DURATION" default:"3s"`
	BannerDuration time.Duration `envconfig:"BANNER_DURATION" default:"3s"`

	DemoAuthSecret string `envconfig:"DEMO_AUTH_SECRET"`
}

// Load reads an optional .env file and then the TOKOKU_* environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}

	cfg.APIBaseURL = strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	cfg.SessionBackend = strings.ToLower(strings.TrimSpace(cfg.SessionBackend))
	cfg.SessionKey = strings.TrimSpace(cfg.SessionKey)
	if cfg.SessionFile == "" {
		cfg.SessionFile = defaultSessionFile()
	}
	return cfg, nil
}

func (c Config) DemoMode() bool {
	return c.APIBaseURL == ""
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "tokoku", "session.json")
}
