// Package config loads client settings from an optional YAML file, a .env
// file and TRIAI_* environment variables, in that order of precedence
// (environment wins).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultStateDir = ".triai"
	fileName        = "config.yaml"
)

type Config struct {
	BaseURL           string        `yaml:"base_url" validate:"required,url"`
	Timeout           time.Duration `yaml:"timeout" validate:"gt=0"`
	PollInterval      time.Duration `yaml:"poll_interval" validate:"gte=100ms"`
	StateDir          string        `yaml:"state_dir" validate:"required"`
	RequestsPerSecond float64       `yaml:"requests_per_second" validate:"gte=0"`
	WorkflowCacheTTL  time.Duration `yaml:"workflow_cache_ttl" validate:"gte=0"`
	HistoryLimit      int           `yaml:"history_limit" validate:"gte=1,lte=200"`
	DisableNetwork    bool          `yaml:"disable_network"`
	Providers         []string      `yaml:"providers" validate:"dive,oneof=openai anthropic google perplexity"`
	Verbose           bool          `yaml:"verbose"`

	// Source is the YAML file that was read, empty when none was found.
	Source string `yaml:"-"`
}

func Default() Config {
	return Config{
		BaseURL:          "http://127.0.0.1:5000",
		Timeout:          180 * time.Second,
		PollInterval:     2 * time.Second,
		StateDir:         DefaultStateDir,
		WorkflowCacheTTL: 10 * time.Minute,
		HistoryLimit:     20,
	}
}

// Load resolves the configuration. An explicit path must exist; without
// one, <state_dir>/config.yaml is read when present.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if dir := strings.TrimSpace(os.Getenv("TRIAI_STATE_DIR")); dir != "" {
		cfg.StateDir = dir
	}

	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = filepath.Join(cfg.StateDir, fileName)
	}
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
		cfg.Source = path
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := env("TRIAI_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := env("TRIAI_STATE_DIR"); v != "" {
		cfg.StateDir = v
	}
	if v := env("TRIAI_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TRIAI_TIMEOUT: %w", err)
		}
		cfg.Timeout = d
	}
	if v := env("TRIAI_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TRIAI_POLL_INTERVAL: %w", err)
		}
		cfg.PollInterval = d
	}
	if v := env("TRIAI_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("TRIAI_RPS: %w", err)
		}
		cfg.RequestsPerSecond = f
	}
	if v := env("TRIAI_DISABLE_NETWORK"); v != "" {
		cfg.DisableNetwork = envBool(v)
	}
	return nil
}

func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, ", "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LogPath is the rotating diagnostics log.
func (c Config) LogPath() string {
	return filepath.Join(c.StateDir, "logs", "triai.log")
}

func env(name string) string { return strings.TrimSpace(os.Getenv(name)) }

func envBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}
