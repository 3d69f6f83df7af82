package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port              string        `yaml:"port"`
	BindAddress       string        `yaml:"bind_address"`
	LogLevel          string        `yaml:"log_level"`
	LogFormat         string        `yaml:"log_format"`
	DatabaseURL       string        `yaml:"database_url"`
	NATSURL           string        `yaml:"nats_url"`
	NATSSubjectPrefix string        `yaml:"nats_subject_prefix"`
	TeamsDelay        time.Duration `yaml:"teams_delay"`
	ExportDelay       time.Duration `yaml:"export_delay"`
	DefaultMode       string        `yaml:"default_mode"`
	AllowedOrigins    []string      `yaml:"allowed_origins"`
}

func Default() *Config {
	return &Config{
		Port:              "8080",
		BindAddress:       "",
		LogLevel:          "info",
		LogFormat:         "json",
		NATSSubjectPrefix: "coachdraft",
		TeamsDelay:        50 * time.Millisecond,
		ExportDelay:       150 * time.Millisecond,
		DefaultMode:       "linear",
		AllowedOrigins:    []string{"*"},
	}
}

// Load layers defaults, then the YAML file at path (if path is non-empty), then the
// environment. A .env file in the working directory is loaded first when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Addr() string {
	return c.BindAddress + ":" + c.Port
}

func applyEnv(cfg *Config) error {
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.BindAddress = getEnv("BIND_ADDRESS", cfg.BindAddress)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.NATSURL = getEnv("NATS_URL", cfg.NATSURL)
	cfg.NATSSubjectPrefix = getEnv("NATS_SUBJECT_PREFIX", cfg.NATSSubjectPrefix)
	cfg.DefaultMode = getEnv("DEFAULT_MODE", cfg.DefaultMode)
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = strings.Split(v, ",")
	}

	var err error
	if cfg.TeamsDelay, err = getEnvAsDuration("TEAMS_DELAY", cfg.TeamsDelay); err != nil {
		return err
	}
	if cfg.ExportDelay, err = getEnvAsDuration("EXPORT_DELAY", cfg.ExportDelay); err != nil {
		return err
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
