package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ligustah/drivefetch/internal/progress"
)

const (
	// DefaultAPIBase is the Drive v3 API root.
	DefaultAPIBase = "https://www.googleapis.com/drive/v3"

	// DefaultParts is the partition count for single-file downloads.
	DefaultParts = 12

	// DefaultReadSize is the read buffer for chunked fetches.
	DefaultReadSize = 1 << 18
)

// Config defines configuration for the drivefetch CLI.
type Config struct {
	Token        string        `yaml:"token"`
	APIBase      string        `yaml:"api_base"`
	Parts        int           `yaml:"parts"`
	TargetParts  int           `yaml:"target_parts"`
	ReadSize     int64         `yaml:"read_size"`
	Progress     bool          `yaml:"progress"`
	LogLevel     string        `yaml:"log_level"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxIdleConns int           `yaml:"max_idle_conns"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		APIBase:      DefaultAPIBase,
		Parts:        DefaultParts,
		TargetParts:  DefaultParts,
		ReadSize:     DefaultReadSize,
		LogLevel:     "info",
		MaxIdleConns: 100,
	}
}

// yamlConfig is used for YAML unmarshaling with string sizes and durations.
type yamlConfig struct {
	Token        string `yaml:"token"`
	APIBase      string `yaml:"api_base"`
	Parts        int    `yaml:"parts"`
	TargetParts  int    `yaml:"target_parts"`
	ReadSize     string `yaml:"read_size"`
	Progress     bool   `yaml:"progress"`
	LogLevel     string `yaml:"log_level"`
	Timeout      string `yaml:"timeout"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg := Default()

	if yc.Token != "" {
		cfg.Token = yc.Token
	}
	if yc.APIBase != "" {
		cfg.APIBase = yc.APIBase
	}
	if yc.Parts != 0 {
		cfg.Parts = yc.Parts
	}
	if yc.TargetParts != 0 {
		cfg.TargetParts = yc.TargetParts
	}
	if yc.ReadSize != "" {
		size, err := progress.ParseBytes(yc.ReadSize)
		if err != nil {
			return Config{}, fmt.Errorf("parse read_size: %w", err)
		}
		cfg.ReadSize = size
	}
	cfg.Progress = yc.Progress
	if yc.LogLevel != "" {
		cfg.LogLevel = yc.LogLevel
	}
	if yc.Timeout != "" {
		d, err := time.ParseDuration(yc.Timeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if yc.MaxIdleConns != 0 {
		cfg.MaxIdleConns = yc.MaxIdleConns
	}

	return cfg, nil
}

// LoadDotEnv adds the variables of a dotenv file to the process environment.
// Variables that are already set are kept. An empty path reads ./.env and
// ignores it when missing.
func LoadDotEnv(path string) error {
	if path == "" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the DRIVEFETCH_ prefix.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("DRIVEFETCH_TOKEN"); v != "" {
		c.Token = v
	}
	if v := os.Getenv("DRIVEFETCH_API_BASE"); v != "" {
		c.APIBase = v
	}
	if v := os.Getenv("DRIVEFETCH_PARTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse DRIVEFETCH_PARTS: %w", err)
		}
		c.Parts = n
	}
	if v := os.Getenv("DRIVEFETCH_TARGET_PARTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse DRIVEFETCH_TARGET_PARTS: %w", err)
		}
		c.TargetParts = n
	}
	if v := os.Getenv("DRIVEFETCH_READ_SIZE"); v != "" {
		size, err := progress.ParseBytes(v)
		if err != nil {
			return fmt.Errorf("parse DRIVEFETCH_READ_SIZE: %w", err)
		}
		c.ReadSize = size
	}
	if v := os.Getenv("DRIVEFETCH_PROGRESS"); v != "" {
		c.Progress = v == "true" || v == "1"
	}
	if v := os.Getenv("DRIVEFETCH_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("DRIVEFETCH_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse DRIVEFETCH_TIMEOUT: %w", err)
		}
		c.Timeout = d
	}
	if v := os.Getenv("DRIVEFETCH_MAX_IDLE_CONNS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse DRIVEFETCH_MAX_IDLE_CONNS: %w", err)
		}
		c.MaxIdleConns = n
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.APIBase == "" {
		return errors.New("config: api_base is required")
	}
	if c.Parts < 0 {
		return errors.New("config: parts must not be negative")
	}
	if c.TargetParts <= 0 {
		return errors.New("config: target_parts must be positive")
	}
	if c.ReadSize <= 0 {
		return errors.New("config: read_size must be positive")
	}
	if c.Timeout < 0 {
		return errors.New("config: timeout must not be negative")
	}
	return nil
}

// Merge merges override values into c, returning a new Config.
// Zero values in override are ignored.
func (c Config) Merge(override Config) Config {
	if override.Token != "" {
		c.Token = override.Token
	}
	if override.APIBase != "" {
		c.APIBase = override.APIBase
	}
	if override.Parts != 0 {
		c.Parts = override.Parts
	}
	if override.TargetParts != 0 {
		c.TargetParts = override.TargetParts
	}
	if override.ReadSize != 0 {
		c.ReadSize = override.ReadSize
	}
	if override.Progress {
		c.Progress = override.Progress
	}
	if override.LogLevel != "" {
		c.LogLevel = override.LogLevel
	}
	if override.Timeout != 0 {
		c.Timeout = override.Timeout
	}
	if override.MaxIdleConns != 0 {
		c.MaxIdleConns = override.MaxIdleConns
	}
	return c
}
