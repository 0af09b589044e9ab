// Package config holds the declared-type table and the runtime configuration
// loaded from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	CorpusRoot    string        `yaml:"corpus_root"`
	Listen        string        `yaml:"listen"`
	ServerURL     string        `yaml:"server_url"`
	PreviewPrefix string        `yaml:"preview_prefix"`
	Workers       int           `yaml:"workers"`
	MaxExcerpt    int           `yaml:"max_excerpt"`
	MaxFileBytes  int64         `yaml:"max_file_bytes"`
	FileTimeout   time.Duration `yaml:"file_timeout"`
	Debounce      time.Duration `yaml:"debounce"`
	IncludeHidden bool          `yaml:"include_hidden"`
	LogLevel      string        `yaml:"log_level"`
}

// Excerpt and scan limits.
const (
	DefaultMaxExcerpt   = 200
	DefaultMaxFileBytes = 64 << 20
	DefaultDebounce     = 300 * time.Millisecond
	DefaultFileTimeout  = 30 * time.Second
)

// DefaultConfig returns a configuration with sane defaults.
func DefaultConfig() *Config {
	return &Config{
		CorpusRoot:    "public/preview",
		Listen:        ":8080",
		ServerURL:     "http://localhost:8080",
		PreviewPrefix: "/preview",
		Workers:       runtime.NumCPU() * 2,
		MaxExcerpt:    DefaultMaxExcerpt,
		MaxFileBytes:  DefaultMaxFileBytes,
		FileTimeout:   DefaultFileTimeout,
		Debounce:      DefaultDebounce,
		LogLevel:      "info",
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// environment variables, then validates it. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.CorpusRoot = getEnv("DOCSEARCH_ROOT", c.CorpusRoot)
	c.Listen = getEnv("DOCSEARCH_LISTEN", c.Listen)
	c.ServerURL = getEnv("DOCSEARCH_SERVER", c.ServerURL)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	if v := os.Getenv("DOCSEARCH_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Workers = n
		}
	}
}

// Validate checks the configuration for inconsistent values.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.CorpusRoot) == "" {
		return errors.New("corpus_root is required")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.MaxExcerpt <= 0 {
		return fmt.Errorf("max_excerpt must be positive, got %d", c.MaxExcerpt)
	}
	if c.MaxFileBytes <= 0 {
		return fmt.Errorf("max_file_bytes must be positive, got %d", c.MaxFileBytes)
	}
	if c.Debounce < 0 || c.FileTimeout < 0 {
		return errors.New("durations must not be negative")
	}
	if !strings.HasPrefix(c.PreviewPrefix, "/") {
		return fmt.Errorf("preview_prefix must start with '/', got %q", c.PreviewPrefix)
	}
	c.PreviewPrefix = strings.TrimRight(c.PreviewPrefix, "/")
	if c.PreviewPrefix == "" {
		return errors.New("preview_prefix must not be the site root")
	}
	return nil
}

// PreviewURL returns the public URL for a corpus-relative posix path.
func (c *Config) PreviewURL(name string) string {
	return PreviewPath(c.PreviewPrefix, name)
}

// urlReserved escapes the characters that would end or corrupt a URL path.
var urlReserved = strings.NewReplacer("%", "%25", "?", "%3F", "#", "%23")

// PreviewPath joins the preview prefix and a corpus-relative name into a
// root-relative URL. Only '%', '?' and '#' are percent-encoded, so ordinary
// names (CJK included) read the same as on disk.
func PreviewPath(prefix, name string) string {
	return strings.TrimRight(prefix, "/") + "/" + urlReserved.Replace(strings.TrimLeft(name, "/"))
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
