// Package config loads the pikchr tool configuration from TOML.
//
// The file lives at $XDG_CONFIG_HOME/pikchr/config.toml (falling back to
// ~/.config/pikchr/config.toml) and may be overridden with --config.
// A missing default file is not an error; every field has a default.
// Unknown keys are rejected so typos do not silently fall back to defaults.
//
//	[render]
//	dark_mode = false
//	html_errors = false
//	class = ""
//	formats = ["svg"]
//	scale = 2.0
//	background = ""
//
//	[cache]
//	backend = "file"        # file | redis | none
//	dir = ""                # default $XDG_CACHE_HOME/pikchr
//	ttl = "168h"
//	redis_url = "redis://localhost:6379/0"
//	prefix = ""            # redis default "pikchr:"
//
//	[server]
//	addr = ":8080"
//	max_body_bytes = 1048576
//	read_timeout = "10s"
//	write_timeout = "30s"
//
// Command-line flags override values from the file.
package config

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/pikchr/pkg/cache"
	"github.com/matzehuels/pikchr/pkg/convert"
	"github.com/matzehuels/pikchr/pkg/errors"
	"github.com/matzehuels/pikchr/pkg/pikchr"
)

// AppName is the directory name used under the XDG config and cache roots.
const AppName = "pikchr"

// Cache backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendNone  = "none"
)

// Config is the full tool configuration.
type Config struct {
	Render RenderConfig `toml:"render"`
	Cache  CacheConfig  `toml:"cache"`
	Server ServerConfig `toml:"server"`
}

// RenderConfig holds defaults for every render.
type RenderConfig struct {
	DarkMode   bool     `toml:"dark_mode"`
	HTMLErrors bool     `toml:"html_errors"`
	Class      string   `toml:"class"`
	Formats    []string `toml:"formats"`
	Scale      float64  `toml:"scale"`
	Background string   `toml:"background"`
}

// CacheConfig selects and configures the artifact cache.
type CacheConfig struct {
	Backend  string        `toml:"backend"`
	Dir      string        `toml:"dir"`
	TTL      time.Duration `toml:"ttl"`
	RedisURL string        `toml:"redis_url"`
	Prefix   string        `toml:"prefix"`
}

// ServerConfig configures the HTTP render server.
type ServerConfig struct {
	Addr         string        `toml:"addr"`
	MaxBodyBytes int64         `toml:"max_body_bytes"`
	ReadTimeout  time.Duration `toml:"read_timeout"`
	WriteTimeout time.Duration `toml:"write_timeout"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Render: RenderConfig{
			Formats: []string{errors.FormatSVG},
			Scale:   2.0,
		},
		Cache: CacheConfig{
			Backend:  BackendFile,
			TTL:      cache.TTLArtifact,
			RedisURL: "redis://localhost:6379/0",
		},
		Server: ServerConfig{
			Addr:         ":8080",
			MaxBodyBytes: 1 << 20,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
	}
}

// DefaultPath returns the config file path using the XDG standard.
func DefaultPath() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, AppName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", AppName, "config.toml"), nil
}

// DefaultCacheDir returns the cache directory using XDG standard (~/.cache/pikchr/).
func DefaultCacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", AppName), nil
}

// Load reads the configuration at path on top of the defaults.
//
// An empty path means [DefaultPath]; in that case a missing file yields the
// defaults. An explicit path that does not exist is an error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return Default(), nil
		}
		path = p
	}

	f, err := os.Open(path)
	if os.IsNotExist(err) && !explicit {
		return Default(), nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.Classify(err), err, "open config %s", path)
	}
	defer f.Close()

	cfg, err := Decode(f)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "load config %s", path)
	}
	return cfg, nil
}

// Decode parses TOML on top of the defaults and validates the result.
func Decode(r io.Reader) (*Config, error) {
	cfg := Default()
	md, err := toml.NewDecoder(r).Decode(cfg)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse toml")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown keys: %s", strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Encode writes the configuration as TOML.
func (c *Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

// Validate checks every section and returns the first problem found.
func (c *Config) Validate() error {
	if err := errors.ValidateFormats(c.Render.Formats); err != nil {
		return err
	}
	if err := errors.ValidateScale(c.Render.Scale); err != nil {
		return err
	}
	if err := errors.ValidateClassName(c.Render.Class); err != nil {
		return err
	}
	if _, err := convert.ParseBackground(c.Render.Background); err != nil {
		return err
	}

	switch c.Cache.Backend {
	case BackendFile, BackendNone:
	case BackendRedis:
		if err := errors.ValidateRedisURL(c.Cache.RedisURL); err != nil {
			return err
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown cache backend %q (want file, redis or none)", c.Cache.Backend)
	}
	if c.Cache.TTL < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "cache ttl cannot be negative")
	}

	if c.Server.Addr == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "server addr cannot be empty")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "server max_body_bytes must be positive")
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "server timeouts cannot be negative")
	}
	return nil
}

// Flags converts the render section into renderer flags.
func (c *Config) Flags() pikchr.Flags {
	f := pikchr.DefaultFlags()
	if c.Render.DarkMode {
		f.UseDarkMode()
	}
	if c.Render.HTMLErrors {
		f.GenerateHTMLErrors()
	}
	return f
}
