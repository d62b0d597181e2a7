// Package config provides configuration management for scormkit using Viper
// for flexible loading from files, environment variables, and command-line
// flags.
//
// Configuration is read from .scormkit.yml with SCORMKIT_ prefixed
// environment variable overrides (SCORMKIT_SERVER_PORT, and so on, following
// the SCORMKIT_<SECTION>_<OPTION> pattern).
package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Workspace WorkspaceConfig `yaml:"workspace"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Resolver  ResolverConfig  `yaml:"resolver"`
	Cache     CacheConfig     `yaml:"cache"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// Mount is the public URL prefix extracted content is served under;
	// launch URLs take the shape <mount>/<courseId>/<path>.
	Mount          string   `yaml:"mount"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type WorkspaceConfig struct {
	// Dir is the root under which one directory per courseId is created.
	Dir string `yaml:"dir"`
}

type FetchConfig struct {
	// Timeout bounds the archive download; extraction itself is not
	// bounded here.
	Timeout time.Duration `yaml:"timeout"`
	// MaxBytes caps the downloaded archive size. Zero means no cap.
	MaxBytes int64 `yaml:"max_bytes"`
}

type ResolverConfig struct {
	// FallbackFilenames is the ordered list of conventional launch files
	// probed when a declared href does not exist. Order matters: first
	// match wins.
	FallbackFilenames []string `yaml:"fallback_filenames"`
}

type CacheConfig struct {
	// MaxEntries bounds the result cache; least recently used entries are
	// evicted past it.
	MaxEntries int `yaml:"max_entries"`
	// TTL expires cached results. Zero means entries never expire.
	TTL time.Duration `yaml:"ttl"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultFallbackFilenames is the launch-file heuristic applied when a
// manifest's declared href points at a file that is not there. These are the
// names common authoring tools actually emit.
func DefaultFallbackFilenames() []string {
	return []string{
		"index_lms.html",
		"story.html",
		"index.html",
		"start.html",
		"launch.html",
		"course.html",
		"default.html",
	}
}

// Load builds a Config from viper state, applying defaults for everything
// not explicitly set.
func Load() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if config.Server.Host == "" {
		config.Server.Host = "localhost"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8090
	}
	if config.Server.Mount == "" {
		config.Server.Mount = "/content"
	}
	// Underscore-named keys do not survive viper's Unmarshal field matching;
	// read them explicitly (same workaround as the slice handling below).
	if viper.IsSet("server.allowed_origins") && len(config.Server.AllowedOrigins) == 0 {
		config.Server.AllowedOrigins = viper.GetStringSlice("server.allowed_origins")
	}

	if dir := viper.GetString("workspace.dir"); dir != "" && config.Workspace.Dir == "" {
		config.Workspace.Dir = dir
	}
	if config.Workspace.Dir == "" {
		config.Workspace.Dir = ".scormkit/courses"
	}

	if config.Fetch.Timeout == 0 {
		config.Fetch.Timeout = 60 * time.Second
	}
	if viper.IsSet("fetch.max_bytes") && config.Fetch.MaxBytes == 0 {
		config.Fetch.MaxBytes = viper.GetInt64("fetch.max_bytes")
	}

	// Workaround for viper slice handling: explicit values arrive via
	// viper even when Unmarshal leaves the field empty.
	if viper.IsSet("resolver.fallback_filenames") && len(config.Resolver.FallbackFilenames) == 0 {
		config.Resolver.FallbackFilenames = viper.GetStringSlice("resolver.fallback_filenames")
	}
	if len(config.Resolver.FallbackFilenames) == 0 {
		config.Resolver.FallbackFilenames = DefaultFallbackFilenames()
	}

	if viper.IsSet("cache.max_entries") && config.Cache.MaxEntries == 0 {
		config.Cache.MaxEntries = viper.GetInt("cache.max_entries")
	}
	if config.Cache.MaxEntries == 0 {
		config.Cache.MaxEntries = 1024
	}

	if config.Log.Level == "" {
		config.Log.Level = viper.GetString("log-level")
	}
	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.Format == "" {
		config.Log.Format = "text"
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}
