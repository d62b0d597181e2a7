package config

import (
	"fmt"
	"strings"
)

// Validate checks the configuration for values that would fail at runtime,
// with messages specific enough to fix the offending field directly.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is outside the valid range 1-65535", c.Server.Port)
	}
	if !strings.HasPrefix(c.Server.Mount, "/") {
		return fmt.Errorf("server.mount %q must start with '/'", c.Server.Mount)
	}
	if strings.HasSuffix(c.Server.Mount, "/") && c.Server.Mount != "/" {
		return fmt.Errorf("server.mount %q must not end with '/'", c.Server.Mount)
	}

	if c.Workspace.Dir == "" {
		return fmt.Errorf("workspace.dir must not be empty")
	}

	if c.Fetch.Timeout < 0 {
		return fmt.Errorf("fetch.timeout must not be negative, got %s", c.Fetch.Timeout)
	}
	if c.Fetch.MaxBytes < 0 {
		return fmt.Errorf("fetch.max_bytes must not be negative, got %d", c.Fetch.MaxBytes)
	}

	for i, name := range c.Resolver.FallbackFilenames {
		if name == "" {
			return fmt.Errorf("resolver.fallback_filenames[%d] is empty", i)
		}
		if strings.ContainsAny(name, "/\\") {
			return fmt.Errorf("resolver.fallback_filenames[%d] %q must be a bare filename, not a path", i, name)
		}
	}

	if c.Cache.MaxEntries < 1 {
		return fmt.Errorf("cache.max_entries must be at least 1, got %d", c.Cache.MaxEntries)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative, got %s", c.Cache.TTL)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format %q is not one of text, json", c.Log.Format)
	}

	return nil
}
