// File path: internal/sqlite/config.go
package sqlite

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config controls the SQLite connection pool. Durations are accepted as Go
// duration strings in files and environment variables.
type Config struct {
	Path string `yaml:"path"`

	MaxOpenConns int `yaml:"max_open_conns"`
	MaxIdleConns int `yaml:"max_idle_conns"`

	ConnMaxLifetime       time.Duration `yaml:"-"`
	ConnMaxLifetimeString string        `yaml:"conn_max_lifetime"`

	ConnMaxIdleTime       time.Duration `yaml:"-"`
	ConnMaxIdleTimeString string        `yaml:"conn_max_idle_time"`

	BusyTimeout       time.Duration `yaml:"-"`
	BusyTimeoutString string        `yaml:"busy_timeout"`
}

// DefaultPath is used when neither file nor environment name a database.
const DefaultPath = "data/enablr.db"

func (c Config) Merge(override Config) Config {
	result := c
	if strings.TrimSpace(override.Path) != "" {
		result.Path = strings.TrimSpace(override.Path)
	}
	if override.MaxOpenConns > 0 {
		result.MaxOpenConns = override.MaxOpenConns
	}
	if override.MaxIdleConns > 0 {
		result.MaxIdleConns = override.MaxIdleConns
	}
	if override.ConnMaxLifetime > 0 {
		result.ConnMaxLifetime = override.ConnMaxLifetime
	}
	if strings.TrimSpace(override.ConnMaxLifetimeString) != "" {
		result.ConnMaxLifetimeString = strings.TrimSpace(override.ConnMaxLifetimeString)
	}
	if override.ConnMaxIdleTime > 0 {
		result.ConnMaxIdleTime = override.ConnMaxIdleTime
	}
	if strings.TrimSpace(override.ConnMaxIdleTimeString) != "" {
		result.ConnMaxIdleTimeString = strings.TrimSpace(override.ConnMaxIdleTimeString)
	}
	if override.BusyTimeout > 0 {
		result.BusyTimeout = override.BusyTimeout
	}
	if strings.TrimSpace(override.BusyTimeoutString) != "" {
		result.BusyTimeoutString = strings.TrimSpace(override.BusyTimeoutString)
	}
	return result
}

// LoadConfig reads SQLITE_CONFIG_FILE (YAML) when set, then SQLITE_* overrides.
func LoadConfig() (Config, error) {
	cfg := Config{}
	if path := strings.TrimSpace(os.Getenv("SQLITE_CONFIG_FILE")); path != "" {
		fileCfg, err := loadConfigFile(path)
		if err != nil {
			return Config{}, err
		}
		cfg = cfg.Merge(fileCfg)
	}
	envCfg, err := ConfigFromEnv()
	if err != nil {
		return Config{}, err
	}
	cfg = cfg.Merge(envCfg)
	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults resolves duration strings and fills unset pool settings.
func (c *Config) ApplyDefaults() {
	if strings.TrimSpace(c.Path) == "" {
		c.Path = DefaultPath
	}
	// SQLite allows a single writer; a small pool keeps busy waits short.
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 4
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = c.MaxOpenConns
	}
	c.ConnMaxLifetime = resolveDuration(c.ConnMaxLifetime, c.ConnMaxLifetimeString, 15*time.Minute)
	c.ConnMaxIdleTime = resolveDuration(c.ConnMaxIdleTime, c.ConnMaxIdleTimeString, 5*time.Minute)
	c.BusyTimeout = resolveDuration(c.BusyTimeout, c.BusyTimeoutString, 5*time.Second)
}

func resolveDuration(current time.Duration, raw string, fallback time.Duration) time.Duration {
	if current > 0 {
		return current
	}
	if raw = strings.TrimSpace(raw); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}

func loadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("read sqlite config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse sqlite config: %w", err)
	}
	return cfg, nil
}

// ConfigFromEnv reads the SQLITE_* environment variables.
func ConfigFromEnv() (Config, error) {
	cfg := Config{}
	if path := strings.TrimSpace(os.Getenv("SQLITE_PATH")); path != "" {
		cfg.Path = path
	}
	for _, item := range []struct {
		name   string
		target *int
	}{
		{"SQLITE_MAX_OPEN_CONNS", &cfg.MaxOpenConns},
		{"SQLITE_MAX_IDLE_CONNS", &cfg.MaxIdleConns},
	} {
		raw := strings.TrimSpace(os.Getenv(item.name))
		if raw == "" {
			continue
		}
		value, err := strconv.Atoi(raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", item.name, err)
		}
		if value > 0 {
			*item.target = value
		}
	}
	cfg.ConnMaxLifetimeString = strings.TrimSpace(os.Getenv("SQLITE_CONN_MAX_LIFETIME"))
	cfg.ConnMaxIdleTimeString = strings.TrimSpace(os.Getenv("SQLITE_CONN_MAX_IDLE_TIME"))
	cfg.BusyTimeoutString = strings.TrimSpace(os.Getenv("SQLITE_BUSY_TIMEOUT"))
	return cfg, nil
}
