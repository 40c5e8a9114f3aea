// File path: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/plainlyai/enablr/internal/common"
	"github.com/plainlyai/enablr/internal/sqlite"
)

// PathEnv names the environment variable holding the YAML config path.
const PathEnv = "ENABLR_CONFIG"

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	SQLite    sqlite.Config   `yaml:"sqlite"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Gemini    GeminiConfig    `yaml:"gemini"`
	Search    SearchConfig    `yaml:"search"`
	Chat      ChatConfig      `yaml:"chat"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	DataDir   string          `yaml:"data_dir"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr              string        `yaml:"addr"`
	AdminToken        string        `yaml:"admin_token"`
	AllowedOrigins    []string      `yaml:"allowed_origins"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
}

// OpenAIConfig configures the provider used by chat and content analysis.
type OpenAIConfig struct {
	APIKey   string        `yaml:"api_key"`
	Model    string        `yaml:"model"`
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
}

// GeminiConfig configures the provider used by lead discovery.
type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// SearchConfig configures the Google Custom Search client.
type SearchConfig struct {
	APIKey            string        `yaml:"api_key"`
	EngineID          string        `yaml:"cx"`
	Endpoint          string        `yaml:"endpoint"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
}

// ChatConfig bounds chatbot conversations.
type ChatConfig struct {
	MaxMessageRunes int     `yaml:"max_message_runes"`
	MaxTurns        int     `yaml:"max_turns"`
	HistoryWindow   int     `yaml:"history_window"`
	MaxTokens       int     `yaml:"max_tokens"`
	Temperature     float64 `yaml:"temperature"`
}

// DiscoveryConfig bounds one discovery run.
type DiscoveryConfig struct {
	ItemTimeout time.Duration `yaml:"item_timeout"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 10 * time.Second,
			ShutdownTimeout:   15 * time.Second,
		},
		OpenAI: OpenAIConfig{
			Model:   "gpt-4o-mini",
			Timeout: 60 * time.Second,
		},
		Gemini: GeminiConfig{Model: "gemini-2.0-flash"},
		Search: SearchConfig{
			Endpoint:          "https://www.googleapis.com/customsearch/v1",
			Timeout:           15 * time.Second,
			RequestsPerSecond: 1,
			Burst:             2,
		},
		Chat: ChatConfig{
			MaxMessageRunes: 1000,
			MaxTurns:        50,
			HistoryWindow:   10,
			MaxTokens:       300,
			Temperature:     0.3,
		},
		Discovery: DiscoveryConfig{
			ItemTimeout: 45 * time.Second,
		},
		DataDir: "data",
	}
}

// Load builds the configuration from defaults, the YAML file at path (or
// $ENABLR_CONFIG when path is empty) and environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		path = strings.TrimSpace(os.Getenv(PathEnv))
	}
	if path != "" {
		raw, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return Config{}, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	setString := func(target *string, names ...string) {
		for _, name := range names {
			if v := strings.TrimSpace(os.Getenv(name)); v != "" {
				*target = v
				return
			}
		}
	}
	setString(&c.Server.Addr, "ENABLR_ADDR")
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" && os.Getenv("ENABLR_ADDR") == "" {
		c.Server.Addr = ":" + port
	}
	setString(&c.Server.AdminToken, "ADMIN_API_TOKEN")
	if origins := strings.TrimSpace(os.Getenv("ENABLR_ALLOWED_ORIGINS")); origins != "" {
		c.Server.AllowedOrigins = splitList(origins)
	}
	setString(&c.DataDir, "ENABLR_DATA_DIR")

	setString(&c.OpenAI.APIKey, "OPENAI_API_KEY")
	setString(&c.OpenAI.Model, "OPENAI_CHAT_MODEL")
	setString(&c.OpenAI.Endpoint, "OPENAI_ENDPOINT")
	if err := setDuration(&c.OpenAI.Timeout, "OPENAI_HTTP_TIMEOUT"); err != nil {
		return err
	}

	setString(&c.Search.APIKey, "GOOGLE_SEARCH_API_KEY")
	setString(&c.Search.EngineID, "GOOGLE_SEARCH_CX")
	setString(&c.Search.Endpoint, "GOOGLE_SEARCH_ENDPOINT")

	setString(&c.Gemini.APIKey, "GEMINI_API_KEY")
	setString(&c.Gemini.Model, "GEMINI_MODEL")

	sqliteEnv, err := sqlite.ConfigFromEnv()
	if err != nil {
		return err
	}
	c.SQLite = c.SQLite.Merge(sqliteEnv)
	return nil
}

func (c *Config) applyDefaults() {
	defaults := Default()
	if strings.TrimSpace(c.Server.Addr) == "" {
		c.Server.Addr = defaults.Server.Addr
	}
	if c.Server.ReadHeaderTimeout <= 0 {
		c.Server.ReadHeaderTimeout = defaults.Server.ReadHeaderTimeout
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = defaults.Server.ShutdownTimeout
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = defaults.DataDir
	}
	if strings.TrimSpace(c.SQLite.Path) == "" {
		c.SQLite.Path = filepath.Join(c.DataDir, "enablr.db")
	}
	c.SQLite.ApplyDefaults()
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = defaults.OpenAI.Model
	}
	if c.OpenAI.Timeout <= 0 {
		c.OpenAI.Timeout = defaults.OpenAI.Timeout
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = defaults.Gemini.Model
	}
	// Gemini falls back to the search API key.
	if c.Gemini.APIKey == "" {
		c.Gemini.APIKey = c.Search.APIKey
	}
	if c.Search.Endpoint == "" {
		c.Search.Endpoint = defaults.Search.Endpoint
	}
	if c.Search.Timeout <= 0 {
		c.Search.Timeout = defaults.Search.Timeout
	}
	if c.Search.RequestsPerSecond <= 0 {
		c.Search.RequestsPerSecond = defaults.Search.RequestsPerSecond
	}
	if c.Search.Burst <= 0 {
		c.Search.Burst = defaults.Search.Burst
	}
	if c.Chat.MaxMessageRunes == 0 {
		c.Chat.MaxMessageRunes = defaults.Chat.MaxMessageRunes
	}
	if c.Chat.MaxTurns == 0 {
		c.Chat.MaxTurns = defaults.Chat.MaxTurns
	}
	if c.Chat.HistoryWindow == 0 {
		c.Chat.HistoryWindow = defaults.Chat.HistoryWindow
	}
	if c.Chat.MaxTokens == 0 {
		c.Chat.MaxTokens = defaults.Chat.MaxTokens
	}
	if c.Discovery.ItemTimeout <= 0 {
		c.Discovery.ItemTimeout = defaults.Discovery.ItemTimeout
	}
}

// Validate rejects settings the service cannot run with. Missing API keys
// are not errors here; the features that need them report it when used.
func (c Config) Validate() error {
	var errs []error
	if _, port, err := net.SplitHostPort(c.Server.Addr); err != nil {
		errs = append(errs, common.NewValidationError("server.addr", err.Error()))
	} else if n, err := strconv.Atoi(port); err != nil || n < 0 || n > 65535 {
		errs = append(errs, common.NewValidationError("server.addr", fmt.Sprintf("invalid port %q", port)))
	}
	if c.Chat.MaxMessageRunes < 0 {
		errs = append(errs, common.NewValidationError("chat.max_message_runes", "must not be negative"))
	}
	if c.Chat.MaxTurns < 0 {
		errs = append(errs, common.NewValidationError("chat.max_turns", "must not be negative"))
	}
	if c.Chat.HistoryWindow < 0 {
		errs = append(errs, common.NewValidationError("chat.history_window", "must not be negative"))
	}
	if c.Chat.Temperature < 0 || c.Chat.Temperature > 2 {
		errs = append(errs, common.NewValidationError("chat.temperature", "must be between 0 and 2"))
	}
	return errors.Join(errs...)
}

func setDuration(target *time.Duration, name string) error {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	*target = d
	return nil
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
