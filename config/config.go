package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultAPIKeyEnv is where the AI credential is read from unless the config
// names another variable.
const DefaultAPIKeyEnv = "API_KEY"

// Config is the whole application configuration.
type Config struct {
	ServerAddr string        `json:"server_addr,omitempty" yaml:"server_addr,omitempty"`
	LLM        *LLMConfig    `json:"llm,omitempty" yaml:"llm,omitempty"`
	Retry      RetryConfig   `json:"retry" yaml:"retry"`
	Breaker    BreakerConfig `json:"breaker" yaml:"breaker"`
	Renderer   RenderConfig  `json:"renderer" yaml:"renderer"`
	Log        LogConfig     `json:"log" yaml:"log"`
	// StoreSize caps how many diagrams the server keeps in memory.
	StoreSize int `json:"store_size,omitempty" yaml:"store_size,omitempty"`
}

// LLMConfig selects and authenticates the text-generation endpoint.
type LLMConfig struct {
	Provider  string `json:"provider,omitempty" yaml:"provider,omitempty"`
	Model     string `json:"model,omitempty" yaml:"model,omitempty"`
	APIKey    string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	APIKeyEnv string `json:"api_key_env,omitempty" yaml:"api_key_env,omitempty"`
	BaseURL   string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	TimeoutMS int    `json:"timeout_ms,omitempty" yaml:"timeout_ms,omitempty"`
}

type RetryConfig struct {
	MaxAttempts int `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`
	BaseDelayMS int `json:"base_delay_ms,omitempty" yaml:"base_delay_ms,omitempty"`
}

type BreakerConfig struct {
	Enabled             bool   `json:"enabled" yaml:"enabled"`
	ConsecutiveFailures uint32 `json:"consecutive_failures,omitempty" yaml:"consecutive_failures,omitempty"`
	OpenTimeoutMS       int    `json:"open_timeout_ms,omitempty" yaml:"open_timeout_ms,omitempty"`
}

type RenderConfig struct {
	Command         string   `json:"command,omitempty" yaml:"command,omitempty"`
	Args            []string `json:"args,omitempty" yaml:"args,omitempty"`
	PuppeteerConfig string   `json:"puppeteer_config,omitempty" yaml:"puppeteer_config,omitempty"`
	Theme           string   `json:"theme,omitempty" yaml:"theme,omitempty"`
	SecurityLevel   string   `json:"security_level,omitempty" yaml:"security_level,omitempty"`
	FontFamily      string   `json:"font_family,omitempty" yaml:"font_family,omitempty"`
	Curve           string   `json:"curve,omitempty" yaml:"curve,omitempty"`
	MaxTextSize     int      `json:"max_text_size,omitempty" yaml:"max_text_size,omitempty"`
	TimeoutMS       int      `json:"timeout_ms,omitempty" yaml:"timeout_ms,omitempty"`
}

type LogConfig struct {
	Level  string `json:"level,omitempty" yaml:"level,omitempty"`
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
	// File enables a size-rotated log file in addition to stderr.
	File       string `json:"file,omitempty" yaml:"file,omitempty"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty" yaml:"max_size_mb,omitempty"`
	MaxBackups int    `json:"max_backups,omitempty" yaml:"max_backups,omitempty"`
	MaxAgeDays int    `json:"max_age_days,omitempty" yaml:"max_age_days,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		ServerAddr: ":8080",
		LLM:        &LLMConfig{Provider: "gemini", APIKeyEnv: DefaultAPIKeyEnv},
		Retry:      RetryConfig{MaxAttempts: 3, BaseDelayMS: 1000},
		Breaker:    BreakerConfig{Enabled: true, ConsecutiveFailures: 5, OpenTimeoutMS: 30000},
		Renderer:   RenderConfig{Command: "mmdc", Theme: "dark", TimeoutMS: 30000},
		Log:        LogConfig{Level: "info", Format: "text", MaxSizeMB: 10, MaxBackups: 3, MaxAgeDays: 28},
		StoreSize:  128,
	}
}

// Load reads a JSON or YAML config file (by extension) and fills in the API
// credential from the environment. A missing file at path yields defaults, so
// a bare `.env` with API_KEY is enough to run. Variables from a .env file in
// the working directory are loaded first; real environment variables win.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Config{}, err
		default:
			if err := decode(data, path, &cfg); err != nil {
				return Config{}, err
			}
		}
	}

	cfg.applyDefaults()
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = strings.TrimSpace(os.Getenv(cfg.LLM.APIKeyEnv))
	}
	return cfg, cfg.Validate()
}

func decode(data []byte, path string, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("config: parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	d := Default()
	if c.ServerAddr == "" {
		c.ServerAddr = d.ServerAddr
	}
	if c.LLM == nil {
		c.LLM = d.LLM
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = d.LLM.Provider
	}
	if c.LLM.APIKeyEnv == "" {
		c.LLM.APIKeyEnv = DefaultAPIKeyEnv
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = d.Retry.MaxAttempts
	}
	if c.Retry.BaseDelayMS <= 0 {
		c.Retry.BaseDelayMS = d.Retry.BaseDelayMS
	}
	if c.Breaker.ConsecutiveFailures == 0 {
		c.Breaker.ConsecutiveFailures = d.Breaker.ConsecutiveFailures
	}
	if c.Breaker.OpenTimeoutMS <= 0 {
		c.Breaker.OpenTimeoutMS = d.Breaker.OpenTimeoutMS
	}
	if c.Renderer.Command == "" {
		c.Renderer.Command = d.Renderer.Command
	}
	if c.Renderer.Theme == "" {
		c.Renderer.Theme = d.Renderer.Theme
	}
	if c.Renderer.TimeoutMS <= 0 {
		c.Renderer.TimeoutMS = d.Renderer.TimeoutMS
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
	if c.StoreSize <= 0 {
		c.StoreSize = d.StoreSize
	}
}

// Validate reports configuration that cannot work. A missing API key is not
// an error here: only commands that call the model need one.
func (c Config) Validate() error {
	if c.LLM == nil {
		return errors.New("config: llm section missing")
	}
	switch c.LLM.Provider {
	case "gemini", "openai", "deepseek", "mock":
	default:
		return fmt.Errorf("config: llm provider %q not supported", c.LLM.Provider)
	}
	if c.Retry.MaxAttempts > 10 {
		return fmt.Errorf("config: retry.max_attempts %d is too large", c.Retry.MaxAttempts)
	}
	return nil
}

// BaseDelay is the retry backoff unit.
func (r RetryConfig) BaseDelay() time.Duration {
	return time.Duration(r.BaseDelayMS) * time.Millisecond
}

func (b BreakerConfig) OpenTimeout() time.Duration {
	return time.Duration(b.OpenTimeoutMS) * time.Millisecond
}

func (r RenderConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutMS) * time.Millisecond
}

func (l LLMConfig) Timeout() time.Duration {
	return time.Duration(l.TimeoutMS) * time.Millisecond
}
