// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	Browser   BrowserConfig   `mapstructure:"browser" yaml:"browser"`
	Sanitizer SanitizerConfig `mapstructure:"sanitizer" yaml:"sanitizer"`
	Guardrail GuardrailConfig `mapstructure:"guardrail" yaml:"guardrail"`
	Agent     AgentConfig     `mapstructure:"agent" yaml:"agent"`
	Tasks     TasksConfig     `mapstructure:"tasks" yaml:"tasks"`
}

// LoggerConfig controls the zap logger bootstrap.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"` // "console" or "json"
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"` // megabytes
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"` // days
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// BrowserConfig holds settings for the headless browser session.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	UserAgent         string        `mapstructure:"user_agent" yaml:"user_agent"`
	ViewportWidth     int           `mapstructure:"viewport_width" yaml:"viewport_width"`
	ViewportHeight    int           `mapstructure:"viewport_height" yaml:"viewport_height"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	PostLoadWait      time.Duration `mapstructure:"post_load_wait" yaml:"post_load_wait"`
	Args              []string      `mapstructure:"args" yaml:"args"`
}

// SanitizerConfig tunes the markup-to-text pipeline.
type SanitizerConfig struct {
	MaxLength      int      `mapstructure:"max_length" yaml:"max_length"`
	StripTags      []string `mapstructure:"strip_tags" yaml:"strip_tags"`
	StripHidden    bool     `mapstructure:"strip_hidden" yaml:"strip_hidden"`
	StripInvisible bool     `mapstructure:"strip_invisible" yaml:"strip_invisible"`
}

// Guardrail policy actions.
const (
	GuardrailActionWarn  = "warn"
	GuardrailActionBlock = "block"
)

// GuardrailConfig controls the prompt-injection scanner.
type GuardrailConfig struct {
	Enabled       bool          `mapstructure:"enabled" yaml:"enabled"`
	Action        string        `mapstructure:"action" yaml:"action"` // "warn" or "block"
	ExtraPatterns []string      `mapstructure:"extra_patterns" yaml:"extra_patterns"`
	LLMEnabled    bool          `mapstructure:"llm_enabled" yaml:"llm_enabled"`
	LLMTimeout    time.Duration `mapstructure:"llm_timeout" yaml:"llm_timeout"`
}

// LLMProvider defines the supported reasoning backends.
type LLMProvider string

const (
	ProviderGemini    LLMProvider = "gemini"
	ProviderOpenAI    LLMProvider = "openai"
	ProviderAnthropic LLMProvider = "anthropic"
)

// LLMConfig defines the configuration for the reasoning oracle client.
type LLMConfig struct {
	Provider    LLMProvider   `mapstructure:"provider" yaml:"provider"`
	Model       string        `mapstructure:"model" yaml:"model"`
	APIKey      string        `mapstructure:"api_key" yaml:"api_key"`
	Endpoint    string        `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout  time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature float32       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	// RequestsPerMinute bounds the call rate to the provider. Zero disables
	// the limiter.
	RequestsPerMinute float64 `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
}

// AgentConfig holds settings for the decision loop.
type AgentConfig struct {
	MaxSteps           int           `mapstructure:"max_steps" yaml:"max_steps"`
	ObservationLimit   int           `mapstructure:"observation_limit" yaml:"observation_limit"`
	ActionResultLimit  int           `mapstructure:"action_result_limit" yaml:"action_result_limit"`
	HistoryResultLimit int           `mapstructure:"history_result_limit" yaml:"history_result_limit"`
	ThinkTimeout       time.Duration `mapstructure:"think_timeout" yaml:"think_timeout"`
	LLM                LLMConfig     `mapstructure:"llm" yaml:"llm"`
}

// TasksConfig tunes the goal queue.
type TasksConfig struct {
	QueueSize    int `mapstructure:"queue_size" yaml:"queue_size"`
	HistoryLimit int `mapstructure:"history_limit" yaml:"history_limit"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "wayfarer")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.viewport_width", 1920)
	v.SetDefault("browser.viewport_height", 1080)
	v.SetDefault("browser.navigation_timeout", "15s")
	v.SetDefault("browser.post_load_wait", "1500ms")

	// -- Sanitizer --
	v.SetDefault("sanitizer.max_length", 50000)
	v.SetDefault("sanitizer.strip_hidden", true)
	v.SetDefault("sanitizer.strip_invisible", true)

	// -- Guardrail --
	v.SetDefault("guardrail.enabled", true)
	v.SetDefault("guardrail.action", "warn")
	v.SetDefault("guardrail.llm_enabled", false)
	v.SetDefault("guardrail.llm_timeout", "10s")

	// -- Agent --
	v.SetDefault("agent.max_steps", 15)
	v.SetDefault("agent.observation_limit", 8000)
	v.SetDefault("agent.action_result_limit", 2000)
	v.SetDefault("agent.history_result_limit", 200)
	v.SetDefault("agent.think_timeout", "30s")
	v.SetDefault("agent.llm.provider", "gemini")
	v.SetDefault("agent.llm.model", "gemini-2.5-flash")
	v.SetDefault("agent.llm.api_timeout", "30s")
	v.SetDefault("agent.llm.temperature", 0.0)
	v.SetDefault("agent.llm.max_tokens", 1024)
	v.SetDefault("agent.llm.requests_per_minute", 0)

	// -- Tasks --
	v.SetDefault("tasks.queue_size", 16)
	v.SetDefault("tasks.history_limit", 50)
}

// NewDefaultConfig creates a configuration struct populated with defaults.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Unreachable with static defaults, but fail loudly rather than
		// return a half-populated config.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper creates a configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data.
	v.BindEnv("agent.llm.api_key", "WAYFARER_LLM_API_KEY")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if cfg.Agent.LLM.APIKey == "" {
		cfg.Agent.LLM.APIKey = os.Getenv("WAYFARER_LLM_API_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Agent.MaxSteps <= 0 {
		return fmt.Errorf("agent.max_steps must be a positive integer")
	}
	if c.Sanitizer.MaxLength <= 0 {
		return fmt.Errorf("sanitizer.max_length must be a positive integer")
	}
	if a := c.Guardrail.Action; a != GuardrailActionWarn && a != GuardrailActionBlock {
		return fmt.Errorf("guardrail.action must be 'warn' or 'block', got %q", a)
	}
	switch c.Agent.LLM.Provider {
	case ProviderGemini, ProviderOpenAI, ProviderAnthropic:
	default:
		return fmt.Errorf("unknown LLM provider %q", c.Agent.LLM.Provider)
	}
	return nil
}
