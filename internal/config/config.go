package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone = "UTC"

	configPathEnv     = "NEWS_DIGEST_CONFIG"
	databasePathEnv   = "DATABASE_PATH"
	providerEnv       = "AI_PROVIDER"
	modelEnv          = "AI_MODEL"
	openAIKeyEnv      = "OPENAI_API_KEY"
	anthropicKeyEnv   = "ANTHROPIC_API_KEY"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	summaryAPIURLEnv  = "SUMMARY_API_URL"
	summaryAPIKeyEnv  = "SUMMARY_API_KEY"
	maxAgeHoursEnv    = "MAX_CONTENT_AGE_HOURS"
	concurrencyEnv    = "CONCURRENT_SOURCES"
	requestTimeoutEnv = "AI_REQUEST_TIMEOUT"
	logLevelEnv       = "LOG_LEVEL"
)

// ProviderOpenAI and ProviderAnthropic are the supported analyzer backends.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Duration wraps time.Duration so YAML values can be written as "30s" or
// "10m". A bare integer is taken as seconds, matching the env overrides.
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}

	if seconds, err := strconv.Atoi(raw); err == nil {
		*d = Duration(time.Duration(seconds) * time.Second)
		return nil
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Database      DatabaseConfig     `yaml:"database"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Analyzer      AnalyzerConfig     `yaml:"analyzer"`
	Pipeline      PipelineConfig     `yaml:"pipeline"`
	Notifications NotificationConfig `yaml:"notifications"`
	Video         VideoConfig        `yaml:"video"`
	Sources       []SourceConfig     `yaml:"sources"`
}

// LoggingConfig controls slog verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DatabaseConfig describes the sqlite database location.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// SchedulerConfig defines when the digest run should trigger.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// AnalyzerConfig selects and tunes the LLM scoring provider.
type AnalyzerConfig struct {
	Provider       string   `yaml:"provider"`
	Model          string   `yaml:"model"`
	OpenAIKey      string   `yaml:"openaiKey"`
	AnthropicKey   string   `yaml:"anthropicKey"`
	RequestTimeout Duration `yaml:"requestTimeout"`
	MaxConcurrent  int      `yaml:"maxConcurrent"`
}

// PipelineConfig tunes the collection/scoring run.
type PipelineConfig struct {
	MaxAgeHours       int      `yaml:"maxAgeHours"`
	ConcurrentSources int      `yaml:"concurrentSources"`
	RunTimeout        Duration `yaml:"runTimeout"`
	CleanupAfterDays  int      `yaml:"cleanupAfterDays"`
	UserID            int64    `yaml:"userId"`
}

// MaxAge converts the configured window to a duration.
func (p PipelineConfig) MaxAge() time.Duration {
	return time.Duration(p.MaxAgeHours) * time.Hour
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// VideoConfig points at the video summary API used by the video collector.
type VideoConfig struct {
	SummaryAPIURL string `yaml:"summaryApiUrl"`
	APIKey        string `yaml:"apiKey"`
}

// SourceConfig seeds the sources table when it is empty.
type SourceConfig struct {
	Type     string `yaml:"type"`
	Name     string `yaml:"name"`
	Endpoint string `yaml:"endpoint"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg
}

// Validate reports configuration errors that must abort before any run starts.
func (c Config) Validate() error {
	switch c.Analyzer.Provider {
	case ProviderOpenAI, ProviderAnthropic:
	default:
		return fmt.Errorf("config: unsupported analyzer provider %q", c.Analyzer.Provider)
	}

	if c.Database.Path == "" {
		return fmt.Errorf("config: database path is empty")
	}
	if c.Pipeline.MaxAgeHours <= 0 {
		return fmt.Errorf("config: maxAgeHours must be positive, got %d", c.Pipeline.MaxAgeHours)
	}
	if c.Pipeline.ConcurrentSources <= 0 {
		return fmt.Errorf("config: concurrentSources must be positive, got %d", c.Pipeline.ConcurrentSources)
	}
	if c.Analyzer.MaxConcurrent <= 0 {
		return fmt.Errorf("config: analyzer maxConcurrent must be positive, got %d", c.Analyzer.MaxConcurrent)
	}

	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databasePathEnv); v != "" {
		c.Database.Path = v
	}

	if v := os.Getenv(providerEnv); v != "" {
		c.Analyzer.Provider = v
	}
	if v := os.Getenv(modelEnv); v != "" {
		c.Analyzer.Model = v
	}
	if v := os.Getenv(openAIKeyEnv); v != "" {
		c.Analyzer.OpenAIKey = v
	}
	if v := os.Getenv(anthropicKeyEnv); v != "" {
		c.Analyzer.AnthropicKey = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(summaryAPIURLEnv); v != "" {
		c.Video.SummaryAPIURL = v
	}
	if v := os.Getenv(summaryAPIKeyEnv); v != "" {
		c.Video.APIKey = v
	}

	if v := os.Getenv(maxAgeHoursEnv); v != "" {
		if hours, err := strconv.Atoi(v); err == nil {
			c.Pipeline.MaxAgeHours = hours
		}
	}
	if v := os.Getenv(concurrencyEnv); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Pipeline.ConcurrentSources = n
		}
	}
	if v := os.Getenv(requestTimeoutEnv); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil {
			c.Analyzer.RequestTimeout = Duration(time.Duration(seconds) * time.Second)
		}
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging = override.Logging
	}

	if override.Database.Path != "" {
		base.Database = override.Database
	}

	if override.Scheduler.CronExpression != "" {
		base.Scheduler.CronExpression = override.Scheduler.CronExpression
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.Analyzer.Provider != "" {
		base.Analyzer.Provider = override.Analyzer.Provider
	}
	if override.Analyzer.Model != "" {
		base.Analyzer.Model = override.Analyzer.Model
	}
	if override.Analyzer.OpenAIKey != "" {
		base.Analyzer.OpenAIKey = override.Analyzer.OpenAIKey
	}
	if override.Analyzer.AnthropicKey != "" {
		base.Analyzer.AnthropicKey = override.Analyzer.AnthropicKey
	}
	if override.Analyzer.RequestTimeout > 0 {
		base.Analyzer.RequestTimeout = override.Analyzer.RequestTimeout
	}
	if override.Analyzer.MaxConcurrent > 0 {
		base.Analyzer.MaxConcurrent = override.Analyzer.MaxConcurrent
	}

	if override.Pipeline.MaxAgeHours > 0 {
		base.Pipeline.MaxAgeHours = override.Pipeline.MaxAgeHours
	}
	if override.Pipeline.ConcurrentSources > 0 {
		base.Pipeline.ConcurrentSources = override.Pipeline.ConcurrentSources
	}
	if override.Pipeline.RunTimeout > 0 {
		base.Pipeline.RunTimeout = override.Pipeline.RunTimeout
	}
	if override.Pipeline.CleanupAfterDays > 0 {
		base.Pipeline.CleanupAfterDays = override.Pipeline.CleanupAfterDays
	}
	if override.Pipeline.UserID != 0 {
		base.Pipeline.UserID = override.Pipeline.UserID
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if override.Video.SummaryAPIURL != "" {
		base.Video.SummaryAPIURL = override.Video.SummaryAPIURL
	}
	if override.Video.APIKey != "" {
		base.Video.APIKey = override.Video.APIKey
	}

	if len(override.Sources) > 0 {
		base.Sources = override.Sources
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging:  LoggingConfig{Level: "info"},
		Database: DatabaseConfig{Path: "data/digest.db"},
		Scheduler: SchedulerConfig{
			CronExpression: "0 10 * * *",
			Timezone:       defaultTimezone,
			location:       tz,
		},
		Analyzer: AnalyzerConfig{
			Provider:       ProviderOpenAI,
			Model:          "gpt-4o-mini",
			RequestTimeout: Duration(30 * time.Second),
			MaxConcurrent:  5,
		},
		Pipeline: PipelineConfig{
			MaxAgeHours:       24,
			ConcurrentSources: 10,
			RunTimeout:        Duration(10 * time.Minute),
			CleanupAfterDays:  7,
			UserID:            1,
		},
	}
}
