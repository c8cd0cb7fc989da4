package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv   = "JOB_MATCHER_CONFIG"
	databaseDSNEnv  = "DATABASE_DSN"
	redisURLEnv     = "REDIS_URL"
	embeddingURLEnv = "EMBEDDING_URL"
	embeddingKeyEnv = "EMBEDDING_API_KEY"
	skillsURLEnv    = "SKILLS_URL"
	skillsKeyEnv    = "SKILLS_API_KEY"
	telegramToken   = "TELEGRAM_BOT_TOKEN"
	telegramChatID  = "TELEGRAM_CHAT_ID"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Database      DatabaseConfig     `yaml:"database"`
	Redis         RedisConfig        `yaml:"redis"`
	Embedding     EmbeddingConfig    `yaml:"embedding"`
	Skills        SkillsConfig       `yaml:"skills"`
	Notifications NotificationConfig `yaml:"notifications"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Pipeline      PipelineConfig     `yaml:"pipeline"`
	Matching      MatchingConfig     `yaml:"matching"`
	Sites         []SiteConfig       `yaml:"sites"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DatabaseConfig describes Postgres connection details. An empty DSN runs
// the application against in-memory stores, useful for local development.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// RedisConfig wires the optional embedding cache. Empty URL disables it.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// EmbeddingConfig describes the text-embedding inference service.
type EmbeddingConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Model     string `yaml:"model"`
	Dimension int    `yaml:"dimension"`
	APIKey    string `yaml:"apiKey"`
	BatchSize int    `yaml:"batchSize"`
}

// SkillsConfig describes the hosted skill-extraction model.
type SkillsConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"apiKey"`
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send run digests.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// SchedulerConfig defines when the scrape pipeline should run.
type SchedulerConfig struct {
	Enabled        bool   `yaml:"enabled"`
	CronExpression string `yaml:"cronExpression"`
}

// PipelineConfig bounds one orchestrator run.
type PipelineConfig struct {
	MaxConcurrentSources int           `yaml:"maxConcurrentSources"`
	RunTimeout           time.Duration `yaml:"runTimeout"`
}

// UnmarshalYAML accepts runTimeout in time.ParseDuration notation ("10m").
func (p *PipelineConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		MaxConcurrentSources int    `yaml:"maxConcurrentSources"`
		RunTimeout           string `yaml:"runTimeout"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	p.MaxConcurrentSources = raw.MaxConcurrentSources
	if raw.RunTimeout != "" {
		d, err := time.ParseDuration(raw.RunTimeout)
		if err != nil {
			return fmt.Errorf("runTimeout: %w", err)
		}
		p.RunTimeout = d
	}
	return nil
}

// MatchingConfig tunes the similarity query defaults.
type MatchingConfig struct {
	TopK     int     `yaml:"topK"`
	MinScore float64 `yaml:"minScore"`
}

// SiteConfig describes a single job board with its scraper strategy.
type SiteConfig struct {
	Name    string            `yaml:"name"`
	Scraper string            `yaml:"scraper"`
	URL     string            `yaml:"url"`
	Options map[string]string `yaml:"options"`
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

	if len(cfg.Sites) == 0 {
		cfg.Sites = defaultConfig().Sites
	}

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(redisURLEnv); v != "" {
		c.Redis.URL = v
	}
	if v := os.Getenv(embeddingURLEnv); v != "" {
		c.Embedding.Endpoint = v
	}
	if v := os.Getenv(embeddingKeyEnv); v != "" {
		c.Embedding.APIKey = v
	}
	if v := os.Getenv(skillsURLEnv); v != "" {
		c.Skills.Endpoint = v
	}
	if v := os.Getenv(skillsKeyEnv); v != "" {
		c.Skills.APIKey = v
	}
	if v := os.Getenv(telegramToken); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatID); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging = override.Logging
	}

	if override.Database.DSN != "" {
		base.Database = override.Database
	}
	if override.Redis.URL != "" {
		base.Redis = override.Redis
	}

	if override.Embedding.Endpoint != "" {
		base.Embedding.Endpoint = override.Embedding.Endpoint
	}
	if override.Embedding.Model != "" {
		base.Embedding.Model = override.Embedding.Model
	}
	if override.Embedding.Dimension > 0 {
		base.Embedding.Dimension = override.Embedding.Dimension
	}
	if override.Embedding.APIKey != "" {
		base.Embedding.APIKey = override.Embedding.APIKey
	}
	if override.Embedding.BatchSize > 0 {
		base.Embedding.BatchSize = override.Embedding.BatchSize
	}

	if override.Skills.Endpoint != "" {
		base.Skills.Endpoint = override.Skills.Endpoint
	}
	if override.Skills.APIKey != "" {
		base.Skills.APIKey = override.Skills.APIKey
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if override.Scheduler.CronExpression != "" {
		base.Scheduler.CronExpression = override.Scheduler.CronExpression
	}
	if override.Scheduler.Enabled {
		base.Scheduler.Enabled = true
	}

	if override.Pipeline.MaxConcurrentSources > 0 {
		base.Pipeline.MaxConcurrentSources = override.Pipeline.MaxConcurrentSources
	}
	if override.Pipeline.RunTimeout > 0 {
		base.Pipeline.RunTimeout = override.Pipeline.RunTimeout
	}

	if override.Matching.TopK > 0 {
		base.Matching.TopK = override.Matching.TopK
	}
	if override.Matching.MinScore > 0 {
		base.Matching.MinScore = override.Matching.MinScore
	}

	if len(override.Sites) > 0 {
		base.Sites = override.Sites
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging:  LoggingConfig{Level: "info"},
		Database: DatabaseConfig{DSN: ""},
		Embedding: EmbeddingConfig{
			Endpoint:  "http://localhost:8080",
			Model:     "all-MiniLM-L6-v2",
			Dimension: 384,
			BatchSize: 100,
		},
		Skills: SkillsConfig{
			Endpoint: "http://localhost:8081",
		},
		Scheduler: SchedulerConfig{
			Enabled:        false,
			CronExpression: "0 6 * * *",
		},
		Pipeline: PipelineConfig{
			MaxConcurrentSources: 4,
			RunTimeout:           10 * time.Minute,
		},
		Matching: MatchingConfig{
			TopK:     50,
			MinScore: 0.3,
		},
		Sites: []SiteConfig{
			{Name: "remoteok", Scraper: "remoteok", URL: "https://remoteok.com/remote-dev-jobs"},
			{Name: "weworkremotely", Scraper: "weworkremotely", URL: "https://weworkremotely.com/remote-jobs"},
			{Name: "arbeitnow", Scraper: "arbeitnow", URL: "https://www.arbeitnow.com/api/job-board-api"},
		},
	}
}
