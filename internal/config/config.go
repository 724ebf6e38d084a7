// Package config loads and validates engine configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Texasdada13/procurement-intel-tool/internal/engine"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig          `mapstructure:"server"`
	Fetch     FetchConfig           `mapstructure:"fetch"`
	Render    RenderConfig          `mapstructure:"render"`
	Scoring   ScoringConfig         `mapstructure:"scoring"`
	Scheduler SchedulerConfig       `mapstructure:"scheduler"`
	Store     StoreConfig           `mapstructure:"store"`
	Publisher PublisherConfig       `mapstructure:"publisher"`
	Snapshot  SnapshotConfig        `mapstructure:"snapshot"`
	Logging   LoggingConfig         `mapstructure:"logging"`
	Sources   []engine.SourceConfig `mapstructure:"sources"`
}

// ServerConfig controls the HTTP API server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// FetchConfig governs HTTP client behavior shared by all adapters.
type FetchConfig struct {
	UserAgent        string  `mapstructure:"user_agent"`
	TimeoutSeconds   int     `mapstructure:"timeout_seconds"`
	MaxRetries       int     `mapstructure:"max_retries"`
	BackoffInitialMs int     `mapstructure:"backoff_initial_ms"`
	BackoffMaxMs     int     `mapstructure:"backoff_max_ms"`
	DefaultRPS       float64 `mapstructure:"default_rps"`
	Concurrency      int     `mapstructure:"concurrency"`
}

// RenderConfig configures the headless rendering adapter.
type RenderConfig struct {
	MaxParallel   int `mapstructure:"max_parallel"`
	NavTimeoutSec int `mapstructure:"nav_timeout_seconds"`
}

// StrategyWeights holds the relative weight of each scoring strategy. Weights
// are renormalized at scoring time over the strategies that produce a value.
type StrategyWeights struct {
	Lexical  float64 `mapstructure:"lexical"`
	Semantic float64 `mapstructure:"semantic"`
	LLM      float64 `mapstructure:"llm"`
}

// KeywordTiers groups lexical keywords by relevance weight.
type KeywordTiers struct {
	High     map[string]float64 `mapstructure:"high"`
	Medium   map[string]float64 `mapstructure:"medium"`
	Negative map[string]float64 `mapstructure:"negative"`
}

// ScoringConfig enables strategies and carries their tunables.
type ScoringConfig struct {
	Weights          StrategyWeights `mapstructure:"weights"`
	Keywords         KeywordTiers    `mapstructure:"keywords"`
	SemanticEnabled  bool            `mapstructure:"semantic_enabled"`
	Exemplars        []string        `mapstructure:"exemplars"`
	LLMEnabled       bool            `mapstructure:"llm_enabled"`
	LLMEndpoint      string          `mapstructure:"llm_endpoint"`
	LLMAPIKey        string          `mapstructure:"llm_api_key"`
	LLMModel         string          `mapstructure:"llm_model"`
	LLMTimeoutSec    int             `mapstructure:"llm_timeout_seconds"`
}

// SchedulerConfig controls the two recurring jobs.
type SchedulerConfig struct {
	DiscoveryIntervalHours int    `mapstructure:"discovery_interval_hours"`
	DeadlineCheckTime      string `mapstructure:"deadline_check_time"`
	DeadlineReminderDays   int    `mapstructure:"deadline_reminder_days"`
}

// StoreConfig selects and configures the opportunity store.
type StoreConfig struct {
	Provider     string        `mapstructure:"provider"`
	DSN          string        `mapstructure:"dsn"`
	Path         string        `mapstructure:"path"`
	MaxConns     int32         `mapstructure:"max_conns"`
	MinConns     int32         `mapstructure:"min_conns"`
	ConnLifetime time.Duration `mapstructure:"conn_lifetime"`
}

// PublisherConfig selects the RunSummary publisher.
type PublisherConfig struct {
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// SnapshotConfig selects the parse-failure snapshot archive.
type SnapshotConfig struct {
	Provider  string `mapstructure:"provider"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	LocalDir  string `mapstructure:"local_dir"`
}

// LoggingConfig toggles zap development features and sets the minimum level.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PROCUREMENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("fetch.user_agent", "procurement-intel-bot/1.0")
	v.SetDefault("fetch.timeout_seconds", 30)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.backoff_initial_ms", 250)
	v.SetDefault("fetch.backoff_max_ms", 5000)
	v.SetDefault("fetch.default_rps", 0.5)
	v.SetDefault("fetch.concurrency", 3)
	v.SetDefault("render.max_parallel", 2)
	v.SetDefault("render.nav_timeout_seconds", 30)
	v.SetDefault("scoring.weights.lexical", 0.30)
	v.SetDefault("scoring.weights.semantic", 0.35)
	v.SetDefault("scoring.weights.llm", 0.35)
	v.SetDefault("scoring.semantic_enabled", false)
	v.SetDefault("scoring.llm_enabled", false)
	v.SetDefault("scoring.llm_model", "gpt-4o-mini")
	v.SetDefault("scoring.llm_timeout_seconds", 20)
	v.SetDefault("scheduler.discovery_interval_hours", 6)
	v.SetDefault("scheduler.deadline_check_time", "08:00")
	v.SetDefault("scheduler.deadline_reminder_days", 3)
	v.SetDefault("store.provider", "memory")
	v.SetDefault("publisher.provider", "memory")
	v.SetDefault("snapshot.provider", "none")
	v.SetDefault("snapshot.local_dir", "data/snapshots")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetch.timeout_seconds must be > 0")
	}
	if c.Fetch.Concurrency <= 0 {
		return fmt.Errorf("fetch.concurrency must be > 0")
	}
	if c.Render.MaxParallel <= 0 {
		return fmt.Errorf("render.max_parallel must be > 0")
	}
	if c.Scoring.LLMEnabled && c.Scoring.LLMEndpoint == "" {
		return fmt.Errorf("scoring.llm_endpoint must be set when llm scoring is enabled")
	}
	switch c.Store.Provider {
	case "memory":
	case "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn must be set for the postgres store")
		}
	case "sqlite":
		if c.Store.Path == "" {
			return fmt.Errorf("store.path must be set for the sqlite store")
		}
	default:
		return fmt.Errorf("unknown store provider %q", c.Store.Provider)
	}
	if c.Publisher.Provider == "pubsub" && (c.Publisher.ProjectID == "" || c.Publisher.TopicName == "") {
		return fmt.Errorf("publisher.project_id and publisher.topic_name are required for pubsub")
	}
	if err := c.validateSchedule(); err != nil {
		return err
	}
	return c.validateSources()
}

func (c Config) validateSchedule() error {
	if c.Scheduler.DiscoveryIntervalHours <= 0 {
		return fmt.Errorf("scheduler.discovery_interval_hours must be > 0")
	}
	if _, err := time.Parse("15:04", c.Scheduler.DeadlineCheckTime); err != nil {
		return fmt.Errorf("scheduler.deadline_check_time must be HH:MM: %w", err)
	}
	return nil
}

func (c Config) validateSources() error {
	seen := make(map[string]struct{}, len(c.Sources))
	for _, src := range c.Sources {
		if src.ID == "" {
			return fmt.Errorf("source id is required")
		}
		if _, dup := seen[src.ID]; dup {
			return fmt.Errorf("duplicate source id %q", src.ID)
		}
		seen[src.ID] = struct{}{}
		if src.URL == "" {
			return fmt.Errorf("source %s: url is required", src.ID)
		}
		switch src.Kind {
		case engine.AdapterStatic, engine.AdapterRendered:
			if src.Selectors.Item == "" {
				return fmt.Errorf("source %s: selectors.item is required for %s sources", src.ID, src.Kind)
			}
		case engine.AdapterAPI, engine.AdapterFeed:
		default:
			return fmt.Errorf("source %s: unknown adapter kind %q", src.ID, src.Kind)
		}
	}
	return nil
}

// FetchTimeout returns the per-request timeout as a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// NavTimeout returns the rendering page-load budget as a duration.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Render.NavTimeoutSec) * time.Second
}

// DiscoveryInterval returns the recurring discovery period.
func (c Config) DiscoveryInterval() time.Duration {
	return time.Duration(c.Scheduler.DiscoveryIntervalHours) * time.Hour
}
