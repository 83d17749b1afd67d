package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/verdictlabs/verdict/internal/core"
)

type Config struct {
	Development bool                  `mapstructure:"development"`
	Consensus   ConsensusConfig       `mapstructure:"consensus"`
	Specialists SpecialistsConfig     `mapstructure:"specialists"`
	Cache       CacheConfig           `mapstructure:"cache"`
	Tier        TierConfig            `mapstructure:"tier"`
	LLM         LLMConfig             `mapstructure:"llm"`
	Sizing      SizingConfig          `mapstructure:"sizing"`
	Drift       DriftConfig           `mapstructure:"drift"`
	Search      SearchConfig          `mapstructure:"search"`
	Store       StoreConfig           `mapstructure:"store"`
	Alerts      AlertsConfig          `mapstructure:"alerts"`
	Metrics     MetricsConfig         `mapstructure:"metrics"`
}

// ConsensusConfig tunes the orchestrator merge.
type ConsensusConfig struct {
	// Weights are the static per-specialist consensus weights.
	Weights map[string]float64 `mapstructure:"weights"`
	// BaseBlend is the base share of the base/enrichment blend.
	BaseBlend float64 `mapstructure:"base_blend"`
	// MinQuorum is the minimum number of responding specialists.
	MinQuorum int `mapstructure:"min_quorum"`
	// SpecialistTimeout bounds each specialist call.
	SpecialistTimeout time.Duration `mapstructure:"specialist_timeout"`
	// MaxRetries bounds retries per specialist before it is absent.
	MaxRetries int `mapstructure:"max_retries"`
	// InitialBackoff seeds the exponential backoff between retries.
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
}

// SpecialistsConfig enables/disables specialist kinds.
type SpecialistsConfig struct {
	Enabled []string `mapstructure:"enabled"`
}

// CacheConfig selects and tunes the response cache backend.
type CacheConfig struct {
	Backend     string        `mapstructure:"backend"` // "memory" or "redis"
	TTL         time.Duration `mapstructure:"ttl"`
	CostPerCall float64       `mapstructure:"cost_per_call"`
	Redis       RedisConfig   `mapstructure:"redis"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// TierConfig tunes the model-tier router.
type TierConfig struct {
	MaxCheapInput   int     `mapstructure:"max_cheap_input"`
	DeepCostPerCall float64 `mapstructure:"deep_cost_per_call"`
}

// LLMConfig selects the language-model provider.
type LLMConfig struct {
	Provider string       `mapstructure:"provider"`
	Claude   ModelsConfig `mapstructure:"claude"`
	OpenAI   ModelsConfig `mapstructure:"openai"`
}

// ModelsConfig holds per-provider credentials and tier models.
type ModelsConfig struct {
	APIKey     string `mapstructure:"api_key"`
	CheapModel string `mapstructure:"cheap_model"`
	DeepModel  string `mapstructure:"deep_model"`
}

// SizingConfig tunes position sizing.
type SizingConfig struct {
	RiskPct          float64 `mapstructure:"risk_pct"`
	MaxKellyFraction float64 `mapstructure:"max_kelly_fraction"`
	TargetVolatility float64 `mapstructure:"target_volatility"`
	MaxPositionPct   float64 `mapstructure:"max_position_pct"`
}

// DriftConfig tunes the drift monitor.
type DriftConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	CheckInterval time.Duration `mapstructure:"check_interval"`
	Horizon       time.Duration `mapstructure:"horizon"`
	// SentimentFlipDelta is the minimum magnitude for a sentiment sign
	// flip to count as drift.
	SentimentFlipDelta float64 `mapstructure:"sentiment_flip_delta"`
}

// SearchConfig points the news/context search at an API endpoint.
// Specialists run without search context when no endpoint is set.
type SearchConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	APIKey   string `mapstructure:"api_key"`
}

// StoreConfig selects the result archive backend.
type StoreConfig struct {
	Type string   `mapstructure:"type"` // "localfs" or "s3"
	Path string   `mapstructure:"path"`
	S3   S3Config `mapstructure:"s3"`
}

// S3Config holds S3-compatible storage settings.
type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// AlertsConfig configures drift alert sinks.
type AlertsConfig struct {
	WebhookURL string            `mapstructure:"webhook_url"`
	Headers    map[string]string `mapstructure:"headers"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from file
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Consensus: ConsensusConfig{
			Weights: map[string]float64{
				string(core.KindTechnical):   0.25,
				string(core.KindFundamental): 0.25,
				string(core.KindSentiment):   0.15,
				string(core.KindRisk):        0.15,
				string(core.KindMacro):       0.10,
				string(core.KindNews):        0.10,
			},
			BaseBlend:         0.70,
			MinQuorum:         2,
			SpecialistTimeout: 45 * time.Second,
			MaxRetries:        3,
			InitialBackoff:    500 * time.Millisecond,
		},
		Specialists: SpecialistsConfig{
			Enabled: []string{"technical", "fundamental", "sentiment", "risk", "macro", "news"},
		},
		Cache: CacheConfig{
			Backend:     "memory",
			TTL:         60 * time.Minute,
			CostPerCall: 0.01,
		},
		Tier: TierConfig{
			MaxCheapInput:   12000,
			DeepCostPerCall: 0.09,
		},
		LLM: LLMConfig{
			Provider: "claude",
		},
		Sizing: SizingConfig{
			RiskPct:          0.01,
			MaxKellyFraction: 0.25,
			TargetVolatility: 0.20,
			MaxPositionPct:   0.20,
		},
		Drift: DriftConfig{
			Enabled:            true,
			CheckInterval:      5 * time.Minute,
			Horizon:            24 * time.Hour,
			SentimentFlipDelta: 0.2,
		},
		Store: StoreConfig{
			Type: "localfs",
			Path: "data/results",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    ":9090",
			Path:    "/metrics",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Consensus.BaseBlend < 0 || c.Consensus.BaseBlend > 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("base_blend must be between 0 and 1, got %f", c.Consensus.BaseBlend))
	}
	if c.Consensus.MinQuorum < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("min_quorum must be at least 1, got %d", c.Consensus.MinQuorum))
	}
	if c.Consensus.MaxRetries < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("max_retries cannot be negative, got %d", c.Consensus.MaxRetries))
	}
	for kind, w := range c.Consensus.Weights {
		if w < 0 {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("weight for %s cannot be negative, got %f", kind, w))
		}
	}
	if c.Cache.Backend != "memory" && c.Cache.Backend != "redis" {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("cache backend must be memory or redis, got %q", c.Cache.Backend))
	}
	if c.Sizing.RiskPct <= 0 || c.Sizing.RiskPct > 0.10 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("risk_pct must be in (0, 0.10], got %f", c.Sizing.RiskPct))
	}
	if c.Sizing.MaxKellyFraction <= 0 || c.Sizing.MaxKellyFraction > 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("max_kelly_fraction must be in (0, 1], got %f", c.Sizing.MaxKellyFraction))
	}
	if c.Drift.CheckInterval < time.Second {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("drift check_interval too small: %s", c.Drift.CheckInterval))
	}
	if c.Store.Type != "localfs" && c.Store.Type != "s3" {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("store type must be localfs or s3, got %q", c.Store.Type))
	}
	return nil
}
