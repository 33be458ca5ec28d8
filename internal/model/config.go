package model

import "time"

// Config is the complete runtime configuration
type Config struct {
	Storage     StorageConfig     `yaml:"storage"`
	HTTP        HTTPConfig        `yaml:"http"`
	LLM         LLMConfig         `yaml:"llm"`
	Market      MarketConfig      `yaml:"market"`
	Feeds       []FeedConfig      `yaml:"feeds"`
	Scoring     ScoringConfig     `yaml:"scoring"`
	Matching    MatchingConfig    `yaml:"matching"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	Cycle       CycleConfig       `yaml:"cycle"`
	Output      OutputConfig      `yaml:"output"`
}

// StorageConfig configures the sqlite store
type StorageConfig struct {
	Path string `yaml:"path"`
}

// HTTPConfig configures outbound article fetching
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	UserAgent    string        `yaml:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
}

// LLMConfig configures the claim extraction backend
type LLMConfig struct {
	Provider  string `yaml:"provider"` // openai, anthropic, "" (disabled)
	Model     string `yaml:"model"`
	APIKey    string `yaml:"-"` // From env only, never persisted
	BaseURL   string `yaml:"base_url,omitempty"`
	Timeout   int    `yaml:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens"`
}

// MarketConfig configures the market data source
type MarketConfig struct {
	BaseURL           string        `yaml:"base_url"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	TopK              int           `yaml:"top_k"` // Candidates kept per claim
}

// FeedConfig names one RSS/Atom source to ingest
type FeedConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// ScoringConfig holds the tunable TR Index gate
type ScoringConfig struct {
	MinTotal int `yaml:"min_total"` // Acceptance threshold on the 0-100 index
}

// MatchingConfig holds the similarity tier thresholds. A score exactly at
// a threshold classifies into the higher tier.
type MatchingConfig struct {
	AutoThreshold   float64 `yaml:"auto_threshold"`
	ReviewThreshold float64 `yaml:"review_threshold"`
}

// ConcurrencyConfig bounds the worker pools
type ConcurrencyConfig struct {
	Workers int `yaml:"workers"`
}

// CycleConfig budgets and schedules the background cycles
type CycleConfig struct {
	MaxItems           int           `yaml:"max_items"` // Per ingestion cycle
	IngestionBudget    time.Duration `yaml:"ingestion_budget"`
	ResolutionBudget   time.Duration `yaml:"resolution_budget"`
	IngestionInterval  time.Duration `yaml:"ingestion_interval"`
	ResolutionInterval time.Duration `yaml:"resolution_interval"`
}

// OutputConfig controls CLI verbosity
type OutputConfig struct {
	Verbose bool `yaml:"verbose"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Path: "trackrecord.db",
		},
		HTTP: HTTPConfig{
			Timeout:      30 * time.Second,
			UserAgent:    "trackrecord/0.1 (+https://github.com/ppiankov/trackrecord)",
			MaxBodyBytes: 2_000_000,
		},
		LLM: LLMConfig{
			Provider:  "",
			Model:     "",
			Timeout:   60,
			MaxTokens: 2000,
		},
		Market: MarketConfig{
			BaseURL:           "https://gamma-api.polymarket.com",
			Timeout:           15 * time.Second,
			RequestsPerSecond: 2,
			Burst:             5,
			TopK:              5,
		},
		Scoring: ScoringConfig{
			MinTotal: 25,
		},
		Matching: MatchingConfig{
			AutoThreshold:   0.6,
			ReviewThreshold: 0.3,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		Cycle: CycleConfig{
			MaxItems:           50,
			IngestionBudget:    10 * time.Minute,
			ResolutionBudget:   5 * time.Minute,
			IngestionInterval:  30 * time.Minute,
			ResolutionInterval: time.Hour,
		},
	}
}
