package config

import "time"

// Config holds all application configuration.
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Search   SearchConfig   `mapstructure:"search"`
	Research ResearchConfig `mapstructure:"research"`
	State    StateConfig    `mapstructure:"state"`
	Server   ServerConfig   `mapstructure:"server"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
	Report   ReportConfig   `mapstructure:"report"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LLMConfig configures the language model provider.
type LLMConfig struct {
	Provider          string        `mapstructure:"provider"`
	Model             string        `mapstructure:"model"`
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	Temperature       float64       `mapstructure:"temperature"`
	MaxTokens         int           `mapstructure:"max_tokens"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	HTTPTimeout       time.Duration `mapstructure:"http_timeout"`
}

// SearchConfig configures the two evidence providers.
type SearchConfig struct {
	Tavily    TavilyConfig    `mapstructure:"tavily"`
	Wikipedia WikipediaConfig `mapstructure:"wikipedia"`
}

// TavilyConfig configures general web search.
type TavilyConfig struct {
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	MaxResults int    `mapstructure:"max_results"`
}

// WikipediaConfig configures encyclopedic search.
type WikipediaConfig struct {
	BaseURL  string `mapstructure:"base_url"`
	Language string `mapstructure:"language"`
	MaxDocs  int    `mapstructure:"max_docs"`
}

// ResearchConfig configures the pipeline.
type ResearchConfig struct {
	MaxAnalysts             int           `mapstructure:"max_analysts"`
	MaxTurns                int           `mapstructure:"max_turns"`
	MaxConcurrentInterviews int           `mapstructure:"max_concurrent_interviews"`
	CallTimeout             time.Duration `mapstructure:"call_timeout"`
	RunTimeout              time.Duration `mapstructure:"run_timeout"`
	Retry                   RetryConfig   `mapstructure:"retry"`
}

// RetryConfig is the per-call retry budget.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

// StateConfig configures the checkpoint store.
type StateConfig struct {
	Backend string      `mapstructure:"backend"`
	Path    string      `mapstructure:"path"`
	Redis   RedisConfig `mapstructure:"redis"`
}

// RedisConfig configures the redis backend.
type RedisConfig struct {
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	TTL       time.Duration `mapstructure:"ttl"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// TracingConfig configures OpenTelemetry export.
type TracingConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	ServiceName  string `mapstructure:"service_name"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

// ReportConfig configures report export.
type ReportConfig struct {
	Dir string `mapstructure:"dir"`
}
