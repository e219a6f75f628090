package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Loader handles configuration loading from multiple sources.
type Loader struct {
	v          *viper.Viper
	configFile string
	envPrefix  string
	envFiles   []string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return NewLoaderWithViper(viper.New())
}

// NewLoaderWithViper creates a loader using an existing viper instance, so
// CLI flags bound to it take precedence.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{
		v:         v,
		envPrefix: "RESEARCH",
		envFiles:  []string{".env"},
	}
}

// WithConfigFile sets an explicit config file path.
func (l *Loader) WithConfigFile(path string) *Loader {
	l.configFile = path
	return l
}

// WithEnvPrefix sets the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithEnvFiles replaces the dotenv files read before the environment.
func (l *Loader) WithEnvFiles(files ...string) *Loader {
	l.envFiles = files
	return l
}

// Viper returns the underlying viper instance for flag binding.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Load loads configuration from all sources.
// Precedence (highest to lowest):
// 1. CLI flags (bound via viper.BindPFlag)
// 2. Environment variables (RESEARCH_*, plus ANTHROPIC_API_KEY and TAVILY_API_KEY)
// 3. Project config (.research/config.yaml)
// 4. User config (~/.config/research/config.yaml)
// 5. Defaults
//
// Variables from .env files never override the real environment.
func (l *Loader) Load() (*Config, error) {
	if err := l.loadEnvFiles(); err != nil {
		return nil, err
	}

	l.setDefaults()

	l.v.SetEnvPrefix(l.envPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()
	_ = l.v.BindEnv("llm.api_key", l.envPrefix+"_LLM_API_KEY", "ANTHROPIC_API_KEY", "OPENAI_API_KEY")
	_ = l.v.BindEnv("search.tavily.api_key", l.envPrefix+"_SEARCH_TAVILY_API_KEY", "TAVILY_API_KEY")

	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	} else {
		l.v.SetConfigName("config")
		l.v.SetConfigType("yaml")
		l.v.AddConfigPath(".research")
		if home, err := os.UserHomeDir(); err == nil {
			l.v.AddConfigPath(filepath.Join(home, ".config", "research"))
		}
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// ConfigFileUsed returns the file viper read, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

func (l *Loader) loadEnvFiles() error {
	var existing []string
	for _, f := range l.envFiles {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("loading env files: %w", err)
	}
	return nil
}

// setDefaults configures default values.
func (l *Loader) setDefaults() {
	l.v.SetDefault("log.level", "info")
	l.v.SetDefault("log.format", "auto")

	l.v.SetDefault("llm.provider", "anthropic")
	l.v.SetDefault("llm.model", "claude-3-5-sonnet-20240620")
	l.v.SetDefault("llm.base_url", "")
	l.v.SetDefault("llm.temperature", 0.0)
	l.v.SetDefault("llm.max_tokens", 4096)
	l.v.SetDefault("llm.requests_per_second", 2.0)
	l.v.SetDefault("llm.burst", 4)
	l.v.SetDefault("llm.http_timeout", "2m")

	l.v.SetDefault("search.tavily.base_url", "https://api.tavily.com")
	l.v.SetDefault("search.tavily.max_results", 3)
	l.v.SetDefault("search.wikipedia.base_url", "")
	l.v.SetDefault("search.wikipedia.language", "en")
	l.v.SetDefault("search.wikipedia.max_docs", 2)

	l.v.SetDefault("research.max_analysts", 3)
	l.v.SetDefault("research.max_turns", 2)
	l.v.SetDefault("research.max_concurrent_interviews", 4)
	l.v.SetDefault("research.call_timeout", "90s")
	l.v.SetDefault("research.run_timeout", "30m")
	l.v.SetDefault("research.retry.max_attempts", 3)
	l.v.SetDefault("research.retry.base_delay", "1s")
	l.v.SetDefault("research.retry.max_delay", "20s")

	l.v.SetDefault("state.backend", "sqlite")
	l.v.SetDefault("state.path", ".research/state/runs.db")
	l.v.SetDefault("state.redis.addr", "localhost:6379")
	l.v.SetDefault("state.redis.db", 0)
	l.v.SetDefault("state.redis.key_prefix", "research:")
	l.v.SetDefault("state.redis.ttl", "168h")

	l.v.SetDefault("server.addr", "127.0.0.1:8080")
	l.v.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})

	l.v.SetDefault("tracing.enabled", false)
	l.v.SetDefault("tracing.service_name", "quorum-research")
	l.v.SetDefault("tracing.otlp_endpoint", "localhost:4317")

	l.v.SetDefault("report.dir", ".research/reports")
}
