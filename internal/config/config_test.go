package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestLoader_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Research.MaxAnalysts)
	assert.Equal(t, 2, cfg.Research.MaxTurns)
	assert.Equal(t, 90*time.Second, cfg.Research.CallTimeout)
	assert.Equal(t, 3, cfg.Search.Tavily.MaxResults)
	assert.Equal(t, 2, cfg.Search.Wikipedia.MaxDocs)
	assert.Equal(t, "sqlite", cfg.State.Backend)
	assert.Equal(t, 168*time.Hour, cfg.State.Redis.TTL)
	assert.NoError(t, ValidateConfig(cfg))
}

func TestLoader_ConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("research:\n  max_analysts: 5\nstate:\n  backend: memory\n"), 0o600))
	t.Setenv("RESEARCH_RESEARCH_MAX_TURNS", "4")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")

	cfg, err := NewLoader().WithConfigFile(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Research.MaxAnalysts)
	assert.Equal(t, 4, cfg.Research.MaxTurns)
	assert.Equal(t, "memory", cfg.State.Backend)
	assert.Equal(t, "sk-ant-test", cfg.LLM.APIKey)
}

func TestLoader_DotEnvDoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(".env", []byte("TAVILY_API_KEY=from-file\nANTHROPIC_API_KEY=from-file\n"), 0o600))
	t.Setenv("ANTHROPIC_API_KEY", "from-env")
	t.Setenv("TAVILY_API_KEY", "")
	require.NoError(t, os.Unsetenv("TAVILY_API_KEY"))

	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.LLM.APIKey)
	assert.Equal(t, "from-file", cfg.Search.Tavily.APIKey)
}

func TestLoader_InvalidConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("research: [unclosed"), 0o600))

	_, err := NewLoader().WithConfigFile(path).Load()
	assert.Error(t, err)
}

func TestDefaultConfigYAML_Parses(t *testing.T) {
	var doc map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(DefaultConfigYAML), &doc))
	for _, key := range []string{"log", "llm", "search", "research", "state", "server", "tracing", "report"} {
		assert.Contains(t, doc, key)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(DefaultConfigYAML), 0o600))
	t.Chdir(dir)
	cfg, err := NewLoader().WithConfigFile(path).Load()
	require.NoError(t, err)
	assert.NoError(t, ValidateConfig(cfg))
}

func TestValidator_CollectsErrors(t *testing.T) {
	cfg := &Config{
		Log:      LogConfig{Level: "loud", Format: "xml"},
		LLM:      LLMConfig{Provider: "other", Temperature: 2, RequestsPerSecond: 1},
		Research: ResearchConfig{},
		State:    StateConfig{Backend: "etcd"},
		Tracing:  TracingConfig{Enabled: true},
	}

	v := NewValidator()
	err := v.Validate(cfg)
	require.Error(t, err)

	fields := map[string]bool{}
	for _, e := range v.Errors() {
		fields[e.Field] = true
	}
	for _, f := range []string{
		"log.level", "log.format", "llm.provider", "llm.model", "llm.temperature",
		"llm.max_tokens", "llm.burst", "search.tavily.max_results", "research.max_analysts",
		"research.call_timeout", "state.backend", "tracing.otlp_endpoint",
	} {
		assert.True(t, fields[f], "expected error for %s", f)
	}
	assert.True(t, v.Errors().HasErrors())
}

func TestValidator_StateBackends(t *testing.T) {
	v := NewValidator()
	v.validateState(&StateConfig{Backend: "sqlite"})
	v.validateState(&StateConfig{Backend: "redis"})
	v.validateState(&StateConfig{Backend: "memory"})
	require.Len(t, v.Errors(), 2)
	assert.Equal(t, "state.path", v.Errors()[0].Field)
	assert.Equal(t, "state.redis.addr", v.Errors()[1].Field)
}
