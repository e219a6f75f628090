package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hugo-lorenzo-mato/quorum-research/internal/adapters/llm"
	"github.com/hugo-lorenzo-mato/quorum-research/internal/adapters/search"
	"github.com/hugo-lorenzo-mato/quorum-research/internal/adapters/state"
	"github.com/hugo-lorenzo-mato/quorum-research/internal/config"
	"github.com/hugo-lorenzo-mato/quorum-research/internal/core"
	"github.com/hugo-lorenzo-mato/quorum-research/internal/events"
	"github.com/hugo-lorenzo-mato/quorum-research/internal/logging"
	"github.com/hugo-lorenzo-mato/quorum-research/internal/service"
	"github.com/hugo-lorenzo-mato/quorum-research/internal/service/report"
	"github.com/hugo-lorenzo-mato/quorum-research/internal/service/research"
	"github.com/hugo-lorenzo-mato/quorum-research/internal/tracing"
)

// app bundles what a command needs to drive runs.
type app struct {
	cfg            *config.Config
	logger         *logging.Logger
	store          core.CheckpointStore
	bus            *events.EventBus
	engine         *research.Engine
	model          llm.Model
	reports        *report.Writer
	tracingCleanup tracing.ShutdownFunc
}

type appOptions struct {
	// needModel requires provider credentials. Commands that only read or
	// cancel runs never call the model.
	needModel bool
}

func newApp(ctx context.Context, opts appOptions) (*app, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}

	logger := logging.New(logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Output:  os.Stderr,
		Secrets: []string{cfg.LLM.APIKey, cfg.Search.Tavily.APIKey, cfg.State.Redis.Password},
	})

	shutdown, err := tracing.Initialize(ctx, tracing.Config{
		Enabled:      cfg.Tracing.Enabled,
		ServiceName:  cfg.Tracing.ServiceName,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
	}, logger.Logger)
	if err != nil {
		logger.Warn("tracing unavailable", "error", err)
	}

	store, err := state.NewCheckpointStore(ctx, state.Options{
		Backend:       cfg.State.Backend,
		Path:          cfg.State.Path,
		RedisAddr:     cfg.State.Redis.Addr,
		RedisPassword: cfg.State.Redis.Password,
		RedisDB:       cfg.State.Redis.DB,
		RedisPrefix:   cfg.State.Redis.KeyPrefix,
		TerminalTTL:   cfg.State.Redis.TTL,
	})
	if err != nil {
		_ = shutdown(ctx)
		return nil, fmt.Errorf("opening checkpoint store: %w", err)
	}

	a := &app{
		cfg:            cfg,
		logger:         logger,
		store:          store,
		bus:            events.New(256),
		reports:        report.NewWriter(report.Config{Dir: cfg.Report.Dir}),
		tracingCleanup: shutdown,
	}

	var model core.LanguageModel
	if opts.needModel {
		m, err := llm.New(llm.Config{
			Provider:    cfg.LLM.Provider,
			Model:       cfg.LLM.Model,
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
			Timeout:     cfg.LLM.HTTPTimeout,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		a.model = m
		model = service.NewRateLimitedModel(m, service.NewRateLimiter(service.RateLimiterConfig{
			RequestsPerSecond: cfg.LLM.RequestsPerSecond,
			Burst:             cfg.LLM.Burst,
		}))
	}

	var web core.WebSearcher
	if cfg.Search.Tavily.APIKey != "" {
		web = search.NewTavily(search.TavilyConfig{
			APIKey:     cfg.Search.Tavily.APIKey,
			BaseURL:    cfg.Search.Tavily.BaseURL,
			MaxResults: cfg.Search.Tavily.MaxResults,
		})
	} else if opts.needModel {
		logger.Warn("TAVILY_API_KEY is not set, web search disabled")
	}
	kb := search.NewWikipedia(search.WikipediaConfig{
		BaseURL:   cfg.Search.Wikipedia.BaseURL,
		Language:  cfg.Search.Wikipedia.Language,
		UserAgent: "quorum-research/" + appVersion,
	})

	a.engine = research.NewEngine(store, model, web, kb,
		research.WithLogger(logger),
		research.WithEventBus(a.bus),
		research.WithCallPolicy(callPolicy(cfg.Research, logger)),
		research.WithMaxConcurrentInterviews(cfg.Research.MaxConcurrentInterviews),
		research.WithDefaultMaxTurns(cfg.Research.MaxTurns),
		research.WithKnowledgeDocs(cfg.Search.Wikipedia.MaxDocs),
		research.WithRunTimeout(cfg.Research.RunTimeout),
	)
	return a, nil
}

func callPolicy(rc config.ResearchConfig, logger *logging.Logger) service.CallPolicy {
	return service.CallPolicy{
		Timeout: rc.CallTimeout,
		Retry: service.NewRetryPolicy(
			service.WithMaxAttempts(rc.Retry.MaxAttempts),
			service.WithBaseDelay(rc.Retry.BaseDelay),
			service.WithMaxDelay(rc.Retry.MaxDelay),
		),
		Notify: func(attempt int, err error, delay time.Duration) {
			logger.Debug("external call retry scheduled", "attempt", attempt, "delay", delay, "error", err)
		},
	}
}

// Close waits for background runs and releases the store.
func (a *app) Close() {
	if a.engine != nil {
		a.engine.Wait()
	}
	a.bus.Close()
	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing checkpoint store", "error", err)
	}
	if a.tracingCleanup != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.tracingCleanup(ctx)
	}
}

// checkConnectivity pings the model before a run is started.
func (a *app) checkConnectivity(ctx context.Context) error {
	if a.model == nil {
		return fmt.Errorf("no language model configured")
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := a.model.Ping(ctx); err != nil {
		return fmt.Errorf("language model connectivity check failed: %w", err)
	}
	return nil
}

// signalContext cancels on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func outputJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func outputYAML(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(v)
}

// outputStructured writes v as json or yaml. It reports false for any other
// format so the caller can fall back to text.
func outputStructured(w io.Writer, format string, v interface{}) (bool, error) {
	switch strings.ToLower(format) {
	case "json":
		return true, outputJSON(w, v)
	case "yaml", "yml":
		// Round-trip through JSON so field names match the JSON tags.
		data, err := json.Marshal(v)
		if err != nil {
			return true, err
		}
		var generic interface{}
		if err := json.Unmarshal(data, &generic); err != nil {
			return true, err
		}
		return true, outputYAML(w, generic)
	}
	return false, nil
}
