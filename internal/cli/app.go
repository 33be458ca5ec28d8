package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/trackrecord/internal/extract"
	"github.com/ppiankov/trackrecord/internal/ledger"
	"github.com/ppiankov/trackrecord/internal/llm"
	"github.com/ppiankov/trackrecord/internal/market"
	"github.com/ppiankov/trackrecord/internal/model"
	"github.com/ppiankov/trackrecord/internal/pipeline"
	"github.com/ppiankov/trackrecord/internal/resolution"
	"github.com/ppiankov/trackrecord/internal/resolve"
	"github.com/ppiankov/trackrecord/internal/score"
	"github.com/ppiankov/trackrecord/internal/source"
	"github.com/ppiankov/trackrecord/internal/store"
	"github.com/ppiankov/trackrecord/internal/worker"
)

// app holds the wired components every command works through
type app struct {
	cfg      *model.Config
	log      *zap.Logger
	store    *store.Store
	ledger   *ledger.Ledger
	pipeline *pipeline.Pipeline
	engine   *resolution.Engine
}

// loadConfig builds the effective configuration: defaults, then the
// config file, then environment and flags.
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()

	if file := viper.ConfigFileUsed(); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", file, err)
		}
	}

	// API keys come from the environment only
	switch cfg.LLM.Provider {
	case "openai":
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	case "anthropic", "claude":
		cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}

	if dbPath != "" {
		cfg.Storage.Path = dbPath
	}
	if verbose {
		cfg.Output.Verbose = true
	}
	return cfg, nil
}

// newLogger builds the process logger; verbose switches to development
// output with debug level
func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	zcfg := zap.NewProductionConfig()
	zcfg.OutputPaths = []string{"stderr"}
	return zcfg.Build()
}

// openApp wires the full application from configuration. Close when done.
func openApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	log, err := newLogger(cfg.Output.Verbose)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	st, err := store.Open(cfg.Storage.Path, log)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", cfg.Storage.Path, err)
	}

	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM))
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("init extraction backend: %w", err)
	}
	var extractor extract.Extractor = extract.Disabled{}
	if provider != nil {
		extractor = provider
	}

	markets := market.NewClient(cfg.Market)
	limiter := worker.NewLimiter(1, 2)
	feeds := make([]pipeline.Feed, 0, len(cfg.Feeds))
	for _, f := range cfg.Feeds {
		feeds = append(feeds, source.NewFeedSource(f.Name, f.URL))
	}

	resolver := resolve.New(st)
	if err := resolver.Warm(context.Background()); err != nil {
		st.Close()
		return nil, fmt.Errorf("warm resolver: %w", err)
	}
	led := ledger.New(st)

	p := pipeline.New(pipeline.Options{
		Store:     st,
		Feeds:     feeds,
		Articles:  source.NewArticleFetcher(cfg.HTTP, limiter),
		Extractor: extractor,
		Resolver:  resolver,
		Scorer:    score.NewScorer(cfg.Scoring.MinTotal),
		Ledger:    led,
		Matcher:   market.NewMatcher(markets, cfg.Matching, cfg.Market.TopK),
		Markets:   markets,
		Config:    cfg,
		Logger:    log,
	})

	return &app{
		cfg:      cfg,
		log:      log,
		store:    st,
		ledger:   led,
		pipeline: p,
		engine:   resolution.New(st, markets, log),
	}, nil
}

// close releases the app's resources
func (a *app) close() {
	_ = a.log.Sync()
	if err := a.store.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Error closing store: %v\n", err)
	}
}
