package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"talentmatch/internal/ai"
	"talentmatch/internal/ai/gemini"
	"talentmatch/internal/ingest"
	"talentmatch/internal/logger"
	"talentmatch/internal/report"
	"talentmatch/internal/scoring"
	"talentmatch/internal/secrets"
	"talentmatch/internal/store"
)

// engine bundles the wired components shared by the subcommands.
type engine struct {
	logger  *zap.Logger
	config  *Config
	store   *store.Store
	monitor *ingest.Monitor
	reports *report.Generator
}

// newEngine builds the logger, config, store, monitor and report generator.
// Any failure here is fatal; nothing useful can run without them.
func newEngine() *engine {
	zlog, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		zlog.Fatal("getting a config", zap.Error(err))
	}
	if config == nil {
		zlog.Fatal("config is required")
	}
	if config.AI == nil {
		config.AI = &AIConfig{}
	}

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	zlog.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	st, err := store.Open(config.StorageDir, zlog)
	if err != nil {
		zlog.Fatal("opening the store", zap.Error(err))
	}

	monitor, err := ingest.New(st, config.CandidatesDir, config.OpportunitiesDir, zlog)
	if err != nil {
		zlog.Fatal("preparing input directories", zap.Error(err))
	}

	return &engine{
		logger:  zlog,
		config:  config,
		store:   st,
		monitor: monitor,
		reports: report.New(st, zlog),
	}
}

// newOracle builds the Gemini-backed oracle from the ai config section.
func newOracle(ctx context.Context, cfg *AIConfig, zlog *zap.Logger) (ai.Oracle, error) {
	if cfg == nil {
		cfg = &AIConfig{}
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: cfg.APIKeyFile,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Model, cfg.MaxOutputTokens, cfg.Temperature)
	if err != nil {
		return nil, err
	}

	scorerLogger := zlog.With(logger.OracleFields("gemini", generator.Model())...)

	return gemini.NewScorer(generator, scorerLogger, cfg.MaxLogLength), nil
}

// newOrchestrator wires the oracle and store into the scoring state machine.
func (e *engine) newOrchestrator(ctx context.Context) *scoring.Orchestrator {
	oracle, err := newOracle(ctx, e.config.AI, e.logger)
	if err != nil {
		e.logger.Fatal("building the scoring oracle", zap.Error(err))
	}

	cfg := scoring.Config{
		Threshold:         e.config.Threshold,
		MaxRetries:        e.config.AI.MaxRetries,
		RequestsPerMinute: e.config.AI.RequestsPerMinute,
		Timeout:           e.config.AI.Timeout,
	}

	return scoring.New(e.store, oracle, cfg, e.logger)
}
