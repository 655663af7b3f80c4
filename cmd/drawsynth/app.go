package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/rendis/drawsynth/internal/engine"
	"github.com/rendis/drawsynth/internal/render"
	"github.com/rendis/drawsynth/internal/store"
	"github.com/rendis/drawsynth/internal/synth"
	"github.com/rendis/drawsynth/internal/validation"
	"github.com/rendis/drawsynth/pkg/mcp"
)

// app is the wired pipeline shared by every command.
type app struct {
	cfg          Config
	logger       *slog.Logger
	orchestrator *engine.Orchestrator
	parser       *synth.LLMSynthesizer
	validator    *validation.GeometryValidator
	schema       *validation.PrimitiveSchemaValidator
	renderer     *render.Renderer
	store        store.Store
}

// appOptions adjusts the wiring for one command.
type appOptions struct {
	synth    synth.Synthesizer    // replaces the model API when set
	observer engine.EventAppender // receives journal events next to the store
}

// newApp wires the pipeline.
func newApp(ctx context.Context, cfg Config, logger *slog.Logger, opts appOptions) (*app, error) {
	vcfg, err := cfg.validationConfig()
	if err != nil {
		return nil, err
	}

	schemaValidator, err := validation.NewPrimitiveSchemaValidator()
	if err != nil {
		return nil, fmt.Errorf("build schema validator: %w", err)
	}

	parser, err := synth.NewLLMSynthesizer(
		synth.NewAnthropicCompleter(cfg.anthropicConfig()),
		synth.LLMConfig{Canvas: vcfg},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("build synthesizer: %w", err)
	}

	a := &app{
		cfg:       cfg,
		logger:    logger,
		parser:    parser,
		validator: validation.NewGeometryValidator(vcfg),
		schema:    schemaValidator,
		renderer:  render.New(),
	}

	if cfg.Journal {
		s, err := openStore(ctx, cfg.DBPath)
		if err != nil {
			return nil, err
		}
		a.store = s
	}

	var s synth.Synthesizer = parser
	if opts.synth != nil {
		s = opts.synth
	}
	var appenders engine.MultiAppender
	if a.store != nil {
		appenders = append(appenders, a.store)
	}
	if opts.observer != nil {
		appenders = append(appenders, opts.observer)
	}
	var journal engine.EventAppender
	if len(appenders) > 0 {
		journal = appenders
	}
	retry := cfg.Retry
	breaker := cfg.CircuitBreaker
	a.orchestrator = engine.NewOrchestrator(s, a.validator, a.renderer, engine.OrchestratorConfig{
		MaxAttempts:    cfg.MaxAttempts,
		Retry:          &retry,
		CircuitBreaker: &breaker,
		Provider:       cfg.Model,
		Store:          a.store,
		Journal:        journal,
		Logger:         logger,
	})
	return a, nil
}

func openStore(ctx context.Context, path string) (*store.LibSQLStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	s, err := store.NewLibSQLStore(path)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("migrate journal: %w", err)
	}
	return s, nil
}

func (a *app) server() *mcp.DrawServer {
	return mcp.NewDrawServer(mcp.DrawServerDeps{
		Runner:    a.orchestrator,
		Validator: a.validator,
		Schema:    a.schema,
		Renderer:  a.renderer,
		Store:     a.store,
		Version:   version,
		Logger:    a.logger,
	})
}

func (a *app) Close() error {
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}
