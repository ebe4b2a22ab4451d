// Package app wires all VisaWire subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Handler exposes the HTTP and WebSocket API, and Shutdown tears
// everything down in order.
//
// For testing, inject mock implementations via functional options
// (WithQuestionStore, WithAudit, etc.). When an option is not provided, New
// creates real implementations from the config.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/visawire/visawire/internal/audit"
	"github.com/visawire/visawire/internal/config"
	"github.com/visawire/visawire/internal/observe"
	"github.com/visawire/visawire/internal/pipeline"
	"github.com/visawire/visawire/internal/questionbank"
	"github.com/visawire/visawire/internal/session"
	"github.com/visawire/visawire/pkg/provider/asr"
	"github.com/visawire/visawire/pkg/provider/llm"
	"github.com/visawire/visawire/pkg/provider/tts"
)

// redisDialTimeout bounds the startup probe of the audit Redis.
const redisDialTimeout = 5 * time.Second

// Providers holds the provider implementations chosen by the config
// registry. NewRecognizer is a factory because recognizers hold per-utterance
// state and each WebSocket connection needs its own.
type Providers struct {
	LLM           llm.Provider
	TTS           tts.Synthesizer
	NewRecognizer func() asr.Recognizer
}

// App owns all subsystem lifetimes behind the VisaWire API.
type App struct {
	cfg       *config.Config
	providers *Providers

	sessions  *session.Registry
	questions questionbank.Store
	ranker    *questionbank.Ranker
	pipe      *pipeline.Pipeline
	audit     *audit.Logger
	metrics   *observe.Metrics
	logger    *slog.Logger

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithQuestionStore injects a question bank instead of creating one from config.
func WithQuestionStore(s questionbank.Store) Option {
	return func(a *App) { a.questions = s }
}

// WithAudit injects an audit logger instead of creating one from config.
func WithAudit(l *audit.Logger) Option {
	return func(a *App) { a.audit = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithLogger sets the slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) { a.logger = logger }
}

// New creates an App by wiring all subsystems together. The providers struct
// comes from main.go (populated via the config registry).
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	a := &App{
		cfg:       cfg,
		providers: providers,
		sessions:  session.NewRegistry(),
		logger:    slog.Default(),
	}
	for _, o := range opts {
		o(a)
	}

	if err := a.initQuestions(ctx); err != nil {
		return nil, fmt.Errorf("app: init question bank: %w", err)
	}
	a.ranker = questionbank.NewRanker(a.questions)

	a.initAudit(ctx)

	a.pipe = pipeline.New(providers.LLM,
		pipeline.WithAudit(a.audit),
		pipeline.WithMetrics(a.metrics),
		pipeline.WithLogger(a.logger),
	)

	return a, nil
}

// initQuestions sets up the Postgres question bank, falling back to the
// built-in in-memory bank when no DSN is configured.
func (a *App) initQuestions(ctx context.Context) error {
	if a.questions != nil {
		return nil
	}

	dsn := a.cfg.Storage.PostgresDSN
	if dsn == "" {
		a.logger.Info("no postgres dsn configured, using in-memory question bank")
		a.questions = questionbank.NewMemStore()
		return nil
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	store := questionbank.NewPostgresStore(pool)
	if err := store.Migrate(ctx); err != nil {
		pool.Close()
		return err
	}
	if a.cfg.Storage.Seed {
		if err := store.Seed(ctx); err != nil {
			pool.Close()
			return err
		}
	}

	a.questions = store
	a.closers = append(a.closers, func() error {
		pool.Close()
		return nil
	})
	return nil
}

// initAudit sets up audit logging. A dead Redis degrades to file-only
// logging; audit must never block serving interviews.
func (a *App) initAudit(ctx context.Context) {
	if a.audit != nil {
		return
	}

	auditOpts := []audit.Option{audit.WithLogger(a.logger)}
	if addr := a.cfg.Audit.RedisAddr; addr != "" {
		dialCtx, cancel := context.WithTimeout(ctx, redisDialTimeout)
		defer cancel()
		client, err := audit.Dial(dialCtx, addr, a.cfg.Audit.RedisPassword)
		if err != nil {
			a.logger.Warn("audit redis unreachable, falling back to files", "addr", addr, "error", err)
		} else {
			auditOpts = append(auditOpts, audit.WithRedis(client))
			a.closers = append(a.closers, client.Close)
		}
	}
	a.audit = audit.New(a.cfg.Audit.Dir, auditOpts...)
}

// Sessions exposes the session registry.
func (a *App) Sessions() *session.Registry { return a.sessions }

// Shutdown tears down all subsystems in order. It respects the context
// deadline: if ctx expires before all closers finish, remaining closers are
// skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		a.logger.Info("shutting down", "closers", len(a.closers))
		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				a.logger.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				a.logger.Warn("closer error", "index", i, "error", err)
			}
		}
		a.logger.Info("shutdown complete")
	})
	return shutdownErr
}
