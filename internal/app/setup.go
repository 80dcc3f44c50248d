// Package app assembles the application: configuration in, a fully
// wired service graph out. Each dependency is built by a provide*
// function; Setup composes them and App.Close releases them in reverse
// order.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vibedrive/vibedrive/internal/config"
	"github.com/vibedrive/vibedrive/internal/events"
	"github.com/vibedrive/vibedrive/internal/history"
	"github.com/vibedrive/vibedrive/internal/llm"
	"github.com/vibedrive/vibedrive/internal/log"
	"github.com/vibedrive/vibedrive/internal/observability"
	"github.com/vibedrive/vibedrive/internal/orchestration"
	"github.com/vibedrive/vibedrive/internal/safety"
	"github.com/vibedrive/vibedrive/internal/tools"
)

// App is the wired application graph.
type App struct {
	Config *config.Config
	Logger log.Logger

	// DBPool is nil with the memory history backend.
	DBPool *pgxpool.Pool
	Store  history.Store

	Bus    *events.Bus
	Tasks  *orchestration.TaskManager
	Master *orchestration.MasterService

	ambienceSession llm.Session
	masterSession   llm.Session
	otelShutdown    func(context.Context) error
}

// Setup creates and initializes the application.
// Returns an App with embedded cleanup — call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	a := &App{Config: cfg, Logger: logger}

	// On error, clean up everything already initialized
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	shutdown, err := provideTracing(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.otelShutdown = shutdown

	store, pool, err := provideHistoryStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Store = store
	a.DBPool = pool

	envs := orchestration.NewEnvRegistry()
	ambienceSession, err := provideAmbienceSession(ctx, cfg, envs, logger)
	if err != nil {
		return nil, err
	}
	a.ambienceSession = ambienceSession

	dialog := orchestration.NewDialogService(
		ambienceSession,
		safety.NewPolicy(logger.With("component", "safety")),
		envs,
		cfg.MaxTurnDepth,
		logger.With("component", "dialog"),
	)

	a.Bus = events.NewBus(logger.With("component", "events"))
	a.Tasks = orchestration.NewTaskManager(dialog, a.Bus, orchestration.NewMailboxes(),
		store, logger.With("component", "tasks"))

	masterSession, err := provideMasterSession(ctx, cfg, a.Tasks, logger)
	if err != nil {
		return nil, err
	}
	a.masterSession = masterSession
	a.Master = orchestration.NewMasterService(masterSession, a.Tasks, store,
		logger.With("component", "master"))

	return a, nil
}

// Close releases resources in reverse initialization order. Safe to
// call on a partially initialized App.
func (a *App) Close() error {
	var errs []error
	if a.masterSession != nil {
		if err := a.masterSession.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing master session: %w", err))
		}
	}
	if a.ambienceSession != nil {
		if err := a.ambienceSession.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing ambience session: %w", err))
		}
	}
	if a.DBPool != nil {
		a.DBPool.Close()
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.otelShutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flushing traces: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("closing app: %v", errs)
	}
	return nil
}

// provideTracing installs the OTLP tracer provider when enabled.
func provideTracing(ctx context.Context, cfg *config.Config, logger log.Logger) (func(context.Context) error, error) {
	if !cfg.Tracing.Enabled {
		return nil, nil
	}
	shutdown, err := observability.Setup(ctx, observability.Config{
		Endpoint:    cfg.Tracing.Endpoint,
		Environment: cfg.Tracing.Environment,
		ServiceName: cfg.Tracing.ServiceName,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("setting up tracing: %w", err)
	}
	return shutdown, nil
}

// provideHistoryStore builds the configured history backend. The
// returned pool is nil for the memory backend.
func provideHistoryStore(ctx context.Context, cfg *config.Config, logger log.Logger) (history.Store, *pgxpool.Pool, error) {
	switch cfg.HistoryBackend {
	case config.HistoryMemory:
		return history.NewMemoryStore(cfg.MaxHistoryPerSess), nil, nil
	case config.HistoryPostgres:
		dsn := cfg.PostgresConnectionString()
		if err := history.Migrate(dsn); err != nil {
			return nil, nil, fmt.Errorf("migrating history schema: %w", err)
		}
		pool, err := history.OpenPool(ctx, dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("opening database pool: %w", err)
		}
		logger.Debug("history backend ready", "backend", "postgres", "host", cfg.PostgresHost)
		return history.NewPostgresStore(pool, logger.With("component", "history")), pool, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", config.ErrInvalidHistoryBackend, cfg.HistoryBackend)
	}
}

// provideAmbienceSession builds the tool-equipped model session driving
// ambience runs.
func provideAmbienceSession(ctx context.Context, cfg *config.Config, envs *orchestration.EnvRegistry, logger log.Logger) (llm.Session, error) {
	catalog := tools.NewCatalog(envs, logger.With("component", "tools"))
	defs, err := catalog.Definitions()
	if err != nil {
		return nil, fmt.Errorf("building tool catalog: %w", err)
	}
	session, err := llm.NewGemini(ctx, llm.GeminiConfig{
		APIKey:         os.Getenv("GEMINI_API_KEY"),
		Model:          cfg.ModelName,
		SystemPrompt:   orchestration.SystemPrompt,
		Temperature:    cfg.Temperature,
		MaxTokens:      cfg.MaxTokens,
		CallsPerMinute: cfg.ModelCallsPerMin,
	}, defs, logger.With("component", "llm", "role", "ambience"))
	if err != nil {
		return nil, fmt.Errorf("creating ambience session: %w", err)
	}
	return session, nil
}

// provideMasterSession builds the conversational session whose tools
// bridge to the task supervisor. ctx also scopes background runs the
// master starts.
func provideMasterSession(ctx context.Context, cfg *config.Config, tasks *orchestration.TaskManager, logger log.Logger) (llm.Session, error) {
	masterTools, err := orchestration.NewMasterTools(ctx, tasks, logger.With("component", "master"))
	if err != nil {
		return nil, fmt.Errorf("building master tools: %w", err)
	}
	session, err := llm.NewGemini(ctx, llm.GeminiConfig{
		APIKey:         os.Getenv("GEMINI_API_KEY"),
		Model:          cfg.ModelName,
		SystemPrompt:   orchestration.MasterSystemPrompt,
		Temperature:    cfg.Temperature,
		MaxTokens:      cfg.MaxTokens,
		CallsPerMinute: cfg.ModelCallsPerMin,
	}, masterTools, logger.With("component", "llm", "role", "master"))
	if err != nil {
		return nil, fmt.Errorf("creating master session: %w", err)
	}
	return session, nil
}
