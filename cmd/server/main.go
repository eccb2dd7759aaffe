package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/amagraneronline/curso-python/internal/activity"
	"github.com/amagraneronline/curso-python/internal/ai"
	"github.com/amagraneronline/curso-python/internal/api"
	"github.com/amagraneronline/curso-python/internal/auth"
	"github.com/amagraneronline/curso-python/internal/curriculum"
	"github.com/amagraneronline/curso-python/internal/dashboard"
	"github.com/amagraneronline/curso-python/internal/grading"
	"github.com/amagraneronline/curso-python/internal/platform/cache"
	"github.com/amagraneronline/curso-python/internal/platform/config"
	"github.com/amagraneronline/curso-python/internal/platform/database"
	"github.com/amagraneronline/curso-python/internal/progress"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(cfg.Log, os.Stdout))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	application, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer application.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      application.handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2 * cfg.Grading.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	slog.Info("shutting down")

	// Live feeds are hijacked connections that Shutdown does not wait for.
	application.hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// app holds everything the HTTP server needs and the resources to release.
type app struct {
	handler http.Handler
	hub     *activity.Hub
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// newApp wires storage, sessions, grading and the HTTP handlers from cfg.
func newApp(ctx context.Context, cfg *config.Config) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	catalog, err := loadCatalog(cfg.CurriculumPath)
	if err != nil {
		return nil, err
	}

	checks := make(map[string]api.HealthChecker)

	var (
		accounts auth.AccountRepository = auth.NewMemoryAccountRepository()
		progRepo progress.Repository    = progress.NewMemoryRepository()
		events   activity.Logger        = activity.NewMemoryLogger()
	)
	if cfg.Storage.Driver == "postgres" {
		db, err := database.New(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		checks["database"] = db

		if err := db.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		if accounts, err = auth.NewPostgresAccountRepository(db.Pool); err != nil {
			return nil, err
		}
		if progRepo, err = progress.NewPostgresRepository(db.Pool); err != nil {
			return nil, err
		}
		events = activity.NewPostgresLogger(db.Pool)
		slog.Info("using postgres storage")
	}

	var (
		sessions auth.SessionStore = auth.NewMemorySessionStore(cfg.Auth.SessionTTL)
		budget   ai.BudgetChecker  = ai.NewInMemoryBudget(cfg.Grading.TokenBudget)
	)
	if cfg.Storage.SessionBackend == "redis" {
		c, err := cache.New(ctx, cfg.Cache)
		if err != nil {
			return nil, fmt.Errorf("connect cache: %w", err)
		}
		a.closers = append(a.closers, func() { _ = c.Close() })
		checks["cache"] = c

		sessions = auth.NewRedisSessionStore(c.Client, cfg.Auth.SessionTTL)
		budget = ai.NewRedisBudget(c.Client, cfg.Grading.TokenBudget, cfg.Grading.BudgetWindow)
		slog.Info("using redis sessions")
	}

	router := newAIRouter(cfg)
	gradingCfg := grading.Config{
		Budget:  budget,
		Timeout: cfg.Grading.Timeout,
	}
	if router.HasProvider() {
		gradingCfg.Provider = router
		slog.Info("AI grading enabled", "providers", router.Providers())
	} else {
		slog.Warn("no AI provider configured, grading will report unavailable")
	}

	a.hub = activity.NewHub(events)
	a.closers = append(a.closers, a.hub.Close)

	authSvc := auth.NewService(accounts, sessions, cfg.Auth.BcryptCost)
	progressSvc := progress.NewService(progress.ServiceConfig{
		Catalog:    catalog,
		Repository: progRepo,
		Events:     a.hub,
		Grader:     grading.New(gradingCfg),
	})
	dash := dashboard.New(dashboard.Config{
		Catalog:   catalog,
		Directory: authSvc,
		Progress:  progRepo,
		Activity:  a.hub,
	})

	a.handler = api.NewServer(api.Config{
		Auth:      authSvc,
		Progress:  progressSvc,
		Dashboard: dash,
		Hub:       a.hub,
		Checks:    checks,
	}).Handler()

	return a, nil
}

func loadCatalog(path string) (*curriculum.Catalog, error) {
	if path == "" {
		return curriculum.Default()
	}
	return curriculum.LoadDir(path)
}

// newAIRouter registers every configured provider. Order is the fallback
// order. Each provider keeps its own model, since the router hands the same
// request to every provider in the chain.
func newAIRouter(cfg *config.Config) *ai.Router {
	router := ai.NewRouter()
	if c := cfg.AI.Google; c.APIKey != "" {
		var opts []ai.GoogleOption
		if c.Model != "" {
			opts = append(opts, ai.WithGoogleModel(c.Model))
		}
		router.Register(ai.NewGoogleProvider(c.APIKey, opts...))
	}
	if c := cfg.AI.OpenAI; c.APIKey != "" {
		router.Register(ai.NewOpenAIProvider(c.APIKey, openAIModel(c.Model)...))
	}
	if c := cfg.AI.DeepSeek; c.APIKey != "" {
		router.Register(ai.NewDeepSeekProvider(c.APIKey, openAIModel(c.Model)...))
	}
	if c := cfg.AI.OpenRouter; c.APIKey != "" {
		router.Register(ai.NewOpenRouterProvider(c.APIKey, openAIModel(c.Model)...))
	}
	if c := cfg.AI.Ollama; c.Enabled {
		var opts []ai.OllamaOption
		if c.Model != "" {
			opts = append(opts, ai.WithOllamaModel(c.Model))
		}
		router.Register(ai.NewOllamaProvider(c.URL, opts...))
	}
	return router
}

func openAIModel(model string) []ai.OpenAIOption {
	if model == "" {
		return nil
	}
	return []ai.OpenAIOption{ai.WithDefaultModel(model)}
}

func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
