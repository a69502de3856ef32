package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/garnizeh/careerprep/api"
	dbfs "github.com/garnizeh/careerprep/db"
	"github.com/garnizeh/careerprep/internal/ai"
	"github.com/garnizeh/careerprep/internal/auth"
	"github.com/garnizeh/careerprep/internal/config"
	"github.com/garnizeh/careerprep/internal/db"
	"github.com/garnizeh/careerprep/internal/interview"
	"github.com/garnizeh/careerprep/internal/metrics"
	"github.com/garnizeh/careerprep/internal/repository/sqlite"
	"github.com/garnizeh/careerprep/internal/resume"
	"github.com/garnizeh/careerprep/pkg/llm"
	"github.com/garnizeh/careerprep/pkg/repository"
	"github.com/garnizeh/careerprep/pkg/repository/memory"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

const shutdownTimeout = 30 * time.Second

func main() {
	var configPath = flag.String("config", "", "Path to config YAML file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, logger); err != nil {
		logger.Error("server exited with error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("server exited")
}

func run(ctx context.Context, configPath string, logger *slog.Logger) error {
	if err := config.LoadDotEnv(""); err != nil {
		return err
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	api.SetLogger(logger)
	auth.SetLogger(logger)
	resume.SetLogger(logger)
	interview.SetLogger(logger)
	ai.SetLogger(logger)
	llm.SetLogger(logger)

	logger.Info("starting careerprep",
		slog.String("version", version),
		slog.String("build_time", buildTime),
		slog.String("storage", cfg.Storage),
		slog.String("llm_provider", cfg.LLM.Provider),
	)

	health := make(map[string]api.HealthCheck)

	store, closeStore, err := openStore(ctx, cfg, logger, health)
	if err != nil {
		return err
	}
	defer closeStore()

	gen, closeGen, err := openGenerator(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeGen()

	m := metrics.New()
	engine, err := ai.NewEngine(gen, ai.WithTimeout(cfg.LLM.Timeout), ai.WithObserver(m.ObserveLLM))
	if err != nil {
		return fmt.Errorf("create ai engine: %w", err)
	}

	handler := api.SetupRoutes(
		api.RouterConfig{Version: version, BuildTime: buildTime, CORSOrigin: cfg.CORSOrigin},
		api.Services{
			Auth:      auth.NewService(store, cfg.JWTSecret, cfg.TokenDuration),
			Resumes:   resume.NewService(store, engine),
			Interview: interview.NewService(store, engine),
			Metrics:   m,
			Health:    health,
		},
	)

	// Model calls can outlive the plain API timeout.
	writeTimeout := cfg.APITimeout
	if llmBound := cfg.LLM.Timeout + 10*time.Second; llmBound > writeTimeout {
		writeTimeout = llmBound
	}

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.APITimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", slog.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// openStore selects the configured storage adapter. Health checks for the
// backing store are registered on health.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger, health map[string]api.HealthCheck) (repository.Store, func(), error) {
	if cfg.Storage == config.StorageMemory {
		logger.Warn("using in-memory storage; data is lost on restart")
		return memory.New(), func() {}, nil
	}

	conn, err := db.New(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if cfg.MigrateOnStart {
		if err := db.Migrate(ctx, conn, dbfs.Migrations); err != nil {
			_ = conn.Close()
			return nil, nil, fmt.Errorf("migrate database: %w", err)
		}
	}
	health["database"] = func(ctx context.Context) error {
		return conn.GetConn().PingContext(ctx)
	}

	closeFn := func() {
		if err := conn.Close(); err != nil {
			logger.Error("close database", slog.Any("error", err))
		}
	}
	return sqlite.New(conn, logger), closeFn, nil
}

func openGenerator(ctx context.Context, cfg *config.Config) (llm.Generator, func(), error) {
	switch cfg.LLM.Provider {
	case config.ProviderGemini:
		c, err := llm.NewGeminiClient(ctx, cfg.Gemini, cfg.LLM.Model)
		if err != nil {
			return nil, nil, fmt.Errorf("create gemini client: %w", err)
		}
		return c, func() { _ = c.Close() }, nil
	default:
		c, err := llm.NewDefaultOllamaClient(cfg.Ollama, cfg.LLM.Model)
		if err != nil {
			return nil, nil, fmt.Errorf("create ollama client: %w", err)
		}
		return c, func() { _ = c.Close() }, nil
	}
}
