package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sqlscribe/sqlscribe/internal/api"
	"github.com/sqlscribe/sqlscribe/internal/api/uistatic"
	"github.com/sqlscribe/sqlscribe/internal/auth"
	"github.com/sqlscribe/sqlscribe/internal/config"
	"github.com/sqlscribe/sqlscribe/internal/highlight"
	"github.com/sqlscribe/sqlscribe/internal/nl2sql"
	"github.com/sqlscribe/sqlscribe/internal/observability"
	"github.com/sqlscribe/sqlscribe/internal/schemasource"
	schemapostgres "github.com/sqlscribe/sqlscribe/internal/schemasource/postgres"
	"github.com/sqlscribe/sqlscribe/internal/sqlcheck"
	s3store "github.com/sqlscribe/sqlscribe/internal/storage/s3"
	"github.com/sqlscribe/sqlscribe/internal/workbench"
)

func main() {
	cfg, err := config.LoadFromEnv("sqlscribe-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)
	if err := cfg.RequireCredentials(); err != nil {
		logger.Error("refusing to start", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	service, err := newService(ctx, cfg.AI)
	if err != nil {
		logger.Error("failed to initialize compilation service", slog.Any("error", err))
		os.Exit(1)
	}
	compiler, err := nl2sql.NewCompiler(service, logger)
	if err != nil {
		logger.Error("failed to initialize compiler", slog.Any("error", err))
		os.Exit(1)
	}

	source, closeSource, err := newSchemaSource(ctx, cfg)
	if err != nil {
		logger.Error("failed to initialize schema source", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeSource()

	deps := api.Dependencies{
		Logger:       logger,
		Compiler:     compiler,
		SchemaSource: source,
		Highlighter:  highlight.NewChroma(cfg.UI.HighlightStyle),
		Readiness: api.CombineReadinessChecks(
			api.CheckCredentials(cfg),
			api.CheckSchemaSource(source),
		),
		DependencyTimeout: 5 * time.Second,
	}
	if cfg.SQLCheck.Enabled {
		deps.Verifier = sqlcheck.NewChecker(cfg.SQLCheck.Timeout, logger)
	}
	if cfg.UI.Enabled {
		sessions, err := workbench.NewStore(compiler, cfg.UI.SessionIdleTTL)
		if err != nil {
			logger.Error("failed to initialize session store", slog.Any("error", err))
			os.Exit(1)
		}
		go pruneSessions(ctx, logger, sessions, cfg.UI.SessionIdleTTL)
		deps.Sessions = sessions
		deps.UI = uistatic.Handler()
	}
	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator)
		logger.Info("static api keys loaded", slog.Int("keys", validator.Len()))
	}

	info := compiler.Info()
	logger.Info("compilation service configured",
		slog.String("provider", info.Provider),
		slog.String("model", info.Model),
		slog.String("schema_source", source.Name()),
		slog.Bool("sql_check", cfg.SQLCheck.Enabled),
	)

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		logger.Info("starting api server", slog.String("addr", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}

func newService(ctx context.Context, cfg config.AIConfig) (nl2sql.Service, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return nl2sql.NewOpenAIService(nl2sql.OpenAIConfig{
			BaseURL:     cfg.BaseURL,
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		})
	case config.ProviderGemini:
		return nl2sql.NewGeminiService(ctx, nl2sql.GeminiConfig{
			BaseURL:     cfg.BaseURL,
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		})
	default:
		return nil, fmt.Errorf("unsupported ai provider %q", cfg.Provider)
	}
}

func newSchemaSource(ctx context.Context, cfg config.Config) (schemasource.Source, func(), error) {
	noop := func() {}
	switch cfg.Schema.Source {
	case config.SchemaSourcePostgres:
		db, err := schemapostgres.Open(ctx, schemapostgres.DBConfig{DSN: cfg.Schema.PostgresDSN})
		if err != nil {
			return nil, noop, err
		}
		return schemapostgres.NewIntrospector(db, cfg.Schema.PostgresSchema), func() { _ = db.Close() }, nil
	case config.SchemaSourceObjectStore:
		store, err := s3store.New(s3store.Config{
			Endpoint:        cfg.ObjectStore.Endpoint,
			Region:          cfg.ObjectStore.Region,
			Bucket:          cfg.ObjectStore.Bucket,
			AccessKeyID:     cfg.ObjectStore.AccessKeyID,
			SecretAccessKey: cfg.ObjectStore.SecretAccessKey,
			UseSSL:          cfg.ObjectStore.UseSSL,
			Prefix:          cfg.ObjectStore.Prefix,
		})
		if err != nil {
			return nil, noop, err
		}
		source, err := schemasource.NewObjectSource(store, cfg.Schema.ObjectKeys)
		if err != nil {
			return nil, noop, err
		}
		return source, noop, nil
	default:
		return schemasource.Default(), noop, nil
	}
}

func pruneSessions(ctx context.Context, logger *slog.Logger, sessions *workbench.Store, ttl time.Duration) {
	interval := ttl / 2
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := sessions.Prune(); removed > 0 {
				logger.Debug("pruned idle sessions", slog.Int("removed", removed), slog.Int("active", sessions.Len()))
			}
		}
	}
}
