package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sqlscribe/sqlscribe/internal/auth"
	"github.com/sqlscribe/sqlscribe/internal/config"
	"github.com/sqlscribe/sqlscribe/internal/highlight"
	"github.com/sqlscribe/sqlscribe/internal/nl2sql"
	"github.com/sqlscribe/sqlscribe/internal/observability"
	"github.com/sqlscribe/sqlscribe/internal/schemasource"
	"github.com/sqlscribe/sqlscribe/internal/sqlcheck"
	"github.com/sqlscribe/sqlscribe/internal/workbench"
)

const maxRequestBytes = 1 << 20

type ReadinessCheck func(ctx context.Context) error

type QueryCompiler interface {
	Compile(ctx context.Context, query, schema string) (nl2sql.CompilationResult, error)
}

type SQLVerifier interface {
	Check(ctx context.Context, schema string, targets ...sqlcheck.Target) sqlcheck.Report
}

type Dependencies struct {
	Logger            *slog.Logger
	Readiness         ReadinessCheck
	AuthMiddleware    func(http.Handler) http.Handler
	DependencyTimeout time.Duration
	Compiler          QueryCompiler
	Sessions          *workbench.Store
	SchemaSource      schemasource.Source
	Highlighter       highlight.Highlighter
	Verifier          SQLVerifier
	UI                http.Handler
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": cfg.Service.Name})
	})

	mux.HandleFunc("GET /v1/ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.Readiness == nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
			return
		}
		timeout := deps.DependencyTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "NOT_READY", err.Error(), true, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	})

	mux.Handle("GET /v1/metrics", promhttp.Handler())

	protected := http.NewServeMux()
	protected.Handle("GET /v1/schema", auth.RequireRole(auth.RoleSchemaReader, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleGetSchema(deps, w, r)
	})))
	protected.Handle("POST /v1/compile", auth.RequireRole(auth.RoleCompiler, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleCompile(deps, w, r)
	})))
	protected.Handle("POST /v1/sessions", auth.RequireRole(auth.RoleCompiler, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleCreateSession(deps, w, r)
	})))
	protected.Handle("GET /v1/sessions/{id}", auth.RequireRole(auth.RoleCompiler, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleGetSession(deps, w, r)
	})))
	protected.Handle("PUT /v1/sessions/{id}/input", auth.RequireRole(auth.RoleCompiler, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleUpdateSessionInput(deps, w, r)
	})))
	protected.Handle("POST /v1/sessions/{id}/compile", auth.RequireRole(auth.RoleCompiler, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleCompileSession(deps, w, r)
	})))
	protected.Handle("DELETE /v1/sessions/{id}", auth.RequireRole(auth.RoleCompiler, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleDeleteSession(deps, w, r)
	})))

	var protectedHandler http.Handler = protected
	if cfg.Auth.Required {
		if deps.AuthMiddleware == nil {
			if deps.Logger != nil {
				deps.Logger.Error("auth required but auth middleware missing")
			}
			protectedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeError(r.Context(), w, http.StatusInternalServerError, "AUTH_MIDDLEWARE_MISSING", "auth middleware is required by configuration", false, nil)
			})
		} else {
			protectedHandler = deps.AuthMiddleware(protectedHandler)
		}
	}
	mux.Handle("GET /v1/schema", protectedHandler)
	mux.Handle("POST /v1/compile", protectedHandler)
	mux.Handle("POST /v1/sessions", protectedHandler)
	mux.Handle("GET /v1/sessions/{id}", protectedHandler)
	mux.Handle("PUT /v1/sessions/{id}/input", protectedHandler)
	mux.Handle("POST /v1/sessions/{id}/compile", protectedHandler)
	mux.Handle("DELETE /v1/sessions/{id}", protectedHandler)
	if deps.UI != nil {
		mux.Handle("GET /{path...}", deps.UI)
	}

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.MetricsMiddleware,
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	middlewares = append(middlewares, observability.RecoveryMiddleware(deps.Logger))
	return chain(mux, middlewares...)
}

func CheckCredentials(cfg config.Config) ReadinessCheck {
	return func(_ context.Context) error {
		return cfg.RequireCredentials()
	}
}

func CheckSchemaSource(source schemasource.Source) ReadinessCheck {
	return func(ctx context.Context) error {
		if source == nil {
			return errors.New("schema source is not configured")
		}
		if _, err := source.Load(ctx); err != nil {
			return fmt.Errorf("schema source %s is unavailable: %w", source.Name(), err)
		}
		return nil
	}
}

func CombineReadinessChecks(checks ...ReadinessCheck) ReadinessCheck {
	filtered := make([]ReadinessCheck, 0, len(checks))
	for _, check := range checks {
		if check != nil {
			filtered = append(filtered, check)
		}
	}
	return func(ctx context.Context) error {
		for _, check := range filtered {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func decodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
		"context":    extra,
		"trace_id":   observability.TraceIDFromContext(ctx),
	})
}
