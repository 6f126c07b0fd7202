package nl2sql

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sqlscribe/sqlscribe/internal/observability"
)

type Compiler struct {
	service Service
	logger  *slog.Logger
}

func NewCompiler(service Service, logger *slog.Logger) (*Compiler, error) {
	if service == nil {
		return nil, fmt.Errorf("compilation service is required")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Compiler{service: service, logger: logger}, nil
}

func (c *Compiler) Info() ServiceInfo {
	return c.service.Info()
}

func (c *Compiler) Compile(ctx context.Context, query, schema string) (CompilationResult, error) {
	if strings.TrimSpace(query) == "" || strings.TrimSpace(schema) == "" {
		observability.IncrementCompileRejected("input_required")
		return CompilationResult{}, newError(KindInput, "query and schema must both be non-empty")
	}

	start := time.Now()
	result, err := c.compile(ctx, query, schema)
	elapsed := time.Since(start)

	outcome := "success"
	if err != nil {
		outcome = string(KindOf(err))
	}
	observability.ObserveCompile(outcome, elapsed)

	info := c.service.Info()
	logger := observability.WithTrace(ctx, c.logger)
	attrs := []any{
		slog.String("provider", info.Provider),
		slog.String("model", info.Model),
		slog.String("outcome", outcome),
		slog.String("duration", elapsed.String()),
	}
	if err != nil {
		logger.ErrorContext(ctx, "compile failed", append(attrs, slog.Any("error", err))...)
		return CompilationResult{}, err
	}
	logger.InfoContext(ctx, "compile succeeded", append(attrs, slog.Int("tokens", len(result.LexicalTokens)))...)
	return result, nil
}

func (c *Compiler) compile(ctx context.Context, query, schema string) (CompilationResult, error) {
	raw, err := c.service.Generate(ctx, BuildPrompt(query, schema))
	if err != nil {
		return CompilationResult{}, &Error{Kind: KindTransport, Err: err}
	}
	return ParseResponse(raw)
}
