package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sqlscribe/sqlscribe/internal/highlight"
	"github.com/sqlscribe/sqlscribe/internal/nl2sql"
	"github.com/sqlscribe/sqlscribe/internal/observability"
	"github.com/sqlscribe/sqlscribe/internal/sqlcheck"
)

const (
	sqlLanguage       = "sql"
	labelGeneratedSQL = "generatedSql"
	labelOptimizedSQL = "optimizedSql"
)

type compileRequest struct {
	Query  string `json:"query"`
	Schema string `json:"schema"`
}

type highlightedSQL struct {
	GeneratedSQL string `json:"generatedSql"`
	OptimizedSQL string `json:"optimizedSql"`
}

type compileResponse struct {
	Result       nl2sql.CompilationResult `json:"result"`
	Highlighted  highlightedSQL           `json:"highlighted"`
	Verification *sqlcheck.Report         `json:"verification,omitempty"`
}

func handleCompile(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Compiler == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "COMPILE_NOT_CONFIGURED", "compilation service is not configured", false, nil)
		return
	}

	var req compileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid compile request body", false, map[string]any{"details": err.Error()})
		return
	}

	result, err := deps.Compiler.Compile(r.Context(), req.Query, req.Schema)
	if err != nil {
		writeCompileError(r.Context(), w, err)
		return
	}

	highlighted, verification := presentResult(r.Context(), deps, req.Schema, result)
	writeJSON(w, http.StatusOK, compileResponse{
		Result:       result,
		Highlighted:  highlighted,
		Verification: verification,
	})
}

func presentResult(ctx context.Context, deps Dependencies, schema string, result nl2sql.CompilationResult) (highlightedSQL, *sqlcheck.Report) {
	highlighted := highlightedSQL{
		GeneratedSQL: renderSQL(deps, result.GeneratedSQL),
		OptimizedSQL: renderSQL(deps, result.OptimizedSQL),
	}
	if deps.Verifier == nil {
		return highlighted, nil
	}
	report := deps.Verifier.Check(ctx, schema,
		sqlcheck.Target{Label: labelGeneratedSQL, SQL: result.GeneratedSQL},
		sqlcheck.Target{Label: labelOptimizedSQL, SQL: result.OptimizedSQL},
	)
	if !report.OK() && deps.Logger != nil {
		observability.WithTrace(ctx, deps.Logger).InfoContext(ctx, "generated sql failed verification",
			slog.Bool("checked", report.Checked),
			slog.Int("skipped_ddl", len(report.SkippedDDL)),
		)
	}
	return highlighted, &report
}

func writeCompileError(ctx context.Context, w http.ResponseWriter, err error) {
	kind := nl2sql.KindOf(err)
	extra := map[string]any{"error_kind": string(kind)}
	message := nl2sql.UserMessage(err)

	switch kind {
	case nl2sql.KindInput:
		writeError(ctx, w, http.StatusBadRequest, "INPUT_REQUIRED", message, false, nil)
	case nl2sql.KindResponseFormat:
		writeError(ctx, w, http.StatusBadGateway, "RESPONSE_FORMAT_INVALID", message, true, extra)
	case nl2sql.KindResponseShape:
		writeError(ctx, w, http.StatusBadGateway, "RESPONSE_SHAPE_INVALID", message, true, extra)
	default:
		writeError(ctx, w, http.StatusBadGateway, "COMPILE_FAILED", message, true, extra)
	}
}

func renderSQL(deps Dependencies, code string) string {
	return highlight.Render(deps.Highlighter, code, sqlLanguage)
}
