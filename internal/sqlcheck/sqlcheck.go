package sqlcheck

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"
)

const defaultTimeout = 2 * time.Second

// Schema text must not reach files, the network or extensions.
const sandboxDSN = "?enable_external_access=false&autoload_known_extensions=false&autoinstall_known_extensions=false&lock_configuration=true"

type Target struct {
	Label string
	SQL   string
}

type StatementCheck struct {
	Label string `json:"label"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type Report struct {
	Checked    bool             `json:"checked"`
	Statements []StatementCheck `json:"statements"`
	SkippedDDL []string         `json:"skippedDdl,omitempty"`
	Error      string           `json:"error,omitempty"`
}

func (r Report) OK() bool {
	if !r.Checked {
		return false
	}
	for _, statement := range r.Statements {
		if !statement.OK {
			return false
		}
	}
	return true
}

type Checker struct {
	timeout time.Duration
	logger  *slog.Logger
}

func NewChecker(timeout time.Duration, logger *slog.Logger) *Checker {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Checker{timeout: timeout, logger: logger}
}

// Check loads schema into a fresh database and asks DuckDB to plan each
// target. A failure to set up the database is reported in Report.Error with
// Checked left false.
func (c *Checker) Check(ctx context.Context, schema string, targets ...Target) Report {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	db, err := sql.Open("duckdb", sandboxDSN)
	if err != nil {
		return Report{Error: fmt.Sprintf("open duckdb: %v", err)}
	}
	defer func() { _ = db.Close() }()
	db.SetMaxOpenConns(1)

	skipped, err := applySchema(ctx, db, schema)
	if err != nil {
		return Report{Error: err.Error()}
	}
	if len(skipped) > 0 {
		c.logger.DebugContext(ctx, "schema statements skipped during verification", "count", len(skipped))
	}

	report := Report{Checked: true, SkippedDDL: skipped, Statements: make([]StatementCheck, 0, len(targets))}
	for _, target := range targets {
		report.Statements = append(report.Statements, explain(ctx, db, target))
	}
	return report
}

// applySchema runs the DDL statements repeatedly until a pass makes no
// progress, so tables may reference tables declared after them.
func applySchema(ctx context.Context, db *sql.DB, schema string) ([]string, error) {
	pending := SplitStatements(schema)
	for len(pending) > 0 {
		var failed []string
		for _, statement := range pending {
			if _, err := db.ExecContext(ctx, statement); err != nil {
				if ctx.Err() != nil {
					return nil, fmt.Errorf("apply schema: %w", ctx.Err())
				}
				failed = append(failed, statement)
			}
		}
		if len(failed) == len(pending) {
			return failed, nil
		}
		pending = failed
	}
	return nil, nil
}

func explain(ctx context.Context, db *sql.DB, target Target) StatementCheck {
	check := StatementCheck{Label: target.Label}
	statements := SplitStatements(target.SQL)
	if len(statements) == 0 {
		check.Error = "sql is empty"
		return check
	}
	for _, statement := range statements {
		rows, err := db.QueryContext(ctx, "EXPLAIN "+statement)
		if err != nil {
			check.Error = err.Error()
			return check
		}
		for rows.Next() {
		}
		err = rows.Err()
		_ = rows.Close()
		if err != nil {
			check.Error = err.Error()
			return check
		}
	}
	check.OK = true
	return check
}

// SplitStatements splits text on semicolons that are outside quotes and
// comments. Statements that contain only comments or whitespace are dropped.
func SplitStatements(text string) []string {
	var (
		statements []string
		current    strings.Builder
		hasCode    bool
	)
	flush := func() {
		statement := strings.TrimSpace(current.String())
		if hasCode && statement != "" {
			statements = append(statements, statement)
		}
		current.Reset()
		hasCode = false
	}

	for i := 0; i < len(text); i++ {
		ch := text[i]
		switch {
		case ch == '-' && i+1 < len(text) && text[i+1] == '-':
			end := strings.IndexByte(text[i:], '\n')
			if end < 0 {
				end = len(text) - i
			}
			current.WriteString(text[i : i+end])
			i += end - 1
		case ch == '/' && i+1 < len(text) && text[i+1] == '*':
			end := strings.Index(text[i+2:], "*/")
			if end < 0 {
				current.WriteString(text[i:])
				i = len(text)
				continue
			}
			current.WriteString(text[i : i+2+end+2])
			i += 2 + end + 1
		case ch == '\'' || ch == '"':
			hasCode = true
			end := closingQuote(text, i)
			current.WriteString(text[i:end])
			i = end - 1
		case ch == ';':
			flush()
		default:
			if ch != ' ' && ch != '\t' && ch != '\n' && ch != '\r' {
				hasCode = true
			}
			current.WriteByte(ch)
		}
	}
	flush()
	return statements
}

func closingQuote(text string, start int) int {
	quote := text[start]
	for i := start + 1; i < len(text); i++ {
		if text[i] != quote {
			continue
		}
		if i+1 < len(text) && text[i+1] == quote {
			i++
			continue
		}
		return i + 1
	}
	return len(text)
}
