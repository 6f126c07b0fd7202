package api

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sqlscribe/sqlscribe/internal/highlight"
	"github.com/sqlscribe/sqlscribe/internal/nl2sql"
)

var employeesResult = nl2sql.CompilationResult{
	LexicalTokens:    []string{"employees", "hire_date"},
	SyntaxTree:       "SELECT ... WHERE hire_date > ...",
	SemanticAnalysis: "valid",
	GeneratedSQL:     "SELECT * FROM employees WHERE hire_date > '2022-01-01';",
	OptimizedSQL:     "SELECT * FROM employees WHERE hire_date > '2022-01-01';",
	Explanation:      "Filters employees by hire date.",
}

func TestCompileEndpointReturnsResult(t *testing.T) {
	compiler := &fakeCompiler{result: employeesResult}
	h := NewHandler(loadConfig(t, nil), Dependencies{Compiler: compiler})

	rr := postJSON(h, "/v1/compile", `{"query":"List all employees hired after 2022-01-01.","schema":"CREATE TABLE employees (hire_date DATE);"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	result := body["result"].(map[string]any)
	if result["generatedSql"] != employeesResult.GeneratedSQL {
		t.Fatalf("generatedSql = %v", result["generatedSql"])
	}
	if result["explanation"] != "Filters employees by hire date." {
		t.Fatalf("explanation = %v", result["explanation"])
	}
	highlighted := body["highlighted"].(map[string]any)
	want := "<pre><code>SELECT * FROM employees WHERE hire_date &gt; &#39;2022-01-01&#39;;</code></pre>"
	if highlighted["generatedSql"] != want {
		t.Fatalf("highlighted generatedSql = %v", highlighted["generatedSql"])
	}
	if _, ok := body["verification"]; ok {
		t.Fatal("verification should be omitted without a verifier")
	}
	if compiler.calls() != 1 {
		t.Fatalf("compiler calls = %d", compiler.calls())
	}
}

func TestCompileEndpointHighlightsAndVerifies(t *testing.T) {
	verifier := &fakeVerifier{}
	h := NewHandler(loadConfig(t, nil), Dependencies{
		Compiler:    &fakeCompiler{result: employeesResult},
		Highlighter: highlight.NewChroma("github"),
		Verifier:    verifier,
	})

	rr := postJSON(h, "/v1/compile", `{"query":"q","schema":"CREATE TABLE employees (hire_date DATE);"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	highlighted := body["highlighted"].(map[string]any)
	if !strings.Contains(highlighted["optimizedSql"].(string), "<span") {
		t.Fatalf("optimizedSql not highlighted: %v", highlighted["optimizedSql"])
	}
	verification := body["verification"].(map[string]any)
	if verification["checked"] != true {
		t.Fatalf("verification = %#v", verification)
	}
	if len(verifier.targets) != 2 || verifier.targets[0].Label != "generatedSql" || verifier.targets[1].Label != "optimizedSql" {
		t.Fatalf("verifier targets = %#v", verifier.targets)
	}
	if verifier.schemas[0] != "CREATE TABLE employees (hire_date DATE);" {
		t.Fatalf("verifier schema = %q", verifier.schemas[0])
	}
}

func TestCompileEndpointLogsFailedVerification(t *testing.T) {
	var logs bytes.Buffer
	h := NewHandler(loadConfig(t, nil), Dependencies{
		Compiler: &fakeCompiler{result: employeesResult},
		Verifier: &fakeVerifier{failLabel: "optimizedSql"},
		Logger:   slog.New(slog.NewJSONHandler(&logs, nil)),
	})

	rr := postJSON(h, "/v1/compile", `{"query":"q","schema":"CREATE TABLE employees (hire_date DATE);"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(logs.String(), `"msg":"generated sql failed verification"`) {
		t.Fatalf("logs = %s", logs.String())
	}
}

func TestCompileEndpointRejectsEmptyInput(t *testing.T) {
	compiler := &fakeCompiler{result: employeesResult}
	h := NewHandler(loadConfig(t, nil), Dependencies{Compiler: compiler})

	rr := postJSON(h, "/v1/compile", `{"query":"   ","schema":"CREATE TABLE t (id INT);"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["error_code"] != "INPUT_REQUIRED" {
		t.Fatalf("error_code = %v", body["error_code"])
	}
	if compiler.calls() != 0 {
		t.Fatalf("compiler calls = %d, want 0", compiler.calls())
	}
}

func TestCompileEndpointMapsFailures(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    string
		message string
	}{
		{
			name:    "transport",
			err:     &nl2sql.Error{Kind: nl2sql.KindTransport, Err: errors.New("503 from upstream")},
			code:    "COMPILE_FAILED",
			message: nl2sql.MessageTransport,
		},
		{
			name:    "unclassified",
			err:     errors.New("boom"),
			code:    "COMPILE_FAILED",
			message: nl2sql.MessageTransport,
		},
		{
			name:    "format",
			err:     &nl2sql.Error{Kind: nl2sql.KindResponseFormat, Err: errors.New("invalid character")},
			code:    "RESPONSE_FORMAT_INVALID",
			message: nl2sql.MessageResponseFormat,
		},
		{
			name:    "shape",
			err:     &nl2sql.Error{Kind: nl2sql.KindResponseShape, Err: errors.New("generatedSql missing")},
			code:    "RESPONSE_SHAPE_INVALID",
			message: nl2sql.MessageTransport,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHandler(loadConfig(t, nil), Dependencies{Compiler: &fakeCompiler{err: tc.err}})
			rr := postJSON(h, "/v1/compile", `{"query":"q","schema":"s"}`)
			if rr.Code != http.StatusBadGateway {
				t.Fatalf("status = %d", rr.Code)
			}
			body := decodeBody(t, rr)
			if body["error_code"] != tc.code {
				t.Fatalf("error_code = %v, want %s", body["error_code"], tc.code)
			}
			if body["message"] != tc.message {
				t.Fatalf("message = %v, want %s", body["message"], tc.message)
			}
			if _, ok := body["result"]; ok {
				t.Fatal("failure must not carry a result")
			}
		})
	}
}

func TestCompileEndpointRejectsBadJSON(t *testing.T) {
	h := NewHandler(loadConfig(t, nil), Dependencies{Compiler: &fakeCompiler{}})
	for _, payload := range []string{`{"query":`, `{"query":"q","schema":"s","extra":1}`} {
		rr := postJSON(h, "/v1/compile", payload)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("payload %s status = %d", payload, rr.Code)
		}
	}
}

func TestCompileEndpointNotConfigured(t *testing.T) {
	h := NewHandler(loadConfig(t, nil), Dependencies{})
	rr := postJSON(h, "/v1/compile", `{"query":"q","schema":"s"}`)
	if rr.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d", rr.Code)
	}
}

func postJSON(h http.Handler, path, body string) *httptest.ResponseRecorder {
	return sendJSON(h, http.MethodPost, path, body)
}

func sendJSON(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}
