package api

import (
	"bufio"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"testing"
)

var servedOperations = []string{
	"GET /v1/health",
	"GET /v1/ready",
	"GET /v1/metrics",
	"GET /v1/schema",
	"POST /v1/compile",
	"POST /v1/sessions",
	"GET /v1/sessions/{id}",
	"DELETE /v1/sessions/{id}",
	"PUT /v1/sessions/{id}/input",
	"POST /v1/sessions/{id}/compile",
}

func TestOpenAPIDocumentsServedOperations(t *testing.T) {
	documented := documentedOperations(t)

	want := append([]string(nil), servedOperations...)
	sort.Strings(want)
	if strings.Join(documented, "\n") != strings.Join(want, "\n") {
		t.Fatalf("openapi operations:\n%s\nwant:\n%s", strings.Join(documented, "\n"), strings.Join(want, "\n"))
	}
}

func TestDocumentedOperationsAreRouted(t *testing.T) {
	h := NewHandler(loadConfig(t, nil), Dependencies{})
	for _, operation := range servedOperations {
		method, path, _ := strings.Cut(operation, " ")
		target := strings.ReplaceAll(path, "{id}", "00000000-0000-0000-0000-000000000000")

		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(method, target, strings.NewReader("{}")))
		if rr.Code == http.StatusNotFound || rr.Code == http.StatusMethodNotAllowed {
			t.Fatalf("%s answered %d; route is not registered", operation, rr.Code)
		}
	}
}

// documentedOperations reads "METHOD /path" pairs from the paths section of
// api/openapi.yaml by indentation.
func documentedOperations(t *testing.T) []string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	repoRoot := filepath.Clean(filepath.Join(filepath.Dir(filename), "..", ".."))
	file, err := os.Open(filepath.Join(repoRoot, "api", "openapi.yaml"))
	if err != nil {
		t.Fatalf("open openapi file error = %v", err)
	}
	defer func() { _ = file.Close() }()

	methods := map[string]bool{"get": true, "post": true, "put": true, "delete": true, "patch": true}
	var (
		operations []string
		inPaths    bool
		current    string
	)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "paths:":
			inPaths = true
		case inPaths && line != "" && !strings.HasPrefix(line, " "):
			inPaths = false
		case inPaths && strings.HasPrefix(line, "  /") && strings.HasSuffix(line, ":"):
			current = strings.TrimSuffix(strings.TrimSpace(line), ":")
		case inPaths && current != "" && strings.HasPrefix(line, "    ") && !strings.HasPrefix(line, "     "):
			key := strings.TrimSuffix(strings.TrimSpace(line), ":")
			if methods[key] {
				operations = append(operations, strings.ToUpper(key)+" "+current)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan openapi file error = %v", err)
	}
	sort.Strings(operations)
	return operations
}
