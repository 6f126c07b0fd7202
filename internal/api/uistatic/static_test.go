package uistatic

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandlerServesIndexForRoot(t *testing.T) {
	rr := httptest.NewRecorder()
	Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{`id="query"`, `id="schema"`, `id="compile"`, `id="error"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("index missing %s", want)
		}
	}
	if rr.Header().Get("Cache-Control") != "no-cache" {
		t.Fatalf("Cache-Control = %q", rr.Header().Get("Cache-Control"))
	}
}

func TestHandlerServesAssets(t *testing.T) {
	rr := httptest.NewRecorder()
	Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/app.js", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "/v1/sessions") {
		t.Fatal("app.js should talk to the sessions API")
	}
}

func TestAppScriptRecreatesSessionQuietly(t *testing.T) {
	rr := httptest.NewRecorder()
	Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/app.js", nil))
	script := rr.Body.String()

	for _, want := range []string{
		"createSession({ quiet: true })",
		"if (!reopened || !state.sessionId)",
		"return false;",
	} {
		if !strings.Contains(script, want) {
			t.Fatalf("app.js missing %q", want)
		}
	}
}

func TestHandlerFallsBackToIndex(t *testing.T) {
	rr := httptest.NewRecorder()
	Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/some/deep/link", nil))

	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "<title>sqlscribe</title>") {
		t.Fatalf("status = %d, body=%s", rr.Code, rr.Body.String())
	}
}

func TestHandlerSetsSecurityHeaders(t *testing.T) {
	for _, target := range []string{"/", "/app.js", "/styles.css"} {
		rr := httptest.NewRecorder()
		Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))

		csp := rr.Header().Get("Content-Security-Policy")
		if !strings.Contains(csp, "script-src 'self'") || !strings.Contains(csp, "frame-ancestors 'none'") {
			t.Fatalf("%s: Content-Security-Policy = %q", target, csp)
		}
		if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Fatalf("%s: X-Content-Type-Options = %q", target, rr.Header().Get("X-Content-Type-Options"))
		}
	}
}
