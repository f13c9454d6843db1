package proxy

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func guardedHandler(next http.Handler) http.Handler {
	return NewOriginGuard([]string{"https://example.com"})(next)
}

func TestOriginGuard_AllowedOriginEchoed(t *testing.T) {
	h := guardedHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("POST", "/api/chat", nil)
	req.Header.Set("Origin", "https://example.com")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://example.com" {
		t.Errorf("Expected origin echoed, got %q", got)
	}
	if w.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Error("Expected credentials header on allowed origin")
	}
	if w.Header().Get("Vary") != "Origin" {
		t.Error("Expected Vary: Origin on allowed origin")
	}
}

func TestOriginGuard_UnknownOriginGetsNoHeaders(t *testing.T) {
	h := guardedHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("POST", "/api/chat", nil)
	req.Header.Set("Origin", "https://evil.example")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	// The request itself still goes through; the browser enforces the block.
	if w.Code != http.StatusOK {
		t.Errorf("Expected request to proceed, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Expected no cross-origin header, got %q", got)
	}
	// Caches must still key on Origin or they could serve a
	// header-bearing response to this origin later.
	if w.Header().Get("Vary") != "Origin" {
		t.Error("Expected Vary: Origin on disallowed origin")
	}
}

func TestOriginGuard_ExactMatchOnly(t *testing.T) {
	h := guardedHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for _, origin := range []string{"https://example.com.evil.example", "http://example.com", "https://sub.example.com"} {
		req := httptest.NewRequest("POST", "/api/chat", nil)
		req.Header.Set("Origin", origin)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		if w.Header().Get("Access-Control-Allow-Origin") != "" {
			t.Errorf("Origin %q must not match the allow-list", origin)
		}
	}
}

func TestOriginGuard_PreflightShortCircuits(t *testing.T) {
	h := guardedHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Preflight must not reach the handler")
	}))

	req := httptest.NewRequest("OPTIONS", "/api/chat", nil)
	req.Header.Set("Origin", "https://example.com")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 preflight, got %d", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("Expected empty preflight body, got %q", w.Body.String())
	}
	if w.Header().Get("Access-Control-Allow-Methods") != "POST, OPTIONS" {
		t.Errorf("Expected methods header, got %q", w.Header().Get("Access-Control-Allow-Methods"))
	}
}

// Preflight must bypass rate limiting and validation even when mounted on
// the full router.
func TestOriginGuard_PreflightSkipsPipeline(t *testing.T) {
	h, _ := setupTest(&mockProvider{}, 1)

	r := chi.NewRouter()
	r.Use(NewOriginGuard([]string{"https://example.com"}))
	r.Post("/api/chat", h.HandleChat)

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest("OPTIONS", "/api/chat", nil)
		req.Header.Set("Origin", "https://example.com")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Preflight %d: expected 200, got %d", i, w.Code)
		}
		if w.Header().Get("X-RateLimit-Limit") != "" {
			t.Error("Preflight must not consume rate-limit quota")
		}
	}

	// The quota is untouched, so a real request still passes.
	req := httptest.NewRequest("POST", "/api/chat", strings.NewReader(`{"message": "hi"}`))
	req.Header.Set("Origin", "https://example.com")
	req.RemoteAddr = "203.0.113.9:1000"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 after preflights, got %d", w.Code)
	}
}
