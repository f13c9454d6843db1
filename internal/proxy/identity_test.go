package proxy

import (
	"net/http/httptest"
	"testing"
)

func TestClientIdentifier_ForwardedForWins(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/chat", nil)
	req.RemoteAddr = "10.0.0.1:9999"
	req.Header.Set("X-Forwarded-For", "198.51.100.4, 10.0.0.1")

	if got := clientIdentifier(req); got != "198.51.100.4" {
		t.Errorf("Expected first forwarded hop, got %q", got)
	}
}

func TestClientIdentifier_RemoteAddrFallback(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/chat", nil)
	req.RemoteAddr = "203.0.113.7:51234"

	if got := clientIdentifier(req); got != "203.0.113.7" {
		t.Errorf("Expected host from peer address, got %q", got)
	}
}

func TestClientIdentifier_UnparseableRemoteAddr(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/chat", nil)
	req.RemoteAddr = "not-a-hostport"

	if got := clientIdentifier(req); got != "not-a-hostport" {
		t.Errorf("Expected raw address, got %q", got)
	}
}

func TestClientIdentifier_SentinelWhenUnidentifiable(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/chat", nil)
	req.RemoteAddr = ""

	if got := clientIdentifier(req); got != anonymousClient {
		t.Errorf("Expected sentinel, got %q", got)
	}
}
