package proxy

import (
	"net"
	"net/http"
	"strings"
)

// anonymousClient is the shared bucket for callers with no identifying
// metadata. Rate limiting degrades to a single counter for them.
const anonymousClient = "unknown"

// clientIdentifier derives a stable per-caller key from request metadata.
// The first X-Forwarded-For hop wins so deployments behind a load
// balancer key on the real client, then the peer address, then the
// sentinel. Never fails.
func clientIdentifier(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first := strings.TrimSpace(strings.Split(fwd, ",")[0])
		if first != "" {
			return first
		}
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}

	return anonymousClient
}
