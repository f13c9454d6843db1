package proxy

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/mazelabs/chat-proxy/pkg/ratelimit"
)

type chatResponse struct {
	Response  string `json:"response"`
	Timestamp string `json:"timestamp"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func setRateLimitHeaders(w http.ResponseWriter, quota *ratelimit.Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(quota.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(quota.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(quota.ResetAt.UnixMilli(), 10))
}
