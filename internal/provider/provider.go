package provider

import (
	"context"

	"github.com/mazelabs/chat-proxy/internal/chat"
)

// Request is one completion call. Sampling parameters come from process
// configuration, never from the caller.
type Request struct {
	Model            string
	Messages         []chat.Message
	MaxTokens        int
	Temperature      float64
	PresencePenalty  float64
	FrequencyPenalty float64
}

type Response struct {
	ID           string
	Content      string
	Model        string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
}

// Provider issues completion requests to an upstream language-model
// service. Implementations enforce their own timeout and classify
// failures into the chat error taxonomy; they never retry.
type Provider interface {
	Complete(ctx context.Context, req *Request) (*Response, error)
	Name() string
}
