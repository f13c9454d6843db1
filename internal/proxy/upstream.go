package proxy

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/mazelabs/chat-proxy/internal/chat"
	"github.com/mazelabs/chat-proxy/internal/provider"
)

// Upstream wraps the provider in a circuit breaker. Each request is still
// exactly one upstream attempt; an open breaker fails fast as unavailable
// instead of hammering a provider that keeps erroring.
type Upstream struct {
	provider provider.Provider
	breaker  *gobreaker.CircuitBreaker
}

func NewUpstream(p provider.Provider) *Upstream {
	settings := gobreaker.Settings{
		Name:        p.Name(),
		MaxRequests: 3,
		Interval:    5 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	}
	return &Upstream{
		provider: p,
		breaker:  gobreaker.NewCircuitBreaker(settings),
	}
}

func (u *Upstream) Complete(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	result, err := u.breaker.Execute(func() (interface{}, error) {
		return u.provider.Complete(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, chat.NewError(chat.KindUpstreamUnavailable, "", err)
		}
		return nil, err
	}
	return result.(*provider.Response), nil
}
