// Package usagelog records per-request outcomes for operators. Entries
// never feed back into the response path.
package usagelog

import (
	"context"
	"time"
)

type Entry struct {
	ID           string
	ClientID     string
	RequestID    string
	Model        string
	Outcome      string // "ok" or the error classification
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	CreatedAt    time.Time
}

type Store interface {
	Record(ctx context.Context, entry *Entry) error
}

// NopStore discards entries. Used when no database is configured.
type NopStore struct{}

func (NopStore) Record(ctx context.Context, entry *Entry) error { return nil }
