package chat

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

const (
	// MaxMessageChars is the hard bound on the user message.
	MaxMessageChars = 500
	// MaxContextChars is the hard bound on the supplied profile context.
	MaxContextChars = 50000
	// MaxHistoryTurns is how many trailing turns are kept.
	MaxHistoryTurns = 6
)

type rawRequest struct {
	Message json.RawMessage `json:"message"`
	Context json.RawMessage `json:"context"`
	History json.RawMessage `json:"history"`
}

type rawTurn struct {
	Content *string `json:"content"`
	IsUser  *bool   `json:"isUser"`
	Role    *string `json:"role"`
}

// Validate enforces shape and size constraints on the raw request body and
// constructs the sanitized, bounded request passed to downstream stages.
// Rules short-circuit on the first failure; the returned error is always a
// *Error with KindInvalidInput and a reason safe to expose.
func Validate(body []byte) (*ValidatedRequest, error) {
	var raw rawRequest
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, Invalid("Invalid request body")
	}

	if raw.Message == nil {
		return nil, Invalid("Message is required")
	}
	var message string
	if err := json.Unmarshal(raw.Message, &message); err != nil {
		return nil, Invalid("Message must be a string")
	}
	if utf8.RuneCountInString(message) > MaxMessageChars {
		return nil, Invalid("Message too long (maximum 500 characters)")
	}

	var contextText string
	if raw.Context != nil {
		if err := json.Unmarshal(raw.Context, &contextText); err != nil {
			return nil, Invalid("Context must be a string")
		}
		if utf8.RuneCountInString(contextText) > MaxContextChars {
			return nil, Invalid("Context too long (maximum 50000 characters)")
		}
		// Trim only. The context is trusted site-owner content and keeps
		// its markup; downstream stages use it as stored here.
		contextText = strings.TrimSpace(contextText)
	}

	message = Sanitize(message)
	if message == "" {
		return nil, Invalid("Message cannot be empty")
	}

	return &ValidatedRequest{
		Message: message,
		Context: contextText,
		History: parseHistory(raw.History),
	}, nil
}

// parseHistory filters the history to entries exposing a string content
// and a recognizable role indicator, keeps the most recent turns and
// sanitizes each one. A non-array history is ignored rather than rejected.
func parseHistory(raw json.RawMessage) []Turn {
	if raw == nil {
		return nil
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil
	}

	turns := make([]Turn, 0, len(entries))
	for _, entry := range entries {
		var t rawTurn
		if err := json.Unmarshal(entry, &t); err != nil {
			continue
		}
		if t.Content == nil {
			continue
		}
		if t.Role == nil && t.IsUser == nil {
			continue
		}
		turns = append(turns, Turn{
			Role:    resolveRole(t),
			Content: Sanitize(*t.Content),
		})
	}

	if len(turns) > MaxHistoryTurns {
		turns = turns[len(turns)-MaxHistoryTurns:]
	}
	return turns
}

// resolveRole collapses the duck-typed isUser/role union into a tagged
// variant, decided exactly once here.
func resolveRole(t rawTurn) Role {
	if t.Role != nil {
		if *t.Role == MessageRoleUser {
			return RoleUser
		}
		return RoleAssistant
	}
	if t.IsUser != nil && *t.IsUser {
		return RoleUser
	}
	return RoleAssistant
}
