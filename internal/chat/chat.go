// Package chat holds the domain types for the assistant proxy: validated
// requests, conversation turns, provider messages and the error taxonomy
// shared by every stage of the request pipeline.
package chat

// Role identifies the author of a history turn. It is decided once during
// validation and never re-inferred downstream.
type Role int

const (
	RoleUser Role = iota
	RoleAssistant
)

func (r Role) String() string {
	if r == RoleUser {
		return MessageRoleUser
	}
	return MessageRoleAssistant
}

// Turn is a single prior exchange in the conversation. Immutable once
// constructed by the validator.
type Turn struct {
	Role    Role
	Content string
}

// ValidatedRequest is the sanitized, bounded representation of a caller's
// request. It is only ever constructed by Validate.
type ValidatedRequest struct {
	Message string
	Context string
	History []Turn
}

// Wire roles for the upstream provider.
const (
	MessageRoleSystem    = "system"
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"
)

// Message is one entry in the ordered list sent to the upstream provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
