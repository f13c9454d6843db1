package chat

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func mustInvalid(t *testing.T, err error, wantReason string) {
	t.Helper()
	var ce *Error
	if !errors.As(err, &ce) {
		t.Fatalf("Expected *Error, got %v", err)
	}
	if ce.Kind != KindInvalidInput {
		t.Errorf("Expected KindInvalidInput, got %v", ce.Kind)
	}
	if ce.Public != wantReason {
		t.Errorf("Expected reason %q, got %q", wantReason, ce.Public)
	}
}

func TestValidate_MalformedBody(t *testing.T) {
	_, err := Validate([]byte(`{invalid json`))
	mustInvalid(t, err, "Invalid request body")
}

func TestValidate_MessageMissing(t *testing.T) {
	_, err := Validate([]byte(`{"context": "profile"}`))
	mustInvalid(t, err, "Message is required")
}

func TestValidate_MessageWrongType(t *testing.T) {
	_, err := Validate([]byte(`{"message": 42}`))
	mustInvalid(t, err, "Message must be a string")
}

func TestValidate_MessageTooLong(t *testing.T) {
	body, _ := json.Marshal(map[string]string{"message": strings.Repeat("x", 501)})
	_, err := Validate(body)
	mustInvalid(t, err, "Message too long (maximum 500 characters)")
}

func TestValidate_MessageAtLimit(t *testing.T) {
	body, _ := json.Marshal(map[string]string{"message": strings.Repeat("x", 500)})
	req, err := Validate(body)
	if err != nil {
		t.Fatalf("500-character message should pass: %v", err)
	}
	if len(req.Message) != 500 {
		t.Errorf("Expected message preserved, got %d chars", len(req.Message))
	}
}

func TestValidate_LengthCountsRunesNotBytes(t *testing.T) {
	// 500 multibyte runes are within the bound even though the byte
	// count is much larger.
	body, _ := json.Marshal(map[string]string{"message": strings.Repeat("é", 500)})
	if _, err := Validate(body); err != nil {
		t.Fatalf("500 runes should pass: %v", err)
	}
}

func TestValidate_ContextWrongType(t *testing.T) {
	_, err := Validate([]byte(`{"message": "hi", "context": []}`))
	mustInvalid(t, err, "Context must be a string")
}

func TestValidate_ContextTooLong(t *testing.T) {
	body, _ := json.Marshal(map[string]string{
		"message": "hi",
		"context": strings.Repeat("x", 50001),
	})
	_, err := Validate(body)
	mustInvalid(t, err, "Context too long (maximum 50000 characters)")
}

func TestValidate_MessageEmptyAfterSanitize(t *testing.T) {
	_, err := Validate([]byte(`{"message": "<br/><p></p>  "}`))
	mustInvalid(t, err, "Message cannot be empty")
}

func TestValidate_MessageSanitized(t *testing.T) {
	req, err := Validate([]byte(`{"message": "  <b>hello</b> there  "}`))
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if req.Message != "hello there" {
		t.Errorf("Expected sanitized message, got %q", req.Message)
	}
}

func TestValidate_HistoryTruncatedToMostRecent(t *testing.T) {
	entries := make([]map[string]any, 8)
	for i := range entries {
		entries[i] = map[string]any{"content": string(rune('a' + i)), "isUser": i%2 == 0}
	}
	body, _ := json.Marshal(map[string]any{"message": "hi", "history": entries})

	req, err := Validate(body)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if len(req.History) != MaxHistoryTurns {
		t.Fatalf("Expected %d turns, got %d", MaxHistoryTurns, len(req.History))
	}
	// Oldest two discarded, relative order preserved.
	if req.History[0].Content != "c" || req.History[5].Content != "h" {
		t.Errorf("Expected turns c..h, got %q..%q", req.History[0].Content, req.History[5].Content)
	}
}

func TestValidate_HistoryRoleResolution(t *testing.T) {
	body := []byte(`{"message": "hi", "history": [
		{"content": "a", "role": "user"},
		{"content": "b", "role": "assistant"},
		{"content": "c", "role": "banana"},
		{"content": "d", "isUser": true},
		{"content": "e", "isUser": false}
	]}`)

	req, err := Validate(body)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	want := []Role{RoleUser, RoleAssistant, RoleAssistant, RoleUser, RoleAssistant}
	if len(req.History) != len(want) {
		t.Fatalf("Expected %d turns, got %d", len(want), len(req.History))
	}
	for i, turn := range req.History {
		if turn.Role != want[i] {
			t.Errorf("Turn %d: expected role %v, got %v", i, want[i], turn.Role)
		}
	}
}

func TestValidate_HistoryDropsUnusableEntries(t *testing.T) {
	body := []byte(`{"message": "hi", "history": [
		{"content": 42, "isUser": true},
		{"isUser": true},
		{"content": "no role marker"},
		"not an object",
		{"content": "keep", "role": "user"}
	]}`)

	req, err := Validate(body)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if len(req.History) != 1 {
		t.Fatalf("Expected 1 usable turn, got %d", len(req.History))
	}
	if req.History[0].Content != "keep" {
		t.Errorf("Expected 'keep', got %q", req.History[0].Content)
	}
}

func TestValidate_HistoryContentSanitized(t *testing.T) {
	body := []byte(`{"message": "hi", "history": [{"content": "<i>old</i> turn", "isUser": true}]}`)
	req, err := Validate(body)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if req.History[0].Content != "old turn" {
		t.Errorf("Expected sanitized history content, got %q", req.History[0].Content)
	}
}

func TestValidate_NonArrayHistoryIgnored(t *testing.T) {
	req, err := Validate([]byte(`{"message": "hi", "history": "oops"}`))
	if err != nil {
		t.Fatalf("Non-array history should be ignored, got %v", err)
	}
	if len(req.History) != 0 {
		t.Errorf("Expected empty history, got %d turns", len(req.History))
	}
}

func TestValidate_ContextTrimmedButNotSanitized(t *testing.T) {
	req, err := Validate([]byte(`{"message": "hi", "context": "  <b>profile</b>  "}`))
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if req.Context != "<b>profile</b>" {
		t.Errorf("Context must be trimmed with markup intact, got %q", req.Context)
	}
}

func TestValidate_ContextTrimmed(t *testing.T) {
	req, err := Validate([]byte(`{"message": "hi", "context": "  profile text  "}`))
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if req.Context != "profile text" {
		t.Errorf("Expected trimmed context, got %q", req.Context)
	}
}
