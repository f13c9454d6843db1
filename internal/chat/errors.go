package chat

import (
	"errors"
	"net/http"
)

// Kind classifies a failed request. It is derived once per failure and
// drives both the HTTP status and the user-facing message.
type Kind int

const (
	KindInvalidInput Kind = iota
	KindRateLimited
	KindOriginRejected
	KindUpstreamOverloaded
	KindUpstreamAuthFailure
	KindUpstreamUnavailable
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindRateLimited:
		return "rate_limited"
	case KindOriginRejected:
		return "origin_rejected"
	case KindUpstreamOverloaded:
		return "upstream_overloaded"
	case KindUpstreamAuthFailure:
		return "upstream_auth_failure"
	case KindUpstreamUnavailable:
		return "upstream_unavailable"
	default:
		return "internal"
	}
}

// HTTPStatus maps a classification to the response status code.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindOriginRejected:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the default safe message shown to callers for a kind.
// Validation errors override it with the exact reason; everything else
// must stay generic so provider and credential detail never leaks.
func (k Kind) PublicMessage() string {
	switch k {
	case KindInvalidInput:
		return "Invalid request"
	case KindRateLimited:
		return "Too many requests. Please wait a moment before trying again."
	case KindOriginRejected:
		return "Origin not allowed"
	case KindUpstreamOverloaded:
		return "The assistant is handling a lot of traffic right now. Please try again shortly."
	case KindUpstreamAuthFailure:
		return "The assistant service is not configured correctly. Please try again later."
	case KindUpstreamUnavailable:
		return "The assistant is temporarily unavailable. Please try again later."
	default:
		return "Something went wrong. Please try again."
	}
}

// Error carries a classification, a caller-safe message and the underlying
// cause. The cause is for operator logs only and is never written to the
// response body.
type Error struct {
	Kind   Kind
	Public string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Public
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds a classified error. An empty public message falls back
// to the kind's default.
func NewError(kind Kind, public string, err error) *Error {
	if public == "" {
		public = kind.PublicMessage()
	}
	return &Error{Kind: kind, Public: public, Err: err}
}

// Invalid is shorthand for a validation failure whose reason is safe to
// expose verbatim.
func Invalid(reason string) *Error {
	return &Error{Kind: KindInvalidInput, Public: reason}
}

// Classify extracts the classification from err, treating anything
// unclassified as an internal failure.
func Classify(err error) *Error {
	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}
	return NewError(KindInternal, "", err)
}
