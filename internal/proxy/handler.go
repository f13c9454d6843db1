package proxy

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mazelabs/chat-proxy/internal/chat"
	"github.com/mazelabs/chat-proxy/internal/provider"
	"github.com/mazelabs/chat-proxy/internal/usagelog"
	"github.com/mazelabs/chat-proxy/pkg/ratelimit"
)

// maxBodyBytes bounds the raw request body before any JSON parsing. The
// context field alone may hold 50k characters, so leave generous room.
const maxBodyBytes = 1 << 20 // 1 MB

// Options carries the fixed completion parameters. They are read once at
// startup and never vary per request.
type Options struct {
	SystemPrompt     string
	Model            string
	MaxTokens        int
	Temperature      float64
	PresencePenalty  float64
	FrequencyPenalty float64
}

// Handler sequences the request pipeline: rate check, validation,
// assembly, upstream call, response encoding. The origin guard runs
// earlier as middleware. It is the only component that touches all
// others; per-request data lives and dies inside HandleChat.
type Handler struct {
	upstream *Upstream
	limiter  *ratelimit.Limiter
	usage    usagelog.Store
	tracer   trace.Tracer
	logger   zerolog.Logger
	opts     Options
}

func NewHandler(upstream *Upstream, limiter *ratelimit.Limiter, usage usagelog.Store, tracer trace.Tracer, logger zerolog.Logger, opts Options) *Handler {
	return &Handler{
		upstream: upstream,
		limiter:  limiter,
		usage:    usage,
		tracer:   tracer,
		logger:   logger,
		opts:     opts,
	}
}

func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	requestID := chimiddleware.GetReqID(ctx)
	if requestID == "" {
		requestID = uuid.New().String()
	}
	clientID := clientIdentifier(r)

	ctx, span := h.tracer.Start(ctx, "proxy.chat")
	defer span.End()
	span.SetAttributes(
		attribute.String("client_id", clientID),
		attribute.String("request_id", requestID),
	)

	logger := h.logger.With().
		Str("request_id", requestID).
		Str("client_id", clientID).
		Logger()

	// Rate check first: the quota headers ride on every non-preflight
	// response, and a denial must never reach the upstream.
	quota, err := h.limiter.Allow(ctx, clientID)
	if err != nil {
		// A broken shared store must not take the assistant down with
		// it; the limiter already handed back a degraded full quota.
		logger.Warn().Err(err).Msg("rate limit store unavailable, admitting request")
	}
	setRateLimitHeaders(w, quota)
	if !quota.Allowed {
		w.Header().Set("Retry-After", formatRetryAfter(quota))
		h.fail(w, logger, clientID, requestID, start, chat.NewError(chat.KindRateLimited, "", nil))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.fail(w, logger, clientID, requestID, start, chat.Invalid("Invalid request body"))
		return
	}

	validated, err := chat.Validate(body)
	if err != nil {
		h.fail(w, logger, clientID, requestID, start, err)
		return
	}

	messages := chat.Assemble(h.opts.SystemPrompt, validated)

	resp, err := h.upstream.Complete(ctx, &provider.Request{
		Model:            h.opts.Model,
		Messages:         messages,
		MaxTokens:        h.opts.MaxTokens,
		Temperature:      h.opts.Temperature,
		PresencePenalty:  h.opts.PresencePenalty,
		FrequencyPenalty: h.opts.FrequencyPenalty,
	})
	if err != nil {
		h.fail(w, logger, clientID, requestID, start, err)
		return
	}

	h.record(&usagelog.Entry{
		ClientID:     clientID,
		RequestID:    requestID,
		Model:        h.opts.Model,
		Outcome:      "ok",
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
		LatencyMs:    time.Since(start).Milliseconds(),
	})

	writeJSON(w, http.StatusOK, chatResponse{
		Response:  resp.Content,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// fail terminates the request: classification picks the status, the
// caller sees only the safe message, the cause goes to the operator log.
func (h *Handler) fail(w http.ResponseWriter, logger zerolog.Logger, clientID, requestID string, start time.Time, err error) {
	ce := chat.Classify(err)

	event := logger.Warn()
	if ce.Kind == chat.KindInternal || ce.Kind == chat.KindUpstreamAuthFailure {
		event = logger.Error()
	}
	event.Err(ce.Err).
		Str("kind", ce.Kind.String()).
		Int("status", ce.Kind.HTTPStatus()).
		Msg("chat request failed")

	h.record(&usagelog.Entry{
		ClientID:  clientID,
		RequestID: requestID,
		Model:     h.opts.Model,
		Outcome:   ce.Kind.String(),
		LatencyMs: time.Since(start).Milliseconds(),
	})

	writeJSON(w, ce.Kind.HTTPStatus(), errorResponse{Error: ce.Public})
}

// record writes the usage entry off the request path, detached from the
// request context so client disconnects do not lose it.
func (h *Handler) record(entry *usagelog.Entry) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.usage.Record(ctx, entry); err != nil {
			h.logger.Warn().Err(err).Msg("failed to record usage")
		}
	}()
}

func formatRetryAfter(quota *ratelimit.Result) string {
	return strconv.FormatInt(quota.RetryAfter(time.Now()), 10)
}
