package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mazelabs/chat-proxy/internal/chat"
	"github.com/mazelabs/chat-proxy/internal/provider"
)

type OpenAIProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

type openAIRequest struct {
	Model            string         `json:"model"`
	Messages         []chat.Message `json:"messages"`
	MaxTokens        int            `json:"max_tokens,omitempty"`
	Temperature      float64        `json:"temperature"`
	PresencePenalty  float64        `json:"presence_penalty,omitempty"`
	FrequencyPenalty float64        `json:"frequency_penalty,omitempty"`
}

type openAIResponse struct {
	ID      string         `json:"id"`
	Choices []openAIChoice `json:"choices"`
	Usage   openAIUsage    `json:"usage"`
	Model   string         `json:"model"`
}

type openAIChoice struct {
	Message chat.Message `json:"message"`
}

type openAIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// New builds the upstream client. The timeout bounds the whole completion
// call; when it fires the request is classified as unavailable.
func New(apiKey string, timeout time.Duration) provider.Provider {
	return &OpenAIProvider{
		apiKey:  apiKey,
		baseURL: "https://api.openai.com/v1",
		client:  &http.Client{Timeout: timeout},
	}
}

func (p *OpenAIProvider) Complete(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	body, err := json.Marshal(openAIRequest{
		Model:            req.Model,
		Messages:         req.Messages,
		MaxTokens:        req.MaxTokens,
		Temperature:      req.Temperature,
		PresencePenalty:  req.PresencePenalty,
		FrequencyPenalty: req.FrequencyPenalty,
	})
	if err != nil {
		return nil, chat.NewError(chat.KindInternal, "", fmt.Errorf("marshal completion request: %w", err))
	}

	url := fmt.Sprintf("%s/chat/completions", p.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return nil, chat.NewError(chat.KindInternal, "", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", p.apiKey))

	start := time.Now()
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, chat.NewError(chat.KindUpstreamUnavailable, "", fmt.Errorf("openai request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, classifyStatus(resp.StatusCode, respBody)
	}

	var openAIResp openAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&openAIResp); err != nil {
		return nil, chat.NewError(chat.KindUpstreamUnavailable, "", fmt.Errorf("decode openai response: %w", err))
	}

	if len(openAIResp.Choices) == 0 {
		return nil, chat.NewError(chat.KindUpstreamUnavailable, "", fmt.Errorf("openai returned no choices"))
	}

	return &provider.Response{
		ID:           openAIResp.ID,
		Content:      strings.TrimSpace(openAIResp.Choices[0].Message.Content),
		Model:        openAIResp.Model,
		InputTokens:  openAIResp.Usage.PromptTokens,
		OutputTokens: openAIResp.Usage.CompletionTokens,
		LatencyMs:    time.Since(start).Milliseconds(),
	}, nil
}

// classifyStatus maps the provider's reported status into the taxonomy.
// The raw body goes into the wrapped error for operator logs only.
func classifyStatus(status int, body []byte) *chat.Error {
	err := fmt.Errorf("openai api error (status %d): %s", status, string(body))
	switch status {
	case http.StatusTooManyRequests:
		return chat.NewError(chat.KindUpstreamOverloaded, "", err)
	case http.StatusUnauthorized, http.StatusForbidden:
		return chat.NewError(chat.KindUpstreamAuthFailure, "", err)
	default:
		return chat.NewError(chat.KindUpstreamUnavailable, "", err)
	}
}

func (p *OpenAIProvider) Name() string {
	return "openai"
}
