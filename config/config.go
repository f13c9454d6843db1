package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultSystemPrompt is the fixed behavioral directive prepended to every
// conversation. The caller-supplied profile context is appended to it.
const DefaultSystemPrompt = "You are a friendly assistant embedded on a personal portfolio website. " +
	"Answer visitors' questions about the site owner, their work and their services " +
	"using only the profile information provided below. Keep answers short and " +
	"conversational. If the profile does not cover a question, say you don't know " +
	"and suggest getting in touch instead of guessing."

type Config struct {
	// Server
	Port string // default: 8080

	// Origin allow-list, enumerated at startup. Requests from other
	// origins get no cross-origin headers.
	AllowedOrigins []string

	// Upstream provider
	OpenAIAPIKey     string
	Model            string        // default: gpt-4o-mini
	SystemPrompt     string        // default: DefaultSystemPrompt
	Temperature      float64       // default: 0.7
	MaxOutputTokens  int           // default: 600
	PresencePenalty  float64       // default: 0
	FrequencyPenalty float64       // default: 0
	UpstreamTimeout  time.Duration // default: 30s

	// Rate limiting
	RateLimit  int           // requests per window per client, default: 10
	RateWindow time.Duration // default: 60s

	// Optional shared stores
	RedisAddr   string // shared rate-limit counters when set
	PostgresDSN string // durable usage log when set

	// Observability
	ServiceVersion       string  // stamped on traces, default: "0.1.0"
	OTELExporterType     string  // "stdout" or "otlp"
	OTELExporterEndpoint string  // default: "localhost:4317"
	OTELSampleRate       float64 // fraction of root spans kept, default: 1
	LogLevel             string  // default: "info"
}

func Load() (*Config, error) {
	// Load .env file if present (non-fatal if missing)
	_ = godotenv.Load()

	cfg := &Config{
		Port:                 getEnv("PORT", "8080"),
		OpenAIAPIKey:         os.Getenv("OPENAI_API_KEY"),
		Model:                getEnv("CHAT_MODEL", "gpt-4o-mini"),
		SystemPrompt:         getEnv("CHAT_SYSTEM_PROMPT", DefaultSystemPrompt),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		PostgresDSN:          os.Getenv("POSTGRES_DSN"),
		ServiceVersion:       getEnv("SERVICE_VERSION", "0.1.0"),
		OTELExporterType:     getEnv("OTEL_EXPORTER_TYPE", "stdout"),
		OTELExporterEndpoint: getEnv("OTEL_EXPORTER_ENDPOINT", "localhost:4317"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
	}

	for _, origin := range strings.Split(os.Getenv("ALLOWED_ORIGINS"), ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
		}
	}

	var err error
	if cfg.Temperature, err = getFloat("CHAT_TEMPERATURE", 0.7); err != nil {
		return nil, err
	}
	if cfg.PresencePenalty, err = getFloat("CHAT_PRESENCE_PENALTY", 0); err != nil {
		return nil, err
	}
	if cfg.FrequencyPenalty, err = getFloat("CHAT_FREQUENCY_PENALTY", 0); err != nil {
		return nil, err
	}
	if cfg.MaxOutputTokens, err = getInt("CHAT_MAX_OUTPUT_TOKENS", 600); err != nil {
		return nil, err
	}
	if cfg.RateLimit, err = getInt("RATE_LIMIT", 10); err != nil {
		return nil, err
	}
	if cfg.OTELSampleRate, err = getFloat("OTEL_SAMPLE_RATE", 1); err != nil {
		return nil, err
	}

	windowSecs, err := getInt("RATE_WINDOW_SECONDS", 60)
	if err != nil {
		return nil, err
	}
	cfg.RateWindow = time.Duration(windowSecs) * time.Second

	timeoutSecs, err := getInt("UPSTREAM_TIMEOUT_SECONDS", 30)
	if err != nil {
		return nil, err
	}
	cfg.UpstreamTimeout = time.Duration(timeoutSecs) * time.Second

	// Validation
	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	if len(cfg.AllowedOrigins) == 0 {
		return nil, fmt.Errorf("ALLOWED_ORIGINS is required")
	}
	if cfg.RateLimit <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT must be positive")
	}
	if cfg.RateWindow <= 0 {
		return nil, fmt.Errorf("RATE_WINDOW_SECONDS must be positive")
	}
	if cfg.OTELSampleRate < 0 || cfg.OTELSampleRate > 1 {
		return nil, fmt.Errorf("OTEL_SAMPLE_RATE must be between 0 and 1")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}
