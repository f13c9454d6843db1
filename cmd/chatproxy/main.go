package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"

	"github.com/mazelabs/chat-proxy/config"
	"github.com/mazelabs/chat-proxy/internal/provider/openai"
	"github.com/mazelabs/chat-proxy/internal/proxy"
	"github.com/mazelabs/chat-proxy/internal/telemetry"
	"github.com/mazelabs/chat-proxy/internal/usagelog"
	"github.com/mazelabs/chat-proxy/pkg/ratelimit"
)

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("failed to load config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	// 2. Init telemetry
	shutdownTracer, err := telemetry.InitTracer("chat-proxy", cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init tracer")
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(flushCtx); err != nil {
			logger.Warn().Err(err).Msg("tracer shutdown")
		}
	}()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// 3. Usage log: PostgreSQL when configured, otherwise discard
	var usageStore usagelog.Store = usagelog.NopStore{}
	if cfg.PostgresDSN != "" {
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect postgres")
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to ping postgres")
		}
		logger.Info().Msg("PostgreSQL connected, usage log enabled")
		usageStore = usagelog.NewPostgresStore(pool)
	}

	// 4. Rate limiter: Redis store when configured so replicas share
	// counters, otherwise an in-memory store with a background sweep
	var limitStore ratelimit.Store
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal().Err(err).Msg("failed to ping redis")
		}
		logger.Info().Msg("Redis connected, shared rate limiting enabled")
		limitStore = ratelimit.NewRedisStore(rdb, cfg.RateLimit, cfg.RateWindow)
	} else {
		memStore := ratelimit.NewMemoryStore(cfg.RateLimit, cfg.RateWindow)
		go memStore.Sweep(ctx, cfg.RateWindow)
		limitStore = memStore
	}
	limiter := ratelimit.NewLimiter(limitStore, cfg.RateLimit, cfg.RateWindow)

	// 5. Upstream provider behind a circuit breaker
	upstream := proxy.NewUpstream(openai.New(cfg.OpenAIAPIKey, cfg.UpstreamTimeout))

	// 6. Init handler
	tracer := otel.GetTracerProvider().Tracer("chat-proxy")
	handler := proxy.NewHandler(upstream, limiter, usageStore, tracer, logger, proxy.Options{
		SystemPrompt:     cfg.SystemPrompt,
		Model:            cfg.Model,
		MaxTokens:        cfg.MaxOutputTokens,
		Temperature:      cfg.Temperature,
		PresencePenalty:  cfg.PresencePenalty,
		FrequencyPenalty: cfg.FrequencyPenalty,
	})

	// 7. Init Chi router
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(proxy.RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(proxy.NewOriginGuard(cfg.AllowedOrigins))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok","service":"chat-proxy"}`))
	})

	r.Post("/api/chat", handler.HandleChat)

	// 8. Graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("chat proxy starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	<-quit
	logger.Info().Msg("shutting down gracefully")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("forced shutdown")
	}
	logger.Info().Msg("server stopped")
}
