package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"github.com/quanghm/workersai-gateway/config"
	"github.com/quanghm/workersai-gateway/internal/auth"
	"github.com/quanghm/workersai-gateway/internal/backend/workersai"
	"github.com/quanghm/workersai-gateway/internal/proxy"
	"github.com/quanghm/workersai-gateway/internal/registry"
	"github.com/quanghm/workersai-gateway/internal/telemetry"
	"github.com/quanghm/workersai-gateway/internal/usage"
	"github.com/quanghm/workersai-gateway/pkg/ratelimit"
)

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// 2. Init telemetry
	shutdownTracer, err := telemetry.InitTracer("workersai-gateway", cfg)
	if err != nil {
		log.Fatalf("failed to init tracer: %v", err)
	}
	defer shutdownTracer()

	ctx := context.Background()

	// 3. Connect PostgreSQL for usage logging (optional)
	var usageStore usage.Store = usage.NoopStore{}
	if cfg.PostgresDSN != "" {
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("failed to connect postgres: %v", err)
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			log.Fatalf("failed to ping postgres: %v", err)
		}
		log.Println("PostgreSQL connected, usage logging enabled")
		usageStore = usage.NewPostgresStore(pool)
	}

	// 4. Connect Redis for rate limiting (optional)
	var limiter *ratelimit.Limiter
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("failed to ping redis: %v", err)
		}
		log.Println("Redis connected, rate limiting enabled")
		limiter = ratelimit.NewLimiter(rdb, cfg.DefaultRateLimitTPM)
	}

	// 5. Init auth from the static key list
	keys := cfg.APIKeys
	if len(keys) == 0 {
		devKey := "dev-" + uuid.New().String()
		log.Printf("API_KEYS not set, generated development key: %s", devKey)
		keys = []string{devKey}
	}
	authMiddleware := auth.NewMiddleware(keys)

	// 6. Init backend client and model registry
	runner := workersai.New(cfg.APIBase, cfg.AccountID, cfg.APIToken)
	reg := registry.New()

	// 7. Init handler
	tracer := otel.GetTracerProvider().Tracer("workersai-gateway")
	invoker := proxy.NewInvoker(runner)
	handler := proxy.NewHandler(reg, invoker, usageStore, limiter, tracer, cfg.MaxBodyBytes)

	// 8. Init Chi router
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(proxy.CORS)
	r.NotFound(proxy.NotFound)

	// Public routes
	r.Get("/health", handler.HandleHealth)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/v1/chat/completions", handler.HandleChatCompletions)
		r.Get("/v1/models", handler.HandleModels)
		r.Get("/v1/usage", handler.HandleUsage)
	})

	// 9. Graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 180 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Workers AI gateway starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
