package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tutordex/internal/config"
	"github.com/kailas-cloud/tutordex/internal/db"
	dbRedis "github.com/kailas-cloud/tutordex/internal/db/redis"
	"github.com/kailas-cloud/tutordex/internal/domain"
	logpkg "github.com/kailas-cloud/tutordex/internal/logger"
	"github.com/kailas-cloud/tutordex/internal/metrics"
	"github.com/kailas-cloud/tutordex/internal/repository/embcache"
	retrievalrepo "github.com/kailas-cloud/tutordex/internal/repository/retrieval"
	sessionrepo "github.com/kailas-cloud/tutordex/internal/repository/session"
	"github.com/kailas-cloud/tutordex/internal/scope"
	chiTransport "github.com/kailas-cloud/tutordex/internal/transport/chi"
	openaiLLM "github.com/kailas-cloud/tutordex/internal/transport/openai"
	answeruc "github.com/kailas-cloud/tutordex/internal/usecase/answer"
	chatuc "github.com/kailas-cloud/tutordex/internal/usecase/chat"
	retrieveuc "github.com/kailas-cloud/tutordex/internal/usecase/retrieve"
	"github.com/kailas-cloud/tutordex/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting tutordex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	// Create database store. Valkey speaks the same protocol and modules,
	// so both drivers share the rueidis-backed store.
	var store db.Store
	switch cfg.Database.Driver {
	case "valkey", "redis":
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
	default:
		logger.Fatal("Unknown database driver", zap.String("driver", cfg.Database.Driver))
	}
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register LLM metrics explicitly (no init())
	metrics.RegisterLLMMetrics()

	embedder := buildQueryEmbedder(&cfg, store, logger)
	logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	generator := openaiLLM.NewGenerator(&openaiLLM.GeneratorConfig{
		APIKey:      cfg.Generation.APIKey,
		BaseURL:     cfg.Generation.BaseURL,
		Model:       cfg.Generation.Model,
		MaxTokens:   cfg.Generation.MaxTokens,
		Temperature: cfg.Generation.Temperature,
		Timeout:     time.Duration(cfg.Generation.TimeoutSec) * time.Second,
		Provider:    cfg.Generation.Provider,
		Logger:      logger,
	})

	// Create repositories (domain-native, no adapters)
	retrievalRepo := retrievalrepo.New(store, cfg.Storage.KeyPrefix)

	sessionTTL := time.Duration(cfg.Session.TTLHours) * time.Hour
	var sessions chatuc.SessionStore
	switch cfg.Session.Backend {
	case "redis":
		sessions = sessionrepo.NewRedis(store, cfg.Storage.KeyPrefix+"sessions:", sessionTTL)
	default:
		sessions = sessionrepo.NewMemory(sessionTTL)
	}
	logger.Info("Session store created",
		zap.String("backend", cfg.Session.Backend),
		zap.Duration("ttl", sessionTTL),
	)

	// Create use case services
	retrieveSvc := retrieveuc.New(retrievalRepo, cfg.RAG.TopK)
	answerSvc := answeruc.New(generator)
	chatSvc := chatuc.New(
		scope.New(), embedder, retrieveSvc, answerSvc, sessions,
		cfg.RAG.Collection, logger,
	)

	// Create chi server
	server := chiTransport.NewServer(chatSvc, store, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.RegisterRoutes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildQueryEmbedder assembles the embedder chain: OpenAI -> Cached.
func buildQueryEmbedder(cfg *config.Config, store db.Store, logger *zap.Logger) domain.Embedder {
	base := openaiLLM.NewEmbedder(&openaiLLM.EmbedderConfig{
		APIKey:         cfg.Embedding.APIKey,
		BaseURL:        cfg.Embedding.BaseURL,
		Model:          cfg.Embedding.Model,
		Dimensions:     cfg.Embedding.Dimensions,
		QueryPrefix:    cfg.Embedding.QueryInstruction,
		DocumentPrefix: cfg.Embedding.DocumentInstruction,
		Timeout:        time.Duration(cfg.Embedding.TimeoutSec) * time.Second,
		Provider:       cfg.Embedding.Provider,
		Logger:         logger,
	})

	// Assign the concrete type only inside the branch — a typed nil pointer
	// wrapped in domain.Embedder would not compare equal to nil.
	var embedder domain.Embedder = base
	if cfg.Embedding.CacheTTLHours > 0 {
		embedder = embcache.New(
			base, store,
			cfg.Storage.KeyPrefix, cfg.Embedding.Model,
			time.Duration(cfg.Embedding.CacheTTLHours)*time.Hour,
			metrics.EmbeddingCacheTotal, logger,
		)
	}
	return embedder
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
