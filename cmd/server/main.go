package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"reflector/internal/auth"
	"reflector/internal/capabilities"
	"reflector/internal/config"
	llmRepo "reflector/internal/domain/repositories/llm"
	"reflector/internal/handler"
	"reflector/internal/middleware"
	"reflector/internal/repository/memory"
	"reflector/internal/repository/postgres"
	postgresLLM "reflector/internal/repository/postgres/llm"
	serviceLLM "reflector/internal/service/llm"
	"reflector/internal/service/reflection"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	logger, closeLog, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to setup logging: %v", err)
	}
	defer closeLog()
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Tracing: spans from otelhttp and reflect turns go to the configured exporter
	tp, err := config.NewTracerProvider(cfg.TracesExporter, os.Stderr)
	if err != nil {
		log.Fatalf("Failed to setup tracing: %v", err)
	}
	if tp != nil {
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.TraceContext{})
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				logger.Error("tracer shutdown failed", "error", err)
			}
		}()
		logger.Info("tracing enabled", "exporter", cfg.TracesExporter)
	}

	// Session storage: Postgres when configured, in-memory otherwise
	var sessionRepo llmRepo.SessionRepository
	if cfg.DatabaseURL != "" {
		pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to create connection pool: %v", err)
		}
		defer pool.Close()

		repoConfig := &postgres.RepositoryConfig{
			Pool:   pool,
			Tables: postgres.NewTableNames(cfg.TablePrefix),
			Logger: logger,
		}
		txManager := postgres.NewTransactionManager(pool, logger)
		if err := postgres.EnsureSchema(ctx, txManager, repoConfig); err != nil {
			log.Fatalf("Failed to prepare database schema: %v", err)
		}
		sessionRepo = postgresLLM.NewSessionRepository(repoConfig)
		logger.Info("database connected", "table", repoConfig.Tables.ReflectSessions)
	} else {
		sessionRepo = memory.NewSessionRepository()
		logger.Warn("DATABASE_URL not set - reflect sessions are kept in memory")
	}

	capabilityRegistry, err := capabilities.NewRegistry()
	if err != nil {
		log.Fatalf("Failed to initialize capability registry: %v", err)
	}
	logger.Info("capability registry initialized", "providers", capabilityRegistry.GetAllProviders())

	providerRegistry, err := serviceLLM.SetupProviders(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to setup LLM providers: %v", err)
	}

	executor, err := serviceLLM.SetupTurnExecutor(cfg, providerRegistry, capabilityRegistry, logger)
	if err != nil {
		log.Fatalf("Failed to setup reflect turn: %v", err)
	}

	reflectService := reflection.NewService(executor, sessionRepo, logger)

	reflectHandler := handler.NewReflectHandler(reflectService, logger)
	modelsHandler := handler.NewModelsHandler(cfg, logger, capabilityRegistry)

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", handler.HealthCheck)

	// Reflect
	mux.HandleFunc("POST /api/reflect", reflectHandler.Reflect)
	mux.HandleFunc("GET /api/threads/{id}/sessions", reflectHandler.ListThreadSessions)

	// Models
	mux.HandleFunc("GET /api/models/capabilities", modelsHandler.GetCapabilities)

	// Build middleware chain
	var h http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Tracing → Recovery → Auth → Routes
	if cfg.SupabaseJWKSURL != "" {
		jwtVerifier, err := auth.NewJWTVerifier(ctx, cfg.SupabaseJWKSURL, logger)
		if err != nil {
			log.Fatalf("Failed to create JWT verifier: %v", err)
		}
		defer jwtVerifier.Close()
		h = middleware.AuthMiddleware(jwtVerifier, logger, "/health")(h)
	} else {
		logger.Warn("SUPABASE_URL not set - authentication disabled")
	}
	h = middleware.Recovery(logger)(h)
	h = otelhttp.NewHandler(h, "reflector")

	// CORS - Must be outermost to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	// WriteTimeout must outlast the adapter timeout so 504s reach the client
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.AdapterTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
		}
	}()

	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Failed to start server: %v", err)
	}
	logger.Info("server stopped")
}
