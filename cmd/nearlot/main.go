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

	"github.com/kailas-cloud/nearlot/internal/config"
	"github.com/kailas-cloud/nearlot/internal/db"
	dbRedis "github.com/kailas-cloud/nearlot/internal/db/redis"
	"github.com/kailas-cloud/nearlot/internal/db/sqlstore"
	"github.com/kailas-cloud/nearlot/internal/domain"
	logpkg "github.com/kailas-cloud/nearlot/internal/logger"
	"github.com/kailas-cloud/nearlot/internal/metrics"
	lotrepo "github.com/kailas-cloud/nearlot/internal/repository/lot"
	pickuprepo "github.com/kailas-cloud/nearlot/internal/repository/pickup"
	chiTransport "github.com/kailas-cloud/nearlot/internal/transport/chi"
	openaiDesc "github.com/kailas-cloud/nearlot/internal/transport/openai"
	healthuc "github.com/kailas-cloud/nearlot/internal/usecase/health"
	lotuc "github.com/kailas-cloud/nearlot/internal/usecase/lot"
	pickupuc "github.com/kailas-cloud/nearlot/internal/usecase/pickup"
	proximityuc "github.com/kailas-cloud/nearlot/internal/usecase/proximity"
	"github.com/kailas-cloud/nearlot/internal/version"
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

	logger.Info("Starting nearlot API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Float64("min_radius_km", cfg.Proximity.MinRadiusKm),
		zap.Float64("max_radius_km", cfg.Proximity.MaxRadiusKm),
	)

	ctx := context.Background()

	store, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterHTTPMetrics()
	metrics.RegisterProximityMetrics()
	metrics.RegisterDescriberMetrics()

	describer := buildDescriber(cfg.Describer, logger)

	// Repositories and use cases
	repo := lotrepo.New(store)
	lotSvc := lotuc.New(repo, describer)
	pickupSvc := pickupuc.New(pickuprepo.New(store), repo)
	proximitySvc := proximityuc.New(repo, cfg.Proximity.Domain())
	healthSvc := healthuc.New(store, describer)

	server := chiTransport.NewServer(lotSvc, pickupSvc, proximitySvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(chiTransport.AuthConfig{
		APIKeys:   cfg.Auth.APIKeys,
		JWTSecret: cfg.Auth.JWTSecret,
	}))
	r.Use(chiTransport.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
	r.Use(metrics.Middleware())
	r.NotFound(jsonStatus(http.StatusNotFound, "not_found", "route not found"))
	r.MethodNotAllowed(jsonStatus(http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed"))
	server.Routes(r)

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

// openStore creates the record store for the configured driver.
func openStore(ctx context.Context, cfg config.Config) (db.Store, error) {
	switch cfg.Database.Driver {
	case config.DriverRedis, config.DriverValkey:
		return dbRedis.NewStore(dbRedis.Config{
			Addrs:     cfg.Database.Addrs,
			Username:  cfg.Database.Username,
			Password:  cfg.Database.Password,
			DB:        cfg.Database.DB,
			KeyPrefix: cfg.Storage.KeyPrefix,
		})
	case config.DriverSQLite:
		return sqlstore.NewStore(ctx, sqlstore.Config{Dialect: sqlstore.DialectSQLite, DSN: cfg.Database.DSN})
	case config.DriverPostgres:
		return sqlstore.NewStore(ctx, sqlstore.Config{Dialect: sqlstore.DialectPostgres, DSN: cfg.Database.DSN})
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

// buildDescriber assembles OpenAI -> Fallback. Without an API key only the
// template text is produced.
func buildDescriber(cfg config.DescriberConfig, logger *zap.Logger) *domain.FallbackDescriber {
	if !cfg.Enabled() {
		logger.Info("Describer disabled, using template descriptions")
		return domain.NewFallbackDescriber(nil, nil)
	}

	base := openaiDesc.NewDescriber(&openaiDesc.Config{
		APIKey:    cfg.APIKey,
		BaseURL:   cfg.BaseURL,
		Model:     cfg.Model,
		MaxTokens: cfg.MaxTokens,
		User:      "nearlot",
		Logger:    logger,
	})
	logger.Info("Describer created", zap.String("model", cfg.Model))

	return domain.NewFallbackDescriber(base, func(err error) {
		metrics.DescriberFallbackTotal.Inc()
		logger.Warn("describer failed, using template", zap.Error(err))
	})
}

func jsonStatus(status int, code, message string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"code":    code,
			"message": message,
		})
	}
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.String("path", r.URL.Path),
						zap.Stack("stacktrace"),
					)
					jsonStatus(http.StatusInternalServerError, "internal_error", "internal error")(w, r)
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
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("query", r.URL.RawQuery),
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
