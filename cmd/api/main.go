// Package main is the entrypoint for the pinguard API server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/pinguard/pinguard/internal/access"
	"github.com/pinguard/pinguard/internal/accesslog"
	"github.com/pinguard/pinguard/internal/cache"
	"github.com/pinguard/pinguard/internal/config"
	"github.com/pinguard/pinguard/internal/handler"
	"github.com/pinguard/pinguard/internal/metrics"
	"github.com/pinguard/pinguard/internal/middleware"
	"github.com/pinguard/pinguard/internal/model"
	"github.com/pinguard/pinguard/internal/ratelimit"
	"github.com/pinguard/pinguard/internal/repository"
	"github.com/pinguard/pinguard/internal/server"
	"github.com/pinguard/pinguard/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := buildDependencies(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize dependencies", "error", sanitizeError(err, cfg.DatabaseURL, cfg.RedisURL))
		os.Exit(1)
	}

	svc := service.NewRegistrationService(deps.store, deps.doors, service.Options{
		RegistrationsTTL: cfg.RegistrationsCacheTTL,
		AccessTTL:        cfg.AccessCacheTTL,
		Evaluator:        deps.evaluator,
		Cache:            deps.resultCache,
		AccessLog:        deps.accessLog,
		Metrics:          deps.recorder,
		Logger:           logger,
	})

	r := setupRouter(cfg, deps, svc, logger)

	srv := server.New(r, server.Options{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)
	deps.registerShutdown(srv)

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"store", cfg.StoreBackend,
		"cache", cacheMode(cfg),
		"policy", deps.evaluator.Policy(),
	)

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// dependencies holds the backends selected by configuration.
type dependencies struct {
	store       repository.RegistrationStore
	doors       repository.DoorDirectory
	repo        *repository.Repository
	redis       *cache.Redis
	resultCache *cache.ResultCache
	limiter     ratelimit.Limiter
	accessLog   accesslog.Sink
	publisher   *accesslog.Publisher
	evaluator   *access.Evaluator
	recorder    *metrics.PrometheusRecorder
}

func buildDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*dependencies, error) {
	policy, err := access.ParsePolicy(cfg.AccessRestrictionPolicy)
	if err != nil {
		return nil, err
	}

	deps := &dependencies{
		evaluator: access.NewEvaluator(policy),
		recorder:  metrics.NewPrometheus(),
		accessLog: accesslog.Noop{},
	}

	switch cfg.StoreBackend {
	case config.BackendPostgres:
		repo, err := repository.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect to database %s: %w", redactURL(cfg.DatabaseURL), err)
		}
		deps.repo = repo
		deps.store, deps.doors = repo, repo
		logger.Info("connected to database")

		if cfg.SeedDoors {
			if err := repo.SeedDoors(ctx, model.DefaultDoors()); err != nil {
				deps.close()
				return nil, fmt.Errorf("seed doors: %w", err)
			}
		}
	default:
		store := repository.NewMemoryStore(model.DefaultDoors())
		deps.store, deps.doors = store, store
	}

	if cfg.UsesRedis() {
		rdb, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			deps.close()
			return nil, fmt.Errorf("connect to redis %s: %w", redactURL(cfg.RedisURL), err)
		}
		deps.redis = rdb
		logger.Info("connected to Redis")
	}

	cacheLogger := logger.With("component", "result_cache")
	switch {
	case !cfg.CacheEnabled:
		deps.resultCache = cache.NewDisabled()
	case cfg.CacheBackend == config.BackendRedis:
		deps.resultCache = cache.New(cache.NewRedisBackend(deps.redis.Client()), cacheLogger, deps.recorder)
	default:
		deps.resultCache = cache.New(cache.NewMemoryBackend(), cacheLogger, deps.recorder)
	}

	limitCfg := ratelimit.Config{Requests: cfg.RateLimitRequests, Window: cfg.RateLimitWindow}
	if cfg.RateLimitEnabled {
		if cfg.RateLimitBackend == config.BackendRedis {
			deps.limiter = ratelimit.NewRedisLimiter(deps.redis.Client(), limitCfg, logger.With("component", "rate_limiter"))
		} else {
			deps.limiter = ratelimit.NewMemoryLimiter(limitCfg)
		}
	}

	if cfg.AccessLogEnabled {
		deps.publisher = accesslog.NewPublisher(deps.redis.Client(), logger.With("component", "access_log"), deps.recorder)
		deps.accessLog = deps.publisher
	}

	return deps, nil
}

// registerShutdown closes backends after the HTTP server stops. Hooks run
// LIFO, so the access log flushes before Redis closes.
func (d *dependencies) registerShutdown(srv *server.Server) {
	if d.repo != nil {
		srv.OnShutdown("postgres", func(context.Context) error {
			d.repo.Close()
			return nil
		})
	}
	if d.redis != nil {
		srv.OnShutdown("redis", func(context.Context) error {
			return d.redis.Close()
		})
	}
	if d.publisher != nil {
		srv.OnShutdown("access-log", d.publisher.Flush)
	}
}

func (d *dependencies) close() {
	if d.redis != nil {
		_ = d.redis.Close()
	}
	if d.repo != nil {
		d.repo.Close()
	}
}

// healthCheckers lists readiness probes. Unused backends stay nil so they
// report "not configured".
func (d *dependencies) healthCheckers() map[string]handler.HealthChecker {
	checkers := map[string]handler.HealthChecker{"postgres": nil, "redis": nil}
	if d.repo != nil {
		checkers["postgres"] = d.repo
	}
	if d.redis != nil {
		checkers["redis"] = d.redis
	}
	return checkers
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)}

	var h slog.Handler
	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func cacheMode(cfg *config.Config) string {
	if !cfg.CacheEnabled {
		return "disabled"
	}
	return cfg.CacheBackend
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(cfg *config.Config, deps *dependencies, svc handler.RegistrationService, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment()}))
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.GetCORSAllowedOrigins())))
	r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))

	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	healthHandler := handler.NewHealthHandler(deps.healthCheckers())
	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)
	r.Method(http.MethodGet, "/metrics", deps.recorder.Handler())

	doorHandler := handler.NewDoorHandler(svc, logger)
	registrationHandler := handler.NewRegistrationHandler(svc, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimitIP(middleware.RateLimitConfig{
			Logger:  logger,
			Limiter: deps.limiter,
			Metrics: deps.recorder,
			Enabled: cfg.RateLimitEnabled,
		}))

		r.Route("/doors", doorHandler.Routes)
		r.Route("/pin-codes", registrationHandler.Routes)
	})

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		if _, hasPassword := parsed.User.Password(); hasPassword {
			parsed.User = url.UserPassword(parsed.User.Username(), "redacted")
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		msg = strings.ReplaceAll(msg, secret, redactURL(secret))
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
