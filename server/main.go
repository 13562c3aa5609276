// @title StableHub Facility Reservations API
// @version 1.0
// @description Facility availability, capacity-checked reservations and booking analytics for stables.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"stablehub/api/routes"
	"stablehub/docs"
	"stablehub/internal/access"
	"stablehub/internal/analytics"
	"stablehub/internal/audit"
	"stablehub/internal/directory"
	"stablehub/internal/facilities"
	"stablehub/internal/jobs"
	"stablehub/internal/notifications"
	"stablehub/internal/reservations"
	"stablehub/internal/shared/config"
	"stablehub/internal/shared/database"
	"stablehub/internal/shared/metrics"
	"stablehub/internal/store/memstore"
	"stablehub/pkg/cache"
	"stablehub/pkg/logger"
	"stablehub/pkg/ratelimit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	appLogger := logger.GetDefault()

	// Smart environment loading
	if err := godotenv.Load(); err != nil {
		if os.Getenv("GIN_MODE") == "release" || os.Getenv("DOCKER_CONTAINER") == "true" {
			appLogger.Info("Production environment: using container environment variables")
		} else {
			appLogger.Info("No .env file found, using system environment variables")
		}
	} else {
		appLogger.Info("Development environment: loaded .env file")
	}

	cfg := config.Load()
	gin.SetMode(cfg.GinMode)

	// Rebuild the logger now that LOG_LEVEL and GIN_MODE are known
	appLogger = logger.New()
	logger.SetDefault(appLogger)
	docs.SwaggerInfo.BasePath = cfg.GetAPIBasePath()
	docs.SwaggerInfo.Version = Version

	ctx := context.Background()
	recorder := metrics.New(cfg.Metrics.Namespace)

	deps, closeStore, err := buildDependencies(ctx, cfg, appLogger, recorder)
	if err != nil {
		appLogger.Error("Failed to initialize storage", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeStore()

	publisher, err := buildPublisher(cfg, appLogger)
	if err != nil {
		appLogger.Error("Failed to initialize Kafka publisher, events will not be published", slog.Any("error", err))
		publisher = notifications.NoopPublisher{}
	}
	defer publisher.Close()
	deps.Publisher = publisher

	appRouter := routes.NewRouter(cfg, deps.Dependencies, appLogger)
	reservationService := appRouter.ReservationService()

	scheduler, err := jobs.NewScheduler(cfg.Reservation.CompletionSchedule, reservationService, appLogger)
	if err != nil {
		appLogger.Error("Failed to schedule background jobs", slog.Any("error", err))
		os.Exit(1)
	}
	scheduler.Start()

	router := setupRouter(cfg, appRouter, deps.rateLimitClient(), appLogger)

	srv := &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        router,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}

	go func() {
		appLogger.Info("Server running",
			slog.String("address", cfg.GetServerAddress()),
			slog.String("health_check", fmt.Sprintf("http://localhost:%s/health", cfg.Port)),
			slog.String("version", Version),
			slog.String("commit", GitCommit),
			slog.String("built", BuildTime),
			slog.String("store", cfg.Database.Driver),
			slog.String("log_level", cfg.LogLevel),
			slog.Bool("redis_cache", deps.Cache != nil),
			slog.Bool("kafka", cfg.Kafka.Enabled),
			slog.Bool("rate_limiting", cfg.RateLimit.Enabled),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed", slog.Any("error", err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Forced shutdown", slog.Any("error", err))
	}
	scheduler.Stop(shutdownCtx)
	reservationService.Drain()

	appLogger.Info("Server exited gracefully")
}

// storeDependencies carries the route dependencies plus the Redis client
// the rate limiter shares with the cache.
type storeDependencies struct {
	routes.Dependencies
	redis *redis.Client
}

func (d storeDependencies) rateLimitClient() *redis.Client {
	return d.redis
}

func buildDependencies(ctx context.Context, cfg *config.Config, log *logger.Logger, recorder *metrics.Recorder) (storeDependencies, func(), error) {
	if cfg.UsesMemoryStore() {
		store := memstore.New()
		log.Warn("Using the in-memory store, data is lost on restart")
		deps := storeDependencies{Dependencies: routes.Dependencies{
			Facilities:   store.Facilities(),
			Reservations: store.Reservations(),
			Members:      store.Members(),
			Directory:    store.Directory(),
			Analytics:    analytics.NewListRepository(store.Reservations()),
			Audit:        audit.NewLogRecorder(log),
			Metrics:      recorder,
		}}
		if cfg.Redis.Enabled {
			rdb, err := database.InitRedis(ctx, cfg, log)
			if err != nil {
				log.Warn("Redis unavailable, continuing without cache", "error", err.Error())
			} else {
				deps.redis = rdb
				deps.Cache = cache.NewService(rdb)
			}
		}
		return deps, func() {
			if deps.redis != nil {
				_ = deps.redis.Close()
			}
		}, nil
	}

	db, err := database.InitDB(ctx, cfg, log)
	if err != nil {
		return storeDependencies{}, nil, err
	}
	reservationRepo := reservations.NewRepository(db.PostgreSQL)

	recorderSink := audit.NewAsyncRecorder(audit.NewGormStore(db.PostgreSQL), cfg.Reservation.AuditBufferSize, log)
	recorderSink.OnError(func(error) { recorder.SideEffectFailed("audit") })

	deps := storeDependencies{
		Dependencies: routes.Dependencies{
			Facilities:   facilities.NewRepository(db.PostgreSQL),
			Reservations: reservationRepo,
			Members:      access.NewRepository(db.PostgreSQL),
			Directory:    directory.NewRepository(db.PostgreSQL),
			Analytics:    analytics.NewRepository(db.PostgreSQL, log),
			Audit:        recorderSink,
			Metrics:      recorder,
			HealthCheck:  db.HealthCheck,
		},
		redis: db.Redis,
	}
	if db.Redis != nil {
		deps.Cache = cache.NewService(db.Redis)
	}
	return deps, func() {
		recorderSink.Close()
		if err := db.Close(); err != nil {
			log.Error("Failed to close database connections", slog.Any("error", err))
		}
	}, nil
}

func buildPublisher(cfg *config.Config, log *logger.Logger) (notifications.Publisher, error) {
	if !cfg.Kafka.Enabled {
		return notifications.NoopPublisher{}, nil
	}
	return notifications.NewKafkaPublisher(cfg.Kafka, log)
}

func setupRouter(cfg *config.Config, appRouter *routes.Router, rdb *redis.Client, appLogger *logger.Logger) *gin.Engine {
	engine := gin.New()

	// Built-in middleware: logs requests + recovers from panics
	engine.Use(RequestLoggerMiddleware(appLogger), gin.Recovery())

	engine.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-RateLimit-*", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if cfg.RateLimit.Enabled && rdb != nil {
		limiter := ratelimit.NewRateLimiter(rdb, &ratelimit.Config{
			Enabled:                     cfg.RateLimit.Enabled,
			WindowDuration:              cfg.RateLimit.WindowDuration,
			DefaultRequests:             cfg.RateLimit.DefaultRequests,
			ReservationRequests:         cfg.RateLimit.ReservationRequests,
			ReservationMutationRequests: cfg.RateLimit.ReservationMutationRequests,
			FacilityRequests:            cfg.RateLimit.FacilityRequests,
			AnalyticsRequests:           cfg.RateLimit.AnalyticsRequests,
			HealthRequests:              cfg.RateLimit.HealthRequests,
			WhitelistedIPs:              cfg.RateLimit.WhitelistedIPs,
		})
		engine.Use(ratelimit.Middleware(limiter, appLogger))
		appLogger.Info("Rate limiter initialized",
			slog.Duration("window", cfg.RateLimit.WindowDuration),
			slog.Int("default_requests", cfg.RateLimit.DefaultRequests),
			slog.Int("mutation_requests", cfg.RateLimit.ReservationMutationRequests),
		)
	} else {
		appLogger.Info("Rate limiting disabled")
	}

	appRouter.SetupRoutes(engine)
	return engine
}

func RequestLoggerMiddleware(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)

		start := time.Now()
		c.Next()
		duration := time.Since(start)

		reqLogger := l.WithRequestID(requestID)
		if userID := c.GetString("user_id"); userID != "" {
			reqLogger = reqLogger.WithUserID(userID)
		}
		reqLogger.LogHTTPRequest(c, duration)
		if len(c.Errors) > 0 && c.Writer.Status() >= http.StatusInternalServerError {
			reqLogger.LogHTTPError(c, c.Errors.Last(), c.Writer.Status())
		}
	}
}
