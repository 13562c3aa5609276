// api/routes/router.go
package routes

import (
	"context"
	"net/http"
	"time"

	"stablehub/internal/access"
	"stablehub/internal/analytics"
	"stablehub/internal/audit"
	"stablehub/internal/directory"
	"stablehub/internal/facilities"
	"stablehub/internal/notifications"
	"stablehub/internal/reservations"
	"stablehub/internal/shared/config"
	"stablehub/internal/shared/metrics"
	"stablehub/pkg/cache"
	"stablehub/pkg/logger"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Dependencies are the storage and side-effect backends the routes are
// built on. Postgres and the in-memory store both satisfy them.
type Dependencies struct {
	Facilities   facilities.Repository
	Reservations reservations.Repository
	Members      access.MembershipRepository
	Directory    directory.Directory
	Analytics    analytics.Repository
	Audit        audit.Recorder
	Publisher    notifications.Publisher
	Cache        cache.Service // nil without Redis
	Metrics      *metrics.Recorder
	HealthCheck  func(ctx context.Context) error
}

// Router holds all route dependencies
type Router struct {
	config       *config.Config
	deps         Dependencies
	log          *logger.Logger
	authz        access.Authorizer
	reservations reservations.Service
}

// NewRouter wires the services. The reservation service is built eagerly so
// background jobs can share it.
func NewRouter(cfg *config.Config, deps Dependencies, log *logger.Logger) *Router {
	if log == nil {
		log = logger.GetDefault()
	}
	authz := access.NewMembershipAuthorizer(deps.Members)
	svc := reservations.NewService(deps.Reservations, deps.Facilities, authz, cfg.Reservation, reservations.Collaborators{
		Directory: deps.Directory,
		Audit:     deps.Audit,
		Publisher: deps.Publisher,
		Cache:     deps.Cache,
		Metrics:   deps.Metrics,
		Logger:    log,
	})
	return &Router{
		config:       cfg,
		deps:         deps,
		log:          log,
		authz:        authz,
		reservations: svc,
	}
}

// ReservationService exposes the shared reservation service.
func (r *Router) ReservationService() reservations.Service {
	return r.reservations
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	r.setupHealthRoutes(engine)

	if r.config.Metrics.Enabled {
		engine.GET(r.config.Metrics.Path, gin.WrapH(r.deps.Metrics.Handler()))
	}
	if r.config.EnableSwagger {
		engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := engine.Group(r.config.GetAPIBasePath())
	{
		r.setupFacilityRoutes(api)
		r.setupAnalyticsRoutes(api)
		r.setupReservationRoutes(api)
	}
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if r.deps.HealthCheck != nil {
			if err := r.deps.HealthCheck(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":    "unhealthy",
					"error":     err.Error(),
					"timestamp": time.Now(),
					"service":   "stablehub-backend",
				})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "stablehub-backend",
			"store":     r.config.Database.Driver,
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})
}

func (r *Router) setupFacilityRoutes(rg *gin.RouterGroup) {
	occupancy := reservations.CapacitySource(r.deps.Reservations)
	facilityService := facilities.NewService(r.deps.Facilities, r.authz, occupancy, r.config.Reservation.DefaultTimezone)
	facilities.SetupFacilityRoutes(rg, facilities.NewController(facilityService), r.config)
}

// setupAnalyticsRoutes mounts GET /facility-reservations/analytics.
func (r *Router) setupAnalyticsRoutes(rg *gin.RouterGroup) {
	analyticsService := analytics.NewService(r.deps.Analytics, r.deps.Facilities, r.authz, r.deps.Cache, r.config.Reservation, r.log)
	analytics.SetupAnalyticsRoutes(rg, analytics.NewController(analyticsService), r.config)
}

func (r *Router) setupReservationRoutes(rg *gin.RouterGroup) {
	reservations.SetupReservationRoutes(rg, reservations.NewController(r.reservations), r.config)
}
