package analytics

import (
	"stablehub/internal/shared/config"
	"stablehub/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// SetupAnalyticsRoutes mounts the report next to the reservation routes.
// Stable management access is checked by the service.
func SetupAnalyticsRoutes(rg *gin.RouterGroup, controller *Controller, cfg *config.Config) {
	analytics := rg.Group("/facility-reservations")
	analytics.Use(middleware.JWTAuthWithConfig(cfg))
	{
		analytics.GET("/analytics", controller.GetStableReport) // GET /api/v1/facility-reservations/analytics?stableId=&startDate=&endDate=
	}
}
