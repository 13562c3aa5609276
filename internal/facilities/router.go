package facilities

import (
	"stablehub/internal/shared/config"
	"stablehub/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// SetupFacilityRoutes configures all facility routes. Stable-level
// permissions are enforced by the service.
func SetupFacilityRoutes(rg *gin.RouterGroup, controller *Controller, cfg *config.Config) {
	facilities := rg.Group("/facilities")
	facilities.Use(middleware.JWTAuthWithConfig(cfg))
	{
		facilities.POST("", controller.CreateFacility)                     // POST /api/v1/facilities
		facilities.GET("", controller.ListFacilities)                      // GET /api/v1/facilities?stableId=
		facilities.GET("/:id", controller.GetFacility)                     // GET /api/v1/facilities/:id
		facilities.PATCH("/:id", controller.UpdateFacility)                // PATCH /api/v1/facilities/:id
		facilities.PUT("/:id/schedule", controller.ReplaceSchedule)        // PUT /api/v1/facilities/:id/schedule
		facilities.GET("/:id/availability", controller.GetDayAvailability) // GET /api/v1/facilities/:id/availability?date=
	}
}
