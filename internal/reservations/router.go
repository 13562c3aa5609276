package reservations

import (
	"stablehub/internal/shared/config"
	"stablehub/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// SetupReservationRoutes configures all facility reservation routes
func SetupReservationRoutes(rg *gin.RouterGroup, controller *Controller, cfg *config.Config) {
	reservations := rg.Group("/facility-reservations")
	reservations.Use(middleware.JWTAuthWithConfig(cfg))
	{
		reservations.POST("", controller.CreateReservation)                // POST /api/v1/facility-reservations
		reservations.GET("", controller.ListReservations)                  // GET /api/v1/facility-reservations
		reservations.POST("/check-conflicts", controller.CheckConflicts)   // POST /api/v1/facility-reservations/check-conflicts
		reservations.GET("/:id", controller.GetReservation)                // GET /api/v1/facility-reservations/:id
		reservations.PATCH("/:id", controller.UpdateReservation)           // PATCH /api/v1/facility-reservations/:id
		reservations.DELETE("/:id", controller.DeleteReservation)          // DELETE /api/v1/facility-reservations/:id
		reservations.POST("/:id/approve", controller.ApproveReservation)   // POST /api/v1/facility-reservations/:id/approve
		reservations.POST("/:id/reject", controller.RejectReservation)     // POST /api/v1/facility-reservations/:id/reject
		reservations.POST("/:id/cancel", controller.CancelReservation)     // POST /api/v1/facility-reservations/:id/cancel
		reservations.POST("/:id/complete", controller.CompleteReservation) // POST /api/v1/facility-reservations/:id/complete
		reservations.POST("/:id/no-show", controller.MarkNoShow)           // POST /api/v1/facility-reservations/:id/no-show
	}
}

// Route definitions for reference:
//
// ADMISSION
// POST   /api/v1/facility-reservations                 - Book a facility (availability + capacity checked)
// PATCH  /api/v1/facility-reservations/:id             - Move/resize; checks exclude the reservation itself
// POST   /api/v1/facility-reservations/check-conflicts - Preview overlaps and peak occupancy
//
// STATUS
// pending -> confirmed | rejected | cancelled
// confirmed -> cancelled | completed | no_show
// Cancelling an already cancelled reservation is a no-op.
//
// Error payloads carry errors.code: VALIDATION_ERROR, FORBIDDEN, NOT_FOUND,
// AVAILABILITY_CONFLICT, CAPACITY_EXCEEDED, HORSES_REQUIRED,
// TOO_MANY_HORSES, INVALID_TRANSITION, INFRASTRUCTURE_ERROR.
