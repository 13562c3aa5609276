package analytics

import (
	"net/http"

	"stablehub/internal/shared/apperror"
	"stablehub/internal/shared/middleware"
	"stablehub/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type Controller struct {
	service   Service
	validator *validator.Validate
}

func NewController(service Service) *Controller {
	return &Controller{
		service:   service,
		validator: validator.New(),
	}
}

// GetStableReport godoc
// @Summary Reservation analytics for a stable
// @Tags facility-reservations
// @Produce json
// @Param stableId query string true "Stable ID"
// @Param facilityId query string false "Facility ID"
// @Param startDate query string true "YYYY-MM-DD"
// @Param endDate query string true "YYYY-MM-DD"
// @Success 200 {object} response.StandardApiResponse
// @Failure 400 {object} response.StandardApiResponse
// @Router /facility-reservations/analytics [get]
func (c *Controller) GetStableReport(ctx *gin.Context) {
	actor, ok := middleware.RequireActor(ctx)
	if !ok {
		return
	}

	var req ReportRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		response.RespondError(ctx, apperror.Validation("invalid query parameters: "+err.Error()))
		return
	}
	if err := c.validator.Struct(&req); err != nil {
		response.RespondError(ctx, apperror.Validation(err.Error()))
		return
	}

	report, err := c.service.StableReport(ctx.Request.Context(), actor, req)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Analytics retrieved successfully", report, nil)
}
