package facilities

import (
	"net/http"

	"stablehub/internal/availability"
	"stablehub/internal/shared/apperror"
	"stablehub/internal/shared/middleware"
	"stablehub/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
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

// CreateFacility godoc
// @Summary Create a facility
// @Tags facilities
// @Accept json
// @Produce json
// @Param request body CreateFacilityRequest true "Facility"
// @Success 201 {object} response.StandardApiResponse
// @Router /facilities [post]
func (c *Controller) CreateFacility(ctx *gin.Context) {
	actor, ok := middleware.RequireActor(ctx)
	if !ok {
		return
	}

	var req CreateFacilityRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}
	if err := c.validator.Struct(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Validation failed", nil, err.Error())
		return
	}

	facility, err := c.service.Create(ctx.Request.Context(), actor, req)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusCreated, "Facility created successfully", facility, nil)
}

// ListFacilities godoc
// @Summary List the facilities of a stable
// @Tags facilities
// @Produce json
// @Param stableId query string true "Stable ID"
// @Success 200 {object} response.StandardApiResponse
// @Router /facilities [get]
func (c *Controller) ListFacilities(ctx *gin.Context) {
	actor, ok := middleware.RequireActor(ctx)
	if !ok {
		return
	}

	var filters ListFilters
	if err := ctx.ShouldBindQuery(&filters); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid query parameters", nil, err.Error())
		return
	}
	if err := c.validator.Struct(&filters); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Validation failed", nil, err.Error())
		return
	}

	list, err := c.service.List(ctx.Request.Context(), actor, filters)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Facilities retrieved successfully", gin.H{
		"facilities": list,
		"count":      len(list),
	}, nil)
}

// GetFacility godoc
// @Summary Get a facility
// @Tags facilities
// @Produce json
// @Param id path string true "Facility ID"
// @Success 200 {object} response.StandardApiResponse
// @Router /facilities/{id} [get]
func (c *Controller) GetFacility(ctx *gin.Context) {
	actor, ok := middleware.RequireActor(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	facility, err := c.service.Get(ctx.Request.Context(), actor, id)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Facility retrieved successfully", facility, nil)
}

// UpdateFacility godoc
// @Summary Update facility attributes
// @Tags facilities
// @Accept json
// @Produce json
// @Param id path string true "Facility ID"
// @Param request body UpdateFacilityRequest true "Changes"
// @Success 200 {object} response.StandardApiResponse
// @Router /facilities/{id} [patch]
func (c *Controller) UpdateFacility(ctx *gin.Context) {
	actor, ok := middleware.RequireActor(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	var req UpdateFacilityRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}
	if err := c.validator.Struct(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Validation failed", nil, err.Error())
		return
	}

	facility, err := c.service.Update(ctx.Request.Context(), actor, id, req)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Facility updated successfully", facility, nil)
}

// ReplaceSchedule godoc
// @Summary Replace the availability schedule
// @Tags facilities
// @Accept json
// @Produce json
// @Param id path string true "Facility ID"
// @Success 200 {object} response.StandardApiResponse
// @Router /facilities/{id}/schedule [put]
func (c *Controller) ReplaceSchedule(ctx *gin.Context) {
	actor, ok := middleware.RequireActor(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	var schedule availability.Schedule
	if err := ctx.ShouldBindJSON(&schedule); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	facility, err := c.service.ReplaceSchedule(ctx.Request.Context(), actor, id, schedule)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Schedule updated successfully", facility, nil)
}

// GetDayAvailability godoc
// @Summary Effective availability and bookings for one day
// @Tags facilities
// @Produce json
// @Param id path string true "Facility ID"
// @Param date query string true "YYYY-MM-DD"
// @Success 200 {object} response.StandardApiResponse
// @Router /facilities/{id}/availability [get]
func (c *Controller) GetDayAvailability(ctx *gin.Context) {
	actor, ok := middleware.RequireActor(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	date := ctx.Query("date")
	if date == "" {
		response.RespondError(ctx, apperror.Validation("date query parameter is required"))
		return
	}

	view, err := c.service.DayAvailability(ctx.Request.Context(), actor, id, date)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Availability retrieved successfully", view, nil)
}

func parseID(ctx *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondError(ctx, apperror.Validation("invalid facility id"))
		return uuid.Nil, false
	}
	return id, true
}
