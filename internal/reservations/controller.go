package reservations

import (
	"context"
	"net/http"

	"stablehub/internal/access"
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

// CreateReservation godoc
// @Summary Book a facility
// @Description Admits the reservation only if it fits the facility's availability and concurrent capacity
// @Tags facility-reservations
// @Accept json
// @Produce json
// @Param request body CreateReservationRequest true "Reservation"
// @Success 201 {object} response.StandardApiResponse
// @Failure 400 {object} response.StandardApiResponse
// @Failure 403 {object} response.StandardApiResponse
// @Failure 409 {object} response.StandardApiResponse
// @Router /facility-reservations [post]
func (c *Controller) CreateReservation(ctx *gin.Context) {
	actor, ok := middleware.RequireActor(ctx)
	if !ok {
		return
	}

	var req CreateReservationRequest
	if !c.bindJSON(ctx, &req) {
		return
	}

	reservation, err := c.service.Create(ctx.Request.Context(), actor, req)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusCreated, "Reservation created successfully", reservation, nil)
}

// ListReservations godoc
// @Summary List reservations
// @Tags facility-reservations
// @Produce json
// @Param facilityId query string false "Facility ID"
// @Param stableId query string false "Stable ID"
// @Param userId query string false "User ID"
// @Param status query string false "Status"
// @Param startDate query string false "YYYY-MM-DD or RFC3339"
// @Param endDate query string false "YYYY-MM-DD or RFC3339"
// @Param page query int false "Page" default(1)
// @Param limit query int false "Limit" default(50)
// @Success 200 {object} response.StandardApiResponse
// @Router /facility-reservations [get]
func (c *Controller) ListReservations(ctx *gin.Context) {
	actor, ok := middleware.RequireActor(ctx)
	if !ok {
		return
	}

	var req ListReservationsRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		response.RespondError(ctx, apperror.Validation("invalid query parameters: "+err.Error()))
		return
	}
	if err := c.validator.Struct(&req); err != nil {
		response.RespondError(ctx, apperror.Validation(err.Error()))
		return
	}

	list, err := c.service.List(ctx.Request.Context(), actor, req)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Reservations retrieved successfully", list, nil)
}

// GetReservation godoc
// @Summary Get a reservation
// @Tags facility-reservations
// @Produce json
// @Param id path string true "Reservation ID"
// @Success 200 {object} response.StandardApiResponse
// @Failure 404 {object} response.StandardApiResponse
// @Router /facility-reservations/{id} [get]
func (c *Controller) GetReservation(ctx *gin.Context) {
	actor, ok := middleware.RequireActor(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	reservation, err := c.service.Get(ctx.Request.Context(), actor, id)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Reservation retrieved successfully", reservation, nil)
}

// UpdateReservation godoc
// @Summary Move or resize a reservation
// @Description Placement changes re-run availability and capacity checks, excluding the reservation itself
// @Tags facility-reservations
// @Accept json
// @Produce json
// @Param id path string true "Reservation ID"
// @Param request body UpdateReservationRequest true "Changes"
// @Success 200 {object} response.StandardApiResponse
// @Failure 409 {object} response.StandardApiResponse
// @Router /facility-reservations/{id} [patch]
func (c *Controller) UpdateReservation(ctx *gin.Context) {
	actor, ok := middleware.RequireActor(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	var req UpdateReservationRequest
	if !c.bindJSON(ctx, &req) {
		return
	}

	reservation, err := c.service.Update(ctx.Request.Context(), actor, id, req)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Reservation updated successfully", reservation, nil)
}

// ApproveReservation godoc
// @Summary Confirm a pending reservation
// @Tags facility-reservations
// @Produce json
// @Param id path string true "Reservation ID"
// @Success 200 {object} response.StandardApiResponse
// @Router /facility-reservations/{id}/approve [post]
func (c *Controller) ApproveReservation(ctx *gin.Context) {
	c.runTransition(ctx, "Reservation approved", c.service.Approve)
}

// RejectReservation godoc
// @Summary Reject a pending reservation
// @Tags facility-reservations
// @Accept json
// @Produce json
// @Param id path string true "Reservation ID"
// @Param request body TransitionRequest false "Reason"
// @Success 200 {object} response.StandardApiResponse
// @Router /facility-reservations/{id}/reject [post]
func (c *Controller) RejectReservation(ctx *gin.Context) {
	c.runTransition(ctx, "Reservation rejected", c.service.Reject)
}

// CancelReservation godoc
// @Summary Cancel a reservation
// @Tags facility-reservations
// @Accept json
// @Produce json
// @Param id path string true "Reservation ID"
// @Param request body TransitionRequest false "Reason"
// @Success 200 {object} response.StandardApiResponse
// @Router /facility-reservations/{id}/cancel [post]
func (c *Controller) CancelReservation(ctx *gin.Context) {
	c.runTransition(ctx, "Reservation cancelled", c.service.Cancel)
}

// CompleteReservation godoc
// @Summary Mark a confirmed reservation as completed
// @Tags facility-reservations
// @Produce json
// @Param id path string true "Reservation ID"
// @Success 200 {object} response.StandardApiResponse
// @Router /facility-reservations/{id}/complete [post]
func (c *Controller) CompleteReservation(ctx *gin.Context) {
	c.runTransition(ctx, "Reservation completed", withoutReason(c.service.Complete))
}

// MarkNoShow godoc
// @Summary Mark a confirmed reservation as a no-show
// @Tags facility-reservations
// @Produce json
// @Param id path string true "Reservation ID"
// @Success 200 {object} response.StandardApiResponse
// @Router /facility-reservations/{id}/no-show [post]
func (c *Controller) MarkNoShow(ctx *gin.Context) {
	c.runTransition(ctx, "Reservation marked as no-show", withoutReason(c.service.MarkNoShow))
}

// DeleteReservation godoc
// @Summary Delete a reservation
// @Tags facility-reservations
// @Produce json
// @Param id path string true "Reservation ID"
// @Success 200 {object} response.StandardApiResponse
// @Router /facility-reservations/{id} [delete]
func (c *Controller) DeleteReservation(ctx *gin.Context) {
	actor, ok := middleware.RequireActor(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	if err := c.service.Delete(ctx.Request.Context(), actor, id); err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Reservation deleted", gin.H{"success": true, "id": id}, nil)
}

// CheckConflicts godoc
// @Summary Preview overlapping reservations and capacity for a range
// @Tags facility-reservations
// @Accept json
// @Produce json
// @Param request body CheckConflictsRequest true "Range"
// @Success 200 {object} response.StandardApiResponse
// @Router /facility-reservations/check-conflicts [post]
func (c *Controller) CheckConflicts(ctx *gin.Context) {
	actor, ok := middleware.RequireActor(ctx)
	if !ok {
		return
	}

	var req CheckConflictsRequest
	if !c.bindJSON(ctx, &req) {
		return
	}

	result, err := c.service.CheckConflicts(ctx.Request.Context(), actor, req)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Conflict check completed", result, nil)
}

type transitionCall func(ctx context.Context, actor access.Actor, id uuid.UUID, reason string) (*Reservation, error)

func withoutReason(fn func(ctx context.Context, actor access.Actor, id uuid.UUID) (*Reservation, error)) transitionCall {
	return func(ctx context.Context, actor access.Actor, id uuid.UUID, _ string) (*Reservation, error) {
		return fn(ctx, actor, id)
	}
}

func (c *Controller) runTransition(ctx *gin.Context, message string, fn transitionCall) {
	actor, ok := middleware.RequireActor(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	var req TransitionRequest
	if ctx.Request.ContentLength > 0 {
		if !c.bindJSON(ctx, &req) {
			return
		}
	}

	reservation, err := fn(ctx.Request.Context(), actor, id, req.Reason)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, message, TransitionResponse{
		Success: true,
		ID:      reservation.ID,
		Status:  reservation.Status,
	}, nil)
}

func (c *Controller) bindJSON(ctx *gin.Context, req interface{}) bool {
	if err := ctx.ShouldBindJSON(req); err != nil {
		response.RespondError(ctx, apperror.Validation("invalid request body: "+err.Error()))
		return false
	}
	if err := c.validator.Struct(req); err != nil {
		response.RespondError(ctx, apperror.Validation(err.Error()))
		return false
	}
	return true
}

func parseID(ctx *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondError(ctx, apperror.Validation("invalid reservation id"))
		return uuid.Nil, false
	}
	return id, true
}
