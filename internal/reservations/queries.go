package reservations

import (
	"context"
	"errors"
	"time"

	"stablehub/internal/access"
	"stablehub/internal/capacity"
	"stablehub/internal/facilities"
	"stablehub/internal/shared/apperror"

	"github.com/google/uuid"
)

const (
	defaultPageSize = 50
	dateLayout      = "2006-01-02"
)

func (s *service) Get(ctx context.Context, actor access.Actor, id uuid.UUID) (*Reservation, error) {
	r, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.ID != uuid.Nil && r.UserID == actor.ID {
		return r, nil
	}
	if err := access.RequireStableAccess(ctx, s.authz, r.StableID, actor); err != nil {
		return nil, err
	}
	return r, nil
}

// List returns reservations matching the filters. Without a facility or
// stable filter only the actor's own reservations are visible.
func (s *service) List(ctx context.Context, actor access.Actor, req ListReservationsRequest) (*ReservationListResponse, error) {
	var q ListQuery

	if req.FacilityID != "" {
		facilityID, err := uuid.Parse(req.FacilityID)
		if err != nil {
			return nil, apperror.Validation("facilityId must be a valid UUID")
		}
		f, err := s.loadFacility(ctx, facilityID)
		if err != nil {
			return nil, err
		}
		if err := access.RequireStableAccess(ctx, s.authz, f.StableID, actor); err != nil {
			return nil, err
		}
		q.FacilityID = &facilityID
	}
	if req.StableID != "" {
		stableID, err := uuid.Parse(req.StableID)
		if err != nil {
			return nil, apperror.Validation("stableId must be a valid UUID")
		}
		if err := access.RequireStableAccess(ctx, s.authz, stableID, actor); err != nil {
			return nil, err
		}
		q.StableID = &stableID
	}
	if req.UserID != "" {
		userID, err := uuid.Parse(req.UserID)
		if err != nil {
			return nil, apperror.Validation("userId must be a valid UUID")
		}
		if userID != actor.ID && q.FacilityID == nil && q.StableID == nil && !actor.IsAdmin() {
			return nil, apperror.Forbidden("listing another user's reservations requires a stable or facility filter")
		}
		q.UserID = &userID
	}
	if q.FacilityID == nil && q.StableID == nil && q.UserID == nil {
		own := actor.ID
		q.UserID = &own
	}
	if req.Status != "" {
		q.Statuses = []Status{req.Status}
	}

	var err error
	if q.From, err = parseBound(req.StartDate, false); err != nil {
		return nil, apperror.Validation("startDate must be YYYY-MM-DD or RFC3339")
	}
	if q.To, err = parseBound(req.EndDate, true); err != nil {
		return nil, apperror.Validation("endDate must be YYYY-MM-DD or RFC3339")
	}
	if q.From != nil && q.To != nil && !q.To.After(*q.From) {
		return nil, apperror.Validation("endDate must be after startDate")
	}

	page, limit := req.Page, req.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	q.Limit = limit
	q.Offset = (page - 1) * limit

	list, total, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, apperror.Infrastructure("failed to list reservations", err)
	}
	if list == nil {
		list = []Reservation{}
	}
	return &ReservationListResponse{
		Reservations: list,
		Total:        total,
		Page:         page,
		Limit:        limit,
		TotalPages:   int((total + int64(limit) - 1) / int64(limit)),
	}, nil
}

// CheckConflicts lists the active reservations overlapping a range and,
// when a horse count is given, previews the capacity decision.
func (s *service) CheckConflicts(ctx context.Context, actor access.Actor, req CheckConflictsRequest) (*ConflictCheckResponse, error) {
	facilityID, err := uuid.Parse(req.FacilityID)
	if err != nil {
		return nil, apperror.Validation("facilityId must be a valid UUID")
	}
	if !req.EndTime.After(req.StartTime) {
		return nil, apperror.Validation("endTime must be after startTime")
	}
	excludeID := uuid.Nil
	if req.ExcludeReservationID != "" {
		if excludeID, err = uuid.Parse(req.ExcludeReservationID); err != nil {
			return nil, apperror.Validation("excludeReservationId must be a valid UUID")
		}
	}

	f, err := s.loadFacility(ctx, facilityID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireStableAccess(ctx, s.authz, f.StableID, actor); err != nil {
		return nil, err
	}

	conflicts, err := s.repo.FindOverlapping(ctx, facilityID, req.StartTime, req.EndTime, excludeID)
	if err != nil {
		return nil, apperror.Infrastructure("failed to load overlapping reservations", err)
	}
	if conflicts == nil {
		conflicts = []Reservation{}
	}

	resp := &ConflictCheckResponse{
		HasConflicts:  len(conflicts) > 0,
		Conflicts:     conflicts,
		MaxConcurrent: f.MaxHorsesPerReservation,
	}
	window := capacity.Window{Start: req.StartTime, End: req.EndTime}
	occupied := intervals(conflicts)
	if req.HorseCount > 0 {
		candidate := capacity.Candidate{Start: req.StartTime, End: req.EndTime, Horses: req.HorseCount}
		resp.WouldExceedCapacity = !capacity.Evaluate(candidate, occupied, f.MaxHorsesPerReservation, excludeID).Valid
		occupied = append(occupied, capacity.Interval{Start: candidate.Start, End: candidate.End, Horses: candidate.Horses})
	}
	resp.PeakOccupancy, resp.PeakWindow = capacity.Peak(occupied, window)
	return resp, nil
}

func (s *service) loadFacility(ctx context.Context, id uuid.UUID) (*facilities.Facility, error) {
	f, err := s.facilities.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, facilities.ErrFacilityNotFound) {
			return nil, apperror.NotFound("facility not found")
		}
		return nil, apperror.Infrastructure("failed to load facility", err)
	}
	return f, nil
}

// parseBound accepts a date or an RFC3339 timestamp. A date used as an
// upper bound includes the whole day.
func parseBound(v string, upper bool) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return nil, err
	}
	if upper {
		t = t.AddDate(0, 0, 1)
	}
	return &t, nil
}
