package facilities

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stablehub/internal/access"
	"stablehub/internal/availability"
	"stablehub/internal/capacity"
	"stablehub/internal/shared/apperror"

	"github.com/google/uuid"
)

type Service interface {
	Create(ctx context.Context, actor access.Actor, req CreateFacilityRequest) (*Facility, error)
	Get(ctx context.Context, actor access.Actor, id uuid.UUID) (*Facility, error)
	List(ctx context.Context, actor access.Actor, filters ListFilters) ([]Facility, error)
	Update(ctx context.Context, actor access.Actor, id uuid.UUID, req UpdateFacilityRequest) (*Facility, error)
	ReplaceSchedule(ctx context.Context, actor access.Actor, id uuid.UUID, schedule availability.Schedule) (*Facility, error)
	DayAvailability(ctx context.Context, actor access.Actor, id uuid.UUID, date string) (*DayAvailabilityResponse, error)
}

type service struct {
	repo       Repository
	authz      access.Authorizer
	occupancy  capacity.Source
	fallbackTZ string
}

// NewService wires the facility service. occupancy supplies the active
// reservations shown in the day view.
func NewService(repo Repository, authz access.Authorizer, occupancy capacity.Source, fallbackTZ string) Service {
	return &service{repo: repo, authz: authz, occupancy: occupancy, fallbackTZ: fallbackTZ}
}

func (s *service) Create(ctx context.Context, actor access.Actor, req CreateFacilityRequest) (*Facility, error) {
	stableID, err := uuid.Parse(req.StableID)
	if err != nil {
		return nil, apperror.Validation("stableId must be a valid UUID")
	}
	if err := access.RequireStableManagement(ctx, s.authz, stableID, actor); err != nil {
		return nil, err
	}

	f := &Facility{
		ID:                      uuid.New(),
		StableID:                stableID,
		Name:                    req.Name,
		Type:                    req.Type,
		Status:                  req.Status,
		Description:             req.Description,
		MaxHorsesPerReservation: req.MaxHorsesPerReservation,
		MinTimeSlotDuration:     req.MinTimeSlotDuration,
		Timezone:                req.Timezone,
		CreatedBy:               actor.ID,
		LastModifiedBy:          actor.ID,
	}
	if f.Status == "" {
		f.Status = StatusActive
	}
	if f.Timezone == "" {
		f.Timezone = s.fallbackTZ
	}
	if req.AvailabilitySchedule != nil {
		schedule := availability.Normalize(*req.AvailabilitySchedule)
		if err := availability.ValidateSchedule(schedule); err != nil {
			return nil, apperror.Validation(fmt.Sprintf("invalid availability schedule: %v", err))
		}
		f.SetSchedule(schedule)
	}

	if err := s.repo.Create(ctx, f); err != nil {
		return nil, apperror.Infrastructure("failed to create facility", err)
	}
	return f, nil
}

func (s *service) Get(ctx context.Context, actor access.Actor, id uuid.UUID) (*Facility, error) {
	f, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.RequireStableAccess(ctx, s.authz, f.StableID, actor); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *service) List(ctx context.Context, actor access.Actor, filters ListFilters) ([]Facility, error) {
	stableID, err := uuid.Parse(filters.StableID)
	if err != nil {
		return nil, apperror.Validation("stableId must be a valid UUID")
	}
	if err := access.RequireStableAccess(ctx, s.authz, stableID, actor); err != nil {
		return nil, err
	}
	list, err := s.repo.ListByStable(ctx, stableID, filters)
	if err != nil {
		return nil, apperror.Infrastructure("failed to list facilities", err)
	}
	return list, nil
}

func (s *service) Update(ctx context.Context, actor access.Actor, id uuid.UUID, req UpdateFacilityRequest) (*Facility, error) {
	f, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.RequireStableManagement(ctx, s.authz, f.StableID, actor); err != nil {
		return nil, err
	}

	if req.Name != nil {
		f.Name = *req.Name
	}
	if req.Type != nil {
		f.Type = *req.Type
	}
	if req.Status != nil {
		f.Status = *req.Status
	}
	if req.Description != nil {
		f.Description = *req.Description
	}
	if req.MaxHorsesPerReservation != nil {
		f.MaxHorsesPerReservation = *req.MaxHorsesPerReservation
	}
	if req.MinTimeSlotDuration != nil {
		f.MinTimeSlotDuration = req.MinTimeSlotDuration
	}
	if req.Timezone != nil {
		f.Timezone = *req.Timezone
	}
	f.LastModifiedBy = actor.ID

	if err := s.save(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *service) ReplaceSchedule(ctx context.Context, actor access.Actor, id uuid.UUID, schedule availability.Schedule) (*Facility, error) {
	f, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.RequireStableManagement(ctx, s.authz, f.StableID, actor); err != nil {
		return nil, err
	}

	normalized := availability.Normalize(schedule)
	if err := availability.ValidateSchedule(normalized); err != nil {
		return nil, apperror.Validation(fmt.Sprintf("invalid availability schedule: %v", err))
	}
	f.SetSchedule(normalized)
	f.LastModifiedBy = actor.ID

	if err := s.save(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *service) DayAvailability(ctx context.Context, actor access.Actor, id uuid.UUID, date string) (*DayAvailabilityResponse, error) {
	f, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	loc := f.Location(s.fallbackTZ)
	day, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return nil, apperror.Validation("date must be formatted as YYYY-MM-DD")
	}
	res := availability.Effective(f.Schedule(), day)

	resp := &DayAvailabilityResponse{
		FacilityID:    f.ID,
		Date:          res.Date,
		Timezone:      loc.String(),
		Source:        res.Source,
		Closed:        res.Closed() || !f.Status.AcceptsReservations(),
		Blocks:        res.Blocks,
		MaxConcurrent: f.MaxHorsesPerReservation,
		Reservations:  []DayReservation{},
	}
	if s.occupancy == nil {
		return resp, nil
	}

	window := capacity.Window{Start: day, End: day.AddDate(0, 0, 1)}
	intervals, err := s.occupancy.ActiveOverlapping(ctx, f.ID, window.Start, window.End, uuid.Nil)
	if err != nil {
		return nil, apperror.Infrastructure("failed to load reservations", err)
	}
	for _, iv := range intervals {
		resp.Reservations = append(resp.Reservations, DayReservation{ID: iv.ID, Start: iv.Start, End: iv.End, Horses: iv.Horses})
	}
	resp.PeakOccupancy, resp.PeakWindow = capacity.Peak(intervals, window)
	return resp, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*Facility, error) {
	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrFacilityNotFound) {
			return nil, apperror.NotFound("facility not found")
		}
		return nil, apperror.Infrastructure("failed to load facility", err)
	}
	return f, nil
}

func (s *service) save(ctx context.Context, f *Facility) error {
	if err := s.repo.Update(ctx, f); err != nil {
		if errors.Is(err, ErrFacilityNotFound) {
			return apperror.NotFound("facility not found")
		}
		return apperror.Infrastructure("failed to update facility", err)
	}
	return nil
}
