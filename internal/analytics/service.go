package analytics

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"stablehub/internal/access"
	"stablehub/internal/availability"
	"stablehub/internal/capacity"
	"stablehub/internal/facilities"
	"stablehub/internal/reservations"
	"stablehub/internal/shared/apperror"
	"stablehub/internal/shared/config"
	"stablehub/internal/shared/constants"
	"stablehub/pkg/cache"
	"stablehub/pkg/logger"

	"github.com/google/uuid"
)

const (
	dateLayout          = "2006-01-02"
	defaultMaxRangeDays = 365
)

// occupying statuses hold facility time; rejected and cancelled ones do not.
var occupying = map[string]bool{
	string(reservations.StatusPending):   true,
	string(reservations.StatusConfirmed): true,
	string(reservations.StatusCompleted): true,
}

type Service interface {
	StableReport(ctx context.Context, actor access.Actor, req ReportRequest) (*Report, error)
}

type service struct {
	repo         Repository
	facilities   facilities.Repository
	authz        access.Authorizer
	cacheService cache.Service
	cfg          config.ReservationConfig
	log          *logger.Logger
	now          func() time.Time
}

// NewService wires the report service. cacheService may be nil.
func NewService(repo Repository, facilityRepo facilities.Repository, authz access.Authorizer, cacheService cache.Service, cfg config.ReservationConfig, log *logger.Logger) Service {
	if log == nil {
		log = logger.NewNop()
	}
	return &service{
		repo:         repo,
		facilities:   facilityRepo,
		authz:        authz,
		cacheService: cacheService,
		cfg:          cfg,
		log:          log,
		now:          time.Now,
	}
}

func (s *service) StableReport(ctx context.Context, actor access.Actor, req ReportRequest) (*Report, error) {
	scope, err := s.scope(req)
	if err != nil {
		return nil, err
	}
	if err := access.RequireStableManagement(ctx, s.authz, scope.StableID, actor); err != nil {
		return nil, err
	}

	list, err := s.facilities.ListByStable(ctx, scope.StableID, facilities.ListFilters{})
	if err != nil {
		return nil, apperror.Infrastructure("failed to load facilities", err)
	}
	if scope.FacilityID != nil {
		list = filterFacility(list, *scope.FacilityID)
		if len(list) == 0 {
			return nil, apperror.NotFound("facility not found in this stable")
		}
	}

	cacheKey := constants.BuildAnalyticsKey(req.StableID, req.FacilityID, req.StartDate, req.EndDate)
	if s.cacheService != nil {
		var cached Report
		if err := s.cacheService.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.WithUserID(actor.ID.String()).WithError(err).Warn("Analytics cache read failed", "key", cacheKey)
		}
	}

	counts, err := s.repo.StatusCounts(ctx, scope)
	if err != nil {
		return nil, apperror.Infrastructure("failed to count reservations", err)
	}
	bookings, err := s.repo.Bookings(ctx, scope)
	if err != nil {
		return nil, apperror.Infrastructure("failed to load reservations", err)
	}

	report := s.build(scope, req, list, counts, bookings)

	if s.cacheService != nil {
		if err := s.cacheService.Set(ctx, cacheKey, report, constants.TTL_DYNAMIC_MEDIUM); err != nil {
			s.log.WithUserID(actor.ID.String()).WithError(err).Warn("Failed to cache analytics report", "key", cacheKey)
		}
	}
	return report, nil
}

func (s *service) scope(req ReportRequest) (Scope, error) {
	stableID, err := uuid.Parse(req.StableID)
	if err != nil {
		return Scope{}, apperror.Validation("stableId must be a valid UUID")
	}
	start, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		return Scope{}, apperror.Validation("startDate must be formatted as YYYY-MM-DD")
	}
	end, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		return Scope{}, apperror.Validation("endDate must be formatted as YYYY-MM-DD")
	}
	if end.Before(start) {
		return Scope{}, apperror.Validation("startDate must not be after endDate")
	}
	maxDays := s.cfg.AnalyticsMaxRangeDays
	if maxDays <= 0 {
		maxDays = defaultMaxRangeDays
	}
	// Both dates are inclusive.
	days := int(end.Sub(start)/(24*time.Hour)) + 1
	if days > maxDays {
		return Scope{}, apperror.Validation(fmt.Sprintf("date range cannot exceed %d days including both ends", maxDays)).
			WithDetail("maxRangeDays", maxDays).
			WithDetail("requestedDays", days)
	}

	scope := Scope{StableID: stableID, From: start, To: end.AddDate(0, 0, 1)}
	if req.FacilityID != "" {
		id, err := uuid.Parse(req.FacilityID)
		if err != nil {
			return Scope{}, apperror.Validation("facilityId must be a valid UUID")
		}
		scope.FacilityID = &id
	}
	return scope, nil
}

func (s *service) build(scope Scope, req ReportRequest, list []facilities.Facility, counts map[string]int, bookings []Booking) *Report {
	report := &Report{
		StableID:     scope.StableID,
		FacilityID:   scope.FacilityID,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		StatusCounts: counts,
		Facilities:   make([]FacilityUtilization, 0, len(list)),
		HourlyStarts: make([]HourBucket, 24),
		GeneratedAt:  s.now().UTC(),
	}
	for _, n := range counts {
		report.TotalReservations += n
	}
	if report.TotalReservations > 0 {
		total := float64(report.TotalReservations)
		report.CancellationRate = round(float64(counts[string(reservations.StatusCancelled)]) / total)
		report.NoShowRate = round(float64(counts[string(reservations.StatusNoShow)]) / total)
	}
	for h := range report.HourlyStarts {
		report.HourlyStarts[h].Hour = h
	}

	window := capacity.Window{Start: scope.From, End: scope.To}
	byFacility := make(map[uuid.UUID][]capacity.Interval, len(list))
	booked := make(map[uuid.UUID]time.Duration, len(list))
	perFacility := make(map[uuid.UUID]int, len(list))
	locations := make(map[uuid.UUID]*time.Location, len(list))
	for i := range list {
		locations[list[i].ID] = list[i].Location(s.cfg.DefaultTimezone)
	}

	var totalMinutes float64
	var held int
	for _, b := range bookings {
		if !occupying[b.Status] {
			continue
		}
		held++
		report.TotalHorses += b.HorseCount
		duration := clip(b.StartTime, b.EndTime, window)
		report.BookedHorseHours += duration.Hours() * float64(b.HorseCount)
		totalMinutes += b.EndTime.Sub(b.StartTime).Minutes()

		booked[b.FacilityID] += duration
		perFacility[b.FacilityID]++
		byFacility[b.FacilityID] = append(byFacility[b.FacilityID], capacity.Interval{
			ID: b.ID, Start: b.StartTime, End: b.EndTime, Horses: b.HorseCount,
		})

		loc, ok := locations[b.FacilityID]
		if !ok {
			loc = time.UTC
		}
		report.HourlyStarts[b.StartTime.In(loc).Hour()].Reservations++
	}
	report.BookedHorseHours = round(report.BookedHorseHours)
	if held > 0 {
		report.AverageDurationMinutes = round(totalMinutes / float64(held))
	}

	peak := 0
	for _, bucket := range report.HourlyStarts {
		if bucket.Reservations > peak {
			peak = bucket.Reservations
			hour := bucket.Hour
			report.PeakHour = &hour
		}
	}

	for i := range list {
		f := &list[i]
		u := FacilityUtilization{
			FacilityID:    f.ID,
			Name:          f.Name,
			Type:          string(f.Type),
			Reservations:  perFacility[f.ID],
			BookedHours:   round(booked[f.ID].Hours()),
			OpenHours:     round(openHours(f, req, locations[f.ID])),
			MaxConcurrent: f.MaxHorsesPerReservation,
		}
		if u.OpenHours > 0 {
			u.UtilizationRate = round(booked[f.ID].Hours() / u.OpenHours)
		}
		u.PeakConcurrentHorses, u.PeakWindow = capacity.Peak(byFacility[f.ID], window)
		report.Facilities = append(report.Facilities, u)
	}
	sort.SliceStable(report.Facilities, func(i, j int) bool {
		return report.Facilities[i].Name < report.Facilities[j].Name
	})
	return report
}

// openHours sums the effective open blocks of every facility-local day in
// the requested date range.
func openHours(f *facilities.Facility, req ReportRequest, loc *time.Location) float64 {
	start, err := time.ParseInLocation(dateLayout, req.StartDate, loc)
	if err != nil {
		return 0
	}
	end, err := time.ParseInLocation(dateLayout, req.EndDate, loc)
	if err != nil {
		return 0
	}
	schedule := f.Schedule()
	minutes := 0
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		minutes += availability.OpenMinutes(availability.Effective(schedule, day).Blocks)
	}
	return float64(minutes) / 60
}

func clip(start, end time.Time, w capacity.Window) time.Duration {
	if start.Before(w.Start) {
		start = w.Start
	}
	if end.After(w.End) {
		end = w.End
	}
	if !end.After(start) {
		return 0
	}
	return end.Sub(start)
}

func filterFacility(list []facilities.Facility, id uuid.UUID) []facilities.Facility {
	for _, f := range list {
		if f.ID == id {
			return []facilities.Facility{f}
		}
	}
	return nil
}

func round(v float64) float64 {
	return math.Round(v*10000) / 10000
}
