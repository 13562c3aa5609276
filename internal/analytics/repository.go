package analytics

import (
	"context"
	"time"

	"stablehub/internal/reservations"
	"stablehub/pkg/logger"

	"gorm.io/gorm"
)

const slowQueryThreshold = 500 * time.Millisecond

// Repository loads the raw material of a report.
type Repository interface {
	StatusCounts(ctx context.Context, scope Scope) (map[string]int, error)
	Bookings(ctx context.Context, scope Scope) ([]Booking, error)
}

type repository struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewRepository aggregates in Postgres.
func NewRepository(db *gorm.DB, log *logger.Logger) Repository {
	if log == nil {
		log = logger.NewNop()
	}
	return &repository{db: db, log: log}
}

func (r *repository) StatusCounts(ctx context.Context, scope Scope) (map[string]int, error) {
	var rows []struct {
		Status string
		Count  int
	}

	query := `
		SELECT status, COUNT(*) AS count
		FROM facility_reservations
		WHERE stable_id = ? AND end_time > ? AND start_time < ?`
	args := []interface{}{scope.StableID, scope.From, scope.To}
	if scope.FacilityID != nil {
		query += " AND facility_id = ?"
		args = append(args, *scope.FacilityID)
	}
	query += " GROUP BY status"

	err := r.timed(ctx, "analytics.status_counts", func() error {
		return r.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error
	})
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *repository) Bookings(ctx context.Context, scope Scope) ([]Booking, error) {
	var bookings []Booking

	query := `
		SELECT id, facility_id, status, start_time, end_time,
		       jsonb_array_length(horse_ids) AS horse_count
		FROM facility_reservations
		WHERE stable_id = ? AND end_time > ? AND start_time < ?`
	args := []interface{}{scope.StableID, scope.From, scope.To}
	if scope.FacilityID != nil {
		query += " AND facility_id = ?"
		args = append(args, *scope.FacilityID)
	}
	query += " ORDER BY start_time ASC"

	err := r.timed(ctx, "analytics.bookings", func() error {
		return r.db.WithContext(ctx).Raw(query, args...).Scan(&bookings).Error
	})
	return bookings, err
}

func (r *repository) timed(ctx context.Context, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	r.log.LogDBQuery(ctx, name, elapsed, err)
	if elapsed > slowQueryThreshold {
		r.log.LogSlowQuery(ctx, name, elapsed)
	}
	return err
}

type listRepository struct {
	reservations reservations.Repository
}

// NewListRepository aggregates in process over a reservation repository.
// It backs the in-memory store.
func NewListRepository(repo reservations.Repository) Repository {
	return &listRepository{reservations: repo}
}

func (r *listRepository) StatusCounts(ctx context.Context, scope Scope) (map[string]int, error) {
	bookings, err := r.Bookings(ctx, scope)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, b := range bookings {
		counts[b.Status]++
	}
	return counts, nil
}

func (r *listRepository) Bookings(ctx context.Context, scope Scope) ([]Booking, error) {
	from, to := scope.From, scope.To
	list, _, err := r.reservations.List(ctx, reservations.ListQuery{
		StableID:   &scope.StableID,
		FacilityID: scope.FacilityID,
		From:       &from,
		To:         &to,
	})
	if err != nil {
		return nil, err
	}

	bookings := make([]Booking, 0, len(list))
	for _, res := range list {
		bookings = append(bookings, Booking{
			ID:         res.ID,
			FacilityID: res.FacilityID,
			Status:     string(res.Status),
			StartTime:  res.StartTime,
			EndTime:    res.EndTime,
			HorseCount: res.HorseCount(),
		})
	}
	return bookings, nil
}
