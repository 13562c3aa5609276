package reservations

import (
	"context"
	"errors"
	"time"

	"stablehub/internal/capacity"
	"stablehub/internal/facilities"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrReservationNotFound = errors.New("reservation not found")
	// ErrConcurrentModification marks a transaction that lost a race and
	// may be retried from scratch.
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// ListQuery filters reservation listings. From/To select reservations
// overlapping [From, To).
type ListQuery struct {
	FacilityID *uuid.UUID
	StableID   *uuid.UUID
	UserID     *uuid.UUID
	Statuses   []Status
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

// OverlapFinder returns the active reservations of a facility overlapping
// [start, end), skipping excludeID.
type OverlapFinder interface {
	FindOverlapping(ctx context.Context, facilityID uuid.UUID, start, end time.Time, excludeID uuid.UUID) ([]Reservation, error)
}

type Repository interface {
	OverlapFinder
	GetByID(ctx context.Context, id uuid.UUID) (*Reservation, error)
	List(ctx context.Context, q ListQuery) ([]Reservation, int64, error)
	ListFinished(ctx context.Context, before time.Time, limit int) ([]Reservation, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// WithinTransaction runs fn atomically. A lost race surfaces as
	// ErrConcurrentModification.
	WithinTransaction(ctx context.Context, fn func(tx TxRepository) error) error
}

// TxRepository is the view of the store inside one transaction. Reads made
// through it are consistent with the writes it commits.
type TxRepository interface {
	OverlapFinder
	LockFacility(ctx context.Context, id uuid.UUID) (*facilities.Facility, error)
	LockReservation(ctx context.Context, id uuid.UUID) (*Reservation, error)
	Create(ctx context.Context, r *Reservation) error
	Save(ctx context.Context, r *Reservation) error
}

// CapacitySource adapts an OverlapFinder to capacity.Source.
func CapacitySource(finder OverlapFinder) capacity.Source {
	return overlapSource{finder: finder}
}

type overlapSource struct {
	finder OverlapFinder
}

func (s overlapSource) ActiveOverlapping(ctx context.Context, facilityID uuid.UUID, start, end time.Time, excludeID uuid.UUID) ([]capacity.Interval, error) {
	list, err := s.finder.FindOverlapping(ctx, facilityID, start, end, excludeID)
	if err != nil {
		return nil, err
	}
	return intervals(list), nil
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Reservation, error) {
	var reservation Reservation
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&reservation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	return &reservation, nil
}

func (r *repository) List(ctx context.Context, q ListQuery) ([]Reservation, int64, error) {
	var list []Reservation
	var total int64

	query := r.db.WithContext(ctx).Model(&Reservation{})
	if q.FacilityID != nil {
		query = query.Where("facility_id = ?", *q.FacilityID)
	}
	if q.StableID != nil {
		query = query.Where("stable_id = ?", *q.StableID)
	}
	if q.UserID != nil {
		query = query.Where("user_id = ?", *q.UserID)
	}
	if len(q.Statuses) > 0 {
		query = query.Where("status IN ?", q.Statuses)
	}
	if q.From != nil {
		query = query.Where("end_time > ?", *q.From)
	}
	if q.To != nil {
		query = query.Where("start_time < ?", *q.To)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit).Offset(q.Offset)
	}
	if err := query.Order("start_time ASC").Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *repository) FindOverlapping(ctx context.Context, facilityID uuid.UUID, start, end time.Time, excludeID uuid.UUID) ([]Reservation, error) {
	return findOverlapping(r.db.WithContext(ctx), facilityID, start, end, excludeID)
}

func (r *repository) ListFinished(ctx context.Context, before time.Time, limit int) ([]Reservation, error) {
	var list []Reservation
	err := r.db.WithContext(ctx).
		Where("status = ? AND end_time <= ?", StatusConfirmed, before).
		Order("end_time ASC").
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&Reservation{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrReservationNotFound
	}
	return nil
}

func (r *repository) WithinTransaction(ctx context.Context, fn func(tx TxRepository) error) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&txRepository{db: tx})
	})
	return translateTxError(err)
}

type txRepository struct {
	db *gorm.DB
}

// LockFacility takes a row lock on the facility. Every admission for the
// facility serializes on it.
func (t *txRepository) LockFacility(ctx context.Context, id uuid.UUID) (*facilities.Facility, error) {
	var facility facilities.Facility
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&facility).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, facilities.ErrFacilityNotFound
		}
		return nil, err
	}
	return &facility, nil
}

func (t *txRepository) LockReservation(ctx context.Context, id uuid.UUID) (*Reservation, error) {
	var reservation Reservation
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&reservation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	return &reservation, nil
}

func (t *txRepository) FindOverlapping(ctx context.Context, facilityID uuid.UUID, start, end time.Time, excludeID uuid.UUID) ([]Reservation, error) {
	return findOverlapping(t.db.WithContext(ctx), facilityID, start, end, excludeID)
}

func (t *txRepository) Create(ctx context.Context, r *Reservation) error {
	if r.Version == 0 {
		r.Version = 1
	}
	return t.db.WithContext(ctx).Create(r).Error
}

// Save writes every column guarded by the version the caller read.
func (t *txRepository) Save(ctx context.Context, r *Reservation) error {
	prev := r.Version
	r.Version = prev + 1
	result := t.db.WithContext(ctx).
		Model(r).
		Where("version = ?", prev).
		Select("*").
		Omit("created_at").
		Updates(r)
	if result.Error != nil {
		r.Version = prev
		return result.Error
	}
	if result.RowsAffected == 0 {
		r.Version = prev
		return ErrConcurrentModification
	}
	return nil
}

func findOverlapping(db *gorm.DB, facilityID uuid.UUID, start, end time.Time, excludeID uuid.UUID) ([]Reservation, error) {
	var list []Reservation
	query := db.Where("facility_id = ? AND status IN ? AND start_time < ? AND end_time > ?",
		facilityID, ActiveStatuses, end, start)
	if excludeID != uuid.Nil {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Order("start_time ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// translateTxError maps PostgreSQL serialization failures and deadlocks to
// ErrConcurrentModification.
func translateTxError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return errors.Join(ErrConcurrentModification, err)
		}
	}
	return err
}
