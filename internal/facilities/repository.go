package facilities

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrFacilityNotFound = errors.New("facility not found")

type Repository interface {
	Create(ctx context.Context, facility *Facility) error
	GetByID(ctx context.Context, id uuid.UUID) (*Facility, error)
	ListByStable(ctx context.Context, stableID uuid.UUID, filters ListFilters) ([]Facility, error)
	Update(ctx context.Context, facility *Facility) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, facility *Facility) error {
	return r.db.WithContext(ctx).Create(facility).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Facility, error) {
	var facility Facility
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&facility).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFacilityNotFound
		}
		return nil, err
	}
	return &facility, nil
}

func (r *repository) ListByStable(ctx context.Context, stableID uuid.UUID, filters ListFilters) ([]Facility, error) {
	var list []Facility
	query := r.db.WithContext(ctx).Where("stable_id = ?", stableID)
	if filters.Type != "" {
		query = query.Where("type = ?", filters.Type)
	}
	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}
	if err := query.Order("name ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *repository) Update(ctx context.Context, facility *Facility) error {
	result := r.db.WithContext(ctx).Save(facility)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrFacilityNotFound
	}
	return nil
}
