package access

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrMembershipNotFound = errors.New("membership not found")

type MembershipRepository interface {
	FindMembership(ctx context.Context, stableID, userID uuid.UUID) (*StableMember, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) MembershipRepository {
	return &repository{db: db}
}

func (r *repository) FindMembership(ctx context.Context, stableID, userID uuid.UUID) (*StableMember, error) {
	var member StableMember
	err := r.db.WithContext(ctx).
		Where("stable_id = ? AND user_id = ?", stableID, userID).
		First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMembershipNotFound
		}
		return nil, err
	}
	return &member, nil
}
