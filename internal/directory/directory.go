package directory

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"stablehub/internal/users"
	"stablehub/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Unknown is the placeholder stored when a related entity cannot be resolved.
const Unknown = "Unknown"

var ErrNotFound = errors.New("directory entry not found")

type Horse struct {
	ID        uuid.UUID `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	StableID  uuid.UUID `json:"stableId" gorm:"type:uuid;not null;index"`
	Name      string    `json:"name" gorm:"not null"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type UserProfile struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"displayName"`
	Email       string    `json:"email"`
}

// Directory resolves display data for denormalized snapshot fields.
type Directory interface {
	UserProfile(ctx context.Context, userID uuid.UUID) (UserProfile, error)
	HorseNames(ctx context.Context, horseIDs []uuid.UUID) (map[uuid.UUID]string, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Directory {
	return &repository{db: db}
}

func (r *repository) UserProfile(ctx context.Context, userID uuid.UUID) (UserProfile, error) {
	var u users.User
	if err := r.db.WithContext(ctx).Where("id = ?", userID).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return UserProfile{}, ErrNotFound
		}
		return UserProfile{}, err
	}
	return UserProfile{ID: u.ID, DisplayName: u.DisplayName(), Email: u.Email}, nil
}

func (r *repository) HorseNames(ctx context.Context, horseIDs []uuid.UUID) (map[uuid.UUID]string, error) {
	names := make(map[uuid.UUID]string, len(horseIDs))
	if len(horseIDs) == 0 {
		return names, nil
	}
	var horses []Horse
	if err := r.db.WithContext(ctx).Where("id IN ?", horseIDs).Find(&horses).Error; err != nil {
		return nil, err
	}
	for _, h := range horses {
		names[h.ID] = h.Name
	}
	return names, nil
}

// Snapshot is the set of cosmetic copies taken when a reservation is written.
type Snapshot struct {
	UserName   string
	UserEmail  string
	HorseNames []string
}

// TakeSnapshot resolves display values and never fails: lookups that error
// are logged and replaced with Unknown.
func TakeSnapshot(ctx context.Context, dir Directory, log *logger.Logger, userID uuid.UUID, horseIDs []uuid.UUID) Snapshot {
	snap := Snapshot{UserName: Unknown, UserEmail: Unknown, HorseNames: make([]string, len(horseIDs))}
	for i := range snap.HorseNames {
		snap.HorseNames[i] = Unknown
	}
	if dir == nil {
		return snap
	}

	if profile, err := dir.UserProfile(ctx, userID); err == nil {
		snap.UserName = profile.DisplayName
		snap.UserEmail = profile.Email
	} else if log != nil {
		log.WarnContext(ctx, "user lookup failed, storing placeholder",
			slog.String("user_id", userID.String()), slog.String("error", err.Error()))
	}

	names, err := dir.HorseNames(ctx, horseIDs)
	if err != nil {
		if log != nil {
			log.WarnContext(ctx, "horse lookup failed, storing placeholders", slog.String("error", err.Error()))
		}
		return snap
	}
	for i, id := range horseIDs {
		if name, ok := names[id]; ok && name != "" {
			snap.HorseNames[i] = name
		}
	}
	return snap
}
