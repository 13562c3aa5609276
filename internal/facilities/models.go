package facilities

import (
	"time"

	"stablehub/internal/availability"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Type string

const (
	TypeArena       Type = "arena"
	TypeIndoorArena Type = "indoor_arena"
	TypeRoundPen    Type = "round_pen"
	TypeTreadmill   Type = "treadmill"
	TypeWalker      Type = "walker"
	TypePaddock     Type = "paddock"
	TypeWashBay     Type = "wash_bay"
	TypeSolarium    Type = "solarium"
	TypeOther       Type = "other"
)

type Status string

const (
	StatusActive      Status = "active"
	StatusInactive    Status = "inactive"
	StatusMaintenance Status = "maintenance"
)

// AcceptsReservations reports whether new bookings may be admitted.
func (s Status) AcceptsReservations() bool {
	return s == StatusActive
}

// Facility is a bookable shared resource of a stable. MaxHorsesPerReservation
// is both the per-booking cap and the concurrent-capacity ceiling.
type Facility struct {
	ID                      uuid.UUID                                `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	StableID                uuid.UUID                                `json:"stableId" gorm:"type:uuid;not null;index"`
	Name                    string                                   `json:"name" gorm:"not null"`
	Type                    Type                                     `json:"type" gorm:"not null"`
	Status                  Status                                   `json:"status" gorm:"not null;default:'active'"`
	Description             string                                   `json:"description,omitempty"`
	MaxHorsesPerReservation int                                      `json:"maxHorsesPerReservation" gorm:"not null;default:1;check:max_horses_per_reservation >= 1"`
	MinTimeSlotDuration     *int                                     `json:"minTimeSlotDuration,omitempty"`
	Timezone                string                                   `json:"timezone" gorm:"not null;default:'UTC'"`
	AvailabilitySchedule    datatypes.JSONType[availability.Schedule] `json:"availabilitySchedule" gorm:"type:jsonb;not null;default:'{}'"`
	CreatedBy               uuid.UUID                                `json:"createdBy" gorm:"type:uuid"`
	LastModifiedBy          uuid.UUID                                `json:"lastModifiedBy" gorm:"type:uuid"`
	CreatedAt               time.Time                                `json:"createdAt"`
	UpdatedAt               time.Time                                `json:"updatedAt"`
}

// Schedule returns a copy of the stored availability schedule.
func (f *Facility) Schedule() *availability.Schedule {
	s := f.AvailabilitySchedule.Data().Clone()
	return &s
}

// SetSchedule replaces the stored schedule.
func (f *Facility) SetSchedule(s availability.Schedule) {
	f.AvailabilitySchedule = datatypes.NewJSONType(s)
}

// Location resolves the facility time zone, then fallback, then UTC.
func (f *Facility) Location(fallback string) *time.Location {
	for _, name := range []string{f.Timezone, fallback} {
		if name == "" {
			continue
		}
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	return time.UTC
}

// Effective resolves the open blocks of the local calendar day containing t.
func (f *Facility) Effective(t time.Time, fallbackTZ string) availability.Resolution {
	loc := f.Location(fallbackTZ)
	local := t.In(loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return availability.Effective(f.Schedule(), day)
}
