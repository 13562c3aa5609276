package reservations

import (
	"time"

	"stablehub/internal/capacity"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusRejected  Status = "rejected"
	StatusCompleted Status = "completed"
	StatusNoShow    Status = "no_show"
)

// ActiveStatuses are the statuses that consume facility capacity.
var ActiveStatuses = []Status{StatusPending, StatusConfirmed}

var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusRejected, StatusCancelled},
	StatusConfirmed: {StatusCancelled, StatusCompleted, StatusNoShow},
}

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusRejected, StatusCompleted, StatusNoShow:
		return true
	}
	return false
}

// IsActive reports whether the reservation occupies capacity.
func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusConfirmed
}

func (s Status) IsTerminal() bool {
	return s.IsValid() && !s.IsActive()
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Reservation is a time-bounded booking of a facility for a set of horses.
// The snapshot fields are advisory copies taken at write time.
type Reservation struct {
	ID             uuid.UUID                      `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	FacilityID     uuid.UUID                      `json:"facilityId" gorm:"type:uuid;not null;index:idx_reservation_facility_window,priority:1"`
	StableID       uuid.UUID                      `json:"stableId" gorm:"type:uuid;not null;index"`
	UserID         uuid.UUID                      `json:"userId" gorm:"type:uuid;not null;index"`
	HorseIDs       datatypes.JSONSlice[uuid.UUID] `json:"horseIds" gorm:"type:jsonb;not null"`
	StartTime      time.Time                      `json:"startTime" gorm:"not null;index:idx_reservation_facility_window,priority:2"`
	EndTime        time.Time                      `json:"endTime" gorm:"not null;index:idx_reservation_facility_window,priority:3"`
	Status         Status                         `json:"status" gorm:"not null;default:'pending';index"`
	Purpose        string                         `json:"purpose,omitempty"`
	Notes          string                         `json:"notes,omitempty"`
	StatusReason   string                         `json:"statusReason,omitempty"`
	AdminOverride  bool                           `json:"adminOverride" gorm:"not null;default:false"`
	FacilityName   string                         `json:"facilityName"`
	FacilityType   string                         `json:"facilityType"`
	UserName       string                         `json:"userName"`
	UserEmail      string                         `json:"userEmail"`
	HorseNames     datatypes.JSONSlice[string]    `json:"horseNames" gorm:"type:jsonb"`
	CreatedBy      uuid.UUID                      `json:"createdBy" gorm:"type:uuid"`
	LastModifiedBy uuid.UUID                      `json:"lastModifiedBy" gorm:"type:uuid"`
	ReviewedBy     *uuid.UUID                     `json:"reviewedBy,omitempty" gorm:"type:uuid"`
	ReviewedAt     *time.Time                     `json:"reviewedAt,omitempty"`
	CancelledAt    *time.Time                     `json:"cancelledAt,omitempty"`
	Version        int                            `json:"version" gorm:"not null;default:1"`
	CreatedAt      time.Time                      `json:"createdAt"`
	UpdatedAt      time.Time                      `json:"updatedAt"`
}

func (Reservation) TableName() string {
	return "facility_reservations"
}

func (r *Reservation) HorseCount() int {
	return len(r.HorseIDs)
}

// Interval is the capacity view of the reservation.
func (r *Reservation) Interval() capacity.Interval {
	return capacity.Interval{ID: r.ID, Start: r.StartTime, End: r.EndTime, Horses: r.HorseCount()}
}

// Clone returns a deep copy.
func (r *Reservation) Clone() *Reservation {
	c := *r
	c.HorseIDs = append(datatypes.JSONSlice[uuid.UUID](nil), r.HorseIDs...)
	c.HorseNames = append(datatypes.JSONSlice[string](nil), r.HorseNames...)
	if r.ReviewedBy != nil {
		v := *r.ReviewedBy
		c.ReviewedBy = &v
	}
	if r.ReviewedAt != nil {
		v := *r.ReviewedAt
		c.ReviewedAt = &v
	}
	if r.CancelledAt != nil {
		v := *r.CancelledAt
		c.CancelledAt = &v
	}
	return &c
}

func intervals(list []Reservation) []capacity.Interval {
	out := make([]capacity.Interval, 0, len(list))
	for i := range list {
		out = append(out, list[i].Interval())
	}
	return out
}
