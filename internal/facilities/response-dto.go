package facilities

import (
	"time"

	"stablehub/internal/availability"
	"stablehub/internal/capacity"

	"github.com/google/uuid"
)

type DayReservation struct {
	ID     uuid.UUID `json:"id"`
	Start  time.Time `json:"startTime"`
	End    time.Time `json:"endTime"`
	Horses int       `json:"horses"`
}

// DayAvailabilityResponse is the UI view of one facility-local day.
type DayAvailabilityResponse struct {
	FacilityID    uuid.UUID                `json:"facilityId"`
	Date          string                   `json:"date"`
	Timezone      string                   `json:"timezone"`
	Source        availability.Source      `json:"source"`
	Closed        bool                     `json:"closed"`
	Blocks        []availability.TimeBlock `json:"blocks"`
	MaxConcurrent int                      `json:"maxConcurrent"`
	Reservations  []DayReservation         `json:"reservations"`
	PeakOccupancy int                      `json:"peakOccupancy"`
	PeakWindow    *capacity.Window         `json:"peakWindow,omitempty"`
}
