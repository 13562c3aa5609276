package analytics

import (
	"time"

	"stablehub/internal/capacity"

	"github.com/google/uuid"
)

// Scope selects the reservations an analytics report covers: one stable,
// optionally one facility, and the half-open window [From, To).
type Scope struct {
	StableID   uuid.UUID
	FacilityID *uuid.UUID
	From       time.Time
	To         time.Time
}

// Booking is the projection of a reservation the aggregations need.
type Booking struct {
	ID         uuid.UUID `json:"id"`
	FacilityID uuid.UUID `json:"facilityId"`
	Status     string    `json:"status"`
	StartTime  time.Time `json:"startTime"`
	EndTime    time.Time `json:"endTime"`
	HorseCount int       `json:"horseCount"`
}

type Report struct {
	StableID               uuid.UUID             `json:"stableId"`
	FacilityID             *uuid.UUID            `json:"facilityId,omitempty"`
	StartDate              string                `json:"startDate"`
	EndDate                string                `json:"endDate"`
	TotalReservations      int                   `json:"totalReservations"`
	StatusCounts           map[string]int        `json:"statusCounts"`
	CancellationRate       float64               `json:"cancellationRate"`
	NoShowRate             float64               `json:"noShowRate"`
	TotalHorses            int                   `json:"totalHorses"`
	BookedHorseHours       float64               `json:"bookedHorseHours"`
	AverageDurationMinutes float64               `json:"averageDurationMinutes"`
	Facilities             []FacilityUtilization `json:"facilities"`
	HourlyStarts           []HourBucket          `json:"hourlyStarts"`
	PeakHour               *int                  `json:"peakHour,omitempty"`
	GeneratedAt            time.Time             `json:"generatedAt"`
}

// FacilityUtilization compares booked time against the open hours the
// availability schedule allowed over the report window.
type FacilityUtilization struct {
	FacilityID           uuid.UUID        `json:"facilityId"`
	Name                 string           `json:"name"`
	Type                 string           `json:"type"`
	Reservations         int              `json:"reservations"`
	BookedHours          float64          `json:"bookedHours"`
	OpenHours            float64          `json:"openHours"`
	UtilizationRate      float64          `json:"utilizationRate"`
	MaxConcurrent        int              `json:"maxConcurrent"`
	PeakConcurrentHorses int              `json:"peakConcurrentHorses"`
	PeakWindow           *capacity.Window `json:"peakWindow,omitempty"`
}

type HourBucket struct {
	Hour         int `json:"hour"`
	Reservations int `json:"reservations"`
}
