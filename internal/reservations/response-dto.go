package reservations

import (
	"stablehub/internal/capacity"

	"github.com/google/uuid"
)

type ReservationListResponse struct {
	Reservations []Reservation `json:"reservations"`
	Total        int64         `json:"total"`
	Page         int           `json:"page"`
	Limit        int           `json:"limit"`
	TotalPages   int           `json:"totalPages"`
}

type TransitionResponse struct {
	Success bool      `json:"success"`
	ID      uuid.UUID `json:"id"`
	Status  Status    `json:"status"`
}

// ConflictCheckResponse previews a placement without admitting it.
type ConflictCheckResponse struct {
	HasConflicts        bool             `json:"hasConflicts"`
	Conflicts           []Reservation    `json:"conflicts"`
	MaxConcurrent       int              `json:"maxConcurrent"`
	PeakOccupancy       int              `json:"peakOccupancy"`
	PeakWindow          *capacity.Window `json:"peakWindow,omitempty"`
	WouldExceedCapacity bool             `json:"wouldExceedCapacity"`
}
