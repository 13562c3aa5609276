package reservations

import "time"

type CreateReservationRequest struct {
	FacilityID    string    `json:"facilityId" validate:"required,uuid"`
	HorseIDs      []string  `json:"horseIds" validate:"omitempty,dive,uuid"`
	StartTime     time.Time `json:"startTime" validate:"required"`
	EndTime       time.Time `json:"endTime" validate:"required"`
	Purpose       string    `json:"purpose" validate:"max=200"`
	Notes         string    `json:"notes" validate:"max=2000"`
	AdminOverride bool      `json:"adminOverride"`
}

// UpdateReservationRequest changes any subset of the placement fields. A
// nil HorseIDs keeps the current horses; an empty array is rejected.
type UpdateReservationRequest struct {
	FacilityID    *string    `json:"facilityId" validate:"omitempty,uuid"`
	HorseIDs      []string   `json:"horseIds" validate:"omitempty,dive,uuid"`
	StartTime     *time.Time `json:"startTime"`
	EndTime       *time.Time `json:"endTime"`
	Purpose       *string    `json:"purpose" validate:"omitempty,max=200"`
	Notes         *string    `json:"notes" validate:"omitempty,max=2000"`
	AdminOverride bool       `json:"adminOverride"`
}

type TransitionRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type ListReservationsRequest struct {
	FacilityID string `form:"facilityId" validate:"omitempty,uuid"`
	StableID   string `form:"stableId" validate:"omitempty,uuid"`
	UserID     string `form:"userId" validate:"omitempty,uuid"`
	Status     Status `form:"status" validate:"omitempty,oneof=pending confirmed cancelled rejected completed no_show"`
	StartDate  string `form:"startDate"`
	EndDate    string `form:"endDate"`
	Page       int    `form:"page" validate:"omitempty,min=1"`
	Limit      int    `form:"limit" validate:"omitempty,min=1,max=200"`
}

type CheckConflictsRequest struct {
	FacilityID           string    `json:"facilityId" validate:"required,uuid"`
	StartTime            time.Time `json:"startTime" validate:"required"`
	EndTime              time.Time `json:"endTime" validate:"required"`
	HorseCount           int       `json:"horseCount" validate:"min=0"`
	ExcludeReservationID string    `json:"excludeReservationId" validate:"omitempty,uuid"`
}
