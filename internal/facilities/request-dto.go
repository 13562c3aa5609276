package facilities

import "stablehub/internal/availability"

type CreateFacilityRequest struct {
	StableID                string                 `json:"stableId" validate:"required,uuid"`
	Name                    string                 `json:"name" validate:"required,min=2,max=120"`
	Type                    Type                   `json:"type" validate:"required,oneof=arena indoor_arena round_pen treadmill walker paddock wash_bay solarium other"`
	Status                  Status                 `json:"status" validate:"omitempty,oneof=active inactive maintenance"`
	Description             string                 `json:"description" validate:"max=1000"`
	MaxHorsesPerReservation int                    `json:"maxHorsesPerReservation" validate:"required,min=1,max=100"`
	MinTimeSlotDuration     *int                   `json:"minTimeSlotDuration" validate:"omitempty,min=5,max=1440"`
	Timezone                string                 `json:"timezone" validate:"omitempty,timezone"`
	AvailabilitySchedule    *availability.Schedule `json:"availabilitySchedule"`
}

type UpdateFacilityRequest struct {
	Name                    *string `json:"name" validate:"omitempty,min=2,max=120"`
	Type                    *Type   `json:"type" validate:"omitempty,oneof=arena indoor_arena round_pen treadmill walker paddock wash_bay solarium other"`
	Status                  *Status `json:"status" validate:"omitempty,oneof=active inactive maintenance"`
	Description             *string `json:"description" validate:"omitempty,max=1000"`
	MaxHorsesPerReservation *int    `json:"maxHorsesPerReservation" validate:"omitempty,min=1,max=100"`
	MinTimeSlotDuration     *int    `json:"minTimeSlotDuration" validate:"omitempty,min=5,max=1440"`
	Timezone                *string `json:"timezone" validate:"omitempty,timezone"`
}

type ListFilters struct {
	StableID string `form:"stableId" validate:"required,uuid"`
	Type     Type   `form:"type" validate:"omitempty,oneof=arena indoor_arena round_pen treadmill walker paddock wash_bay solarium other"`
	Status   Status `form:"status" validate:"omitempty,oneof=active inactive maintenance"`
}
