package analytics

type ReportRequest struct {
	StableID   string `form:"stableId" validate:"required,uuid"`
	FacilityID string `form:"facilityId" validate:"omitempty,uuid"`
	StartDate  string `form:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate    string `form:"endDate" validate:"required,datetime=2006-01-02"`
}
