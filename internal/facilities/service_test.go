package facilities_test

import (
	"context"
	"testing"
	"time"

	"stablehub/internal/access"
	"stablehub/internal/availability"
	"stablehub/internal/facilities"
	"stablehub/internal/reservations"
	"stablehub/internal/shared/apperror"
	"stablehub/internal/store/memstore"
	"stablehub/internal/users"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

type facilityFixture struct {
	store    *memstore.Store
	svc      facilities.Service
	stableID uuid.UUID
	owner    access.Actor
	rider    access.Actor
	outsider access.Actor
}

func newFacilityFixture(t *testing.T) *facilityFixture {
	t.Helper()
	store := memstore.New()
	fx := &facilityFixture{
		store:    store,
		stableID: uuid.New(),
		owner:    access.Actor{ID: uuid.New(), Role: users.RoleUser},
		rider:    access.Actor{ID: uuid.New(), Role: users.RoleUser},
		outsider: access.Actor{ID: uuid.New(), Role: users.RoleUser},
	}
	store.AddMember(fx.stableID, fx.owner.ID, access.MemberRoleOwner)
	store.AddMember(fx.stableID, fx.rider.ID, access.MemberRoleMember)
	fx.svc = facilities.NewService(store.Facilities(), access.NewMembershipAuthorizer(store.Members()),
		reservations.CapacitySource(store.Reservations()), "Europe/Amsterdam")
	return fx
}

func (fx *facilityFixture) create(t *testing.T, req facilities.CreateFacilityRequest) *facilities.Facility {
	t.Helper()
	if req.StableID == "" {
		req.StableID = fx.stableID.String()
	}
	f, err := fx.svc.Create(context.Background(), fx.owner, req)
	require.NoError(t, err)
	return f
}

func (fx *facilityFixture) book(t *testing.T, f *facilities.Facility, start, end time.Time, horses int, status reservations.Status) {
	t.Helper()
	ids := make([]uuid.UUID, horses)
	for i := range ids {
		ids[i] = uuid.New()
	}
	err := fx.store.Reservations().WithinTransaction(context.Background(), func(tx reservations.TxRepository) error {
		return tx.Create(context.Background(), &reservations.Reservation{
			ID:         uuid.New(),
			FacilityID: f.ID,
			StableID:   f.StableID,
			UserID:     fx.rider.ID,
			HorseIDs:   datatypes.JSONSlice[uuid.UUID](ids),
			StartTime:  start,
			EndTime:    end,
			Status:     status,
		})
	})
	require.NoError(t, err)
}

func TestCreateFacilityDefaults(t *testing.T) {
	fx := newFacilityFixture(t)
	f := fx.create(t, facilities.CreateFacilityRequest{
		Name:                    "Lunging ring",
		Type:                    facilities.TypeRoundPen,
		MaxHorsesPerReservation: 1,
	})

	assert.Equal(t, facilities.StatusActive, f.Status)
	assert.Equal(t, "Europe/Amsterdam", f.Timezone)
	assert.False(t, f.Schedule().IsConfigured())
	assert.Equal(t, fx.owner.ID, f.CreatedBy)
}

func TestCreateFacilityRequiresManagement(t *testing.T) {
	fx := newFacilityFixture(t)
	ctx := context.Background()
	req := facilities.CreateFacilityRequest{
		StableID:                fx.stableID.String(),
		Name:                    "Walker",
		Type:                    facilities.TypeWalker,
		MaxHorsesPerReservation: 4,
	}

	_, err := fx.svc.Create(ctx, fx.rider, req)
	assert.True(t, apperror.Is(err, apperror.KindForbidden))

	_, err = fx.svc.Create(ctx, fx.outsider, req)
	assert.True(t, apperror.Is(err, apperror.KindForbidden))

	admin := access.Actor{ID: uuid.New(), Role: users.RoleAdmin}
	_, err = fx.svc.Create(ctx, admin, req)
	require.NoError(t, err)
}

func TestCreateFacilityRejectsBadSchedule(t *testing.T) {
	fx := newFacilityFixture(t)
	_, err := fx.svc.Create(context.Background(), fx.owner, facilities.CreateFacilityRequest{
		StableID:                fx.stableID.String(),
		Name:                    "Arena",
		Type:                    facilities.TypeArena,
		MaxHorsesPerReservation: 2,
		AvailabilitySchedule: &availability.Schedule{
			Weekly: availability.WeeklySchedule{"monday": {
				{StartTime: "09:00", EndTime: "12:00"},
				{StartTime: "11:00", EndTime: "13:00"},
			}},
		},
	})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestReplaceScheduleNormalizes(t *testing.T) {
	fx := newFacilityFixture(t)
	ctx := context.Background()
	f := fx.create(t, facilities.CreateFacilityRequest{Name: "Arena", Type: facilities.TypeArena, MaxHorsesPerReservation: 2})

	updated, err := fx.svc.ReplaceSchedule(ctx, fx.owner, f.ID, availability.Schedule{
		Weekly: availability.WeeklySchedule{"Tuesday": {
			{StartTime: "14:00", EndTime: "18:00"},
			{StartTime: "08:00", EndTime: "12:00"},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, []availability.TimeBlock{
		{StartTime: "08:00", EndTime: "12:00"},
		{StartTime: "14:00", EndTime: "18:00"},
	}, updated.Schedule().Weekly["tuesday"])

	stored, err := fx.svc.Get(ctx, fx.rider, f.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Schedule().Weekly["tuesday"], 2)

	_, err = fx.svc.ReplaceSchedule(ctx, fx.rider, f.ID, availability.Schedule{})
	assert.True(t, apperror.Is(err, apperror.KindForbidden))
}

func TestUpdateFacilityPartial(t *testing.T) {
	fx := newFacilityFixture(t)
	ctx := context.Background()
	f := fx.create(t, facilities.CreateFacilityRequest{Name: "Arena", Type: facilities.TypeArena, MaxHorsesPerReservation: 2})

	status := facilities.StatusMaintenance
	limit := 5
	updated, err := fx.svc.Update(ctx, fx.owner, f.ID, facilities.UpdateFacilityRequest{Status: &status, MaxHorsesPerReservation: &limit})
	require.NoError(t, err)
	assert.Equal(t, "Arena", updated.Name)
	assert.Equal(t, status, updated.Status)
	assert.Equal(t, 5, updated.MaxHorsesPerReservation)

	_, err = fx.svc.Update(ctx, fx.owner, uuid.New(), facilities.UpdateFacilityRequest{Status: &status})
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestListFacilitiesScopedToStable(t *testing.T) {
	fx := newFacilityFixture(t)
	ctx := context.Background()
	fx.create(t, facilities.CreateFacilityRequest{Name: "Walker", Type: facilities.TypeWalker, MaxHorsesPerReservation: 4})
	fx.create(t, facilities.CreateFacilityRequest{Name: "Arena", Type: facilities.TypeArena, MaxHorsesPerReservation: 2})

	list, err := fx.svc.List(ctx, fx.rider, facilities.ListFilters{StableID: fx.stableID.String()})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Arena", list[0].Name)

	walkers, err := fx.svc.List(ctx, fx.rider, facilities.ListFilters{StableID: fx.stableID.String(), Type: facilities.TypeWalker})
	require.NoError(t, err)
	assert.Len(t, walkers, 1)

	_, err = fx.svc.List(ctx, fx.outsider, facilities.ListFilters{StableID: fx.stableID.String()})
	assert.True(t, apperror.Is(err, apperror.KindForbidden))
}

func TestDayAvailability(t *testing.T) {
	fx := newFacilityFixture(t)
	ctx := context.Background()
	f := fx.create(t, facilities.CreateFacilityRequest{
		Name:                    "Arena",
		Type:                    facilities.TypeArena,
		MaxHorsesPerReservation: 3,
		Timezone:                "UTC",
		AvailabilitySchedule: &availability.Schedule{
			Weekly: availability.WeeklySchedule{"monday": {{StartTime: "09:00", EndTime: "17:00"}}},
			Overrides: []availability.DateOverride{
				{Date: "2025-03-10", Blocks: []availability.TimeBlock{}},
			},
		},
	})
	at := func(h, m int) time.Time { return time.Date(2025, 3, 3, h, m, 0, 0, time.UTC) }
	fx.book(t, f, at(10, 0), at(11, 0), 2, reservations.StatusConfirmed)
	fx.book(t, f, at(10, 30), at(12, 0), 1, reservations.StatusPending)
	fx.book(t, f, at(10, 30), at(12, 0), 3, reservations.StatusCancelled)

	view, err := fx.svc.DayAvailability(ctx, fx.rider, f.ID, "2025-03-03")
	require.NoError(t, err)
	assert.Equal(t, availability.SourceWeekly, view.Source)
	assert.False(t, view.Closed)
	assert.Len(t, view.Reservations, 2)
	assert.Equal(t, 3, view.PeakOccupancy)
	require.NotNil(t, view.PeakWindow)
	assert.Equal(t, at(10, 30), view.PeakWindow.Start)
	assert.Equal(t, at(11, 0), view.PeakWindow.End)

	closed, err := fx.svc.DayAvailability(ctx, fx.rider, f.ID, "2025-03-10")
	require.NoError(t, err)
	assert.True(t, closed.Closed)
	assert.Equal(t, availability.SourceOverride, closed.Source)
	assert.Empty(t, closed.Reservations)

	_, err = fx.svc.DayAvailability(ctx, fx.rider, f.ID, "03-03-2025")
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = fx.svc.DayAvailability(ctx, fx.outsider, f.ID, "2025-03-03")
	assert.True(t, apperror.Is(err, apperror.KindForbidden))
}
