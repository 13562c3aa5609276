package memstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"stablehub/internal/access"
	"stablehub/internal/availability"
	"stablehub/internal/directory"
	"stablehub/internal/facilities"
	"stablehub/internal/reservations"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedFacility(t *testing.T, s *Store) *facilities.Facility {
	t.Helper()
	f := &facilities.Facility{
		StableID:                uuid.New(),
		Name:                    "Indoor arena",
		Type:                    facilities.TypeIndoorArena,
		Status:                  facilities.StatusActive,
		MaxHorsesPerReservation: 4,
		Timezone:                "UTC",
	}
	f.SetSchedule(availability.DefaultSchedule())
	require.NoError(t, s.Facilities().Create(context.Background(), f))
	return f
}

func newReservation(f *facilities.Facility, start time.Time) *reservations.Reservation {
	return &reservations.Reservation{
		ID:         uuid.New(),
		FacilityID: f.ID,
		StableID:   f.StableID,
		UserID:     uuid.New(),
		HorseIDs:   []uuid.UUID{uuid.New()},
		StartTime:  start,
		EndTime:    start.Add(time.Hour),
		Status:     reservations.StatusPending,
	}
}

func TestTransactionCommitsCreates(t *testing.T) {
	s := New()
	f := seedFacility(t, s)
	ctx := context.Background()
	start := time.Date(2025, 5, 5, 10, 0, 0, 0, time.UTC)

	r := newReservation(f, start)
	err := s.Reservations().WithinTransaction(ctx, func(tx reservations.TxRepository) error {
		_, err := tx.LockFacility(ctx, f.ID)
		require.NoError(t, err)
		return tx.Create(ctx, r)
	})
	require.NoError(t, err)

	got, err := s.Reservations().GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Version)

	overlap, err := s.Reservations().FindOverlapping(ctx, f.ID, start.Add(30*time.Minute), start.Add(2*time.Hour), uuid.Nil)
	require.NoError(t, err)
	assert.Len(t, overlap, 1)
}

func TestStaleFacilityReadAbortsCommit(t *testing.T) {
	s := New()
	f := seedFacility(t, s)
	ctx := context.Background()
	repo := s.Reservations()
	start := time.Date(2025, 5, 5, 10, 0, 0, 0, time.UTC)

	err := repo.WithinTransaction(ctx, func(outer reservations.TxRepository) error {
		_, err := outer.FindOverlapping(ctx, f.ID, start, start.Add(time.Hour), uuid.Nil)
		require.NoError(t, err)

		// A competing transaction commits in between.
		require.NoError(t, repo.WithinTransaction(ctx, func(inner reservations.TxRepository) error {
			_, err := inner.FindOverlapping(ctx, f.ID, start, start.Add(time.Hour), uuid.Nil)
			require.NoError(t, err)
			return inner.Create(ctx, newReservation(f, start))
		}))

		return outer.Create(ctx, newReservation(f, start))
	})
	assert.ErrorIs(t, err, reservations.ErrConcurrentModification)

	all, total, err := repo.List(ctx, reservations.ListQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, all, 1)
}

func TestSaveRequiresCurrentVersion(t *testing.T) {
	s := New()
	f := seedFacility(t, s)
	ctx := context.Background()
	repo := s.Reservations()
	r := newReservation(f, time.Date(2025, 5, 5, 10, 0, 0, 0, time.UTC))
	require.NoError(t, repo.WithinTransaction(ctx, func(tx reservations.TxRepository) error {
		return tx.Create(ctx, r)
	}))

	err := repo.WithinTransaction(ctx, func(outer reservations.TxRepository) error {
		locked, err := outer.LockReservation(ctx, r.ID)
		require.NoError(t, err)

		require.NoError(t, repo.WithinTransaction(ctx, func(inner reservations.TxRepository) error {
			other, err := inner.LockReservation(ctx, r.ID)
			require.NoError(t, err)
			other.Notes = "first"
			return inner.Save(ctx, other)
		}))

		locked.Notes = "second"
		return outer.Save(ctx, locked)
	})
	assert.ErrorIs(t, err, reservations.ErrConcurrentModification)

	got, err := repo.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", got.Notes)
	assert.Equal(t, 2, got.Version)
}

func TestFailedBodyWritesNothing(t *testing.T) {
	s := New()
	f := seedFacility(t, s)
	ctx := context.Background()
	r := newReservation(f, time.Date(2025, 5, 5, 10, 0, 0, 0, time.UTC))

	err := s.Reservations().WithinTransaction(ctx, func(tx reservations.TxRepository) error {
		require.NoError(t, tx.Create(ctx, r))
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	_, err = s.Reservations().GetByID(ctx, r.ID)
	assert.ErrorIs(t, err, reservations.ErrReservationNotFound)
}

func TestListFiltersAndPaginates(t *testing.T) {
	s := New()
	f := seedFacility(t, s)
	ctx := context.Background()
	base := time.Date(2025, 5, 5, 8, 0, 0, 0, time.UTC)

	require.NoError(t, s.Reservations().WithinTransaction(ctx, func(tx reservations.TxRepository) error {
		for i := 0; i < 5; i++ {
			r := newReservation(f, base.Add(time.Duration(i)*time.Hour))
			if i == 4 {
				r.Status = reservations.StatusCancelled
			}
			if err := tx.Create(ctx, r); err != nil {
				return err
			}
		}
		return nil
	}))

	active, total, err := s.Reservations().List(ctx, reservations.ListQuery{
		FacilityID: &f.ID,
		Statuses:   reservations.ActiveStatuses,
		Limit:      2,
		Offset:     2,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	require.Len(t, active, 2)
	assert.Equal(t, base.Add(2*time.Hour), active[0].StartTime)

	from := base.Add(90 * time.Minute)
	to := base.Add(3 * time.Hour)
	window, _, err := s.Reservations().List(ctx, reservations.ListQuery{From: &from, To: &to})
	require.NoError(t, err)
	assert.Len(t, window, 2)
}

func TestFacilityCopiesAreIsolated(t *testing.T) {
	s := New()
	f := seedFacility(t, s)
	ctx := context.Background()

	got, err := s.Facilities().GetByID(ctx, f.ID)
	require.NoError(t, err)
	got.AvailabilitySchedule.Data().Weekly["monday"][0].StartTime = "00:00"
	got.AvailabilitySchedule.Data().Weekly["sunday"] = nil

	again, err := s.Facilities().GetByID(ctx, f.ID)
	require.NoError(t, err)
	weekly := again.AvailabilitySchedule.Data().Weekly
	assert.Equal(t, "08:00", weekly["monday"][0].StartTime)
	assert.Len(t, weekly["sunday"], 1)
}

func TestConcurrentFacilityReads(t *testing.T) {
	s := New()
	f := seedFacility(t, s)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				got, err := s.Facilities().GetByID(ctx, f.ID)
				if !assert.NoError(t, err) {
					return
				}
				got.AvailabilitySchedule.Data().Weekly["monday"][0].EndTime = "23:00"
			}
		}()
	}
	wg.Wait()

	got, err := s.Facilities().GetByID(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, "20:00", got.AvailabilitySchedule.Data().Weekly["monday"][0].EndTime)
}

func TestMembershipAndDirectory(t *testing.T) {
	s := New()
	ctx := context.Background()
	stableID, userID := uuid.New(), uuid.New()
	s.AddMember(stableID, userID, access.MemberRoleManager)
	s.AddUser(directory.UserProfile{ID: userID, DisplayName: "Ann Rider", Email: "ann@example.com"})
	horseID := uuid.New()
	s.AddHorse(directory.Horse{ID: horseID, StableID: stableID, Name: "Bella"})

	m, err := s.Members().FindMembership(ctx, stableID, userID)
	require.NoError(t, err)
	assert.Equal(t, access.MemberRoleManager, m.Role)

	_, err = s.Members().FindMembership(ctx, stableID, uuid.New())
	assert.ErrorIs(t, err, access.ErrMembershipNotFound)

	names, err := s.Directory().HorseNames(ctx, []uuid.UUID{horseID, uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, map[uuid.UUID]string{horseID: "Bella"}, names)

	_, err = s.Directory().UserProfile(ctx, uuid.New())
	assert.ErrorIs(t, err, directory.ErrNotFound)
}
