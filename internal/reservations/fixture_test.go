package reservations_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"stablehub/internal/access"
	"stablehub/internal/audit"
	"stablehub/internal/availability"
	"stablehub/internal/directory"
	"stablehub/internal/facilities"
	"stablehub/internal/notifications"
	"stablehub/internal/reservations"
	"stablehub/internal/shared/apperror"
	"stablehub/internal/shared/config"
	"stablehub/internal/shared/metrics"
	"stablehub/internal/store/memstore"
	"stablehub/internal/users"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// monday is 2025-03-03, a Monday.
func monday(hour, minute int) time.Time {
	return time.Date(2025, 3, 3, hour, minute, 0, 0, time.UTC)
}

type recordingPublisher struct {
	mu         sync.Mutex
	events     []notifications.ReservationEvent
	calls      int
	firstDelay time.Duration
}

func (p *recordingPublisher) Publish(_ context.Context, e notifications.ReservationEvent) error {
	p.mu.Lock()
	p.calls++
	delay := time.Duration(0)
	if p.calls == 1 {
		delay = p.firstDelay
	}
	p.mu.Unlock()
	time.Sleep(delay)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) Types() []notifications.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]notifications.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	t         *testing.T
	store     *memstore.Store
	svc       reservations.Service
	publisher *recordingPublisher
	auditor   *audit.AsyncRecorder
	metrics   *metrics.Recorder
	stableID  uuid.UUID
	member    access.Actor
	manager   access.Actor
	outsider  access.Actor
	admin     access.Actor
	horses    []uuid.UUID
	facility  *facilities.Facility
	now       time.Time
}

type fixtureOption func(*facilities.Facility)

func withMax(n int) fixtureOption {
	return func(f *facilities.Facility) { f.MaxHorsesPerReservation = n }
}

func withSchedule(s availability.Schedule) fixtureOption {
	return func(f *facilities.Facility) { f.SetSchedule(s) }
}

func withStatus(st facilities.Status) fixtureOption {
	return func(f *facilities.Facility) { f.Status = st }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	store := memstore.New()
	fx := &fixture{
		t:         t,
		store:     store,
		publisher: &recordingPublisher{},
		metrics:   metrics.New("test"),
		stableID:  uuid.New(),
		member:    access.Actor{ID: uuid.New(), Role: users.RoleUser, Email: "rider@example.com", DisplayName: "Rita Rider"},
		manager:   access.Actor{ID: uuid.New(), Role: users.RoleUser, Email: "manager@example.com", DisplayName: "Max Manager"},
		outsider:  access.Actor{ID: uuid.New(), Role: users.RoleUser, Email: "stranger@example.com"},
		admin:     access.Actor{ID: uuid.New(), Role: users.RoleAdmin, Email: "admin@example.com"},
		now:       monday(6, 0),
	}
	store.AddMember(fx.stableID, fx.member.ID, access.MemberRoleMember)
	store.AddMember(fx.stableID, fx.manager.ID, access.MemberRoleManager)
	store.AddUser(directory.UserProfile{ID: fx.member.ID, DisplayName: "Rita Rider", Email: "rider@example.com"})
	for _, name := range []string{"Bella", "Comet", "Dancer", "Echo"} {
		h := directory.Horse{ID: uuid.New(), StableID: fx.stableID, Name: name}
		store.AddHorse(h)
		fx.horses = append(fx.horses, h.ID)
	}

	weekly := availability.WeeklySchedule{"monday": {{StartTime: "09:00", EndTime: "17:00"}}}
	f := &facilities.Facility{
		StableID:                fx.stableID,
		Name:                    "Indoor arena",
		Type:                    facilities.TypeIndoorArena,
		Status:                  facilities.StatusActive,
		MaxHorsesPerReservation: 2,
		Timezone:                "UTC",
	}
	f.SetSchedule(availability.Schedule{Weekly: weekly})
	for _, opt := range opts {
		opt(f)
	}
	require.NoError(t, store.Facilities().Create(context.Background(), f))
	fx.facility = f

	fx.auditor = audit.NewAsyncRecorder(store.AuditStore(), 64, nil)
	t.Cleanup(fx.auditor.Close)

	fx.svc = reservations.NewService(store.Reservations(), store.Facilities(),
		access.NewMembershipAuthorizer(store.Members()),
		config.ReservationConfig{MaxTxRetries: 3, RetryBackoff: time.Millisecond, DefaultTimezone: "UTC"},
		reservations.Collaborators{
			Directory: store.Directory(),
			Audit:     fx.auditor,
			Publisher: fx.publisher,
			Metrics:   fx.metrics,
			Now:       func() time.Time { return fx.now },
		})
	return fx
}

func (fx *fixture) horseIDs(n int) []string {
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, fx.horses[i%len(fx.horses)].String())
	}
	return out
}

func (fx *fixture) request(start, end time.Time, horses int) reservations.CreateReservationRequest {
	return reservations.CreateReservationRequest{
		FacilityID: fx.facility.ID.String(),
		HorseIDs:   fx.horseIDs(horses),
		StartTime:  start,
		EndTime:    end,
	}
}

func (fx *fixture) mustCreate(actor access.Actor, start, end time.Time, horses int) *reservations.Reservation {
	fx.t.Helper()
	r, err := fx.svc.Create(context.Background(), actor, fx.request(start, end, horses))
	require.NoError(fx.t, err)
	return r
}

// pauseFirstCommits holds the first n commits until all n have arrived,
// so their transactions are guaranteed to have read the same state.
func (fx *fixture) pauseFirstCommits(n int) {
	var arrived sync.WaitGroup
	arrived.Add(n)
	var calls atomic.Int32
	fx.store.SetBeforeCommit(func() {
		if calls.Add(1) <= int32(n) {
			arrived.Done()
			arrived.Wait()
		}
	})
}

func requireKind(t *testing.T, err error, kind apperror.Kind) *apperror.Error {
	t.Helper()
	require.Error(t, err)
	appErr, ok := apperror.As(err)
	require.True(t, ok, "expected an application error, got %v", err)
	require.Equal(t, kind, appErr.Kind, appErr.Message)
	return appErr
}
