// Package memstore is an in-memory document store. Transactions read
// without holding the store lock and validate what they read at commit;
// a stale read aborts the commit with ErrConcurrentModification.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"stablehub/internal/access"
	"stablehub/internal/audit"
	"stablehub/internal/directory"
	"stablehub/internal/facilities"
	"stablehub/internal/reservations"

	"github.com/google/uuid"
)

type memberKey struct {
	stableID uuid.UUID
	userID   uuid.UUID
}

type Store struct {
	mu sync.RWMutex

	facilities map[uuid.UUID]*facilities.Facility
	// facilityVersions bumps whenever a facility or its reservation set changes.
	facilityVersions map[uuid.UUID]int64
	reservations     map[uuid.UUID]*reservations.Reservation
	members          map[memberKey]access.StableMember
	users            map[uuid.UUID]directory.UserProfile
	horses           map[uuid.UUID]directory.Horse
	auditEntries     []audit.Entry

	hookMu       sync.RWMutex
	beforeCommit func()
}

func New() *Store {
	return &Store{
		facilities:       make(map[uuid.UUID]*facilities.Facility),
		facilityVersions: make(map[uuid.UUID]int64),
		reservations:     make(map[uuid.UUID]*reservations.Reservation),
		members:          make(map[memberKey]access.StableMember),
		users:            make(map[uuid.UUID]directory.UserProfile),
		horses:           make(map[uuid.UUID]directory.Horse),
	}
}

// SetBeforeCommit installs a hook that runs after a transaction body
// succeeds and before its commit is validated.
func (s *Store) SetBeforeCommit(fn func()) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	s.beforeCommit = fn
}

func (s *Store) runBeforeCommit() {
	s.hookMu.RLock()
	fn := s.beforeCommit
	s.hookMu.RUnlock()
	if fn != nil {
		fn()
	}
}

func (s *Store) Facilities() facilities.Repository {
	return facilityRepo{s}
}

func (s *Store) Reservations() reservations.Repository {
	return reservationRepo{s}
}

func (s *Store) Members() access.MembershipRepository {
	return memberRepo{s}
}

func (s *Store) Directory() directory.Directory {
	return directoryRepo{s}
}

func (s *Store) AuditStore() audit.Store {
	return auditRepo{s}
}

// AddMember grants userID a role in stableID.
func (s *Store) AddMember(stableID, userID uuid.UUID, role access.MemberRole) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[memberKey{stableID, userID}] = access.StableMember{
		ID:        uuid.New(),
		StableID:  stableID,
		UserID:    userID,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
}

func (s *Store) AddUser(profile directory.UserProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[profile.ID] = profile
}

func (s *Store) AddHorse(horse directory.Horse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.horses[horse.ID] = horse
}

// AuditEntries returns a copy of the persisted audit trail.
func (s *Store) AuditEntries() []audit.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Entry(nil), s.auditEntries...)
}

func cloneFacility(f *facilities.Facility) *facilities.Facility {
	c := *f
	if f.MinTimeSlotDuration != nil {
		v := *f.MinTimeSlotDuration
		c.MinTimeSlotDuration = &v
	}
	c.SetSchedule(f.AvailabilitySchedule.Data().Clone())
	return &c
}

// memberRepo

type memberRepo struct{ s *Store }

func (r memberRepo) FindMembership(_ context.Context, stableID, userID uuid.UUID) (*access.StableMember, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	m, ok := r.s.members[memberKey{stableID, userID}]
	if !ok {
		return nil, access.ErrMembershipNotFound
	}
	return &m, nil
}

// directoryRepo

type directoryRepo struct{ s *Store }

func (r directoryRepo) UserProfile(_ context.Context, userID uuid.UUID) (directory.UserProfile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.users[userID]
	if !ok {
		return directory.UserProfile{}, directory.ErrNotFound
	}
	return p, nil
}

func (r directoryRepo) HorseNames(_ context.Context, horseIDs []uuid.UUID) (map[uuid.UUID]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	names := make(map[uuid.UUID]string, len(horseIDs))
	for _, id := range horseIDs {
		if h, ok := r.s.horses[id]; ok {
			names[id] = h.Name
		}
	}
	return names, nil
}

// auditRepo

type auditRepo struct{ s *Store }

func (r auditRepo) Save(_ context.Context, entry *audit.Entry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.auditEntries = append(r.s.auditEntries, *entry)
	return nil
}

// facilityRepo

type facilityRepo struct{ s *Store }

func (r facilityRepo) Create(_ context.Context, f *facilities.Facility) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	now := time.Now().UTC()
	if f.CreatedAt.IsZero() {
		f.CreatedAt = now
	}
	f.UpdatedAt = now
	r.s.facilities[f.ID] = cloneFacility(f)
	r.s.facilityVersions[f.ID]++
	return nil
}

func (r facilityRepo) GetByID(_ context.Context, id uuid.UUID) (*facilities.Facility, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	f, ok := r.s.facilities[id]
	if !ok {
		return nil, facilities.ErrFacilityNotFound
	}
	return cloneFacility(f), nil
}

func (r facilityRepo) ListByStable(_ context.Context, stableID uuid.UUID, filters facilities.ListFilters) ([]facilities.Facility, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	list := []facilities.Facility{}
	for _, f := range r.s.facilities {
		if f.StableID != stableID {
			continue
		}
		if filters.Type != "" && f.Type != filters.Type {
			continue
		}
		if filters.Status != "" && f.Status != filters.Status {
			continue
		}
		list = append(list, *cloneFacility(f))
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

func (r facilityRepo) Update(_ context.Context, f *facilities.Facility) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.facilities[f.ID]; !ok {
		return facilities.ErrFacilityNotFound
	}
	f.UpdatedAt = time.Now().UTC()
	r.s.facilities[f.ID] = cloneFacility(f)
	r.s.facilityVersions[f.ID]++
	return nil
}
