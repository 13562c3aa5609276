package memstore

import (
	"context"
	"sort"
	"time"

	"stablehub/internal/capacity"
	"stablehub/internal/facilities"
	"stablehub/internal/reservations"

	"github.com/google/uuid"
)

type reservationRepo struct{ s *Store }

func (r reservationRepo) GetByID(_ context.Context, id uuid.UUID) (*reservations.Reservation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	res, ok := r.s.reservations[id]
	if !ok {
		return nil, reservations.ErrReservationNotFound
	}
	return res.Clone(), nil
}

func (r reservationRepo) List(_ context.Context, q reservations.ListQuery) ([]reservations.Reservation, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var list []reservations.Reservation
	for _, res := range r.s.reservations {
		if matches(res, q) {
			list = append(list, *res.Clone())
		}
	}
	sortByStart(list)

	total := int64(len(list))
	if q.Limit > 0 {
		if q.Offset >= len(list) {
			return []reservations.Reservation{}, total, nil
		}
		end := q.Offset + q.Limit
		if end > len(list) {
			end = len(list)
		}
		list = list[q.Offset:end]
	}
	return list, total, nil
}

func (r reservationRepo) FindOverlapping(_ context.Context, facilityID uuid.UUID, start, end time.Time, excludeID uuid.UUID) ([]reservations.Reservation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.overlapping(facilityID, start, end, excludeID, nil), nil
}

func (r reservationRepo) ListFinished(_ context.Context, before time.Time, limit int) ([]reservations.Reservation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var list []reservations.Reservation
	for _, res := range r.s.reservations {
		if res.Status == reservations.StatusConfirmed && !res.EndTime.After(before) {
			list = append(list, *res.Clone())
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].EndTime.Before(list[j].EndTime) })
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (r reservationRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	res, ok := r.s.reservations[id]
	if !ok {
		return reservations.ErrReservationNotFound
	}
	delete(r.s.reservations, id)
	r.s.facilityVersions[res.FacilityID]++
	return nil
}

func (r reservationRepo) WithinTransaction(ctx context.Context, fn func(tx reservations.TxRepository) error) error {
	tx := &txRepo{
		s:            r.s,
		facilityRead: make(map[uuid.UUID]int64),
		reservRead:   make(map[uuid.UUID]int),
		saved:        make(map[uuid.UUID]*reservations.Reservation),
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(tx.created) == 0 && len(tx.saved) == 0 {
		return nil
	}
	r.s.runBeforeCommit()
	return tx.commit()
}

// overlapping must be called with s.mu held. pending overlays the writes
// of an open transaction.
func (s *Store) overlapping(facilityID uuid.UUID, start, end time.Time, excludeID uuid.UUID, pending *txRepo) []reservations.Reservation {
	view := make(map[uuid.UUID]*reservations.Reservation, len(s.reservations))
	for id, res := range s.reservations {
		view[id] = res
	}
	if pending != nil {
		for _, res := range pending.created {
			view[res.ID] = res
		}
		for id, res := range pending.saved {
			view[id] = res
		}
	}

	list := []reservations.Reservation{}
	for id, res := range view {
		if id == excludeID || res.FacilityID != facilityID || !res.Status.IsActive() {
			continue
		}
		if capacity.Overlaps(res.StartTime, res.EndTime, start, end) {
			list = append(list, *res.Clone())
		}
	}
	sortByStart(list)
	return list
}

type txRepo struct {
	s            *Store
	facilityRead map[uuid.UUID]int64
	reservRead   map[uuid.UUID]int
	created      []*reservations.Reservation
	saved        map[uuid.UUID]*reservations.Reservation
	// savedFrom records the facility each saved reservation was committed under.
	savedFrom map[uuid.UUID]uuid.UUID
}

func (t *txRepo) LockFacility(_ context.Context, id uuid.UUID) (*facilities.Facility, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	f, ok := t.s.facilities[id]
	if !ok {
		return nil, facilities.ErrFacilityNotFound
	}
	t.readFacility(id)
	return cloneFacility(f), nil
}

func (t *txRepo) LockReservation(_ context.Context, id uuid.UUID) (*reservations.Reservation, error) {
	if res, ok := t.saved[id]; ok {
		return res.Clone(), nil
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	res, ok := t.s.reservations[id]
	if !ok {
		return nil, reservations.ErrReservationNotFound
	}
	if _, seen := t.reservRead[id]; !seen {
		t.reservRead[id] = res.Version
	}
	return res.Clone(), nil
}

func (t *txRepo) FindOverlapping(_ context.Context, facilityID uuid.UUID, start, end time.Time, excludeID uuid.UUID) ([]reservations.Reservation, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	t.readFacility(facilityID)
	return t.s.overlapping(facilityID, start, end, excludeID, t), nil
}

func (t *txRepo) Create(_ context.Context, r *reservations.Reservation) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Version == 0 {
		r.Version = 1
	}
	t.created = append(t.created, r.Clone())
	return nil
}

func (t *txRepo) Save(_ context.Context, r *reservations.Reservation) error {
	t.s.mu.RLock()
	current, ok := t.s.reservations[r.ID]
	t.s.mu.RUnlock()
	if !ok {
		return reservations.ErrReservationNotFound
	}
	if _, seen := t.reservRead[r.ID]; !seen {
		t.reservRead[r.ID] = r.Version
	}
	if t.savedFrom == nil {
		t.savedFrom = make(map[uuid.UUID]uuid.UUID)
	}
	if _, seen := t.savedFrom[r.ID]; !seen {
		t.savedFrom[r.ID] = current.FacilityID
	}
	r.Version++
	t.saved[r.ID] = r.Clone()
	return nil
}

// readFacility must be called with s.mu held.
func (t *txRepo) readFacility(id uuid.UUID) {
	if _, seen := t.facilityRead[id]; !seen {
		t.facilityRead[id] = t.s.facilityVersions[id]
	}
}

func (t *txRepo) commit() error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	for id, version := range t.facilityRead {
		if t.s.facilityVersions[id] != version {
			return reservations.ErrConcurrentModification
		}
	}
	for id, version := range t.reservRead {
		current, ok := t.s.reservations[id]
		if !ok || current.Version != version {
			return reservations.ErrConcurrentModification
		}
	}

	for _, res := range t.created {
		t.s.reservations[res.ID] = res
		t.s.facilityVersions[res.FacilityID]++
	}
	for id, res := range t.saved {
		t.s.reservations[id] = res
		t.s.facilityVersions[res.FacilityID]++
		if from := t.savedFrom[id]; from != res.FacilityID {
			t.s.facilityVersions[from]++
		}
	}
	return nil
}

func matches(res *reservations.Reservation, q reservations.ListQuery) bool {
	if q.FacilityID != nil && res.FacilityID != *q.FacilityID {
		return false
	}
	if q.StableID != nil && res.StableID != *q.StableID {
		return false
	}
	if q.UserID != nil && res.UserID != *q.UserID {
		return false
	}
	if len(q.Statuses) > 0 {
		found := false
		for _, st := range q.Statuses {
			if res.Status == st {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if q.From != nil && !res.EndTime.After(*q.From) {
		return false
	}
	if q.To != nil && !res.StartTime.Before(*q.To) {
		return false
	}
	return true
}

func sortByStart(list []reservations.Reservation) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].StartTime.Equal(list[j].StartTime) {
			return list[i].ID.String() < list[j].ID.String()
		}
		return list[i].StartTime.Before(list[j].StartTime)
	})
}
