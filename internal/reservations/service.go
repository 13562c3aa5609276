package reservations

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"stablehub/internal/access"
	"stablehub/internal/audit"
	"stablehub/internal/availability"
	"stablehub/internal/capacity"
	"stablehub/internal/directory"
	"stablehub/internal/facilities"
	"stablehub/internal/notifications"
	"stablehub/internal/shared/apperror"
	"stablehub/internal/shared/config"
	"stablehub/internal/shared/metrics"
	"stablehub/pkg/cache"
	"stablehub/pkg/logger"

	"github.com/google/uuid"
)

const (
	opCreate   = "create"
	opUpdate   = "update"
	opApprove  = "approve"
	opReject   = "reject"
	opCancel   = "cancel"
	opComplete = "complete"
	opNoShow   = "no_show"
)

type Service interface {
	Create(ctx context.Context, actor access.Actor, req CreateReservationRequest) (*Reservation, error)
	Update(ctx context.Context, actor access.Actor, id uuid.UUID, req UpdateReservationRequest) (*Reservation, error)
	Approve(ctx context.Context, actor access.Actor, id uuid.UUID, note string) (*Reservation, error)
	Reject(ctx context.Context, actor access.Actor, id uuid.UUID, reason string) (*Reservation, error)
	Cancel(ctx context.Context, actor access.Actor, id uuid.UUID, reason string) (*Reservation, error)
	Complete(ctx context.Context, actor access.Actor, id uuid.UUID) (*Reservation, error)
	MarkNoShow(ctx context.Context, actor access.Actor, id uuid.UUID) (*Reservation, error)
	Delete(ctx context.Context, actor access.Actor, id uuid.UUID) error
	Get(ctx context.Context, actor access.Actor, id uuid.UUID) (*Reservation, error)
	List(ctx context.Context, actor access.Actor, req ListReservationsRequest) (*ReservationListResponse, error)
	CheckConflicts(ctx context.Context, actor access.Actor, req CheckConflictsRequest) (*ConflictCheckResponse, error)
	// CompleteFinished moves confirmed reservations whose end has passed
	// to completed and returns how many were moved.
	CompleteFinished(ctx context.Context) (int, error)
	// Drain blocks until in-flight post-commit side effects have finished.
	Drain()
}

// Collaborators are the optional dependencies of the reservation service.
// Nil members are skipped.
type Collaborators struct {
	Directory directory.Directory
	Audit     audit.Recorder
	Publisher notifications.Publisher
	Cache     cache.Service
	Metrics   *metrics.Recorder
	Logger    *logger.Logger
	Now       func() time.Time
}

type service struct {
	repo        Repository
	facilities  facilities.Repository
	authz       access.Authorizer
	cfg         config.ReservationConfig
	dir         directory.Directory
	audit       audit.Recorder
	publisher   notifications.Publisher
	cache       cache.Service
	metrics     *metrics.Recorder
	log         *logger.Logger
	now         func() time.Time
	sideEffects effectQueue
}

func NewService(repo Repository, facilityRepo facilities.Repository, authz access.Authorizer, cfg config.ReservationConfig, deps Collaborators) Service {
	s := &service{
		repo:       repo,
		facilities: facilityRepo,
		authz:      authz,
		cfg:        cfg,
		dir:        deps.Directory,
		audit:      deps.Audit,
		publisher:  deps.Publisher,
		cache:      deps.Cache,
		metrics:    deps.Metrics,
		log:        deps.Logger,
		now:        deps.Now,
	}
	if s.log == nil {
		s.log = logger.NewNop()
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.cfg.DefaultTimezone == "" {
		s.cfg.DefaultTimezone = "UTC"
	}
	return s
}

func (s *service) Create(ctx context.Context, actor access.Actor, req CreateReservationRequest) (*Reservation, error) {
	facilityID, err := uuid.Parse(req.FacilityID)
	if err != nil {
		return nil, apperror.Validation("facilityId must be a valid UUID")
	}
	horseIDs, err := parseHorseIDs(req.HorseIDs)
	if err != nil {
		return nil, err
	}
	if len(horseIDs) == 0 {
		return nil, errHorsesRequired()
	}
	if !req.EndTime.After(req.StartTime) {
		return nil, apperror.Validation("endTime must be after startTime")
	}

	snap := directory.TakeSnapshot(ctx, s.dir, s.log, actor.ID, horseIDs)

	var created *Reservation
	err = s.inTransaction(ctx, opCreate, func(tx TxRepository) error {
		admitted, err := s.admit(ctx, tx, actor, placement{
			facilityID: facilityID,
			start:      req.StartTime,
			end:        req.EndTime,
			horseIDs:   horseIDs,
			override:   req.AdminOverride,
		})
		if err != nil {
			return err
		}

		now := s.now()
		r := &Reservation{
			ID:             uuid.New(),
			FacilityID:     admitted.facility.ID,
			StableID:       admitted.facility.StableID,
			UserID:         actor.ID,
			HorseIDs:       horseIDs,
			StartTime:      req.StartTime.UTC(),
			EndTime:        req.EndTime.UTC(),
			Status:         StatusPending,
			Purpose:        req.Purpose,
			Notes:          req.Notes,
			AdminOverride:  admitted.overrideUsed,
			FacilityName:   admitted.facility.Name,
			FacilityType:   string(admitted.facility.Type),
			UserName:       snap.UserName,
			UserEmail:      snap.UserEmail,
			HorseNames:     snap.HorseNames,
			CreatedBy:      actor.ID,
			LastModifiedBy: actor.ID,
			Version:        1,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := tx.Create(ctx, r); err != nil {
			return apperror.Infrastructure("failed to create reservation", err)
		}
		created = r
		return nil
	})
	if err != nil {
		s.recordRejection(ctx, opCreate, facilityID, err)
		return nil, err
	}

	s.metrics.Admission(opCreate, "admitted")
	s.log.LogReservationCreated(ctx, created.ID.String(), created.FacilityID.String(), created.UserID.String())
	s.afterCommit(ctx, notifications.EventReservationCreated, created, actor, map[string]interface{}{
		"facilityId":    created.FacilityID.String(),
		"startTime":     created.StartTime,
		"endTime":       created.EndTime,
		"horseCount":    created.HorseCount(),
		"adminOverride": created.AdminOverride,
	})
	return created, nil
}

func (s *service) Update(ctx context.Context, actor access.Actor, id uuid.UUID, req UpdateReservationRequest) (*Reservation, error) {
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireOwnerOrManager(ctx, current, actor); err != nil {
		return nil, err
	}

	facilityID := current.FacilityID
	if req.FacilityID != nil {
		if facilityID, err = uuid.Parse(*req.FacilityID); err != nil {
			return nil, apperror.Validation("facilityId must be a valid UUID")
		}
	}
	var horseIDs []uuid.UUID
	if req.HorseIDs != nil {
		if horseIDs, err = parseHorseIDs(req.HorseIDs); err != nil {
			return nil, err
		}
		if len(horseIDs) == 0 {
			return nil, errHorsesRequired()
		}
	}
	replan := req.FacilityID != nil || req.StartTime != nil || req.EndTime != nil || req.HorseIDs != nil

	var snap directory.Snapshot
	if req.HorseIDs != nil {
		snap = directory.TakeSnapshot(ctx, s.dir, s.log, current.UserID, horseIDs)
	}

	var updated *Reservation
	err = s.inTransaction(ctx, opUpdate, func(tx TxRepository) error {
		r, err := tx.LockReservation(ctx, id)
		if err != nil {
			return lockError(err)
		}
		if !r.Status.IsActive() {
			return apperror.Newf(apperror.KindInvalidTransition, "cannot modify a %s reservation", r.Status).
				WithDetail("status", r.Status)
		}

		start, end := r.StartTime, r.EndTime
		if req.StartTime != nil {
			start = *req.StartTime
		}
		if req.EndTime != nil {
			end = *req.EndTime
		}
		horses := []uuid.UUID(r.HorseIDs)
		if req.HorseIDs != nil {
			horses = horseIDs
		}

		if replan {
			if !end.After(start) {
				return apperror.Validation("endTime must be after startTime")
			}
			admitted, err := s.admit(ctx, tx, actor, placement{
				facilityID: facilityID,
				start:      start,
				end:        end,
				horseIDs:   horses,
				override:   req.AdminOverride,
				excludeID:  r.ID,
			})
			if err != nil {
				return err
			}
			r.FacilityID = admitted.facility.ID
			r.StableID = admitted.facility.StableID
			r.FacilityName = admitted.facility.Name
			r.FacilityType = string(admitted.facility.Type)
			r.StartTime = start.UTC()
			r.EndTime = end.UTC()
			r.HorseIDs = horses
			r.AdminOverride = admitted.overrideUsed
			if req.HorseIDs != nil {
				r.HorseNames = snap.HorseNames
			}
		}
		if req.Purpose != nil {
			r.Purpose = *req.Purpose
		}
		if req.Notes != nil {
			r.Notes = *req.Notes
		}
		r.LastModifiedBy = actor.ID
		r.UpdatedAt = s.now()

		if err := tx.Save(ctx, r); err != nil {
			if errors.Is(err, ErrConcurrentModification) {
				return err
			}
			return apperror.Infrastructure("failed to update reservation", err)
		}
		updated = r
		return nil
	})
	if err != nil {
		s.recordRejection(ctx, opUpdate, facilityID, err)
		return nil, err
	}

	s.metrics.Admission(opUpdate, "admitted")
	s.log.LogReservationUpdated(ctx, updated.ID.String(), updated.FacilityID.String(), actor.ID.String())
	s.afterCommit(ctx, notifications.EventReservationUpdated, updated, actor, map[string]interface{}{
		"previousFacilityId": current.FacilityID.String(),
		"previousStartTime":  current.StartTime,
		"previousEndTime":    current.EndTime,
		"facilityId":         updated.FacilityID.String(),
		"startTime":          updated.StartTime,
		"endTime":            updated.EndTime,
		"horseCount":         updated.HorseCount(),
	})
	return updated, nil
}

type placement struct {
	facilityID uuid.UUID
	start      time.Time
	end        time.Time
	horseIDs   []uuid.UUID
	override   bool
	excludeID  uuid.UUID
}

type admission struct {
	facility     *facilities.Facility
	decision     capacity.Decision
	overrideUsed bool
}

// admit runs the admission checks for a placement inside tx: facility
// lock, stable access, facility status, availability, horse count and
// concurrent capacity, in that order.
func (s *service) admit(ctx context.Context, tx TxRepository, actor access.Actor, p placement) (*admission, error) {
	f, err := tx.LockFacility(ctx, p.facilityID)
	if err != nil {
		if errors.Is(err, facilities.ErrFacilityNotFound) {
			return nil, apperror.NotFound("facility not found")
		}
		return nil, apperror.Infrastructure("failed to load facility", err)
	}
	if err := access.RequireStableAccess(ctx, s.authz, f.StableID, actor); err != nil {
		return nil, err
	}
	if !f.Status.AcceptsReservations() {
		return nil, apperror.Newf(apperror.KindAvailabilityConflict, "facility is %s and does not accept reservations", f.Status).
			WithDetail("facilityStatus", f.Status)
	}

	result := &admission{facility: f}

	day, from, to, err := availability.ClockRange(p.start, p.end, f.Location(s.cfg.DefaultTimezone))
	if err != nil {
		return nil, apperror.Validation("reservation must start and end on the same facility-local day")
	}
	resolved := availability.Effective(f.Schedule(), day)
	containment, err := availability.Check(resolved.Blocks, from, to)
	if err != nil {
		return nil, apperror.Validation(err.Error())
	}
	if containment != availability.Contained {
		if !p.override {
			return nil, availabilityConflict(containment, resolved, from, to)
		}
		ok, err := s.authz.HasStableManagementAccess(ctx, f.StableID, actor)
		if err != nil {
			return nil, apperror.Infrastructure("failed to verify stable permissions", err)
		}
		if !ok {
			return nil, apperror.Forbidden("adminOverride requires stable management rights")
		}
		result.overrideUsed = true
	}

	horses := len(p.horseIDs)
	if horses == 0 {
		return nil, errHorsesRequired()
	}
	if horses > f.MaxHorsesPerReservation {
		return nil, apperror.Newf(apperror.KindTooManyHorses, "facility allows at most %d horses per reservation", f.MaxHorsesPerReservation).
			WithDetail("maxHorsesPerReservation", f.MaxHorsesPerReservation).
			WithDetail("horseCount", horses)
	}

	decision, err := capacity.NewValidator(CapacitySource(tx)).Validate(ctx, f.ID,
		capacity.Candidate{Start: p.start, End: p.end, Horses: horses},
		f.MaxHorsesPerReservation, p.excludeID)
	if err != nil {
		return nil, apperror.Infrastructure("failed to evaluate capacity", err)
	}
	s.metrics.PeakOccupancy(decision.PeakOccupancy, decision.MaxConcurrent)
	if !decision.Valid {
		return nil, capacityError(decision)
	}
	result.decision = decision
	return result, nil
}

func availabilityConflict(c availability.Containment, resolved availability.Resolution, from, to string) *apperror.Error {
	msg := fmt.Sprintf("facility is closed on %s", resolved.Date)
	if c == availability.OutsideHours {
		msg = fmt.Sprintf("%s-%s on %s is outside the facility's available hours", from, to, resolved.Date)
	}
	blocks := resolved.Blocks
	if blocks == nil {
		blocks = []availability.TimeBlock{}
	}
	return apperror.New(apperror.KindAvailabilityConflict, msg).
		WithDetail("reason", c.String()).
		WithDetail("date", resolved.Date).
		WithDetail("source", resolved.Source).
		WithDetail("effectiveBlocks", blocks)
}

func capacityError(d capacity.Decision) *apperror.Error {
	kind := apperror.KindCapacityExceeded
	switch d.Reason {
	case capacity.ReasonHorsesRequired:
		kind = apperror.KindHorsesRequired
	case capacity.ReasonTooManyHorses:
		kind = apperror.KindTooManyHorses
	case capacity.ReasonInvalidRange:
		kind = apperror.KindValidation
	}
	e := apperror.New(kind, d.Message).
		WithDetail("maxConcurrent", d.MaxConcurrent).
		WithDetail("peakOccupancy", d.PeakOccupancy)
	if d.ConflictWindow != nil {
		e.WithDetail("maxConcurrentTime", d.ConflictWindow.Start).
			WithDetail("conflictWindow", d.ConflictWindow)
	}
	if len(d.Conflicting) > 0 {
		e.WithDetail("conflictingReservations", d.Conflicting)
	}
	return e
}

// inTransaction runs fn in a transaction, retrying from scratch with a
// jittered backoff when it loses a race. Exhausted retries surface as an
// infrastructure error.
func (s *service) inTransaction(ctx context.Context, op string, fn func(tx TxRepository) error) error {
	attempts := s.cfg.MaxTxRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = s.repo.WithinTransaction(ctx, fn)
		if err == nil || !errors.Is(err, ErrConcurrentModification) || attempt == attempts {
			break
		}
		s.metrics.Retry(op)
		s.log.DebugWithContext(ctx, "Retrying reservation transaction", map[string]interface{}{
			"operation": op,
			"attempt":   attempt,
		})
		if werr := s.backoff(ctx, attempt); werr != nil {
			return apperror.Infrastructure("request cancelled while retrying", werr)
		}
	}

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrConcurrentModification):
		return apperror.Infrastructure(fmt.Sprintf("%s failed after %d attempts due to concurrent modifications", op, attempts), err)
	}
	if _, ok := apperror.As(err); ok {
		return err
	}
	return apperror.Infrastructure("reservation store error", err)
}

func (s *service) backoff(ctx context.Context, attempt int) error {
	base := s.cfg.RetryBackoff
	if base <= 0 {
		return ctx.Err()
	}
	delay := time.Duration(attempt)*base + time.Duration(rand.Int63n(int64(base)))
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *service) recordRejection(ctx context.Context, op string, facilityID uuid.UUID, err error) {
	kind := apperror.KindOf(err)
	s.metrics.Admission(op, string(kind))
	if kind == apperror.KindInfrastructure {
		s.log.ErrorWithContext(ctx, "Reservation write failed", err, map[string]interface{}{
			"operation":   op,
			"facility_id": facilityID.String(),
		})
		return
	}
	s.log.LogAdmissionRejected(ctx, op, facilityID.String(), string(kind), err.Error())
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*Reservation, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrReservationNotFound) {
			return nil, apperror.NotFound("reservation not found")
		}
		return nil, apperror.Infrastructure("failed to load reservation", err)
	}
	return r, nil
}

func lockError(err error) error {
	if errors.Is(err, ErrReservationNotFound) {
		return apperror.NotFound("reservation not found")
	}
	return apperror.Infrastructure("failed to load reservation", err)
}

// requireOwnerOrManager lets the requester act on their own reservation
// and stable managers act on any reservation of their stable.
func (s *service) requireOwnerOrManager(ctx context.Context, r *Reservation, actor access.Actor) error {
	if actor.ID != uuid.Nil && r.UserID == actor.ID {
		return nil
	}
	return access.RequireStableManagement(ctx, s.authz, r.StableID, actor)
}

func errHorsesRequired() *apperror.Error {
	return apperror.New(apperror.KindHorsesRequired, "at least one horse is required")
}

func parseHorseIDs(raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	seen := make(map[uuid.UUID]struct{}, len(raw))
	for _, v := range raw {
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, apperror.Validation(fmt.Sprintf("invalid horse id %q", v))
		}
		if _, dup := seen[id]; dup {
			return nil, apperror.Validation(fmt.Sprintf("horse %s is listed more than once", id))
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}
