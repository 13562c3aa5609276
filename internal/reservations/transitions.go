package reservations

import (
	"context"
	"errors"

	"stablehub/internal/access"
	"stablehub/internal/notifications"
	"stablehub/internal/shared/apperror"
	"stablehub/internal/users"

	"github.com/google/uuid"
)

// systemActor performs scheduled transitions.
var systemActor = access.Actor{Role: users.RoleAdmin, DisplayName: "system"}

type transition struct {
	op         string
	to         Status
	event      notifications.EventType
	ownerMay   bool
	idempotent bool
}

var (
	approveTransition  = transition{op: opApprove, to: StatusConfirmed, event: notifications.EventReservationConfirmed}
	rejectTransition   = transition{op: opReject, to: StatusRejected, event: notifications.EventReservationRejected}
	cancelTransition   = transition{op: opCancel, to: StatusCancelled, event: notifications.EventReservationCancelled, ownerMay: true, idempotent: true}
	completeTransition = transition{op: opComplete, to: StatusCompleted, event: notifications.EventReservationCompleted}
	noShowTransition   = transition{op: opNoShow, to: StatusNoShow, event: notifications.EventReservationNoShow}
)

func (s *service) Approve(ctx context.Context, actor access.Actor, id uuid.UUID, note string) (*Reservation, error) {
	return s.transition(ctx, actor, id, approveTransition, note, true)
}

func (s *service) Reject(ctx context.Context, actor access.Actor, id uuid.UUID, reason string) (*Reservation, error) {
	return s.transition(ctx, actor, id, rejectTransition, reason, true)
}

// Cancel is idempotent: cancelling a cancelled reservation returns it
// unchanged.
func (s *service) Cancel(ctx context.Context, actor access.Actor, id uuid.UUID, reason string) (*Reservation, error) {
	return s.transition(ctx, actor, id, cancelTransition, reason, true)
}

func (s *service) Complete(ctx context.Context, actor access.Actor, id uuid.UUID) (*Reservation, error) {
	return s.transition(ctx, actor, id, completeTransition, "", true)
}

func (s *service) MarkNoShow(ctx context.Context, actor access.Actor, id uuid.UUID) (*Reservation, error) {
	return s.transition(ctx, actor, id, noShowTransition, "", true)
}

// Delete removes a reservation outright. Only stable managers may do this
// and no conflict logic applies.
func (s *service) Delete(ctx context.Context, actor access.Actor, id uuid.UUID) error {
	r, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := access.RequireStableManagement(ctx, s.authz, r.StableID, actor); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrReservationNotFound) {
			return apperror.NotFound("reservation not found")
		}
		return apperror.Infrastructure("failed to delete reservation", err)
	}

	s.log.LogReservationTransition(ctx, r.ID.String(), string(r.Status), "deleted", actor.ID.String())
	s.afterCommit(ctx, notifications.EventReservationDeleted, r, actor, map[string]interface{}{
		"previousStatus": string(r.Status),
	})
	return nil
}

func (s *service) CompleteFinished(ctx context.Context) (int, error) {
	const batchSize = 100

	finished, err := s.repo.ListFinished(ctx, s.now(), batchSize)
	if err != nil {
		return 0, apperror.Infrastructure("failed to list finished reservations", err)
	}

	completed := 0
	for _, r := range finished {
		if err := ctx.Err(); err != nil {
			return completed, err
		}
		_, err := s.transition(ctx, systemActor, r.ID, completeTransition, "", false)
		switch {
		case err == nil:
			completed++
		case apperror.Is(err, apperror.KindInvalidTransition), apperror.Is(err, apperror.KindNotFound):
			// changed since listing
		default:
			s.log.ErrorWithContext(ctx, "Failed to complete finished reservation", err, map[string]interface{}{
				"reservation_id": r.ID.String(),
			})
		}
	}
	return completed, nil
}

func (s *service) transition(ctx context.Context, actor access.Actor, id uuid.UUID, t transition, reason string, authorize bool) (*Reservation, error) {
	var (
		result  *Reservation
		from    Status
		changed bool
	)
	err := s.inTransaction(ctx, t.op, func(tx TxRepository) error {
		changed = false
		r, err := tx.LockReservation(ctx, id)
		if err != nil {
			return lockError(err)
		}
		if authorize {
			if err := s.authorizeTransition(ctx, r, actor, t); err != nil {
				return err
			}
		}
		if t.to == StatusCompleted && !authorize && r.EndTime.After(s.now()) {
			return apperror.New(apperror.KindInvalidTransition, "reservation has not finished yet")
		}
		if t.idempotent && r.Status == t.to {
			result = r
			return nil
		}
		if !r.Status.CanTransitionTo(t.to) {
			return apperror.Newf(apperror.KindInvalidTransition, "cannot move a %s reservation to %s", r.Status, t.to).
				WithDetail("from", r.Status).
				WithDetail("to", t.to)
		}

		now := s.now()
		from = r.Status
		r.Status = t.to
		r.LastModifiedBy = actor.ID
		r.UpdatedAt = now
		if reason != "" {
			r.StatusReason = reason
		}
		switch t.to {
		case StatusConfirmed, StatusRejected:
			reviewer := actor.ID
			r.ReviewedBy = &reviewer
			r.ReviewedAt = &now
		case StatusCancelled:
			r.CancelledAt = &now
		}

		if err := tx.Save(ctx, r); err != nil {
			if errors.Is(err, ErrConcurrentModification) {
				return err
			}
			return apperror.Infrastructure("failed to update reservation status", err)
		}
		result = r
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return result, nil
	}

	s.log.LogReservationTransition(ctx, result.ID.String(), string(from), string(result.Status), actor.ID.String())
	s.afterCommit(ctx, t.event, result, actor, map[string]interface{}{
		"from":   string(from),
		"to":     string(result.Status),
		"reason": reason,
	})
	return result, nil
}

func (s *service) authorizeTransition(ctx context.Context, r *Reservation, actor access.Actor, t transition) error {
	if t.ownerMay {
		return s.requireOwnerOrManager(ctx, r, actor)
	}
	return access.RequireStableManagement(ctx, s.authz, r.StableID, actor)
}
