package reservations

import (
	"context"
	"sync"
	"time"

	"stablehub/internal/access"
	"stablehub/internal/audit"
	"stablehub/internal/notifications"
	"stablehub/internal/shared/constants"

	"github.com/google/uuid"
)

const sideEffectTimeout = 10 * time.Second

// afterCommit fires the post-commit side effects of a reservation change.
// Failures are logged and counted, never returned.
func (s *service) afterCommit(ctx context.Context, eventType notifications.EventType, r *Reservation, actor access.Actor, details map[string]interface{}) {
	snapshot := r.Clone()
	occurredAt := s.now()
	base := context.WithoutCancel(ctx)

	if s.audit != nil {
		s.audit.Record(base, audit.Event{
			Action:     string(eventType),
			EntityType: audit.EntityReservation,
			EntityID:   snapshot.ID,
			StableID:   snapshot.StableID,
			ActorID:    actor.ID,
			Details:    details,
			OccurredAt: occurredAt,
		})
	}

	if s.publisher == nil && s.cache == nil {
		return
	}

	event := notifications.ReservationEvent{
		ID:            uuid.New(),
		Type:          eventType,
		ReservationID: snapshot.ID,
		FacilityID:    snapshot.FacilityID,
		StableID:      snapshot.StableID,
		UserID:        snapshot.UserID,
		ActorID:       actor.ID,
		Status:        string(snapshot.Status),
		StartTime:     snapshot.StartTime,
		EndTime:       snapshot.EndTime,
		HorseCount:    snapshot.HorseCount(),
		OccurredAt:    occurredAt,
	}

	s.sideEffects.enqueue(func() {
		ctx, cancel := context.WithTimeout(base, sideEffectTimeout)
		defer cancel()

		if s.publisher != nil {
			if err := s.publisher.Publish(ctx, event); err != nil {
				s.metrics.SideEffectFailed("publish")
				s.log.WithError(err).Warn("Failed to publish reservation event",
					"reservation_id", event.ReservationID.String(),
					"type", event.Type,
				)
			}
		}
		if s.cache != nil {
			if err := s.cache.DeletePattern(ctx, constants.AnalyticsStablePattern(snapshot.StableID.String())); err != nil {
				s.metrics.SideEffectFailed("cache_invalidation")
				s.log.WithError(err).Warn("Failed to invalidate analytics cache",
					"stable_id", snapshot.StableID.String(),
				)
			}
		}
	})
}

// Drain blocks until every queued side effect has run. The queue stays
// usable afterwards.
func (s *service) Drain() {
	s.sideEffects.wait()
}

// effectQueue runs tasks one at a time in submission order. A single worker
// goroutine exists only while tasks are pending.
type effectQueue struct {
	mu      sync.Mutex
	tasks   []func()
	running bool
	pending sync.WaitGroup
}

func (q *effectQueue) enqueue(task func()) {
	q.pending.Add(1)
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, task)
	if !q.running {
		q.running = true
		go q.run()
	}
}

func (q *effectQueue) run() {
	for {
		q.mu.Lock()
		if len(q.tasks) == 0 {
			q.running = false
			q.mu.Unlock()
			return
		}
		task := q.tasks[0]
		q.tasks[0] = nil
		q.tasks = q.tasks[1:]
		q.mu.Unlock()

		task()
		q.pending.Done()
	}
}

func (q *effectQueue) wait() {
	q.pending.Wait()
}
