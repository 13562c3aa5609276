package audit

import (
	"context"
	"sync"
	"time"

	"stablehub/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const EntityReservation = "facility_reservation"

// Event describes one committed change worth keeping in the audit trail.
type Event struct {
	Action     string
	EntityType string
	EntityID   uuid.UUID
	StableID   uuid.UUID
	ActorID    uuid.UUID
	Details    map[string]interface{}
	OccurredAt time.Time
}

// Entry is the persisted form of an Event.
type Entry struct {
	ID         uuid.UUID         `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Action     string            `json:"action" gorm:"not null;index"`
	EntityType string            `json:"entityType" gorm:"not null"`
	EntityID   uuid.UUID         `json:"entityId" gorm:"type:uuid;not null;index"`
	StableID   uuid.UUID         `json:"stableId" gorm:"type:uuid;index"`
	ActorID    uuid.UUID         `json:"actorId" gorm:"type:uuid"`
	Details    datatypes.JSONMap `json:"details" gorm:"type:jsonb"`
	CreatedAt  time.Time         `json:"createdAt"`
}

func (Entry) TableName() string {
	return "audit_entries"
}

func newEntry(e Event) *Entry {
	return &Entry{
		ID:         uuid.New(),
		Action:     e.Action,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		StableID:   e.StableID,
		ActorID:    e.ActorID,
		Details:    datatypes.JSONMap(e.Details),
		CreatedAt:  e.OccurredAt,
	}
}

// Recorder accepts audit events. Record must not block the caller and
// never reports failure.
type Recorder interface {
	Record(ctx context.Context, event Event)
}

type Store interface {
	Save(ctx context.Context, entry *Entry) error
}

type gormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Save(ctx context.Context, entry *Entry) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

// AsyncRecorder persists events from a buffered channel on a single
// worker. Events are dropped with a warning when the buffer is full.
type AsyncRecorder struct {
	store   Store
	log     *logger.Logger
	events  chan Event
	done    chan struct{}
	once    sync.Once
	onError func(error)
}

func NewAsyncRecorder(store Store, bufferSize int, log *logger.Logger) *AsyncRecorder {
	if bufferSize < 1 {
		bufferSize = 1
	}
	if log == nil {
		log = logger.NewNop()
	}
	r := &AsyncRecorder{
		store:  store,
		log:    log,
		events: make(chan Event, bufferSize),
		done:   make(chan struct{}),
	}
	go r.run()
	return r
}

// OnError registers a callback for failed writes. Must be called before
// the first Record.
func (r *AsyncRecorder) OnError(fn func(error)) {
	r.onError = fn
}

func (r *AsyncRecorder) Record(_ context.Context, event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	defer func() {
		// Record after Close is a no-op.
		_ = recover()
	}()
	select {
	case r.events <- event:
	default:
		r.log.Warn("Audit buffer full, dropping event",
			"action", event.Action,
			"entity_id", event.EntityID.String(),
		)
	}
}

func (r *AsyncRecorder) run() {
	defer close(r.done)
	for event := range r.events {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := r.store.Save(ctx, newEntry(event)); err != nil {
			r.log.Error("Failed to write audit entry",
				"action", event.Action,
				"entity_id", event.EntityID.String(),
				"error", err.Error(),
			)
			if r.onError != nil {
				r.onError(err)
			}
		}
		cancel()
	}
}

// Close stops accepting events and waits until the buffer is drained.
func (r *AsyncRecorder) Close() {
	r.once.Do(func() {
		close(r.events)
	})
	<-r.done
}

// LogRecorder writes audit events to the structured log only.
type LogRecorder struct {
	log *logger.Logger
}

func NewLogRecorder(log *logger.Logger) *LogRecorder {
	return &LogRecorder{log: log}
}

func (r *LogRecorder) Record(ctx context.Context, event Event) {
	r.log.WithFields(event.Details).InfoWithContext(ctx, "Audit event", map[string]interface{}{
		"action":      event.Action,
		"entity_type": event.EntityType,
		"entity_id":   event.EntityID.String(),
		"stable_id":   event.StableID.String(),
		"actor_id":    event.ActorID.String(),
	})
}
