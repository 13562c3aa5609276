package notifications

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventReservationCreated   EventType = "reservation.created"
	EventReservationUpdated   EventType = "reservation.updated"
	EventReservationConfirmed EventType = "reservation.confirmed"
	EventReservationRejected  EventType = "reservation.rejected"
	EventReservationCancelled EventType = "reservation.cancelled"
	EventReservationCompleted EventType = "reservation.completed"
	EventReservationNoShow    EventType = "reservation.no_show"
	EventReservationDeleted   EventType = "reservation.deleted"
)

// ReservationEvent is the payload published after a reservation change
// has committed.
type ReservationEvent struct {
	ID            uuid.UUID `json:"id"`
	Type          EventType `json:"type"`
	ReservationID uuid.UUID `json:"reservationId"`
	FacilityID    uuid.UUID `json:"facilityId"`
	StableID      uuid.UUID `json:"stableId"`
	UserID        uuid.UUID `json:"userId"`
	ActorID       uuid.UUID `json:"actorId"`
	Status        string    `json:"status"`
	StartTime     time.Time `json:"startTime"`
	EndTime       time.Time `json:"endTime"`
	HorseCount    int       `json:"horseCount"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// ToJSON converts the event to JSON bytes for Kafka
func (e *ReservationEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// PartitionKey keeps all events of one facility on one partition.
func (e *ReservationEvent) PartitionKey() string {
	return e.FacilityID.String()
}

// FromJSON creates an event from JSON bytes
func FromJSON(data []byte) (*ReservationEvent, error) {
	var event ReservationEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
