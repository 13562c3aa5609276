package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEvent() ReservationEvent {
	return ReservationEvent{
		ID:            uuid.New(),
		Type:          EventReservationCreated,
		ReservationID: uuid.New(),
		FacilityID:    uuid.New(),
		StableID:      uuid.New(),
		UserID:        uuid.New(),
		Status:        "pending",
		StartTime:     time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC),
		EndTime:       time.Date(2025, 3, 3, 11, 0, 0, 0, time.UTC),
		HorseCount:    2,
		OccurredAt:    time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestKafkaPublisherSendsEncodedEvent(t *testing.T) {
	cfg := mocks.NewTestConfig()
	cfg.Producer.Return.Successes = true
	producer := mocks.NewSyncProducer(t, cfg)

	event := sampleEvent()
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		decoded, err := FromJSON(val)
		if err != nil {
			return err
		}
		assert.Equal(t, event.ReservationID, decoded.ReservationID)
		assert.Equal(t, EventReservationCreated, decoded.Type)
		assert.Equal(t, 2, decoded.HorseCount)
		return nil
	})

	publisher := NewKafkaPublisherWithProducer(producer, "facility-reservations", nil)
	require.NoError(t, publisher.Publish(context.Background(), event))
	require.NoError(t, publisher.Close())
}

func TestKafkaPublisherReturnsSendError(t *testing.T) {
	cfg := mocks.NewTestConfig()
	cfg.Producer.Return.Successes = true
	producer := mocks.NewSyncProducer(t, cfg)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	publisher := NewKafkaPublisherWithProducer(producer, "facility-reservations", nil)
	err := publisher.Publish(context.Background(), sampleEvent())
	require.Error(t, err)
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, publisher.Close())
}

func TestKafkaPublisherHonoursCancelledContext(t *testing.T) {
	cfg := mocks.NewTestConfig()
	producer := mocks.NewSyncProducer(t, cfg)
	publisher := NewKafkaPublisherWithProducer(producer, "facility-reservations", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, publisher.Publish(ctx, sampleEvent()), context.Canceled)
	require.NoError(t, publisher.Close())
}

func TestPartitionKeyIsFacility(t *testing.T) {
	event := sampleEvent()
	assert.Equal(t, event.FacilityID.String(), event.PartitionKey())
}
