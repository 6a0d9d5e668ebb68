package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/restaurant/internal/domain"
)

func sampleCreatedEvent() domain.OrderEvent {
	order := domain.Order{
		ID:          42,
		TableNumber: 0,
		ItemName:    "poutine",
		ReadyAt:     time.Date(2024, 7, 10, 0, 12, 0, 0, time.UTC),
	}
	return domain.NewOrderCreatedEvent("evt-1", order, time.Date(2024, 7, 10, 0, 0, 0, 0, time.UTC))
}

func TestProducer_PublishOrderEvent(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	producer := NewProducerWithClient(mockProducer, "")

	mockProducer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		assert.Equal(t, DefaultTopic, msg.Topic)

		key, err := msg.Key.Encode()
		require.NoError(t, err)
		assert.Equal(t, "42", string(key))

		require.Len(t, msg.Headers, 1)
		assert.Equal(t, "order.created", string(msg.Headers[0].Value))

		value, err := msg.Value.Encode()
		require.NoError(t, err)
		var decoded map[string]any
		require.NoError(t, json.Unmarshal(value, &decoded))
		assert.Equal(t, "evt-1", decoded["event_id"])
		assert.Equal(t, float64(0), decoded["table_number"])
		return nil
	})

	require.NoError(t, producer.PublishOrderEvent(context.Background(), sampleCreatedEvent()))
	require.NoError(t, producer.Close())
}

func TestProducer_PublishOrderEvent_Error(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	producer := NewProducerWithClient(mockProducer, "custom.topic")

	mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	err := producer.PublishOrderEvent(context.Background(), domain.NewOrderDeletedEvent("evt-2", 7, time.Now()))
	require.Error(t, err)
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)

	require.NoError(t, producer.Close())
}

func TestProducer_PublishOrderEvent_CanceledContext(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	producer := NewProducerWithClient(mockProducer, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := producer.PublishOrderEvent(ctx, sampleCreatedEvent())
	assert.ErrorIs(t, err, context.Canceled)

	require.NoError(t, producer.Close())
}
