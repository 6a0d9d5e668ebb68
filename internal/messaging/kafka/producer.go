package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/restaurant/internal/domain"
)

// DefaultTopic используется, если топик не задан.
const DefaultTopic = "restaurant.order.events"

const headerEventType = "event_type"

// Producer публикует события заказов в Kafka.
type Producer struct {
	producer sarama.SyncProducer
	topic    string
	logger   *log.Entry
}

// NewProducer создаёт Kafka producer.
func NewProducer(brokers []string, topic string) (*Producer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1 // требование идемпотентного producer

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	return NewProducerWithClient(producer, topic), nil
}

// NewProducerWithClient оборачивает готовый sarama.SyncProducer. Пустой topic заменяется на DefaultTopic.
func NewProducerWithClient(producer sarama.SyncProducer, topic string) *Producer {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Producer{
		producer: producer,
		topic:    topic,
		logger:   log.WithField("component", "kafka-producer"),
	}
}

// PublishOrderEvent отправляет событие. Ключ сообщения равен id заказа,
// поэтому события одного заказа попадают в одну партицию.
func (p *Producer) PublishOrderEvent(ctx context.Context, event domain.OrderEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	key := strconv.FormatInt(int64(event.OrderID), 10)
	msg := &sarama.ProducerMessage{
		Topic:     p.topic,
		Key:       sarama.StringEncoder(key),
		Value:     sarama.ByteEncoder(payload),
		Timestamp: time.Now(),
		Headers: []sarama.RecordHeader{
			{Key: []byte(headerEventType), Value: []byte(event.Type)},
		},
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.logger.WithError(err).WithFields(log.Fields{
			"topic":      p.topic,
			"key":        key,
			"event_type": event.Type,
		}).Error("failed to send order event to kafka")
		return fmt.Errorf("failed to send message: %w", err)
	}

	p.logger.WithFields(log.Fields{
		"topic":      p.topic,
		"key":        key,
		"event_type": event.Type,
		"partition":  partition,
		"offset":     offset,
	}).Debug("order event sent to kafka")

	return nil
}

// Close закрывает producer
func (p *Producer) Close() error {
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka producer: %w", err)
	}
	return nil
}

var _ domain.EventPublisher = (*Producer)(nil)
