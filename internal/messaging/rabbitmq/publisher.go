package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/restaurant/internal/domain"
)

// DefaultExchange используется, если exchange не задан.
const DefaultExchange = "restaurant.orders"

var errPublishNack = errors.New("publish NACK from broker")

// channel — подмножество *amqp.Channel, которое использует publisher.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// connection: подмножество *amqp.Connection.
type connection interface {
	IsClosed() bool
	Close() error
}

// Publisher публикует события заказов в topic exchange.
// Routing key совпадает с типом события (order.created, order.deleted).
type Publisher struct {
	conn     connection
	ch       channel
	acks     <-chan amqp.Confirmation
	exchange string
	logger   *log.Entry

	mu sync.Mutex // publisher confirms требуют последовательной публикации
}

// Dial подключается к брокеру, объявляет exchange и включает publisher confirms.
func Dial(url, exchange string) (*Publisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("enable publisher confirms: %w", err)
	}
	acks := ch.NotifyPublish(make(chan amqp.Confirmation, 1))

	return newPublisher(conn, ch, acks, exchange), nil
}

func newPublisher(conn connection, ch channel, acks <-chan amqp.Confirmation, exchange string) *Publisher {
	return &Publisher{
		conn:     conn,
		ch:       ch,
		acks:     acks,
		exchange: exchange,
		logger:   log.WithField("component", "rabbitmq-publisher"),
	}
}

// PublishOrderEvent публикует событие и ждёт подтверждения брокера или отмены ctx.
func (p *Publisher) PublishOrderEvent(ctx context.Context, event domain.OrderEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.PublishWithContext(ctx, p.exchange, string(event.Type), false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    event.ID,
		Type:         string(event.Type),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		p.logger.WithError(err).WithField("event_type", event.Type).Error("failed to publish order event")
		return fmt.Errorf("publish order event: %w", err)
	}

	select {
	case conf, ok := <-p.acks:
		if !ok {
			return fmt.Errorf("publish order event: %w", amqp.ErrClosed)
		}
		if !conf.Ack {
			return errPublishNack
		}
	case <-ctx.Done():
		return ctx.Err()
	}

	p.logger.WithFields(log.Fields{
		"exchange":   p.exchange,
		"event_type": event.Type,
		"order_id":   event.OrderID,
	}).Debug("order event published to rabbitmq")

	return nil
}

// Ping сообщает, живо ли соединение с брокером.
func (p *Publisher) Ping(context.Context) error {
	if p.conn == nil || p.conn.IsClosed() {
		return errors.New("rabbitmq connection is closed")
	}
	return nil
}

// Close закрывает канал и соединение.
func (p *Publisher) Close() error {
	var errs []error
	if p.ch != nil {
		errs = append(errs, p.ch.Close())
	}
	if p.conn != nil && !p.conn.IsClosed() {
		errs = append(errs, p.conn.Close())
	}
	return errors.Join(errs...)
}

var _ domain.EventPublisher = (*Publisher)(nil)
