package domain

import (
	"context"
	"time"
)

// EventType определяет тип события заказа.
type EventType string

const (
	EventTypeOrderCreated EventType = "order.created"
	EventTypeOrderDeleted EventType = "order.deleted"
)

// OrderEvent публикуется после успешного создания или удаления заказа.
type OrderEvent struct {
	ID          string     `json:"event_id"`
	Type        EventType  `json:"event_type"`
	OrderID     int32      `json:"order_id"`
	TableNumber *int32     `json:"table_number,omitempty"`
	ItemName    string     `json:"item_name,omitempty"`
	ReadyAt     *time.Time `json:"ready_at,omitempty"`
	OccurredAt  time.Time  `json:"occurred_at"`
}

// NewOrderCreatedEvent строит событие order.created из сохранённого заказа.
func NewOrderCreatedEvent(id string, order Order, occurredAt time.Time) OrderEvent {
	tableNumber := order.TableNumber
	readyAt := order.ReadyAt
	return OrderEvent{
		ID:          id,
		Type:        EventTypeOrderCreated,
		OrderID:     order.ID,
		TableNumber: &tableNumber,
		ItemName:    order.ItemName,
		ReadyAt:     &readyAt,
		OccurredAt:  occurredAt,
	}
}

// NewOrderDeletedEvent строит событие order.deleted.
func NewOrderDeletedEvent(id string, orderID int32, occurredAt time.Time) OrderEvent {
	return OrderEvent{
		ID:         id,
		Type:       EventTypeOrderDeleted,
		OrderID:    orderID,
		OccurredAt: occurredAt,
	}
}

// EventPublisher отправляет события заказов во внешний брокер.
type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) error
	Close() error
}
