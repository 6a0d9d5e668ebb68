package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics содержит бизнес-метрики заказов.
type OrderMetrics struct {
	created     prometheus.Counter
	deleted     prometheus.Counter
	storeErrors *prometheus.CounterVec

	eventsPublished *prometheus.CounterVec
	eventsFailed    *prometheus.CounterVec
}

// NewOrderMetrics создаёт метрики заказов в DefaultRegisterer.
func NewOrderMetrics() *OrderMetrics {
	return NewOrderMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewOrderMetricsWithRegisterer создаёт метрики заказов в переданном реестре.
func NewOrderMetricsWithRegisterer(registerer prometheus.Registerer) *OrderMetrics {
	return &OrderMetrics{
		created: register(registerer, "restaurant_orders_created_total", prometheus.NewCounter(prometheus.CounterOpts{
			Name: "restaurant_orders_created_total",
			Help: "Total number of orders created",
		})),
		deleted: register(registerer, "restaurant_orders_deleted_total", prometheus.NewCounter(prometheus.CounterOpts{
			Name: "restaurant_orders_deleted_total",
			Help: "Total number of orders deleted",
		})),
		storeErrors: register(registerer, "restaurant_order_store_errors_total", prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "restaurant_order_store_errors_total",
			Help: "Order store failures by operation and error kind",
		}, []string{"operation", "kind"})),
		eventsPublished: register(registerer, "restaurant_order_events_published_total", prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "restaurant_order_events_published_total",
			Help: "Order events published to the broker",
		}, []string{"event_type"})),
		eventsFailed: register(registerer, "restaurant_order_events_failed_total", prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "restaurant_order_events_failed_total",
			Help: "Order events the broker rejected",
		}, []string{"event_type"})),
	}
}

// RecordOrderCreated увеличивает счётчик созданных заказов.
func (m *OrderMetrics) RecordOrderCreated() {
	if m == nil {
		return
	}
	m.created.Inc()
}

// RecordOrderDeleted увеличивает счётчик удалённых заказов.
func (m *OrderMetrics) RecordOrderDeleted() {
	if m == nil {
		return
	}
	m.deleted.Inc()
}

// RecordStoreError учитывает ошибку хранилища. kind берётся из domain.ErrorKind.
func (m *OrderMetrics) RecordStoreError(operation, kind string) {
	if m == nil {
		return
	}
	m.storeErrors.WithLabelValues(operation, kind).Inc()
}

// RecordEventPublished учитывает успешно опубликованное событие.
func (m *OrderMetrics) RecordEventPublished(eventType string) {
	if m == nil {
		return
	}
	m.eventsPublished.WithLabelValues(eventType).Inc()
}

// RecordEventFailed учитывает событие, которое не удалось опубликовать.
func (m *OrderMetrics) RecordEventFailed(eventType string) {
	if m == nil {
		return
	}
	m.eventsFailed.WithLabelValues(eventType).Inc()
}
