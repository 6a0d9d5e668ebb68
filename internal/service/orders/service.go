package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/restaurant/internal/domain"
	"github.com/vladislavdragonenkov/restaurant/internal/metrics"
)

const publishTimeout = 3 * time.Second

// Service — use-case слой заказов: вызовы хранилища, метрики и публикация событий.
// Публикация синхронная и best-effort: ошибка брокера логируется и не меняет результат операции.
type Service struct {
	repo      domain.OrderRepository
	publisher domain.EventPublisher
	metrics   *metrics.OrderMetrics
	logger    *log.Entry
	now       func() time.Time
	newID     func() string
}

// Option настраивает Service.
type Option func(*Service)

// WithPublisher подключает публикацию событий. nil отключает публикацию.
func WithPublisher(p domain.EventPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithMetrics подключает бизнес-метрики.
func WithMetrics(m *metrics.OrderMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger задаёт логгер.
func WithLogger(logger *log.Entry) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService создаёт сервис заказов поверх репозитория.
func NewService(repo domain.OrderRepository, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		logger: log.WithField("component", "orders-service"),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List возвращает заказы, опционально отфильтрованные по столу.
func (s *Service) List(ctx context.Context, tableNumber *int32) ([]domain.Order, error) {
	orders, err := s.repo.List(ctx, tableNumber)
	if err != nil {
		s.recordStoreError("list", err)
		return nil, err
	}
	return orders, nil
}

// Get возвращает заказ по id.
func (s *Service) Get(ctx context.Context, id int32) (domain.Order, error) {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		s.recordStoreError("get", err)
		return domain.Order{}, err
	}
	return order, nil
}

// Create сохраняет заказ и публикует order.created.
func (s *Service) Create(ctx context.Context, req domain.OrderCreateRequest) (domain.Order, error) {
	order, err := s.repo.Create(ctx, req)
	if err != nil {
		s.recordStoreError("create", err)
		return domain.Order{}, err
	}

	s.metrics.RecordOrderCreated()
	s.logger.WithFields(log.Fields{
		"order_id":     order.ID,
		"table_number": order.TableNumber,
		"ready_at":     order.ReadyAt,
	}).Debug("order created")

	s.publish(ctx, domain.NewOrderCreatedEvent(s.newID(), order, s.now().UTC()))
	return order, nil
}

// Delete удаляет заказ и публикует order.deleted.
func (s *Service) Delete(ctx context.Context, id int32) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		s.recordStoreError("delete", err)
		return err
	}

	s.metrics.RecordOrderDeleted()
	s.logger.WithField("order_id", id).Debug("order deleted")

	s.publish(ctx, domain.NewOrderDeletedEvent(s.newID(), id, s.now().UTC()))
	return nil
}

func (s *Service) publish(ctx context.Context, event domain.OrderEvent) {
	if s.publisher == nil {
		return
	}

	// Клиент мог уже отключиться, но событие об изменении в базе всё равно отправляем.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.publisher.PublishOrderEvent(pubCtx, event); err != nil {
		s.metrics.RecordEventFailed(string(event.Type))
		s.logger.WithError(err).WithFields(log.Fields{
			"event_id":   event.ID,
			"event_type": event.Type,
			"order_id":   event.OrderID,
		}).Warn("failed to publish order event")
		return
	}
	s.metrics.RecordEventPublished(string(event.Type))
}

func (s *Service) recordStoreError(operation string, err error) {
	kind := domain.KindOf(err)
	s.metrics.RecordStoreError(operation, kind.String())
	if kind == domain.KindUnclassified {
		s.logger.WithError(err).WithField("operation", operation).Error("order store failure")
	}
}
