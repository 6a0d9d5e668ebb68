package memory

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/restaurant/internal/domain"
)

// Option настраивает in-memory репозиторий.
type Option func(*orderRepositoryInMemory)

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(r *orderRepositoryInMemory) {
		if now != nil {
			r.now = now
		}
	}
}

// WithRandom подменяет генератор смещения времени готовности.
func WithRandom(rnd func(n int) int) Option {
	return func(r *orderRepositoryInMemory) {
		if rnd != nil {
			r.rnd = rnd
		}
	}
}

// orderRepositoryInMemory — in-memory реализация OrderRepository для локальной разработки и тестов.
// Повторяет ограничения схемы postgres, чтобы обработчики вели себя так же.
type orderRepositoryInMemory struct {
	mu     sync.RWMutex
	items  map[int32]domain.Order
	nextID int32
	now    func() time.Time
	rnd    func(n int) int
}

// NewOrderRepository возвращает in-memory репозиторий.
func NewOrderRepository(opts ...Option) domain.OrderRepository {
	return newOrderRepository(opts...)
}

// NewSeededOrderRepository создаёт репозиторий с заранее заданными строками (фикстуры в тестах).
// Следующий назначенный id будет больше максимального id из seed.
func NewSeededOrderRepository(seed []domain.Order, opts ...Option) domain.OrderRepository {
	r := newOrderRepository(opts...)
	for _, order := range seed {
		r.items[order.ID] = order
		if order.ID >= r.nextID {
			r.nextID = order.ID + 1
		}
	}
	return r
}

func newOrderRepository(opts ...Option) *orderRepositoryInMemory {
	r := &orderRepositoryInMemory{
		items:  make(map[int32]domain.Order),
		nextID: 1,
		now:    time.Now,
		rnd:    rand.IntN,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *orderRepositoryInMemory) List(ctx context.Context, tableNumber *int32) ([]domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Order, 0, len(r.items))
	for _, order := range r.items {
		if tableNumber != nil && order.TableNumber != *tableNumber {
			continue
		}
		result = append(result, order)
	}

	// Порядок не гарантируется контрактом, но стабильный порядок упрощает отладку.
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	return result, nil
}

func (r *orderRepositoryInMemory) Get(ctx context.Context, id int32) (domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return domain.Order{}, fmt.Errorf("get order: %w", err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.items[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return order, nil
}

func (r *orderRepositoryInMemory) Create(ctx context.Context, req domain.OrderCreateRequest) (domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return domain.Order{}, fmt.Errorf("create order: %w", err)
	}
	if !domain.TableNumberInRange(req.TableNumber) {
		return domain.Order{}, domain.NewConstraintViolation(
			fmt.Sprintf("table_number %d is out of range [%d, %d]", req.TableNumber, domain.MinTableNumber, domain.MaxTableNumber),
			"restaurant_table_orders_table_number_check",
			nil,
		)
	}

	readyAt := domain.ComputeReadyAt(r.now().UTC(), r.rnd)

	r.mu.Lock()
	defer r.mu.Unlock()

	order := domain.Order{
		ID:          r.nextID,
		TableNumber: req.TableNumber,
		ItemName:    req.ItemName,
		ReadyAt:     readyAt,
	}
	r.items[order.ID] = order
	r.nextID++

	return order, nil
}

func (r *orderRepositoryInMemory) Delete(ctx context.Context, id int32) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("delete order: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return domain.ErrOrderNotFound
	}
	delete(r.items, id)
	return nil
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
