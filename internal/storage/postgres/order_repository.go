package postgres

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vladislavdragonenkov/restaurant/internal/domain"
)

const opTimeout = 5 * time.Second

const (
	selectOrdersSQL = `
		SELECT id, table_number, item_name, ready_at
		FROM restaurant_table_orders
		WHERE ($1::INT IS NULL OR table_number = $1)
		ORDER BY id`

	selectOrderSQL = `
		SELECT id, table_number, item_name, ready_at
		FROM restaurant_table_orders
		WHERE id = $1`

	insertOrderSQL = `
		INSERT INTO restaurant_table_orders (table_number, item_name, ready_at)
		VALUES ($1, $2, $3)
		RETURNING id, table_number, item_name, ready_at`

	deleteOrderSQL = `
		DELETE FROM restaurant_table_orders
		WHERE id = $1
		RETURNING id`
)

type orderRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
	rnd  func(n int) int
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{
		pool: store.Pool(),
		now:  time.Now,
		rnd:  rand.IntN,
	}
}

func (r *orderRepository) List(ctx context.Context, tableNumber *int32) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, selectOrdersSQL, tableNumber)
	if err != nil {
		return nil, classifyError("list orders", err)
	}

	orders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Order, error) {
		return scanOrder(row)
	})
	if err != nil {
		return nil, classifyError("scan orders", err)
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return orders, nil
}

func (r *orderRepository) Get(ctx context.Context, id int32) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	order, err := scanOrder(r.pool.QueryRow(ctx, selectOrderSQL, id))
	if err != nil {
		return domain.Order{}, classifyError("get order", err)
	}
	return order, nil
}

func (r *orderRepository) Create(ctx context.Context, req domain.OrderCreateRequest) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	// Колонка ready_at без часового пояса, храним UTC.
	readyAt := domain.ComputeReadyAt(r.now().UTC(), r.rnd)

	order, err := scanOrder(r.pool.QueryRow(ctx, insertOrderSQL, req.TableNumber, req.ItemName, readyAt))
	if err != nil {
		return domain.Order{}, classifyError("insert order", err)
	}
	return order, nil
}

func (r *orderRepository) Delete(ctx context.Context, id int32) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var deleted int32
	if err := r.pool.QueryRow(ctx, deleteOrderSQL, id).Scan(&deleted); err != nil {
		return classifyError("delete order", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var order domain.Order
	if err := row.Scan(&order.ID, &order.TableNumber, &order.ItemName, &order.ReadyAt); err != nil {
		return domain.Order{}, err
	}
	order.ReadyAt = order.ReadyAt.UTC()
	return order, nil
}

var _ domain.OrderRepository = (*orderRepository)(nil)
