package orders

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/restaurant/internal/domain"
	"github.com/vladislavdragonenkov/restaurant/internal/metrics"
	"github.com/vladislavdragonenkov/restaurant/internal/storage/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.OrderEvent
	err    error
}

func (p *recordingPublisher) PublishOrderEvent(_ context.Context, event domain.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type failingRepository struct {
	domain.OrderRepository
	err error
}

func (r failingRepository) Get(context.Context, int32) (domain.Order, error) {
	return domain.Order{}, r.err
}

func countSeries(reg *prometheus.Registry, names ...string) (int, error) {
	families, err := reg.Gather()
	if err != nil {
		return 0, err
	}
	want := make(map[string]bool, len(names))
	for _, name := range names {
		want[name] = true
	}
	total := 0
	for _, family := range families {
		if want[family.GetName()] {
			total += len(family.GetMetric())
		}
	}
	return total, nil
}

func newTestService(t *testing.T, publisher domain.EventPublisher) (*Service, *prometheus.Registry) {
	t.Helper()

	reg := prometheus.NewRegistry()
	svc := NewService(memory.NewOrderRepository(),
		WithPublisher(publisher),
		WithMetrics(metrics.NewOrderMetricsWithRegisterer(reg)),
	)
	svc.newID = func() string { return "evt-fixed" }
	svc.now = func() time.Time { return time.Date(2024, 7, 10, 0, 0, 0, 0, time.UTC) }
	return svc, reg
}

func TestService_CreateDeletePublishesEvents(t *testing.T) {
	publisher := &recordingPublisher{}
	svc, reg := newTestService(t, publisher)
	ctx := context.Background()

	order, err := svc.Create(ctx, domain.OrderCreateRequest{TableNumber: 0, ItemName: "poutine"})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, order.ID))

	require.Len(t, publisher.events, 2)
	created := publisher.events[0]
	assert.Equal(t, domain.EventTypeOrderCreated, created.Type)
	assert.Equal(t, "evt-fixed", created.ID)
	require.NotNil(t, created.TableNumber)
	assert.Equal(t, int32(0), *created.TableNumber)
	assert.Equal(t, domain.EventTypeOrderDeleted, publisher.events[1].Type)
	assert.Equal(t, order.ID, publisher.events[1].OrderID)

	count, err := countSeries(reg, "restaurant_orders_created_total", "restaurant_orders_deleted_total", "restaurant_order_events_published_total")
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestService_PublishFailureDoesNotFailOperation(t *testing.T) {
	publisher := &recordingPublisher{err: errors.New("broker down")}
	svc, reg := newTestService(t, publisher)

	order, err := svc.Create(context.Background(), domain.OrderCreateRequest{TableNumber: 3, ItemName: "soup"})
	require.NoError(t, err)
	assert.NotZero(t, order.ID)

	count, err := countSeries(reg, "restaurant_order_events_failed_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestService_NoEventsOnFailure(t *testing.T) {
	publisher := &recordingPublisher{}
	svc, reg := newTestService(t, publisher)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.OrderCreateRequest{TableNumber: 10000000, ItemName: "test"})
	assert.Equal(t, domain.KindConstraintViolation, domain.KindOf(err))

	err = svc.Delete(ctx, 404)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	assert.Empty(t, publisher.events)

	count, err := countSeries(reg, "restaurant_order_store_errors_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestService_WithoutPublisher(t *testing.T) {
	svc := NewService(memory.NewOrderRepository())
	ctx := context.Background()

	order, err := svc.Create(ctx, domain.OrderCreateRequest{TableNumber: 1, ItemName: "test"})
	require.NoError(t, err)

	got, err := svc.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order, got)

	table := int32(1)
	list, err := svc.List(ctx, &table)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestService_UnclassifiedErrorPassesThrough(t *testing.T) {
	boom := errors.New("connection reset")
	svc := NewService(failingRepository{err: boom})

	_, err := svc.Get(context.Background(), 1)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, domain.KindUnclassified, domain.KindOf(err))
}
