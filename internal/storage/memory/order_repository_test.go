package memory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/restaurant/internal/domain"
	"github.com/vladislavdragonenkov/restaurant/internal/storage/memory"
)

func fixedClock() time.Time {
	return time.Date(2024, 7, 10, 0, 0, 0, 0, time.UTC)
}

func TestOrderRepository_CreateGet(t *testing.T) {
	repo := memory.NewOrderRepository(memory.WithClock(fixedClock), memory.WithRandom(func(int) int { return 3 }))
	ctx := context.Background()

	created, err := repo.Create(ctx, domain.OrderCreateRequest{TableNumber: 1, ItemName: "test"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), created.ID)
	assert.Equal(t, fixedClock().Add(8*time.Minute), created.ReadyAt)

	stored, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, stored)
}

func TestOrderRepository_AssignsUniqueIDs(t *testing.T) {
	repo := memory.NewOrderRepository()
	ctx := context.Background()

	const workers = 16
	ids := make(chan int32, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(table int32) {
			defer wg.Done()
			order, err := repo.Create(ctx, domain.OrderCreateRequest{TableNumber: table, ItemName: "potato"})
			if err != nil {
				t.Errorf("create failed: %v", err)
				return
			}
			ids <- order.ID
		}(int32(i))
	}
	wg.Wait()
	close(ids)

	seen := map[int32]struct{}{}
	for id := range ids {
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %d", id)
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, workers)
}

func TestOrderRepository_ListFilter(t *testing.T) {
	repo := memory.NewOrderRepository()
	ctx := context.Background()

	for _, table := range []int32{0, 1, 2, 1} {
		_, err := repo.Create(ctx, domain.OrderCreateRequest{TableNumber: table, ItemName: "fries"})
		require.NoError(t, err)
	}

	all, err := repo.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	one := int32(1)
	filtered, err := repo.List(ctx, &one)
	require.NoError(t, err)
	require.Len(t, filtered, 2)
	for _, order := range filtered {
		assert.Equal(t, int32(1), order.TableNumber)
	}

	missing := int32(2222)
	empty, err := repo.List(ctx, &missing)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestOrderRepository_CreateOutOfRange(t *testing.T) {
	repo := memory.NewOrderRepository()

	_, err := repo.Create(context.Background(), domain.OrderCreateRequest{TableNumber: 10000000, ItemName: "test"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConstraintViolation))
	assert.Equal(t, domain.KindConstraintViolation, domain.KindOf(err))

	all, err := repo.List(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, all, "rejected order must not be stored")
}

func TestOrderRepository_DeleteTwice(t *testing.T) {
	repo := memory.NewSeededOrderRepository([]domain.Order{
		{ID: 100, TableNumber: 0, ItemName: "test-poutine", ReadyAt: fixedClock()},
	})
	ctx := context.Background()

	require.NoError(t, repo.Delete(ctx, 100))
	assert.ErrorIs(t, repo.Delete(ctx, 100), domain.ErrOrderNotFound)

	_, err := repo.Get(ctx, 100)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestOrderRepository_SeedAdvancesIDs(t *testing.T) {
	repo := memory.NewSeededOrderRepository([]domain.Order{
		{ID: 100, TableNumber: 0, ItemName: "test-poutine", ReadyAt: fixedClock()},
	})

	created, err := repo.Create(context.Background(), domain.OrderCreateRequest{TableNumber: 3, ItemName: "gravy"})
	require.NoError(t, err)
	assert.Equal(t, int32(101), created.ID)
}

func TestOrderRepository_CanceledContext(t *testing.T) {
	repo := memory.NewOrderRepository()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.List(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, domain.KindUnclassified, domain.KindOf(err))
}
