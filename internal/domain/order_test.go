package domain_test

import (
	"testing"
	"time"

	"github.com/vladislavdragonenkov/restaurant/internal/domain"
)

func TestComputeReadyAt_Bounds(t *testing.T) {
	now := time.Date(2024, 7, 10, 12, 0, 0, 0, time.UTC)

	for offset := 0; offset < 10; offset++ {
		got := domain.ComputeReadyAt(now, func(int) int { return offset })
		delay := got.Sub(now)
		if delay < 5*time.Minute || delay > 14*time.Minute {
			t.Fatalf("offset %d: delay %s out of [5m, 14m]", offset, delay)
		}
		if want := time.Duration(5+offset) * time.Minute; delay != want {
			t.Fatalf("offset %d: expected %s, got %s", offset, want, delay)
		}
	}
}

func TestComputeReadyAt_PassesSpread(t *testing.T) {
	var gotN int
	domain.ComputeReadyAt(time.Now(), func(n int) int {
		gotN = n
		return 0
	})
	if gotN != 10 {
		t.Fatalf("expected random source to be asked for [0,10), got n=%d", gotN)
	}
}

func TestComputeReadyAt_ClampsBrokenSource(t *testing.T) {
	now := time.Now().UTC()

	for _, bad := range []int{-1, 10, 1000} {
		got := domain.ComputeReadyAt(now, func(int) int { return bad })
		if got.Sub(now) != 5*time.Minute {
			t.Fatalf("value %d: expected fallback to 5m, got %s", bad, got.Sub(now))
		}
	}
}

func TestTableNumberInRange(t *testing.T) {
	cases := []struct {
		table int32
		want  bool
	}{
		{table: 0, want: true},
		{table: 1, want: true},
		{table: 9999, want: true},
		{table: -1, want: false},
		{table: 10000, want: false},
		{table: 10000000, want: false},
	}

	for _, tc := range cases {
		if got := domain.TableNumberInRange(tc.table); got != tc.want {
			t.Errorf("TableNumberInRange(%d) = %v, want %v", tc.table, got, tc.want)
		}
	}
}

func TestOrderEvents(t *testing.T) {
	now := time.Now().UTC()
	order := domain.Order{ID: 7, TableNumber: 0, ItemName: "poutine", ReadyAt: now.Add(6 * time.Minute)}

	created := domain.NewOrderCreatedEvent("evt-1", order, now)
	if created.Type != domain.EventTypeOrderCreated || created.OrderID != 7 {
		t.Fatalf("unexpected created event: %+v", created)
	}
	if created.TableNumber == nil || *created.TableNumber != 0 {
		t.Fatalf("table number 0 must be kept in created event: %+v", created)
	}
	if created.ReadyAt == nil || !created.ReadyAt.Equal(order.ReadyAt) {
		t.Fatalf("ready_at mismatch: %+v", created)
	}

	deleted := domain.NewOrderDeletedEvent("evt-2", 7, now)
	if deleted.Type != domain.EventTypeOrderDeleted || deleted.TableNumber != nil || deleted.ReadyAt != nil {
		t.Fatalf("unexpected deleted event: %+v", deleted)
	}
}
