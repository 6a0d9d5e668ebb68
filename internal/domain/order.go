package domain

import "time"

const (
	// MinTableNumber и MaxTableNumber повторяют CHECK-ограничение колонки table_number.
	MinTableNumber int32 = 0
	MaxTableNumber int32 = 9999

	// Время готовности заказа: now + [5, 14] минут.
	minReadyDelayMinutes  = 5
	readyDelaySpreadCount = 10
)

// Order — одна позиция, заказанная за столом.
type Order struct {
	// ID назначается хранилищем при создании и больше не меняется.
	ID int32 `json:"id"`
	// TableNumber — номер физического стола.
	TableNumber int32 `json:"table_number"`
	ItemName    string `json:"item_name"`
	// ReadyAt вычисляется один раз при создании и не пересчитывается.
	ReadyAt time.Time `json:"ready_at"`
}

// OrderCreateRequest — входные данные для создания заказа. Валидируется ограничениями хранилища.
type OrderCreateRequest struct {
	TableNumber int32
	ItemName    string
}

// ComputeReadyAt возвращает now + (5 + rnd(10)) минут.
// rnd должен возвращать значение из [0, n).
func ComputeReadyAt(now time.Time, rnd func(n int) int) time.Time {
	offset := rnd(readyDelaySpreadCount)
	if offset < 0 || offset >= readyDelaySpreadCount {
		offset = 0
	}
	return now.Add(time.Duration(minReadyDelayMinutes+offset) * time.Minute)
}

// TableNumberInRange сообщает, проходит ли номер стола схему хранилища.
func TableNumberInRange(tableNumber int32) bool {
	return tableNumber >= MinTableNumber && tableNumber <= MaxTableNumber
}
