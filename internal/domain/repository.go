package domain

import "context"

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// List возвращает все заказы или только заказы стола, если tableNumber != nil.
	// Пустой результат не является ошибкой.
	List(ctx context.Context, tableNumber *int32) ([]Order, error)
	// Get возвращает заказ по id или ErrOrderNotFound.
	Get(ctx context.Context, id int32) (Order, error)
	// Create вычисляет ReadyAt, сохраняет заказ и возвращает его с назначенным id.
	Create(ctx context.Context, req OrderCreateRequest) (Order, error)
	// Delete удаляет заказ или возвращает ErrOrderNotFound, если строки не было.
	Delete(ctx context.Context, id int32) error
}
