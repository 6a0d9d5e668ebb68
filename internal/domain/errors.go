package domain

import "errors"

var (
	// ErrOrderNotFound возвращается, если ни одна строка не совпала по id (get/delete).
	ErrOrderNotFound = errors.New("order not found")
	// ErrConstraintViolation — запись отклонена ограничением схемы (CHECK, NOT NULL, диапазон).
	ErrConstraintViolation = errors.New("constraint violation")
)

// ErrorKind classifies storage failures.
type ErrorKind int

const (
	KindUnclassified ErrorKind = iota
	KindNotFound
	KindConstraintViolation
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConstraintViolation:
		return "constraint_violation"
	default:
		return "unclassified"
	}
}

// ConstraintViolationError несёт сообщение хранилища о нарушенном ограничении.
type ConstraintViolationError struct {
	// Message — короткое сообщение, безопасное для отдачи клиенту.
	Message string
	// Constraint — имя ограничения, если хранилище его сообщило.
	Constraint string
	Err        error
}

func (e *ConstraintViolationError) Error() string {
	if e.Message == "" {
		return ErrConstraintViolation.Error()
	}
	return e.Message
}

func (e *ConstraintViolationError) Unwrap() error {
	return e.Err
}

// Is позволяет сравнивать через errors.Is(err, ErrConstraintViolation).
func (e *ConstraintViolationError) Is(target error) bool {
	return target == ErrConstraintViolation
}

// NewConstraintViolation создаёт ошибку нарушения ограничения.
func NewConstraintViolation(message, constraint string, cause error) error {
	return &ConstraintViolationError{Message: message, Constraint: constraint, Err: cause}
}

// KindOf классифицирует ошибку хранилища.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindUnclassified
	case errors.Is(err, ErrOrderNotFound):
		return KindNotFound
	case errors.Is(err, ErrConstraintViolation):
		return KindConstraintViolation
	default:
		return KindUnclassified
	}
}

// IsNotFound проверяет, что заказ не найден.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrOrderNotFound)
}
