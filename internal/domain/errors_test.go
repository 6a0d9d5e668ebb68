package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{
			name: "not found",
			err:  ErrOrderNotFound,
			want: KindNotFound,
		},
		{
			name: "wrapped not found",
			err:  fmt.Errorf("delete order 5: %w", ErrOrderNotFound),
			want: KindNotFound,
		},
		{
			name: "constraint violation",
			err:  NewConstraintViolation("violates check constraint", "table_number_range", nil),
			want: KindConstraintViolation,
		},
		{
			name: "wrapped constraint violation",
			err:  fmt.Errorf("insert order: %w", NewConstraintViolation("bad", "", errors.New("pg"))),
			want: KindConstraintViolation,
		},
		{
			name: "plain error",
			err:  errors.New("connection refused"),
			want: KindUnclassified,
		},
		{
			name: "nil error",
			err:  nil,
			want: KindUnclassified,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConstraintViolationError(t *testing.T) {
	cause := errors.New("pg: 23514")
	err := NewConstraintViolation("new row violates check constraint", "restaurant_table_orders_table_number_check", cause)

	if err.Error() != "new row violates check constraint" {
		t.Errorf("unexpected message: %q", err.Error())
	}
	if !errors.Is(err, ErrConstraintViolation) {
		t.Error("expected errors.Is(err, ErrConstraintViolation)")
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable via Unwrap")
	}

	var cv *ConstraintViolationError
	if !errors.As(err, &cv) || cv.Constraint != "restaurant_table_orders_table_number_check" {
		t.Errorf("errors.As failed or constraint lost: %+v", cv)
	}

	empty := &ConstraintViolationError{}
	if empty.Error() != ErrConstraintViolation.Error() {
		t.Errorf("empty message should fall back to sentinel text, got %q", empty.Error())
	}
}

func TestErrorKindString(t *testing.T) {
	if KindNotFound.String() != "not_found" {
		t.Errorf("unexpected: %s", KindNotFound)
	}
	if KindConstraintViolation.String() != "constraint_violation" {
		t.Errorf("unexpected: %s", KindConstraintViolation)
	}
	if KindUnclassified.String() != "unclassified" {
		t.Errorf("unexpected: %s", KindUnclassified)
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(fmt.Errorf("get: %w", ErrOrderNotFound)) {
		t.Error("expected wrapped ErrOrderNotFound to be detected")
	}
	if IsNotFound(ErrConstraintViolation) {
		t.Error("constraint violation is not a not-found")
	}
}
