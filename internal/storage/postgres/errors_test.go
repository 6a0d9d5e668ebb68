package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/vladislavdragonenkov/restaurant/internal/domain"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want domain.ErrorKind
	}{
		{name: "no rows", err: pgx.ErrNoRows, want: domain.KindNotFound},
		{
			name: "check violation",
			err:  &pgconn.PgError{Code: "23514", Message: "new row violates check constraint", ConstraintName: "restaurant_table_orders_table_number_check"},
			want: domain.KindConstraintViolation,
		},
		{
			name: "numeric out of range",
			err:  &pgconn.PgError{Code: "22003", Message: "integer out of range"},
			want: domain.KindConstraintViolation,
		},
		{
			name: "undefined table",
			err:  &pgconn.PgError{Code: "42P01", Message: "relation does not exist"},
			want: domain.KindUnclassified,
		},
		{name: "connection error", err: errors.New("connection refused"), want: domain.KindUnclassified},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyError("op", tt.err)
			assert.Equal(t, tt.want, domain.KindOf(got))
			if tt.want != domain.KindNotFound {
				assert.ErrorIs(t, got, tt.err)
			}
		})
	}

	assert.NoError(t, classifyError("op", nil))
}

func TestClassifyError_KeepsDatabaseMessage(t *testing.T) {
	err := classifyError("insert order", &pgconn.PgError{
		Code:           "23514",
		Message:        `new row for relation "restaurant_table_orders" violates check constraint`,
		ConstraintName: "restaurant_table_orders_table_number_check",
	})

	var cv *domain.ConstraintViolationError
	if assert.ErrorAs(t, err, &cv) {
		assert.Equal(t, `new row for relation "restaurant_table_orders" violates check constraint`, cv.Message)
		assert.Equal(t, "restaurant_table_orders_table_number_check", cv.Constraint)
	}
}
