package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/restaurant/internal/domain"
)

const (
	// SQLSTATE class 23: integrity constraint violation (check, unique, not null, foreign key).
	sqlStateClassIntegrity = "23"
	// SQLSTATE class 22: data exception (numeric out of range, invalid text representation).
	sqlStateClassDataException = "22"
)

// classifyError переводит ошибку драйвера в таксономию домена.
// Неклассифицированные ошибки оборачиваются с именем операции и наружу клиенту не отдаются.
func classifyError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, domain.ErrOrderNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && isConstraintViolation(pgErr) {
		return domain.NewConstraintViolation(pgErr.Message, pgErr.ConstraintName, err)
	}

	return fmt.Errorf("%s: %w", op, err)
}

func isConstraintViolation(pgErr *pgconn.PgError) bool {
	return strings.HasPrefix(pgErr.Code, sqlStateClassIntegrity) ||
		strings.HasPrefix(pgErr.Code, sqlStateClassDataException)
}
