package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const fkViolationCode = "23503"

// isForeignKeyViolation detects inserts referencing a row that was
// deleted mid-flight.
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == fkViolationCode
}
