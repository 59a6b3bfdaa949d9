package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// postgresError returns the SQLSTATE of err, or "" when err is not a
// PostgreSQL error.
func postgresError(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
