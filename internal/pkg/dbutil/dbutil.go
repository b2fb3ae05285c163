package dbutil

import (
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const (
	codeUniqueViolation = "23505"
	codeDuplicateTable  = "42P07"
)

// Finalize rebinds builder output to postgres placeholders.
func Finalize(query string, args []interface{}) (string, []interface{}) {
	return sqlx.Rebind(sqlx.DOLLAR, query), args
}

// IsConflict reports a unique-key violation or an already existing relation.
func IsConflict(err error) bool {
	var pgErr *pq.Error
	if errors.As(err, &pgErr) {
		return pgErr.Code == codeUniqueViolation || pgErr.Code == codeDuplicateTable
	}
	return false
}
