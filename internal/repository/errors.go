// Package repository holds the MySQL data access for tables, menu items,
// orders, calls and ratings.  Lifecycle writes are single conditional
// UPDATE statements (compare-and-swap on the status column); callers get
// ErrStaleState when the row no longer has the expected status.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrStaleState is returned when a conditional update matched no row
// because the status changed underneath the caller.
var ErrStaleState = errors.New("stale state")

// ErrDuplicate is returned when an insert violates a unique constraint,
// e.g. a second OPEN call of the same type or a second rating for a call.
var ErrDuplicate = errors.New("duplicate")

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

// placeholders returns "?, ?, ..." with n markers for an IN clause.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
