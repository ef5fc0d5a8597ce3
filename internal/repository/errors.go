// Package repository implements the credential store: users and refresh
// token rows, backed by MySQL through sqlx, plus an in-memory variant for
// local development and tests. The sentinel errors below let the service
// layer tell store outcomes apart without inspecting driver errors.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the requested row does not exist, including
// a refresh token that was consumed by a concurrent rotation.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when an insert or update would duplicate a
// user's email.
var ErrEmailExists = errors.New("email already exists")

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// isDuplicate reports a unique-key violation from MySQL, or from SQLite in
// tests.
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlDuplicateEntry
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
