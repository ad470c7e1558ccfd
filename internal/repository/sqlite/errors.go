package sqlite

import (
	"errors"
	"strings"

	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/usersvc/internal/apperror"
)

const (
	msgEmailTaken = "Email is already registered."
	msgIDTaken    = "A user with this ID already exists."
)

// constraintError maps a uniqueness violation on the users table to an
// apperror.Conflict. It returns nil for every other error, including other
// constraint kinds such as NOT NULL.
//
// SQLite reports both kinds as "UNIQUE constraint failed: users.<column>";
// the extended code distinguishes a primary key from a UNIQUE index.
func constraintError(err error) *apperror.AppError {
	var sqliteErr *moderncsqlite.Error
	if !errors.As(err, &sqliteErr) {
		return nil
	}

	code := sqliteErr.Code()
	if code&0xff != sqlite3.SQLITE_CONSTRAINT {
		return nil
	}

	msg := sqliteErr.Error()
	switch {
	case code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY || strings.Contains(msg, "users.user_id"):
		return apperror.Conflict("user_id", msgIDTaken)
	case strings.Contains(msg, "users.user_email"):
		return apperror.Conflict("user_email", msgEmailTaken)
	case code == sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return apperror.Conflict("", "Record conflicts with an existing user.")
	}
	return nil
}
