package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sentinel errors
// ─────────────────────────────────────────────────────────────────────────────

var (
	// ErrNotFound is returned when a query matches no rows.
	ErrNotFound = errors.New("entitymap/db: record not found")

	// ErrDuplicateKey is returned on unique and primary key violations.
	ErrDuplicateKey = errors.New("entitymap/db: duplicate key")

	// ErrForeignKeyViolation is returned when a foreign key constraint is violated.
	ErrForeignKeyViolation = errors.New("entitymap/db: foreign key violation")

	// ErrNotNullViolation is returned when a required column receives NULL.
	ErrNotNullViolation = errors.New("entitymap/db: not null violation")

	// ErrCheckViolation is returned when a CHECK constraint is violated.
	ErrCheckViolation = errors.New("entitymap/db: check constraint violation")

	// ErrDeadlock is returned when the database detects a deadlock or the
	// database file is locked.
	ErrDeadlock = errors.New("entitymap/db: deadlock detected")

	// ErrTimeout is returned when a statement exceeds its deadline.
	ErrTimeout = errors.New("entitymap/db: query timeout")

	// ErrConnectionFailed is returned when the driver cannot reach the server.
	ErrConnectionFailed = errors.New("entitymap/db: connection failed")
)

// ─────────────────────────────────────────────────────────────────────────────
// Error helpers: use errors.Is() for type-safe checks
// ─────────────────────────────────────────────────────────────────────────────

func IsNotFound(err error) bool            { return errors.Is(err, ErrNotFound) }
func IsDuplicateKey(err error) bool        { return errors.Is(err, ErrDuplicateKey) }
func IsForeignKeyViolation(err error) bool { return errors.Is(err, ErrForeignKeyViolation) }
func IsNotNullViolation(err error) bool    { return errors.Is(err, ErrNotNullViolation) }
func IsCheckViolation(err error) bool      { return errors.Is(err, ErrCheckViolation) }
func IsDeadlock(err error) bool            { return errors.Is(err, ErrDeadlock) }
func IsTimeout(err error) bool             { return errors.Is(err, ErrTimeout) }

// IsConstraintViolation reports whether err is any integrity constraint
// failure raised by the backend.
func IsConstraintViolation(err error) bool {
	return IsDuplicateKey(err) || IsForeignKeyViolation(err) ||
		IsNotNullViolation(err) || IsCheckViolation(err)
}

// ─────────────────────────────────────────────────────────────────────────────
// DBError: rich error type preserving original driver error
// ─────────────────────────────────────────────────────────────────────────────

// DBError wraps a sentinel error with the original driver error so callers can
// either use errors.Is(err, ErrDuplicateKey) for simple checks or inspect the
// raw driver error for the backend's native message.
type DBError struct {
	// Sentinel is one of the package-level Err* variables.
	Sentinel error
	// Cause is the original driver error.
	Cause error
}

func (e *DBError) Error() string {
	return fmt.Sprintf("%s (cause: %v)", e.Sentinel, e.Cause)
}

func (e *DBError) Is(target error) bool { return errors.Is(e.Sentinel, target) }
func (e *DBError) Unwrap() error        { return e.Cause }

// ─────────────────────────────────────────────────────────────────────────────
// ErrorMapper interface: pluggable per driver
// ─────────────────────────────────────────────────────────────────────────────

// ErrorMapper translates raw driver errors into the package's sentinel errors.
// A mapper returns err unchanged when it does not recognise it.
type ErrorMapper interface {
	Map(err error) error
}

// ErrorMapperFunc is a convenience adapter from a function to ErrorMapper.
type ErrorMapperFunc func(error) error

func (f ErrorMapperFunc) Map(err error) error { return f(err) }

// ─────────────────────────────────────────────────────────────────────────────
// Default mapper: generic cases plus every built-in driver
// ─────────────────────────────────────────────────────────────────────────────

// DefaultErrorMapper returns a mapper that handles database/sql and context
// sentinels and then tries each built-in driver's typed errors.
func DefaultErrorMapper() ErrorMapper {
	return ErrorMapperFunc(defaultMap)
}

func defaultMap(err error) error {
	if err == nil {
		return nil
	}

	// Already mapped: do not double-wrap
	var dbe *DBError
	if errors.As(err, &dbe) {
		return err
	}

	if errors.Is(err, sql.ErrNoRows) {
		return &DBError{Sentinel: ErrNotFound, Cause: err}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &DBError{Sentinel: ErrTimeout, Cause: err}
	}

	for _, m := range []func(error) error{
		mapSQLiteError,
		mapPQError,
		mapSQLStateError,
		mapMySQLError,
		mapByMessage,
	} {
		if mapped := m(err); mapped != nil {
			return mapped
		}
	}
	return err
}

// mapSQLStateError covers drivers (pgx and friends) that expose SQLSTATE
// through a method rather than a concrete type we import.
func mapSQLStateError(err error) error {
	type sqlStater interface {
		SQLState() string
	}
	var s sqlStater
	if !errors.As(err, &s) {
		return nil
	}
	return mapBySQLState(s.SQLState(), err)
}

// mapBySQLState maps SQLSTATE codes:
// https://www.postgresql.org/docs/current/errcodes-appendix.html
func mapBySQLState(code string, cause error) error {
	switch code {
	case "23505": // unique_violation
		return &DBError{Sentinel: ErrDuplicateKey, Cause: cause}
	case "23503": // foreign_key_violation
		return &DBError{Sentinel: ErrForeignKeyViolation, Cause: cause}
	case "23502": // not_null_violation
		return &DBError{Sentinel: ErrNotNullViolation, Cause: cause}
	case "23514": // check_violation
		return &DBError{Sentinel: ErrCheckViolation, Cause: cause}
	case "40P01": // deadlock_detected
		return &DBError{Sentinel: ErrDeadlock, Cause: cause}
	case "57014": // query_canceled (statement_timeout)
		return &DBError{Sentinel: ErrTimeout, Cause: cause}
	case "08000", "08003", "08006", "08001", "08004", "08007", "08P01":
		return &DBError{Sentinel: ErrConnectionFailed, Cause: cause}
	}
	return nil
}

// mapByMessage is the last resort for errors that lost their type on the way
// up (wrapped with %v, returned by a proxy, ...).
func mapByMessage(err error) error {
	s := err.Error()
	switch {
	case strings.Contains(s, "UNIQUE constraint failed"),
		strings.Contains(s, "(SQLSTATE 23505)"):
		return &DBError{Sentinel: ErrDuplicateKey, Cause: err}
	case strings.Contains(s, "FOREIGN KEY constraint failed"),
		strings.Contains(s, "(SQLSTATE 23503)"):
		return &DBError{Sentinel: ErrForeignKeyViolation, Cause: err}
	case strings.Contains(s, "NOT NULL constraint failed"),
		strings.Contains(s, "(SQLSTATE 23502)"):
		return &DBError{Sentinel: ErrNotNullViolation, Cause: err}
	case strings.Contains(s, "CHECK constraint failed"):
		return &DBError{Sentinel: ErrCheckViolation, Cause: err}
	case strings.Contains(s, "database is locked"):
		return &DBError{Sentinel: ErrDeadlock, Cause: err}
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// ChainMapper: compose multiple mappers (first match wins)
// ─────────────────────────────────────────────────────────────────────────────

// ChainMapper returns an ErrorMapper that tries each mapper in order,
// returning the first result that differs from the input.
func ChainMapper(mappers ...ErrorMapper) ErrorMapper {
	return ErrorMapperFunc(func(err error) error {
		if err == nil {
			return nil
		}
		for _, m := range mappers {
			if mapped := m.Map(err); mapped != err {
				return mapped
			}
		}
		return err
	})
}
