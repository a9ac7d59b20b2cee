// Pluggable driver abstraction layer. Each driver adapter normalises
// connection strings, adjusts pool settings the backend needs and maps the
// backend's typed errors onto the package sentinels.

package db

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// ─────────────────────────────────────────────────────────────────────────────
// Driver interface
// ─────────────────────────────────────────────────────────────────────────────

// Driver encapsulates database-specific behaviour:
//   - normalising a user-supplied connection string
//   - tuning pool settings the backend depends on
//   - providing a driver-specific ErrorMapper
//
// Implement Driver to add support for a new database without modifying the
// core package.
type Driver interface {
	// Name returns the name passed to sql.Register, e.g. "postgres", "mysql".
	Name() string

	// DSN returns the connection string actually handed to sql.Open.
	DSN(raw string) (string, error)

	// Tune adjusts cfg before the pool is created.
	Tune(cfg *Config)

	// ErrorMapper returns a mapper tuned to this driver's error types.
	ErrorMapper() ErrorMapper
}

// ─────────────────────────────────────────────────────────────────────────────
// Driver registry
// ─────────────────────────────────────────────────────────────────────────────

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]Driver)
)

// RegisterDriver adds a Driver to the global registry.
// Panics if a driver with the same name is already registered (use ReplaceDriver
// to override).
func RegisterDriver(d Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if _, ok := drivers[d.Name()]; ok {
		panic(fmt.Sprintf("entitymap/db: driver %q already registered", d.Name()))
	}
	drivers[d.Name()] = d
}

// ReplaceDriver upserts a driver in the registry (no panic on collision).
func ReplaceDriver(d Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()
	drivers[d.Name()] = d
}

// LookupDriver returns the registered Driver by name or an error.
func LookupDriver(name string) (Driver, error) {
	driversMu.RLock()
	defer driversMu.RUnlock()
	d, ok := drivers[name]
	if !ok {
		return nil, fmt.Errorf("entitymap/db: driver %q not registered", name)
	}
	return d, nil
}

func init() {
	RegisterDriver(SQLiteDriver{})
	RegisterDriver(PostgresDriver{})
	RegisterDriver(MySQLDriver{})
}

// ─────────────────────────────────────────────────────────────────────────────
// SQLite driver adapter (mattn/go-sqlite3)
// ─────────────────────────────────────────────────────────────────────────────

// SQLiteDriver is the built-in mattn/go-sqlite3 adapter.
type SQLiteDriver struct{}

func (SQLiteDriver) Name() string { return "sqlite3" }

// DSN switches on foreign key enforcement, which SQLite leaves off per
// connection unless asked.
func (SQLiteDriver) DSN(raw string) (string, error) {
	if raw == "" {
		return "", errors.New("sqlite3 driver: DSN (file path or :memory:) is required")
	}
	if strings.Contains(raw, "_foreign_keys=") || strings.Contains(raw, "_fk=") {
		return raw, nil
	}
	sep := "?"
	if strings.Contains(raw, "?") {
		sep = "&"
	}
	return raw + sep + "_foreign_keys=1", nil
}

// Tune pins in-memory databases to a single connection: every new
// connection to ":memory:" would otherwise open a fresh, empty database.
func (SQLiteDriver) Tune(cfg *Config) {
	if !IsMemoryDSN(cfg.DSN) {
		return
	}
	cfg.MaxOpenConns = 1
	cfg.MaxIdleConns = 1
	cfg.ConnMaxLifetime = 0
	cfg.ConnMaxIdleTime = 0
}

func (SQLiteDriver) ErrorMapper() ErrorMapper {
	return ErrorMapperFunc(func(err error) error {
		if mapped := mapSQLiteError(err); mapped != nil {
			return mapped
		}
		return err
	})
}

// IsMemoryDSN reports whether dsn addresses an in-memory SQLite database.
func IsMemoryDSN(dsn string) bool {
	return strings.HasPrefix(dsn, ":memory:") ||
		strings.HasPrefix(dsn, "file::memory:") ||
		strings.Contains(dsn, "mode=memory")
}

func mapSQLiteError(err error) error {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return nil
	}
	switch se.ExtendedCode {
	case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
		return &DBError{Sentinel: ErrDuplicateKey, Cause: err}
	case sqlite3.ErrConstraintForeignKey:
		return &DBError{Sentinel: ErrForeignKeyViolation, Cause: err}
	case sqlite3.ErrConstraintNotNull:
		return &DBError{Sentinel: ErrNotNullViolation, Cause: err}
	case sqlite3.ErrConstraintCheck:
		return &DBError{Sentinel: ErrCheckViolation, Cause: err}
	}
	switch se.Code {
	case sqlite3.ErrBusy, sqlite3.ErrLocked:
		return &DBError{Sentinel: ErrDeadlock, Cause: err}
	case sqlite3.ErrCantOpen:
		return &DBError{Sentinel: ErrConnectionFailed, Cause: err}
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// PostgreSQL driver adapter (lib/pq)
// ─────────────────────────────────────────────────────────────────────────────

// PostgresDriver is the built-in lib/pq adapter.
type PostgresDriver struct{}

func (PostgresDriver) Name() string { return "postgres" }

func (PostgresDriver) DSN(raw string) (string, error) {
	if raw == "" {
		return "", errors.New("postgres driver: DSN is required")
	}
	if strings.HasPrefix(raw, "postgres://") || strings.HasPrefix(raw, "postgresql://") {
		if _, err := url.Parse(raw); err != nil {
			return "", fmt.Errorf("postgres driver: %w", err)
		}
	}
	return raw, nil
}

func (PostgresDriver) Tune(*Config) {}

func (PostgresDriver) ErrorMapper() ErrorMapper {
	return ErrorMapperFunc(func(err error) error {
		if mapped := mapPQError(err); mapped != nil {
			return mapped
		}
		return err
	})
}

func mapPQError(err error) error {
	var pe *pq.Error
	if !errors.As(err, &pe) {
		return nil
	}
	return mapBySQLState(string(pe.Code), err)
}

// ─────────────────────────────────────────────────────────────────────────────
// MySQL driver adapter (go-sql-driver/mysql)
// ─────────────────────────────────────────────────────────────────────────────

// MySQLDriver is the built-in go-sql-driver/mysql adapter.
type MySQLDriver struct{}

func (MySQLDriver) Name() string { return "mysql" }

// DSN validates the connection string with the driver's own parser.
func (MySQLDriver) DSN(raw string) (string, error) {
	if raw == "" {
		return "", errors.New("mysql driver: DSN is required")
	}
	cfg, err := mysql.ParseDSN(raw)
	if err != nil {
		return "", fmt.Errorf("mysql driver: %w", err)
	}
	return cfg.FormatDSN(), nil
}

func (MySQLDriver) Tune(*Config) {}

func (MySQLDriver) ErrorMapper() ErrorMapper {
	return ErrorMapperFunc(func(err error) error {
		if mapped := mapMySQLError(err); mapped != nil {
			return mapped
		}
		return err
	})
}

func mapMySQLError(err error) error {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return nil
	}
	switch me.Number {
	case 1062: // ER_DUP_ENTRY
		return &DBError{Sentinel: ErrDuplicateKey, Cause: err}
	case 1452, 1216, 1217, 1451: // ER_NO_REFERENCED_ROW(_2), ER_ROW_IS_REFERENCED(_2)
		return &DBError{Sentinel: ErrForeignKeyViolation, Cause: err}
	case 1048, 1364: // ER_BAD_NULL_ERROR, ER_NO_DEFAULT_FOR_FIELD
		return &DBError{Sentinel: ErrNotNullViolation, Cause: err}
	case 3819: // ER_CHECK_CONSTRAINT_VIOLATED
		return &DBError{Sentinel: ErrCheckViolation, Cause: err}
	case 1213: // ER_LOCK_DEADLOCK
		return &DBError{Sentinel: ErrDeadlock, Cause: err}
	case 3024: // ER_QUERY_TIMEOUT
		return &DBError{Sentinel: ErrTimeout, Cause: err}
	case 1045, 2002, 2003, 2006, 2013:
		return &DBError{Sentinel: ErrConnectionFailed, Cause: err}
	}
	return nil
}
