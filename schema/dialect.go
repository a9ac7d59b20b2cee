package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect covers the SQL differences between the supported backends.
type Dialect interface {
	// Name matches the database/sql driver name.
	Name() string
	Quote(ident string) string
	// Placeholder returns the bind marker for the n-th argument, 1-based.
	Placeholder(n int) string
	// ColumnType returns the SQL type of c, including the auto-increment
	// keyword where the dialect spells it on the type.
	ColumnType(c Column) string
	// Returning reports whether generated keys are read back with
	// INSERT ... RETURNING instead of LastInsertId.
	Returning() bool
	// InlineIndexes reports whether indexes are declared inside
	// CREATE TABLE rather than with CREATE INDEX IF NOT EXISTS.
	InlineIndexes() bool
}

// DialectFor returns the dialect for a database/sql driver name.
func DialectFor(driverName string) (Dialect, error) {
	switch driverName {
	case "sqlite3", "sqlite":
		return SQLite{}, nil
	case "postgres", "postgresql", "pgx":
		return Postgres{}, nil
	case "mysql":
		return MySQL{}, nil
	}
	return nil, fmt.Errorf("entitymap/schema: no dialect for driver %q", driverName)
}

// SQLite renders SQL for mattn/go-sqlite3.
type SQLite struct{}

func (SQLite) Name() string              { return "sqlite3" }
func (SQLite) Quote(ident string) string { return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"` }
func (SQLite) Placeholder(int) string    { return "?" }
func (SQLite) Returning() bool           { return false }
func (SQLite) InlineIndexes() bool       { return false }

// ColumnType relies on INTEGER PRIMARY KEY aliasing the rowid, which makes
// the key auto-assigned without the AUTOINCREMENT keyword.
func (SQLite) ColumnType(c Column) string {
	if c.Type == Integer {
		return "INTEGER"
	}
	return "TEXT"
}

// Postgres renders SQL for lib/pq.
type Postgres struct{}

func (Postgres) Name() string              { return "postgres" }
func (Postgres) Quote(ident string) string { return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"` }
func (Postgres) Placeholder(n int) string  { return "$" + strconv.Itoa(n) }
func (Postgres) Returning() bool           { return true }
func (Postgres) InlineIndexes() bool       { return false }

func (Postgres) ColumnType(c Column) string {
	if c.Type != Integer {
		return "TEXT"
	}
	if c.PrimaryKey && c.AutoIncrement {
		return "BIGSERIAL"
	}
	return "BIGINT"
}

// MySQL renders SQL for go-sql-driver/mysql.
type MySQL struct{}

func (MySQL) Name() string              { return "mysql" }
func (MySQL) Quote(ident string) string { return "`" + strings.ReplaceAll(ident, "`", "``") + "`" }
func (MySQL) Placeholder(int) string    { return "?" }
func (MySQL) Returning() bool           { return false }
func (MySQL) InlineIndexes() bool       { return true }

// ColumnType bounds indexed text columns, since MySQL cannot index an
// unbounded TEXT without a prefix length.
func (MySQL) ColumnType(c Column) string {
	if c.Type != Integer {
		if c.Index || c.Unique || c.PrimaryKey {
			return "VARCHAR(255)"
		}
		return "TEXT"
	}
	if c.PrimaryKey && c.AutoIncrement {
		return "BIGINT AUTO_INCREMENT"
	}
	return "BIGINT"
}
