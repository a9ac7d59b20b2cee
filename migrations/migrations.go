// Package migrations embeds the versioned schema of the users tables for
// every supported backend and applies it through golang-migrate.
package migrations

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/hitec-hamburg/entitymap/db"
	"github.com/hitec-hamburg/entitymap/schema"
)

//go:embed sqlite3/*.sql postgres/*.sql mysql/*.sql
var files embed.FS

// Source returns the embedded migrations for a driver name as accepted by
// schema.DialectFor.
func Source(driverName string) (source.Driver, error) {
	d, err := schema.DialectFor(driverName)
	if err != nil {
		return nil, err
	}
	src, err := iofs.New(files, d.Name())
	if err != nil {
		return nil, fmt.Errorf("migrations: %s source: %w", d.Name(), err)
	}
	return src, nil
}

// New builds a migrator over an open connection. The migrator borrows d's
// pool; callers close d, not the migrator, when the database is in memory.
func New(d *db.DB, logger *slog.Logger) (*migrate.Migrate, error) {
	dialect, err := schema.DialectFor(d.DriverName())
	if err != nil {
		return nil, err
	}
	src, err := Source(dialect.Name())
	if err != nil {
		return nil, err
	}

	var drv database.Driver
	switch dialect.Name() {
	case "sqlite3":
		drv, err = migratesqlite.WithInstance(d.Raw(), &migratesqlite.Config{})
	case "postgres":
		drv, err = migratepostgres.WithInstance(d.Raw(), &migratepostgres.Config{})
	case "mysql":
		drv, err = migratemysql.WithInstance(d.Raw(), &migratemysql.Config{})
	}
	if err != nil {
		return nil, fmt.Errorf("migrations: %s driver: %w", dialect.Name(), err)
	}

	m, err := migrate.NewWithInstance("iofs", src, dialect.Name(), drv)
	if err != nil {
		return nil, fmt.Errorf("migrations: init: %w", err)
	}
	m.Log = NewLogger(logger)
	return m, nil
}

// Up applies every pending migration. An up-to-date schema is not an error.
// Cancelling ctx stops after the migration in flight.
func Up(ctx context.Context, d *db.DB, logger *slog.Logger) error {
	m, err := New(d, logger)
	if err != nil {
		return err
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			m.GracefulStop <- true
		case <-done:
		}
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrations: up: %w", err)
	}
	return ctx.Err()
}

// ─────────────────────────────────────────────────────────────────────────────

// Logger adapts slog to migrate.Logger.
type Logger struct {
	l *slog.Logger
}

// NewLogger wraps l; nil means slog.Default().
func NewLogger(l *slog.Logger) *Logger {
	if l == nil {
		l = slog.Default()
	}
	return &Logger{l: l}
}

func (l *Logger) Printf(format string, v ...any) {
	l.l.Info(strings.TrimSpace(fmt.Sprintf(format, v...)), slog.String("component", "migrate"))
}

func (l *Logger) Verbose() bool { return l.l.Enabled(context.Background(), slog.LevelDebug) }
