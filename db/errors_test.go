package db_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitec-hamburg/entitymap/db"
)

func newMockDB(t *testing.T, driver string) (*db.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqldb, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqldb.Close() })
	return db.New(sqldb, db.Config{DriverName: driver}), mock
}

func TestErrorMapping_Postgres(t *testing.T) {
	tests := []struct {
		code string
		want error
	}{
		{"23505", db.ErrDuplicateKey},
		{"23503", db.ErrForeignKeyViolation},
		{"23502", db.ErrNotNullViolation},
		{"23514", db.ErrCheckViolation},
		{"40P01", db.ErrDeadlock},
		{"57014", db.ErrTimeout},
		{"08006", db.ErrConnectionFailed},
	}
	for _, tc := range tests {
		t.Run(tc.code, func(t *testing.T) {
			d, mock := newMockDB(t, "postgres")
			native := &pq.Error{Code: pq.ErrorCode(tc.code), Message: "native " + tc.code}
			mock.ExpectExec("INSERT INTO users").WillReturnError(native)

			_, err := d.Exec(context.Background(), `INSERT INTO users (username) VALUES ($1)`, "x")
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)

			var pe *pq.Error
			require.ErrorAs(t, err, &pe, "native error stays reachable")
			assert.Contains(t, err.Error(), "native "+tc.code)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestErrorMapping_MySQL(t *testing.T) {
	tests := []struct {
		number uint16
		want   error
	}{
		{1062, db.ErrDuplicateKey},
		{1452, db.ErrForeignKeyViolation},
		{1048, db.ErrNotNullViolation},
		{3819, db.ErrCheckViolation},
		{1213, db.ErrDeadlock},
		{3024, db.ErrTimeout},
		{2003, db.ErrConnectionFailed},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprint(tc.number), func(t *testing.T) {
			d, mock := newMockDB(t, "mysql")
			mock.ExpectExec("INSERT INTO users").WillReturnError(&mysql.MySQLError{Number: tc.number, Message: "native"})

			_, err := d.Exec(context.Background(), "INSERT INTO users (username) VALUES (?)", "x")
			assert.ErrorIs(t, err, tc.want)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestErrorMapping_UnknownPassesThrough(t *testing.T) {
	d, mock := newMockDB(t, "postgres")
	odd := errors.New("something else entirely")
	mock.ExpectExec("UPDATE").WillReturnError(odd)

	_, err := d.Exec(context.Background(), "UPDATE users SET email = $1", "x")
	assert.Same(t, odd, err)
}

func TestErrorMapping_NoRows(t *testing.T) {
	d, mock := newMockDB(t, "postgres")
	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"id"}))

	var id int64
	err := d.QueryRow(context.Background(), "SELECT id FROM users WHERE id = $1", 1).Scan(&id)
	assert.True(t, db.IsNotFound(err))
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestErrorMapping_ByMessage(t *testing.T) {
	d, mock := newMockDB(t, "unregistered")
	mock.ExpectExec("INSERT").WillReturnError(errors.New("UNIQUE constraint failed: user_auth.email"))

	_, err := d.Exec(context.Background(), "INSERT INTO user_auth (email) VALUES (?)", "x")
	assert.True(t, db.IsDuplicateKey(err))
}

func TestExecTx_RollbackOnMappedError(t *testing.T) {
	d, mock := newMockDB(t, "postgres")
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO user_auth").WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	ctx := context.Background()
	err := d.ExecTx(ctx, func(tx *db.Tx) error {
		if _, err := tx.Exec(ctx, "INSERT INTO users (username) VALUES ($1)", "a"); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, "INSERT INTO user_auth (id, email) VALUES ($1, $2)", 1, "a@example.com")
		return err
	})
	assert.True(t, db.IsDuplicateKey(err), "got %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChainMapper_FirstMatchWins(t *testing.T) {
	special := errors.New("special")
	mapped := errors.New("mapped")

	m := db.ChainMapper(
		db.ErrorMapperFunc(func(err error) error {
			if errors.Is(err, special) {
				return mapped
			}
			return err
		}),
		db.DefaultErrorMapper(),
	)

	assert.Same(t, mapped, m.Map(special))
	assert.True(t, db.IsNotFound(m.Map(sql.ErrNoRows)))
	assert.NoError(t, m.Map(nil))
}

func TestDriverRegistry(t *testing.T) {
	for _, name := range []string{"sqlite3", "postgres", "mysql"} {
		drv, err := db.LookupDriver(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, drv.Name())
	}
	_, err := db.LookupDriver("oracle")
	assert.Error(t, err)
}

func TestSQLiteDriver_DSN(t *testing.T) {
	drv := db.SQLiteDriver{}

	got, err := drv.DSN(":memory:")
	require.NoError(t, err)
	assert.Equal(t, ":memory:?_foreign_keys=1", got)

	got, err = drv.DSN("file:app.db?cache=shared")
	require.NoError(t, err)
	assert.Equal(t, "file:app.db?cache=shared&_foreign_keys=1", got)

	got, err = drv.DSN("app.db?_foreign_keys=0")
	require.NoError(t, err)
	assert.Equal(t, "app.db?_foreign_keys=0", got, "explicit setting is kept")

	_, err = drv.DSN("")
	assert.Error(t, err)

	assert.True(t, db.IsMemoryDSN(":memory:"))
	assert.True(t, db.IsMemoryDSN("file:x?mode=memory"))
	assert.False(t, db.IsMemoryDSN("app.db"))
}

func TestMySQLDriver_DSN(t *testing.T) {
	drv := db.MySQLDriver{}
	_, err := drv.DSN("user:pass@tcp(localhost:3306)/app")
	assert.NoError(t, err)
	_, err = drv.DSN("not a dsn")
	assert.Error(t, err)
}
