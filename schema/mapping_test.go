package schema_test

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitec-hamburg/entitymap/db"
	"github.com/hitec-hamburg/entitymap/schema"
)

type user struct {
	ID       int64
	Username string
	Email    string
}

type post struct {
	ID      int64
	UserID  int64
	Content string
}

var (
	userMapping = schema.Mapping[user]{
		Table:  usersTable,
		Fields: func(u *user) []any { return []any{&u.ID, &u.Username, &u.Email} },
	}
	postMapping = schema.Mapping[post]{
		Table:  postsTable,
		Fields: func(p *post) []any { return []any{&p.ID, &p.UserID, &p.Content} },
	}
)

func TestMapping_RoundTripSQLite(t *testing.T) {
	d := openMemory(t)
	ctx := context.Background()
	require.NoError(t, usersMetadata().CreateAll(ctx, d))

	a := &user{Username: "zeynep", Email: "zeynep.birinci@hitec-hamburg.de"}
	b := &user{Username: "hitec-user", Email: "hitec-user@hitec-hamburg.de"}
	require.NoError(t, userMapping.Insert(ctx, d, a))
	require.NoError(t, userMapping.Insert(ctx, d, b))
	assert.NotZero(t, a.ID)
	assert.Greater(t, b.ID, a.ID)

	got, err := userMapping.One(ctx, d, usersTable.Select().Where("username", "zeynep"))
	require.NoError(t, err)
	assert.Equal(t, a, got)

	all, err := userMapping.All(ctx, d, usersTable.Select().OrderBy("id"))
	require.NoError(t, err)
	assert.Equal(t, []*user{a, b}, all)

	n, err := userMapping.Count(ctx, d, usersTable.Select())
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestMapping_ExplicitKeyIsKept(t *testing.T) {
	d := openMemory(t)
	ctx := context.Background()
	require.NoError(t, usersMetadata().CreateAll(ctx, d))

	u := &user{ID: 40, Username: "fixed", Email: "fixed@example.com"}
	require.NoError(t, userMapping.Insert(ctx, d, u))
	assert.EqualValues(t, 40, u.ID)

	_, err := userMapping.One(ctx, d, usersTable.Select().Where("id", 40))
	require.NoError(t, err)
}

func TestMapping_OneNotFound(t *testing.T) {
	d := openMemory(t)
	ctx := context.Background()
	require.NoError(t, usersMetadata().CreateAll(ctx, d))

	_, err := userMapping.One(ctx, d, usersTable.Select().Where("username", "ghost"))
	assert.True(t, db.IsNotFound(err))

	all, err := userMapping.All(ctx, d, usersTable.Select().Where("username", "ghost"))
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestMapping_ForeignKeyViolation(t *testing.T) {
	d := openMemory(t)
	ctx := context.Background()
	require.NoError(t, usersMetadata().CreateAll(ctx, d))

	err := postMapping.Insert(ctx, d, &post{UserID: 12, Content: "orphan"})
	assert.True(t, db.IsForeignKeyViolation(err), "got %v", err)
}

func TestMapping_WrongTableQuery(t *testing.T) {
	d := openMemory(t)
	ctx := context.Background()

	_, err := userMapping.One(ctx, d, postsTable.Select())
	assert.Error(t, err)
	_, err = userMapping.All(ctx, d, postsTable.Select())
	assert.Error(t, err)
}

func TestMapping_FieldCountMismatch(t *testing.T) {
	d := openMemory(t)
	broken := schema.Mapping[user]{
		Table:  usersTable,
		Fields: func(u *user) []any { return []any{&u.ID, &u.Username} },
	}
	err := broken.Insert(context.Background(), d, &user{Username: "x"})
	assert.Error(t, err)
}

func TestMapping_PostgresUsesReturning(t *testing.T) {
	sqldb, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqldb.Close()
	d := db.New(sqldb, db.Config{DriverName: "postgres"})

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "users" ("username", "email") VALUES ($1, $2) RETURNING "id"`)).
		WithArgs("zeynep", "z@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	u := &user{Username: "zeynep", Email: "z@example.com"}
	require.NoError(t, userMapping.Insert(context.Background(), d, u))
	assert.EqualValues(t, 7, u.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMapping_MySQLUsesLastInsertID(t *testing.T) {
	sqldb, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqldb.Close()
	d := db.New(sqldb, db.Config{DriverName: "mysql"})

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `user_posts` (`user_id`, `content`) VALUES (?, ?)")).
		WithArgs(int64(3), "hi").
		WillReturnResult(sqlmock.NewResult(11, 1))

	p := &post{UserID: 3, Content: "hi"}
	require.NoError(t, postMapping.Insert(context.Background(), d, p))
	assert.EqualValues(t, 11, p.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMapping_PostgresSelect(t *testing.T) {
	sqldb, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqldb.Close()
	d := db.New(sqldb, db.Config{DriverName: "postgres"})

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id", "user_id", "content" FROM "user_posts" WHERE "user_id" = $1 ORDER BY "id"`)).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "content"}).
			AddRow(1, 3, "first").
			AddRow(2, 3, "second"))

	got, err := postMapping.All(context.Background(), d, postsTable.Select().Where("user_id", int64(3)).OrderBy("id"))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "second", got[1].Content)
	assert.NoError(t, mock.ExpectationsWereMet())
}
