package demo_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitec-hamburg/entitymap/db"
	"github.com/hitec-hamburg/entitymap/demo"
	"github.com/hitec-hamburg/entitymap/models"
	"github.com/hitec-hamburg/entitymap/repo"
)

func openMemory(t *testing.T) *db.DB {
	t.Helper()
	d, err := db.Open(db.Config{DSN: ":memory:", DriverName: "sqlite3"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, nil)), &buf
}

func TestSimple(t *testing.T) {
	d := openMemory(t)
	logger, buf := bufferLogger()

	row, err := demo.Simple(context.Background(), d, logger)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "zeynep", row.Username)
	assert.Equal(t, "zeynep.birinci@hitec-hamburg.de", row.Email)
	assert.NotZero(t, row.ID)
	assert.Contains(t, buf.String(), "(1, 'zeynep', 'zeynep.birinci@hitec-hamburg.de')")
}

func TestSimple_SchemaIsIdempotent(t *testing.T) {
	d := openMemory(t)
	logger, _ := bufferLogger()
	ctx := context.Background()

	_, err := demo.Simple(ctx, d, logger)
	require.NoError(t, err)
	// Second run reuses the table and still finds the first match.
	row, err := demo.Simple(ctx, d, logger)
	require.NoError(t, err)
	assert.EqualValues(t, 1, row.ID)
}

func TestDeclarative(t *testing.T) {
	d := openMemory(t)
	logger, buf := bufferLogger()

	users, err := demo.Declarative(context.Background(), d, logger)
	require.NoError(t, err)
	require.Len(t, users, 2)

	names := []string{users[0].Username, users[1].Username}
	assert.ElementsMatch(t, []string{"zeynep", "hitec-user"}, names)
	assert.NotEqual(t, users[0].ID, users[1].ID)
	assert.Equal(t, 2, strings.Count(buf.String(), "msg=user"))
}

func TestRelations(t *testing.T) {
	d := openMemory(t)
	logger, buf := bufferLogger()

	res, err := demo.Relations(context.Background(), d, logger, demo.RelationsOptions{})
	require.NoError(t, err)

	require.NotNil(t, res.User)
	require.NotNil(t, res.User.Auth)
	assert.Equal(t, "zeynep.birinci@hitec-hamburg.de", res.User.Auth.Email)
	assert.True(t, res.PasswordOK)
	assert.False(t, res.WrongPasswordOK)
	require.Len(t, res.Posts, 1)
	assert.Equal(t, "Hello World!", res.Posts[0].Content)
	assert.Equal(t, res.User.ID, res.Posts[0].UserID)

	out := buf.String()
	assert.NotContains(t, out, res.User.Auth.PasswordHash, "hashes stay out of the log")
	assert.Contains(t, out, "Hello World!")
}

func TestRelations_WithMigrationsAndBcrypt(t *testing.T) {
	d := openMemory(t)
	logger, _ := bufferLogger()

	res, err := demo.Relations(context.Background(), d, logger, demo.RelationsOptions{
		Hasher:  models.BcryptHasher{Cost: 4},
		Migrate: true,
	})
	require.NoError(t, err)
	assert.True(t, res.PasswordOK)
	assert.False(t, res.WrongPasswordOK)
	assert.True(t, strings.HasPrefix(res.User.Auth.PasswordHash, "$2"))
}

func TestRelations_SecondRunFailsOnDuplicateEmail(t *testing.T) {
	d := openMemory(t)
	logger, _ := bufferLogger()
	ctx := context.Background()

	_, err := demo.Relations(ctx, d, logger, demo.RelationsOptions{})
	require.NoError(t, err)

	_, err = demo.Relations(ctx, d, logger, demo.RelationsOptions{})
	require.Error(t, err)
	assert.True(t, db.IsDuplicateKey(err), "got %v", err)

	n, err := repo.NewUserRepo(d).Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n, "failed run leaves no rows behind")
}
