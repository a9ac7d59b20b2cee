package models_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitec-hamburg/entitymap/models"
)

const passwordDigest = "5e884898da28047151d0e56f8dc6292773603d0d6aabbdd62a11ef721d1542d8"

func TestSetPassword_SHA256(t *testing.T) {
	a := &models.UserAuth{}
	a.SetPassword("password")

	assert.Equal(t, passwordDigest, a.PasswordHash)
	assert.True(t, a.CheckPassword("password"))
	assert.False(t, a.CheckPassword("wrongpassword"))
	assert.False(t, a.CheckPassword(""))
}

func TestSHA256Hasher_Deterministic(t *testing.T) {
	h := models.SHA256Hasher{}
	a, err := h.Hash("secret")
	require.NoError(t, err)
	b, err := h.Hash("secret")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
	assert.Equal(t, strings.ToLower(a), a)
}

func TestBcryptHasher(t *testing.T) {
	a := &models.UserAuth{}
	require.NoError(t, a.SetPasswordWith(models.BcryptHasher{Cost: 4}, "password"))

	assert.True(t, strings.HasPrefix(a.PasswordHash, "$2"))
	assert.NotContains(t, a.PasswordHash, "password")
	assert.True(t, a.CheckPassword("password"), "scheme is detected from the hash")
	assert.False(t, a.CheckPassword("wrongpassword"))
	assert.True(t, a.CheckPasswordWith(models.BcryptHasher{}, "password"))
	assert.False(t, a.CheckPasswordWith(models.SHA256Hasher{}, "password"))
}

func TestBcryptHasher_InvalidCost(t *testing.T) {
	a := &models.UserAuth{}
	err := a.SetPasswordWith(models.BcryptHasher{Cost: 99}, "password")
	assert.Error(t, err)
	assert.Empty(t, a.PasswordHash)
}

func TestHasherByName(t *testing.T) {
	for name, want := range map[string]models.Hasher{
		"":       models.SHA256Hasher{},
		"sha256": models.SHA256Hasher{},
		"bcrypt": models.BcryptHasher{},
	} {
		got, ok := models.HasherByName(name)
		require.True(t, ok, name)
		assert.IsType(t, want, got, name)
	}
	_, ok := models.HasherByName("md5")
	assert.False(t, ok)
}

func TestHasherFor(t *testing.T) {
	assert.IsType(t, models.SHA256Hasher{}, models.HasherFor(passwordDigest))
	assert.IsType(t, models.BcryptHasher{}, models.HasherFor("$2a$04$abcdefghijklmnopqrstuv"))
}

func TestNewUser(t *testing.T) {
	u := models.NewUser("zeynep", "zeynep.birinci@hitec-hamburg.de", "password")

	require.NotNil(t, u.Auth)
	assert.Zero(t, u.ID)
	assert.Equal(t, "zeynep", u.Auth.Username)
	assert.Equal(t, u.Email, u.Auth.Email)
	assert.Equal(t, passwordDigest, u.Auth.PasswordHash)
	assert.Empty(t, u.Posts)
}

func TestNewUserWithHasher(t *testing.T) {
	u, err := models.NewUserWithHasher(models.BcryptHasher{Cost: 4}, "zeynep", "z@example.com", "password")
	require.NoError(t, err)
	assert.True(t, u.Auth.CheckPassword("password"))

	_, err = models.NewUserWithHasher(models.BcryptHasher{Cost: 99}, "zeynep", "z@example.com", "password")
	assert.Error(t, err)
}

func TestAddPost(t *testing.T) {
	u := models.NewUser("zeynep", "z@example.com", "password")
	p := u.AddPost("Hello World!")
	u.AddPost("Second")

	require.Len(t, u.Posts, 2)
	assert.Same(t, p, u.Posts[0])
	assert.Zero(t, p.UserID, "not committed yet")

	u.ID = 5
	q := u.AddPost("after commit")
	assert.EqualValues(t, 5, q.UserID)
}

func TestString(t *testing.T) {
	u := &models.User{ID: 1, Username: "zeynep", Email: "z@example.com"}
	assert.Equal(t, "<User(id=1, username=zeynep, email=z@example.com)>", u.String())

	a := &models.UserAuth{ID: 1, Username: "zeynep", Email: "z@example.com", PasswordHash: passwordDigest}
	assert.Equal(t, "<UserAuth(username=zeynep, email=z@example.com)>", a.String())

	p := &models.UserPost{ID: 1, UserID: 1, Content: "Hello World!"}
	assert.Equal(t, "<UserPost(user_id=1, content=Hello World!)>", p.String())
}

func TestLogValue_HidesPasswordHash(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	a := &models.UserAuth{ID: 1, Username: "zeynep", Email: "z@example.com", PasswordHash: passwordDigest}
	logger.Info("auth", "auth", a)
	logger.Info("user", "user", &models.User{ID: 1, Username: "zeynep", Auth: a})

	out := buf.String()
	assert.Contains(t, out, "auth.username=zeynep")
	assert.Contains(t, out, "user.id=1")
	assert.NotContains(t, out, passwordDigest)
}

func TestMetadata_IsValid(t *testing.T) {
	require.NoError(t, models.Metadata.Validate())

	var names []string
	for _, tbl := range models.Metadata.Tables() {
		names = append(names, tbl.Name)
	}
	assert.Equal(t, []string{"users", "user_auth", "user_posts"}, names)
	assert.Len(t, models.Metadata.Relations(), 2)
}
