package models

import (
	"fmt"
	"log/slog"
)

// UserAuth is a row in "user_auth". ID is both its primary key and the
// foreign key to the owning user, which makes the relation one-to-one.
type UserAuth struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
}

// SetPassword stores the SHA-256 hex digest of password. The plaintext is
// never kept.
func (a *UserAuth) SetPassword(password string) {
	a.PasswordHash = SHA256Hasher{}.hash(password)
}

// SetPasswordWith hashes password with h.
func (a *UserAuth) SetPasswordWith(h Hasher, password string) error {
	hash, err := h.Hash(password)
	if err != nil {
		return fmt.Errorf("models: hash password: %w", err)
	}
	a.PasswordHash = hash
	return nil
}

// CheckPassword reports whether password hashes to the stored digest. The
// scheme is recognised from the stored hash, so records written with either
// built-in hasher verify here.
func (a *UserAuth) CheckPassword(password string) bool {
	return HasherFor(a.PasswordHash).Compare(a.PasswordHash, password)
}

// CheckPasswordWith verifies password with h only.
func (a *UserAuth) CheckPasswordWith(h Hasher, password string) bool {
	return h.Compare(a.PasswordHash, password)
}

func (a *UserAuth) String() string {
	return fmt.Sprintf("<UserAuth(username=%s, email=%s)>", a.Username, a.Email)
}

func (a *UserAuth) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("id", a.ID),
		slog.String("username", a.Username),
		slog.String("email", a.Email),
	)
}
