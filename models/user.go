// Package models holds the plain records of the users schema and their
// table definitions. Records carry no connection and no back-references;
// relations are resolved through the repo package by foreign key.
package models

import (
	"fmt"
	"log/slog"
)

// User is a row in the "users" table. Auth and Posts are not columns: they
// are filled by repo.UserRepository.Load and written by repo.Unit.
type User struct {
	ID       int64
	Username string
	Email    string

	Auth  *UserAuth
	Posts []*UserPost
}

// NewUser builds a user together with its auth record, the password already
// hashed with the default scheme.
func NewUser(username, email, password string) *User {
	auth := &UserAuth{Username: username, Email: email}
	auth.SetPassword(password)
	return &User{Username: username, Email: email, Auth: auth}
}

// NewUserWithHasher is NewUser with an explicit password scheme.
func NewUserWithHasher(h Hasher, username, email, password string) (*User, error) {
	auth := &UserAuth{Username: username, Email: email}
	if err := auth.SetPasswordWith(h, password); err != nil {
		return nil, err
	}
	return &User{Username: username, Email: email, Auth: auth}, nil
}

// AddPost attaches a new post to u. The post's UserID is set when u is
// committed.
func (u *User) AddPost(content string) *UserPost {
	p := &UserPost{UserID: u.ID, Content: content}
	u.Posts = append(u.Posts, p)
	return p
}

func (u *User) String() string {
	return fmt.Sprintf("<User(id=%d, username=%s, email=%s)>", u.ID, u.Username, u.Email)
}

func (u *User) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("id", u.ID),
		slog.String("username", u.Username),
		slog.String("email", u.Email),
	)
}
