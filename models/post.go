package models

import (
	"fmt"
	"log/slog"
)

// UserPost is a row in "user_posts", owned by exactly one user.
type UserPost struct {
	ID      int64
	UserID  int64
	Content string
}

func (p *UserPost) String() string {
	return fmt.Sprintf("<UserPost(user_id=%d, content=%s)>", p.UserID, p.Content)
}

func (p *UserPost) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("id", p.ID),
		slog.Int64("user_id", p.UserID),
		slog.String("content", p.Content),
	)
}
