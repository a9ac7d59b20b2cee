package repo

import (
	"context"

	"github.com/hitec-hamburg/entitymap/db"
	"github.com/hitec-hamburg/entitymap/models"
)

// Unit collects new records and writes them in a single transaction: either
// every row lands or none does.
//
//	u := models.NewUser("zeynep", "zeynep@example.com", "password")
//	u.AddPost("Hello World!")
//	err := repo.NewUnit().Add(u).Commit(ctx, database)
type Unit struct {
	users []*models.User
	posts []*models.UserPost
}

// NewUnit returns an empty unit of work.
func NewUnit() *Unit { return &Unit{} }

// Add queues users together with their Auth record and Posts.
func (u *Unit) Add(users ...*models.User) *Unit {
	u.users = append(u.users, users...)
	return u
}

// AddPosts queues posts for users that already exist; each post's UserID
// must be set.
func (u *Unit) AddPosts(posts ...*models.UserPost) *Unit {
	u.posts = append(u.posts, posts...)
	return u
}

// Pending reports how many top-level records are queued.
func (u *Unit) Pending() int { return len(u.users) + len(u.posts) }

// Commit writes everything queued. Users are inserted first, then each
// user's auth record (sharing the user's id) and posts, then standalone
// posts. On success the unit is emptied. On failure the transaction is
// rolled back, keys assigned during the attempt are reset to their previous
// values and the queue is kept.
func (u *Unit) Commit(ctx context.Context, d *db.DB) error {
	var undo []func()
	save := func(p *int64) {
		old := *p
		undo = append(undo, func() { *p = old })
	}

	err := d.ExecTx(ctx, func(tx *db.Tx) error {
		users, auths, posts := NewUserRepo(tx), NewAuthRepo(tx), NewPostRepo(tx)

		for _, usr := range u.users {
			save(&usr.ID)
			if err := users.Insert(ctx, usr); err != nil {
				return err
			}
			if usr.Auth != nil {
				save(&usr.Auth.ID)
				usr.Auth.ID = usr.ID
				if err := auths.Insert(ctx, usr.Auth); err != nil {
					return err
				}
			}
			for _, p := range usr.Posts {
				save(&p.ID)
				save(&p.UserID)
				p.UserID = usr.ID
				if err := posts.Insert(ctx, p); err != nil {
					return err
				}
			}
		}

		for _, p := range u.posts {
			save(&p.ID)
			if err := posts.Insert(ctx, p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
		return err
	}

	u.users, u.posts = nil, nil
	return nil
}
