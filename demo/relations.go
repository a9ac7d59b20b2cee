package demo

import (
	"context"
	"log/slog"

	"github.com/hitec-hamburg/entitymap/db"
	"github.com/hitec-hamburg/entitymap/migrations"
	"github.com/hitec-hamburg/entitymap/models"
	"github.com/hitec-hamburg/entitymap/repo"
)

// RelationsOptions tunes the relations demo.
type RelationsOptions struct {
	// Hasher hashes the demo password; nil means models.SHA256Hasher.
	Hasher models.Hasher
	// Migrate applies the embedded migrations instead of CreateAll.
	Migrate bool
}

// RelationsResult is what the relations demo read back.
type RelationsResult struct {
	// User is the first user with Auth and Posts loaded.
	User *models.User
	// Posts are the user's posts fetched by owner.
	Posts []*models.UserPost

	PasswordOK      bool
	WrongPasswordOK bool
}

// Relations writes a user with its auth record and one post in a single
// transaction, then reads them back through both sides of each relation
// and checks the password.
func Relations(ctx context.Context, d *db.DB, logger *slog.Logger, opts RelationsOptions) (*RelationsResult, error) {
	if opts.Migrate {
		if err := migrations.Up(ctx, d, logger); err != nil {
			return nil, err
		}
	} else if err := models.Metadata.CreateAll(ctx, d); err != nil {
		return nil, err
	}

	hasher := opts.Hasher
	if hasher == nil {
		hasher = models.SHA256Hasher{}
	}
	user, err := models.NewUserWithHasher(hasher, "zeynep", "zeynep.birinci@hitec-hamburg.de", "password")
	if err != nil {
		return nil, err
	}
	user.AddPost("Hello World!")

	if err := repo.NewUnit().Add(user).Commit(ctx, d); err != nil {
		return nil, err
	}

	res := &RelationsResult{}
	err = d.ExecTx(ctx, func(tx *db.Tx) error {
		users, posts := repo.NewUserRepo(tx), repo.NewPostRepo(tx)

		first, err := users.First(ctx)
		if err != nil {
			return err
		}
		if res.User, err = users.Load(ctx, first.ID); err != nil {
			return err
		}
		logger.Info("first user", slog.Any("user", res.User))
		logger.Info("auth", slog.Any("auth", res.User.Auth))
		logger.Info("posts", slog.Any("posts", res.User.Posts))

		if res.User.Auth != nil {
			res.PasswordOK = res.User.Auth.CheckPassword("password")
			res.WrongPasswordOK = res.User.Auth.CheckPassword("wrongpassword")
		}
		logger.Info("password check", slog.Bool("ok", res.PasswordOK))
		logger.Info("password check", slog.Bool("ok", res.WrongPasswordOK))

		if res.Posts, err = posts.ListByUser(ctx, res.User.ID); err != nil {
			return err
		}
		for _, p := range res.Posts {
			owner, err := posts.Owner(ctx, p)
			if err != nil {
				return err
			}
			logger.Info("post", slog.Any("post", p), slog.Any("owner", owner))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
