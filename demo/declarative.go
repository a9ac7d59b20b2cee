package demo

import (
	"context"
	"log/slog"

	"github.com/hitec-hamburg/entitymap/db"
	"github.com/hitec-hamburg/entitymap/models"
	"github.com/hitec-hamburg/entitymap/repo"
	"github.com/hitec-hamburg/entitymap/schema"
)

// Declarative maps models.User onto "users", commits two users in one unit
// and lists every user back.
func Declarative(ctx context.Context, d *db.DB, logger *slog.Logger) ([]*models.User, error) {
	if err := schema.NewMetadata(models.UsersTable).CreateAll(ctx, d); err != nil {
		return nil, err
	}

	user := &models.User{Username: "zeynep", Email: "zeynep.birinci@hitec-hamburg.de"}
	second := &models.User{Username: "hitec-user", Email: "hitec-user@hitec-hamburg.de"}

	if err := repo.NewUnit().Add(user, second).Commit(ctx, d); err != nil {
		return nil, err
	}

	users, err := repo.NewUserRepo(d).List(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		logger.Info("user", slog.Any("user", u))
	}
	return users, nil
}
