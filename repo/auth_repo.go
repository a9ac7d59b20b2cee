package repo

import (
	"context"
	"fmt"

	"github.com/hitec-hamburg/entitymap/db"
	"github.com/hitec-hamburg/entitymap/models"
)

// AuthRepository persists the one-to-one auth records of users.
type AuthRepository interface {
	// Insert writes a; a.ID must already hold the owning user's id.
	Insert(ctx context.Context, a *models.UserAuth) error
	GetByUserID(ctx context.Context, userID int64) (*models.UserAuth, error)
	GetByEmail(ctx context.Context, email string) (*models.UserAuth, error)
}

type authRepo struct {
	q db.Querier
}

// NewAuthRepo returns an AuthRepository backed by q.
func NewAuthRepo(q db.Querier) AuthRepository {
	return &authRepo{q: q}
}

func (r *authRepo) Insert(ctx context.Context, a *models.UserAuth) error {
	if err := models.AuthMapping.Insert(ctx, r.q, a); err != nil {
		return fmt.Errorf("repo/auth: insert %s: %w", a.Email, err)
	}
	return nil
}

func (r *authRepo) GetByUserID(ctx context.Context, userID int64) (*models.UserAuth, error) {
	a, err := models.AuthMapping.One(ctx, r.q, models.AuthRelation.Children(userID))
	if err != nil {
		return nil, fmt.Errorf("repo/auth: %w", err)
	}
	return a, nil
}

func (r *authRepo) GetByEmail(ctx context.Context, email string) (*models.UserAuth, error) {
	a, err := models.AuthMapping.One(ctx, r.q, models.UserAuthTable.Select().Where("email", email))
	if err != nil {
		return nil, fmt.Errorf("repo/auth: %w", err)
	}
	return a, nil
}

var _ AuthRepository = (*authRepo)(nil)
