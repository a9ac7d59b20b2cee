package repo

import (
	"context"
	"fmt"

	"github.com/hitec-hamburg/entitymap/db"
	"github.com/hitec-hamburg/entitymap/models"
)

// PostRepository persists user posts and navigates the posts relation in
// both directions.
type PostRepository interface {
	Insert(ctx context.Context, p *models.UserPost) error
	GetByID(ctx context.Context, id int64) (*models.UserPost, error)
	// ListByUser returns the user's posts ordered by id.
	ListByUser(ctx context.Context, userID int64) ([]*models.UserPost, error)
	CountByUser(ctx context.Context, userID int64) (int64, error)
	// Owner returns the user p belongs to.
	Owner(ctx context.Context, p *models.UserPost) (*models.User, error)
}

type postRepo struct {
	q db.Querier
}

// NewPostRepo returns a PostRepository backed by q.
func NewPostRepo(q db.Querier) PostRepository {
	return &postRepo{q: q}
}

func (r *postRepo) Insert(ctx context.Context, p *models.UserPost) error {
	if err := models.PostMapping.Insert(ctx, r.q, p); err != nil {
		return fmt.Errorf("repo/post: insert for user %d: %w", p.UserID, err)
	}
	return nil
}

func (r *postRepo) GetByID(ctx context.Context, id int64) (*models.UserPost, error) {
	p, err := models.PostMapping.One(ctx, r.q, models.UserPostsTable.Select().Where("id", id))
	if err != nil {
		return nil, fmt.Errorf("repo/post: %w", err)
	}
	return p, nil
}

func (r *postRepo) ListByUser(ctx context.Context, userID int64) ([]*models.UserPost, error) {
	posts, err := models.PostMapping.All(ctx, r.q, models.PostsRelation.Children(userID))
	if err != nil {
		return nil, fmt.Errorf("repo/post: list for user %d: %w", userID, err)
	}
	return posts, nil
}

func (r *postRepo) CountByUser(ctx context.Context, userID int64) (int64, error) {
	n, err := models.PostMapping.Count(ctx, r.q, models.PostsRelation.Children(userID))
	if err != nil {
		return 0, fmt.Errorf("repo/post: count for user %d: %w", userID, err)
	}
	return n, nil
}

func (r *postRepo) Owner(ctx context.Context, p *models.UserPost) (*models.User, error) {
	u, err := models.UserMapping.One(ctx, r.q, models.PostsRelation.ParentOf(p.UserID))
	if err != nil {
		return nil, fmt.Errorf("repo/post: owner of %d: %w", p.ID, err)
	}
	return u, nil
}

var _ PostRepository = (*postRepo)(nil)
