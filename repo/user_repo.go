package repo

import (
	"context"
	"fmt"

	"github.com/hitec-hamburg/entitymap/db"
	"github.com/hitec-hamburg/entitymap/models"
	"github.com/hitec-hamburg/entitymap/schema"
)

// ─────────────────────────────────────────────────────────────────────────────
// UserRepository interface: for mocking in tests
// ─────────────────────────────────────────────────────────────────────────────

// UserRepository defines the persistence operations on users.
type UserRepository interface {
	// Insert writes the users row only; u.ID is assigned. Related records
	// are written by Unit.
	Insert(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	// First returns the user with the lowest id.
	First(ctx context.Context) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	Count(ctx context.Context) (int64, error)
	// Load returns the user with Auth and Posts populated. Auth stays nil
	// when the user has no auth record.
	Load(ctx context.Context, id int64) (*models.User, error)
	BatchInsert(ctx context.Context, users []*models.User) error
}

// ─────────────────────────────────────────────────────────────────────────────
// userRepo: concrete implementation
// ─────────────────────────────────────────────────────────────────────────────

type userRepo struct {
	q db.Querier
}

// NewUserRepo returns a UserRepository backed by q.
// q can be a *db.DB or *db.Tx; both satisfy db.Querier.
func NewUserRepo(q db.Querier) UserRepository {
	return &userRepo{q: q}
}

func (r *userRepo) Insert(ctx context.Context, u *models.User) error {
	if err := models.UserMapping.Insert(ctx, r.q, u); err != nil {
		return fmt.Errorf("repo/user: insert: %w", err)
	}
	return nil
}

// GetByID returns a single user by primary key.
// Returns db.ErrNotFound when no record matches.
func (r *userRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.one(ctx, models.UsersTable.Select().Where("id", id))
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.one(ctx, models.UsersTable.Select().Where("username", username).OrderBy("id").Limit(1))
}

func (r *userRepo) First(ctx context.Context) (*models.User, error) {
	return r.one(ctx, models.UsersTable.Select().OrderBy("id").Limit(1))
}

func (r *userRepo) List(ctx context.Context) ([]*models.User, error) {
	users, err := models.UserMapping.All(ctx, r.q, models.UsersTable.Select().OrderBy("id"))
	if err != nil {
		return nil, fmt.Errorf("repo/user: list: %w", err)
	}
	return users, nil
}

func (r *userRepo) Count(ctx context.Context) (int64, error) {
	n, err := models.UserMapping.Count(ctx, r.q, models.UsersTable.Select())
	if err != nil {
		return 0, fmt.Errorf("repo/user: count: %w", err)
	}
	return n, nil
}

func (r *userRepo) Load(ctx context.Context, id int64) (*models.User, error) {
	u, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	u.Auth, err = NewAuthRepo(r.q).GetByUserID(ctx, u.ID)
	if err != nil && !db.IsNotFound(err) {
		return nil, err
	}

	u.Posts, err = NewPostRepo(r.q).ListByUser(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// BatchInsert inserts users through one prepared statement. Run it on a
// *db.Tx to make the batch all-or-nothing.
func (r *userRepo) BatchInsert(ctx context.Context, users []*models.User) error {
	if len(users) == 0 {
		return nil
	}
	d, err := schema.DialectFor(r.q.DriverName())
	if err != nil {
		return err
	}

	returning := ""
	if d.Returning() {
		returning = "id"
	}
	stmt, err := r.q.Prepare(ctx, models.UsersTable.InsertSQL(d, []string{"username", "email"}, returning))
	if err != nil {
		return fmt.Errorf("repo/user: prepare batch: %w", err)
	}
	defer stmt.Close()

	for _, u := range users {
		if d.Returning() {
			if err := stmt.QueryRow(ctx, u.Username, u.Email).Scan(&u.ID); err != nil {
				return fmt.Errorf("repo/user: batch insert %s: %w", u.Username, err)
			}
			continue
		}
		res, err := stmt.Exec(ctx, u.Username, u.Email)
		if err != nil {
			return fmt.Errorf("repo/user: batch insert %s: %w", u.Username, err)
		}
		if u.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("repo/user: batch insert %s: %w", u.Username, err)
		}
	}
	return nil
}

func (r *userRepo) one(ctx context.Context, q *schema.Query) (*models.User, error) {
	u, err := models.UserMapping.One(ctx, r.q, q)
	if err != nil {
		return nil, fmt.Errorf("repo/user: %w", err)
	}
	return u, nil
}

var _ UserRepository = (*userRepo)(nil)
