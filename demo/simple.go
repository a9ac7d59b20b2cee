// Package demo holds the fixed demonstration sequences run by the commands
// under cmd/. Each sequence creates its schema on the given database, writes
// a few rows and logs what it reads back.
package demo

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitec-hamburg/entitymap/db"
	"github.com/hitec-hamburg/entitymap/schema"
)

// userTable is the single table of the table-level demo. It is deliberately
// separate from models.UsersTable.
var userTable = schema.NewTable("user",
	schema.Column{Name: "id", Type: schema.Integer, PrimaryKey: true, AutoIncrement: true},
	schema.Column{Name: "username", Type: schema.Text},
	schema.Column{Name: "email", Type: schema.Text},
)

// Row is a result tuple of the table-level demo.
type Row struct {
	ID       int64
	Username string
	Email    string
}

func (r *Row) String() string {
	return fmt.Sprintf("(%d, '%s', '%s')", r.ID, r.Username, r.Email)
}

func (r *Row) LogValue() slog.Value { return slog.StringValue(r.String()) }

// Simple works on the table level only: create "user", insert one row and
// select it back by username. It returns the selected row, or nil when
// nothing matched.
func Simple(ctx context.Context, d *db.DB, logger *slog.Logger) (*Row, error) {
	if err := schema.NewMetadata(userTable).CreateAll(ctx, d); err != nil {
		return nil, err
	}

	if err := insertUser(ctx, d, "zeynep", "zeynep.birinci@hitec-hamburg.de"); err != nil {
		return nil, err
	}

	row, err := selectUser(ctx, d, "zeynep")
	if err != nil {
		return nil, err
	}
	logger.Info("selected user", slog.Any("row", row))
	return row, nil
}

func insertUser(ctx context.Context, q db.Querier, username, email string) error {
	d, err := schema.DialectFor(q.DriverName())
	if err != nil {
		return err
	}
	_, err = q.Exec(ctx, userTable.InsertSQL(d, []string{"username", "email"}, ""), username, email)
	if err != nil {
		return fmt.Errorf("demo: insert %s: %w", username, err)
	}
	return nil
}

// selectUser returns the first row whose username matches, or nil.
func selectUser(ctx context.Context, q db.Querier, username string) (*Row, error) {
	d, err := schema.DialectFor(q.DriverName())
	if err != nil {
		return nil, err
	}
	stmt, args, err := userTable.Select().Where("username", username).Limit(1).Build(d)
	if err != nil {
		return nil, err
	}

	var r Row
	err = q.QueryRow(ctx, stmt, args...).Scan(&r.ID, &r.Username, &r.Email)
	switch {
	case db.IsNotFound(err):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("demo: select %s: %w", username, err)
	}
	return &r, nil
}
