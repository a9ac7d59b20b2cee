package schema

import (
	"context"
	"fmt"
	"reflect"

	"github.com/hitec-hamburg/entitymap/db"
)

// Mapping translates records of type T to rows of Table and back.
//
// Fields must return pointers to the record's fields in the table's column
// order. The same pointers serve as scan destinations when reading and as
// value sources when writing:
//
//	var PostMapping = schema.Mapping[UserPost]{
//	    Table:  UserPostsTable,
//	    Fields: func(p *UserPost) []any { return []any{&p.ID, &p.UserID, &p.Content} },
//	}
type Mapping[T any] struct {
	Table  *Table
	Fields func(rec *T) []any
}

// Insert writes rec as a new row. An auto-increment key left at zero is
// omitted from the statement and filled in from the database afterwards.
func (m Mapping[T]) Insert(ctx context.Context, q db.Querier, rec *T) error {
	d, err := DialectFor(q.DriverName())
	if err != nil {
		return err
	}
	fields, err := m.fields(rec)
	if err != nil {
		return err
	}

	var (
		cols []string
		args []any
		key  reflect.Value
		kcol string
	)
	for i, c := range m.Table.Columns {
		v := reflect.ValueOf(fields[i]).Elem()
		if c.PrimaryKey && c.AutoIncrement && v.IsZero() {
			key, kcol = v, c.Name
			continue
		}
		cols = append(cols, c.Name)
		args = append(args, v.Interface())
	}

	if !key.IsValid() {
		_, err := q.Exec(ctx, m.Table.InsertSQL(d, cols, ""), args...)
		return err
	}

	if d.Returning() {
		return q.QueryRow(ctx, m.Table.InsertSQL(d, cols, kcol), args...).Scan(key.Addr().Interface())
	}

	res, err := q.Exec(ctx, m.Table.InsertSQL(d, cols, ""), args...)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("entitymap/schema: %s: last insert id: %w", m.Table.Name, err)
	}
	if !key.CanInt() {
		return fmt.Errorf("entitymap/schema: %s.%s: key field is %s, want an integer", m.Table.Name, kcol, key.Type())
	}
	key.SetInt(id)
	return nil
}

// One returns the first row matched by query, or db.ErrNotFound.
func (m Mapping[T]) One(ctx context.Context, q db.Querier, query *Query) (*T, error) {
	d, err := DialectFor(q.DriverName())
	if err != nil {
		return nil, err
	}
	if query.Table() != m.Table {
		return nil, fmt.Errorf("entitymap/schema: query over %s used with %s mapping", query.Table().Name, m.Table.Name)
	}
	stmt, args, err := query.Build(d)
	if err != nil {
		return nil, err
	}
	rec := new(T)
	fields, err := m.fields(rec)
	if err != nil {
		return nil, err
	}
	if err := q.QueryRow(ctx, stmt, args...).Scan(fields...); err != nil {
		return nil, err
	}
	return rec, nil
}

// All returns every row matched by query. No match is an empty result, not
// an error.
func (m Mapping[T]) All(ctx context.Context, q db.Querier, query *Query) ([]*T, error) {
	d, err := DialectFor(q.DriverName())
	if err != nil {
		return nil, err
	}
	if query.Table() != m.Table {
		return nil, fmt.Errorf("entitymap/schema: query over %s used with %s mapping", query.Table().Name, m.Table.Name)
	}
	stmt, args, err := query.Build(d)
	if err != nil {
		return nil, err
	}
	rows, err := q.Query(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*T
	for rows.Next() {
		rec := new(T)
		fields, err := m.fields(rec)
		if err != nil {
			return nil, err
		}
		if err := rows.Scan(fields...); err != nil {
			return nil, fmt.Errorf("entitymap/schema: scan %s: %w", m.Table.Name, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Count returns how many rows query matches.
func (m Mapping[T]) Count(ctx context.Context, q db.Querier, query *Query) (int64, error) {
	d, err := DialectFor(q.DriverName())
	if err != nil {
		return 0, err
	}
	stmt, args, err := query.BuildCount(d)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := q.QueryRow(ctx, stmt, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (m Mapping[T]) fields(rec *T) ([]any, error) {
	fields := m.Fields(rec)
	if len(fields) != len(m.Table.Columns) {
		return nil, fmt.Errorf("entitymap/schema: %s: mapping yields %d fields for %d columns",
			m.Table.Name, len(fields), len(m.Table.Columns))
	}
	return fields, nil
}
