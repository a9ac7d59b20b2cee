package schema

import (
	"fmt"
	"strconv"
	"strings"
)

type condition struct {
	column string
	value  any
}

// Query is a SELECT over one table filtered by column equality. Conditions
// are combined with AND.
type Query struct {
	table  *Table
	conds  []condition
	orders []string
	limit  int
}

// Where adds an equality filter on column.
func (q *Query) Where(column string, value any) *Query {
	q.conds = append(q.conds, condition{column: column, value: value})
	return q
}

// OrderBy sorts ascending on column. Calls accumulate.
func (q *Query) OrderBy(column string) *Query {
	q.orders = append(q.orders, column)
	return q
}

// Limit caps the number of rows. Zero means no limit.
func (q *Query) Limit(n int) *Query {
	q.limit = n
	return q
}

// Table returns the table the query reads.
func (q *Query) Table() *Table { return q.table }

// Build renders the query for d. Every referenced column must exist.
func (q *Query) Build(d Dialect) (string, []any, error) {
	cols := make([]string, len(q.table.Columns))
	for i, c := range q.table.Columns {
		cols[i] = d.Quote(c.Name)
	}
	return q.build(d, strings.Join(cols, ", "), true)
}

// BuildCount renders SELECT COUNT(*) with the same filters.
func (q *Query) BuildCount(d Dialect) (string, []any, error) {
	return q.build(d, "COUNT(*)", false)
}

func (q *Query) build(d Dialect, projection string, ordered bool) (string, []any, error) {
	var sb strings.Builder
	sb.WriteString("SELECT " + projection + " FROM " + d.Quote(q.table.Name))

	args := make([]any, 0, len(q.conds))
	for i, c := range q.conds {
		if _, ok := q.table.Column(c.column); !ok {
			return "", nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, q.table.Name, c.column)
		}
		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" AND ")
		}
		sb.WriteString(d.Quote(c.column) + " = " + d.Placeholder(i+1))
		args = append(args, c.value)
	}

	if !ordered {
		return sb.String(), args, nil
	}

	for i, o := range q.orders {
		if _, ok := q.table.Column(o); !ok {
			return "", nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, q.table.Name, o)
		}
		if i == 0 {
			sb.WriteString(" ORDER BY ")
		} else {
			sb.WriteString(", ")
		}
		sb.WriteString(d.Quote(o))
	}
	if q.limit > 0 {
		sb.WriteString(" LIMIT " + strconv.Itoa(q.limit))
	}
	return sb.String(), args, nil
}
