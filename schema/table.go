// Package schema is the explicit replacement for declarative class-to-table
// mapping: tables are plain values listing their columns, semantic types and
// constraints; relations name the foreign key that links two tables; a
// Mapping translates between a Go record and a row of its table.
//
// Nothing here holds a connection. Every operation that touches the
// database takes a db.Querier, so the same definitions work against a pool
// or inside a transaction.
package schema

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownColumn is returned when a query or relation names a column
	// its table does not declare.
	ErrUnknownColumn = errors.New("entitymap/schema: unknown column")

	// ErrInvalidSchema is returned by Metadata.Validate.
	ErrInvalidSchema = errors.New("entitymap/schema: invalid schema")
)

// Type is the semantic type of a column. Dialects translate it to SQL.
type Type int

const (
	Integer Type = iota + 1
	Text
)

func (t Type) String() string {
	switch t {
	case Integer:
		return "integer"
	case Text:
		return "text"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// Reference points a column at the key of another table.
type Reference struct {
	Table  string
	Column string
}

// Column declares one field of a table.
type Column struct {
	Name string
	Type Type

	// PrimaryKey marks the (single) key column. Primary key columns are never
	// given an extra index or unique constraint.
	PrimaryKey bool
	// AutoIncrement lets the database assign the key when the record leaves
	// it at zero. Only meaningful on an Integer primary key.
	AutoIncrement bool

	Unique  bool
	Index   bool
	NotNull bool

	References *Reference
}

// IndexName is the name used for the column's index, following the
// ix_<table>_<column> convention.
func (c Column) IndexName(table string) string {
	return "ix_" + table + "_" + c.Name
}

// Table is a named, ordered list of columns.
type Table struct {
	Name    string
	Columns []Column

	pos map[string]int
}

// NewTable declares a table. It panics on duplicate column names, which can
// only come from a programming error in the table definition.
func NewTable(name string, columns ...Column) *Table {
	t := &Table{Name: name, Columns: columns, pos: make(map[string]int, len(columns))}
	for i, c := range columns {
		if _, dup := t.pos[c.Name]; dup {
			panic(fmt.Sprintf("entitymap/schema: table %q declares column %q twice", name, c.Name))
		}
		t.pos[c.Name] = i
	}
	return t
}

// Column returns the column called name.
func (t *Table) Column(name string) (Column, bool) {
	i, ok := t.pos[name]
	if !ok {
		return Column{}, false
	}
	return t.Columns[i], true
}

// PrimaryKey returns the table's key column.
func (t *Table) PrimaryKey() (Column, bool) {
	for _, c := range t.Columns {
		if c.PrimaryKey {
			return c, true
		}
	}
	return Column{}, false
}

// ColumnNames returns the column names in declaration order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// CreateStatements renders the idempotent DDL for t: the CREATE TABLE
// statement followed, where the dialect needs them, by CREATE INDEX
// statements.
func (t *Table) CreateStatements(d Dialect) []string {
	defs := make([]string, 0, len(t.Columns)+2)
	var indexes []string

	for _, c := range t.Columns {
		def := d.Quote(c.Name) + " " + d.ColumnType(c)
		switch {
		case c.PrimaryKey:
			def += " PRIMARY KEY"
		case c.NotNull:
			def += " NOT NULL"
		}
		if c.Unique && !c.Index && !c.PrimaryKey {
			def += " UNIQUE"
		}
		defs = append(defs, def)

		if !c.Index || c.PrimaryKey {
			continue
		}
		kind := "INDEX"
		if c.Unique {
			kind = "UNIQUE INDEX"
		}
		if d.InlineIndexes() {
			defs = append(defs, fmt.Sprintf("%s %s (%s)", kind, d.Quote(c.IndexName(t.Name)), d.Quote(c.Name)))
			continue
		}
		indexes = append(indexes, fmt.Sprintf("CREATE %s IF NOT EXISTS %s ON %s (%s)",
			kind, d.Quote(c.IndexName(t.Name)), d.Quote(t.Name), d.Quote(c.Name)))
	}

	for _, c := range t.Columns {
		if c.References == nil {
			continue
		}
		defs = append(defs, fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s)",
			d.Quote(c.Name), d.Quote(c.References.Table), d.Quote(c.References.Column)))
	}

	create := "CREATE TABLE IF NOT EXISTS " + d.Quote(t.Name) + " (\n\t" +
		strings.Join(defs, ",\n\t") + "\n)"
	return append([]string{create}, indexes...)
}

// InsertSQL renders an INSERT of the given columns. When returning is set
// the statement ends with RETURNING <key>.
func (t *Table) InsertSQL(d Dialect, columns []string, returning string) string {
	quoted := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = d.Quote(c)
		marks[i] = d.Placeholder(i + 1)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES (%s)",
		d.Quote(t.Name), strings.Join(quoted, ", "), strings.Join(marks, ", "))
	if returning != "" {
		sb.WriteString(" RETURNING " + d.Quote(returning))
	}
	return sb.String()
}

// Select starts a query over all of t's columns.
func (t *Table) Select() *Query {
	return &Query{table: t}
}
