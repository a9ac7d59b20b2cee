package schema

import (
	"context"
	"errors"
	"fmt"

	"github.com/hitec-hamburg/entitymap/db"
)

// Cardinality of a relation seen from its parent.
type Cardinality int

const (
	OneToOne Cardinality = iota + 1
	OneToMany
)

func (c Cardinality) String() string {
	switch c {
	case OneToOne:
		return "one-to-one"
	case OneToMany:
		return "one-to-many"
	default:
		return fmt.Sprintf("Cardinality(%d)", int(c))
	}
}

// Relation links a parent table to a child table through a foreign key
// column on the child. The foreign key is the single source of truth; both
// directions are navigated with queries rather than object references.
type Relation struct {
	Name       string
	Kind       Cardinality
	Parent     *Table
	Child      *Table
	ForeignKey string
}

// Children selects the child rows owned by the parent whose key is parentID.
// For OneToOne relations at most one row matches.
func (r *Relation) Children(parentID any) *Query {
	q := r.Child.Select().Where(r.ForeignKey, parentID)
	if pk, ok := r.Child.PrimaryKey(); ok {
		q.OrderBy(pk.Name)
	}
	if r.Kind == OneToOne {
		q.Limit(1)
	}
	return q
}

// ParentOf selects the parent row a child points at through fk.
func (r *Relation) ParentOf(fk any) *Query {
	pk, _ := r.Parent.PrimaryKey()
	return r.Parent.Select().Where(pk.Name, fk).Limit(1)
}

// Metadata is the set of tables and relations that make up a schema. Tables
// are kept in declaration order, which is also creation order, so parents
// must be added before the tables that reference them.
type Metadata struct {
	tables    []*Table
	byName    map[string]*Table
	relations []*Relation
}

// NewMetadata returns metadata holding tables in the given order.
func NewMetadata(tables ...*Table) *Metadata {
	m := &Metadata{byName: make(map[string]*Table)}
	for _, t := range tables {
		m.Add(t)
	}
	return m
}

// Add appends t. Duplicates are reported by Validate.
func (m *Metadata) Add(t *Table) {
	m.tables = append(m.tables, t)
	if _, ok := m.byName[t.Name]; !ok {
		m.byName[t.Name] = t
	}
}

// Tables returns the tables in creation order.
func (m *Metadata) Tables() []*Table { return m.tables }

// Table looks a table up by name.
func (m *Metadata) Table(name string) (*Table, bool) {
	t, ok := m.byName[name]
	return t, ok
}

// Relate declares a relation and returns it for use by repositories.
func (m *Metadata) Relate(name string, kind Cardinality, parent, child *Table, foreignKey string) *Relation {
	r := &Relation{Name: name, Kind: kind, Parent: parent, Child: child, ForeignKey: foreignKey}
	m.relations = append(m.relations, r)
	return r
}

// Relations returns the declared relations.
func (m *Metadata) Relations() []*Relation { return m.relations }

// Validate checks that the schema is internally consistent: unique table
// names, a single primary key per table, foreign keys pointing at earlier
// tables' existing columns, and relations backed by a matching foreign key.
// A one-to-one relation additionally requires its foreign key to be unique
// or the child's primary key.
func (m *Metadata) Validate() error {
	var errs []error
	seen := make(map[string]bool, len(m.tables))

	for _, t := range m.tables {
		if seen[t.Name] {
			errs = append(errs, fmt.Errorf("%w: table %q declared twice", ErrInvalidSchema, t.Name))
			continue
		}

		keys := 0
		for _, c := range t.Columns {
			if c.PrimaryKey {
				keys++
			}
			if c.AutoIncrement && (!c.PrimaryKey || c.Type != Integer) {
				errs = append(errs, fmt.Errorf("%w: %s.%s: auto increment needs an integer primary key",
					ErrInvalidSchema, t.Name, c.Name))
			}
			if c.References == nil {
				continue
			}
			ref := c.References
			target, ok := m.byName[ref.Table]
			if !ok || !seen[ref.Table] {
				errs = append(errs, fmt.Errorf("%w: %s.%s references %q, which is not declared before it",
					ErrInvalidSchema, t.Name, c.Name, ref.Table))
				continue
			}
			if _, ok := target.Column(ref.Column); !ok {
				errs = append(errs, fmt.Errorf("%w: %s.%s references %s.%s",
					ErrUnknownColumn, t.Name, c.Name, ref.Table, ref.Column))
			}
		}
		if keys != 1 {
			errs = append(errs, fmt.Errorf("%w: table %q has %d primary key columns, want 1",
				ErrInvalidSchema, t.Name, keys))
		}
		seen[t.Name] = true
	}

	for _, r := range m.relations {
		fk, ok := r.Child.Column(r.ForeignKey)
		if !ok {
			errs = append(errs, fmt.Errorf("%w: relation %q: %s.%s",
				ErrUnknownColumn, r.Name, r.Child.Name, r.ForeignKey))
			continue
		}
		if fk.References == nil || fk.References.Table != r.Parent.Name {
			errs = append(errs, fmt.Errorf("%w: relation %q: %s.%s does not reference %q",
				ErrInvalidSchema, r.Name, r.Child.Name, r.ForeignKey, r.Parent.Name))
			continue
		}
		if r.Kind == OneToOne && !fk.PrimaryKey && !fk.Unique {
			errs = append(errs, fmt.Errorf("%w: relation %q: one-to-one foreign key %s.%s must be unique",
				ErrInvalidSchema, r.Name, r.Child.Name, r.ForeignKey))
		}
	}

	return errors.Join(errs...)
}

// CreateAll validates the schema and creates every missing table and index
// on q. Existing objects are left untouched, so calling it again is a no-op.
func (m *Metadata) CreateAll(ctx context.Context, q db.Querier) error {
	if err := m.Validate(); err != nil {
		return err
	}
	d, err := DialectFor(q.DriverName())
	if err != nil {
		return err
	}
	for _, t := range m.tables {
		for _, stmt := range t.CreateStatements(d) {
			if _, err := q.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("entitymap/schema: create %s: %w", t.Name, err)
			}
		}
	}
	return nil
}
