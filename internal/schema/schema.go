// Package schema models a star or snowflake schema as a graph of tables and
// relationships. It resolves the shortest join paths between a selection of
// tables and renders ad-hoc SQL from the resolved joins.
package schema

import (
	"fmt"
	"strings"
)

// Selection is a saved choice of fields and conditions.
type Selection struct {
	Fields     []*Field
	Conditions []*WhereCondition
}

// Schema owns the canonical tables, relationships and connections. It is not
// safe for concurrent mutation; readers may share a schema once it is built.
type Schema struct {
	Name          string
	Description   string
	Notes         []string
	Connections   []*Connection
	Tables        []*Table
	Relationships []*Relationship
	Selection     Selection
	// MaxPathLength caps the relationships per path during search. Zero means no cap.
	MaxPathLength int
}

// New returns an empty schema.
func New(name string) *Schema {
	return &Schema{Name: name}
}

// AddConnection registers c. A connection with the same name is replaced.
func (s *Schema) AddConnection(c *Connection) {
	for i, existing := range s.Connections {
		if strings.EqualFold(existing.Name, c.Name) {
			s.Connections[i] = c
			return
		}
	}
	s.Connections = append(s.Connections, c)
}

func (s *Schema) FindConnection(name string) *Connection {
	for _, c := range s.Connections {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return nil
}

// AddTable adds t. Table names are unique regardless of case.
func (s *Schema) AddTable(t *Table) error {
	if s.FindTable(t.Name) != nil {
		return fmt.Errorf("%w: %s", ErrDuplicateTable, t.Name)
	}
	s.Tables = append(s.Tables, t)
	return nil
}

func (s *Schema) FindTable(name string) *Table {
	for _, t := range s.Tables {
		if strings.EqualFold(t.Name, name) {
			return t
		}
	}
	return nil
}

// RemoveTable drops the table and every relationship using it.
func (s *Schema) RemoveTable(name string) bool {
	t := s.FindTable(name)
	if t == nil {
		return false
	}
	tables := s.Tables[:0]
	for _, existing := range s.Tables {
		if existing != t {
			tables = append(tables, existing)
		}
	}
	s.Tables = tables
	rels := s.Relationships[:0]
	for _, r := range s.Relationships {
		if !r.IsUsingTable(t) {
			rels = append(rels, r)
		}
	}
	s.Relationships = rels
	return true
}

func (s *Schema) TableNames() []string {
	names := make([]string, len(s.Tables))
	for i, t := range s.Tables {
		names[i] = t.Name
	}
	return names
}

// AddRelationship validates r and appends it.
func (s *Schema) AddRelationship(r *Relationship) error {
	if err := s.checkRelationship(r); err != nil {
		return err
	}
	if s.FindRelationship(r.String()) != nil {
		return fmt.Errorf("%w: %s", ErrDuplicateRelationship, r)
	}
	s.Relationships = append(s.Relationships, r)
	return nil
}

// MergeRelationship replaces an equal relationship in place, or appends r.
func (s *Schema) MergeRelationship(r *Relationship) error {
	if err := s.checkRelationship(r); err != nil {
		return err
	}
	for i, existing := range s.Relationships {
		if existing.Equal(r) {
			s.Relationships[i] = r
			return nil
		}
	}
	s.Relationships = append(s.Relationships, r)
	return nil
}

func (s *Schema) checkRelationship(r *Relationship) error {
	if err := r.Validate(); err != nil {
		return err
	}
	for _, t := range []*Table{r.From, r.To} {
		if s.FindTable(t.Name) != t {
			return fmt.Errorf("%w: %s", ErrUnknownTable, t.Name)
		}
	}
	return nil
}

// RemoveRelationship drops the relationship equal to r.
func (s *Schema) RemoveRelationship(r *Relationship) bool {
	for i, existing := range s.Relationships {
		if existing.Equal(r) {
			s.Relationships = append(s.Relationships[:i], s.Relationships[i+1:]...)
			return true
		}
	}
	return false
}

// FindRelationship looks a relationship up by its string form.
func (s *Schema) FindRelationship(name string) *Relationship {
	for _, r := range s.Relationships {
		if strings.EqualFold(r.String(), name) {
			return r
		}
	}
	return nil
}

// FindRelationshipsUsing returns every relationship touching t, in insertion order.
func (s *Schema) FindRelationshipsUsing(t *Table) []*Relationship {
	var out []*Relationship
	for _, r := range s.Relationships {
		if r.IsUsingTable(t) {
			out = append(out, r)
		}
	}
	return out
}

// FindJoin returns the first relationship connecting a and b, as stored.
func (s *Schema) FindJoin(a, b *Table) *Relationship {
	for _, r := range s.Relationships {
		if r.IsUsingTables(a, b) {
			return r
		}
	}
	return nil
}

// FindField resolves a "table.field" reference.
func (s *Schema) FindField(ref string) (*Field, error) {
	tableName, fieldName, ok := SplitQualified(ref)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not of the form table.field", ErrUnknownField, ref)
	}
	t := s.FindTable(tableName)
	if t == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, tableName)
	}
	f := t.FindField(fieldName)
	if f == nil {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownField, t.Name, fieldName)
	}
	return f, nil
}

// FindCondition resolves a "table.condition" reference.
func (s *Schema) FindCondition(ref string) (*WhereCondition, error) {
	tableName, condName, ok := SplitQualified(ref)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not of the form table.condition", ErrUnknownCondition, ref)
	}
	t := s.FindTable(tableName)
	if t == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, tableName)
	}
	c := t.FindCondition(condName)
	if c == nil {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownCondition, t.Name, condName)
	}
	return c, nil
}

// ResolveFields resolves each reference with FindField.
func (s *Schema) ResolveFields(refs []string) ([]*Field, error) {
	out := make([]*Field, 0, len(refs))
	for _, ref := range refs {
		f, err := s.FindField(ref)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// ResolveConditions resolves each reference with FindCondition.
func (s *Schema) ResolveConditions(refs []string) ([]*WhereCondition, error) {
	out := make([]*WhereCondition, 0, len(refs))
	for _, ref := range refs {
		c, err := s.FindCondition(ref)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// ResolveTables looks up each table name.
func (s *Schema) ResolveTables(names []string) ([]*Table, error) {
	out := make([]*Table, 0, len(names))
	for _, name := range names {
		t := s.FindTable(name)
		if t == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTable, name)
		}
		out = append(out, t)
	}
	return out, nil
}

// TablesInvolved returns the distinct owning tables of fields, in field order.
func TablesInvolved(fields []*Field) []*Table {
	var out []*Table
	for _, f := range fields {
		if f.Table == nil {
			continue
		}
		dup := false
		for _, t := range out {
			if sameTable(t, f.Table) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, f.Table)
		}
	}
	return out
}

// RelationsInvolved returns the relationships touching any of tables, in
// insertion order.
func (s *Schema) RelationsInvolved(tables []*Table) []*Relationship {
	var out []*Relationship
	for _, r := range s.Relationships {
		for _, t := range tables {
			if r.IsUsingTable(t) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

// Stats summarizes the schema.
type Stats struct {
	Tables          int
	FactTables      int
	DimensionTables int
	Relationships   int
	Fields          int
}

func (s *Schema) Stats() Stats {
	st := Stats{Tables: len(s.Tables), Relationships: len(s.Relationships)}
	for _, t := range s.Tables {
		switch t.Type {
		case TableTypeFact:
			st.FactTables++
		case TableTypeDimension:
			st.DimensionTables++
		}
		st.Fields += len(t.Fields)
	}
	return st
}
