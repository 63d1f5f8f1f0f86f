package schema

import "strings"

// Connection is the database a table lives in.
type Connection struct {
	Name     string
	Dialect  string
	Database string
}

// Table is a physical or logical table in the schema graph.
type Table struct {
	Name       string // logical name, also the SQL alias
	DBName     string // physical name
	Connection *Connection
	Fields     []*Field
	Conditions []*WhereCondition
	// Size is a coarse row count estimate used as a path cost; -1 means unknown.
	Size        int64
	Type        TableType
	Description string
}

// NewTable returns a table with an unknown size.
func NewTable(name, dbName string, tableType TableType) *Table {
	return &Table{Name: name, DBName: dbName, Size: -1, Type: tableType}
}

// AddField appends f and points it back at t.
func (t *Table) AddField(f *Field) *Field {
	f.Table = t
	t.Fields = append(t.Fields, f)
	return f
}

// FindField looks a field up by name, case-insensitively.
func (t *Table) FindField(name string) *Field {
	for _, f := range t.Fields {
		if strings.EqualFold(f.Name, name) {
			return f
		}
	}
	return nil
}

// FindFieldByColumn looks a field up by its db column, case-insensitively.
func (t *Table) FindFieldByColumn(column string) *Field {
	for _, f := range t.Fields {
		if strings.EqualFold(f.DBName, column) {
			return f
		}
	}
	return nil
}

// RemoveField drops the named field and any condition bound to it.
func (t *Table) RemoveField(name string) bool {
	for i, f := range t.Fields {
		if !strings.EqualFold(f.Name, name) {
			continue
		}
		t.Fields = append(t.Fields[:i], t.Fields[i+1:]...)
		kept := t.Conditions[:0]
		for _, c := range t.Conditions {
			if c.Field != f {
				kept = append(kept, c)
			}
		}
		t.Conditions = kept
		return true
	}
	return false
}

// AddCondition appends c and points it back at t.
func (t *Table) AddCondition(c *WhereCondition) *WhereCondition {
	c.Table = t
	t.Conditions = append(t.Conditions, c)
	return c
}

// FindCondition looks a condition up by name, case-insensitively.
func (t *Table) FindCondition(name string) *WhereCondition {
	for _, c := range t.Conditions {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return nil
}

func (t *Table) IsFact() bool      { return t.Type == TableTypeFact }
func (t *Table) IsDimension() bool { return t.Type == TableTypeDimension }

// ScoreSize is the size contribution to a path score. Unknown sizes count as zero.
func (t *Table) ScoreSize() int64 {
	if t == nil || t.Size < 0 {
		return 0
	}
	return t.Size
}

func (t *Table) String() string {
	if t == nil {
		return "null"
	}
	return t.Name
}

// sameTable compares tables by identity, falling back to a case-insensitive
// name match so that equal tables from separate loads still line up.
func sameTable(a, b *Table) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return strings.EqualFold(a.Name, b.Name)
}
