package schema

import (
	"fmt"
	"strings"
)

// Field is a column a table exposes for selection or joining.
type Field struct {
	Name        string
	DBName      string // column name or expression
	Table       *Table // owning table, not owned
	Type        FieldType
	Aggregation AggregationType
	Hidden      bool
	// Exact fields are rendered verbatim, without table qualification or aggregation.
	// An exact aggregate expression still lands in GROUP BY, so it must not be
	// selected together with fact fields.
	Exact       bool
	Description string
}

// HasAggregate reports whether the field is a fact with an aggregation.
func (f *Field) HasAggregate() bool {
	return f.Aggregation != AggregationNone && f.Type == FieldTypeFact
}

// Equal compares name, column, aggregation, type and owning table name.
func (f *Field) Equal(other *Field) bool {
	if f == nil || other == nil {
		return f == other
	}
	return f.Name == other.Name &&
		f.DBName == other.DBName &&
		f.Aggregation == other.Aggregation &&
		f.Type == other.Type &&
		f.tableName() == other.tableName()
}

func (f *Field) tableName() string {
	if f.Table == nil {
		return ""
	}
	return f.Table.Name
}

// AliasField renders the field qualified by its table alias.
func (f *Field) AliasField() string {
	if f.Exact || f.Table == nil {
		return f.DBName
	}
	return f.Table.Name + "." + f.DBName
}

// SelectField renders the field as a select list expression with a stable
// ordinal alias.
func (f *Field) SelectField(ordinal int) string {
	if f.Exact {
		return fmt.Sprintf("%s AS E___%d", f.DBName, ordinal)
	}
	expr := f.AliasField()
	if f.HasAggregate() {
		expr = f.Aggregation.Function() + "(" + expr + ")"
	}
	return fmt.Sprintf("%s AS F___%d", expr, ordinal)
}

// QualifiedName returns "table.field".
func (f *Field) QualifiedName() string {
	if f.Table == nil {
		return f.Name
	}
	return f.Table.Name + "." + f.Name
}

func (f *Field) String() string {
	return f.QualifiedName()
}

// SplitQualified splits "table.name" into its parts. The name part may itself
// contain dots.
func SplitQualified(ref string) (table, name string, ok bool) {
	table, name, ok = strings.Cut(strings.TrimSpace(ref), ".")
	if !ok || table == "" || name == "" {
		return "", "", false
	}
	return table, name, true
}
