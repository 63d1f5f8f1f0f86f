package schema

// WhereCondition is a named, reusable filter bound to a table and optionally a field.
type WhereCondition struct {
	Name        string
	Table       *Table
	Field       *Field
	Comparator  Comparator
	Code        string
	Description string
}

// WhereClause renders the predicate. Without a field only the code is emitted.
func (c *WhereCondition) WhereClause() string {
	if c.Field == nil {
		return c.Code
	}
	comp := c.Comparator
	if comp == "" {
		comp = ComparatorEqual
	}
	if !comp.TakesOperand() {
		return c.Field.AliasField() + " " + string(comp)
	}
	return c.Field.AliasField() + " " + string(comp) + " " + c.Code
}

// QualifiedName returns "table.condition".
func (c *WhereCondition) QualifiedName() string {
	if c.Table == nil {
		return c.Name
	}
	return c.Table.Name + "." + c.Name
}
