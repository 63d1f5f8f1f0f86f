package schema

import "strings"

const (
	firstItemPrefix = "          "
	nextItemPrefix  = "         ,"
	nextAndPrefix   = "      AND "
)

// HasFactsInIt reports whether any field carries an aggregate.
func HasFactsInIt(fields []*Field) bool {
	for _, f := range fields {
		if f.HasAggregate() {
			return true
		}
	}
	return false
}

// SQLFor renders a SELECT over fields using joins and conditions. It returns
// false when joins reference no tables.
func SQLFor(fields []*Field, joins *Joins, conds []*WhereCondition) (string, bool) {
	tables := joins.UsedTables()
	if len(tables) == 0 {
		return "", false
	}
	group := HasFactsInIt(fields)

	var b strings.Builder
	b.WriteString("SELECT ")
	if !group {
		b.WriteString("DISTINCT ")
	}
	b.WriteString("\n")
	for i, f := range fields {
		b.WriteString(listPrefix(i))
		b.WriteString(f.SelectField(i))
		b.WriteString("\n")
	}

	b.WriteString("FROM \n")
	for i, t := range tables {
		b.WriteString(listPrefix(i))
		b.WriteString(t.DBName + " " + t.Name)
		b.WriteString("\n")
	}

	b.WriteString("WHERE \n")
	nr := 0
	for _, r := range joins.relationships {
		b.WriteString(andPrefix(nr))
		b.WriteString(r.Join())
		b.WriteString("\n")
		nr++
	}
	for _, c := range conds {
		b.WriteString(andPrefix(nr))
		b.WriteString(c.WhereClause())
		b.WriteString("\n")
		nr++
	}

	if group {
		b.WriteString("GROUP BY \n")
		nr = 0
		for _, f := range fields {
			if f.HasAggregate() {
				continue
			}
			b.WriteString(listPrefix(nr))
			b.WriteString(f.AliasField())
			b.WriteString("\n")
			nr++
		}
	}
	return b.String(), true
}

// SQL resolves the tables behind fields, joins them and renders the query.
// It returns false when no joins connect the tables.
func (s *Schema) SQL(fields []*Field, conds []*WhereCondition) (string, bool) {
	joins := s.AllJoinsBetween(TablesInvolved(fields))
	if joins.Size() == 0 {
		return "", false
	}
	return SQLFor(fields, joins, conds)
}

// ValidateJoins returns the first incomplete relationship in joins.
func ValidateJoins(joins *Joins) error {
	for _, r := range joins.relationships {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func listPrefix(i int) string {
	if i > 0 {
		return nextItemPrefix
	}
	return firstItemPrefix
}

func andPrefix(i int) string {
	if i > 0 {
		return nextAndPrefix
	}
	return firstItemPrefix
}
