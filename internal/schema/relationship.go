package schema

import "strings"

// Relationship is a directed edge between two tables. A complex relationship
// carries raw join text instead of a field pair.
type Relationship struct {
	From        *Table
	To          *Table
	FromField   *Field
	ToField     *Field
	Cardinality Cardinality
	Complex     bool
	ComplexJoin string
	// JoinFields lists the columns a complex join compares, on both sides.
	JoinFields  []*Field
	Description string
}

// Flipped returns the same edge oriented the other way, with the inverse
// cardinality. The receiver is not modified.
func (r *Relationship) Flipped() *Relationship {
	f := *r
	f.From, f.To = r.To, r.From
	f.FromField, f.ToField = r.ToField, r.FromField
	f.Cardinality = r.Cardinality.Inverse()
	return &f
}

// Clone copies the relationship. Table and field pointers keep referring to
// the canonical objects owned by the schema.
func (r *Relationship) Clone() *Relationship {
	c := *r
	return &c
}

// Join returns the SQL join predicate, or "" when the relationship has no
// usable join information.
func (r *Relationship) Join() string {
	if r.Complex {
		return r.ComplexJoin
	}
	if r.FromField == nil || r.ToField == nil || r.From == nil || r.To == nil {
		return ""
	}
	return r.FromField.AliasField() + " = " + r.ToField.AliasField()
}

// String renders "from.field - to.field", or "from - to" when fields are unset.
func (r *Relationship) String() string {
	if r.FromField != nil && r.ToField != nil {
		return r.From.String() + "." + r.FromField.Name + " - " + r.To.String() + "." + r.ToField.Name
	}
	return r.From.String() + " - " + r.To.String()
}

// UsesField reports whether f takes part in the join. A complex join built
// without JoinFields is matched on the qualified column in its join text.
func (r *Relationship) UsesField(f *Field) bool {
	if f == nil {
		return false
	}
	if r.FromField == f || r.ToField == f {
		return true
	}
	for _, jf := range r.JoinFields {
		if jf == f {
			return true
		}
	}
	if !r.Complex || len(r.JoinFields) > 0 || f.Table == nil {
		return false
	}
	return containsIdentifier(r.ComplexJoin, f.Table.Name+"."+f.DBName)
}

// containsIdentifier finds ident in text, case-insensitively, when it is not
// part of a longer identifier.
func containsIdentifier(text, ident string) bool {
	text, ident = strings.ToLower(text), strings.ToLower(ident)
	for start := 0; ; {
		i := strings.Index(text[start:], ident)
		if i < 0 {
			return false
		}
		i += start
		end := i + len(ident)
		if (i == 0 || !isIdentByte(text[i-1])) && (end == len(text) || !isIdentByte(text[end])) {
			return true
		}
		start = i + 1
	}
}

func isIdentByte(b byte) bool {
	return b == '_' || b == '.' || b == '`' || b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}

// Equal compares string forms case-insensitively. A relationship is generally
// not equal to its flip.
func (r *Relationship) Equal(other *Relationship) bool {
	if r == nil || other == nil {
		return r == other
	}
	return strings.EqualFold(r.String(), other.String())
}

// IsUsingTable reports whether t is either end.
func (r *Relationship) IsUsingTable(t *Table) bool {
	return sameTable(r.From, t) || sameTable(r.To, t)
}

// IsUsingTables reports whether the relationship connects a and b in either direction.
func (r *Relationship) IsUsingTables(a, b *Table) bool {
	return (sameTable(r.From, a) && sameTable(r.To, b)) || (sameTable(r.From, b) && sameTable(r.To, a))
}

// Validate checks that the relationship can render a join.
func (r *Relationship) Validate() error {
	missing := ""
	switch {
	case r.From == nil:
		missing = "from table"
	case r.To == nil:
		missing = "to table"
	case r.Complex && strings.TrimSpace(r.ComplexJoin) == "":
		missing = "complex join expression"
	case !r.Complex && r.FromField == nil:
		missing = "from field"
	case !r.Complex && r.ToField == nil:
		missing = "to field"
	default:
		return nil
	}
	return &IncompleteRelationshipError{Relationship: r.String(), Missing: missing}
}
