package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldEqual(t *testing.T) {
	a := NewTable("a", "tab_a", TableTypeOther)
	b := NewTable("b", "tab_b", TableTypeOther)

	f1 := a.AddField(&Field{Name: "x", DBName: "col_x", Type: FieldTypeFact, Aggregation: AggregationSum})
	f2 := &Field{Name: "x", DBName: "col_x", Type: FieldTypeFact, Aggregation: AggregationSum, Table: NewTable("a", "other", TableTypeFact)}
	f3 := b.AddField(&Field{Name: "x", DBName: "col_x", Type: FieldTypeFact, Aggregation: AggregationSum})

	assert.True(t, f1.Equal(f2), "same attributes on distinct instances")
	assert.False(t, f1.Equal(f3), "different owning table")
	assert.False(t, f1.Equal(&Field{Name: "x", DBName: "col_x", Type: FieldTypeFact, Table: a}))
}

func TestFieldRendering(t *testing.T) {
	tbl := NewTable("sales", "fact_sales", TableTypeFact)
	sum := tbl.AddField(&Field{Name: "amount", DBName: "amount", Type: FieldTypeFact, Aggregation: AggregationSum})
	dim := tbl.AddField(&Field{Name: "region", DBName: "region", Type: FieldTypeDimension, Aggregation: AggregationSum})
	exact := tbl.AddField(&Field{Name: "n", DBName: "COUNT(*)", Exact: true})

	assert.True(t, sum.HasAggregate())
	assert.False(t, dim.HasAggregate(), "aggregation only applies to facts")

	assert.Equal(t, "sales.amount", sum.AliasField())
	assert.Equal(t, "COUNT(*)", exact.AliasField())

	assert.Equal(t, "SUM(sales.amount) AS F___0", sum.SelectField(0))
	assert.Equal(t, "sales.region AS F___1", dim.SelectField(1))
	assert.Equal(t, "COUNT(*) AS E___2", exact.SelectField(2))
}

func TestWhereClause(t *testing.T) {
	tbl := NewTable("customer", "dim_customer", TableTypeDimension)
	country := tbl.AddField(&Field{Name: "country", DBName: "country"})

	tests := []struct {
		name string
		cond *WhereCondition
		want string
	}{
		{"field and code", &WhereCondition{Field: country, Comparator: ComparatorIn, Code: "('BE','NL')"}, "customer.country IN ('BE','NL')"},
		{"default comparator", &WhereCondition{Field: country, Code: "'BE'"}, "customer.country = 'BE'"},
		{"no operand", &WhereCondition{Field: country, Comparator: ComparatorIsNull}, "customer.country IS NULL"},
		{"code only", &WhereCondition{Code: "customer.active = 1"}, "customer.active = 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cond.WhereClause())
		})
	}
}

func TestRelationshipFlipped(t *testing.T) {
	fx := newStarFixture(t)
	r := fx.schema.FindJoin(fx.sales, fx.customer)
	require.NotNil(t, r)

	flipped := r.Flipped()
	assert.Same(t, fx.customer, flipped.From)
	assert.Same(t, fx.sales, flipped.To)
	assert.Equal(t, CardinalityOneToMany, flipped.Cardinality)
	assert.Equal(t, "customer.id - sales.customer_id", flipped.String())
	assert.Equal(t, "customer.id = sales.customer_id", flipped.Join())

	// The canonical edge is untouched.
	assert.Same(t, fx.sales, r.From)
	assert.Equal(t, CardinalityManyToOne, r.Cardinality)

	back := flipped.Flipped()
	assert.Same(t, r.From, back.From)
	assert.Same(t, r.To, back.To)
	assert.Same(t, r.FromField, back.FromField)
	assert.Same(t, r.ToField, back.ToField)
	assert.Equal(t, r.Cardinality, back.Cardinality)
	assert.True(t, back.Equal(r))
	assert.False(t, flipped.Equal(r))
}

func TestRelationshipCloneSharesTables(t *testing.T) {
	fx := newStarFixture(t)
	r := fx.schema.FindJoin(fx.sales, fx.product)
	c := r.Clone()
	assert.NotSame(t, r, c)
	assert.Same(t, r.From, c.From)
	assert.Same(t, r.To, c.To)
}

func TestRelationshipStringAndJoin(t *testing.T) {
	a := NewTable("A", "a", TableTypeOther)
	b := NewTable("B", "b", TableTypeOther)

	complexRel := &Relationship{From: a, To: b, Complex: true, ComplexJoin: "A.x = B.y AND A.z = B.w"}
	assert.Equal(t, "A - B", complexRel.String())
	assert.Equal(t, "A.x = B.y AND A.z = B.w", complexRel.Join())
	assert.True(t, complexRel.Equal(&Relationship{From: NewTable("a", "", TableTypeOther), To: NewTable("b", "", TableTypeOther)}))

	half := &Relationship{From: a}
	assert.Equal(t, "A - null", half.String())
	assert.Equal(t, "", half.Join())
}

func TestRelationshipValidate(t *testing.T) {
	a := NewTable("A", "a", TableTypeOther)
	b := NewTable("B", "b", TableTypeOther)
	ax := a.AddField(&Field{Name: "x", DBName: "x"})
	by := b.AddField(&Field{Name: "y", DBName: "y"})

	tests := []struct {
		name    string
		rel     *Relationship
		missing string
	}{
		{"complete", &Relationship{From: a, To: b, FromField: ax, ToField: by}, ""},
		{"complete complex", &Relationship{From: a, To: b, Complex: true, ComplexJoin: "A.x > B.y"}, ""},
		{"no from", &Relationship{To: b, FromField: ax, ToField: by}, "from table"},
		{"no to", &Relationship{From: a, FromField: ax, ToField: by}, "to table"},
		{"no to field", &Relationship{From: a, To: b, FromField: ax}, "to field"},
		{"empty complex", &Relationship{From: a, To: b, Complex: true}, "complex join expression"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rel.Validate()
			if tt.missing == "" {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrIncompleteRelationship)
			var incomplete *IncompleteRelationshipError
			require.True(t, errors.As(err, &incomplete))
			assert.Equal(t, tt.missing, incomplete.Missing)
		})
	}
}

func TestSchemaBookkeeping(t *testing.T) {
	fx := newStarFixture(t)
	s := fx.schema

	err := s.AddTable(NewTable("SALES", "x", TableTypeOther))
	assert.ErrorIs(t, err, ErrDuplicateTable)

	r := s.FindJoin(fx.sales, fx.customer)
	assert.ErrorIs(t, s.AddRelationship(r.Clone()), ErrDuplicateRelationship)

	stranger := NewTable("stranger", "s", TableTypeOther)
	stranger.AddField(&Field{Name: "id", DBName: "id"})
	err = s.AddRelationship(&Relationship{From: stranger, To: fx.sales, FromField: stranger.FindField("id"), ToField: fx.amount})
	assert.ErrorIs(t, err, ErrUnknownTable)

	replacement := r.Clone()
	replacement.Cardinality = CardinalityOneToOne
	require.NoError(t, s.MergeRelationship(replacement))
	assert.Len(t, s.Relationships, 5)
	assert.Equal(t, CardinalityOneToOne, s.FindJoin(fx.sales, fx.customer).Cardinality)

	using := s.FindRelationshipsUsing(fx.category)
	require.Len(t, using, 2)
	assert.Same(t, fx.product, using[0].From)
	assert.Same(t, fx.promo, using[1].From)

	involved := s.RelationsInvolved([]*Table{fx.customer})
	require.Len(t, involved, 1)
	assert.Same(t, fx.sales, involved[0].From)
	assert.Len(t, s.RelationsInvolved([]*Table{fx.product, fx.category}), 3)
	assert.Empty(t, s.RelationsInvolved(nil))

	assert.Equal(t, Stats{Tables: 5, FactTables: 1, DimensionTables: 4, Relationships: 5, Fields: 12}, s.Stats())

	require.True(t, s.RemoveTable("Product"))
	assert.Nil(t, s.FindTable("product"))
	assert.Len(t, s.Relationships, 3)
	assert.False(t, s.RemoveTable("product"))
}

func TestSchemaResolveRefs(t *testing.T) {
	fx := newStarFixture(t)
	s := fx.schema
	fx.customer.AddCondition(&WhereCondition{Name: "belgian", Field: fx.customerName, Code: "'x'"})

	f, err := s.FindField("Customer.NAME")
	require.NoError(t, err)
	assert.Same(t, fx.customerName, f)

	_, err = s.FindField("nosuch.name")
	assert.ErrorIs(t, err, ErrUnknownTable)
	_, err = s.FindField("customer.nosuch")
	assert.ErrorIs(t, err, ErrUnknownField)
	_, err = s.FindField("customer")
	assert.ErrorIs(t, err, ErrUnknownField)

	c, err := s.FindCondition("customer.belgian")
	require.NoError(t, err)
	assert.Same(t, fx.customer, c.Table)
	_, err = s.ResolveConditions([]string{"customer.other"})
	assert.ErrorIs(t, err, ErrUnknownCondition)

	fields, err := s.ResolveFields([]string{"sales.amount", "customer.name", "sales.customer_id"})
	require.NoError(t, err)
	tables := TablesInvolved(fields)
	require.Len(t, tables, 2)
	assert.Same(t, fx.sales, tables[0])
	assert.Same(t, fx.customer, tables[1])
}

func TestTableRemoveFieldDropsConditions(t *testing.T) {
	tbl := NewTable("t", "t", TableTypeOther)
	f := tbl.AddField(&Field{Name: "a", DBName: "a"})
	tbl.AddCondition(&WhereCondition{Name: "on_a", Field: f, Code: "1"})
	tbl.AddCondition(&WhereCondition{Name: "raw", Code: "t.b = 2"})

	require.True(t, tbl.RemoveField("A"))
	assert.Nil(t, tbl.FindField("a"))
	require.Len(t, tbl.Conditions, 1)
	assert.Equal(t, "raw", tbl.Conditions[0].Name)
}
