package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLWithAggregate(t *testing.T) {
	fx := newStarFixture(t)

	sql, ok := fx.schema.SQL([]*Field{fx.amount, fx.customerName}, nil)
	require.True(t, ok)
	want := "SELECT \n" +
		"          SUM(sales.amount) AS F___0\n" +
		"         ,customer.name AS F___1\n" +
		"FROM \n" +
		"          fact_sales sales\n" +
		"         ,dim_customer customer\n" +
		"WHERE \n" +
		"          sales.customer_id = customer.id\n" +
		"GROUP BY \n" +
		"          customer.name\n"
	assert.Equal(t, want, sql)
}

func TestSQLWithoutAggregate(t *testing.T) {
	fx := newStarFixture(t)
	belgian := fx.customer.AddCondition(&WhereCondition{Name: "belgian", Field: fx.customer.FindField("name"), Comparator: ComparatorNotEqual, Code: "''"})
	raw := fx.category.AddCondition(&WhereCondition{Name: "visible", Code: "category.id > 0"})

	sql, ok := fx.schema.SQL([]*Field{fx.customerName, fx.categoryName}, []*WhereCondition{belgian, raw})
	require.True(t, ok)
	want := "SELECT DISTINCT \n" +
		"          customer.name AS F___0\n" +
		"         ,category.label AS F___1\n" +
		"FROM \n" +
		"          dim_customer customer\n" +
		"         ,fact_sales sales\n" +
		"         ,dim_promo promo\n" +
		"         ,dim_category category\n" +
		"WHERE \n" +
		"          customer.id = sales.customer_id\n" +
		"      AND sales.promo_id = promo.id\n" +
		"      AND promo.category_id = category.id\n" +
		"      AND customer.name <> ''\n" +
		"      AND category.id > 0\n"
	assert.Equal(t, want, sql)
	assert.NotContains(t, sql, "GROUP BY")
}

func TestSQLNotFound(t *testing.T) {
	fx := newStarFixture(t)
	island := NewTable("island", "island", TableTypeOther)
	lonely := island.AddField(&Field{Name: "x", DBName: "x"})
	require.NoError(t, fx.schema.AddTable(island))

	_, ok := fx.schema.SQL([]*Field{lonely, fx.customerName}, nil)
	assert.False(t, ok)

	// A single table has no joins either.
	_, ok = fx.schema.SQL([]*Field{fx.customerName}, nil)
	assert.False(t, ok)

	_, ok = SQLFor([]*Field{fx.customerName}, NewJoins(), nil)
	assert.False(t, ok)
}

func TestValidateJoins(t *testing.T) {
	fx := newStarFixture(t)
	joins := fx.schema.AllJoinsBetween([]*Table{fx.sales, fx.customer})
	require.NoError(t, ValidateJoins(joins))

	joins.Add(&Relationship{From: fx.product, To: fx.category})
	assert.ErrorIs(t, ValidateJoins(joins), ErrIncompleteRelationship)
}
