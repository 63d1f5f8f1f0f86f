package schema

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// starFixture is a small snowflake:
//
//	customer - sales - product - category
//	             \               /
//	              promo ---------
type starFixture struct {
	schema                                    *Schema
	sales, customer, product, category, promo *Table
	amount, customerName, categoryName        *Field
}

func newStarFixture(t *testing.T) *starFixture {
	t.Helper()
	s := New("retail")
	fx := &starFixture{schema: s}

	fx.sales = NewTable("sales", "fact_sales", TableTypeFact)
	fx.sales.Size = 1000
	fx.sales.AddField(&Field{Name: "customer_id", DBName: "customer_id", Type: FieldTypeKey})
	fx.sales.AddField(&Field{Name: "product_id", DBName: "product_id", Type: FieldTypeKey})
	fx.sales.AddField(&Field{Name: "promo_id", DBName: "promo_id", Type: FieldTypeKey})
	fx.amount = fx.sales.AddField(&Field{Name: "amount", DBName: "amount", Type: FieldTypeFact, Aggregation: AggregationSum})

	fx.customer = NewTable("customer", "dim_customer", TableTypeDimension)
	fx.customer.Size = 50
	fx.customer.AddField(&Field{Name: "id", DBName: "id", Type: FieldTypeKey})
	fx.customerName = fx.customer.AddField(&Field{Name: "name", DBName: "name", Type: FieldTypeDimension})

	fx.product = NewTable("product", "dim_product", TableTypeDimension)
	fx.product.Size = 100
	fx.product.AddField(&Field{Name: "id", DBName: "id", Type: FieldTypeKey})
	fx.product.AddField(&Field{Name: "category_id", DBName: "category_id", Type: FieldTypeKey})

	fx.promo = NewTable("promo", "dim_promo", TableTypeDimension)
	fx.promo.Size = 10
	fx.promo.AddField(&Field{Name: "id", DBName: "id", Type: FieldTypeKey})
	fx.promo.AddField(&Field{Name: "category_id", DBName: "category_id", Type: FieldTypeKey})

	fx.category = NewTable("category", "dim_category", TableTypeDimension)
	fx.category.Size = 5
	fx.category.AddField(&Field{Name: "id", DBName: "id", Type: FieldTypeKey})
	fx.categoryName = fx.category.AddField(&Field{Name: "label", DBName: "label", Type: FieldTypeDimension})

	for _, tbl := range []*Table{fx.sales, fx.customer, fx.product, fx.promo, fx.category} {
		require.NoError(t, s.AddTable(tbl))
	}

	link := func(from *Table, fromField string, to *Table, toField string) {
		require.NoError(t, s.AddRelationship(&Relationship{
			From:        from,
			To:          to,
			FromField:   from.FindField(fromField),
			ToField:     to.FindField(toField),
			Cardinality: CardinalityManyToOne,
		}))
	}
	link(fx.sales, "customer_id", fx.customer, "id")
	link(fx.sales, "product_id", fx.product, "id")
	link(fx.product, "category_id", fx.category, "id")
	link(fx.sales, "promo_id", fx.promo, "id")
	link(fx.promo, "category_id", fx.category, "id")
	return fx
}
