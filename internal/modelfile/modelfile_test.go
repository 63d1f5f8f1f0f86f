package modelfile

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"joinpath/internal/schema"
)

func loadRetail(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := LoadFile(filepath.Join("testdata", "retail.yaml"))
	require.NoError(t, err)
	return s
}

func TestLoadFileResolvesReferences(t *testing.T) {
	s := loadRetail(t)

	assert.Equal(t, "retail", s.Name)
	require.Len(t, s.Tables, 5)
	require.Len(t, s.Relationships, 4)

	sales := s.FindTable("sales")
	require.NotNil(t, sales)
	assert.Equal(t, "fact_sales", sales.DBName)
	assert.Equal(t, schema.TableTypeFact, sales.Type)
	assert.Equal(t, int64(1000000), sales.Size)
	require.NotNil(t, sales.Connection)
	assert.Equal(t, "retail_dw", sales.Connection.Database)

	amount := sales.FindField("amount")
	require.NotNil(t, amount)
	assert.Same(t, sales, amount.Table)
	assert.True(t, amount.HasAggregate())
	assert.Equal(t, "customer_id", sales.FindField("customer_id").DBName, "column defaults to the field name")

	month := sales.FindField("order_month")
	require.NotNil(t, month)
	assert.True(t, month.Exact)
	assert.Equal(t, "DATE_FORMAT(sales.sold_at, '%Y-%m')", month.AliasField())

	r := s.FindJoin(sales, s.FindTable("customer"))
	require.NotNil(t, r)
	assert.Same(t, sales, r.From)
	assert.Same(t, sales.FindField("customer_id"), r.FromField)
	assert.Equal(t, schema.CardinalityManyToOne, r.Cardinality)

	cal := s.FindJoin(sales, s.FindTable("calendar"))
	require.NotNil(t, cal)
	assert.True(t, cal.Complex)
	assert.Equal(t, "sales.date_id = calendar.id", cal.Join())

	belgian, err := s.FindCondition("customer.belgian")
	require.NoError(t, err)
	assert.Equal(t, "customer.country = 'BE'", belgian.WhereClause())

	require.Len(t, s.Selection.Fields, 2)
	assert.Equal(t, "customer.country", s.Selection.Fields[0].QualifiedName())
	require.Len(t, s.Selection.Conditions, 1)
}

func TestLoadedModelGeneratesSQL(t *testing.T) {
	s := loadRetail(t)

	sql, ok := s.SQL(s.Selection.Fields, s.Selection.Conditions)
	require.True(t, ok)
	assert.Equal(t, "SELECT \n"+
		"          customer.country AS F___0\n"+
		"         ,SUM(sales.amount) AS F___1\n"+
		"FROM \n"+
		"          dim_customer customer\n"+
		"         ,fact_sales sales\n"+
		"WHERE \n"+
		"          customer.id = sales.customer_id\n"+
		"      AND customer.country = 'BE'\n"+
		"GROUP BY \n"+
		"          customer.country\n", sql)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr error
		wantMsg string
	}{
		{
			name:    "unknown relationship table",
			yaml:    "name: x\ntables:\n  - name: a\nrelationships:\n  - { from: a, to: b, complex_join: \"a.x = b.y\" }\n",
			wantErr: schema.ErrUnknownTable,
		},
		{
			name:    "unknown relationship field",
			yaml:    "name: x\ntables:\n  - name: a\n    fields: [{name: id}]\n  - name: b\nrelationships:\n  - { from: a.id, to: b.nope }\n",
			wantErr: schema.ErrUnknownField,
		},
		{
			name:    "incomplete relationship",
			yaml:    "name: x\ntables:\n  - name: a\n  - name: b\nrelationships:\n  - { from: a, to: b }\n",
			wantErr: schema.ErrIncompleteRelationship,
		},
		{
			name:    "duplicate table",
			yaml:    "name: x\ntables:\n  - name: a\n  - name: A\n",
			wantErr: schema.ErrDuplicateTable,
		},
		{
			name:    "bad cardinality",
			yaml:    "name: x\ntables:\n  - name: a\n    fields: [{name: id}]\nrelationships:\n  - { from: a.id, to: a.id, cardinality: \"3:4\" }\n",
			wantErr: schema.ErrInvalidCardinality,
		},
		{
			name:    "bad aggregation",
			yaml:    "name: x\ntables:\n  - name: a\n    fields: [{name: id, aggregation: median}]\n",
			wantErr: schema.ErrInvalidAggregation,
		},
		{
			name:    "unknown condition field",
			yaml:    "name: x\ntables:\n  - name: a\n    conditions: [{name: c, field: nope, code: \"1\"}]\n",
			wantErr: schema.ErrUnknownField,
		},
		{
			name:    "unknown selection",
			yaml:    "name: x\ntables:\n  - name: a\nselection:\n  fields: [a.nope]\n",
			wantErr: schema.ErrUnknownField,
		},
		{
			name:    "unknown yaml key",
			yaml:    "name: x\ntabels: []\n",
			wantMsg: "failed to decode model",
		},
		{
			name:    "unknown connection",
			yaml:    "name: x\ntables:\n  - name: a\n    connection: nope\n",
			wantMsg: "unknown connection",
		},
		{
			name:    "empty document",
			yaml:    "",
			wantMsg: "empty document",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.yaml))
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestDuplicateRelationshipReplaces(t *testing.T) {
	doc := `name: x
tables:
  - name: a
    fields: [{name: id}]
  - name: b
    fields: [{name: id}]
relationships:
  - { from: a.id, to: b.id, cardinality: "1:N" }
  - { from: A.ID, to: B.ID, cardinality: "1:1" }
`
	s, err := Load(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, s.Relationships, 1)
	assert.Equal(t, schema.CardinalityOneToOne, s.Relationships[0].Cardinality)
}

func TestSaveThenLoadKeepsModel(t *testing.T) {
	s := loadRetail(t)

	var buf bytes.Buffer
	require.NoError(t, Save(&buf, s))

	again, err := Load(&buf)
	require.NoError(t, err)
	assert.Equal(t, Encode(s), Encode(again))

	before, _ := s.SQL(s.Selection.Fields, s.Selection.Conditions)
	after, _ := again.SQL(again.Selection.Fields, again.Selection.Conditions)
	assert.Equal(t, before, after)
}

func TestSaveFile(t *testing.T) {
	s := loadRetail(t)
	path := filepath.Join(t.TempDir(), "model.yaml")
	require.NoError(t, SaveFile(path, s))

	again, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, len(s.Tables), len(again.Tables))

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to open model file")
}
