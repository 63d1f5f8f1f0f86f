package resolver

import (
	"github.com/graphql-go/graphql"

	"joinpath/internal/schema"
)

type objectTypes struct {
	model         *graphql.Object
	table         *graphql.Object
	field         *graphql.Object
	condition     *graphql.Object
	relationship  *graphql.Object
	selection     *graphql.Object
	path          *graphql.Object
	joinSet       *graphql.Object
	sqlResult     *graphql.Object
	executeResult *graphql.Object
}

// sqlResult is the source of the SqlResult type.
type sqlResult struct {
	text       string
	found      bool
	tables     []*schema.Table
	joins      *schema.Joins
	executable string
}

// executeResult is the source of the ExecuteResult type.
type executeResult struct {
	columns []string
	rows    [][]any
	sql     string
}

// from builds a field resolved by get when the parent source is a T.
func from[T any](typ graphql.Output, get func(T) interface{}) *graphql.Field {
	return &graphql.Field{
		Type: typ,
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			src, ok := p.Source.(T)
			if !ok {
				return nil, nil
			}
			return get(src), nil
		},
	}
}

func nonNullList(t graphql.Type) graphql.Output {
	return graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(t)))
}

var (
	nonNullString = graphql.NewNonNull(graphql.String)
	nonNullInt    = graphql.NewNonNull(graphql.Int)
	nonNullBool   = graphql.NewNonNull(graphql.Boolean)
)

func tableNames(tables []*schema.Table) []string {
	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = t.Name
	}
	return names
}

func optionalName(name string, ok bool) interface{} {
	if !ok {
		return nil
	}
	return name
}

func (r *Resolver) buildObjectTypes() objectTypes {
	var ot objectTypes

	stats := graphql.NewObject(graphql.ObjectConfig{
		Name: "ModelStats",
		Fields: graphql.Fields{
			"tables":          from(nonNullInt, func(s schema.Stats) interface{} { return s.Tables }),
			"factTables":      from(nonNullInt, func(s schema.Stats) interface{} { return s.FactTables }),
			"dimensionTables": from(nonNullInt, func(s schema.Stats) interface{} { return s.DimensionTables }),
			"relationships":   from(nonNullInt, func(s schema.Stats) interface{} { return s.Relationships }),
			"fields":          from(nonNullInt, func(s schema.Stats) interface{} { return s.Fields }),
		},
	})

	connection := graphql.NewObject(graphql.ObjectConfig{
		Name: "Connection",
		Fields: graphql.Fields{
			"name":     from(nonNullString, func(c *schema.Connection) interface{} { return c.Name }),
			"dialect":  from(graphql.String, func(c *schema.Connection) interface{} { return c.Dialect }),
			"database": from(graphql.String, func(c *schema.Connection) interface{} { return c.Database }),
		},
	})

	ot.model = graphql.NewObject(graphql.ObjectConfig{
		Name: "Model",
		Fields: graphql.Fields{
			"name":          from(nonNullString, func(s *schema.Schema) interface{} { return s.Name }),
			"description":   from(graphql.String, func(s *schema.Schema) interface{} { return s.Description }),
			"notes":         from(nonNullList(graphql.String), func(s *schema.Schema) interface{} { return append([]string{}, s.Notes...) }),
			"maxPathLength": from(nonNullInt, func(s *schema.Schema) interface{} { return s.MaxPathLength }),
			"stats":         from(graphql.NewNonNull(stats), func(s *schema.Schema) interface{} { return s.Stats() }),
			"connections":   from(nonNullList(connection), func(s *schema.Schema) interface{} { return s.Connections }),
		},
	})

	ot.field = graphql.NewObject(graphql.ObjectConfig{
		Name: "Field",
		Fields: graphql.Fields{
			"name":          from(nonNullString, func(f *schema.Field) interface{} { return f.Name }),
			"dbName":        from(nonNullString, func(f *schema.Field) interface{} { return f.DBName }),
			"table":         from(graphql.String, func(f *schema.Field) interface{} { return optionalName(f.Table.String(), f.Table != nil) }),
			"qualifiedName": from(nonNullString, func(f *schema.Field) interface{} { return f.QualifiedName() }),
			"type":          from(nonNullString, func(f *schema.Field) interface{} { return f.Type.String() }),
			"aggregation":   from(nonNullString, func(f *schema.Field) interface{} { return f.Aggregation.String() }),
			"aggregate":     from(nonNullBool, func(f *schema.Field) interface{} { return f.HasAggregate() }),
			"hidden":        from(nonNullBool, func(f *schema.Field) interface{} { return f.Hidden }),
			"exact":         from(nonNullBool, func(f *schema.Field) interface{} { return f.Exact }),
			"description":   from(graphql.String, func(f *schema.Field) interface{} { return f.Description }),
		},
	})

	ot.condition = graphql.NewObject(graphql.ObjectConfig{
		Name: "Condition",
		Fields: graphql.Fields{
			"name":          from(nonNullString, func(c *schema.WhereCondition) interface{} { return c.Name }),
			"table":         from(graphql.String, func(c *schema.WhereCondition) interface{} { return optionalName(c.Table.String(), c.Table != nil) }),
			"qualifiedName": from(nonNullString, func(c *schema.WhereCondition) interface{} { return c.QualifiedName() }),
			"field": from(graphql.String, func(c *schema.WhereCondition) interface{} {
				if c.Field == nil {
					return nil
				}
				return c.Field.Name
			}),
			"comparator":  from(graphql.String, func(c *schema.WhereCondition) interface{} { return string(c.Comparator) }),
			"code":        from(graphql.String, func(c *schema.WhereCondition) interface{} { return c.Code }),
			"clause":      from(nonNullString, func(c *schema.WhereCondition) interface{} { return c.WhereClause() }),
			"description": from(graphql.String, func(c *schema.WhereCondition) interface{} { return c.Description }),
		},
	})

	ot.table = graphql.NewObject(graphql.ObjectConfig{
		Name: "Table",
		Fields: graphql.Fields{
			"name":   from(nonNullString, func(t *schema.Table) interface{} { return t.Name }),
			"dbName": from(nonNullString, func(t *schema.Table) interface{} { return t.DBName }),
			"type":   from(graphql.NewNonNull(r.tableTypeEnum), func(t *schema.Table) interface{} { return t.Type.String() }),
			"size": from(r.bigInt, func(t *schema.Table) interface{} {
				if t.Size < 0 {
					return nil
				}
				return t.Size
			}),
			"connection": from(graphql.String, func(t *schema.Table) interface{} {
				if t.Connection == nil {
					return nil
				}
				return t.Connection.Name
			}),
			"description": from(graphql.String, func(t *schema.Table) interface{} { return t.Description }),
			"fields":      from(nonNullList(ot.field), func(t *schema.Table) interface{} { return t.Fields }),
			"conditions":  from(nonNullList(ot.condition), func(t *schema.Table) interface{} { return t.Conditions }),
		},
	})

	ot.relationship = graphql.NewObject(graphql.ObjectConfig{
		Name: "Relationship",
		Fields: graphql.Fields{
			"from": from(nonNullString, func(rel *schema.Relationship) interface{} { return rel.From.String() }),
			"to":   from(nonNullString, func(rel *schema.Relationship) interface{} { return rel.To.String() }),
			"fromField": from(graphql.String, func(rel *schema.Relationship) interface{} {
				if rel.FromField == nil {
					return nil
				}
				return rel.FromField.Name
			}),
			"toField": from(graphql.String, func(rel *schema.Relationship) interface{} {
				if rel.ToField == nil {
					return nil
				}
				return rel.ToField.Name
			}),
			"cardinality": from(nonNullString, func(rel *schema.Relationship) interface{} { return rel.Cardinality.String() }),
			"complex":     from(nonNullBool, func(rel *schema.Relationship) interface{} { return rel.Complex }),
			"join":        from(nonNullString, func(rel *schema.Relationship) interface{} { return rel.Join() }),
			"text":        from(nonNullString, func(rel *schema.Relationship) interface{} { return rel.String() }),
			"description": from(graphql.String, func(rel *schema.Relationship) interface{} { return rel.Description }),
		},
	})

	ot.selection = graphql.NewObject(graphql.ObjectConfig{
		Name: "Selection",
		Fields: graphql.Fields{
			"fields":     from(nonNullList(ot.field), func(s schema.Selection) interface{} { return s.Fields }),
			"conditions": from(nonNullList(ot.condition), func(s schema.Selection) interface{} { return s.Conditions }),
		},
	})

	ot.path = graphql.NewObject(graphql.ObjectConfig{
		Name:        "Path",
		Description: "A walk through the relationship graph, oriented in travel order.",
		Fields: graphql.Fields{
			"relationships": from(nonNullList(ot.relationship), func(p *schema.Path) interface{} { return p.Relationships() }),
			"tables":        from(nonNullList(graphql.String), func(p *schema.Path) interface{} { return tableNames(p.Tables()) }),
			"size":          from(nonNullInt, func(p *schema.Path) interface{} { return p.Size() }),
			"nrTables":      from(nonNullInt, func(p *schema.Path) interface{} { return p.NrTables() }),
			"score":         from(graphql.NewNonNull(r.bigInt), func(p *schema.Path) interface{} { return p.Score() }),
			"text":          from(nonNullString, func(p *schema.Path) interface{} { return p.String() }),
		},
	})

	ot.joinSet = graphql.NewObject(graphql.ObjectConfig{
		Name:        "JoinSet",
		Description: "An unordered set of relationships connecting a group of tables.",
		Fields: graphql.Fields{
			"found":         from(nonNullBool, func(j *schema.Joins) interface{} { return j.Size() > 0 }),
			"relationships": from(nonNullList(ot.relationship), func(j *schema.Joins) interface{} { return j.Relationships() }),
			"tables":        from(nonNullList(graphql.String), func(j *schema.Joins) interface{} { return tableNames(j.UsedTables()) }),
			"size":          from(nonNullInt, func(j *schema.Joins) interface{} { return j.Size() }),
			"score":         from(graphql.NewNonNull(r.bigInt), func(j *schema.Joins) interface{} { return j.Score() }),
			"text":          from(nonNullString, func(j *schema.Joins) interface{} { return j.String() }),
		},
	})

	ot.sqlResult = graphql.NewObject(graphql.ObjectConfig{
		Name: "SqlResult",
		Fields: graphql.Fields{
			"sql":        from(nonNullString, func(s *sqlResult) interface{} { return s.text }),
			"found":      from(nonNullBool, func(s *sqlResult) interface{} { return s.found }),
			"tables":     from(nonNullList(graphql.String), func(s *sqlResult) interface{} { return tableNames(s.tables) }),
			"joins":      from(graphql.NewNonNull(ot.joinSet), func(s *sqlResult) interface{} { return s.joins }),
			"executable": from(graphql.String, func(s *sqlResult) interface{} { return optionalName(s.executable, s.executable != "") }),
		},
	})

	ot.executeResult = graphql.NewObject(graphql.ObjectConfig{
		Name: "ExecuteResult",
		Fields: graphql.Fields{
			"columns":  from(nonNullList(graphql.String), func(e *executeResult) interface{} { return e.columns }),
			"rows":     from(nonNullList(r.jsonType), func(e *executeResult) interface{} { return e.rows }),
			"rowCount": from(nonNullInt, func(e *executeResult) interface{} { return len(e.rows) }),
			"sql":      from(nonNullString, func(e *executeResult) interface{} { return e.sql }),
		},
	})

	return ot
}
