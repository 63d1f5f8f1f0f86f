package introspection

import (
	"log/slog"
	"strings"

	"joinpath/internal/schema"
)

var numericTypes = map[string]bool{
	"tinyint": true, "smallint": true, "mediumint": true, "int": true, "integer": true, "bigint": true,
	"decimal": true, "numeric": true, "float": true, "double": true, "real": true,
}

// Build assembles a schema from introspected metadata. Foreign keys become N:1
// relationships from the referencing table; composite keys become complex
// relationships.
func Build(databaseName string, tables []tableInfo, columns []Column, constraints []ForeignKeyConstraint, opts Options) (*schema.Schema, error) {
	s := schema.New(databaseName)
	conn := &schema.Connection{Name: opts.ConnectionName, Dialect: "mysql", Database: databaseName}
	if conn.Name == "" {
		conn.Name = databaseName
	}
	s.AddConnection(conn)

	byPhysical := make(map[string]*schema.Table, len(tables))
	for _, info := range tables {
		t := schema.NewTable(LogicalName(info.Name, opts), info.Name, schema.TableTypeOther)
		t.Connection = conn
		t.Description = info.Comment
		if info.Rows.Valid {
			t.Size = info.Rows.Int64
		}
		if err := s.AddTable(t); err != nil {
			return nil, err
		}
		byPhysical[strings.ToLower(info.Name)] = t
	}

	for _, col := range columns {
		t := byPhysical[strings.ToLower(col.TableName)]
		if t == nil {
			continue
		}
		t.AddField(&schema.Field{
			Name:        col.Name,
			DBName:      col.Name,
			Description: col.Comment,
		})
	}

	outgoing := make(map[*schema.Table]int)
	referenced := make(map[*schema.Table]bool)
	keyColumns := make(map[*schema.Field]bool)
	for _, fk := range constraints {
		child := byPhysical[strings.ToLower(fk.TableName)]
		parent := byPhysical[strings.ToLower(fk.ReferencedTable)]
		if child == nil || parent == nil {
			warnSkipped("skipping foreign key to unknown table",
				slog.String("table", fk.TableName),
				slog.String("referenced_table", fk.ReferencedTable),
				slog.String("constraint", fk.ConstraintName),
			)
			continue
		}
		rel, fields := relationshipFor(child, parent, fk)
		if rel == nil {
			warnSkipped("skipping foreign key on unknown column",
				slog.String("table", fk.TableName),
				slog.String("constraint", fk.ConstraintName),
			)
			continue
		}
		if existing := s.FindRelationship(rel.String()); existing != nil {
			warnSkipped("foreign key replaces an earlier relationship between the same tables",
				slog.String("table", fk.TableName),
				slog.String("constraint", fk.ConstraintName),
				slog.String("replaced", existing.Description),
			)
		}
		if err := s.MergeRelationship(rel); err != nil {
			return nil, err
		}
		for _, f := range fields {
			keyColumns[f] = true
		}
		if child != parent {
			outgoing[child]++
			referenced[parent] = true
		}
	}

	for _, t := range s.Tables {
		switch {
		case outgoing[t] >= 2:
			t.Type = schema.TableTypeFact
		case referenced[t]:
			t.Type = schema.TableTypeDimension
		}
	}

	pkColumns := make(map[string]bool)
	for _, col := range columns {
		if col.IsPrimaryKey {
			pkColumns[strings.ToLower(col.TableName)+"."+strings.ToLower(col.Name)] = true
		}
	}
	dataTypes := make(map[string]string, len(columns))
	for _, col := range columns {
		dataTypes[strings.ToLower(col.TableName)+"."+strings.ToLower(col.Name)] = strings.ToLower(col.DataType)
	}
	for _, t := range s.Tables {
		for _, f := range t.Fields {
			key := strings.ToLower(t.DBName) + "." + strings.ToLower(f.DBName)
			switch {
			case pkColumns[key] || keyColumns[f]:
				f.Type = schema.FieldTypeKey
			case t.IsFact() && numericTypes[dataTypes[key]]:
				f.Type = schema.FieldTypeFact
				f.Aggregation = schema.AggregationSum
			default:
				f.Type = schema.FieldTypeDimension
			}
		}
	}
	return s, nil
}

// relationshipFor maps one FK constraint onto a relationship, returning the
// columns involved. It returns nil when a column is missing.
func relationshipFor(child, parent *schema.Table, fk ForeignKeyConstraint) (*schema.Relationship, []*schema.Field) {
	var fields []*schema.Field
	var predicates []string
	for i, column := range fk.ColumnNames {
		from := child.FindFieldByColumn(column)
		to := parent.FindFieldByColumn(fk.ReferencedColumns[i])
		if from == nil || to == nil {
			return nil, nil
		}
		fields = append(fields, from, to)
		predicates = append(predicates, from.AliasField()+" = "+to.AliasField())
	}
	if len(fields) == 0 {
		return nil, nil
	}

	rel := &schema.Relationship{
		From:        child,
		To:          parent,
		Cardinality: schema.CardinalityManyToOne,
		Description: fk.ConstraintName,
	}
	if len(fk.ColumnNames) == 1 {
		rel.FromField, rel.ToField = fields[0], fields[1]
	} else {
		rel.Complex = true
		rel.ComplexJoin = strings.Join(predicates, " AND ")
		rel.JoinFields = fields
	}
	return rel, fields
}
