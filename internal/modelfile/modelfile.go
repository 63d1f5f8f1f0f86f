// Package modelfile reads and writes schema models as YAML documents.
//
// A document names tables, their fields and conditions, and the relationships
// between them. Loading resolves every "table.field" reference into the live
// objects of a schema.Schema.
package modelfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"joinpath/internal/schema"
)

// Document is the YAML form of a schema model.
type Document struct {
	Name          string            `yaml:"name"`
	Description   string            `yaml:"description,omitempty"`
	Notes         []string          `yaml:"notes,omitempty"`
	Connections   []ConnectionDoc   `yaml:"connections,omitempty"`
	Tables        []TableDoc        `yaml:"tables"`
	Relationships []RelationshipDoc `yaml:"relationships,omitempty"`
	Selection     *SelectionDoc     `yaml:"selection,omitempty"`
}

type ConnectionDoc struct {
	Name     string `yaml:"name"`
	Dialect  string `yaml:"dialect,omitempty"`
	Database string `yaml:"database,omitempty"`
}

type TableDoc struct {
	Name        string         `yaml:"name"`
	DBName      string         `yaml:"db_name,omitempty"`
	Connection  string         `yaml:"connection,omitempty"`
	Type        string         `yaml:"type,omitempty"`
	Size        *int64         `yaml:"size,omitempty"`
	Description string         `yaml:"description,omitempty"`
	Fields      []FieldDoc     `yaml:"fields,omitempty"`
	Conditions  []ConditionDoc `yaml:"conditions,omitempty"`
}

type FieldDoc struct {
	Name        string `yaml:"name"`
	DBName      string `yaml:"db_name,omitempty"`
	Type        string `yaml:"type,omitempty"`
	Aggregation string `yaml:"aggregation,omitempty"`
	Hidden      bool   `yaml:"hidden,omitempty"`
	Exact       bool   `yaml:"exact,omitempty"`
	Description string `yaml:"description,omitempty"`
}

type ConditionDoc struct {
	Name        string `yaml:"name"`
	Field       string `yaml:"field,omitempty"`
	Comparator  string `yaml:"comparator,omitempty"`
	Code        string `yaml:"code"`
	Description string `yaml:"description,omitempty"`
}

// RelationshipDoc uses "table.field" endpoints, or bare table names together
// with ComplexJoin.
type RelationshipDoc struct {
	From        string `yaml:"from"`
	To          string `yaml:"to"`
	Cardinality string `yaml:"cardinality,omitempty"`
	ComplexJoin string `yaml:"complex_join,omitempty"`
	Description string `yaml:"description,omitempty"`
}

type SelectionDoc struct {
	Fields     []string `yaml:"fields,omitempty"`
	Conditions []string `yaml:"conditions,omitempty"`
}

// LoadFile reads a model from path.
func LoadFile(path string) (*schema.Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open model file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Load(f)
}

// Load decodes a YAML model from r.
func Load(r io.Reader) (*schema.Schema, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to decode model: empty document")
		}
		return nil, fmt.Errorf("failed to decode model: %w", err)
	}
	return Decode(&doc)
}

// Decode builds a schema from doc, resolving every name reference.
func Decode(doc *Document) (*schema.Schema, error) {
	s := schema.New(doc.Name)
	s.Description = doc.Description
	s.Notes = append([]string(nil), doc.Notes...)

	for _, c := range doc.Connections {
		if c.Name == "" {
			return nil, fmt.Errorf("connection without a name")
		}
		s.AddConnection(&schema.Connection{Name: c.Name, Dialect: c.Dialect, Database: c.Database})
	}

	for i, td := range doc.Tables {
		t, err := decodeTable(s, td)
		if err != nil {
			return nil, fmt.Errorf("tables[%d]: %w", i, err)
		}
		if err := s.AddTable(t); err != nil {
			return nil, fmt.Errorf("tables[%d]: %w", i, err)
		}
	}

	for i, rd := range doc.Relationships {
		r, err := decodeRelationship(s, rd)
		if err != nil {
			return nil, fmt.Errorf("relationships[%d]: %w", i, err)
		}
		// Later duplicates replace earlier ones.
		if err := s.MergeRelationship(r); err != nil {
			return nil, fmt.Errorf("relationships[%d]: %w", i, err)
		}
	}

	if doc.Selection != nil {
		fields, err := s.ResolveFields(doc.Selection.Fields)
		if err != nil {
			return nil, fmt.Errorf("selection: %w", err)
		}
		conds, err := s.ResolveConditions(doc.Selection.Conditions)
		if err != nil {
			return nil, fmt.Errorf("selection: %w", err)
		}
		s.Selection = schema.Selection{Fields: fields, Conditions: conds}
	}
	return s, nil
}

func decodeTable(s *schema.Schema, td TableDoc) (*schema.Table, error) {
	if td.Name == "" {
		return nil, fmt.Errorf("table without a name")
	}
	tableType, err := schema.ParseTableType(td.Type)
	if err != nil {
		return nil, fmt.Errorf("table %s: %w", td.Name, err)
	}
	dbName := td.DBName
	if dbName == "" {
		dbName = td.Name
	}
	t := schema.NewTable(td.Name, dbName, tableType)
	t.Description = td.Description
	if td.Size != nil {
		t.Size = *td.Size
	}
	if td.Connection != "" {
		t.Connection = s.FindConnection(td.Connection)
		if t.Connection == nil {
			return nil, fmt.Errorf("table %s: unknown connection %q", td.Name, td.Connection)
		}
	}

	for _, fd := range td.Fields {
		if fd.Name == "" {
			return nil, fmt.Errorf("table %s: field without a name", td.Name)
		}
		if t.FindField(fd.Name) != nil {
			return nil, fmt.Errorf("table %s: duplicate field %s", td.Name, fd.Name)
		}
		fieldType, err := schema.ParseFieldType(fd.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s.%s: %w", td.Name, fd.Name, err)
		}
		agg, err := schema.ParseAggregationType(fd.Aggregation)
		if err != nil {
			return nil, fmt.Errorf("field %s.%s: %w", td.Name, fd.Name, err)
		}
		column := fd.DBName
		if column == "" {
			column = fd.Name
		}
		t.AddField(&schema.Field{
			Name:        fd.Name,
			DBName:      column,
			Type:        fieldType,
			Aggregation: agg,
			Hidden:      fd.Hidden,
			Exact:       fd.Exact,
			Description: fd.Description,
		})
	}

	for _, cd := range td.Conditions {
		if cd.Name == "" {
			return nil, fmt.Errorf("table %s: condition without a name", td.Name)
		}
		comp, err := schema.ParseComparator(cd.Comparator)
		if err != nil {
			return nil, fmt.Errorf("condition %s.%s: %w", td.Name, cd.Name, err)
		}
		c := &schema.WhereCondition{Name: cd.Name, Comparator: comp, Code: cd.Code, Description: cd.Description}
		if cd.Field != "" {
			c.Field = t.FindField(cd.Field)
			if c.Field == nil {
				return nil, fmt.Errorf("condition %s.%s: %w: %s.%s", td.Name, cd.Name, schema.ErrUnknownField, td.Name, cd.Field)
			}
		}
		t.AddCondition(c)
	}
	return t, nil
}

func decodeRelationship(s *schema.Schema, rd RelationshipDoc) (*schema.Relationship, error) {
	card, err := schema.ParseCardinality(rd.Cardinality)
	if err != nil {
		return nil, err
	}
	r := &schema.Relationship{Cardinality: card, Description: rd.Description}
	if rd.ComplexJoin != "" {
		r.Complex = true
		r.ComplexJoin = rd.ComplexJoin
	}

	var fromField, toField string
	r.From, fromField, err = resolveEndpoint(s, rd.From)
	if err != nil {
		return nil, err
	}
	r.To, toField, err = resolveEndpoint(s, rd.To)
	if err != nil {
		return nil, err
	}
	if fromField != "" {
		if r.FromField = r.From.FindField(fromField); r.FromField == nil {
			return nil, fmt.Errorf("%w: %s.%s", schema.ErrUnknownField, r.From.Name, fromField)
		}
	}
	if toField != "" {
		if r.ToField = r.To.FindField(toField); r.ToField == nil {
			return nil, fmt.Errorf("%w: %s.%s", schema.ErrUnknownField, r.To.Name, toField)
		}
	}
	return r, nil
}

// resolveEndpoint accepts "table.field" or a bare table name.
func resolveEndpoint(s *schema.Schema, ref string) (*schema.Table, string, error) {
	tableName, fieldName, ok := schema.SplitQualified(ref)
	if !ok {
		tableName = ref
	}
	t := s.FindTable(tableName)
	if t == nil {
		return nil, "", fmt.Errorf("%w: %q", schema.ErrUnknownTable, tableName)
	}
	return t, fieldName, nil
}

// Encode converts s into its document form.
func Encode(s *schema.Schema) *Document {
	doc := &Document{
		Name:        s.Name,
		Description: s.Description,
		Notes:       append([]string(nil), s.Notes...),
	}
	for _, c := range s.Connections {
		doc.Connections = append(doc.Connections, ConnectionDoc{Name: c.Name, Dialect: c.Dialect, Database: c.Database})
	}
	for _, t := range s.Tables {
		td := TableDoc{
			Name:        t.Name,
			DBName:      t.DBName,
			Type:        t.Type.String(),
			Description: t.Description,
		}
		if t.Size >= 0 {
			size := t.Size
			td.Size = &size
		}
		if t.Connection != nil {
			td.Connection = t.Connection.Name
		}
		for _, f := range t.Fields {
			fd := FieldDoc{
				Name:        f.Name,
				DBName:      f.DBName,
				Hidden:      f.Hidden,
				Exact:       f.Exact,
				Description: f.Description,
			}
			if f.Type != schema.FieldTypeNone {
				fd.Type = f.Type.String()
			}
			if f.Aggregation != schema.AggregationNone {
				fd.Aggregation = f.Aggregation.String()
			}
			td.Fields = append(td.Fields, fd)
		}
		for _, c := range t.Conditions {
			cd := ConditionDoc{Name: c.Name, Comparator: string(c.Comparator), Code: c.Code, Description: c.Description}
			if c.Field != nil {
				cd.Field = c.Field.Name
			}
			td.Conditions = append(td.Conditions, cd)
		}
		doc.Tables = append(doc.Tables, td)
	}
	for _, r := range s.Relationships {
		rd := RelationshipDoc{
			From:        endpoint(r.From, r.FromField),
			To:          endpoint(r.To, r.ToField),
			Description: r.Description,
		}
		if r.Cardinality != schema.CardinalityUndefined {
			rd.Cardinality = r.Cardinality.String()
		}
		if r.Complex {
			rd.ComplexJoin = r.ComplexJoin
		}
		doc.Relationships = append(doc.Relationships, rd)
	}
	if len(s.Selection.Fields) > 0 || len(s.Selection.Conditions) > 0 {
		sel := &SelectionDoc{}
		for _, f := range s.Selection.Fields {
			sel.Fields = append(sel.Fields, f.QualifiedName())
		}
		for _, c := range s.Selection.Conditions {
			sel.Conditions = append(sel.Conditions, c.QualifiedName())
		}
		doc.Selection = sel
	}
	return doc
}

func endpoint(t *schema.Table, f *schema.Field) string {
	if f == nil {
		return t.Name
	}
	return t.Name + "." + f.Name
}

// Marshal renders s as YAML.
func Marshal(s *schema.Schema) ([]byte, error) {
	var buf bytes.Buffer
	if err := Save(&buf, s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes s to w as YAML.
func Save(w io.Writer, s *schema.Schema) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(Encode(s)); err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}
	return enc.Close()
}

// SaveFile writes s to path, replacing any existing file.
func SaveFile(path string, s *schema.Schema) error {
	data, err := Marshal(s)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write model file: %w", err)
	}
	return nil
}
