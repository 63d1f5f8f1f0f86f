// Package introspection discovers a star schema model from the INFORMATION_SCHEMA
// of a MySQL-compatible database. Tables, columns and foreign keys become
// schema tables, fields and relationships.
package introspection

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jinzhu/inflection"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"joinpath/internal/schema"
)

// Queryer provides query access for schema introspection.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Options controls how introspected objects are named and classified.
type Options struct {
	// Singularize uses the singular form of each table name as its logical name.
	Singularize bool
	// ConnectionName names the connection recorded on every table.
	ConnectionName string
}

// Column represents a database column.
type Column struct {
	TableName    string
	Name         string
	DataType     string
	Comment      string
	IsPrimaryKey bool
}

// ForeignKey represents one column of a foreign key constraint.
type ForeignKey struct {
	TableName        string // e.g., "fact_sales"
	ColumnName       string // e.g., "customer_id"
	ReferencedTable  string // e.g., "dim_customer"
	ReferencedColumn string // e.g., "id"
	ConstraintName   string // e.g., "fact_sales_ibfk_1"
	OrdinalPosition  int
}

type tableInfo struct {
	Name    string
	Rows    sql.NullInt64
	Comment string
}

// IntrospectDatabaseContext reads the base tables of databaseName and builds a schema.
func IntrospectDatabaseContext(ctx context.Context, db Queryer, databaseName string, opts Options) (*schema.Schema, error) {
	ctx, span := startSpan(ctx, "introspection.build_schema",
		attribute.String("db.name", databaseName),
	)
	defer span.End()

	tables, err := getTables(ctx, db, databaseName)
	if err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("failed to get tables: %w", err)
	}
	columns, err := getColumns(ctx, db, databaseName)
	if err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}
	foreignKeys, err := getForeignKeys(ctx, db, databaseName)
	if err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("failed to get foreign keys: %w", err)
	}

	s, err := Build(databaseName, tables, columns, ForeignKeyConstraints(foreignKeys), opts)
	if err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("failed to build schema: %w", err)
	}
	span.SetAttributes(
		attribute.Int("schema.tables", len(s.Tables)),
		attribute.Int("schema.relationships", len(s.Relationships)),
	)
	return s, nil
}

func getTables(ctx context.Context, db Queryer, databaseName string) ([]tableInfo, error) {
	ctx, span := startSpan(ctx, "introspection.get_tables",
		attribute.String("db.name", databaseName),
	)
	defer span.End()

	query := `
		SELECT TABLE_NAME, TABLE_ROWS, TABLE_COMMENT
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = ?
		AND TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME
	`

	rows, err := db.QueryContext(ctx, query, databaseName)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var tables []tableInfo
	for rows.Next() {
		var info tableInfo
		var comment sql.NullString
		if err := rows.Scan(&info.Name, &info.Rows, &comment); err != nil {
			recordSpanError(span, err)
			return nil, err
		}
		if comment.Valid {
			info.Comment = strings.TrimSpace(comment.String)
		}
		tables = append(tables, info)
	}

	if err := rows.Err(); err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	return tables, nil
}

func getColumns(ctx context.Context, db Queryer, databaseName string) ([]Column, error) {
	ctx, span := startSpan(ctx, "introspection.get_columns",
		attribute.String("db.name", databaseName),
	)
	defer span.End()

	query := `
		SELECT TABLE_NAME, COLUMN_NAME, DATA_TYPE, COLUMN_KEY, COLUMN_COMMENT
		FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_SCHEMA = ?
		ORDER BY TABLE_NAME, ORDINAL_POSITION
	`

	rows, err := db.QueryContext(ctx, query, databaseName)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var columns []Column
	for rows.Next() {
		var col Column
		var columnKey string
		var comment sql.NullString
		if err := rows.Scan(&col.TableName, &col.Name, &col.DataType, &columnKey, &comment); err != nil {
			recordSpanError(span, err)
			return nil, err
		}
		col.IsPrimaryKey = strings.EqualFold(columnKey, "PRI")
		if comment.Valid {
			col.Comment = strings.TrimSpace(comment.String)
		}
		columns = append(columns, col)
	}

	if err := rows.Err(); err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	return columns, nil
}

func getForeignKeys(ctx context.Context, db Queryer, databaseName string) ([]ForeignKey, error) {
	ctx, span := startSpan(ctx, "introspection.get_foreign_keys",
		attribute.String("db.name", databaseName),
	)
	defer span.End()

	query := `
		SELECT
			TABLE_NAME,
			COLUMN_NAME,
			REFERENCED_TABLE_NAME,
			REFERENCED_COLUMN_NAME,
			CONSTRAINT_NAME,
			ORDINAL_POSITION
		FROM INFORMATION_SCHEMA.KEY_COLUMN_USAGE
		WHERE TABLE_SCHEMA = ?
			AND REFERENCED_TABLE_NAME IS NOT NULL
		ORDER BY TABLE_NAME, CONSTRAINT_NAME, ORDINAL_POSITION
	`

	rows, err := db.QueryContext(ctx, query, databaseName)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var foreignKeys []ForeignKey
	for rows.Next() {
		var fk ForeignKey
		if err := rows.Scan(&fk.TableName, &fk.ColumnName, &fk.ReferencedTable,
			&fk.ReferencedColumn, &fk.ConstraintName, &fk.OrdinalPosition); err != nil {
			recordSpanError(span, err)
			return nil, err
		}
		foreignKeys = append(foreignKeys, fk)
	}

	if err := rows.Err(); err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	return foreignKeys, nil
}

// LogicalName returns the name a table is exposed under.
func LogicalName(tableName string, opts Options) string {
	if opts.Singularize {
		return inflection.Singular(tableName)
	}
	return tableName
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.Tracer("joinpath/introspection")
	ctx, span := tracer.Start(ctx, name)
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	return ctx, span
}

func recordSpanError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func warnSkipped(msg string, attrs ...any) {
	slog.Default().Warn(msg, attrs...)
}
