// Package planner turns a field selection into an executable SELECT. It
// resolves the join set through the schema graph and builds parameterized SQL
// with squirrel, enforcing row and table limits.
package planner

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"joinpath/internal/schema"
	"joinpath/internal/sqlutil"
)

// SQLQuery represents a parameterized SQL statement.
type SQLQuery struct {
	SQL  string
	Args []interface{}
}

// SelectPlan is a resolved selection: the fields and conditions plus the join
// set that connects their tables.
type SelectPlan struct {
	Fields     []*schema.Field
	Conditions []*schema.WhereCondition
	Joins      *schema.Joins
	Tables     []*schema.Table
	Grouped    bool
}

// PlanSelect resolves the joins for fields. It returns schema.ErrNoPath when
// the tables cannot be connected, and an incomplete relationship error when
// the chosen joins cannot be rendered.
func PlanSelect(s *schema.Schema, fields []*schema.Field, conds []*schema.WhereCondition, limits PlanLimits) (*SelectPlan, error) {
	if len(fields) == 0 {
		return nil, schema.ErrNoFields
	}
	involved := schema.TablesInvolved(fields)
	if err := limits.CheckTables(len(involved)); err != nil {
		return nil, err
	}

	joins := s.AllJoinsBetween(involved)
	if joins.Size() == 0 {
		return nil, fmt.Errorf("%w: %s", schema.ErrNoPath, tableList(involved))
	}
	if err := schema.ValidateJoins(joins); err != nil {
		return nil, err
	}
	return &SelectPlan{
		Fields:     fields,
		Conditions: conds,
		Joins:      joins,
		Tables:     joins.UsedTables(),
		Grouped:    schema.HasFactsInIt(fields),
	}, nil
}

// Text renders the plan in the report layout used by the schema package.
func (p *SelectPlan) Text() string {
	text, _ := schema.SQLFor(p.Fields, p.Joins, p.Conditions)
	return text
}

// Query builds the executable statement with the given row limit.
func (p *SelectPlan) Query(limit uint64) (SQLQuery, error) {
	columns := make([]string, len(p.Fields))
	for i, f := range p.Fields {
		columns[i] = f.SelectField(i)
	}

	from := make([]string, len(p.Tables))
	for i, t := range p.Tables {
		from[i] = sqlutil.QuoteQualified(t.DBName) + " " + aliasFor(t)
	}

	builder := sq.Select(columns...).From(strings.Join(from, ", "))
	if !p.Grouped {
		builder = builder.Distinct()
	}
	for _, r := range p.Joins.Relationships() {
		builder = builder.Where(r.Join())
	}
	for _, c := range p.Conditions {
		builder = builder.Where(c.WhereClause())
	}
	if p.Grouped {
		var groupBy []string
		for _, f := range p.Fields {
			if !f.HasAggregate() {
				groupBy = append(groupBy, f.AliasField())
			}
		}
		if len(groupBy) > 0 {
			builder = builder.GroupBy(groupBy...)
		}
	}
	if limit > 0 {
		builder = builder.Limit(limit)
	}

	query, args, err := builder.PlaceholderFormat(sq.Question).ToSql()
	if err != nil {
		return SQLQuery{}, fmt.Errorf("failed to build select: %w", err)
	}
	return SQLQuery{SQL: query, Args: args}, nil
}

// aliasFor keeps plain aliases bare so that join text like "sales.id" still
// matches them.
func aliasFor(t *schema.Table) string {
	if sqlutil.IsPlainIdentifier(t.Name) {
		return t.Name
	}
	return sqlutil.QuoteIdentifier(t.Name)
}

func tableList(tables []*schema.Table) string {
	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = t.Name
	}
	return strings.Join(names, ", ")
}
