package resolver

import (
	"errors"
	"fmt"
	"time"

	"github.com/graphql-go/graphql"
	"go.opentelemetry.io/otel/attribute"

	"joinpath/internal/observability"
	"joinpath/internal/planner"
	"joinpath/internal/schema"
)

func (r *Resolver) resolveModel(p graphql.ResolveParams) (interface{}, error) {
	return r.model, nil
}

func (r *Resolver) resolveTables(p graphql.ResolveParams) (interface{}, error) {
	raw, ok := p.Args["type"].(string)
	if !ok {
		return r.model.Tables, nil
	}
	tableType, err := schema.ParseTableType(raw)
	if err != nil {
		return nil, err
	}
	out := make([]*schema.Table, 0, len(r.model.Tables))
	for _, t := range r.model.Tables {
		if t.Type == tableType {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *Resolver) resolveTable(p graphql.ResolveParams) (interface{}, error) {
	name, _ := p.Args["name"].(string)
	if t := r.model.FindTable(name); t != nil {
		return t, nil
	}
	return nil, nil
}

func (r *Resolver) resolveRelationships(p graphql.ResolveParams) (interface{}, error) {
	names := stringArgs(p.Args, "tables")
	if name, ok := p.Args["table"].(string); ok && name != "" {
		names = append(names, name)
	}
	if len(names) == 0 {
		return r.model.Relationships, nil
	}
	tables, err := r.model.ResolveTables(names)
	if err != nil {
		return nil, err
	}
	return r.model.RelationsInvolved(tables), nil
}

func (r *Resolver) resolveSelection(p graphql.ResolveParams) (interface{}, error) {
	return r.model.Selection, nil
}

func (r *Resolver) resolveShortestPaths(p graphql.ResolveParams) (result interface{}, err error) {
	names := stringArgs(p.Args, "tables")
	ctx, span := startResolverSpan(p.Context, "joinpath.shortest_paths",
		attribute.Int("joinpath.tables", len(names)))
	started := time.Now()
	outcome := ""
	candidates := 0
	defer func() {
		finishResolverSpan(span, err, outcome)
		r.metrics.RecordResolve(ctx, "shortest_paths", outcome, time.Since(started), candidates)
	}()

	if err = r.limits.CheckTables(len(names)); err != nil {
		outcome = observability.OutcomeError
		return nil, err
	}
	tables, err := r.model.ResolveTables(names)
	if err != nil {
		outcome = observability.OutcomeError
		return nil, err
	}
	paths := r.model.ShortestPathsBetween(tables)
	candidates = len(paths)
	if len(paths) == 0 {
		outcome = observability.OutcomeNoPath
	} else {
		outcome = observability.OutcomeFound
	}
	return paths, nil
}

func (r *Resolver) resolveJoins(p graphql.ResolveParams) (result interface{}, err error) {
	names := stringArgs(p.Args, "tables")
	direct, _ := p.Args["direct"].(bool)
	operation := "all_joins"
	if direct {
		operation = "direct_joins"
	}
	ctx, span := startResolverSpan(p.Context, "joinpath.joins",
		attribute.Int("joinpath.tables", len(names)),
		attribute.Bool("joinpath.direct", direct))
	started := time.Now()
	outcome := ""
	size := 0
	defer func() {
		finishResolverSpan(span, err, outcome)
		r.metrics.RecordResolve(ctx, operation, outcome, time.Since(started), size)
	}()

	if err = r.limits.CheckTables(len(names)); err != nil {
		outcome = observability.OutcomeError
		return nil, err
	}
	tables, err := r.model.ResolveTables(names)
	if err != nil {
		outcome = observability.OutcomeError
		return nil, err
	}
	var joins *schema.Joins
	if direct {
		joins = r.model.JoinsBetween(tables)
	} else {
		joins = r.model.AllJoinsBetween(tables)
	}
	size = joins.Size()
	if size == 0 {
		outcome = observability.OutcomeNoPath
	} else {
		outcome = observability.OutcomeFound
	}
	return joins, nil
}

// planFromArgs resolves the field and condition references and plans the
// select. A selection whose tables cannot be joined returns schema.ErrNoPath.
func (r *Resolver) planFromArgs(args map[string]interface{}) ([]*schema.Field, *planner.SelectPlan, error) {
	fields, err := r.model.ResolveFields(stringArgs(args, "fields"))
	if err != nil {
		return nil, nil, err
	}
	conds, err := r.model.ResolveConditions(stringArgs(args, "conditions"))
	if err != nil {
		return fields, nil, err
	}
	plan, err := planner.PlanSelect(r.model, fields, conds, r.limits)
	return fields, plan, err
}

func (r *Resolver) resolveSQL(p graphql.ResolveParams) (result interface{}, err error) {
	ctx, span := startResolverSpan(p.Context, "joinpath.sql")
	started := time.Now()
	outcome := ""
	size := 0
	defer func() {
		finishResolverSpan(span, err, outcome)
		r.metrics.RecordResolve(ctx, "sql", outcome, time.Since(started), size)
	}()

	fields, plan, err := r.planFromArgs(p.Args)
	if errors.Is(err, schema.ErrNoPath) {
		outcome = observability.OutcomeNoPath
		return &sqlResult{
			tables: schema.TablesInvolved(fields),
			joins:  schema.NewJoins(),
		}, nil
	}
	if err != nil {
		outcome = observability.OutcomeError
		return nil, err
	}

	query, err := plan.Query(0)
	if err != nil {
		outcome = observability.OutcomeError
		return nil, err
	}
	size = plan.Joins.Size()
	outcome = observability.OutcomeFound
	return &sqlResult{
		text:       plan.Text(),
		found:      true,
		tables:     plan.Tables,
		joins:      plan.Joins,
		executable: query.SQL,
	}, nil
}

func (r *Resolver) resolveExecute(p graphql.ResolveParams) (result interface{}, err error) {
	ctx, span := startResolverSpan(p.Context, "joinpath.execute")
	outcome := ""
	defer func() {
		finishResolverSpan(span, err, outcome)
	}()

	_, plan, err := r.planFromArgs(p.Args)
	if err != nil {
		if errors.Is(err, schema.ErrNoPath) {
			outcome = observability.OutcomeNoPath
		}
		return nil, err
	}

	requested, _ := p.Args["limit"].(int)
	query, err := plan.Query(r.limits.ClampLimit(requested))
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("db.statement", query.SQL))

	res, err := r.runner.Query(ctx, query.SQL, query.Args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute selection: %w", err)
	}
	r.metrics.RecordExecute(ctx, len(res.Rows))
	outcome = observability.OutcomeFound
	return &executeResult{columns: res.Columns, rows: res.Rows, sql: query.SQL}, nil
}
