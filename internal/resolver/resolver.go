// Package resolver exposes a join model over GraphQL. Queries describe the
// model, resolve shortest join paths between tables, render SQL for a field
// selection and, when a database is attached, execute it.
package resolver

import (
	"errors"
	"fmt"

	"github.com/graphql-go/graphql"

	"joinpath/internal/dbexec"
	"joinpath/internal/observability"
	"joinpath/internal/planner"
	"joinpath/internal/scalars"
	"joinpath/internal/schema"
)

// Resolver serves GraphQL queries against one immutable schema model.
type Resolver struct {
	model   *schema.Schema
	runner  *dbexec.Runner
	limits  planner.PlanLimits
	metrics *observability.JoinMetrics

	bigInt         *graphql.Scalar
	nonNegativeInt *graphql.Scalar
	jsonType       *graphql.Scalar
	tableTypeEnum  *graphql.Enum
	types          objectTypes
}

// NewResolver creates a resolver for model. runner may be nil, in which case
// the execute query is not part of the schema. metrics may be nil.
func NewResolver(model *schema.Schema, runner *dbexec.Runner, limits planner.PlanLimits, metrics *observability.JoinMetrics) *Resolver {
	return &Resolver{
		model:          model,
		runner:         runner,
		limits:         limits,
		metrics:        metrics,
		bigInt:         scalars.BigInt(),
		nonNegativeInt: scalars.NonNegativeInt(),
		jsonType:       scalars.JSON(),
		tableTypeEnum: graphql.NewEnum(graphql.EnumConfig{
			Name:        "TableType",
			Description: "Role of a table in a star or snowflake schema.",
			Values: graphql.EnumValueConfigMap{
				"FACT":      &graphql.EnumValueConfig{Value: schema.TableTypeFact.String()},
				"DIMENSION": &graphql.EnumValueConfig{Value: schema.TableTypeDimension.String()},
				"OTHER":     &graphql.EnumValueConfig{Value: schema.TableTypeOther.String()},
			},
		}),
	}
}

// Model returns the schema model served by the resolver.
func (r *Resolver) Model() *schema.Schema {
	return r.model
}

// BuildGraphQLSchema constructs the executable GraphQL schema.
func (r *Resolver) BuildGraphQLSchema() (graphql.Schema, error) {
	if r.model == nil {
		return graphql.Schema{}, errors.New("resolver has no model")
	}
	r.types = r.buildObjectTypes()

	stringList := graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.String)))
	optionalStringList := graphql.NewList(graphql.NewNonNull(graphql.String))

	fields := graphql.Fields{
		"model": &graphql.Field{
			Type:        graphql.NewNonNull(r.types.model),
			Description: "The loaded join model.",
			Resolve:     r.resolveModel,
		},
		"tables": &graphql.Field{
			Type:        graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(r.types.table))),
			Description: "Tables in the model, optionally restricted to one type.",
			Args: graphql.FieldConfigArgument{
				"type": &graphql.ArgumentConfig{Type: r.tableTypeEnum},
			},
			Resolve: r.resolveTables,
		},
		"table": &graphql.Field{
			Type:        r.types.table,
			Description: "A table by logical name, or null.",
			Args: graphql.FieldConfigArgument{
				"name": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
			},
			Resolve: r.resolveTable,
		},
		"relationships": &graphql.Field{
			Type:        graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(r.types.relationship))),
			Description: "Relationships in insertion order, optionally only those touching the given tables.",
			Args: graphql.FieldConfigArgument{
				"table":  &graphql.ArgumentConfig{Type: graphql.String},
				"tables": &graphql.ArgumentConfig{Type: optionalStringList},
			},
			Resolve: r.resolveRelationships,
		},
		"selection": &graphql.Field{
			Type:        graphql.NewNonNull(r.types.selection),
			Description: "The selection saved with the model.",
			Resolve:     r.resolveSelection,
		},
		"shortestPaths": &graphql.Field{
			Type:        graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(r.types.path))),
			Description: "Every shortest path visiting the tables in order, best first.",
			Args: graphql.FieldConfigArgument{
				"tables": &graphql.ArgumentConfig{Type: stringList},
			},
			Resolve: r.resolveShortestPaths,
		},
		"joins": &graphql.Field{
			Type:        graphql.NewNonNull(r.types.joinSet),
			Description: "The join set connecting the tables. With direct, only relationships between listed tables are used.",
			Args: graphql.FieldConfigArgument{
				"tables": &graphql.ArgumentConfig{Type: stringList},
				"direct": &graphql.ArgumentConfig{Type: graphql.Boolean, DefaultValue: false},
			},
			Resolve: r.resolveJoins,
		},
		"sql": &graphql.Field{
			Type:        graphql.NewNonNull(r.types.sqlResult),
			Description: "SQL for a field selection. Fields and conditions are table.name references.",
			Args: graphql.FieldConfigArgument{
				"fields":     &graphql.ArgumentConfig{Type: stringList},
				"conditions": &graphql.ArgumentConfig{Type: optionalStringList},
			},
			Resolve: r.resolveSQL,
		},
	}

	if r.runner != nil {
		fields["execute"] = &graphql.Field{
			Type:        graphql.NewNonNull(r.types.executeResult),
			Description: "Runs the selection against the source database.",
			Args: graphql.FieldConfigArgument{
				"fields":     &graphql.ArgumentConfig{Type: stringList},
				"conditions": &graphql.ArgumentConfig{Type: optionalStringList},
				"limit":      &graphql.ArgumentConfig{Type: r.nonNegativeInt},
			},
			Resolve: r.resolveExecute,
		}
	}

	gqlSchema, err := graphql.NewSchema(graphql.SchemaConfig{
		Query: graphql.NewObject(graphql.ObjectConfig{
			Name:   "Query",
			Fields: fields,
		}),
	})
	if err != nil {
		return graphql.Schema{}, fmt.Errorf("failed to build GraphQL schema: %w", err)
	}
	return gqlSchema, nil
}

func stringArgs(args map[string]interface{}, name string) []string {
	raw, ok := args[name].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
