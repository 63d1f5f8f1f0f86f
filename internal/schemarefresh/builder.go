package schemarefresh

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/graphql-go/handler"

	"joinpath/internal/dbexec"
	"joinpath/internal/modelfile"
	"joinpath/internal/observability"
	"joinpath/internal/planner"
	"joinpath/internal/resolver"
	"joinpath/internal/schema"
)

// BuildConfig defines the inputs shared by every snapshot build.
type BuildConfig struct {
	// Runner executes selections. Nil leaves the execute query out of the API.
	Runner   *dbexec.Runner
	Limits   planner.PlanLimits
	Metrics  *observability.JoinMetrics
	GraphiQL bool
}

// BuildSnapshot assembles the GraphQL API for model.
func BuildSnapshot(model *schema.Schema, cfg BuildConfig) (*Snapshot, error) {
	if model == nil {
		return nil, fmt.Errorf("snapshot requires a model")
	}
	fingerprint, err := Fingerprint(model)
	if err != nil {
		return nil, err
	}

	res := resolver.NewResolver(model, cfg.Runner, cfg.Limits, cfg.Metrics)
	graphqlSchema, err := res.BuildGraphQLSchema()
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		Schema:        model,
		GraphQLSchema: &graphqlSchema,
		Handler: handler.New(&handler.Config{
			Schema:   &graphqlSchema,
			Pretty:   true,
			GraphiQL: cfg.GraphiQL,
		}),
		BuiltAt:     time.Now(),
		Fingerprint: fingerprint,
	}, nil
}

// Fingerprint hashes the encoded form of model. Two loads of the same model
// file produce the same fingerprint.
func Fingerprint(model *schema.Schema) (string, error) {
	data, err := modelfile.Marshal(model)
	if err != nil {
		return "", fmt.Errorf("failed to encode model: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
