package datasource

import (
	"context"
	"fmt"
)

// Neo4j and MongoDB providers are contract-only in this pass: the
// interfaces above describe the shape graph/mongodb category tools
// dispatch against, but no driver is wired in (no neo4j-go-driver or
// mongo-go-driver import exists anywhere else in this module for either
// to plug into). Resolving a datasource of either type still succeeds —
// the job sees the tools registered, tagged by category — but every call
// reports the backend isn't configured rather than silently no-opping.

type unconfiguredGraphProvider struct{ name string }

func newUnconfiguredGraphProvider(name string) GraphProvider {
	return unconfiguredGraphProvider{name: name}
}

func (p unconfiguredGraphProvider) ExecuteCypherQuery(ctx context.Context, query string, params map[string]interface{}) (string, error) {
	return "", fmt.Errorf("graph datasource %q has no configured backend", p.name)
}

func (p unconfiguredGraphProvider) GetDatabaseSchema(ctx context.Context) (string, error) {
	return "", fmt.Errorf("graph datasource %q has no configured backend", p.name)
}

func (p unconfiguredGraphProvider) CypherWrite(ctx context.Context, query string, params map[string]interface{}) (string, error) {
	return "", fmt.Errorf("graph datasource %q has no configured backend", p.name)
}

func (p unconfiguredGraphProvider) Close() error { return nil }

type unconfiguredMongoProvider struct{ name string }

func newUnconfiguredMongoProvider(name string) MongoProvider {
	return unconfiguredMongoProvider{name: name}
}

func (p unconfiguredMongoProvider) Query(ctx context.Context, collection string, filter map[string]interface{}) (string, error) {
	return "", fmt.Errorf("mongodb datasource %q has no configured backend", p.name)
}

func (p unconfiguredMongoProvider) Aggregate(ctx context.Context, collection string, pipeline []map[string]interface{}) (string, error) {
	return "", fmt.Errorf("mongodb datasource %q has no configured backend", p.name)
}

func (p unconfiguredMongoProvider) Schema(ctx context.Context, collection string) (string, error) {
	return "", fmt.Errorf("mongodb datasource %q has no configured backend", p.name)
}

func (p unconfiguredMongoProvider) Insert(ctx context.Context, collection string, document map[string]interface{}) (string, error) {
	return "", fmt.Errorf("mongodb datasource %q has no configured backend", p.name)
}

func (p unconfiguredMongoProvider) Update(ctx context.Context, collection string, filter, update map[string]interface{}) (string, error) {
	return "", fmt.Errorf("mongodb datasource %q has no configured backend", p.name)
}

func (p unconfiguredMongoProvider) Close() error { return nil }
