package tool

import (
	"context"
	"fmt"

	"github.com/loomwork/loom/pkg/datasource"
)

// sql/graph/mongodb category tools are injected per job by the
// orchestrator, one set per resolved datasource, rather than registered
// once at worker startup like workspace/core/git/research tools — a job
// with no declared PostgreSQL/Neo4j/MongoDB datasource simply never sees
// these names on its tool list.

type sqlQueryTool struct{ provider datasource.SQLProvider }

func NewSQLQueryTool(p datasource.SQLProvider) Tool { return sqlQueryTool{p} }

func (t sqlQueryTool) Info() Info {
	return Info{
		Name:        "sql_query",
		Description: "Run a read-only SQL query against the job's PostgreSQL datasource.",
		Category:    CategorySQL,
		Phase:       PhaseBoth,
		ReadOnly:    true,
		Parameters: []Parameter{
			{Name: "query", Type: "string", Required: true},
		},
	}
}

func (t sqlQueryTool) Execute(ctx context.Context, args map[string]interface{}) (Result, error) {
	query, _ := args["query"].(string)
	if query == "" {
		return Result{}, fmt.Errorf("query is required")
	}
	out, err := t.provider.Query(ctx, query)
	if err != nil {
		return Result{}, err
	}
	return Result{Success: true, Content: out}, nil
}

type sqlSchemaTool struct{ provider datasource.SQLProvider }

func NewSQLSchemaTool(p datasource.SQLProvider) Tool { return sqlSchemaTool{p} }

func (t sqlSchemaTool) Info() Info {
	return Info{
		Name:        "sql_schema",
		Description: "Describe the tables and columns available in the job's PostgreSQL datasource.",
		Category:    CategorySQL,
		Phase:       PhaseBoth,
		ReadOnly:    true,
	}
}

func (t sqlSchemaTool) Execute(ctx context.Context, args map[string]interface{}) (Result, error) {
	out, err := t.provider.Schema(ctx)
	if err != nil {
		return Result{}, err
	}
	return Result{Success: true, Content: out}, nil
}

type sqlExecuteTool struct{ provider datasource.SQLProvider }

func NewSQLExecuteTool(p datasource.SQLProvider) Tool { return sqlExecuteTool{p} }

func (t sqlExecuteTool) Info() Info {
	return Info{
		Name:        "sql_execute",
		Description: "Run a mutating SQL statement against the job's PostgreSQL datasource.",
		Category:    CategorySQL,
		Phase:       PhaseBoth,
		Parameters: []Parameter{
			{Name: "statement", Type: "string", Required: true},
		},
	}
}

func (t sqlExecuteTool) Execute(ctx context.Context, args map[string]interface{}) (Result, error) {
	statement, _ := args["statement"].(string)
	if statement == "" {
		return Result{}, fmt.Errorf("statement is required")
	}
	out, err := t.provider.Execute(ctx, statement)
	if err != nil {
		return Result{}, err
	}
	return Result{Success: true, Content: out}, nil
}

type cypherQueryTool struct{ provider datasource.GraphProvider }

func NewCypherQueryTool(p datasource.GraphProvider) Tool { return cypherQueryTool{p} }

func (t cypherQueryTool) Info() Info {
	return Info{
		Name:        "execute_cypher_query",
		Description: "Run a read-only Cypher query against the job's Neo4j datasource.",
		Category:    CategoryGraph,
		Phase:       PhaseBoth,
		ReadOnly:    true,
		Parameters: []Parameter{
			{Name: "query", Type: "string", Required: true},
		},
	}
}

func (t cypherQueryTool) Execute(ctx context.Context, args map[string]interface{}) (Result, error) {
	query, _ := args["query"].(string)
	if query == "" {
		return Result{}, fmt.Errorf("query is required")
	}
	params, _ := args["params"].(map[string]interface{})
	out, err := t.provider.ExecuteCypherQuery(ctx, query, params)
	if err != nil {
		return Result{}, err
	}
	return Result{Success: true, Content: out}, nil
}

type graphSchemaTool struct{ provider datasource.GraphProvider }

func NewGraphSchemaTool(p datasource.GraphProvider) Tool { return graphSchemaTool{p} }

func (t graphSchemaTool) Info() Info {
	return Info{
		Name:        "get_database_schema",
		Description: "Describe the node labels and relationship types in the job's Neo4j datasource.",
		Category:    CategoryGraph,
		Phase:       PhaseBoth,
		ReadOnly:    true,
	}
}

func (t graphSchemaTool) Execute(ctx context.Context, args map[string]interface{}) (Result, error) {
	out, err := t.provider.GetDatabaseSchema(ctx)
	if err != nil {
		return Result{}, err
	}
	return Result{Success: true, Content: out}, nil
}

type cypherWriteTool struct{ provider datasource.GraphProvider }

func NewCypherWriteTool(p datasource.GraphProvider) Tool { return cypherWriteTool{p} }

func (t cypherWriteTool) Info() Info {
	return Info{
		Name:        "cypher_write",
		Description: "Run a mutating Cypher statement against the job's Neo4j datasource.",
		Category:    CategoryGraph,
		Phase:       PhaseBoth,
		Parameters: []Parameter{
			{Name: "query", Type: "string", Required: true},
		},
	}
}

func (t cypherWriteTool) Execute(ctx context.Context, args map[string]interface{}) (Result, error) {
	query, _ := args["query"].(string)
	if query == "" {
		return Result{}, fmt.Errorf("query is required")
	}
	params, _ := args["params"].(map[string]interface{})
	out, err := t.provider.CypherWrite(ctx, query, params)
	if err != nil {
		return Result{}, err
	}
	return Result{Success: true, Content: out}, nil
}

type mongoQueryTool struct{ provider datasource.MongoProvider }

func NewMongoQueryTool(p datasource.MongoProvider) Tool { return mongoQueryTool{p} }

func (t mongoQueryTool) Info() Info {
	return Info{
		Name:        "mongo_query",
		Description: "Run a find-style query against a collection in the job's MongoDB datasource.",
		Category:    CategoryMongoDB,
		Phase:       PhaseBoth,
		ReadOnly:    true,
		Parameters: []Parameter{
			{Name: "collection", Type: "string", Required: true},
			{Name: "filter", Type: "object"},
		},
	}
}

func (t mongoQueryTool) Execute(ctx context.Context, args map[string]interface{}) (Result, error) {
	collection, _ := args["collection"].(string)
	if collection == "" {
		return Result{}, fmt.Errorf("collection is required")
	}
	filter, _ := args["filter"].(map[string]interface{})
	out, err := t.provider.Query(ctx, collection, filter)
	if err != nil {
		return Result{}, err
	}
	return Result{Success: true, Content: out}, nil
}

type mongoAggregateTool struct{ provider datasource.MongoProvider }

func NewMongoAggregateTool(p datasource.MongoProvider) Tool { return mongoAggregateTool{p} }

func (t mongoAggregateTool) Info() Info {
	return Info{
		Name:        "mongo_aggregate",
		Description: "Run an aggregation pipeline against a collection in the job's MongoDB datasource.",
		Category:    CategoryMongoDB,
		Phase:       PhaseBoth,
		ReadOnly:    true,
		Parameters: []Parameter{
			{Name: "collection", Type: "string", Required: true},
			{Name: "pipeline", Type: "array", Required: true},
		},
	}
}

func (t mongoAggregateTool) Execute(ctx context.Context, args map[string]interface{}) (Result, error) {
	collection, _ := args["collection"].(string)
	if collection == "" {
		return Result{}, fmt.Errorf("collection is required")
	}
	raw, _ := args["pipeline"].([]interface{})
	pipeline := make([]map[string]interface{}, 0, len(raw))
	for _, stage := range raw {
		if m, ok := stage.(map[string]interface{}); ok {
			pipeline = append(pipeline, m)
		}
	}
	out, err := t.provider.Aggregate(ctx, collection, pipeline)
	if err != nil {
		return Result{}, err
	}
	return Result{Success: true, Content: out}, nil
}

type mongoSchemaTool struct{ provider datasource.MongoProvider }

func NewMongoSchemaTool(p datasource.MongoProvider) Tool { return mongoSchemaTool{p} }

func (t mongoSchemaTool) Info() Info {
	return Info{
		Name:        "mongo_schema",
		Description: "Infer the field shape of documents in a MongoDB collection.",
		Category:    CategoryMongoDB,
		Phase:       PhaseBoth,
		ReadOnly:    true,
		Parameters: []Parameter{
			{Name: "collection", Type: "string", Required: true},
		},
	}
}

func (t mongoSchemaTool) Execute(ctx context.Context, args map[string]interface{}) (Result, error) {
	collection, _ := args["collection"].(string)
	if collection == "" {
		return Result{}, fmt.Errorf("collection is required")
	}
	out, err := t.provider.Schema(ctx, collection)
	if err != nil {
		return Result{}, err
	}
	return Result{Success: true, Content: out}, nil
}

type mongoInsertTool struct{ provider datasource.MongoProvider }

func NewMongoInsertTool(p datasource.MongoProvider) Tool { return mongoInsertTool{p} }

func (t mongoInsertTool) Info() Info {
	return Info{
		Name:        "mongo_insert",
		Description: "Insert a document into a MongoDB collection.",
		Category:    CategoryMongoDB,
		Phase:       PhaseBoth,
		Parameters: []Parameter{
			{Name: "collection", Type: "string", Required: true},
			{Name: "document", Type: "object", Required: true},
		},
	}
}

func (t mongoInsertTool) Execute(ctx context.Context, args map[string]interface{}) (Result, error) {
	collection, _ := args["collection"].(string)
	document, _ := args["document"].(map[string]interface{})
	if collection == "" || document == nil {
		return Result{}, fmt.Errorf("collection and document are required")
	}
	out, err := t.provider.Insert(ctx, collection, document)
	if err != nil {
		return Result{}, err
	}
	return Result{Success: true, Content: out}, nil
}

type mongoUpdateTool struct{ provider datasource.MongoProvider }

func NewMongoUpdateTool(p datasource.MongoProvider) Tool { return mongoUpdateTool{p} }

func (t mongoUpdateTool) Info() Info {
	return Info{
		Name:        "mongo_update",
		Description: "Update documents matching a filter in a MongoDB collection.",
		Category:    CategoryMongoDB,
		Phase:       PhaseBoth,
		Parameters: []Parameter{
			{Name: "collection", Type: "string", Required: true},
			{Name: "filter", Type: "object", Required: true},
			{Name: "update", Type: "object", Required: true},
		},
	}
}

func (t mongoUpdateTool) Execute(ctx context.Context, args map[string]interface{}) (Result, error) {
	collection, _ := args["collection"].(string)
	filter, _ := args["filter"].(map[string]interface{})
	update, _ := args["update"].(map[string]interface{})
	if collection == "" || filter == nil || update == nil {
		return Result{}, fmt.Errorf("collection, filter, and update are required")
	}
	out, err := t.provider.Update(ctx, collection, filter, update)
	if err != nil {
		return Result{}, err
	}
	return Result{Success: true, Content: out}, nil
}
