// Package datasource resolves a job's declared external data sources
// (PostgreSQL, Neo4j, MongoDB) into live providers the tool dispatcher can
// inject as sql/graph/mongodb category tools. It generalizes a
// vector-database DatabaseProvider/DatabaseRegistry pattern
// (a provider interface registered into a generic registry, built from a
// config by a type switch) from a fixed vector-store contract to the
// three relational/graph/document backends this engine's datasources name.
package datasource

import (
	"context"
	"fmt"
	"sync"

	"github.com/loomwork/loom/pkg/registry"
)

// Type is the kind of external system a Datasource points at.
type Type string

const (
	TypePostgreSQL Type = "postgresql"
	TypeNeo4j      Type = "neo4j"
	TypeMongoDB    Type = "mongodb"
)

// Scope controls whether a datasource is available to every job or only
// the one that declared it.
type Scope string

const (
	ScopeGlobal   Scope = "global"
	ScopeJobScope Scope = "job-scoped"
)

// Datasource is one external data source declaration, matching the
// resolved-config attributes a job or the orchestrator's global config
// can attach.
type Datasource struct {
	Type          Type
	Name          string
	Description   string
	ConnectionURL string
	Credentials   map[string]string
	ReadOnly      bool
	Scope         Scope
	JobID         string
}

// SQLProvider is the contract sql-category tools dispatch against.
type SQLProvider interface {
	Query(ctx context.Context, query string, args ...interface{}) (string, error)
	Schema(ctx context.Context) (string, error)
	Execute(ctx context.Context, statement string, args ...interface{}) (string, error)
	Close() error
}

// GraphProvider is the contract graph-category (Neo4j) tools dispatch
// against.
type GraphProvider interface {
	ExecuteCypherQuery(ctx context.Context, query string, params map[string]interface{}) (string, error)
	GetDatabaseSchema(ctx context.Context) (string, error)
	CypherWrite(ctx context.Context, query string, params map[string]interface{}) (string, error)
	Close() error
}

// MongoProvider is the contract mongodb-category tools dispatch against.
type MongoProvider interface {
	Query(ctx context.Context, collection string, filter map[string]interface{}) (string, error)
	Aggregate(ctx context.Context, collection string, pipeline []map[string]interface{}) (string, error)
	Schema(ctx context.Context, collection string) (string, error)
	Insert(ctx context.Context, collection string, document map[string]interface{}) (string, error)
	Update(ctx context.Context, collection string, filter, update map[string]interface{}) (string, error)
	Close() error
}

// Registry holds live providers keyed by datasource name, scoped per job
// by the caller (a worker builds one Registry per running job).
type Registry struct {
	mu   sync.RWMutex
	sql  *registry.BaseRegistry[SQLProvider]
	grh  *registry.BaseRegistry[GraphProvider]
	mngo *registry.BaseRegistry[MongoProvider]
}

func NewRegistry() *Registry {
	return &Registry{
		sql:  registry.NewBaseRegistry[SQLProvider](),
		grh:  registry.NewBaseRegistry[GraphProvider](),
		mngo: registry.NewBaseRegistry[MongoProvider](),
	}
}

// Resolve builds and registers a live provider for one Datasource
// declaration. Unsupported types are contract-only: they register
// successfully but every call on the resulting provider reports that no
// concrete backend is wired.
func (r *Registry) Resolve(ds Datasource) error {
	switch ds.Type {
	case TypePostgreSQL:
		p, err := newPostgresProvider(ds)
		if err != nil {
			return fmt.Errorf("resolve postgresql datasource %q: %w", ds.Name, err)
		}
		return r.sql.Register(ds.Name, p)
	case TypeNeo4j:
		return r.grh.Register(ds.Name, newUnconfiguredGraphProvider(ds.Name))
	case TypeMongoDB:
		return r.mngo.Register(ds.Name, newUnconfiguredMongoProvider(ds.Name))
	default:
		return fmt.Errorf("unsupported datasource type: %s", ds.Type)
	}
}

func (r *Registry) SQL(name string) (SQLProvider, bool)       { return r.sql.Get(name) }
func (r *Registry) Graph(name string) (GraphProvider, bool)   { return r.grh.Get(name) }
func (r *Registry) Mongo(name string) (MongoProvider, bool)   { return r.mngo.Get(name) }
func (r *Registry) SQLNames() []SQLProvider                   { return r.sql.List() }
func (r *Registry) GraphNames() []GraphProvider                { return r.grh.List() }
func (r *Registry) MongoProviders() []MongoProvider             { return r.mngo.List() }
