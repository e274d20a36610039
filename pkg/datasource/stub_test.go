package datasource

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnconfiguredGraphProviderReportsNoBackend(t *testing.T) {
	p := newUnconfiguredGraphProvider("neo4j-main")
	_, err := p.ExecuteCypherQuery(context.Background(), "MATCH (n) RETURN n", nil)
	assert.ErrorContains(t, err, "no configured backend")
	assert.NoError(t, p.Close())
}

func TestUnconfiguredMongoProviderReportsNoBackend(t *testing.T) {
	p := newUnconfiguredMongoProvider("mongo-main")
	_, err := p.Query(context.Background(), "jobs", nil)
	assert.ErrorContains(t, err, "no configured backend")
	assert.NoError(t, p.Close())
}

func TestRegistryResolveUnsupportedType(t *testing.T) {
	r := NewRegistry()
	err := r.Resolve(Datasource{Type: "redis", Name: "cache"})
	assert.ErrorContains(t, err, "unsupported datasource type")
}

func TestRegistryResolveNeo4jAndMongoRegisterSuccessfully(t *testing.T) {
	r := NewRegistry()
	assert.NoError(t, r.Resolve(Datasource{Type: TypeNeo4j, Name: "graph-main"}))
	assert.NoError(t, r.Resolve(Datasource{Type: TypeMongoDB, Name: "mongo-main"}))

	_, ok := r.Graph("graph-main")
	assert.True(t, ok)
	_, ok = r.Mongo("mongo-main")
	assert.True(t, ok)
}
