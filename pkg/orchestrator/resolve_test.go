package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomwork/loom/pkg/config"
	"github.com/loomwork/loom/pkg/datasource"
)

func TestResolveDatasourcesPrefersJobScoped(t *testing.T) {
	global := datasource.Datasource{Type: datasource.TypePostgreSQL, Name: "global-pg", Scope: datasource.ScopeGlobal}
	jobScoped := datasource.Datasource{Type: datasource.TypePostgreSQL, Name: "job-pg", Scope: datasource.ScopeJobScope, JobID: "job-1"}

	out := resolveDatasources([]datasource.Datasource{global, jobScoped})
	require.Len(t, out, 1)
	assert.Equal(t, "job-pg", out[0].Name)
}

func TestToolOverrideEnablesOnlyAttachedCategories(t *testing.T) {
	resolved := []datasource.Datasource{
		{Type: datasource.TypeNeo4j, Name: "graph-1", ReadOnly: true},
	}
	override := toolOverride(resolved)
	tools, ok := override["tools"].(map[string]interface{})
	require.True(t, ok)

	graphCfg, ok := tools["graph"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, graphCfg["enabled"])
	assert.Equal(t, true, graphCfg["read_only"])

	_, hasSQL := tools["sql"]
	assert.False(t, hasSQL)
}

func TestResolveConfigAppliesJobAutonomyOverride(t *testing.T) {
	defaults := map[string]interface{}{
		"llm":      map[string]interface{}{"provider": "openai", "model": "gpt-4o"},
		"autonomy": "review",
	}
	job := &Job{Autonomy: config.AutonomyFull}

	cfg, asMap, resolved, err := ResolveConfig(defaults, nil, job, nil)
	require.NoError(t, err)
	assert.Equal(t, config.AutonomyFull, cfg.Autonomy)
	assert.Empty(t, resolved)
	assert.Equal(t, "full", asMap["autonomy"])
}
