package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeepMergeObjectsRecurse(t *testing.T) {
	dst := map[string]interface{}{
		"llm": map[string]interface{}{
			"model":       "gpt-4o",
			"temperature": 0.2,
		},
	}
	src := map[string]interface{}{
		"llm": map[string]interface{}{
			"temperature": 0.9,
		},
	}

	out := DeepMerge(dst, src)
	llm := out["llm"].(map[string]interface{})
	assert.Equal(t, "gpt-4o", llm["model"], "unset key in overlay is preserved")
	assert.Equal(t, 0.9, llm["temperature"], "overlay scalar wins")
}

func TestDeepMergeArraysReplaceEntirely(t *testing.T) {
	dst := map[string]interface{}{
		"tools": map[string]interface{}{
			"sql": map[string]interface{}{
				"tools": []interface{}{"sql_query", "sql_schema", "sql_execute"},
			},
		},
	}
	src := map[string]interface{}{
		"tools": map[string]interface{}{
			"sql": map[string]interface{}{
				"tools": []interface{}{"sql_query"},
			},
		},
	}

	out := DeepMerge(dst, src)
	sql := out["tools"].(map[string]interface{})["sql"].(map[string]interface{})
	assert.Equal(t, []interface{}{"sql_query"}, sql["tools"], "arrays replace entirely, never append/union")
}

func TestMergeLayersOrderPrecedence(t *testing.T) {
	defaults := map[string]interface{}{"autonomy": "full"}
	expert := map[string]interface{}{"autonomy": "review"}
	override := map[string]interface{}{}
	toolOverride := map[string]interface{}{"autonomy": "dependent"}

	out := MergeLayers(defaults, expert, override, toolOverride)
	assert.Equal(t, "dependent", out["autonomy"], "later layers in the chain win")
}

func TestResolveAppliesDefaultsAndValidates(t *testing.T) {
	defaults := map[string]interface{}{
		"llm": map[string]interface{}{"model": "gpt-4o"},
	}
	cfg, err := Resolve(defaults, nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, AutonomyFull, cfg.Autonomy)
	assert.Equal(t, 5, cfg.Phase.MinTodos)
	assert.Equal(t, 20, cfg.Phase.MaxTodos)
	assert.True(t, cfg.Tools["workspace"].Enabled)
	assert.True(t, cfg.Tools["core"].Enabled)
}

func TestResolveRejectsInvertedTodoWindow(t *testing.T) {
	defaults := map[string]interface{}{
		"llm":   map[string]interface{}{"model": "gpt-4o"},
		"phase": map[string]interface{}{"min_todos": 10, "max_todos": 3},
	}
	_, err := Resolve(defaults, nil, nil, nil)
	require.Error(t, err)
}

func TestToolEnabledRespectsCategoryAllowlist(t *testing.T) {
	cfg := &Config{
		Tools: map[string]*ToolCategoryConfig{
			"sql": {Enabled: true, Tools: []string{"sql_query"}},
		},
	}
	assert.True(t, cfg.ToolEnabled("sql", "sql_query"))
	assert.False(t, cfg.ToolEnabled("sql", "sql_execute"))
	assert.False(t, cfg.ToolEnabled("graph", "execute_cypher_query"), "unattached category is disabled")
}
