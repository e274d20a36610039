package tool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConfig struct {
	enabled  map[string]bool
	readOnly map[string]bool
}

func (f fakeConfig) ToolEnabled(category, tool string) bool { return f.enabled[category] }
func (f fakeConfig) CategoryReadOnly(category string) bool  { return f.readOnly[category] }

type fakeTool struct {
	info Info
}

func (t fakeTool) Info() Info { return t.info }
func (t fakeTool) Execute(ctx context.Context, args map[string]interface{}) (Result, error) {
	return Result{Success: true, Content: "ok"}, nil
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	tl := fakeTool{info: Info{Name: "read_file", Category: CategoryWorkspace, Phase: PhaseBoth}}
	require.NoError(t, r.Register(tl))

	got, ok := r.Get("read_file")
	require.True(t, ok)
	assert.Equal(t, "read_file", got.Info().Name)
}

func TestRegistryRegisterRejectsDuplicateName(t *testing.T) {
	r := NewRegistry()
	tl := fakeTool{info: Info{Name: "read_file", Category: CategoryWorkspace}}
	require.NoError(t, r.Register(tl))
	assert.Error(t, r.Register(tl))
}

func TestRegistryVisibleFiltersByPhase(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(fakeTool{info: Info{Name: "next_phase_todos", Category: CategoryCore, Phase: PhaseStrategic}}))
	require.NoError(t, r.Register(fakeTool{info: Info{Name: "read_file", Category: CategoryWorkspace, Phase: PhaseBoth}}))

	cfg := fakeConfig{enabled: map[string]bool{"core": true, "workspace": true}}

	tactical := r.Visible(cfg, PhaseTactical)
	assert.Len(t, tactical, 1)
	assert.Equal(t, "read_file", tactical[0].Info().Name)

	strategic := r.Visible(cfg, PhaseStrategic)
	assert.Len(t, strategic, 2)
}

func TestRegistryVisibleFiltersByEnabledCategory(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(fakeTool{info: Info{Name: "web_search", Category: CategoryResearch, Phase: PhaseBoth}}))

	cfg := fakeConfig{enabled: map[string]bool{}}
	assert.Empty(t, r.Visible(cfg, PhaseBoth))

	cfg = fakeConfig{enabled: map[string]bool{"research": true}}
	assert.Len(t, r.Visible(cfg, PhaseBoth), 1)
}

func TestRegistryVisibleDropsWriteToolsInReadOnlyCategory(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(fakeTool{info: Info{Name: "read_file", Category: CategoryWorkspace, Phase: PhaseBoth, ReadOnly: true}}))
	require.NoError(t, r.Register(fakeTool{info: Info{Name: "write_file", Category: CategoryWorkspace, Phase: PhaseBoth, ReadOnly: false}}))

	cfg := fakeConfig{
		enabled:  map[string]bool{"workspace": true},
		readOnly: map[string]bool{"workspace": true},
	}

	visible := r.Visible(cfg, PhaseBoth)
	assert.Len(t, visible, 1)
	assert.Equal(t, "read_file", visible[0].Info().Name)
}
