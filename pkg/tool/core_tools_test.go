package tool

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomwork/loom/pkg/todo"
)

func seedTodos(t *testing.T, mgr *todo.Manager, contents ...string) {
	t.Helper()
	list := &todo.List{}
	for i, c := range contents {
		list.Todos = append(list.Todos, todo.Todo{ID: fmt.Sprintf("%d", i+1), Content: c, Status: todo.StatusPending})
	}
	require.NoError(t, mgr.Save(list))
}

func TestListTodosToolFormatsDisplay(t *testing.T) {
	mgr := todo.NewManager(t.TempDir())
	seedTodos(t, mgr, "do the thing")

	tl := NewListTodosTool(mgr)
	result, err := tl.Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Contains(t, result.Content, "do the thing")
}

func TestTodoCompleteToolMarksFirstPendingDone(t *testing.T) {
	mgr := todo.NewManager(t.TempDir())
	seedTodos(t, mgr, "first", "second")

	tl := NewTodoCompleteTool(mgr)
	result, err := tl.Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Contains(t, result.Content, "1 remaining")

	list, err := mgr.Load()
	require.NoError(t, err)
	assert.Equal(t, todo.StatusDone, list.Todos[0].Status)
}

func TestTodoRewindToolRequiresPhaseTypeAndIssue(t *testing.T) {
	mgr := todo.NewManager(t.TempDir())
	seedTodos(t, mgr, "first")

	tl := NewTodoRewindTool(mgr)
	_, err := tl.Execute(context.Background(), map[string]interface{}{"phase_number": float64(1)})
	assert.Error(t, err)
}

func TestTodoRewindToolArchivesAndClears(t *testing.T) {
	mgr := todo.NewManager(t.TempDir())
	seedTodos(t, mgr, "first")

	tl := NewTodoRewindTool(mgr)
	_, err := tl.Execute(context.Background(), map[string]interface{}{
		"phase_number": float64(2), "phase_type": "tactical", "issue": "plan was wrong",
	})
	require.NoError(t, err)

	list, err := mgr.Load()
	require.NoError(t, err)
	assert.Empty(t, list.Todos)
}

func TestNextPhaseTodosToolSetsSignal(t *testing.T) {
	mgr := todo.NewManager(t.TempDir())
	signal := &PhaseSignal{}
	tl := NewNextPhaseTodosTool(mgr, signal)

	result, err := tl.Execute(context.Background(), map[string]interface{}{
		"todos": []interface{}{"step one", "step two"},
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.True(t, signal.PhaseComplete)
	require.Len(t, signal.NewTodos, 2)
	assert.Equal(t, "step one", signal.NewTodos[0].Content)
}

func TestNextPhaseTodosToolRejectsEmptyList(t *testing.T) {
	signal := &PhaseSignal{}
	tl := NewNextPhaseTodosTool(todo.NewManager(t.TempDir()), signal)
	_, err := tl.Execute(context.Background(), map[string]interface{}{"todos": []interface{}{}})
	assert.Error(t, err)
	assert.False(t, signal.PhaseComplete)
}

func TestJobCompleteToolSetsSignal(t *testing.T) {
	signal := &PhaseSignal{}
	tl := NewJobCompleteTool(signal)

	_, err := tl.Execute(context.Background(), map[string]interface{}{
		"summary":      "done",
		"deliverables": []interface{}{"report.md"},
		"confidence":   "high",
	})
	require.NoError(t, err)
	assert.True(t, signal.JobCompleteCalled)
	assert.Equal(t, "done", signal.Summary)
	assert.Equal(t, []string{"report.md"}, signal.Deliverables)
}

func TestJobCompleteToolRequiresSummary(t *testing.T) {
	signal := &PhaseSignal{}
	tl := NewJobCompleteTool(signal)
	_, err := tl.Execute(context.Background(), map[string]interface{}{})
	assert.Error(t, err)
	assert.False(t, signal.JobCompleteCalled)
}
