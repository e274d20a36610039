package contextmgr

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/loomwork/loom/pkg/llms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testThresholds() Thresholds {
	return Thresholds{
		KeepRecentToolResults:        1,
		MaxToolResultLength:          20,
		CompactionThresholdTokens:    1,
		SummarizationThresholdTokens: 1,
		SummarizeKeepRecentMessages:  2,
	}
}

func newTestManager(t *testing.T, th Thresholds) *Manager {
	t.Helper()
	m, err := NewManager("gpt-4o", th)
	require.NoError(t, err)
	return m
}

func TestTruncateToolResultCapsLength(t *testing.T) {
	m := newTestManager(t, testThresholds())
	out := m.TruncateToolResult(strings.Repeat("x", 100))
	assert.LessOrEqual(t, len(out), 20+len("\n...[truncated, 80 characters omitted]"))
	assert.Contains(t, out, "truncated")
}

func TestTruncateToolResultLeavesShortContentAlone(t *testing.T) {
	m := newTestManager(t, testThresholds())
	out := m.TruncateToolResult("short")
	assert.Equal(t, "short", out)
}

func TestCompactToolResultsReplacesOlderResults(t *testing.T) {
	th := testThresholds()
	m := newTestManager(t, th)

	messages := []llms.Message{
		{Role: "user", Content: "do the thing"},
		{Role: "assistant", Content: "calling tool", ToolCalls: []llms.ToolCall{{ID: "1", Name: "search_workspace"}}},
		{Role: "tool", Name: "search_workspace", ToolCallID: "1", Content: "old result"},
		{Role: "assistant", Content: "calling tool again", ToolCalls: []llms.ToolCall{{ID: "2", Name: "search_workspace"}}},
		{Role: "tool", Name: "search_workspace", ToolCallID: "2", Content: "recent result"},
	}

	out := m.CompactToolResults(messages)
	assert.Equal(t, "[tool result for \"search_workspace\" omitted to save context — re-run the tool if the output is still needed]", out[2].Content)
	assert.Equal(t, "recent result", out[4].Content)
	// original untouched
	assert.Equal(t, "old result", messages[2].Content)
}

func TestCompactToolResultsNeverTouchesProtectedTools(t *testing.T) {
	th := testThresholds()
	th.KeepRecentToolResults = 0
	m := newTestManager(t, th)

	messages := []llms.Message{
		{Role: "tool", Name: "read_file", ToolCallID: "1", Content: "file contents"},
		{Role: "tool", Name: "search_workspace", ToolCallID: "2", Content: "old result"},
	}
	out := m.CompactToolResults(messages)
	assert.Equal(t, "file contents", out[0].Content)
	assert.Contains(t, out[1].Content, "omitted")
}

func TestCompactToolResultsNoopUnderThreshold(t *testing.T) {
	th := testThresholds()
	th.CompactionThresholdTokens = 1_000_000
	m := newTestManager(t, th)

	messages := []llms.Message{{Role: "tool", Name: "search_workspace", Content: "result"}}
	out := m.CompactToolResults(messages)
	assert.Equal(t, messages, out)
}

func TestSummarizeCollapsesOlderMessagesOnSuccess(t *testing.T) {
	th := testThresholds()
	m := newTestManager(t, th)

	messages := []llms.Message{
		{Role: "user", Content: "one"},
		{Role: "assistant", Content: "two"},
		{Role: "user", Content: "three"},
		{Role: "assistant", Content: "four"},
	}
	out := m.Summarize(context.Background(), messages, func(ctx context.Context, msgs []llms.Message) (string, error) {
		assert.Len(t, msgs, 2)
		return "condensed", nil
	})
	require.Len(t, out, 3)
	assert.Equal(t, "assistant", out[0].Role)
	assert.Contains(t, out[0].Content, "condensed")
	assert.Equal(t, "three", out[1].Content)
	assert.Equal(t, "four", out[2].Content)
}

func TestSummarizeIsBestEffortOnFailure(t *testing.T) {
	th := testThresholds()
	m := newTestManager(t, th)

	messages := []llms.Message{
		{Role: "user", Content: "one"},
		{Role: "assistant", Content: "two"},
		{Role: "user", Content: "three"},
	}
	out := m.Summarize(context.Background(), messages, func(ctx context.Context, msgs []llms.Message) (string, error) {
		return "", errors.New("model unavailable")
	})
	assert.Equal(t, messages, out)
}

func TestSummarizeNoopUnderThreshold(t *testing.T) {
	th := testThresholds()
	th.SummarizationThresholdTokens = 1_000_000
	m := newTestManager(t, th)

	messages := []llms.Message{{Role: "user", Content: "hi"}}
	called := false
	out := m.Summarize(context.Background(), messages, func(ctx context.Context, msgs []llms.Message) (string, error) {
		called = true
		return "x", nil
	})
	assert.False(t, called)
	assert.Equal(t, messages, out)
}

func TestBuildLayerTwoOverlayIncludesPlanAndWorkspaceOnlyWhenPresent(t *testing.T) {
	overlay := BuildLayerTwoOverlay("<current_todos>...</current_todos>", "", "")
	assert.NotContains(t, overlay, "<plan>")
	assert.NotContains(t, overlay, "<workspace_notes>")

	overlay = BuildLayerTwoOverlay("<current_todos>...</current_todos>", "do X", "notes")
	assert.Contains(t, overlay, "<plan>\ndo X\n</plan>")
	assert.Contains(t, overlay, "<workspace_notes>\nnotes\n</workspace_notes>")
}

func TestAssembleOrdersLayers(t *testing.T) {
	m := newTestManager(t, testThresholds())
	recent := []llms.Message{{Role: "user", Content: "go"}}
	out := m.Assemble("system prompt", "overlay", "prior summary", recent)

	require.Len(t, out, 4)
	assert.Equal(t, "system", out[0].Role)
	assert.Equal(t, "system prompt", out[0].Content)
	assert.Equal(t, "system", out[1].Role)
	assert.Equal(t, "overlay", out[1].Content)
	assert.Equal(t, "assistant", out[2].Role)
	assert.Contains(t, out[2].Content, "prior summary")
	assert.Equal(t, "go", out[3].Content)
}

func TestAssembleOmitsEmptyLayers(t *testing.T) {
	m := newTestManager(t, testThresholds())
	out := m.Assemble("system prompt", "", "", nil)
	require.Len(t, out, 1)
	assert.Equal(t, "system prompt", out[0].Content)
}
