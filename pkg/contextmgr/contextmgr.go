// Package contextmgr assembles the layered prompt the process node sends to
// the model each turn and keeps that prompt inside its token budget as a
// job's conversation grows across many iterations.
//
// The prompt is built bottom-up in five layers: a phase-type system prompt,
// a Layer-2 overlay (current todos plus plan.md/workspace.md) injected as a
// second system message every turn, the function-calling tool schemas (built
// separately by the caller and passed alongside messages, not part of the
// message list itself), a prior-summary message when summarization has
// occurred, and the recent conversation. Layer 2 is never trimmed or
// summarized away.
//
// Token accounting reuses the tiktoken-backed counter already built for
// model-aware estimation rather than a second, separate counting path.
package contextmgr

import (
	"context"
	"fmt"
	"strings"

	"github.com/loomwork/loom/pkg/llms"
	"github.com/loomwork/loom/pkg/utils"
)

// Thresholds tunes when the context manager starts aging out tool results
// and, eventually, summarizing the conversation.
type Thresholds struct {
	KeepRecentToolResults        int
	MaxToolResultLength          int
	CompactionThresholdTokens    int
	SummarizationThresholdTokens int
	SummarizeKeepRecentMessages  int
}

// DefaultThresholds returns the engine's out-of-the-box tuning.
func DefaultThresholds() Thresholds {
	return Thresholds{
		KeepRecentToolResults:        5,
		MaxToolResultLength:          5000,
		CompactionThresholdTokens:    80000,
		SummarizationThresholdTokens: 100000,
		SummarizeKeepRecentMessages:  20,
	}
}

// protectedTools are never subject to placeholder substitution: their
// output stays load-bearing for the rest of the job regardless of age.
var protectedTools = map[string]bool{
	"read_file":  true,
	"list_files": true,
	"list_todos": true,
}

// Manager owns token accounting and the aging/summarization rules for one
// job's conversation.
type Manager struct {
	counter    *utils.TokenCounter
	thresholds Thresholds
}

// NewManager builds a Manager whose token counting is tuned for model.
func NewManager(model string, thresholds Thresholds) (*Manager, error) {
	counter, err := utils.NewTokenCounter(model)
	if err != nil {
		return nil, fmt.Errorf("build token counter for %q: %w", model, err)
	}
	return &Manager{counter: counter, thresholds: thresholds}, nil
}

// CountTokens returns the estimated token cost of messages, including
// per-message role/format overhead.
func (m *Manager) CountTokens(messages []llms.Message) int {
	conv := make([]utils.Message, len(messages))
	for i, msg := range messages {
		conv[i] = utils.Message{Role: msg.Role, Content: msg.Content}
	}
	return m.counter.CountMessages(conv)
}

// TruncateToolResult caps a single tool result's content length, appending a
// note of how much was cut. Applied to every tool result as it's produced,
// independent of the conversation-wide compaction pass below.
func (m *Manager) TruncateToolResult(content string) string {
	limit := m.thresholds.MaxToolResultLength
	if limit <= 0 || len(content) <= limit {
		return content
	}
	omitted := len(content) - limit
	return fmt.Sprintf("%s\n...[truncated, %d characters omitted]", content[:limit], omitted)
}

// CompactToolResults replaces older tool-result message content with a
// placeholder once the conversation's estimated token count reaches
// CompactionThresholdTokens. The most recent KeepRecentToolResults tool
// messages are left intact, as is any message from a protected tool.
// messages is not mutated; a new slice is returned.
func (m *Manager) CompactToolResults(messages []llms.Message) []llms.Message {
	if m.CountTokens(messages) < m.thresholds.CompactionThresholdTokens {
		return messages
	}

	var toolIdx []int
	for i, msg := range messages {
		if msg.Role == "tool" {
			toolIdx = append(toolIdx, i)
		}
	}
	keep := m.thresholds.KeepRecentToolResults
	cutoff := len(toolIdx) - keep
	if cutoff <= 0 {
		return messages
	}

	out := make([]llms.Message, len(messages))
	copy(out, messages)
	for _, idx := range toolIdx[:cutoff] {
		if protectedTools[out[idx].Name] {
			continue
		}
		out[idx].Content = fmt.Sprintf("[tool result for %q omitted to save context — re-run the tool if the output is still needed]", out[idx].Name)
	}
	return out
}

// Summarizer condenses the given messages into a short prose summary. It is
// the same LLM the graph is already driving — summarization piggybacks on
// the job's own model rather than a dedicated one.
type Summarizer func(ctx context.Context, messages []llms.Message) (string, error)

// Summarize collapses all but the most recent SummarizeKeepRecentMessages
// messages into a single assistant summary message once the conversation's
// estimated token count reaches SummarizationThresholdTokens. Summarization
// is best-effort: if summarize returns an error, the original messages are
// returned unchanged rather than failing the iteration.
func (m *Manager) Summarize(ctx context.Context, messages []llms.Message, summarize Summarizer) []llms.Message {
	if m.CountTokens(messages) < m.thresholds.SummarizationThresholdTokens {
		return messages
	}
	keep := m.thresholds.SummarizeKeepRecentMessages
	if keep <= 0 || keep >= len(messages) {
		return messages
	}

	older, recent := messages[:len(messages)-keep], messages[len(messages)-keep:]
	summary, err := summarize(ctx, older)
	if err != nil {
		return messages
	}

	out := make([]llms.Message, 0, 1+len(recent))
	out = append(out, llms.Message{Role: "assistant", Content: "Summary of earlier conversation:\n" + summary})
	out = append(out, recent...)
	return out
}

// BuildLayerTwoOverlay renders the Layer-2 system message: the current todo
// display plus, at the start of a strategic phase, the freshly re-read
// plan.md and workspace.md contents. planMD/workspaceMD are empty outside
// strategic-phase entry.
func BuildLayerTwoOverlay(todoDisplay, planMD, workspaceMD string) string {
	var b strings.Builder
	b.WriteString(todoDisplay)
	if planMD != "" {
		b.WriteString("\n<plan>\n")
		b.WriteString(planMD)
		b.WriteString("\n</plan>\n")
	}
	if workspaceMD != "" {
		b.WriteString("\n<workspace_notes>\n")
		b.WriteString(workspaceMD)
		b.WriteString("\n</workspace_notes>\n")
	}
	return b.String()
}

// Assemble builds the full message list sent to the model: system prompt,
// Layer-2 overlay, prior summary (if any), then the recent conversation.
// Tool schemas are not part of this list; the caller passes them to the LLM
// provider's Generate call alongside these messages.
func (m *Manager) Assemble(systemPrompt, layerTwoOverlay, priorSummary string, recent []llms.Message) []llms.Message {
	out := make([]llms.Message, 0, 3+len(recent))
	out = append(out, llms.Message{Role: "system", Content: systemPrompt})
	if layerTwoOverlay != "" {
		out = append(out, llms.Message{Role: "system", Content: layerTwoOverlay})
	}
	if priorSummary != "" {
		out = append(out, llms.Message{Role: "assistant", Content: "Summary of earlier conversation:\n" + priorSummary})
	}
	out = append(out, recent...)
	return out
}
