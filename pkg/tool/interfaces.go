// Package tool implements the phase-filtered, config-filtered,
// datasource-filtered tool surface the phase graph's process node
// dispatches against. It generalizes a ToolInfo/ToolResult/Tool registry
// pattern (registered into a generic name-keyed registry) into a contract
// with category and phase metadata.
package tool

import "context"

// Phase tags which graph phase(s) a tool is valid in. Terminal tools
// (next_phase_todos, job_complete) are strategic-only.
type Phase string

const (
	PhaseStrategic Phase = "strategic"
	PhaseTactical  Phase = "tactical"
	PhaseBoth      Phase = "both"
)

func (p Phase) allows(current Phase) bool {
	return p == PhaseBoth || p == current
}

// Category groups tools for config-driven enable/disable and read-only
// gating, matching the category table the dispatcher presents.
type Category string

const (
	CategoryWorkspace Category = "workspace"
	CategoryCore      Category = "core"
	CategoryGraph     Category = "graph"
	CategorySQL       Category = "sql"
	CategoryMongoDB   Category = "mongodb"
	CategoryResearch  Category = "research"
	CategoryCitation  Category = "citation"
	CategoryGit       Category = "git"
)

// Parameter describes one argument a tool accepts, a JSON-schema-ish
// shape the function-calling definitions get built from.
type Parameter struct {
	Name        string
	Type        string
	Description string
	Required    bool
	Default     interface{}
	Enum        []string
}

// Info is a tool's static description, presented to the LLM as its
// function-calling schema.
type Info struct {
	Name        string
	Description string
	Category    Category
	Phase       Phase
	ReadOnly    bool
	Parameters  []Parameter
}

// Result is what a tool execution produces before the dispatcher folds it
// into a tool_result message.
type Result struct {
	Success bool
	Content string
	Error   string
}

// Tool is the dispatch contract every category's concrete tools implement.
type Tool interface {
	Info() Info
	Execute(ctx context.Context, args map[string]interface{}) (Result, error)
}
