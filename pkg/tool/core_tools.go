package tool

import (
	"context"
	"fmt"
	"time"

	"github.com/loomwork/loom/pkg/todo"
)

// PhaseSignal carries the terminal-tool side effects the phase graph's
// process node can't express through Result alone: next_phase_todos and
// job_complete don't just produce text, they end the current phase or the
// job outright. The graph owns one PhaseSignal per phase iteration and
// resets it before each dispatch round; core tools write into it instead
// of returning structured data the dispatcher would otherwise have to
// special-case.
type PhaseSignal struct {
	PhaseComplete bool
	NewTodos      []todo.Todo

	JobCompleteCalled bool
	Summary           string
	Deliverables      []string
	Confidence        string
	Notes             string
}

type listTodosTool struct{ mgr *todo.Manager }

func NewListTodosTool(mgr *todo.Manager) Tool { return listTodosTool{mgr} }

func (t listTodosTool) Info() Info {
	return Info{
		Name:        "list_todos",
		Description: "List the current phase's todos with status.",
		Category:    CategoryCore,
		Phase:       PhaseBoth,
		ReadOnly:    true,
	}
}

func (t listTodosTool) Execute(ctx context.Context, args map[string]interface{}) (Result, error) {
	list, err := t.mgr.Load()
	if err != nil {
		return Result{}, err
	}
	display := list.FormatForDisplay()
	if display == "" {
		display = "no todos for the current phase"
	}
	return Result{Success: true, Content: display}, nil
}

type todoCompleteTool struct{ mgr *todo.Manager }

func NewTodoCompleteTool(mgr *todo.Manager) Tool { return todoCompleteTool{mgr} }

func (t todoCompleteTool) Info() Info {
	return Info{
		Name:        "todo_complete",
		Description: "Mark the first pending or in-progress todo done.",
		Category:    CategoryCore,
		Phase:       PhaseBoth,
	}
}

func (t todoCompleteTool) Execute(ctx context.Context, args map[string]interface{}) (Result, error) {
	list, err := t.mgr.Load()
	if err != nil {
		return Result{}, err
	}
	remaining, isLast, err := list.Complete(time.Now().UTC())
	if err != nil {
		return Result{}, err
	}
	if err := t.mgr.Save(list); err != nil {
		return Result{}, err
	}
	content := fmt.Sprintf("todo completed, %d remaining", remaining)
	if isLast {
		content += " (was the last todo in this phase)"
	}
	return Result{Success: true, Content: content}, nil
}

type todoRewindTool struct{ mgr *todo.Manager }

func NewTodoRewindTool(mgr *todo.Manager) Tool { return todoRewindTool{mgr} }

func (t todoRewindTool) Info() Info {
	return Info{
		Name:        "todo_rewind",
		Description: "Abandon the current phase's todos, archive them with an issue note, and start with an empty list.",
		Category:    CategoryCore,
		Phase:       PhaseBoth,
		Parameters: []Parameter{
			{Name: "phase_number", Type: "integer", Required: true},
			{Name: "phase_type", Type: "string", Required: true, Enum: []string{"strategic", "tactical"}},
			{Name: "issue", Type: "string", Required: true, Description: "Why the current plan for this phase no longer holds."},
		},
	}
}

func (t todoRewindTool) Execute(ctx context.Context, args map[string]interface{}) (Result, error) {
	phaseNumber, _ := args["phase_number"].(float64)
	phaseType, _ := args["phase_type"].(string)
	issue, _ := args["issue"].(string)
	if phaseType == "" || issue == "" {
		return Result{}, fmt.Errorf("phase_type and issue are required")
	}

	if _, err := t.mgr.Rewind(int(phaseNumber), phaseType, issue); err != nil {
		return Result{}, err
	}
	return Result{Success: true, Content: "phase todos rewound, start fresh with a revised plan"}, nil
}

type nextPhaseTodosTool struct {
	mgr    *todo.Manager
	signal *PhaseSignal
}

// NewNextPhaseTodosTool wraps the terminal, strategic-only tool that ends a
// strategic phase and hands off the next phase's todo list. signal is
// mutated on success so the caller driving the phase graph can read
// PhaseComplete/NewTodos back out after dispatch.
func NewNextPhaseTodosTool(mgr *todo.Manager, signal *PhaseSignal) Tool {
	return nextPhaseTodosTool{mgr: mgr, signal: signal}
}

func (t nextPhaseTodosTool) Info() Info {
	return Info{
		Name:        "next_phase_todos",
		Description: "Close out the current strategic phase and define the todo list for the next phase.",
		Category:    CategoryCore,
		Phase:       PhaseStrategic,
		Parameters: []Parameter{
			{Name: "todos", Type: "array", Required: true, Description: "Ordered list of todo content strings for the next phase."},
		},
	}
}

func (t nextPhaseTodosTool) Execute(ctx context.Context, args map[string]interface{}) (Result, error) {
	raw, ok := args["todos"].([]interface{})
	if !ok || len(raw) == 0 {
		return Result{}, fmt.Errorf("todos is required and must be a non-empty array")
	}

	now := time.Now().UTC()
	next := make([]todo.Todo, 0, len(raw))
	for i, item := range raw {
		content, ok := item.(string)
		if !ok || content == "" {
			return Result{}, fmt.Errorf("todos[%d] must be a non-empty string", i)
		}
		next = append(next, todo.Todo{
			ID:        fmt.Sprintf("%d", i+1),
			Content:   content,
			Status:    todo.StatusPending,
			CreatedAt: now,
		})
	}

	if t.signal != nil {
		t.signal.PhaseComplete = true
		t.signal.NewTodos = next
	}
	return Result{Success: true, Content: fmt.Sprintf("next phase will start with %d todos", len(next))}, nil
}

type jobCompleteTool struct{ signal *PhaseSignal }

// NewJobCompleteTool wraps the terminal tool that ends the job outright.
// Like next_phase_todos it writes into signal rather than returning
// structured data.
func NewJobCompleteTool(signal *PhaseSignal) Tool {
	return jobCompleteTool{signal: signal}
}

func (t jobCompleteTool) Info() Info {
	return Info{
		Name:        "job_complete",
		Description: "Declare the job finished: no further phases will run.",
		Category:    CategoryCore,
		Phase:       PhaseStrategic,
		Parameters: []Parameter{
			{Name: "summary", Type: "string", Required: true},
			{Name: "deliverables", Type: "array", Required: true},
			{Name: "confidence", Type: "string", Enum: []string{"low", "medium", "high"}},
			{Name: "notes", Type: "string"},
		},
	}
}

func (t jobCompleteTool) Execute(ctx context.Context, args map[string]interface{}) (Result, error) {
	summary, _ := args["summary"].(string)
	if summary == "" {
		return Result{}, fmt.Errorf("summary is required")
	}

	var deliverables []string
	if raw, ok := args["deliverables"].([]interface{}); ok {
		for _, d := range raw {
			if s, ok := d.(string); ok {
				deliverables = append(deliverables, s)
			}
		}
	}
	confidence, _ := args["confidence"].(string)
	notes, _ := args["notes"].(string)

	if t.signal != nil {
		t.signal.JobCompleteCalled = true
		t.signal.Summary = summary
		t.signal.Deliverables = deliverables
		t.signal.Confidence = confidence
		t.signal.Notes = notes
	}
	return Result{Success: true, Content: "job marked complete"}, nil
}
