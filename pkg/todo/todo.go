// Package todo manages the phase-scoped task list that drives the tactical
// loop of the phase graph. It generalizes a session-scoped todo_write tool
// into a todos.yaml-backed list keyed by workspace path rather than
// session ID, with archiving and rewind.
package todo

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a single todo. done/skipped are terminal;
// completion is monotonic — a todo never moves backward once done or
// skipped.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusSkipped    Status = "skipped"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusDone, StatusSkipped:
		return true
	default:
		return false
	}
}

func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusSkipped
}

// Todo is one tactical or strategic step. IDs are dense and 1-based within
// a phase.
type Todo struct {
	ID          string     `yaml:"id" json:"id"`
	Content     string     `yaml:"content" json:"content"`
	Status      Status     `yaml:"status" json:"status"`
	Notes       string     `yaml:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt   time.Time  `yaml:"created_at" json:"created_at"`
	CompletedAt *time.Time `yaml:"completed_at,omitempty" json:"completed_at,omitempty"`
}

// List is an ordered todo list. It carries no phase metadata; the archive
// directory name records the phase number and type.
type List struct {
	Todos []Todo `yaml:"todos" json:"todos"`
}

// BootstrapSet returns the literal phase-1 strategic todos every job starts
// with.
func BootstrapSet(now time.Time) []Todo {
	contents := []string{
		"Examine the workspace (list files, read instructions.md).",
		"Populate workspace.md with current state, key entities, constraints.",
		"Draft plan.md with phased approach and success criteria.",
		"Call next_phase_todos(...) to produce the first tactical phase's todos.",
	}
	todos := make([]Todo, len(contents))
	for i, c := range contents {
		todos[i] = Todo{
			ID:        fmt.Sprintf("%d", i+1),
			Content:   c,
			Status:    StatusPending,
			CreatedAt: now,
		}
	}
	return todos
}

// ValidateWindow enforces the phase-sized window invariant: min_todos <=
// len(todos) <= max_todos.
func ValidateWindow(todos []Todo, minTodos, maxTodos int) error {
	n := len(todos)
	if n < minTodos {
		return fmt.Errorf("too few todos: got %d, need at least %d — add more granular steps", n, minTodos)
	}
	if n > maxTodos {
		return fmt.Errorf("too many todos: got %d, max is %d — group related steps together", n, maxTodos)
	}
	return nil
}

// Complete marks the first pending/in_progress todo done. It returns the
// number of remaining (non-terminal) todos and whether the completed todo
// was the last one in the list.
func (l *List) Complete(now time.Time) (remaining int, isLast bool, err error) {
	idx := l.firstIncompleteIndex()
	if idx < 0 {
		return 0, false, fmt.Errorf("no pending or in_progress todo to complete")
	}

	l.Todos[idx].Status = StatusDone
	l.Todos[idx].CompletedAt = &now
	isLast = idx == len(l.Todos)-1

	remaining = 0
	for _, t := range l.Todos {
		if !t.Status.Terminal() {
			remaining++
		}
	}
	return remaining, isLast, nil
}

// SetStatus updates a specific todo's status and optional notes. Attempting
// to move a terminal todo backward is rejected.
func (l *List) SetStatus(id string, status Status, notes string) error {
	if !status.Valid() {
		return fmt.Errorf("invalid status %q", status)
	}
	for i := range l.Todos {
		if l.Todos[i].ID != id {
			continue
		}
		if l.Todos[i].Status.Terminal() && !status.Terminal() {
			return fmt.Errorf("todo %s is already %s and cannot move back to %s", id, l.Todos[i].Status, status)
		}
		l.Todos[i].Status = status
		if notes != "" {
			l.Todos[i].Notes = notes
		}
		if status.Terminal() && l.Todos[i].CompletedAt == nil {
			now := time.Now()
			l.Todos[i].CompletedAt = &now
		}
		return nil
	}
	return fmt.Errorf("todo %s not found", id)
}

// AllTerminal reports whether every todo in the list is done or skipped.
func (l *List) AllTerminal() bool {
	if len(l.Todos) == 0 {
		return false
	}
	for _, t := range l.Todos {
		if !t.Status.Terminal() {
			return false
		}
	}
	return true
}

// CurrentIndex returns the index of the first non-terminal todo, or -1 if
// none remain.
func (l *List) CurrentIndex() int {
	return l.firstIncompleteIndex()
}

func (l *List) firstIncompleteIndex() int {
	for i, t := range l.Todos {
		if !t.Status.Terminal() {
			return i
		}
	}
	return -1
}

// FormatForDisplay renders the list the way Layer-2 context injection
// expects: a compact, icon-annotated block the LLM sees every turn.
func (l *List) FormatForDisplay() string {
	if len(l.Todos) == 0 {
		return ""
	}

	out := "\n<current_todos>\n"
	for _, t := range l.Todos {
		out += fmt.Sprintf("%s [%s] %s\n", statusIcon(t.Status), t.ID, t.Content)
	}
	out += "</current_todos>\n"
	return out
}

func statusIcon(s Status) string {
	switch s {
	case StatusPending:
		return "[ ]"
	case StatusInProgress:
		return "[~]"
	case StatusDone:
		return "[x]"
	case StatusSkipped:
		return "[-]"
	default:
		return "[?]"
	}
}
