// Package graph drives one job through the nested strategic/tactical phase
// loop: a strategic phase sets direction and hands the next phase its todo
// list, a tactical phase works that list down to empty, and the two
// alternate until a job_complete call (or the orchestrator) ends the job.
package graph

import "encoding/json"

// Node is one step in the phase loop's state machine.
type Node string

const (
	NodeInit             Node = "init"
	NodeProcess          Node = "process"
	NodeUpdateTodos      Node = "update_todos"
	NodeCheckTodos       Node = "check_todos"
	NodeArchivePhase     Node = "archive_phase"
	NodeHandleTransition Node = "handle_transition"
	NodeCreateNextTodos  Node = "create_next_todos"
	NodeEnd              Node = "end"
)

// PhaseType distinguishes the two alternating phase kinds.
type PhaseType string

const (
	PhaseStrategic PhaseType = "strategic"
	PhaseTactical  PhaseType = "tactical"
)

func (p PhaseType) next() PhaseType {
	if p == PhaseStrategic {
		return PhaseTactical
	}
	return PhaseStrategic
}

// State is the full, checkpointable state of one job's run through the
// phase graph. A fresh Record's Blob is this struct's JSON encoding.
type State struct {
	JobID     string `json:"job_id"`
	StepIndex int64  `json:"step_index"`

	Node                 Node      `json:"node"`
	PhaseType            PhaseType `json:"phase_type"`
	PhaseNumber          int       `json:"phase_number"`
	PhaseStartIteration  int       `json:"phase_start_iteration"`
	IterationCount       int       `json:"iteration_count"`
	ForceStrategicNext   bool      `json:"force_strategic_next,omitempty"`
	SprintLimitReached   bool      `json:"sprint_limit_reached,omitempty"`

	Messages []Message `json:"messages"`

	PhaseComplete     bool `json:"phase_complete"`
	GoalAchieved      bool `json:"goal_achieved"`
	JobCompleteCalled bool `json:"job_complete_called"`

	PendingReview bool   `json:"pending_review,omitempty"`
	FreezeNode    Node   `json:"freeze_node,omitempty"`
	Feedback      string `json:"feedback,omitempty"`

	Summary      string   `json:"summary,omitempty"`
	Deliverables []string `json:"deliverables,omitempty"`
	Confidence   string   `json:"confidence,omitempty"`
	Notes        string   `json:"notes,omitempty"`
}

// Message mirrors llms.Message for checkpoint serialization, so pkg/graph
// doesn't force a JSON tag contract onto the provider package's wire type.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

// ToolCall mirrors llms.ToolCall.
type ToolCall struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
	RawArgs   string                 `json:"raw_args,omitempty"`
}

// NewInitialState seeds phase 1, strategic, at the init node.
func NewInitialState(jobID string) *State {
	return &State{
		JobID:       jobID,
		Node:        NodeInit,
		PhaseType:   PhaseStrategic,
		PhaseNumber: 1,
	}
}

// Marshal serializes State for the checkpoint store.
func (s *State) Marshal() ([]byte, error) {
	return json.Marshal(s)
}

// UnmarshalState deserializes a checkpoint blob back into a State.
func UnmarshalState(blob []byte) (*State, error) {
	var s State
	if err := json.Unmarshal(blob, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// clone returns a deep-enough copy for the checkpoint-before-mutation
// pattern: slices are copied so a failed step never leaves the caller's
// State mutated.
func (s *State) clone() *State {
	out := *s
	out.Messages = append([]Message(nil), s.Messages...)
	out.Deliverables = append([]string(nil), s.Deliverables...)
	return &out
}
