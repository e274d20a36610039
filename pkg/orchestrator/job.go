// Package orchestrator owns the jobs table and drives job submission,
// worker assignment, and the pending_review/resume protocol described by
// the engine's orchestrator↔worker contract. It never touches a job's
// workspace or graph state directly — those are exclusively the worker's
// concern — it only tracks lifecycle and routes JobStart/JobResume payloads
// to an idle worker.
package orchestrator

import (
	"fmt"
	"time"

	"github.com/loomwork/loom/pkg/config"
	"github.com/loomwork/loom/pkg/datasource"
)

// Status is a job's lifecycle state, mutated only by the orchestrator;
// workers only ever propose transitions via status callbacks.
type Status string

const (
	StatusCreated       Status = "created"
	StatusPending       Status = "pending"
	StatusAssigned      Status = "assigned"
	StatusRunning       Status = "running"
	StatusPendingReview Status = "pending_review"
	// StatusFrozen is an operator-initiated indefinite pause, distinct from
	// the agent-initiated StatusPendingReview freeze: nothing resumes a
	// frozen job automatically, it waits on an explicit admin action.
	StatusFrozen    Status = "frozen"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

func (s Status) terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Job is one work item row. ConfigOverride and ResolvedConfig are sparse
// maps rather than typed structs so they round-trip through JSON/SQL
// without the orchestrator needing to understand every field the worker's
// resolved config carries.
type Job struct {
	ID             string                 `json:"id"`
	Description    string                 `json:"description"`
	ExpertID       string                 `json:"expert_id,omitempty"`
	ConfigOverride map[string]interface{} `json:"config_override,omitempty"`
	Autonomy       config.Autonomy        `json:"autonomy"`
	DatasourceIDs  []string               `json:"datasource_ids,omitempty"`

	Status       Status `json:"status"`
	WorkerID     string `json:"worker_id,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`

	Phase          string `json:"phase,omitempty"`
	PhaseNumber    int    `json:"phase_number,omitempty"`
	IterationCount int    `json:"iteration_count,omitempty"`
	TokensUsed     int    `json:"tokens_used,omitempty"`

	// PendingFeedback is set by Resume and consumed by the next assignment,
	// which sends it as the JobResume feedback text and clears it. Whether a
	// job is re-entered via JobResume or JobStart depends on StartedAt, not
	// on this field.
	PendingFeedback string `json:"pending_feedback,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// SubmitRequest is the orchestrator HTTP API's POST /jobs body.
type SubmitRequest struct {
	Description    string                 `json:"description"`
	ExpertID       string                 `json:"expert_id,omitempty"`
	Autonomy       config.Autonomy        `json:"autonomy,omitempty"`
	ConfigOverride map[string]interface{} `json:"config_override,omitempty"`
	DatasourceIDs  []string               `json:"datasource_ids,omitempty"`
	Uploads        []string               `json:"uploads,omitempty"`
}

func (r SubmitRequest) validate() error {
	if r.Description == "" {
		return fmt.Errorf("description is required")
	}
	if r.Autonomy != "" && !r.Autonomy.Valid() {
		return fmt.Errorf("invalid autonomy level: %q", r.Autonomy)
	}
	return nil
}

// StatusCallback is the body a worker POSTs at heartbeat intervals and at
// every phase transition.
type StatusCallback struct {
	JobID          string `json:"job_id"`
	Status         string `json:"status,omitempty"`
	Phase          string `json:"phase,omitempty"`
	PhaseNumber    int    `json:"phase_number,omitempty"`
	IterationCount int    `json:"iteration_count,omitempty"`
	Tokens         int    `json:"tokens,omitempty"`
	ErrorMessage   string `json:"error_message,omitempty"`
}

// JobStartPayload is POSTed to an idle worker's /start endpoint.
type JobStartPayload struct {
	JobID             string                   `json:"job_id"`
	Description       string                   `json:"description"`
	ExpertID          string                   `json:"expert_id,omitempty"`
	ResolvedConfig    map[string]interface{}   `json:"resolved_config"`
	Datasources       []datasource.Datasource  `json:"datasources,omitempty"`
	Uploads           []string                 `json:"uploads,omitempty"`
	Autonomy          config.Autonomy          `json:"autonomy"`
	WorkspaceGitRemote string                  `json:"workspace_git_remote,omitempty"`
}

// JobResumePayload is POSTed to re-enter a pending_review job, optionally
// carrying human feedback.
type JobResumePayload struct {
	JobID           string `json:"job_id"`
	Approved        bool   `json:"approved"`
	FeedbackText    string `json:"feedback_text,omitempty"`
	FeedbackCommits []string `json:"feedback_commits,omitempty"`
}
