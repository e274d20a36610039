package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// WorkerClient is how the orchestrator pushes JobStart/JobResume/cancel
// payloads to a worker's HTTP surface. It is an interface so tests can
// substitute a fake rather than spin up real worker processes.
type WorkerClient interface {
	Start(ctx context.Context, workerAddr string, payload JobStartPayload) error
	Resume(ctx context.Context, workerAddr string, payload JobResumePayload) error
	Cancel(ctx context.Context, workerAddr string, jobID string) error
}

// workerState is what the orchestrator tracks about a worker it has heard
// from, either via explicit registration or a status callback.
type workerState struct {
	addr string
	busy bool
	seen time.Time
}

// Orchestrator owns the jobs table and the idle-worker pool, and
// implements the assignment/resume/cancel protocol.
type Orchestrator struct {
	jobs        Store
	datasources *DatasourceStore
	client      WorkerClient
	defaults    map[string]interface{}
	experts     map[string]map[string]interface{}

	mu      sync.Mutex
	workers map[string]*workerState

	wallClockTimeout time.Duration
}

// New builds an Orchestrator. defaults is the defaults.yaml layer decoded
// to a sparse map; experts maps expert_id to its config layer.
func New(jobs Store, datasources *DatasourceStore, client WorkerClient, defaults map[string]interface{}, experts map[string]map[string]interface{}) *Orchestrator {
	return &Orchestrator{
		jobs:             jobs,
		datasources:      datasources,
		client:           client,
		defaults:         defaults,
		experts:          experts,
		workers:          make(map[string]*workerState),
		wallClockTimeout: 7 * 24 * time.Hour,
	}
}

// RegisterWorker adds (or refreshes) a known worker endpoint, initially idle.
func (o *Orchestrator) RegisterWorker(id, addr string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.workers[id] = &workerState{addr: addr, seen: time.Now().UTC()}
}

// Heartbeat marks a worker as seen and updates its busy state.
func (o *Orchestrator) Heartbeat(id string, busy bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if w, ok := o.workers[id]; ok {
		w.busy = busy
		w.seen = time.Now().UTC()
	}
}

func (o *Orchestrator) pickIdleWorker() (id string, addr string, ok bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for id, w := range o.workers {
		if !w.busy {
			return id, w.addr, true
		}
	}
	return "", "", false
}

func (o *Orchestrator) markBusy(id string, busy bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if w, ok := o.workers[id]; ok {
		w.busy = busy
	}
}

// Submit validates and creates a new job in pending status.
func (o *Orchestrator) Submit(ctx context.Context, req SubmitRequest) (*Job, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	job := &Job{
		ID:             uuid.NewString(),
		Description:    req.Description,
		ExpertID:       req.ExpertID,
		ConfigOverride: req.ConfigOverride,
		Autonomy:       req.Autonomy,
		DatasourceIDs:  req.DatasourceIDs,
		Status:         StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := o.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	return job, nil
}

func (o *Orchestrator) Get(ctx context.Context, id string) (*Job, error) {
	return o.jobs.Get(ctx, id)
}

func (o *Orchestrator) List(ctx context.Context, status Status) ([]*Job, error) {
	return o.jobs.List(ctx, status)
}

// AssignOnce claims at most one pending job and pushes it to an idle
// worker. Returns (false, nil) when there is nothing to assign or no
// worker is free — neither is an error, just nothing to do this tick.
func (o *Orchestrator) AssignOnce(ctx context.Context) (bool, error) {
	job, err := o.jobs.ClaimPending(ctx)
	if err != nil {
		return false, fmt.Errorf("claim pending job: %w", err)
	}
	if job == nil {
		return false, nil
	}

	workerID, addr, ok := o.pickIdleWorker()
	if !ok {
		// No worker available right now: release the claim back to pending
		// so the next tick (possibly after a worker frees up) can pick it up.
		job.Status = StatusPending
		job.UpdatedAt = time.Now().UTC()
		_ = o.jobs.Update(ctx, job)
		return false, nil
	}

	expert := o.experts[job.ExpertID]
	attached := o.datasources.Resolve(job.DatasourceIDs)
	_, resolvedMap, resolvedDS, err := ResolveConfig(o.defaults, expert, job, attached)
	if err != nil {
		job.Status = StatusFailed
		job.ErrorMessage = fmt.Sprintf("resolve config: %v", err)
		job.UpdatedAt = time.Now().UTC()
		_ = o.jobs.Update(ctx, job)
		return false, fmt.Errorf("resolve config for job %s: %w", job.ID, err)
	}

	o.markBusy(workerID, true)

	if job.StartedAt != nil {
		// A previously-run job re-entering from pending_review: re-enter via
		// JobResume, not JobStart, so the worker loads the latest checkpoint
		// instead of scaffolding a fresh workspace.
		resumePayload := JobResumePayload{JobID: job.ID, Approved: true, FeedbackText: job.PendingFeedback}
		if err := o.client.Resume(ctx, addr, resumePayload); err != nil {
			o.markBusy(workerID, false)
			job.Status = StatusPendingReview
			job.UpdatedAt = time.Now().UTC()
			_ = o.jobs.Update(ctx, job)
			return false, fmt.Errorf("resume job %s on worker %s: %w", job.ID, workerID, err)
		}
	} else {
		payload := JobStartPayload{
			JobID:          job.ID,
			Description:    job.Description,
			ExpertID:       job.ExpertID,
			ResolvedConfig: resolvedMap,
			Datasources:    resolvedDS,
			Autonomy:       job.Autonomy,
		}
		if err := o.client.Start(ctx, addr, payload); err != nil {
			o.markBusy(workerID, false)
			job.Status = StatusPending
			job.UpdatedAt = time.Now().UTC()
			_ = o.jobs.Update(ctx, job)
			return false, fmt.Errorf("start job %s on worker %s: %w", job.ID, workerID, err)
		}
	}

	job.WorkerID = workerID
	job.Status = StatusRunning
	job.PendingFeedback = ""
	now := time.Now().UTC()
	if job.StartedAt == nil {
		job.StartedAt = &now
	}
	job.UpdatedAt = now
	if err := o.jobs.Update(ctx, job); err != nil {
		return false, fmt.Errorf("persist job %s after assignment: %w", job.ID, err)
	}
	return true, nil
}

// RunAssignmentLoop polls AssignOnce every interval until ctx is cancelled.
func (o *Orchestrator) RunAssignmentLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for {
				assigned, err := o.AssignOnce(ctx)
				if err != nil || !assigned {
					break
				}
			}
		}
	}
}

// HandleStatusCallback applies a worker's heartbeat/phase-transition
// report to the jobs table. It never moves a job into a terminal status —
// that happens via HandleFreeze/HandleComplete/HandleFailed/Cancel so the
// orchestrator remains the sole owner of terminal transitions.
func (o *Orchestrator) HandleStatusCallback(ctx context.Context, cb StatusCallback) error {
	job, err := o.jobs.Get(ctx, cb.JobID)
	if err != nil {
		return err
	}
	job.Phase = cb.Phase
	job.PhaseNumber = cb.PhaseNumber
	job.IterationCount = cb.IterationCount
	job.TokensUsed = cb.Tokens
	job.UpdatedAt = time.Now().UTC()
	return o.jobs.Update(ctx, job)
}

// HandleFreeze records that a worker froze the job for review, per the
// autonomy gate, and releases the worker's busy slot.
func (o *Orchestrator) HandleFreeze(ctx context.Context, jobID string) error {
	job, err := o.jobs.Get(ctx, jobID)
	if err != nil {
		return err
	}
	job.Status = StatusPendingReview
	job.UpdatedAt = time.Now().UTC()
	if err := o.jobs.Update(ctx, job); err != nil {
		return err
	}
	if job.WorkerID != "" {
		o.markBusy(job.WorkerID, false)
	}
	return nil
}

// HandleComplete records job_complete under full autonomy (no freeze).
func (o *Orchestrator) HandleComplete(ctx context.Context, jobID string) error {
	job, err := o.jobs.Get(ctx, jobID)
	if err != nil {
		return err
	}
	job.Status = StatusCompleted
	now := time.Now().UTC()
	job.CompletedAt = &now
	job.UpdatedAt = now
	if err := o.jobs.Update(ctx, job); err != nil {
		return err
	}
	if job.WorkerID != "" {
		o.markBusy(job.WorkerID, false)
	}
	return nil
}

// HandleFailed records a worker-reported failure (checkpoint write
// exhaustion, LLM retry exhaustion, fatal config, workspace I/O failure).
func (o *Orchestrator) HandleFailed(ctx context.Context, jobID, reason string) error {
	job, err := o.jobs.Get(ctx, jobID)
	if err != nil {
		return err
	}
	job.Status = StatusFailed
	job.ErrorMessage = reason
	job.UpdatedAt = time.Now().UTC()
	if err := o.jobs.Update(ctx, job); err != nil {
		return err
	}
	if job.WorkerID != "" {
		o.markBusy(job.WorkerID, false)
	}
	return nil
}

// Resume approves or rejects a pending_review job. Approval, with or
// without feedback, returns the job to pending so the assignment loop
// re-enters it (possibly on a different worker) with feedback injected via
// JobResumePayload. Resume does not look at the node the job froze at, so
// no approval completes a job directly.
func (o *Orchestrator) Resume(ctx context.Context, jobID string, approved bool, feedback string) error {
	job, err := o.jobs.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status != StatusPendingReview {
		return fmt.Errorf("job %s is not pending_review (status=%s)", jobID, job.Status)
	}
	if !approved {
		job.Status = StatusCancelled
		job.UpdatedAt = time.Now().UTC()
		return o.jobs.Update(ctx, job)
	}

	job.Status = StatusPending
	job.PendingFeedback = feedback
	job.UpdatedAt = time.Now().UTC()
	return o.jobs.Update(ctx, job)
}

// Cancel requests cooperative cancellation of a running job.
func (o *Orchestrator) Cancel(ctx context.Context, jobID string) error {
	job, err := o.jobs.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status.terminal() {
		return nil
	}
	if job.WorkerID != "" {
		o.mu.Lock()
		w, ok := o.workers[job.WorkerID]
		o.mu.Unlock()
		if ok {
			if err := o.client.Cancel(ctx, w.addr, jobID); err != nil {
				return fmt.Errorf("cancel job %s on worker %s: %w", jobID, job.WorkerID, err)
			}
		}
	}
	job.Status = StatusCancelled
	job.UpdatedAt = time.Now().UTC()
	if err := o.jobs.Update(ctx, job); err != nil {
		return err
	}
	if job.WorkerID != "" {
		o.markBusy(job.WorkerID, false)
	}
	return nil
}

// ExpireStale fails any running job whose wall clock has exceeded the
// orchestrator-level timeout (default 7 days).
func (o *Orchestrator) ExpireStale(ctx context.Context) error {
	running, err := o.jobs.List(ctx, StatusRunning)
	if err != nil {
		return err
	}
	for _, job := range running {
		if job.StartedAt == nil {
			continue
		}
		if time.Since(*job.StartedAt) > o.wallClockTimeout {
			if err := o.HandleFailed(ctx, job.ID, "exceeded maximum job wall-clock timeout"); err != nil {
				return err
			}
		}
	}
	return nil
}
