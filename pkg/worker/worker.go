// Package worker runs one job at a time through the phase graph: it holds
// the job's workspace, todo list, tool registry/dispatcher, context
// manager, and checkpoint lease, and reports lifecycle back to the
// orchestrator via status callbacks. A worker process only ever runs one
// job concurrently; parallelism across jobs comes from running many worker
// processes. Within a job, the tool calls of one turn are dispatched one
// after another.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/loomwork/loom/pkg/checkpoint"
	"github.com/loomwork/loom/pkg/config"
	"github.com/loomwork/loom/pkg/contextmgr"
	"github.com/loomwork/loom/pkg/datasource"
	"github.com/loomwork/loom/pkg/graph"
	"github.com/loomwork/loom/pkg/llms"
	"github.com/loomwork/loom/pkg/orchestrator"
	"github.com/loomwork/loom/pkg/todo"
	"github.com/loomwork/loom/pkg/tool"
	"github.com/loomwork/loom/pkg/workspace"
)

// OrchestratorClient is how the worker reports status, freeze, completion,
// and failure back to the orchestrator that assigned it a job.
type OrchestratorClient interface {
	PostStatus(ctx context.Context, cb orchestrator.StatusCallback) error
	PostFreeze(ctx context.Context, jobID string) error
	PostComplete(ctx context.Context, jobID string) error
	PostFailed(ctx context.Context, jobID, reason string) error
}

// LLMFactory builds the provider a job's graph drives, from its resolved
// LLM settings. Exists as a seam so tests can substitute a fake provider
// instead of making real network calls.
type LLMFactory func(settings config.LLMSettings) (llms.LLMProvider, error)

// DefaultLLMFactory builds a real provider via the LLM registry, sourcing
// credentials from the environment the worker process runs in.
func DefaultLLMFactory(settings config.LLMSettings) (llms.LLMProvider, error) {
	registry := llms.NewLLMRegistry()
	apiKey := config.GetProviderAPIKey(settings.Provider)
	providerCfg := config.ProviderConfigFromSettings(settings, apiKey, "")
	return registry.CreateLLMFromConfig(settings.Provider+"-"+settings.Model, providerCfg)
}

// runningJob is everything a worker tracks about the job currently
// occupying its one execution slot.
type runningJob struct {
	id         string
	workspace  *workspace.Workspace
	checkpoint checkpoint.Store
	cancel     context.CancelFunc
	cancelled  bool
	phase      string
	phaseNum   int
	iterations int
	tokens     int
}

// Worker holds at most one job at a time and drives it through the phase
// graph, checkpointing every step and reporting status back to the
// orchestrator that assigned it.
type Worker struct {
	id          string
	client      OrchestratorClient
	checkpoints checkpoint.Store
	llmFactory  LLMFactory
	workspaceRoot string
	heartbeat   time.Duration

	mu  sync.Mutex
	job *runningJob
}

// Options configures a Worker.
type Options struct {
	ID            string
	Client        OrchestratorClient
	Checkpoints   checkpoint.Store
	LLMFactory    LLMFactory
	WorkspaceRoot string
	Heartbeat     time.Duration
}

// New builds a Worker. LLMFactory, WorkspaceRoot and Heartbeat fall back to
// defaults (DefaultLLMFactory, ./workspaces, 30s). Checkpoints has no
// default: with a nil store, Resume fails. A SQL-backed store is expected
// in production; an in-process store only suits tests and single-process
// demos.
func New(opts Options) *Worker {
	if opts.LLMFactory == nil {
		opts.LLMFactory = DefaultLLMFactory
	}
	if opts.WorkspaceRoot == "" {
		opts.WorkspaceRoot = "./workspaces"
	}
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = 30 * time.Second
	}
	return &Worker{
		id:            opts.ID,
		client:        opts.Client,
		checkpoints:   opts.Checkpoints,
		llmFactory:    opts.LLMFactory,
		workspaceRoot: opts.WorkspaceRoot,
		heartbeat:     opts.Heartbeat,
	}
}

// Busy reports whether a job currently occupies the worker's slot.
func (w *Worker) Busy() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.job != nil
}

// Status summarizes the currently-running job, or ok=false if idle.
func (w *Worker) Status() (jobID, phase string, phaseNum, iterations, tokens int, ok bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.job == nil {
		return "", "", 0, 0, 0, false
	}
	return w.job.id, w.job.phase, w.job.phaseNum, w.job.iterations, w.job.tokens, true
}

var seedFiles = workspace.Seeds{
	"plan.md":      "# Plan\n",
	"workspace.md": "# Workspace Notes\n",
	"feedback.md":  "# Feedback\n",
}

// Start accepts a JobStart payload and, if the worker is idle, begins
// driving the job through the phase graph in a background goroutine.
func (w *Worker) Start(payload orchestrator.JobStartPayload) error {
	w.mu.Lock()
	if w.job != nil {
		w.mu.Unlock()
		return fmt.Errorf("worker already running job %s", w.job.id)
	}
	w.mu.Unlock()

	cfg, err := config.Resolve(nil, nil, payload.ResolvedConfig, nil)
	if err != nil {
		return fmt.Errorf("decode resolved config for job %s: %w", payload.JobID, err)
	}

	ws, err := workspace.Init(workspace.Layout{
		Root:       fmt.Sprintf("%s/%s", w.workspaceRoot, payload.JobID),
		GitEnabled: cfg.Workspace.GitEnabled,
	}, seedFiles)
	if err != nil {
		return fmt.Errorf("init workspace for job %s: %w", payload.JobID, err)
	}
	if err := ws.Write("description.md", []byte(payload.Description)); err != nil {
		return fmt.Errorf("seed job description: %w", err)
	}

	state := graph.NewInitialState(payload.JobID)
	return w.launch(payload.JobID, cfg, ws, state, payload.Datasources)
}

// Resume re-enters a previously-frozen job from its last checkpoint,
// optionally injecting human feedback as a fresh message before continuing.
func (w *Worker) Resume(payload orchestrator.JobResumePayload) error {
	w.mu.Lock()
	if w.job != nil {
		w.mu.Unlock()
		return fmt.Errorf("worker already running job %s", w.job.id)
	}
	w.mu.Unlock()

	if w.checkpoints == nil {
		return fmt.Errorf("resume job %s: no checkpoint store configured", payload.JobID)
	}
	record, err := w.checkpoints.Latest(context.Background(), payload.JobID)
	if err != nil {
		return fmt.Errorf("load checkpoint for job %s: %w", payload.JobID, err)
	}
	if record == nil {
		return fmt.Errorf("resume job %s: no checkpoint found", payload.JobID)
	}
	state, err := graph.UnmarshalState(record.Blob)
	if err != nil {
		return fmt.Errorf("unmarshal checkpoint for job %s: %w", payload.JobID, err)
	}

	if payload.FeedbackText != "" {
		state.Messages = append(state.Messages, graph.Message{Role: "user", Content: payload.FeedbackText})
	}
	state.PendingReview = false
	if state.FreezeNode != "" {
		state.Node = state.FreezeNode
	}
	state.FreezeNode = ""

	ws := workspace.Open(fmt.Sprintf("%s/%s", w.workspaceRoot, payload.JobID))
	if payload.FeedbackText != "" {
		if err := ws.Append("feedback.md", []byte("\n"+payload.FeedbackText+"\n")); err != nil {
			return fmt.Errorf("record feedback for job %s: %w", payload.JobID, err)
		}
	}

	// Resume never carries a resolved config of its own: the worker was
	// re-assigned by the orchestrator, which always calls Start first for a
	// fresh job. A bare resume (e.g. operator-triggered retry after a crash
	// with no orchestrator round-trip) reconstructs config from defaults
	// only, since nothing richer survives a checkpoint.
	cfg, err := config.Resolve(nil, nil, nil, nil)
	if err != nil {
		return fmt.Errorf("build default config for resumed job %s: %w", payload.JobID, err)
	}

	return w.launch(payload.JobID, cfg, ws, state, nil)
}

// launch wires a job's collaborators from its resolved config and starts
// driving it through the phase graph in a background goroutine, returning
// once the run has been accepted (not once it completes).
func (w *Worker) launch(jobID string, cfg *config.Config, ws *workspace.Workspace, state *graph.State, datasources []datasource.Datasource) error {
	todos := todo.NewManager(ws.Root())
	signal := &tool.PhaseSignal{}

	registry, err := buildRegistry(ws, todos, signal, datasources)
	if err != nil {
		return fmt.Errorf("build tool registry for job %s: %w", jobID, err)
	}
	dispatcher := tool.NewDispatcher(registry)

	provider, err := w.llmFactory(cfg.LLM)
	if err != nil {
		return fmt.Errorf("build LLM provider for job %s: %w", jobID, err)
	}

	thresholds := contextmgr.Thresholds{
		KeepRecentToolResults:        cfg.Phase.KeepRecentToolResults,
		MaxToolResultLength:          cfg.Phase.MaxToolResultLength,
		CompactionThresholdTokens:    cfg.Phase.CompactionThresholdTokens,
		SummarizationThresholdTokens: cfg.Phase.SummarizationThresholdTokens,
		SummarizeKeepRecentMessages:  cfg.Phase.SummarizeKeepRecentMessages,
	}
	ctxmgr, err := contextmgr.NewManager(cfg.LLM.Model, thresholds)
	if err != nil {
		return fmt.Errorf("build context manager for job %s: %w", jobID, err)
	}

	g := graph.New(graph.Deps{
		LLM:            provider,
		Dispatcher:     dispatcher,
		Tools:          registry,
		ToolConfig:     cfg,
		Workspace:      ws,
		Todos:          todos,
		Checkpoints:    w.checkpoints,
		Signal:         signal,
		ContextManager: ctxmgr,
		Phase:          cfg.Phase,
		Autonomy:       cfg.Autonomy,
	})

	ctx, cancel := context.WithCancel(context.Background())
	rj := &runningJob{id: jobID, workspace: ws, checkpoint: w.checkpoints, cancel: cancel, phase: string(state.PhaseType), phaseNum: state.PhaseNumber}

	w.mu.Lock()
	w.job = rj
	w.mu.Unlock()

	go w.run(ctx, g, state, rj)
	go w.heartbeatLoop(rj)
	return nil
}

// run drives the graph to completion, freeze, cancellation, or failure and
// reports the outcome to the orchestrator, then releases the worker's slot.
func (w *Worker) run(ctx context.Context, g *graph.Graph, state *graph.State, rj *runningJob) {
	finalState, err := g.Run(ctx, state)
	w.updateProgress(rj, finalState)

	callbackCtx := context.Background()
	switch {
	case err == nil:
		if w.client != nil {
			_ = w.client.PostComplete(callbackCtx, rj.id)
		}
	default:
		var frozen *graph.Frozen
		if asFrozen, ok := err.(*graph.Frozen); ok {
			frozen = asFrozen
		}
		if frozen != nil {
			if w.client != nil {
				_ = w.client.PostFreeze(callbackCtx, rj.id)
			}
		} else if ctx.Err() != nil {
			// An operator-requested /cancel already moved the job to
			// cancelled synchronously on the orchestrator side; nothing
			// further to report here.
			w.mu.Lock()
			wasCancelled := rj.cancelled
			w.mu.Unlock()
			if !wasCancelled && w.client != nil {
				_ = w.client.PostFailed(callbackCtx, rj.id, "worker context cancelled unexpectedly")
			}
		} else {
			if w.client != nil {
				_ = w.client.PostFailed(callbackCtx, rj.id, err.Error())
			}
		}
	}

	w.mu.Lock()
	w.job = nil
	w.mu.Unlock()
}

func (w *Worker) updateProgress(rj *runningJob, state *graph.State) {
	if state == nil {
		return
	}
	w.mu.Lock()
	rj.phase = string(state.PhaseType)
	rj.phaseNum = state.PhaseNumber
	rj.iterations = state.IterationCount
	w.mu.Unlock()
}

func (w *Worker) heartbeatLoop(rj *runningJob) {
	ticker := time.NewTicker(w.heartbeat)
	defer ticker.Stop()
	for range ticker.C {
		w.mu.Lock()
		stillRunning := w.job == rj
		w.mu.Unlock()
		if !stillRunning {
			return
		}
		if w.client == nil {
			continue
		}
		jobID, phase, phaseNum, iterations, tokens, ok := w.Status()
		if !ok {
			return
		}
		_ = w.client.PostStatus(context.Background(), orchestrator.StatusCallback{
			JobID: jobID, Phase: phase, PhaseNumber: phaseNum, IterationCount: iterations, Tokens: tokens,
		})
	}
}

// Cancel cooperatively stops the running job, if any, by cancelling its
// context; the graph exits at the next node boundary, leaving the last
// checkpoint authoritative.
func (w *Worker) Cancel(jobID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.job == nil || w.job.id != jobID {
		return fmt.Errorf("job %s is not running on this worker", jobID)
	}
	w.job.cancelled = true
	w.job.cancel()
	return nil
}
