package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/loomwork/loom/pkg/checkpoint"
	"github.com/loomwork/loom/pkg/config"
	"github.com/loomwork/loom/pkg/contextmgr"
	"github.com/loomwork/loom/pkg/llms"
	"github.com/loomwork/loom/pkg/tool"
	"github.com/loomwork/loom/pkg/todo"
	"github.com/loomwork/loom/pkg/workspace"
)

// Deps are the collaborators a Graph drives a job through. All fields are
// required except Checkpoints, which may be nil to run without
// checkpointing (tests, dry runs).
type Deps struct {
	LLM            llms.LLMProvider
	Dispatcher     *tool.Dispatcher
	Tools          *tool.Registry
	ToolConfig     tool.EnabledConfig
	Workspace      *workspace.Workspace
	Todos          *todo.Manager
	Checkpoints    checkpoint.Store
	Signal         *tool.PhaseSignal
	ContextManager *contextmgr.Manager
	Phase          config.PhaseSettings
	Autonomy       config.Autonomy
	RetryMaxTries  int
}

// Graph drives one job's State through the nested strategic/tactical loop,
// one node at a time, checkpointing after every successful step.
type Graph struct {
	deps Deps
}

// New builds a Graph over deps.
func New(deps Deps) *Graph {
	if deps.RetryMaxTries <= 0 {
		deps.RetryMaxTries = 5
	}
	return &Graph{deps: deps}
}

// Frozen is returned by Run when the autonomy gate paused the job for human
// review. The worker should persist state (already checkpointed) and
// release its lease; Resume re-enters at state.FreezeNode.
type Frozen struct {
	State *State
}

func (f *Frozen) Error() string {
	return fmt.Sprintf("job %s frozen for review at %s", f.State.JobID, f.State.FreezeNode)
}

// Run advances state one node at a time until it reaches NodeEnd, freezes
// for review, or ctx is cancelled. The error is nil only at NodeEnd; a
// freeze returns the pending_review State together with a *Frozen error.
// The caller is responsible for persisting that disposition to the job
// record.
func (g *Graph) Run(ctx context.Context, state *State) (*State, error) {
	for {
		if err := ctx.Err(); err != nil {
			return state, err
		}

		switch state.Node {
		case NodeInit:
			if err := g.step(ctx, state, g.stepInit); err != nil {
				return state, err
			}
		case NodeProcess:
			if err := g.step(ctx, state, g.stepProcess); err != nil {
				return state, err
			}
		case NodeUpdateTodos:
			if err := g.step(ctx, state, g.stepUpdateTodos); err != nil {
				return state, err
			}
		case NodeCheckTodos:
			if err := g.step(ctx, state, g.stepCheckTodos); err != nil {
				return state, err
			}
		case NodeArchivePhase:
			if err := g.step(ctx, state, g.stepArchivePhase); err != nil {
				return state, err
			}
		case NodeHandleTransition:
			if err := g.step(ctx, state, g.stepHandleTransition); err != nil {
				return state, err
			}
			if state.PendingReview {
				return state, &Frozen{State: state}
			}
		case NodeCreateNextTodos:
			if err := g.step(ctx, state, g.stepCreateNextTodos); err != nil {
				return state, err
			}
		case NodeEnd:
			return state, nil
		default:
			return state, fmt.Errorf("unknown graph node %q", state.Node)
		}
	}
}

// step runs mutate against a working copy of state and only commits the
// result — including advancing state.Node — once the checkpoint for it has
// been durably saved. A checkpoint write failure leaves state untouched.
func (g *Graph) step(ctx context.Context, state *State, mutate func(context.Context, *State) error) error {
	working := state.clone()
	if err := mutate(ctx, working); err != nil {
		return err
	}
	working.StepIndex++

	if g.deps.Checkpoints != nil {
		blob, err := working.Marshal()
		if err != nil {
			return fmt.Errorf("marshal checkpoint state: %w", err)
		}
		if err := g.deps.Checkpoints.Save(ctx, working.JobID, working.StepIndex, blob); err != nil {
			return fmt.Errorf("persist checkpoint: %w", err)
		}
	}

	*state = *working
	return nil
}

func (g *Graph) stepInit(ctx context.Context, state *State) error {
	state.PhaseStartIteration = state.IterationCount
	state.Node = NodeProcess
	return nil
}

func (g *Graph) stepProcess(ctx context.Context, state *State) error {
	state.IterationCount++

	if g.deps.Signal != nil {
		*g.deps.Signal = tool.PhaseSignal{}
	}

	list, err := g.deps.Todos.Load()
	if err != nil {
		return fmt.Errorf("load todos: %w", err)
	}
	planMD, workspaceMD := g.planAndWorkspaceNotes(state)
	overlay := contextmgr.BuildLayerTwoOverlay(list.FormatForDisplay(), planMD, workspaceMD)

	messages := toLLMMessages(state.Messages)
	messages = g.deps.ContextManager.CompactToolResults(messages)
	messages = g.deps.ContextManager.Summarize(ctx, messages, g.summarizer())

	visible := g.deps.Tools.Visible(g.deps.ToolConfig, tool.Phase(state.PhaseType))
	defs := tool.Definitions(visible)
	prompt := g.deps.ContextManager.Assemble(systemPromptFor(state.PhaseType), overlay, "", messages)

	text, calls, _, _, err := g.generateWithRetry(ctx, prompt, defs)
	if err != nil {
		return fmt.Errorf("llm call: %w", err)
	}

	assistant := Message{Role: "assistant", Content: text, ToolCalls: fromLLMToolCalls(calls)}
	state.Messages = append(state.Messages, assistant)

	if len(calls) > 0 {
		results := g.deps.Dispatcher.DispatchAll(ctx, calls)
		for _, r := range results {
			msg := fromLLMMessage(r)
			msg.Content = g.deps.ContextManager.TruncateToolResult(msg.Content)
			state.Messages = append(state.Messages, msg)
		}
	}

	state.Node = NodeUpdateTodos
	return nil
}

func (g *Graph) planAndWorkspaceNotes(state *State) (planMD, workspaceMD string) {
	if state.PhaseType != PhaseStrategic {
		return "", ""
	}
	plan, _ := g.deps.Workspace.Read("plan.md")
	ws, _ := g.deps.Workspace.Read("workspace.md")
	return string(plan), string(ws)
}

func (g *Graph) summarizer() contextmgr.Summarizer {
	return func(ctx context.Context, messages []llms.Message) (string, error) {
		prompt := append([]llms.Message{{Role: "system", Content: summarizationPrompt}}, messages...)
		text, _, _, _, err := g.deps.LLM.Generate(ctx, prompt, nil)
		return text, err
	}
}

func (g *Graph) stepUpdateTodos(ctx context.Context, state *State) error {
	state.Node = NodeCheckTodos
	return nil
}

func (g *Graph) stepCheckTodos(ctx context.Context, state *State) error {
	if state.PhaseType == PhaseStrategic {
		if g.deps.Signal != nil {
			if g.deps.Signal.JobCompleteCalled {
				state.JobCompleteCalled = true
				state.PhaseComplete = true
				state.Summary = g.deps.Signal.Summary
				state.Deliverables = g.deps.Signal.Deliverables
				state.Confidence = g.deps.Signal.Confidence
				state.Notes = g.deps.Signal.Notes
			} else if g.deps.Signal.PhaseComplete {
				state.PhaseComplete = true
			}
		}
	} else {
		list, err := g.deps.Todos.Load()
		if err != nil {
			return fmt.Errorf("load todos: %w", err)
		}
		if list.AllTerminal() {
			state.PhaseComplete = true
		}
		if limit := g.deps.Phase.SprintLimit; limit > 0 && state.IterationCount-state.PhaseStartIteration >= limit {
			state.PhaseComplete = true
			state.SprintLimitReached = true
		}
	}

	if max := g.deps.Phase.MaxIterations; max > 0 && state.IterationCount >= max {
		state.PhaseComplete = true
		state.ForceStrategicNext = true
		if state.Notes == "" {
			state.Notes = "sprint exhausted: hit the iteration ceiling, forcing a strategic phase"
		}
	}

	if state.PhaseComplete {
		state.Node = NodeArchivePhase
	} else {
		state.Node = NodeProcess
	}
	return nil
}

func (g *Graph) stepArchivePhase(ctx context.Context, state *State) error {
	retro := state.Notes
	if retro == "" {
		retro = fmt.Sprintf("Phase %d (%s) completed at %s.\n", state.PhaseNumber, state.PhaseType, time.Now().UTC().Format(time.RFC3339))
	}
	if err := g.deps.Todos.Archive(state.PhaseNumber, string(state.PhaseType), retro); err != nil {
		return fmt.Errorf("archive phase %d: %w", state.PhaseNumber, err)
	}
	state.Node = NodeHandleTransition
	return nil
}

func (g *Graph) stepHandleTransition(ctx context.Context, state *State) error {
	if state.JobCompleteCalled {
		if ShouldFreeze(g.deps.Autonomy, FreezeJobComplete) {
			state.PendingReview = true
			state.FreezeNode = NodeHandleTransition
			return nil
		}
		state.GoalAchieved = true
		state.Node = NodeEnd
		return nil
	}

	var point FreezePoint
	switch {
	case state.PhaseType == PhaseStrategic && state.PhaseNumber == 1:
		point = FreezeFirstStrategic
	case state.PhaseType == PhaseStrategic:
		point = FreezeLaterStrategic
	default:
		point = FreezeTactical
	}
	if ShouldFreeze(g.deps.Autonomy, point) {
		state.PendingReview = true
		state.FreezeNode = NodeHandleTransition
		return nil
	}

	if state.PhaseType == PhaseStrategic && g.deps.Signal != nil && len(g.deps.Signal.NewTodos) > 0 {
		if err := g.deps.Todos.Save(&todo.List{Todos: g.deps.Signal.NewTodos}); err != nil {
			return fmt.Errorf("save next phase todos: %w", err)
		}
	}

	next := state.PhaseType.next()
	if state.ForceStrategicNext {
		next = PhaseStrategic
	}

	state.PhaseType = next
	state.PhaseNumber++
	state.PhaseComplete = false
	state.SprintLimitReached = false
	state.ForceStrategicNext = false
	state.PhaseStartIteration = state.IterationCount
	state.Messages = nil

	if next == PhaseStrategic {
		state.Node = NodeCreateNextTodos
	} else {
		state.Node = NodeProcess
	}
	return nil
}

func (g *Graph) stepCreateNextTodos(ctx context.Context, state *State) error {
	bootstrap := todo.BootstrapSet(time.Now().UTC())
	if err := g.deps.Todos.Save(&todo.List{Todos: bootstrap}); err != nil {
		return fmt.Errorf("seed strategic phase todos: %w", err)
	}
	state.Node = NodeProcess
	return nil
}

type genResult struct {
	text     string
	calls    []llms.ToolCall
	tokens   int
	thinking *llms.ThinkingBlock
}

// generateWithRetry wraps the provider call with exponential backoff up to
// RetryMaxTries attempts. Tool errors never reach here — only the LLM
// round-trip itself is retried; exhausting retries fails the iteration
// while leaving the last successful checkpoint in place.
func (g *Graph) generateWithRetry(ctx context.Context, messages []llms.Message, defs []llms.ToolDefinition) (string, []llms.ToolCall, int, *llms.ThinkingBlock, error) {
	op := func() (genResult, error) {
		text, calls, tokens, thinking, err := g.deps.LLM.Generate(ctx, messages, defs)
		if err != nil {
			return genResult{}, err
		}
		return genResult{text: text, calls: calls, tokens: tokens, thinking: thinking}, nil
	}

	res, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(uint(g.deps.RetryMaxTries)),
	)
	if err != nil {
		return "", nil, 0, nil, err
	}
	return res.text, res.calls, res.tokens, res.thinking, nil
}
