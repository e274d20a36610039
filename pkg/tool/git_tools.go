package tool

import (
	"context"
	"fmt"

	"github.com/loomwork/loom/pkg/workspace"
)

// git category tools are read-only wrappers around the workspace's git
// coupling: branch-per-phase history is available to the agent, but the
// agent never drives commits or merges directly — those happen as a side
// effect of phase transitions.

type gitLogTool struct{ ws *workspace.Workspace }

func NewGitLogTool(ws *workspace.Workspace) Tool { return gitLogTool{ws} }

func (t gitLogTool) Info() Info {
	return Info{
		Name:        "git_log",
		Description: "Show recent commit history for the workspace.",
		Category:    CategoryGit,
		Phase:       PhaseBoth,
		ReadOnly:    true,
		Parameters: []Parameter{
			{Name: "count", Type: "integer", Description: "Number of commits to show, default 10."},
		},
	}
}

func (t gitLogTool) Execute(ctx context.Context, args map[string]interface{}) (Result, error) {
	n := 10
	if v, ok := args["count"].(float64); ok && v > 0 {
		n = int(v)
	}
	out, err := t.ws.GitLog(ctx, n)
	if err != nil {
		return Result{}, err
	}
	return Result{Success: true, Content: out}, nil
}

type gitDiffTool struct{ ws *workspace.Workspace }

func NewGitDiffTool(ws *workspace.Workspace) Tool { return gitDiffTool{ws} }

func (t gitDiffTool) Info() Info {
	return Info{
		Name:        "git_diff",
		Description: "Show the working-tree diff for the workspace.",
		Category:    CategoryGit,
		Phase:       PhaseBoth,
		ReadOnly:    true,
	}
}

func (t gitDiffTool) Execute(ctx context.Context, args map[string]interface{}) (Result, error) {
	out, err := t.ws.GitDiff(ctx)
	if err != nil {
		return Result{}, err
	}
	return Result{Success: true, Content: out}, nil
}

type gitShowTool struct{ ws *workspace.Workspace }

func NewGitShowTool(ws *workspace.Workspace) Tool { return gitShowTool{ws} }

func (t gitShowTool) Info() Info {
	return Info{
		Name:        "git_show",
		Description: "Show the contents of a single commit.",
		Category:    CategoryGit,
		Phase:       PhaseBoth,
		ReadOnly:    true,
		Parameters: []Parameter{
			{Name: "ref", Type: "string", Required: true, Description: "Commit ref, e.g. HEAD or a short SHA."},
		},
	}
}

func (t gitShowTool) Execute(ctx context.Context, args map[string]interface{}) (Result, error) {
	ref, _ := args["ref"].(string)
	if ref == "" {
		return Result{}, fmt.Errorf("ref is required")
	}
	out, err := t.ws.GitShow(ctx, ref)
	if err != nil {
		return Result{}, err
	}
	return Result{Success: true, Content: out}, nil
}

type gitStatusTool struct{ ws *workspace.Workspace }

func NewGitStatusTool(ws *workspace.Workspace) Tool { return gitStatusTool{ws} }

func (t gitStatusTool) Info() Info {
	return Info{
		Name:        "git_status",
		Description: "Show the working-tree status of the workspace.",
		Category:    CategoryGit,
		Phase:       PhaseBoth,
		ReadOnly:    true,
	}
}

func (t gitStatusTool) Execute(ctx context.Context, args map[string]interface{}) (Result, error) {
	out, err := t.ws.GitStatus(ctx)
	if err != nil {
		return Result{}, err
	}
	return Result{Success: true, Content: out}, nil
}
