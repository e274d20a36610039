package workspace

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// gitRepo wraps the system git binary, the same subprocess-execution
// pattern a shell command-execution tool uses for arbitrary commands,
// scoped here to a fixed set of git subcommands.
type gitRepo struct {
	dir string
}

func initGitRepo(dir string) (*gitRepo, error) {
	repo := &gitRepo{dir: dir}
	if _, err := repo.run(context.Background(), "init"); err != nil {
		return nil, err
	}
	if _, err := repo.run(context.Background(), "checkout", "-b", "main"); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *gitRepo) run(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.dir
	output, err := cmd.CombinedOutput()
	if err != nil {
		return string(output), fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, output)
	}
	return string(output), nil
}

// GitLog returns the commit log, read-only history exposed to the agent.
func (w *Workspace) GitLog(ctx context.Context, n int) (string, error) {
	if w.git == nil {
		return "", fmt.Errorf("git is not enabled for this workspace")
	}
	return w.git.run(ctx, "log", "--oneline", fmt.Sprintf("-%d", n))
}

// GitDiff returns the working-tree diff.
func (w *Workspace) GitDiff(ctx context.Context) (string, error) {
	if w.git == nil {
		return "", fmt.Errorf("git is not enabled for this workspace")
	}
	return w.git.run(ctx, "diff")
}

// GitShow returns the contents of a single commit.
func (w *Workspace) GitShow(ctx context.Context, ref string) (string, error) {
	if w.git == nil {
		return "", fmt.Errorf("git is not enabled for this workspace")
	}
	return w.git.run(ctx, "show", ref)
}

// GitStatus returns porcelain status output.
func (w *Workspace) GitStatus(ctx context.Context) (string, error) {
	if w.git == nil {
		return "", fmt.Errorf("git is not enabled for this workspace")
	}
	return w.git.run(ctx, "status", "--porcelain")
}

// GitEnabled reports whether this workspace has git coupling active.
func (w *Workspace) GitEnabled() bool {
	return w.git != nil
}

// StartPhaseBranch creates and checks out phase-{N}-{type} from main.
func (w *Workspace) StartPhaseBranch(ctx context.Context, phaseNumber int, phaseType string) error {
	if w.git == nil {
		return nil
	}
	branch := fmt.Sprintf("phase-%d-%s", phaseNumber, phaseType)
	_, err := w.git.run(ctx, "checkout", "-b", branch, "main")
	return err
}

// EndPhase commits all changes with a retrospective message, then either
// merges to main directly (autoMerge true, matching low-autonomy/full
// levels) or leaves the branch for review.
func (w *Workspace) EndPhase(ctx context.Context, retrospective string, autoMerge bool) error {
	if w.git == nil {
		return nil
	}
	if _, err := w.git.run(ctx, "add", "-A"); err != nil {
		return err
	}
	if _, err := w.git.run(ctx, "commit", "-m", retrospective, "--allow-empty"); err != nil {
		return err
	}
	if !autoMerge {
		return nil
	}

	branch, err := w.git.run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return err
	}
	branch = strings.TrimSpace(branch)

	if _, err := w.git.run(ctx, "checkout", "main"); err != nil {
		return err
	}
	_, err = w.git.run(ctx, "merge", "--squash", branch)
	if err != nil {
		return err
	}
	_, err = w.git.run(ctx, "commit", "-m", retrospective, "--allow-empty")
	return err
}
