package workspace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGitOperationsRequireGitEnabled(t *testing.T) {
	w := Open(t.TempDir())
	assert.False(t, w.GitEnabled())

	_, err := w.GitLog(context.Background(), 10)
	assert.Error(t, err)

	_, err = w.GitDiff(context.Background())
	assert.Error(t, err)

	_, err = w.GitStatus(context.Background())
	assert.Error(t, err)

	assert.NoError(t, w.StartPhaseBranch(context.Background(), 1, "tactical"), "no-op when git isn't enabled")
	assert.NoError(t, w.EndPhase(context.Background(), "retro", true), "no-op when git isn't enabled")
}
