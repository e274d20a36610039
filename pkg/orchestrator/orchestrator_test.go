package orchestrator

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomwork/loom/pkg/config"
	"github.com/loomwork/loom/pkg/datasource"
)

// fakeWorkerClient records every call it receives instead of talking to a
// real worker process.
type fakeWorkerClient struct {
	mu      sync.Mutex
	starts  []JobStartPayload
	resumes []JobResumePayload
	cancels []string
	failNext bool
}

func (f *fakeWorkerClient) Start(ctx context.Context, addr string, payload JobStartPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext {
		f.failNext = false
		return assert.AnError
	}
	f.starts = append(f.starts, payload)
	return nil
}

func (f *fakeWorkerClient) Resume(ctx context.Context, addr string, payload JobResumePayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resumes = append(f.resumes, payload)
	return nil
}

func (f *fakeWorkerClient) Cancel(ctx context.Context, addr string, jobID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels = append(f.cancels, jobID)
	return nil
}

func newTestOrchestrator() (*Orchestrator, *fakeWorkerClient) {
	client := &fakeWorkerClient{}
	o := New(NewMemoryStore(), NewDatasourceStore(), client, map[string]interface{}{}, map[string]map[string]interface{}{})
	return o, client
}

func TestSubmitRejectsBlankDescription(t *testing.T) {
	o, _ := newTestOrchestrator()
	_, err := o.Submit(context.Background(), SubmitRequest{})
	require.Error(t, err)
}

func TestSubmitRejectsInvalidAutonomy(t *testing.T) {
	o, _ := newTestOrchestrator()
	_, err := o.Submit(context.Background(), SubmitRequest{Description: "do a thing", Autonomy: "bogus"})
	require.Error(t, err)
}

func TestAssignOnceNoWorkerLeavesJobPending(t *testing.T) {
	o, _ := newTestOrchestrator()
	job, err := o.Submit(context.Background(), SubmitRequest{Description: "research something"})
	require.NoError(t, err)

	assigned, err := o.AssignOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, assigned)

	got, err := o.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
}

func TestAssignOnceStartsFreshJob(t *testing.T) {
	o, client := newTestOrchestrator()
	o.RegisterWorker("w1", "http://worker-1:9000")

	job, err := o.Submit(context.Background(), SubmitRequest{Description: "research something", Autonomy: config.AutonomyFull})
	require.NoError(t, err)

	assigned, err := o.AssignOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, assigned)

	got, err := o.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, got.Status)
	assert.Equal(t, "w1", got.WorkerID)
	assert.NotNil(t, got.StartedAt)

	require.Len(t, client.starts, 1)
	assert.Equal(t, job.ID, client.starts[0].JobID)
	assert.Empty(t, client.resumes)
}

func TestAssignOnceReentersViaResumeAfterFreeze(t *testing.T) {
	o, client := newTestOrchestrator()
	o.RegisterWorker("w1", "http://worker-1:9000")

	job, err := o.Submit(context.Background(), SubmitRequest{Description: "research something"})
	require.NoError(t, err)

	assigned, err := o.AssignOnce(context.Background())
	require.NoError(t, err)
	require.True(t, assigned)
	require.Len(t, client.starts, 1)

	require.NoError(t, o.HandleFreeze(context.Background(), job.ID))
	got, err := o.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPendingReview, got.Status)

	require.NoError(t, o.Resume(context.Background(), job.ID, true, "looks good, keep going"))
	got, err = o.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, "looks good, keep going", got.PendingFeedback)

	assigned, err = o.AssignOnce(context.Background())
	require.NoError(t, err)
	require.True(t, assigned)

	require.Len(t, client.resumes, 1)
	assert.Equal(t, job.ID, client.resumes[0].JobID)
	assert.Equal(t, "looks good, keep going", client.resumes[0].FeedbackText)

	got, err = o.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Empty(t, got.PendingFeedback)
}

func TestResumeRejectedCancelsJob(t *testing.T) {
	o, _ := newTestOrchestrator()
	o.RegisterWorker("w1", "http://worker-1:9000")

	job, err := o.Submit(context.Background(), SubmitRequest{Description: "research something"})
	require.NoError(t, err)
	_, err = o.AssignOnce(context.Background())
	require.NoError(t, err)
	require.NoError(t, o.HandleFreeze(context.Background(), job.ID))

	require.NoError(t, o.Resume(context.Background(), job.ID, false, ""))
	got, err := o.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)
}

func TestResumeRejectsNonPendingReviewJob(t *testing.T) {
	o, _ := newTestOrchestrator()
	job, err := o.Submit(context.Background(), SubmitRequest{Description: "research something"})
	require.NoError(t, err)
	err = o.Resume(context.Background(), job.ID, true, "")
	require.Error(t, err)
}

func TestCancelRunningJobNotifiesWorker(t *testing.T) {
	o, client := newTestOrchestrator()
	o.RegisterWorker("w1", "http://worker-1:9000")

	job, err := o.Submit(context.Background(), SubmitRequest{Description: "research something"})
	require.NoError(t, err)
	_, err = o.AssignOnce(context.Background())
	require.NoError(t, err)

	require.NoError(t, o.Cancel(context.Background(), job.ID))
	assert.Equal(t, []string{job.ID}, client.cancels)

	got, err := o.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)
}

func TestCancelTerminalJobIsNoop(t *testing.T) {
	o, client := newTestOrchestrator()
	job, err := o.Submit(context.Background(), SubmitRequest{Description: "research something"})
	require.NoError(t, err)
	require.NoError(t, o.HandleComplete(context.Background(), job.ID))

	require.NoError(t, o.Cancel(context.Background(), job.ID))
	assert.Empty(t, client.cancels)
}

func TestHandleStatusCallbackUpdatesProgress(t *testing.T) {
	o, _ := newTestOrchestrator()
	job, err := o.Submit(context.Background(), SubmitRequest{Description: "research something"})
	require.NoError(t, err)

	err = o.HandleStatusCallback(context.Background(), StatusCallback{
		JobID: job.ID, Phase: "tactical", PhaseNumber: 2, IterationCount: 5, Tokens: 1200,
	})
	require.NoError(t, err)

	got, err := o.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, "tactical", got.Phase)
	assert.Equal(t, 2, got.PhaseNumber)
	assert.Equal(t, 5, got.IterationCount)
	assert.Equal(t, 1200, got.TokensUsed)
	assert.Equal(t, StatusPending, got.Status) // status callbacks never set terminal/lifecycle state
}

func TestDatasourceCRUD(t *testing.T) {
	s := NewDatasourceStore()
	id, err := s.Create(datasource.Datasource{Type: datasource.TypePostgreSQL, Name: "primary", Scope: datasource.ScopeGlobal})
	require.NoError(t, err)

	ds, ok := s.Get(id)
	require.True(t, ok)
	assert.Equal(t, "primary", ds.Name)

	require.NoError(t, s.Update(id, datasource.Datasource{Type: datasource.TypePostgreSQL, Name: "primary-renamed", Scope: datasource.ScopeGlobal}))
	ds, ok = s.Get(id)
	require.True(t, ok)
	assert.Equal(t, "primary-renamed", ds.Name)

	require.NoError(t, s.Delete(id))
	_, ok = s.Get(id)
	assert.False(t, ok)
}

func TestDatasourceRequiresJobIDWhenJobScoped(t *testing.T) {
	s := NewDatasourceStore()
	_, err := s.Create(datasource.Datasource{Type: datasource.TypeNeo4j, Name: "scratch", Scope: datasource.ScopeJobScope})
	require.Error(t, err)
}
