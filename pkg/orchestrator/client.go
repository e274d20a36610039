package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPWorkerClient implements WorkerClient by POSTing JSON payloads to a
// worker process's own HTTP surface (/start, /resume, /cancel).
type HTTPWorkerClient struct {
	hc *http.Client
}

// NewHTTPWorkerClient builds a WorkerClient with a bounded per-call timeout;
// callers that need a longer deadline should pass a context with one
// instead of growing this value.
func NewHTTPWorkerClient(timeout time.Duration) *HTTPWorkerClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPWorkerClient{hc: &http.Client{Timeout: timeout}}
}

func (c *HTTPWorkerClient) post(ctx context.Context, url string, body interface{}) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request for %s: %w", url, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("build request for %s: %w", url, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s returned %d: %s", url, resp.StatusCode, string(msg))
	}
	return nil
}

func (c *HTTPWorkerClient) Start(ctx context.Context, workerAddr string, payload JobStartPayload) error {
	return c.post(ctx, workerAddr+"/start", payload)
}

func (c *HTTPWorkerClient) Resume(ctx context.Context, workerAddr string, payload JobResumePayload) error {
	return c.post(ctx, workerAddr+"/resume", payload)
}

func (c *HTTPWorkerClient) Cancel(ctx context.Context, workerAddr string, jobID string) error {
	return c.post(ctx, workerAddr+"/cancel", jobIDRequest{JobID: jobID})
}
