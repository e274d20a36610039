package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/loomwork/loom/pkg/orchestrator"
)

// HTTPOrchestratorClient implements OrchestratorClient by POSTing JSON
// callbacks to the orchestrator's /callbacks/* surface.
type HTTPOrchestratorClient struct {
	baseURL string
	hc      *http.Client
}

func NewHTTPOrchestratorClient(baseURL string, timeout time.Duration) *HTTPOrchestratorClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPOrchestratorClient{baseURL: baseURL, hc: &http.Client{Timeout: timeout}}
}

func (c *HTTPOrchestratorClient) post(ctx context.Context, path string, body interface{}) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal callback body for %s: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("build callback request for %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("post callback %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("callback %s returned %d: %s", path, resp.StatusCode, string(msg))
	}
	return nil
}

func (c *HTTPOrchestratorClient) PostStatus(ctx context.Context, cb orchestrator.StatusCallback) error {
	return c.post(ctx, "/callbacks/status", cb)
}

func (c *HTTPOrchestratorClient) PostFreeze(ctx context.Context, jobID string) error {
	return c.post(ctx, "/callbacks/freeze", map[string]string{"job_id": jobID})
}

func (c *HTTPOrchestratorClient) PostComplete(ctx context.Context, jobID string) error {
	return c.post(ctx, "/callbacks/complete", map[string]string{"job_id": jobID})
}

func (c *HTTPOrchestratorClient) PostFailed(ctx context.Context, jobID, reason string) error {
	return c.post(ctx, "/callbacks/failed", map[string]string{"job_id": jobID, "reason": reason})
}
