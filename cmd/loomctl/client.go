package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/loomwork/loom/pkg/datasource"
	"github.com/loomwork/loom/pkg/orchestrator"
)

// apiClient is a thin wrapper over the orchestrator's HTTP surface for the
// CLI commands below — no retries or connection pooling tuning, since each
// invocation is a single short-lived request.
type apiClient struct {
	baseURL string
	hc      *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{baseURL: baseURL, hc: &http.Client{Timeout: 30 * time.Second}}
}

func (c *apiClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %s returned %d: %s", method, path, resp.StatusCode, string(msg))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *apiClient) submitJob(ctx context.Context, req orchestrator.SubmitRequest) (*orchestrator.Job, error) {
	var job orchestrator.Job
	if err := c.do(ctx, http.MethodPost, "/jobs", req, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (c *apiClient) getJob(ctx context.Context, id string) (*orchestrator.Job, error) {
	var job orchestrator.Job
	if err := c.do(ctx, http.MethodGet, "/jobs/"+url.PathEscape(id), nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (c *apiClient) listJobs(ctx context.Context, status string) ([]*orchestrator.Job, error) {
	path := "/jobs"
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}
	var jobs []*orchestrator.Job
	if err := c.do(ctx, http.MethodGet, path, nil, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

func (c *apiClient) cancelJob(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/jobs/"+url.PathEscape(id)+"/cancel", nil, nil)
}

func (c *apiClient) resumeJob(ctx context.Context, id string, approved bool, feedback string) error {
	return c.do(ctx, http.MethodPost, "/jobs/"+url.PathEscape(id)+"/resume", map[string]interface{}{
		"approved": approved,
		"feedback": feedback,
	}, nil)
}

func (c *apiClient) createDatasource(ctx context.Context, ds datasource.Datasource) (string, error) {
	var resp struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/datasources", ds, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *apiClient) listDatasources(ctx context.Context) ([]datasource.Datasource, error) {
	var datasources []datasource.Datasource
	if err := c.do(ctx, http.MethodGet, "/datasources", nil, &datasources); err != nil {
		return nil, err
	}
	return datasources, nil
}

func (c *apiClient) deleteDatasource(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/datasources/"+url.PathEscape(id), nil, nil)
}
