// Command loomctl is the operator CLI for the orchestrator's HTTP API:
// submit jobs, check status, resume a job paused for review, and manage
// datasources.
//
// Usage:
//
//	loomctl submit "write a migration plan" --autonomy review
//	loomctl status job-123
//	loomctl resume job-123 --approve
//	loomctl datasource add --type postgresql --name warehouse --url "postgres://..."
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/loomwork/loom/pkg/config"
	"github.com/loomwork/loom/pkg/datasource"
	"github.com/loomwork/loom/pkg/orchestrator"
)

// CLI defines the loomctl command-line interface.
type CLI struct {
	Addr string `help:"Base URL of the orchestrator's HTTP API." default:"http://localhost:8090"`

	Submit     SubmitCmd     `cmd:"" help:"Submit a new job."`
	Status     StatusCmd     `cmd:"" help:"Show a job's current status."`
	List       ListCmd       `cmd:"" help:"List jobs, optionally filtered by status."`
	Cancel     CancelCmd     `cmd:"" help:"Cancel a running or pending job."`
	Resume     ResumeCmd     `cmd:"" help:"Approve or reject a job paused for review."`
	Datasource DatasourceCmd `cmd:"" help:"Manage datasources available to jobs."`
}

// SubmitCmd submits a new job.
type SubmitCmd struct {
	Description   string   `arg:"" help:"What the job should accomplish."`
	Expert        string   `help:"Expert ID selecting a pre-configured behavior layer."`
	Autonomy      string   `help:"Autonomy level (full, review, partial, guided, dependent)."`
	Datasources   []string `name:"datasource" help:"Datasource ID to attach (repeatable)."`
	Uploads       []string `help:"Paths to seed into the job's workspace."`
}

func (c *SubmitCmd) Run(cli *CLI) error {
	client := newAPIClient(cli.Addr)
	req := orchestrator.SubmitRequest{
		Description:   c.Description,
		ExpertID:      c.Expert,
		Autonomy:      config.Autonomy(c.Autonomy),
		DatasourceIDs: c.Datasources,
		Uploads:       c.Uploads,
	}
	job, err := client.submitJob(context.Background(), req)
	if err != nil {
		return err
	}
	fmt.Printf("submitted job %s (status: %s)\n", job.ID, job.Status)
	return nil
}

// StatusCmd shows a job's current status.
type StatusCmd struct {
	JobID string `arg:"" help:"Job ID."`
	JSON  bool   `help:"Print the full job record as JSON."`
}

func (c *StatusCmd) Run(cli *CLI) error {
	client := newAPIClient(cli.Addr)
	job, err := client.getJob(context.Background(), c.JobID)
	if err != nil {
		return err
	}
	if c.JSON {
		return printJSON(job)
	}
	printJobSummary(job)
	return nil
}

// ListCmd lists jobs, optionally filtered by status.
type ListCmd struct {
	Status string `help:"Filter by status (pending, assigned, running, pending_review, completed, failed, cancelled)."`
}

func (c *ListCmd) Run(cli *CLI) error {
	client := newAPIClient(cli.Addr)
	jobs, err := client.listJobs(context.Background(), c.Status)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		fmt.Println("no jobs")
		return nil
	}
	for _, job := range jobs {
		fmt.Printf("%-36s %-16s %-20s phase=%s/%d iter=%d\n",
			job.ID, job.Status, truncate(job.Description, 20), job.Phase, job.PhaseNumber, job.IterationCount)
	}
	return nil
}

// CancelCmd cancels a running or pending job.
type CancelCmd struct {
	JobID string `arg:"" help:"Job ID."`
}

func (c *CancelCmd) Run(cli *CLI) error {
	client := newAPIClient(cli.Addr)
	if err := client.cancelJob(context.Background(), c.JobID); err != nil {
		return err
	}
	fmt.Printf("job %s cancelled\n", c.JobID)
	return nil
}

// ResumeCmd approves or rejects a job paused for review.
type ResumeCmd struct {
	JobID    string `arg:"" help:"Job ID."`
	Approve  bool   `help:"Approve the job's pending work and continue." xor:"decision"`
	Reject   bool   `help:"Reject the job's pending work and cancel it." xor:"decision"`
	Feedback string `help:"Feedback message injected before the job resumes."`
}

func (c *ResumeCmd) Run(cli *CLI) error {
	if !c.Approve && !c.Reject {
		return fmt.Errorf("specify --approve or --reject")
	}
	client := newAPIClient(cli.Addr)
	if err := client.resumeJob(context.Background(), c.JobID, c.Approve, c.Feedback); err != nil {
		return err
	}
	if c.Approve {
		fmt.Printf("job %s resumed\n", c.JobID)
	} else {
		fmt.Printf("job %s rejected and cancelled\n", c.JobID)
	}
	return nil
}

// DatasourceCmd groups datasource management subcommands.
type DatasourceCmd struct {
	Add  DatasourceAddCmd  `cmd:"" help:"Register a new datasource."`
	List DatasourceListCmd `cmd:"" help:"List registered datasources."`
	Rm   DatasourceRmCmd   `cmd:"" help:"Remove a datasource."`
}

// DatasourceAddCmd registers a new datasource.
type DatasourceAddCmd struct {
	Name        string `required:"" help:"Datasource name, referenced by job submissions."`
	Type        string `required:"" help:"Datasource type (postgresql, neo4j, mongodb)."`
	URL         string `name:"url" required:"" help:"Connection URL."`
	Description string `help:"Human-readable description."`
	ReadOnly    bool   `name:"read-only" help:"Restrict tools against this datasource to read-only operations."`
	Scope       string `help:"Visibility scope (global, job-scoped)." default:"global"`
	JobID       string `name:"job-id" help:"Owning job ID, required when --scope job-scoped."`
}

func (c *DatasourceAddCmd) Run(cli *CLI) error {
	client := newAPIClient(cli.Addr)
	ds := datasource.Datasource{
		Name:          c.Name,
		Type:          datasource.Type(c.Type),
		ConnectionURL: c.URL,
		Description:   c.Description,
		ReadOnly:      c.ReadOnly,
		Scope:         datasource.Scope(c.Scope),
		JobID:         c.JobID,
	}
	id, err := client.createDatasource(context.Background(), ds)
	if err != nil {
		return err
	}
	fmt.Printf("created datasource %s\n", id)
	return nil
}

// DatasourceListCmd lists registered datasources.
type DatasourceListCmd struct{}

func (c *DatasourceListCmd) Run(cli *CLI) error {
	client := newAPIClient(cli.Addr)
	datasources, err := client.listDatasources(context.Background())
	if err != nil {
		return err
	}
	if len(datasources) == 0 {
		fmt.Println("no datasources")
		return nil
	}
	for _, ds := range datasources {
		fmt.Printf("%-24s %-12s scope=%-10s read_only=%v\n", ds.Name, ds.Type, ds.Scope, ds.ReadOnly)
	}
	return nil
}

// DatasourceRmCmd removes a datasource.
type DatasourceRmCmd struct {
	ID string `arg:"" help:"Datasource ID."`
}

func (c *DatasourceRmCmd) Run(cli *CLI) error {
	client := newAPIClient(cli.Addr)
	if err := client.deleteDatasource(context.Background(), c.ID); err != nil {
		return err
	}
	fmt.Printf("removed datasource %s\n", c.ID)
	return nil
}

func printJobSummary(job *orchestrator.Job) {
	fmt.Printf("job:        %s\n", job.ID)
	fmt.Printf("status:     %s\n", job.Status)
	fmt.Printf("phase:      %s (#%d)\n", job.Phase, job.PhaseNumber)
	fmt.Printf("iterations: %d\n", job.IterationCount)
	fmt.Printf("tokens:     %d\n", job.TokensUsed)
	if job.WorkerID != "" {
		fmt.Printf("worker:     %s\n", job.WorkerID)
	}
	if job.ErrorMessage != "" {
		fmt.Printf("error:      %s\n", job.ErrorMessage)
	}
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.TrimSpace(s[:n]) + "..."
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("loomctl"),
		kong.Description("Operator CLI for submitting and managing jobs against an orchestrator."),
		kong.UsageOnError(),
	)

	if err := kctx.Run(&cli); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
