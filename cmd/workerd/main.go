// Command workerd runs a single-job worker: it accepts one job at a time
// from an orchestrator over HTTP, drives it through the phase graph, and
// reports status, freeze, completion, and failure back via callbacks.
//
// Usage:
//
//	workerd serve --addr :9101 --self-addr http://localhost:9101 --orchestrator-addr http://localhost:8090
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"

	"github.com/loomwork/loom/internal/cmdutil"
	"github.com/loomwork/loom/pkg/checkpoint"
	"github.com/loomwork/loom/pkg/observability"
	"github.com/loomwork/loom/pkg/worker"
)

// CLI defines the workerd command-line interface.
type CLI struct {
	Version VersionCmd `cmd:"" help:"Show version information."`
	Serve   ServeCmd   `cmd:"" help:"Start the worker daemon."`

	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFile   string `help:"Log file path (empty = stderr)."`
	LogFormat string `help:"Log format (simple, verbose, or custom)." default:"simple"`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}
	fmt.Printf("workerd version %s\n", version)
	return nil
}

// ServeCmd starts the worker daemon.
type ServeCmd struct {
	ID   string `help:"Worker ID, used by the orchestrator to address this process. Defaults to a generated UUID." placeholder:"ID"`
	Addr string `help:"HTTP listen address." default:":9101"`

	// SelfAddr is how the orchestrator reaches this worker; it must be
	// resolvable from the orchestrator's network, which --addr (a bind
	// address like ":9101") usually is not.
	SelfAddr         string        `name:"self-addr" help:"Address the orchestrator should use to reach this worker (e.g. http://worker-1:9101)." required:""`
	OrchestratorAddr string        `name:"orchestrator-addr" help:"Base URL of the orchestrator's HTTP surface." required:""`
	WorkspaceRoot    string        `name:"workspace-root" help:"Directory under which each job's workspace is created." default:"./workspaces" type:"path"`
	Heartbeat        time.Duration `help:"Interval between status callbacks while a job is running." default:"30s"`

	CheckpointStore string `name:"checkpoint-store" help:"Checkpoint store backend (memory, sqlite, postgres, mysql)." default:"memory" enum:"memory,sqlite,postgres,mysql"`
	DSN             string `help:"Checkpoint store data source name."`

	Metrics    bool   `help:"Expose Prometheus metrics at /metrics." default:"true" negatable:""`
	Tracing    bool   `help:"Enable OTLP trace export." default:"false"`
	OTLPAddr   string `name:"otlp-addr" help:"OTLP gRPC collector endpoint." default:"localhost:4317"`
	DebugSpans bool   `name:"debug-spans" help:"Capture recent spans in memory, served at /debug/spans." default:"false"`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	id := c.ID
	if id == "" {
		id = uuid.NewString()
	}

	checkpoints, err := c.buildCheckpointStore()
	if err != nil {
		return fmt.Errorf("build checkpoint store: %w", err)
	}

	orchClient := worker.NewHTTPOrchestratorClient(c.OrchestratorAddr, 10*time.Second)
	w := worker.New(worker.Options{
		ID:            id,
		Client:        orchClient,
		Checkpoints:   checkpoints,
		WorkspaceRoot: c.WorkspaceRoot,
		Heartbeat:     c.Heartbeat,
	})

	if err := registerWithOrchestrator(ctx, c.OrchestratorAddr, id, c.SelfAddr); err != nil {
		return fmt.Errorf("register with orchestrator: %w", err)
	}
	go c.runWorkerHeartbeat(ctx, w, id)

	if _, err := observability.InitGlobalTracer(ctx, observability.TracerConfig{
		Enabled:           c.Tracing,
		EndpointURL:       c.OTLPAddr,
		SamplingRate:      1.0,
		ServiceName:       "workerd",
		CaptureDebugSpans: c.DebugSpans,
	}); err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/", worker.NewRouter(w))
	if c.Metrics {
		metricsHandler, err := observability.InitPrometheusMetrics("workerd")
		if err != nil {
			return fmt.Errorf("init metrics: %w", err)
		}
		mux.Handle("/metrics", metricsHandler)
	}
	if c.DebugSpans {
		mux.Handle("/debug/spans", observability.DebugSpansHandler())
	}

	srv := &http.Server{
		Addr:    c.Addr,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("workerd listening", "id", id, "addr", c.Addr, "self_addr", c.SelfAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		slog.Info("shutting down")
	case err := <-errCh:
		slog.Error("server error", "error", err)
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}

func (c *ServeCmd) buildCheckpointStore() (checkpoint.Store, error) {
	switch c.CheckpointStore {
	case "memory", "":
		return checkpoint.NewMemoryStore(), nil
	case "sqlite":
		if c.DSN == "" {
			return nil, fmt.Errorf("--dsn is required for --checkpoint-store sqlite")
		}
		return checkpoint.Open("sqlite3", "sqlite", c.DSN)
	case "postgres":
		if c.DSN == "" {
			return nil, fmt.Errorf("--dsn is required for --checkpoint-store postgres")
		}
		return checkpoint.Open("postgres", "postgres", c.DSN)
	case "mysql":
		if c.DSN == "" {
			return nil, fmt.Errorf("--dsn is required for --checkpoint-store mysql")
		}
		return checkpoint.Open("mysql", "mysql", c.DSN)
	default:
		return nil, fmt.Errorf("unknown checkpoint store backend %q", c.CheckpointStore)
	}
}

// runWorkerHeartbeat periodically reports this worker's busy state to the
// orchestrator, independent of the per-job status callbacks Worker already
// sends via OrchestratorClient — this is pool bookkeeping, not job progress.
func (c *ServeCmd) runWorkerHeartbeat(ctx context.Context, w *worker.Worker, id string) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := postWorkerHeartbeat(ctx, c.OrchestratorAddr, id, w.Busy()); err != nil {
				slog.Warn("worker heartbeat failed", "error", err)
			}
		}
	}
}

func registerWithOrchestrator(ctx context.Context, orchestratorAddr, id, selfAddr string) error {
	body, err := json.Marshal(map[string]string{"addr": selfAddr})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, orchestratorAddr+"/workers/"+id+"/register", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := (&http.Client{Timeout: 10 * time.Second}).Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("orchestrator returned %d", resp.StatusCode)
	}
	return nil
}

func postWorkerHeartbeat(ctx context.Context, orchestratorAddr, id string, busy bool) error {
	body, err := json.Marshal(map[string]bool{"busy": busy})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, orchestratorAddr+"/workers/"+id+"/heartbeat", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := (&http.Client{Timeout: 10 * time.Second}).Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("orchestrator returned %d", resp.StatusCode)
	}
	return nil
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("workerd"),
		kong.Description("Runs one job at a time through the phase graph on behalf of an orchestrator."),
		kong.UsageOnError(),
	)

	cleanup, err := cmdutil.InitLogger(cli.LogLevel, cli.LogFile, cli.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if cleanup != nil {
		defer cleanup()
	}

	if err := kctx.Run(&cli); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
