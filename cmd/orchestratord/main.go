// Command orchestratord runs the orchestrator: it owns the jobs table,
// assigns pending jobs to idle workers, and exposes the submission,
// resume/cancel, and datasource-management HTTP surface.
//
// Usage:
//
//	orchestratord serve --store sqlite --dsn ./orchestrator.db
//	orchestratord serve --store postgres --dsn "postgres://..." --addr :8090
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/loomwork/loom/internal/cmdutil"
	"github.com/loomwork/loom/pkg/observability"
	"github.com/loomwork/loom/pkg/orchestrator"
)

// CLI defines the orchestratord command-line interface.
type CLI struct {
	Version VersionCmd `cmd:"" help:"Show version information."`
	Serve   ServeCmd   `cmd:"" help:"Start the orchestrator daemon."`

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
	fmt.Printf("orchestratord version %s\n", version)
	return nil
}

// ServeCmd starts the orchestrator daemon.
type ServeCmd struct {
	Addr string `help:"HTTP listen address." default:":8090"`

	Store string `help:"Job store backend (memory, sqlite, postgres)." default:"memory" enum:"memory,sqlite,postgres"`
	DSN   string `help:"Store data source name (file path for sqlite, connection string for postgres)."`

	DefaultsFile string `name:"defaults-file" help:"Path to defaults.yaml, the base layer of every job's Resolved Config." type:"path"`
	ExpertsDir   string `name:"experts-dir" help:"Directory of per-expert config layers, one <expert_id>.yaml per file." type:"path"`

	AssignInterval  time.Duration `name:"assign-interval" help:"How often to sweep for idle workers to assign pending jobs to." default:"2s"`
	SweepInterval   time.Duration `name:"sweep-interval" help:"How often to check running jobs against the wall-clock timeout." default:"1m"`
	WorkerTimeout   time.Duration `name:"worker-timeout" help:"HTTP timeout for calls to worker processes." default:"10s"`

	Metrics     bool   `help:"Expose Prometheus metrics at /metrics." default:"true" negatable:""`
	Tracing     bool   `help:"Enable OTLP trace export." default:"false"`
	OTLPAddr    string `name:"otlp-addr" help:"OTLP gRPC collector endpoint." default:"localhost:4317"`
	DebugSpans  bool   `name:"debug-spans" help:"Capture recent spans in memory, served at /debug/spans." default:"false"`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	jobStore, closeStore, err := c.buildStore()
	if err != nil {
		return fmt.Errorf("build job store: %w", err)
	}
	if closeStore != nil {
		defer closeStore()
	}

	defaults, err := cmdutil.LoadDefaultsLayer(c.DefaultsFile)
	if err != nil {
		return fmt.Errorf("load defaults layer: %w", err)
	}
	experts, err := cmdutil.LoadExpertsLayer(c.ExpertsDir)
	if err != nil {
		return fmt.Errorf("load experts layer: %w", err)
	}

	datasources := orchestrator.NewDatasourceStore()
	workerClient := orchestrator.NewHTTPWorkerClient(c.WorkerTimeout)
	o := orchestrator.New(jobStore, datasources, workerClient, defaults, experts)

	go o.RunAssignmentLoop(ctx, c.AssignInterval)
	go c.runExpirySweep(ctx, o)

	if _, err := observability.InitGlobalTracer(ctx, observability.TracerConfig{
		Enabled:           c.Tracing,
		EndpointURL:       c.OTLPAddr,
		SamplingRate:      1.0,
		ServiceName:       "orchestratord",
		CaptureDebugSpans: c.DebugSpans,
	}); err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/", orchestrator.NewRouter(o))
	if c.Metrics {
		metricsHandler, err := observability.InitPrometheusMetrics("orchestratord")
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
		slog.Info("orchestratord listening", "addr", c.Addr, "store", c.Store)
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

func (c *ServeCmd) runExpirySweep(ctx context.Context, o *orchestrator.Orchestrator) {
	ticker := time.NewTicker(c.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := o.ExpireStale(ctx); err != nil {
				slog.Error("expiry sweep failed", "error", err)
			}
		}
	}
}

func (c *ServeCmd) buildStore() (orchestrator.Store, func(), error) {
	switch c.Store {
	case "memory", "":
		return orchestrator.NewMemoryStore(), nil, nil
	case "sqlite":
		if c.DSN == "" {
			return nil, nil, fmt.Errorf("--dsn is required for --store sqlite")
		}
		db, err := sql.Open("sqlite3", c.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		store, err := orchestrator.NewSQLStore(db, "sqlite")
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return store, func() { db.Close() }, nil
	case "postgres":
		if c.DSN == "" {
			return nil, nil, fmt.Errorf("--dsn is required for --store postgres")
		}
		db, err := sql.Open("postgres", c.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres store: %w", err)
		}
		store, err := orchestrator.NewSQLStore(db, "postgres")
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return store, func() { db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", c.Store)
	}
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("orchestratord"),
		kong.Description("Assigns pending jobs to idle workers and tracks their lifecycle."),
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
