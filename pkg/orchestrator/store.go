package orchestrator

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	_ "github.com/lib/pq"

	"github.com/loomwork/loom/pkg/config"
)

// Store owns the jobs table. ClaimPending must be safe under concurrent
// callers: the SQL implementation uses row-level locking
// (SELECT ... FOR UPDATE SKIP LOCKED) so two orchestrator replicas never
// assign the same pending job twice.
type Store interface {
	Create(ctx context.Context, job *Job) error
	Get(ctx context.Context, id string) (*Job, error)
	List(ctx context.Context, status Status) ([]*Job, error)
	Update(ctx context.Context, job *Job) error

	// ClaimPending atomically selects the oldest pending job, marks it
	// assigned, and returns it. pending_review jobs are never claimed; an
	// approved one is back in pending by the time it is claimable.
	// Returns nil, nil if no claimable job exists.
	ClaimPending(ctx context.Context) (*Job, error)
}

// MemoryStore is an in-process Store for tests and single-process
// deployments without a configured database.
type MemoryStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*Job)}
}

func (m *MemoryStore) Create(ctx context.Context, job *Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.jobs[job.ID]; exists {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s not found", id)
	}
	cp := *job
	return &cp, nil
}

func (m *MemoryStore) List(ctx context.Context, status Status) ([]*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		if status != "" && job.Status != status {
			continue
		}
		cp := *job
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) Update(ctx context.Context, job *Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.jobs[job.ID]; !exists {
		return fmt.Errorf("job %s not found", job.ID)
	}
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *MemoryStore) ClaimPending(ctx context.Context) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var earliest *Job
	for _, job := range m.jobs {
		if job.Status != StatusPending {
			continue
		}
		if earliest == nil || job.CreatedAt.Before(earliest.CreatedAt) {
			earliest = job
		}
	}
	if earliest == nil {
		return nil, nil
	}
	earliest.Status = StatusAssigned
	earliest.UpdatedAt = time.Now().UTC()
	cp := *earliest
	return &cp, nil
}

// SQLStore implements Store over database/sql, targeting PostgreSQL for
// the row-level `SELECT ... FOR UPDATE SKIP LOCKED` assignment pattern the
// engine's concurrency model requires; it degrades to a plain `SELECT ...
// LIMIT 1` for dialects without it.
type SQLStore struct {
	db      *sql.DB
	dialect string
}

const createJobsTableSQL = `
CREATE TABLE IF NOT EXISTS jobs (
    id               VARCHAR(64) PRIMARY KEY,
    description      TEXT NOT NULL,
    expert_id        VARCHAR(128),
    config_override  TEXT,
    autonomy         VARCHAR(32) NOT NULL,
    datasource_ids   TEXT,
    status           VARCHAR(32) NOT NULL,
    worker_id        VARCHAR(128),
    error_message    TEXT,
    phase            VARCHAR(32),
    phase_number     INTEGER,
    iteration_count  INTEGER,
    tokens_used      INTEGER,
    pending_feedback TEXT,
    created_at       TIMESTAMP NOT NULL,
    updated_at       TIMESTAMP NOT NULL,
    started_at       TIMESTAMP,
    completed_at     TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
`

// NewSQLStore wraps an already-open *sql.DB. dialect is "postgres" or
// "sqlite" (mysql lacks SKIP LOCKED support prior to 8.0 and is not
// targeted here).
func NewSQLStore(db *sql.DB, dialect string) (*SQLStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	switch dialect {
	case "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported dialect: %s (supported: postgres, sqlite)", dialect)
	}
	s := &SQLStore{db: db, dialect: dialect}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := s.db.ExecContext(ctx, createJobsTableSQL); err != nil {
		return nil, fmt.Errorf("create jobs table: %w", err)
	}
	return s, nil
}

func (s *SQLStore) placeholder(n int) string {
	if s.dialect == "postgres" {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (s *SQLStore) Create(ctx context.Context, job *Job) error {
	overrideJSON, err := json.Marshal(job.ConfigOverride)
	if err != nil {
		return fmt.Errorf("marshal config_override: %w", err)
	}
	dsJSON, err := json.Marshal(job.DatasourceIDs)
	if err != nil {
		return fmt.Errorf("marshal datasource_ids: %w", err)
	}

	cols := "id, description, expert_id, config_override, autonomy, datasource_ids, status, created_at, updated_at"
	placeholders := make([]string, 9)
	for i := range placeholders {
		placeholders[i] = s.placeholder(i + 1)
	}
	query := fmt.Sprintf(`INSERT INTO jobs (%s) VALUES (%s)`, cols, joinPlaceholders(placeholders))

	_, err = s.db.ExecContext(ctx, query,
		job.ID, job.Description, job.ExpertID, string(overrideJSON), string(job.Autonomy),
		string(dsJSON), string(job.Status), job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job %s: %w", job.ID, err)
	}
	return nil
}

func joinPlaceholders(ph []string) string {
	out := ph[0]
	for _, p := range ph[1:] {
		out += ", " + p
	}
	return out
}

func (s *SQLStore) scanJob(row interface{ Scan(...interface{}) error }) (*Job, error) {
	var job Job
	var overrideJSON, dsJSON sql.NullString
	var status, autonomy string
	var workerID, errMsg, phase, pendingFeedback sql.NullString
	var startedAt, completedAt sql.NullTime

	err := row.Scan(
		&job.ID, &job.Description, &job.ExpertID, &overrideJSON, &autonomy, &dsJSON,
		&status, &workerID, &errMsg, &phase, &job.PhaseNumber, &job.IterationCount, &job.TokensUsed,
		&pendingFeedback, &job.CreatedAt, &job.UpdatedAt, &startedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	job.Status = Status(status)
	job.Autonomy = statusAutonomy(autonomy)
	job.WorkerID = workerID.String
	job.ErrorMessage = errMsg.String
	job.Phase = phase.String
	job.PendingFeedback = pendingFeedback.String
	if startedAt.Valid {
		job.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		job.CompletedAt = &completedAt.Time
	}
	if overrideJSON.Valid && overrideJSON.String != "" {
		if err := json.Unmarshal([]byte(overrideJSON.String), &job.ConfigOverride); err != nil {
			return nil, fmt.Errorf("unmarshal config_override: %w", err)
		}
	}
	if dsJSON.Valid && dsJSON.String != "" {
		if err := json.Unmarshal([]byte(dsJSON.String), &job.DatasourceIDs); err != nil {
			return nil, fmt.Errorf("unmarshal datasource_ids: %w", err)
		}
	}
	return &job, nil
}

const selectJobColumns = `id, description, expert_id, config_override, autonomy, datasource_ids,
	status, worker_id, error_message, phase, phase_number, iteration_count, tokens_used,
	pending_feedback, created_at, updated_at, started_at, completed_at`

func (s *SQLStore) Get(ctx context.Context, id string) (*Job, error) {
	query := fmt.Sprintf(`SELECT %s FROM jobs WHERE id = %s`, selectJobColumns, s.placeholder(1))
	row := s.db.QueryRowContext(ctx, query, id)
	job, err := s.scanJob(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("job %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load job %s: %w", id, err)
	}
	return job, nil
}

func (s *SQLStore) List(ctx context.Context, status Status) ([]*Job, error) {
	query := fmt.Sprintf(`SELECT %s FROM jobs`, selectJobColumns)
	args := []interface{}{}
	if status != "" {
		query += fmt.Sprintf(` WHERE status = %s`, s.placeholder(1))
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []*Job
	for rows.Next() {
		job, err := s.scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job row: %w", err)
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

func (s *SQLStore) Update(ctx context.Context, job *Job) error {
	overrideJSON, _ := json.Marshal(job.ConfigOverride)
	dsJSON, _ := json.Marshal(job.DatasourceIDs)

	query := fmt.Sprintf(`UPDATE jobs SET description=%s, expert_id=%s, config_override=%s,
		autonomy=%s, datasource_ids=%s, status=%s, worker_id=%s, error_message=%s, phase=%s,
		phase_number=%s, iteration_count=%s, tokens_used=%s, pending_feedback=%s, updated_at=%s,
		started_at=%s, completed_at=%s
		WHERE id=%s`,
		s.placeholder(1), s.placeholder(2), s.placeholder(3), s.placeholder(4), s.placeholder(5),
		s.placeholder(6), s.placeholder(7), s.placeholder(8), s.placeholder(9), s.placeholder(10),
		s.placeholder(11), s.placeholder(12), s.placeholder(13), s.placeholder(14), s.placeholder(15),
		s.placeholder(16), s.placeholder(17),
	)

	_, err := s.db.ExecContext(ctx, query,
		job.Description, job.ExpertID, string(overrideJSON), string(job.Autonomy), string(dsJSON),
		string(job.Status), job.WorkerID, job.ErrorMessage, job.Phase, job.PhaseNumber,
		job.IterationCount, job.TokensUsed, job.PendingFeedback, job.UpdatedAt, job.StartedAt, job.CompletedAt, job.ID,
	)
	if err != nil {
		return fmt.Errorf("update job %s: %w", job.ID, err)
	}
	return nil
}

func (s *SQLStore) ClaimPending(ctx context.Context) (*Job, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin claim transaction: %w", err)
	}
	defer tx.Rollback()

	lockClause := ""
	if s.dialect == "postgres" {
		lockClause = "FOR UPDATE SKIP LOCKED"
	}
	query := fmt.Sprintf(`SELECT %s FROM jobs WHERE status = %s ORDER BY created_at ASC LIMIT 1 %s`,
		selectJobColumns, s.placeholder(1), lockClause)

	row := tx.QueryRowContext(ctx, query, string(StatusPending))
	job, err := s.scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim pending job: %w", err)
	}

	job.Status = StatusAssigned
	job.UpdatedAt = time.Now().UTC()
	update := fmt.Sprintf(`UPDATE jobs SET status = %s, updated_at = %s WHERE id = %s`,
		s.placeholder(1), s.placeholder(2), s.placeholder(3))
	if _, err := tx.ExecContext(ctx, update, string(job.Status), job.UpdatedAt, job.ID); err != nil {
		return nil, fmt.Errorf("mark job %s assigned: %w", job.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit claim transaction: %w", err)
	}
	return job, nil
}

func statusAutonomy(s string) config.Autonomy {
	return config.Autonomy(s)
}
