package checkpoint

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// Database drivers: dialect-generalized the same way a SQL-backed
	// session service supports postgres/mysql/sqlite.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// SQLStore implements Store over database/sql. PostgreSQL is the
// primary target; mysql/sqlite are supported with the same
// dialect-branching pattern the rest of the corpus uses for its
// SQL-backed stores.
type SQLStore struct {
	db      *sql.DB
	dialect string
}

const createCheckpointsTableSQL = `
CREATE TABLE IF NOT EXISTS checkpoints (
    job_id     VARCHAR(64) NOT NULL,
    step_index BIGINT NOT NULL,
    blob       TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    PRIMARY KEY (job_id, step_index)
);

CREATE INDEX IF NOT EXISTS idx_checkpoints_job_id ON checkpoints(job_id);
`

// NewSQLStore wraps an already-open *sql.DB. dialect is one of
// "postgres", "mysql", "sqlite".
func NewSQLStore(db *sql.DB, dialect string) (*SQLStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	switch dialect {
	case "postgres", "mysql", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported dialect: %s (supported: postgres, mysql, sqlite)", dialect)
	}

	s := &SQLStore{db: db, dialect: dialect}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize checkpoint schema: %w", err)
	}
	return s, nil
}

// Open opens a new connection and wraps it as a Store. driverName is the
// Go sql driver name ("postgres", "mysql", "sqlite3"); dialect is the
// logical dialect used to pick SQL placeholder syntax.
func Open(driverName, dialect, dsn string) (*SQLStore, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint database: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping checkpoint database: %w", err)
	}
	return NewSQLStore(db, dialect)
}

func (s *SQLStore) initSchema() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	schema := createCheckpointsTableSQL
	switch s.dialect {
	case "mysql":
		schema = `
CREATE TABLE IF NOT EXISTS checkpoints (
    job_id     VARCHAR(64) NOT NULL,
    step_index BIGINT NOT NULL,
    blob       LONGTEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    PRIMARY KEY (job_id, step_index)
);
`
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create checkpoints table: %w", err)
	}
	if s.dialect != "mysql" {
		if _, err := s.db.ExecContext(ctx,
			`CREATE INDEX IF NOT EXISTS idx_checkpoints_job_id ON checkpoints(job_id)`); err != nil {
			return fmt.Errorf("create checkpoints index: %w", err)
		}
	}
	return nil
}

func (s *SQLStore) placeholder(n int) string {
	if s.dialect == "postgres" {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (s *SQLStore) Save(ctx context.Context, jobID string, stepIndex int64, blob []byte) error {
	if jobID == "" {
		return fmt.Errorf("job_id is required")
	}
	query := fmt.Sprintf(
		`INSERT INTO checkpoints (job_id, step_index, blob, created_at) VALUES (%s, %s, %s, %s)`,
		s.placeholder(1), s.placeholder(2), s.placeholder(3), s.placeholder(4),
	)
	_, err := s.db.ExecContext(ctx, query, jobID, stepIndex, string(blob), time.Now())
	if err != nil {
		return fmt.Errorf("save checkpoint for job %s step %d: %w", jobID, stepIndex, err)
	}
	return nil
}

func (s *SQLStore) Latest(ctx context.Context, jobID string) (*Record, error) {
	query := fmt.Sprintf(
		`SELECT job_id, step_index, blob, created_at FROM checkpoints WHERE job_id = %s ORDER BY step_index DESC LIMIT 1`,
		s.placeholder(1),
	)
	row := s.db.QueryRowContext(ctx, query, jobID)

	var rec Record
	var blob string
	if err := row.Scan(&rec.JobID, &rec.StepIndex, &blob, &rec.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("load latest checkpoint for job %s: %w", jobID, err)
	}
	rec.Blob = []byte(blob)
	return &rec, nil
}

func (s *SQLStore) List(ctx context.Context, jobID string) ([]*Record, error) {
	query := fmt.Sprintf(
		`SELECT job_id, step_index, blob, created_at FROM checkpoints WHERE job_id = %s ORDER BY step_index ASC`,
		s.placeholder(1),
	)
	rows, err := s.db.QueryContext(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints for job %s: %w", jobID, err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		var rec Record
		var blob string
		if err := rows.Scan(&rec.JobID, &rec.StepIndex, &blob, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan checkpoint row: %w", err)
		}
		rec.Blob = []byte(blob)
		out = append(out, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checkpoints: %w", err)
	}
	return out, nil
}

func (s *SQLStore) Clear(ctx context.Context, jobID string) error {
	query := fmt.Sprintf(`DELETE FROM checkpoints WHERE job_id = %s`, s.placeholder(1))
	_, err := s.db.ExecContext(ctx, query, jobID)
	if err != nil {
		return fmt.Errorf("clear checkpoints for job %s: %w", jobID, err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
