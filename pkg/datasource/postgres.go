package datasource

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"
)

// postgresProvider is the one datasource type with a concrete backend in
// this pass: a thin wrapper over database/sql + lib/pq, the same driver
// pairing pkg/checkpoint's SQLStore uses.
type postgresProvider struct {
	db       *sql.DB
	readOnly bool
}

func newPostgresProvider(ds Datasource) (SQLProvider, error) {
	db, err := sql.Open("postgres", ds.ConnectionURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &postgresProvider{db: db, readOnly: ds.ReadOnly}, nil
}

func (p *postgresProvider) Query(ctx context.Context, query string, args ...interface{}) (string, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return "", fmt.Errorf("query: %w", err)
	}
	defer rows.Close()
	return rowsToJSON(rows)
}

func (p *postgresProvider) Schema(ctx context.Context) (string, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT table_name, column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = 'public'
		ORDER BY table_name, ordinal_position`)
	if err != nil {
		return "", fmt.Errorf("introspect schema: %w", err)
	}
	defer rows.Close()
	return rowsToJSON(rows)
}

func (p *postgresProvider) Execute(ctx context.Context, statement string, args ...interface{}) (string, error) {
	if p.readOnly {
		return "", fmt.Errorf("datasource is read-only, sql_execute is not permitted")
	}
	result, err := p.db.ExecContext(ctx, statement, args...)
	if err != nil {
		return "", fmt.Errorf("execute: %w", err)
	}
	affected, _ := result.RowsAffected()
	return fmt.Sprintf("%d rows affected", affected), nil
}

func (p *postgresProvider) Close() error {
	return p.db.Close()
}

func rowsToJSON(rows *sql.Rows) (string, error) {
	cols, err := rows.Columns()
	if err != nil {
		return "", err
	}

	var out []map[string]interface{}
	for rows.Next() {
		values := make([]interface{}, len(cols))
		pointers := make([]interface{}, len(cols))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return "", fmt.Errorf("scan row: %w", err)
		}

		row := make(map[string]interface{}, len(cols))
		for i, col := range cols {
			row[col] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	data, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("marshal rows: %w", err)
	}
	return string(data), nil
}
