package journal

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresJournal implements Journal using pgx/v5.
type PostgresJournal struct {
	pool *pgxpool.Pool
}

// NewPostgresJournal creates a new PostgresJournal.
func NewPostgresJournal(pool *pgxpool.Pool) *PostgresJournal {
	return &PostgresJournal{pool: pool}
}

// Ping checks database connectivity.
func (j *PostgresJournal) Ping(ctx context.Context) error {
	return j.pool.Ping(ctx)
}

func (j *PostgresJournal) Record(ctx context.Context, e Event) error {
	_, err := j.pool.Exec(ctx,
		`INSERT INTO lifecycle_events (id, job_id, kind, status, detail, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.JobID, string(e.Kind), e.Status, e.Detail, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("record lifecycle event: %w", err)
	}
	return nil
}

// Recent returns the newest events first.
func (j *PostgresJournal) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	rows, err := j.pool.Query(ctx,
		`SELECT id, job_id, kind, status, detail, created_at
		 FROM lifecycle_events ORDER BY created_at DESC, id LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list lifecycle events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var e Event
		var kind string
		if err := rows.Scan(&e.ID, &e.JobID, &kind, &e.Status, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan lifecycle event: %w", err)
		}
		e.Kind = Kind(kind)
		events = append(events, e)
	}
	return events, rows.Err()
}

var _ Journal = (*PostgresJournal)(nil)
