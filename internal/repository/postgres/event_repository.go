// Package postgres stores events in PostgreSQL, for deployments where several
// watchers share one event log.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"firewatch/internal/dto"
	"firewatch/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id TEXT PRIMARY KEY,
	timestamp TIMESTAMPTZ NOT NULL,
	event_type TEXT NOT NULL,
	reason TEXT NOT NULL,
	camera TEXT NOT NULL,
	ai_fire_detected BOOLEAN NOT NULL DEFAULT FALSE,
	ai_confidence DOUBLE PRECISION DEFAULT 0,
	source TEXT NOT NULL DEFAULT '',
	image_url TEXT,
	acknowledged BOOLEAN NOT NULL DEFAULT FALSE,
	acknowledged_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_events_camera ON events(camera);
CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp);
`

const eventColumns = `id, timestamp, event_type, reason, camera, ai_fire_detected,
	ai_confidence, source, image_url, acknowledged, acknowledged_at`

// EventRepository implements repository.EventRepository for PostgreSQL.
type EventRepository struct {
	pool *pgxpool.Pool
}

// New connects to connString, verifies the connection and creates the schema.
func New(ctx context.Context, connString string) (*EventRepository, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &EventRepository{pool: pool}, nil
}

// Close closes the connection pool.
func (r *EventRepository) Close() error {
	if r.pool != nil {
		r.pool.Close()
	}
	return nil
}

// Insert adds a new event record to the database.
func (r *EventRepository) Insert(ctx context.Context, e *model.Event) error {
	var imageURL *string
	if e.ImageURL != "" {
		imageURL = &e.ImageURL
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO events (`+eventColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, e.ID, e.Timestamp, e.EventType, e.Reason, e.Camera, e.AIFireDetected,
		e.AIConfidence, e.Source, imageURL, e.Acknowledged, e.AcknowledgedAt)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// GetByID retrieves an event by its ID.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
	e, err := scanEvent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return e, nil
}

// GetAll retrieves events based on filter criteria, newest first.
func (r *EventRepository) GetAll(ctx context.Context, filter *dto.EventFilters) ([]model.Event, error) {
	query, args := applyFilter(`SELECT `+eventColumns+` FROM events WHERE 1=1`, filter)
	query += " ORDER BY timestamp DESC"

	if filter != nil && filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))

		if filter.Offset > 0 {
			args = append(args, filter.Offset)
			query += fmt.Sprintf(" OFFSET $%d", len(args))
		}
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}

	return events, nil
}

// GetTotalCount returns the total count of events matching the filter.
func (r *EventRepository) GetTotalCount(ctx context.Context, filter *dto.EventFilters) (int, error) {
	query, args := applyFilter(`SELECT COUNT(*) FROM events WHERE 1=1`, filter)

	var count int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

// GetCameras returns a list of unique camera names.
func (r *EventRepository) GetCameras(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT camera FROM events ORDER BY camera`)
	if err != nil {
		return nil, fmt.Errorf("failed to query cameras: %w", err)
	}

	cameras, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan cameras: %w", err)
	}
	return cameras, nil
}

// Acknowledge marks an event as handled. It reports false when no such event exists.
func (r *EventRepository) Acknowledge(ctx context.Context, id string, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE events SET acknowledged = TRUE, acknowledged_at = $1 WHERE id = $2
	`, at, id)
	if err != nil {
		return false, fmt.Errorf("failed to acknowledge event: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteAll removes all events.
func (r *EventRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM events`); err != nil {
		return fmt.Errorf("failed to delete events: %w", err)
	}
	return nil
}

// applyFilter appends numbered WHERE conditions for filter to query.
func applyFilter(query string, filter *dto.EventFilters) (string, []interface{}) {
	args := []interface{}{}
	if filter == nil {
		return query, args
	}

	add := func(cond string, value interface{}) {
		args = append(args, value)
		query += fmt.Sprintf(cond, len(args))
	}

	if filter.Camera != "" {
		add(" AND camera = $%d", filter.Camera)
	}
	if filter.EventType != "" {
		add(" AND event_type = $%d", filter.EventType)
	}
	if filter.Acknowledged != nil {
		add(" AND acknowledged = $%d", *filter.Acknowledged)
	}
	if !filter.DateAfter.IsZero() {
		add(" AND timestamp >= $%d", filter.DateAfter)
	}
	if !filter.DateBefore.IsZero() {
		add(" AND timestamp <= $%d", filter.DateBefore)
	}

	return query, args
}

func scanEvent(row pgx.Row) (*model.Event, error) {
	var (
		e              model.Event
		imageURL       *string
		acknowledgedAt *time.Time
	)

	err := row.Scan(&e.ID, &e.Timestamp, &e.EventType, &e.Reason, &e.Camera, &e.AIFireDetected,
		&e.AIConfidence, &e.Source, &imageURL, &e.Acknowledged, &acknowledgedAt)
	if err != nil {
		return nil, err
	}

	if imageURL != nil {
		e.ImageURL = *imageURL
	}
	e.AcknowledgedAt = acknowledgedAt
	return &e, nil
}
