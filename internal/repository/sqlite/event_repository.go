package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"firewatch/internal/dto"
	"firewatch/internal/model"
)

// EventRepository implements repository.EventRepository for SQLite.
type EventRepository struct {
	db *DB
}

// NewEventRepository creates a new SQLite event repository.
func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{db: db}
}

const eventColumns = `id, timestamp, event_type, reason, camera, ai_fire_detected,
	ai_confidence, source, image_url, acknowledged, acknowledged_at`

// Insert adds a new event record to the database.
func (r *EventRepository) Insert(ctx context.Context, e *model.Event) error {
	r.db.Lock()
	defer r.db.Unlock()

	_, err := r.db.Conn().ExecContext(ctx, `
		INSERT INTO events (`+eventColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Timestamp.UTC(), e.EventType, e.Reason, e.Camera, e.AIFireDetected,
		e.AIConfidence, e.Source, nullString(e.ImageURL), e.Acknowledged, nullTime(e.AcknowledgedAt))
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// GetByID retrieves an event by its ID.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	row := r.db.Conn().QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return e, nil
}

// GetAll retrieves events based on filter criteria, newest first.
func (r *EventRepository) GetAll(ctx context.Context, filter *dto.EventFilters) ([]model.Event, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	query, args := applyFilter(`SELECT `+eventColumns+` FROM events WHERE 1=1`, filter)
	query += " ORDER BY timestamp DESC"

	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)

		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.Conn().QueryContext(ctx, query, args...)
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
	r.db.RLock()
	defer r.db.RUnlock()

	query, args := applyFilter(`SELECT COUNT(*) FROM events WHERE 1=1`, filter)

	var count int
	if err := r.db.Conn().QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

// GetCameras returns a list of unique camera names.
func (r *EventRepository) GetCameras(ctx context.Context) ([]string, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().QueryContext(ctx, `SELECT DISTINCT camera FROM events ORDER BY camera`)
	if err != nil {
		return nil, fmt.Errorf("failed to query cameras: %w", err)
	}
	defer rows.Close()

	var cameras []string
	for rows.Next() {
		var camera string
		if err := rows.Scan(&camera); err != nil {
			return nil, fmt.Errorf("failed to scan camera: %w", err)
		}
		cameras = append(cameras, camera)
	}
	return cameras, rows.Err()
}

// Acknowledge marks an event as handled. It reports false when no such event exists.
func (r *EventRepository) Acknowledge(ctx context.Context, id string, at time.Time) (bool, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().ExecContext(ctx, `
		UPDATE events SET acknowledged = 1, acknowledged_at = ? WHERE id = ?
	`, at.UTC(), id)
	if err != nil {
		return false, fmt.Errorf("failed to acknowledge event: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to acknowledge event: %w", err)
	}
	return affected > 0, nil
}

// DeleteAll removes all events.
func (r *EventRepository) DeleteAll(ctx context.Context) error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().ExecContext(ctx, `DELETE FROM events`); err != nil {
		return fmt.Errorf("failed to delete events: %w", err)
	}
	return nil
}

// applyFilter appends the WHERE conditions for filter to query.
func applyFilter(query string, filter *dto.EventFilters) (string, []interface{}) {
	args := []interface{}{}
	if filter == nil {
		return query, args
	}

	if filter.Camera != "" {
		query += " AND camera = ?"
		args = append(args, filter.Camera)
	}

	if filter.EventType != "" {
		query += " AND event_type = ?"
		args = append(args, filter.EventType)
	}

	if filter.Acknowledged != nil {
		query += " AND acknowledged = ?"
		args = append(args, *filter.Acknowledged)
	}

	if !filter.DateAfter.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, filter.DateAfter.UTC())
	}

	if !filter.DateBefore.IsZero() {
		query += " AND timestamp <= ?"
		args = append(args, filter.DateBefore.UTC())
	}

	return query, args
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(s scanner) (*model.Event, error) {
	var (
		e              model.Event
		imageURL       sql.NullString
		acknowledgedAt sql.NullTime
	)

	err := s.Scan(&e.ID, &e.Timestamp, &e.EventType, &e.Reason, &e.Camera, &e.AIFireDetected,
		&e.AIConfidence, &e.Source, &imageURL, &e.Acknowledged, &acknowledgedAt)
	if err != nil {
		return nil, err
	}

	e.ImageURL = imageURL.String
	if acknowledgedAt.Valid {
		t := acknowledgedAt.Time
		e.AcknowledgedAt = &t
	}
	return &e, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
