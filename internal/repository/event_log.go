package repository

import (
	"context"
	"errors"

	"firewatch/internal/model"

	"github.com/google/uuid"
)

// EventLog appends events to an EventRepository.
type EventLog struct {
	repo EventRepository
}

// NewEventLog creates an EventLog backed by repo.
func NewEventLog(repo EventRepository) *EventLog {
	return &EventLog{repo: repo}
}

// Record stores event, assigning an ID when it has none.
func (l *EventLog) Record(ctx context.Context, event *model.Event) error {
	if event == nil {
		return errors.New("nil event")
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	return l.repo.Insert(ctx, event)
}
