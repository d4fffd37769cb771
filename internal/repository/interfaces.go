package repository

import (
	"context"
	"time"

	"firewatch/internal/dto"
	"firewatch/internal/model"
)

// EventRepository defines the interface for event data operations.
type EventRepository interface {
	// Create operations
	Insert(ctx context.Context, event *model.Event) error

	// Read operations
	GetByID(ctx context.Context, id string) (*model.Event, error)
	GetAll(ctx context.Context, filter *dto.EventFilters) ([]model.Event, error)
	GetTotalCount(ctx context.Context, filter *dto.EventFilters) (int, error)
	GetCameras(ctx context.Context) ([]string, error)

	// Update operations
	Acknowledge(ctx context.Context, id string, at time.Time) (bool, error)

	// Delete operations
	DeleteAll(ctx context.Context) error
}
