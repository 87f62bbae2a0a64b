package repository

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/opentutorials-org/otu-sync/internal/model"
)

// JobRepository provides access to the shared job queue.
type JobRepository interface {
	// FindByPayload lists jobs of one kind for a user and payload.
	FindByPayload(ctx context.Context, userID uuid.UUID, name, payload string) ([]model.Job, error)
	// Insert enqueues a new job.
	Insert(ctx context.Context, j model.Job) error
	// Reschedule sets status and scheduled time on every matching job.
	Reschedule(ctx context.Context, userID uuid.UUID, name, payload, status string, at time.Time) error
	// DeleteByPayload removes every matching job.
	DeleteByPayload(ctx context.Context, userID uuid.UUID, name, payload string) error
}
