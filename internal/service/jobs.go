package service

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/opentutorials-org/otu-sync/internal/model"
	"github.com/opentutorials-org/otu-sync/internal/repository"
)

// embeddingJobs keeps at most one embedding job per (user, page) in the queue.
// Every error here is fatal to the push.
type embeddingJobs struct {
	repo  repository.JobRepository
	delay time.Duration
	now   func() time.Time
}

// enqueue inserts a job due immediately. Called only after a fresh page insert.
func (j embeddingJobs) enqueue(ctx context.Context, userID uuid.UUID, pageID string) error {
	return j.insert(ctx, userID, pageID, j.now())
}

// reschedule pushes an existing job to now+delay or inserts one with that schedule.
func (j embeddingJobs) reschedule(ctx context.Context, userID uuid.UUID, pageID string) error {
	at := j.now().Add(j.delay)
	found, err := j.repo.FindByPayload(ctx, userID, model.JobEmbedding, pageID)
	if err != nil {
		return fmt.Errorf("find embedding job: %w", err)
	}
	if len(found) == 0 {
		return j.insert(ctx, userID, pageID, at)
	}
	if err := j.repo.Reschedule(ctx, userID, model.JobEmbedding, pageID, model.StatusPending, at); err != nil {
		return fmt.Errorf("reschedule embedding job: %w", err)
	}
	return nil
}

// cancel removes the page's job so nothing runs against a deleted page.
func (j embeddingJobs) cancel(ctx context.Context, userID uuid.UUID, pageID string) error {
	if err := j.repo.DeleteByPayload(ctx, userID, model.JobEmbedding, pageID); err != nil {
		return fmt.Errorf("delete embedding job: %w", err)
	}
	return nil
}

func (j embeddingJobs) insert(ctx context.Context, userID uuid.UUID, pageID string, at time.Time) error {
	err := j.repo.Insert(ctx, model.Job{
		JobName:       model.JobEmbedding,
		Payload:       pageID,
		ScheduledTime: at,
		Status:        model.StatusPending,
		UserID:        userID,
	})
	if err != nil {
		return fmt.Errorf("insert embedding job: %w", err)
	}
	return nil
}
