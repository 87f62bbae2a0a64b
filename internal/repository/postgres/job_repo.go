package postgres

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/opentutorials-org/otu-sync/internal/model"
)

// JobRepo implements JobRepository using PostgreSQL.
type JobRepo struct{ db *DB }

// NewJobRepo constructs a job queue repository.
func NewJobRepo(db *DB) *JobRepo { return &JobRepo{db: db} }

// FindByPayload returns jobs matching user, name and payload regardless of status.
func (r *JobRepo) FindByPayload(ctx context.Context, userID uuid.UUID, name, payload string) ([]model.Job, error) {
	const q = `
SELECT id, job_name, payload, scheduled_time, status, user_id
FROM job_queue
WHERE user_id=$1 AND job_name=$2 AND payload=$3
ORDER BY id ASC`
	rows, err := r.db.Pool.Query(ctx, q, userID, name, payload)
	if err != nil {
		return nil, storeErr("select", "job_queue", err)
	}
	defer rows.Close()

	var out []model.Job
	for rows.Next() {
		var j model.Job
		if err := rows.Scan(&j.ID, &j.JobName, &j.Payload, &j.ScheduledTime, &j.Status, &j.UserID); err != nil {
			return nil, storeErr("select", "job_queue", err)
		}
		out = append(out, j)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("select", "job_queue", err)
	}
	return out, nil
}

func (r *JobRepo) Insert(ctx context.Context, j model.Job) error {
	const q = `
INSERT INTO job_queue (job_name, payload, scheduled_time, status, user_id)
VALUES ($1,$2,$3,$4,$5)`
	return r.db.exec(ctx, "insert", "job_queue", q, j.JobName, j.Payload, j.ScheduledTime, j.Status, j.UserID)
}

func (r *JobRepo) Reschedule(ctx context.Context, userID uuid.UUID, name, payload, status string, at time.Time) error {
	const q = `
UPDATE job_queue SET status=$4, scheduled_time=$5
WHERE user_id=$1 AND job_name=$2 AND payload=$3`
	return r.db.exec(ctx, "update", "job_queue", q, userID, name, payload, status, at)
}

func (r *JobRepo) DeleteByPayload(ctx context.Context, userID uuid.UUID, name, payload string) error {
	const q = `DELETE FROM job_queue WHERE user_id=$1 AND job_name=$2 AND payload=$3`
	return r.db.exec(ctx, "delete", "job_queue", q, userID, name, payload)
}
