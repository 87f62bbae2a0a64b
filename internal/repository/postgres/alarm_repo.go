package postgres

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/opentutorials-org/otu-sync/internal/model"
)

// AlarmRepo implements AlarmRepository using PostgreSQL.
type AlarmRepo struct{ db *DB }

// NewAlarmRepo constructs an alarm repository.
func NewAlarmRepo(db *DB) *AlarmRepo { return &AlarmRepo{db: db} }

func (r *AlarmRepo) Exists(ctx context.Context, id string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM alarm WHERE id=$1)`
	return r.db.exists(ctx, "alarm", q, id)
}

func (r *AlarmRepo) Insert(ctx context.Context, a model.Alarm) error {
	const q = `
INSERT INTO alarm (id, user_id, page_id, next_alarm_time, last_notification_id, sent_count, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	return r.db.exec(ctx, "insert", "alarm", q,
		a.ID, a.UserID, a.PageID, a.NextAlarmTime, a.LastNotificationID, a.SentCount, a.CreatedAt, a.UpdatedAt)
}

func (r *AlarmRepo) Update(ctx context.Context, a model.Alarm) error {
	const q = `
UPDATE alarm SET page_id=$3, next_alarm_time=$4, last_notification_id=$5, sent_count=$6,
created_at=$7, updated_at=$8
WHERE id=$1 AND user_id=$2`
	return r.db.exec(ctx, "update", "alarm", q,
		a.ID, a.UserID, a.PageID, a.NextAlarmTime, a.LastNotificationID, a.SentCount, a.CreatedAt, a.UpdatedAt)
}

// Delete removes an alarm; alarm_deleted is maintained by trigger.
func (r *AlarmRepo) Delete(ctx context.Context, userID uuid.UUID, id string) error {
	const q = `DELETE FROM alarm WHERE id=$1 AND user_id=$2`
	return r.db.exec(ctx, "delete", "alarm", q, id, userID)
}
