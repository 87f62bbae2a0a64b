// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Page types and job constants shared by the reconciler and the job queue.
const (
	PageTypeDraw = "DRAW" // draw pages are never embedded

	JobEmbedding  = "EMBEDDING"
	StatusPending = "PENDING"
)

// Page is a single note owned by one user.
type Page struct {
	ID           string    // client-generated PK
	UserID       uuid.UUID // injected server-side
	Title        string
	Body         string // HTML or draw-serialized content
	IsPublic     bool
	ImgURL       *string
	Length       int64
	Type         string
	FolderID     *string
	CreatedAt    time.Time
	UpdatedAt    time.Time // clamped to the pull watermark
	LastViewedAt *time.Time
}

// Folder groups pages. PageCount is maintained by the client.
type Folder struct {
	ID              string
	UserID          uuid.UUID
	Name            string
	Description     string
	ThumbnailURL    *string
	PageCount       int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
	LastPageAddedAt *time.Time
}

// Alarm is a scheduled reminder for a page.
type Alarm struct {
	ID                 string
	UserID             uuid.UUID
	PageID             string
	NextAlarmTime      *time.Time
	LastNotificationID *string
	SentCount          int64 // 1 when the client sends a falsy value
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Job is a derived row of the asynchronous job queue.
type Job struct {
	ID            int64
	JobName       string
	Payload       string // page id for embedding jobs
	ScheduledTime time.Time
	Status        string
	UserID        uuid.UUID
}

// PageFromRecord builds a page row from a client record.
func PageFromRecord(rec Record, userID uuid.UUID, lastPulledAt int64) Page {
	created, updated := rec.timestamps(lastPulledAt)
	return Page{
		ID:           rec.String("id"),
		UserID:       userID,
		Title:        rec.String("title"),
		Body:         rec.String("body"),
		IsPublic:     rec.Bool("is_public"),
		ImgURL:       rec.OptString("img_url"),
		Length:       rec.Int64("length"),
		Type:         rec.String("type"),
		FolderID:     rec.OptString("folder_id"),
		CreatedAt:    created,
		UpdatedAt:    updated,
		LastViewedAt: rec.OptTime("last_viewed_at"),
	}
}

// FolderFromRecord builds a folder row from a client record.
func FolderFromRecord(rec Record, userID uuid.UUID, lastPulledAt int64) Folder {
	created, updated := rec.timestamps(lastPulledAt)
	return Folder{
		ID:              rec.String("id"),
		UserID:          userID,
		Name:            rec.String("name"),
		Description:     rec.String("description"),
		ThumbnailURL:    rec.OptString("thumbnail_url"),
		PageCount:       rec.Int64("page_count"),
		CreatedAt:       created,
		UpdatedAt:       updated,
		LastPageAddedAt: rec.OptTime("last_page_added_at"),
	}
}

// AlarmFromRecord builds an alarm row from a client record.
func AlarmFromRecord(rec Record, userID uuid.UUID, lastPulledAt int64) Alarm {
	created, updated := rec.timestamps(lastPulledAt)
	sent := rec.Int64("sent_count")
	if sent == 0 {
		sent = 1
	}
	return Alarm{
		ID:                 rec.String("id"),
		UserID:             userID,
		PageID:             rec.String("page_id"),
		NextAlarmTime:      rec.OptTime("next_alarm_time"),
		LastNotificationID: rec.OptString("last_notification_id"),
		SentCount:          sent,
		CreatedAt:          created,
		UpdatedAt:          updated,
	}
}

// ClampUpdatedAt keeps a pushed timestamp strictly below the client's pull watermark.
func ClampUpdatedAt(updatedAt, lastPulledAt int64) int64 {
	return min(updatedAt, lastPulledAt-1)
}

// FromMillis converts epoch milliseconds into a UTC time.
func FromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

// timestamps returns created_at and the clamped updated_at.
// A missing created_at falls back to the client's unclamped updated_at.
func (r Record) timestamps(lastPulledAt int64) (time.Time, time.Time) {
	updated, _ := r.EpochMillis("updated_at")
	created, ok := r.EpochMillis("created_at")
	if !ok {
		created = updated
	}
	return FromMillis(created), FromMillis(ClampUpdatedAt(updated, lastPulledAt))
}
