// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/opentutorials-org/otu-sync/internal/model"
)

// PageRepository provides access to pages and their tombstones.
type PageRepository interface {
	// Exists reports whether a page with this id is stored for any user.
	Exists(ctx context.Context, id string) (bool, error)
	// Insert creates a page; duplicate ids surface as a unique violation.
	Insert(ctx context.Context, p model.Page) error
	// Update overwrites the page row matching id and owner.
	Update(ctx context.Context, p model.Page) error
	// Delete removes the page row matching id and owner.
	Delete(ctx context.Context, userID uuid.UUID, id string) error
	// CancelDelete removes the tombstone of a page.
	CancelDelete(ctx context.Context, userID uuid.UUID, id string) error
}

// FolderRepository provides access to folders and their tombstones.
type FolderRepository interface {
	Exists(ctx context.Context, id string) (bool, error)
	Insert(ctx context.Context, f model.Folder) error
	Update(ctx context.Context, f model.Folder) error
	Delete(ctx context.Context, userID uuid.UUID, id string) error
	CancelDelete(ctx context.Context, userID uuid.UUID, id string) error
}

// AlarmRepository provides access to alarms. Alarm tombstones are written by a trigger.
type AlarmRepository interface {
	Exists(ctx context.Context, id string) (bool, error)
	Insert(ctx context.Context, a model.Alarm) error
	Update(ctx context.Context, a model.Alarm) error
	Delete(ctx context.Context, userID uuid.UUID, id string) error
}
