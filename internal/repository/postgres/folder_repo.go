package postgres

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/opentutorials-org/otu-sync/internal/model"
)

// FolderRepo implements FolderRepository using PostgreSQL.
type FolderRepo struct{ db *DB }

// NewFolderRepo constructs a folder repository.
func NewFolderRepo(db *DB) *FolderRepo { return &FolderRepo{db: db} }

func (r *FolderRepo) Exists(ctx context.Context, id string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM folder WHERE id=$1)`
	return r.db.exists(ctx, "folder", q, id)
}

func (r *FolderRepo) Insert(ctx context.Context, f model.Folder) error {
	const q = `
INSERT INTO folder (id, user_id, name, description, thumbnail_url, page_count, created_at, updated_at, last_page_added_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	return r.db.exec(ctx, "insert", "folder", q,
		f.ID, f.UserID, f.Name, f.Description, f.ThumbnailURL, f.PageCount,
		f.CreatedAt, f.UpdatedAt, f.LastPageAddedAt)
}

func (r *FolderRepo) Update(ctx context.Context, f model.Folder) error {
	const q = `
UPDATE folder SET name=$3, description=$4, thumbnail_url=$5, page_count=$6,
created_at=$7, updated_at=$8, last_page_added_at=$9
WHERE id=$1 AND user_id=$2`
	return r.db.exec(ctx, "update", "folder", q,
		f.ID, f.UserID, f.Name, f.Description, f.ThumbnailURL, f.PageCount,
		f.CreatedAt, f.UpdatedAt, f.LastPageAddedAt)
}

func (r *FolderRepo) Delete(ctx context.Context, userID uuid.UUID, id string) error {
	const q = `DELETE FROM folder WHERE id=$1 AND user_id=$2`
	return r.db.exec(ctx, "delete", "folder", q, id, userID)
}

func (r *FolderRepo) CancelDelete(ctx context.Context, userID uuid.UUID, id string) error {
	const q = `DELETE FROM folder_deleted WHERE id=$1 AND user_id=$2`
	return r.db.exec(ctx, "delete", "folder_deleted", q, id, userID)
}
