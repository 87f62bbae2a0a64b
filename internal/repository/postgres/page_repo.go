package postgres

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/opentutorials-org/otu-sync/internal/model"
)

// PageRepo implements PageRepository using PostgreSQL.
type PageRepo struct{ db *DB }

// NewPageRepo constructs a page repository.
func NewPageRepo(db *DB) *PageRepo { return &PageRepo{db: db} }

// Exists probes by id only; ownership is enforced by Update.
func (r *PageRepo) Exists(ctx context.Context, id string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM page WHERE id=$1)`
	return r.db.exists(ctx, "page", q, id)
}

// Insert creates a page row.
func (r *PageRepo) Insert(ctx context.Context, p model.Page) error {
	const q = `
INSERT INTO page (id, user_id, title, body, is_public, img_url, length, type, folder_id, created_at, updated_at, last_viewed_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
	return r.db.exec(ctx, "insert", "page", q,
		p.ID, p.UserID, p.Title, p.Body, p.IsPublic, p.ImgURL, p.Length, p.Type, p.FolderID,
		p.CreatedAt, p.UpdatedAt, p.LastViewedAt)
}

// Update overwrites a page owned by p.UserID. A row of another user is left untouched.
func (r *PageRepo) Update(ctx context.Context, p model.Page) error {
	const q = `
UPDATE page SET title=$3, body=$4, is_public=$5, img_url=$6, length=$7, type=$8, folder_id=$9,
created_at=$10, updated_at=$11, last_viewed_at=$12
WHERE id=$1 AND user_id=$2`
	return r.db.exec(ctx, "update", "page", q,
		p.ID, p.UserID, p.Title, p.Body, p.IsPublic, p.ImgURL, p.Length, p.Type, p.FolderID,
		p.CreatedAt, p.UpdatedAt, p.LastViewedAt)
}

// Delete removes a page; the delete trigger records the tombstone.
func (r *PageRepo) Delete(ctx context.Context, userID uuid.UUID, id string) error {
	const q = `DELETE FROM page WHERE id=$1 AND user_id=$2`
	return r.db.exec(ctx, "delete", "page", q, id, userID)
}

// CancelDelete removes the tombstone row of a page.
func (r *PageRepo) CancelDelete(ctx context.Context, userID uuid.UUID, id string) error {
	const q = `DELETE FROM page_deleted WHERE id=$1 AND user_id=$2`
	return r.db.exec(ctx, "delete", "page_deleted", q, id, userID)
}
