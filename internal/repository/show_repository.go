package repository

import (
	"context"
	"database/sql"

	"github.com/rajuswesust/GetMyShow/internal/model"
)

// ShowRepo is the booking core's read-only view of the show catalog.  Show
// management (creation, scheduling, status changes) belongs to the catalog
// collaborator; the core only looks shows up to decide bookability.
type ShowRepo struct {
	db *sql.DB
}

// NewShowRepo constructs a ShowRepo given a DB handle.
func NewShowRepo(db *sql.DB) *ShowRepo { return &ShowRepo{db: db} }

// GetByID fetches a show by primary key.  Returns ErrShowNotFound when the
// show does not exist.
func (r *ShowRepo) GetByID(ctx context.Context, id uint64) (*model.Show, error) {
	const q = `SELECT id, title, starts_at, status, created_at FROM shows WHERE id = ?`
	var s model.Show
	err := r.db.QueryRowContext(ctx, q, id).Scan(&s.ID, &s.Title, &s.StartsAt, &s.Status, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrShowNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
