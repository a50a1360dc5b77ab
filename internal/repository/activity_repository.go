package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/unclebandit/crm-backend/internal/model"
)

type ActivityRepositoryInterface interface {
	Insert(ctx context.Context, entry *model.ActivityLog) error
}

type ActivityRepository struct {
	DB *sql.DB
}

// Insert stores one activity entry. A zero ReferenceID is written as NULL.
func (r *ActivityRepository) Insert(ctx context.Context, entry *model.ActivityLog) error {
	var ref sql.NullInt64
	if entry.ReferenceID != 0 {
		ref = sql.NullInt64{Int64: entry.ReferenceID, Valid: true}
	}
	query := `
        INSERT INTO activity_logs (user_id, action, module, reference_id, description, created_at)
        VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))
        RETURNING id, created_at
    `
	var createdAt *time.Time
	if !entry.CreatedAt.IsZero() {
		createdAt = &entry.CreatedAt
	}
	return r.DB.QueryRowContext(ctx, query,
		entry.UserID, entry.Action, entry.Module, ref, entry.Description, createdAt,
	).Scan(&entry.ID, &entry.CreatedAt)
}

var _ ActivityRepositoryInterface = (*ActivityRepository)(nil)
