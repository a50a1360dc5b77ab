package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/unclebandit/crm-backend/internal/model"
)

type TemplateRepositoryInterface interface {
	GetByID(ctx context.Context, id int64) (*model.EmailTemplate, error)
}

type TemplateRepository struct {
	DB *sql.DB
}

func (r *TemplateRepository) GetByID(ctx context.Context, id int64) (*model.EmailTemplate, error) {
	query := `
        SELECT id, name, subject, body, category, is_active, created_at
        FROM email_templates
        WHERE id = $1 AND NOT is_deleted
    `
	var t model.EmailTemplate
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&t.ID, &t.Name, &t.Subject, &t.Body, &t.Category, &t.IsActive, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

var _ TemplateRepositoryInterface = (*TemplateRepository)(nil)
