package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/unclebandit/crm-backend/internal/model"
)

type UserRepositoryInterface interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

type UserRepository struct {
	DB *sql.DB
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, name, email, role, status FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.Status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

var _ UserRepositoryInterface = (*UserRepository)(nil)
