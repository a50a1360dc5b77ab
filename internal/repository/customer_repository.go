package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/unclebandit/crm-backend/internal/model"
)

// CustomerRepositoryInterface defines methods used by the resolver
type CustomerRepositoryInterface interface {
	GetByID(ctx context.Context, id int64) (*model.Customer, error)
}

// CustomerRepository is the concrete implementation
type CustomerRepository struct {
	DB *sql.DB
}

// GetByID fetches a customer by ID. Deleted customers read as not found.
func (r *CustomerRepository) GetByID(ctx context.Context, id int64) (*model.Customer, error) {
	query := `
        SELECT id, name, email, phone, company, status
        FROM customers
        WHERE id = $1 AND NOT is_deleted
    `
	var c model.Customer
	err := r.DB.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Company, &c.Status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // not found
		}
		return nil, err
	}
	return &c, nil
}

type LeadRepositoryInterface interface {
	GetByID(ctx context.Context, id int64) (*model.Lead, error)
}

type LeadRepository struct {
	DB *sql.DB
}

func (r *LeadRepository) GetByID(ctx context.Context, id int64) (*model.Lead, error) {
	query := `
        SELECT id, customer_id, status, source
        FROM leads
        WHERE id = $1 AND NOT is_deleted
    `
	var l model.Lead
	err := r.DB.QueryRowContext(ctx, query, id).Scan(&l.ID, &l.CustomerID, &l.Status, &l.Source)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}

var (
	_ CustomerRepositoryInterface = (*CustomerRepository)(nil)
	_ LeadRepositoryInterface     = (*LeadRepository)(nil)
)
