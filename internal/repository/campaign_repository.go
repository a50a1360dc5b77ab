package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/unclebandit/crm-backend/internal/model"
)

type CampaignRepositoryInterface interface {
	Create(ctx context.Context, tx *sql.Tx, c *model.Campaign) error
	GetByID(ctx context.Context, id int64) (*model.Campaign, error)
	List(ctx context.Context, filter model.CampaignFilter, offset, limit int) ([]*model.Campaign, int, error)
	Update(ctx context.Context, c *model.Campaign) (bool, error)
	SoftDelete(ctx context.Context, id int64) (bool, error)
	TransitionStatus(ctx context.Context, id int64, from, to model.CampaignStatus, at time.Time) (bool, error)
}

type CampaignRepository struct {
	DB *sql.DB
}

const campaignColumns = `id, name, description, type, subject, body, template_id, customer_ids, lead_ids,
        is_scheduled, scheduled_at, status, created_by, started_at, completed_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCampaign(row rowScanner) (*model.Campaign, error) {
	var c model.Campaign
	err := row.Scan(
		&c.ID, &c.Name, &c.Description, &c.Type, &c.Subject, &c.Body, &c.TemplateID,
		pq.Array(&c.CustomerIDs), pq.Array(&c.LeadIDs),
		&c.IsScheduled, &c.ScheduledAt, &c.Status, &c.CreatedBy,
		&c.StartedAt, &c.CompletedAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ====================== Campaign CRUD ======================

// Create inserts a draft campaign inside tx so recipients can join the same commit.
func (r *CampaignRepository) Create(ctx context.Context, tx *sql.Tx, c *model.Campaign) error {
	if c.Status == "" {
		c.Status = model.CampaignDraft
	}
	if c.Type == "" {
		c.Type = "email"
	}
	if c.CustomerIDs == nil {
		c.CustomerIDs = []int64{}
	}
	if c.LeadIDs == nil {
		c.LeadIDs = []int64{}
	}
	query := `
        INSERT INTO campaigns (name, description, type, subject, body, template_id, customer_ids, lead_ids,
            is_scheduled, scheduled_at, status, created_by)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        RETURNING id, created_at
    `
	return tx.QueryRowContext(ctx, query,
		c.Name, c.Description, c.Type, c.Subject, c.Body, c.TemplateID,
		pq.Array(c.CustomerIDs), pq.Array(c.LeadIDs),
		c.IsScheduled, c.ScheduledAt, c.Status, c.CreatedBy,
	).Scan(&c.ID, &c.CreatedAt)
}

// GetByID returns nil, nil for unknown and soft-deleted campaigns.
func (r *CampaignRepository) GetByID(ctx context.Context, id int64) (*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1 AND NOT is_deleted`
	c, err := scanCampaign(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

func (r *CampaignRepository) List(ctx context.Context, filter model.CampaignFilter, offset, limit int) ([]*model.Campaign, int, error) {
	where := ` WHERE NOT is_deleted`
	args := []any{}
	argPos := 1

	if filter.Status != "" {
		where += fmt.Sprintf(" AND status = $%d", argPos)
		args = append(args, filter.Status)
		argPos++
	}
	if filter.IsScheduled != nil {
		where += fmt.Sprintf(" AND is_scheduled = $%d", argPos)
		args = append(args, *filter.IsScheduled)
		argPos++
	}
	if filter.Search != "" {
		where += fmt.Sprintf(" AND name ILIKE $%d", argPos)
		args = append(args, "%"+filter.Search+"%")
		argPos++
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM campaigns`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + campaignColumns + ` FROM campaigns` + where +
		fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	rows, err := r.DB.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	campaigns := []*model.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, 0, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, total, rows.Err()
}

// Update rewrites the editable fields. It only touches draft campaigns and
// reports false when the row is missing, deleted or no longer draft.
func (r *CampaignRepository) Update(ctx context.Context, c *model.Campaign) (bool, error) {
	query := `
        UPDATE campaigns
        SET name = $1, description = $2, subject = $3, body = $4, template_id = $5,
            is_scheduled = $6, scheduled_at = $7, updated_at = NOW()
        WHERE id = $8 AND status = 'draft' AND NOT is_deleted
    `
	res, err := r.DB.ExecContext(ctx, query,
		c.Name, c.Description, c.Subject, c.Body, c.TemplateID, c.IsScheduled, c.ScheduledAt, c.ID)
	if err != nil {
		return false, err
	}
	return rowsAffectedOne(res)
}

func (r *CampaignRepository) SoftDelete(ctx context.Context, id int64) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE campaigns SET is_deleted = TRUE, updated_at = NOW() WHERE id = $1 AND NOT is_deleted`, id)
	if err != nil {
		return false, err
	}
	return rowsAffectedOne(res)
}

// TransitionStatus is a compare-and-swap on status. Entering running stamps
// started_at, entering completed stamps completed_at. False means another
// caller moved the campaign first.
func (r *CampaignRepository) TransitionStatus(ctx context.Context, id int64, from, to model.CampaignStatus, at time.Time) (bool, error) {
	var column string
	switch to {
	case model.CampaignRunning:
		column = "started_at"
	case model.CampaignCompleted:
		column = "completed_at"
	default:
		return false, fmt.Errorf("unsupported campaign transition %s -> %s", from, to)
	}

	query := fmt.Sprintf(
		`UPDATE campaigns SET status = $1, %s = $2, updated_at = $2 WHERE id = $3 AND status = $4 AND NOT is_deleted`,
		column,
	)
	res, err := r.DB.ExecContext(ctx, query, to, at, id, from)
	if err != nil {
		return false, err
	}
	return rowsAffectedOne(res)
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
