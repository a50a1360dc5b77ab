package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"github.com/unclebandit/crm-backend/internal/model"
)

// RecipientRepositoryInterface is the per-campaign recipient registry.
type RecipientRepositoryInterface interface {
	CreateBatch(ctx context.Context, tx *sql.Tx, campaignID int64, customerIDs, leadIDs []int64) error
	ListPending(ctx context.Context, campaignID int64) ([]*model.CampaignRecipient, error)
	ListByCampaign(ctx context.Context, campaignID int64) ([]*model.CampaignRecipient, error)
	Claim(ctx context.Context, id int64, runID string) (bool, error)
	MarkSent(ctx context.Context, id int64, at time.Time) (bool, error)
	MarkFailed(ctx context.Context, id int64, reason string) (bool, error)
	MarkOpened(ctx context.Context, id int64, at time.Time) (bool, error)
	MarkClicked(ctx context.Context, id int64, at time.Time) (bool, error)
	Aggregate(ctx context.Context, campaignID int64) (map[model.RecipientStatus]int, error)
}

type RecipientRepository struct {
	DB *sql.DB
}

const recipientColumns = `id, campaign_id, recipient_type, recipient_id, status, COALESCE(last_error, ''),
        sent_at, opened_at, clicked_at, created_at, updated_at`

func scanRecipient(row rowScanner) (*model.CampaignRecipient, error) {
	var rec model.CampaignRecipient
	err := row.Scan(
		&rec.ID, &rec.CampaignID, &rec.RecipientType, &rec.RecipientID, &rec.Status, &rec.LastError,
		&rec.SentAt, &rec.OpenedAt, &rec.ClickedAt, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CreateBatch writes one pending record per distinct id of each kind. It runs
// inside the caller's transaction; empty id sets insert nothing.
func (r *RecipientRepository) CreateBatch(ctx context.Context, tx *sql.Tx, campaignID int64, customerIDs, leadIDs []int64) error {
	query := `
        INSERT INTO campaign_recipients (campaign_id, recipient_type, recipient_id, status)
        SELECT $1, $2, unnest($3::bigint[]), 'pending'
        ON CONFLICT (campaign_id, recipient_type, recipient_id) DO NOTHING
    `
	batches := []struct {
		kind model.RecipientKind
		ids  []int64
	}{
		{model.KindCustomer, dedupe(customerIDs)},
		{model.KindLead, dedupe(leadIDs)},
	}
	for _, b := range batches {
		if len(b.ids) == 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx, query, campaignID, string(b.kind), pq.Array(b.ids)); err != nil {
			return err
		}
	}
	return nil
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// ListPending snapshots the records still waiting for a send attempt.
func (r *RecipientRepository) ListPending(ctx context.Context, campaignID int64) ([]*model.CampaignRecipient, error) {
	return r.list(ctx, `SELECT `+recipientColumns+` FROM campaign_recipients
        WHERE campaign_id = $1 AND status = 'pending' AND claim_token IS NULL ORDER BY id`, campaignID)
}

func (r *RecipientRepository) ListByCampaign(ctx context.Context, campaignID int64) ([]*model.CampaignRecipient, error) {
	return r.list(ctx, `SELECT `+recipientColumns+` FROM campaign_recipients
        WHERE campaign_id = $1 ORDER BY id`, campaignID)
}

func (r *RecipientRepository) list(ctx context.Context, query string, campaignID int64) ([]*model.CampaignRecipient, error) {
	rows, err := r.DB.QueryContext(ctx, query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []*model.CampaignRecipient{}
	for rows.Next() {
		rec, err := scanRecipient(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Claim reserves a pending record for one dispatch run. Only the first
// claimant gets true.
func (r *RecipientRepository) Claim(ctx context.Context, id int64, runID string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
        UPDATE campaign_recipients SET claim_token = $2, updated_at = NOW()
        WHERE id = $1 AND status = 'pending' AND claim_token IS NULL`, id, runID)
	if err != nil {
		return false, err
	}
	return rowsAffectedOne(res)
}

// MarkSent and MarkFailed only move pending records. Repeating either on a
// terminal record changes nothing and returns false.
func (r *RecipientRepository) MarkSent(ctx context.Context, id int64, at time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
        UPDATE campaign_recipients SET status = 'sent', sent_at = $2, last_error = NULL, updated_at = NOW()
        WHERE id = $1 AND status = 'pending'`, id, at)
	if err != nil {
		return false, err
	}
	return rowsAffectedOne(res)
}

func (r *RecipientRepository) MarkFailed(ctx context.Context, id int64, reason string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
        UPDATE campaign_recipients SET status = 'failed', last_error = $2, updated_at = NOW()
        WHERE id = $1 AND status = 'pending'`, id, reason)
	if err != nil {
		return false, err
	}
	return rowsAffectedOne(res)
}

func (r *RecipientRepository) MarkOpened(ctx context.Context, id int64, at time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
        UPDATE campaign_recipients SET status = 'opened', opened_at = $2, updated_at = NOW()
        WHERE id = $1 AND status = 'sent'`, id, at)
	if err != nil {
		return false, err
	}
	return rowsAffectedOne(res)
}

func (r *RecipientRepository) MarkClicked(ctx context.Context, id int64, at time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
        UPDATE campaign_recipients SET status = 'clicked', clicked_at = $2, updated_at = NOW()
        WHERE id = $1 AND status = 'opened'`, id, at)
	if err != nil {
		return false, err
	}
	return rowsAffectedOne(res)
}

// Aggregate counts records by status. Every known status is present.
func (r *RecipientRepository) Aggregate(ctx context.Context, campaignID int64) (map[model.RecipientStatus]int, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM campaign_recipients WHERE campaign_id = $1 GROUP BY status`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[model.RecipientStatus]int, len(model.RecipientStatuses))
	for _, s := range model.RecipientStatuses {
		counts[s] = 0
	}
	for rows.Next() {
		var status model.RecipientStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

var _ RecipientRepositoryInterface = (*RecipientRepository)(nil)
