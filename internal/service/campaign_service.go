// internal/service/campaign_service.go
package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/unclebandit/crm-backend/internal/activity"
	appErrors "github.com/unclebandit/crm-backend/internal/errors"
	"github.com/unclebandit/crm-backend/internal/logger"
	"github.com/unclebandit/crm-backend/internal/mailer"
	"github.com/unclebandit/crm-backend/internal/metrics"
	"github.com/unclebandit/crm-backend/internal/model"
	"github.com/unclebandit/crm-backend/internal/repository"
)

// ActivityRecorder is a side effect that cannot fail the caller.
type ActivityRecorder interface {
	Record(ctx context.Context, entry model.ActivityLog)
}

type CampaignService struct {
	Tx            repository.TxRunner
	CampaignRepo  repository.CampaignRepositoryInterface
	RecipientRepo repository.RecipientRepositoryInterface
	TemplateRepo  repository.TemplateRepositoryInterface
	Resolver      *RecipientResolver
	Mailer        mailer.Sender
	Activity      ActivityRecorder

	// OrgName fills {{company_name}}.
	OrgName string
	// Workers is the number of concurrent senders per run.
	Workers int

	Now      func() time.Time
	NewRunID func() string
}

// Summary is the per-status recipient count of one campaign.
type Summary struct {
	Total   int `json:"total"`
	Pending int `json:"pending"`
	Sent    int `json:"sent"`
	Opened  int `json:"opened"`
	Clicked int `json:"clicked"`
	Failed  int `json:"failed"`
}

func SummaryFromCounts(counts map[model.RecipientStatus]int) Summary {
	s := Summary{
		Pending: counts[model.RecipientPending],
		Sent:    counts[model.RecipientSent],
		Opened:  counts[model.RecipientOpened],
		Clicked: counts[model.RecipientClicked],
		Failed:  counts[model.RecipientFailed],
	}
	for _, n := range counts {
		s.Total += n
	}
	return s
}

type CreateCampaignInput struct {
	Name        string
	Description string
	Type        string
	Subject     string
	Body        string
	TemplateID  int64
	CustomerIDs []int64
	LeadIDs     []int64
	IsScheduled bool
	ScheduledAt *time.Time
}

// UpdateCampaignInput leaves nil fields unchanged.
type UpdateCampaignInput struct {
	Name        *string
	Description *string
	Subject     *string
	Body        *string
	TemplateID  *int64
	IsScheduled *bool
	ScheduledAt *time.Time
}

type RecipientView struct {
	ID            int64                 `json:"id"`
	Name          string                `json:"name"`
	Email         string                `json:"email"`
	RecipientType model.RecipientKind   `json:"recipientType"`
	Status        model.RecipientStatus `json:"status"`
	SentAt        *time.Time            `json:"sentAt,omitempty"`
	Error         string                `json:"error,omitempty"`
}

type CampaignDetails struct {
	*model.Campaign
	Template   *model.EmailTemplate `json:"template,omitempty"`
	Recipients []RecipientView      `json:"recipients"`
	Stats      Summary              `json:"stats"`
}

type StartResult struct {
	Campaign *model.Campaign `json:"campaign"`
	Stats    Summary         `json:"stats"`
}

func (s *CampaignService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *CampaignService) runID() string {
	if s.NewRunID != nil {
		return s.NewRunID()
	}
	return uuid.NewString()
}

func (s *CampaignService) record(ctx context.Context, actor *model.User, action string, c *model.Campaign, description string) {
	if s.Activity == nil {
		return
	}
	entry := model.ActivityLog{
		Action:      action,
		Module:      activity.ModuleCampaign,
		ReferenceID: c.ID,
		Description: description,
		CreatedAt:   s.now(),
	}
	if actor != nil {
		entry.UserID = actor.ID
	}
	s.Activity.Record(ctx, entry)
}

// getCampaign turns the repository's nil, nil into NotFoundError.
func (s *CampaignService) getCampaign(ctx context.Context, id int64) (*model.Campaign, error) {
	c, err := s.CampaignRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load campaign %d: %w", id, err)
	}
	if c == nil {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	return c, nil
}

func (s *CampaignService) getTemplate(ctx context.Context, id int64) (*model.EmailTemplate, error) {
	t, err := s.TemplateRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load template %d: %w", id, err)
	}
	if t == nil {
		return nil, appErrors.NewTemplateNotFound(id)
	}
	return t, nil
}

// CreateCampaign stores a draft campaign and one pending record per distinct
// customer and lead in a single transaction.
func (s *CampaignService) CreateCampaign(ctx context.Context, in CreateCampaignInput, actor *model.User) (*model.Campaign, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, appErrors.NewValidation("name", "name is required")
	}
	if in.TemplateID <= 0 {
		return nil, appErrors.NewValidation("emailTemplate", "email template is required")
	}
	if _, err := s.getTemplate(ctx, in.TemplateID); err != nil {
		return nil, err
	}

	c := &model.Campaign{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Type:        in.Type,
		Subject:     in.Subject,
		Body:        in.Body,
		TemplateID:  in.TemplateID,
		CustomerIDs: in.CustomerIDs,
		LeadIDs:     in.LeadIDs,
		IsScheduled: in.IsScheduled,
		ScheduledAt: in.ScheduledAt,
		Status:      model.CampaignDraft,
	}
	if actor != nil {
		c.CreatedBy = actor.ID
	}

	err := s.Tx.WithTx(ctx, func(tx *sql.Tx) error {
		if err := s.CampaignRepo.Create(ctx, tx, c); err != nil {
			return fmt.Errorf("insert campaign: %w", err)
		}
		if err := s.RecipientRepo.CreateBatch(ctx, tx, c.ID, c.CustomerIDs, c.LeadIDs); err != nil {
			return fmt.Errorf("insert recipients: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.L().Infow("campaign_created", "campaign_id", c.ID,
		"customers", len(c.CustomerIDs), "leads", len(c.LeadIDs))
	s.record(ctx, actor, activity.ActionCreated, c, fmt.Sprintf("Created campaign %s", c.Name))
	return c, nil
}

// ListCampaigns fetches campaigns with pagination
func (s *CampaignService) ListCampaigns(ctx context.Context, page, limit int, filter model.CampaignFilter) ([]*model.Campaign, map[string]int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	offset := (page - 1) * limit

	campaigns, total, err := s.CampaignRepo.List(ctx, filter, offset, limit)
	if err != nil {
		return nil, nil, err
	}

	pagination := map[string]int{
		"page":        page,
		"limit":       limit,
		"total":       total,
		"total_pages": (total + limit - 1) / limit,
	}
	return campaigns, pagination, nil
}

// GetCampaignDetails returns the campaign with its template, every recipient
// with resolved contact details, and the current stats.
func (s *CampaignService) GetCampaignDetails(ctx context.Context, id int64) (*CampaignDetails, error) {
	c, err := s.getCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	tpl, err := s.TemplateRepo.GetByID(ctx, c.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("load template %d: %w", c.TemplateID, err)
	}

	records, err := s.RecipientRepo.ListByCampaign(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list recipients: %w", err)
	}

	views := make([]RecipientView, 0, len(records))
	counts := make(map[model.RecipientStatus]int, len(model.RecipientStatuses))
	for _, st := range model.RecipientStatuses {
		counts[st] = 0
	}
	for res := range s.Resolver.Resolve(ctx, records) {
		v := RecipientView{
			ID:            res.Record.RecipientID,
			RecipientType: res.Record.RecipientType,
			Status:        res.Record.Status,
			SentAt:        res.Record.SentAt,
			Error:         res.Record.LastError,
		}
		if res.Sendable() {
			v.Name = res.Recipient.Name
			v.Email = res.Recipient.Email
		}
		views = append(views, v)
		counts[res.Record.Status]++
	}

	return &CampaignDetails{
		Campaign:   c,
		Template:   tpl,
		Recipients: views,
		Stats:      SummaryFromCounts(counts),
	}, nil
}

// UpdateCampaign edits a draft campaign. Recipient lists are fixed at creation.
func (s *CampaignService) UpdateCampaign(ctx context.Context, id int64, in UpdateCampaignInput, actor *model.User) (*model.Campaign, error) {
	c, err := s.getCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status != model.CampaignDraft {
		return nil, appErrors.NewConflict("campaign %d is %s and can no longer be edited", id, c.Status)
	}

	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, appErrors.NewValidation("name", "name cannot be empty")
		}
		c.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		c.Description = *in.Description
	}
	if in.Subject != nil {
		c.Subject = *in.Subject
	}
	if in.Body != nil {
		c.Body = *in.Body
	}
	if in.TemplateID != nil && *in.TemplateID != c.TemplateID {
		if _, err := s.getTemplate(ctx, *in.TemplateID); err != nil {
			return nil, err
		}
		c.TemplateID = *in.TemplateID
	}
	if in.IsScheduled != nil {
		c.IsScheduled = *in.IsScheduled
	}
	if in.ScheduledAt != nil {
		c.ScheduledAt = in.ScheduledAt
	}

	ok, err := s.CampaignRepo.Update(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("update campaign %d: %w", id, err)
	}
	if !ok {
		return nil, appErrors.NewConflict("campaign %d changed state during update", id)
	}
	now := s.now()
	c.UpdatedAt = &now

	s.record(ctx, actor, activity.ActionUpdated, c, fmt.Sprintf("Updated campaign %s", c.Name))
	return c, nil
}

// DeleteCampaign soft-deletes. The campaign disappears from every read.
func (s *CampaignService) DeleteCampaign(ctx context.Context, id int64, actor *model.User) error {
	c, err := s.getCampaign(ctx, id)
	if err != nil {
		return err
	}
	ok, err := s.CampaignRepo.SoftDelete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete campaign %d: %w", id, err)
	}
	if !ok {
		return appErrors.NewCampaignNotFound(id)
	}

	logger.L().Infow("campaign_deleted", "campaign_id", id)
	s.record(ctx, actor, activity.ActionDeleted, c, fmt.Sprintf("Deleted campaign %s", c.Name))
	return nil
}

// StartCampaign runs the campaign once: draft -> running, one send attempt per
// pending recipient, then completed. Per-recipient failures are recorded on
// the recipient and never returned.
func (s *CampaignService) StartCampaign(ctx context.Context, id int64, actor *model.User) (*StartResult, error) {
	c, err := s.getCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status != model.CampaignDraft {
		return nil, appErrors.NewConflict("campaign %d is already %s", id, c.Status)
	}
	tpl, err := s.getTemplate(ctx, c.TemplateID)
	if err != nil {
		return nil, err
	}
	if !tpl.Complete() {
		return nil, appErrors.NewValidation("emailTemplate", "email template must have a subject and a body")
	}

	startedAt := s.now()
	ok, err := s.CampaignRepo.TransitionStatus(ctx, id, model.CampaignDraft, model.CampaignRunning, startedAt)
	if err != nil {
		return nil, fmt.Errorf("start campaign %d: %w", id, err)
	}
	if !ok {
		return nil, appErrors.NewConflict("campaign %d was started by another request", id)
	}
	c.Status = model.CampaignRunning
	c.StartedAt = &startedAt

	// Once running, the run finishes even if the caller goes away.
	ctx = context.WithoutCancel(ctx)
	log := logger.L().With("campaign_id", id)

	pending, err := s.RecipientRepo.ListPending(ctx, id)
	if err != nil {
		log.Errorw("campaign_snapshot_failed", "error", err)
		return nil, fmt.Errorf("list pending recipients: %w", err)
	}

	job := Job{
		CampaignID: id,
		RunID:      s.runID(),
		Subject:    tpl.Subject,
		Body:       tpl.Body,
		StaticVars: map[string]string{
			"sender_name":  actorName(actor),
			"company_name": s.OrgName,
		},
	}
	log.Infow("campaign_started", "run_id", job.RunID, "recipients", len(pending), "workers", s.Workers)

	RunPool(ctx, s.Workers, pending, func(records <-chan *model.CampaignRecipient) *Worker {
		w := NewWorker(s.RecipientRepo, s.Resolver, s.Mailer, records, job)
		w.Now = s.now
		return w
	})

	completedAt := s.now()
	ok, err = s.CampaignRepo.TransitionStatus(ctx, id, model.CampaignRunning, model.CampaignCompleted, completedAt)
	if err != nil {
		return nil, fmt.Errorf("complete campaign %d: %w", id, err)
	}
	if !ok {
		log.Warnw("campaign_complete_noop")
	}
	c.Status = model.CampaignCompleted
	c.CompletedAt = &completedAt
	metrics.DispatchRuns.Inc()

	stats, err := s.Summarize(ctx, id)
	if err != nil {
		return nil, err
	}
	log.Infow("campaign_completed", "run_id", job.RunID, "sent", stats.Sent, "failed", stats.Failed)

	s.record(ctx, actor, activity.ActionStarted, c, fmt.Sprintf("Started campaign %s", c.Name))
	return &StartResult{Campaign: c, Stats: stats}, nil
}

// SendTest renders the template with the non-recipient variables and sends it
// to address. No recipient record is read or written.
func (s *CampaignService) SendTest(ctx context.Context, id int64, address string, actor *model.User) error {
	if strings.TrimSpace(address) == "" {
		return appErrors.NewValidation("testEmail", "test email address is required")
	}

	c, err := s.getCampaign(ctx, id)
	if err != nil {
		return err
	}
	tpl, err := s.getTemplate(ctx, c.TemplateID)
	if err != nil {
		return err
	}

	// A malformed address is undeliverable, same as a transport rejection.
	to, err := mailer.ValidateAddress(address)
	if err != nil {
		logger.L().Warnw("campaign_test_email_failed", "campaign_id", id, "error", err)
		return &appErrors.DeliveryError{Address: address, Err: err}
	}

	subject, body := RenderTemplate(tpl.Subject, tpl.Body, map[string]string{
		"sender_name":  actorName(actor),
		"company_name": s.OrgName,
		"email":        to,
	})
	if err := s.Mailer.Send(ctx, to, subject, body); err != nil {
		logger.L().Warnw("campaign_test_email_failed", "campaign_id", id, "error", err)
		return &appErrors.DeliveryError{Address: to, Err: err}
	}

	s.record(ctx, actor, activity.ActionTestEmail, c, fmt.Sprintf("Sent test email for campaign %s to %s", c.Name, to))
	return nil
}

// Summarize recomputes the stats from the recipient records.
func (s *CampaignService) Summarize(ctx context.Context, id int64) (Summary, error) {
	counts, err := s.RecipientRepo.Aggregate(ctx, id)
	if err != nil {
		return Summary{}, fmt.Errorf("aggregate recipients: %w", err)
	}
	return SummaryFromCounts(counts), nil
}

// CampaignStats is Summarize for an existing, non-deleted campaign.
func (s *CampaignService) CampaignStats(ctx context.Context, id int64) (Summary, error) {
	if _, err := s.getCampaign(ctx, id); err != nil {
		return Summary{}, err
	}
	return s.Summarize(ctx, id)
}

func actorName(actor *model.User) string {
	if actor == nil {
		return ""
	}
	return actor.Name
}
