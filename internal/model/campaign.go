// internal/model/campaign.go
package model

import "time"

type CampaignStatus string

const (
    CampaignDraft     CampaignStatus = "draft"
    CampaignRunning   CampaignStatus = "running"
    CampaignCompleted CampaignStatus = "completed"
)

type Campaign struct {
    ID          int64          `db:"id" json:"id"`
    Name        string         `db:"name" json:"name"`
    Description string         `db:"description" json:"description,omitempty"`
    Type        string         `db:"type" json:"type"`
    Subject     string         `db:"subject" json:"subject,omitempty"`
    Body        string         `db:"body" json:"body,omitempty"`
    TemplateID  int64          `db:"template_id" json:"email_template"`
    CustomerIDs []int64        `db:"customer_ids" json:"customers"`
    LeadIDs     []int64        `db:"lead_ids" json:"leads"`
    IsScheduled bool           `db:"is_scheduled" json:"is_scheduled"`
    ScheduledAt *time.Time     `db:"scheduled_at" json:"scheduled_at,omitempty"`
    Status      CampaignStatus `db:"status" json:"status"`
    CreatedBy   int64          `db:"created_by" json:"created_by"`
    StartedAt   *time.Time     `db:"started_at" json:"started_at,omitempty"`
    CompletedAt *time.Time     `db:"completed_at" json:"completed_at,omitempty"`
    IsDeleted   bool           `db:"is_deleted" json:"-"`
    CreatedAt   time.Time      `db:"created_at" json:"created_at"`
    UpdatedAt   *time.Time     `db:"updated_at" json:"updated_at,omitempty"`
}

// CampaignFilter narrows ListCampaigns. Nil IsScheduled means "any".
type CampaignFilter struct {
    Status      string
    IsScheduled *bool
    Search      string
}
