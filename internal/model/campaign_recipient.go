// internal/model/campaign_recipient.go
package model

import "time"

type RecipientKind string

const (
    KindCustomer RecipientKind = "customer"
    KindLead     RecipientKind = "lead"
)

type RecipientStatus string

const (
    RecipientPending RecipientStatus = "pending"
    RecipientSent    RecipientStatus = "sent"
    RecipientOpened  RecipientStatus = "opened"
    RecipientClicked RecipientStatus = "clicked"
    RecipientFailed  RecipientStatus = "failed"
)

// RecipientStatuses lists every status a record can hold, in reporting order.
var RecipientStatuses = []RecipientStatus{
    RecipientPending,
    RecipientSent,
    RecipientOpened,
    RecipientClicked,
    RecipientFailed,
}

type CampaignRecipient struct {
    ID            int64           `db:"id" json:"id"`
    CampaignID    int64           `db:"campaign_id" json:"campaign_id"`
    RecipientType RecipientKind   `db:"recipient_type" json:"recipient_type"`
    RecipientID   int64           `db:"recipient_id" json:"recipient_id"`
    Status        RecipientStatus `db:"status" json:"status"`
    LastError     string          `db:"last_error" json:"last_error,omitempty"`
    SentAt        *time.Time      `db:"sent_at" json:"sent_at,omitempty"`
    OpenedAt      *time.Time      `db:"opened_at" json:"opened_at,omitempty"`
    ClickedAt     *time.Time      `db:"clicked_at" json:"clicked_at,omitempty"`
    CreatedAt     time.Time       `db:"created_at" json:"created_at"`
    UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}
