// internal/model/email_template.go
package model

import (
    "strings"
    "time"
)

type EmailTemplate struct {
    ID        int64     `db:"id" json:"id"`
    Name      string    `db:"name" json:"name"`
    Subject   string    `db:"subject" json:"subject"`
    Body      string    `db:"body" json:"body"`
    Category  string    `db:"category" json:"category"`
    IsActive  bool      `db:"is_active" json:"is_active"`
    CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Complete reports whether the template can be sent as-is.
func (t *EmailTemplate) Complete() bool {
    return strings.TrimSpace(t.Subject) != "" && strings.TrimSpace(t.Body) != ""
}
