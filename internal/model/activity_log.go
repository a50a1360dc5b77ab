// internal/model/activity_log.go
package model

import "time"

type ActivityLog struct {
    ID          int64     `db:"id" json:"id"`
    UserID      int64     `db:"user_id" json:"user_id"`
    Action      string    `db:"action" json:"action"`
    Module      string    `db:"module" json:"module"`
    ReferenceID int64     `db:"reference_id" json:"reference_id"`
    Description string    `db:"description" json:"description"`
    CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
