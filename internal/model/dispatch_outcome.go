// internal/model/dispatch_outcome.go
package model

import "time"

// Outcome statuses for a single recipient attempt.
const (
    OutcomeSent   = "sent"
    OutcomeFailed = "failed"
)

// DispatchOutcome records one attempt to deliver one rendered message
// to one recipient. The triple (campaign_id, recipient, message) is
// unique: a retry of the same pair is skipped, never overwritten.
type DispatchOutcome struct {
    ID         int       `db:"id" json:"id"`
    CampaignID int       `db:"campaign_id" json:"campaign_id"`
    Recipient  string    `db:"recipient" json:"recipient"`
    Message    string    `db:"message" json:"message"`
    Status     string    `db:"status" json:"status"`
    Response   string    `db:"response" json:"response"`
    CreatedBy  int       `db:"created_by" json:"created_by"`
    UpdatedBy  int       `db:"updated_by" json:"updated_by"`
    CreatedAt  time.Time `db:"created_at" json:"created_at"`
    UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}
