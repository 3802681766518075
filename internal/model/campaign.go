// internal/model/campaign.go
package model

import "time"

// Campaign statuses. A campaign starts at processing (or scheduled when
// a future send time is set) and ends in exactly one terminal status.
const (
    StatusScheduled  = "scheduled"
    StatusProcessing = "processing"
    StatusSending    = "sending"
    StatusSent       = "sent"
    StatusFailed     = "failed"
    StatusCancelled  = "cancelled"
    StatusError      = "error"
    StatusPartial    = "partial"
)

// Contact source kinds.
const (
    SourceManual = "manual"
    SourceCsv    = "csv"
    SourceList   = "list"
)

// SystemUserID is the audit actor recorded when no authenticated user
// is attached to a request. Matches the column defaults in the schema.
const SystemUserID = 1

type Campaign struct {
    ID                int        `db:"id" json:"id"`
    Title             string     `db:"title" json:"title"`
    Message           string     `db:"message" json:"message"`
    ContactType       string     `db:"contact_type" json:"contact_type"`
    RecipientContacts string     `db:"recipient_contacts" json:"recipient_contacts,omitempty"`
    CsvFilePath       string     `db:"csv_file_path" json:"csv_file_path,omitempty"`
    ContactGroupIDs   []int      `db:"contact_group_ids" json:"contact_group_ids,omitempty"`
    Scheduled         bool       `db:"scheduled" json:"scheduled"`
    ScheduleDate      *time.Time `db:"schedule_date" json:"schedule_date,omitempty"`
    Status            string     `db:"status" json:"status"`
    ContactsCount     int        `db:"contacts_count" json:"contacts_count"`
    CreatedBy         int        `db:"created_by" json:"created_by"`
    UpdatedBy         int        `db:"updated_by" json:"updated_by"`
    CreatedAt         time.Time  `db:"created_at" json:"created_at"`
    UpdatedAt         *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

// Terminal reports whether the campaign can no longer be dispatched.
func (c *Campaign) Terminal() bool {
    switch c.Status {
    case StatusSent, StatusFailed, StatusCancelled, StatusError, StatusPartial:
        return true
    }
    return false
}
