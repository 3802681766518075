// internal/model/contact_group.go
package model

import "time"

// ContactGroup is a saved audience a campaign can be sent to. Only
// active groups (and their active entries) are eligible for dispatch.
type ContactGroup struct {
    ID        int        `db:"id" json:"id"`
    Title     string     `db:"title" json:"title"`
    IsActive  bool       `db:"is_active" json:"is_active"`
    CreatedBy int        `db:"created_by" json:"created_by"`
    UpdatedBy int        `db:"updated_by" json:"updated_by"`
    CreatedAt time.Time  `db:"created_at" json:"created_at"`
    UpdatedAt *time.Time `db:"updated_at" json:"updated_at,omitempty"`

    // EntriesCount is the number of active entries, filled by queries
    // that join against contact_entries.
    EntriesCount int `db:"entries_count" json:"entries_count"`
}

// ContactEntry is a single phone number inside a ContactGroup.
type ContactEntry struct {
    ID        int    `db:"id" json:"id"`
    GroupID   int    `db:"contact_group_id" json:"contact_group_id"`
    Name      string `db:"name" json:"name"`
    Telephone string `db:"telephone" json:"telephone"`
    IsActive  bool   `db:"is_active" json:"is_active"`
}
