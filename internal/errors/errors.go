package appErrors

import (
	"fmt"
	"strings"
)

// ErrCampaignNotFound is a sentinel error
type ErrCampaignNotFound struct {
	CampaignID int
}

func (e *ErrCampaignNotFound) Error() string {
	return fmt.Sprintf("campaign with ID %d not found", e.CampaignID)
}

// Helper constructor
func NewCampaignNotFound(id int) error {
	return &ErrCampaignNotFound{CampaignID: id}
}

// ErrNoPhoneColumn means a CSV source has no recognized phone column.
// Fatal for the whole run.
type ErrNoPhoneColumn struct {
	Headers []string
}

func (e *ErrNoPhoneColumn) Error() string {
	return fmt.Sprintf("no valid contact column found, available headers: %s", strings.Join(e.Headers, ", "))
}

func NewNoPhoneColumn(headers []string) error {
	return &ErrNoPhoneColumn{Headers: headers}
}

// ErrSourceFileMissing means the uploaded CSV referenced by a campaign
// is gone from storage. Fatal for the whole run.
type ErrSourceFileMissing struct {
	Path string
}

func (e *ErrSourceFileMissing) Error() string {
	return fmt.Sprintf("source file not found: %s", e.Path)
}

func NewSourceFileMissing(path string) error {
	return &ErrSourceFileMissing{Path: path}
}

// ErrInvalidSource means a campaign's contact source payload does not
// match its contact type (e.g. csv campaign without a file path).
type ErrInvalidSource struct {
	Reason string
}

func (e *ErrInvalidSource) Error() string {
	return "invalid contact source: " + e.Reason
}

func NewInvalidSource(reason string) error {
	return &ErrInvalidSource{Reason: reason}
}
