// internal/service/campaign_service.go
package service

import (
    "encoding/csv"
    "fmt"
    "io"
    "log"
    "strings"
    "time"

    appErrors "github.com/unclebandit/bulksms-backend/internal/errors"
    "github.com/unclebandit/bulksms-backend/internal/dispatch"
    "github.com/unclebandit/bulksms-backend/internal/model"
    "github.com/unclebandit/bulksms-backend/internal/queue"
    "github.com/unclebandit/bulksms-backend/internal/repository"
)

type CampaignService struct {
    CampaignRepo repository.CampaignRepositoryInterface
    ContactRepo  repository.ContactRepositoryInterface
    OutcomeRepo  repository.OutcomeRepositoryInterface
    Queue        queue.Queue
}

// CreateCampaignInput is the create command payload after transport
// decoding.
type CreateCampaignInput struct {
    Title             string
    Message           string
    ContactType       string
    RecipientContacts string
    CsvFilePath       string
    ContactGroupIDs   []int
    ScheduleDate      *string // RFC3339, future time means scheduled
    CreatedBy         int
}

type CampaignDetails struct {
    *model.Campaign
    Stats    map[string]int `json:"stats"`
    Progress float64        `json:"progress"`
}

// CreateCampaign validates that the source payload matches the contact
// type, stores the campaign and triggers dispatch (immediately, or
// leaves it for the scheduler when a future send time is set).
func (s *CampaignService) CreateCampaign(in CreateCampaignInput) (*model.Campaign, error) {
    if strings.TrimSpace(in.Title) == "" {
        return nil, fmt.Errorf("title is required")
    }
    if strings.TrimSpace(in.Message) == "" {
        return nil, fmt.Errorf("message is required")
    }

    actor := in.CreatedBy
    if actor == 0 {
        actor = model.SystemUserID
    }

    c := &model.Campaign{
        Title:             in.Title,
        Message:           in.Message,
        ContactType:       in.ContactType,
        RecipientContacts: in.RecipientContacts,
        CsvFilePath:       in.CsvFilePath,
        ContactGroupIDs:   in.ContactGroupIDs,
        CreatedBy:         actor,
        UpdatedBy:         actor,
        Status:            model.StatusProcessing,
    }

    switch in.ContactType {
    case model.SourceManual:
        if strings.TrimSpace(in.RecipientContacts) == "" {
            return nil, appErrors.NewInvalidSource("manual campaign needs recipient contacts")
        }
        c.ContactsCount = countManualTokens(in.RecipientContacts)
    case model.SourceCsv:
        if strings.TrimSpace(in.CsvFilePath) == "" {
            return nil, appErrors.NewInvalidSource("csv campaign needs an uploaded file")
        }
    case model.SourceList:
        if len(in.ContactGroupIDs) == 0 {
            return nil, appErrors.NewInvalidSource("list campaign needs at least one contact group")
        }
        count, err := s.ContactRepo.CountActiveEntries(in.ContactGroupIDs)
        if err != nil {
            return nil, err
        }
        c.ContactsCount = count
    default:
        return nil, appErrors.NewInvalidSource(fmt.Sprintf("unknown contact type %q", in.ContactType))
    }

    if in.ScheduleDate != nil && strings.TrimSpace(*in.ScheduleDate) != "" {
        t, err := time.Parse(time.RFC3339, *in.ScheduleDate)
        if err != nil {
            return nil, fmt.Errorf("invalid schedule_date: %w", err)
        }
        if t.After(time.Now()) {
            c.Scheduled = true
            c.ScheduleDate = &t
            c.Status = model.StatusScheduled
        }
    }

    if err := s.CampaignRepo.Create(c); err != nil {
        return nil, err
    }

    if c.Status != model.StatusScheduled {
        if err := s.TriggerDispatch(c.ID); err != nil {
            // campaign is stored, the trigger can be re-fired
            log.Println("⚠️ failed to enqueue dispatch for campaign", c.ID, ":", err)
        }
    }

    return c, nil
}

func countManualTokens(raw string) int {
    count := 0
    for _, tok := range strings.Split(raw, ",") {
        if strings.TrimSpace(tok) != "" {
            count++
        }
    }
    return count
}

// TriggerDispatch publishes a dispatch job for the campaign. Safe to
// call more than once: the runner's lock and the outcome unique index
// absorb duplicate triggers.
func (s *CampaignService) TriggerDispatch(campaignID int) error {
    return s.Queue.Publish(queue.DispatchQueue, queue.DispatchJob{CampaignID: campaignID})
}

// ListCampaigns fetches campaigns with pagination
func (s *CampaignService) ListCampaigns(page, pageSize int, status, search string) ([]model.Campaign, map[string]int, error) {
    if page < 1 {
        page = 1
    }
    if pageSize < 1 {
        pageSize = 20
    }
    if pageSize > 100 {
        pageSize = 100
    }
    offset := (page - 1) * pageSize

    ptrs, total, err := s.CampaignRepo.ListCampaigns(offset, pageSize, status, search)
    if err != nil {
        return nil, nil, err
    }

    campaigns := make([]model.Campaign, len(ptrs))
    for i, c := range ptrs {
        campaigns[i] = *c
    }

    totalPages := (total + pageSize - 1) / pageSize
    pagination := map[string]int{
        "page":        page,
        "page_size":   pageSize,
        "total_count": total,
        "total_pages": totalPages,
    }

    return campaigns, pagination, nil
}

// GetCampaignDetails returns the campaign with its per-status outcome
// counts and a progress fraction against the recipient estimate.
func (s *CampaignService) GetCampaignDetails(campaignID int) (*CampaignDetails, error) {
    campaign, err := s.CampaignRepo.GetByID(campaignID)
    if err != nil {
        return nil, err
    }

    counts, err := s.OutcomeRepo.CountByStatus(campaignID)
    if err != nil {
        return nil, err
    }

    stats := map[string]int{
        "total":  counts[model.OutcomeSent] + counts[model.OutcomeFailed],
        "sent":   counts[model.OutcomeSent],
        "failed": counts[model.OutcomeFailed],
    }

    progress := 0.0
    if campaign.ContactsCount > 0 {
        progress = float64(stats["total"]) / float64(campaign.ContactsCount)
        if progress > 1 {
            progress = 1
        }
    }

    return &CampaignDetails{Campaign: campaign, Stats: stats, Progress: progress}, nil
}

// ListOutcomes returns the per-recipient rows for the detail view.
func (s *CampaignService) ListOutcomes(campaignID, page, pageSize int) ([]model.DispatchOutcome, map[string]int, error) {
    if page < 1 {
        page = 1
    }
    if pageSize < 1 {
        pageSize = 50
    }
    if pageSize > 500 {
        pageSize = 500
    }
    offset := (page - 1) * pageSize

    outcomes, total, err := s.OutcomeRepo.ListByCampaign(campaignID, offset, pageSize)
    if err != nil {
        return nil, nil, err
    }

    pagination := map[string]int{
        "page":        page,
        "page_size":   pageSize,
        "total_count": total,
    }
    return outcomes, pagination, nil
}

// ExportOutcomesCSV streams every outcome row of a campaign as CSV.
func (s *CampaignService) ExportOutcomesCSV(campaignID int, w io.Writer) error {
    cw := csv.NewWriter(w)
    if err := cw.Write([]string{"Recipient", "Message", "Status", "Response", "Created At"}); err != nil {
        return err
    }

    const pageSize = 500
    for page := 1; ; page++ {
        outcomes, _, err := s.OutcomeRepo.ListByCampaign(campaignID, (page-1)*pageSize, pageSize)
        if err != nil {
            return err
        }
        if len(outcomes) == 0 {
            break
        }
        for _, o := range outcomes {
            if err := cw.Write([]string{
                o.Recipient, o.Message, o.Status, o.Response,
                o.CreatedAt.Format("2006-01-02 15:04:05"),
            }); err != nil {
                return err
            }
        }
        if len(outcomes) < pageSize {
            break
        }
    }

    cw.Flush()
    return cw.Error()
}

// CancelCampaign marks a campaign cancelled. The runner notices at its
// next batch boundary and stops; recorded outcomes stay final.
func (s *CampaignService) CancelCampaign(campaignID int) error {
    campaign, err := s.CampaignRepo.GetByID(campaignID)
    if err != nil {
        return err
    }
    if campaign.Terminal() {
        return fmt.Errorf("campaign is already %s", campaign.Status)
    }
    return s.CampaignRepo.UpdateStatus(campaignID, model.StatusCancelled)
}

// DeleteCampaign removes a campaign while it is still pre-dispatch
// (scheduled, or processing with nothing recorded yet).
func (s *CampaignService) DeleteCampaign(campaignID int) error {
    campaign, err := s.CampaignRepo.GetByID(campaignID)
    if err != nil {
        return err
    }

    switch campaign.Status {
    case model.StatusScheduled:
        // fine
    case model.StatusProcessing:
        counts, err := s.OutcomeRepo.CountByStatus(campaignID)
        if err != nil {
            return err
        }
        if counts[model.OutcomeSent]+counts[model.OutcomeFailed] > 0 {
            return fmt.Errorf("campaign has recorded outcomes and cannot be deleted")
        }
    default:
        return fmt.Errorf("campaign in status %s cannot be deleted", campaign.Status)
    }

    return s.CampaignRepo.Delete(campaignID)
}

// PreviewMessage renders a template against an ad-hoc context without
// sending anything.
func (s *CampaignService) PreviewMessage(template string, context map[string]string) (string, error) {
    if strings.TrimSpace(template) == "" {
        return "", fmt.Errorf("template cannot be empty")
    }
    return dispatch.Render(template, context), nil
}

// ListContactGroups exposes the saved-audience read model.
func (s *CampaignService) ListContactGroups() ([]model.ContactGroup, error) {
    return s.ContactRepo.ListGroups()
}
