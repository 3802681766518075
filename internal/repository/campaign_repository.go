package repository

import (
    "database/sql"
    "encoding/json"
    "fmt"
    "time"

    appErrors "github.com/unclebandit/bulksms-backend/internal/errors"
    "github.com/unclebandit/bulksms-backend/internal/model"
)

type CampaignRepositoryInterface interface {
    Create(c *model.Campaign) error
    GetByID(id int) (*model.Campaign, error)
    ListCampaigns(offset, limit int, status, search string) ([]*model.Campaign, int, error)
    UpdateStatus(campaignID int, status string) error
    Delete(id int) error
    DueScheduled(now time.Time) ([]*model.Campaign, error)
}

type CampaignRepository struct {
    DB *sql.DB
}

const campaignColumns = `id, title, message, contact_type, recipient_contacts, csv_file_path,
        contact_group_ids, scheduled, schedule_date, status, contacts_count,
        created_by, updated_by, created_at, updated_at`

func (r *CampaignRepository) Create(c *model.Campaign) error {
    c.CreatedAt = time.Now()
    if c.Status == "" {
        c.Status = model.StatusProcessing
    }

    groupIDs, err := json.Marshal(c.ContactGroupIDs)
    if err != nil {
        return err
    }

    query := `
        INSERT INTO campaigns
        (title, message, contact_type, recipient_contacts, csv_file_path, contact_group_ids,
         scheduled, schedule_date, status, contacts_count, created_by, updated_by, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
        RETURNING id
    `
    return r.DB.QueryRow(query,
        c.Title, c.Message, c.ContactType, c.RecipientContacts, c.CsvFilePath, string(groupIDs),
        c.Scheduled, c.ScheduleDate, c.Status, c.ContactsCount, c.CreatedBy, c.UpdatedBy, c.CreatedAt,
    ).Scan(&c.ID)
}

func scanCampaign(row interface{ Scan(...any) error }) (*model.Campaign, error) {
    var c model.Campaign
    var groupIDs string
    err := row.Scan(
        &c.ID, &c.Title, &c.Message, &c.ContactType, &c.RecipientContacts, &c.CsvFilePath,
        &groupIDs, &c.Scheduled, &c.ScheduleDate, &c.Status, &c.ContactsCount,
        &c.CreatedBy, &c.UpdatedBy, &c.CreatedAt, &c.UpdatedAt,
    )
    if err != nil {
        return nil, err
    }
    if groupIDs != "" {
        if err := json.Unmarshal([]byte(groupIDs), &c.ContactGroupIDs); err != nil {
            return nil, err
        }
    }
    return &c, nil
}

func (r *CampaignRepository) GetByID(id int) (*model.Campaign, error) {
    query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id=$1`
    c, err := scanCampaign(r.DB.QueryRow(query, id))
    if err != nil {
        if err == sql.ErrNoRows {
            return nil, appErrors.NewCampaignNotFound(id)
        }
        return nil, err
    }
    return c, nil
}

func (r *CampaignRepository) ListCampaigns(offset, limit int, status, search string) ([]*model.Campaign, int, error) {
    campaigns := []*model.Campaign{}
    query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE 1=1`
    args := []interface{}{}
    argPos := 1

    if status != "" {
        query += fmt.Sprintf(" AND status=$%d", argPos)
        args = append(args, status)
        argPos++
    }
    if search != "" {
        query += fmt.Sprintf(" AND title ILIKE $%d", argPos)
        args = append(args, "%"+search+"%")
        argPos++
    }

    query += fmt.Sprintf(" ORDER BY id DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
    args = append(args, limit, offset)

    rows, err := r.DB.Query(query, args...)
    if err != nil {
        return nil, 0, err
    }
    defer rows.Close()

    for rows.Next() {
        c, err := scanCampaign(rows)
        if err != nil {
            return nil, 0, err
        }
        campaigns = append(campaigns, c)
    }

    // Count total
    countQuery := `SELECT COUNT(*) FROM campaigns WHERE 1=1`
    argsCount := []interface{}{}
    argPosCount := 1
    if status != "" {
        countQuery += fmt.Sprintf(" AND status=$%d", argPosCount)
        argsCount = append(argsCount, status)
        argPosCount++
    }
    if search != "" {
        countQuery += fmt.Sprintf(" AND title ILIKE $%d", argPosCount)
        argsCount = append(argsCount, "%"+search+"%")
    }

    var total int
    if err := r.DB.QueryRow(countQuery, argsCount...).Scan(&total); err != nil {
        return nil, 0, err
    }

    return campaigns, total, nil
}

func (r *CampaignRepository) UpdateStatus(campaignID int, status string) error {
    query := `UPDATE campaigns SET status=$1, updated_at=$2 WHERE id=$3`
    _, err := r.DB.Exec(query, status, time.Now(), campaignID)
    return err
}

// Delete removes a campaign. Callers enforce that only pre-dispatch
// campaigns are deletable.
func (r *CampaignRepository) Delete(id int) error {
    _, err := r.DB.Exec(`DELETE FROM campaigns WHERE id=$1`, id)
    return err
}

// DueScheduled returns scheduled campaigns whose send time has passed.
func (r *CampaignRepository) DueScheduled(now time.Time) ([]*model.Campaign, error) {
    query := `SELECT ` + campaignColumns + `
        FROM campaigns
        WHERE status=$1 AND scheduled=true AND schedule_date IS NOT NULL AND schedule_date <= $2
        ORDER BY schedule_date ASC`
    rows, err := r.DB.Query(query, model.StatusScheduled, now)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    campaigns := []*model.Campaign{}
    for rows.Next() {
        c, err := scanCampaign(rows)
        if err != nil {
            return nil, err
        }
        campaigns = append(campaigns, c)
    }
    return campaigns, rows.Err()
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
