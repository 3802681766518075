package repository

import (
	"database/sql"
	"log"

	"github.com/lib/pq"

	"github.com/unclebandit/bulksms-backend/internal/model"
)

// uniqueViolation is the Postgres error code raised by the unique
// index on (campaign_id, recipient, message).
const uniqueViolation = "23505"

type OutcomeRepositoryInterface interface {
	InsertIfAbsent(o *model.DispatchOutcome) (bool, error)
	Exists(campaignID int, recipient, message string) (bool, error)
	CountByStatus(campaignID int) (map[string]int, error)
	ListByCampaign(campaignID, offset, limit int) ([]model.DispatchOutcome, int, error)
}

type OutcomeRepository struct {
	DB *sql.DB
}

// InsertIfAbsent writes one outcome row. The unique index is the final
// arbiter: a collision means a previous attempt already recorded this
// exact (campaign, recipient, message) and the new result is dropped.
func (r *OutcomeRepository) InsertIfAbsent(o *model.DispatchOutcome) (bool, error) {
	query := `
        INSERT INTO dispatch_outcomes
        (campaign_id, recipient, message, status, response, created_by, updated_by, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING id
    `
	err := r.DB.QueryRow(query,
		o.CampaignID, o.Recipient, o.Message, o.Status, o.Response,
		o.CreatedBy, o.UpdatedBy, o.CreatedAt, o.UpdatedAt,
	).Scan(&o.ID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && string(pqErr.Code) == uniqueViolation {
			log.Printf("outcome already exists for campaign %d recipient %s, skipping", o.CampaignID, o.Recipient)
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *OutcomeRepository) Exists(campaignID int, recipient, message string) (bool, error) {
	query := `
        SELECT 1 FROM dispatch_outcomes
        WHERE campaign_id=$1 AND recipient=$2 AND message=$3
        LIMIT 1
    `
	var tmp int
	err := r.DB.QueryRow(query, campaignID, recipient, message).Scan(&tmp)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *OutcomeRepository) CountByStatus(campaignID int) (map[string]int, error) {
	query := `SELECT status, COUNT(*) FROM dispatch_outcomes WHERE campaign_id=$1 GROUP BY status`
	rows, err := r.DB.Query(query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int{model.OutcomeSent: 0, model.OutcomeFailed: 0}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// ListByCampaign pages through the per-recipient outcome rows, newest
// first, for the detail view and CSV export.
func (r *OutcomeRepository) ListByCampaign(campaignID, offset, limit int) ([]model.DispatchOutcome, int, error) {
	query := `
        SELECT id, campaign_id, recipient, message, status, response, created_by, updated_by, created_at, updated_at
        FROM dispatch_outcomes
        WHERE campaign_id=$1
        ORDER BY id DESC
        LIMIT $2 OFFSET $3
    `
	rows, err := r.DB.Query(query, campaignID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	outcomes := []model.DispatchOutcome{}
	for rows.Next() {
		var o model.DispatchOutcome
		if err := rows.Scan(&o.ID, &o.CampaignID, &o.Recipient, &o.Message, &o.Status,
			&o.Response, &o.CreatedBy, &o.UpdatedBy, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, 0, err
		}
		outcomes = append(outcomes, o)
	}

	var total int
	if err := r.DB.QueryRow(`SELECT COUNT(*) FROM dispatch_outcomes WHERE campaign_id=$1`, campaignID).Scan(&total); err != nil {
		return nil, 0, err
	}
	return outcomes, total, nil
}

var _ OutcomeRepositoryInterface = (*OutcomeRepository)(nil)
