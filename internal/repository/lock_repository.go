package repository

import (
	"database/sql"
	"time"
)

// LockRepositoryInterface hands out the per-campaign execution lock.
// The lock is a Postgres row with a TTL: a crashed worker that never
// released simply leaves an expired row for the next run to take over.
type LockRepositoryInterface interface {
	Acquire(campaignID int, runID string, ttl time.Duration) (bool, error)
	Release(campaignID int, runID string) error
}

type LockRepository struct {
	DB *sql.DB
}

// Acquire takes the lock for campaignID unless a live lock is held by
// another run. The single upsert keeps check and take atomic.
func (r *LockRepository) Acquire(campaignID int, runID string, ttl time.Duration) (bool, error) {
	query := `
        INSERT INTO campaign_locks (campaign_id, run_id, expires_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (campaign_id) DO UPDATE
        SET run_id = EXCLUDED.run_id, expires_at = EXCLUDED.expires_at
        WHERE campaign_locks.expires_at < NOW()
    `
	res, err := r.DB.Exec(query, campaignID, runID, time.Now().Add(ttl))
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// Release drops the lock only when this run still owns it, so a run
// whose lock expired and was taken over cannot clear the new owner.
func (r *LockRepository) Release(campaignID int, runID string) error {
	_, err := r.DB.Exec(`DELETE FROM campaign_locks WHERE campaign_id=$1 AND run_id=$2`, campaignID, runID)
	return err
}

var _ LockRepositoryInterface = (*LockRepository)(nil)
