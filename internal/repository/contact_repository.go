package repository

import (
	"database/sql"

	"github.com/lib/pq"

	"github.com/unclebandit/bulksms-backend/internal/model"
)

// ContactRepositoryInterface is the read model over saved contact
// groups. Contact CRUD lives in another service; dispatch only ever
// reads active rows.
type ContactRepositoryInterface interface {
	ListGroups() ([]model.ContactGroup, error)
	GetGroup(id int) (*model.ContactGroup, error)
	ActiveGroupIDs(ids []int) ([]int, error)
	ActiveEntriesChunk(groupID, afterID, limit int) ([]model.ContactEntry, error)
	CountActiveEntries(groupIDs []int) (int, error)
}

type ContactRepository struct {
	DB *sql.DB
}

// ListGroups returns every active group with its active entry count.
func (r *ContactRepository) ListGroups() ([]model.ContactGroup, error) {
	query := `
        SELECT g.id, g.title, g.is_active, g.created_by, g.updated_by, g.created_at, g.updated_at,
               COUNT(e.id) FILTER (WHERE e.is_active) AS entries_count
        FROM contact_groups g
        LEFT JOIN contact_entries e ON e.contact_group_id = g.id
        WHERE g.is_active
        GROUP BY g.id
        ORDER BY g.title
    `
	rows, err := r.DB.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	groups := []model.ContactGroup{}
	for rows.Next() {
		var g model.ContactGroup
		if err := rows.Scan(&g.ID, &g.Title, &g.IsActive, &g.CreatedBy, &g.UpdatedBy,
			&g.CreatedAt, &g.UpdatedAt, &g.EntriesCount); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (r *ContactRepository) GetGroup(id int) (*model.ContactGroup, error) {
	query := `
        SELECT id, title, is_active, created_by, updated_by, created_at, updated_at
        FROM contact_groups WHERE id=$1
    `
	var g model.ContactGroup
	err := r.DB.QueryRow(query, id).Scan(&g.ID, &g.Title, &g.IsActive,
		&g.CreatedBy, &g.UpdatedBy, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &g, nil
}

// ActiveGroupIDs filters the requested ids down to groups that exist
// and are active, preserving request order via the query's ORDER BY.
func (r *ContactRepository) ActiveGroupIDs(ids []int) ([]int, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT id FROM contact_groups WHERE id = ANY($1) AND is_active ORDER BY id`
	rows, err := r.DB.Query(query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var active []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		active = append(active, id)
	}
	return active, rows.Err()
}

// ActiveEntriesChunk pages through a group's active entries by id so a
// large group is never loaded in one go.
func (r *ContactRepository) ActiveEntriesChunk(groupID, afterID, limit int) ([]model.ContactEntry, error) {
	query := `
        SELECT id, contact_group_id, name, telephone, is_active
        FROM contact_entries
        WHERE contact_group_id=$1 AND is_active AND id > $2
        ORDER BY id
        LIMIT $3
    `
	rows, err := r.DB.Query(query, groupID, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []model.ContactEntry{}
	for rows.Next() {
		var e model.ContactEntry
		if err := rows.Scan(&e.ID, &e.GroupID, &e.Name, &e.Telephone, &e.IsActive); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountActiveEntries gives the recipient estimate for list campaigns.
func (r *ContactRepository) CountActiveEntries(groupIDs []int) (int, error) {
	if len(groupIDs) == 0 {
		return 0, nil
	}
	query := `
        SELECT COUNT(*)
        FROM contact_entries e
        JOIN contact_groups g ON g.id = e.contact_group_id
        WHERE e.contact_group_id = ANY($1) AND e.is_active AND g.is_active
    `
	var count int
	err := r.DB.QueryRow(query, pq.Array(groupIDs)).Scan(&count)
	return count, err
}

var _ ContactRepositoryInterface = (*ContactRepository)(nil)
