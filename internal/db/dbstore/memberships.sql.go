package dbstore

import (
	"context"
	"database/sql"
	"time"
)

const membershipColumns = `id, group_id, user_id, role, status, joined_at, left_at, note, reject_reason, added_by_id, version, created_at, updated_at`

func scanMembership(row interface{ Scan(...interface{}) error }) (Membership, error) {
	var m Membership
	err := row.Scan(
		&m.ID, &m.GroupID, &m.UserID, &m.Role, &m.Status, &m.JoinedAt, &m.LeftAt,
		&m.Note, &m.RejectReason, &m.AddedByID, &m.Version, &m.CreatedAt, &m.UpdatedAt,
	)
	return m, err
}

func scanMemberships(rows *sql.Rows) ([]Membership, error) {
	defer rows.Close()
	var items []Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

const getMembership = `SELECT ` + membershipColumns + ` FROM memberships WHERE group_id = ? AND user_id = ?`

type GetMembershipParams struct {
	GroupID string
	UserID  string
}

func (q *Queries) GetMembership(ctx context.Context, arg GetMembershipParams) (Membership, error) {
	return scanMembership(q.db.QueryRowContext(ctx, getMembership, arg.GroupID, arg.UserID))
}

const countJoined = `SELECT count(*) FROM memberships WHERE group_id = ? AND status = 'JOINED'`

func (q *Queries) CountJoined(ctx context.Context, groupID string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countJoined, groupID).Scan(&n)
	return n, err
}

type InsertMembershipParams struct {
	ID           string
	GroupID      string
	UserID       string
	Role         string
	Status       string
	JoinedAt     sql.NullTime
	LeftAt       sql.NullTime
	Note         sql.NullString
	RejectReason sql.NullString
	AddedByID    sql.NullString
	CreatedAt    time.Time
}

const insertMembership = `INSERT INTO memberships (id, group_id, user_id, role, status, joined_at, left_at, note, reject_reason, added_by_id, version, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`

func (q *Queries) InsertMembership(ctx context.Context, arg InsertMembershipParams) (Membership, error) {
	if _, err := q.db.ExecContext(ctx, insertMembership,
		arg.ID, arg.GroupID, arg.UserID, arg.Role, arg.Status, arg.JoinedAt, arg.LeftAt,
		arg.Note, arg.RejectReason, arg.AddedByID, arg.CreatedAt, arg.CreatedAt,
	); err != nil {
		return Membership{}, err
	}
	return q.GetMembershipByID(ctx, arg.ID)
}

const getMembershipByID = `SELECT ` + membershipColumns + ` FROM memberships WHERE id = ?`

func (q *Queries) GetMembershipByID(ctx context.Context, id string) (Membership, error) {
	return scanMembership(q.db.QueryRowContext(ctx, getMembershipByID, id))
}

type UpdateMembershipParams struct {
	ID           string
	Role         string
	Status       string
	JoinedAt     sql.NullTime
	LeftAt       sql.NullTime
	Note         sql.NullString
	RejectReason sql.NullString
	AddedByID    sql.NullString
	UpdatedAt    time.Time
	Version      int64
}

const updateMembership = `UPDATE memberships
SET role = ?, status = ?, joined_at = ?, left_at = ?, note = ?, reject_reason = ?, added_by_id = ?,
    updated_at = ?, version = version + 1
WHERE id = ? AND version = ?`

// UpdateMembership writes the row only when its version still matches.
// It returns 0 rows affected when the version moved on.
func (q *Queries) UpdateMembership(ctx context.Context, arg UpdateMembershipParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateMembership,
		arg.Role, arg.Status, arg.JoinedAt, arg.LeftAt, arg.Note, arg.RejectReason, arg.AddedByID,
		arg.UpdatedAt, arg.ID, arg.Version,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const countMembers = `SELECT count(*) FROM memberships WHERE group_id = ? AND (? IS NULL OR status = ?)`

type CountMembersParams struct {
	GroupID string
	Status  sql.NullString
}

func (q *Queries) CountMembers(ctx context.Context, arg CountMembersParams) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countMembers, arg.GroupID, arg.Status, arg.Status).Scan(&n)
	return n, err
}

const listMembersPaginated = `SELECT ` + membershipColumns + ` FROM memberships
WHERE group_id = ? AND (? IS NULL OR status = ?)
ORDER BY created_at, id
LIMIT ? OFFSET ?`

type ListMembersPaginatedParams struct {
	GroupID string
	Status  sql.NullString
	Limit   int64
	Offset  int64
}

func (q *Queries) ListMembersPaginated(ctx context.Context, arg ListMembersPaginatedParams) ([]Membership, error) {
	rows, err := q.db.QueryContext(ctx, listMembersPaginated, arg.GroupID, arg.Status, arg.Status, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return scanMemberships(rows)
}

const listPrivileged = `SELECT ` + membershipColumns + ` FROM memberships
WHERE group_id = ? AND status = 'JOINED' AND role IN ('OWNER', 'MODERATOR')
ORDER BY created_at, id`

func (q *Queries) ListPrivileged(ctx context.Context, groupID string) ([]Membership, error) {
	rows, err := q.db.QueryContext(ctx, listPrivileged, groupID)
	if err != nil {
		return nil, err
	}
	return scanMemberships(rows)
}
