package dbstore

import (
	"context"
	"database/sql"
	"time"
)

const groupColumns = `id, kind, title, owner_id, min_participants, max_participants, allow_join_late, join_mode, start_at, canceled_at, deleted_at, created_at`

func scanGroup(row interface{ Scan(...interface{}) error }) (Group, error) {
	var g Group
	err := row.Scan(
		&g.ID, &g.Kind, &g.Title, &g.OwnerID, &g.MinParticipants, &g.MaxParticipants,
		&g.AllowJoinLate, &g.JoinMode, &g.StartAt, &g.CanceledAt, &g.DeletedAt, &g.CreatedAt,
	)
	return g, err
}

type CreateGroupParams struct {
	ID              string
	Kind            string
	Title           string
	OwnerID         string
	MinParticipants int64
	MaxParticipants sql.NullInt64
	AllowJoinLate   int64
	JoinMode        string
	StartAt         time.Time
	CreatedAt       time.Time
}

const createGroup = `INSERT INTO groups (id, kind, title, owner_id, min_participants, max_participants, allow_join_late, join_mode, start_at, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateGroup(ctx context.Context, arg CreateGroupParams) (Group, error) {
	if _, err := q.db.ExecContext(ctx, createGroup,
		arg.ID, arg.Kind, arg.Title, arg.OwnerID, arg.MinParticipants, arg.MaxParticipants,
		arg.AllowJoinLate, arg.JoinMode, arg.StartAt, arg.CreatedAt,
	); err != nil {
		return Group{}, err
	}
	return q.GetGroup(ctx, arg.ID)
}

const getGroup = `SELECT ` + groupColumns + ` FROM groups WHERE id = ?`

func (q *Queries) GetGroup(ctx context.Context, id string) (Group, error) {
	return scanGroup(q.db.QueryRowContext(ctx, getGroup, id))
}

const cancelGroup = `UPDATE groups SET canceled_at = ? WHERE id = ? AND canceled_at IS NULL`

// CancelGroup returns the number of rows changed; 0 when already cancelled or missing.
func (q *Queries) CancelGroup(ctx context.Context, at time.Time, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, cancelGroup, at, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const softDeleteGroup = `UPDATE groups SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`

func (q *Queries) SoftDeleteGroup(ctx context.Context, at time.Time, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, softDeleteGroup, at, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
