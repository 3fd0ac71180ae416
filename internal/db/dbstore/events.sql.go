package dbstore

import (
	"context"
	"database/sql"
	"time"
)

const eventColumns = `id, dedupe_key, transition, group_id, user_id, actor_id, status, role, added_by_id, version, occurred_at, delivered_at, attempts, last_error`

type InsertEventParams struct {
	ID         string
	DedupeKey  string
	Transition string
	GroupID    string
	UserID     string
	ActorID    string
	Status     string
	Role       string
	AddedByID  sql.NullString
	Version    int64
	OccurredAt time.Time
}

const insertEvent = `INSERT INTO membership_events (id, dedupe_key, transition, group_id, user_id, actor_id, status, role, added_by_id, version, occurred_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertEvent(ctx context.Context, arg InsertEventParams) error {
	_, err := q.db.ExecContext(ctx, insertEvent,
		arg.ID, arg.DedupeKey, arg.Transition, arg.GroupID, arg.UserID, arg.ActorID,
		arg.Status, arg.Role, arg.AddedByID, arg.Version, arg.OccurredAt,
	)
	return err
}

const markEventDelivered = `UPDATE membership_events SET delivered_at = ?, attempts = attempts + 1, last_error = NULL WHERE id = ?`

func (q *Queries) MarkEventDelivered(ctx context.Context, at time.Time, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, markEventDelivered, at, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const markEventFailed = `UPDATE membership_events SET attempts = attempts + 1, last_error = ? WHERE id = ?`

func (q *Queries) MarkEventFailed(ctx context.Context, reason, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, markEventFailed, reason, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listUndeliveredEvents = `SELECT ` + eventColumns + ` FROM membership_events
WHERE delivered_at IS NULL AND attempts < ?
ORDER BY occurred_at, id
LIMIT ?`

func (q *Queries) ListUndeliveredEvents(ctx context.Context, maxAttempts, limit int64) ([]MembershipEvent, error) {
	rows, err := q.db.QueryContext(ctx, listUndeliveredEvents, maxAttempts, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []MembershipEvent
	for rows.Next() {
		var e MembershipEvent
		if err := rows.Scan(
			&e.ID, &e.DedupeKey, &e.Transition, &e.GroupID, &e.UserID, &e.ActorID, &e.Status,
			&e.Role, &e.AddedByID, &e.Version, &e.OccurredAt, &e.DeliveredAt, &e.Attempts, &e.LastError,
		); err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}
