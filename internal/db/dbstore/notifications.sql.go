package dbstore

import (
	"context"
	"time"
)

type InsertNotificationParams struct {
	ID          string
	DedupeKey   string
	RecipientID string
	Topic       string
	Transition  string
	GroupID     string
	UserID      string
	ActorID     string
	Status      string
	Role        string
	OccurredAt  time.Time
	CreatedAt   time.Time
}

const insertNotification = `INSERT INTO notifications (id, dedupe_key, recipient_id, topic, transition, group_id, user_id, actor_id, status, role, occurred_at, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (dedupe_key, recipient_id) DO NOTHING`

// InsertNotification returns 0 when (dedupe_key, recipient_id) already exists.
func (q *Queries) InsertNotification(ctx context.Context, arg InsertNotificationParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, insertNotification,
		arg.ID, arg.DedupeKey, arg.RecipientID, arg.Topic, arg.Transition, arg.GroupID,
		arg.UserID, arg.ActorID, arg.Status, arg.Role, arg.OccurredAt, arg.CreatedAt,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const countNotificationsForRecipient = `SELECT count(*) FROM notifications WHERE recipient_id = ?`

func (q *Queries) CountNotificationsForRecipient(ctx context.Context, recipientID string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countNotificationsForRecipient, recipientID).Scan(&n)
	return n, err
}

const listNotificationsForRecipient = `SELECT id, dedupe_key, recipient_id, topic, transition, group_id, user_id, actor_id, status, role, occurred_at, created_at
FROM notifications
WHERE recipient_id = ?
ORDER BY created_at, id
LIMIT ? OFFSET ?`

type ListNotificationsForRecipientParams struct {
	RecipientID string
	Limit       int64
	Offset      int64
}

func (q *Queries) ListNotificationsForRecipient(ctx context.Context, arg ListNotificationsForRecipientParams) ([]Notification, error) {
	rows, err := q.db.QueryContext(ctx, listNotificationsForRecipient, arg.RecipientID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(
			&n.ID, &n.DedupeKey, &n.RecipientID, &n.Topic, &n.Transition, &n.GroupID,
			&n.UserID, &n.ActorID, &n.Status, &n.Role, &n.OccurredAt, &n.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	return items, rows.Err()
}
