package repository

import (
	"context"
	"database/sql"
	"time"

	dbstore "github.com/admbtski/miglee-sub001/internal/db/dbstore"
	"github.com/admbtski/miglee-sub001/internal/db/mapper"
	"github.com/admbtski/miglee-sub001/internal/domain"
)

var _ domain.InboxRepository = (*InboxRepo)(nil)

// InboxRepo persists per-recipient notifications, one row per (dedupe key, recipient).
type InboxRepo struct {
	q *dbstore.Queries
}

func NewInboxRepo(writeDB *sql.DB) *InboxRepo {
	return &InboxRepo{q: dbstore.New(writeDB)}
}

func (r *InboxRepo) Insert(ctx context.Context, n domain.Notification) (bool, error) {
	affected, err := r.q.InsertNotification(ctx, mapper.NotificationToDB(domain.NewID(), n, time.Now()))
	if err != nil {
		return false, mapDBError(err)
	}
	return affected > 0, nil
}

func (r *InboxRepo) ListForRecipient(ctx context.Context, recipientID string, page domain.PageRequest) ([]domain.Notification, int64, error) {
	total, err := r.q.CountNotificationsForRecipient(ctx, recipientID)
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.q.ListNotificationsForRecipient(ctx, dbstore.ListNotificationsForRecipientParams{
		RecipientID: recipientID,
		Limit:       int64(page.Limit()),
		Offset:      int64(page.Offset()),
	})
	if err != nil {
		return nil, 0, err
	}
	return mapper.NotificationsFromDB(rows), total, nil
}
