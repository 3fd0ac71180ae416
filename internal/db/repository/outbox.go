package repository

import (
	"context"
	"database/sql"
	"time"

	dbstore "github.com/admbtski/miglee-sub001/internal/db/dbstore"
	"github.com/admbtski/miglee-sub001/internal/db/mapper"
	"github.com/admbtski/miglee-sub001/internal/domain"
)

var _ domain.EventOutbox = (*OutboxRepo)(nil)

// OutboxRepo tracks delivery of membership_events rows written by MembershipStore.
type OutboxRepo struct {
	q *dbstore.Queries
}

func NewOutboxRepo(writeDB *sql.DB) *OutboxRepo {
	return &OutboxRepo{q: dbstore.New(writeDB)}
}

func (r *OutboxRepo) MarkDelivered(ctx context.Context, eventID string, at time.Time) error {
	n, err := r.q.MarkEventDelivered(ctx, at.UTC(), eventID)
	if err != nil {
		return mapDBError(err)
	}
	if n == 0 {
		return domain.ErrNotFound("eventId", "event %q not found", eventID)
	}
	return nil
}

func (r *OutboxRepo) MarkFailed(ctx context.Context, eventID string, reason string) error {
	n, err := r.q.MarkEventFailed(ctx, reason, eventID)
	if err != nil {
		return mapDBError(err)
	}
	if n == 0 {
		return domain.ErrNotFound("eventId", "event %q not found", eventID)
	}
	return nil
}

// ListUndelivered returns the oldest undelivered events that have been
// attempted fewer than maxAttempts times.
func (r *OutboxRepo) ListUndelivered(ctx context.Context, maxAttempts, limit int) ([]domain.TransitionCommitted, error) {
	rows, err := r.q.ListUndeliveredEvents(ctx, int64(maxAttempts), int64(limit))
	if err != nil {
		return nil, err
	}
	return mapper.EventsFromDB(rows), nil
}
