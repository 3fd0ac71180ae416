package notification

import (
	"context"
	"errors"
	"log/slog"

	"github.com/admbtski/miglee-sub001/internal/domain"
)

// LogPublisher writes notifications to the structured log.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.With("component", "notification-log")}
}

func (p *LogPublisher) Publish(ctx context.Context, n domain.Notification) error {
	p.logger.InfoContext(ctx, "notification",
		"topic", n.Topic,
		"recipient", n.RecipientID,
		"dedupe_key", n.DedupeKey,
		"group_id", n.GroupID,
		"user_id", n.UserID,
	)
	return nil
}

// InboxPublisher stores notifications in the inbox table. A repeated
// (dedupe key, recipient) pair is accepted and ignored.
type InboxPublisher struct {
	inbox  domain.InboxRepository
	logger *slog.Logger
}

func NewInboxPublisher(inbox domain.InboxRepository, logger *slog.Logger) *InboxPublisher {
	return &InboxPublisher{inbox: inbox, logger: logger.With("component", "notification-inbox")}
}

func (p *InboxPublisher) Publish(ctx context.Context, n domain.Notification) error {
	inserted, err := p.inbox.Insert(ctx, n)
	if err != nil {
		return err
	}
	if !inserted {
		p.logger.Debug("duplicate notification collapsed", "dedupe_key", n.DedupeKey, "recipient", n.RecipientID)
	}
	return nil
}

// MultiPublisher publishes to every sink and joins their errors.
type MultiPublisher []domain.Publisher

func (m MultiPublisher) Publish(ctx context.Context, n domain.Notification) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
