// Package notification delivers committed membership transitions to their
// recipients. Delivery is at-least-once; the dedupe key carried by every
// notification lets sinks collapse repeats.
package notification

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/admbtski/miglee-sub001/internal/domain"
)

// Topic returns the topic a transition is published under.
func Topic(t domain.Transition) string {
	return "membership." + strings.ToLower(string(t))
}

// NotificationFor builds the recipient's copy of a committed transition.
func NotificationFor(e domain.TransitionCommitted, recipientID string) domain.Notification {
	return domain.Notification{
		DedupeKey:   e.DedupeKey(),
		Topic:       Topic(e.Transition),
		RecipientID: recipientID,
		Transition:  e.Transition,
		GroupID:     e.GroupID,
		UserID:      e.UserID,
		ActorID:     e.ActorID,
		Status:      e.Status,
		Role:        e.Role,
		OccurredAt:  e.OccurredAt,
	}
}

// Emitter resolves recipients for a committed transition and publishes one
// notification per recipient. It records the outcome in the outbox so the
// relay can retry failed deliveries.
type Emitter struct {
	members   domain.MembershipQueries
	groups    domain.GroupRepository
	publisher domain.Publisher
	outbox    domain.EventOutbox
	now       domain.Clock
	logger    *slog.Logger
}

// NewEmitter creates an Emitter. outbox may be nil when delivery state is not tracked.
func NewEmitter(
	members domain.MembershipQueries,
	groups domain.GroupRepository,
	publisher domain.Publisher,
	outbox domain.EventOutbox,
	now domain.Clock,
	logger *slog.Logger,
) *Emitter {
	if now == nil {
		now = time.Now
	}
	return &Emitter{
		members:   members,
		groups:    groups,
		publisher: publisher,
		outbox:    outbox,
		now:       now,
		logger:    logger.With("component", "notification-emitter"),
	}
}

// Recipients returns the users to notify about e.
func (e *Emitter) Recipients(ctx context.Context, ev domain.TransitionCommitted) ([]string, error) {
	switch ev.Transition {
	case domain.TransitionJoinRequested, domain.TransitionJoined:
		privileged, err := e.members.ListPrivileged(ctx, ev.GroupID)
		if err != nil {
			return nil, fmt.Errorf("list moderators: %w", err)
		}
		ids := make([]string, 0, len(privileged))
		for _, m := range privileged {
			if m.UserID != ev.UserID {
				ids = append(ids, m.UserID)
			}
		}
		return ids, nil
	case domain.TransitionInvited, domain.TransitionApproved, domain.TransitionRejected,
		domain.TransitionKicked, domain.TransitionRoleChanged, domain.TransitionBanned:
		return []string{ev.UserID}, nil
	case domain.TransitionInviteAccepted:
		if ev.AddedByID != nil && *ev.AddedByID != ev.UserID {
			return []string{*ev.AddedByID}, nil
		}
		g, err := e.groups.GetByID(ctx, ev.GroupID)
		if err != nil {
			return nil, fmt.Errorf("load group owner: %w", err)
		}
		return []string{g.OwnerID}, nil
	case domain.TransitionRequestCancelled, domain.TransitionLeft:
		return nil, nil
	}
	return nil, fmt.Errorf("unknown transition %q", ev.Transition)
}

// Deliver publishes ev to every recipient and stops at the first failure.
func (e *Emitter) Deliver(ctx context.Context, ev domain.TransitionCommitted) error {
	recipients, err := e.Recipients(ctx, ev)
	if err != nil {
		return err
	}
	for _, r := range recipients {
		if err := e.publisher.Publish(ctx, NotificationFor(ev, r)); err != nil {
			return fmt.Errorf("publish %s to %s: %w", ev.DedupeKey(), r, err)
		}
	}
	return nil
}

// Dispatch delivers ev and records the result. Failures are logged and left
// for the relay; they never reach the caller.
func (e *Emitter) Dispatch(ctx context.Context, ev domain.TransitionCommitted) {
	_ = e.Redeliver(ctx, ev)
}

// Redeliver delivers ev and records the result, returning the delivery error.
func (e *Emitter) Redeliver(ctx context.Context, ev domain.TransitionCommitted) error {
	err := e.Deliver(ctx, ev)
	if err != nil {
		e.logger.Warn("notification delivery failed",
			"event_id", ev.ID, "dedupe_key", ev.DedupeKey(), "error", err)
		if e.outbox != nil {
			if mErr := e.outbox.MarkFailed(ctx, ev.ID, err.Error()); mErr != nil {
				e.logger.Warn("record delivery failure", "event_id", ev.ID, "error", mErr)
			}
		}
		return err
	}
	if e.outbox != nil {
		if mErr := e.outbox.MarkDelivered(ctx, ev.ID, e.now()); mErr != nil {
			e.logger.Warn("record delivery", "event_id", ev.ID, "error", mErr)
		}
	}
	return nil
}
