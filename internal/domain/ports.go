package domain

import (
	"context"
	"time"
)

// Notification is one recipient's copy of a committed transition.
type Notification struct {
	DedupeKey   string
	Topic       string
	RecipientID string
	Transition  Transition
	GroupID     string
	UserID      string
	ActorID     string
	Status      Status
	Role        Role
	OccurredAt  time.Time
}

// Publisher delivers notifications. Delivery is at-least-once; consumers
// collapse duplicates on (DedupeKey, RecipientID).
type Publisher interface {
	Publish(ctx context.Context, n Notification) error
}

// Clock returns the current time. Injected so time gates are testable.
type Clock func() time.Time

// ReapplyPolicy decides whether a prior rejection blocks a new join request.
type ReapplyPolicy interface {
	BlocksReapplyAfterReject(g GroupKind) bool
}
