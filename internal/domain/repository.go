package domain

import (
	"context"
	"time"
)

// MembershipReader reads membership state. Inside MembershipStore.InTx the
// reads are consistent with the writes of the same transaction.
type MembershipReader interface {
	LoadGroup(ctx context.Context, groupID string) (GroupKind, error)
	FindMembership(ctx context.Context, groupID, userID string) (*Membership, error)
	CountJoined(ctx context.Context, groupID string) (int, error)
}

// MembershipTx is the transaction-scoped view of the membership store.
type MembershipTx interface {
	MembershipReader
	// UpsertMembership inserts m when m.Version is 0, otherwise updates the
	// row only if its stored version still equals m.Version. A lost race is
	// reported as a TransientConflictError.
	UpsertMembership(ctx context.Context, m *Membership) (*Membership, error)
	// EnqueueEvent records a committed-transition event in the outbox.
	EnqueueEvent(ctx context.Context, e TransitionCommitted) error
}

// MembershipStore runs a read-validate-write unit in one serializable transaction.
type MembershipStore interface {
	InTx(ctx context.Context, fn func(tx MembershipTx) error) error
}

// MembershipQueries provides read-only listings outside the write path.
type MembershipQueries interface {
	GetMembership(ctx context.Context, groupID, userID string) (*Membership, error)
	ListMembers(ctx context.Context, groupID string, status *Status, page PageRequest) ([]Membership, int64, error)
	// ListPrivileged returns JOINED owners and moderators of a group.
	ListPrivileged(ctx context.Context, groupID string) ([]Membership, error)
}

// GroupRepository manages the group rows the membership core reads.
type GroupRepository interface {
	Create(ctx context.Context, req CreateGroupRequest) (*Group, *Membership, error)
	GetByID(ctx context.Context, id string) (*Group, error)
	Cancel(ctx context.Context, id string, at time.Time) error
	SoftDelete(ctx context.Context, id string, at time.Time) error
}

// EventOutbox tracks delivery of committed-transition events.
type EventOutbox interface {
	MarkDelivered(ctx context.Context, eventID string, at time.Time) error
	MarkFailed(ctx context.Context, eventID string, reason string) error
	ListUndelivered(ctx context.Context, maxAttempts, limit int) ([]TransitionCommitted, error)
}

// InboxRepository stores delivered notifications, unique per (dedupe key, recipient).
type InboxRepository interface {
	// Insert returns false when the notification was already recorded.
	Insert(ctx context.Context, n Notification) (bool, error)
	ListForRecipient(ctx context.Context, recipientID string, page PageRequest) ([]Notification, int64, error)
}
