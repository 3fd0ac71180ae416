package domain

import (
	"fmt"
	"time"
)

// Role is a member's role within a group.
type Role string

// Membership roles.
const (
	RoleOwner       Role = "OWNER"
	RoleModerator   Role = "MODERATOR"
	RoleParticipant Role = "PARTICIPANT"
)

// ParseRole validates a stored or user-supplied role.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleOwner, RoleModerator, RoleParticipant:
		return r, nil
	}
	return "", ErrValidation("role", "unknown role %q", s)
}

// Status is the lifecycle status of a membership.
type Status string

// Membership statuses.
const (
	StatusPending   Status = "PENDING"
	StatusInvited   Status = "INVITED"
	StatusJoined    Status = "JOINED"
	StatusRejected  Status = "REJECTED"
	StatusLeft      Status = "LEFT"
	StatusKicked    Status = "KICKED"
	StatusBanned    Status = "BANNED"
	StatusCancelled Status = "CANCELLED"
)

// ParseStatus validates a stored or user-supplied status.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusInvited, StatusJoined, StatusRejected,
		StatusLeft, StatusKicked, StatusBanned, StatusCancelled:
		return st, nil
	}
	return "", ErrValidation("status", "unknown status %q", s)
}

// Transition names a committed lifecycle edge.
type Transition string

// Lifecycle transitions.
const (
	TransitionJoinRequested    Transition = "JOIN_REQUESTED"
	TransitionJoined           Transition = "JOINED"
	TransitionInvited          Transition = "INVITED"
	TransitionRequestCancelled Transition = "REQUEST_CANCELLED"
	TransitionInviteAccepted   Transition = "INVITE_ACCEPTED"
	TransitionApproved         Transition = "APPROVED"
	TransitionRejected         Transition = "REJECTED"
	TransitionLeft             Transition = "LEFT"
	TransitionKicked           Transition = "KICKED"
	TransitionRoleChanged      Transition = "ROLE_CHANGED"
	TransitionBanned           Transition = "BANNED"
)

// Membership is the relationship between one user and one group.
// (GroupID, UserID) is unique.
type Membership struct {
	ID           string
	GroupID      string
	UserID       string
	Role         Role
	Status       Status
	JoinedAt     *time.Time
	LeftAt       *time.Time
	Note         *string
	RejectReason *string
	AddedByID    *string
	Version      int64 // 0 means not yet persisted
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Clone returns a copy that shares no pointers with m.
func (m *Membership) Clone() *Membership {
	c := *m
	c.JoinedAt = cloneTime(m.JoinedAt)
	c.LeftAt = cloneTime(m.LeftAt)
	c.Note = cloneString(m.Note)
	c.RejectReason = cloneString(m.RejectReason)
	c.AddedByID = cloneString(m.AddedByID)
	return &c
}

// HoldsRole reports whether the membership confers role-based privilege.
// Only JOINED memberships hold a role.
func (m *Membership) HoldsRole() bool {
	return m != nil && m.Status == StatusJoined
}

// TransitionCommitted is emitted once per committed transition.
type TransitionCommitted struct {
	ID         string
	Transition Transition
	GroupID    string
	UserID     string
	ActorID    string
	Status     Status
	Role       Role
	AddedByID  *string
	Version    int64
	OccurredAt time.Time
}

// DedupeKey is deterministic for a committed transition so that repeated
// publish attempts collapse downstream.
func (e TransitionCommitted) DedupeKey() string {
	return fmt.Sprintf("%s:%s:%s:%d", e.Transition, e.GroupID, e.UserID, e.Version)
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
