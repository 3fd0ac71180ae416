package dbstore

import (
	"database/sql"
	"time"
)

type Group struct {
	ID              string
	Kind            string
	Title           string
	OwnerID         string
	MinParticipants int64
	MaxParticipants sql.NullInt64
	AllowJoinLate   int64
	JoinMode        string
	StartAt         time.Time
	CanceledAt      sql.NullTime
	DeletedAt       sql.NullTime
	CreatedAt       time.Time
}

type Membership struct {
	ID           string
	GroupID      string
	UserID       string
	Role         string
	Status       string
	JoinedAt     sql.NullTime
	LeftAt       sql.NullTime
	Note         sql.NullString
	RejectReason sql.NullString
	AddedByID    sql.NullString
	Version      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type MembershipEvent struct {
	ID          string
	DedupeKey   string
	Transition  string
	GroupID     string
	UserID      string
	ActorID     string
	Status      string
	Role        string
	AddedByID   sql.NullString
	Version     int64
	OccurredAt  time.Time
	DeliveredAt sql.NullTime
	Attempts    int64
	LastError   sql.NullString
}

type Notification struct {
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
