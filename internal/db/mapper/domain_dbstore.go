// Package mapper provides conversion functions between domain and database types.
package mapper

import (
	"database/sql"
	"time"

	dbstore "github.com/admbtski/miglee-sub001/internal/db/dbstore"
	"github.com/admbtski/miglee-sub001/internal/domain"
)

func nullStr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func ptrStr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func ptrTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

// NullStrFromPtr converts a *string to sql.NullString.
func NullStrFromPtr(s *string) sql.NullString {
	return nullStr(s)
}

// NullTimeFromPtr converts a *time.Time to sql.NullTime in UTC.
func NullTimeFromPtr(t *time.Time) sql.NullTime {
	return nullTime(t)
}

// --- Group ---

// GroupFromDB converts a dbstore.Group to a domain.Group.
func GroupFromDB(g dbstore.Group) *domain.Group {
	out := &domain.Group{
		ID:              g.ID,
		Kind:            domain.GroupFlavor(g.Kind),
		Title:           g.Title,
		OwnerID:         g.OwnerID,
		MinParticipants: int(g.MinParticipants),
		AllowJoinLate:   g.AllowJoinLate != 0,
		JoinMode:        domain.JoinMode(g.JoinMode),
		StartAt:         g.StartAt.UTC(),
		CanceledAt:      ptrTime(g.CanceledAt),
		DeletedAt:       ptrTime(g.DeletedAt),
		CreatedAt:       g.CreatedAt.UTC(),
	}
	if g.MaxParticipants.Valid {
		max := int(g.MaxParticipants.Int64)
		out.MaxParticipants = &max
	}
	return out
}

// CreateGroupParamsToDB builds insert parameters for a validated request.
func CreateGroupParamsToDB(id string, req domain.CreateGroupRequest, now time.Time) dbstore.CreateGroupParams {
	p := dbstore.CreateGroupParams{
		ID:              id,
		Kind:            string(req.Flavor),
		Title:           req.Title,
		OwnerID:         req.OwnerID,
		MinParticipants: int64(req.MinParticipants),
		JoinMode:        string(req.JoinMode),
		StartAt:         req.StartAt.UTC(),
		CreatedAt:       now.UTC(),
	}
	if req.MaxParticipants != nil {
		p.MaxParticipants = sql.NullInt64{Int64: int64(*req.MaxParticipants), Valid: true}
	}
	if req.AllowJoinLate {
		p.AllowJoinLate = 1
	}
	return p
}

// --- Membership ---

// MembershipFromDB converts a dbstore.Membership to a domain.Membership.
func MembershipFromDB(m dbstore.Membership) *domain.Membership {
	return &domain.Membership{
		ID:           m.ID,
		GroupID:      m.GroupID,
		UserID:       m.UserID,
		Role:         domain.Role(m.Role),
		Status:       domain.Status(m.Status),
		JoinedAt:     ptrTime(m.JoinedAt),
		LeftAt:       ptrTime(m.LeftAt),
		Note:         ptrStr(m.Note),
		RejectReason: ptrStr(m.RejectReason),
		AddedByID:    ptrStr(m.AddedByID),
		Version:      m.Version,
		CreatedAt:    m.CreatedAt.UTC(),
		UpdatedAt:    m.UpdatedAt.UTC(),
	}
}

// MembershipsFromDB converts a slice of dbstore.Membership.
func MembershipsFromDB(rows []dbstore.Membership) []domain.Membership {
	out := make([]domain.Membership, len(rows))
	for i, r := range rows {
		out[i] = *MembershipFromDB(r)
	}
	return out
}

// InsertMembershipParamsToDB builds insert parameters for a new membership row.
func InsertMembershipParamsToDB(m *domain.Membership, now time.Time) dbstore.InsertMembershipParams {
	return dbstore.InsertMembershipParams{
		ID:           m.ID,
		GroupID:      m.GroupID,
		UserID:       m.UserID,
		Role:         string(m.Role),
		Status:       string(m.Status),
		JoinedAt:     nullTime(m.JoinedAt),
		LeftAt:       nullTime(m.LeftAt),
		Note:         nullStr(m.Note),
		RejectReason: nullStr(m.RejectReason),
		AddedByID:    nullStr(m.AddedByID),
		CreatedAt:    now.UTC(),
	}
}

// UpdateMembershipParamsToDB builds versioned update parameters.
func UpdateMembershipParamsToDB(m *domain.Membership, now time.Time) dbstore.UpdateMembershipParams {
	return dbstore.UpdateMembershipParams{
		ID:           m.ID,
		Role:         string(m.Role),
		Status:       string(m.Status),
		JoinedAt:     nullTime(m.JoinedAt),
		LeftAt:       nullTime(m.LeftAt),
		Note:         nullStr(m.Note),
		RejectReason: nullStr(m.RejectReason),
		AddedByID:    nullStr(m.AddedByID),
		UpdatedAt:    now.UTC(),
		Version:      m.Version,
	}
}

// --- Events & notifications ---

// EventToDB builds outbox insert parameters for a committed transition.
func EventToDB(e domain.TransitionCommitted) dbstore.InsertEventParams {
	return dbstore.InsertEventParams{
		ID:         e.ID,
		DedupeKey:  e.DedupeKey(),
		Transition: string(e.Transition),
		GroupID:    e.GroupID,
		UserID:     e.UserID,
		ActorID:    e.ActorID,
		Status:     string(e.Status),
		Role:       string(e.Role),
		AddedByID:  nullStr(e.AddedByID),
		Version:    e.Version,
		OccurredAt: e.OccurredAt.UTC(),
	}
}

// EventFromDB converts an outbox row back to a domain.TransitionCommitted.
func EventFromDB(e dbstore.MembershipEvent) domain.TransitionCommitted {
	return domain.TransitionCommitted{
		ID:         e.ID,
		Transition: domain.Transition(e.Transition),
		GroupID:    e.GroupID,
		UserID:     e.UserID,
		ActorID:    e.ActorID,
		Status:     domain.Status(e.Status),
		Role:       domain.Role(e.Role),
		AddedByID:  ptrStr(e.AddedByID),
		Version:    e.Version,
		OccurredAt: e.OccurredAt.UTC(),
	}
}

// EventsFromDB converts a slice of outbox rows.
func EventsFromDB(rows []dbstore.MembershipEvent) []domain.TransitionCommitted {
	out := make([]domain.TransitionCommitted, len(rows))
	for i, r := range rows {
		out[i] = EventFromDB(r)
	}
	return out
}

// NotificationToDB builds inbox insert parameters.
func NotificationToDB(id string, n domain.Notification, now time.Time) dbstore.InsertNotificationParams {
	return dbstore.InsertNotificationParams{
		ID:          id,
		DedupeKey:   n.DedupeKey,
		RecipientID: n.RecipientID,
		Topic:       n.Topic,
		Transition:  string(n.Transition),
		GroupID:     n.GroupID,
		UserID:      n.UserID,
		ActorID:     n.ActorID,
		Status:      string(n.Status),
		Role:        string(n.Role),
		OccurredAt:  n.OccurredAt.UTC(),
		CreatedAt:   now.UTC(),
	}
}

// NotificationFromDB converts an inbox row to a domain.Notification.
func NotificationFromDB(n dbstore.Notification) domain.Notification {
	return domain.Notification{
		DedupeKey:   n.DedupeKey,
		Topic:       n.Topic,
		RecipientID: n.RecipientID,
		Transition:  domain.Transition(n.Transition),
		GroupID:     n.GroupID,
		UserID:      n.UserID,
		ActorID:     n.ActorID,
		Status:      domain.Status(n.Status),
		Role:        domain.Role(n.Role),
		OccurredAt:  n.OccurredAt.UTC(),
	}
}

// NotificationsFromDB converts a slice of inbox rows.
func NotificationsFromDB(rows []dbstore.Notification) []domain.Notification {
	out := make([]domain.Notification, len(rows))
	for i, r := range rows {
		out[i] = NotificationFromDB(r)
	}
	return out
}
