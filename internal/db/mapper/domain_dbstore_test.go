package mapper

import (
	"database/sql"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbstore "github.com/admbtski/miglee-sub001/internal/db/dbstore"
	"github.com/admbtski/miglee-sub001/internal/domain"
)

func TestNullStr(t *testing.T) {
	t.Run("non-nil", func(t *testing.T) {
		s := "hello"
		got := nullStr(&s)
		assert.True(t, got.Valid)
		assert.Equal(t, "hello", got.String)
	})
	t.Run("nil", func(t *testing.T) {
		assert.False(t, nullStr(nil).Valid)
	})
}

func TestNullTime_NormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("CEST", 2*60*60)
	at := time.Date(2026, 5, 1, 12, 0, 0, 0, loc)

	got := nullTime(&at)
	require.True(t, got.Valid)
	assert.Equal(t, time.UTC, got.Time.Location())
	assert.True(t, at.Equal(got.Time))
	assert.False(t, nullTime(nil).Valid)
}

func TestGroupFromDB(t *testing.T) {
	start := time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC)
	canceled := start.Add(-time.Hour)

	g := GroupFromDB(dbstore.Group{
		ID:              "g1",
		Kind:            "EVENT",
		Title:           "Run club",
		OwnerID:         "u-owner",
		MinParticipants: 2,
		MaxParticipants: sql.NullInt64{Int64: 10, Valid: true},
		AllowJoinLate:   1,
		JoinMode:        "REQUEST",
		StartAt:         start,
		CanceledAt:      sql.NullTime{Time: canceled, Valid: true},
	})

	assert.Equal(t, domain.FlavorEvent, g.Flavor())
	max, limited := g.Capacity()
	assert.True(t, limited)
	assert.Equal(t, 10, max)
	assert.True(t, g.AllowsLateJoin())
	assert.Equal(t, domain.JoinModeRequest, g.Mode())
	assert.Equal(t, "canceledAt", g.FrozenBy())
	assert.Nil(t, g.DeletedAt)
}

func TestGroupFromDB_Unlimited(t *testing.T) {
	g := GroupFromDB(dbstore.Group{ID: "g1", Kind: "INTENT", JoinMode: "OPEN"})
	_, limited := g.Capacity()
	assert.False(t, limited)
	assert.Empty(t, g.FrozenBy())
}

func TestCreateGroupParamsToDB(t *testing.T) {
	max := 5
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p := CreateGroupParamsToDB("g1", domain.CreateGroupRequest{
		Flavor:          domain.FlavorIntent,
		Title:           "Chess",
		OwnerID:         "u1",
		MaxParticipants: &max,
		AllowJoinLate:   true,
		JoinMode:        domain.JoinModeOpen,
		StartAt:         now.Add(time.Hour),
	}, now)

	assert.Equal(t, "INTENT", p.Kind)
	assert.Equal(t, sql.NullInt64{Int64: 5, Valid: true}, p.MaxParticipants)
	assert.EqualValues(t, 1, p.AllowJoinLate)
	assert.Equal(t, now, p.CreatedAt)
}

func TestMembershipRoundTripThroughParams(t *testing.T) {
	joined := time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC)
	actor := "u-owner"
	m := &domain.Membership{
		ID:        "m1",
		GroupID:   "g1",
		UserID:    "u1",
		Role:      domain.RoleParticipant,
		Status:    domain.StatusJoined,
		JoinedAt:  &joined,
		AddedByID: &actor,
		Version:   3,
	}

	up := UpdateMembershipParamsToDB(m, joined)
	assert.Equal(t, "JOINED", up.Status)
	assert.EqualValues(t, 3, up.Version)
	assert.Equal(t, sql.NullString{String: actor, Valid: true}, up.AddedByID)
	assert.False(t, up.LeftAt.Valid)

	back := MembershipFromDB(dbstore.Membership{
		ID: "m1", GroupID: "g1", UserID: "u1", Role: up.Role, Status: up.Status,
		JoinedAt: up.JoinedAt, AddedByID: up.AddedByID, Version: 4,
	})
	assert.Equal(t, domain.StatusJoined, back.Status)
	require.NotNil(t, back.JoinedAt)
	assert.True(t, joined.Equal(*back.JoinedAt))
	assert.Equal(t, actor, *back.AddedByID)
	assert.Nil(t, back.Note)
}

func TestEventToDB_UsesDedupeKey(t *testing.T) {
	e := domain.TransitionCommitted{
		ID:         "e1",
		Transition: domain.TransitionApproved,
		GroupID:    "g1",
		UserID:     "u1",
		ActorID:    "u-owner",
		Status:     domain.StatusJoined,
		Role:       domain.RoleParticipant,
		Version:    2,
	}
	p := EventToDB(e)
	assert.Equal(t, "APPROVED:g1:u1:2", p.DedupeKey)

	back := EventFromDB(dbstore.MembershipEvent{
		ID: p.ID, DedupeKey: p.DedupeKey, Transition: p.Transition, GroupID: p.GroupID,
		UserID: p.UserID, ActorID: p.ActorID, Status: p.Status, Role: p.Role, Version: p.Version,
	})
	assert.Equal(t, e.DedupeKey(), back.DedupeKey())
}

func TestHTTPStatusFromDomainError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unauthenticated", domain.ErrUnauthenticated(), http.StatusUnauthorized},
		{"not found", domain.ErrNotFound("groupId", "group not found"), http.StatusNotFound},
		{"forbidden", domain.ErrAccessDenied("actor", "nope"), http.StatusForbidden},
		{"read only", domain.ErrReadOnly("deletedAt"), http.StatusConflict},
		{"capacity", domain.ErrCapacityReached(3), http.StatusConflict},
		{"locked", domain.ErrLockedAfterStart(), http.StatusConflict},
		{"bad transition", domain.ErrBadTransition(domain.StatusLeft, domain.TransitionApproved), http.StatusConflict},
		{"invalid target", domain.ErrInvalidTarget("userId", "owner"), http.StatusUnprocessableEntity},
		{"validation", domain.ErrValidation("role", "bad"), http.StatusBadRequest},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HTTPStatusFromDomainError(tc.err))
		})
	}
}
