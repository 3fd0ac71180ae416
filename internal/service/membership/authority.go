// Package membership implements the group membership lifecycle: role
// authority, the capacity gate, the transition engine and the group facade.
package membership

import (
	"context"

	"github.com/admbtski/miglee-sub001/internal/domain"
)

// Authority answers role questions about a group. Only a JOINED membership
// confers a role; PENDING, INVITED and every terminal status confer none.
type Authority struct {
	r domain.MembershipReader
}

// NewAuthority creates an Authority over r. Inside a transition r is the
// transaction itself, so the answer is consistent with the write that follows.
func NewAuthority(r domain.MembershipReader) Authority {
	return Authority{r: r}
}

// RoleOf returns the caller's role and membership, or ok=false when the user
// holds no role in the group.
func (a Authority) RoleOf(ctx context.Context, groupID, userID string) (domain.Role, *domain.Membership, bool, error) {
	m, err := a.r.FindMembership(ctx, groupID, userID)
	if err != nil {
		return "", nil, false, err
	}
	if !m.HoldsRole() {
		return "", m, false, nil
	}
	return m.Role, m, true, nil
}

func (a Authority) IsOwner(ctx context.Context, groupID, userID string) (bool, error) {
	role, _, ok, err := a.RoleOf(ctx, groupID, userID)
	if err != nil || !ok {
		return false, err
	}
	return role == domain.RoleOwner, nil
}

func (a Authority) IsModeratorOrOwner(ctx context.Context, groupID, userID string) (bool, error) {
	role, _, ok, err := a.RoleOf(ctx, groupID, userID)
	if err != nil || !ok {
		return false, err
	}
	return role == domain.RoleOwner || role == domain.RoleModerator, nil
}

// requireModerator returns the actor's role or FORBIDDEN when the actor is not
// a JOINED moderator or owner.
func (a Authority) requireModerator(ctx context.Context, groupID, actorID string) (domain.Role, error) {
	role, _, ok, err := a.RoleOf(ctx, groupID, actorID)
	if err != nil {
		return "", err
	}
	if !ok || (role != domain.RoleOwner && role != domain.RoleModerator) {
		return "", domain.ErrAccessDenied("actorId", "moderator or owner role required")
	}
	return role, nil
}

func (a Authority) requireOwner(ctx context.Context, groupID, actorID string) error {
	owner, err := a.IsOwner(ctx, groupID, actorID)
	if err != nil {
		return err
	}
	if !owner {
		return domain.ErrAccessDenied("actorId", "owner role required")
	}
	return nil
}
