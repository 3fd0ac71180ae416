package membership

import (
	"context"

	"github.com/admbtski/miglee-sub001/internal/domain"
)

// Gate decides whether a transition may produce a JOINED membership.
// CheckCapacity must be called with the transaction that performs the write.
type Gate struct {
	now domain.Clock
}

// NewGate creates a Gate reading the current time from now.
func NewGate(now domain.Clock) Gate {
	return Gate{now: now}
}

// CheckTime rejects joins once the group has started unless late joins are allowed.
func (g Gate) CheckTime(k domain.GroupKind) error {
	if k.AllowsLateJoin() {
		return nil
	}
	if !g.now().Before(k.StartsAt()) {
		return domain.ErrLockedAfterStart()
	}
	return nil
}

// CheckCapacity rejects a join when the JOINED count already fills the group.
// Unlimited groups always admit.
func (g Gate) CheckCapacity(ctx context.Context, r domain.MembershipReader, k domain.GroupKind) error {
	limit, limited := k.Capacity()
	if !limited {
		return nil
	}
	joined, err := r.CountJoined(ctx, k.GroupID())
	if err != nil {
		return err
	}
	if joined >= limit {
		return domain.ErrCapacityReached(limit)
	}
	return nil
}

// AdmitJoin applies the time gate and then the capacity gate.
func (g Gate) AdmitJoin(ctx context.Context, r domain.MembershipReader, k domain.GroupKind) error {
	if err := g.CheckTime(k); err != nil {
		return err
	}
	return g.CheckCapacity(ctx, r, k)
}
