package membership

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/admbtski/miglee-sub001/internal/domain"
)

const (
	defaultMaxAttempts = 5
	defaultBackoff     = 10 * time.Millisecond
)

// EngineConfig tunes transient-conflict retries. Zero values select defaults.
type EngineConfig struct {
	MaxAttempts int
	Backoff     time.Duration
}

// Outcome is the result of one engine call. Event is nil when the call was an
// idempotent no-op or changed the row without a notifiable transition.
type Outcome struct {
	Membership *domain.Membership
	Event      *domain.TransitionCommitted
}

// Engine owns every membership status change. Each operation runs the whole
// read-validate-write unit inside one store transaction and repeats it when
// the store reports a transient conflict.
type Engine struct {
	store       domain.MembershipStore
	gate        Gate
	now         domain.Clock
	maxAttempts int
	backoff     time.Duration
	logger      *slog.Logger
}

// NewEngine creates an Engine over an explicit store handle.
func NewEngine(store domain.MembershipStore, now domain.Clock, cfg EngineConfig, logger *slog.Logger) *Engine {
	if now == nil {
		now = time.Now
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = defaultBackoff
	}
	return &Engine{
		store:       store,
		gate:        NewGate(now),
		now:         now,
		maxAttempts: cfg.MaxAttempts,
		backoff:     cfg.Backoff,
		logger:      logger.With("component", "membership-engine"),
	}
}

// decision is what an operation wants written. A nil next means no-op.
type decision struct {
	next       *domain.Membership
	transition domain.Transition
}

type decideFunc func(ctx context.Context, tx domain.MembershipTx, g domain.GroupKind, cur *domain.Membership) (decision, error)

// RequestJoin handles a self-service join request.
func (e *Engine) RequestJoin(ctx context.Context, groupID, userID string, policy domain.ReapplyPolicy) (*Outcome, error) {
	return e.run(ctx, "request_join", groupID, userID, userID, func(ctx context.Context, tx domain.MembershipTx, g domain.GroupKind, cur *domain.Membership) (decision, error) {
		if cur != nil {
			switch cur.Status {
			case domain.StatusJoined:
				return decision{}, nil
			case domain.StatusPending, domain.StatusInvited:
				if cur.AddedByID == nil && cur.Note == nil {
					return decision{}, nil
				}
				next := cur.Clone()
				next.AddedByID = nil
				next.Note = nil
				return decision{next: next}, nil
			case domain.StatusBanned:
				return decision{}, domain.ErrAccessDenied("userId", "user is banned from this group")
			case domain.StatusRejected:
				if policy != nil && policy.BlocksReapplyAfterReject(g) {
					return decision{}, domain.ErrAccessDenied("userId", "re-application after rejection is not allowed")
				}
			case domain.StatusLeft, domain.StatusKicked, domain.StatusCancelled:
			}
		}

		next := e.freshCycle(cur, g.GroupID(), userID)
		if g.Mode() == domain.JoinModeInviteOnly {
			return decision{}, domain.ErrAccessDenied("joinMode", "group accepts members by invitation only")
		}
		// A rejected user re-applies into review even when the group is open.
		if g.Mode() == domain.JoinModeRequest || (cur != nil && cur.Status == domain.StatusRejected) {
			next.Status = domain.StatusPending
			return decision{next: next, transition: domain.TransitionJoinRequested}, nil
		}

		if err := e.gate.CheckTime(g); err != nil {
			return decision{}, err
		}
		if err := e.gate.CheckCapacity(ctx, tx, g); err != nil {
			if domain.KindOf(err) != domain.KindCapacityReached {
				return decision{}, err
			}
			next.Status = domain.StatusPending
			return decision{next: next, transition: domain.TransitionJoinRequested}, nil
		}
		now := e.now().UTC()
		next.Status = domain.StatusJoined
		next.JoinedAt = &now
		return decision{next: next, transition: domain.TransitionJoined}, nil
	})
}

// CancelOwnRequest withdraws a PENDING request or declines an INVITED one.
// It reports whether anything changed.
func (e *Engine) CancelOwnRequest(ctx context.Context, groupID, userID string) (*Outcome, bool, error) {
	out, err := e.run(ctx, "cancel_request", groupID, userID, userID, func(_ context.Context, _ domain.MembershipTx, _ domain.GroupKind, cur *domain.Membership) (decision, error) {
		if cur == nil {
			return decision{}, nil
		}
		switch cur.Status {
		case domain.StatusPending, domain.StatusInvited:
			next := cur.Clone()
			next.Status = domain.StatusCancelled
			return decision{next: next, transition: domain.TransitionRequestCancelled}, nil
		default:
			return decision{}, nil
		}
	})
	if err != nil {
		return nil, false, err
	}
	return out, out.Event != nil, nil
}

// AcceptInvite turns the caller's INVITED membership into JOINED.
func (e *Engine) AcceptInvite(ctx context.Context, groupID, userID string) (*Outcome, error) {
	return e.run(ctx, "accept_invite", groupID, userID, userID, func(ctx context.Context, tx domain.MembershipTx, g domain.GroupKind, cur *domain.Membership) (decision, error) {
		if cur == nil {
			return decision{}, domain.ErrNotFound("userId", "no invitation for this group")
		}
		switch cur.Status {
		case domain.StatusJoined:
			return decision{}, nil
		case domain.StatusInvited:
		default:
			return decision{}, domain.ErrBadTransition(cur.Status, domain.TransitionInviteAccepted)
		}
		if err := e.gate.AdmitJoin(ctx, tx, g); err != nil {
			return decision{}, err
		}
		now := e.now().UTC()
		next := cur.Clone()
		next.Status = domain.StatusJoined
		next.JoinedAt = &now
		next.LeftAt = nil
		return decision{next: next, transition: domain.TransitionInviteAccepted}, nil
	})
}

// Invite creates or refreshes an invitation from a moderator or owner.
func (e *Engine) Invite(ctx context.Context, groupID, actorID, targetID string) (*Outcome, error) {
	return e.run(ctx, "invite", groupID, actorID, targetID, func(ctx context.Context, tx domain.MembershipTx, g domain.GroupKind, cur *domain.Membership) (decision, error) {
		if err := rejectOwnerTarget(cur); err != nil {
			return decision{}, err
		}
		if _, err := NewAuthority(tx).requireModerator(ctx, g.GroupID(), actorID); err != nil {
			return decision{}, err
		}
		if cur != nil {
			switch cur.Status {
			case domain.StatusJoined, domain.StatusInvited, domain.StatusPending:
				return decision{}, nil
			case domain.StatusBanned:
				return decision{}, domain.ErrAccessDenied("userId", "user is banned from this group")
			case domain.StatusRejected, domain.StatusLeft, domain.StatusKicked, domain.StatusCancelled:
			}
		}
		next := e.freshCycle(cur, g.GroupID(), targetID)
		next.Status = domain.StatusInvited
		next.AddedByID = &actorID
		return decision{next: next, transition: domain.TransitionInvited}, nil
	})
}

// Approve admits a PENDING member.
func (e *Engine) Approve(ctx context.Context, groupID, actorID, targetID string) (*Outcome, error) {
	return e.run(ctx, "approve", groupID, actorID, targetID, func(ctx context.Context, tx domain.MembershipTx, g domain.GroupKind, cur *domain.Membership) (decision, error) {
		if err := rejectOwnerTarget(cur); err != nil {
			return decision{}, err
		}
		if _, err := NewAuthority(tx).requireModerator(ctx, g.GroupID(), actorID); err != nil {
			return decision{}, err
		}
		if cur == nil {
			return decision{}, domain.ErrNotFound("userId", "no membership for target user")
		}
		switch cur.Status {
		case domain.StatusJoined:
			return decision{}, nil
		case domain.StatusPending:
		default:
			return decision{}, domain.ErrBadTransition(cur.Status, domain.TransitionApproved)
		}
		if err := e.gate.AdmitJoin(ctx, tx, g); err != nil {
			return decision{}, err
		}
		now := e.now().UTC()
		next := cur.Clone()
		next.Status = domain.StatusJoined
		next.JoinedAt = &now
		next.AddedByID = &actorID
		return decision{next: next, transition: domain.TransitionApproved}, nil
	})
}

// Reject declines a PENDING request.
func (e *Engine) Reject(ctx context.Context, groupID, actorID, targetID string, reason *string) (*Outcome, error) {
	return e.run(ctx, "reject", groupID, actorID, targetID, func(ctx context.Context, tx domain.MembershipTx, g domain.GroupKind, cur *domain.Membership) (decision, error) {
		if err := rejectOwnerTarget(cur); err != nil {
			return decision{}, err
		}
		if _, err := NewAuthority(tx).requireModerator(ctx, g.GroupID(), actorID); err != nil {
			return decision{}, err
		}
		if cur == nil {
			return decision{}, domain.ErrNotFound("userId", "no membership for target user")
		}
		switch cur.Status {
		case domain.StatusRejected:
			return decision{}, nil
		case domain.StatusPending:
		default:
			return decision{}, domain.ErrBadTransition(cur.Status, domain.TransitionRejected)
		}
		next := cur.Clone()
		next.Status = domain.StatusRejected
		next.RejectReason = reason
		return decision{next: next, transition: domain.TransitionRejected}, nil
	})
}

// Leave ends the caller's JOINED membership. The owner cannot leave.
func (e *Engine) Leave(ctx context.Context, groupID, userID string) (*Outcome, error) {
	return e.run(ctx, "leave", groupID, userID, userID, func(_ context.Context, _ domain.MembershipTx, _ domain.GroupKind, cur *domain.Membership) (decision, error) {
		if cur == nil {
			return decision{}, domain.ErrNotFound("userId", "not a member of this group")
		}
		if cur.Role == domain.RoleOwner {
			return decision{}, domain.ErrInvalidTarget("userId", "the group owner cannot leave")
		}
		if cur.Status != domain.StatusJoined {
			return decision{}, nil
		}
		now := e.now().UTC()
		next := cur.Clone()
		next.Status = domain.StatusLeft
		next.LeftAt = &now
		return decision{next: next, transition: domain.TransitionLeft}, nil
	})
}

// Kick removes a JOINED member. Moderators may only kick participants.
func (e *Engine) Kick(ctx context.Context, groupID, actorID, targetID string, note *string) (*Outcome, error) {
	return e.run(ctx, "kick", groupID, actorID, targetID, func(ctx context.Context, tx domain.MembershipTx, g domain.GroupKind, cur *domain.Membership) (decision, error) {
		if err := rejectOwnerTarget(cur); err != nil {
			return decision{}, err
		}
		role, err := NewAuthority(tx).requireModerator(ctx, g.GroupID(), actorID)
		if err != nil {
			return decision{}, err
		}
		if cur == nil {
			return decision{}, domain.ErrNotFound("userId", "no membership for target user")
		}
		if err := requireOutranks(role, cur); err != nil {
			return decision{}, err
		}
		if cur.Status != domain.StatusJoined {
			return decision{}, nil
		}
		now := e.now().UTC()
		next := cur.Clone()
		next.Status = domain.StatusKicked
		next.LeftAt = &now
		next.Note = note
		return decision{next: next, transition: domain.TransitionKicked}, nil
	})
}

// ChangeRole sets a JOINED member's role. Only the owner may call it and the
// owner role cannot be granted.
func (e *Engine) ChangeRole(ctx context.Context, groupID, actorID, targetID string, role domain.Role) (*Outcome, error) {
	if _, err := domain.ParseRole(string(role)); err != nil {
		return nil, err
	}
	if role == domain.RoleOwner {
		return nil, domain.ErrValidation("role", "the owner role cannot be assigned")
	}
	return e.run(ctx, "change_role", groupID, actorID, targetID, func(ctx context.Context, tx domain.MembershipTx, g domain.GroupKind, cur *domain.Membership) (decision, error) {
		if err := rejectOwnerTarget(cur); err != nil {
			return decision{}, err
		}
		if err := NewAuthority(tx).requireOwner(ctx, g.GroupID(), actorID); err != nil {
			return decision{}, err
		}
		if cur == nil {
			return decision{}, domain.ErrNotFound("userId", "no membership for target user")
		}
		if cur.Status != domain.StatusJoined {
			return decision{}, domain.ErrBadTransition(cur.Status, domain.TransitionRoleChanged)
		}
		if cur.Role == role {
			return decision{}, nil
		}
		next := cur.Clone()
		next.Role = role
		return decision{next: next, transition: domain.TransitionRoleChanged}, nil
	})
}

// Ban moves any membership, or a user with no membership yet, to BANNED.
func (e *Engine) Ban(ctx context.Context, groupID, actorID, targetID string) (*Outcome, error) {
	return e.run(ctx, "ban", groupID, actorID, targetID, func(ctx context.Context, tx domain.MembershipTx, g domain.GroupKind, cur *domain.Membership) (decision, error) {
		if err := rejectOwnerTarget(cur); err != nil {
			return decision{}, err
		}
		role, err := NewAuthority(tx).requireModerator(ctx, g.GroupID(), actorID)
		if err != nil {
			return decision{}, err
		}
		if cur != nil {
			if err := requireOutranks(role, cur); err != nil {
				return decision{}, err
			}
			if cur.Status == domain.StatusBanned {
				return decision{}, nil
			}
		}
		var next *domain.Membership
		if cur == nil {
			next = e.freshCycle(nil, g.GroupID(), targetID)
		} else {
			next = cur.Clone()
		}
		if next.Status == domain.StatusJoined {
			now := e.now().UTC()
			next.LeftAt = &now
		}
		next.Status = domain.StatusBanned
		next.AddedByID = &actorID
		return decision{next: next, transition: domain.TransitionBanned}, nil
	})
}

// freshCycle returns a membership starting a new join cycle, reusing the
// existing row when there is one.
func (e *Engine) freshCycle(cur *domain.Membership, groupID, userID string) *domain.Membership {
	if cur == nil {
		return &domain.Membership{
			GroupID: groupID,
			UserID:  userID,
			Role:    domain.RoleParticipant,
		}
	}
	next := cur.Clone()
	next.Role = domain.RoleParticipant
	next.JoinedAt = nil
	next.LeftAt = nil
	next.Note = nil
	next.RejectReason = nil
	next.AddedByID = nil
	return next
}

func rejectOwnerTarget(cur *domain.Membership) error {
	if cur != nil && cur.Role == domain.RoleOwner {
		return domain.ErrInvalidTarget("userId", "the group owner cannot be the target of this operation")
	}
	return nil
}

// requireOutranks stops a moderator from acting on another moderator.
func requireOutranks(actor domain.Role, target *domain.Membership) error {
	if actor == domain.RoleModerator && target.Role == domain.RoleModerator && target.Status == domain.StatusJoined {
		return domain.ErrAccessDenied("userId", "only the owner can act on a moderator")
	}
	return nil
}

func (e *Engine) run(ctx context.Context, op, groupID, actorID, targetID string, decide decideFunc) (*Outcome, error) {
	var lastErr error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		out, err := e.attempt(ctx, groupID, actorID, targetID, decide)
		if err == nil {
			return out, nil
		}
		if !domain.IsTransient(err) {
			return nil, err
		}
		lastErr = err
		e.logger.Debug("transient conflict, retrying",
			"op", op, "group_id", groupID, "user_id", targetID, "attempt", attempt, "error", err)

		if attempt == e.maxAttempts {
			break
		}
		timer := time.NewTimer(time.Duration(attempt) * e.backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	e.logger.Warn("transient conflicts exhausted retries",
		"op", op, "group_id", groupID, "user_id", targetID, "attempts", e.maxAttempts)
	return nil, fmt.Errorf("%s: %d attempts: %w", op, e.maxAttempts, lastErr)
}

func (e *Engine) attempt(ctx context.Context, groupID, actorID, targetID string, decide decideFunc) (*Outcome, error) {
	var out *Outcome
	err := e.store.InTx(ctx, func(tx domain.MembershipTx) error {
		g, err := tx.LoadGroup(ctx, groupID)
		if err != nil {
			return err
		}
		if flag := g.FrozenBy(); flag != "" {
			return domain.ErrReadOnly(flag)
		}
		cur, err := tx.FindMembership(ctx, groupID, targetID)
		if err != nil {
			return err
		}

		d, err := decide(ctx, tx, g, cur)
		if err != nil {
			return err
		}
		if d.next == nil {
			out = &Outcome{Membership: cur}
			return nil
		}

		saved, err := tx.UpsertMembership(ctx, d.next)
		if err != nil {
			return err
		}
		out = &Outcome{Membership: saved}
		if d.transition == "" {
			return nil
		}

		ev := domain.TransitionCommitted{
			ID:         domain.NewID(),
			Transition: d.transition,
			GroupID:    groupID,
			UserID:     targetID,
			ActorID:    actorID,
			Status:     saved.Status,
			Role:       saved.Role,
			AddedByID:  saved.AddedByID,
			Version:    saved.Version,
			OccurredAt: e.now().UTC(),
		}
		if err := tx.EnqueueEvent(ctx, ev); err != nil {
			return err
		}
		out.Event = &ev
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
