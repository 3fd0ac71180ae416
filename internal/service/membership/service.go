package membership

import (
	"context"
	"log/slog"

	"github.com/admbtski/miglee-sub001/internal/domain"
)

// Dispatcher delivers a committed transition to its recipients. It is called
// only after the engine's transaction has committed and never fails the caller.
type Dispatcher interface {
	Dispatch(ctx context.Context, e domain.TransitionCommitted)
}

// AllowReapply is the default policy: a rejection never blocks a new request.
type AllowReapply struct{}

func (AllowReapply) BlocksReapplyAfterReject(domain.GroupKind) bool { return false }

// Service is the group facade. Each operation authenticates the caller, runs
// one engine transition and dispatches the resulting event after commit.
type Service struct {
	engine     *Engine
	groups     domain.GroupRepository
	queries    domain.MembershipQueries
	policy     domain.ReapplyPolicy
	dispatcher Dispatcher
	now        domain.Clock
	logger     *slog.Logger
}

// NewService creates the facade. A nil policy allows re-application.
func NewService(
	engine *Engine,
	groups domain.GroupRepository,
	queries domain.MembershipQueries,
	policy domain.ReapplyPolicy,
	dispatcher Dispatcher,
	logger *slog.Logger,
) *Service {
	if policy == nil {
		policy = AllowReapply{}
	}
	return &Service{
		engine:     engine,
		groups:     groups,
		queries:    queries,
		policy:     policy,
		dispatcher: dispatcher,
		now:        engine.now,
		logger:     logger.With("component", "membership"),
	}
}

// RequestJoin asks to join groupID as the caller.
func (s *Service) RequestJoin(ctx context.Context, principal, groupID string) (*domain.Membership, error) {
	if err := requireCaller(principal, groupID); err != nil {
		return nil, err
	}
	out, err := s.engine.RequestJoin(ctx, groupID, principal, s.policy)
	return s.finish(ctx, "request_join", principal, out, err)
}

// Invite invites targetUserID. Requires moderator or owner.
func (s *Service) Invite(ctx context.Context, principal, groupID, targetUserID string) (*domain.Membership, error) {
	if err := requireTarget(principal, groupID, targetUserID); err != nil {
		return nil, err
	}
	out, err := s.engine.Invite(ctx, groupID, principal, targetUserID)
	return s.finish(ctx, "invite", principal, out, err)
}

// CancelOwnRequest withdraws the caller's pending request or invitation and
// reports whether there was one to withdraw.
func (s *Service) CancelOwnRequest(ctx context.Context, principal, groupID string) (bool, error) {
	if err := requireCaller(principal, groupID); err != nil {
		return false, err
	}
	out, changed, err := s.engine.CancelOwnRequest(ctx, groupID, principal)
	if _, err := s.finish(ctx, "cancel_request", principal, out, err); err != nil {
		return false, err
	}
	return changed, nil
}

// AcceptInvite accepts the caller's invitation.
func (s *Service) AcceptInvite(ctx context.Context, principal, groupID string) (*domain.Membership, error) {
	if err := requireCaller(principal, groupID); err != nil {
		return nil, err
	}
	out, err := s.engine.AcceptInvite(ctx, groupID, principal)
	return s.finish(ctx, "accept_invite", principal, out, err)
}

// Approve admits a pending member. Requires moderator or owner.
func (s *Service) Approve(ctx context.Context, principal, groupID, targetUserID string) (*domain.Membership, error) {
	if err := requireTarget(principal, groupID, targetUserID); err != nil {
		return nil, err
	}
	out, err := s.engine.Approve(ctx, groupID, principal, targetUserID)
	return s.finish(ctx, "approve", principal, out, err)
}

// Reject declines a pending request. Requires moderator or owner.
func (s *Service) Reject(ctx context.Context, principal, groupID, targetUserID string, reason *string) (*domain.Membership, error) {
	if err := requireTarget(principal, groupID, targetUserID); err != nil {
		return nil, err
	}
	out, err := s.engine.Reject(ctx, groupID, principal, targetUserID, reason)
	return s.finish(ctx, "reject", principal, out, err)
}

// Leave ends the caller's membership.
func (s *Service) Leave(ctx context.Context, principal, groupID string) (*domain.Membership, error) {
	if err := requireCaller(principal, groupID); err != nil {
		return nil, err
	}
	out, err := s.engine.Leave(ctx, groupID, principal)
	return s.finish(ctx, "leave", principal, out, err)
}

// Kick removes a joined member. Requires moderator or owner.
func (s *Service) Kick(ctx context.Context, principal, groupID, targetUserID string, note *string) (*domain.Membership, error) {
	if err := requireTarget(principal, groupID, targetUserID); err != nil {
		return nil, err
	}
	out, err := s.engine.Kick(ctx, groupID, principal, targetUserID, note)
	return s.finish(ctx, "kick", principal, out, err)
}

// ChangeRole sets a joined member's role. Requires owner.
func (s *Service) ChangeRole(ctx context.Context, principal, groupID, targetUserID string, role domain.Role) (*domain.Membership, error) {
	if err := requireTarget(principal, groupID, targetUserID); err != nil {
		return nil, err
	}
	out, err := s.engine.ChangeRole(ctx, groupID, principal, targetUserID, role)
	return s.finish(ctx, "change_role", principal, out, err)
}

// Ban bans targetUserID from the group. Requires moderator or owner.
func (s *Service) Ban(ctx context.Context, principal, groupID, targetUserID string) (*domain.Membership, error) {
	if err := requireTarget(principal, groupID, targetUserID); err != nil {
		return nil, err
	}
	out, err := s.engine.Ban(ctx, groupID, principal, targetUserID)
	return s.finish(ctx, "ban", principal, out, err)
}

// CreateGroup creates a group owned by the caller.
func (s *Service) CreateGroup(ctx context.Context, principal string, req domain.CreateGroupRequest) (*domain.Group, *domain.Membership, error) {
	if principal == "" {
		return nil, nil, domain.ErrUnauthenticated()
	}
	req.OwnerID = principal
	g, owner, err := s.groups.Create(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	s.logger.Info("group created", "group_id", g.ID, "owner", principal, "flavor", g.Kind)
	return g, owner, nil
}

// CancelGroup marks the group cancelled, freezing its memberships. Requires owner.
func (s *Service) CancelGroup(ctx context.Context, principal, groupID string) error {
	if err := s.requireGroupOwner(ctx, principal, groupID); err != nil {
		return err
	}
	if err := s.groups.Cancel(ctx, groupID, s.now()); err != nil {
		return err
	}
	s.logger.Info("group cancelled", "group_id", groupID, "actor", principal)
	return nil
}

// DeleteGroup soft-deletes the group, freezing its memberships. Requires owner.
func (s *Service) DeleteGroup(ctx context.Context, principal, groupID string) error {
	if err := s.requireGroupOwner(ctx, principal, groupID); err != nil {
		return err
	}
	if err := s.groups.SoftDelete(ctx, groupID, s.now()); err != nil {
		return err
	}
	s.logger.Info("group deleted", "group_id", groupID, "actor", principal)
	return nil
}

// GetGroup returns a group by id.
func (s *Service) GetGroup(ctx context.Context, groupID string) (*domain.Group, error) {
	return s.groups.GetByID(ctx, groupID)
}

// GetMembership returns one user's membership in a group.
func (s *Service) GetMembership(ctx context.Context, groupID, userID string) (*domain.Membership, error) {
	return s.queries.GetMembership(ctx, groupID, userID)
}

// ListMembers returns a page of memberships, optionally filtered by status.
func (s *Service) ListMembers(ctx context.Context, groupID string, status *domain.Status, page domain.PageRequest) ([]domain.Membership, int64, error) {
	if _, err := s.groups.GetByID(ctx, groupID); err != nil {
		return nil, 0, err
	}
	return s.queries.ListMembers(ctx, groupID, status, page)
}

func (s *Service) requireGroupOwner(ctx context.Context, principal, groupID string) error {
	if principal == "" {
		return domain.ErrUnauthenticated()
	}
	g, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return err
	}
	if g.OwnerID != principal {
		return domain.ErrAccessDenied("actorId", "owner role required")
	}
	return nil
}

// finish logs the committed transition and dispatches its event.
func (s *Service) finish(ctx context.Context, op, principal string, out *Outcome, err error) (*domain.Membership, error) {
	if err != nil {
		s.logger.Debug("membership operation refused", "op", op, "actor", principal, "kind", domain.KindOf(err), "error", err)
		return nil, err
	}
	if out.Event == nil {
		return out.Membership, nil
	}
	ev := *out.Event
	s.logger.Info("membership transition committed",
		"transition", ev.Transition,
		"group_id", ev.GroupID,
		"user_id", ev.UserID,
		"actor", ev.ActorID,
		"version", ev.Version,
	)
	if s.dispatcher != nil {
		s.dispatcher.Dispatch(ctx, ev)
	}
	return out.Membership, nil
}

func requireCaller(principal, groupID string) error {
	if principal == "" {
		return domain.ErrUnauthenticated()
	}
	if groupID == "" {
		return domain.ErrValidation("groupId", "group id is required")
	}
	return nil
}

func requireTarget(principal, groupID, targetUserID string) error {
	if err := requireCaller(principal, groupID); err != nil {
		return err
	}
	if targetUserID == "" {
		return domain.ErrValidation("userId", "target user id is required")
	}
	return nil
}
