package domain

import "time"

// GroupFlavor distinguishes the two group variants. Membership semantics are
// identical for both; the flavor is carried only for reporting.
type GroupFlavor string

// Group flavors.
const (
	FlavorIntent GroupFlavor = "INTENT"
	FlavorEvent  GroupFlavor = "EVENT"
)

// JoinMode controls what a self-service join request produces.
type JoinMode string

// Join modes.
const (
	JoinModeOpen       JoinMode = "OPEN"        // JOINED when the gates pass, PENDING when full
	JoinModeRequest    JoinMode = "REQUEST"     // always PENDING, needs approval
	JoinModeInviteOnly JoinMode = "INVITE_ONLY" // self-service requests are refused
)

// GroupKind is the capability the transition engine needs from any group
// flavor. Both intents and events satisfy it through Group.
type GroupKind interface {
	GroupID() string
	Flavor() GroupFlavor
	Capacity() (max int, limited bool)
	AllowsLateJoin() bool
	StartsAt() time.Time
	Mode() JoinMode
	// FrozenBy returns the name of the flag that makes the group read-only,
	// or "" when membership may change.
	FrozenBy() string
}

// Group is a capacity-limited activity. The core only reads it.
type Group struct {
	ID              string
	Kind            GroupFlavor
	Title           string
	OwnerID         string
	MinParticipants int
	MaxParticipants *int // nil = unlimited
	AllowJoinLate   bool
	JoinMode        JoinMode
	StartAt         time.Time
	CanceledAt      *time.Time
	DeletedAt       *time.Time
	CreatedAt       time.Time
}

var _ GroupKind = (*Group)(nil)

func (g *Group) GroupID() string      { return g.ID }
func (g *Group) Flavor() GroupFlavor  { return g.Kind }
func (g *Group) AllowsLateJoin() bool { return g.AllowJoinLate }
func (g *Group) StartsAt() time.Time  { return g.StartAt }

// Capacity returns the participant ceiling; limited is false for unlimited groups.
func (g *Group) Capacity() (int, bool) {
	if g.MaxParticipants == nil {
		return 0, false
	}
	return *g.MaxParticipants, true
}

// Mode returns the join mode, defaulting to OPEN.
func (g *Group) Mode() JoinMode {
	if g.JoinMode == "" {
		return JoinModeOpen
	}
	return g.JoinMode
}

// FrozenBy reports which soft-delete flag, if any, freezes membership.
func (g *Group) FrozenBy() string {
	switch {
	case g.DeletedAt != nil:
		return "deletedAt"
	case g.CanceledAt != nil:
		return "canceledAt"
	}
	return ""
}

// CreateGroupRequest holds parameters for creating a group and its owner membership.
type CreateGroupRequest struct {
	Flavor          GroupFlavor
	Title           string
	OwnerID         string
	MinParticipants int
	MaxParticipants *int
	AllowJoinLate   bool
	JoinMode        JoinMode
	StartAt         time.Time
}

// Validate checks that the request is well-formed.
func (r *CreateGroupRequest) Validate() error {
	if r.OwnerID == "" {
		return ErrValidation("ownerId", "owner id is required")
	}
	if r.Title == "" {
		return ErrValidation("title", "title is required")
	}
	switch r.Flavor {
	case FlavorIntent, FlavorEvent:
	case "":
		r.Flavor = FlavorIntent
	default:
		return ErrValidation("flavor", "flavor must be INTENT or EVENT")
	}
	switch r.JoinMode {
	case JoinModeOpen, JoinModeRequest, JoinModeInviteOnly:
	case "":
		r.JoinMode = JoinModeOpen
	default:
		return ErrValidation("joinMode", "unknown join mode %q", r.JoinMode)
	}
	if r.MinParticipants < 0 {
		return ErrValidation("minParticipants", "minParticipants must not be negative")
	}
	if r.MaxParticipants != nil {
		if *r.MaxParticipants < 1 {
			return ErrValidation("maxParticipants", "maxParticipants must be at least 1")
		}
		if *r.MaxParticipants < r.MinParticipants {
			return ErrValidation("maxParticipants", "maxParticipants must not be below minParticipants")
		}
	}
	if r.StartAt.IsZero() {
		return ErrValidation("startAt", "startAt is required")
	}
	return nil
}
