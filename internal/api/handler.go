// Package api exposes the membership facade over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/admbtski/miglee-sub001/internal/domain"
)

// MembershipService is the facade the handlers call.
type MembershipService interface {
	RequestJoin(ctx context.Context, principal, groupID string) (*domain.Membership, error)
	Invite(ctx context.Context, principal, groupID, targetUserID string) (*domain.Membership, error)
	CancelOwnRequest(ctx context.Context, principal, groupID string) (bool, error)
	AcceptInvite(ctx context.Context, principal, groupID string) (*domain.Membership, error)
	Approve(ctx context.Context, principal, groupID, targetUserID string) (*domain.Membership, error)
	Reject(ctx context.Context, principal, groupID, targetUserID string, reason *string) (*domain.Membership, error)
	Leave(ctx context.Context, principal, groupID string) (*domain.Membership, error)
	Kick(ctx context.Context, principal, groupID, targetUserID string, note *string) (*domain.Membership, error)
	ChangeRole(ctx context.Context, principal, groupID, targetUserID string, role domain.Role) (*domain.Membership, error)
	Ban(ctx context.Context, principal, groupID, targetUserID string) (*domain.Membership, error)

	CreateGroup(ctx context.Context, principal string, req domain.CreateGroupRequest) (*domain.Group, *domain.Membership, error)
	CancelGroup(ctx context.Context, principal, groupID string) error
	DeleteGroup(ctx context.Context, principal, groupID string) error
	GetGroup(ctx context.Context, groupID string) (*domain.Group, error)
	GetMembership(ctx context.Context, groupID, userID string) (*domain.Membership, error)
	ListMembers(ctx context.Context, groupID string, status *domain.Status, page domain.PageRequest) ([]domain.Membership, int64, error)
}

// Handler serves the membership REST API.
type Handler struct {
	svc    MembershipService
	inbox  domain.InboxRepository // nil when the inbox sink is not enabled
	logger *slog.Logger
}

// NewHandler creates a Handler. inbox may be nil.
func NewHandler(svc MembershipService, inbox domain.InboxRepository, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, inbox: inbox, logger: logger.With("component", "api")}
}

// Routes registers the API on r. Callers are expected to have installed
// authentication middleware.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/groups", h.CreateGroup)
	r.Route("/groups/{groupID}", func(r chi.Router) {
		r.Get("/", h.GetGroup)
		r.Delete("/", h.DeleteGroup)
		r.Post("/cancel", h.CancelGroup)

		r.Post("/join", h.RequestJoin)
		r.Delete("/join", h.CancelOwnRequest)
		r.Post("/accept", h.AcceptInvite)
		r.Post("/leave", h.Leave)

		r.Get("/members", h.ListMembers)
		r.Route("/members/{userID}", func(r chi.Router) {
			r.Get("/", h.GetMembership)
			r.Post("/invite", h.Invite)
			r.Post("/approve", h.Approve)
			r.Post("/reject", h.Reject)
			r.Post("/kick", h.Kick)
			r.Put("/role", h.ChangeRole)
			r.Post("/ban", h.Ban)
		})
	})
	r.Get("/me/notifications", h.ListMyNotifications)
}

// === DTOs ===

// Group is the JSON representation of a group.
type Group struct {
	ID              string     `json:"id"`
	Flavor          string     `json:"flavor"`
	Title           string     `json:"title"`
	OwnerID         string     `json:"ownerId"`
	MinParticipants int        `json:"minParticipants"`
	MaxParticipants *int       `json:"maxParticipants,omitempty"`
	AllowJoinLate   bool       `json:"allowJoinLate"`
	JoinMode        string     `json:"joinMode"`
	StartAt         time.Time  `json:"startAt"`
	CanceledAt      *time.Time `json:"canceledAt,omitempty"`
	DeletedAt       *time.Time `json:"deletedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// Membership is the JSON representation of a membership.
type Membership struct {
	ID           string     `json:"id"`
	GroupID      string     `json:"groupId"`
	UserID       string     `json:"userId"`
	Role         string     `json:"role"`
	Status       string     `json:"status"`
	JoinedAt     *time.Time `json:"joinedAt,omitempty"`
	LeftAt       *time.Time `json:"leftAt,omitempty"`
	Note         *string    `json:"note,omitempty"`
	RejectReason *string    `json:"rejectReason,omitempty"`
	AddedByID    *string    `json:"addedById,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Notification is the JSON representation of an inbox entry.
type Notification struct {
	DedupeKey  string    `json:"dedupeKey"`
	Topic      string    `json:"topic"`
	Transition string    `json:"transition"`
	GroupID    string    `json:"groupId"`
	UserID     string    `json:"userId"`
	ActorID    string    `json:"actorId"`
	OccurredAt time.Time `json:"occurredAt"`
}

type listResponse[T any] struct {
	Data          []T    `json:"data"`
	NextPageToken string `json:"nextPageToken,omitempty"`
}

func groupToAPI(g *domain.Group) Group {
	return Group{
		ID:              g.ID,
		Flavor:          string(g.Kind),
		Title:           g.Title,
		OwnerID:         g.OwnerID,
		MinParticipants: g.MinParticipants,
		MaxParticipants: g.MaxParticipants,
		AllowJoinLate:   g.AllowJoinLate,
		JoinMode:        string(g.Mode()),
		StartAt:         g.StartAt,
		CanceledAt:      g.CanceledAt,
		DeletedAt:       g.DeletedAt,
		CreatedAt:       g.CreatedAt,
	}
}

func membershipToAPI(m *domain.Membership) Membership {
	return Membership{
		ID:           m.ID,
		GroupID:      m.GroupID,
		UserID:       m.UserID,
		Role:         string(m.Role),
		Status:       string(m.Status),
		JoinedAt:     m.JoinedAt,
		LeftAt:       m.LeftAt,
		Note:         m.Note,
		RejectReason: m.RejectReason,
		AddedByID:    m.AddedByID,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// === helpers ===

func principalOf(r *http.Request) string {
	p, _ := domain.PrincipalFromContext(r.Context())
	return p.UserID
}

// pageFromRequest extracts a PageRequest from max_results/page_token query params.
func pageFromRequest(r *http.Request) (domain.PageRequest, error) {
	q := r.URL.Query()
	p := domain.PageRequest{PageToken: q.Get("page_token")}
	if v := q.Get("max_results"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return p, domain.ErrValidation("max_results", "max_results must be a non-negative integer")
		}
		p.MaxResults = n
	}
	return p, nil
}

func (h *Handler) respondMembership(w http.ResponseWriter, r *http.Request, m *domain.Membership, err error) {
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, membershipToAPI(m))
}
