package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/admbtski/miglee-sub001/internal/domain"
)

type createGroupBody struct {
	Flavor          string    `json:"flavor"`
	Title           string    `json:"title"`
	MinParticipants int       `json:"minParticipants"`
	MaxParticipants *int      `json:"maxParticipants"`
	AllowJoinLate   bool      `json:"allowJoinLate"`
	JoinMode        string    `json:"joinMode"`
	StartAt         time.Time `json:"startAt"`
}

type createGroupResponse struct {
	Group Group      `json:"group"`
	Owner Membership `json:"owner"`
}

func (h *Handler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var body createGroupBody
	if err := decodeBody(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	g, owner, err := h.svc.CreateGroup(r.Context(), principalOf(r), domain.CreateGroupRequest{
		Flavor:          domain.GroupFlavor(body.Flavor),
		Title:           body.Title,
		MinParticipants: body.MinParticipants,
		MaxParticipants: body.MaxParticipants,
		AllowJoinLate:   body.AllowJoinLate,
		JoinMode:        domain.JoinMode(body.JoinMode),
		StartAt:         body.StartAt,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createGroupResponse{Group: groupToAPI(g), Owner: membershipToAPI(owner)})
}

func (h *Handler) GetGroup(w http.ResponseWriter, r *http.Request) {
	g, err := h.svc.GetGroup(r.Context(), chi.URLParam(r, "groupID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, groupToAPI(g))
}

func (h *Handler) CancelGroup(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.CancelGroup(r.Context(), principalOf(r), chi.URLParam(r, "groupID")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteGroup(r.Context(), principalOf(r), chi.URLParam(r, "groupID")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromRequest(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var status *domain.Status
	if v := r.URL.Query().Get("status"); v != "" {
		st, err := domain.ParseStatus(v)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		status = &st
	}

	members, total, err := h.svc.ListMembers(r.Context(), chi.URLParam(r, "groupID"), status, page)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]Membership, len(members))
	for i := range members {
		out[i] = membershipToAPI(&members[i])
	}
	writeJSON(w, http.StatusOK, listResponse[Membership]{
		Data:          out,
		NextPageToken: domain.NextPageToken(page.Offset(), page.Limit(), total),
	})
}

func (h *Handler) GetMembership(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.GetMembership(r.Context(), chi.URLParam(r, "groupID"), chi.URLParam(r, "userID"))
	h.respondMembership(w, r, m, err)
}

func (h *Handler) ListMyNotifications(w http.ResponseWriter, r *http.Request) {
	principal := principalOf(r)
	if principal == "" {
		h.writeError(w, r, domain.ErrUnauthenticated())
		return
	}
	if h.inbox == nil {
		h.writeError(w, r, domain.ErrNotFound("inbox", "notification inbox is not enabled"))
		return
	}
	page, err := pageFromRequest(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	items, total, err := h.inbox.ListForRecipient(r.Context(), principal, page)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]Notification, len(items))
	for i, n := range items {
		out[i] = Notification{
			DedupeKey:  n.DedupeKey,
			Topic:      n.Topic,
			Transition: string(n.Transition),
			GroupID:    n.GroupID,
			UserID:     n.UserID,
			ActorID:    n.ActorID,
			OccurredAt: n.OccurredAt,
		}
	}
	writeJSON(w, http.StatusOK, listResponse[Notification]{
		Data:          out,
		NextPageToken: domain.NextPageToken(page.Offset(), page.Limit(), total),
	})
}
