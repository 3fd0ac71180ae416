package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/admbtski/miglee-sub001/internal/domain"
)

type reasonBody struct {
	Reason *string `json:"reason"`
}

type noteBody struct {
	Note *string `json:"note"`
}

type roleBody struct {
	Role string `json:"role"`
}

type cancelResponse struct {
	Cancelled bool `json:"cancelled"`
}

func (h *Handler) RequestJoin(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.RequestJoin(r.Context(), principalOf(r), chi.URLParam(r, "groupID"))
	h.respondMembership(w, r, m, err)
}

func (h *Handler) CancelOwnRequest(w http.ResponseWriter, r *http.Request) {
	cancelled, err := h.svc.CancelOwnRequest(r.Context(), principalOf(r), chi.URLParam(r, "groupID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cancelResponse{Cancelled: cancelled})
}

func (h *Handler) AcceptInvite(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.AcceptInvite(r.Context(), principalOf(r), chi.URLParam(r, "groupID"))
	h.respondMembership(w, r, m, err)
}

func (h *Handler) Leave(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.Leave(r.Context(), principalOf(r), chi.URLParam(r, "groupID"))
	h.respondMembership(w, r, m, err)
}

func (h *Handler) Invite(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.Invite(r.Context(), principalOf(r), chi.URLParam(r, "groupID"), chi.URLParam(r, "userID"))
	h.respondMembership(w, r, m, err)
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.Approve(r.Context(), principalOf(r), chi.URLParam(r, "groupID"), chi.URLParam(r, "userID"))
	h.respondMembership(w, r, m, err)
}

func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	var body reasonBody
	if err := decodeBody(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	m, err := h.svc.Reject(r.Context(), principalOf(r), chi.URLParam(r, "groupID"), chi.URLParam(r, "userID"), body.Reason)
	h.respondMembership(w, r, m, err)
}

func (h *Handler) Kick(w http.ResponseWriter, r *http.Request) {
	var body noteBody
	if err := decodeBody(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	m, err := h.svc.Kick(r.Context(), principalOf(r), chi.URLParam(r, "groupID"), chi.URLParam(r, "userID"), body.Note)
	h.respondMembership(w, r, m, err)
}

func (h *Handler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	var body roleBody
	if err := decodeBody(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	m, err := h.svc.ChangeRole(r.Context(), principalOf(r), chi.URLParam(r, "groupID"), chi.URLParam(r, "userID"), domain.Role(body.Role))
	h.respondMembership(w, r, m, err)
}

func (h *Handler) Ban(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.Ban(r.Context(), principalOf(r), chi.URLParam(r, "groupID"), chi.URLParam(r, "userID"))
	h.respondMembership(w, r, m, err)
}
