package api

import (
	"net/http"

	"github.com/ashureev/syncup/internal/domain"
)

type sendInviteRequest struct {
	To            string `json:"to" validate:"required,max=128"`
	Message       string `json:"message" validate:"max=1000"`
	SuggestedTime string `json:"suggestedTime" validate:"max=200"`
}

type respondInviteRequest struct {
	Response domain.InviteStatus `json:"response" validate:"required,oneof=Accepted Declined"`
}

// ListInvites returns invites awaiting the caller's response.
func (h *Handler) ListInvites(w http.ResponseWriter, r *http.Request) {
	invites, err := h.session(r).PendingInvites()
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	JSON(w, http.StatusOK, invites)
}

// SendInvite creates a pending invite from the caller.
func (h *Handler) SendInvite(w http.ResponseWriter, r *http.Request) {
	var req sendInviteRequest
	if !h.decode(w, r, &req) {
		return
	}
	inv, err := h.session(r).SendInvite(req.To, req.Message, req.SuggestedTime)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	JSON(w, http.StatusCreated, inv)
}

// RespondInvite accepts or declines an invite. Responding to an invite that
// is unknown or already resolved is a no-op reported as resolved=false.
func (h *Handler) RespondInvite(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid invite id")
		return
	}
	var req respondInviteRequest
	if !h.decode(w, r, &req) {
		return
	}
	conn, ok, err := h.session(r).RespondInvite(id, req.Response)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"resolved":   ok,
		"connection": conn,
	})
}
