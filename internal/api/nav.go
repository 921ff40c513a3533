package api

import (
	"net/http"

	"github.com/ashureev/syncup/internal/app"
	"github.com/go-chi/chi/v5"
)

type selectUserRequest struct {
	UID string `json:"uid" validate:"required,max=128"`
}

type selectConnectionRequest struct {
	ConnectionID int64 `json:"connectionId" validate:"required,gt=0"`
}

type openViewRequest struct {
	View string `json:"view" validate:"required"`
}

// Navigate applies a navigation action and returns the new session snapshot.
func (h *Handler) Navigate(w http.ResponseWriter, r *http.Request) {
	a := h.session(r)
	var err error

	switch chi.URLParam(r, "action") {
	case "select-user":
		var req selectUserRequest
		if !h.decode(w, r, &req) {
			return
		}
		err = a.SelectUser(req.UID)
	case "select-connection":
		var req selectConnectionRequest
		if !h.decode(w, r, &req) {
			return
		}
		err = a.SelectConnection(req.ConnectionID)
	case "start-chat":
		var req selectUserRequest
		if !h.decode(w, r, &req) {
			return
		}
		var ok bool
		if ok, err = a.StartChat(req.UID); err == nil && !ok {
			err = app.ErrNotFound
		}
	case "open":
		var req openViewRequest
		if !h.decode(w, r, &req) {
			return
		}
		err = a.Open(req.View)
	case "open-assistant":
		err = a.OpenAssistant()
	case "start-conversation":
		err = a.StartConversation()
	case "back":
		err = a.Back()
	case "home":
		err = a.Home()
	default:
		Error(w, http.StatusNotFound, "unknown navigation action")
		return
	}

	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	JSON(w, http.StatusOK, a.State())
}
