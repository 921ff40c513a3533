package api

import (
	"net/http"
)

type messageRequest struct {
	Text string `json:"text" validate:"required,max=4000"`
}

// ListConnections returns the caller's connections.
func (h *Handler) ListConnections(w http.ResponseWriter, r *http.Request) {
	conns, err := h.session(r).Connections()
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	JSON(w, http.StatusOK, conns)
}

// GetConnection returns one connection with its chat history.
func (h *Handler) GetConnection(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid connection id")
		return
	}
	conn, err := h.session(r).Connection(id)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	JSON(w, http.StatusOK, conn)
}

// SendMessage posts a chat message and returns it with any assistant reply.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid connection id")
		return
	}
	var req messageRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.session(r).SendMessage(r.Context(), id, req.Text)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	JSON(w, http.StatusCreated, res)
}

// ConversationStarters suggests openers for a connection.
func (h *Handler) ConversationStarters(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid connection id")
		return
	}
	starters, err := h.session(r).ConversationStarters(r.Context(), id)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	if starters == nil {
		starters = []string{}
	}
	JSON(w, http.StatusOK, map[string][]string{"starters": starters})
}
