package api

import (
	"net/http"
)

// WeeklySuggestions returns cached or freshly generated suggestions.
func (h *Handler) WeeklySuggestions(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r).WeeklySuggestions(r.Context())
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	JSON(w, http.StatusOK, s)
}

// StalledFollowUps returns connections that could use a follow-up.
func (h *Handler) StalledFollowUps(w http.ResponseWriter, r *http.Request) {
	list, err := h.session(r).StalledFollowUps(r.Context())
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	JSON(w, http.StatusOK, list)
}

// ScheduleFollowUp opens the chat and sends the scheduling opener.
func (h *Handler) ScheduleFollowUp(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid connection id")
		return
	}
	res, err := h.session(r).ScheduleFollowUp(r.Context(), id)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	JSON(w, http.StatusCreated, res)
}

// AssistantHistory returns the interactive assistant thread.
func (h *Handler) AssistantHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.session(r).AssistantHistory()
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	JSON(w, http.StatusOK, history)
}

// SendAssistantMessage sends a turn to the interactive assistant.
func (h *Handler) SendAssistantMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if !h.decode(w, r, &req) {
		return
	}
	reply, ok, err := h.session(r).SendAssistantMessage(r.Context(), req.Text)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	JSON(w, http.StatusCreated, reply)
}
