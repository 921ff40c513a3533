package api

import (
	"net/http"

	"github.com/ashureev/syncup/internal/domain"
	"github.com/go-chi/chi/v5"
)

// ListUsers returns the member directory, optionally filtered by ?mode=.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	mode := domain.Mode(r.URL.Query().Get("mode"))
	if mode != "" && mode != domain.ModeBoth && !mode.Valid() {
		Error(w, http.StatusBadRequest, "invalid mode")
		return
	}
	members, err := h.session(r).Directory(mode)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	JSON(w, http.StatusOK, members)
}

// GetUser returns one member and their relationship to the caller.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	m, err := h.session(r).Member(chi.URLParam(r, "uid"))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	JSON(w, http.StatusOK, m)
}

// GiveKudos increments a member's kudos.
func (h *Handler) GiveKudos(w http.ResponseWriter, r *http.Request) {
	total, err := h.session(r).GiveKudos(chi.URLParam(r, "uid"))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]int{"kudos": total})
}

// InviteDraft asks the assistant for an invite message and meeting time.
func (h *Handler) InviteDraft(w http.ResponseWriter, r *http.Request) {
	draft, err := h.session(r).InviteDraft(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	JSON(w, http.StatusOK, draft)
}
