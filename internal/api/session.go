package api

import (
	"net/http"

	"github.com/ashureev/syncup/internal/domain"
	"github.com/google/uuid"
)

type signUpRequest struct {
	Name string      `json:"name" validate:"required,max=80"`
	Mode domain.Mode `json:"mode" validate:"required,oneof=Social Professional"`
}

type signInRequest struct {
	UID string `json:"uid" validate:"required,max=128"`
}

type onboardingRequest struct {
	Goals []string `json:"goals" validate:"max=6,dive,required"`
}

type modeRequest struct {
	Mode domain.Mode `json:"mode" validate:"required,oneof=Social Professional Both"`
}

// SignUp creates a profile and signs the device in.
func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if !h.decode(w, r, &req) {
		return
	}
	a := h.session(r)
	uid := uuid.NewString()
	if err := a.SignUp(r.Context(), uid, req.Name, req.Mode); err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.logger.Info("Member signed up", "user_id", uid, "mode", req.Mode)
	JSON(w, http.StatusCreated, a.State())
}

// SignIn signs the device in as an existing member.
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if !h.decode(w, r, &req) {
		return
	}
	a := h.session(r)
	if err := a.SignIn(req.UID); err != nil {
		h.writeErr(w, r, err)
		return
	}
	JSON(w, http.StatusOK, a.State())
}

// SignOut ends the device's session.
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	h.session(r).SignOut()
	w.WriteHeader(http.StatusNoContent)
}

// GetState returns the device's session snapshot.
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.session(r).State())
}

// CompleteOnboarding stores the member's goals.
func (h *Handler) CompleteOnboarding(w http.ResponseWriter, r *http.Request) {
	var req onboardingRequest
	if !h.decode(w, r, &req) {
		return
	}
	a := h.session(r)
	if err := a.CompleteOnboarding(r.Context(), req.Goals); err != nil {
		h.writeErr(w, r, err)
		return
	}
	JSON(w, http.StatusOK, a.State())
}

// SetMode changes the directory filter.
func (h *Handler) SetMode(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.session(r).SetMode(req.Mode); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
