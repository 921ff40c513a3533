// Package api provides HTTP handlers for the SyncUp API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/ashureev/syncup/internal/app"
	"github.com/ashureev/syncup/internal/chat"
	"github.com/ashureev/syncup/internal/identity"
	"github.com/ashureev/syncup/internal/invite"
	"github.com/ashureev/syncup/internal/navigator"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 64 << 10

// Handler provides common handler utilities.
type Handler struct {
	registry  *app.Registry
	validate  *validator.Validate
	aiEnabled bool
	logger    *slog.Logger

	originPatterns []string
	isDev          bool
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(registry *app.Registry, aiEnabled bool, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		registry:  registry,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		aiEnabled: aiEnabled,
		logger:    logger,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// session returns the App bound to the request's device.
func (h *Handler) session(r *http.Request) *app.App {
	return h.registry.Get(identity.DeviceIDFromContext(r.Context()))
}

// decode reads and validates a JSON body into dst.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		Error(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request"
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return "invalid request: " + strings.Join(fields, ", ")
}

// writeErr maps domain errors to HTTP statuses.
func (h *Handler) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, app.ErrNotSignedIn):
		Error(w, http.StatusUnauthorized, "not signed in")
	case errors.Is(err, app.ErrProfileMissing):
		Error(w, http.StatusUnauthorized, "no profile for this account")
	case errors.Is(err, app.ErrNotFound), errors.Is(err, chat.ErrUnknownConnection):
		Error(w, http.StatusNotFound, "not found")
	case errors.Is(err, app.ErrNotParticipant):
		Error(w, http.StatusForbidden, "not a participant")
	case errors.Is(err, invite.ErrSelfInvite),
		errors.Is(err, invite.ErrUnknownUser),
		errors.Is(err, invite.ErrInvalidResponse),
		errors.Is(err, app.ErrInvalidGoal),
		errors.Is(err, navigator.ErrInvalidView),
		errors.Is(err, chat.ErrEmptyMessage):
		Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, chat.ErrStale):
		Error(w, http.StatusConflict, "session changed")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		Error(w, http.StatusServiceUnavailable, "request cancelled")
	default:
		h.logger.Error("Request failed", "error", err, "path", r.URL.Path,
			"device_id", identity.DeviceIDFromContext(r.Context()))
		Error(w, http.StatusInternalServerError, "internal error")
	}
}

func idParam(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

// DeviceKey keys per-device middleware such as rate limiting.
func DeviceKey(r *http.Request) string {
	return identity.DeviceIDFromContext(r.Context())
}

// RegisterRoutes registers all API routes. limit wraps routes that may call
// the assistant, including chat sends, which can trigger a scheduling nudge.
func (h *Handler) RegisterRoutes(r chi.Router, limit func(http.Handler) http.Handler) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/config", h.GetConfig)

		r.Post("/auth/signup", h.SignUp)
		r.Post("/auth/signin", h.SignIn)
		r.Post("/auth/signout", h.SignOut)

		r.Get("/state", h.GetState)
		r.Post("/onboarding", h.CompleteOnboarding)
		r.Post("/mode", h.SetMode)

		r.Get("/users", h.ListUsers)
		r.Get("/users/{uid}", h.GetUser)
		r.Post("/users/{uid}/kudos", h.GiveKudos)

		r.Get("/invites", h.ListInvites)
		r.Post("/invites", h.SendInvite)
		r.Post("/invites/{id}/respond", h.RespondInvite)

		r.Get("/connections", h.ListConnections)
		r.Get("/connections/{id}", h.GetConnection)

		r.Get("/assistant/messages", h.AssistantHistory)

		r.Post("/nav/{action}", h.Navigate)

		r.Group(func(r chi.Router) {
			if limit != nil {
				r.Use(limit)
			}
			r.Get("/users/{uid}/invite-draft", h.InviteDraft)
			r.Post("/connections/{id}/messages", h.SendMessage)
			r.Get("/connections/{id}/starters", h.ConversationStarters)
			r.Get("/suggestions", h.WeeklySuggestions)
			r.Get("/assistant/followups", h.StalledFollowUps)
			r.Post("/assistant/followups/{id}/schedule", h.ScheduleFollowUp)
			r.Post("/assistant/messages", h.SendAssistantMessage)
		})
	})
	r.Get("/ws/events", h.Events)
}

// GetConfig returns the server configuration for the frontend.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{
		"ai_enabled": h.aiEnabled,
	})
}
