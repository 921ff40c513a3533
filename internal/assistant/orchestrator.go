package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ashureev/syncup/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fallback outputs returned when generation fails.
const (
	FallbackInviteDraft     = "Hey! I came across your profile and thought it would be great to connect."
	FallbackSchedulingNudge = "I can help with that! What time works best for you?"
	FallbackMeetingTime     = "How about sometime next week?"
	FallbackInteractiveTurn = "I'm sorry, I'm having a little trouble right now. Could you ask me that again?"
)

// Operation names used in logs and metrics.
const (
	OpWeeklySuggestions    = "weekly_suggestions"
	OpInviteDraft          = "invite_draft"
	OpConversationStarters = "conversation_starters"
	OpSchedulingNudge      = "scheduling_nudge"
	OpMeetingTime          = "meeting_time"
	OpStalledFollowUps     = "stalled_followups"
	OpInteractiveTurn      = "interactive_turn"
)

const (
	minSuggestions = 2
	maxSuggestions = 3
	numStarters    = 3
	maxFollowUps   = 2
	// ContextWindow is how many recent messages are sent with chat prompts.
	ContextWindow = 5
)

// ErrNoSuggestions is returned when the model produced fewer than two usable suggestions.
var ErrNoSuggestions = errors.New("no usable suggestions")

var assistantCalls = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "syncup",
	Subsystem: "assistant",
	Name:      "calls_total",
	Help:      "AI assistant calls by operation and outcome (ok, fallback).",
}, []string{"operation", "outcome"})

// Orchestrator turns domain state into prompts and model output into domain
// values. It is stateless and never mutates the connection graph.
type Orchestrator struct {
	gen     Generator
	timeout time.Duration
	logger  *slog.Logger
}

// NewOrchestrator wraps gen. A zero timeout leaves calls bounded only by ctx.
func NewOrchestrator(gen Generator, timeout time.Duration, logger *slog.Logger) *Orchestrator {
	if gen == nil {
		gen = DisabledGenerator{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{gen: gen, timeout: timeout, logger: logger}
}

func (o *Orchestrator) generate(ctx context.Context, p Prompt) (string, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}
	start := time.Now()
	text, err := o.gen.Generate(ctx, p)
	if err != nil {
		return "", err
	}
	o.logger.Debug("Assistant call completed", "operation", p.Operation, "duration", time.Since(start))
	return strings.TrimSpace(text), nil
}

func (o *Orchestrator) fail(op string, err error) {
	assistantCalls.WithLabelValues(op, "fallback").Inc()
	o.logger.Warn("Assistant call failed, using fallback", "operation", op, "error", err)
}

func (o *Orchestrator) ok(op string) {
	assistantCalls.WithLabelValues(op, "ok").Inc()
}

// WeeklySuggestions proposes 2-3 members from others for me to connect with.
// Suggestions naming unknown members, or me, are dropped. On failure it
// returns an empty list and the error so callers can surface it.
func (o *Orchestrator) WeeklySuggestions(ctx context.Context, me domain.UserProfile, others []domain.UserProfile) ([]domain.Suggestion, error) {
	text, err := o.generate(ctx, Prompt{
		Operation: OpWeeklySuggestions,
		Text:      suggestionsPrompt(me, others),
		Schema:    suggestionsSchema,
	})
	if err != nil {
		o.fail(OpWeeklySuggestions, err)
		return []domain.Suggestion{}, fmt.Errorf("generate suggestions: %w", err)
	}

	var out struct {
		Suggestions []domain.Suggestion `json:"suggestions"`
	}
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		o.fail(OpWeeklySuggestions, err)
		return []domain.Suggestion{}, fmt.Errorf("decode suggestions: %w", err)
	}

	known := make(map[string]domain.UserProfile, len(others))
	for _, u := range others {
		known[u.UID] = u
	}
	seen := make(map[string]bool)
	result := make([]domain.Suggestion, 0, maxSuggestions)
	for _, s := range out.Suggestions {
		u, ok := known[s.UID]
		if !ok || s.UID == me.UID || seen[s.UID] {
			continue
		}
		seen[s.UID] = true
		if s.Name == "" {
			s.Name = u.Name
		}
		result = append(result, s)
		if len(result) == maxSuggestions {
			break
		}
	}
	if len(result) < minSuggestions {
		o.fail(OpWeeklySuggestions, ErrNoSuggestions)
		return []domain.Suggestion{}, ErrNoSuggestions
	}
	o.ok(OpWeeklySuggestions)
	return result, nil
}

// InviteDraft writes a short icebreaker from me to target.
func (o *Orchestrator) InviteDraft(ctx context.Context, me, target domain.UserProfile) string {
	text, err := o.generate(ctx, Prompt{Operation: OpInviteDraft, Text: inviteDraftPrompt(me, target)})
	if err != nil {
		o.fail(OpInviteDraft, err)
		return FallbackInviteDraft
	}
	o.ok(OpInviteDraft)
	return stripQuotes(text)
}

// ConversationStarters returns exactly three openers, or none on failure.
func (o *Orchestrator) ConversationStarters(ctx context.Context, me, other domain.UserProfile) []string {
	text, err := o.generate(ctx, Prompt{
		Operation: OpConversationStarters,
		Text:      startersPrompt(me, other),
		Schema:    startersSchema,
	})
	if err != nil {
		o.fail(OpConversationStarters, err)
		return []string{}
	}

	var out struct {
		Starters []string `json:"starters"`
	}
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		o.fail(OpConversationStarters, err)
		return []string{}
	}
	starters := make([]string, 0, numStarters)
	for _, s := range out.Starters {
		if s = strings.TrimSpace(s); s != "" {
			starters = append(starters, s)
		}
	}
	if len(starters) < numStarters {
		o.fail(OpConversationStarters, fmt.Errorf("got %d starters, want %d", len(starters), numStarters))
		return []string{}
	}
	o.ok(OpConversationStarters)
	return starters[:numStarters]
}

// SchedulingNudge suggests a scheduling next step for a conversation between
// me and other. Only the last ContextWindow messages are used.
func (o *Orchestrator) SchedulingNudge(ctx context.Context, history []domain.ChatMessage, me, other domain.UserProfile) string {
	text, err := o.generate(ctx, Prompt{
		Operation: OpSchedulingNudge,
		Text:      nudgePrompt(domain.RecentMessages(history, ContextWindow), me, other),
	})
	if err != nil {
		o.fail(OpSchedulingNudge, err)
		return FallbackSchedulingNudge
	}
	o.ok(OpSchedulingNudge)
	return text
}

// MeetingTime proposes a time slot from both members' stated availability.
func (o *Orchestrator) MeetingTime(ctx context.Context, a, b domain.UserProfile) string {
	text, err := o.generate(ctx, Prompt{Operation: OpMeetingTime, Text: meetingTimePrompt(a, b)})
	if err != nil {
		o.fail(OpMeetingTime, err)
		return FallbackMeetingTime
	}
	o.ok(OpMeetingTime)
	return stripQuotes(text)
}

// StalledFollowUps flags up to two connections worth following up on.
// No call is made when candidates is empty. On failure it returns an empty
// list and the error.
func (o *Orchestrator) StalledFollowUps(ctx context.Context, me domain.UserProfile, candidates []FollowUpCandidate) ([]domain.FollowUp, error) {
	if len(candidates) == 0 {
		return []domain.FollowUp{}, nil
	}
	prompt, err := followUpsPrompt(me, candidates)
	if err != nil {
		return []domain.FollowUp{}, err
	}
	text, err := o.generate(ctx, Prompt{Operation: OpStalledFollowUps, Text: prompt, Schema: followUpsSchema})
	if err != nil {
		o.fail(OpStalledFollowUps, err)
		return []domain.FollowUp{}, fmt.Errorf("generate follow-ups: %w", err)
	}

	var out struct {
		Suggestions []domain.FollowUp `json:"suggestions"`
	}
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		o.fail(OpStalledFollowUps, err)
		return []domain.FollowUp{}, fmt.Errorf("decode follow-ups: %w", err)
	}

	names := make(map[int64]string, len(candidates))
	for _, c := range candidates {
		names[c.Connection.ID] = c.Other.Name
	}
	result := make([]domain.FollowUp, 0, maxFollowUps)
	for _, f := range out.Suggestions {
		name, ok := names[f.ConnectionID]
		if !ok {
			continue
		}
		f.ParticipantName = name
		result = append(result, f)
		if len(result) == maxFollowUps {
			break
		}
	}
	o.ok(OpStalledFollowUps)
	return result, nil
}

// InteractiveTurn answers the member's latest message in the assistant thread.
func (o *Orchestrator) InteractiveTurn(ctx context.Context, history []domain.ChatMessage, me domain.UserProfile) string {
	text, err := o.generate(ctx, Prompt{
		Operation: OpInteractiveTurn,
		Text:      interactivePrompt(domain.RecentMessages(history, ContextWindow), me),
	})
	if err != nil {
		o.fail(OpInteractiveTurn, err)
		return FallbackInteractiveTurn
	}
	o.ok(OpInteractiveTurn)
	return text
}

// stripQuotes removes one pair of surrounding double quotes.
func stripQuotes(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, `"`)
	s = strings.TrimSuffix(s, `"`)
	return s
}

func marshalIndent(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode prompt context: %w", err)
	}
	return string(data), nil
}
