package app

import (
	"context"
	"fmt"
	"slices"

	"github.com/ashureev/syncup/internal/advisory"
	"github.com/ashureev/syncup/internal/assistant"
	"github.com/ashureev/syncup/internal/chat"
	"github.com/ashureev/syncup/internal/domain"
	"github.com/ashureev/syncup/internal/navigator"
	"golang.org/x/sync/errgroup"
)

// SuggestionsError is shown in place of weekly suggestions when they cannot be fetched.
const SuggestionsError = "Could not fetch AI suggestions. Please try again later."

// Member is a profile together with its relationship to the current member.
type Member struct {
	Profile domain.UserProfile      `json:"profile"`
	Status  domain.ConnectionStatus `json:"status"`
}

// PendingInvite is an invite with its sender resolved.
type PendingInvite struct {
	Invite domain.Invite      `json:"invite"`
	From   domain.UserProfile `json:"from"`
}

// ConnectionView is a connection with the other participant resolved.
type ConnectionView struct {
	Connection domain.Connection  `json:"connection"`
	Other      domain.UserProfile `json:"other"`
	Typing     bool               `json:"assistantTyping"`
}

// Draft is a suggested invite.
type Draft struct {
	Message       string `json:"message"`
	SuggestedTime string `json:"suggestedTime"`
}

// Suggestions is the weekly suggestions panel.
type Suggestions struct {
	Suggestions []domain.Suggestion `json:"suggestions"`
	Error       string              `json:"error,omitempty"`
}

// Snapshot is everything a client needs to render the session.
type Snapshot struct {
	User               *domain.UserProfile `json:"user"`
	Onboarding         bool                `json:"onboarding"`
	Mode               domain.Mode         `json:"mode"`
	View               navigator.State     `json:"view"`
	SelectedUser       *Member             `json:"selectedUser,omitempty"`
	SelectedConnection *ConnectionView     `json:"selectedConnection,omitempty"`
	PendingInvites     int                 `json:"pendingInvites"`
	AssistantTyping    bool                `json:"interactiveAssistantTyping"`
}

// State returns a snapshot of the session.
func (a *App) State() Snapshot {
	a.mu.Lock()
	uid := a.uid
	snap := Snapshot{Onboarding: a.onboarding, Mode: a.mode, View: a.nav.State()}
	a.mu.Unlock()

	me, err := a.meFor(uid)
	if err != nil {
		return snap
	}
	snap.User = &me
	snap.PendingInvites = len(a.graph.PendingInvitesFor(uid))
	snap.AssistantTyping = a.thread.Typing()
	if snap.View.SelectedUser != "" {
		if u, ok := a.graph.User(snap.View.SelectedUser); ok {
			snap.SelectedUser = &Member{Profile: u, Status: a.graph.StatusBetween(uid, u.UID)}
		}
	}
	if snap.View.SelectedConnection != 0 {
		if v, err := a.connectionFor(uid, snap.View.SelectedConnection); err == nil {
			snap.SelectedConnection = &v
		}
	}
	return snap
}

// CompleteOnboarding records the member's goals and marks onboarding done.
func (a *App) CompleteOnboarding(ctx context.Context, goals []string) error {
	me, err := a.me()
	if err != nil {
		return err
	}
	for _, g := range goals {
		if !domain.IsGoalOption(g) {
			return fmt.Errorf("%w: %q", ErrInvalidGoal, g)
		}
	}

	a.graph.SetGoals(me.UID, goals)
	stored, err := a.deps.Profiles.Get(ctx, me.UID)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}
	if stored != nil {
		stored.Goals = slices.Clone(goals)
		if err := a.deps.Profiles.Upsert(ctx, *stored); err != nil {
			return fmt.Errorf("save goals: %w", err)
		}
	}
	if err := a.deps.KV.Set(ctx, onboardedKey(me.UID), "true"); err != nil {
		return fmt.Errorf("save onboarding flag: %w", err)
	}

	a.mu.Lock()
	if a.uid == me.UID {
		a.onboarding = false
	}
	a.mu.Unlock()
	a.logger.Info("Onboarding completed", "user_id", me.UID, "goals", len(goals))
	return nil
}

// SetMode changes the directory filter.
func (a *App) SetMode(mode domain.Mode) error {
	if mode != domain.ModeBoth && !mode.Valid() {
		return fmt.Errorf("invalid mode %q", mode)
	}
	a.mu.Lock()
	a.mode = mode
	a.mu.Unlock()
	return nil
}

// Directory lists other members matching the mode filter. An empty mode uses
// the session's current filter.
func (a *App) Directory(mode domain.Mode) ([]Member, error) {
	me, err := a.me()
	if err != nil {
		return nil, err
	}
	if mode == "" {
		a.mu.Lock()
		mode = a.mode
		a.mu.Unlock()
	}
	users := a.graph.Directory(me.UID, mode)
	out := make([]Member, 0, len(users))
	for _, u := range users {
		out = append(out, Member{Profile: u, Status: a.graph.StatusBetween(me.UID, u.UID)})
	}
	return out, nil
}

// Member returns one member and their relationship to the current member.
func (a *App) Member(uid string) (Member, error) {
	me, err := a.me()
	if err != nil {
		return Member{}, err
	}
	u, ok := a.graph.User(uid)
	if !ok {
		return Member{}, fmt.Errorf("member %s: %w", uid, ErrNotFound)
	}
	return Member{Profile: u, Status: a.graph.StatusBetween(me.UID, uid)}, nil
}

// GiveKudos adds a kudos to a member and returns their new total.
func (a *App) GiveKudos(uid string) (int, error) {
	if _, err := a.me(); err != nil {
		return 0, err
	}
	total, ok := a.graph.IncrementKudos(uid)
	if !ok {
		return 0, fmt.Errorf("member %s: %w", uid, ErrNotFound)
	}
	return total, nil
}

// InviteDraft suggests a message and a meeting time for an invite to uid.
func (a *App) InviteDraft(ctx context.Context, uid string) (Draft, error) {
	me, err := a.me()
	if err != nil {
		return Draft{}, err
	}
	target, ok := a.graph.User(uid)
	if !ok {
		return Draft{}, fmt.Errorf("member %s: %w", uid, ErrNotFound)
	}

	var d Draft
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d.Message = a.deps.Assistant.InviteDraft(gctx, me, target)
		return nil
	})
	g.Go(func() error {
		d.SuggestedTime = a.deps.Assistant.MeetingTime(gctx, me, target)
		return nil
	})
	_ = g.Wait()
	return d, nil
}

// SendInvite invites a member to connect.
func (a *App) SendInvite(to, message, suggestedTime string) (domain.Invite, error) {
	me, err := a.me()
	if err != nil {
		return domain.Invite{}, err
	}
	return a.invites.Send(me.UID, to, message, suggestedTime)
}

// PendingInvites lists invites awaiting the current member's response.
func (a *App) PendingInvites() ([]PendingInvite, error) {
	me, err := a.me()
	if err != nil {
		return nil, err
	}
	invites := a.graph.PendingInvitesFor(me.UID)
	out := make([]PendingInvite, 0, len(invites))
	for _, inv := range invites {
		from, _ := a.graph.User(inv.From)
		out = append(out, PendingInvite{Invite: inv, From: from})
	}
	return out, nil
}

// RespondInvite accepts or declines an invite addressed to the current member.
// Accepting opens the new connection's chat. Unknown, resolved, or foreign
// invites are ignored and reported with ok=false.
func (a *App) RespondInvite(id int64, response domain.InviteStatus) (*domain.Connection, bool, error) {
	me, err := a.me()
	if err != nil {
		return nil, false, err
	}
	if inv, found := a.graph.Invite(id); found && inv.To != me.UID {
		return nil, false, nil
	}
	conn, ok, err := a.invites.Respond(id, response)
	if err != nil || conn == nil {
		return conn, ok, err
	}

	a.mu.Lock()
	if a.uid == me.UID {
		a.nav.SelectConnection(conn.ID)
	}
	a.mu.Unlock()
	return conn, ok, nil
}

// Connections lists the current member's connections.
func (a *App) Connections() ([]ConnectionView, error) {
	me, err := a.me()
	if err != nil {
		return nil, err
	}
	conns := a.graph.ConnectionsFor(me.UID)
	out := make([]ConnectionView, 0, len(conns))
	for _, c := range conns {
		other, _ := a.graph.User(c.Other(me.UID))
		out = append(out, ConnectionView{Connection: c, Other: other, Typing: a.chat.Typing(c.ID)})
	}
	return out, nil
}

// Connection returns one of the current member's connections.
func (a *App) Connection(id int64) (ConnectionView, error) {
	me, err := a.me()
	if err != nil {
		return ConnectionView{}, err
	}
	return a.connectionFor(me.UID, id)
}

func (a *App) connectionFor(uid string, id int64) (ConnectionView, error) {
	c, ok := a.graph.Connection(id)
	if !ok {
		return ConnectionView{}, fmt.Errorf("connection %d: %w", id, ErrNotFound)
	}
	if !c.HasParticipant(uid) {
		return ConnectionView{}, fmt.Errorf("connection %d: %w", id, ErrNotParticipant)
	}
	other, _ := a.graph.User(c.Other(uid))
	return ConnectionView{Connection: c, Other: other, Typing: a.chat.Typing(id)}, nil
}

// SendMessage posts text to a connection and waits until it, and any
// assistant reply it triggers, has been applied.
func (a *App) SendMessage(ctx context.Context, connID int64, text string) (chat.Result, error) {
	me, err := a.me()
	if err != nil {
		return chat.Result{}, err
	}
	if _, err := a.connectionFor(me.UID, connID); err != nil {
		return chat.Result{}, err
	}
	receipt, err := a.chat.Send(connID, domain.Member(me.UID), text)
	if err != nil {
		return chat.Result{}, err
	}
	return receipt.Wait(ctx)
}

// ConversationStarters suggests three openers for a connection.
func (a *App) ConversationStarters(ctx context.Context, connID int64) ([]string, error) {
	me, err := a.me()
	if err != nil {
		return nil, err
	}
	v, err := a.connectionFor(me.UID, connID)
	if err != nil {
		return nil, err
	}
	return a.deps.Assistant.ConversationStarters(ctx, me, v.Other), nil
}

// WeeklySuggestions returns cached connection suggestions, generating them on
// a miss. Failures are reported in the result rather than as an error.
func (a *App) WeeklySuggestions(ctx context.Context) (Suggestions, error) {
	me, err := a.me()
	if err != nil {
		return Suggestions{}, err
	}
	others := a.graph.Directory(me.UID, domain.ModeBoth)
	key := advisory.Key{UID: me.UID, Domain: advisory.DomainWeeklySuggestions}

	list, err := advisory.Load(ctx, a.deps.Cache, key, a.deps.SuggestionsTTL,
		func(ctx context.Context) ([]domain.Suggestion, error) {
			return a.deps.Assistant.WeeklySuggestions(ctx, me, others)
		})
	if err != nil {
		a.logger.Warn("Weekly suggestions unavailable", "user_id", me.UID, "error", err)
		return Suggestions{Suggestions: []domain.Suggestion{}, Error: SuggestionsError}, nil
	}
	return Suggestions{Suggestions: list}, nil
}

// StalledFollowUps returns cached follow-up nudges for the member's connections.
func (a *App) StalledFollowUps(ctx context.Context) ([]domain.FollowUp, error) {
	me, err := a.me()
	if err != nil {
		return nil, err
	}
	conns := a.graph.ConnectionsFor(me.UID)
	candidates := make([]assistant.FollowUpCandidate, 0, len(conns))
	for _, c := range conns {
		other, _ := a.graph.User(c.Other(me.UID))
		candidates = append(candidates, assistant.FollowUpCandidate{Connection: c, Other: other})
	}
	key := advisory.Key{UID: me.UID, Domain: advisory.DomainStalledFollowUps}

	list, err := advisory.Load(ctx, a.deps.Cache, key, a.deps.FollowUpsTTL,
		func(ctx context.Context) ([]domain.FollowUp, error) {
			return a.deps.Assistant.StalledFollowUps(ctx, me, candidates)
		})
	if err != nil {
		a.logger.Warn("Follow-up suggestions unavailable", "user_id", me.UID, "error", err)
		return []domain.FollowUp{}, nil
	}
	return list, nil
}

// ScheduleFollowUp opens a connection's chat and sends ScheduleOpener.
func (a *App) ScheduleFollowUp(ctx context.Context, connID int64) (chat.Result, error) {
	me, err := a.me()
	if err != nil {
		return chat.Result{}, err
	}
	if _, err := a.connectionFor(me.UID, connID); err != nil {
		return chat.Result{}, err
	}
	a.mu.Lock()
	a.nav.SelectConnection(connID)
	a.mu.Unlock()
	return a.SendMessage(ctx, connID, ScheduleOpener)
}

// AssistantHistory returns the interactive assistant thread.
func (a *App) AssistantHistory() ([]domain.ChatMessage, error) {
	if _, err := a.me(); err != nil {
		return nil, err
	}
	return a.thread.History(), nil
}

// SendAssistantMessage talks to the interactive assistant. ok is false when
// the reply was dropped because the session changed.
func (a *App) SendAssistantMessage(ctx context.Context, text string) (domain.ChatMessage, bool, error) {
	me, err := a.me()
	if err != nil {
		return domain.ChatMessage{}, false, err
	}
	return a.thread.Send(ctx, me, text)
}
