// Package app composes the per-device session: identity, connection graph,
// controllers, navigation, and the advisory layer.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ashureev/syncup/internal/advisory"
	"github.com/ashureev/syncup/internal/assistant"
	"github.com/ashureev/syncup/internal/chat"
	"github.com/ashureev/syncup/internal/domain"
	"github.com/ashureev/syncup/internal/graph"
	"github.com/ashureev/syncup/internal/invite"
	"github.com/ashureev/syncup/internal/navigator"
	"github.com/ashureev/syncup/internal/seed"
	"github.com/ashureev/syncup/internal/session"
	"github.com/ashureev/syncup/internal/store"
)

var (
	// ErrNotSignedIn is returned by actions that need a current member.
	ErrNotSignedIn = errors.New("not signed in")
	// ErrNotFound is returned for unknown members and connections.
	ErrNotFound = errors.New("not found")
	// ErrNotParticipant is returned when the current member is not part of a connection.
	ErrNotParticipant = chat.ErrNotParticipant
	// ErrProfileMissing is returned when sign-in finds no stored profile.
	ErrProfileMissing = errors.New("no profile for this account")
	// ErrInvalidGoal is returned for goals outside domain.GoalOptions.
	ErrInvalidGoal = errors.New("unknown goal")
)

// ScheduleOpener is sent when a member follows up on a stalled conversation.
const ScheduleOpener = "Let's find a time to connect!"

const profileFetchTimeout = 10 * time.Second

// Deps are the collaborators shared by every App.
type Deps struct {
	Profiles  store.Profiles
	KV        store.KV
	Cache     *advisory.Cache
	Assistant *assistant.Orchestrator
	// Fixture seeds each new session's graph. Nil starts empty.
	Fixture        *seed.Fixture
	SuggestionsTTL time.Duration
	FollowUpsTTL   time.Duration
	Now            func() time.Time
	Logger         *slog.Logger
}

func (d *Deps) setDefaults() {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.SuggestionsTTL <= 0 {
		d.SuggestionsTTL = advisory.DefaultSuggestionsTTL
	}
	if d.FollowUpsTTL <= 0 {
		d.FollowUpsTTL = advisory.DefaultFollowUpsTTL
	}
	if d.Assistant == nil {
		d.Assistant = assistant.NewOrchestrator(assistant.DisabledGenerator{}, 0, d.Logger)
	}
	if d.Cache == nil {
		d.Cache = advisory.New(d.KV, d.Now, d.Logger)
	}
}

// App is one device's session.
type App struct {
	deps   Deps
	logger *slog.Logger

	session     *session.Local
	unsubscribe func()

	graph   *graph.Store
	invites *invite.Controller
	chat    *chat.Controller
	thread  *chat.Thread
	hub     *Hub

	lastSeen atomic.Int64

	mu         sync.Mutex
	nav        *navigator.Navigator
	uid        string
	onboarding bool
	mode       domain.Mode
	generation uint64
	// authErr is the profile-store failure of the latest sign-in, if any.
	authErr error
}

// New creates a signed-out App.
func New(deps Deps) *App {
	deps.setDefaults()

	g := graph.New()
	if deps.Fixture != nil {
		deps.Fixture.Apply(g, deps.Now())
	}

	a := &App{
		deps:    deps,
		logger:  deps.Logger,
		session: session.NewLocal(),
		graph:   g,
		invites: invite.NewController(g, deps.Now, deps.Logger),
		thread:  chat.NewThread(deps.Assistant, deps.Now),
		hub:     NewHub(),
		nav:     navigator.New(),
		mode:    domain.ModeBoth,
	}
	a.chat = chat.NewController(g, deps.Assistant, chat.Options{
		Now:      deps.Now,
		Logger:   deps.Logger,
		Observer: a.hub.Publish,
	})
	a.Touch()
	a.unsubscribe = a.session.Subscribe(a.onAuthChange)
	return a
}

// Touch records activity for idle eviction.
func (a *App) Touch() {
	a.lastSeen.Store(a.deps.Now().UnixNano())
}

// LastSeen returns the time of the last recorded activity.
func (a *App) LastSeen() time.Time {
	return time.Unix(0, a.lastSeen.Load())
}

// Events returns the chat event hub.
func (a *App) Events() *Hub {
	return a.hub
}

// Close stops the session's background work.
func (a *App) Close() {
	a.unsubscribe()
	a.chat.Close()
	a.hub.Close()
}

// onAuthChange reacts to identity changes. Any failure leaves the session
// signed out.
func (a *App) onAuthChange(uid string) {
	a.mu.Lock()
	a.generation++
	generation := a.generation
	a.uid = ""
	a.onboarding = false
	a.authErr = nil
	a.nav.Reset()
	a.mu.Unlock()

	a.chat.Reset()
	a.thread.Reset()

	if uid == "" {
		a.logger.Info("Session signed out")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), profileFetchTimeout)
	defer cancel()

	profile, err := a.deps.Profiles.Get(ctx, uid)
	if err != nil {
		a.logger.Error("Failed to load profile, treating session as signed out", "user_id", uid, "error", err)
		a.mu.Lock()
		if generation == a.generation {
			a.authErr = err
		}
		a.mu.Unlock()
		return
	}
	if profile == nil {
		a.logger.Warn("No profile found, treating session as signed out", "user_id", uid)
		return
	}

	onboarded, err := a.isOnboarded(ctx, uid)
	if err != nil {
		a.logger.Warn("Failed to read onboarding flag", "user_id", uid, "error", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if generation != a.generation {
		a.logger.Debug("Discarding stale sign-in", "user_id", uid)
		return
	}
	a.graph.PutUser(*profile)
	a.uid = uid
	a.onboarding = !onboarded
	a.logger.Info("Session signed in", "user_id", uid, "onboarding", a.onboarding)
}

func onboardedKey(uid string) string {
	return "onboarded_" + uid
}

func (a *App) isOnboarded(ctx context.Context, uid string) (bool, error) {
	_, ok, err := a.deps.KV.Get(ctx, onboardedKey(uid))
	return ok, err
}

// SignIn switches the session to uid. It fails if uid has no profile or the
// profile cannot be loaded; the provider is then signed out too, so a retry
// starts a fresh sign-in.
func (a *App) SignIn(uid string) error {
	a.session.SignIn(uid)

	a.mu.Lock()
	signedIn, authErr := a.uid == uid, a.authErr
	a.mu.Unlock()
	if signedIn {
		return nil
	}

	a.session.SignOut()
	if authErr != nil {
		return fmt.Errorf("load profile %s: %w", uid, authErr)
	}
	return ErrProfileMissing
}

// SignUp creates a profile for a new member and signs them in.
func (a *App) SignUp(ctx context.Context, uid, name string, mode domain.Mode) error {
	if err := a.deps.Profiles.Create(ctx, uid, name, mode); err != nil {
		return err
	}
	return a.SignIn(uid)
}

// SignOut ends the session.
func (a *App) SignOut() {
	a.session.SignOut()
}

// CurrentUID returns the signed-in member, or "".
func (a *App) CurrentUID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.uid
}

// me returns the signed-in member's current profile.
func (a *App) me() (domain.UserProfile, error) {
	a.mu.Lock()
	uid := a.uid
	a.mu.Unlock()
	return a.meFor(uid)
}

func (a *App) meFor(uid string) (domain.UserProfile, error) {
	if uid == "" {
		return domain.UserProfile{}, ErrNotSignedIn
	}
	u, ok := a.graph.User(uid)
	if !ok {
		return domain.UserProfile{}, ErrNotSignedIn
	}
	return u, nil
}
