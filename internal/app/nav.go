package app

import (
	"fmt"

	"github.com/ashureev/syncup/internal/navigator"
)

// SelectUser opens a member's profile.
func (a *App) SelectUser(uid string) error {
	if _, err := a.Member(uid); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nav.SelectUser(uid)
	return nil
}

// SelectConnection opens one of the current member's chats.
func (a *App) SelectConnection(id int64) error {
	if _, err := a.Connection(id); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nav.SelectConnection(id)
	return nil
}

// StartChat opens the chat with a connected member. It reports false when
// the two are not connected.
func (a *App) StartChat(uid string) (bool, error) {
	me, err := a.me()
	if err != nil {
		return false, err
	}
	for _, c := range a.graph.ConnectionsFor(me.UID) {
		if c.Joins(me.UID, uid) {
			a.mu.Lock()
			a.nav.SelectConnection(c.ID)
			a.mu.Unlock()
			return true, nil
		}
	}
	return false, nil
}

// Open switches to a header tab.
func (a *App) Open(view string) error {
	v, err := navigator.ParseView(view)
	if err != nil {
		return err
	}
	if _, err := a.me(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.nav.Open(v); err != nil {
		return fmt.Errorf("open: %w", err)
	}
	return nil
}

// OpenAssistant shows the assistant overview.
func (a *App) OpenAssistant() error {
	return a.navigate(func(n *navigator.Navigator) { n.OpenAssistant() })
}

// StartConversation opens the interactive assistant chat.
func (a *App) StartConversation() error {
	return a.navigate(func(n *navigator.Navigator) { n.StartConversation() })
}

// Back returns to the previous view.
func (a *App) Back() error {
	return a.navigate(func(n *navigator.Navigator) { n.Back() })
}

// Home returns to the member list.
func (a *App) Home() error {
	return a.navigate(func(n *navigator.Navigator) { n.Home() })
}

func (a *App) navigate(fn func(*navigator.Navigator)) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.uid == "" {
		return ErrNotSignedIn
	}
	fn(a.nav)
	return nil
}
