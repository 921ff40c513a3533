// Package navigator tracks which view a member is looking at and what is selected.
package navigator

import (
	"errors"
	"fmt"
)

// ErrInvalidView is returned for unknown views and views that are not tabs.
var ErrInvalidView = errors.New("invalid view")

// View is a top-level screen.
type View string

const (
	ViewList          View = "list"
	ViewInvites       View = "invites"
	ViewChat          View = "chat"
	ViewProfile       View = "profile"
	ViewAssistant     View = "assistant"
	ViewAssistantChat View = "assistantChat"
)

// ParseView validates a view name.
func ParseView(s string) (View, error) {
	switch v := View(s); v {
	case ViewList, ViewInvites, ViewChat, ViewProfile, ViewAssistant, ViewAssistantChat:
		return v, nil
	default:
		return "", fmt.Errorf("unknown view %q: %w", s, ErrInvalidView)
	}
}

// Tab reports whether v can be opened directly from the header.
func (v View) Tab() bool {
	return v == ViewList || v == ViewInvites || v == ViewAssistant
}

// State is a snapshot of the navigator.
type State struct {
	Current            View   `json:"current"`
	Previous           View   `json:"previous"`
	SelectedUser       string `json:"selectedUser,omitempty"`
	SelectedConnection int64  `json:"selectedConnection,omitempty"`
}

// Navigator holds single-level view history. It is not safe for concurrent
// use; the owning session serializes access.
type Navigator struct {
	state State
}

// New returns a navigator on the list view.
func New() *Navigator {
	return &Navigator{state: State{Current: ViewList, Previous: ViewList}}
}

// State returns the current snapshot.
func (n *Navigator) State() State {
	return n.state
}

// SelectUser opens a member's profile. Coming from another profile, back
// returns to the list rather than the earlier profile.
func (n *Navigator) SelectUser(uid string) {
	if n.state.Current == ViewProfile {
		n.state.Previous = ViewList
	} else {
		n.state.Previous = n.state.Current
	}
	n.state.SelectedUser = uid
	n.state.SelectedConnection = 0
	n.state.Current = ViewProfile
}

// SelectConnection opens a connection's chat.
func (n *Navigator) SelectConnection(id int64) {
	n.state.SelectedConnection = id
	n.state.Current = ViewChat
}

// Open switches to a header tab without touching history.
func (n *Navigator) Open(v View) error {
	if !v.Tab() {
		return fmt.Errorf("view %q cannot be opened directly: %w", v, ErrInvalidView)
	}
	n.state.Current = v
	return nil
}

// OpenAssistant shows the assistant overview.
func (n *Navigator) OpenAssistant() {
	n.state.Current = ViewAssistant
}

// StartConversation opens the interactive assistant chat.
func (n *Navigator) StartConversation() {
	n.state.Current = ViewAssistantChat
}

// Back clears selections and returns to the previous view. The assistant
// chat always returns to the assistant overview.
func (n *Navigator) Back() {
	n.state.SelectedUser = ""
	n.state.SelectedConnection = 0
	if n.state.Current == ViewAssistantChat {
		n.state.Current = ViewAssistant
		return
	}
	n.state.Current = n.state.Previous
}

// Home returns to the list and clears selections.
func (n *Navigator) Home() {
	n.state.SelectedUser = ""
	n.state.SelectedConnection = 0
	n.state.Current = ViewList
}

// Reset restores the initial state.
func (n *Navigator) Reset() {
	n.state = State{Current: ViewList, Previous: ViewList}
}
