// Package graph holds the in-memory users, invites, and connections of one session.
package graph

import (
	"slices"
	"sync"

	"github.com/ashureev/syncup/internal/domain"
)

// Store is the authoritative connection graph for a session.
// All reads return copies; mutations replace whole records.
type Store struct {
	mu          sync.RWMutex
	users       map[string]domain.UserProfile
	userOrder   []string
	invites     []domain.Invite
	connections []domain.Connection
	lastID      int64
}

// New returns an empty store.
func New() *Store {
	return &Store{users: make(map[string]domain.UserProfile)}
}

// Seed loads initial records. Existing records with the same identity are kept.
func (s *Store) Seed(users []domain.UserProfile, invites []domain.Invite, connections []domain.Connection) {
	for _, u := range users {
		s.PutUser(u)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inv := range invites {
		if s.inviteIndex(inv.ID) >= 0 {
			continue
		}
		s.invites = append(s.invites, inv)
		s.bumpID(inv.ID)
	}
	for _, c := range connections {
		if s.connectionIndex(c.ID) >= 0 {
			continue
		}
		s.connections = append(s.connections, c.Clone())
		s.bumpID(c.ID)
	}
}

// PutUser inserts the profile unless a user with that uid already exists.
// It reports whether the profile was inserted.
func (s *Store) PutUser(u domain.UserProfile) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.UID]; ok {
		return false
	}
	s.users[u.UID] = u.Clone()
	s.userOrder = append(s.userOrder, u.UID)
	return true
}

// User returns the profile for uid.
func (s *Store) User(uid string) (domain.UserProfile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[uid]
	if !ok {
		return domain.UserProfile{}, false
	}
	return u.Clone(), true
}

// Users returns every profile in insertion order.
func (s *Store) Users() []domain.UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.UserProfile, 0, len(s.userOrder))
	for _, uid := range s.userOrder {
		out = append(out, s.users[uid].Clone())
	}
	return out
}

// IncrementKudos adds one kudos to uid and returns the new total.
func (s *Store) IncrementKudos(uid string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[uid]
	if !ok {
		return 0, false
	}
	u.Kudos++
	s.users[uid] = u
	return u.Kudos, true
}

// SetGoals replaces the goal set of uid.
func (s *Store) SetGoals(uid string, goals []string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[uid]
	if !ok {
		return false
	}
	u.Goals = slices.Clone(goals)
	s.users[uid] = u
	return true
}

// NextID reserves an id greater than every invite and connection id.
func (s *Store) NextID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastID++
	return s.lastID
}

// Invite returns the invite with id.
func (s *Store) Invite(id int64) (domain.Invite, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.inviteIndex(id)
	if i < 0 {
		return domain.Invite{}, false
	}
	return s.invites[i], true
}

// AddInvite appends a new invite.
func (s *Store) AddInvite(inv domain.Invite) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invites = append(s.invites, inv)
	s.bumpID(inv.ID)
}

// ResolveInvite moves a pending invite to status and returns the updated
// invite. It reports false, changing nothing, when the invite is missing or
// no longer pending, so at most one caller resolves any invite.
func (s *Store) ResolveInvite(id int64, status domain.InviteStatus) (domain.Invite, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.inviteIndex(id)
	if i < 0 || s.invites[i].Status != domain.InviteStatusPending {
		return domain.Invite{}, false
	}
	s.invites[i].Status = status
	return s.invites[i], true
}

// Connection returns the connection with id.
func (s *Store) Connection(id int64) (domain.Connection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.connectionIndex(id)
	if i < 0 {
		return domain.Connection{}, false
	}
	return s.connections[i].Clone(), true
}

// AddConnection appends a new connection.
func (s *Store) AddConnection(c domain.Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connections = append(s.connections, c.Clone())
	s.bumpID(c.ID)
}

// ReplaceConnection swaps the stored connection with the same id.
func (s *Store) ReplaceConnection(c domain.Connection) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.connectionIndex(c.ID)
	if i < 0 {
		return false
	}
	s.connections[i] = c.Clone()
	return true
}

// PendingInvitesFor returns pending invites addressed to uid.
func (s *Store) PendingInvitesFor(uid string) []domain.Invite {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Invite
	for _, inv := range s.invites {
		if inv.To == uid && inv.Status == domain.InviteStatusPending {
			out = append(out, inv)
		}
	}
	return out
}

// ConnectionsFor returns the connections uid participates in.
func (s *Store) ConnectionsFor(uid string) []domain.Connection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Connection
	for _, c := range s.connections {
		if c.HasParticipant(uid) {
			out = append(out, c.Clone())
		}
	}
	return out
}

// IsConnected reports whether a and b share a connection.
func (s *Store) IsConnected(a, b string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isConnected(a, b)
}

// HasReceivedInviteFrom reports whether uid holds a pending invite from fromUID.
func (s *Store) HasReceivedInviteFrom(uid, fromUID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasPending(fromUID, uid)
}

// HasSentInviteTo reports whether uid has a pending invite out to toUID.
func (s *Store) HasSentInviteTo(uid, toUID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasPending(uid, toUID)
}

// StatusBetween describes other from the point of view of me.
func (s *Store) StatusBetween(me, other string) domain.ConnectionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch {
	case s.isConnected(me, other):
		return domain.StatusConnected
	case s.hasPending(other, me):
		return domain.StatusReceived
	case s.hasPending(me, other):
		return domain.StatusSent
	default:
		return domain.StatusNone
	}
}

// Directory returns every member except me whose mode matches the filter.
// ModeBoth (or an empty filter) matches everyone.
func (s *Store) Directory(me string, filter domain.Mode) []domain.UserProfile {
	var out []domain.UserProfile
	for _, u := range s.Users() {
		if u.UID == me {
			continue
		}
		if filter != "" && filter != domain.ModeBoth && u.Mode != filter {
			continue
		}
		out = append(out, u)
	}
	return out
}

func (s *Store) isConnected(a, b string) bool {
	for _, c := range s.connections {
		if c.Joins(a, b) {
			return true
		}
	}
	return false
}

func (s *Store) hasPending(from, to string) bool {
	for _, inv := range s.invites {
		if inv.From == from && inv.To == to && inv.Status == domain.InviteStatusPending {
			return true
		}
	}
	return false
}

func (s *Store) inviteIndex(id int64) int {
	return slices.IndexFunc(s.invites, func(inv domain.Invite) bool { return inv.ID == id })
}

func (s *Store) connectionIndex(id int64) int {
	return slices.IndexFunc(s.connections, func(c domain.Connection) bool { return c.ID == id })
}

func (s *Store) bumpID(id int64) {
	if id > s.lastID {
		s.lastID = id
	}
}
