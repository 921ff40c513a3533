package graph

import (
	"sync"
	"testing"

	"github.com/ashureev/syncup/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSeededStore() *Store {
	s := New()
	s.Seed(
		[]domain.UserProfile{
			{UID: "a", Name: "Ana", Mode: domain.ModeSocial, Kudos: 1},
			{UID: "b", Name: "Ben", Mode: domain.ModeProfessional},
			{UID: "c", Name: "Cy", Mode: domain.ModeSocial},
			{UID: "d", Name: "Di", Mode: domain.ModeProfessional},
		},
		[]domain.Invite{
			{ID: 1, From: "b", To: "a", Status: domain.InviteStatusPending},
			{ID: 2, From: "a", To: "c", Status: domain.InviteStatusPending},
			{ID: 3, From: "d", To: "a", Status: domain.InviteStatusDeclined},
		},
		[]domain.Connection{
			{ID: 101, Participant1: "a", Participant2: "d"},
		},
	)
	return s
}

func TestPendingInvitesFor(t *testing.T) {
	s := newSeededStore()

	got := s.PendingInvitesFor("a")
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Empty(t, s.PendingInvitesFor("b"))
}

func TestConnectionsAndIsConnected(t *testing.T) {
	s := newSeededStore()

	assert.Len(t, s.ConnectionsFor("a"), 1)
	assert.Len(t, s.ConnectionsFor("d"), 1)
	assert.Empty(t, s.ConnectionsFor("b"))
	assert.True(t, s.IsConnected("a", "d"))
	assert.True(t, s.IsConnected("d", "a"))
	assert.False(t, s.IsConnected("a", "b"))
}

func TestHasReceivedInviteFrom(t *testing.T) {
	s := newSeededStore()

	assert.True(t, s.HasReceivedInviteFrom("a", "b"))
	assert.False(t, s.HasReceivedInviteFrom("a", "d"), "declined invites do not count")
	assert.False(t, s.HasReceivedInviteFrom("b", "a"))
}

func TestStatusBetweenPrecedence(t *testing.T) {
	s := newSeededStore()

	assert.Equal(t, domain.StatusConnected, s.StatusBetween("a", "d"))
	assert.Equal(t, domain.StatusReceived, s.StatusBetween("a", "b"))
	assert.Equal(t, domain.StatusSent, s.StatusBetween("a", "c"))
	assert.Equal(t, domain.StatusNone, s.StatusBetween("b", "c"))

	// A pending invite between connected members still reports connected.
	s.AddInvite(domain.Invite{ID: s.NextID(), From: "d", To: "a", Status: domain.InviteStatusPending})
	assert.Equal(t, domain.StatusConnected, s.StatusBetween("a", "d"))
}

func TestIncrementKudosVisibleToLaterReads(t *testing.T) {
	s := newSeededStore()

	total, ok := s.IncrementKudos("a")
	require.True(t, ok)
	assert.Equal(t, 2, total)

	u, _ := s.User("a")
	assert.Equal(t, 2, u.Kudos)

	_, ok = s.IncrementKudos("missing")
	assert.False(t, ok)
}

func TestIncrementKudosConcurrent(t *testing.T) {
	s := newSeededStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.IncrementKudos("b")
		}()
	}
	wg.Wait()

	u, _ := s.User("b")
	assert.Equal(t, 50, u.Kudos)
}

func TestResolveInviteOnlyFromPending(t *testing.T) {
	s := newSeededStore()

	inv, ok := s.ResolveInvite(1, domain.InviteStatusAccepted)
	require.True(t, ok)
	assert.Equal(t, domain.InviteStatusAccepted, inv.Status)

	_, ok = s.ResolveInvite(1, domain.InviteStatusDeclined)
	assert.False(t, ok)
	stored, _ := s.Invite(1)
	assert.Equal(t, domain.InviteStatusAccepted, stored.Status)

	_, ok = s.ResolveInvite(3, domain.InviteStatusAccepted)
	assert.False(t, ok, "declined invites stay declined")
	_, ok = s.ResolveInvite(404, domain.InviteStatusAccepted)
	assert.False(t, ok)
}

func TestNextIDSkipsSeededIDs(t *testing.T) {
	s := newSeededStore()

	assert.Equal(t, int64(102), s.NextID())
	assert.Equal(t, int64(103), s.NextID())
}

func TestReturnedValuesAreCopies(t *testing.T) {
	s := newSeededStore()

	c, ok := s.Connection(101)
	require.True(t, ok)
	c.ChatHistory = append(c.ChatHistory, domain.ChatMessage{ID: 1, Text: "leak"})

	stored, _ := s.Connection(101)
	assert.Empty(t, stored.ChatHistory)

	u, _ := s.User("a")
	u.Goals = append(u.Goals, "leak")
	again, _ := s.User("a")
	assert.Empty(t, again.Goals)
}

func TestDirectoryFiltersByModeAndSelf(t *testing.T) {
	s := newSeededStore()

	all := s.Directory("a", domain.ModeBoth)
	assert.Len(t, all, 3)

	social := s.Directory("a", domain.ModeSocial)
	require.Len(t, social, 1)
	assert.Equal(t, "c", social[0].UID)
}

func TestPutUserDoesNotOverwrite(t *testing.T) {
	s := newSeededStore()

	assert.False(t, s.PutUser(domain.UserProfile{UID: "a", Name: "Other"}))
	u, _ := s.User("a")
	assert.Equal(t, "Ana", u.Name)
}
