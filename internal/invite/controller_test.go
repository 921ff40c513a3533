package invite

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ashureev/syncup/internal/domain"
	"github.com/ashureev/syncup/internal/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newController(t *testing.T) (*Controller, *graph.Store) {
	t.Helper()
	g := graph.New()
	g.Seed([]domain.UserProfile{{UID: "A", Name: "Ana"}, {UID: "B", Name: "Ben"}}, nil, nil)
	return NewController(g, func() time.Time { return fixedNow }, nil), g
}

func TestRespondAcceptedSeedsHistory(t *testing.T) {
	c, g := newController(t)
	g.AddInvite(domain.Invite{
		ID: 1, From: "A", To: "B", Status: domain.InviteStatusPending,
		Message: "Hi", SuggestedTime: "Friday 3pm",
	})

	conn, ok, err := c.Respond(1, domain.InviteStatusAccepted)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, conn)

	assert.Equal(t, int64(1), conn.ID)
	assert.True(t, conn.Joins("A", "B"))
	require.Len(t, conn.ChatHistory, 2)
	assert.Equal(t, domain.Member("A"), conn.ChatHistory[0].Sender)
	assert.Equal(t, "Hi", conn.ChatHistory[0].Text)
	assert.Equal(t, domain.Member("A"), conn.ChatHistory[1].Sender)
	assert.Equal(t, "By the way, I suggested a time: Friday 3pm", conn.ChatHistory[1].Text)
	assert.Less(t, conn.ChatHistory[0].ID, conn.ChatHistory[1].ID)

	stored, found := g.Connection(1)
	require.True(t, found)
	assert.Equal(t, conn.ChatHistory, stored.ChatHistory)

	inv, _ := g.Invite(1)
	assert.Equal(t, domain.InviteStatusAccepted, inv.Status)
}

func TestRespondAcceptedWithoutMessage(t *testing.T) {
	c, g := newController(t)
	g.AddInvite(domain.Invite{ID: 7, From: "A", To: "B", Status: domain.InviteStatusPending})

	conn, ok, err := c.Respond(7, domain.InviteStatusAccepted)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, conn.ChatHistory)
}

func TestRespondDeclinedCreatesNoConnection(t *testing.T) {
	c, g := newController(t)
	g.AddInvite(domain.Invite{ID: 1, From: "A", To: "B", Status: domain.InviteStatusPending, Message: "Hi"})

	conn, ok, err := c.Respond(1, domain.InviteStatusDeclined)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Nil(t, conn)

	_, found := g.Connection(1)
	assert.False(t, found)
	inv, _ := g.Invite(1)
	assert.Equal(t, domain.InviteStatusDeclined, inv.Status)
}

func TestRespondIsIdempotent(t *testing.T) {
	tests := []struct {
		name   string
		first  domain.InviteStatus
		second domain.InviteStatus
	}{
		{"accept then decline", domain.InviteStatusAccepted, domain.InviteStatusDeclined},
		{"decline then accept", domain.InviteStatusDeclined, domain.InviteStatusAccepted},
		{"accept twice", domain.InviteStatusAccepted, domain.InviteStatusAccepted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, g := newController(t)
			g.AddInvite(domain.Invite{ID: 1, From: "A", To: "B", Status: domain.InviteStatusPending, Message: "Hi"})

			_, ok, err := c.Respond(1, tt.first)
			require.NoError(t, err)
			require.True(t, ok)
			before := g.ConnectionsFor("A")

			conn, ok, err := c.Respond(1, tt.second)
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Nil(t, conn)

			inv, _ := g.Invite(1)
			assert.Equal(t, tt.first, inv.Status)
			assert.Equal(t, before, g.ConnectionsFor("A"))
		})
	}
}

func TestRespondConcurrentResolvesOnce(t *testing.T) {
	for round := 0; round < 20; round++ {
		c, g := newController(t)
		g.AddInvite(domain.Invite{ID: 1, From: "A", To: "B", Status: domain.InviteStatusPending, Message: "Hi"})

		var (
			wg      sync.WaitGroup
			start   = make(chan struct{})
			winners atomic.Int32
			won     atomic.Value
		)
		for i := 0; i < 16; i++ {
			response := domain.InviteStatusAccepted
			if i%2 == 1 {
				response = domain.InviteStatusDeclined
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				_, ok, err := c.Respond(1, response)
				assert.NoError(t, err)
				if ok {
					winners.Add(1)
					won.Store(response)
				}
			}()
		}
		close(start)
		wg.Wait()

		require.Equal(t, int32(1), winners.Load())
		inv, _ := g.Invite(1)
		assert.Equal(t, won.Load(), inv.Status)
		_, connected := g.Connection(1)
		assert.Equal(t, inv.Status == domain.InviteStatusAccepted, connected)
		assert.LessOrEqual(t, len(g.ConnectionsFor("A")), 1)
	}
}

func TestRespondUnknownInvite(t *testing.T) {
	c, g := newController(t)

	conn, ok, err := c.Respond(42, domain.InviteStatusAccepted)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, conn)
	assert.Empty(t, g.ConnectionsFor("A"))
}

func TestRespondRejectsPendingAsResponse(t *testing.T) {
	c, g := newController(t)
	g.AddInvite(domain.Invite{ID: 1, From: "A", To: "B", Status: domain.InviteStatusPending})

	_, _, err := c.Respond(1, domain.InviteStatusPending)
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestSendCreatesPendingInvite(t *testing.T) {
	c, g := newController(t)

	inv, err := c.Send("A", "B", "Hello", "")
	require.NoError(t, err)
	assert.Equal(t, domain.InviteStatusPending, inv.Status)
	assert.True(t, g.HasReceivedInviteFrom("B", "A"))

	dup, err := c.Send("A", "B", "Hello again", "")
	require.NoError(t, err)
	assert.NotEqual(t, inv.ID, dup.ID)
	assert.Len(t, g.PendingInvitesFor("B"), 2)
}

func TestSendValidation(t *testing.T) {
	c, _ := newController(t)

	_, err := c.Send("A", "A", "", "")
	assert.ErrorIs(t, err, ErrSelfInvite)

	_, err = c.Send("A", "Z", "", "")
	assert.ErrorIs(t, err, ErrUnknownUser)
}
