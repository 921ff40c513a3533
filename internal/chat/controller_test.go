package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/syncup/internal/domain"
	"github.com/ashureev/syncup/internal/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// gatedNudger blocks each call until released.
type gatedNudger struct {
	mu       sync.Mutex
	calls    int
	started  chan struct{}
	release  chan struct{}
	response string
}

func newGatedNudger() *gatedNudger {
	return &gatedNudger{
		started:  make(chan struct{}, 10),
		release:  make(chan struct{}, 10),
		response: "What day works for both of you?",
	}
}

func (n *gatedNudger) SchedulingNudge(ctx context.Context, _ []domain.ChatMessage, _, _ domain.UserProfile) string {
	n.mu.Lock()
	n.calls++
	n.mu.Unlock()
	n.started <- struct{}{}
	select {
	case <-n.release:
	case <-ctx.Done():
	}
	return n.response
}

func (n *gatedNudger) callCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) record(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) types() []EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]EventType, 0, len(l.events))
	for _, e := range l.events {
		out = append(out, e.Type)
	}
	return out
}

var fixed = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func setup(t *testing.T, nudger Nudger) (*Controller, *graph.Store, *eventLog) {
	t.Helper()
	g := graph.New()
	g.Seed(
		[]domain.UserProfile{{UID: "me", Name: "Alex"}, {UID: "d", Name: "Diana"}, {UID: "x", Name: "Xavier"}},
		nil,
		[]domain.Connection{{ID: 101, Participant1: "me", Participant2: "d", ChatHistory: []domain.ChatMessage{
			{ID: 1, Sender: domain.Member("d"), Text: "Hi!", Timestamp: fixed},
		}}},
	)
	log := &eventLog{}
	c := NewController(g, nudger, Options{Now: func() time.Time { return fixed }, Observer: log.record})
	t.Cleanup(c.Close)
	return c, g, log
}

func TestAppendAssignsNextID(t *testing.T) {
	conn := domain.Connection{ID: 1, ChatHistory: []domain.ChatMessage{{ID: 3}, {ID: 7}}}
	updated, msg := Append(conn, domain.Member("a"), "hey", fixed)

	assert.Equal(t, int64(8), msg.ID)
	assert.Len(t, updated.ChatHistory, 3)
	assert.Len(t, conn.ChatHistory, 2, "input is not mutated")
}

func TestMentionsScheduling(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"Let's MEET up", true},
		{"what time works", true},
		{"Overtime again", true},
		{"Can we Connect?", true},
		{"sounds great", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MentionsScheduling(tt.text), tt.text)
	}
}

func TestSendWithoutKeywordAddsOneMessage(t *testing.T) {
	nudger := newGatedNudger()
	c, g, _ := setup(t, nudger)

	r, err := c.Send(101, domain.Member("me"), "Sounds great")
	require.NoError(t, err)
	res, err := r.Wait(context.Background())
	require.NoError(t, err)
	assert.Nil(t, res.Reply)
	assert.Equal(t, int64(2), res.Message.ID)

	conn, _ := g.Connection(101)
	assert.Len(t, conn.ChatHistory, 2)
	assert.Zero(t, nudger.callCount())
}

func TestKeywordTriggersExactlyOneAssistantReply(t *testing.T) {
	nudger := newGatedNudger()
	c, g, log := setup(t, nudger)

	r, err := c.Send(101, domain.Member("me"), "Let's meet next week")
	require.NoError(t, err)

	<-nudger.started
	assert.True(t, c.Typing(101), "typing is set while the assistant is working")
	conn, _ := g.Connection(101)
	assert.Len(t, conn.ChatHistory, 2, "member message is visible before the reply")

	nudger.release <- struct{}{}
	res, err := r.Wait(context.Background())
	require.NoError(t, err)
	require.NotNil(t, res.Reply)

	assert.False(t, c.Typing(101))
	conn, _ = g.Connection(101)
	require.Len(t, conn.ChatHistory, 3)
	assert.Equal(t, domain.EmbeddedAssistant, conn.ChatHistory[2].Sender)
	assert.Equal(t, "What day works for both of you?", conn.ChatHistory[2].Text)
	assert.Equal(t, 1, nudger.callCount())

	assert.Equal(t, []EventType{EventMessage, EventTyping, EventMessage, EventTyping}, log.types())
}

func TestQueuedSendsWaitForAssistantReply(t *testing.T) {
	nudger := newGatedNudger()
	c, g, _ := setup(t, nudger)

	first, err := c.Send(101, domain.Member("me"), "can we schedule a call?")
	require.NoError(t, err)
	<-nudger.started

	second, err := c.Send(101, domain.Member("d"), "sure thing")
	require.NoError(t, err)

	nudger.release <- struct{}{}
	_, err = first.Wait(context.Background())
	require.NoError(t, err)
	_, err = second.Wait(context.Background())
	require.NoError(t, err)

	conn, _ := g.Connection(101)
	require.Len(t, conn.ChatHistory, 4)
	assert.Equal(t, "can we schedule a call?", conn.ChatHistory[1].Text)
	assert.Equal(t, domain.EmbeddedAssistant, conn.ChatHistory[2].Sender)
	assert.Equal(t, "sure thing", conn.ChatHistory[3].Text)
	for i := 1; i < len(conn.ChatHistory); i++ {
		assert.Greater(t, conn.ChatHistory[i].ID, conn.ChatHistory[i-1].ID)
	}
}

func TestAssistantMessagesDoNotTrigger(t *testing.T) {
	nudger := newGatedNudger()
	c, _, _ := setup(t, nudger)

	r, err := c.Send(101, domain.EmbeddedAssistant, "time to meet?")
	require.NoError(t, err)
	res, err := r.Wait(context.Background())
	require.NoError(t, err)
	assert.Nil(t, res.Reply)
	assert.Zero(t, nudger.callCount())
}

func TestResetDiscardsInFlightReply(t *testing.T) {
	nudger := newGatedNudger()
	c, g, _ := setup(t, nudger)

	r, err := c.Send(101, domain.Member("me"), "let's meet")
	require.NoError(t, err)
	<-nudger.started

	c.Reset()
	assert.False(t, c.Typing(101))
	nudger.release <- struct{}{}

	res, err := r.Wait(context.Background())
	require.NoError(t, err)
	assert.Nil(t, res.Reply)

	conn, _ := g.Connection(101)
	assert.Len(t, conn.ChatHistory, 2)
	assert.False(t, c.Typing(101))
}

func TestSendErrors(t *testing.T) {
	c, _, _ := setup(t, newGatedNudger())

	_, err := c.Send(101, domain.Member("me"), "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	r, err := c.Send(999, domain.Member("me"), "hi")
	require.NoError(t, err)
	_, err = r.Wait(context.Background())
	assert.ErrorIs(t, err, ErrUnknownConnection)

	r, err = c.Send(101, domain.Member("x"), "hi")
	require.NoError(t, err)
	_, err = r.Wait(context.Background())
	assert.ErrorIs(t, err, ErrNotParticipant)
}

func TestCloseCancelsInFlightCalls(t *testing.T) {
	g := graph.New()
	g.Seed([]domain.UserProfile{{UID: "me"}, {UID: "d"}}, nil,
		[]domain.Connection{{ID: 1, Participant1: "me", Participant2: "d"}})
	nudger := newGatedNudger()
	c := NewController(g, nudger, Options{})

	_, err := c.Send(1, domain.Member("me"), "call me")
	require.NoError(t, err)
	<-nudger.started
	c.Close()

	_, err = c.Send(1, domain.Member("me"), "hello")
	assert.ErrorIs(t, err, ErrClosed)
}
