// Package chat appends messages to connection chats and runs the embedded
// scheduling assistant.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/syncup/internal/domain"
)

var (
	// ErrUnknownConnection is returned when the target connection does not exist.
	ErrUnknownConnection = errors.New("unknown connection")
	// ErrNotParticipant is returned when a member writes to a chat they are not part of.
	ErrNotParticipant = errors.New("sender is not a participant")
	// ErrEmptyMessage is returned for blank message text.
	ErrEmptyMessage = errors.New("message text is empty")
	// ErrStale is returned when a queued send was overtaken by Reset.
	ErrStale = errors.New("send discarded after session reset")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("chat controller closed")
)

// SchedulingKeywords trigger the embedded assistant when found in a member's message.
var SchedulingKeywords = []string{"meet", "schedule", "call", "time", "calendar", "connect"}

// MentionsScheduling reports whether text contains a scheduling keyword,
// ignoring case. Matching is by substring, so "Overtime" also matches.
func MentionsScheduling(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range SchedulingKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Graph is the subset of the connection graph the controller needs.
type Graph interface {
	User(uid string) (domain.UserProfile, bool)
	Connection(id int64) (domain.Connection, bool)
	ReplaceConnection(c domain.Connection) bool
}

// Nudger produces the embedded assistant's scheduling reply.
type Nudger interface {
	SchedulingNudge(ctx context.Context, history []domain.ChatMessage, me, other domain.UserProfile) string
}

// EventType distinguishes chat events.
type EventType string

const (
	EventMessage EventType = "message"
	EventTyping  EventType = "typing"
)

// Event reports a change to a chat.
type Event struct {
	Type         EventType           `json:"type"`
	ConnectionID int64               `json:"connectionId"`
	Message      *domain.ChatMessage `json:"message,omitempty"`
	Typing       bool                `json:"typing"`
}

// Append returns conn with a new message from sender. The message id is one
// more than the highest id in the history.
func Append(conn domain.Connection, sender domain.Sender, text string, at time.Time) (domain.Connection, domain.ChatMessage) {
	msg := domain.ChatMessage{
		ID:        conn.LastMessageID() + 1,
		Sender:    sender,
		Text:      text,
		Timestamp: at,
	}
	conn = conn.Clone()
	conn.ChatHistory = append(conn.ChatHistory, msg)
	return conn, msg
}

// Result describes a completed send.
type Result struct {
	Message domain.ChatMessage
	// Reply is the embedded assistant's message, if the send triggered one.
	Reply *domain.ChatMessage
}

// Receipt tracks a queued send.
type Receipt struct {
	done   chan struct{}
	result Result
	err    error
}

// Wait blocks until the send, and any assistant reply it triggered, is applied.
func (r *Receipt) Wait(ctx context.Context) (Result, error) {
	select {
	case <-r.done:
		return r.result, r.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

type job struct {
	generation uint64
	connID     int64
	sender     domain.Sender
	text       string
	receipt    *Receipt
}

// Controller serializes sends per connection. Each connection with queued
// sends has one lane goroutine that applies them in order, so an assistant
// reply always directly follows the message that triggered it.
type Controller struct {
	graph   Graph
	nudger  Nudger
	now     func() time.Time
	logger  *slog.Logger
	observe func(Event)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	lanes      map[int64][]*job
	typing     map[int64]bool
	generation uint64
	closed     bool
}

// Options configures a Controller.
type Options struct {
	Now      func() time.Time
	Logger   *slog.Logger
	Observer func(Event)
}

// NewController creates a chat controller.
func NewController(graph Graph, nudger Nudger, opts Options) *Controller {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Observer == nil {
		opts.Observer = func(Event) {}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		graph:   graph,
		nudger:  nudger,
		now:     opts.Now,
		logger:  opts.Logger,
		observe: opts.Observer,
		ctx:     ctx,
		cancel:  cancel,
		lanes:   make(map[int64][]*job),
		typing:  make(map[int64]bool),
	}
}

// Send queues text from sender on the connection's lane.
func (c *Controller) Send(connID int64, sender domain.Sender, text string) (*Receipt, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	j := &job{
		generation: c.generation,
		connID:     connID,
		sender:     sender,
		text:       text,
		receipt:    &Receipt{done: make(chan struct{})},
	}
	queue, running := c.lanes[connID]
	c.lanes[connID] = append(queue, j)
	if !running {
		c.wg.Add(1)
		go c.runLane(connID)
	}
	return j.receipt, nil
}

// runLane drains the connection's queue and exits when it is empty.
func (c *Controller) runLane(connID int64) {
	defer c.wg.Done()
	for {
		c.mu.Lock()
		queue := c.lanes[connID]
		if len(queue) == 0 {
			delete(c.lanes, connID)
			c.mu.Unlock()
			return
		}
		j := queue[0]
		c.lanes[connID] = queue[1:]
		c.mu.Unlock()

		res, err := c.process(j)
		j.receipt.result, j.receipt.err = res, err
		close(j.receipt.done)
	}
}

func (c *Controller) process(j *job) (Result, error) {
	c.mu.Lock()
	if j.generation != c.generation {
		c.mu.Unlock()
		return Result{}, ErrStale
	}
	conn, ok := c.graph.Connection(j.connID)
	if !ok {
		c.mu.Unlock()
		return Result{}, ErrUnknownConnection
	}
	if j.sender.Kind == domain.SenderMember && !conn.HasParticipant(j.sender.UID) {
		c.mu.Unlock()
		return Result{}, ErrNotParticipant
	}
	conn, msg := Append(conn, j.sender, j.text, c.now())
	c.graph.ReplaceConnection(conn)
	c.mu.Unlock()
	c.observe(Event{Type: EventMessage, ConnectionID: conn.ID, Message: &msg})

	res := Result{Message: msg}
	if j.sender.Kind != domain.SenderMember || !MentionsScheduling(j.text) {
		return res, nil
	}

	me, _ := c.graph.User(j.sender.UID)
	other, _ := c.graph.User(conn.Other(j.sender.UID))

	c.setTyping(j.generation, conn.ID, true)
	text := c.nudger.SchedulingNudge(c.ctx, conn.ChatHistory, me, other)
	reply, applied := c.applyReply(j.generation, conn.ID, text)
	c.setTyping(j.generation, conn.ID, false)

	if !applied {
		c.logger.Info("Dropping assistant reply after session reset", "connection_id", conn.ID)
		return res, nil
	}
	res.Reply = &reply
	return res, nil
}

// applyReply appends the assistant message to the current version of the
// connection, unless the session was reset since the job was queued.
func (c *Controller) applyReply(generation uint64, connID int64, text string) (domain.ChatMessage, bool) {
	c.mu.Lock()
	if generation != c.generation {
		c.mu.Unlock()
		return domain.ChatMessage{}, false
	}
	conn, ok := c.graph.Connection(connID)
	if !ok {
		c.mu.Unlock()
		return domain.ChatMessage{}, false
	}
	conn, msg := Append(conn, domain.EmbeddedAssistant, text, c.now())
	c.graph.ReplaceConnection(conn)
	c.mu.Unlock()

	c.observe(Event{Type: EventMessage, ConnectionID: connID, Message: &msg})
	return msg, true
}

func (c *Controller) setTyping(generation uint64, connID int64, typing bool) {
	c.mu.Lock()
	if generation != c.generation {
		c.mu.Unlock()
		return
	}
	if typing {
		c.typing[connID] = true
	} else {
		delete(c.typing, connID)
	}
	c.mu.Unlock()
	c.observe(Event{Type: EventTyping, ConnectionID: connID, Typing: typing})
}

// Typing reports whether the embedded assistant is composing a reply in the connection.
func (c *Controller) Typing(connID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.typing[connID]
}

// Reset invalidates queued and in-flight sends. Their assistant replies are
// discarded when they complete.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.generation++
	cleared := make([]int64, 0, len(c.typing))
	for id := range c.typing {
		cleared = append(cleared, id)
	}
	c.typing = make(map[int64]bool)
	c.mu.Unlock()

	for _, id := range cleared {
		c.observe(Event{Type: EventTyping, ConnectionID: id, Typing: false})
	}
}

// Close cancels in-flight assistant calls and waits for all lanes to drain.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.cancel()
	c.wg.Wait()
}
