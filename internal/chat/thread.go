package chat

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/syncup/internal/domain"
)

// Turner answers a member in the interactive assistant thread.
type Turner interface {
	InteractiveTurn(ctx context.Context, history []domain.ChatMessage, me domain.UserProfile) string
}

// Thread is a member's conversation with the interactive assistant.
type Thread struct {
	turner Turner
	now    func() time.Time

	// sendMu keeps each member message directly followed by its reply.
	sendMu sync.Mutex

	mu         sync.Mutex
	history    []domain.ChatMessage
	typing     bool
	generation uint64
}

// NewThread creates an empty thread.
func NewThread(turner Turner, now func() time.Time) *Thread {
	if now == nil {
		now = time.Now
	}
	return &Thread{turner: turner, now: now}
}

// Send appends the member's message, asks the assistant, and appends its reply.
// Sends are handled one at a time. If the thread is reset while the
// assistant is answering, the reply is dropped and ok is false.
func (t *Thread) Send(ctx context.Context, me domain.UserProfile, text string) (reply domain.ChatMessage, ok bool, err error) {
	if strings.TrimSpace(text) == "" {
		return domain.ChatMessage{}, false, ErrEmptyMessage
	}

	t.sendMu.Lock()
	defer t.sendMu.Unlock()

	t.mu.Lock()
	generation := t.generation
	t.history = append(t.history, domain.ChatMessage{
		ID:        lastID(t.history) + 1,
		Sender:    domain.Member(me.UID),
		Text:      text,
		Timestamp: t.now(),
	})
	snapshot := slices.Clone(t.history)
	t.typing = true
	t.mu.Unlock()

	answer := t.turner.InteractiveTurn(ctx, snapshot, me)

	t.mu.Lock()
	defer t.mu.Unlock()
	if generation != t.generation {
		return domain.ChatMessage{}, false, nil
	}
	reply = domain.ChatMessage{
		ID:        lastID(t.history) + 1,
		Sender:    domain.InteractiveAssistant,
		Text:      answer,
		Timestamp: t.now(),
	}
	t.history = append(t.history, reply)
	t.typing = false
	return reply, true, nil
}

// History returns a copy of the thread.
func (t *Thread) History() []domain.ChatMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.history)
}

// Typing reports whether the assistant is composing a reply.
func (t *Thread) Typing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.typing
}

// Reset clears the thread and discards in-flight replies.
func (t *Thread) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.generation++
	t.history = nil
	t.typing = false
}

func lastID(history []domain.ChatMessage) int64 {
	var maxID int64
	for _, m := range history {
		maxID = max(maxID, m.ID)
	}
	return maxID
}
