package domain

import (
	"slices"
	"time"
)

// ChatMessage is one immutable entry in a chat history.
type ChatMessage struct {
	ID        int64     `json:"id"`
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Connection is an accepted relationship between two members.
type Connection struct {
	ID           int64         `json:"id"`
	Participant1 string        `json:"participant1"`
	Participant2 string        `json:"participant2"`
	ChatHistory  []ChatMessage `json:"chat_history"`
}

// HasParticipant reports whether uid is one of the two members.
func (c Connection) HasParticipant(uid string) bool {
	return c.Participant1 == uid || c.Participant2 == uid
}

// Other returns the participant that is not uid.
func (c Connection) Other(uid string) string {
	if c.Participant1 == uid {
		return c.Participant2
	}
	return c.Participant1
}

// Joins reports whether the connection links a and b in either order.
func (c Connection) Joins(a, b string) bool {
	return (c.Participant1 == a && c.Participant2 == b) ||
		(c.Participant1 == b && c.Participant2 == a)
}

// LastMessageID returns the highest message id, or 0 for an empty history.
func (c Connection) LastMessageID() int64 {
	var maxID int64
	for _, m := range c.ChatHistory {
		if m.ID > maxID {
			maxID = m.ID
		}
	}
	return maxID
}

// Recent returns the last n messages.
func (c Connection) Recent(n int) []ChatMessage {
	return RecentMessages(c.ChatHistory, n)
}

// Clone returns a copy whose history can be appended to independently.
func (c Connection) Clone() Connection {
	c.ChatHistory = slices.Clone(c.ChatHistory)
	return c
}

// RecentMessages returns the last n entries of history.
func RecentMessages(history []ChatMessage, n int) []ChatMessage {
	if n >= len(history) {
		return history
	}
	return history[len(history)-n:]
}
