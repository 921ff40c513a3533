// Package invite drives the invite → connection state machine.
package invite

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ashureev/syncup/internal/domain"
)

var (
	// ErrSelfInvite is returned when a member invites themselves.
	ErrSelfInvite = errors.New("cannot invite yourself")
	// ErrUnknownUser is returned when either side of an invite does not exist.
	ErrUnknownUser = errors.New("unknown user")
	// ErrInvalidResponse is returned for responses other than accept or decline.
	ErrInvalidResponse = errors.New("response must be Accepted or Declined")
)

// Graph is the subset of the connection graph the controller mutates.
type Graph interface {
	User(uid string) (domain.UserProfile, bool)
	NextID() int64
	AddInvite(inv domain.Invite)
	ResolveInvite(id int64, status domain.InviteStatus) (domain.Invite, bool)
	AddConnection(c domain.Connection)
}

// Controller creates invites and resolves them.
type Controller struct {
	graph  Graph
	now    func() time.Time
	logger *slog.Logger
}

// NewController creates an invite controller over graph.
func NewController(graph Graph, now func() time.Time, logger *slog.Logger) *Controller {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{graph: graph, now: now, logger: logger}
}

// Send creates a pending invite from one member to another.
// Duplicate pending invites between the same pair are allowed.
func (c *Controller) Send(from, to, message, suggestedTime string) (domain.Invite, error) {
	if from == to {
		return domain.Invite{}, ErrSelfInvite
	}
	if _, ok := c.graph.User(from); !ok {
		return domain.Invite{}, fmt.Errorf("sender %q: %w", from, ErrUnknownUser)
	}
	if _, ok := c.graph.User(to); !ok {
		return domain.Invite{}, fmt.Errorf("recipient %q: %w", to, ErrUnknownUser)
	}

	inv := domain.Invite{
		ID:            c.graph.NextID(),
		From:          from,
		To:            to,
		Status:        domain.InviteStatusPending,
		Message:       message,
		SuggestedTime: suggestedTime,
	}
	c.graph.AddInvite(inv)
	c.logger.Info("Invite sent", "invite_id", inv.ID, "from", from, "to", to,
		"has_message", message != "", "has_suggested_time", suggestedTime != "")
	return inv, nil
}

// Respond resolves a pending invite. Unknown or already resolved invites are
// ignored and reported with ok=false. On acceptance the new connection is
// returned.
func (c *Controller) Respond(inviteID int64, response domain.InviteStatus) (*domain.Connection, bool, error) {
	if !response.Terminal() {
		return nil, false, ErrInvalidResponse
	}

	inv, resolved := c.graph.ResolveInvite(inviteID, response)
	if !resolved {
		c.logger.Debug("Ignoring invite response", "invite_id", inviteID)
		return nil, false, nil
	}
	c.logger.Info("Invite resolved", "invite_id", inv.ID, "status", response)

	if response == domain.InviteStatusDeclined {
		return nil, true, nil
	}

	conn := domain.Connection{
		ID:           inv.ID,
		Participant1: inv.From,
		Participant2: inv.To,
		ChatHistory:  SeedHistory(inv, c.now()),
	}
	c.graph.AddConnection(conn)
	return &conn, true, nil
}

// SeedHistory builds the opening messages of a connection created from inv.
func SeedHistory(inv domain.Invite, at time.Time) []domain.ChatMessage {
	var history []domain.ChatMessage
	if inv.Message != "" {
		history = append(history, domain.ChatMessage{
			ID:        int64(len(history) + 1),
			Sender:    domain.Member(inv.From),
			Text:      inv.Message,
			Timestamp: at,
		})
	}
	if inv.SuggestedTime != "" {
		history = append(history, domain.ChatMessage{
			ID:        int64(len(history) + 1),
			Sender:    domain.Member(inv.From),
			Text:      "By the way, I suggested a time: " + inv.SuggestedTime,
			Timestamp: at,
		})
	}
	return history
}
