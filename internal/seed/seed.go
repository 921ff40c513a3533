// Package seed provides the demo network every new session starts with.
package seed

import (
	_ "embed"
	"fmt"
	"time"

	"github.com/ashureev/syncup/internal/domain"
	"github.com/ashureev/syncup/internal/graph"
	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var defaultFixture []byte

// Fixture is a set of graph records.
type Fixture struct {
	Users       []domain.UserProfile `yaml:"users"`
	Invites     []domain.Invite      `yaml:"invites"`
	Connections []connection         `yaml:"connections"`
}

type connection struct {
	ID           int64     `yaml:"id"`
	Participant1 string    `yaml:"participant1"`
	Participant2 string    `yaml:"participant2"`
	Messages     []message `yaml:"messages"`
}

type message struct {
	From string        `yaml:"from"`
	Age  time.Duration `yaml:"age"`
	Text string        `yaml:"text"`
}

// Default returns the embedded demo fixture.
func Default() (*Fixture, error) {
	return Parse(defaultFixture)
}

// Parse decodes and validates a YAML fixture.
func Parse(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed fixture: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *Fixture) validate() error {
	known := make(map[string]bool, len(f.Users))
	for _, u := range f.Users {
		if u.UID == "" {
			return fmt.Errorf("seed user %q has no uid", u.Name)
		}
		if !u.Mode.Valid() {
			return fmt.Errorf("seed user %s has invalid mode %q", u.UID, u.Mode)
		}
		known[u.UID] = true
	}
	for _, inv := range f.Invites {
		if !known[inv.From] || !known[inv.To] || inv.From == inv.To {
			return fmt.Errorf("seed invite %d references unknown or identical members", inv.ID)
		}
	}
	for _, c := range f.Connections {
		if !known[c.Participant1] || !known[c.Participant2] {
			return fmt.Errorf("seed connection %d references unknown members", c.ID)
		}
		for _, m := range c.Messages {
			if m.From != c.Participant1 && m.From != c.Participant2 {
				return fmt.Errorf("seed connection %d has a message from non-participant %s", c.ID, m.From)
			}
		}
	}
	return nil
}

// Apply loads the fixture into g. Message timestamps are relative to now.
func (f *Fixture) Apply(g *graph.Store, now time.Time) {
	conns := make([]domain.Connection, 0, len(f.Connections))
	for _, c := range f.Connections {
		conn := domain.Connection{ID: c.ID, Participant1: c.Participant1, Participant2: c.Participant2}
		for i, m := range c.Messages {
			conn.ChatHistory = append(conn.ChatHistory, domain.ChatMessage{
				ID:        int64(i + 1),
				Sender:    domain.Member(m.From),
				Text:      m.Text,
				Timestamp: now.Add(-m.Age),
			})
		}
		conns = append(conns, conn)
	}
	g.Seed(f.Users, f.Invites, conns)
}
