package seed

import (
	"testing"
	"time"

	"github.com/ashureev/syncup/internal/domain"
	"github.com/ashureev/syncup/internal/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultFixture(t *testing.T) {
	f, err := Default()
	require.NoError(t, err)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	g := graph.New()
	f.Apply(g, now)

	assert.Len(t, g.Users(), 5)
	assert.Len(t, g.PendingInvitesFor("mock-uid-2"), 2)
	assert.True(t, g.HasReceivedInviteFrom("mock-uid-3", "mock-uid-2"))

	conn, ok := g.Connection(101)
	require.True(t, ok)
	require.Len(t, conn.ChatHistory, 3)
	assert.Equal(t, domain.Member("mock-uid-4"), conn.ChatHistory[0].Sender)
	assert.Equal(t, now.Add(-24*time.Hour), conn.ChatHistory[0].Timestamp)
	assert.Equal(t, int64(3), conn.LastMessageID())

	diana, ok := g.User("mock-uid-4")
	require.True(t, ok)
	assert.Equal(t, domain.RoleMentor, diana.Role)
	assert.Equal(t, 42, diana.Kudos)

	assert.Equal(t, int64(102), g.NextID())
}

func TestParseRejectsBadFixtures(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad mode", "users:\n  - uid: a\n    mode: Both\n"},
		{"unknown invite member", "users:\n  - uid: a\n    mode: Social\ninvites:\n  - id: 1\n    from: a\n    to: z\n"},
		{"self invite", "users:\n  - uid: a\n    mode: Social\ninvites:\n  - id: 1\n    from: a\n    to: a\n"},
		{"foreign message", "users:\n  - uid: a\n    mode: Social\n  - uid: b\n    mode: Social\nconnections:\n  - id: 1\n    participant1: a\n    participant2: b\n    messages:\n      - from: c\n        text: hi\n"},
		{"not yaml", "users: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}
