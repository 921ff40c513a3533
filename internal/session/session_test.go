package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocalNotifiesSubscribers(t *testing.T) {
	l := NewLocal()
	var seen []string
	unsubscribe := l.Subscribe(func(uid string) { seen = append(seen, uid) })

	l.SignIn("u1")
	l.SignIn("u1")
	l.SignOut()
	unsubscribe()
	unsubscribe()
	l.SignIn("u2")

	assert.Equal(t, []string{"", "u1", ""}, seen)
	assert.Equal(t, "u2", l.Current())
}

func TestSubscribeReplaysCurrent(t *testing.T) {
	l := NewLocal()
	l.SignIn("u1")

	var got string
	l.Subscribe(func(uid string) { got = uid })
	assert.Equal(t, "u1", got)
}
