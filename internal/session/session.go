// Package session is the boundary to the identity provider.
package session

import "sync"

// Provider notifies subscribers when the signed-in identity changes.
// An empty uid means nobody is signed in.
type Provider interface {
	// Subscribe registers fn and immediately calls it with the current uid.
	// The returned function removes the subscription.
	Subscribe(fn func(uid string)) (unsubscribe func())

	// SignOut ends the current session.
	SignOut()
}

// Local is an in-process Provider for one device.
type Local struct {
	mu     sync.Mutex
	uid    string
	nextID int
	subs   map[int]func(string)
}

// NewLocal returns a signed-out provider.
func NewLocal() *Local {
	return &Local{subs: make(map[int]func(string))}
}

// Current returns the signed-in uid.
func (l *Local) Current() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.uid
}

// Subscribe implements Provider.
func (l *Local) Subscribe(fn func(uid string)) func() {
	l.mu.Lock()
	id := l.nextID
	l.nextID++
	l.subs[id] = fn
	uid := l.uid
	l.mu.Unlock()

	fn(uid)

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.subs, id)
			l.mu.Unlock()
		})
	}
}

// SignIn switches the session to uid and notifies subscribers.
func (l *Local) SignIn(uid string) {
	l.set(uid)
}

// SignOut implements Provider.
func (l *Local) SignOut() {
	l.set("")
}

func (l *Local) set(uid string) {
	l.mu.Lock()
	if l.uid == uid {
		l.mu.Unlock()
		return
	}
	l.uid = uid
	subs := make([]func(string), 0, len(l.subs))
	for _, fn := range l.subs {
		subs = append(subs, fn)
	}
	l.mu.Unlock()

	for _, fn := range subs {
		fn(uid)
	}
}

var _ Provider = (*Local)(nil)
