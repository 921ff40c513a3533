// Package store provides profile persistence and the flat key-value medium.
package store

import (
	"context"

	"github.com/ashureev/syncup/internal/domain"
)

// Profiles is the profile document store.
type Profiles interface {
	// Get returns the profile for uid, or nil if none exists.
	Get(ctx context.Context, uid string) (*domain.UserProfile, error)

	// Create writes a new profile with default display attributes.
	Create(ctx context.Context, uid, name string, mode domain.Mode) error

	// Upsert writes a full profile, replacing any existing one.
	Upsert(ctx context.Context, profile domain.UserProfile) error
}

// KV is a flat persistent key-value medium with no native expiry.
type KV interface {
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
}

// NewProfile returns the profile written for a freshly signed-up member.
func NewProfile(uid, name string, mode domain.Mode) domain.UserProfile {
	return domain.UserProfile{
		UID:          uid,
		Name:         name,
		Mode:         mode,
		Intro:        "New to SyncUp! Looking to connect with others.",
		Tags:         []string{"newbie"},
		Availability: "Not specified",
		Location:     "Not specified",
		PhotoURL:     "https://api.dicebear.com/6.x/initials/svg?seed=" + initialsSeed(name),
		Goals:        []string{},
		Role:         domain.RolePeer,
		Kudos:        0,
	}
}

func initialsSeed(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		if r != ' ' {
			out = append(out, r)
		}
	}
	return string(out)
}
