// Package domain contains core domain types for the SyncUp application.
package domain

import "slices"

// Mode is a member's primary connection intent.
type Mode string

const (
	ModeSocial       Mode = "Social"
	ModeProfessional Mode = "Professional"
	// ModeBoth is only valid as a directory filter, never on a profile.
	ModeBoth Mode = "Both"
)

// Valid reports whether m can be stored on a profile.
func (m Mode) Valid() bool {
	return m == ModeSocial || m == ModeProfessional
}

// Role describes how a member wants to participate.
type Role string

const (
	RoleMentor Role = "Mentor"
	RoleMentee Role = "Mentee"
	RolePeer   Role = "Peer"
)

// GoalOptions lists the goals a member can pick during onboarding.
var GoalOptions = []string{
	"Make friends in SG",
	"Get advice on switching careers",
	"Offer 1 hour of mentoring per week",
	"Find creative collaborators",
	"Practice a new language",
	"Find a workout buddy",
}

// IsGoalOption reports whether goal is one of GoalOptions.
func IsGoalOption(goal string) bool {
	return slices.Contains(GoalOptions, goal)
}

// UserProfile represents a member of the network.
type UserProfile struct {
	UID          string   `json:"uid" yaml:"uid"`
	Name         string   `json:"name" yaml:"name"`
	Intro        string   `json:"intro" yaml:"intro"`
	Tags         []string `json:"tags" yaml:"tags"`
	Availability string   `json:"availability" yaml:"availability"`
	Location     string   `json:"location" yaml:"location"`
	PhotoURL     string   `json:"vibe_photo_url" yaml:"photo_url"`
	Presence     string   `json:"presence_update,omitempty" yaml:"presence"`
	Goals        []string `json:"goals" yaml:"goals"`
	Mode         Mode     `json:"mode" yaml:"mode"`
	Role         Role     `json:"role" yaml:"role"`
	Kudos        int      `json:"kudos" yaml:"kudos"`
}

// Clone returns a deep copy of the profile.
func (u UserProfile) Clone() UserProfile {
	u.Tags = slices.Clone(u.Tags)
	u.Goals = slices.Clone(u.Goals)
	return u
}
