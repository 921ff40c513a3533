package domain

import (
	"encoding/json"
	"fmt"
)

// SenderKind tags who authored a chat message.
type SenderKind int

const (
	// SenderUnspecified is the zero value and never valid on a stored message.
	SenderUnspecified SenderKind = iota
	// SenderMember is a participant identified by uid.
	SenderMember
	// SenderEmbeddedAssistant is the scheduling assistant inside a connection chat.
	SenderEmbeddedAssistant
	// SenderInteractiveAssistant is the standalone assistant persona.
	SenderInteractiveAssistant
)

func (k SenderKind) String() string {
	switch k {
	case SenderMember:
		return "member"
	case SenderEmbeddedAssistant:
		return "assistant"
	case SenderInteractiveAssistant:
		return "interactive-assistant"
	default:
		return "unspecified"
	}
}

// Sender identifies the author of a chat message.
// UID is set only for SenderMember.
type Sender struct {
	Kind SenderKind
	UID  string
}

// Member returns a sender for the participant uid.
func Member(uid string) Sender {
	return Sender{Kind: SenderMember, UID: uid}
}

var (
	// EmbeddedAssistant authors scheduling nudges inside a connection.
	EmbeddedAssistant = Sender{Kind: SenderEmbeddedAssistant}
	// InteractiveAssistant authors replies in the assistant thread.
	InteractiveAssistant = Sender{Kind: SenderInteractiveAssistant}
)

// IsMember reports whether the sender is the member uid.
func (s Sender) IsMember(uid string) bool {
	return s.Kind == SenderMember && s.UID == uid
}

type senderJSON struct {
	Kind string `json:"kind"`
	UID  string `json:"uid,omitempty"`
}

// MarshalJSON encodes the sender as {"kind": ..., "uid": ...}.
func (s Sender) MarshalJSON() ([]byte, error) {
	return json.Marshal(senderJSON{Kind: s.Kind.String(), UID: s.UID})
}

// UnmarshalJSON decodes the object form written by MarshalJSON.
func (s *Sender) UnmarshalJSON(data []byte) error {
	var raw senderJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode sender: %w", err)
	}
	switch raw.Kind {
	case "member":
		if raw.UID == "" {
			return fmt.Errorf("decode sender: member without uid")
		}
		*s = Member(raw.UID)
	case "assistant":
		*s = EmbeddedAssistant
	case "interactive-assistant":
		*s = InteractiveAssistant
	default:
		return fmt.Errorf("decode sender: unknown kind %q", raw.Kind)
	}
	return nil
}
