package domain

// Suggestion is a recommended member to connect with.
type Suggestion struct {
	UID    string `json:"uid"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// FollowUp flags a connection whose conversation has stalled.
type FollowUp struct {
	ConnectionID    int64  `json:"connectionId"`
	ParticipantName string `json:"participantName"`
	Reason          string `json:"reason"`
}

// ConnectionStatus summarizes the relationship between two members.
type ConnectionStatus string

const (
	StatusNone      ConnectionStatus = "none"
	StatusConnected ConnectionStatus = "connected"
	StatusReceived  ConnectionStatus = "received"
	StatusSent      ConnectionStatus = "sent"
)
