package domain

// InviteStatus represents the lifecycle status of an invite.
type InviteStatus string

const (
	// InviteStatusPending indicates the invite awaits a response.
	InviteStatusPending InviteStatus = "Pending"
	// InviteStatusAccepted indicates the invite produced a connection.
	InviteStatusAccepted InviteStatus = "Accepted"
	// InviteStatusDeclined indicates the recipient turned the invite down.
	InviteStatusDeclined InviteStatus = "Declined"
)

// Terminal reports whether no further transition is allowed.
func (s InviteStatus) Terminal() bool {
	return s == InviteStatusAccepted || s == InviteStatusDeclined
}

// Invite is a directed proposal from one member to another.
type Invite struct {
	ID            int64        `json:"id" yaml:"id"`
	From          string       `json:"from_uid" yaml:"from"`
	To            string       `json:"to_uid" yaml:"to"`
	Status        InviteStatus `json:"status" yaml:"status"`
	Message       string       `json:"message,omitempty" yaml:"message"`
	SuggestedTime string       `json:"suggested_time,omitempty" yaml:"suggested_time"`
}
