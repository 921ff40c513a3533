package assistant

import (
	"fmt"
	"strings"

	"github.com/ashureev/syncup/internal/domain"
	"google.golang.org/genai"
)

const assistantName = "SyncUp Assistant"

func profileBlock(u domain.UserProfile) string {
	return fmt.Sprintf(`- ID: %s
- Name: %s
- Intro: %s
- Tags: %s
- Goals: %s
- Mode: %s
- Role: %s`,
		u.UID, u.Name, u.Intro, strings.Join(u.Tags, ", "), strings.Join(u.Goals, ", "), u.Mode, u.Role)
}

func interestsBlock(u domain.UserProfile) string {
	return fmt.Sprintf(`- Intro: %s
- Tags: %s
- Goals: %s`, u.Intro, strings.Join(u.Tags, ", "), strings.Join(u.Goals, ", "))
}

func suggestionsPrompt(me domain.UserProfile, others []domain.UserProfile) string {
	blocks := make([]string, 0, len(others))
	for _, u := range others {
		blocks = append(blocks, profileBlock(u))
	}
	return fmt.Sprintf(`You are a smart matchmaking assistant for an app called "SyncUp".
SyncUp is a platform for genuine, intention-based connections, both professional and social. It's not for dating.
Your task is to suggest 2-3 meaningful connections for a user based on their profile and the profiles of others.

Here is the current user's profile:
%s

Here is a list of other users on the platform:
%s

Please suggest 2-3 people for the current user to connect with. For each suggestion, provide a concise, human-friendly reason for the match, highlighting shared interests, goals, or potential for a valuable conversation. The reason should feel personal and encouraging. Consider their roles (Mentor, Mentee, Peer) for better matches.`,
		profileBlock(me), strings.Join(blocks, "\n\n"))
}

var suggestionsSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"suggestions": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"uid":    {Type: genai.TypeString, Description: "The user ID (uid) of the suggested person."},
					"name":   {Type: genai.TypeString, Description: "The name of the suggested person."},
					"reason": {Type: genai.TypeString, Description: "A short, friendly reason why they would be a good connection."},
				},
				Required: []string{"uid", "name", "reason"},
			},
		},
	},
	Required: []string{"suggestions"},
}

func inviteDraftPrompt(me, target domain.UserProfile) string {
	return fmt.Sprintf(`You are a helpful and friendly assistant for an app called "SyncUp".
Your goal is to help a user write a warm, personal, and intention-based invitation to connect with someone else.

The user, %[1]s (%[2]s), wants to connect with %[3]s (%[4]s).

Here is %[1]s's profile:
%[5]s

Here is %[3]s's profile:
%[6]s

Based on their profiles, generate one friendly and concise (2-3 sentences) icebreaker message that %[1]s could send. The message should reference a shared interest, a potential for mentorship, or a common goal to make the connection feel genuine.

Example: "Hey %[3]s! I saw on your profile that you're into [shared interest]. I've been wanting to explore that more and would love to hear about your experience."`,
		me.Name, me.Role, target.Name, target.Role, interestsBlock(me), interestsBlock(target))
}

func startersPrompt(me, other domain.UserProfile) string {
	return fmt.Sprintf(`You are a helpful and friendly assistant for an app called "SyncUp".
Your goal is to help a user start a warm, personal, and intention-based conversation with a new connection.

The user, %[1]s, just connected with %[2]s.

Here is %[1]s's profile:
%[3]s

Here is %[2]s's profile:
%[4]s

Based on their profiles, generate 3 friendly and concise (1-2 sentences) icebreaker messages that %[1]s could send. The messages should reference a shared interest, a potential for mentorship, or a common goal. Do not include greetings like "Hey!" or "Hi!".`,
		me.Name, other.Name, interestsBlock(me), interestsBlock(other))
}

var startersSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"starters": {
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeString, Description: "A single conversation starter suggestion."},
		},
	},
	Required: []string{"starters"},
}

// transcript renders history with display names.
func transcript(history []domain.ChatMessage, name func(domain.Sender) string) string {
	lines := make([]string, 0, len(history))
	for _, m := range history {
		lines = append(lines, name(m.Sender)+": "+m.Text)
	}
	return strings.Join(lines, "\n")
}

func nudgePrompt(history []domain.ChatMessage, me, other domain.UserProfile) string {
	conv := transcript(history, func(s domain.Sender) string {
		switch {
		case s.Kind != domain.SenderMember:
			return assistantName
		case s.UID == me.UID:
			return me.Name
		default:
			return other.Name
		}
	})
	return fmt.Sprintf(`You are "SyncUp Assistant", a helpful chatbot inside a messaging app.
Your only job is to help two users, %s and %s, schedule a meeting.
The last message sent indicates they want to schedule something.
Current conversation:
%s

Analyze the conversation and suggest a clear, actionable next step for scheduling. Be friendly and slightly formal.
Your response should be ONE sentence.
Example: "Happy to help with that! What day and time works best for both of you for a quick chat?"
Example: "I can help schedule this. Would a video call link or a calendar invite be more helpful?"`,
		me.Name, other.Name, conv)
}

func meetingTimePrompt(a, b domain.UserProfile) string {
	return fmt.Sprintf(`You are an assistant helping %s schedule a meeting with %s.
User 1's availability: %q
User 2's availability: %q
Based on their stated availability, suggest a single, specific time slot for them to meet. Be creative if availabilities don't overlap perfectly.
Output only the suggested time, e.g., "this Friday afternoon" or "next Tuesday at 3 PM".`,
		a.Name, b.Name, a.Availability, b.Availability)
}

// FollowUpCandidate is one of the member's connections, with the other
// participant resolved.
type FollowUpCandidate struct {
	Connection domain.Connection
	Other      domain.UserProfile
}

type followUpDigest struct {
	ConnectionID    int64  `json:"connectionId"`
	ParticipantName string `json:"participantName"`
	LastMessage     string `json:"lastMessage"`
}

func followUpsPrompt(me domain.UserProfile, candidates []FollowUpCandidate) (string, error) {
	digests := make([]followUpDigest, 0, len(candidates))
	for _, c := range candidates {
		last := "No messages yet."
		if n := len(c.Connection.ChatHistory); n > 0 {
			m := c.Connection.ChatHistory[n-1]
			who := c.Other.Name
			switch {
			case m.Sender.IsMember(me.UID):
				who = "You"
			case m.Sender.Kind != domain.SenderMember:
				who = assistantName
			}
			last = who + ": " + m.Text
		}
		digests = append(digests, followUpDigest{
			ConnectionID:    c.Connection.ID,
			ParticipantName: c.Other.Name,
			LastMessage:     last,
		})
	}
	data, err := marshalIndent(digests)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`You are a proactive AI assistant for an app called SyncUp. Your job is to find conversations that have stalled and suggest a follow-up.
Here are the current user's conversations:
%s

Identify 1-2 conversations where scheduling a meeting was mentioned but no firm time was set, or where the conversation has been inactive for a while.
For each one you identify, provide a brief, friendly reason for the follow-up.`, data), nil
}

var followUpsSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"suggestions": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"connectionId":    {Type: genai.TypeInteger},
					"participantName": {Type: genai.TypeString},
					"reason":          {Type: genai.TypeString, Description: "A short reason for following up."},
				},
				Required: []string{"connectionId", "participantName", "reason"},
			},
		},
	},
	Required: []string{"suggestions"},
}

func interactivePrompt(history []domain.ChatMessage, me domain.UserProfile) string {
	conv := transcript(history, func(s domain.Sender) string {
		if s.Kind == domain.SenderInteractiveAssistant {
			return assistantName
		}
		return "User"
	})
	return fmt.Sprintf(`You are "SyncUp Assistant", a helpful AI inside a professional and social connection app.
Your job is to help the user, %s, achieve their goals on the platform.
You can help them find people, draft messages, or come up with connection ideas.
Be friendly, concise, and helpful.

Current conversation with the user:
%s

Based on the last message from the user, provide a helpful response.`, me.Name, conv)
}
