// ABOUTME: Transcript message types for the active chat session
// ABOUTME: Maps backend history roles onto transcript senders

package conversation

import "github.com/2389/coven-chat/internal/backend"

// Sender identifies who authored a transcript message.
type Sender string

const (
	SenderUser   Sender = "user"
	SenderAgent  Sender = "agent"
	SenderSystem Sender = "system"
)

// Label is the display prefix used by plain-text views.
func (s Sender) Label() string {
	switch s {
	case SenderUser:
		return "You"
	case SenderAgent:
		return "Agent"
	default:
		return "System"
	}
}

// Status distinguishes a placeholder from a settled message.
type Status string

const (
	StatusFinal   Status = "final"
	StatusPending Status = "pending"
)

// Message is one entry of the transcript.
type Message struct {
	Sender Sender
	Body   string
	Status Status
}

// Pending reports whether m is the in-flight placeholder.
func (m Message) Pending() bool { return m.Status == StatusPending }

func senderForRole(r backend.Role) Sender {
	switch r {
	case backend.RoleUser:
		return SenderUser
	case backend.RoleSystem:
		return SenderSystem
	default:
		return SenderAgent
	}
}

func messagesFromHistory(history []backend.HistoryEntry) []Message {
	out := make([]Message, 0, len(history))
	for _, h := range history {
		out = append(out, Message{Sender: senderForRole(h.Role), Body: h.Body, Status: StatusFinal})
	}
	return out
}
