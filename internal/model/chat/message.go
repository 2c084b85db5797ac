package chat

import "time"

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Valid reports whether the sender is one of the known roles.
func (s Sender) Valid() bool {
	return s == SenderUser || s == SenderBot
}

// Message is one immutable turn of a session transcript.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Sender    Sender    `json:"type"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"timestamp"`
}
