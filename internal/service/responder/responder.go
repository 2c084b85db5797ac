package responder

import (
	"context"
	"errors"

	"github.com/zhouzirui/hookchat/backend/internal/model/chat"
)

// FallbackReply is shown when the upstream answered without usable text.
const FallbackReply = "Sorry, I couldn't process that."

// Reply sources.
const (
	SourceWebhook = "webhook"
	SourceArk     = "ark"
)

var (
	ErrWebhookNotConfigured = errors.New("webhook url is not configured")
	ErrWebhookStatus        = errors.New("webhook returned non-success status")
	ErrEmptyMessage         = errors.New("message is empty")
)

// ReplyRequest carries one outgoing user message and its context.
type ReplyRequest struct {
	SessionID  string
	WebhookURL string
	Message    string
	History    []chat.Message
}

// Reply is the bot answer for one outgoing message. Opaque marks a successful
// upstream call whose body could not be read.
type Reply struct {
	Text   string `json:"text"`
	Opaque bool   `json:"opaque,omitempty"`
	Source string `json:"source"`
}

// Responder turns an outgoing user message into a bot reply.
type Responder interface {
	Reply(ctx context.Context, req ReplyRequest) (Reply, error)
}
