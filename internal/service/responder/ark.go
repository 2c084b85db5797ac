package responder

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/hookchat/backend/internal/model/chat"
)

// Generator is the part of the eino chat model the responder needs.
type Generator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// ArkOptions tunes prompt construction for the LLM responder.
type ArkOptions struct {
	SystemPrompt string
	HistoryLimit int
	TokenBudget  int
	// Counter measures prompt size; nil limits history by message count only.
	Counter TokenCounter
}

// ArkResponder answers with an Ark chat model when no webhook is configured.
type ArkResponder struct {
	generator Generator
	opts      ArkOptions
}

// NewArkResponder wraps an eino chat model.
func NewArkResponder(generator Generator, opts ArkOptions) *ArkResponder {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 12
	}
	return &ArkResponder{generator: generator, opts: opts}
}

// Reply generates a bot answer from the trimmed transcript and the new message.
func (a *ArkResponder) Reply(ctx context.Context, req ReplyRequest) (Reply, error) {
	if strings.TrimSpace(req.Message) == "" {
		return Reply{}, ErrEmptyMessage
	}

	messages := a.buildMessages(req.History, req.Message)

	resp, err := a.generator.Generate(ctx, messages)
	if err != nil {
		return Reply{}, fmt.Errorf("ai generation failed: %w", err)
	}

	text := ""
	if resp != nil {
		text = strings.TrimSpace(resp.Content)
	}
	if text == "" {
		text = FallbackReply
	}

	log.Printf("[ai] generated reply for session=%s history=%d length=%d", req.SessionID, len(messages)-2, len(text))
	return Reply{Text: text, Source: SourceArk}, nil
}

func (a *ArkResponder) buildMessages(history []chat.Message, userText string) []*schema.Message {
	trimmed := TrimHistory(history, a.opts.HistoryLimit, a.opts.TokenBudget, a.opts.Counter)

	messages := make([]*schema.Message, 0, len(trimmed)+2)
	messages = append(messages, schema.SystemMessage(a.opts.SystemPrompt))
	for _, msg := range trimmed {
		switch msg.Sender {
		case chat.SenderUser:
			messages = append(messages, schema.UserMessage(msg.Content))
		case chat.SenderBot:
			messages = append(messages, schema.AssistantMessage(msg.Content, nil))
		}
	}
	messages = append(messages, schema.UserMessage(userText))
	return messages
}
