package responder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

type webhookRequest struct {
	Message string `json:"message"`
}

type webhookResponse struct {
	Response string `json:"response"`
}

// WebhookResponder posts outgoing chat text to an external webhook.
type WebhookResponder struct {
	client     *resty.Client
	defaultURL string
}

// NewWebhookResponder creates a responder posting to defaultURL unless a
// request carries its own widget webhook.
func NewWebhookResponder(defaultURL string, timeout time.Duration) *WebhookResponder {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &WebhookResponder{
		client:     client,
		defaultURL: strings.TrimSpace(defaultURL),
	}
}

// Reply sends {"message": text} and reads {"response": text} back.
func (w *WebhookResponder) Reply(ctx context.Context, req ReplyRequest) (Reply, error) {
	if strings.TrimSpace(req.Message) == "" {
		return Reply{}, ErrEmptyMessage
	}

	url := strings.TrimSpace(req.WebhookURL)
	if url == "" {
		url = w.defaultURL
	}
	if url == "" {
		return Reply{}, ErrWebhookNotConfigured
	}

	resp, err := w.client.R().
		SetContext(ctx).
		SetBody(webhookRequest{Message: req.Message}).
		Post(url)
	if err != nil {
		return Reply{}, fmt.Errorf("webhook request failed: %w", err)
	}

	if !resp.IsSuccess() {
		return Reply{}, fmt.Errorf("%w: %d", ErrWebhookStatus, resp.StatusCode())
	}

	reply := parseWebhookBody(resp.Body())
	if reply.Opaque {
		log.Printf("[webhook] opaque response for session=%s status=%d bytes=%d", req.SessionID, resp.StatusCode(), len(resp.Body()))
	}
	return reply, nil
}

// parseWebhookBody tolerates empty and non-JSON bodies the way a no-cors
// browser fetch does: the call counts as delivered and the fallback is shown.
func parseWebhookBody(body []byte) Reply {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return Reply{Text: FallbackReply, Opaque: true, Source: SourceWebhook}
	}

	var payload webhookResponse
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return Reply{Text: FallbackReply, Opaque: true, Source: SourceWebhook}
	}

	text := strings.TrimSpace(payload.Response)
	if text == "" {
		text = FallbackReply
	}
	return Reply{Text: text, Source: SourceWebhook}
}
