package responder

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newWebhookServer(t *testing.T, status int, body string, gotMessage *string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		var payload webhookRequest
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode webhook body: %v", err)
		}
		if gotMessage != nil {
			*gotMessage = payload.Message
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestWebhookReply(t *testing.T) {
	var got string
	srv := newWebhookServer(t, http.StatusOK, `{"response":"hi from hook"}`, &got)
	responder := NewWebhookResponder(srv.URL, 5*time.Second)

	reply, err := responder.Reply(context.Background(), ReplyRequest{SessionID: "s1", Message: "hello"})
	if err != nil {
		t.Fatalf("Reply err: %v", err)
	}
	if got != "hello" {
		t.Fatalf("webhook received %q", got)
	}
	if reply.Text != "hi from hook" || reply.Opaque || reply.Source != SourceWebhook {
		t.Fatalf("unexpected reply: %+v", reply)
	}
}

func TestWebhookReplyFallback(t *testing.T) {
	cases := []struct {
		name       string
		body       string
		wantOpaque bool
	}{
		{name: "missing response field", body: `{"status":"ok"}`},
		{name: "blank response", body: `{"response":"   "}`},
		{name: "empty body", body: ``, wantOpaque: true},
		{name: "plain text body", body: `Accepted`, wantOpaque: true},
	}

	for _, tc := range cases {
		srv := newWebhookServer(t, http.StatusOK, tc.body, nil)
		responder := NewWebhookResponder(srv.URL, 5*time.Second)

		reply, err := responder.Reply(context.Background(), ReplyRequest{Message: "hello"})
		if err != nil {
			t.Fatalf("%s: Reply err: %v", tc.name, err)
		}
		if reply.Text != FallbackReply {
			t.Fatalf("%s: expected fallback text, got %q", tc.name, reply.Text)
		}
		if reply.Opaque != tc.wantOpaque {
			t.Fatalf("%s: opaque = %v, want %v", tc.name, reply.Opaque, tc.wantOpaque)
		}
	}
}

func TestWebhookReplyErrorStatus(t *testing.T) {
	srv := newWebhookServer(t, http.StatusInternalServerError, `{"error":"boom"}`, nil)
	responder := NewWebhookResponder(srv.URL, 5*time.Second)

	if _, err := responder.Reply(context.Background(), ReplyRequest{Message: "hello"}); !errors.Is(err, ErrWebhookStatus) {
		t.Fatalf("expected ErrWebhookStatus, got %v", err)
	}
}

func TestWebhookReplyUsesWidgetURL(t *testing.T) {
	var got string
	srv := newWebhookServer(t, http.StatusOK, `{"response":"widget hook"}`, &got)
	responder := NewWebhookResponder("", 5*time.Second)

	reply, err := responder.Reply(context.Background(), ReplyRequest{WebhookURL: srv.URL, Message: "route me"})
	if err != nil {
		t.Fatalf("Reply err: %v", err)
	}
	if got != "route me" || reply.Text != "widget hook" {
		t.Fatalf("unexpected routing: got=%q reply=%+v", got, reply)
	}
}

func TestWebhookReplyNotConfigured(t *testing.T) {
	responder := NewWebhookResponder("", time.Second)

	if _, err := responder.Reply(context.Background(), ReplyRequest{Message: "hello"}); !errors.Is(err, ErrWebhookNotConfigured) {
		t.Fatalf("expected ErrWebhookNotConfigured, got %v", err)
	}
}

func TestWebhookReplyUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	responder := NewWebhookResponder(url, time.Second)
	if _, err := responder.Reply(context.Background(), ReplyRequest{Message: "hello"}); err == nil {
		t.Fatal("expected transport error")
	}
}
