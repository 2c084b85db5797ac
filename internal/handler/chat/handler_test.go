package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/hookchat/backend/internal/model/chat"
	"github.com/zhouzirui/hookchat/backend/internal/model/widget"
	chatservice "github.com/zhouzirui/hookchat/backend/internal/service/chat"
	"github.com/zhouzirui/hookchat/backend/internal/service/relay"
	"github.com/zhouzirui/hookchat/backend/internal/service/responder"
)

func setupRouter(t *testing.T, webhook http.HandlerFunc) (*chi.Mux, *chatservice.Service) {
	t.Helper()

	hook := httptest.NewServer(webhook)
	t.Cleanup(hook.Close)

	chatSvc := chatservice.NewService()
	widgets := widget.NewMemoryStore(widget.Seed("", "", "", "", ""))
	relaySvc := relay.NewService(chatSvc, widgets, responder.NewWebhookResponder(hook.URL, 2*time.Second), nil)
	handler := New(chatSvc, relaySvc, widgets)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, chatSvc
}

func replyWith(text string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"response": text})
	}
}

func postJSON(r http.Handler, path string, body any) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func createSession(t *testing.T, r http.Handler) string {
	t.Helper()
	resp := postJSON(r, "/session", map[string]string{"widgetId": widget.DefaultID})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}
	var session chat.Session
	if err := json.Unmarshal(resp.Body.Bytes(), &session); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	return session.ID
}

func TestCreateSessionValidWidget(t *testing.T) {
	r, _ := setupRouter(t, replyWith("hi"))
	if id := createSession(t, r); id == "" {
		t.Fatal("expected session id")
	}
}

func TestCreateSessionInvalidWidget(t *testing.T) {
	r, _ := setupRouter(t, replyWith("hi"))

	resp := postJSON(r, "/session", map[string]string{"widgetId": "non-existent"})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestCreateSessionMissingWidgetID(t *testing.T) {
	r, _ := setupRouter(t, replyWith("hi"))

	resp := postJSON(r, "/session", map[string]string{})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestSendMessageReturnsExchange(t *testing.T) {
	r, _ := setupRouter(t, replyWith("pong"))
	sessionID := createSession(t, r)

	resp := postJSON(r, "/messages", map[string]any{"sessionId": sessionID, "message": "ping"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var exchange relay.Exchange
	if err := json.Unmarshal(resp.Body.Bytes(), &exchange); err != nil {
		t.Fatalf("decode exchange: %v", err)
	}
	if exchange.User == nil || exchange.User.Content != "ping" {
		t.Fatalf("unexpected user message: %+v", exchange.User)
	}
	if exchange.Bot == nil || exchange.Bot.Content != "pong" || exchange.Bot.Sender != chat.SenderBot {
		t.Fatalf("unexpected bot message: %+v", exchange.Bot)
	}

	req := httptest.NewRequest(http.MethodGet, "/session/"+sessionID+"/messages", nil)
	list := httptest.NewRecorder()
	r.ServeHTTP(list, req)
	if list.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", list.Code)
	}

	var body struct {
		Messages []chat.Message `json:"messages"`
	}
	if err := json.Unmarshal(list.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode messages: %v", err)
	}
	if len(body.Messages) != 2 || body.Messages[0].Sender != chat.SenderUser || body.Messages[1].Sender != chat.SenderBot {
		t.Fatalf("unexpected transcript: %+v", body.Messages)
	}
}

func TestSendMessageEmpty(t *testing.T) {
	r, chatSvc := setupRouter(t, replyWith("pong"))
	sessionID := createSession(t, r)

	resp := postJSON(r, "/messages", map[string]any{"sessionId": sessionID, "message": "   "})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}

	msgs, err := chatSvc.LoadTranscript(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("load transcript: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("expected no messages, got %d", len(msgs))
	}
}

func TestSendMessageWebhookFailure(t *testing.T) {
	r, chatSvc := setupRouter(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	sessionID := createSession(t, r)

	resp := postJSON(r, "/messages", map[string]any{"sessionId": sessionID, "message": "hello"})
	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.Code)
	}

	var body struct {
		Error         string              `json:"error"`
		Notifications []chat.Notification `json:"notifications"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error != chat.NoticeSendFailed || len(body.Notifications) != 1 {
		t.Fatalf("unexpected body: %+v", body)
	}

	msgs, err := chatSvc.LoadTranscript(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("load transcript: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Sender != chat.SenderUser {
		t.Fatalf("expected only the user message, got %+v", msgs)
	}
}

func TestSendMessageUnknownSession(t *testing.T) {
	r, _ := setupRouter(t, replyWith("pong"))

	resp := postJSON(r, "/messages", map[string]any{"sessionId": "missing", "message": "hello"})
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestListMessagesUnknownSession(t *testing.T) {
	r, _ := setupRouter(t, replyWith("pong"))

	req := httptest.NewRequest(http.MethodGet, "/session/missing/messages", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}
