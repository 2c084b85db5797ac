package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/zhouzirui/hookchat/backend/internal/model/speech"
	"github.com/zhouzirui/hookchat/backend/internal/model/widget"
	chatService "github.com/zhouzirui/hookchat/backend/internal/service/chat"
	"github.com/zhouzirui/hookchat/backend/internal/service/relay"
	"github.com/zhouzirui/hookchat/backend/internal/service/responder"
	speechService "github.com/zhouzirui/hookchat/backend/internal/service/speech"
)

func newTestRouter(t *testing.T, withSpeech bool) http.Handler {
	t.Helper()

	widgets := widget.NewMemoryStore(widget.Seed("", "", "", "", ""))
	chatSvc := chatService.NewService()

	var speechSvc *speechService.Service
	var relaySpeech relay.Speech
	if withSpeech {
		svc, err := speechService.NewService(&speech.SpeechConfig{
			STTProvider: speech.ProviderBrowser,
			TTSProvider: speech.ProviderBrowser,
			Language:    "en-US",
		})
		if err != nil {
			t.Fatalf("speech service: %v", err)
		}
		speechSvc, relaySpeech = svc, svc
	}

	relaySvc := relay.NewService(chatSvc, widgets, responder.NewWebhookResponder("", 0), relaySpeech)
	return NewRouter([]string{"*"}, widgets, chatSvc, relaySvc, speechSvc)
}

func TestRouterServesAPI(t *testing.T) {
	router := newTestRouter(t, true)

	cases := []struct {
		method string
		path   string
		body   string
		status int
	}{
		{method: http.MethodGet, path: "/api/widgets", status: http.StatusOK},
		{method: http.MethodPost, path: "/api/session", body: `{"widgetId":"default"}`, status: http.StatusCreated},
		{method: http.MethodGet, path: "/api/speech/health", status: http.StatusOK},
		{method: http.MethodPost, path: "/api/text-to-speech", body: `{"text":"hello"}`, status: http.StatusOK},
		{method: http.MethodGet, path: "/api/session/missing/messages", status: http.StatusNotFound},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, bytes.NewBufferString(tc.body))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != tc.status {
			t.Fatalf("%s %s: expected %d, got %d (%s)", tc.method, tc.path, tc.status, rr.Code, rr.Body.String())
		}
	}
}

func TestRouterWithoutSpeech(t *testing.T) {
	router := newTestRouter(t, false)

	req := httptest.NewRequest(http.MethodGet, "/api/speech/health", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without speech service, got %d", rr.Code)
	}
}
