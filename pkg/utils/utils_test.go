package utils

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDecodeJSONRejectsEmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	var dst struct{ Text string }
	if err := DecodeJSON(httptest.NewRecorder(), req, &dst); err == nil {
		t.Fatal("expected error for empty body")
	}
}

func TestSSEWriterFramesEvents(t *testing.T) {
	rr := httptest.NewRecorder()
	sse, ok := NewSSEWriter(rr)
	if !ok {
		t.Fatal("recorder should support flushing")
	}
	if err := sse.Send("bot", map[string]string{"content": "hi"}); err != nil {
		t.Fatalf("send: %v", err)
	}

	if ct := rr.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if body := rr.Body.String(); body != "event: bot\ndata: {\"content\":\"hi\"}\n\n" {
		t.Fatalf("unexpected frame %q", body)
	}
}
