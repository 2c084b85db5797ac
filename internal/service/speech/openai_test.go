package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/zhouzirui/hookchat/backend/internal/model/speech"
)

func TestOpenAITranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/transcriptions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if r.FormValue("language") != "en" {
			t.Errorf("unexpected language: %s", r.FormValue("language"))
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing file: %v", err)
		} else {
			data, _ := io.ReadAll(file)
			if string(data) != "webm-audio" || header.Filename != "audio.webm" {
				t.Errorf("unexpected upload %s: %q", header.Filename, data)
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"text": " what time is it "})
	}))
	defer srv.Close()

	client := NewOpenAIClient(&speech.SpeechConfig{OpenAIAPIKey: "sk-test", OpenAIBaseURL: srv.URL + "/v1"})
	resp, err := client.Transcribe(context.Background(), &speech.ASRRequest{
		AudioData: bytes.NewReader([]byte("webm-audio")),
		Format:    "webm",
		Language:  "en-US",
	})
	if err != nil {
		t.Fatalf("Transcribe err: %v", err)
	}
	if resp.Text != "what time is it" {
		t.Fatalf("unexpected transcript: %q", resp.Text)
	}
}

func TestOpenAISynthesize(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/speech" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("openai-audio"))
	}))
	defer srv.Close()

	client := NewOpenAIClient(&speech.SpeechConfig{OpenAIAPIKey: "sk-test", OpenAIBaseURL: srv.URL + "/v1", OpenAIVoice: "nova"})
	resp, err := client.Synthesize(context.Background(), &speech.TTSRequest{Text: "hello"})
	if err != nil {
		t.Fatalf("Synthesize err: %v", err)
	}
	if string(resp.AudioData) != "openai-audio" || resp.Voice != "nova" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if got["input"] != "hello" || got["voice"] != "nova" {
		t.Fatalf("unexpected request: %v", got)
	}
}

func TestWhisperLanguage(t *testing.T) {
	cases := map[string]string{"en-US": "en", "zh_CN": "zh", "fr": "fr", "": ""}
	for in, want := range cases {
		if got := whisperLanguage(in); got != want {
			t.Errorf("whisperLanguage(%q) = %q, want %q", in, got, want)
		}
	}
}
