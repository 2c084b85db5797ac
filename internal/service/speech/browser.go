package speech

import (
	"context"
	"strings"
	"time"

	"github.com/zhouzirui/hookchat/backend/internal/model/speech"
)

// BrowserTranscriber stands for the Web Speech API recognizer. Recognition
// happens in the widget, which then sends the transcript as text.
type BrowserTranscriber struct{}

func (BrowserTranscriber) Name() speech.Provider { return speech.ProviderBrowser }

func (BrowserTranscriber) Transcribe(context.Context, *speech.ASRRequest) (*speech.ASRResponse, error) {
	return nil, ErrClientSideProvider
}

// BrowserSynthesizer tells the widget to speak the text with speechSynthesis.
type BrowserSynthesizer struct{}

func (BrowserSynthesizer) Name() speech.Provider { return speech.ProviderBrowser }

func (BrowserSynthesizer) Synthesize(_ context.Context, req *speech.TTSRequest) (*speech.TTSResponse, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyText
	}
	return &speech.TTSResponse{
		SessionID:  req.SessionID,
		Text:       req.Text,
		Provider:   speech.ProviderBrowser,
		ClientSide: true,
		Voice:      req.Voice,
		Language:   req.Language,
		CreatedAt:  time.Now(),
	}, nil
}
