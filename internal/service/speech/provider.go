package speech

import (
	"context"
	"errors"
	"fmt"

	"github.com/zhouzirui/hookchat/backend/internal/model/speech"
)

var (
	ErrClientSideProvider = errors.New("provider runs in the browser")
	ErrMissingAPIKey      = errors.New("speech provider api key is not configured")
	ErrEmptyAudio         = errors.New("audio is empty")
	ErrEmptyText          = errors.New("text is empty")
	ErrNoTranscript       = errors.New("no transcript recognized")
	ErrUnknownProvider    = errors.New("unknown speech provider")
)

// Transcriber converts recorded audio into text.
type Transcriber interface {
	Name() speech.Provider
	Transcribe(ctx context.Context, req *speech.ASRRequest) (*speech.ASRResponse, error)
}

// Synthesizer converts text into audible speech.
type Synthesizer interface {
	Name() speech.Provider
	Synthesize(ctx context.Context, req *speech.TTSRequest) (*speech.TTSResponse, error)
}

// NewTranscriber builds the configured speech-to-text provider.
func NewTranscriber(cfg *speech.SpeechConfig) (Transcriber, error) {
	switch cfg.STTProvider {
	case speech.ProviderBrowser, "":
		return BrowserTranscriber{}, nil
	case speech.ProviderGoogle:
		return NewGoogleClient(cfg), nil
	case speech.ProviderOpenAI:
		return NewOpenAIClient(cfg), nil
	default:
		return nil, fmt.Errorf("%w: stt %q", ErrUnknownProvider, cfg.STTProvider)
	}
}

// NewSynthesizer builds the configured text-to-speech provider.
func NewSynthesizer(cfg *speech.SpeechConfig) (Synthesizer, error) {
	switch cfg.TTSProvider {
	case speech.ProviderBrowser, "":
		return BrowserSynthesizer{}, nil
	case speech.ProviderGoogle:
		return NewGoogleClient(cfg), nil
	case speech.ProviderElevenLabs:
		return NewElevenLabsClient(cfg), nil
	case speech.ProviderOpenAI:
		return NewOpenAIClient(cfg), nil
	default:
		return nil, fmt.Errorf("%w: tts %q", ErrUnknownProvider, cfg.TTSProvider)
	}
}
