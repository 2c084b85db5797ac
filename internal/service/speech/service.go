package speech

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/zhouzirui/hookchat/backend/internal/model/speech"
)

// Service 语音服务核心业务逻辑
type Service struct {
	config      *speech.SpeechConfig
	transcriber Transcriber
	synthesizer Synthesizer
}

// NewService 创建语音服务实例
func NewService(config *speech.SpeechConfig) (*Service, error) {
	transcriber, err := NewTranscriber(config)
	if err != nil {
		return nil, err
	}
	synthesizer, err := NewSynthesizer(config)
	if err != nil {
		return nil, err
	}
	return NewServiceWith(config, transcriber, synthesizer), nil
}

// NewServiceWith assembles the service from explicit providers.
func NewServiceWith(config *speech.SpeechConfig, transcriber Transcriber, synthesizer Synthesizer) *Service {
	if config == nil {
		config = &speech.SpeechConfig{}
	}
	return &Service{
		config:      config,
		transcriber: transcriber,
		synthesizer: synthesizer,
	}
}

// Providers reports which backends serve transcription and synthesis.
func (s *Service) Providers() map[string]speech.Provider {
	return map[string]speech.Provider{
		"stt": s.transcriber.Name(),
		"tts": s.synthesizer.Name(),
	}
}

// ClientSideTranscription reports whether the widget must recognize speech itself.
func (s *Service) ClientSideTranscription() bool {
	return s.transcriber.Name() == speech.ProviderBrowser
}

// TranscribeAudio 语音转文字
func (s *Service) TranscribeAudio(ctx context.Context, req *speech.ASRRequest) (*speech.ASRResponse, error) {
	if req.AudioData == nil {
		return nil, ErrEmptyAudio
	}
	if strings.TrimSpace(req.Language) == "" {
		req.Language = s.config.Language
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.transcriber.Transcribe(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s transcription: %w", s.transcriber.Name(), err)
	}
	return resp, nil
}

// TranscribeBuffer 语音转文字（使用字节数组）
func (s *Service) TranscribeBuffer(ctx context.Context, sessionID string, audioData []byte, format, language string) (*speech.ASRResponse, error) {
	if len(audioData) == 0 {
		return nil, ErrEmptyAudio
	}

	req := &speech.ASRRequest{
		SessionID: sessionID,
		AudioData: bytes.NewReader(audioData),
		Format:    format,
		Language:  language,
	}

	return s.TranscribeAudio(ctx, req)
}

// SynthesizeSpeech 文字转语音
func (s *Service) SynthesizeSpeech(ctx context.Context, req *speech.TTSRequest) (*speech.TTSResponse, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyText
	}

	if strings.TrimSpace(req.Language) == "" {
		req.Language = s.config.Language
	}
	voice := req.Voice
	if strings.TrimSpace(voice) == "" {
		voice = s.config.TTSVoice
	}
	req.Voice = NormalizeVoiceAlias(s.synthesizer.Name(), voice)
	if req.Speed <= 0 {
		req.Speed = s.config.TTSSpeed
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.synthesizer.Synthesize(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s synthesis: %w", s.synthesizer.Name(), err)
	}
	return resp, nil
}

// SynthesizeToBuffer 文字转语音（返回字节数组）
func (s *Service) SynthesizeToBuffer(ctx context.Context, sessionID, text, voice, language string) (*speech.TTSResponse, error) {
	req := &speech.TTSRequest{
		SessionID: sessionID,
		Text:      text,
		Voice:     voice,
		Language:  language,
	}

	return s.SynthesizeSpeech(ctx, req)
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.config.Timeout)
}
