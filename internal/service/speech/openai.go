package speech

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/zhouzirui/hookchat/backend/internal/model/speech"
)

// OpenAIClient uses Whisper for transcription and the speech endpoint for synthesis.
type OpenAIClient struct {
	config *speech.SpeechConfig
	client *openai.Client
}

// NewOpenAIClient 创建 OpenAI 语音客户端
func NewOpenAIClient(config *speech.SpeechConfig) *OpenAIClient {
	clientConfig := openai.DefaultConfig(config.OpenAIAPIKey)
	if baseURL := strings.TrimSpace(config.OpenAIBaseURL); baseURL != "" {
		clientConfig.BaseURL = baseURL
	}

	return &OpenAIClient{
		config: config,
		client: openai.NewClientWithConfig(clientConfig),
	}
}

func (c *OpenAIClient) Name() speech.Provider { return speech.ProviderOpenAI }

// Transcribe uploads the audio as a multipart file to Whisper.
func (c *OpenAIClient) Transcribe(ctx context.Context, req *speech.ASRRequest) (*speech.ASRResponse, error) {
	if strings.TrimSpace(c.config.OpenAIAPIKey) == "" {
		return nil, ErrMissingAPIKey
	}

	format := req.Format
	if format == "" {
		format = "webm"
	}

	resp, err := c.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: "audio." + format,
		Reader:   req.AudioData,
		Language: whisperLanguage(req.Language),
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("openai transcription failed: %w", err)
	}

	return &speech.ASRResponse{
		SessionID: req.SessionID,
		Text:      strings.TrimSpace(resp.Text),
		Provider:  speech.ProviderOpenAI,
		CreatedAt: time.Now(),
	}, nil
}

// Synthesize requests MP3 speech for the text.
func (c *OpenAIClient) Synthesize(ctx context.Context, req *speech.TTSRequest) (*speech.TTSResponse, error) {
	if strings.TrimSpace(c.config.OpenAIAPIKey) == "" {
		return nil, ErrMissingAPIKey
	}

	voice := strings.TrimSpace(req.Voice)
	if voice == "" {
		voice = c.config.OpenAIVoice
	}

	speechReq := openai.CreateSpeechRequest{
		Model:          openai.TTSModel1,
		Input:          req.Text,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	}
	if req.Speed > 0 {
		speechReq.Speed = float64(req.Speed)
	}

	body, err := c.client.CreateSpeech(ctx, speechReq)
	if err != nil {
		return nil, fmt.Errorf("openai speech failed: %w", err)
	}
	defer body.Close()

	audio, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read openai speech: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("openai speech returned empty audio")
	}

	return &speech.TTSResponse{
		SessionID: req.SessionID,
		AudioData: audio,
		Format:    "mp3",
		Provider:  speech.ProviderOpenAI,
		Voice:     voice,
		Language:  req.Language,
		CreatedAt: time.Now(),
	}, nil
}

// whisperLanguage reduces a BCP-47 tag such as en-US to the ISO-639-1 code Whisper expects.
func whisperLanguage(language string) string {
	language = strings.TrimSpace(language)
	if idx := strings.IndexAny(language, "-_"); idx > 0 {
		language = language[:idx]
	}
	return strings.ToLower(language)
}
