package speech

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/zhouzirui/hookchat/backend/internal/model/speech"
)

const elevenLabsURL = "https://api.elevenlabs.io"

// ElevenLabsClient calls the ElevenLabs text-to-speech HTTP API.
type ElevenLabsClient struct {
	config  *speech.SpeechConfig
	client  *resty.Client
	baseURL string
}

// NewElevenLabsClient 创建 ElevenLabs TTS 客户端
func NewElevenLabsClient(config *speech.SpeechConfig) *ElevenLabsClient {
	baseURL := strings.TrimRight(strings.TrimSpace(config.ElevenLabsBaseURL), "/")
	if baseURL == "" {
		baseURL = elevenLabsURL
	}

	client := resty.New().
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "audio/mpeg")
	if config.Timeout > 0 {
		client.SetTimeout(config.Timeout)
	}

	return &ElevenLabsClient{config: config, client: client, baseURL: baseURL}
}

func (c *ElevenLabsClient) Name() speech.Provider { return speech.ProviderElevenLabs }

type elevenLabsRequest struct {
	Text          string                  `json:"text"`
	ModelID       string                  `json:"model_id,omitempty"`
	VoiceSettings elevenLabsVoiceSettings `json:"voice_settings"`
}

type elevenLabsVoiceSettings struct {
	Stability       float32 `json:"stability"`
	SimilarityBoost float32 `json:"similarity_boost"`
	Speed           float32 `json:"speed,omitempty"`
}

// Synthesize posts the text and returns the MP3 body as is.
func (c *ElevenLabsClient) Synthesize(ctx context.Context, req *speech.TTSRequest) (*speech.TTSResponse, error) {
	apiKey := strings.TrimSpace(c.config.ElevenLabsAPIKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	voiceID := strings.TrimSpace(req.Voice)
	if voiceID == "" {
		voiceID = c.config.ElevenLabsVoiceID
	}

	body := elevenLabsRequest{
		Text:    req.Text,
		ModelID: c.config.ElevenLabsModel,
		VoiceSettings: elevenLabsVoiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
		},
	}
	if req.Speed > 0 && req.Speed != 1.0 {
		body.VoiceSettings.Speed = req.Speed
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("xi-api-key", apiKey).
		SetPathParam("voiceID", voiceID).
		SetQueryParam("output_format", "mp3_44100_128").
		SetBody(body).
		Post(c.baseURL + "/v1/text-to-speech/{voiceID}")
	if err != nil {
		return nil, fmt.Errorf("elevenlabs request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("elevenlabs error %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}

	audio := resp.Body()
	if len(audio) == 0 {
		return nil, fmt.Errorf("elevenlabs returned empty audio")
	}

	return &speech.TTSResponse{
		SessionID: req.SessionID,
		AudioData: audio,
		Format:    "mp3",
		Provider:  speech.ProviderElevenLabs,
		Voice:     voiceID,
		Language:  req.Language,
		CreatedAt: time.Now(),
	}, nil
}
