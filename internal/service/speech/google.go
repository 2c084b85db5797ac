package speech

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/zhouzirui/hookchat/backend/internal/model/speech"
)

const (
	googleSpeechURL = "https://speech.googleapis.com"
	googleTTSURL    = "https://texttospeech.googleapis.com"
)

// GoogleClient talks to Cloud Speech-to-Text and Cloud Text-to-Speech over REST.
type GoogleClient struct {
	config    *speech.SpeechConfig
	client    *resty.Client
	speechURL string
	ttsURL    string
}

// NewGoogleClient 创建 Google Cloud 语音客户端
func NewGoogleClient(config *speech.SpeechConfig) *GoogleClient {
	speechURL, ttsURL := googleSpeechURL, googleTTSURL
	if base := strings.TrimRight(strings.TrimSpace(config.GoogleBaseURL), "/"); base != "" {
		speechURL, ttsURL = base, base
	}

	client := resty.New().SetHeader("Content-Type", "application/json")
	if config.Timeout > 0 {
		client.SetTimeout(config.Timeout)
	}

	return &GoogleClient{
		config:    config,
		client:    client,
		speechURL: speechURL,
		ttsURL:    ttsURL,
	}
}

func (c *GoogleClient) Name() speech.Provider { return speech.ProviderGoogle }

type googleRecognizeRequest struct {
	Config struct {
		Encoding                   string `json:"encoding,omitempty"`
		SampleRateHertz            int    `json:"sampleRateHertz,omitempty"`
		LanguageCode               string `json:"languageCode"`
		EnableAutomaticPunctuation bool   `json:"enableAutomaticPunctuation"`
	} `json:"config"`
	Audio struct {
		Content string `json:"content"`
	} `json:"audio"`
}

type googleRecognizeResponse struct {
	Results []struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"results"`
}

type googleErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Transcribe sends base64 audio to speech:recognize and joins the best alternatives.
func (c *GoogleClient) Transcribe(ctx context.Context, req *speech.ASRRequest) (*speech.ASRResponse, error) {
	if strings.TrimSpace(c.config.GoogleAPIKey) == "" {
		return nil, ErrMissingAPIKey
	}

	audio, err := io.ReadAll(req.AudioData)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, ErrEmptyAudio
	}

	var body googleRecognizeRequest
	body.Config.Encoding, body.Config.SampleRateHertz = googleEncoding(req.Format)
	body.Config.LanguageCode = req.Language
	body.Config.EnableAutomaticPunctuation = true
	body.Audio.Content = base64.StdEncoding.EncodeToString(audio)

	var (
		result  googleRecognizeResponse
		failure googleErrorResponse
	)
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("key", c.config.GoogleAPIKey).
		SetBody(body).
		SetResult(&result).
		SetError(&failure).
		Post(c.speechURL + "/v1/speech:recognize")
	if err != nil {
		return nil, fmt.Errorf("google speech request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("google speech error %d: %s", resp.StatusCode(), failure.Error.Message)
	}

	var (
		parts      []string
		confidence float64
	)
	for _, r := range result.Results {
		if len(r.Alternatives) == 0 {
			continue
		}
		best := r.Alternatives[0]
		if text := strings.TrimSpace(best.Transcript); text != "" {
			parts = append(parts, text)
			confidence += best.Confidence
		}
	}
	if len(parts) > 0 {
		confidence /= float64(len(parts))
	}

	return &speech.ASRResponse{
		SessionID:  req.SessionID,
		Text:       strings.Join(parts, " "),
		Confidence: confidence,
		Provider:   speech.ProviderGoogle,
		CreatedAt:  time.Now(),
	}, nil
}

type googleSynthesizeRequest struct {
	Input struct {
		Text string `json:"text"`
	} `json:"input"`
	Voice struct {
		LanguageCode string `json:"languageCode"`
		Name         string `json:"name,omitempty"`
	} `json:"voice"`
	AudioConfig struct {
		AudioEncoding string  `json:"audioEncoding"`
		SpeakingRate  float32 `json:"speakingRate,omitempty"`
	} `json:"audioConfig"`
}

type googleSynthesizeResponse struct {
	AudioContent string `json:"audioContent"`
}

// Synthesize calls text:synthesize and decodes the base64 MP3 payload.
func (c *GoogleClient) Synthesize(ctx context.Context, req *speech.TTSRequest) (*speech.TTSResponse, error) {
	if strings.TrimSpace(c.config.GoogleAPIKey) == "" {
		return nil, ErrMissingAPIKey
	}

	var body googleSynthesizeRequest
	body.Input.Text = req.Text
	body.Voice.LanguageCode = req.Language
	body.Voice.Name = req.Voice
	body.AudioConfig.AudioEncoding = "MP3"
	if req.Speed > 0 && req.Speed != 1.0 {
		body.AudioConfig.SpeakingRate = req.Speed
	}

	var (
		result  googleSynthesizeResponse
		failure googleErrorResponse
	)
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("key", c.config.GoogleAPIKey).
		SetBody(body).
		SetResult(&result).
		SetError(&failure).
		Post(c.ttsURL + "/v1/text:synthesize")
	if err != nil {
		return nil, fmt.Errorf("google tts request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("google tts error %d: %s", resp.StatusCode(), failure.Error.Message)
	}

	audio, err := base64.StdEncoding.DecodeString(result.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("google tts returned empty audio")
	}

	return &speech.TTSResponse{
		SessionID: req.SessionID,
		AudioData: audio,
		Format:    "mp3",
		Provider:  speech.ProviderGoogle,
		Voice:     req.Voice,
		Language:  req.Language,
		CreatedAt: time.Now(),
	}, nil
}

// googleEncoding maps a container format to the RecognitionConfig encoding.
// An empty encoding lets the API sniff WAV and FLAC headers.
func googleEncoding(format string) (string, int) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "webm":
		return "WEBM_OPUS", 48000
	case "ogg", "opus":
		return "OGG_OPUS", 48000
	case "flac":
		return "FLAC", 0
	case "pcm", "raw":
		return "LINEAR16", 16000
	case "mp3":
		return "MP3", 0
	default:
		return "", 0
	}
}
