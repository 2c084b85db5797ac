package speech

import "time"

// Provider names a speech backend.
type Provider string

const (
	ProviderBrowser    Provider = "browser"
	ProviderGoogle     Provider = "google"
	ProviderElevenLabs Provider = "elevenlabs"
	ProviderOpenAI     Provider = "openai"
)

// SpeechConfig 语音服务配置
type SpeechConfig struct {
	STTProvider Provider `json:"sttProvider"`
	TTSProvider Provider `json:"ttsProvider"`

	// Google Cloud Speech / Text-to-Speech
	GoogleAPIKey  string `json:"-"`
	GoogleBaseURL string `json:"googleBaseUrl,omitempty"`

	// ElevenLabs
	ElevenLabsAPIKey  string `json:"-"`
	ElevenLabsVoiceID string `json:"elevenLabsVoiceId,omitempty"`
	ElevenLabsModel   string `json:"elevenLabsModel,omitempty"`
	ElevenLabsBaseURL string `json:"elevenLabsBaseUrl,omitempty"`

	// OpenAI audio
	OpenAIAPIKey  string `json:"-"`
	OpenAIBaseURL string `json:"openAiBaseUrl,omitempty"`
	OpenAIVoice   string `json:"openAiVoice,omitempty"`

	// ASR / TTS defaults
	Language string  `json:"language"`
	TTSVoice string  `json:"ttsVoice"`
	TTSSpeed float32 `json:"ttsSpeed"`

	Timeout time.Duration `json:"timeout"`
}
