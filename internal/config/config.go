package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/ilyakaznacheev/cleanenv"

	speechmodel "github.com/zhouzirui/hookchat/backend/internal/model/speech"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server  ServerConfig
	Chat    ChatConfig
	Webhook WebhookConfig
	AI      AIConfig
	Speech  SpeechConfig
	Widget  WidgetConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	addr, err := normalizeAddr(cfg.Server.Port)
	if err != nil {
		return nil, err
	}
	cfg.Server.Addr = addr

	if err := cfg.Chat.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Speech.validate(); err != nil {
		return nil, err
	}
	if cfg.AI.HistoryLimit < 1 {
		cfg.AI.HistoryLimit = 1
	}

	return &cfg, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Port           string   `env:"PORT" env-default:"8080"`
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" env-separator:"," env-default:"*"`
	Addr           string
}

// normalizeAddr 解析服务器监听地址。
func normalizeAddr(port string) (string, error) {
	port = strings.TrimSpace(port)
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return port, nil
	}

	if strings.Contains(port, " ") {
		return "", fmt.Errorf("invalid PORT value: %q", port)
	}

	return ":" + port, nil
}

// ChatConfig selects where session transcripts live.
type ChatConfig struct {
	Store      string        `env:"CHAT_STORE" env-default:"memory"`
	RedisAddr  string        `env:"REDIS_ADDR" env-default:"localhost:6379"`
	RedisDB    int           `env:"REDIS_DB" env-default:"0"`
	SessionTTL time.Duration `env:"SESSION_TTL" env-default:"2h"`
}

func (c ChatConfig) validate() error {
	switch c.Store {
	case "memory", "redis":
	default:
		return fmt.Errorf("invalid CHAT_STORE value %q: want memory or redis", c.Store)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("invalid SESSION_TTL value %s", c.SessionTTL)
	}
	return nil
}

// WebhookConfig describes the external endpoint receiving outgoing chat text.
type WebhookConfig struct {
	URL     string        `env:"WEBHOOK_URL"`
	Timeout time.Duration `env:"WEBHOOK_TIMEOUT" env-default:"30s"`
}

// Enabled 表示是否配置了 webhook 地址。
func (c WebhookConfig) Enabled() bool {
	return strings.TrimSpace(c.URL) != ""
}

// AIConfig 描述大模型相关配置, used when no webhook is configured.
type AIConfig struct {
	APIKey       string  `env:"ARK_API_KEY"`
	AccessKey    string  `env:"ARK_ACCESS_KEY"`
	SecretKey    string  `env:"ARK_SECRET_KEY"`
	Model        string  `env:"Model"`
	BaseURL      string  `env:"ARK_BASE_URL" env-default:"https://ark.cn-beijing.volces.com/api/v3"`
	Region       string  `env:"ARK_REGION" env-default:"cn-beijing"`
	Temperature  float32 `env:"ARK_TEMPERATURE"`
	MaxTokens    int     `env:"ARK_MAX_TOKENS"`
	SystemPrompt string  `env:"AI_SYSTEM_PROMPT" env-default:"You are a concise and friendly chat assistant."`
	HistoryLimit int     `env:"AI_HISTORY_LIMIT" env-default:"12"`
	TokenBudget  int     `env:"AI_TOKEN_BUDGET" env-default:"3500"`
}

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("ark credentials or model missing: set ARK_API_KEY + Model or an AK/SK pair")
	}

	var temperature *float32
	if c.Temperature > 0 {
		val := c.Temperature
		temperature = &val
	}

	var maxTokens *int
	if c.MaxTokens > 0 {
		val := c.MaxTokens
		maxTokens = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}

	return ark.NewChatModel(ctx, cfg)
}

// SpeechConfig 描述语音服务相关配置
type SpeechConfig struct {
	STTProvider       string        `env:"SPEECH_STT_PROVIDER" env-default:"browser"`
	TTSProvider       string        `env:"SPEECH_TTS_PROVIDER" env-default:"browser"`
	GoogleAPIKey      string        `env:"GOOGLE_API_KEY"`
	GoogleBaseURL     string        `env:"GOOGLE_SPEECH_BASE_URL"`
	ElevenLabsAPIKey  string        `env:"ELEVENLABS_API_KEY"`
	ElevenLabsVoiceID string        `env:"ELEVENLABS_VOICE_ID" env-default:"21m00Tcm4TlvDq8ikWAM"`
	ElevenLabsModel   string        `env:"ELEVENLABS_MODEL" env-default:"eleven_multilingual_v2"`
	ElevenLabsBaseURL string        `env:"ELEVENLABS_BASE_URL"`
	OpenAIAPIKey      string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL     string        `env:"OPENAI_BASE_URL"`
	OpenAIVoice       string        `env:"OPENAI_TTS_VOICE" env-default:"alloy"`
	Language          string        `env:"SPEECH_LANGUAGE" env-default:"en-US"`
	TTSVoice          string        `env:"SPEECH_TTS_VOICE"`
	TTSSpeed          float32       `env:"SPEECH_TTS_SPEED" env-default:"1.0"`
	Timeout           time.Duration `env:"SPEECH_TIMEOUT" env-default:"30s"`
}

func (c SpeechConfig) validate() error {
	switch speechmodel.Provider(c.STTProvider) {
	case speechmodel.ProviderBrowser, speechmodel.ProviderGoogle, speechmodel.ProviderOpenAI:
	default:
		return fmt.Errorf("invalid SPEECH_STT_PROVIDER value %q", c.STTProvider)
	}
	switch speechmodel.Provider(c.TTSProvider) {
	case speechmodel.ProviderBrowser, speechmodel.ProviderGoogle, speechmodel.ProviderElevenLabs, speechmodel.ProviderOpenAI:
	default:
		return fmt.Errorf("invalid SPEECH_TTS_PROVIDER value %q", c.TTSProvider)
	}
	return nil
}

// Model converts the environment settings into the speech service configuration.
func (c SpeechConfig) Model() *speechmodel.SpeechConfig {
	return &speechmodel.SpeechConfig{
		STTProvider:       speechmodel.Provider(c.STTProvider),
		TTSProvider:       speechmodel.Provider(c.TTSProvider),
		GoogleAPIKey:      c.GoogleAPIKey,
		GoogleBaseURL:     c.GoogleBaseURL,
		ElevenLabsAPIKey:  c.ElevenLabsAPIKey,
		ElevenLabsVoiceID: c.ElevenLabsVoiceID,
		ElevenLabsModel:   c.ElevenLabsModel,
		ElevenLabsBaseURL: c.ElevenLabsBaseURL,
		OpenAIAPIKey:      c.OpenAIAPIKey,
		OpenAIBaseURL:     c.OpenAIBaseURL,
		OpenAIVoice:       c.OpenAIVoice,
		Language:          c.Language,
		TTSVoice:          c.TTSVoice,
		TTSSpeed:          c.TTSSpeed,
		Timeout:           c.Timeout,
	}
}

// WidgetConfig describes the default widget profile.
type WidgetConfig struct {
	Title    string `env:"WIDGET_TITLE" env-default:"Chat Assistant"`
	Greeting string `env:"WIDGET_GREETING"`
}
