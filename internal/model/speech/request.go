package speech

import (
	"io"
)

// ASRRequest 语音识别请求
type ASRRequest struct {
	SessionID string    `json:"sessionId"`
	AudioData io.Reader `json:"-"`
	Format    string    `json:"format"`   // webm, wav, mp3, ogg, ...
	Language  string    `json:"language"` // en-US, zh-CN, ...
}

// TTSRequest 语音合成请求
type TTSRequest struct {
	SessionID string  `json:"sessionId"`
	Text      string  `json:"text"`
	Voice     string  `json:"voice"`
	Speed     float32 `json:"speed"` // 0.25-4.0, provider dependent
	Format    string  `json:"format"`
	Language  string  `json:"language"`
}
