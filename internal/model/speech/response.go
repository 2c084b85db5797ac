package speech

import "time"

// ASRResponse 语音识别响应
type ASRResponse struct {
	SessionID  string    `json:"sessionId"`
	Text       string    `json:"text"`
	Confidence float64   `json:"confidence"`
	Provider   Provider  `json:"provider"`
	CreatedAt  time.Time `json:"createdAt"`
}

// TTSResponse 语音合成响应. ClientSide marks a reply the widget must speak itself.
type TTSResponse struct {
	SessionID  string    `json:"sessionId"`
	Text       string    `json:"text,omitempty"`
	AudioData  []byte    `json:"audioData,omitempty"`
	Format     string    `json:"format"`
	Provider   Provider  `json:"provider"`
	ClientSide bool      `json:"clientSide"`
	Voice      string    `json:"voice,omitempty"`
	Language   string    `json:"language,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ContentType returns the HTTP media type for the synthesized audio.
func (r *TTSResponse) ContentType() string {
	switch r.Format {
	case "mp3", "mpeg":
		return "audio/mpeg"
	case "":
		return "application/octet-stream"
	default:
		return "audio/" + r.Format
	}
}
