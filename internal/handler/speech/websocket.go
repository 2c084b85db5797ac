package speech

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/sourcegraph/conc"

	"github.com/zhouzirui/hookchat/backend/internal/model/chat"
	"github.com/zhouzirui/hookchat/backend/internal/model/widget"
	chatservice "github.com/zhouzirui/hookchat/backend/internal/service/chat"
	"github.com/zhouzirui/hookchat/backend/internal/service/recording"
	"github.com/zhouzirui/hookchat/backend/internal/service/relay"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
)

// Relay is what the websocket needs from the relay service.
type Relay interface {
	WidgetResolver
	SendMessage(ctx context.Context, sessionID, text string, opts relay.SendOptions) (*relay.Exchange, error)
	SendVoice(ctx context.Context, sessionID string, audio []byte, format string, opts relay.SendOptions) (*relay.Exchange, error)
}

// WebSocketHandler WebSocket语音处理器
type WebSocketHandler struct {
	relay         Relay
	connections   *ConnectionRegistry
	clientSideSTT bool
	maxClipBytes  int
	upgrader      websocket.Upgrader
}

// NewWebSocketHandler 创建WebSocket处理器。clientSideSTT 表示识别在浏览器内完成
func NewWebSocketHandler(r Relay, connections *ConnectionRegistry, clientSideSTT bool) *WebSocketHandler {
	if connections == nil {
		connections = NewConnectionRegistry()
	}
	return &WebSocketHandler{
		relay:         r,
		connections:   connections,
		clientSideSTT: clientSideSTT,
		maxClipBytes:  recording.DefaultMaxBytes,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterWebSocketRoutes 注册WebSocket路由
func (h *WebSocketHandler) RegisterWebSocketRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// TextMessage 文本消息
type TextMessage struct {
	Text string `json:"text"`
}

// TranscriptMessage carries a Web Speech API result recognized in the browser.
type TranscriptMessage struct {
	Text       string  `json:"text"`
	IsFinal    bool    `json:"isFinal"`
	Confidence float64 `json:"confidence,omitempty"`
}

// RecordMessage starts or stops a recording. Permission is the widget's
// microphone permission answer: "granted" or "denied".
type RecordMessage struct {
	Action     string `json:"action"`
	Permission string `json:"permission"`
	Format     string `json:"format"`
}

// AudioMessage 音频消息
type AudioMessage struct {
	AudioData []byte `json:"audioData"`
	Format    string `json:"format"`
	IsFinal   bool   `json:"isFinal"`
}

// ConfigMessage 配置消息
type ConfigMessage struct {
	Language string `json:"language"`
	Voice    string `json:"voice"`
	Format   string `json:"format"`
	Speak    *bool  `json:"speak,omitempty"`
}

type outgoingMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

type connectionState struct {
	sessionID   string
	widget      widget.Widget
	language    string
	voice       string
	speak       bool
	audioFormat string
	recorder    *recording.Session
	// idleNoticed 空闲时丢弃音频只提示一次，下次开始录音时重置
	idleNoticed bool
}

func newConnectionState(sessionID string, profile widget.Widget, maxClipBytes int) *connectionState {
	return &connectionState{
		sessionID:   sessionID,
		widget:      profile,
		language:    profile.Language,
		voice:       profile.Voice,
		speak:       true,
		audioFormat: "webm",
		recorder:    recording.NewSession(maxClipBytes),
	}
}

func (s *connectionState) sendOptions() relay.SendOptions {
	return relay.SendOptions{Speak: s.speak, Voice: s.voice, Language: s.language}
}

// handleWebSocket 处理WebSocket连接
func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		http.Error(w, "sessionID is required", http.StatusBadRequest)
		return
	}

	profile, err := h.relay.Widget(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, chatservice.ErrSessionNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		http.Error(w, "session lookup failed", http.StatusInternalServerError)
		return
	}

	state := newConnectionState(sessionID, profile, h.maxClipBytes)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	h.connections.Register(sessionID, conn)
	defer h.connections.Remove(sessionID, conn)
	defer state.recorder.Release()

	log.Printf("[websocket] new connection for session: %s", sessionID)

	ctx, cancel := context.WithCancel(r.Context())
	wg := conc.NewWaitGroup()
	defer wg.Wait()
	defer cancel()

	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	wg.Go(func() { h.pingLoop(ctx, conn) })

	h.sendResult(conn, sessionID, map[string]any{
		"type":          "connected",
		"widget":        profile.ID,
		"language":      state.language,
		"clientSideSTT": h.clientSideSTT,
	})

	for {
		kind, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[websocket] read error: %v", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))

		if kind == websocket.BinaryMessage {
			h.bufferAudio(conn, state, payload)
			continue
		}

		var msg inboundMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			h.sendError(conn, "invalid message")
			continue
		}
		if msg.SessionID != "" && msg.SessionID != sessionID {
			h.sendError(conn, "session mismatch")
			continue
		}

		h.handleMessage(ctx, conn, state, &msg)
	}
}

func (h *WebSocketHandler) handleMessage(ctx context.Context, conn *websocket.Conn, state *connectionState, msg *inboundMessage) {
	switch msg.Type {
	case "text":
		h.handleTextMessage(ctx, conn, state, msg.Data)
	case "transcript":
		h.handleTranscriptMessage(ctx, conn, state, msg.Data)
	case "record":
		h.handleRecordMessage(ctx, conn, state, msg.Data)
	case "audio":
		h.handleAudioMessage(ctx, conn, state, msg.Data)
	case "config":
		h.handleConfigMessage(conn, state, msg.Data)
	default:
		h.sendError(conn, "unsupported message type: "+msg.Type)
	}
}

func (h *WebSocketHandler) handleTextMessage(ctx context.Context, conn *websocket.Conn, state *connectionState, raw json.RawMessage) {
	var text TextMessage
	if err := json.Unmarshal(raw, &text); err != nil {
		h.sendError(conn, "invalid text payload")
		return
	}
	h.relayText(ctx, conn, state, text.Text)
}

func (h *WebSocketHandler) handleTranscriptMessage(ctx context.Context, conn *websocket.Conn, state *connectionState, raw json.RawMessage) {
	var transcript TranscriptMessage
	if err := json.Unmarshal(raw, &transcript); err != nil {
		h.sendError(conn, "invalid transcript payload")
		return
	}

	if !transcript.IsFinal {
		h.sendResult(conn, state.sessionID, map[string]any{
			"type":    "transcript",
			"text":    transcript.Text,
			"isFinal": false,
		})
		return
	}
	h.relayText(ctx, conn, state, transcript.Text)
}

func (h *WebSocketHandler) relayText(ctx context.Context, conn *websocket.Conn, state *connectionState, text string) {
	exchange, err := h.relay.SendMessage(ctx, state.sessionID, text, state.sendOptions())
	h.deliver(conn, state, exchange, err)
}

func (h *WebSocketHandler) handleRecordMessage(ctx context.Context, conn *websocket.Conn, state *connectionState, raw json.RawMessage) {
	var record RecordMessage
	if err := json.Unmarshal(raw, &record); err != nil {
		h.sendError(conn, "invalid record payload")
		return
	}
	if record.Format != "" {
		state.audioFormat = record.Format
	}

	switch record.Action {
	case "start":
		h.startRecording(ctx, conn, state, record.Permission)
	case "stop":
		h.stopRecording(ctx, conn, state)
	default:
		h.sendError(conn, "unsupported record action: "+record.Action)
	}
}

func (h *WebSocketHandler) startRecording(ctx context.Context, conn *websocket.Conn, state *connectionState, permission string) {
	if h.clientSideSTT {
		h.sendResult(conn, state.sessionID, map[string]any{
			"type":       "recording",
			"recording":  false,
			"clientSide": true,
		})
		return
	}

	state.idleNoticed = false
	mic := recording.PushMicrophone{Granted: strings.EqualFold(permission, "granted")}
	if err := state.recorder.Start(ctx, mic); err != nil && !errors.Is(err, recording.ErrAlreadyRecording) {
		log.Printf("[websocket] start recording failed session=%s: %v", state.sessionID, err)
		h.sendNotice(conn, chat.ErrorNotice(chat.NoticeRecordingFailed))
		h.sendRecordingState(conn, state)
		return
	}
	h.sendRecordingState(conn, state)
}

func (h *WebSocketHandler) stopRecording(ctx context.Context, conn *websocket.Conn, state *connectionState) {
	clip, err := state.recorder.Stop()
	h.sendRecordingState(conn, state)
	if err != nil {
		if !errors.Is(err, recording.ErrNoAudio) && !errors.Is(err, recording.ErrNotRecording) {
			log.Printf("[websocket] stop recording failed session=%s: %v", state.sessionID, err)
		}
		return
	}

	log.Printf("[websocket] processing recorded audio session=%s format=%s bytes=%d", state.sessionID, state.audioFormat, len(clip))
	exchange, err := h.relay.SendVoice(ctx, state.sessionID, clip, state.audioFormat, state.sendOptions())
	h.deliver(conn, state, exchange, err)
}

func (h *WebSocketHandler) handleAudioMessage(ctx context.Context, conn *websocket.Conn, state *connectionState, raw json.RawMessage) {
	var audio AudioMessage
	if err := json.Unmarshal(raw, &audio); err != nil {
		h.sendError(conn, "invalid audio payload")
		return
	}
	if audio.Format != "" {
		state.audioFormat = audio.Format
	}

	if !h.bufferAudio(conn, state, audio.AudioData) {
		return
	}
	if audio.IsFinal {
		h.stopRecording(ctx, conn, state)
	}
}

// bufferAudio 缓存一段录音，返回 false 表示该段被丢弃
func (h *WebSocketHandler) bufferAudio(conn *websocket.Conn, state *connectionState, chunk []byte) bool {
	if !state.recorder.Recording() {
		if !state.idleNoticed {
			state.idleNoticed = true
			h.sendRecordingState(conn, state)
		}
		return false
	}

	if err := state.recorder.Write(chunk); err != nil {
		log.Printf("[websocket] buffer audio failed session=%s: %v", state.sessionID, err)
		h.sendError(conn, err.Error())
		// 超长录音整段丢弃，不做识别
		state.recorder.Release()
		h.sendRecordingState(conn, state)
		return false
	}
	return true
}

func (h *WebSocketHandler) handleConfigMessage(conn *websocket.Conn, state *connectionState, raw json.RawMessage) {
	var cfg ConfigMessage
	if err := json.Unmarshal(raw, &cfg); err != nil {
		h.sendError(conn, "invalid config payload")
		return
	}

	applyConfig(state, cfg)

	log.Printf("[websocket] config applied session=%s voice=%s language=%s", state.sessionID, state.voice, state.language)

	h.sendResult(conn, state.sessionID, map[string]any{
		"type":     "config",
		"widget":   state.widget.ID,
		"language": state.language,
		"voice":    state.voice,
		"format":   state.audioFormat,
		"speak":    state.speak,
	})
}

func applyConfig(state *connectionState, cfg ConfigMessage) {
	if cfg.Language != "" {
		state.language = cfg.Language
	}
	if cfg.Voice != "" {
		state.voice = cfg.Voice
	}
	if cfg.Format != "" {
		state.audioFormat = cfg.Format
	}
	if cfg.Speak != nil {
		state.speak = *cfg.Speak
	}
}

// deliver 将一次收发的结果推送给前端，通知以 error 帧发送
func (h *WebSocketHandler) deliver(conn *websocket.Conn, state *connectionState, exchange *relay.Exchange, err error) {
	switch {
	case err == nil, errors.Is(err, relay.ErrReplyFailed), errors.Is(err, relay.ErrTranscriptionFailed):
	case errors.Is(err, relay.ErrEmptyMessage), errors.Is(err, relay.ErrNoTranscript):
		return
	default:
		log.Printf("[websocket] relay failed session=%s: %v", state.sessionID, err)
		h.sendNotice(conn, chat.ErrorNotice(chat.NoticeSendFailed))
		return
	}
	if exchange == nil {
		return
	}

	if exchange.Transcript != nil {
		h.sendResult(conn, state.sessionID, map[string]any{
			"type":       "transcript",
			"text":       exchange.Transcript.Text,
			"confidence": exchange.Transcript.Confidence,
			"isFinal":    true,
		})
	}
	if exchange.User != nil {
		h.sendResult(conn, state.sessionID, map[string]any{"type": "user", "message": exchange.User})
	}
	if exchange.Bot != nil {
		h.sendResult(conn, state.sessionID, map[string]any{"type": "bot", "message": exchange.Bot, "opaque": exchange.Opaque})
	}
	if tts := exchange.Speech; tts != nil {
		frame := map[string]any{
			"type":       "tts",
			"format":     tts.Format,
			"clientSide": tts.ClientSide,
			"isFinal":    true,
		}
		if tts.ClientSide {
			frame["text"] = tts.Text
			frame["voice"] = tts.Voice
			frame["language"] = tts.Language
		} else {
			frame["audioData"] = base64.StdEncoding.EncodeToString(tts.AudioData)
		}
		h.sendResult(conn, state.sessionID, frame)
	}
	for _, notice := range exchange.Notifications {
		h.sendNotice(conn, notice)
	}
}

func (h *WebSocketHandler) sendRecordingState(conn *websocket.Conn, state *connectionState) {
	h.sendResult(conn, state.sessionID, map[string]any{
		"type":      "recording",
		"recording": state.recorder.Recording(),
	})
}

func (h *WebSocketHandler) sendResult(conn *websocket.Conn, sessionID string, data map[string]any) {
	h.write(conn, outgoingMessage{
		Type:      "result",
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
}

func (h *WebSocketHandler) sendNotice(conn *websocket.Conn, notice chat.Notification) {
	h.write(conn, outgoingMessage{
		Type:      "error",
		Data:      notice,
		Timestamp: time.Now().Unix(),
	})
}

func (h *WebSocketHandler) sendError(conn *websocket.Conn, message string) {
	h.sendNotice(conn, chat.ErrorNotice(message))
}

func (h *WebSocketHandler) write(conn *websocket.Conn, msg outgoingMessage) {
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("[websocket] write %s failed: %v", msg.Type, err)
	}
}

// pingLoop 定期发送ping消息
func (h *WebSocketHandler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
