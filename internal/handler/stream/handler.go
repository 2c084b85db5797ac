package stream

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/hookchat/backend/internal/model/chat"
	"github.com/zhouzirui/hookchat/backend/internal/model/widget"
	chatService "github.com/zhouzirui/hookchat/backend/internal/service/chat"
	"github.com/zhouzirui/hookchat/backend/internal/service/relay"
	"github.com/zhouzirui/hookchat/backend/pkg/utils"
)

// Sender relays one message for a session.
type Sender interface {
	Widget(ctx context.Context, sessionID string) (widget.Widget, error)
	SendMessage(ctx context.Context, sessionID, text string, opts relay.SendOptions) (*relay.Exchange, error)
}

// Handler pushes the progress of one send over Server-Sent Events
type Handler struct {
	sender Sender
}

// New creates a new stream handler
func New(sender Sender) *Handler {
	return &Handler{sender: sender}
}

// StreamResponse represents a streaming response chunk
type StreamResponse struct {
	Event     string `json:"event"`
	SessionID string `json:"sessionId,omitempty"`
	Data      any    `json:"data,omitempty"`
	Finished  bool   `json:"finished,omitempty"`
	Error     string `json:"error,omitempty"`
}

// RegisterRoutes 注册流式接口
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/stream/{sessionID}", h.handleStream)
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	query := r.URL.Query()
	message := strings.TrimSpace(query.Get("message"))
	if message == "" {
		utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
		return
	}

	if _, err := h.sender.Widget(r.Context(), sessionID); err != nil {
		if errors.Is(err, chatService.ErrSessionNotFound) {
			utils.RespondError(w, http.StatusNotFound, "session not found")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "session lookup failed")
		return
	}

	sse, ok := utils.NewSSEWriter(w)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	speak, _ := strconv.ParseBool(query.Get("speak"))
	opts := relay.SendOptions{
		Speak:    speak,
		Voice:    query.Get("voice"),
		Language: query.Get("language"),
	}

	h.stream(r.Context(), sse, sessionID, message, opts)
}

func (h *Handler) stream(ctx context.Context, sse *utils.SSEWriter, sessionID, message string, opts relay.SendOptions) {
	emit := func(resp StreamResponse) {
		resp.SessionID = sessionID
		if err := sse.Send(resp.Event, resp); err != nil {
			log.Printf("[stream] write %s failed for session=%s: %v", resp.Event, sessionID, err)
		}
	}

	emit(StreamResponse{Event: "start"})

	exchange, err := h.sender.SendMessage(ctx, sessionID, message, opts)
	if exchange != nil {
		if exchange.User != nil {
			emit(StreamResponse{Event: "user", Data: exchange.User})
		}
		if exchange.Bot != nil {
			emit(StreamResponse{Event: "bot", Data: exchange.Bot})
		}
		if exchange.Speech != nil {
			emit(StreamResponse{Event: "speech", Data: exchange.Speech})
		}
		for _, notice := range exchange.Notifications {
			emit(StreamResponse{Event: "error", Error: notice.Message})
		}
	}
	if err != nil && (exchange == nil || len(exchange.Notifications) == 0) {
		log.Printf("[stream] send failed for session=%s: %v", sessionID, err)
		emit(StreamResponse{Event: "error", Error: chat.NoticeSendFailed})
	}

	emit(StreamResponse{Event: "done", Finished: true})
	log.Printf("[stream] completed response for session=%s", sessionID)
}
