package chat

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/hookchat/backend/internal/model/chat"
	"github.com/zhouzirui/hookchat/backend/internal/model/widget"
	chatService "github.com/zhouzirui/hookchat/backend/internal/service/chat"
	"github.com/zhouzirui/hookchat/backend/internal/service/relay"
	"github.com/zhouzirui/hookchat/backend/pkg/utils"
)

// Handler 聊天服务的HTTP处理器
type Handler struct {
	chatSvc  *chatService.Service
	relaySvc *relay.Service
	widgets  widget.Store
}

// New 创建聊天处理器
func New(chatSvc *chatService.Service, relaySvc *relay.Service, widgets widget.Store) *Handler {
	return &Handler{
		chatSvc:  chatSvc,
		relaySvc: relaySvc,
		widgets:  widgets,
	}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session", h.handleCreateSession)
	r.Get("/session/{sessionID}/messages", h.handleListMessages)
	r.Post("/messages", h.handleSendMessage)
}

// handleCreateSession 创建会话
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		WidgetID string `json:"widgetId"`
	}

	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	widgetID := strings.TrimSpace(payload.WidgetID)
	if widgetID == "" {
		utils.RespondError(w, http.StatusBadRequest, "widgetId is required")
		return
	}

	if _, ok := h.widgets.FindByID(widgetID); !ok {
		utils.RespondError(w, http.StatusBadRequest, "widget not found")
		return
	}

	session, err := h.chatSvc.CreateSession(r.Context(), widgetID)
	if err != nil {
		log.Printf("[chat] create session failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	utils.RespondJSON(w, http.StatusCreated, session)
}

// handleListMessages 返回会话的有序消息列表
func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	messages, err := h.chatSvc.LoadTranscript(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, chatService.ErrSessionNotFound) {
			utils.RespondError(w, http.StatusNotFound, err.Error())
			return
		}
		log.Printf("[chat] load transcript failed for session=%s: %v", sessionID, err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to load messages")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"sessionId": sessionID,
		"messages":  messages,
	})
}

type sendRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
	Speak     bool   `json:"speak"`
	Voice     string `json:"voice"`
	Language  string `json:"language"`
}

// handleSendMessage 发送用户消息并返回机器人回复
func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var payload sendRequest
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if strings.TrimSpace(payload.SessionID) == "" {
		utils.RespondError(w, http.StatusBadRequest, "sessionId is required")
		return
	}

	exchange, err := h.relaySvc.SendMessage(r.Context(), payload.SessionID, payload.Message, relay.SendOptions{
		Speak:    payload.Speak,
		Voice:    payload.Voice,
		Language: payload.Language,
	})
	if err != nil {
		h.respondSendError(w, exchange, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, exchange)
}

func (h *Handler) respondSendError(w http.ResponseWriter, exchange *relay.Exchange, err error) {
	switch {
	case errors.Is(err, relay.ErrEmptyMessage):
		utils.RespondError(w, http.StatusBadRequest, "message is required")
	case errors.Is(err, chatService.ErrSessionNotFound):
		utils.RespondError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, relay.ErrReplyFailed) && exchange != nil:
		utils.RespondJSON(w, http.StatusBadGateway, map[string]any{
			"error":         chat.NoticeSendFailed,
			"user":          exchange.User,
			"notifications": exchange.Notifications,
		})
	default:
		log.Printf("[chat] send failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, chat.NoticeSendFailed)
	}
}
