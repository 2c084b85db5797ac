package speech

import (
	"context"
	"errors"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/hookchat/backend/internal/model/chat"
	"github.com/zhouzirui/hookchat/backend/internal/model/speech"
	"github.com/zhouzirui/hookchat/backend/internal/model/widget"
	speechsvc "github.com/zhouzirui/hookchat/backend/internal/service/speech"
	"github.com/zhouzirui/hookchat/backend/pkg/utils"
)

// maxUploadBytes 上传音频的大小上限
const maxUploadBytes = 32 << 20

// SpeechService 抽象语音业务，便于测试与替换实现
type SpeechService interface {
	TranscribeAudio(ctx context.Context, req *speech.ASRRequest) (*speech.ASRResponse, error)
	SynthesizeSpeech(ctx context.Context, req *speech.TTSRequest) (*speech.TTSResponse, error)
	Providers() map[string]speech.Provider
}

// WidgetResolver finds the widget profile a chat session belongs to.
type WidgetResolver interface {
	Widget(ctx context.Context, sessionID string) (widget.Widget, error)
}

// Handler 语音服务的HTTP处理器
type Handler struct {
	speechSvc SpeechService
	widgets   WidgetResolver
	ws        *WebSocketHandler
}

// New 创建语音处理器。widgets 与 ws 可以为 nil
func New(speechSvc SpeechService, widgets WidgetResolver, ws *WebSocketHandler) *Handler {
	return &Handler{
		speechSvc: speechSvc,
		widgets:   widgets,
		ws:        ws,
	}
}

// RegisterRoutes 注册语音相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/text-to-speech", h.handleSynthesize)

	r.Route("/speech", func(speechRouter chi.Router) {
		// ASR 端点
		speechRouter.Post("/transcribe", h.handleTranscribe)
		speechRouter.Post("/transcribe/{sessionID}", h.handleTranscribe)

		// TTS 端点
		speechRouter.Post("/synthesize", h.handleSynthesize)
		speechRouter.Post("/synthesize/{sessionID}", h.handleSynthesize)

		// 健康检查
		speechRouter.Get("/health", h.handleHealth)

		if h.ws != nil {
			h.ws.RegisterWebSocketRoutes(speechRouter)
		} else {
			speechRouter.Get("/ws/{sessionID}", func(w http.ResponseWriter, _ *http.Request) {
				utils.RespondError(w, http.StatusNotImplemented, "speech websocket not available")
			})
		}
	})
}

// handleTranscribe 处理语音转文本请求
func (h *Handler) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "failed to parse multipart form: "+err.Error())
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		sessionID = r.FormValue("sessionId")
	}

	language := r.FormValue("language")
	if language == "" {
		language = h.widgetFor(r.Context(), sessionID).Language
	}

	format := strings.TrimSpace(r.FormValue("format"))
	if format == "" {
		format = inferAudioFormat(header.Filename)
	}

	resp, err := h.speechSvc.TranscribeAudio(r.Context(), &speech.ASRRequest{
		SessionID: sessionID,
		AudioData: file,
		Format:    format,
		Language:  language,
	})
	if err != nil {
		switch {
		case errors.Is(err, speechsvc.ErrClientSideProvider):
			utils.RespondError(w, http.StatusConflict, "speech recognition runs in the browser")
		case errors.Is(err, speechsvc.ErrEmptyAudio):
			utils.RespondError(w, http.StatusBadRequest, "audio file is empty")
		default:
			log.Printf("[speech] ASR error: %v", err)
			utils.RespondError(w, http.StatusBadGateway, chat.NoticeRecognitionFailed)
		}
		return
	}

	utils.RespondJSON(w, http.StatusOK, resp)
}

// handleSynthesize 处理文本转语音请求
func (h *Handler) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	var req speech.TTSRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if sessionID := chi.URLParam(r, "sessionID"); sessionID != "" {
		req.SessionID = sessionID
	}

	if strings.TrimSpace(req.Text) == "" {
		utils.RespondError(w, http.StatusBadRequest, "text is required")
		return
	}

	if req.SessionID != "" && (req.Voice == "" || req.Language == "") {
		profile := h.widgetFor(r.Context(), req.SessionID)
		if req.Voice == "" {
			req.Voice = profile.Voice
		}
		if req.Language == "" {
			req.Language = profile.Language
		}
	}

	resp, err := h.speechSvc.SynthesizeSpeech(r.Context(), &req)
	if err != nil {
		log.Printf("[speech] TTS error: %v", err)
		utils.RespondError(w, http.StatusBadGateway, chat.NoticeSpeechFailed)
		return
	}

	if resp.ClientSide || len(resp.AudioData) == 0 {
		utils.RespondJSON(w, http.StatusOK, resp)
		return
	}

	format := resp.Format
	if format == "" {
		format = "bin"
	}
	utils.RespondAudio(w, resp.ContentType(), "speech."+format, resp.AudioData)
}

// handleHealth 健康检查端点
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"service":   "speech",
		"providers": h.speechSvc.Providers(),
	})
}

func (h *Handler) widgetFor(ctx context.Context, sessionID string) widget.Widget {
	if h.widgets == nil || strings.TrimSpace(sessionID) == "" {
		return widget.Widget{}
	}
	profile, err := h.widgets.Widget(ctx, sessionID)
	if err != nil {
		return widget.Widget{}
	}
	return profile
}

// inferAudioFormat 从文件名推断音频格式
func inferAudioFormat(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".mp3":
		return "mp3"
	case ".wav":
		return "wav"
	case ".webm":
		return "webm"
	case ".ogg", ".oga":
		return "ogg"
	case ".flac":
		return "flac"
	case ".m4a":
		return "m4a"
	case ".pcm", ".raw":
		return "pcm"
	default:
		return "webm"
	}
}
