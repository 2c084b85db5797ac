package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/hookchat/backend/internal/handler/chat"
	"github.com/zhouzirui/hookchat/backend/internal/handler/speech"
	"github.com/zhouzirui/hookchat/backend/internal/handler/stream"
	widgetHandler "github.com/zhouzirui/hookchat/backend/internal/handler/widget"
	middlewarePkg "github.com/zhouzirui/hookchat/backend/internal/middleware"
	"github.com/zhouzirui/hookchat/backend/internal/model/widget"
	chatService "github.com/zhouzirui/hookchat/backend/internal/service/chat"
	"github.com/zhouzirui/hookchat/backend/internal/service/relay"
	speechService "github.com/zhouzirui/hookchat/backend/internal/service/speech"
)

// NewRouter wires HTTP routes to core services. speechSvc may be nil.
func NewRouter(allowedOrigins []string, widgets widget.Store, chatSvc *chatService.Service, relaySvc *relay.Service, speechSvc *speechService.Service) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(allowedOrigins))

	// Create handlers
	widgetH := widgetHandler.New(widgets)
	chatH := chat.New(chatSvc, relaySvc, widgets)
	streamH := stream.New(relaySvc)

	r.Route("/api", func(api chi.Router) {
		widgetH.RegisterRoutes(api)
		chatH.RegisterRoutes(api)
		streamH.RegisterRoutes(api)

		// Register speech routes if speech service is available
		if speechSvc != nil {
			ws := speech.NewWebSocketHandler(relaySvc, speech.NewConnectionRegistry(), speechSvc.ClientSideTranscription())
			speech.New(speechSvc, relaySvc, ws).RegisterRoutes(api)
		}
	})

	return r
}
