package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/zhouzirui/hookchat/backend/internal/config"
	"github.com/zhouzirui/hookchat/backend/internal/handler"
	"github.com/zhouzirui/hookchat/backend/internal/model/widget"
	"github.com/zhouzirui/hookchat/backend/internal/service/chat"
	"github.com/zhouzirui/hookchat/backend/internal/service/relay"
	"github.com/zhouzirui/hookchat/backend/internal/service/responder"
	"github.com/zhouzirui/hookchat/backend/internal/service/speech"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	widgetStore := widget.NewMemoryStore(widget.Seed(cfg.Widget.Title, cfg.Widget.Greeting, cfg.Speech.Language, cfg.Speech.TTSVoice, ""))

	chatStore, closeStore, err := newChatStore(ctx, cfg.Chat)
	if err != nil {
		log.Fatalf("failed to initialize chat store: %v", err)
	}
	defer closeStore()
	chatService := chat.NewServiceWithStore(chatStore)

	replier := newResponder(ctx, cfg)

	// Initialize Speech service
	var speechService *speech.Service
	speechService, err = speech.NewService(cfg.Speech.Model())
	if err != nil {
		log.Printf("warning: failed to initialize speech service: %v", err)
		log.Println("continuing without voice features")
		speechService = nil
	} else {
		providers := speechService.Providers()
		log.Printf("Speech service initialized: stt=%s tts=%s", providers["stt"], providers["tts"])
	}

	var relaySpeech relay.Speech
	if speechService != nil {
		relaySpeech = speechService
	}
	relayService := relay.NewService(chatService, widgetStore, replier, relaySpeech)

	router := handler.NewRouter(cfg.Server.AllowedOrigins, widgetStore, chatService, relayService, speechService)

	startServer(ctx, cfg.Server, router)
}

// newChatStore picks the transcript store. Redis keys expire with SESSION_TTL.
func newChatStore(ctx context.Context, cfg config.ChatConfig) (chat.Store, func(), error) {
	if cfg.Store != "redis" {
		log.Println("Chat transcripts kept in memory")
		return chat.NewMemoryStore(), func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, err
	}

	log.Printf("Chat transcripts kept in redis at %s (ttl=%s)", cfg.RedisAddr, cfg.SessionTTL)
	return chat.NewRedisStore(rdb, cfg.SessionTTL), func() { _ = rdb.Close() }, nil
}

// newResponder prefers the webhook; the Ark model answers only when no webhook is set.
func newResponder(ctx context.Context, cfg *config.Config) responder.Responder {
	if cfg.Webhook.Enabled() || !cfg.AI.Enabled() {
		if !cfg.Webhook.Enabled() {
			log.Println("WEBHOOK_URL 未配置，仅使用 widget 自带的 webhook")
		}
		return responder.NewWebhookResponder(cfg.Webhook.URL, cfg.Webhook.Timeout)
	}

	chatModel, err := cfg.AI.NewChatModel(ctx)
	if err != nil {
		log.Printf("warning: failed to initialize AI responder: %v", err)
		return responder.NewWebhookResponder("", cfg.Webhook.Timeout)
	}

	counter, err := responder.NewTiktokenCounter(responder.DefaultEncoding)
	if err != nil {
		log.Printf("warning: tiktoken unavailable, trimming history by count only: %v", err)
		counter = nil
	}

	log.Println("AI responder initialized successfully")
	return responder.NewArkResponder(chatModel, responder.ArkOptions{
		SystemPrompt: cfg.AI.SystemPrompt,
		HistoryLimit: cfg.AI.HistoryLimit,
		TokenBudget:  cfg.AI.TokenBudget,
		Counter:      counter,
	})
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("hookchat backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
