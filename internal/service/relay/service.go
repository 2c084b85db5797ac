package relay

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/zhouzirui/hookchat/backend/internal/model/chat"
	speechmodel "github.com/zhouzirui/hookchat/backend/internal/model/speech"
	"github.com/zhouzirui/hookchat/backend/internal/model/widget"
	"github.com/zhouzirui/hookchat/backend/internal/service/responder"
)

var (
	ErrEmptyMessage        = errors.New("message is empty")
	ErrReplyFailed         = errors.New("failed to get reply")
	ErrTranscriptionFailed = errors.New("failed to transcribe audio")
	ErrNoTranscript        = errors.New("no speech recognized")
	ErrSpeechUnavailable   = errors.New("speech service is not configured")
)

// ChatStore is the part of the chat service the relay writes through.
type ChatStore interface {
	GetSession(ctx context.Context, sessionID string) (chat.Session, error)
	SaveMessage(ctx context.Context, message chat.Message) (chat.Message, error)
	LoadTranscript(ctx context.Context, sessionID string) ([]chat.Message, error)
}

// Speech covers transcription of recorded clips and synthesis of bot replies.
type Speech interface {
	TranscribeBuffer(ctx context.Context, sessionID string, audioData []byte, format, language string) (*speechmodel.ASRResponse, error)
	SynthesizeToBuffer(ctx context.Context, sessionID, text, voice, language string) (*speechmodel.TTSResponse, error)
}

// SendOptions tunes one outgoing message.
type SendOptions struct {
	Speak    bool
	Voice    string
	Language string
}

// Exchange is everything the widget renders after one send.
type Exchange struct {
	User          *chat.Message            `json:"user,omitempty"`
	Bot           *chat.Message            `json:"bot,omitempty"`
	Opaque        bool                     `json:"opaque,omitempty"`
	Transcript    *speechmodel.ASRResponse `json:"transcript,omitempty"`
	Speech        *speechmodel.TTSResponse `json:"speech,omitempty"`
	Notifications []chat.Notification      `json:"notifications"`
}

func (e *Exchange) notify(message string) {
	e.Notifications = append(e.Notifications, chat.ErrorNotice(message))
}

// Service relays widget input to the responder and records both sides.
type Service struct {
	chat      ChatStore
	widgets   widget.Store
	responder responder.Responder
	speech    Speech
}

// NewService wires the relay. speech may be nil when voice is disabled.
func NewService(chatStore ChatStore, widgets widget.Store, r responder.Responder, speech Speech) *Service {
	return &Service{
		chat:      chatStore,
		widgets:   widgets,
		responder: r,
		speech:    speech,
	}
}

// SendMessage appends the user message, asks the responder and appends the
// bot reply. When the responder fails the user message stays, no bot message
// is written, and the returned exchange carries the notification.
func (s *Service) SendMessage(ctx context.Context, sessionID, text string, opts SendOptions) (*Exchange, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	session, err := s.chat.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	profile := s.widgetFor(session)

	history, err := s.chat.LoadTranscript(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load transcript: %w", err)
	}

	user, err := s.chat.SaveMessage(ctx, chat.Message{
		SessionID: sessionID,
		Sender:    chat.SenderUser,
		Content:   text,
	})
	if err != nil {
		return nil, fmt.Errorf("save user message: %w", err)
	}

	exchange := &Exchange{User: &user, Notifications: []chat.Notification{}}

	reply, err := s.responder.Reply(ctx, responder.ReplyRequest{
		SessionID:  sessionID,
		WebhookURL: profile.WebhookURL,
		Message:    text,
		History:    history,
	})
	if err != nil {
		log.Printf("[relay] reply failed for session=%s: %v", sessionID, err)
		exchange.notify(chat.NoticeSendFailed)
		return exchange, fmt.Errorf("%w: %w", ErrReplyFailed, err)
	}

	bot, err := s.chat.SaveMessage(ctx, chat.Message{
		SessionID: sessionID,
		Sender:    chat.SenderBot,
		Content:   reply.Text,
	})
	if err != nil {
		return exchange, fmt.Errorf("save bot message: %w", err)
	}
	exchange.Bot = &bot
	exchange.Opaque = reply.Opaque

	if opts.Speak {
		s.speak(ctx, exchange, profile, opts)
	}

	return exchange, nil
}

// speak synthesizes the bot reply. Failures only add a notification.
func (s *Service) speak(ctx context.Context, exchange *Exchange, profile widget.Widget, opts SendOptions) {
	if s.speech == nil {
		exchange.notify(chat.NoticeSpeechFailed)
		return
	}

	voice := firstNonEmpty(opts.Voice, profile.Voice)
	language := firstNonEmpty(opts.Language, profile.Language)

	resp, err := s.speech.SynthesizeToBuffer(ctx, exchange.Bot.SessionID, exchange.Bot.Content, voice, language)
	if err != nil {
		log.Printf("[relay] speech synthesis failed for session=%s: %v", exchange.Bot.SessionID, err)
		exchange.notify(chat.NoticeSpeechFailed)
		return
	}
	exchange.Speech = resp
}

// SendVoice transcribes a recorded clip and relays the transcript. An empty
// transcript produces no messages.
func (s *Service) SendVoice(ctx context.Context, sessionID string, audio []byte, format string, opts SendOptions) (*Exchange, error) {
	if s.speech == nil {
		return nil, ErrSpeechUnavailable
	}

	session, err := s.chat.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	language := firstNonEmpty(opts.Language, s.widgetFor(session).Language)

	asr, err := s.speech.TranscribeBuffer(ctx, sessionID, audio, format, language)
	if err != nil {
		log.Printf("[relay] transcription failed for session=%s: %v", sessionID, err)
		exchange := &Exchange{Notifications: []chat.Notification{chat.ErrorNotice(chat.NoticeRecognitionFailed)}}
		return exchange, fmt.Errorf("%w: %w", ErrTranscriptionFailed, err)
	}
	if strings.TrimSpace(asr.Text) == "" {
		return &Exchange{Transcript: asr, Notifications: []chat.Notification{}}, ErrNoTranscript
	}

	exchange, err := s.SendMessage(ctx, sessionID, asr.Text, opts)
	if exchange != nil {
		exchange.Transcript = asr
	}
	return exchange, err
}

// Widget returns the widget profile a session is bound to.
func (s *Service) Widget(ctx context.Context, sessionID string) (widget.Widget, error) {
	session, err := s.chat.GetSession(ctx, sessionID)
	if err != nil {
		return widget.Widget{}, err
	}
	return s.widgetFor(session), nil
}

func (s *Service) widgetFor(session chat.Session) widget.Widget {
	if s.widgets != nil {
		if w, ok := s.widgets.FindByID(session.WidgetID); ok {
			return w
		}
	}
	return widget.Widget{ID: session.WidgetID}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
