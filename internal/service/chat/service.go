package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zhouzirui/hookchat/backend/internal/model/chat"
)

var (
	ErrWidgetRequired  = errors.New("widget id is required")
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidSender   = errors.New("invalid message sender")
)

// Store keeps sessions and their append-only transcripts.
type Store interface {
	CreateSession(ctx context.Context, session chat.Session) error
	GetSession(ctx context.Context, sessionID string) (chat.Session, error)
	AppendMessage(ctx context.Context, message chat.Message) error
	LoadMessages(ctx context.Context, sessionID string) ([]chat.Message, error)
}

// Service encapsulates conversation state management.
type Service struct {
	store Store
}

// NewService bootstraps the chat service on the in-memory store.
func NewService() *Service {
	return NewServiceWithStore(NewMemoryStore())
}

// NewServiceWithStore builds the chat service on top of an explicit store.
func NewServiceWithStore(store Store) *Service {
	return &Service{store: store}
}

// CreateSession provisions an anonymous session bound to a widget.
func (s *Service) CreateSession(ctx context.Context, widgetID string) (chat.Session, error) {
	widgetID = strings.TrimSpace(widgetID)
	if widgetID == "" {
		return chat.Session{}, ErrWidgetRequired
	}

	session := chat.Session{
		ID:        uuid.NewString(),
		WidgetID:  widgetID,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.store.CreateSession(ctx, session); err != nil {
		return chat.Session{}, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// SaveMessage appends a message to the session history and returns the stored copy.
func (s *Service) SaveMessage(ctx context.Context, message chat.Message) (chat.Message, error) {
	if message.SessionID == "" {
		return chat.Message{}, ErrSessionNotFound
	}
	if !message.Sender.Valid() {
		return chat.Message{}, ErrInvalidSender
	}

	message.ID = uuid.NewString()
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}

	if err := s.store.AppendMessage(ctx, message); err != nil {
		return chat.Message{}, err
	}
	return message, nil
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(ctx context.Context, sessionID string) (chat.Session, error) {
	return s.store.GetSession(ctx, sessionID)
}

// LoadTranscript returns stored messages for the provided session, oldest first.
func (s *Service) LoadTranscript(ctx context.Context, sessionID string) ([]chat.Message, error) {
	return s.store.LoadMessages(ctx, sessionID)
}
