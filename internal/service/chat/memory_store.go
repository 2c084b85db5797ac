package chat

import (
	"context"
	"sync"

	"github.com/zhouzirui/hookchat/backend/internal/model/chat"
)

// MemoryStore keeps transcripts for the lifetime of the process.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]chat.Session
	messages map[string][]chat.Message
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]chat.Session),
		messages: make(map[string][]chat.Message),
	}
}

func (s *MemoryStore) CreateSession(_ context.Context, session chat.Session) error {
	s.mu.Lock()
	s.sessions[session.ID] = session
	s.messages[session.ID] = make([]chat.Message, 0, 16)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) GetSession(_ context.Context, sessionID string) (chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return chat.Session{}, ErrSessionNotFound
	}
	return session, nil
}

func (s *MemoryStore) AppendMessage(_ context.Context, message chat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[message.SessionID]; !ok {
		return ErrSessionNotFound
	}

	s.messages[message.SessionID] = append(s.messages[message.SessionID], message)
	return nil
}

func (s *MemoryStore) LoadMessages(_ context.Context, sessionID string) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages, ok := s.messages[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	copied := make([]chat.Message, len(messages))
	copy(copied, messages)
	return copied, nil
}
