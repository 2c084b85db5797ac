package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zhouzirui/hookchat/backend/internal/model/chat"
)

const redisKeyPrefix = "hookchat"

// RedisStore keeps transcripts in redis. Every write refreshes the TTL, so a
// session lives as long as the widget keeps talking.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore wraps a redis client; ttl bounds the session lifetime.
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

// appendScript 仅在会话键存在时追加消息，并一起刷新两个键的 TTL
var appendScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return 0
end
redis.call('RPUSH', KEYS[2], ARGV[1])
local ttl = tonumber(ARGV[2])
if ttl > 0 then
	redis.call('PEXPIRE', KEYS[2], ttl)
	redis.call('PEXPIRE', KEYS[1], ttl)
end
return 1
`)

func sessionKey(sessionID string) string {
	return fmt.Sprintf("%s:session:%s", redisKeyPrefix, sessionID)
}

func messagesKey(sessionID string) string {
	return fmt.Sprintf("%s:messages:%s", redisKeyPrefix, sessionID)
}

func (s *RedisStore) CreateSession(ctx context.Context, session chat.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session %s: %w", session.ID, err)
	}
	if err := s.rdb.Set(ctx, sessionKey(session.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set session %s: %w", session.ID, err)
	}
	return nil
}

func (s *RedisStore) GetSession(ctx context.Context, sessionID string) (chat.Session, error) {
	data, err := s.rdb.Get(ctx, sessionKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return chat.Session{}, ErrSessionNotFound
		}
		return chat.Session{}, fmt.Errorf("failed to get session %s: %w", sessionID, err)
	}

	var session chat.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return chat.Session{}, fmt.Errorf("failed to unmarshal session %s: %w", sessionID, err)
	}
	return session, nil
}

func (s *RedisStore) AppendMessage(ctx context.Context, message chat.Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	keys := []string{sessionKey(message.SessionID), messagesKey(message.SessionID)}
	appended, err := appendScript.Run(ctx, s.rdb, keys, data, s.ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("failed to append message to session %s: %w", message.SessionID, err)
	}
	if appended == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (s *RedisStore) LoadMessages(ctx context.Context, sessionID string) ([]chat.Message, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	raw, err := s.rdb.LRange(ctx, messagesKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load messages of session %s: %w", sessionID, err)
	}

	messages := make([]chat.Message, 0, len(raw))
	for _, item := range raw {
		var message chat.Message
		if err := json.Unmarshal([]byte(item), &message); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message of session %s: %w", sessionID, err)
		}
		messages = append(messages, message)
	}
	return messages, nil
}
