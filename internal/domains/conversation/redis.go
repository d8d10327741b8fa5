package conversation

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis"

	"github.com/vakya-ai/vakya/internal/types"
	"github.com/vakya-ai/vakya/pkg/Logger"
)

// RedisStore keeps history in a redis list per session, so it survives
// server restarts and can be shared across instances.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *Logger.Logger
}

// NewRedisStore connects to redis and verifies the connection. ttl of
// zero keeps sessions forever.
func NewRedisStore(addr, password string, db int, ttl time.Duration, logger *Logger.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping().Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return &RedisStore{client: client, ttl: ttl, logger: logger}, nil
}

func sessionKey(sessionID string) string {
	return "vakya:history:" + sessionID
}

// Append implements Store.
func (r *RedisStore) Append(sessionID string, role types.TurnRole, content string) error {
	key := sessionKey(sessionID)
	seq, err := r.client.LLen(key).Result()
	if err != nil {
		return fmt.Errorf("reading history length: %w", err)
	}
	data, err := json.Marshal(types.Turn{
		Role:      role,
		Content:   content,
		Seq:       int(seq),
		CreatedAt: time.Now(),
	})
	if err != nil {
		return err
	}
	if err := r.client.RPush(key, data).Err(); err != nil {
		return fmt.Errorf("appending turn: %w", err)
	}
	if r.ttl > 0 {
		if err := r.client.Expire(key, r.ttl).Err(); err != nil {
			r.logger.Warnf("failed to refresh ttl for %s: %v", sessionID, err)
		}
	}
	return nil
}

// History implements Store.
func (r *RedisStore) History(sessionID string) ([]types.Turn, error) {
	raw, err := r.client.LRange(sessionKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	turns := make([]types.Turn, 0, len(raw))
	for _, item := range raw {
		var t types.Turn
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			r.logger.Warnf("skipping corrupt turn in %s: %v", sessionID, err)
			continue
		}
		turns = append(turns, t)
	}
	return turns, nil
}

// Clear implements Store.
func (r *RedisStore) Clear(sessionID string) error {
	return r.client.Del(sessionKey(sessionID)).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
