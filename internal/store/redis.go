package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"chat-relay/internal/domain"
)

// redisAPI is the subset of *redis.Client used by the redis driver.
type redisAPI interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Close() error
}

// redisStore keeps conversation ids as plain string keys and profiles as
// hashes with one JSON-encoded field per preference, so a merge is a single
// HSET.
type redisStore struct {
	client redisAPI
	prefix string
	ttl    time.Duration
}

func newRedisStore(client redisAPI, prefix string, ttl time.Duration) *redisStore {
	return &redisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *redisStore) conversationKey(userID string) string {
	return s.prefix + ":conversation:" + userID
}

func (s *redisStore) profileKey(userID string) string {
	return s.prefix + ":profile:" + userID
}

func (s *redisStore) GetConversationID(ctx context.Context, userID string) (string, bool, error) {
	id, err := s.client.Get(ctx, s.conversationKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("store: redis get conversation: %w", err)
	}
	return id, true, nil
}

func (s *redisStore) SetConversationID(ctx context.Context, userID, conversationID string) error {
	if err := s.client.Set(ctx, s.conversationKey(userID), conversationID, s.ttl).Err(); err != nil {
		return fmt.Errorf("store: redis set conversation: %w", err)
	}
	return nil
}

func (s *redisStore) GetProfile(ctx context.Context, userID string) (domain.Profile, error) {
	vals, err := s.client.HGetAll(ctx, s.profileKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("store: redis get profile: %w", err)
	}
	return decodeProfileFields(vals)
}

func (s *redisStore) MergeProfile(ctx context.Context, userID string, partial domain.Profile) (domain.Profile, error) {
	key := s.profileKey(userID)
	if len(partial) > 0 {
		args := make([]interface{}, 0, 2*len(partial))
		for k, v := range partial {
			b, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("store: encode preference %q: %w", k, err)
			}
			args = append(args, k, string(b))
		}
		if err := s.client.HSet(ctx, key, args...).Err(); err != nil {
			return nil, fmt.Errorf("store: redis merge profile: %w", err)
		}
		if err := s.client.Expire(ctx, key, s.ttl).Err(); err != nil {
			return nil, fmt.Errorf("store: redis expire profile: %w", err)
		}
	}
	return s.GetProfile(ctx, userID)
}

func (s *redisStore) Close() error {
	return s.client.Close()
}

func decodeProfileFields(vals map[string]string) (domain.Profile, error) {
	profile := make(domain.Profile, len(vals))
	for k, raw := range vals {
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("store: decode preference %q: %w", k, err)
		}
		profile[k] = v
	}
	return profile, nil
}
