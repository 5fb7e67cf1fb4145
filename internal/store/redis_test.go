package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"chat-relay/internal/domain"
)

// fakeRedis is an in-memory stand-in for the redisAPI command subset.
type fakeRedis struct {
	strings   map[string]string
	hashes    map[string]map[string]string
	expires   map[string]time.Duration
	err       error
	expireErr error
	closed    bool
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{
		strings: make(map[string]string),
		hashes:  make(map[string]map[string]string),
		expires: make(map[string]time.Duration),
	}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.strings[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	f.strings[key] = value.(string)
	f.expires[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) HGetAll(_ context.Context, key string) *redis.MapStringStringCmd {
	if f.err != nil {
		return redis.NewMapStringStringResult(nil, f.err)
	}
	out := make(map[string]string, len(f.hashes[key]))
	for k, v := range f.hashes[key] {
		out[k] = v
	}
	return redis.NewMapStringStringResult(out, nil)
}

func (f *fakeRedis) HSet(_ context.Context, key string, values ...interface{}) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	h, ok := f.hashes[key]
	if !ok {
		h = make(map[string]string)
		f.hashes[key] = h
	}
	for i := 0; i+1 < len(values); i += 2 {
		h[values[i].(string)] = values[i+1].(string)
	}
	return redis.NewIntResult(int64(len(values)/2), nil)
}

func (f *fakeRedis) Expire(_ context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	if f.expireErr != nil {
		return redis.NewBoolResult(false, f.expireErr)
	}
	f.expires[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Close() error {
	f.closed = true
	return nil
}

func TestRedisStore_Conversation(t *testing.T) {
	fake := newFakeRedis()
	s := newRedisStore(fake, "test", time.Hour)
	ctx := context.Background()

	_, ok, err := s.GetConversationID(ctx, "u1")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.SetConversationID(ctx, "u1", "c1"))
	require.Equal(t, "c1", fake.strings["test:conversation:u1"])
	require.Equal(t, time.Hour, fake.expires["test:conversation:u1"])

	id, ok, err := s.GetConversationID(ctx, "u1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "c1", id)
}

func TestRedisStore_ProfileMerge(t *testing.T) {
	fake := newFakeRedis()
	s := newRedisStore(fake, "test", time.Hour)
	ctx := context.Background()

	_, err := s.MergeProfile(ctx, "u1", domain.Profile{"a": 1})
	require.NoError(t, err)
	merged, err := s.MergeProfile(ctx, "u1", domain.Profile{"b": "two"})
	require.NoError(t, err)
	require.Equal(t, domain.Profile{"a": float64(1), "b": "two"}, merged)
	require.Equal(t, `"two"`, fake.hashes["test:profile:u1"]["b"])
	require.Equal(t, time.Hour, fake.expires["test:profile:u1"])
}

func TestRedisStore_EmptyMergeSkipsWrite(t *testing.T) {
	fake := newFakeRedis()
	s := newRedisStore(fake, "test", time.Hour)

	profile, err := s.MergeProfile(context.Background(), "u1", nil)
	require.NoError(t, err)
	require.Empty(t, profile)
	require.NotContains(t, fake.hashes, "test:profile:u1")
}

func TestRedisStore_Errors(t *testing.T) {
	fake := newFakeRedis()
	fake.err = errors.New("connection refused")
	s := newRedisStore(fake, "test", time.Hour)
	ctx := context.Background()

	_, _, err := s.GetConversationID(ctx, "u1")
	require.ErrorContains(t, err, "connection refused")
	require.ErrorContains(t, s.SetConversationID(ctx, "u1", "c1"), "set conversation")
	_, err = s.GetProfile(ctx, "u1")
	require.ErrorContains(t, err, "get profile")
	_, err = s.MergeProfile(ctx, "u1", domain.Profile{"a": 1})
	require.ErrorContains(t, err, "merge profile")
}

func TestRedisStore_MergeProfileExpireError(t *testing.T) {
	fake := newFakeRedis()
	fake.expireErr = errors.New("READONLY")
	s := newRedisStore(fake, "test", time.Hour)

	_, err := s.MergeProfile(context.Background(), "u1", domain.Profile{"a": 1})
	require.ErrorContains(t, err, "expire profile")
	require.ErrorContains(t, err, "READONLY")
}

func TestRedisStore_MalformedField(t *testing.T) {
	fake := newFakeRedis()
	fake.hashes["test:profile:u1"] = map[string]string{"a": "{bad"}
	s := newRedisStore(fake, "test", time.Hour)

	_, err := s.GetProfile(context.Background(), "u1")
	require.ErrorContains(t, err, `decode preference "a"`)
}

func TestRedisStore_Close(t *testing.T) {
	fake := newFakeRedis()
	require.NoError(t, newRedisStore(fake, "test", time.Hour).Close())
	require.True(t, fake.closed)
}
