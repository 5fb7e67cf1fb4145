package store

import (
	"fmt"
	"strings"
	"time"

	"chat-relay/internal/repository"
)

// Driver names a storage backend.
type Driver string

const (
	DriverMemory   Driver = "memory"
	DriverRedis    Driver = "redis"
	DriverDynamoDB Driver = "dynamodb"
)

const (
	defaultTTL       = 30 * 24 * time.Hour
	defaultKeyPrefix = "chat-relay"
)

// ParseDriver maps a config value onto a Driver. Empty means memory.
func ParseDriver(s string) (Driver, error) {
	switch d := Driver(strings.ToLower(strings.TrimSpace(s))); d {
	case "":
		return DriverMemory, nil
	case DriverMemory, DriverRedis, DriverDynamoDB:
		return d, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDriver, s)
	}
}

// New builds a Store for the given driver. The redis driver requires
// WithRedisClient and the dynamodb driver requires WithDynamoDB.
func New(driver Driver, opts ...Option) (Store, error) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.ttl <= 0 {
		cfg.ttl = defaultTTL
	}
	if cfg.keyPrefix == "" {
		cfg.keyPrefix = defaultKeyPrefix
	}

	switch driver {
	case DriverMemory:
		return NewMemoryStore(), nil

	case DriverRedis:
		if cfg.redisClient == nil {
			return nil, ErrInvalidConfig
		}
		return newRedisStore(cfg.redisClient, cfg.keyPrefix, cfg.ttl), nil

	case DriverDynamoDB:
		if cfg.dynamoAPI == nil {
			return nil, ErrInvalidConfig
		}
		client, err := repository.New(cfg.dynamoAPI, cfg.table, cfg.ttl)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		return client, nil

	default:
		return nil, ErrInvalidDriver
	}
}
