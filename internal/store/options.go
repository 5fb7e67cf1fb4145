package store

import (
	"time"

	"chat-relay/internal/repository"
)

// Option configures New.
type Option func(*config)

type config struct {
	redisClient redisAPI
	keyPrefix   string
	dynamoAPI   repository.DynamoDBAPI
	table       string
	ttl         time.Duration
}

// WithRedisClient sets the client used by the redis driver. *redis.Client
// satisfies the interface.
func WithRedisClient(client redisAPI) Option {
	return func(c *config) {
		c.redisClient = client
	}
}

// WithKeyPrefix namespaces redis keys.
func WithKeyPrefix(prefix string) Option {
	return func(c *config) {
		c.keyPrefix = prefix
	}
}

// WithDynamoDB sets the table used by the dynamodb driver.
func WithDynamoDB(api repository.DynamoDBAPI, table string) Option {
	return func(c *config) {
		c.dynamoAPI = api
		c.table = table
	}
}

// WithTTL bounds how long persisted state lives. Ignored by the memory driver.
func WithTTL(ttl time.Duration) Option {
	return func(c *config) {
		c.ttl = ttl
	}
}
