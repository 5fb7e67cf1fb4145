// Package store holds per-user relay state: the upstream conversation id
// for each user and each user's preference profile.
package store

import (
	"context"
	"errors"

	"chat-relay/internal/domain"
)

var (
	// ErrInvalidConfig is returned when a driver is missing its backing client.
	ErrInvalidConfig = errors.New("store: invalid configuration")
	// ErrInvalidDriver is returned for an unrecognized driver name.
	ErrInvalidDriver = errors.New("store: invalid driver")
)

// ConversationRegistry maps a user id to the upstream conversation id.
type ConversationRegistry interface {
	// GetConversationID returns ok=false when the user has no conversation yet.
	GetConversationID(ctx context.Context, userID string) (id string, ok bool, err error)
	// SetConversationID overwrites any previous id for the user.
	SetConversationID(ctx context.Context, userID, conversationID string) error
}

// ProfileStore keeps a preference bag per user.
type ProfileStore interface {
	// GetProfile returns an empty, non-nil profile for unknown users.
	GetProfile(ctx context.Context, userID string) (domain.Profile, error)
	// MergeProfile shallow-merges partial into the stored profile and returns the result.
	MergeProfile(ctx context.Context, userID string, partial domain.Profile) (domain.Profile, error)
}

// Store is implemented by every driver.
type Store interface {
	ConversationRegistry
	ProfileStore
	Close() error
}
