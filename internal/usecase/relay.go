package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"chat-relay/internal/domain"
	"chat-relay/internal/normalize"
)

// Upstream performs the "create chat message" call.
type Upstream interface {
	CreateChatMessage(ctx context.Context, apiKey string, in domain.UpstreamRequest) (json.RawMessage, error)
}

// ConversationRegistry maps users to upstream conversation ids.
type ConversationRegistry interface {
	GetConversationID(ctx context.Context, userID string) (string, bool, error)
	SetConversationID(ctx context.Context, userID, conversationID string) error
}

// ProfileReader supplies the stored profile when a turn carries none.
type ProfileReader interface {
	GetProfile(ctx context.Context, userID string) (domain.Profile, error)
}

// upstreamStatusError is implemented by upstream clients' non-2xx errors.
type upstreamStatusError interface {
	HTTPStatusCode() int
	ResponseBody() []byte
}

// RelayService runs one chat turn against the upstream workflow API.
type RelayService struct {
	creds         CredentialSource
	upstream      Upstream
	conversations ConversationRegistry
	profiles      ProfileReader
	logger        *slog.Logger
	locks         *userLocks
}

func NewRelayService(creds CredentialSource, upstream Upstream, conversations ConversationRegistry, profiles ProfileReader, logger *slog.Logger) (*RelayService, error) {
	if creds == nil {
		return nil, errors.New("usecase: credential source must not be nil")
	}
	if upstream == nil {
		return nil, errors.New("usecase: upstream client must not be nil")
	}
	if conversations == nil {
		return nil, errors.New("usecase: conversation registry must not be nil")
	}
	if profiles == nil {
		return nil, errors.New("usecase: profile reader must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RelayService{
		creds:         creds,
		upstream:      upstream,
		conversations: conversations,
		profiles:      profiles,
		logger:        logger,
		locks:         newUserLocks(),
	}, nil
}

// HandleTurn forwards one message and returns the normalized reply. The
// conversation registry is only written after the upstream call succeeded.
func (s *RelayService) HandleTurn(ctx context.Context, in domain.ChatTurnRequest) (domain.NormalizedResponse, error) {
	userID := in.UserID
	if userID == "" {
		userID = domain.AnonymousUser
	}

	creds, err := s.creds.Credentials(ctx)
	if err == nil {
		err = validateCredentials(creds)
	}
	if err != nil {
		cfgErr := newError(ErrorUpstreamConfig, "credentials_invalid", err)
		cfgErr.Detail = configHint
		return domain.NormalizedResponse{}, cfgErr
	}

	release, err := s.locks.acquire(ctx, userID)
	if err != nil {
		return domain.NormalizedResponse{}, newError(ErrorInternal, "turn_cancelled", err)
	}
	defer release()

	convID, _, err := s.conversations.GetConversationID(ctx, userID)
	if err != nil {
		return domain.NormalizedResponse{}, newError(ErrorInternal, "conversation_read_error", err)
	}

	req := buildUpstreamRequest(in.Message, userID, s.turnProfile(ctx, userID, in.Profile), in.Language, convID)

	raw, err := s.upstream.CreateChatMessage(ctx, creds.APIKey, req)
	if err != nil {
		reqErr := upstreamError(err)
		s.logger.Error("upstream request failed", "user_id", userID, "status", reqErr.Status, "err", err)
		return domain.NormalizedResponse{}, reqErr
	}

	if id := normalize.ConversationID(raw); id != "" {
		if err := s.conversations.SetConversationID(ctx, userID, id); err != nil {
			s.logger.Warn("failed to store conversation id", "user_id", userID, "err", err)
		}
	}

	out := normalize.Normalize(raw)
	s.logger.Debug("normalized upstream response",
		"user_id", userID,
		"shape", normalize.Classify(raw).String(),
		"cards", len(out.Cards),
		"suggestions", len(out.Suggestions),
	)
	return out, nil
}

// turnProfile forwards the request profile as-is and falls back to the
// stored profile when the request carries none.
func (s *RelayService) turnProfile(ctx context.Context, userID string, profile domain.Profile) domain.Profile {
	if len(profile) > 0 {
		return profile
	}
	stored, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		s.logger.Warn("failed to load stored profile", "user_id", userID, "err", err)
		return domain.Profile{}
	}
	if stored == nil {
		return domain.Profile{}
	}
	return stored
}

func buildUpstreamRequest(message, userID string, profile domain.Profile, language, conversationID string) domain.UpstreamRequest {
	return domain.UpstreamRequest{
		Query: message,
		Inputs: domain.UpstreamInputs{
			Query:    message,
			Profile:  profile,
			Language: strings.TrimSpace(language),
		},
		ResponseMode:   domain.ResponseModeBlocking,
		User:           userID,
		ConversationID: conversationID,
	}
}

// upstreamError maps a failed call. A non-2xx answer keeps the upstream
// status and body; anything else has no status and the error text as detail.
func upstreamError(err error) *Error {
	out := newError(ErrorUpstreamRequest, "upstream_unreachable", err)
	out.Detail = err.Error()

	var statusErr upstreamStatusError
	if !errors.As(err, &statusErr) {
		return out
	}
	out.Reason = "upstream_status"
	out.Status = statusErr.HTTPStatusCode()
	if body := statusErr.ResponseBody(); len(strings.TrimSpace(string(body))) > 0 {
		if json.Valid(body) {
			out.Detail = json.RawMessage(body)
		} else {
			out.Detail = string(body)
		}
	}
	return out
}
