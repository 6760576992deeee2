package chat

import (
	"context"
	"strings"
	"time"

	"velvet-server/internal/utils/idgen"
	"velvet-server/internal/utils/platformerrors"
)

const (
	publicIDLength  = 16
	maxTitleLength  = 255
	defaultListSize = 50
)

// Service implements the conversation store operations on top of a Repository.
type Service struct {
	repo      Repository
	listLimit int
}

// NewService creates a chat service. listLimit caps how many chats a listing
// returns; zero falls back to the default.
func NewService(repo Repository, listLimit int) *Service {
	if listLimit <= 0 {
		listLimit = defaultListSize
	}
	return &Service{repo: repo, listLimit: listLimit}
}

// CreateChat creates an empty chat owned by userID. An empty title is
// replaced with a placeholder.
func (s *Service) CreateChat(ctx context.Context, userID uint, title string) (*Chat, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "New Chat"
	}
	if len(title) > maxTitleLength {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"title exceeds maximum length", nil, "")
	}

	publicID, err := idgen.GenerateSecureID("chat", publicIDLength)
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeInternal,
			"failed to generate chat id", err, "")
	}

	now := time.Now().UTC()
	c := &Chat{
		PublicID:  publicID,
		Title:     title,
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// ListChats returns the caller's chats, most recently active first.
func (s *Service) ListChats(ctx context.Context, userID uint) ([]*Chat, error) {
	return s.repo.ListByUser(ctx, userID, s.listLimit)
}

// GetChat returns a chat with its full message history in chronological
// order. A chat that does not exist, is deleted, or belongs to another user
// yields NOT_FOUND.
func (s *Service) GetChat(ctx context.Context, userID uint, publicID string) (*Chat, error) {
	c, err := s.repo.FindByPublicIDAndUser(ctx, publicID, userID)
	if err != nil {
		return nil, err
	}

	msgs, err := s.repo.ListMessages(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	c.Messages = make([]Message, 0, len(msgs))
	for _, m := range msgs {
		c.Messages = append(c.Messages, *m)
	}
	c.MessageCount = int64(len(c.Messages))
	return c, nil
}

// DeleteChat soft-deletes a chat after verifying ownership. The operation is
// idempotent from the caller's perspective only in that a second call yields
// NOT_FOUND, matching a chat that never existed.
func (s *Service) DeleteChat(ctx context.Context, userID uint, publicID string) error {
	c, err := s.repo.FindByPublicIDAndUser(ctx, publicID, userID)
	if err != nil {
		return err
	}
	return s.repo.SoftDelete(ctx, c.ID)
}

// ResolveOwned resolves a chat public id to the owned chat record without
// loading messages. Shared by the exchange pipeline.
func (s *Service) ResolveOwned(ctx context.Context, userID uint, publicID string) (*Chat, error) {
	return s.repo.FindByPublicIDAndUser(ctx, publicID, userID)
}

// RecentHistory returns up to window most recent messages of the chat in
// chronological order.
func (s *Service) RecentHistory(ctx context.Context, chatID uint, window int) ([]*Message, error) {
	if window <= 0 {
		return nil, nil
	}
	return s.repo.RecentMessages(ctx, chatID, window)
}

// AppendMessage validates and persists a message in the given chat, bumping
// the chat's activity timestamp atomically with the insert.
func (s *Service) AppendMessage(ctx context.Context, chatID uint, role MessageRole, content string, metadata map[string]any) (*Message, error) {
	if !role.Valid() {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"invalid message role", nil, "")
	}
	if content == "" || len(content) > MaxContentLength {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"message content must be between 1 and 50000 characters", nil, "")
	}

	publicID, err := idgen.GenerateSecureID("msg", publicIDLength)
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeInternal,
			"failed to generate message id", err, "")
	}

	m := &Message{
		PublicID:  publicID,
		ChatID:    chatID,
		Content:   content,
		Role:      role,
		Timestamp: time.Now().UTC(),
		Metadata:  metadata,
	}
	if err := s.repo.AppendMessage(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}
