// Package chat provides the durable conversation model: chats owned by users
// and the totally ordered messages within them.
package chat

import (
	"context"
	"time"
)

// MessageRole identifies the author of a message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// Valid reports whether the role is one of the accepted values.
func (r MessageRole) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// MaxContentLength bounds message content size.
const MaxContentLength = 50000

// Chat is a conversation thread owned by exactly one user.
//
// UpdatedAt is monotonically non-decreasing and is bumped atomically with
// every message append, so UpdatedAt >= the timestamp of the newest
// non-deleted message at every observable point.
type Chat struct {
	ID           uint      `json:"-"`
	PublicID     string    `json:"id"`
	Title        string    `json:"title"`
	UserID       uint      `json:"-"`
	MessageCount int64     `json:"message_count"`
	IsDeleted    bool      `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Messages []Message `json:"messages,omitempty"`
}

// Message is a single utterance within a chat. Within a chat, messages are
// totally ordered by Timestamp.
type Message struct {
	ID        uint           `json:"-"`
	PublicID  string         `json:"id"`
	ChatID    uint           `json:"-"`
	Content   string         `json:"content"`
	Role      MessageRole    `json:"role"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	IsDeleted bool           `json:"-"`
}

// Repository defines storage operations for chats and messages.
//
// Lookup methods that take a userID treat "does not exist", "is deleted" and
// "is not owned by userID" identically: all three yield a NOT_FOUND error, so
// callers cannot distinguish missing ids from foreign ones.
type Repository interface {
	Create(ctx context.Context, chat *Chat) error

	// ListByUser returns non-deleted chats owned by userID ordered by
	// updated_at descending, each annotated with its live count of
	// non-deleted messages.
	ListByUser(ctx context.Context, userID uint, limit int) ([]*Chat, error)

	// FindByPublicIDAndUser returns the chat without its messages.
	FindByPublicIDAndUser(ctx context.Context, publicID string, userID uint) (*Chat, error)

	// ListMessages returns all non-deleted messages of a chat in
	// chronological order.
	ListMessages(ctx context.Context, chatID uint) ([]*Message, error)

	// RecentMessages returns the most recent limit non-deleted messages in
	// chronological (oldest-first) order.
	RecentMessages(ctx context.Context, chatID uint, limit int) ([]*Message, error)

	// AppendMessage inserts the message and bumps the chat's updated_at in
	// the same transaction. The message must never become visible without
	// the chat's updated_at reflecting it.
	AppendMessage(ctx context.Context, msg *Message) error

	// SoftDelete hides a chat (and, by visibility cascade, its messages)
	// from every read path without purging storage.
	SoftDelete(ctx context.Context, chatID uint) error
}
