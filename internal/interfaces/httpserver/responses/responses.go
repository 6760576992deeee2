// Package responses defines the outbound API payloads.
package responses

import (
	"time"

	"velvet-server/internal/domain/chat"
	"velvet-server/internal/domain/user"
)

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

func NewUser(u *user.User) User {
	return User{
		ID:        u.PublicID,
		Email:     u.Email,
		Username:  u.Username,
		CreatedAt: u.CreatedAt,
	}
}

type Auth struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}

func NewAuth(s *user.Session) Auth {
	return Auth{
		Token:     s.Token,
		ExpiresAt: s.ExpiresAt,
		User:      NewUser(s.User),
	}
}

type Message struct {
	ID        string         `json:"id"`
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func NewMessage(m *chat.Message) Message {
	return Message{
		ID:        m.PublicID,
		Role:      string(m.Role),
		Content:   m.Content,
		Timestamp: m.Timestamp,
		Metadata:  m.Metadata,
	}
}

type Chat struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	MessageCount int64     `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Messages     []Message `json:"messages,omitempty"`
}

func NewChat(c *chat.Chat) Chat {
	out := Chat{
		ID:           c.PublicID,
		Title:        c.Title,
		MessageCount: c.MessageCount,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
	for i := range c.Messages {
		out.Messages = append(out.Messages, NewMessage(&c.Messages[i]))
	}
	return out
}

type ChatList struct {
	Chats []Chat `json:"chats"`
	Total int    `json:"total"`
}

func NewChatList(chats []*chat.Chat) ChatList {
	out := ChatList{Chats: make([]Chat, 0, len(chats))}
	for _, c := range chats {
		out.Chats = append(out.Chats, NewChat(c))
	}
	out.Total = len(out.Chats)
	return out
}

type SendMessage struct {
	UserMessage      Message `json:"user_message"`
	AssistantMessage Message `json:"assistant_message"`
	Model            string  `json:"model"`
	ContextUsed      bool    `json:"context_used"`
}

type Health struct {
	Status   string            `json:"status"`
	Version  string            `json:"version"`
	Services map[string]string `json:"services"`
}
