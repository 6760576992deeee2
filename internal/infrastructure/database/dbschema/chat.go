package dbschema

import (
	"time"

	"gorm.io/datatypes"

	"velvet-server/internal/domain/chat"
	"velvet-server/internal/infrastructure/database"
)

func init() {
	database.RegisterSchemaForAutoMigrate(&Chat{})
	database.RegisterSchemaForAutoMigrate(&Message{})
}

// Chat is the persistence shape of a conversation thread.
type Chat struct {
	BaseModel
	PublicID  string `gorm:"column:public_id;size:64;uniqueIndex;not null"`
	Title     string `gorm:"size:255;not null"`
	UserID    uint   `gorm:"index;not null"`
	IsDeleted bool   `gorm:"not null;default:false;index"`
}

func (Chat) TableName() string { return "velvet.chats" }

func (c *Chat) EtoD() *chat.Chat {
	return &chat.Chat{
		ID:        c.ID,
		PublicID:  c.PublicID,
		Title:     c.Title,
		UserID:    c.UserID,
		IsDeleted: c.IsDeleted,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func NewSchemaChat(d *chat.Chat) *Chat {
	return &Chat{
		BaseModel: BaseModel{
			ID:        d.ID,
			CreatedAt: d.CreatedAt,
			UpdatedAt: d.UpdatedAt,
		},
		PublicID:  d.PublicID,
		Title:     d.Title,
		UserID:    d.UserID,
		IsDeleted: d.IsDeleted,
	}
}

// Message is the persistence shape of a chat message. Metadata lands in a
// JSONB column.
type Message struct {
	BaseModel
	PublicID  string            `gorm:"column:public_id;size:64;uniqueIndex;not null"`
	ChatID    uint              `gorm:"index:idx_messages_chat_ts;not null"`
	Content   string            `gorm:"type:text;not null"`
	Role      string            `gorm:"size:16;not null"`
	Timestamp time.Time         `gorm:"index:idx_messages_chat_ts;not null"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb"`
	IsDeleted bool              `gorm:"not null;default:false;index"`
}

func (Message) TableName() string { return "velvet.messages" }

func (m *Message) EtoD() *chat.Message {
	var meta map[string]any
	if len(m.Metadata) > 0 {
		meta = map[string]any(m.Metadata)
	}
	return &chat.Message{
		ID:        m.ID,
		PublicID:  m.PublicID,
		ChatID:    m.ChatID,
		Content:   m.Content,
		Role:      chat.MessageRole(m.Role),
		Timestamp: m.Timestamp,
		Metadata:  meta,
		IsDeleted: m.IsDeleted,
	}
}

func NewSchemaMessage(d *chat.Message) *Message {
	var meta datatypes.JSONMap
	if len(d.Metadata) > 0 {
		meta = datatypes.JSONMap(d.Metadata)
	}
	return &Message{
		BaseModel: BaseModel{ID: d.ID},
		PublicID:  d.PublicID,
		ChatID:    d.ChatID,
		Content:   d.Content,
		Role:      string(d.Role),
		Timestamp: d.Timestamp,
		Metadata:  meta,
		IsDeleted: d.IsDeleted,
	}
}
