package model

import (
	"time"

	"github.com/google/uuid"
)

// 聊天频道
const (
	ChatChannelAssistant  = "assistant"
	ChatChannelAttendance = "attendance"
)

// ChatMessage 聊天历史记录，助手与翘课顾问各占一个频道
type ChatMessage struct {
	ChatMessageID uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"chat_message_id"`
	UserID        uuid.UUID `gorm:"type:uuid;not null" json:"user_id"`
	Channel       string    `gorm:"size:20;not null" json:"channel"`
	Text          string    `gorm:"type:text;not null" json:"text"`
	IsUser        bool      `gorm:"not null" json:"is_user"`
	CreatedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName 指定表名
func (ChatMessage) TableName() string {
	return "chat_messages"
}
