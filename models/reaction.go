package models

import (
	"time"
)

type Reaction struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	MessageID string    `gorm:"size:36;not null;uniqueIndex:idx_message_user_emoji" json:"message_id"`
	Message   Message   `gorm:"foreignKey:MessageID" json:"-"`
	UserID    string    `gorm:"size:36;not null;uniqueIndex:idx_message_user_emoji" json:"user_id"`
	Emoji     string    `gorm:"size:32;not null;uniqueIndex:idx_message_user_emoji" json:"emoji"`
	CreatedAt time.Time `json:"created_at"`
}
