package models

import (
	"time"
)

// Message types
const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
	MessageTypeVideo = "video"
	MessageTypeFile  = "file"
	MessageTypeAudio = "audio"
)

type Message struct {
	// ID is a UUIDv7, so the identifier itself sorts by creation instant.
	// The ordering contract inside a room is Seq, not the id.
	ID     string `gorm:"primaryKey;size:36" json:"id"`
	RoomID string `gorm:"size:36;not null;index;uniqueIndex:idx_room_seq" json:"room_id"`
	Room   Room   `gorm:"foreignKey:RoomID" json:"-"`

	// Seq is the room-local position, assigned from Room.LastSeq inside the
	// append transaction. Unique per room, strictly increasing.
	Seq int64 `gorm:"not null;uniqueIndex:idx_room_seq" json:"seq"`

	SenderID string `gorm:"size:36;not null;index" json:"sender_id"`
	Content  string `gorm:"type:text" json:"content"`
	Type     string `gorm:"size:20;not null;default:'text'" json:"type"`

	// Opaque media reference; the core never touches the bytes behind it.
	MediaURL  string `gorm:"size:500" json:"media_url,omitempty"`
	MediaName string `gorm:"size:255" json:"media_name,omitempty"`
	MediaSize int64  `json:"media_size,omitempty"`

	ReplyToID *string `gorm:"size:36;index" json:"reply_to_id,omitempty"`

	IsEdited  bool `gorm:"not null;default:false" json:"is_edited"`
	IsDeleted bool `gorm:"not null;default:false" json:"is_deleted"`
	IsPinned  bool `gorm:"not null;default:false" json:"is_pinned"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// ValidMessageType reports whether t is one of the known message types.
func ValidMessageType(t string) bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeVideo, MessageTypeFile, MessageTypeAudio:
		return true
	}
	return false
}

// IsMediaType reports whether messages of type t carry a media reference.
func IsMediaType(t string) bool {
	switch t {
	case MessageTypeImage, MessageTypeVideo, MessageTypeFile, MessageTypeAudio:
		return true
	}
	return false
}
