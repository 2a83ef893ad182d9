package models

import (
	"time"
)

// Room types
const (
	RoomTypeDirect  = "direct"
	RoomTypeGroup   = "group"
	RoomTypeChannel = "channel"
)

// DefaultMaxMembers is applied to group and channel rooms created without an
// explicit member limit.
const DefaultMaxMembers = 100

type Room struct {
	ID          string `gorm:"primaryKey;size:36" json:"id"`
	Name        string `gorm:"size:255" json:"name"`
	Description string `gorm:"type:text" json:"description,omitempty"`
	Type        string `gorm:"size:20;not null;default:'group'" json:"type"`
	IsPublic    bool   `gorm:"not null;default:false" json:"is_public"`
	CreatedBy   string `gorm:"size:36;not null" json:"created_by"`
	MaxMembers  int    `gorm:"not null;default:100" json:"max_members"`
	Archived    bool   `gorm:"not null;default:false" json:"archived"`
	// LastSeq is the room-local message counter. It only moves forward and
	// every message in the room holds a distinct value of it.
	LastSeq   int64     `gorm:"not null;default:0" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidRoomType reports whether t is one of the known room types.
func ValidRoomType(t string) bool {
	switch t {
	case RoomTypeDirect, RoomTypeGroup, RoomTypeChannel:
		return true
	}
	return false
}
