package models

import (
	"time"
)

// Membership roles
const (
	RoleAdmin     = "admin"
	RoleModerator = "moderator"
	RoleMember    = "member"
)

type Membership struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	RoomID    string `gorm:"size:36;not null;uniqueIndex:idx_room_user" json:"room_id"`
	Room      Room   `gorm:"foreignKey:RoomID" json:"-"`
	UserID    string `gorm:"size:36;not null;uniqueIndex:idx_room_user;index" json:"user_id"`
	Role      string `gorm:"size:20;not null;default:'member'" json:"role"`
	InvitedBy string `gorm:"size:36" json:"invited_by,omitempty"`
	IsActive  bool   `gorm:"not null;default:true" json:"is_active"`
	IsMuted   bool   `gorm:"not null;default:false" json:"is_muted"`

	NotificationsEnabled bool `gorm:"not null;default:true" json:"notifications_enabled"`

	// LastReadSeq is the unread watermark: messages with a room sequence
	// past it count as unread for this member. It never regresses.
	LastReadSeq int64      `gorm:"not null;default:0" json:"-"`
	LastReadAt  *time.Time `json:"last_read_at,omitempty"`

	JoinedAt time.Time  `json:"joined_at"`
	LeftAt   *time.Time `json:"left_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidRole reports whether r is one of the known membership roles.
func ValidRole(r string) bool {
	switch r {
	case RoleAdmin, RoleModerator, RoleMember:
		return true
	}
	return false
}

// CanModerate reports whether the role may delete or pin other members'
// messages.
func CanModerate(role string) bool {
	return role == RoleAdmin || role == RoleModerator
}
