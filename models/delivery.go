package models

import (
	"time"
)

// Delivery states, in rank order. Transitions only ever move to a higher
// rank; READ is terminal.
const (
	DeliveryStateSent      = "sent"
	DeliveryStateDelivered = "delivered"
	DeliveryStateRead      = "read"
)

// Delivery state ranks. Stored alongside the state so advancement can be a
// single conditional update.
const (
	DeliveryRankSent      = 1
	DeliveryRankDelivered = 2
	DeliveryRankRead      = 3
)

type DeliveryStatus struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	MessageID string    `gorm:"size:36;not null;uniqueIndex:idx_message_recipient" json:"message_id"`
	Message   Message   `gorm:"foreignKey:MessageID" json:"-"`
	UserID    string    `gorm:"size:36;not null;uniqueIndex:idx_message_recipient;index" json:"user_id"`
	State     string    `gorm:"size:20;not null;default:'sent'" json:"state"`
	StateRank int       `gorm:"not null;default:1" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt doubles as the last-transition timestamp.
	UpdatedAt time.Time `json:"updated_at"`
}

// DeliveryRank maps a state to its rank. Unknown states rank 0.
func DeliveryRank(state string) int {
	switch state {
	case DeliveryStateSent:
		return DeliveryRankSent
	case DeliveryStateDelivered:
		return DeliveryRankDelivered
	case DeliveryStateRead:
		return DeliveryRankRead
	}
	return 0
}
