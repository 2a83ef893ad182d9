package chat

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/symplle/chat_backend/models"
	errs "github.com/symplle/chat_backend/pkg/errors"
)

// DeliveryTracker owns the per-(message, recipient) state machine:
// SENT -> DELIVERED -> READ, never backwards. Rows are created by the
// message append transaction; only recipients advance them afterwards.
type DeliveryTracker struct {
	db *gorm.DB
}

func NewDeliveryTracker(db *gorm.DB) *DeliveryTracker {
	return &DeliveryTracker{db: db}
}

// ReadState is the sender-side "seen by" aggregate for one message.
type ReadState struct {
	Total     int64   `json:"total"`
	Delivered int64   `json:"delivered"`
	Read      int64   `json:"read"`
	Fraction  float64 `json:"fraction"`
}

// MarkDelivered advances the recipient's row to DELIVERED. Idempotent; a row
// already at DELIVERED or READ is left alone.
func (t *DeliveryTracker) MarkDelivered(ctx context.Context, recipientID, messageID string) (*models.DeliveryStatus, error) {
	return t.advance(ctx, recipientID, messageID, models.DeliveryStateDelivered)
}

// MarkRead advances the recipient's row to READ, the terminal state.
// Idempotent.
func (t *DeliveryTracker) MarkRead(ctx context.Context, recipientID, messageID string) (*models.DeliveryStatus, error) {
	return t.advance(ctx, recipientID, messageID, models.DeliveryStateRead)
}

// advance applies a transition as a single conditional update guarded by the
// state rank. Two devices of the same recipient racing each other resolve
// highest-rank-wins at the database, not last-write-wins.
func (t *DeliveryTracker) advance(ctx context.Context, recipientID, messageID, state string) (*models.DeliveryStatus, error) {
	rank := models.DeliveryRank(state)

	res := t.db.WithContext(ctx).Model(&models.DeliveryStatus{}).
		Where("message_id = ? AND user_id = ? AND state_rank < ?", messageID, recipientID, rank).
		Updates(map[string]interface{}{
			"state":      state,
			"state_rank": rank,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return nil, errs.Wrap(errs.CodeInternal, "failed to advance delivery state", res.Error)
	}

	var status models.DeliveryStatus
	err := t.db.WithContext(ctx).
		Where("message_id = ? AND user_id = ?", messageID, recipientID).
		First(&status).Error
	if err == gorm.ErrRecordNotFound {
		// No row was ever materialized: either the message is unknown or
		// the user was not a member at send time.
		var msg models.Message
		if err := t.db.WithContext(ctx).First(&msg, "id = ?", messageID).Error; err != nil {
			return nil, messageLookupErr(err)
		}
		return nil, errs.ErrNotARecipient
	}
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "failed to load delivery status", err)
	}
	return &status, nil
}

// AggregateRoomReadState reports how far a message has spread among its
// recipients, for the sender's receipt UI.
func (t *DeliveryTracker) AggregateRoomReadState(ctx context.Context, messageID string) (*ReadState, error) {
	var msg models.Message
	if err := t.db.WithContext(ctx).First(&msg, "id = ?", messageID).Error; err != nil {
		return nil, messageLookupErr(err)
	}

	var state ReadState
	base := t.db.WithContext(ctx).Model(&models.DeliveryStatus{}).Where("message_id = ?", messageID)
	if err := base.Count(&state.Total).Error; err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "failed to count delivery statuses", err)
	}

	err := t.db.WithContext(ctx).Model(&models.DeliveryStatus{}).
		Where("message_id = ? AND state_rank >= ?", messageID, models.DeliveryRankDelivered).
		Count(&state.Delivered).Error
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "failed to count delivered statuses", err)
	}

	err = t.db.WithContext(ctx).Model(&models.DeliveryStatus{}).
		Where("message_id = ? AND state_rank >= ?", messageID, models.DeliveryRankRead).
		Count(&state.Read).Error
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "failed to count read statuses", err)
	}

	if state.Total > 0 {
		state.Fraction = float64(state.Read) / float64(state.Total)
	}
	return &state, nil
}

// ListStatuses returns every recipient's row for a message.
func (t *DeliveryTracker) ListStatuses(ctx context.Context, messageID string) ([]models.DeliveryStatus, error) {
	var msg models.Message
	if err := t.db.WithContext(ctx).First(&msg, "id = ?", messageID).Error; err != nil {
		return nil, messageLookupErr(err)
	}

	var statuses []models.DeliveryStatus
	err := t.db.WithContext(ctx).
		Where("message_id = ?", messageID).
		Order("user_id ASC").
		Find(&statuses).Error
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "failed to list delivery statuses", err)
	}
	return statuses, nil
}
