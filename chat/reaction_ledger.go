package chat

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/symplle/chat_backend/models"
	errs "github.com/symplle/chat_backend/pkg/errors"
)

// ReactionLedger owns the (message, user, emoji) reaction rows. The
// aggregate view is always derived from the ledger, never cached, so the
// counts cannot drift.
type ReactionLedger struct {
	db *gorm.DB
}

func NewReactionLedger(db *gorm.DB) *ReactionLedger {
	return &ReactionLedger{db: db}
}

// ReactionAggregate maps each emoji to its count and its reactors.
type ReactionAggregate struct {
	Counts   map[string]int64    `json:"counts"`
	Reactors map[string][]string `json:"reactors"`
}

// AddReaction records a reaction. Idempotent: adding the same (message,
// user, emoji) twice keeps a single row. Tombstones reject reactions.
func (l *ReactionLedger) AddReaction(ctx context.Context, userID, messageID, emoji string) error {
	if emoji == "" {
		return errs.InvalidArg("emoji is required")
	}

	var msg models.Message
	if err := l.db.WithContext(ctx).First(&msg, "id = ?", messageID).Error; err != nil {
		return messageLookupErr(err)
	}
	if msg.IsDeleted {
		return errs.ErrMessageDeleted
	}

	reaction := models.Reaction{
		MessageID: messageID,
		UserID:    userID,
		Emoji:     emoji,
		CreatedAt: time.Now().UTC(),
	}
	// The unique index on the triple turns a duplicate into a no-op.
	err := l.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&reaction).Error
	if err != nil {
		return errs.Wrap(errs.CodeInternal, "failed to add reaction", err)
	}
	return nil
}

// RemoveReaction deletes the user's reaction. A missing row is a no-op.
func (l *ReactionLedger) RemoveReaction(ctx context.Context, userID, messageID, emoji string) error {
	var msg models.Message
	if err := l.db.WithContext(ctx).First(&msg, "id = ?", messageID).Error; err != nil {
		return messageLookupErr(err)
	}

	err := l.db.WithContext(ctx).
		Where("message_id = ? AND user_id = ? AND emoji = ?", messageID, userID, emoji).
		Delete(&models.Reaction{}).Error
	if err != nil {
		return errs.Wrap(errs.CodeInternal, "failed to remove reaction", err)
	}
	return nil
}

// Aggregate builds the emoji -> count and emoji -> reactors view for one
// message. Reactions on tombstones remain readable.
func (l *ReactionLedger) Aggregate(ctx context.Context, messageID string) (*ReactionAggregate, error) {
	var msg models.Message
	if err := l.db.WithContext(ctx).First(&msg, "id = ?", messageID).Error; err != nil {
		return nil, messageLookupErr(err)
	}

	var reactions []models.Reaction
	err := l.db.WithContext(ctx).
		Where("message_id = ?", messageID).
		Order("created_at ASC, id ASC").
		Find(&reactions).Error
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "failed to load reactions", err)
	}

	agg := &ReactionAggregate{
		Counts:   make(map[string]int64),
		Reactors: make(map[string][]string),
	}
	for _, r := range reactions {
		agg.Counts[r.Emoji]++
		agg.Reactors[r.Emoji] = append(agg.Reactors[r.Emoji], r.UserID)
	}
	return agg, nil
}
