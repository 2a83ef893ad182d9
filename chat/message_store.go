package chat

import (
	"context"
	"encoding/base64"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/symplle/chat_backend/models"
	errs "github.com/symplle/chat_backend/pkg/errors"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// MessageStore owns the per-room ordered message log. Appends, edits,
// soft-deletes and cursor pagination live here; the delivery fan-out is
// materialized inside the append transaction.
type MessageStore struct {
	db *gorm.DB
}

func NewMessageStore(db *gorm.DB) *MessageStore {
	return &MessageStore{db: db}
}

type AppendInput struct {
	Content   string
	Type      string
	MediaURL  string
	MediaName string
	MediaSize int64
	ReplyToID string
}

// Append writes a message to the room log and creates one SENT delivery row
// per other active member, all in one transaction. The room row's counter
// update takes a row lock, so appends to the same room serialize there and
// every message gets a distinct, strictly increasing sequence number.
func (s *MessageStore) Append(ctx context.Context, senderID, roomID string, in AppendInput) (*models.Message, error) {
	msgType := in.Type
	if msgType == "" {
		msgType = models.MessageTypeText
	}
	if !models.ValidMessageType(msgType) {
		return nil, errs.InvalidArg("unknown message type: " + msgType)
	}
	if msgType == models.MessageTypeText && in.Content == "" {
		return nil, errs.InvalidArg("text messages require content")
	}
	if models.IsMediaType(msgType) && in.MediaURL == "" {
		return nil, errs.InvalidArg("media messages require a media reference")
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "failed to generate message id", err)
	}

	var message models.Message
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var room models.Room
		if err := tx.First(&room, "id = ?", roomID).Error; err != nil {
			return roomLookupErr(err)
		}
		if room.Archived {
			return errs.ErrRoomArchived
		}

		var sender models.Membership
		err := tx.Where("room_id = ? AND user_id = ? AND is_active = ?", roomID, senderID, true).
			First(&sender).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return errs.Forbidden("sender is not a member of this room")
			}
			return errs.Wrap(errs.CodeInternal, "failed to load sender membership", err)
		}
		if sender.IsMuted {
			return errs.ErrSenderMuted
		}

		var replyTo *string
		if in.ReplyToID != "" {
			var target models.Message
			err := tx.First(&target, "id = ?", in.ReplyToID).Error
			if err != nil && err != gorm.ErrRecordNotFound {
				return errs.Wrap(errs.CodeInternal, "failed to load reply target", err)
			}
			// Validated once here; messages never move between rooms.
			if err == gorm.ErrRecordNotFound || target.RoomID != roomID {
				return errs.ErrInvalidReplyTarget
			}
			replyTo = &target.ID
		}

		// Claim the next room sequence. The UPDATE holds the room row lock
		// until commit, which is the only serialization appends need.
		err = tx.Model(&models.Room{}).Where("id = ?", roomID).
			UpdateColumn("last_seq", gorm.Expr("last_seq + 1")).Error
		if err != nil {
			return errs.Wrap(errs.CodeInternal, "failed to advance room sequence", err)
		}
		var claimed models.Room
		if err := tx.Select("last_seq").Where("id = ?", roomID).Take(&claimed).Error; err != nil {
			return errs.Wrap(errs.CodeInternal, "failed to read room sequence", err)
		}

		now := time.Now().UTC()
		message = models.Message{
			ID:        id.String(),
			RoomID:    roomID,
			Seq:       claimed.LastSeq,
			SenderID:  senderID,
			Content:   in.Content,
			Type:      msgType,
			MediaURL:  in.MediaURL,
			MediaName: in.MediaName,
			MediaSize: in.MediaSize,
			ReplyToID: replyTo,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.Create(&message).Error; err != nil {
			return errs.Wrap(errs.CodeInternal, "failed to create message", err)
		}

		// Fan out: one SENT row per other active member, frozen at append
		// time. Members joining later never get rows for this message.
		var recipients []models.Membership
		err = tx.Where("room_id = ? AND is_active = ? AND user_id != ?", roomID, true, senderID).
			Find(&recipients).Error
		if err != nil {
			return errs.Wrap(errs.CodeInternal, "failed to load recipients", err)
		}
		if len(recipients) > 0 {
			statuses := make([]models.DeliveryStatus, 0, len(recipients))
			for _, rec := range recipients {
				statuses = append(statuses, models.DeliveryStatus{
					MessageID: message.ID,
					UserID:    rec.UserID,
					State:     models.DeliveryStateSent,
					StateRank: models.DeliveryRankSent,
					CreatedAt: now,
					UpdatedAt: now,
				})
			}
			if err := tx.Create(&statuses).Error; err != nil {
				return errs.Wrap(errs.CodeInternal, "failed to create delivery statuses", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &message, nil
}

// Edit replaces a message's content. Only the original sender may edit, and
// tombstones are immutable.
func (s *MessageStore) Edit(ctx context.Context, actorID, messageID, newContent string) (*models.Message, error) {
	if newContent == "" {
		return nil, errs.InvalidArg("new content is required")
	}

	var message models.Message
	if err := s.db.WithContext(ctx).First(&message, "id = ?", messageID).Error; err != nil {
		return nil, messageLookupErr(err)
	}
	if message.IsDeleted {
		return nil, errs.ErrMessageDeleted
	}
	if message.SenderID != actorID {
		return nil, errs.Forbidden("only the sender may edit a message")
	}

	now := time.Now().UTC()
	err := s.db.WithContext(ctx).Model(&models.Message{}).Where("id = ?", messageID).
		Updates(map[string]interface{}{
			"content":    newContent,
			"is_edited":  true,
			"updated_at": now,
		}).Error
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "failed to edit message", err)
	}
	message.Content = newContent
	message.IsEdited = true
	message.UpdatedAt = now
	return &message, nil
}

// SoftDelete turns a message into a tombstone: content and media cleared,
// identifier, sender, timestamps and ordering position preserved. Delivery
// rows are untouched. The sender, an admin or a moderator may delete.
func (s *MessageStore) SoftDelete(ctx context.Context, actorID, messageID string) (*models.Message, error) {
	var message models.Message
	if err := s.db.WithContext(ctx).First(&message, "id = ?", messageID).Error; err != nil {
		return nil, messageLookupErr(err)
	}
	if message.IsDeleted {
		return nil, errs.ErrMessageDeleted
	}

	if message.SenderID != actorID {
		var member models.Membership
		err := s.db.WithContext(ctx).
			Where("room_id = ? AND user_id = ? AND is_active = ?", message.RoomID, actorID, true).
			First(&member).Error
		if err != nil || !models.CanModerate(member.Role) {
			return nil, errs.Forbidden("only the sender, an admin or a moderator may delete a message")
		}
	}

	now := time.Now().UTC()
	err := s.db.WithContext(ctx).Model(&models.Message{}).Where("id = ?", messageID).
		Updates(map[string]interface{}{
			"is_deleted": true,
			"content":    "",
			"media_url":  "",
			"media_name": "",
			"media_size": 0,
			"deleted_at": now,
			"updated_at": now,
		}).Error
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "failed to delete message", err)
	}
	message.IsDeleted = true
	message.Content = ""
	message.MediaURL = ""
	message.MediaName = ""
	message.MediaSize = 0
	message.DeletedAt = &now
	message.UpdatedAt = now
	return &message, nil
}

// Pin toggles the pinned flag. Admins and moderators only.
func (s *MessageStore) Pin(ctx context.Context, actorID, messageID string, pinned bool) (*models.Message, error) {
	var message models.Message
	if err := s.db.WithContext(ctx).First(&message, "id = ?", messageID).Error; err != nil {
		return nil, messageLookupErr(err)
	}
	if message.IsDeleted {
		return nil, errs.ErrMessageDeleted
	}

	var member models.Membership
	err := s.db.WithContext(ctx).
		Where("room_id = ? AND user_id = ? AND is_active = ?", message.RoomID, actorID, true).
		First(&member).Error
	if err != nil || !models.CanModerate(member.Role) {
		return nil, errs.Forbidden("only an admin or moderator may pin a message")
	}

	now := time.Now().UTC()
	err = s.db.WithContext(ctx).Model(&models.Message{}).Where("id = ?", messageID).
		Updates(map[string]interface{}{"is_pinned": pinned, "updated_at": now}).Error
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "failed to pin message", err)
	}
	message.IsPinned = pinned
	message.UpdatedAt = now
	return &message, nil
}

// Get fetches a message by id. Tombstones are returned like any other
// message.
func (s *MessageStore) Get(ctx context.Context, messageID string) (*models.Message, error) {
	var message models.Message
	if err := s.db.WithContext(ctx).First(&message, "id = ?", messageID).Error; err != nil {
		return nil, messageLookupErr(err)
	}
	return &message, nil
}

type ListOptions struct {
	// Cursor resumes a previous listing; empty starts from the edge.
	Cursor string
	Limit  int
	// Oldest flips the direction to oldest-first.
	Oldest bool
}

// List pages through a room's log in its total order, newest-first by
// default. The cursor is opaque to callers and derived from the room
// sequence, so a resumed listing never skips or repeats under concurrent
// appends.
func (s *MessageStore) List(ctx context.Context, roomID string, opts ListOptions) ([]models.Message, string, bool, error) {
	var room models.Room
	if err := s.db.WithContext(ctx).First(&room, "id = ?", roomID).Error; err != nil {
		return nil, "", false, roomLookupErr(err)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	query := s.db.WithContext(ctx).Where("room_id = ?", roomID)
	if opts.Cursor != "" {
		seq, err := decodeCursor(opts.Cursor)
		if err != nil {
			return nil, "", false, err
		}
		if opts.Oldest {
			query = query.Where("seq > ?", seq)
		} else {
			query = query.Where("seq < ?", seq)
		}
	}
	if opts.Oldest {
		query = query.Order("seq ASC")
	} else {
		query = query.Order("seq DESC")
	}

	// Fetch one extra row to know whether another page exists.
	var messages []models.Message
	if err := query.Limit(limit + 1).Find(&messages).Error; err != nil {
		return nil, "", false, errs.Wrap(errs.CodeInternal, "failed to list messages", err)
	}

	hasMore := len(messages) > limit
	if hasMore {
		messages = messages[:limit]
	}

	nextCursor := ""
	if hasMore && len(messages) > 0 {
		nextCursor = encodeCursor(messages[len(messages)-1].Seq)
	}
	return messages, nextCursor, hasMore, nil
}

func encodeCursor(seq int64) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatInt(seq, 10)))
}

func decodeCursor(cursor string) (int64, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, errs.InvalidArg("malformed cursor")
	}
	seq, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, errs.InvalidArg("malformed cursor")
	}
	return seq, nil
}

func messageLookupErr(err error) error {
	if err == gorm.ErrRecordNotFound {
		return errs.ErrMessageNotFound
	}
	return errs.Wrap(errs.CodeInternal, "failed to load message", err)
}
