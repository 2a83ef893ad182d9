package chat

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/symplle/chat_backend/models"
	errs "github.com/symplle/chat_backend/pkg/errors"
)

// MembershipRegistry owns the (room, user) membership rows: joins, leaves,
// roles and the last-read watermark.
type MembershipRegistry struct {
	db  *gorm.DB
	dir IdentityDirectory
}

func NewMembershipRegistry(db *gorm.DB, dir IdentityDirectory) *MembershipRegistry {
	if dir == nil {
		dir = DefaultDirectory
	}
	return &MembershipRegistry{db: db, dir: dir}
}

// Join admits a user to a room as a plain member. Serialized per room so
// concurrent joins cannot overshoot the capacity. A user who left earlier
// gets their old row reactivated with a fresh join time.
func (r *MembershipRegistry) Join(ctx context.Context, roomID, userID, invitedBy string) (*models.Membership, error) {
	if userID == "" {
		return nil, errs.InvalidArg("user is required")
	}
	ok, err := r.dir.Exists(ctx, userID)
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "identity lookup failed", err)
	}
	if !ok {
		return nil, errs.NotFound("unknown user: " + userID)
	}

	unlock := lockRoom(roomID)
	defer unlock()

	var room models.Room
	if err := r.db.WithContext(ctx).First(&room, "id = ?", roomID).Error; err != nil {
		return nil, roomLookupErr(err)
	}
	if room.Archived {
		return nil, errs.ErrRoomArchived
	}

	var existing models.Membership
	err = r.db.WithContext(ctx).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		First(&existing).Error
	if err == nil && existing.IsActive {
		return nil, errs.ErrAlreadyMember
	}
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, errs.Wrap(errs.CodeInternal, "failed to load membership", err)
	}
	rejoining := err == nil

	var active int64
	countErr := r.db.WithContext(ctx).Model(&models.Membership{}).
		Where("room_id = ? AND is_active = ?", roomID, true).
		Count(&active).Error
	if countErr != nil {
		return nil, errs.Wrap(errs.CodeInternal, "failed to count members", countErr)
	}
	if int(active) >= room.MaxMembers {
		return nil, errs.ErrCapacityExceeded
	}

	now := time.Now().UTC()
	if rejoining {
		updates := map[string]interface{}{
			"is_active":     true,
			"role":          models.RoleMember,
			"invited_by":    invitedBy,
			"joined_at":     now,
			"left_at":       nil,
			"is_muted":      false,
			"last_read_seq": room.LastSeq,
			"last_read_at":  now,
			"updated_at":    now,
		}
		if err := r.db.WithContext(ctx).Model(&existing).Updates(updates).Error; err != nil {
			return nil, errs.Wrap(errs.CodeInternal, "failed to reactivate membership", err)
		}
		if err := r.db.WithContext(ctx).First(&existing, existing.ID).Error; err != nil {
			return nil, errs.Wrap(errs.CodeInternal, "failed to reload membership", err)
		}
		return &existing, nil
	}

	member := models.Membership{
		RoomID:    roomID,
		UserID:    userID,
		Role:      models.RoleMember,
		InvitedBy: invitedBy,
		IsActive:  true,
		JoinedAt:  now,

		NotificationsEnabled: true,

		// History before the join is not unread for the newcomer.
		LastReadSeq: room.LastSeq,
		LastReadAt:  &now,
	}
	if err := r.db.WithContext(ctx).Create(&member).Error; err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "failed to create membership", err)
	}
	return &member, nil
}

// Leave marks the membership inactive. If the departing member is the only
// admin, the earliest-joined remaining member is promoted so the room never
// goes adminless. The sole remaining member cannot leave; archiving is the
// way to retire a room.
func (r *MembershipRegistry) Leave(ctx context.Context, roomID, userID string) error {
	unlock := lockRoom(roomID)
	defer unlock()

	var member models.Membership
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND user_id = ? AND is_active = ?", roomID, userID, true).
		First(&member).Error
	if err != nil {
		return membershipLookupErr(err)
	}

	var others []models.Membership
	err = r.db.WithContext(ctx).
		Where("room_id = ? AND is_active = ? AND user_id != ?", roomID, true, userID).
		Order("joined_at ASC, id ASC").
		Find(&others).Error
	if err != nil {
		return errs.Wrap(errs.CodeInternal, "failed to load members", err)
	}
	if len(others) == 0 {
		return errs.ErrLastAdminCannotLeaveAlone
	}

	// Promote only when no other admin would remain.
	var promote *models.Membership
	if member.Role == models.RoleAdmin {
		hasAdmin := false
		for i := range others {
			if others[i].Role == models.RoleAdmin {
				hasAdmin = true
				break
			}
		}
		if !hasAdmin {
			promote = &others[0]
		}
	}

	now := time.Now().UTC()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"is_active":  false,
			"left_at":    now,
			"updated_at": now,
		}
		if err := tx.Model(&models.Membership{}).Where("id = ?", member.ID).Updates(updates).Error; err != nil {
			return errs.Wrap(errs.CodeInternal, "failed to deactivate membership", err)
		}
		if promote != nil {
			err := tx.Model(&models.Membership{}).Where("id = ?", promote.ID).
				Updates(map[string]interface{}{"role": models.RoleAdmin, "updated_at": now}).Error
			if err != nil {
				return errs.Wrap(errs.CodeInternal, "failed to promote member", err)
			}
		}
		return nil
	})
}

// SetRole changes a member's role. Admin only. Demoting the last admin is
// refused so the room keeps at least one.
func (r *MembershipRegistry) SetRole(ctx context.Context, actorID, roomID, targetID, role string) (*models.Membership, error) {
	if !models.ValidRole(role) {
		return nil, errs.InvalidArg("unknown role: " + role)
	}

	unlock := lockRoom(roomID)
	defer unlock()

	var actor models.Membership
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND user_id = ? AND is_active = ?", roomID, actorID, true).
		First(&actor).Error
	if err != nil {
		return nil, membershipLookupErr(err)
	}
	if actor.Role != models.RoleAdmin {
		return nil, errs.Forbidden("only an admin may change roles")
	}

	var target models.Membership
	err = r.db.WithContext(ctx).
		Where("room_id = ? AND user_id = ? AND is_active = ?", roomID, targetID, true).
		First(&target).Error
	if err != nil {
		return nil, membershipLookupErr(err)
	}

	if target.Role == models.RoleAdmin && role != models.RoleAdmin {
		var admins int64
		err := r.db.WithContext(ctx).Model(&models.Membership{}).
			Where("room_id = ? AND is_active = ? AND role = ?", roomID, true, models.RoleAdmin).
			Count(&admins).Error
		if err != nil {
			return nil, errs.Wrap(errs.CodeInternal, "failed to count admins", err)
		}
		if admins <= 1 {
			return nil, errs.Forbidden("cannot demote the only admin")
		}
	}

	now := time.Now().UTC()
	err = r.db.WithContext(ctx).Model(&models.Membership{}).Where("id = ?", target.ID).
		Updates(map[string]interface{}{"role": role, "updated_at": now}).Error
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "failed to update role", err)
	}
	target.Role = role
	target.UpdatedAt = now
	return &target, nil
}

// UpdateLastRead moves the member's read watermark to the given message.
// Monotonic: a watermark behind the stored one is a no-op, never an error.
func (r *MembershipRegistry) UpdateLastRead(ctx context.Context, userID, roomID, messageID string) error {
	var member models.Membership
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND user_id = ? AND is_active = ?", roomID, userID, true).
		First(&member).Error
	if err != nil {
		return membershipLookupErr(err)
	}

	var msg models.Message
	if err := r.db.WithContext(ctx).First(&msg, "id = ?", messageID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return errs.ErrMessageNotFound
		}
		return errs.Wrap(errs.CodeInternal, "failed to load message", err)
	}
	if msg.RoomID != roomID {
		return errs.InvalidArg("message does not belong to this room")
	}

	// The guard clause makes the update atomic and regression-proof even
	// under concurrent readers on multiple devices.
	now := time.Now().UTC()
	err = r.db.WithContext(ctx).Model(&models.Membership{}).
		Where("id = ? AND last_read_seq < ?", member.ID, msg.Seq).
		Updates(map[string]interface{}{
			"last_read_seq": msg.Seq,
			"last_read_at":  msg.CreatedAt,
			"updated_at":    now,
		}).Error
	if err != nil {
		return errs.Wrap(errs.CodeInternal, "failed to update last read", err)
	}
	return nil
}

// UnreadCount counts messages past the member's watermark, excluding the
// member's own.
func (r *MembershipRegistry) UnreadCount(ctx context.Context, userID, roomID string) (int64, error) {
	var member models.Membership
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND user_id = ? AND is_active = ?", roomID, userID, true).
		First(&member).Error
	if err != nil {
		return 0, membershipLookupErr(err)
	}

	var count int64
	err = r.db.WithContext(ctx).Model(&models.Message{}).
		Where("room_id = ? AND seq > ? AND sender_id != ?", roomID, member.LastReadSeq, userID).
		Count(&count).Error
	if err != nil {
		return 0, errs.Wrap(errs.CodeInternal, "failed to count unread messages", err)
	}
	return count, nil
}

// ListMembers returns the active memberships of a room in join order.
func (r *MembershipRegistry) ListMembers(ctx context.Context, roomID string) ([]models.Membership, error) {
	var room models.Room
	if err := r.db.WithContext(ctx).First(&room, "id = ?", roomID).Error; err != nil {
		return nil, roomLookupErr(err)
	}

	var members []models.Membership
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND is_active = ?", roomID, true).
		Order("joined_at ASC, id ASC").
		Find(&members).Error
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "failed to list members", err)
	}
	return members, nil
}

// GetMembership returns the active membership for (room, user).
func (r *MembershipRegistry) GetMembership(ctx context.Context, roomID, userID string) (*models.Membership, error) {
	var member models.Membership
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND user_id = ? AND is_active = ?", roomID, userID, true).
		First(&member).Error
	if err != nil {
		return nil, membershipLookupErr(err)
	}
	return &member, nil
}

// SetMuted silences or unsilences a member for writing. Admins and
// moderators only; moderators cannot mute admins.
func (r *MembershipRegistry) SetMuted(ctx context.Context, actorID, roomID, targetID string, muted bool) error {
	var actor models.Membership
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND user_id = ? AND is_active = ?", roomID, actorID, true).
		First(&actor).Error
	if err != nil {
		return membershipLookupErr(err)
	}
	if !models.CanModerate(actor.Role) {
		return errs.Forbidden("only an admin or moderator may mute members")
	}

	var target models.Membership
	err = r.db.WithContext(ctx).
		Where("room_id = ? AND user_id = ? AND is_active = ?", roomID, targetID, true).
		First(&target).Error
	if err != nil {
		return membershipLookupErr(err)
	}
	if target.Role == models.RoleAdmin && actor.Role != models.RoleAdmin {
		return errs.Forbidden("a moderator cannot mute an admin")
	}

	err = r.db.WithContext(ctx).Model(&models.Membership{}).Where("id = ?", target.ID).
		Updates(map[string]interface{}{"is_muted": muted, "updated_at": time.Now().UTC()}).Error
	if err != nil {
		return errs.Wrap(errs.CodeInternal, "failed to update mute state", err)
	}
	return nil
}

// SetNotifications toggles the member's own notification flag.
func (r *MembershipRegistry) SetNotifications(ctx context.Context, userID, roomID string, enabled bool) error {
	var member models.Membership
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND user_id = ? AND is_active = ?", roomID, userID, true).
		First(&member).Error
	if err != nil {
		return membershipLookupErr(err)
	}

	err = r.db.WithContext(ctx).Model(&models.Membership{}).Where("id = ?", member.ID).
		Updates(map[string]interface{}{"notifications_enabled": enabled, "updated_at": time.Now().UTC()}).Error
	if err != nil {
		return errs.Wrap(errs.CodeInternal, "failed to update notification flag", err)
	}
	return nil
}
