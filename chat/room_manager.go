package chat

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/symplle/chat_backend/models"
	errs "github.com/symplle/chat_backend/pkg/errors"
)

// minimum member counts per room type, creator included
var minMembersByType = map[string]int{
	models.RoomTypeDirect:  2,
	models.RoomTypeGroup:   2,
	models.RoomTypeChannel: 2,
}

// RoomManager owns room rows: creation, archival, capacity.
type RoomManager struct {
	db  *gorm.DB
	dir IdentityDirectory
}

func NewRoomManager(db *gorm.DB, dir IdentityDirectory) *RoomManager {
	if dir == nil {
		dir = DefaultDirectory
	}
	return &RoomManager{db: db, dir: dir}
}

type CreateRoomInput struct {
	Name        string
	Description string
	Type        string
	IsPublic    bool
	MaxMembers  int
	MemberIDs   []string
}

// RoomSummary is a room plus the caller's read state, as returned by
// GetRoom and ListRooms.
type RoomSummary struct {
	Room        models.Room `json:"room"`
	LastReadAt  *time.Time  `json:"last_read_at"`
	UnreadCount int64       `json:"unread_count"`
}

// CreateRoom creates a room and its initial memberships in one transaction.
// The creator becomes admin, everyone else a plain member. A direct room
// takes exactly one other member and is pinned to two seats.
func (m *RoomManager) CreateRoom(ctx context.Context, creatorID string, in CreateRoomInput) (*models.Room, error) {
	if creatorID == "" {
		return nil, errs.InvalidArg("creator is required")
	}

	roomType := in.Type
	if roomType == "" {
		roomType = models.RoomTypeGroup
	}
	if !models.ValidRoomType(roomType) {
		return nil, errs.ErrInvalidRoomSpec
	}

	// Dedupe the initial member list and drop the creator from it.
	members := make([]string, 0, len(in.MemberIDs))
	seen := map[string]bool{creatorID: true}
	for _, id := range in.MemberIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		members = append(members, id)
	}

	maxMembers := in.MaxMembers
	switch roomType {
	case models.RoomTypeDirect:
		if len(members) != 1 {
			return nil, errs.New(errs.CodeInvalidRoomSpec, "a direct room takes exactly one other member")
		}
		maxMembers = 2
	default:
		if maxMembers == 0 {
			maxMembers = models.DefaultMaxMembers
		}
		if in.Name == "" {
			return nil, errs.New(errs.CodeInvalidRoomSpec, "a named room requires a name")
		}
	}
	if maxMembers < minMembersByType[roomType] {
		return nil, errs.New(errs.CodeInvalidRoomSpec, "max members is below the minimum for the room type")
	}
	if len(members)+1 > maxMembers {
		return nil, errs.New(errs.CodeInvalidRoomSpec, "initial member list exceeds max members")
	}

	for _, id := range append([]string{creatorID}, members...) {
		ok, err := m.dir.Exists(ctx, id)
		if err != nil {
			return nil, errs.Wrap(errs.CodeInternal, "identity lookup failed", err)
		}
		if !ok {
			return nil, errs.NotFound("unknown user: " + id)
		}
	}

	now := time.Now().UTC()
	room := models.Room{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Description: in.Description,
		Type:        roomType,
		IsPublic:    in.IsPublic,
		CreatedBy:   creatorID,
		MaxMembers:  maxMembers,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&room).Error; err != nil {
			return errs.Wrap(errs.CodeInternal, "failed to create room", err)
		}

		memberships := []models.Membership{{
			RoomID:   room.ID,
			UserID:   creatorID,
			Role:     models.RoleAdmin,
			IsActive: true,
			JoinedAt: now,

			NotificationsEnabled: true,
		}}
		for _, id := range members {
			memberships = append(memberships, models.Membership{
				RoomID:    room.ID,
				UserID:    id,
				Role:      models.RoleMember,
				InvitedBy: creatorID,
				IsActive:  true,
				JoinedAt:  now,

				NotificationsEnabled: true,
			})
		}
		if err := tx.Create(&memberships).Error; err != nil {
			return errs.Wrap(errs.CodeInternal, "failed to create memberships", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// ArchiveRoom marks a room archived. Archived rooms reject new messages and
// joins but stay readable. Admin only.
func (m *RoomManager) ArchiveRoom(ctx context.Context, actorID, roomID string) (*models.Room, error) {
	var room models.Room
	if err := m.db.WithContext(ctx).First(&room, "id = ?", roomID).Error; err != nil {
		return nil, roomLookupErr(err)
	}
	if room.Archived {
		return nil, errs.ErrRoomArchived
	}

	var member models.Membership
	err := m.db.WithContext(ctx).
		Where("room_id = ? AND user_id = ? AND is_active = ?", roomID, actorID, true).
		First(&member).Error
	if err != nil {
		return nil, membershipLookupErr(err)
	}
	if member.Role != models.RoleAdmin {
		return nil, errs.Forbidden("only an admin may archive a room")
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{"archived": true, "updated_at": now}
	if err := m.db.WithContext(ctx).Model(&models.Room{}).Where("id = ?", roomID).Updates(updates).Error; err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "failed to archive room", err)
	}
	room.Archived = true
	room.UpdatedAt = now
	return &room, nil
}

// CheckCapacity returns the number of free seats in a room.
func (m *RoomManager) CheckCapacity(ctx context.Context, roomID string) (int, error) {
	var room models.Room
	if err := m.db.WithContext(ctx).First(&room, "id = ?", roomID).Error; err != nil {
		return 0, roomLookupErr(err)
	}

	var active int64
	err := m.db.WithContext(ctx).Model(&models.Membership{}).
		Where("room_id = ? AND is_active = ?", roomID, true).
		Count(&active).Error
	if err != nil {
		return 0, errs.Wrap(errs.CodeInternal, "failed to count members", err)
	}

	remaining := room.MaxMembers - int(active)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// GetRoom returns a room with the caller's read state. Membership gated.
func (m *RoomManager) GetRoom(ctx context.Context, userID, roomID string) (*RoomSummary, error) {
	var member models.Membership
	err := m.db.WithContext(ctx).
		Where("room_id = ? AND user_id = ? AND is_active = ?", roomID, userID, true).
		First(&member).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errs.Forbidden("not a member of this room")
		}
		return nil, errs.Wrap(errs.CodeInternal, "failed to load membership", err)
	}

	var room models.Room
	if err := m.db.WithContext(ctx).First(&room, "id = ?", roomID).Error; err != nil {
		return nil, roomLookupErr(err)
	}

	unread, err := m.unreadCount(ctx, &member)
	if err != nil {
		return nil, err
	}
	return &RoomSummary{Room: room, LastReadAt: member.LastReadAt, UnreadCount: unread}, nil
}

// ListRooms returns the rooms the user is an active member of, each with the
// user's unread count.
func (m *RoomManager) ListRooms(ctx context.Context, userID string) ([]RoomSummary, error) {
	var memberships []models.Membership
	err := m.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Find(&memberships).Error
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "failed to load memberships", err)
	}

	summaries := make([]RoomSummary, 0, len(memberships))
	for i := range memberships {
		member := &memberships[i]

		var room models.Room
		if err := m.db.WithContext(ctx).First(&room, "id = ?", member.RoomID).Error; err != nil {
			return nil, roomLookupErr(err)
		}
		unread, err := m.unreadCount(ctx, member)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, RoomSummary{Room: room, LastReadAt: member.LastReadAt, UnreadCount: unread})
	}
	return summaries, nil
}

// UpdateRoom renames a room. Admins and moderators only.
func (m *RoomManager) UpdateRoom(ctx context.Context, actorID, roomID, name, description string) (*models.Room, error) {
	var room models.Room
	if err := m.db.WithContext(ctx).First(&room, "id = ?", roomID).Error; err != nil {
		return nil, roomLookupErr(err)
	}
	if room.Archived {
		return nil, errs.ErrRoomArchived
	}

	var member models.Membership
	err := m.db.WithContext(ctx).
		Where("room_id = ? AND user_id = ? AND is_active = ?", roomID, actorID, true).
		First(&member).Error
	if err != nil {
		return nil, membershipLookupErr(err)
	}
	if !models.CanModerate(member.Role) {
		return nil, errs.Forbidden("only an admin or moderator may update a room")
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{"updated_at": now}
	if name != "" {
		updates["name"] = name
		room.Name = name
	}
	if description != "" {
		updates["description"] = description
		room.Description = description
	}
	if err := m.db.WithContext(ctx).Model(&models.Room{}).Where("id = ?", roomID).Updates(updates).Error; err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "failed to update room", err)
	}
	room.UpdatedAt = now
	return &room, nil
}

// DeleteRoom removes a room and everything under it. The cascade is explicit
// and ordered: delivery statuses and reactions, then messages, then
// memberships, then the room itself, all in one transaction. Creator or
// admin only.
func (m *RoomManager) DeleteRoom(ctx context.Context, actorID, roomID string) error {
	var room models.Room
	if err := m.db.WithContext(ctx).First(&room, "id = ?", roomID).Error; err != nil {
		return roomLookupErr(err)
	}

	if room.CreatedBy != actorID {
		var member models.Membership
		err := m.db.WithContext(ctx).
			Where("room_id = ? AND user_id = ? AND is_active = ?", roomID, actorID, true).
			First(&member).Error
		if err != nil || member.Role != models.RoleAdmin {
			return errs.Forbidden("only the creator or an admin may delete a room")
		}
	}

	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var messageIDs []string
		if err := tx.Model(&models.Message{}).Where("room_id = ?", roomID).Pluck("id", &messageIDs).Error; err != nil {
			return errs.Wrap(errs.CodeInternal, "failed to list room messages", err)
		}

		if len(messageIDs) > 0 {
			if err := tx.Where("message_id IN ?", messageIDs).Delete(&models.DeliveryStatus{}).Error; err != nil {
				return errs.Wrap(errs.CodeInternal, "failed to delete delivery statuses", err)
			}
			if err := tx.Where("message_id IN ?", messageIDs).Delete(&models.Reaction{}).Error; err != nil {
				return errs.Wrap(errs.CodeInternal, "failed to delete reactions", err)
			}
		}
		if err := tx.Where("room_id = ?", roomID).Delete(&models.Message{}).Error; err != nil {
			return errs.Wrap(errs.CodeInternal, "failed to delete messages", err)
		}
		if err := tx.Where("room_id = ?", roomID).Delete(&models.Membership{}).Error; err != nil {
			return errs.Wrap(errs.CodeInternal, "failed to delete memberships", err)
		}
		if err := tx.Delete(&models.Room{}, "id = ?", roomID).Error; err != nil {
			return errs.Wrap(errs.CodeInternal, "failed to delete room", err)
		}
		return nil
	})
}

func (m *RoomManager) unreadCount(ctx context.Context, member *models.Membership) (int64, error) {
	var count int64
	err := m.db.WithContext(ctx).Model(&models.Message{}).
		Where("room_id = ? AND seq > ? AND sender_id != ?", member.RoomID, member.LastReadSeq, member.UserID).
		Count(&count).Error
	if err != nil {
		return 0, errs.Wrap(errs.CodeInternal, "failed to count unread messages", err)
	}
	return count, nil
}

func roomLookupErr(err error) error {
	if err == gorm.ErrRecordNotFound {
		return errs.ErrRoomNotFound
	}
	return errs.Wrap(errs.CodeInternal, "failed to load room", err)
}

func membershipLookupErr(err error) error {
	if err == gorm.ErrRecordNotFound {
		return errs.ErrMembershipNotFound
	}
	return errs.Wrap(errs.CodeInternal, "failed to load membership", err)
}
