package chat

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/symplle/chat_backend/models"
)

// newTestDB opens a throwaway in-memory database with the full schema.
// Pinned to a single connection so every query sees the same memory store.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Room{},
		&models.Membership{},
		&models.Message{},
		&models.DeliveryStatus{},
		&models.Reaction{},
	))
	return db
}

// newGroupRoom creates a group room with the given creator and members.
func newGroupRoom(t *testing.T, db *gorm.DB, maxMembers int, creator string, members ...string) *models.Room {
	t.Helper()

	room, err := NewRoomManager(db, nil).CreateRoom(context.Background(), creator, CreateRoomInput{
		Name:       "test room",
		Type:       models.RoomTypeGroup,
		MaxMembers: maxMembers,
		MemberIDs:  members,
	})
	require.NoError(t, err)
	return room
}

// appendText appends a plain text message from sender.
func appendText(t *testing.T, db *gorm.DB, sender, roomID, content string) *models.Message {
	t.Helper()

	msg, err := NewMessageStore(db).Append(context.Background(), sender, roomID, AppendInput{Content: content})
	require.NoError(t, err)
	return msg
}
