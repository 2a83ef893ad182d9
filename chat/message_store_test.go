package chat

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/symplle/chat_backend/models"
	errs "github.com/symplle/chat_backend/pkg/errors"
)

func TestAppendAssignsSequence(t *testing.T) {
	db := newTestDB(t)
	room := newGroupRoom(t, db, 10, "alice", "bob")

	m1 := appendText(t, db, "alice", room.ID, "one")
	m2 := appendText(t, db, "bob", room.ID, "two")
	m3 := appendText(t, db, "alice", room.ID, "three")

	assert.Equal(t, int64(1), m1.Seq)
	assert.Equal(t, int64(2), m2.Seq)
	assert.Equal(t, int64(3), m3.Seq)

	// Sequences are per room, not global.
	other := newGroupRoom(t, db, 10, "alice", "bob")
	m := appendText(t, db, "alice", other.ID, "fresh start")
	assert.Equal(t, int64(1), m.Seq)
}

func TestAppendFansOutToRecipients(t *testing.T) {
	db := newTestDB(t)
	room := newGroupRoom(t, db, 10, "alice", "bob", "carol")

	msg := appendText(t, db, "alice", room.ID, "hello")

	var statuses []models.DeliveryStatus
	require.NoError(t, db.Where("message_id = ?", msg.ID).Order("user_id ASC").Find(&statuses).Error)
	require.Len(t, statuses, 2)
	assert.Equal(t, "bob", statuses[0].UserID)
	assert.Equal(t, "carol", statuses[1].UserID)
	for _, st := range statuses {
		assert.Equal(t, models.DeliveryStateSent, st.State)
	}
}

func TestAppendValidation(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	store := NewMessageStore(db)
	room := newGroupRoom(t, db, 10, "alice", "bob")

	_, err := store.Append(ctx, "mallory", room.ID, AppendInput{Content: "hi"})
	assert.Equal(t, errs.CodeForbidden, errs.CodeOf(err))

	_, err = store.Append(ctx, "alice", room.ID, AppendInput{})
	assert.Equal(t, errs.CodeInvalidArgument, errs.CodeOf(err))

	_, err = store.Append(ctx, "alice", room.ID, AppendInput{Type: "hologram", Content: "hi"})
	assert.Equal(t, errs.CodeInvalidArgument, errs.CodeOf(err))

	_, err = store.Append(ctx, "alice", room.ID, AppendInput{Type: models.MessageTypeImage})
	assert.Equal(t, errs.CodeInvalidArgument, errs.CodeOf(err))

	_, err = store.Append(ctx, "alice", "no-such-room", AppendInput{Content: "hi"})
	assert.ErrorIs(t, err, errs.ErrRoomNotFound)

	msg, err := store.Append(ctx, "alice", room.ID, AppendInput{
		Type:      models.MessageTypeImage,
		MediaURL:  "https://cdn.example.com/cat.png",
		MediaName: "cat.png",
		MediaSize: 2048,
	})
	require.NoError(t, err)
	assert.Equal(t, models.MessageTypeImage, msg.Type)
}

func TestReplyTargetValidation(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	store := NewMessageStore(db)
	roomA := newGroupRoom(t, db, 10, "alice", "bob")
	roomB := newGroupRoom(t, db, 10, "alice", "bob")

	original := appendText(t, db, "alice", roomA.ID, "original")

	reply, err := store.Append(ctx, "bob", roomA.ID, AppendInput{Content: "reply", ReplyToID: original.ID})
	require.NoError(t, err)
	require.NotNil(t, reply.ReplyToID)
	assert.Equal(t, original.ID, *reply.ReplyToID)

	// Reply targets must live in the same room.
	_, err = store.Append(ctx, "bob", roomB.ID, AppendInput{Content: "wrong room", ReplyToID: original.ID})
	assert.ErrorIs(t, err, errs.ErrInvalidReplyTarget)

	_, err = store.Append(ctx, "bob", roomA.ID, AppendInput{Content: "ghost", ReplyToID: "no-such-message"})
	assert.ErrorIs(t, err, errs.ErrInvalidReplyTarget)

	// A tombstone stays a valid reply target; the thread survives deletion.
	_, err = store.SoftDelete(ctx, "alice", original.ID)
	require.NoError(t, err)
	_, err = store.Append(ctx, "bob", roomA.ID, AppendInput{Content: "still threaded", ReplyToID: original.ID})
	require.NoError(t, err)
}

func TestEditMessage(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	store := NewMessageStore(db)
	room := newGroupRoom(t, db, 10, "alice", "bob")
	msg := appendText(t, db, "alice", room.ID, "draft")

	_, err := store.Edit(ctx, "bob", msg.ID, "hijacked")
	assert.Equal(t, errs.CodeForbidden, errs.CodeOf(err))

	edited, err := store.Edit(ctx, "alice", msg.ID, "final")
	require.NoError(t, err)
	assert.Equal(t, "final", edited.Content)
	assert.True(t, edited.IsEdited)
	assert.Equal(t, msg.Seq, edited.Seq)

	_, err = store.SoftDelete(ctx, "alice", msg.ID)
	require.NoError(t, err)
	_, err = store.Edit(ctx, "alice", msg.ID, "necromancy")
	assert.ErrorIs(t, err, errs.ErrMessageDeleted)
}

func TestSoftDeleteTombstone(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	store := NewMessageStore(db)
	room := newGroupRoom(t, db, 10, "alice", "bob", "carol")

	msg, err := store.Append(ctx, "alice", room.ID, AppendInput{
		Type:      models.MessageTypeImage,
		Content:   "look at this",
		MediaURL:  "https://cdn.example.com/cat.png",
		MediaName: "cat.png",
		MediaSize: 2048,
	})
	require.NoError(t, err)
	require.NoError(t, NewReactionLedger(db).AddReaction(ctx, "bob", msg.ID, "👍"))

	// A plain member cannot delete someone else's message.
	_, err = store.SoftDelete(ctx, "carol", msg.ID)
	assert.Equal(t, errs.CodeForbidden, errs.CodeOf(err))

	deleted, err := store.SoftDelete(ctx, "alice", msg.ID)
	require.NoError(t, err)
	assert.True(t, deleted.IsDeleted)
	assert.Empty(t, deleted.Content)
	assert.Empty(t, deleted.MediaURL)
	assert.Zero(t, deleted.MediaSize)
	assert.Equal(t, msg.ID, deleted.ID)
	assert.Equal(t, msg.Seq, deleted.Seq)
	assert.Equal(t, "alice", deleted.SenderID)
	assert.NotNil(t, deleted.DeletedAt)

	// Delivery rows and reactions outlive the tombstone.
	var statuses, reactions int64
	require.NoError(t, db.Model(&models.DeliveryStatus{}).Where("message_id = ?", msg.ID).Count(&statuses).Error)
	require.NoError(t, db.Model(&models.Reaction{}).Where("message_id = ?", msg.ID).Count(&reactions).Error)
	assert.Equal(t, int64(2), statuses)
	assert.Equal(t, int64(1), reactions)

	_, err = store.SoftDelete(ctx, "alice", msg.ID)
	assert.ErrorIs(t, err, errs.ErrMessageDeleted)
}

func TestModeratorDeletesOthersMessage(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	store := NewMessageStore(db)
	room := newGroupRoom(t, db, 10, "alice", "bob")
	msg := appendText(t, db, "bob", room.ID, "off topic")

	deleted, err := store.SoftDelete(ctx, "alice", msg.ID)
	require.NoError(t, err)
	assert.True(t, deleted.IsDeleted)
}

func TestPinMessage(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	store := NewMessageStore(db)
	room := newGroupRoom(t, db, 10, "alice", "bob")
	msg := appendText(t, db, "bob", room.ID, "rules of the room")

	_, err := store.Pin(ctx, "bob", msg.ID, true)
	assert.Equal(t, errs.CodeForbidden, errs.CodeOf(err))

	pinned, err := store.Pin(ctx, "alice", msg.ID, true)
	require.NoError(t, err)
	assert.True(t, pinned.IsPinned)

	unpinned, err := store.Pin(ctx, "alice", msg.ID, false)
	require.NoError(t, err)
	assert.False(t, unpinned.IsPinned)
}

func TestListPagination(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	store := NewMessageStore(db)
	room := newGroupRoom(t, db, 10, "alice", "bob")

	for i := 1; i <= 5; i++ {
		appendText(t, db, "alice", room.ID, fmt.Sprintf("message %d", i))
	}

	// Newest first by default.
	page, cursor, hasMore, err := store.List(ctx, room.ID, ListOptions{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.True(t, hasMore)
	assert.Equal(t, int64(5), page[0].Seq)
	assert.Equal(t, int64(4), page[1].Seq)

	page, cursor, hasMore, err = store.List(ctx, room.ID, ListOptions{Limit: 2, Cursor: cursor})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.True(t, hasMore)
	assert.Equal(t, int64(3), page[0].Seq)
	assert.Equal(t, int64(2), page[1].Seq)

	page, _, hasMore, err = store.List(ctx, room.ID, ListOptions{Limit: 2, Cursor: cursor})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.False(t, hasMore)
	assert.Equal(t, int64(1), page[0].Seq)
}

func TestListOldestFirst(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	store := NewMessageStore(db)
	room := newGroupRoom(t, db, 10, "alice", "bob")

	for i := 1; i <= 3; i++ {
		appendText(t, db, "alice", room.ID, fmt.Sprintf("message %d", i))
	}

	page, cursor, hasMore, err := store.List(ctx, room.ID, ListOptions{Limit: 2, Oldest: true})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.True(t, hasMore)
	assert.Equal(t, int64(1), page[0].Seq)
	assert.Equal(t, int64(2), page[1].Seq)

	page, _, hasMore, err = store.List(ctx, room.ID, ListOptions{Limit: 2, Oldest: true, Cursor: cursor})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.False(t, hasMore)
	assert.Equal(t, int64(3), page[0].Seq)
}

func TestListRejectsMalformedCursor(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	store := NewMessageStore(db)
	room := newGroupRoom(t, db, 10, "alice", "bob")

	_, _, _, err := store.List(ctx, room.ID, ListOptions{Cursor: "!!not-a-cursor!!"})
	assert.Equal(t, errs.CodeInvalidArgument, errs.CodeOf(err))
}

func TestGetMessage(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	store := NewMessageStore(db)
	room := newGroupRoom(t, db, 10, "alice", "bob")
	msg := appendText(t, db, "alice", room.ID, "findable")

	got, err := store.Get(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, msg.ID, got.ID)

	_, err = store.Get(ctx, "no-such-message")
	assert.ErrorIs(t, err, errs.ErrMessageNotFound)
}
