package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/symplle/chat_backend/models"
	errs "github.com/symplle/chat_backend/pkg/errors"
)

func TestDeliveryAdvances(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	tracker := NewDeliveryTracker(db)
	room := newGroupRoom(t, db, 10, "alice", "bob")
	msg := appendText(t, db, "alice", room.ID, "hello")

	status, err := tracker.MarkDelivered(ctx, "bob", msg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DeliveryStateDelivered, status.State)

	status, err = tracker.MarkRead(ctx, "bob", msg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DeliveryStateRead, status.State)
}

func TestMarkReadIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	tracker := NewDeliveryTracker(db)
	room := newGroupRoom(t, db, 10, "alice", "bob")
	msg := appendText(t, db, "alice", room.ID, "hello")

	// Read without an explicit delivered first is fine; the rank jumps.
	first, err := tracker.MarkRead(ctx, "bob", msg.ID)
	require.NoError(t, err)
	second, err := tracker.MarkRead(ctx, "bob", msg.ID)
	require.NoError(t, err)

	assert.Equal(t, models.DeliveryStateRead, first.State)
	assert.Equal(t, models.DeliveryStateRead, second.State)
	assert.Equal(t, first.UpdatedAt, second.UpdatedAt)
}

func TestDeliveryNeverRegresses(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	tracker := NewDeliveryTracker(db)
	room := newGroupRoom(t, db, 10, "alice", "bob")
	msg := appendText(t, db, "alice", room.ID, "hello")

	_, err := tracker.MarkRead(ctx, "bob", msg.ID)
	require.NoError(t, err)

	// A late delivered event from another device cannot undo the read.
	status, err := tracker.MarkDelivered(ctx, "bob", msg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DeliveryStateRead, status.State)
}

func TestNonRecipientCannotAdvance(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	tracker := NewDeliveryTracker(db)
	room := newGroupRoom(t, db, 10, "alice", "bob")
	msg := appendText(t, db, "alice", room.ID, "hello")

	// The sender has no delivery row for their own message.
	_, err := tracker.MarkDelivered(ctx, "alice", msg.ID)
	assert.ErrorIs(t, err, errs.ErrNotARecipient)

	_, err = tracker.MarkRead(ctx, "mallory", msg.ID)
	assert.ErrorIs(t, err, errs.ErrNotARecipient)

	_, err = tracker.MarkRead(ctx, "bob", "no-such-message")
	assert.ErrorIs(t, err, errs.ErrMessageNotFound)
}

func TestLateJoinerHasNoDeliveryRow(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	tracker := NewDeliveryTracker(db)
	room := newGroupRoom(t, db, 10, "alice", "bob")
	msg := appendText(t, db, "alice", room.ID, "before carol")

	_, err := NewMembershipRegistry(db, nil).Join(ctx, room.ID, "carol", "alice")
	require.NoError(t, err)

	// The fan-out is frozen at append time.
	_, err = tracker.MarkDelivered(ctx, "carol", msg.ID)
	assert.ErrorIs(t, err, errs.ErrNotARecipient)
}

func TestAggregateRoomReadState(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	tracker := NewDeliveryTracker(db)
	room := newGroupRoom(t, db, 10, "alice", "bob", "carol")
	msg := appendText(t, db, "alice", room.ID, "hello")

	state, err := tracker.AggregateRoomReadState(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), state.Total)
	assert.Zero(t, state.Delivered)
	assert.Zero(t, state.Read)
	assert.Zero(t, state.Fraction)

	_, err = tracker.MarkDelivered(ctx, "bob", msg.ID)
	require.NoError(t, err)
	_, err = tracker.MarkRead(ctx, "carol", msg.ID)
	require.NoError(t, err)

	state, err = tracker.AggregateRoomReadState(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), state.Total)
	assert.Equal(t, int64(2), state.Delivered)
	assert.Equal(t, int64(1), state.Read)
	assert.InDelta(t, 0.5, state.Fraction, 1e-9)
}

func TestListStatuses(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	tracker := NewDeliveryTracker(db)
	room := newGroupRoom(t, db, 10, "alice", "bob", "carol")
	msg := appendText(t, db, "alice", room.ID, "hello")

	statuses, err := tracker.ListStatuses(ctx, msg.ID)
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	assert.Equal(t, "bob", statuses[0].UserID)
	assert.Equal(t, "carol", statuses[1].UserID)

	_, err = tracker.ListStatuses(ctx, "no-such-message")
	assert.ErrorIs(t, err, errs.ErrMessageNotFound)
}
