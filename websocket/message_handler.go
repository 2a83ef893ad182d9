package websocket

import (
	"context"
	"encoding/json"
	"log"

	"github.com/symplle/chat_backend/chat"
	"github.com/symplle/chat_backend/database"
	"github.com/symplle/chat_backend/models"
)

// MessagePayload represents the structure of a message payload
type MessagePayload struct {
	RoomID    string `json:"room_id"`
	Content   string `json:"content"`
	Type      string `json:"type"`
	MediaURL  string `json:"media_url"`
	MediaName string `json:"media_name"`
	MediaSize int64  `json:"media_size"`
	ReplyToID string `json:"reply_to_id"`
}

// TypingPayload represents a transient typing indicator
type TypingPayload struct {
	RoomID   string `json:"room_id"`
	IsTyping bool   `json:"is_typing"`
}

// ReceiptPayload represents a delivery-state advancement event
type ReceiptPayload struct {
	MessageID string `json:"message_id"`
}

// ReactionPayload represents a reaction add/remove event
type ReactionPayload struct {
	MessageID string `json:"message_id"`
	Emoji     string `json:"emoji"`
	Remove    bool   `json:"remove"`
}

// HandleIncomingMessage processes an incoming WebSocket message
func HandleIncomingMessage(client *Client, messageBytes []byte) {
	var msg Message
	if err := json.Unmarshal(messageBytes, &msg); err != nil {
		log.Printf("error unmarshaling message: %v", err)
		return
	}

	ctx := context.Background()

	switch msg.Type {
	case "join_room":
		roomID, ok := msg.Payload.(string)
		if !ok {
			return
		}

		// Only active members may subscribe to a room's events
		registry := chat.NewMembershipRegistry(database.DB, nil)
		if _, err := registry.GetMembership(ctx, roomID, client.userID); err != nil {
			sendErrorToClient(client, "You are not a member of this room")
			return
		}
		client.joinRoom(roomID)
	case "leave_room":
		if roomID, ok := msg.Payload.(string); ok {
			client.leaveRoom(roomID)
		}
	case "message":
		var payload MessagePayload
		if !decodePayload(client, msg.Payload, &payload) {
			return
		}

		if !client.inRoom(payload.RoomID) {
			log.Printf("user %s attempted to send message to room %s without joining",
				client.userID, payload.RoomID)
			return
		}

		store := chat.NewMessageStore(database.DB)
		saved, err := store.Append(ctx, client.userID, payload.RoomID, chat.AppendInput{
			Content:   payload.Content,
			Type:      payload.Type,
			MediaURL:  payload.MediaURL,
			MediaName: payload.MediaName,
			MediaSize: payload.MediaSize,
			ReplyToID: payload.ReplyToID,
		})
		if err != nil {
			sendErrorToClient(client, err.Error())
			return
		}

		BroadcastToRoom(payload.RoomID, "message", saved)
	case "typing":
		var payload TypingPayload
		if !decodePayload(client, msg.Payload, &payload) {
			return
		}
		if !client.inRoom(payload.RoomID) {
			return
		}

		// Transient: broadcast only, nothing persisted
		BroadcastToRoom(payload.RoomID, "typing", map[string]interface{}{
			"room_id":   payload.RoomID,
			"user_id":   client.userID,
			"is_typing": payload.IsTyping,
		})
	case "mark_delivered":
		handleReceipt(ctx, client, msg.Payload, false)
	case "mark_read":
		handleReceipt(ctx, client, msg.Payload, true)
	case "reaction":
		var payload ReactionPayload
		if !decodePayload(client, msg.Payload, &payload) {
			return
		}

		ledger := chat.NewReactionLedger(database.DB)
		var err error
		if payload.Remove {
			err = ledger.RemoveReaction(ctx, client.userID, payload.MessageID, payload.Emoji)
		} else {
			err = ledger.AddReaction(ctx, client.userID, payload.MessageID, payload.Emoji)
		}
		if err != nil {
			sendErrorToClient(client, err.Error())
			return
		}

		aggregate, err := ledger.Aggregate(ctx, payload.MessageID)
		if err != nil {
			return
		}
		store := chat.NewMessageStore(database.DB)
		if message, err := store.Get(ctx, payload.MessageID); err == nil {
			BroadcastToRoom(message.RoomID, "reaction", map[string]interface{}{
				"room_id":    message.RoomID,
				"message_id": payload.MessageID,
				"reactions":  aggregate,
			})
		}
	}
}

// handleReceipt advances the client's delivery row and fans the new state
// out to the room.
func handleReceipt(ctx context.Context, client *Client, raw interface{}, read bool) {
	var payload ReceiptPayload
	if !decodePayload(client, raw, &payload) {
		return
	}

	tracker := chat.NewDeliveryTracker(database.DB)
	var status *models.DeliveryStatus
	var err error
	if read {
		status, err = tracker.MarkRead(ctx, client.userID, payload.MessageID)
	} else {
		status, err = tracker.MarkDelivered(ctx, client.userID, payload.MessageID)
	}
	if err != nil {
		sendErrorToClient(client, err.Error())
		return
	}

	store := chat.NewMessageStore(database.DB)
	message, err := store.Get(ctx, payload.MessageID)
	if err != nil {
		return
	}

	if read {
		registry := chat.NewMembershipRegistry(database.DB, nil)
		if err := registry.UpdateLastRead(ctx, client.userID, message.RoomID, payload.MessageID); err != nil {
			log.Printf("error updating last read for user %s: %v", client.userID, err)
		}
	}

	BroadcastToRoom(message.RoomID, "receipt", map[string]interface{}{
		"room_id":    message.RoomID,
		"message_id": payload.MessageID,
		"user_id":    client.userID,
		"state":      status.State,
	})
}

// decodePayload remarshals the loosely typed payload into its concrete
// shape.
func decodePayload(client *Client, raw interface{}, dest interface{}) bool {
	payloadBytes, err := json.Marshal(raw)
	if err != nil {
		log.Printf("error marshaling payload: %v", err)
		return false
	}
	if err := json.Unmarshal(payloadBytes, dest); err != nil {
		log.Printf("error unmarshaling payload: %v", err)
		sendErrorToClient(client, "malformed payload")
		return false
	}
	return true
}

func sendErrorToClient(client *Client, errorMessage string) {
	errorMsg := Message{
		Type: "error",
		Payload: map[string]string{
			"message": errorMessage,
		},
	}

	errorBytes, _ := json.Marshal(errorMsg)
	client.send <- errorBytes
}
