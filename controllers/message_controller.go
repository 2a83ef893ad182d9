package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/symplle/chat_backend/chat"
	"github.com/symplle/chat_backend/websocket"
)

type CreateMessageInput struct {
	RoomID    string `json:"room_id" binding:"required" example:"9f2d1ad0-0000-0000-0000-000000000000"`
	Content   string `json:"content" example:"Hello, everyone!"`
	Type      string `json:"type" example:"text"`
	MediaURL  string `json:"media_url"`
	MediaName string `json:"media_name"`
	MediaSize int64  `json:"media_size"`
	ReplyToID string `json:"reply_to_id"`
}

type EditMessageInput struct {
	Content string `json:"content" binding:"required" example:"Hello, edited!"`
}

type PinMessageInput struct {
	Pinned *bool `json:"pinned" binding:"required"`
}

// GetMessages godoc
// @Summary Get messages for a room
// @Description Returns a page of a room's message log in its total order; resumable via opaque cursor
// @Tags messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param room_id query string true "Room ID"
// @Param cursor query string false "Resume cursor from a previous page"
// @Param limit query int false "Page size (max 100)"
// @Param order query string false "asc for oldest-first, default newest-first"
// @Success 200 {object} map[string]interface{} "List of messages"
// @Failure 400 {object} map[string]string "Invalid cursor"
// @Failure 403 {object} map[string]string "Forbidden"
// @Router /api/messages [get]
func GetMessages(c *gin.Context) {
	userID := currentUserID(c)
	roomID := c.Query("room_id")

	// Reading the log is membership gated; the store itself only orders it.
	if _, err := membershipRegistry().GetMembership(c.Request.Context(), roomID, userID); err != nil {
		handleError(c, err)
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	messages, nextCursor, hasMore, err := messageStore().List(c.Request.Context(), roomID, chat.ListOptions{
		Cursor: c.Query("cursor"),
		Limit:  limit,
		Oldest: c.Query("order") == "asc",
	})
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages":    messages,
		"next_cursor": nextCursor,
		"has_more":    hasMore,
	})
}

// CreateMessage godoc
// @Summary Send a message
// @Description Appends a message to the room log and fans out delivery rows to the other members
// @Tags messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param message body CreateMessageInput true "Message Creation"
// @Success 201 {object} map[string]interface{} "Message sent successfully"
// @Failure 400 {object} map[string]string "Invalid input or reply target"
// @Failure 403 {object} map[string]string "Not a member or muted"
// @Failure 409 {object} map[string]string "Room archived"
// @Router /api/messages [post]
func CreateMessage(c *gin.Context) {
	userID := currentUserID(c)

	var input CreateMessageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	message, err := messageStore().Append(c.Request.Context(), userID, input.RoomID, chat.AppendInput{
		Content:   input.Content,
		Type:      input.Type,
		MediaURL:  input.MediaURL,
		MediaName: input.MediaName,
		MediaSize: input.MediaSize,
		ReplyToID: input.ReplyToID,
	})
	if err != nil {
		handleError(c, err)
		return
	}

	websocket.BroadcastToRoom(input.RoomID, "message", message)

	c.JSON(http.StatusCreated, gin.H{
		"message": "Message sent successfully",
		"data":    message,
	})
}

// GetMessage godoc
// @Summary Get a single message
// @Description Fetches a message by id; tombstones resolve with cleared content
// @Tags messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Message ID"
// @Success 200 {object} map[string]interface{} "Message"
// @Failure 404 {object} map[string]string "Message not found"
// @Router /api/messages/{id} [get]
func GetMessage(c *gin.Context) {
	userID := currentUserID(c)

	message, err := messageStore().Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	if _, err := membershipRegistry().GetMembership(c.Request.Context(), message.RoomID, userID); err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": message})
}

// EditMessage godoc
// @Summary Edit a message
// @Description Replaces a message's content; only the original sender may edit
// @Tags messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Message ID"
// @Param message body EditMessageInput true "New content"
// @Success 200 {object} map[string]interface{} "Message edited"
// @Failure 403 {object} map[string]string "Not the sender"
// @Failure 409 {object} map[string]string "Message deleted"
// @Router /api/messages/{id} [put]
func EditMessage(c *gin.Context) {
	userID := currentUserID(c)

	var input EditMessageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	message, err := messageStore().Edit(c.Request.Context(), userID, c.Param("id"), input.Content)
	if err != nil {
		handleError(c, err)
		return
	}

	websocket.BroadcastToRoom(message.RoomID, "message_edited", message)

	c.JSON(http.StatusOK, gin.H{
		"message": "Message edited successfully",
		"data":    message,
	})
}

// DeleteMessage godoc
// @Summary Delete a message
// @Description Soft-deletes a message into a tombstone; sender, admin or moderator only
// @Tags messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Message ID"
// @Success 200 {object} map[string]interface{} "Message deleted"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 409 {object} map[string]string "Already deleted"
// @Router /api/messages/{id} [delete]
func DeleteMessage(c *gin.Context) {
	userID := currentUserID(c)

	message, err := messageStore().SoftDelete(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	websocket.BroadcastToRoom(message.RoomID, "message_deleted", gin.H{
		"room_id":    message.RoomID,
		"message_id": message.ID,
	})

	c.JSON(http.StatusOK, gin.H{
		"message": "Message deleted successfully",
		"data":    message,
	})
}

// PinMessage godoc
// @Summary Pin or unpin a message
// @Tags messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Message ID"
// @Param pin body PinMessageInput true "Pin flag"
// @Success 200 {object} map[string]interface{} "Pin state updated"
// @Failure 403 {object} map[string]string "Forbidden"
// @Router /api/messages/{id}/pin [put]
func PinMessage(c *gin.Context) {
	userID := currentUserID(c)

	var input PinMessageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	message, err := messageStore().Pin(c.Request.Context(), userID, c.Param("id"), *input.Pinned)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Pin state updated",
		"data":    message,
	})
}
