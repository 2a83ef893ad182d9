package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/symplle/chat_backend/websocket"
)

type AddReactionInput struct {
	Emoji string `json:"emoji" binding:"required" example:"👍"`
}

// AddReaction godoc
// @Summary React to a message
// @Description Adds an emoji reaction; duplicates from the same user are a no-op
// @Tags reactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Message ID"
// @Param reaction body AddReactionInput true "Reaction"
// @Success 201 {object} map[string]interface{} "Reaction recorded"
// @Failure 404 {object} map[string]string "Message not found"
// @Failure 409 {object} map[string]string "Message deleted"
// @Router /api/messages/{id}/reactions [post]
func AddReaction(c *gin.Context) {
	userID := currentUserID(c)
	messageID := c.Param("id")

	var input AddReactionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := reactionLedger().AddReaction(c.Request.Context(), userID, messageID, input.Emoji); err != nil {
		handleError(c, err)
		return
	}

	aggregate, err := reactionLedger().Aggregate(c.Request.Context(), messageID)
	if err != nil {
		handleError(c, err)
		return
	}

	if message, err := messageStore().Get(c.Request.Context(), messageID); err == nil {
		websocket.BroadcastToRoom(message.RoomID, "reaction", gin.H{
			"room_id":    message.RoomID,
			"message_id": messageID,
			"reactions":  aggregate,
		})
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":   "Reaction recorded",
		"reactions": aggregate,
	})
}

// RemoveReaction godoc
// @Summary Remove a reaction
// @Description Removes the caller's emoji reaction; a missing reaction is a no-op
// @Tags reactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Message ID"
// @Param emoji path string true "Emoji"
// @Success 200 {object} map[string]interface{} "Reaction removed"
// @Failure 404 {object} map[string]string "Message not found"
// @Router /api/messages/{id}/reactions/{emoji} [delete]
func RemoveReaction(c *gin.Context) {
	userID := currentUserID(c)
	messageID := c.Param("id")

	if err := reactionLedger().RemoveReaction(c.Request.Context(), userID, messageID, c.Param("emoji")); err != nil {
		handleError(c, err)
		return
	}

	aggregate, err := reactionLedger().Aggregate(c.Request.Context(), messageID)
	if err != nil {
		handleError(c, err)
		return
	}

	if message, err := messageStore().Get(c.Request.Context(), messageID); err == nil {
		websocket.BroadcastToRoom(message.RoomID, "reaction", gin.H{
			"room_id":    message.RoomID,
			"message_id": messageID,
			"reactions":  aggregate,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Reaction removed",
		"reactions": aggregate,
	})
}

// GetReactions godoc
// @Summary Get the reaction aggregate for a message
// @Description Returns emoji counts and reactor lists, derived from the ledger on demand
// @Tags reactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Message ID"
// @Success 200 {object} map[string]interface{} "Reaction aggregate"
// @Failure 404 {object} map[string]string "Message not found"
// @Router /api/messages/{id}/reactions [get]
func GetReactions(c *gin.Context) {
	aggregate, err := reactionLedger().Aggregate(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reactions": aggregate})
}
