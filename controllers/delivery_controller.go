package controllers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/symplle/chat_backend/websocket"
)

// MarkDelivered godoc
// @Summary Mark a message delivered
// @Description Advances the caller's delivery row to DELIVERED; idempotent, never regresses a READ row
// @Tags delivery
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Message ID"
// @Success 200 {object} map[string]interface{} "Delivery state"
// @Failure 404 {object} map[string]string "Unknown message"
// @Failure 409 {object} map[string]string "Not a recipient"
// @Router /api/messages/{id}/delivered [post]
func MarkDelivered(c *gin.Context) {
	userID := currentUserID(c)

	status, err := deliveryTracker().MarkDelivered(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": status})
}

// MarkRead godoc
// @Summary Mark a message read
// @Description Advances the caller's delivery row to READ and notifies the room; idempotent
// @Tags delivery
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Message ID"
// @Success 200 {object} map[string]interface{} "Delivery state"
// @Failure 404 {object} map[string]string "Unknown message"
// @Failure 409 {object} map[string]string "Not a recipient"
// @Router /api/messages/{id}/read [post]
func MarkRead(c *gin.Context) {
	userID := currentUserID(c)
	messageID := c.Param("id")

	status, err := deliveryTracker().MarkRead(c.Request.Context(), userID, messageID)
	if err != nil {
		handleError(c, err)
		return
	}

	message, err := messageStore().Get(c.Request.Context(), messageID)
	if err == nil {
		// Reading a message also moves the room watermark; an older
		// message is a no-op there.
		if err := membershipRegistry().UpdateLastRead(c.Request.Context(), userID, message.RoomID, messageID); err != nil {
			log.Printf("error updating last read for user %s: %v", userID, err)
		}

		websocket.BroadcastToRoom(message.RoomID, "receipt", gin.H{
			"room_id":    message.RoomID,
			"message_id": messageID,
			"user_id":    userID,
			"state":      status.State,
		})
	}

	c.JSON(http.StatusOK, gin.H{"status": status})
}

// GetReceipts godoc
// @Summary Get delivery receipts for a message
// @Description Returns every recipient's delivery row plus the aggregate read fraction, for the sender's "seen by" view
// @Tags delivery
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Message ID"
// @Success 200 {object} map[string]interface{} "Receipts and aggregate"
// @Failure 404 {object} map[string]string "Unknown message"
// @Router /api/messages/{id}/receipts [get]
func GetReceipts(c *gin.Context) {
	userID := currentUserID(c)
	messageID := c.Param("id")

	message, err := messageStore().Get(c.Request.Context(), messageID)
	if err != nil {
		handleError(c, err)
		return
	}
	if _, err := membershipRegistry().GetMembership(c.Request.Context(), message.RoomID, userID); err != nil {
		handleError(c, err)
		return
	}

	statuses, err := deliveryTracker().ListStatuses(c.Request.Context(), messageID)
	if err != nil {
		handleError(c, err)
		return
	}
	aggregate, err := deliveryTracker().AggregateRoomReadState(c.Request.Context(), messageID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"statuses":  statuses,
		"aggregate": aggregate,
	})
}
