package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/symplle/chat_backend/websocket"
)

type JoinRoomInput struct {
	InvitedBy string `json:"invited_by" example:"9f2d1ad0-0000-0000-0000-000000000000"`
}

type SetRoleInput struct {
	Role string `json:"role" binding:"required,oneof=admin moderator member" example:"moderator"`
}

type SetMutedInput struct {
	Muted *bool `json:"muted" binding:"required"`
}

type SetNotificationsInput struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

type UpdateLastReadInput struct {
	MessageID string `json:"message_id" binding:"required"`
}

// GetMembers godoc
// @Summary List room members
// @Description Returns the active members of a room in join order
// @Tags members
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Room ID"
// @Success 200 {object} map[string]interface{} "List of members"
// @Failure 404 {object} map[string]string "Room not found"
// @Router /api/rooms/{id}/members [get]
func GetMembers(c *gin.Context) {
	members, err := membershipRegistry().ListMembers(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"members": members})
}

// JoinRoom godoc
// @Summary Join a room
// @Description Adds the authenticated user to the room as a member
// @Tags members
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Room ID"
// @Param join body JoinRoomInput false "Join details"
// @Success 201 {object} map[string]interface{} "Joined successfully"
// @Failure 404 {object} map[string]string "Room not found"
// @Failure 409 {object} map[string]string "Already a member, room full, or room archived"
// @Router /api/rooms/{id}/members [post]
func JoinRoom(c *gin.Context) {
	userID := currentUserID(c)
	roomID := c.Param("id")

	var input JoinRoomInput
	// Body is optional for a plain self-join.
	_ = c.ShouldBindJSON(&input)

	member, err := membershipRegistry().Join(c.Request.Context(), roomID, userID, input.InvitedBy)
	if err != nil {
		handleError(c, err)
		return
	}

	websocket.BroadcastToRoom(roomID, "user_joined", gin.H{
		"room_id": roomID,
		"user_id": userID,
	})

	c.JSON(http.StatusCreated, gin.H{
		"message": "Joined room successfully",
		"member":  member,
	})
}

// LeaveRoom godoc
// @Summary Leave a room
// @Description Removes the authenticated user from the room; the earliest-joined member inherits admin if needed
// @Tags members
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Room ID"
// @Success 200 {object} map[string]string "Left successfully"
// @Failure 404 {object} map[string]string "Not a member"
// @Failure 409 {object} map[string]string "Sole member cannot leave"
// @Router /api/rooms/{id}/leave [post]
func LeaveRoom(c *gin.Context) {
	userID := currentUserID(c)
	roomID := c.Param("id")

	if err := membershipRegistry().Leave(c.Request.Context(), roomID, userID); err != nil {
		handleError(c, err)
		return
	}

	websocket.BroadcastToRoom(roomID, "user_left", gin.H{
		"room_id": roomID,
		"user_id": userID,
	})

	c.JSON(http.StatusOK, gin.H{"message": "Left room successfully"})
}

// SetRole godoc
// @Summary Change a member's role
// @Description Changes a member's role; admins only, and the last admin cannot be demoted
// @Tags members
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Room ID"
// @Param userId path string true "Target user ID"
// @Param role body SetRoleInput true "New role"
// @Success 200 {object} map[string]interface{} "Role updated"
// @Failure 400 {object} map[string]string "Invalid role"
// @Failure 403 {object} map[string]string "Forbidden"
// @Router /api/rooms/{id}/members/{userId}/role [put]
func SetRole(c *gin.Context) {
	userID := currentUserID(c)

	var input SetRoleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	member, err := membershipRegistry().SetRole(c.Request.Context(), userID, c.Param("id"), c.Param("userId"), input.Role)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Role updated successfully",
		"member":  member,
	})
}

// SetMuted godoc
// @Summary Mute or unmute a member
// @Description Silences a member for writing; admins and moderators only
// @Tags members
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Room ID"
// @Param userId path string true "Target user ID"
// @Param muted body SetMutedInput true "Mute flag"
// @Success 200 {object} map[string]string "Mute state updated"
// @Failure 403 {object} map[string]string "Forbidden"
// @Router /api/rooms/{id}/members/{userId}/mute [put]
func SetMuted(c *gin.Context) {
	userID := currentUserID(c)

	var input SetMutedInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := membershipRegistry().SetMuted(c.Request.Context(), userID, c.Param("id"), c.Param("userId"), *input.Muted)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Mute state updated"})
}

// SetNotifications godoc
// @Summary Toggle own notifications for a room
// @Tags members
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Room ID"
// @Param notifications body SetNotificationsInput true "Notification flag"
// @Success 200 {object} map[string]string "Notification flag updated"
// @Router /api/rooms/{id}/notifications [put]
func SetNotifications(c *gin.Context) {
	userID := currentUserID(c)

	var input SetNotificationsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := membershipRegistry().SetNotifications(c.Request.Context(), userID, c.Param("id"), *input.Enabled)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification flag updated"})
}

// UpdateLastRead godoc
// @Summary Move the read watermark
// @Description Marks the room read up to the given message; an older watermark is a no-op
// @Tags members
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Room ID"
// @Param read body UpdateLastReadInput true "Read position"
// @Success 200 {object} map[string]string "Watermark updated"
// @Failure 404 {object} map[string]string "Message or membership not found"
// @Router /api/rooms/{id}/read [post]
func UpdateLastRead(c *gin.Context) {
	userID := currentUserID(c)

	var input UpdateLastReadInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := membershipRegistry().UpdateLastRead(c.Request.Context(), userID, c.Param("id"), input.MessageID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Read watermark updated"})
}
