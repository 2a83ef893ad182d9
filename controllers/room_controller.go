package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/symplle/chat_backend/chat"
)

type CreateRoomInput struct {
	Name        string   `json:"name" example:"General Chat"`
	Description string   `json:"description" example:"Anything goes"`
	Type        string   `json:"type" example:"group"`
	IsPublic    bool     `json:"is_public"`
	MaxMembers  int      `json:"max_members" example:"100"`
	MemberIDs   []string `json:"member_ids"`
}

type UpdateRoomInput struct {
	Name        string `json:"name" example:"Updated Chat Room"`
	Description string `json:"description"`
}

// GetRooms godoc
// @Summary Get all rooms for the authenticated user
// @Description Returns all chat rooms the authenticated user is an active member of, with unread counts
// @Tags rooms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "List of rooms"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Server error"
// @Router /api/rooms [get]
func GetRooms(c *gin.Context) {
	userID := currentUserID(c)

	rooms, err := roomManager().ListRooms(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

// CreateRoom godoc
// @Summary Create a new chat room
// @Description Creates a room with the authenticated user as admin; a direct room takes exactly one other member
// @Tags rooms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param room body CreateRoomInput true "Room Creation"
// @Success 201 {object} map[string]interface{} "Room created successfully"
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Server error"
// @Router /api/rooms [post]
func CreateRoom(c *gin.Context) {
	userID := currentUserID(c)

	var input CreateRoomInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, err := roomManager().CreateRoom(c.Request.Context(), userID, chat.CreateRoomInput{
		Name:        input.Name,
		Description: input.Description,
		Type:        input.Type,
		IsPublic:    input.IsPublic,
		MaxMembers:  input.MaxMembers,
		MemberIDs:   input.MemberIDs,
	})
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Room created successfully",
		"room":    room,
	})
}

// GetRoom godoc
// @Summary Get details of a specific room
// @Description Returns a room with the caller's last-read watermark and unread count
// @Tags rooms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Room ID"
// @Success 200 {object} map[string]interface{} "Room details"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Room not found"
// @Router /api/rooms/{id} [get]
func GetRoom(c *gin.Context) {
	userID := currentUserID(c)

	summary, err := roomManager().GetRoom(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"room":        summary.Room,
		"lastReadAt":  summary.LastReadAt,
		"unreadCount": summary.UnreadCount,
	})
}

// UpdateRoom godoc
// @Summary Update a room's details
// @Description Updates a room's name and description; admins and moderators only
// @Tags rooms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Room ID"
// @Param room body UpdateRoomInput true "Room Update"
// @Success 200 {object} map[string]interface{} "Room updated successfully"
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 403 {object} map[string]string "Forbidden"
// @Router /api/rooms/{id} [put]
func UpdateRoom(c *gin.Context) {
	userID := currentUserID(c)

	var input UpdateRoomInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, err := roomManager().UpdateRoom(c.Request.Context(), userID, c.Param("id"), input.Name, input.Description)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Room updated successfully",
		"room":    room,
	})
}

// ArchiveRoom godoc
// @Summary Archive a room
// @Description Archives a room; it stays readable but rejects new messages and joins. Admins only
// @Tags rooms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Room ID"
// @Success 200 {object} map[string]interface{} "Room archived successfully"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Room not found"
// @Failure 409 {object} map[string]string "Room already archived"
// @Router /api/rooms/{id}/archive [post]
func ArchiveRoom(c *gin.Context) {
	userID := currentUserID(c)

	room, err := roomManager().ArchiveRoom(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Room archived successfully",
		"room":    room,
	})
}

// DeleteRoom godoc
// @Summary Delete a room
// @Description Deletes a room and all its messages, statuses and reactions; creator or admin only
// @Tags rooms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Room ID"
// @Success 200 {object} map[string]string "Room deleted successfully"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Room not found"
// @Router /api/rooms/{id} [delete]
func DeleteRoom(c *gin.Context) {
	userID := currentUserID(c)

	if err := roomManager().DeleteRoom(c.Request.Context(), userID, c.Param("id")); err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Room deleted successfully"})
}

// GetUnreadCount godoc
// @Summary Get unread message count for a room
// @Description Returns the number of unread messages in a room for the authenticated user
// @Tags rooms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Room ID"
// @Success 200 {object} map[string]int64 "Unread message count"
// @Failure 404 {object} map[string]string "Not a member"
// @Router /api/rooms/{id}/unread [get]
func GetUnreadCount(c *gin.Context) {
	userID := currentUserID(c)

	count, err := membershipRegistry().UnreadCount(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"unread_count": count})
}
