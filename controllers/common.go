package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/symplle/chat_backend/chat"
	"github.com/symplle/chat_backend/database"
	errs "github.com/symplle/chat_backend/pkg/errors"
)

// Services are cheap wrappers over the shared gorm handle, so building one
// per request costs nothing.
func roomManager() *chat.RoomManager {
	return chat.NewRoomManager(database.DB, nil)
}

func membershipRegistry() *chat.MembershipRegistry {
	return chat.NewMembershipRegistry(database.DB, nil)
}

func messageStore() *chat.MessageStore {
	return chat.NewMessageStore(database.DB)
}

func deliveryTracker() *chat.DeliveryTracker {
	return chat.NewDeliveryTracker(database.DB)
}

func reactionLedger() *chat.ReactionLedger {
	return chat.NewReactionLedger(database.DB)
}

func currentUserID(c *gin.Context) string {
	return c.MustGet("userID").(string)
}

// statusFor maps domain error codes to HTTP statuses.
func statusFor(code errs.Code) int {
	switch code {
	case errs.CodeNotFound:
		return http.StatusNotFound
	case errs.CodeForbidden:
		return http.StatusForbidden
	case errs.CodeInvalidArgument, errs.CodeInvalidRoomSpec, errs.CodeInvalidReplyTarget:
		return http.StatusBadRequest
	case errs.CodeAlreadyMember, errs.CodeCapacityExceeded, errs.CodeRoomArchived,
		errs.CodeMessageDeleted, errs.CodeNotARecipient, errs.CodeLastAdmin:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// handleError writes a domain error as JSON with its code, so the transport
// layer can react per outcome.
func handleError(c *gin.Context, err error) {
	code := errs.CodeOf(err)
	c.JSON(statusFor(code), gin.H{"error": err.Error(), "code": code})
}
