package errors

var (
	// Domain errors returned by the chat services and mapped to HTTP by the
	// controllers. None of these are retryable.
	ErrRoomNotFound       = NotFound("room not found")
	ErrMessageNotFound    = NotFound("message not found")
	ErrMembershipNotFound = NotFound("membership not found")

	ErrForbidden          = Forbidden("operation not permitted")
	ErrSenderMuted        = Forbidden("sender is muted in this room")
	ErrCapacityExceeded   = New(CodeCapacityExceeded, "room is at member capacity")
	ErrRoomArchived       = New(CodeRoomArchived, "room is archived")
	ErrAlreadyMember      = New(CodeAlreadyMember, "user is already a member of this room")
	ErrInvalidReplyTarget = New(CodeInvalidReplyTarget, "reply target does not exist in this room")
	ErrMessageDeleted     = New(CodeMessageDeleted, "message has been deleted")
	ErrNotARecipient      = New(CodeNotARecipient, "user is not a recipient of this message")
	ErrInvalidRoomSpec    = New(CodeInvalidRoomSpec, "invalid room specification")

	ErrLastAdminCannotLeaveAlone = New(CodeLastAdmin, "the only member cannot leave; archive the room instead")
)
