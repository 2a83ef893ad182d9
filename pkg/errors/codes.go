package errors

type Code string

const (
	CodeUnknown            Code = "UNKNOWN"
	CodeInvalidArgument    Code = "INVALID_ARGUMENT"
	CodeNotFound           Code = "NOT_FOUND"
	CodeForbidden          Code = "FORBIDDEN"
	CodeCapacityExceeded   Code = "CAPACITY_EXCEEDED"
	CodeRoomArchived       Code = "ROOM_ARCHIVED"
	CodeAlreadyMember      Code = "ALREADY_MEMBER"
	CodeInvalidReplyTarget Code = "INVALID_REPLY_TARGET"
	CodeMessageDeleted     Code = "MESSAGE_DELETED"
	CodeNotARecipient      Code = "NOT_A_RECIPIENT"
	CodeLastAdmin          Code = "LAST_ADMIN_CANNOT_LEAVE_ALONE"
	CodeInvalidRoomSpec    Code = "INVALID_ROOM_SPEC"
	CodeInternal           Code = "INTERNAL"
)
