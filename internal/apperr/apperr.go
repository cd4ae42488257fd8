// Package apperr defines the outcomes services return for expected,
// caller-recoverable conditions. Anything that is not an *Error is treated as
// an infrastructure failure.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindForbidden
	KindBadRequest
	KindUnauthorized
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindBadRequest:
		return "bad_request"
	case KindUnauthorized:
		return "unauthorized"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// HTTPStatus maps a kind onto the status code handlers write.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Reason codes. Clients switch on these to pick a message.
const (
	ReasonNotMember         = "not_member"
	ReasonInsufficientRole  = "insufficient_role"
	ReasonNotYourTask       = "not_your_task"
	ReasonAssigneeFields    = "assignee_restricted_fields"
	ReasonItemNotFound      = "item_not_found"
	ReasonColumnNotFound    = "column_not_found"
	ReasonBoardNotFound     = "board_not_found"
	ReasonUserNotFound      = "user_not_found"
	ReasonTeamNotFound      = "team_not_found"
	ReasonRoomNotFound      = "room_not_found"
	ReasonMemberNotFound    = "member_not_found"
	ReasonInvitationMissing = "invitation_not_found"
	ReasonInvitationExpired = "invitation_expired"
	ReasonInvitationTarget  = "invitation_not_yours"
	ReasonIDMismatch        = "id_mismatch"
	ReasonColumnMismatch    = "column_board_mismatch"
	ReasonInvalidRole       = "invalid_role"
	ReasonInvalidInput      = "invalid_input"
	ReasonLastAdmin         = "last_admin"
	ReasonOwnerImmutable    = "owner_immutable"
	ReasonVersionConflict   = "version_conflict"
	ReasonAlreadyMember     = "already_member"
	ReasonBanned            = "banned"
	ReasonUnauthenticated   = "unauthenticated"
)

type Error struct {
	Kind    Kind
	Reason  string
	Message string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s (%s): %s", e.Kind, e.Reason, e.Message)
}

func newError(kind Kind, reason, message string) *Error {
	return &Error{Kind: kind, Reason: reason, Message: message}
}

func NotFound(reason, message string) *Error {
	return newError(KindNotFound, reason, message)
}

func Forbidden(reason, message string) *Error {
	return newError(KindForbidden, reason, message)
}

func BadRequest(reason, message string) *Error {
	return newError(KindBadRequest, reason, message)
}

func Unauthorized(reason, message string) *Error {
	return newError(KindUnauthorized, reason, message)
}

func Conflict(reason, message string) *Error {
	return newError(KindConflict, reason, message)
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf returns KindInternal for nil-free errors that carry no *Error.
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return KindInternal
}

// ReasonOf returns the reason code or "" when err is not an *Error.
func ReasonOf(err error) string {
	if appErr, ok := As(err); ok {
		return appErr.Reason
	}
	return ""
}
