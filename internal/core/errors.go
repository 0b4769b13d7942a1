package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeRoomNotFound      = "room_not_found"
	ErrCodeRoomAlreadyExists = "room_already_exists"
	ErrCodeUsernameRequired  = "username_required"
	ErrCodeInvalidCreation   = "invalid_creation_payload"
	ErrCodeUnauthorized      = "unauthorized"
	ErrCodeNotInRoom         = "not_in_room"
	ErrCodeBadRequest        = "bad_request"
)

var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrRoomAlreadyExists = errors.New("room already exists")
	ErrUsernameRequired  = errors.New("username is required")
	ErrInvalidCreation   = errors.New("invalid room creation data")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrNotInRoom         = errors.New("not in room")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
