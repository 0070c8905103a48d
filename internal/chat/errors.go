package chat

import "errors"

// Error codes crossing the socket and REST boundaries.
const (
	ErrCodeValidation     = "validation_error"
	ErrCodeSelfMessage    = "self_message"
	ErrCodeNotFound       = "not_found"
	ErrCodeAuth           = "auth_error"
	ErrCodeInfrastructure = "infrastructure_error"
)

// ChatError wraps a code and human-readable message.
type ChatError struct {
	Code    string
	Message string
	err     error
}

func (e *ChatError) Error() string {
	return e.Message
}

func (e *ChatError) Unwrap() error {
	return e.err
}

func validationError(msg string) *ChatError {
	return &ChatError{Code: ErrCodeValidation, Message: msg}
}

func selfMessageError() *ChatError {
	return &ChatError{Code: ErrCodeSelfMessage, Message: "cannot send a message to yourself"}
}

func notFoundError(msg string) *ChatError {
	return &ChatError{Code: ErrCodeNotFound, Message: msg}
}

func infrastructureError(err error) *ChatError {
	return &ChatError{Code: ErrCodeInfrastructure, Message: "message store unavailable", err: err}
}

// AsChatError extracts a ChatError from an error chain, if present.
func AsChatError(err error) (*ChatError, bool) {
	var ce *ChatError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
