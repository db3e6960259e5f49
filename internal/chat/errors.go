package chat

import "errors"

// validationError is a caller mistake. Handlers map it to 400, and the hub
// reports it with the "validation" code.
type validationError string

func (e validationError) Error() string { return string(e) }
func (e validationError) Code() string  { return "validation" }

var (
	ErrEmptyMessage  error = validationError("message is empty")
	ErrBlankReceiver error = validationError("receiver is required")
	ErrEmptyFile     error = validationError("file is empty")
	ErrFileType      error = validationError("file type not allowed")
	ErrFileTooLarge  error = validationError("file too large")
	ErrUnknownEvent  error = validationError("unknown event type")
	ErrBadPayload    error = validationError("invalid event payload")

	ErrUserNotFound = errors.New("user not found")
)

// IsValidation reports whether err was caused by invalid input.
func IsValidation(err error) bool {
	var v validationError
	return errors.As(err, &v)
}
