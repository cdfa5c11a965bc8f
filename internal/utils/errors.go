package utils

import "fmt"

// AppError attaches the failing operation and a short human-facing message
// to an underlying cause. Callers reach the cause via errors.Is and errors.As.
type AppError struct {
	Op  string
	Msg string
	Err error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Op + ": " + e.Msg
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
}

func (e *AppError) Unwrap() error { return e.Err }

// NewAppError wraps err with the operation name and message.
func NewAppError(op, msg string, err error) error {
	return &AppError{Op: op, Msg: msg, Err: err}
}
