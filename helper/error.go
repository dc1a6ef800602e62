package helper

import "fmt"

// Error wraps an error with the operation that failed.
type Error struct {
	Operation string
	Err       error
}

// NewError creates a new error for the given operation.
func NewError(operation string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Operation: operation, Err: err}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Operation, e.Err)
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}
