package api

import "fmt"

// Error is a failed API interaction. StatusCode is zero for transport-level
// failures that never produced an HTTP response.
type Error struct {
	Message    string
	StatusCode int
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
	}
	return e.Message
}

func apiErr(statusCode int, format string, args ...any) *Error {
	return &Error{Message: fmt.Sprintf(format, args...), StatusCode: statusCode}
}
