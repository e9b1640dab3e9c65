package router

import (
	"fmt"
	"net/http"
)

// Error carries the HTTP status and user-facing message for a failed
// request. Err is logged, never sent.
type Error struct {
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d %s: %v", e.Status, e.Message, e.Err)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func NewError(status int, message string, err error) *Error {
	return &Error{Status: status, Message: message, Err: err}
}

func BadRequest(message string, err error) *Error {
	return NewError(http.StatusBadRequest, message, err)
}

func NotFound(message string, err error) *Error {
	return NewError(http.StatusNotFound, message, err)
}

func Unprocessable(message string, err error) *Error {
	return NewError(http.StatusUnprocessableEntity, message, err)
}

func ServiceUnavailable(message string, err error) *Error {
	return NewError(http.StatusServiceUnavailable, message, err)
}
