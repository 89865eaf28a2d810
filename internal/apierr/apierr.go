package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes used across the social graph core.
const (
	CodeNotFound        = "not_found"
	CodeInvalidArgument = "invalid_argument"
	CodeDataUnavailable = "data_unavailable"
	CodeConflict        = "conflict"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func NotFound(format string, args ...interface{}) *Error {
	return New(http.StatusNotFound, CodeNotFound, fmt.Errorf(format, args...))
}

func InvalidArgument(format string, args ...interface{}) *Error {
	return New(http.StatusBadRequest, CodeInvalidArgument, fmt.Errorf(format, args...))
}

func DataUnavailable(err error) *Error {
	return New(http.StatusServiceUnavailable, CodeDataUnavailable, err)
}

func Conflict(format string, args ...interface{}) *Error {
	return New(http.StatusConflict, CodeConflict, fmt.Errorf(format, args...))
}

func code(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

func IsNotFound(err error) bool        { return code(err) == CodeNotFound }
func IsInvalidArgument(err error) bool { return code(err) == CodeInvalidArgument }
func IsDataUnavailable(err error) bool { return code(err) == CodeDataUnavailable }
func IsConflict(err error) bool        { return code(err) == CodeConflict }

// HTTPStatus maps any error onto a response status, defaulting to 500.
func HTTPStatus(err error) int {
	var ae *Error
	if errors.As(err, &ae) && ae.Status != 0 {
		return ae.Status
	}
	return http.StatusInternalServerError
}
