package apierr

import (
	"errors"
	"fmt"
	"net/http"
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

func Newf(status int, code string, format string, args ...any) *Error {
	return &Error{Status: status, Code: code, Err: fmt.Errorf(format, args...)}
}

func BadRequest(code string, err error) *Error { return New(http.StatusBadRequest, code, err) }
func Unauthorized(err error) *Error             { return New(http.StatusUnauthorized, "unauthorized", err) }
func Forbidden(code string, err error) *Error  { return New(http.StatusForbidden, code, err) }
func NotFound(err error) *Error                 { return New(http.StatusNotFound, "not_found", err) }
func Conflict(code string, err error) *Error   { return New(http.StatusConflict, code, err) }
func Locked(err error) *Error                   { return New(http.StatusLocked, "locked", err) }

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) && ae != nil {
		return ae, true
	}
	return nil, false
}

// StatusOf returns the HTTP status carried by err, or 500.
func StatusOf(err error) int {
	if ae, ok := As(err); ok && ae.Status != 0 {
		return ae.Status
	}
	return http.StatusInternalServerError
}
